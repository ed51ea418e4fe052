package sync

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/Gobusters/ectologger"

	appcontext "github.com/Ramsey-B/sage/pkg/context"
	"github.com/Ramsey-B/sage/pkg/docstore"
	"github.com/Ramsey-B/sage/pkg/identifier"
	"github.com/Ramsey-B/sage/pkg/merging"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

type PassStatus string

const (
	PassStatusDone   PassStatus = "done"
	PassStatusFailed PassStatus = "failed"
)

const (
	PassRestaurants = "restaurants"
	PassReviews     = "reviews"
	PassDishes      = "dishes"
)

// PassResult reports what a sync pass did. Skipped counts items dropped by
// per-item failure isolation; a pass with skips still finishes as done.
type PassResult struct {
	Pass      string        `json:"pass"`
	Status    PassStatus    `json:"status"`
	Seen      int           `json:"seen"`
	Persisted int           `json:"persisted"`
	Skipped   int           `json:"skipped"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration"`
}

// DirectorySource is the slice of the directory client the passes need.
type DirectorySource interface {
	Search(ctx context.Context, location, term string, radius, limit, offset int) (*models.BusinessSearchPage, error)
	GetBusiness(ctx context.Context, id string) (*models.Business, error)
}

// SecondaryMatcher resolves a business to its secondary source counterpart.
type SecondaryMatcher interface {
	Match(ctx context.Context, business *models.Business) (*models.Place, error)
}

// PlaceDetailer fetches secondary details for an already matched place id.
type PlaceDetailer interface {
	PlaceDetails(ctx context.Context, placeID string, fields []string) (*models.Place, error)
}

// Releaser is a held lease.
type Releaser interface {
	Release(ctx context.Context) error
}

// LeaseManager guards a collection against concurrent passes. A nil manager
// disables the guard.
type LeaseManager interface {
	Acquire(ctx context.Context, collection string, ttl time.Duration) (Releaser, error)
}

// EventSink receives catalog lifecycle events. Emission failures are logged
// and never fail the pass.
type EventSink interface {
	RecordSynced(ctx context.Context, collection, id string, data json.RawMessage) error
	PassCompleted(ctx context.Context, result PassResult) error
}

// GraphSink mirrors canonical records into the graph projection.
type GraphSink interface {
	ProjectRestaurant(ctx context.Context, restaurant *models.Restaurant) error
	ProjectDish(ctx context.Context, dish *models.Dish) error
}

// Options configures the sync passes.
type Options struct {
	Location             string
	Term                 string
	Radius               int
	PageSize             int
	MaxReviews           int
	PageDelay            time.Duration
	LeaseTTL             time.Duration
	RestaurantCollection string
	ReviewCollection     string
	DishCollection       string
}

// Dependencies are the collaborators of the orchestrator. Leases, Events, and
// Graph are optional.
type Dependencies struct {
	Store       docstore.Store
	Coordinator *Coordinator
	Directory   DirectorySource
	Matcher     SecondaryMatcher
	Places      PlaceDetailer
	Leases      LeaseManager
	Events      EventSink
	Graph       GraphSink
	Logger      ectologger.Logger
}

// Orchestrator drives the three sync passes. Each pass takes a lease on its
// collection, clears the records it owns, repopulates them from the sources,
// and reports seen/persisted/skipped counters. Item failures are isolated;
// clear-step and pagination failures abort the pass.
type Orchestrator struct {
	opts   Options
	store  docstore.Store
	coord  *Coordinator
	dir    DirectorySource
	match  SecondaryMatcher
	places PlaceDetailer
	leases LeaseManager
	events EventSink
	graph  GraphSink
	logger ectologger.Logger
	now    func() time.Time
}

func NewOrchestrator(opts Options, deps Dependencies) *Orchestrator {
	if opts.MaxReviews <= 0 {
		opts.MaxReviews = 10
	}
	if opts.PageSize <= 0 {
		opts.PageSize = 50
	}
	return &Orchestrator{
		opts:   opts,
		store:  deps.Store,
		coord:  deps.Coordinator,
		dir:    deps.Directory,
		match:  deps.Matcher,
		places: deps.Places,
		leases: deps.Leases,
		events: deps.Events,
		graph:  deps.Graph,
		logger: deps.Logger,
		now:    time.Now,
	}
}

// SyncRestaurants wipes and rebuilds the restaurant collection from the
// paginated directory search.
func (o *Orchestrator) SyncRestaurants(ctx context.Context) (*PassResult, error) {
	ctx = appcontext.SetPass(ctx, PassRestaurants)
	ctx, span := tracing.StartSpan(ctx, "sync.Orchestrator.SyncRestaurants")
	defer span.End()

	result := o.newResult(PassRestaurants)

	release, err := o.acquire(ctx, o.opts.RestaurantCollection)
	if err != nil {
		return o.fail(ctx, result, err)
	}
	defer release(ctx)

	if _, err := o.coord.Clear(ctx, o.opts.RestaurantCollection); err != nil {
		return o.fail(ctx, result, err)
	}

	offset := 0
	for {
		page, err := o.dir.Search(ctx, o.opts.Location, o.opts.Term, o.opts.Radius, o.opts.PageSize, offset)
		if err != nil {
			return o.fail(ctx, result, fmt.Errorf("pagination failed at offset %d: %w", offset, err))
		}
		if len(page.Businesses) == 0 {
			break
		}

		for _, business := range page.Businesses {
			result.Seen++
			if err := o.processRestaurant(ctx, business); err != nil {
				result.Skipped++
				o.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
					"business_id": business.ID,
				}).Warn("skipping restaurant")
				continue
			}
			result.Persisted++
		}

		offset += len(page.Businesses)
		if page.Total > 0 && offset >= page.Total {
			break
		}
		if err := o.pause(ctx, o.opts.PageDelay); err != nil {
			return o.fail(ctx, result, err)
		}
	}

	return o.done(ctx, result)
}

func (o *Orchestrator) processRestaurant(ctx context.Context, summary models.Business) error {
	detail, err := o.dir.GetBusiness(ctx, summary.ID)
	if err != nil {
		return fmt.Errorf("detail fetch failed: %w", err)
	}

	place, err := o.match.Match(ctx, detail)
	if err != nil {
		return fmt.Errorf("secondary match failed: %w", err)
	}

	record, err := merging.Merge(detail, place, o.now())
	if err != nil {
		return fmt.Errorf("merge failed: %w", err)
	}

	if err := o.store.Set(ctx, o.opts.RestaurantCollection, record.ID, record, false); err != nil {
		return fmt.Errorf("persist failed: %w", err)
	}

	o.projectRestaurant(ctx, record)
	o.emitRecordSynced(ctx, o.opts.RestaurantCollection, record.ID, record)

	return nil
}

// SyncReviews rebuilds the external reviews of every stored restaurant that
// has a secondary place id. Internal reviews are never touched.
func (o *Orchestrator) SyncReviews(ctx context.Context) (*PassResult, error) {
	ctx = appcontext.SetPass(ctx, PassReviews)
	ctx, span := tracing.StartSpan(ctx, "sync.Orchestrator.SyncReviews")
	defer span.End()

	result := o.newResult(PassReviews)

	release, err := o.acquire(ctx, o.opts.ReviewCollection)
	if err != nil {
		return o.fail(ctx, result, err)
	}
	defer release(ctx)

	externalScope := map[string]string{"source": string(models.ReviewSourceExternal)}
	if _, err := o.coord.ClearMatching(ctx, o.opts.ReviewCollection, externalScope); err != nil {
		return o.fail(ctx, result, err)
	}

	restaurants, err := o.listRestaurants(ctx)
	if err != nil {
		return o.fail(ctx, result, err)
	}

	for _, restaurant := range restaurants {
		result.Seen++
		if err := o.processRestaurantReviews(ctx, restaurant); err != nil {
			result.Skipped++
			o.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"restaurant_id": restaurant.ID,
			}).Warn("skipping restaurant reviews")
			continue
		}
		result.Persisted++
	}

	return o.done(ctx, result)
}

func (o *Orchestrator) processRestaurantReviews(ctx context.Context, restaurant models.Restaurant) error {
	if restaurant.SourceIDs.SecondaryID == nil {
		// Never matched; nothing to ingest.
		o.logger.WithContext(ctx).WithFields(map[string]any{
			"restaurant_id": restaurant.ID,
		}).Debug("restaurant has no secondary id")
		return nil
	}

	place, err := o.places.PlaceDetails(ctx, *restaurant.SourceIDs.SecondaryID, []string{"reviews"})
	if err != nil {
		return fmt.Errorf("review fetch failed: %w", err)
	}

	reviews := topReviews(place.Reviews, o.opts.MaxReviews)
	docs := make([]Doc, 0, len(reviews))
	for _, pr := range reviews {
		review := models.Review{
			ID:             identifier.ExternalReviewID(restaurant.ID, pr.Time, pr.AuthorName),
			RestaurantID:   restaurant.ID,
			RestaurantName: restaurant.Name,
			Type:           models.ReviewTypeRestaurant,
			Source:         models.ReviewSourceExternal,
			Rating:         pr.Rating,
			Comment:        pr.Text,
			Timestamp:      time.Unix(pr.Time, 0).UTC(),
			RelativeTime:   pr.RelativeTimeDescription,
			Author: models.ReviewAuthor{
				Name:         pr.AuthorName,
				ProfilePhoto: pr.ProfilePhotoURL,
			},
		}
		docs = append(docs, Doc{ID: review.ID, Record: review})
	}

	scope := map[string]string{"source": string(models.ReviewSourceExternal)}
	if err := o.coord.ReplaceChildren(ctx, o.opts.ReviewCollection, "restaurant_id", restaurant.ID, scope, docs); err != nil {
		return err
	}

	return nil
}

// SyncDishes rebuilds every stored restaurant's directory-sourced dishes from
// the primary detail payload's menu. User-created dishes survive.
func (o *Orchestrator) SyncDishes(ctx context.Context) (*PassResult, error) {
	ctx = appcontext.SetPass(ctx, PassDishes)
	ctx, span := tracing.StartSpan(ctx, "sync.Orchestrator.SyncDishes")
	defer span.End()

	result := o.newResult(PassDishes)

	release, err := o.acquire(ctx, o.opts.DishCollection)
	if err != nil {
		return o.fail(ctx, result, err)
	}
	defer release(ctx)

	restaurants, err := o.listRestaurants(ctx)
	if err != nil {
		return o.fail(ctx, result, err)
	}

	for _, restaurant := range restaurants {
		result.Seen++
		if err := o.processRestaurantDishes(ctx, restaurant); err != nil {
			result.Skipped++
			o.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"restaurant_id": restaurant.ID,
			}).Warn("skipping restaurant dishes")
			continue
		}
		result.Persisted++
	}

	return o.done(ctx, result)
}

func (o *Orchestrator) processRestaurantDishes(ctx context.Context, restaurant models.Restaurant) error {
	detail, err := o.dir.GetBusiness(ctx, restaurant.SourceIDs.PrimaryID)
	if err != nil {
		return fmt.Errorf("detail fetch failed: %w", err)
	}

	docs := make([]Doc, 0, len(detail.MenuItems))
	for _, item := range detail.MenuItems {
		itemID := item.ID
		if itemID == "" {
			itemID = item.Name
		}
		dish := models.Dish{
			ID:           identifier.DishID(restaurant.ID, itemID),
			RestaurantID: restaurant.ID,
			Name:         item.Name,
			Description:  item.Description,
			Price:        item.Price,
			Category:     item.Category,
			Images:       item.Photos,
			Source:       models.DishSourceDirectory,
			IsAvailable:  true,
			UpdatedAt:    o.now().UTC(),
		}
		docs = append(docs, Doc{ID: dish.ID, Record: dish})
	}

	scope := map[string]string{"source": string(models.DishSourceDirectory)}
	if err := o.coord.ReplaceChildren(ctx, o.opts.DishCollection, "restaurant_id", restaurant.ID, scope, docs); err != nil {
		return err
	}

	for _, doc := range docs {
		if dish, ok := doc.Record.(models.Dish); ok {
			o.projectDish(ctx, dish)
		}
	}

	return nil
}

func (o *Orchestrator) listRestaurants(ctx context.Context) ([]models.Restaurant, error) {
	docs, err := o.store.List(ctx, o.opts.RestaurantCollection)
	if err != nil {
		return nil, fmt.Errorf("failed to list restaurants: %w", err)
	}

	restaurants := make([]models.Restaurant, 0, len(docs))
	for _, doc := range docs {
		var restaurant models.Restaurant
		if err := json.Unmarshal(doc.Data, &restaurant); err != nil {
			o.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"id": doc.ID,
			}).Warn("stored restaurant is malformed")
			continue
		}
		restaurants = append(restaurants, restaurant)
	}
	return restaurants, nil
}

// topReviews keeps the highest rated reviews, preserving source order among
// equals.
func topReviews(reviews []models.PlaceReview, limit int) []models.PlaceReview {
	sorted := make([]models.PlaceReview, len(reviews))
	copy(sorted, reviews)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Rating > sorted[j].Rating
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[:limit]
	}
	return sorted
}

func (o *Orchestrator) newResult(pass string) *PassResult {
	return &PassResult{
		Pass:      pass,
		Status:    PassStatusFailed,
		StartedAt: o.now().UTC(),
	}
}

func (o *Orchestrator) acquire(ctx context.Context, collection string) (func(context.Context), error) {
	if o.leases == nil {
		return func(context.Context) {}, nil
	}

	held, err := o.leases.Acquire(ctx, collection, o.opts.LeaseTTL)
	if err != nil {
		return nil, fmt.Errorf("could not take lease on %s: %w", collection, err)
	}

	return func(ctx context.Context) {
		if err := held.Release(ctx); err != nil {
			o.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"collection": collection,
			}).Warn("failed to release sync lease")
		}
	}, nil
}

func (o *Orchestrator) pause(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(delay):
		return nil
	}
}

func (o *Orchestrator) fail(ctx context.Context, result *PassResult, err error) (*PassResult, error) {
	result.Status = PassStatusFailed
	result.Duration = o.now().UTC().Sub(result.StartedAt)

	o.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
		"pass":      result.Pass,
		"seen":      result.Seen,
		"persisted": result.Persisted,
		"skipped":   result.Skipped,
	}).Error("sync pass failed")

	o.emitPassCompleted(ctx, *result)
	return result, err
}

func (o *Orchestrator) done(ctx context.Context, result *PassResult) (*PassResult, error) {
	result.Status = PassStatusDone
	result.Duration = o.now().UTC().Sub(result.StartedAt)

	o.logger.WithContext(ctx).WithFields(map[string]any{
		"pass":      result.Pass,
		"seen":      result.Seen,
		"persisted": result.Persisted,
		"skipped":   result.Skipped,
		"duration":  result.Duration.String(),
	}).Info("sync pass complete")

	o.emitPassCompleted(ctx, *result)
	return result, nil
}

func (o *Orchestrator) emitRecordSynced(ctx context.Context, collection, id string, record any) {
	if o.events == nil {
		return
	}
	data, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := o.events.RecordSynced(ctx, collection, id, data); err != nil {
		o.logger.WithContext(ctx).WithError(err).Warn("failed to emit record event")
	}
}

func (o *Orchestrator) emitPassCompleted(ctx context.Context, result PassResult) {
	if o.events == nil {
		return
	}
	if err := o.events.PassCompleted(ctx, result); err != nil {
		o.logger.WithContext(ctx).WithError(err).Warn("failed to emit pass event")
	}
}

func (o *Orchestrator) projectRestaurant(ctx context.Context, restaurant *models.Restaurant) {
	if o.graph == nil || restaurant == nil {
		return
	}
	if err := o.graph.ProjectRestaurant(ctx, restaurant); err != nil {
		o.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"restaurant_id": restaurant.ID,
		}).Warn("failed to project restaurant to graph")
	}
}

func (o *Orchestrator) projectDish(ctx context.Context, dish models.Dish) {
	if o.graph == nil {
		return
	}
	if err := o.graph.ProjectDish(ctx, &dish); err != nil {
		o.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"dish_id": dish.ID,
		}).Warn("failed to project dish to graph")
	}
}
