package sync

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/logging"
	"github.com/Ramsey-B/sage/pkg/models"
)

func testOptions() Options {
	return Options{
		Location:             "Fort Lauderdale, FL",
		Term:                 "restaurants",
		Radius:               8000,
		PageSize:             2,
		MaxReviews:           2,
		LeaseTTL:             time.Minute,
		RestaurantCollection: "restaurants",
		ReviewCollection:     "reviews",
		DishCollection:       "dishes",
	}
}

func newTestOrchestrator(opts Options, deps Dependencies) *Orchestrator {
	if deps.Logger == nil {
		deps.Logger = logging.NewNop()
	}
	if deps.Coordinator == nil && deps.Store != nil {
		deps.Coordinator = NewCoordinator(deps.Store, deps.Logger, 0)
	}
	return NewOrchestrator(opts, deps)
}

func business(id, name string) models.Business {
	return models.Business{
		ID:     id,
		Name:   name,
		Rating: 4.0,
		Location: models.Location{
			Address1: "123 Main St",
			City:     "Fort Lauderdale",
		},
	}
}

func TestSyncRestaurantsRebuildsCollection(t *testing.T) {
	store := newFakeStore()
	store.seed("restaurants", "stale", models.Restaurant{ID: "stale", Name: "Gone Forever"})

	b1 := business("garys-place", "Gary's Place")
	b2 := business("bad-detail", "Broken")
	b3 := business("solo-diner", "Solo Diner")

	directory := &fakeDirectory{
		businesses: []models.Business{b1, b2, b3},
		details: map[string]*models.Business{
			"garys-place": &b1,
			"solo-diner":  &b3,
		},
		detailErr: map[string]error{
			"bad-detail": errors.New("detail fetch blew up"),
		},
	}
	matcher := &fakeMatcher{
		places: map[string]*models.Place{
			"garys-place": {PlaceID: "ChIJ1", Name: "Garys Place", Rating: 4.2},
		},
	}
	leases := &fakeLeases{}
	events := &fakeEvents{}

	o := newTestOrchestrator(testOptions(), Dependencies{
		Store:     store,
		Directory: directory,
		Matcher:   matcher,
		Leases:    leases,
		Events:    events,
	})

	result, err := o.SyncRestaurants(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PassStatusDone, result.Status)
	assert.Equal(t, 3, result.Seen)
	assert.Equal(t, 2, result.Persisted)
	assert.Equal(t, 1, result.Skipped)

	// stale record wiped, survivors keyed by deterministic ids
	assert.Equal(t, []string{"garys-place", "solo-diner"}, store.ids("restaurants"))

	var matched models.Restaurant
	require.NoError(t, store.Get(context.Background(), "restaurants", "garys-place", &matched))
	require.NotNil(t, matched.SourceIDs.SecondaryID)
	assert.Equal(t, "ChIJ1", *matched.SourceIDs.SecondaryID)

	var unmatched models.Restaurant
	require.NoError(t, store.Get(context.Background(), "restaurants", "solo-diner", &unmatched))
	assert.Nil(t, unmatched.SourceIDs.SecondaryID)

	assert.Equal(t, []string{"restaurants"}, leases.acquired)
	assert.Equal(t, 1, leases.released)
	assert.Len(t, events.records, 2)
	require.Len(t, events.passes, 1)
	assert.Equal(t, PassRestaurants, events.passes[0].Pass)
}

func TestSyncRestaurantsPaginationFailureAbortsPass(t *testing.T) {
	store := newFakeStore()
	directory := &fakeDirectory{searchErr: errors.New("upstream down")}

	o := newTestOrchestrator(testOptions(), Dependencies{
		Store:     store,
		Directory: directory,
		Matcher:   &fakeMatcher{},
	})

	result, err := o.SyncRestaurants(context.Background())
	require.Error(t, err)
	assert.Equal(t, PassStatusFailed, result.Status)
}

func TestSyncRestaurantsLeaseHeld(t *testing.T) {
	store := newFakeStore()
	store.seed("restaurants", "keep", models.Restaurant{ID: "keep"})
	leases := &fakeLeases{err: errors.New("sync lease already held")}

	o := newTestOrchestrator(testOptions(), Dependencies{
		Store:     store,
		Directory: &fakeDirectory{},
		Matcher:   &fakeMatcher{},
		Leases:    leases,
	})

	result, err := o.SyncRestaurants(context.Background())
	require.Error(t, err)

	assert.Equal(t, PassStatusFailed, result.Status)
	// nothing was cleared while the lease was held
	assert.Equal(t, []string{"keep"}, store.ids("restaurants"))
}

func seedRestaurant(store *fakeStore, id string, secondaryID string) models.Restaurant {
	restaurant := models.Restaurant{
		ID:        id,
		Name:      id,
		SourceIDs: models.SourceIDs{PrimaryID: id},
	}
	if secondaryID != "" {
		restaurant.SourceIDs.SecondaryID = &secondaryID
	}
	store.seed("restaurants", id, restaurant)
	return restaurant
}

func TestSyncReviewsReplacesExternalOnly(t *testing.T) {
	store := newFakeStore()
	seedRestaurant(store, "garys-place", "ChIJ1")
	seedRestaurant(store, "solo-diner", "")

	// internal review survives the pass, stale externals do not
	store.seed("reviews", "internal-1", models.Review{
		ID: "internal-1", RestaurantID: "garys-place",
		Type: models.ReviewTypeRestaurant, Source: models.ReviewSourceInternal, Rating: 5,
	})
	store.seed("reviews", "stale-ext", models.Review{
		ID: "stale-ext", RestaurantID: "garys-place",
		Type: models.ReviewTypeRestaurant, Source: models.ReviewSourceExternal, Rating: 1,
	})
	store.seed("reviews", "orphan-ext", models.Review{
		ID: "orphan-ext", RestaurantID: "gone-restaurant",
		Type: models.ReviewTypeRestaurant, Source: models.ReviewSourceExternal, Rating: 2,
	})

	places := &fakePlaces{
		details: map[string]*models.Place{
			"ChIJ1": {
				PlaceID: "ChIJ1",
				Reviews: []models.PlaceReview{
					{AuthorName: "Alice", Rating: 5, Text: "great", Time: 1000},
					{AuthorName: "Bob", Rating: 3, Text: "fine", Time: 2000},
					{AuthorName: "Cara", Rating: 4, Text: "good", Time: 3000},
				},
			},
		},
	}

	o := newTestOrchestrator(testOptions(), Dependencies{
		Store:     store,
		Directory: &fakeDirectory{},
		Matcher:   &fakeMatcher{},
		Places:    places,
	})

	result, err := o.SyncReviews(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PassStatusDone, result.Status)
	assert.Equal(t, 2, result.Seen)
	assert.Equal(t, 2, result.Persisted)
	assert.Equal(t, 0, result.Skipped)

	// MaxReviews keeps the two highest rated
	assert.Equal(t, []string{
		"garys-place_1000_Alice",
		"garys-place_3000_Cara",
		"internal-1",
	}, store.ids("reviews"))

	var ingested models.Review
	require.NoError(t, store.Get(context.Background(), "reviews", "garys-place_1000_Alice", &ingested))
	assert.Equal(t, models.ReviewSourceExternal, ingested.Source)
	assert.Equal(t, 5, ingested.Rating)
	assert.Equal(t, time.Unix(1000, 0).UTC(), ingested.Timestamp)
}

func TestSyncReviewsIdempotent(t *testing.T) {
	store := newFakeStore()
	seedRestaurant(store, "garys-place", "ChIJ1")

	places := &fakePlaces{
		details: map[string]*models.Place{
			"ChIJ1": {
				PlaceID: "ChIJ1",
				Reviews: []models.PlaceReview{
					{AuthorName: "Alice", Rating: 5, Time: 1000},
				},
			},
		},
	}

	o := newTestOrchestrator(testOptions(), Dependencies{
		Store:     store,
		Directory: &fakeDirectory{},
		Matcher:   &fakeMatcher{},
		Places:    places,
	})

	for i := 0; i < 2; i++ {
		_, err := o.SyncReviews(context.Background())
		require.NoError(t, err)
	}

	assert.Equal(t, []string{"garys-place_1000_Alice"}, store.ids("reviews"))
}

func TestSyncReviewsFetchFailureIsIsolated(t *testing.T) {
	store := newFakeStore()
	seedRestaurant(store, "garys-place", "ChIJ-missing")
	seedRestaurant(store, "solo-diner", "")

	o := newTestOrchestrator(testOptions(), Dependencies{
		Store:     store,
		Directory: &fakeDirectory{},
		Matcher:   &fakeMatcher{},
		Places:    &fakePlaces{details: map[string]*models.Place{}},
	})

	result, err := o.SyncReviews(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PassStatusDone, result.Status)
	assert.Equal(t, 2, result.Seen)
	assert.Equal(t, 1, result.Persisted)
	assert.Equal(t, 1, result.Skipped)
}

func TestSyncDishesRebuildsDirectoryDishes(t *testing.T) {
	store := newFakeStore()
	seedRestaurant(store, "garys-place", "")

	store.seed("dishes", "stale-dish", models.Dish{
		ID: "stale-dish", RestaurantID: "garys-place", Source: models.DishSourceDirectory,
	})
	store.seed("dishes", "user-dish", models.Dish{
		ID: "user-dish", RestaurantID: "garys-place", Source: models.DishSourceUser,
	})

	detail := business("garys-place", "Gary's Place")
	detail.MenuItems = []models.MenuItem{
		{ID: "fish-tacos", Name: "Fish Tacos", Price: 14.5},
		{Name: "Key Lime Pie", Price: 8.0},
	}

	o := newTestOrchestrator(testOptions(), Dependencies{
		Store: store,
		Directory: &fakeDirectory{
			details: map[string]*models.Business{"garys-place": &detail},
		},
		Matcher: &fakeMatcher{},
	})

	result, err := o.SyncDishes(context.Background())
	require.NoError(t, err)

	assert.Equal(t, PassStatusDone, result.Status)
	assert.Equal(t, 1, result.Seen)
	assert.Equal(t, 1, result.Persisted)

	// user dish survives, directory dishes rebuilt with deterministic ids
	assert.Equal(t, []string{
		"garys-place_Key_Lime_Pie",
		"garys-place_fish-tacos",
		"user-dish",
	}, store.ids("dishes"))

	var dish models.Dish
	require.NoError(t, store.Get(context.Background(), "dishes", "garys-place_fish-tacos", &dish))
	assert.Equal(t, models.DishSourceDirectory, dish.Source)
	assert.Equal(t, 14.5, dish.Price)
	assert.True(t, dish.IsAvailable)
}

func TestSyncDishesDetailFailureIsIsolated(t *testing.T) {
	store := newFakeStore()
	seedRestaurant(store, "garys-place", "")
	seedRestaurant(store, "broken", "")

	detail := business("garys-place", "Gary's Place")
	o := newTestOrchestrator(testOptions(), Dependencies{
		Store: store,
		Directory: &fakeDirectory{
			details:   map[string]*models.Business{"garys-place": &detail},
			detailErr: map[string]error{"broken": errors.New("detail fetch blew up")},
		},
		Matcher: &fakeMatcher{},
	})

	result, err := o.SyncDishes(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, result.Seen)
	assert.Equal(t, 1, result.Persisted)
	assert.Equal(t, 1, result.Skipped)
}

func TestTopReviews(t *testing.T) {
	reviews := []models.PlaceReview{
		{AuthorName: "a", Rating: 3},
		{AuthorName: "b", Rating: 5},
		{AuthorName: "c", Rating: 4},
		{AuthorName: "d", Rating: 5},
	}

	top := topReviews(reviews, 2)
	require.Len(t, top, 2)

	// highest first, ties keep source order
	assert.Equal(t, "b", top[0].AuthorName)
	assert.Equal(t, "d", top[1].AuthorName)

	// input order untouched
	assert.Equal(t, "a", reviews[0].AuthorName)
}

func TestTopReviewsNoLimit(t *testing.T) {
	reviews := []models.PlaceReview{{Rating: 1}, {Rating: 2}}
	assert.Len(t, topReviews(reviews, 0), 2)
	assert.Len(t, topReviews(nil, 5), 0)
}
