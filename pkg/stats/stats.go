// Package stats derives aggregate numbers from the stored documents. The sync
// passes never write these; they are recomputed from reviews on demand and
// after internal review writes.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/docstore"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// Options names the collections the service reads and updates.
type Options struct {
	RestaurantCollection string
	ReviewCollection     string
	DishCollection       string
}

// Service computes review statistics and folds them back into the catalog.
type Service struct {
	store  docstore.Store
	opts   Options
	logger ectologger.Logger
}

func NewService(store docstore.Store, opts Options, logger ectologger.Logger) *Service {
	return &Service{
		store:  store,
		opts:   opts,
		logger: logger,
	}
}

// RestaurantStats summarizes a restaurant's reviews and dishes by source.
type RestaurantStats struct {
	RestaurantID    string  `json:"restaurant_id"`
	ReviewCount     int     `json:"review_count"`
	InternalCount   int     `json:"internal_count"`
	ExternalCount   int     `json:"external_count"`
	AverageRating   float64 `json:"average_rating"`
	InternalAverage float64 `json:"internal_average"`
	ExternalAverage float64 `json:"external_average"`
	DishCount       int     `json:"dish_count"`
}

// RestaurantStats aggregates the stored reviews and dishes of one restaurant.
func (s *Service) RestaurantStats(ctx context.Context, restaurantID string) (*RestaurantStats, error) {
	ctx, span := tracing.StartSpan(ctx, "stats.Service.RestaurantStats")
	defer span.End()

	reviews, err := s.reviewsFor(ctx, map[string]string{"restaurant_id": restaurantID})
	if err != nil {
		return nil, err
	}

	dishes, err := s.store.Query(ctx, s.opts.DishCollection, map[string]string{"restaurant_id": restaurantID})
	if err != nil {
		return nil, fmt.Errorf("failed to query dishes for %s: %w", restaurantID, err)
	}

	stats := &RestaurantStats{
		RestaurantID: restaurantID,
		ReviewCount:  len(reviews),
		DishCount:    len(dishes),
	}

	var total, internal, external int
	for _, review := range reviews {
		total += review.Rating
		switch review.Source {
		case models.ReviewSourceInternal:
			stats.InternalCount++
			internal += review.Rating
		case models.ReviewSourceExternal:
			stats.ExternalCount++
			external += review.Rating
		}
	}

	stats.AverageRating = average(total, stats.ReviewCount)
	stats.InternalAverage = average(internal, stats.InternalCount)
	stats.ExternalAverage = average(external, stats.ExternalCount)

	return stats, nil
}

// RecomputeRestaurantRating refreshes the restaurant's internal rating from
// its internal restaurant reviews. Overall and the source ratings stay as the
// sync pass wrote them.
func (s *Service) RecomputeRestaurantRating(ctx context.Context, restaurantID string) error {
	ctx, span := tracing.StartSpan(ctx, "stats.Service.RecomputeRestaurantRating")
	defer span.End()

	reviews, err := s.reviewsFor(ctx, map[string]string{
		"restaurant_id": restaurantID,
		"source":        string(models.ReviewSourceInternal),
		"type":          string(models.ReviewTypeRestaurant),
	})
	if err != nil {
		return err
	}

	var restaurant models.Restaurant
	if err := s.store.Get(ctx, s.opts.RestaurantCollection, restaurantID, &restaurant); err != nil {
		return err
	}

	if len(reviews) == 0 {
		restaurant.Rating.Internal = nil
	} else {
		var total int
		for _, review := range reviews {
			total += review.Rating
		}
		restaurant.Rating.Internal = &models.SourceRating{
			Value: average(total, len(reviews)),
			Count: len(reviews),
		}
	}

	if err := s.store.Set(ctx, s.opts.RestaurantCollection, restaurantID, restaurant, false); err != nil {
		return fmt.Errorf("failed to update restaurant rating for %s: %w", restaurantID, err)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"restaurant_id": restaurantID,
		"review_count":  len(reviews),
	}).Debug("recomputed restaurant rating")

	return nil
}

// RecomputeDishRating refreshes a dish's rating from its reviews.
func (s *Service) RecomputeDishRating(ctx context.Context, dishID string) error {
	ctx, span := tracing.StartSpan(ctx, "stats.Service.RecomputeDishRating")
	defer span.End()

	reviews, err := s.reviewsFor(ctx, map[string]string{
		"dish_id": dishID,
		"type":    string(models.ReviewTypeDish),
	})
	if err != nil {
		return err
	}

	var dish models.Dish
	if err := s.store.Get(ctx, s.opts.DishCollection, dishID, &dish); err != nil {
		return err
	}

	var total int
	for _, review := range reviews {
		total += review.Rating
	}
	dish.Rating = models.DishRating{
		Average: average(total, len(reviews)),
		Total:   len(reviews),
	}

	if err := s.store.Set(ctx, s.opts.DishCollection, dishID, dish, false); err != nil {
		return fmt.Errorf("failed to update dish rating for %s: %w", dishID, err)
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"dish_id":      dishID,
		"review_count": len(reviews),
	}).Debug("recomputed dish rating")

	return nil
}

func (s *Service) reviewsFor(ctx context.Context, fields map[string]string) ([]models.Review, error) {
	docs, err := s.store.Query(ctx, s.opts.ReviewCollection, fields)
	if err != nil {
		return nil, fmt.Errorf("failed to query reviews: %w", err)
	}

	reviews := make([]models.Review, 0, len(docs))
	for _, doc := range docs {
		var review models.Review
		if err := json.Unmarshal(doc.Data, &review); err != nil {
			s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"id": doc.ID,
			}).Warn("stored review is malformed")
			continue
		}
		reviews = append(reviews, review)
	}
	return reviews, nil
}

// average rounds to two decimals so stored values stay stable across
// recomputes.
func average(total, count int) float64 {
	if count == 0 {
		return 0
	}
	return math.Round(float64(total)/float64(count)*100) / 100
}
