package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"testing"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/docstore"
	"github.com/Ramsey-B/sage/pkg/logging"
	"github.com/Ramsey-B/sage/pkg/models"
)

type memStore struct {
	collections map[string]map[string]json.RawMessage
}

func newMemStore() *memStore {
	return &memStore{collections: make(map[string]map[string]json.RawMessage)}
}

func (s *memStore) seed(collection, id string, record any) {
	data, _ := json.Marshal(record)
	if s.collections[collection] == nil {
		s.collections[collection] = make(map[string]json.RawMessage)
	}
	s.collections[collection][id] = data
}

func (s *memStore) Get(ctx context.Context, collection, id string, dest any) error {
	data, ok := s.collections[collection][id]
	if !ok {
		return httperror.NewHTTPError(http.StatusNotFound, fmt.Sprintf("document %s/%s not found", collection, id))
	}
	return json.Unmarshal(data, dest)
}

func (s *memStore) Set(ctx context.Context, collection, id string, record any, merge bool) error {
	s.seed(collection, id, record)
	return nil
}

func (s *memStore) Delete(ctx context.Context, collection, id string) error {
	delete(s.collections[collection], id)
	return nil
}

func (s *memStore) List(ctx context.Context, collection string) ([]docstore.Document, error) {
	return s.Query(ctx, collection, nil)
}

func (s *memStore) ListIDs(ctx context.Context, collection string) ([]string, error) {
	var ids []string
	for id := range s.collections[collection] {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func (s *memStore) Query(ctx context.Context, collection string, fields map[string]string) ([]docstore.Document, error) {
	var docs []docstore.Document
	for id, data := range s.collections[collection] {
		var m map[string]any
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		match := true
		for k, v := range fields {
			if fmt.Sprintf("%v", m[k]) != v {
				match = false
				break
			}
		}
		if match {
			docs = append(docs, docstore.Document{ID: id, Data: data})
		}
	}
	sort.Slice(docs, func(i, j int) bool { return docs[i].ID < docs[j].ID })
	return docs, nil
}

func (s *memStore) DeleteBatch(ctx context.Context, collection string, ids []string) error {
	for _, id := range ids {
		delete(s.collections[collection], id)
	}
	return nil
}

func (s *memStore) DeleteMatching(ctx context.Context, collection string, fields map[string]string) (int64, error) {
	docs, _ := s.Query(ctx, collection, fields)
	for _, doc := range docs {
		delete(s.collections[collection], doc.ID)
	}
	return int64(len(docs)), nil
}

func testService(store *memStore) *Service {
	return NewService(store, Options{
		RestaurantCollection: "restaurants",
		ReviewCollection:     "reviews",
		DishCollection:       "dishes",
	}, logging.NewNop())
}

func seedReview(store *memStore, id, restaurantID, dishID string, source models.ReviewSource, rating int) {
	reviewType := models.ReviewTypeRestaurant
	if dishID != "" {
		reviewType = models.ReviewTypeDish
	}
	store.seed("reviews", id, models.Review{
		ID: id, RestaurantID: restaurantID, DishID: dishID,
		Type: reviewType, Source: source, Rating: rating,
	})
}

func TestRestaurantStats(t *testing.T) {
	store := newMemStore()
	store.seed("restaurants", "garys-place", models.Restaurant{ID: "garys-place"})
	store.seed("dishes", "d1", models.Dish{ID: "d1", RestaurantID: "garys-place"})
	store.seed("dishes", "d2", models.Dish{ID: "d2", RestaurantID: "garys-place"})
	store.seed("dishes", "other", models.Dish{ID: "other", RestaurantID: "elsewhere"})

	seedReview(store, "r1", "garys-place", "", models.ReviewSourceExternal, 5)
	seedReview(store, "r2", "garys-place", "", models.ReviewSourceExternal, 4)
	seedReview(store, "r3", "garys-place", "", models.ReviewSourceInternal, 2)
	seedReview(store, "r4", "elsewhere", "", models.ReviewSourceInternal, 1)

	stats, err := testService(store).RestaurantStats(context.Background(), "garys-place")
	require.NoError(t, err)

	assert.Equal(t, 3, stats.ReviewCount)
	assert.Equal(t, 2, stats.ExternalCount)
	assert.Equal(t, 1, stats.InternalCount)
	assert.Equal(t, 2, stats.DishCount)
	assert.InDelta(t, 3.67, stats.AverageRating, 0.001)
	assert.InDelta(t, 4.5, stats.ExternalAverage, 0.001)
	assert.InDelta(t, 2.0, stats.InternalAverage, 0.001)
}

func TestRestaurantStatsEmpty(t *testing.T) {
	store := newMemStore()
	store.seed("restaurants", "garys-place", models.Restaurant{ID: "garys-place"})

	stats, err := testService(store).RestaurantStats(context.Background(), "garys-place")
	require.NoError(t, err)

	assert.Zero(t, stats.ReviewCount)
	assert.Zero(t, stats.AverageRating)
	assert.Zero(t, stats.DishCount)
}

func TestRecomputeRestaurantRating(t *testing.T) {
	store := newMemStore()
	store.seed("restaurants", "garys-place", models.Restaurant{
		ID:     "garys-place",
		Rating: models.Rating{Overall: 4.5, Count: 100},
	})

	seedReview(store, "r1", "garys-place", "", models.ReviewSourceInternal, 5)
	seedReview(store, "r2", "garys-place", "", models.ReviewSourceInternal, 4)
	// external reviews never feed the internal rating
	seedReview(store, "r3", "garys-place", "", models.ReviewSourceExternal, 1)

	require.NoError(t, testService(store).RecomputeRestaurantRating(context.Background(), "garys-place"))

	var restaurant models.Restaurant
	require.NoError(t, store.Get(context.Background(), "restaurants", "garys-place", &restaurant))

	require.NotNil(t, restaurant.Rating.Internal)
	assert.InDelta(t, 4.5, restaurant.Rating.Internal.Value, 0.001)
	assert.Equal(t, 2, restaurant.Rating.Internal.Count)

	// sync-owned values untouched
	assert.Equal(t, 4.5, restaurant.Rating.Overall)
	assert.Equal(t, 100, restaurant.Rating.Count)
}

func TestRecomputeRestaurantRatingNoReviews(t *testing.T) {
	store := newMemStore()
	store.seed("restaurants", "garys-place", models.Restaurant{
		ID: "garys-place",
		Rating: models.Rating{
			Internal: &models.SourceRating{Value: 5, Count: 1},
		},
	})

	require.NoError(t, testService(store).RecomputeRestaurantRating(context.Background(), "garys-place"))

	var restaurant models.Restaurant
	require.NoError(t, store.Get(context.Background(), "restaurants", "garys-place", &restaurant))
	assert.Nil(t, restaurant.Rating.Internal)
}

func TestRecomputeRestaurantRatingMissingRestaurant(t *testing.T) {
	err := testService(newMemStore()).RecomputeRestaurantRating(context.Background(), "nope")
	assert.Error(t, err)
}

func TestRecomputeDishRating(t *testing.T) {
	store := newMemStore()
	store.seed("dishes", "d1", models.Dish{ID: "d1", RestaurantID: "garys-place"})

	seedReview(store, "r1", "garys-place", "d1", models.ReviewSourceInternal, 5)
	seedReview(store, "r2", "garys-place", "d1", models.ReviewSourceInternal, 2)
	seedReview(store, "r3", "garys-place", "", models.ReviewSourceInternal, 1)

	require.NoError(t, testService(store).RecomputeDishRating(context.Background(), "d1"))

	var dish models.Dish
	require.NoError(t, store.Get(context.Background(), "dishes", "d1", &dish))

	assert.InDelta(t, 3.5, dish.Rating.Average, 0.001)
	assert.Equal(t, 2, dish.Rating.Total)
}
