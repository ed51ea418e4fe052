package restaurant

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/config"
	"github.com/Ramsey-B/sage/pkg/docstore"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/stats"
)

// Register registers restaurant routes
func Register(g *echo.Group) {
	g.GET("", ListRestaurants)
	g.GET("/:id", GetRestaurant)
	g.GET("/:id/stats", GetRestaurantStats)
	g.GET("/:id/dishes", ListRestaurantDishes)
	g.GET("/:id/reviews", ListRestaurantReviews)
}

// ListResponse wraps a paginated restaurant listing
type ListResponse struct {
	Restaurants []models.Restaurant `json:"restaurants"`
	Total       int                 `json:"total"`
	Limit       int                 `json:"limit"`
	Offset      int                 `json:"offset"`
}

// ListRestaurants lists the stored restaurants with limit/offset pagination
func ListRestaurants(c echo.Context) error {
	ctx := c.Request().Context()

	limit := intQueryParam(c, "limit", 50)
	offset := intQueryParam(c, "offset", 0)

	ctx, cfg, err := ectoinject.GetContext[*config.Config](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	ctx, store, err := ectoinject.GetContext[docstore.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	docs, err := store.List(ctx, cfg.RestaurantCollection)
	if err != nil {
		return err
	}

	restaurants := make([]models.Restaurant, 0, len(docs))
	for _, doc := range docs {
		var restaurant models.Restaurant
		if err := json.Unmarshal(doc.Data, &restaurant); err != nil {
			continue
		}
		restaurants = append(restaurants, restaurant)
	}

	total := len(restaurants)
	if offset > total {
		offset = total
	}
	end := offset + limit
	if end > total {
		end = total
	}

	return c.JSON(http.StatusOK, &ListResponse{
		Restaurants: restaurants[offset:end],
		Total:       total,
		Limit:       limit,
		Offset:      offset,
	})
}

// GetRestaurant gets a restaurant by ID
func GetRestaurant(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, cfg, err := ectoinject.GetContext[*config.Config](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	ctx, store, err := ectoinject.GetContext[docstore.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	var restaurant models.Restaurant
	if err := store.Get(ctx, cfg.RestaurantCollection, id, &restaurant); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, restaurant)
}

// GetRestaurantStats returns aggregate review and dish numbers for a restaurant
func GetRestaurantStats(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, cfg, err := ectoinject.GetContext[*config.Config](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	ctx, store, err := ectoinject.GetContext[docstore.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	// 404 for unknown restaurants instead of empty stats
	var restaurant models.Restaurant
	if err := store.Get(ctx, cfg.RestaurantCollection, id, &restaurant); err != nil {
		return err
	}

	ctx, statsService, err := ectoinject.GetContext[*stats.Service](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	result, err := statsService.RestaurantStats(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// ListRestaurantDishes lists the dishes of a restaurant
func ListRestaurantDishes(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, cfg, err := ectoinject.GetContext[*config.Config](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	ctx, store, err := ectoinject.GetContext[docstore.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	docs, err := store.Query(ctx, cfg.DishCollection, map[string]string{"restaurant_id": id})
	if err != nil {
		return err
	}

	dishes := make([]models.Dish, 0, len(docs))
	for _, doc := range docs {
		var dish models.Dish
		if err := json.Unmarshal(doc.Data, &dish); err != nil {
			continue
		}
		dishes = append(dishes, dish)
	}

	return c.JSON(http.StatusOK, dishes)
}

// ListRestaurantReviews lists the reviews of a restaurant, optionally filtered
// by source (internal, external)
func ListRestaurantReviews(c echo.Context) error {
	ctx := c.Request().Context()
	id := c.Param("id")

	ctx, cfg, err := ectoinject.GetContext[*config.Config](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	ctx, store, err := ectoinject.GetContext[docstore.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	fields := map[string]string{"restaurant_id": id}
	if source := c.QueryParam("source"); source != "" {
		fields["source"] = source
	}

	docs, err := store.Query(ctx, cfg.ReviewCollection, fields)
	if err != nil {
		return err
	}

	reviews := make([]models.Review, 0, len(docs))
	for _, doc := range docs {
		var review models.Review
		if err := json.Unmarshal(doc.Data, &review); err != nil {
			continue
		}
		reviews = append(reviews, review)
	}

	return c.JSON(http.StatusOK, reviews)
}

func intQueryParam(c echo.Context, name string, fallback int) int {
	raw := c.QueryParam(name)
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}
