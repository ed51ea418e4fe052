package dish

import (
	"encoding/json"
	"net/http"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/config"
	"github.com/Ramsey-B/sage/pkg/docstore"
	"github.com/Ramsey-B/sage/pkg/models"
)

// Register registers dish routes
func Register(g *echo.Group) {
	g.GET("/:id", GetDish)
	g.GET("/:id/reviews", ListDishReviews)
}

// GetDish gets a dish by ID
func GetDish(c echo.Context) error {
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

	var dish models.Dish
	if err := store.Get(ctx, cfg.DishCollection, id, &dish); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, dish)
}

// ListDishReviews lists the reviews of a dish
func ListDishReviews(c echo.Context) error {
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

	docs, err := store.Query(ctx, cfg.ReviewCollection, map[string]string{"dish_id": id})
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
