package review

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectoinject"
	"github.com/Gobusters/ectologger"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/sage/config"
	"github.com/Ramsey-B/sage/pkg/docstore"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/stats"
)

// Register registers review routes
func Register(g *echo.Group) {
	g.POST("", CreateReview)
	g.GET("/:id", GetReview)
	g.DELETE("/:id", DeleteReview)
}

// CreateReview creates an internal review for a restaurant or a dish. External
// reviews only enter through the sync pass.
func CreateReview(c echo.Context) error {
	ctx := c.Request().Context()

	var req models.CreateReviewRequest
	if err := c.Bind(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "invalid request body")
	}

	ctx, validate, err := ectoinject.GetContext[*validator.Validate](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}
	if err := validate.Struct(&req); err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, err.Error())
	}

	ctx, cfg, err := ectoinject.GetContext[*config.Config](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	ctx, store, err := ectoinject.GetContext[docstore.Store](ctx)
	if err != nil {
		return httperror.NewHTTPError(http.StatusInternalServerError, "service unavailable")
	}

	var restaurant models.Restaurant
	if err := store.Get(ctx, cfg.RestaurantCollection, req.RestaurantID, &restaurant); err != nil {
		return err
	}

	reviewType := models.ReviewTypeRestaurant
	if req.DishID != "" {
		var dish models.Dish
		if err := store.Get(ctx, cfg.DishCollection, req.DishID, &dish); err != nil {
			return err
		}
		if dish.RestaurantID != req.RestaurantID {
			return httperror.NewHTTPError(http.StatusBadRequest, "dish does not belong to restaurant")
		}
		reviewType = models.ReviewTypeDish
	}

	review := models.Review{
		ID:             uuid.New().String(),
		RestaurantID:   req.RestaurantID,
		RestaurantName: restaurant.Name,
		DishID:         req.DishID,
		Type:           reviewType,
		Source:         models.ReviewSourceInternal,
		Rating:         req.Rating,
		Comment:        req.Comment,
		Timestamp:      time.Now().UTC(),
		Author: models.ReviewAuthor{
			Name:   req.AuthorName,
			UserID: req.AuthorUserID,
		},
	}

	if err := store.Set(ctx, cfg.ReviewCollection, review.ID, review, false); err != nil {
		return err
	}

	recompute(ctx, review)

	return c.JSON(http.StatusCreated, review)
}

// GetReview gets a review by ID
func GetReview(c echo.Context) error {
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

	var review models.Review
	if err := store.Get(ctx, cfg.ReviewCollection, id, &review); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, review)
}

// DeleteReview deletes an internal review. External reviews belong to the sync
// pass and cannot be removed here.
func DeleteReview(c echo.Context) error {
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

	var review models.Review
	if err := store.Get(ctx, cfg.ReviewCollection, id, &review); err != nil {
		return err
	}
	if review.Source != models.ReviewSourceInternal {
		return httperror.NewHTTPError(http.StatusForbidden, "only internal reviews can be deleted")
	}

	if err := store.Delete(ctx, cfg.ReviewCollection, id); err != nil {
		return err
	}

	recompute(ctx, review)

	return c.NoContent(http.StatusNoContent)
}

// recompute refreshes the affected aggregate after a review write. Failures
// are logged; the review itself already persisted.
func recompute(ctx context.Context, review models.Review) {
	ctx, statsService, err := ectoinject.GetContext[*stats.Service](ctx)
	if err != nil {
		return
	}

	if review.Type == models.ReviewTypeDish {
		err = statsService.RecomputeDishRating(ctx, review.DishID)
	} else {
		err = statsService.RecomputeRestaurantRating(ctx, review.RestaurantID)
	}
	if err != nil {
		ctx, logger, logErr := ectoinject.GetContext[ectologger.Logger](ctx)
		if logErr != nil {
			return
		}
		logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"review_id":     review.ID,
			"restaurant_id": review.RestaurantID,
		}).Warn("failed to recompute rating after review write")
	}
}
