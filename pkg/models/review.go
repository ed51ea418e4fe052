package models

import "time"

type ReviewSource string

const (
	// ReviewSourceExternal marks reviews ingested from the secondary source.
	// These are wiped and rebuilt by the reviews sync pass.
	ReviewSourceExternal ReviewSource = "external"
	// ReviewSourceInternal marks reviews created through the API. Sync passes
	// never touch them.
	ReviewSourceInternal ReviewSource = "internal"
)

type ReviewType string

const (
	ReviewTypeRestaurant ReviewType = "restaurant"
	ReviewTypeDish       ReviewType = "dish"
)

type Review struct {
	ID             string       `json:"id"`
	RestaurantID   string       `json:"restaurant_id"`
	RestaurantName string       `json:"restaurant_name,omitempty"`
	DishID         string       `json:"dish_id,omitempty"`
	Type           ReviewType   `json:"type"`
	Source         ReviewSource `json:"source"`
	Rating         int          `json:"rating"`
	Comment        string       `json:"comment"`
	Timestamp      time.Time    `json:"timestamp"`
	Author         ReviewAuthor `json:"author"`
	// RelativeTime is the source's human description ("a month ago") for
	// external reviews.
	RelativeTime string `json:"relative_time,omitempty"`
}

type ReviewAuthor struct {
	Name         string `json:"name"`
	UserID       string `json:"user_id,omitempty"`
	ProfilePhoto string `json:"profile_photo,omitempty"`
}

// CreateReviewRequest is the API payload for an internal review.
type CreateReviewRequest struct {
	RestaurantID string `json:"restaurant_id" validate:"required"`
	DishID       string `json:"dish_id"`
	Rating       int    `json:"rating" validate:"required,min=1,max=5"`
	Comment      string `json:"comment" validate:"max=4000"`
	AuthorName   string `json:"author_name" validate:"required"`
	AuthorUserID string `json:"author_user_id"`
}
