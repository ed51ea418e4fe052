package models

import "time"

type DishSource string

const (
	// DishSourceDirectory marks dishes rebuilt from the primary source's menu.
	DishSourceDirectory DishSource = "directory"
	DishSourceUser      DishSource = "user"
)

type Dish struct {
	ID           string     `json:"id"`
	RestaurantID string     `json:"restaurant_id"`
	Name         string     `json:"name"`
	Description  string     `json:"description"`
	Price        float64    `json:"price"`
	Category     string     `json:"category"`
	Images       []string   `json:"images"`
	Rating       DishRating `json:"rating"`
	Source       DishSource `json:"source"`
	IsAvailable  bool       `json:"is_available"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

type DishRating struct {
	Average float64 `json:"average"`
	Total   int     `json:"total"`
}
