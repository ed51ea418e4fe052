package models

import "encoding/json"

// Place is the secondary source's representation of a matched location.
type Place struct {
	PlaceID              string          `json:"place_id"`
	Name                 string          `json:"name"`
	Rating               float64         `json:"rating"`
	UserRatingsTotal     int             `json:"user_ratings_total"`
	FormattedAddress     string          `json:"formatted_address"`
	FormattedPhoneNumber string          `json:"formatted_phone_number"`
	OpeningHours         *OpeningHours   `json:"opening_hours,omitempty"`
	PriceLevel           int             `json:"price_level"`
	Website              string          `json:"website"`
	Reviews              []PlaceReview   `json:"reviews,omitempty"`
	Raw                  json.RawMessage `json:"-"`
}

type OpeningHours struct {
	OpenNow     bool     `json:"open_now"`
	WeekdayText []string `json:"weekday_text"`
}

// PlaceReview is a review attached to a place details payload. Time is unix
// seconds, as delivered by the source.
type PlaceReview struct {
	AuthorName              string `json:"author_name"`
	Rating                  int    `json:"rating"`
	Text                    string `json:"text"`
	Time                    int64  `json:"time"`
	RelativeTimeDescription string `json:"relative_time_description"`
	ProfilePhotoURL         string `json:"profile_photo_url"`
}

type FindPlaceResponse struct {
	Candidates []PlaceCandidate `json:"candidates"`
	Status     string           `json:"status"`
}

type PlaceCandidate struct {
	PlaceID string `json:"place_id"`
}

type PlaceDetailsResponse struct {
	Result *Place `json:"result"`
	Status string `json:"status"`
}
