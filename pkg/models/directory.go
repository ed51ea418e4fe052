package models

import "encoding/json"

// Business is the primary source's representation of a restaurant. Only the
// fields the pipeline consumes are decoded; the full payload is preserved on
// Raw for the audit snapshot.
type Business struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	ImageURL     string          `json:"image_url"`
	IsClosed     bool            `json:"is_closed"`
	URL          string          `json:"url"`
	Phone        string          `json:"phone"`
	DisplayPhone string          `json:"display_phone"`
	ReviewCount  int             `json:"review_count"`
	Rating       float64         `json:"rating"`
	Categories   []Category      `json:"categories"`
	Coordinates  Coordinates     `json:"coordinates"`
	Location     Location        `json:"location"`
	Photos       []string        `json:"photos"`
	Transactions []string        `json:"transactions"`
	MenuItems    []MenuItem      `json:"menu_items"`
	Raw          json.RawMessage `json:"-"`
}

type Category struct {
	Alias string `json:"alias"`
	Title string `json:"title"`
}

type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

type Location struct {
	Address1       string   `json:"address1"`
	Address2       string   `json:"address2"`
	Address3       string   `json:"address3"`
	City           string   `json:"city"`
	State          string   `json:"state"`
	ZipCode        string   `json:"zip_code"`
	Country        string   `json:"country"`
	DisplayAddress []string `json:"display_address"`
}

// MenuItem is a menu entry on the business detail payload.
type MenuItem struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Price       float64  `json:"price"`
	Category    string   `json:"category"`
	Photos      []string `json:"photos"`
}

// BusinessSearchPage is one page of paginated search results.
type BusinessSearchPage struct {
	Businesses []Business `json:"businesses"`
	Total      int        `json:"total"`
}
