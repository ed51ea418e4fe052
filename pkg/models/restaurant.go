package models

import (
	"encoding/json"
	"time"
)

type RestaurantStatus string

const (
	RestaurantStatusActive  RestaurantStatus = "active"
	RestaurantStatusClosed  RestaurantStatus = "closed"
	RestaurantStatusPending RestaurantStatus = "pending"
)

// Restaurant is the canonical merged record persisted to the document store.
type Restaurant struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Status       RestaurantStatus `json:"status"`
	Phone        string           `json:"phone"`
	Website      string           `json:"website"`
	Address      Address          `json:"address"`
	CategoryTags []string         `json:"category_tags"`
	Rating       Rating           `json:"rating"`
	PriceLevel   int              `json:"price_level"`
	Images       Images           `json:"images"`
	Transactions []string         `json:"transactions"`
	Hours        []string         `json:"hours,omitempty"`
	SourceIDs    SourceIDs        `json:"source_ids"`
	RawSnapshot  RawSnapshot      `json:"raw_snapshot"`
	Fingerprint  string           `json:"fingerprint"`
	SyncedAt     time.Time        `json:"synced_at"`
}

type Address struct {
	Full      string  `json:"full"`
	Street    string  `json:"street"`
	City      string  `json:"city"`
	State     string  `json:"state"`
	Zip       string  `json:"zip"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Rating carries the per-source values alongside the overall value. The
// primary source is authoritative for Overall; the secondary value is kept
// for display only. Internal is maintained by in-app review writes, never by
// sync passes.
type Rating struct {
	Overall   float64       `json:"overall"`
	Count     int           `json:"count"`
	Primary   SourceRating  `json:"primary"`
	Secondary *SourceRating `json:"secondary,omitempty"`
	Internal  *SourceRating `json:"internal,omitempty"`
}

type SourceRating struct {
	Value float64 `json:"value"`
	Count int     `json:"count"`
}

type Images struct {
	Primary string   `json:"primary"`
	Gallery []string `json:"gallery"`
}

type SourceIDs struct {
	PrimaryID   string  `json:"primary_id"`
	SecondaryID *string `json:"secondary_id,omitempty"`
}

// RawSnapshot preserves the source payloads verbatim for auditability.
type RawSnapshot struct {
	Primary   json.RawMessage `json:"primary"`
	Secondary json.RawMessage `json:"secondary,omitempty"`
}
