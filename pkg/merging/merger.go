// Package merging folds a primary business payload and an optional secondary
// place payload into one canonical restaurant record. Merge is pure: the same
// inputs always produce the same record, so repeated syncs are idempotent.
package merging

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/Ramsey-B/sage/pkg/fingerprint"
	"github.com/Ramsey-B/sage/pkg/identifier"
	"github.com/Ramsey-B/sage/pkg/models"
)

// Merge builds the canonical record. The primary source is authoritative for
// identity, address, categories, images, and the overall rating; the
// secondary source only fills fields the primary lacks (name, hours, website,
// price level, its own rating). A nil secondary is a normal outcome and
// yields a record with primary data and empty defaults.
func Merge(primary *models.Business, secondary *models.Place, now time.Time) (*models.Restaurant, error) {
	if primary == nil {
		return nil, fmt.Errorf("primary payload is nil")
	}
	if primary.ID == "" {
		return nil, fmt.Errorf("primary payload is missing an id")
	}

	status := models.RestaurantStatusActive
	if primary.IsClosed {
		status = models.RestaurantStatusClosed
	}

	var secondaryName, secondaryPhone, secondaryWebsite, secondaryAddress string
	var hours []string
	priceLevel := 0
	if secondary != nil {
		secondaryName = secondary.Name
		secondaryPhone = secondary.FormattedPhoneNumber
		secondaryWebsite = secondary.Website
		secondaryAddress = secondary.FormattedAddress
		priceLevel = secondary.PriceLevel
		if secondary.OpeningHours != nil {
			hours = secondary.OpeningHours.WeekdayText
		}
	}

	name := preferNonEmpty(primary.Name, secondaryName)
	if name == "" {
		return nil, fmt.Errorf("payload %s has no name in either source", primary.ID)
	}

	tags := make([]string, 0, len(primary.Categories))
	for _, c := range primary.Categories {
		tags = append(tags, c.Title)
	}

	rating := models.Rating{
		Overall: primary.Rating,
		Count:   primary.ReviewCount,
		Primary: models.SourceRating{
			Value: primary.Rating,
			Count: primary.ReviewCount,
		},
	}

	sourceIDs := models.SourceIDs{PrimaryID: primary.ID}
	if secondary != nil {
		rating.Secondary = &models.SourceRating{
			Value: secondary.Rating,
			Count: secondary.UserRatingsTotal,
		}
		placeID := secondary.PlaceID
		sourceIDs.SecondaryID = &placeID
	}

	snapshot, err := buildSnapshot(primary, secondary)
	if err != nil {
		return nil, fmt.Errorf("failed to build raw snapshot for %s: %w", primary.ID, err)
	}

	fp, err := snapshotFingerprint(snapshot)
	if err != nil {
		return nil, fmt.Errorf("failed to fingerprint %s: %w", primary.ID, err)
	}

	record := &models.Restaurant{
		ID:      identifier.RestaurantID(primary.ID),
		Name:    name,
		Status:  status,
		Phone:   preferNonEmpty(primary.DisplayPhone, primary.Phone, secondaryPhone),
		Website: preferNonEmpty(primary.URL, secondaryWebsite),
		Address: models.Address{
			Full:      preferNonEmpty(strings.Join(primary.Location.DisplayAddress, ", "), secondaryAddress),
			Street:    primary.Location.Address1,
			City:      primary.Location.City,
			State:     primary.Location.State,
			Zip:       primary.Location.ZipCode,
			Country:   primary.Location.Country,
			Latitude:  primary.Coordinates.Latitude,
			Longitude: primary.Coordinates.Longitude,
		},
		CategoryTags: tags,
		Rating:       rating,
		PriceLevel:   priceLevel,
		Images: models.Images{
			Primary: preferNonEmpty(primary.ImageURL, firstOf(primary.Photos)),
			Gallery: primary.Photos,
		},
		Transactions: primary.Transactions,
		Hours:        hours,
		SourceIDs:    sourceIDs,
		RawSnapshot:  snapshot,
		Fingerprint:  fp,
		SyncedAt:     now.UTC(),
	}

	return record, nil
}

// buildSnapshot preserves the raw source payloads. When a client did not
// capture the wire bytes, the decoded struct is re-encoded instead, which is
// still deterministic for identical inputs.
func buildSnapshot(primary *models.Business, secondary *models.Place) (models.RawSnapshot, error) {
	snapshot := models.RawSnapshot{}

	if len(primary.Raw) > 0 {
		snapshot.Primary = primary.Raw
	} else {
		b, err := json.Marshal(primary)
		if err != nil {
			return snapshot, err
		}
		snapshot.Primary = b
	}

	if secondary != nil {
		if len(secondary.Raw) > 0 {
			snapshot.Secondary = secondary.Raw
		} else {
			b, err := json.Marshal(secondary)
			if err != nil {
				return snapshot, err
			}
			snapshot.Secondary = b
		}
	}

	return snapshot, nil
}

func snapshotFingerprint(snapshot models.RawSnapshot) (string, error) {
	data := map[string]any{}

	var primary any
	if err := json.Unmarshal(snapshot.Primary, &primary); err != nil {
		return "", err
	}
	data["primary"] = primary

	if len(snapshot.Secondary) > 0 {
		var secondary any
		if err := json.Unmarshal(snapshot.Secondary, &secondary); err != nil {
			return "", err
		}
		data["secondary"] = secondary
	}

	return fingerprint.Generate(data), nil
}

// preferNonEmpty returns the first non-empty value
func preferNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstOf(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
