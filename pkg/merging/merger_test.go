package merging

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/sage/pkg/models"
)

func testBusiness() *models.Business {
	return &models.Business{
		ID:           "gary's-place-fort-lauderdale",
		Name:         "Gary's Place",
		ImageURL:     "https://img.example.com/primary.jpg",
		URL:          "https://directory.example.com/garys-place",
		Phone:        "+19545550100",
		DisplayPhone: "(954) 555-0100",
		ReviewCount:  321,
		Rating:       4.5,
		Categories: []models.Category{
			{Alias: "seafood", Title: "Seafood"},
			{Alias: "bars", Title: "Bars"},
		},
		Coordinates: models.Coordinates{Latitude: 26.1224, Longitude: -80.1373},
		Location: models.Location{
			Address1:       "123 Las Olas Blvd",
			City:           "Fort Lauderdale",
			State:          "FL",
			ZipCode:        "33301",
			Country:        "US",
			DisplayAddress: []string{"123 Las Olas Blvd", "Fort Lauderdale, FL 33301"},
		},
		Photos:       []string{"https://img.example.com/a.jpg", "https://img.example.com/b.jpg"},
		Transactions: []string{"delivery"},
	}
}

func testPlace() *models.Place {
	return &models.Place{
		PlaceID:              "ChIJabc123",
		Name:                 "Garys Place",
		Rating:               4.2,
		UserRatingsTotal:     210,
		FormattedAddress:     "123 Las Olas Blvd, Fort Lauderdale, FL 33301, USA",
		FormattedPhoneNumber: "(954) 555-0199",
		OpeningHours: &models.OpeningHours{
			WeekdayText: []string{"Monday: 11:00 AM - 10:00 PM"},
		},
		PriceLevel: 2,
		Website:    "https://garysplace.example.com",
	}
}

func TestMergePrimaryAuthoritative(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	record, err := Merge(testBusiness(), testPlace(), now)
	require.NoError(t, err)

	assert.Equal(t, "gary's-place-fort-lauderdale", record.ID)
	assert.Equal(t, "Gary's Place", record.Name)
	assert.Equal(t, models.RestaurantStatusActive, record.Status)

	// primary wins wherever it has a value
	assert.Equal(t, "(954) 555-0100", record.Phone)
	assert.Equal(t, "https://directory.example.com/garys-place", record.Website)
	assert.Equal(t, "123 Las Olas Blvd, Fort Lauderdale, FL 33301", record.Address.Full)
	assert.Equal(t, "https://img.example.com/primary.jpg", record.Images.Primary)
	assert.Equal(t, []string{"Seafood", "Bars"}, record.CategoryTags)
	assert.Equal(t, 4.5, record.Rating.Overall)
	assert.Equal(t, 321, record.Rating.Count)

	// secondary fills what the primary lacks
	assert.Equal(t, 2, record.PriceLevel)
	assert.Equal(t, []string{"Monday: 11:00 AM - 10:00 PM"}, record.Hours)
	require.NotNil(t, record.Rating.Secondary)
	assert.Equal(t, 4.2, record.Rating.Secondary.Value)
	assert.Equal(t, 210, record.Rating.Secondary.Count)

	require.NotNil(t, record.SourceIDs.SecondaryID)
	assert.Equal(t, "ChIJabc123", *record.SourceIDs.SecondaryID)
	assert.Equal(t, now, record.SyncedAt)
	assert.NotEmpty(t, record.Fingerprint)
}

func TestMergeSecondaryFillsGaps(t *testing.T) {
	business := testBusiness()
	business.Phone = ""
	business.DisplayPhone = ""
	business.URL = ""
	business.Location.DisplayAddress = nil

	record, err := Merge(business, testPlace(), time.Now())
	require.NoError(t, err)

	assert.Equal(t, "(954) 555-0199", record.Phone)
	assert.Equal(t, "https://garysplace.example.com", record.Website)
	assert.Equal(t, "123 Las Olas Blvd, Fort Lauderdale, FL 33301, USA", record.Address.Full)
}

func TestMergeSecondaryFillsName(t *testing.T) {
	business := testBusiness()
	business.Name = ""
	business.Phone = "555"
	business.DisplayPhone = ""

	place := testPlace()
	place.Name = "Joe's"

	record, err := Merge(business, place, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "Joe's", record.Name)
	assert.Equal(t, "555", record.Phone)
}

func TestMergeWithoutSecondary(t *testing.T) {
	record, err := Merge(testBusiness(), nil, time.Now())
	require.NoError(t, err)

	assert.Nil(t, record.SourceIDs.SecondaryID)
	assert.Nil(t, record.Rating.Secondary)
	assert.Empty(t, record.Hours)
	assert.Zero(t, record.PriceLevel)
	assert.Empty(t, record.RawSnapshot.Secondary)
}

func TestMergeClosedBusiness(t *testing.T) {
	business := testBusiness()
	business.IsClosed = true

	record, err := Merge(business, nil, time.Now())
	require.NoError(t, err)

	assert.Equal(t, models.RestaurantStatusClosed, record.Status)
}

func TestMergeImageFallsBackToGallery(t *testing.T) {
	business := testBusiness()
	business.ImageURL = ""

	record, err := Merge(business, nil, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "https://img.example.com/a.jpg", record.Images.Primary)
}

func TestMergeDeterministic(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	first, err := Merge(testBusiness(), testPlace(), now)
	require.NoError(t, err)
	second, err := Merge(testBusiness(), testPlace(), now)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, first.Fingerprint, second.Fingerprint)
}

func TestMergeFingerprintTracksContent(t *testing.T) {
	now := time.Now()

	base, err := Merge(testBusiness(), testPlace(), now)
	require.NoError(t, err)

	changed := testBusiness()
	changed.Rating = 3.0
	other, err := Merge(changed, testPlace(), now)
	require.NoError(t, err)

	assert.NotEqual(t, base.Fingerprint, other.Fingerprint)
}

func TestMergeRejectsMalformedPrimary(t *testing.T) {
	tests := []struct {
		name     string
		business *models.Business
	}{
		{name: "nil payload", business: nil},
		{name: "missing id", business: &models.Business{Name: "No ID"}},
		{name: "no name in either source", business: &models.Business{ID: "no-name"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Merge(tt.business, nil, time.Now())
			assert.Error(t, err)
		})
	}
}

func TestMergeNormalizesID(t *testing.T) {
	business := testBusiness()
	business.ID = "weird.id#with$bad[chars]/and spaces"

	record, err := Merge(business, nil, time.Now())
	require.NoError(t, err)

	assert.Equal(t, "weird_id_with_bad_chars__and_spaces", record.ID)
}
