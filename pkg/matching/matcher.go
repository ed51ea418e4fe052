// Package matching resolves primary businesses to their secondary source
// counterparts.
package matching

import (
	"context"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/normalizers"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

// SecondarySource is the slice of the places client the matcher needs.
type SecondarySource interface {
	FindPlace(ctx context.Context, query string) (placeID string, ok bool, err error)
	PlaceDetails(ctx context.Context, placeID string, fields []string) (*models.Place, error)
}

// Matcher performs the cross-source identity lookup. The secondary source
// ranks its own candidates, so the top candidate is accepted as-is; there is
// no local scoring or tie-breaking.
type Matcher struct {
	source SecondarySource
	logger ectologger.Logger
}

func NewMatcher(source SecondarySource, logger ectologger.Logger) *Matcher {
	return &Matcher{
		source: source,
		logger: logger,
	}
}

// Match returns the secondary details for a business, or (nil, nil) when the
// secondary source has no counterpart. Absence is a normal outcome, not an
// error; only transport failures return an error.
func (m *Matcher) Match(ctx context.Context, business *models.Business) (*models.Place, error) {
	ctx, span := tracing.StartSpan(ctx, "matching.Matcher.Match")
	defer span.End()

	query := BuildQuery(business)
	if query == "" {
		m.logger.WithContext(ctx).WithFields(map[string]any{
			"business_id": business.ID,
		}).Warn("business has no fields to match on")
		return nil, nil
	}

	placeID, ok, err := m.source.FindPlace(ctx, query)
	if err != nil {
		return nil, err
	}
	if !ok {
		m.logger.WithContext(ctx).WithFields(map[string]any{
			"business_id": business.ID,
			"query":       query,
		}).Debug("no secondary match")
		return nil, nil
	}

	place, err := m.source.PlaceDetails(ctx, placeID, nil)
	if err != nil {
		return nil, err
	}

	return place, nil
}

// BuildQuery assembles the normalized lookup query from the business name,
// street, and city.
func BuildQuery(business *models.Business) string {
	if business == nil {
		return ""
	}

	parts := make([]string, 0, 3)
	if name := normalizers.NormalizeName(business.Name); name != "" {
		parts = append(parts, name)
	}
	if street := normalizers.NormalizeAddress(business.Location.Address1); street != "" {
		parts = append(parts, street)
	}
	if city := normalizers.CollapseWhitespace(business.Location.City); city != "" {
		parts = append(parts, city)
	}

	return strings.Join(parts, " ")
}
