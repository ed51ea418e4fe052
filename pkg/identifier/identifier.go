// Package identifier assigns deterministic document ids so repeated sync
// passes overwrite records instead of duplicating them.
package identifier

import (
	"fmt"
	"strings"
	"unicode"
)

// RestaurantID returns the storage id for a restaurant. The primary source's
// external id is the identity of the record.
func RestaurantID(primaryID string) string {
	return NormalizeKey(primaryID)
}

// ExternalReviewID derives a stable id for an ingested review from its parent
// record, source timestamp, and author name. Re-ingesting the same review
// yields the same id; a same-author-same-timestamp collision overwrites,
// which keeps re-syncs idempotent.
func ExternalReviewID(parentID string, sourceTimestamp int64, authorName string) string {
	return NormalizeKey(fmt.Sprintf("%s_%d_%s", parentID, sourceTimestamp, authorName))
}

// DishID derives a stable id for a dish from its parent restaurant and the
// source menu item id.
func DishID(restaurantID, itemID string) string {
	return NormalizeKey(fmt.Sprintf("%s_%s", restaurantID, itemID))
}

// NormalizeKey replaces characters that are unsafe in document ids
// (path and query separators, and whitespace) with underscores.
func NormalizeKey(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for _, r := range s {
		switch {
		case r == '.' || r == '#' || r == '$' || r == '[' || r == ']' || r == '/':
			sb.WriteRune('_')
		case unicode.IsSpace(r):
			sb.WriteRune('_')
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}
