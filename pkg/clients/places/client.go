// Package places is the client for the secondary places/geo API.
package places

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/httpclient"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/ratelimit"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

const (
	statusOK          = "OK"
	statusZeroResults = "ZERO_RESULTS"
)

// DetailFields is the default field mask requested on place details.
var DetailFields = []string{
	"place_id",
	"name",
	"rating",
	"user_ratings_total",
	"formatted_address",
	"formatted_phone_number",
	"opening_hours",
	"price_level",
	"website",
	"reviews",
}

type Config struct {
	BaseURL string
	APIKey  string
}

// Client calls the places API through the shared HTTP client behind a rate
// gate, mirroring the directory client.
type Client struct {
	http   *httpclient.Client
	gate   *ratelimit.Gate
	cfg    Config
	logger ectologger.Logger
}

func NewClient(cfg Config, http *httpclient.Client, gate *ratelimit.Gate, logger ectologger.Logger) *Client {
	return &Client{
		http:   http,
		gate:   gate,
		cfg:    cfg,
		logger: logger,
	}
}

// FindPlace resolves a free-text query to the source's best candidate place
// id. Zero candidates is a normal outcome, reported with ok=false.
func (c *Client) FindPlace(ctx context.Context, query string) (string, bool, error) {
	ctx, span := tracing.StartSpan(ctx, "places.Client.FindPlace")
	defer span.End()

	if err := c.gate.Wait(ctx); err != nil {
		return "", false, err
	}

	params := url.Values{}
	params.Set("input", query)
	params.Set("inputtype", "textquery")
	params.Set("fields", "place_id")
	params.Set("key", c.cfg.APIKey)

	endpoint := fmt.Sprintf("%s/place/findplacefromtext/json?%s", c.cfg.BaseURL, params.Encode())

	var result models.FindPlaceResponse
	if _, err := c.http.GetJSON(ctx, endpoint, nil, &result); err != nil {
		return "", false, fmt.Errorf("find place lookup failed: %w", err)
	}

	if result.Status == statusZeroResults || len(result.Candidates) == 0 {
		c.logger.WithContext(ctx).WithFields(map[string]any{
			"query": query,
		}).Debug("no place candidates")
		return "", false, nil
	}
	if result.Status != statusOK {
		return "", false, fmt.Errorf("find place lookup returned status %s", result.Status)
	}

	// The source orders candidates by its own match confidence; trust the
	// first one.
	return result.Candidates[0].PlaceID, true, nil
}

// PlaceDetails fetches the requested fields for a place, preserving the raw
// result payload for the audit snapshot.
func (c *Client) PlaceDetails(ctx context.Context, placeID string, fields []string) (*models.Place, error) {
	ctx, span := tracing.StartSpan(ctx, "places.Client.PlaceDetails")
	defer span.End()

	if err := c.gate.Wait(ctx); err != nil {
		return nil, err
	}

	if len(fields) == 0 {
		fields = DetailFields
	}

	params := url.Values{}
	params.Set("place_id", placeID)
	params.Set("fields", strings.Join(fields, ","))
	params.Set("key", c.cfg.APIKey)

	endpoint := fmt.Sprintf("%s/place/details/json?%s", c.cfg.BaseURL, params.Encode())

	var envelope struct {
		Result json.RawMessage `json:"result"`
		Status string          `json:"status"`
	}
	if _, err := c.http.GetJSON(ctx, endpoint, nil, &envelope); err != nil {
		return nil, fmt.Errorf("place details fetch for %s failed: %w", placeID, err)
	}
	if envelope.Status != statusOK {
		return nil, fmt.Errorf("place details for %s returned status %s", placeID, envelope.Status)
	}

	var place models.Place
	if err := json.Unmarshal(envelope.Result, &place); err != nil {
		return nil, fmt.Errorf("failed to decode place details for %s: %w", placeID, err)
	}
	place.Raw = envelope.Result
	if place.PlaceID == "" {
		place.PlaceID = placeID
	}

	return &place, nil
}
