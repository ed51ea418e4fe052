// Package directory is the client for the primary business-directory API.
package directory

import (
	"context"
	"fmt"
	"net/url"
	"strconv"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/sage/pkg/httpclient"
	"github.com/Ramsey-B/sage/pkg/models"
	"github.com/Ramsey-B/sage/pkg/ratelimit"
	"github.com/Ramsey-B/sage/pkg/tracing"
)

type Config struct {
	BaseURL string
	APIKey  string
}

// Client calls the directory API through the shared HTTP client. Every call
// passes the rate gate first, so requests are serialized at the configured
// minimum interval regardless of outcome.
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

// Search returns one page of business summaries for the location and term.
// An empty page means pagination is exhausted.
func (c *Client) Search(ctx context.Context, location, term string, radius, limit, offset int) (*models.BusinessSearchPage, error) {
	ctx, span := tracing.StartSpan(ctx, "directory.Client.Search")
	defer span.End()

	if err := c.gate.Wait(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("location", location)
	query.Set("term", term)
	query.Set("radius", strconv.Itoa(radius))
	query.Set("limit", strconv.Itoa(limit))
	query.Set("offset", strconv.Itoa(offset))

	endpoint := fmt.Sprintf("%s/businesses/search?%s", c.cfg.BaseURL, query.Encode())

	var page models.BusinessSearchPage
	if _, err := c.http.GetJSON(ctx, endpoint, c.headers(), &page); err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"offset": offset,
			"limit":  limit,
		}).Error("business search failed")
		return nil, fmt.Errorf("business search at offset %d failed: %w", offset, err)
	}

	c.logger.WithContext(ctx).WithFields(map[string]any{
		"offset":   offset,
		"returned": len(page.Businesses),
		"total":    page.Total,
	}).Debug("fetched business search page")

	return &page, nil
}

// GetBusiness returns the detail payload for one business, preserving the
// raw body for the audit snapshot.
func (c *Client) GetBusiness(ctx context.Context, id string) (*models.Business, error) {
	ctx, span := tracing.StartSpan(ctx, "directory.Client.GetBusiness")
	defer span.End()

	if err := c.gate.Wait(ctx); err != nil {
		return nil, err
	}

	endpoint := fmt.Sprintf("%s/businesses/%s", c.cfg.BaseURL, url.PathEscape(id))

	var business models.Business
	resp, err := c.http.GetJSON(ctx, endpoint, c.headers(), &business)
	if err != nil {
		c.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"business_id": id,
		}).Error("business detail fetch failed")
		return nil, fmt.Errorf("business detail fetch for %s failed: %w", id, err)
	}
	business.Raw = resp.Body

	return &business, nil
}

func (c *Client) headers() map[string]string {
	return map[string]string{
		"Authorization": "Bearer " + c.cfg.APIKey,
		"Accept":        "application/json",
	}
}
