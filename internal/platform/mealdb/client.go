package mealdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"mealbrowser/internal/meal"
	"mealbrowser/internal/metrics"
)

// DefaultBaseURL is the public TheMealDB v1 API using the shared test key.
const DefaultBaseURL = "https://www.themealdb.com/api/json/v1/1"

// ErrUnexpectedStatus is returned when TheMealDB answers with a non-200 status.
var ErrUnexpectedStatus = errors.New("unexpected status from mealdb")

// Client represents a client for TheMealDB list endpoints.
type Client struct {
	httpClient *http.Client
	baseURL    string
	logger     *zap.Logger
}

// NewClient creates a new client for TheMealDB.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		logger:     logger,
	}
}

// FilterByArea lists the meals filed under a cuisine.
func (c *Client) FilterByArea(ctx context.Context, area meal.Area) ([]meal.Meal, error) {
	return c.list(ctx, "filter.php", url.Values{"a": {area.String()}})
}

// SearchByName lists the meals whose name matches query.
func (c *Client) SearchByName(ctx context.Context, query string) ([]meal.Meal, error) {
	return c.list(ctx, "search.php", url.Values{"s": {query}})
}

func (c *Client) list(ctx context.Context, endpoint string, params url.Values) (meals []meal.Meal, err error) {
	start := time.Now()
	defer func() {
		metrics.ObserveUpstream(endpoint, err, time.Since(start))
	}()

	reqURL := c.baseURL + "/" + endpoint + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %d from %s", ErrUnexpectedStatus, resp.StatusCode, endpoint)
	}

	var body meal.Response
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("failed to decode response body: %w", err)
	}

	c.logger.Debug("mealdb response",
		zap.String("endpoint", endpoint),
		zap.String("query", params.Encode()),
		zap.Int("meals", len(body.Meals)))

	return body.Meals, nil
}
