package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/nordmark/vitrine/internal/domain"
)

// Client implements Service against the catalog HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// ClientConfig contains configuration for the catalog client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration // defaults to 10s
	Logger  *slog.Logger  // defaults to slog.Default()
}

// NewClient creates a catalog API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		logger:  cfg.Logger,
	}, nil
}

// GetProduct returns the product with the given id.
func (c *Client) GetProduct(ctx context.Context, id string) (*Product, error) {
	if id == "" {
		return nil, domain.Invalid("catalog.get", "product id is required")
	}

	var product Product
	if err := c.getJSON(ctx, "/products/"+url.PathEscape(id), &product); err != nil {
		return nil, err
	}

	return &product, nil
}

// Search returns products matching the query within a category.
func (c *Client) Search(ctx context.Context, query, category string) ([]Product, error) {
	q := url.Values{}
	if query != "" {
		q.Set("q", query)
	}
	if category != "" {
		q.Set("category", category)
	}

	path := "/products/search"
	if encoded := q.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var products []Product
	if err := c.getJSON(ctx, path, &products); err != nil {
		return nil, err
	}

	return products, nil
}

// getJSON performs a GET and decodes the response body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return domain.Internal(err, "catalog.request", "failed to build catalog request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return domain.Network(err, "catalog.request", "catalog unreachable")
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrProductNotFound
	case resp.StatusCode >= 500:
		return domain.Network(fmt.Errorf("catalog returned %d", resp.StatusCode), "catalog.request", "catalog unavailable")
	case resp.StatusCode != http.StatusOK:
		return domain.Internal(fmt.Errorf("catalog returned %d", resp.StatusCode), "catalog.request", "unexpected catalog response")
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return domain.Internal(err, "catalog.decode", "failed to decode catalog response")
	}

	return nil
}
