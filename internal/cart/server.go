package cart

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/nordmark/vitrine/internal/domain"
)

// ServerStore is the authoritative per-user cart, reachable only once a
// user identity is established. All writes flow through the sync
// scheduler's batches; nothing else may call ApplyBatch directly.
type ServerStore interface {
	// Fetch returns the authoritative cart. A failure means the cart state
	// is unknown; callers must not treat it as an empty cart.
	Fetch(ctx context.Context, userID string) ([]domain.CartLine, error)

	// ApplyBatch applies coalesced mutations. Each mutation with
	// TargetQuantity <= 0 is a delete; anything else is a quantity-set
	// upsert. The batch is not transactional: one failing item does not
	// abort the rest, and callers re-fetch afterward instead of trusting
	// local optimistic state.
	ApplyBatch(ctx context.Context, userID string, muts []domain.PendingMutation) (*BatchResult, error)
}

// FailedMutation records one batch item that could not be applied.
type FailedMutation struct {
	ProductID string
	Reason    string
}

// BatchResult summarizes a non-transactional batch application.
type BatchResult struct {
	Applied int
	Failed  []FailedMutation
}

// Partial reports whether some, but not all, mutations failed.
func (r *BatchResult) Partial() bool {
	return len(r.Failed) > 0 && r.Applied > 0
}

// Client implements ServerStore against the cart wire contract:
//
//	GET    /cart-item/{userID}
//	PATCH  /cart-item/update-quantity {userId, itemId, quantity}
//	DELETE /cart-item/remove          {userId, productId}
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// ClientConfig contains configuration for the cart API client.
type ClientConfig struct {
	BaseURL string
	Timeout time.Duration // defaults to 10s
	Logger  *slog.Logger  // defaults to slog.Default()
}

// NewClient creates a cart API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, domain.Invalid("cart.client", "cart API base URL is required")
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

// Fetch returns the authoritative cart for a user.
func (c *Client) Fetch(ctx context.Context, userID string) ([]domain.CartLine, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/cart-item/"+url.PathEscape(userID), nil)
	if err != nil {
		return nil, domain.Internal(err, "cart.fetch", "failed to build cart request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, domain.Network(err, "cart.fetch", "cart server unreachable")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, domain.Network(fmt.Errorf("cart server returned %d", resp.StatusCode), "cart.fetch", "cart state unknown")
	}

	var lines []domain.CartLine
	if err := json.NewDecoder(resp.Body).Decode(&lines); err != nil {
		return nil, domain.Network(err, "cart.fetch", "failed to decode cart response")
	}

	return lines, nil
}

// ApplyBatch applies each mutation independently, in order. Individual
// failures are collected in the result; the method error is reserved for
// context cancellation.
func (c *Client) ApplyBatch(ctx context.Context, userID string, muts []domain.PendingMutation) (*BatchResult, error) {
	result := &BatchResult{}

	for _, m := range muts {
		if err := ctx.Err(); err != nil {
			return result, domain.Network(err, "cart.batch", "batch interrupted")
		}

		var err error
		if m.TargetQuantity <= 0 {
			err = c.removeItem(ctx, userID, m.ProductID)
		} else {
			err = c.updateQuantity(ctx, userID, m.ProductID, m.TargetQuantity)
		}

		if err != nil {
			c.logger.Warn("cart mutation failed",
				"user_id", userID,
				"product_id", m.ProductID,
				"target_quantity", m.TargetQuantity,
				"error", err,
			)
			result.Failed = append(result.Failed, FailedMutation{ProductID: m.ProductID, Reason: err.Error()})
			continue
		}

		result.Applied++
	}

	return result, nil
}

// The update body names the product itemId; the remove body names it
// productId. The asymmetry is part of the published contract.
func (c *Client) updateQuantity(ctx context.Context, userID, productID string, quantity int32) error {
	body := map[string]any{
		"userId":   userID,
		"itemId":   productID,
		"quantity": quantity,
	}
	return c.send(ctx, http.MethodPatch, "/cart-item/update-quantity", body)
}

func (c *Client) removeItem(ctx context.Context, userID, productID string) error {
	body := map[string]any{
		"userId":    userID,
		"productId": productID,
	}
	return c.send(ctx, http.MethodDelete, "/cart-item/remove", body)
}

func (c *Client) send(ctx context.Context, method, path string, body any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cart server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("cart server returned %d", resp.StatusCode)
	}

	return nil
}
