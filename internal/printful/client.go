// Package printful is a thin client for the Printful v2 API, used to
// reconcile print-on-demand order state. Auth is a Bearer token and
// pagination is limit/offset.
package printful

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"ordersync/internal/retry"
)

var transientPolicy = retry.Policy{
	MaxAttempts: 3,
	BaseDelay:   500 * time.Millisecond,
	MaxDelay:    5 * time.Second,
}

func isTransient(err error) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode >= 500
}

const defaultBaseURL = "https://api.printful.com"

type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("printful: status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	token      string
	storeID    int
	baseURL    string
	httpClient *http.Client

	maxRetryAfter time.Duration
}

// NewClient builds a client scoped to one store; storeID 0 omits the
// X-PF-Store-Id header for single-store tokens.
func NewClient(token string, storeID int, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		token:         token,
		storeID:       storeID,
		baseURL:       defaultBaseURL,
		httpClient:    httpClient,
		maxRetryAfter: 90 * time.Second,
	}
}

type paging struct {
	Total  int `json:"total"`
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

type Order struct {
	ID         int64  `json:"id"`
	ExternalID string `json:"external_id"`
	Status     string `json:"status"`
	CreatedAt  string `json:"created_at"`
	UpdatedAt  string `json:"updated_at"`
}

type CatalogProduct struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Type  string `json:"type"`
	Brand string `json:"brand"`
}

type WarehouseProduct struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

type ordersEnvelope struct {
	Data   []Order `json:"data"`
	Paging paging  `json:"paging"`
}

type orderEnvelope struct {
	Data Order `json:"data"`
}

type catalogProductsEnvelope struct {
	Data   []CatalogProduct `json:"data"`
	Paging paging           `json:"paging"`
}

type warehouseProductsEnvelope struct {
	Data   []WarehouseProduct `json:"data"`
	Paging paging             `json:"paging"`
}

// ListOrders pages through /v2/orders filtered by status (empty for all).
func (c *Client) ListOrders(ctx context.Context, status string) ([]Order, error) {
	var all []Order
	offset := 0
	for {
		q := url.Values{}
		q.Set("limit", "100")
		q.Set("offset", strconv.Itoa(offset))
		if status != "" {
			q.Set("status", status)
		}

		var env ordersEnvelope
		if err := c.get(ctx, "/v2/orders", q, &env); err != nil {
			return nil, fmt.Errorf("list orders offset %d: %w", offset, err)
		}

		all = append(all, env.Data...)
		offset += len(env.Data)
		if len(env.Data) == 0 || offset >= env.Paging.Total {
			break
		}
	}
	return all, nil
}

// GetOrder accepts either a Printful id or "@<external_id>".
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	var env orderEnvelope
	if err := c.get(ctx, "/v2/orders/"+url.PathEscape(id), nil, &env); err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return &env.Data, nil
}

// ListCatalogProducts pages through the whole /v2/catalog-products listing.
func (c *Client) ListCatalogProducts(ctx context.Context) ([]CatalogProduct, error) {
	var all []CatalogProduct
	offset := 0
	for {
		q := url.Values{}
		q.Set("limit", "100")
		q.Set("offset", strconv.Itoa(offset))

		var env catalogProductsEnvelope
		if err := c.get(ctx, "/v2/catalog-products", q, &env); err != nil {
			return nil, fmt.Errorf("list catalog products offset %d: %w", offset, err)
		}

		all = append(all, env.Data...)
		offset += len(env.Data)
		if len(env.Data) == 0 || offset >= env.Paging.Total {
			break
		}
	}
	return all, nil
}

// ListWarehouseProducts pages through /v2/warehouse-products for the
// store. The endpoint caps pages at 20 items.
func (c *Client) ListWarehouseProducts(ctx context.Context) ([]WarehouseProduct, error) {
	var all []WarehouseProduct
	offset := 0
	for {
		q := url.Values{}
		q.Set("limit", "20")
		q.Set("offset", strconv.Itoa(offset))

		var env warehouseProductsEnvelope
		if err := c.get(ctx, "/v2/warehouse-products", q, &env); err != nil {
			return nil, fmt.Errorf("list warehouse products offset %d: %w", offset, err)
		}

		all = append(all, env.Data...)
		offset += len(env.Data)
		if len(env.Data) == 0 || offset >= env.Paging.Total {
			break
		}
	}
	return all, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	return retry.Do(ctx, transientPolicy, isTransient, func(ctx context.Context) error {
		return c.getOnce(ctx, path, q, out)
	})
}

func (c *Client) getOnce(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		req.Header.Set("Content-Type", "application/json")
		if c.storeID != 0 {
			req.Header.Set("X-PF-Store-Id", strconv.Itoa(c.storeID))
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("do request: %w", err)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			wait := retryAfter(resp, c.maxRetryAfter)
			io.Copy(io.Discard, resp.Body)
			resp.Body.Close()
			if err := sleepCtx(ctx, wait); err != nil {
				return err
			}
			continue
		}

		body, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(body))}
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
		return nil
	}
}

func retryAfter(resp *http.Response, max time.Duration) time.Duration {
	wait := 60 * time.Second
	if v := resp.Header.Get("Retry-After"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			wait = time.Duration(n) * time.Second
		}
	}
	if wait > max {
		wait = max
	}
	return wait
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
