// Package amplifier is a thin client for the Amplifier fulfillment API,
// used to cross-check warehouse inventory and order state against the
// store. Auth is HTTP Basic with the API key as the username.
package amplifier

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

const defaultBaseURL = "https://api.amplifier.com"

type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("amplifier: status %d: %s", e.StatusCode, e.Body)
}

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client

	// sleep ceiling when the API asks us to back off
	maxRetryAfter time.Duration
}

func NewClient(apiKey string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		apiKey:        apiKey,
		baseURL:       defaultBaseURL,
		httpClient:    httpClient,
		maxRetryAfter: 90 * time.Second,
	}
}

// Item is one warehouse SKU.
type Item struct {
	ID           string `json:"id"`
	SKU          string `json:"sku"`
	Name         string `json:"name"`
	Quantity     int    `json:"quantity"`
	Discontinued bool   `json:"discontinued"`
}

type itemsResponse struct {
	Items []Item `json:"items"`
	Total int    `json:"total"`
}

// Order is an Amplifier-side fulfillment order.
type Order struct {
	ID        string `json:"id"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	Reference string `json:"reference"`
}

type ordersResponse struct {
	Orders []Order `json:"orders"`
	Total  int     `json:"total"`
}

// ListItems pages through /items/ with the given SKU filter (empty for
// all) and returns every item.
func (c *Client) ListItems(ctx context.Context, sku string) ([]Item, error) {
	var all []Item
	page := 1
	for {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("per_page", "100")
		if sku != "" {
			q.Set("sku", sku)
		}

		var resp itemsResponse
		if err := c.get(ctx, "/items/", q, &resp); err != nil {
			return nil, fmt.Errorf("list items page %d: %w", page, err)
		}

		all = append(all, resp.Items...)
		if len(resp.Items) == 0 || len(all) >= resp.Total {
			break
		}
		page++
	}
	return all, nil
}

// ListOrders pages through /orders filtered by status (empty for all).
func (c *Client) ListOrders(ctx context.Context, status string) ([]Order, error) {
	var all []Order
	page := 1
	for {
		q := url.Values{}
		q.Set("page", strconv.Itoa(page))
		q.Set("limit", "100")
		if status != "" {
			q.Set("status", status)
		}

		var resp ordersResponse
		if err := c.get(ctx, "/orders", q, &resp); err != nil {
			return nil, fmt.Errorf("list orders page %d: %w", page, err)
		}

		all = append(all, resp.Orders...)
		if len(resp.Orders) == 0 || len(all) >= resp.Total {
			break
		}
		page++
	}
	return all, nil
}

// GetOrder fetches one fulfillment order by id.
func (c *Client) GetOrder(ctx context.Context, id string) (*Order, error) {
	var out Order
	if err := c.get(ctx, "/orders/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get order %s: %w", id, err)
	}
	return &out, nil
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
		req.SetBasicAuth(c.apiKey, "")
		req.Header.Set("Content-Type", "application/json")

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
