package shopify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	pageSize       = 250
	interPageDelay = 500 * time.Millisecond
)

// StatusError is returned for any non-2xx Admin API response. The whole
// fetch aborts on it; the scheduler retries on the next invocation.
type StatusError struct {
	StatusCode int
	Status     string
	Body       string
}

func (e *StatusError) Error() string {
	if strings.TrimSpace(e.Body) == "" {
		return fmt.Sprintf("shopify request failed: %s", e.Status)
	}
	return fmt.Sprintf("shopify request failed: %s: %s", e.Status, e.Body)
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Window bounds an order fetch by creation time. Zero values are omitted
// from the query.
type Window struct {
	CreatedAtMin string
	CreatedAtMax string
}

// LastDay is the default window for scheduled runs.
func LastDay(now time.Time) Window {
	return Window{CreatedAtMin: now.Add(-24 * time.Hour).UTC().Format(time.RFC3339)}
}

type Client struct {
	domain     string
	token      string
	apiVersion string
	httpClient *http.Client

	// pause between Link-header pages; overridable in tests.
	pageDelay time.Duration

	// overridable in tests
	baseURL string
}

func NewClient(domain, token, apiVersion string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		domain:     domain,
		token:      token,
		apiVersion: apiVersion,
		httpClient: httpClient,
		pageDelay:  interPageDelay,
		baseURL:    "https://" + domain,
	}
}

type ordersEnvelope struct {
	Orders []Order `json:"orders"`
}

type orderEnvelope struct {
	Order *Order `json:"order"`
}

// ListOrders returns every order created inside the window, newest first,
// following the Link header until no rel="next" remains. Any non-2xx
// response aborts the whole fetch; no partial result is returned.
func (c *Client) ListOrders(ctx context.Context, w Window) ([]Order, error) {
	q := url.Values{}
	q.Set("status", "any")
	q.Set("limit", fmt.Sprintf("%d", pageSize))
	q.Set("order", "created_at desc")
	if w.CreatedAtMin != "" {
		q.Set("created_at_min", w.CreatedAtMin)
	}
	if w.CreatedAtMax != "" {
		q.Set("created_at_max", w.CreatedAtMax)
	}

	endpoint := fmt.Sprintf("%s/admin/api/%s/orders.json?%s", c.baseURL, c.apiVersion, q.Encode())

	var all []Order
	for page := 1; endpoint != ""; page++ {
		if page > 1 {
			if err := sleepCtx(ctx, c.pageDelay); err != nil {
				return nil, err
			}
		}

		var env ordersEnvelope
		next, err := c.getPaged(ctx, endpoint, &env)
		if err != nil {
			return nil, fmt.Errorf("list orders page %d: %w", page, err)
		}
		all = append(all, env.Orders...)
		endpoint = next
	}
	return all, nil
}

// GetOrder fetches one order by its numeric id.
func (c *Client) GetOrder(ctx context.Context, id int64) (*Order, error) {
	endpoint := fmt.Sprintf("%s/admin/api/%s/orders/%d.json", c.baseURL, c.apiVersion, id)

	var env orderEnvelope
	if _, err := c.getPaged(ctx, endpoint, &env); err != nil {
		return nil, fmt.Errorf("get order %d: %w", id, err)
	}
	if env.Order == nil {
		return nil, fmt.Errorf("get order %d: empty response", id)
	}
	return env.Order, nil
}

// GetOrderByName looks an order up by its human-readable number, with or
// without the leading "#".
func (c *Client) GetOrderByName(ctx context.Context, name string) (*Order, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(name), "#", "")
	q := url.Values{}
	q.Set("name", clean)
	q.Set("status", "any")

	endpoint := fmt.Sprintf("%s/admin/api/%s/orders.json?%s", c.baseURL, c.apiVersion, q.Encode())

	var env ordersEnvelope
	if _, err := c.getPaged(ctx, endpoint, &env); err != nil {
		return nil, fmt.Errorf("get order %s: %w", name, err)
	}
	if len(env.Orders) == 0 {
		return nil, nil
	}
	return &env.Orders[0], nil
}

// getPaged issues one authenticated GET, decodes into out, and returns the
// rel="next" URL from the Link header when present.
func (c *Client) getPaged(ctx context.Context, endpoint string, out any) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("X-Shopify-Access-Token", c.token)
	req.Header.Set("Content-Type", "application/json")

	res, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return "", err
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return "", &StatusError{StatusCode: res.StatusCode, Status: res.Status, Body: strings.TrimSpace(string(raw))}
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}

	return nextLink(res.Header.Get("Link")), nil
}

// nextLink extracts the rel="next" URL from a Link header, or "".
// Format: <https://...>; rel="previous", <https://...>; rel="next"
func nextLink(header string) string {
	for _, part := range strings.Split(header, ",") {
		if !strings.Contains(part, `rel="next"`) {
			continue
		}
		seg := strings.SplitN(part, ";", 2)[0]
		return strings.Trim(strings.TrimSpace(seg), "<> ")
	}
	return ""
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
