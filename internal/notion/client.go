package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	apiVersion     = "2025-09-03"
)

// APIError carries the structured error body Notion returns alongside a
// non-2xx status.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("notion request failed: %d %s: %s", e.Status, e.Code, e.Message)
}

// IsConflict reports an optimistic-concurrency failure: the page was
// modified since it was last read (usually a human editing it live).
func IsConflict(err error) bool {
	var ae *APIError
	if !errors.As(err, &ae) {
		return false
	}
	return ae.Status == http.StatusConflict || ae.Code == "conflict_error"
}

type Client struct {
	token      string
	httpClient *http.Client

	// overridable in tests
	baseURL string
}

func NewClient(token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{token: token, httpClient: httpClient, baseURL: defaultBaseURL}
}

type databaseEnvelope struct {
	DataSources []struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"data_sources"`
}

// ResolveDataSourceID resolves the data source backing a database. Called
// once per run; the id is passed explicitly to every query afterwards.
func (c *Client) ResolveDataSourceID(ctx context.Context, databaseID string) (string, error) {
	var env databaseEnvelope
	if err := c.do(ctx, http.MethodGet, "/databases/"+databaseID, nil, &env); err != nil {
		return "", fmt.Errorf("resolve data source for %s: %w", databaseID, err)
	}
	if len(env.DataSources) == 0 {
		return "", fmt.Errorf("database %s has no data sources", databaseID)
	}
	return env.DataSources[0].ID, nil
}

type queryRequest struct {
	Filter      map[string]any   `json:"filter,omitempty"`
	Sorts       []map[string]any `json:"sorts,omitempty"`
	StartCursor string           `json:"start_cursor,omitempty"`
	PageSize    int              `json:"page_size,omitempty"`
}

type queryResponse struct {
	Results    []Page `json:"results"`
	NextCursor string `json:"next_cursor"`
	HasMore    bool   `json:"has_more"`
}

// QueryByOrderNumber is the hot-path point lookup: at most one page has
// the given order id.
func (c *Client) QueryByOrderNumber(ctx context.Context, dataSourceID string, orderID int64, idProperty string) (*Page, error) {
	req := queryRequest{
		Filter: map[string]any{
			"property": idProperty,
			"number":   map[string]any{"equals": orderID},
		},
		PageSize: 1,
	}

	var res queryResponse
	if err := c.do(ctx, http.MethodPost, "/data_sources/"+dataSourceID+"/query", req, &res); err != nil {
		return nil, fmt.Errorf("query order %d: %w", orderID, err)
	}
	if len(res.Results) == 0 {
		return nil, nil
	}
	return &res.Results[0], nil
}

// QueryPage returns one page (up to 100 records) of the data source,
// newest date first, plus the cursor for the next page.
func (c *Client) QueryPage(ctx context.Context, dataSourceID, cursor, dateProperty string) ([]Page, string, error) {
	req := queryRequest{
		Sorts: []map[string]any{
			{"property": dateProperty, "direction": "descending"},
		},
		StartCursor: cursor,
		PageSize:    100,
	}

	var res queryResponse
	if err := c.do(ctx, http.MethodPost, "/data_sources/"+dataSourceID+"/query", req, &res); err != nil {
		return nil, "", fmt.Errorf("query page: %w", err)
	}
	if !res.HasMore {
		return res.Results, "", nil
	}
	return res.Results, res.NextCursor, nil
}

type createPageRequest struct {
	Parent     map[string]string   `json:"parent"`
	Properties map[string]Property `json:"properties"`
	Children   []Block             `json:"children,omitempty"`
}

// CreatePage creates one record under the data source with its full
// property set and content body.
func (c *Client) CreatePage(ctx context.Context, dataSourceID string, properties map[string]Property, children []Block) (*Page, error) {
	req := createPageRequest{
		Parent: map[string]string{
			"type":           "data_source_id",
			"data_source_id": dataSourceID,
		},
		Properties: properties,
		Children:   children,
	}

	var page Page
	if err := c.do(ctx, http.MethodPost, "/pages", req, &page); err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return &page, nil
}

// UpdatePageProperties patches only the given properties; everything else
// on the page, content blocks included, is left untouched.
func (c *Client) UpdatePageProperties(ctx context.Context, pageID string, properties map[string]Property) error {
	req := map[string]any{"properties": properties}
	if err := c.do(ctx, http.MethodPatch, "/pages/"+pageID, req, nil); err != nil {
		return fmt.Errorf("update page %s: %w", pageID, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Notion-Version", apiVersion)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return err
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		ae := &APIError{Status: res.StatusCode}
		if json.Unmarshal(raw, ae) != nil || ae.Message == "" {
			ae.Message = strings.TrimSpace(string(raw))
		}
		ae.Status = res.StatusCode
		return ae
	}

	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
