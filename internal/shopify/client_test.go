package shopify

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNextLink(t *testing.T) {
	h := `<https://x.myshopify.com/admin/api/2025-10/orders.json?page_info=prev>; rel="previous", <https://x.myshopify.com/admin/api/2025-10/orders.json?page_info=next>; rel="next"`
	assert.Equal(t, "https://x.myshopify.com/admin/api/2025-10/orders.json?page_info=next", nextLink(h))

	assert.Equal(t, "", nextLink(`<https://x.myshopify.com/...>; rel="previous"`))
	assert.Equal(t, "", nextLink(""))
}

func newTestClient(srv *httptest.Server) *Client {
	c := NewClient("x.myshopify.com", "shpat_test", "2025-10", srv.Client())
	c.baseURL = srv.URL
	c.pageDelay = 0
	return c
}

func TestListOrdersFollowsLinkHeader(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	var gotTokens []string
	mux.HandleFunc("/admin/api/2025-10/orders.json", func(w http.ResponseWriter, r *http.Request) {
		gotTokens = append(gotTokens, r.Header.Get("X-Shopify-Access-Token"))

		if r.URL.Query().Get("page_info") == "" {
			assert.Equal(t, "any", r.URL.Query().Get("status"))
			assert.Equal(t, "250", r.URL.Query().Get("limit"))
			assert.Equal(t, "created_at desc", r.URL.Query().Get("order"))

			w.Header().Set("Link", fmt.Sprintf(`<%s/admin/api/2025-10/orders.json?page_info=p2>; rel="next"`, srv.URL))
			fmt.Fprint(w, `{"orders":[{"id":1,"name":"#CC1"},{"id":2,"name":"#CC2"}]}`)
			return
		}
		fmt.Fprint(w, `{"orders":[{"id":3,"name":"#CC3"}]}`)
	})

	c := newTestClient(srv)
	orders, err := c.ListOrders(context.Background(), Window{CreatedAtMin: "2025-10-01T00:00:00Z"})
	require.NoError(t, err)

	require.Len(t, orders, 3)
	assert.Equal(t, int64(1), orders[0].ID)
	assert.Equal(t, "#CC3", orders[2].Name)
	assert.Equal(t, []string{"shpat_test", "shpat_test"}, gotTokens)
}

func TestListOrdersAbortsOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"errors":"Not Found"}`, http.StatusNotFound)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	orders, err := c.ListOrders(context.Background(), Window{})
	require.Error(t, err)
	assert.Nil(t, orders)
	assert.True(t, IsStatus(err, http.StatusNotFound))
}

func TestGetOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/admin/api/2025-10/orders/42.json", r.URL.Path)
		fmt.Fprint(w, `{"order":{"id":42,"name":"#CC42","fulfillment_status":"fulfilled"}}`)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	o, err := c.GetOrder(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, "#CC42", o.Name)
	assert.True(t, o.Fulfilled())
}

func TestGetOrderByName(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "CC5377", r.URL.Query().Get("name"))
		if r.URL.Query().Get("name") == "CC5377" {
			fmt.Fprint(w, `{"orders":[{"id":7,"name":"#CC5377"}]}`)
			return
		}
		fmt.Fprint(w, `{"orders":[]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	o, err := c.GetOrderByName(context.Background(), " #CC5377 ")
	require.NoError(t, err)
	require.NotNil(t, o)
	assert.Equal(t, int64(7), o.ID)
}

func TestGetOrderByNameAbsent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"orders":[]}`)
	}))
	defer srv.Close()

	c := newTestClient(srv)
	o, err := c.GetOrderByName(context.Background(), "CC9999")
	require.NoError(t, err)
	assert.Nil(t, o)
}

func TestLastDay(t *testing.T) {
	now, err := time.Parse(time.RFC3339, "2025-10-24T12:00:00Z")
	require.NoError(t, err)

	w := LastDay(now)
	assert.Equal(t, "2025-10-23T12:00:00Z", w.CreatedAtMin)
	assert.Equal(t, "", w.CreatedAtMax)
}
