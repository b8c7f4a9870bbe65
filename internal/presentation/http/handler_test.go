package httppresentation

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appcart "github.com/Zhima-Mochi/honeyshop/internal/application/cart"
	appcheckout "github.com/Zhima-Mochi/honeyshop/internal/application/checkout"
	appinventory "github.com/Zhima-Mochi/honeyshop/internal/application/inventory"
	"github.com/Zhima-Mochi/honeyshop/internal/domain/catalog"
	domcheckout "github.com/Zhima-Mochi/honeyshop/internal/domain/checkout"
	dominv "github.com/Zhima-Mochi/honeyshop/internal/domain/inventory"
	"github.com/Zhima-Mochi/honeyshop/internal/infrastructure/id"
	infraobs "github.com/Zhima-Mochi/honeyshop/internal/infrastructure/observability"
	"github.com/Zhima-Mochi/honeyshop/internal/infrastructure/observability/prometrics"
)

type fakeInventory struct {
	stock    map[string]int
	degraded bool
	loaded   bool
	lastErr  error
}

func (f *fakeInventory) StockOf(name string) int { return f.stock[name] }

func (f *fakeInventory) Snapshot(context.Context) []appinventory.Stock {
	var out []appinventory.Stock
	for _, name := range catalog.Default().Names() {
		qty := f.stock[name]
		out = append(out, appinventory.Stock{
			ProductName: name,
			Quantity:    qty,
			Status:      dominv.StatusFor(qty, f.degraded),
		})
	}
	return out
}

func (f *fakeInventory) Degraded() bool         { return f.degraded }
func (f *fakeInventory) Loaded() bool           { return f.loaded }
func (f *fakeInventory) LastError() error       { return f.lastErr }
func (f *fakeInventory) LastSuccess() time.Time { return time.Time{} }

type countingRefresher struct {
	calls int
	ctxs  []context.Context
}

func (c *countingRefresher) Trigger(ctx context.Context) {
	c.calls++
	c.ctxs = append(c.ctxs, ctx)
}

type testServer struct {
	router    http.Handler
	inv       *fakeInventory
	refresher *countingRefresher
}

func newTestServer(t *testing.T, stock map[string]int) *testServer {
	t.Helper()
	cat := catalog.Default()
	inv := &fakeInventory{stock: stock, loaded: true}
	refresher := &countingRefresher{}

	reg := prometheus.NewRegistry()
	tel := infraobs.New(nil, nil, infraobs.RegisterInstruments(prometrics.NewWithRegisterer(reg, "", "")))

	builder, err := domcheckout.NewLinkBuilder("https://docs.google.com/forms/d/e/abc/viewform", "261192025")
	require.NoError(t, err)

	sessions := appcart.NewSessions(id.NewUUIDGenerator(), cat, inv, nil, tel, 0)
	h := NewHandler(cat, inv, sessions, appcheckout.NewBuildLinkUseCase(builder, tel), refresher, builder,
		promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), tel)
	return &testServer{router: h.Router(), inv: inv, refresher: refresher}
}

func (s *testServer) do(t *testing.T, method, path, session, body string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if session != "" {
		req.Header.Set(headerSessionID, session)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeCart(t *testing.T, rec *httptest.ResponseRecorder) cartResponse {
	t.Helper()
	var resp cartResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func itemPath(name string) string {
	return "/cart/items/" + url.PathEscape(name)
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/health", "", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
	assert.NotEmpty(t, rec.Header().Get(headerRequestID))
}

func TestProducts(t *testing.T) {
	s := newTestServer(t, map[string]int{catalog.Wildflower300g: 4})

	rec := s.do(t, http.MethodGet, "/products", "", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp productsResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Products, 2)
	assert.False(t, resp.Degraded)
	assert.Equal(t, "in_stock", resp.Products[0].Status)
	assert.Equal(t, "¥1,500", resp.Products[0].PriceLabel)
	assert.True(t, resp.Products[0].Available)
	assert.Equal(t, "out_of_stock", resp.Products[1].Status)
	assert.False(t, resp.Products[1].Available)

	assert.True(t, resp.Loaded)
	assert.Empty(t, resp.LastError)

	s.inv.degraded = true
	s.inv.lastErr = dominv.ErrFetchFailed
	rec = s.do(t, http.MethodGet, "/products", "", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Degraded)
	assert.Equal(t, dominv.ErrFetchFailed.Error(), resp.LastError)
	assert.Equal(t, "unknown", resp.Products[0].Status)
	assert.Equal(t, 4, resp.Products[0].Stock)
}

func TestCartFlow(t *testing.T) {
	s := newTestServer(t, map[string]int{catalog.Wildflower300g: 3, catalog.Wildflower500g: 1})

	rec := s.do(t, http.MethodGet, "/cart", "", "")
	require.Equal(t, http.StatusOK, rec.Code)
	session := rec.Header().Get(headerSessionID)
	require.NotEmpty(t, session)
	assert.True(t, decodeCart(t, rec).Empty)

	rec = s.do(t, http.MethodGet, "/checkout", session, "")
	assert.Equal(t, http.StatusConflict, rec.Code)

	for i := 0; i < 3; i++ {
		rec = s.do(t, http.MethodPost, "/cart/items", session, `{"name":"百花蜜（300g）"}`)
		require.Equal(t, http.StatusOK, rec.Code)
	}
	assert.Equal(t, session, rec.Header().Get(headerSessionID))
	cart := decodeCart(t, rec)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 3, cart.Lines[0].Quantity)
	assert.Equal(t, int64(4500), cart.Subtotal)
	assert.Equal(t, int64(600), cart.ShippingFee)

	rec = s.do(t, http.MethodPost, "/cart/items", session, `{"name":"Honey-300g"}`)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(t, http.MethodPost, "/cart/items", session, `{"name":"百花蜜(500g)"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cart = decodeCart(t, rec)
	assert.Equal(t, int64(6800), cart.Subtotal)
	assert.Equal(t, int64(0), cart.ShippingFee)

	rec = s.do(t, http.MethodGet, "/checkout", session, "")
	require.Equal(t, http.StatusOK, rec.Code)
	var checkout checkoutResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &checkout))
	assert.True(t, strings.HasPrefix(checkout.URL, "https://docs.google.com/forms/d/e/abc/viewform?entry.261192025="))
	assert.Equal(t, int64(6800), checkout.Total)

	rec = s.do(t, http.MethodPatch, itemPath(catalog.Wildflower300g), session, `{"delta":-100}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cart = decodeCart(t, rec)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, catalog.Wildflower500g, cart.Lines[0].Name)

	rec = s.do(t, http.MethodDelete, itemPath(catalog.Wildflower500g), session, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeCart(t, rec).Empty)
}

func TestCartErrors(t *testing.T) {
	s := newTestServer(t, map[string]int{catalog.Wildflower300g: 1})

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{name: "unknown product", method: http.MethodPost, path: "/cart/items", body: `{"name":"アカシア蜜"}`, status: http.StatusNotFound},
		{name: "sold out", method: http.MethodPost, path: "/cart/items", body: `{"name":"百花蜜(500g)"}`, status: http.StatusConflict},
		{name: "missing name", method: http.MethodPost, path: "/cart/items", body: `{}`, status: http.StatusBadRequest},
		{name: "malformed json", method: http.MethodPost, path: "/cart/items", body: `{"name":`, status: http.StatusBadRequest},
		{name: "unknown field", method: http.MethodPost, path: "/cart/items", body: `{"name":"x","qty":2}`, status: http.StatusBadRequest},
		{name: "delta above bound", method: http.MethodPatch, path: itemPath(catalog.Wildflower300g), body: `{"delta":1001}`, status: http.StatusBadRequest},
		{name: "delta at int64 max", method: http.MethodPatch, path: itemPath(catalog.Wildflower300g), body: `{"delta":9223372036854775807}`, status: http.StatusBadRequest},
		{name: "delta below bound", method: http.MethodPatch, path: itemPath(catalog.Wildflower300g), body: `{"delta":-1001}`, status: http.StatusBadRequest},
		{name: "missing delta", method: http.MethodPatch, path: itemPath(catalog.Wildflower300g), body: `{}`, status: http.StatusBadRequest},
		{name: "change unknown product", method: http.MethodPatch, path: itemPath("アカシア蜜"), body: `{"delta":1}`, status: http.StatusNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.do(t, tt.method, tt.path, "", tt.body)
			assert.Equal(t, tt.status, rec.Code)

			var resp errorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.NotEmpty(t, resp.Error)
		})
	}
}

func TestValidationDetails(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/cart/items", "", `{"name":""}`)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp errorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "is required", resp.Details["name"])
}

func TestInvalidSessionIsReplaced(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodGet, "/cart", "not-a-session", "")

	require.Equal(t, http.StatusOK, rec.Code)
	minted := rec.Header().Get(headerSessionID)
	assert.NotEqual(t, "not-a-session", minted)
	assert.True(t, id.NewUUIDGenerator().Valid(minted))
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t, nil)
	s.do(t, http.MethodGet, "/health", "", "")

	rec := s.do(t, http.MethodGet, "/metrics", "", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestChangeQuantityBeyondStockKeepsLine(t *testing.T) {
	s := newTestServer(t, map[string]int{catalog.Wildflower300g: 5})
	rec := s.do(t, http.MethodPost, "/cart/items", "", `{"name":"百花蜜(300g)"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	session := rec.Header().Get(headerSessionID)
	rec = s.do(t, http.MethodPost, "/cart/items", session, `{"name":"百花蜜(300g)"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(t, http.MethodPatch, itemPath(catalog.Wildflower300g), session, `{"delta":1000}`)
	assert.Equal(t, http.StatusConflict, rec.Code)
	rec = s.do(t, http.MethodPatch, itemPath(catalog.Wildflower300g), session, `{"delta":9223372036854775807}`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(t, http.MethodGet, "/cart", session, "")
	cart := decodeCart(t, rec)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
}

func TestManualRefresh(t *testing.T) {
	s := newTestServer(t, nil)

	rec := s.do(t, http.MethodPost, "/inventory/refresh", "", "")

	assert.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, 1, s.refresher.calls)
	assert.Nil(t, s.refresher.ctxs[0].Done())
}
