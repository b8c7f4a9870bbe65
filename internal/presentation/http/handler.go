package httppresentation

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/Zhima-Mochi/honeyshop/internal/application"
	appcart "github.com/Zhima-Mochi/honeyshop/internal/application/cart"
	appcheckout "github.com/Zhima-Mochi/honeyshop/internal/application/checkout"
	appinventory "github.com/Zhima-Mochi/honeyshop/internal/application/inventory"
	"github.com/Zhima-Mochi/honeyshop/internal/domain/catalog"
	domcart "github.com/Zhima-Mochi/honeyshop/internal/domain/cart"
	"github.com/Zhima-Mochi/honeyshop/internal/domain/pricing"
	"github.com/Zhima-Mochi/honeyshop/internal/observability"
	"github.com/Zhima-Mochi/honeyshop/internal/observability/logctx"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerSessionID      = "X-Session-ID"
)

// InventoryView is the read side of the inventory store.
type InventoryView interface {
	Snapshot(ctx context.Context) []appinventory.Stock
	Degraded() bool
	Loaded() bool
	LastError() error
	LastSuccess() time.Time
}

// RefreshTrigger starts an out-of-schedule inventory refresh without waiting for it.
type RefreshTrigger interface {
	Trigger(ctx context.Context)
}

// CartSessions resolves the cart of the calling browser.
type CartSessions interface {
	New() (string, *appcart.Service)
	Get(id string) *appcart.Service
	Valid(id string) bool
}

// YenFormatter renders yen amounts for display.
type YenFormatter interface {
	Yen(amount int64) string
}

type CheckoutUseCase = application.UseCase[appcheckout.BuildLinkCommand, *appcheckout.BuildLinkResult]

type Handler struct {
	catalog   *catalog.Catalog
	inventory InventoryView
	sessions  CartSessions
	checkout  CheckoutUseCase
	refresher RefreshTrigger
	yen       YenFormatter
	metrics   http.Handler

	log       observability.Logger
	requests  observability.Counter   // http_requests_total{method,route,status}
	durations observability.Histogram // http_request_duration_seconds{method,route,status}
}

func NewHandler(
	cat *catalog.Catalog,
	inventory InventoryView,
	sessions CartSessions,
	checkout CheckoutUseCase,
	refresher RefreshTrigger,
	yen YenFormatter,
	metrics http.Handler,
	tel observability.Observability,
) *Handler {
	if tel == nil {
		tel = observability.Nop()
	}
	return &Handler{
		catalog:   cat,
		inventory: inventory,
		sessions:  sessions,
		checkout:  checkout,
		refresher: refresher,
		yen:       yen,
		metrics:   metrics,
		log:       tel.Logger().With(observability.F("component", componentHTTPHandler)),
		requests:  tel.Metrics().Counter(observability.MHTTPRequests),
		durations: tel.Metrics().Histogram(observability.MHTTPRequestDuration),
	}
}

func (h *Handler) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	// Trace → Request Logger → Metrics → Access Log → Handler
	h.handle(r, http.MethodGet, "/health", h.handleHealth)
	h.handle(r, http.MethodGet, "/products", h.handleProducts)
	h.handle(r, http.MethodGet, "/cart", h.handleGetCart)
	h.handle(r, http.MethodPost, "/cart/items", h.handleAddItem)
	h.handle(r, http.MethodPatch, "/cart/items/{name}", h.handleChangeQuantity)
	h.handle(r, http.MethodDelete, "/cart/items/{name}", h.handleRemoveItem)
	h.handle(r, http.MethodGet, "/checkout", h.handleCheckout)
	if h.refresher != nil {
		h.handle(r, http.MethodPost, "/inventory/refresh", h.handleRefresh)
	}
	if h.metrics != nil {
		r.Method(http.MethodGet, "/metrics", h.metrics)
	}

	return r
}

func (h *Handler) handle(r chi.Router, method, route string, handler http.HandlerFunc) {
	wrapped := withTrace(
		ObservabilityMiddleware(h.log)(
			withHTTPMetrics(h.requests, h.durations)(
				withAccessLog(h.log)(handler),
			),
		),
	)
	r.Method(method, route, http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		wrapped.ServeHTTP(w, req.WithContext(contextWithRoute(req.Context(), route)))
	}))
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

type productResponse struct {
	Name       string `json:"name"`
	Label      string `json:"label"`
	UnitPrice  int64  `json:"unit_price"`
	PriceLabel string `json:"price_label"`
	Stock      int    `json:"stock"`
	Status     string `json:"status"`
	Available  bool   `json:"available"`
	StockID    string `json:"stock_id"`
	ButtonID   string `json:"button_id"`
}

type productsResponse struct {
	Degraded  bool              `json:"degraded"`
	Loaded    bool              `json:"loaded"`
	LastError string            `json:"last_error,omitempty"`
	UpdatedAt *time.Time        `json:"updated_at,omitempty"`
	Products  []productResponse `json:"products"`
}

func (h *Handler) handleProducts(w http.ResponseWriter, r *http.Request) {
	stock := make(map[string]appinventory.Stock)
	for _, st := range h.inventory.Snapshot(r.Context()) {
		stock[st.ProductName] = st
	}

	resp := productsResponse{
		Degraded: h.inventory.Degraded(),
		Loaded:   h.inventory.Loaded(),
	}
	if err := h.inventory.LastError(); err != nil {
		resp.LastError = err.Error()
	}
	if ts := h.inventory.LastSuccess(); !ts.IsZero() {
		resp.UpdatedAt = &ts
	}
	for _, p := range h.catalog.Products() {
		st := stock[p.Name]
		resp.Products = append(resp.Products, productResponse{
			Name:       p.Name,
			Label:      p.Display.Label,
			UnitPrice:  p.UnitPrice,
			PriceLabel: h.yen.Yen(p.UnitPrice),
			Stock:      st.Quantity,
			Status:     string(st.Status),
			Available:  st.Quantity > 0,
			StockID:    p.Display.StockID,
			ButtonID:   p.Display.ButtonID,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

type lineResponse struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	LineTotal int64  `json:"line_total"`
}

type cartResponse struct {
	SessionID   string         `json:"session_id"`
	Lines       []lineResponse `json:"lines"`
	ItemCount   int            `json:"item_count"`
	Subtotal    int64          `json:"subtotal"`
	ShippingFee int64          `json:"shipping_fee"`
	Total       int64          `json:"total"`
	Empty       bool           `json:"empty"`
}

func newCartResponse(sessionID string, s pricing.Summary) cartResponse {
	lines := make([]lineResponse, 0, len(s.Lines))
	for _, l := range s.Lines {
		lines = append(lines, lineResponse{
			Name:      l.ProductName,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			LineTotal: l.Total(),
		})
	}
	return cartResponse{
		SessionID:   sessionID,
		Lines:       lines,
		ItemCount:   s.ItemCount,
		Subtotal:    s.Subtotal,
		ShippingFee: s.ShippingFee,
		Total:       s.Total,
		Empty:       s.Empty(),
	}
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	id, svc := h.session(w, r)
	writeJSON(w, http.StatusOK, newCartResponse(id, svc.Snapshot()))
}

type addItemRequest struct {
	Name string `json:"name" validate:"required,max=128"`
}

func (h *Handler) handleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	id, svc := h.session(w, r)
	summary, err := svc.Add(r.Context(), req.Name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(id, summary))
}

type changeQuantityRequest struct {
	Delta *int `json:"delta" validate:"required,min=-1000,max=1000"`
}

func (h *Handler) handleChangeQuantity(w http.ResponseWriter, r *http.Request) {
	var req changeQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	name, err := productParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, svc := h.session(w, r)
	summary, err := svc.ChangeQuantity(r.Context(), name, *req.Delta)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(id, summary))
}

func (h *Handler) handleRemoveItem(w http.ResponseWriter, r *http.Request) {
	name, err := productParam(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	id, svc := h.session(w, r)
	summary, err := svc.Remove(r.Context(), name)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newCartResponse(id, summary))
}

// handleRefresh queues a manual refresh. It outlives the request, so the request's
// cancellation is detached.
func (h *Handler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	h.refresher.Trigger(context.WithoutCancel(r.Context()))
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "refresh_started"})
}

type checkoutResponse struct {
	URL   string `json:"url"`
	Total int64  `json:"total"`
}

func (h *Handler) handleCheckout(w http.ResponseWriter, r *http.Request) {
	id, svc := h.session(w, r)
	res, err := h.checkout.Execute(r.Context(), appcheckout.BuildLinkCommand{
		SessionID: id,
		Lines:     svc.Snapshot().Lines,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, checkoutResponse{URL: res.URL, Total: res.Summary.Total})
}

// session returns the caller's cart, minting a session when the header is absent or malformed.
// The effective id is always echoed in X-Session-ID.
func (h *Handler) session(w http.ResponseWriter, r *http.Request) (string, *appcart.Service) {
	id := r.Header.Get(headerSessionID)
	var svc *appcart.Service
	if h.sessions.Valid(id) {
		svc = h.sessions.Get(id)
	} else {
		id, svc = h.sessions.New()
		logctx.FromOr(r.Context(), h.log).Debug("session_created", observability.F("session_id", id))
	}
	w.Header().Set(headerSessionID, id)
	return id, svc
}

func productParam(r *http.Request) (string, error) {
	name, err := url.PathUnescape(chi.URLParam(r, "name"))
	if err != nil {
		return "", errInvalidBody
	}
	return name, nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	resp := errorResponse{Error: err.Error()}
	var verr *validationError
	if errors.As(err, &verr) {
		resp.Details = verr.details
	}
	if status >= http.StatusInternalServerError {
		logctx.FromOr(r.Context(), h.log).Error("http_request_failed", observability.F("error", err))
	}
	writeJSON(w, status, resp)
}

func statusFor(err error) int {
	var verr *validationError
	switch {
	case errors.As(err, &verr), errors.Is(err, errInvalidBody):
		return http.StatusBadRequest
	case errors.Is(err, catalog.ErrUnknownProduct):
		return http.StatusNotFound
	case errors.Is(err, domcart.ErrOutOfStock),
		errors.Is(err, domcart.ErrStockLimitExceeded),
		errors.Is(err, appcheckout.ErrEmptyCart):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
