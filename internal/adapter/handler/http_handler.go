package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/rl1809/record-catalog/internal/core/domain"
)

// Catalog is the record surface the transports expose.
type Catalog interface {
	CreateRecord(ctx context.Context, req domain.CreateRecord) (*domain.Envelope[*domain.Record], error)
	UpdateRecord(ctx context.Context, id string, req domain.UpdateRecord) (*domain.Envelope[*domain.Record], error)
	ListRecords(ctx context.Context, query domain.ListQuery) (*domain.Envelope[*domain.RecordPage], error)
	AdjustStock(ctx context.Context, id string, delta int) (*domain.Envelope[*domain.Record], error)
	GetRecord(ctx context.Context, id string) (*domain.Envelope[*domain.Record], error)
}

// Orders is the order surface the transports expose.
type Orders interface {
	PlaceOrder(ctx context.Context, req domain.PlaceOrder) (*domain.Envelope[*domain.Order], error)
	ListOrders(ctx context.Context) (*domain.Envelope[[]domain.Order], error)
	GetOrder(ctx context.Context, id string) (*domain.Envelope[*domain.Order], error)
}

type HTTPHandler struct {
	catalog Catalog
	orders  Orders
	logger  *slog.Logger
}

type AdjustStockHTTPRequest struct {
	Delta *int `json:"delta"`
}

func NewHTTPHandler(catalog Catalog, orders Orders, logger *slog.Logger) *HTTPHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &HTTPHandler{catalog: catalog, orders: orders, logger: logger}
}

// Routes returns the API mux wrapped in request-id and access-log middleware.
func (h *HTTPHandler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", h.HealthCheck)

	mux.HandleFunc("POST /records", h.CreateRecord)
	mux.HandleFunc("GET /records", h.ListRecords)
	mux.HandleFunc("GET /records/{id}", h.GetRecord)
	mux.HandleFunc("PUT /records/{id}", h.UpdateRecord)
	mux.HandleFunc("PATCH /records/{id}/stock", h.AdjustStock)

	mux.HandleFunc("POST /orders", h.PlaceOrder)
	mux.HandleFunc("GET /orders", h.ListOrders)
	mux.HandleFunc("GET /orders/{id}", h.GetOrder)

	return WithRequestID(WithLogging(h.logger, mux))
}

func (h *HTTPHandler) CreateRecord(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateRecord
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := h.catalog.CreateRecord(r.Context(), req)
	respond(w, http.StatusCreated, resp, err)
}

func (h *HTTPHandler) UpdateRecord(w http.ResponseWriter, r *http.Request) {
	var req domain.UpdateRecord
	if !decodeBody(w, r, &req) {
		return
	}
	resp, err := h.catalog.UpdateRecord(r.Context(), r.PathValue("id"), req)
	respond(w, http.StatusOK, resp, err)
}

func (h *HTTPHandler) ListRecords(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()
	page, ok := positiveParam(w, params.Get("page"), "page")
	if !ok {
		return
	}
	limit, ok := positiveParam(w, params.Get("limit"), "limit")
	if !ok {
		return
	}

	resp, err := h.catalog.ListRecords(r.Context(), domain.ListQuery{
		Term:     params.Get("q"),
		Artist:   params.Get("artist"),
		Album:    params.Get("album"),
		Format:   params.Get("format"),
		Category: params.Get("category"),
		Page:     page,
		Limit:    limit,
	})
	respond(w, http.StatusOK, resp, err)
}

func (h *HTTPHandler) GetRecord(w http.ResponseWriter, r *http.Request) {
	resp, err := h.catalog.GetRecord(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, resp, err)
}

func (h *HTTPHandler) AdjustStock(w http.ResponseWriter, r *http.Request) {
	var req AdjustStockHTTPRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Delta == nil {
		writeError(w, http.StatusBadRequest, "delta is required")
		return
	}
	resp, err := h.catalog.AdjustStock(r.Context(), r.PathValue("id"), *req.Delta)
	respond(w, http.StatusOK, resp, err)
}

func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	var req domain.PlaceOrder
	if !decodeBody(w, r, &req) {
		return
	}
	if req.RequestID == "" {
		req.RequestID = r.Header.Get("Idempotency-Key")
	}
	resp, err := h.orders.PlaceOrder(r.Context(), req)
	respond(w, http.StatusCreated, resp, err)
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	resp, err := h.orders.ListOrders(r.Context())
	respond(w, http.StatusOK, resp, err)
}

func (h *HTTPHandler) GetOrder(w http.ResponseWriter, r *http.Request) {
	resp, err := h.orders.GetOrder(r.Context(), r.PathValue("id"))
	respond(w, http.StatusOK, resp, err)
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// positiveParam parses an optional query parameter. Absent means zero so the
// service applies its default.
func positiveParam(w http.ResponseWriter, raw, name string) (int, bool) {
	if raw == "" {
		return 0, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		writeError(w, http.StatusBadRequest, name+" must be a positive integer")
		return 0, false
	}
	return n, true
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func respond[T any](w http.ResponseWriter, status int, resp *domain.Envelope[T], err error) {
	if err != nil {
		writeError(w, httpStatus(err), err.Error())
		return
	}
	writeJSON(w, status, resp)
}

func httpStatus(err error) int {
	switch domain.KindOf(err) {
	case domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindBadRequest:
		return http.StatusBadRequest
	case domain.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, domain.Envelope[any]{Status: false, Message: message})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
