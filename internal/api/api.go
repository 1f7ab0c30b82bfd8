package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"

	"github.com/michailmelonas/order-book-app/internal/engine"
	"github.com/michailmelonas/order-book-app/internal/logging"
)

// Service is the order book as seen by HTTP handlers. *engine.Engine
// implements it.
type Service interface {
	Submit(ctx context.Context, o engine.LimitOrder) (string, error)
	FullDepth(ctx context.Context) (engine.Depth, error)
	AggregatedDepth(ctx context.Context) (engine.AggregatedDepth, error)
	MarketSummary(ctx context.Context) (engine.MarketSummary, error)
	Status(ctx context.Context, id string) (engine.StatusView, error)
	RecentTrades(ctx context.Context, count int) ([]engine.Trade, error)
}

// Ticker serves the last market summary sampled in the background.
type Ticker interface {
	Get() (engine.MarketSummary, time.Time, bool)
}

type Handler struct {
	svc    Service
	ticker Ticker
	log    logrus.FieldLogger
}

// NewRouter mounts every route under /api. ticker may be nil, in which case
// /api/ticker answers 503.
func NewRouter(svc Service, ticker Ticker, log logrus.FieldLogger, timeout time.Duration) http.Handler {
	h := &Handler{svc: svc, ticker: ticker, log: log}

	r := chi.NewRouter()

	// Hygiene stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(log))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(timeout))

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", h.health)
		r.Get("/full-order-book", h.fullOrderBook)
		r.Get("/aggregated-order-book", h.aggregatedOrderBook)
		r.Get("/market-summary", h.marketSummary)
		r.Get("/ticker", h.tickerSummary)
		r.Get("/order-status/{id}", h.orderStatus)
		r.Get("/recent-trades/{count}", h.recentTrades)
		r.Post("/orders/limit", h.placeLimitOrder)
	})
	return r
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) fullOrderBook(w http.ResponseWriter, r *http.Request) {
	depth, err := h.svc.FullDepth(r.Context())
	if err != nil {
		h.engineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, depth)
}

func (h *Handler) aggregatedOrderBook(w http.ResponseWriter, r *http.Request) {
	depth, err := h.svc.AggregatedDepth(r.Context())
	if err != nil {
		h.engineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, depth)
}

func (h *Handler) marketSummary(w http.ResponseWriter, r *http.Request) {
	s, err := h.svc.MarketSummary(r.Context())
	if err != nil {
		h.engineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, s)
}

type tickerResponse struct {
	engine.MarketSummary
	SampledAt time.Time `json:"sampledAt"`
}

func (h *Handler) tickerSummary(w http.ResponseWriter, r *http.Request) {
	if h.ticker == nil {
		writeProblem(w, r, http.StatusServiceUnavailable, "ticker_unavailable", "market data updater is not running")
		return
	}
	s, at, ok := h.ticker.Get()
	if !ok {
		writeProblem(w, r, http.StatusServiceUnavailable, "ticker_unavailable", "no market summary sampled yet")
		return
	}
	writeJSON(w, r, http.StatusOK, tickerResponse{MarketSummary: s, SampledAt: at})
}

func (h *Handler) orderStatus(w http.ResponseWriter, r *http.Request) {
	st, err := h.svc.Status(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.engineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, st)
}

func (h *Handler) recentTrades(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "count")
	count, err := strconv.Atoi(raw)
	if err != nil || !digits.MatchString(raw) {
		writeProblem(w, r, http.StatusBadRequest, "validation_error", "count ("+raw+") must be a positive integer")
		return
	}
	trades, err := h.svc.RecentTrades(r.Context(), count)
	if err != nil {
		h.engineError(w, r, err)
		return
	}
	writeJSON(w, r, http.StatusOK, trades)
}

type limitOrderRequest struct {
	Side     *string `json:"side"`
	Price    *string `json:"price"`    // decimal digits
	Quantity *string `json:"quantity"` // decimal digits
	PostOnly *bool   `json:"postOnly"`
}

var digits = regexp.MustCompile(`^[0-9]+$`)

func (h *Handler) placeLimitOrder(w http.ResponseWriter, r *http.Request) {
	var req limitOrderRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeProblem(w, r, http.StatusBadRequest, "invalid_json", err.Error())
		return
	}

	order, err := toLimitOrder(req)
	if err != nil {
		writeProblem(w, r, http.StatusBadRequest, "validation_error", err.Error())
		return
	}

	id, err := h.svc.Submit(r.Context(), order)
	if err != nil {
		h.engineError(w, r, err)
		return
	}

	w.Header().Set("Location", "/api/order-status/"+id)
	writeJSON(w, r, http.StatusCreated, map[string]string{"id": id})
}

func toLimitOrder(req limitOrderRequest) (engine.LimitOrder, error) {
	switch {
	case req.Side == nil:
		return engine.LimitOrder{}, errors.New(`"side" is required`)
	case req.Price == nil:
		return engine.LimitOrder{}, errors.New(`"price" is required`)
	case req.Quantity == nil:
		return engine.LimitOrder{}, errors.New(`"quantity" is required`)
	case req.PostOnly == nil:
		return engine.LimitOrder{}, errors.New(`"postOnly" is required`)
	}
	price, err := parseDigits("price", *req.Price)
	if err != nil {
		return engine.LimitOrder{}, err
	}
	qty, err := parseDigits("quantity", *req.Quantity)
	if err != nil {
		return engine.LimitOrder{}, err
	}
	return engine.LimitOrder{
		Side:     engine.Side(*req.Side),
		Price:    price,
		Quantity: qty,
		PostOnly: *req.PostOnly,
	}, nil
}

func parseDigits(field, s string) (int64, error) {
	if !digits.MatchString(s) {
		return 0, errors.New(`"` + field + `" must contain only digits`)
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, errors.New(`"` + field + `" is out of range`)
	}
	return n, nil
}

func (h *Handler) engineError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, engine.ErrInvalidArgument):
		writeProblem(w, r, http.StatusBadRequest, "validation_error", err.Error())
	case errors.Is(err, engine.ErrNotFound):
		writeProblem(w, r, http.StatusNotFound, "not_found", err.Error())
	case errors.Is(err, engine.ErrEngineClosed):
		writeProblem(w, r, http.StatusServiceUnavailable, "engine_unavailable", err.Error())
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		writeProblem(w, r, http.StatusServiceUnavailable, "engine_timeout", err.Error())
	default:
		h.log.WithError(err).WithField("request_id", middleware.GetReqID(r.Context())).Error("engine error")
		writeProblem(w, r, http.StatusInternalServerError, "engine_error", err.Error())
	}
}

func writeJSON(w http.ResponseWriter, r *http.Request, code int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Request-ID", middleware.GetReqID(r.Context()))
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}

// writeProblem answers with an RFC 7807 problem document.
func writeProblem(w http.ResponseWriter, r *http.Request, code int, title, detail string) {
	reqID := middleware.GetReqID(r.Context())
	w.Header().Set("Content-Type", "application/problem+json")
	w.Header().Set("X-Request-ID", reqID)
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"title":      title,
		"status":     code,
		"detail":     detail,
		"instance":   r.URL.Path,
		"request_id": reqID,
	})
}
