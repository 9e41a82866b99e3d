package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"optiq/internal/domain"
	"optiq/internal/engine"
	"optiq/internal/pricing"
	"optiq/internal/store"
)

// defaultValuationWindow bounds the /valuations response when no explicit
// range is given.
const defaultValuationWindow = 24 * time.Hour

// Server serves the trading API. Stores are optional; endpoints backed by a
// nil store answer with empty collections.
type Server struct {
	engine     *engine.Engine
	brokerName string
	valuations store.ValuationStore
	signals    store.SignalStore
	gatherer   prometheus.Gatherer
	log        *slog.Logger
}

// NewServer creates an API server over the given engine.
func NewServer(
	eng *engine.Engine,
	brokerName string,
	valuations store.ValuationStore,
	signals store.SignalStore,
	gatherer prometheus.Gatherer,
	log *slog.Logger,
) *Server {
	return &Server{
		engine:     eng,
		brokerName: brokerName,
		valuations: valuations,
		signals:    signals,
		gatherer:   gatherer,
		log:        log,
	}
}

// RegisterRoutes registers all API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)
	mux.HandleFunc("GET /api/v1/portfolio", s.handlePortfolio)
	mux.HandleFunc("GET /api/v1/positions", s.handlePositions)
	mux.HandleFunc("GET /api/v1/positions/{symbol}", s.handlePosition)
	mux.HandleFunc("GET /api/v1/orders", s.handleOrders)
	mux.HandleFunc("GET /api/v1/orders/{id}", s.handleOrder)
	mux.HandleFunc("GET /api/v1/risk", s.handleRisk)
	mux.HandleFunc("GET /api/v1/price", s.handlePrice)
	mux.HandleFunc("GET /api/v1/valuations", s.handleValuations)
	mux.HandleFunc("GET /api/v1/signals", s.handleSignals)

	if s.gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}
}

// Handler returns an http.Handler with CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// ---------------------------------------------------------------------------
// Handlers
// ---------------------------------------------------------------------------

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, HealthResponse{Status: "ok", Broker: s.brokerName})
}

func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	pf := s.engine.Portfolio()
	writeJSON(w, PortfolioResponse{
		TotalValue:    pf.TotalValue(),
		UnrealizedPL:  pf.TotalUnrealizedPL(),
		RealizedPL:    pf.TotalRealizedPL(),
		GrossExposure: pf.GrossExposure(),
		Positions:     len(pf.Positions()),
		OpenOrders:    len(pf.OpenOrders()),
	})
}

func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	positions := s.engine.Portfolio().Positions()
	if positions == nil {
		positions = []domain.Position{}
	}
	writeJSON(w, PositionsResponse{Positions: positions})
}

func (s *Server) handlePosition(w http.ResponseWriter, r *http.Request) {
	symbol := strings.ToUpper(r.PathValue("symbol"))
	writeJSON(w, s.engine.Portfolio().Position(symbol))
}

func (s *Server) handleOrders(w http.ResponseWriter, r *http.Request) {
	orders := s.engine.Portfolio().OpenOrders()
	if symbol := strings.ToUpper(r.URL.Query().Get("symbol")); symbol != "" {
		orders = s.engine.Portfolio().OrdersFor(symbol)
	}
	if orders == nil {
		orders = []domain.Order{}
	}
	writeJSON(w, OrdersResponse{Orders: orders})
}

func (s *Server) handleOrder(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	order, ok := s.engine.Portfolio().Order(id)
	if !ok {
		writeError(w, http.StatusNotFound, "order not found")
		return
	}
	writeJSON(w, order)
}

func (s *Server) handleRisk(w http.ResponseWriter, r *http.Request) {
	rm := s.engine.Risk()
	limits := rm.Limits()
	writeJSON(w, RiskResponse{
		Level:           rm.RiskLevel(s.engine.Portfolio()),
		MaxPositionSize: limits.MaxPositionSize,
		MaxDrawdown:     limits.MaxDrawdown,
		MaxLeverage:     limits.MaxLeverage,
		MaxRiskPerTrade: limits.MaxRiskPerTrade,
		MaxDailyLoss:    limits.MaxDailyLoss,
	})
}

// handlePrice prices one contract from query parameters: right (call|put),
// spot, strike, rate, expiry (years), and either vol (model price) or
// market_price (implied volatility, then priced at that vol).
func (s *Server) handlePrice(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	right := strings.ToLower(q.Get("right"))
	if right != "call" && right != "put" {
		writeError(w, http.StatusBadRequest, "right must be call or put")
		return
	}

	parse := func(name string) (float64, bool) {
		v, err := strconv.ParseFloat(q.Get(name), 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, name+" must be a number")
			return 0, false
		}
		return v, true
	}

	spot, ok := parse("spot")
	if !ok {
		return
	}
	strike, ok := parse("strike")
	if !ok {
		return
	}
	rate, ok := parse("rate")
	if !ok {
		return
	}
	expiry, ok := parse("expiry")
	if !ok {
		return
	}

	resp := PriceResponse{
		Right:  right,
		Spot:   spot,
		Strike: strike,
		Rate:   rate,
		Expiry: expiry,
	}

	vol := 0.0
	if mp := q.Get("market_price"); mp != "" {
		target, err := strconv.ParseFloat(mp, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "market_price must be a number")
			return
		}
		solve := pricing.CallImpliedVol
		if right == "put" {
			solve = pricing.PutImpliedVol
		}
		iv, err := solve(target, spot, strike, rate, expiry, 1e-6, 100)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "implied vol: "+err.Error())
			return
		}
		vol = iv
		resp.ImpliedVol = &iv
	} else {
		v, ok := parse("vol")
		if !ok {
			return
		}
		vol = v
	}
	resp.Vol = vol

	if right == "call" {
		resp.Price = pricing.CallPrice(spot, strike, rate, vol, expiry)
		g := pricing.CallGreeks(spot, strike, rate, vol, expiry)
		resp.Delta, resp.Gamma, resp.Vega, resp.Theta, resp.Rho = g.Delta, g.Gamma, g.Vega, g.Theta, g.Rho
	} else {
		resp.Price = pricing.PutPrice(spot, strike, rate, vol, expiry)
		g := pricing.PutGreeks(spot, strike, rate, vol, expiry)
		resp.Delta, resp.Gamma, resp.Vega, resp.Theta, resp.Rho = g.Delta, g.Gamma, g.Vega, g.Theta, g.Rho
	}

	writeJSON(w, resp)
}

func (s *Server) handleValuations(w http.ResponseWriter, r *http.Request) {
	if s.valuations == nil {
		writeJSON(w, ValuationsResponse{Valuations: []store.Valuation{}})
		return
	}

	end := time.Now().UTC()
	start := end.Add(-defaultValuationWindow)
	if v := r.URL.Query().Get("start"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "start must be RFC3339")
			return
		}
		start = t
	}
	if v := r.URL.Query().Get("end"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "end must be RFC3339")
			return
		}
		end = t
	}

	marks, err := s.valuations.ReadValuations(r.Context(), start, end)
	if err != nil {
		s.log.Error("reading valuations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to read valuations")
		return
	}
	if marks == nil {
		marks = []store.Valuation{}
	}
	writeJSON(w, ValuationsResponse{Valuations: marks})
}

func (s *Server) handleSignals(w http.ResponseWriter, r *http.Request) {
	if s.signals == nil {
		writeJSON(w, SignalsResponse{Signals: []domain.Signal{}})
		return
	}

	strategyID := r.URL.Query().Get("strategy")
	limit := 50
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	signals, err := s.signals.ListSignals(r.Context(), strategyID, limit)
	if err != nil {
		s.log.Error("listing signals", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list signals")
		return
	}
	if signals == nil {
		signals = []domain.Signal{}
	}
	writeJSON(w, SignalsResponse{Signals: signals})
}
