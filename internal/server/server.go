package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"wastelive/internal/chain"
	"wastelive/internal/config"
	"wastelive/internal/hmacauth"
	"wastelive/internal/idempotency"
	"wastelive/internal/mint"
	"wastelive/internal/notify"
)

const idempotencyHeader = "X-Idempotency-Key"

// Deps are the collaborators the HTTP surface renders and drives.
type Deps struct {
	Market  *mint.Marketplace
	Board   *notify.Board
	Store   idempotency.Store
	Chain   chain.Client
	Metrics *Metrics
	Logger  zerolog.Logger
}

type Server struct {
	cfg         *config.AppConfig
	market      *mint.Marketplace
	board       *notify.Board
	store       idempotency.Store
	hmac        *hmacauth.Verifier
	httpServer  *http.Server
	metrics     *Metrics
	log         zerolog.Logger
	dbHealthFn  func(context.Context) error
	rpcHealthFn func(context.Context) error
}

func NewServer(cfg *config.AppConfig, deps Deps) *Server {
	metrics := deps.Metrics
	if metrics == nil {
		metrics = NewMetrics()
	}
	store := deps.Store
	if store == nil {
		store = idempotency.NewMemoryStore()
	}

	s := &Server{
		cfg:    cfg,
		market: deps.Market,
		board:  deps.Board,
		store:  store,
		hmac: &hmacauth.Verifier{
			Secret:  cfg.Service.HMACSecret,
			MaxSkew: cfg.Service.HMACClockSkew,
		},
		metrics: metrics,
		log:     deps.Logger.With().Str("component", "http").Logger(),
	}

	if checker, ok := store.(interface{ Ping(context.Context) error }); ok {
		s.dbHealthFn = checker.Ping
	}
	if checker, ok := deps.Chain.(chain.HealthChecker); ok {
		s.rpcHealthFn = checker.Ping
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/items", s.handleItems)
	mux.HandleFunc("GET /api/v1/items/{id}", s.handleItem)
	mux.Handle("POST /api/v1/items/{id}/mint", s.hmac.Middleware(http.HandlerFunc(s.handleMint)))
	mux.HandleFunc("POST /api/v1/items/{id}/refresh", s.handleRefresh)
	mux.HandleFunc("GET /api/v1/notifications", s.handleNotifications)
	mux.Handle("GET /api/v1/metrics", metrics.handler())
	mux.HandleFunc("GET /api/v1/health", s.handleHealth)

	s.httpServer = &http.Server{
		Addr:              ":" + strconv.Itoa(cfg.Service.HTTPPort),
		Handler:           requestIDMiddleware(s.accessLog(mux)),
		ReadHeaderTimeout: 15 * time.Second,
	}
	return s
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

func (s *Server) Start() error {
	s.log.Info().Str("addr", s.httpServer.Addr).Msg("API listening")
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

type mintResponse struct {
	Status string    `json:"status"`
	Item   mint.View `json:"item"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (s *Server) handleItems(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.market.Views())
}

func (s *Server) handleItem(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, c.View())
}

func (s *Server) handleMint(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	itemID := c.Item().ID

	key := strings.TrimSpace(r.Header.Get(idempotencyHeader))
	storeKey := fmt.Sprintf("mint:%d:%s", itemID, key)
	if key != "" {
		existing, err := s.store.Get(ctx, storeKey)
		if err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("idempotency lookup failed")
		}
		if existing != nil {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(existing.StatusCode)
			_, _ = w.Write(existing.Body)
			s.metrics.incReplay()
			return
		}
	}

	if err := c.Trigger(ctx); err != nil {
		writeJSON(w, triggerStatus(err), errorResponse{Error: err.Error()})
		return
	}

	body, err := json.Marshal(mintResponse{Status: "accepted", Item: c.View()})
	if err != nil {
		http.Error(w, "encode response: "+err.Error(), http.StatusInternalServerError)
		return
	}

	if key != "" {
		now := time.Now()
		record := idempotency.Record{
			ItemID:     itemID,
			StatusCode: http.StatusAccepted,
			Body:       body,
			CreatedAt:  now,
			ExpiresAt:  now.Add(s.cfg.Service.IdempotencyWindow),
		}
		if err := s.store.Save(ctx, storeKey, record); err != nil {
			s.log.Warn().Err(err).Str("key", key).Msg("idempotency save failed")
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_, _ = w.Write(body)
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	c, ok := s.controller(w, r)
	if !ok {
		return
	}
	if err := c.Refresh(r.Context()); err != nil {
		writeJSON(w, triggerStatus(err), errorResponse{Error: err.Error()})
		return
	}
	writeJSON(w, http.StatusAccepted, c.View())
}

func (s *Server) handleNotifications(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.board.List())
}

// controller resolves the {id} path value, writing 400 or 404 on failure.
func (s *Server) controller(w http.ResponseWriter, r *http.Request) (*mint.Controller, bool) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return nil, false
	}
	c, ok := s.market.Controller(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: mint.ErrUnknownItem.Error()})
		return nil, false
	}
	return c, true
}

func triggerStatus(err error) int {
	switch {
	case errors.Is(err, mint.ErrUnknownItem):
		return http.StatusNotFound
	case errors.Is(err, mint.ErrMintInFlight):
		return http.StatusConflict
	case errors.Is(err, mint.ErrNotConnected), errors.Is(err, mint.ErrWrongNetwork):
		return http.StatusPreconditionFailed
	case errors.Is(err, mint.ErrPriceUnavailable):
		return http.StatusUnprocessableEntity
	case errors.Is(err, mint.ErrStopped), errors.Is(err, context.Canceled):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	overallHealthy := true

	rpcInfo := struct {
		Connected bool    `json:"connected"`
		LatencyMs float64 `json:"latency_ms"`
		Error     string  `json:"error,omitempty"`
	}{Connected: true}

	if s.rpcHealthFn != nil {
		start := time.Now()
		rpcCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.rpcHealthFn(rpcCtx); err != nil {
			rpcInfo.Connected = false
			rpcInfo.Error = err.Error()
			overallHealthy = false
		} else {
			rpcInfo.LatencyMs = float64(time.Since(start).Microseconds()) / 1000.0
		}
	}

	dbInfo := struct {
		Connected bool   `json:"connected"`
		Error     string `json:"error,omitempty"`
	}{Connected: true}

	if s.dbHealthFn != nil {
		dbCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
		if err := s.dbHealthFn(dbCtx); err != nil {
			dbInfo.Connected = false
			dbInfo.Error = err.Error()
			overallHealthy = false
		}
	}

	inFlight := 0
	for _, v := range s.market.Views() {
		if v.State.InFlight() {
			inFlight++
		}
	}

	status := "healthy"
	code := http.StatusOK
	if !overallHealthy {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, struct {
		Status   string      `json:"status"`
		RPC      interface{} `json:"rpc"`
		Database interface{} `json:"database"`
		InFlight int         `json:"in_flight"`
	}{
		Status:   status,
		RPC:      rpcInfo,
		Database: dbInfo,
		InFlight: inFlight,
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-Id") == "" {
			r.Header.Set("X-Request-Id", fmt.Sprintf("%d", time.Now().UnixNano()))
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("request_id", r.Header.Get("X-Request-Id")).
			Int("status", rec.status).
			Dur("took", time.Since(start)).
			Msg("request")
	})
}
