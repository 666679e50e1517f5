package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"poolScope/internal/model"
)

// Querier answers the pool queries.
type Querier interface {
	LatestPools(ctx context.Context) model.PoolsResponse
	CreatorPools(ctx context.Context, creator common.Address) model.CreatorSummary
}

// Handler holds the dependencies for API handlers
type Handler struct {
	Pools  Querier
	Logger *zap.Logger
}

func NewHandler(pools Querier, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{Pools: pools, Logger: logger}
}

// NewRouter creates and configures the HTTP router with all API routes
func (h *Handler) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(h.Recover)

	r.HandleFunc("/health", h.HandleHealth).Methods(http.MethodGet)
	r.HandleFunc("/pools", h.HandleLatestPools).Methods(http.MethodGet)
	r.HandleFunc("/creator/{address}/pools", h.HandleCreatorPools).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)

	return r
}

// Recover turns a handler panic into a generic 500.
func (h *Handler) Recover(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				h.Logger.Error("handler panic", zap.String("path", r.URL.Path), zap.Any("panic", rec))
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleLatestPools always answers 200, possibly with an empty list.
func (h *Handler) HandleLatestPools(w http.ResponseWriter, r *http.Request) {
	resp := h.Pools.LatestPools(r.Context())
	if resp.Pools == nil {
		resp.Pools = []model.EnrichedPool{}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) HandleCreatorPools(w http.ResponseWriter, r *http.Request) {
	raw := mux.Vars(r)["address"]
	if !common.IsHexAddress(raw) || !strings.HasPrefix(strings.ToLower(raw), "0x") {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid address"})
		return
	}

	summary := h.Pools.CreatorPools(r.Context(), common.HexToAddress(raw))
	summary.Creator = strings.ToLower(summary.Creator)
	if summary.Pools == nil {
		summary.Pools = []model.CreatorPool{}
	}
	writeJSON(w, http.StatusOK, summary)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
