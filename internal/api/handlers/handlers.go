package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/dvloznov/finsight/internal/api/middleware"
	"github.com/dvloznov/finsight/internal/domain"
	"github.com/dvloznov/finsight/internal/engine"
	"github.com/dvloznov/finsight/internal/logger"
)

// InsightsHandler exposes the engine's public read API over HTTP. Handlers
// log through the request-scoped logger installed by middleware.Logger.
type InsightsHandler struct {
	engine *engine.Engine
}

// NewInsightsHandler creates a new insights handler.
func NewInsightsHandler(eng *engine.Engine) *InsightsHandler {
	return &InsightsHandler{engine: eng}
}

// Register mounts the handler's routes on the router.
func (h *InsightsHandler) Register(r *mux.Router) {
	r.HandleFunc("/api/users/{userId}/aggregate", h.GetAggregate).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/users/{userId}/insights", h.GetInsights).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/api/users/{userId}/transactions", h.GetTransactions).Methods(http.MethodGet, http.MethodOptions)
	r.HandleFunc("/healthz", h.Healthz).Methods(http.MethodGet)
}

// GetAggregate handles GET /api/users/{userId}/aggregate?period=month
func (h *InsightsHandler) GetAggregate(w http.ResponseWriter, r *http.Request) {
	userID, kind, ok := h.readParams(w, r)
	if !ok {
		return
	}

	result, err := h.engine.GetAggregate(r.Context(), userID, kind)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to compute aggregate")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to compute aggregate")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, result)
}

// GetInsights handles GET /api/users/{userId}/insights?period=month
func (h *InsightsHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	userID, kind, ok := h.readParams(w, r)
	if !ok {
		return
	}

	bundle, err := h.engine.GetInsights(r.Context(), userID, kind)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to generate insights")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to generate insights")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, bundle)
}

// GetTransactions handles GET /api/users/{userId}/transactions?period=month,
// returning the period's reconciled transaction list.
func (h *InsightsHandler) GetTransactions(w http.ResponseWriter, r *http.Request) {
	userID, kind, ok := h.readParams(w, r)
	if !ok {
		return
	}

	txs, err := h.engine.GetTransactions(r.Context(), userID, kind)
	if err != nil {
		log := logger.FromContext(r.Context())
		log.Error().Err(err).Str("user_id", userID).Msg("Failed to list transactions")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list transactions")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"transactions": txs,
		"count":        len(txs),
	})
}

// Healthz handles GET /healthz
func (h *InsightsHandler) Healthz(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *InsightsHandler) readParams(w http.ResponseWriter, r *http.Request) (string, domain.PeriodKind, bool) {
	userID := mux.Vars(r)["userId"]
	if userID == "" {
		middleware.WriteError(w, http.StatusBadRequest, "userId is required")
		return "", "", false
	}

	kind := domain.PeriodKind(r.URL.Query().Get("period"))
	if kind == "" {
		kind = domain.PeriodMonth
	}
	switch kind {
	case domain.PeriodDay, domain.PeriodWeek, domain.PeriodMonth, domain.PeriodYear:
	default:
		middleware.WriteError(w, http.StatusBadRequest, "period must be one of day, week, month, year")
		return "", "", false
	}

	return userID, kind, true
}
