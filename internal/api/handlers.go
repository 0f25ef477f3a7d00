package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/trogers1052/gold-price-alerts/internal/alerting"
	"github.com/trogers1052/gold-price-alerts/internal/database"
	"github.com/trogers1052/gold-price-alerts/internal/models"
	"go.uber.org/zap"
)

// Store is the database access the handlers need directly
type Store interface {
	Ping(ctx context.Context) error
	GetLatestPriceSnapshot(ctx context.Context, metal string) (*models.PriceSnapshot, error)
}

// AlertService manages alerts on behalf of a device
type AlertService interface {
	CreateAlert(ctx context.Context, deviceToken string, target decimal.Decimal) (*models.Alert, error)
	ListAlerts(ctx context.Context, deviceToken string) ([]*models.Alert, error)
	DeleteAlert(ctx context.Context, deviceToken string, alertID int64) error
}

// PriceReader returns the live price
type PriceReader interface {
	Get() (models.LivePrice, bool)
}

// Handler holds dependencies for HTTP handlers
type Handler struct {
	db       Store
	alerts   AlertService
	live     PriceReader
	hub      *Hub
	metal    string
	currency string
	validate *validator.Validate
	logger   *zap.Logger
}

// NewHandler creates a new Handler
func NewHandler(db Store, alerts AlertService, live PriceReader, hub *Hub, metal, currency string, logger *zap.Logger) *Handler {
	return &Handler{
		db:       db,
		alerts:   alerts,
		live:     live,
		hub:      hub,
		metal:    metal,
		currency: currency,
		validate: validator.New(),
		logger:   logger,
	}
}

type createAlertRequest struct {
	DeviceToken string          `json:"device_token" validate:"required"`
	TargetPrice decimal.Decimal `json:"target_price"`
}

// LatestPrice handles GET /api/v1/price/latest
func (h *Handler) LatestPrice(w http.ResponseWriter, r *http.Request) {
	p, ok, err := h.currentPrice(r.Context())
	if err != nil {
		h.logger.Error("failed to read latest price", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "failed to read price")
		return
	}
	if !ok {
		respondError(w, http.StatusServiceUnavailable, "price not available yet")
		return
	}
	respondJSON(w, http.StatusOK, p)
}

// PriceStream handles GET /api/v1/price/stream
func (h *Handler) PriceStream(w http.ResponseWriter, r *http.Request) {
	var initial *models.LivePrice
	if p, ok := h.live.Get(); ok {
		initial = &p
	}
	h.hub.serve(w, r, initial)
}

// CreateAlert handles POST /api/v1/alerts
func (h *Handler) CreateAlert(w http.ResponseWriter, r *http.Request) {
	var req createAlertRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		respondError(w, http.StatusBadRequest, "device_token is required")
		return
	}

	alert, err := h.alerts.CreateAlert(r.Context(), req.DeviceToken, req.TargetPrice)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, alert)
}

// ListAlerts handles GET /api/v1/alerts?device_token=
func (h *Handler) ListAlerts(w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("device_token")
	if token == "" {
		respondError(w, http.StatusBadRequest, "device_token is required")
		return
	}

	alerts, err := h.alerts.ListAlerts(r.Context(), token)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, alerts)
}

// DeleteAlert handles DELETE /api/v1/alerts/{id}?device_token=
func (h *Handler) DeleteAlert(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid alert id")
		return
	}
	token := r.URL.Query().Get("device_token")
	if token == "" {
		respondError(w, http.StatusBadRequest, "device_token is required")
		return
	}

	if err := h.alerts.DeleteAlert(r.Context(), token, id); err != nil {
		h.respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// HealthCheck handles GET /health
func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		respondJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (h *Handler) currentPrice(ctx context.Context) (models.LivePrice, bool, error) {
	if p, ok := h.live.Get(); ok {
		return p, true, nil
	}

	snap, err := h.db.GetLatestPriceSnapshot(ctx, h.metal)
	if errors.Is(err, database.ErrNotFound) {
		return models.LivePrice{}, false, nil
	}
	if err != nil {
		return models.LivePrice{}, false, err
	}
	return snap.LivePrice(h.currency), true, nil
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, alerting.ErrInvalidAlert):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, database.ErrAlertExists):
		respondError(w, http.StatusConflict, "an active alert already exists for this device")
	case errors.Is(err, database.ErrNotFound):
		respondError(w, http.StatusNotFound, "alert not found")
	default:
		h.logger.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal error")
	}
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
