// Package trackhttp — REST-слой поверх сервиса трекинга.
package trackhttp

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pkg/errors"

	"github.com/qrmint/scantrack/internal/models"
	"github.com/qrmint/scantrack/internal/services/tracking"
)

type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int64, window time.Duration) (bool, int64, error)
}

type API struct {
	svc *tracking.Service

	rl          RateLimiter
	rlPerMinute int64

	log *slog.Logger
}

func New(svc *tracking.Service) *API {
	return &API{svc: svc, log: slog.Default()}
}

// WithRateLimiter включает анти-флуд по IP источника на эндпоинтах скана.
func (a *API) WithRateLimiter(rl RateLimiter, perMinute int64) *API {
	if rl != nil && perMinute > 0 {
		a.rl = rl
		a.rlPerMinute = perMinute
	}
	return a
}

func (a *API) Routes(r chi.Router) {
	r.Put("/track", a.handleMint)
	r.Get("/track/{id}", a.handleRedirect)
	r.Post("/track", a.handleRecord)
	r.Get("/analytics", a.handleAnalytics)
	r.Get("/dashboard", a.handleDashboard)
	r.Get("/dashboard/summary", a.handleDashboardSummary)
}

type mintRequest struct {
	OriginalURL string                   `json:"originalUrl"`
	OwnerID     string                   `json:"ownerId"`
	AppStore    *models.AppStoreConfig   `json:"appStoreRouting"`
	UsageLimit  *models.UsageLimitConfig `json:"usageLimit"`
}

type mintResponse struct {
	TrackingID  string `json:"trackingId"`
	TrackingURL string `json:"trackingUrl"`
	OriginalURL string `json:"originalUrl"`
}

func (a *API) handleMint(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, models.NewValidationError("invalid json body"))
		return
	}

	rec, err := a.svc.Mint(r.Context(), models.TrackingCreateInput{
		OriginalURL: req.OriginalURL,
		OwnerID:     req.OwnerID,
		AppStore:    req.AppStore,
		UsageLimit:  req.UsageLimit,
	})
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusCreated, mintResponse{
		TrackingID:  rec.ID,
		TrackingURL: a.svc.TrackingURL(rec.ID),
		OriginalURL: rec.OriginalURL,
	})
}

type redirectResponse struct {
	DestinationURL string                   `json:"destinationUrl"`
	TrackingID     string                   `json:"trackingId"`
	AppStore       *models.AppStoreConfig   `json:"appStoreRouting,omitempty"`
	UsageLimit     *models.UsageLimitConfig `json:"usageLimit,omitempty"`
	DeviceDetected models.DeviceInfo        `json:"deviceDetected"`
}

func (a *API) handleRedirect(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	ip := sourceIP(r)
	if !a.allowScan(r.Context(), w, ip) {
		return
	}

	res, err := a.svc.RecordScan(r.Context(), id, r.UserAgent(), ip)
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, redirectResponse{
		DestinationURL: res.DestinationURL,
		TrackingID:     id,
		AppStore:       res.AppStore,
		UsageLimit:     res.UsageLimit,
		DeviceDetected: res.Device,
	})
}

type recordRequest struct {
	TrackingID string `json:"trackingId"`
	UserAgent  string `json:"userAgent"`
	IP         string `json:"ip"`
}

type recordResponse struct {
	Success     bool                     `json:"success"`
	OriginalURL string                   `json:"originalUrl"`
	AppStore    *models.AppStoreConfig   `json:"appStoreRouting,omitempty"`
	UsageLimit  *models.UsageLimitConfig `json:"usageLimit,omitempty"`
}

// handleRecord — server-to-server вариант скана: метаданные приходят в теле,
// а не из заголовков запроса.
func (a *API) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req recordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		a.writeError(w, models.NewValidationError("invalid json body"))
		return
	}
	if req.TrackingID == "" {
		a.writeError(w, models.NewValidationError("trackingId is required"))
		return
	}
	if !a.allowScan(r.Context(), w, req.IP) {
		return
	}

	res, err := a.svc.RecordScan(r.Context(), req.TrackingID, req.UserAgent, req.IP)
	if err != nil {
		a.writeError(w, err)
		return
	}

	a.writeJSON(w, http.StatusOK, recordResponse{
		Success:     true,
		OriginalURL: res.OriginalURL,
		AppStore:    res.AppStore,
		UsageLimit:  res.UsageLimit,
	})
}

func (a *API) handleAnalytics(w http.ResponseWriter, r *http.Request) {
	sum, err := a.svc.Analytics(r.Context(), r.URL.Query().Get("trackingId"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, sum)
}

func (a *API) handleDashboard(w http.ResponseWriter, r *http.Request) {
	rows, err := a.svc.Dashboard(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, rows)
}

func (a *API) handleDashboardSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := a.svc.DashboardSummary(r.Context(), r.URL.Query().Get("userId"))
	if err != nil {
		a.writeError(w, err)
		return
	}
	a.writeJSON(w, http.StatusOK, sum)
}

// allowScan прогоняет IP через анти-флуд. Недоступный Redis не блокирует
// сканы: лимитер best effort.
func (a *API) allowScan(ctx context.Context, w http.ResponseWriter, ip string) bool {
	if a.rl == nil || ip == "" || ip == "unknown" {
		return true
	}
	ok, n, err := a.rl.Allow(ctx, "rl:scan:"+ip, a.rlPerMinute, time.Minute)
	if err != nil {
		a.log.Warn("scan rate limiter unavailable", "err", err)
		return true
	}
	if !ok {
		a.log.Info("scan rate limited", "ip", ip, "count", n)
		a.writeJSON(w, http.StatusTooManyRequests, map[string]any{"error": "too many requests"})
		return false
	}
	return true
}

func sourceIP(r *http.Request) string {
	if v := r.Header.Get("x-forwarded-for"); v != "" {
		if i := strings.IndexByte(v, ','); i >= 0 {
			v = v[:i]
		}
		return strings.TrimSpace(v)
	}
	if v := r.Header.Get("x-real-ip"); v != "" {
		return v
	}
	return "unknown"
}

func (a *API) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		a.log.Error("write response", "err", err)
	}
}

func (a *API) writeError(w http.ResponseWriter, err error) {
	var verr *models.ValidationError
	if errors.As(err, &verr) {
		a.writeJSON(w, http.StatusBadRequest, map[string]any{"error": verr.Msg})
		return
	}

	var nf *models.NotFoundError
	if errors.As(err, &nf) {
		a.writeJSON(w, http.StatusNotFound, map[string]any{"error": nf.Error()})
		return
	}

	var lim *models.LimitExceededError
	if errors.As(err, &lim) {
		a.writeJSON(w, http.StatusTooManyRequests, map[string]any{
			"limitExceeded": true,
			"maxScans":      lim.MaxScans,
			"currentScans":  lim.CurrentScans,
			"error":         lim.Error(),
		})
		return
	}

	a.log.Error("internal error", "err", err)
	a.writeJSON(w, http.StatusInternalServerError, map[string]any{"error": "internal error"})
}
