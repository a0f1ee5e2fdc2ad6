package http

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"time"

	"go-shorturl/internal/urlservice/domain"
	"go-shorturl/internal/urlservice/usecase"
	"go-shorturl/pkg/problemdetails"

	"github.com/go-chi/chi/v5"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

const readyTimeout = 2 * time.Second

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler handles HTTP requests for short URL operations
type Handler struct {
	service *usecase.ResolutionService
	baseURL string
	store   Pinger
	logger  *zap.Logger
}

// NewHandler creates a new Handler
func NewHandler(service *usecase.ResolutionService, baseURL string, store Pinger, logger *zap.Logger) *Handler {
	return &Handler{
		service: service,
		baseURL: baseURL,
		store:   store,
		logger:  logger,
	}
}

// CreateShortURLRequest is the body of POST /shorturls
type CreateShortURLRequest struct {
	Original  string `json:"original"`
	ShortCode string `json:"shortcode,omitempty"`
	Expiry    string `json:"expiry,omitempty"`
}

// CreateShortURLResponse is returned with 201 Created
type CreateShortURLResponse struct {
	ShortCode string    `json:"shortcode"`
	Original  string    `json:"original"`
	Expiry    time.Time `json:"expiry"`
	Created   time.Time `json:"created"`
	ShortLink string    `json:"shortLink"`
}

// ClickLogResponse is one element of StatsResponse.ClickLogs
type ClickLogResponse struct {
	Time     time.Time `json:"time"`
	Referrer string    `json:"referrer"`
	Origin   string    `json:"origin"`
	Source   string    `json:"source"`
	Device   string    `json:"device"`
}

// StatsResponse is the full record of a short URL
type StatsResponse struct {
	ShortCode string             `json:"shortcode"`
	Original  string             `json:"original"`
	Created   time.Time          `json:"created"`
	Expiry    time.Time          `json:"expiry"`
	Clicks    int64              `json:"clicks"`
	ClickLogs []ClickLogResponse `json:"clickLogs"`
}

// CreateShortURL handles POST /shorturls
func (h *Handler) CreateShortURL(w http.ResponseWriter, r *http.Request) {
	var req CreateShortURLRequest

	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		problem := problemdetails.New(
			http.StatusBadRequest,
			problemdetails.TypeInvalidRequest,
			"Invalid Request",
			"Request body must be valid JSON with an 'original' field",
		)
		writeProblem(w, problem)
		return
	}

	in := usecase.CreateInput{Original: req.Original, ShortCode: req.ShortCode}
	if req.Expiry != "" {
		expiry, err := parseExpiry(req.Expiry)
		if err != nil {
			writeProblem(w, problemdetails.NewValidation([]problemdetails.FieldError{
				{Field: "expiry", Message: "must be an RFC3339 timestamp or a YYYY-MM-DD date"},
			}))
			return
		}
		in.Expiry = &expiry
	}

	entry, err := h.service.Create(r.Context(), in)
	if err != nil {
		writeProblem(w, problemFor(err).WithInstance(r.URL.Path))
		return
	}

	writeJSON(w, http.StatusCreated, CreateShortURLResponse{
		ShortCode: entry.Code,
		Original:  entry.Target,
		Expiry:    entry.ExpiresAt,
		Created:   entry.CreatedAt,
		ShortLink: h.baseURL + "/" + entry.Code,
	})
}

// parseExpiry accepts RFC3339 timestamps and bare dates, which mean
// midnight UTC.
func parseExpiry(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		return t, nil
	}
	return time.Parse(time.DateOnly, raw)
}

// Stats handles GET /shorturls/{code}
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")

	entry, err := h.service.Stats(r.Context(), code)
	if err != nil {
		writeProblem(w, problemFor(err).WithInstance(r.URL.Path))
		return
	}

	writeJSON(w, http.StatusOK, StatsResponse{
		ShortCode: entry.Code,
		Original:  entry.Target,
		Created:   entry.CreatedAt,
		Expiry:    entry.ExpiresAt,
		Clicks:    entry.ClickCount,
		ClickLogs: lo.Map(entry.ClickLog, func(c domain.ClickEvent, _ int) ClickLogResponse {
			return ClickLogResponse{
				Time:     c.Time,
				Referrer: c.Referrer,
				Origin:   c.Origin,
				Source:   c.Source,
				Device:   c.Device,
			}
		}),
	})
}

// Redirect handles GET /{code}
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	entry, err := h.service.Resolve(r.Context(), usecase.ResolveInput{
		Code:      chi.URLParam(r, "code"),
		Referrer:  r.Header.Get("Referer"),
		Origin:    clientIP(r),
		UserAgent: r.Header.Get("User-Agent"),
	})
	if err != nil {
		writeProblem(w, problemFor(err).WithInstance(r.URL.Path))
		return
	}

	// Every hit has to reach us to be counted.
	w.Header().Set("Cache-Control", "no-store")
	http.Redirect(w, r, entry.Target, http.StatusTemporaryRedirect)
}

// clientIP strips the port from RemoteAddr, which RealIP may already have
// replaced with a forwarded address.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// HealthResponse represents health check response
type HealthResponse struct {
	Status string `json:"status"`
	Reason string `json:"reason,omitempty"`
}

// Healthz handles GET /healthz (liveness probe)
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}

// Readyz handles GET /readyz (readiness probe)
func (h *Handler) Readyz(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), readyTimeout)
	defer cancel()

	if err := h.store.Ping(ctx); err != nil {
		h.logger.Warn("readiness check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
			Status: "unavailable",
			Reason: "store unavailable: " + err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "ready"})
}
