package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"rdr-dashboard/backend"
	"rdr-dashboard/cache"
	"rdr-dashboard/config"
	redisClient "rdr-dashboard/redis"
)

const (
	healthTimeout         = 2 * time.Second
	loadingRefreshSeconds = 2
	defaultPageWait       = 5 * time.Second
)

// DashboardHandler serves the dashboard screens and their JSON mirror
type DashboardHandler struct {
	client   *backend.Client
	cache    *cache.Tiered
	redis    *redis.Client
	config   config.Config
	baseURL  string
	pages    map[string]*template.Template
	pageWait time.Duration
	now      func() time.Time
}

// NewDashboardHandler creates the handler. responseCache and rdb may be nil.
func NewDashboardHandler(client *backend.Client, responseCache *cache.Tiered, rdb *redis.Client, cfg config.Config) (*DashboardHandler, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}

	// Use configured base_url if provided, otherwise construct from scheme, IP, and port
	baseURL := cfg.WebServer.BaseURL
	if baseURL == "" {
		baseURL = fmt.Sprintf("%s://%s:%s", cfg.WebServer.Scheme, cfg.WebServer.IP, cfg.WebServer.Port)
	}

	pageWait := time.Duration(cfg.Display.PageWaitSeconds) * time.Second
	if pageWait <= 0 {
		pageWait = defaultPageWait
	}

	return &DashboardHandler{
		client:   client,
		cache:    responseCache,
		redis:    rdb,
		config:   cfg,
		baseURL:  baseURL,
		pages:    pages,
		pageWait: pageWait,
		now:      time.Now,
	}, nil
}

// Register mounts every route of the dashboard on r
func (h *DashboardHandler) Register(r *mux.Router) {
	r.HandleFunc("/health", h.HealthCheck).Methods(http.MethodGet)
	r.HandleFunc("/cache/metrics", h.CacheMetrics).Methods(http.MethodGet)
	r.HandleFunc("/qr", h.ShareQR).Methods(http.MethodGet)

	h.screens(r.PathPrefix(apiPrefix).Subrouter(), true)
	h.screens(r, false)
}

func (h *DashboardHandler) screens(r *mux.Router, api bool) {
	r.HandleFunc("/", serveScreen(h, rootScreen, api)).Methods(http.MethodGet)
	r.HandleFunc("/sets", serveScreen(h, setsScreen, api)).Methods(http.MethodGet)
	r.HandleFunc("/aliases", serveScreen(h, aliasesScreen, api)).Methods(http.MethodGet)
	r.HandleFunc("/{kind:rdrsets|machines|rcms}/{param}", serveScreen(h, rdrListScreen, api)).Methods(http.MethodGet)
	r.HandleFunc("/rdrs/{param}", serveScreen(h, detailsScreen, api)).Methods(http.MethodGet)
}

// render executes a page template into a buffer first so a template error
// still yields a clean 500.
func (h *DashboardHandler) render(w http.ResponseWriter, status int, name string, data interface{}) {
	tmpl, ok := h.pages[name]
	if !ok {
		log.Error().Str("template", name).Msg("Unknown page template")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "base", data); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to render page")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Error().Err(err).Str("template", name).Msg("Failed to write page")
	}
}

// HealthResponse reports the reachability of the dashboard's dependencies
type HealthResponse struct {
	Status       string `json:"status"`
	Backend      string `json:"backend"`
	BackendError string `json:"backend_error,omitempty"`
	Redis        string `json:"redis"`
	Cache        string `json:"cache"`
}

// HealthCheck handles GET /health
// @Summary Health check
// @Description Probes the backend (bypassing the response cache) and redis
// @Tags System
// @Produce json
// @Success 200 {object} HealthResponse "Backend reachable"
// @Failure 503 {object} HealthResponse "Backend unreachable"
// @Router /health [get]
func (h *DashboardHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	resp := HealthResponse{Status: "healthy", Backend: "reachable", Redis: "disabled", Cache: "disabled"}
	status := http.StatusOK

	if err := h.client.Ping(ctx); err != nil {
		log.Error().Err(err).Msg("Backend health check failed")
		resp.Status = "unhealthy"
		resp.Backend = "unreachable"
		resp.BackendError = backend.Message(err)
		status = http.StatusServiceUnavailable
	}

	if h.redis != nil {
		resp.Redis = "connected"
		if err := redisClient.Ping(ctx, h.redis, healthTimeout); err != nil {
			log.Warn().Err(err).Msg("Redis health check failed")
			resp.Redis = "unavailable"
			if status == http.StatusOK {
				resp.Status = "degraded"
			}
		}
	}

	if h.cache != nil && h.cache.Local() != nil {
		resp.Cache = "enabled"
	}

	SendJSON(w, status, resp)
}

// CacheMetrics handles GET /cache/metrics
// @Summary Cache performance metrics
// @Description Returns the in-process response cache counters
// @Tags System
// @Produce json
// @Success 200 {object} cache.MetricsSnapshot "Cache metrics"
// @Failure 503 {object} ErrorResponse "Cache is disabled"
// @Router /cache/metrics [get]
func (h *DashboardHandler) CacheMetrics(w http.ResponseWriter, r *http.Request) {
	if !h.config.Cache.Enabled || h.cache == nil || h.cache.Local() == nil {
		SendJSONError(w, http.StatusServiceUnavailable, errors.New("cache is disabled"), "")
		return
	}

	SendJSON(w, http.StatusOK, h.cache.Local().GetMetricsSnapshot())
}
