package http

import (
	"context"
	"encoding/json"
	"fmt"
	nethttp "net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"samadhi-report-ui/internal/config"
	"samadhi-report-ui/internal/connectors/catalog"
	"samadhi-report-ui/internal/connectors/statsfile"
	"samadhi-report-ui/internal/render"
	"samadhi-report-ui/internal/report"
)

const requestIDHeader = "X-Request-ID"

// Deps are the collaborators the route handlers share. Cache and Catalog are
// optional.
type Deps struct {
	Log      zerolog.Logger
	Loader   *statsfile.Loader
	Theme    *report.Theme
	HTML     *render.HTML
	Cache    *statsfile.RedisCache
	Catalog  *catalog.Store
	DataDir  string
	Generate catalog.Options
}

// Server wraps an HTTP server and route handlers.
type Server struct {
	httpServer *nethttp.Server
	cache      *statsfile.RedisCache
	catalog    *catalog.Store
}

// NewServer wires the statistics source, optional cache and catalogue
// database from cfg and builds the HTTP server.
func NewServer(cfg config.Config, log zerolog.Logger) (*Server, error) {
	pages, err := report.LoadCatalogFile(cfg.PagesFile)
	if err != nil {
		return nil, err
	}
	theme, err := report.NewTheme(cfg.Palette)
	if err != nil {
		return nil, err
	}
	html, err := render.NewHTML(cfg.CDNBase)
	if err != nil {
		return nil, err
	}

	var source statsfile.Source = statsfile.NewDirSource(cfg.DataDir)
	if src := statsfile.NewHTTPSource(cfg.DataURL, cfg.FetchTimeout); src.Enabled() {
		source = src
	}
	var cache *statsfile.RedisCache
	if cfg.RedisEnabled {
		cache = statsfile.NewRedisCache(statsfile.RedisOptions{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		source = statsfile.NewCachedSource(source, cache, cfg.RedisTTL, log)
	}
	var store *catalog.Store
	if cfg.CatalogEnabled {
		store, err = catalog.NewStore(cfg)
		if err != nil {
			if cache != nil {
				_ = cache.Close()
			}
			return nil, fmt.Errorf("open catalogue database: %w", err)
		}
	}

	loader := statsfile.NewLoader(source, pages, log)
	loader.OnLoad(recordStatisticsLoad)

	handler := NewHandler(Deps{
		Log:     log,
		Loader:  loader,
		Theme:   theme,
		HTML:    html,
		Cache:   cache,
		Catalog: store,
		DataDir: cfg.DataDir,
		Generate: catalog.Options{
			PreviousDir: cfg.DataDir,
		},
	})

	httpServer := &nethttp.Server{
		Addr:         cfg.ListenAddr,
		Handler:      handler,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return &Server{httpServer: httpServer, cache: cache, catalog: store}, nil
}

// NewHandler builds the router.
func NewHandler(d Deps) nethttp.Handler {
	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(d.Log))
	r.Use(middleware.Recoverer)
	r.Use(observabilityMiddleware)

	r.Get("/", indexHandler(d))
	r.Get("/favicon.ico", faviconHandler)
	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(d))
	r.Method(nethttp.MethodGet, "/metrics", metricsHandler())

	r.Get("/reports/{type}", reportPageHandler(d))
	r.Get("/reports/{type}/echarts", echartsHandler(d))

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/pages", pagesHandler(d))
		r.Get("/reports/{type}", reportAPIHandler(d))
		r.Get("/reports/{type}/export.xlsx", exportHandler(d))
		r.Post("/catalog/generate", generateHandler(d))
		r.Get("/status/services", servicesStatusHandler(d))
		r.Get("/metrics/app", appMetricsSummaryHandler())
	})

	r.NotFound(func(w nethttp.ResponseWriter, _ *nethttp.Request) {
		writeJSON(w, nethttp.StatusNotFound, map[string]any{"error": "not found"})
	})
	return r
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the HTTP server and closes the optional backends.
func (s *Server) Shutdown(ctx context.Context) error {
	err := s.httpServer.Shutdown(ctx)
	if s.catalog != nil {
		_ = s.catalog.Close()
	}
	if s.cache != nil {
		_ = s.cache.Close()
	}
	return err
}

func healthHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	writeJSON(w, nethttp.StatusOK, map[string]any{
		"status": "ok",
		"time":   time.Now().UTC(),
	})
}

// readyHandler reports ready once the general statistics document is
// reachable.
func readyHandler(d Deps) nethttp.HandlerFunc {
	return func(w nethttp.ResponseWriter, r *nethttp.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
		defer cancel()

		if _, err := d.Loader.LoadGeneral(ctx); err != nil {
			writeJSON(w, nethttp.StatusServiceUnavailable, map[string]any{
				"status": "not_ready",
				"error":  err.Error(),
			})
			return
		}
		writeJSON(w, nethttp.StatusOK, map[string]any{
			"status": "ready",
		})
	}
}

func faviconHandler(w nethttp.ResponseWriter, _ *nethttp.Request) {
	w.WriteHeader(nethttp.StatusNoContent)
}

// requestIDMiddleware keeps a caller supplied request id or assigns a new one.
func requestIDMiddleware(next nethttp.Handler) nethttp.Handler {
	return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(log zerolog.Logger) func(nethttp.Handler) nethttp.Handler {
	return func(next nethttp.Handler) nethttp.Handler {
		return nethttp.HandlerFunc(func(w nethttp.ResponseWriter, r *nethttp.Request) {
			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w, status: nethttp.StatusOK}
			reqLog := log.With().Str("request_id", r.Header.Get(requestIDHeader)).Logger()
			next.ServeHTTP(rec, r.WithContext(reqLog.WithContext(r.Context())))

			ev := reqLog.Info()
			if rec.status >= nethttp.StatusInternalServerError {
				ev = reqLog.Warn()
			}
			ev.Str("method", r.Method).
				Str("path", r.URL.Path).
				Int("status", rec.status).
				Dur("duration", time.Since(start)).
				Msg("request")
		})
	}
}

// writeJSON encodes before writing the header so an unencodable payload turns
// into a 500 instead of an empty 200.
func writeJSON(w nethttp.ResponseWriter, code int, payload any) {
	body, err := json.Marshal(payload)
	if err != nil {
		code = nethttp.StatusInternalServerError
		body, _ = json.Marshal(map[string]any{"error": "response could not be encoded"})
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = w.Write(append(body, '\n'))
}
