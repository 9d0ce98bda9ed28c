// Package web serves the dashboard over HTTP. Every interaction is an event
// applied to the caller's session; the page is then re-rendered from the
// session state.
package web

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/KaramelBytes/odap/internal/dataset"
	"github.com/KaramelBytes/odap/internal/insight"
	"github.com/KaramelBytes/odap/internal/logger"
	"github.com/KaramelBytes/odap/internal/pipeline"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

//go:embed templates/*.html
var templateFS embed.FS

// SessionCookie holds the session id.
const SessionCookie = "odap_session"

// Options configures the server.
type Options struct {
	Addr           string
	MaxUploadBytes int64
	SessionTTL     time.Duration
	Render         pipeline.Options
}

func (o Options) withDefaults() Options {
	if o.Addr == "" {
		o.Addr = ":8501"
	}
	if o.MaxUploadBytes <= 0 {
		o.MaxUploadBytes = 200 << 20
	}
	if o.SessionTTL <= 0 {
		o.SessionTTL = 2 * time.Hour
	}
	return o
}

// Server is the dashboard HTTP server.
type Server struct {
	router    chi.Router
	cache     *dataset.Cache
	insight   *insight.Requester
	sessions  *sessionStore
	metrics   *metrics
	templates *template.Template
	opt       Options
	log       *zap.Logger
}

// New wires the routes. cache and req must be non-nil.
func New(cache *dataset.Cache, req *insight.Requester, opt Options, log *zap.Logger) (*Server, error) {
	if cache == nil || req == nil {
		return nil, errors.New("web: cache and insight requester are required")
	}
	log = logger.OrNop(log)
	tmpl, err := template.ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	opt = opt.withDefaults()
	s := &Server{
		router:    chi.NewRouter(),
		cache:     cache,
		insight:   req,
		sessions:  newSessionStore(opt.SessionTTL),
		templates: tmpl,
		opt:       opt,
		log:       log,
	}
	s.metrics = newMetrics(cache, s.sessions)
	s.opt.Render.Logger = log
	s.opt.Render.Observe = s.metrics.observePanel

	s.setupMiddleware()
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.RequestID)
	s.router.Use(middleware.RealIP)
	s.router.Use(s.requestLogger)
	s.router.Use(middleware.Recoverer)
}

func (s *Server) setupRoutes() {
	s.router.Get("/", s.handleIndex)
	s.router.Post("/upload", s.handleUpload)
	s.router.Post("/filter", s.handleFilter)
	s.router.Post("/ask", s.handleAsk)
	s.router.Post("/reset", s.handleReset)
	s.router.Get("/api/page", s.handleAPIPage)
	s.router.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.opt.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()
	s.log.Info("dashboard listening", zap.String("addr", s.opt.Addr))

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		s.log.Info("shutting down dashboard")
		return srv.Shutdown(shutdownCtx)
	}
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		route := ""
		if rc := chi.RouteContext(r.Context()); rc != nil {
			route = rc.RoutePattern()
		}
		s.metrics.observeRequest(r.Method, route, status)
		s.log.Debug("http request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", status),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("took", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())))
	})
}

// session returns the caller's session, starting one when the cookie is
// missing or stale.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *Session {
	if c, err := r.Cookie(SessionCookie); err == nil {
		if sess, ok := s.sessions.get(c.Value); ok {
			return sess
		}
	}
	sess := s.sessions.create()
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sess.ID,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sess
}

func (s *Server) renderTemplate(w http.ResponseWriter, name string, data any) {
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.log.Error("template error", zap.String("template", name), zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}
