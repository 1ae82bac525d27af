package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/rezdm/Argus/internal/domain"
	"github.com/rezdm/Argus/internal/httpapi/middleware"
	"github.com/rezdm/Argus/internal/monitor"
)

type Options struct {
	Title          string
	AllowedOrigins []string // empty: any origin
	RatePerMin     int      // per client on /api, 0 disables
	Burst          int
}

type Server struct {
	Logger   *zap.Logger
	Monitors *monitor.Registry
	opts     Options
}

func NewServer(l *zap.Logger, monitors *monitor.Registry, opts Options) *Server {
	if opts.Title == "" {
		opts.Title = "Argus"
	}
	return &Server{Logger: l, Monitors: monitors, opts: opts}
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(middleware.AccessLog(s.Logger))
	r.Use(chimw.Recoverer)
	r.Use(s.corsHandler())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	r.Get("/", s.handleDashboard)

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.RateLimit(s.opts.RatePerMin, s.opts.Burst))
		r.Get("/status", s.handleStatus)
		r.Get("/monitors/{key}", s.handleMonitor)
	})

	return r
}

func (s *Server) corsHandler() func(http.Handler) http.Handler {
	if len(s.opts.AllowedOrigins) == 0 {
		return cors.AllowAll().Handler
	}
	return cors.Handler(cors.Options{
		AllowedOrigins: s.opts.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	})
}

type monitorDetail struct {
	monitor.Snapshot
	History []domain.TestResult `json:"history"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Monitors.Snapshots())
}

func (s *Server) handleMonitor(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "key")
	if k, err := url.PathUnescape(key); err == nil {
		key = k
	}
	st, ok := s.Monitors.Get(key)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown monitor " + key})
		return
	}
	writeJSON(w, http.StatusOK, monitorDetail{Snapshot: st.Snapshot(), History: st.History()})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
