package main

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Simplici0/o.quote/internal/catalog"
	"github.com/Simplici0/o.quote/internal/metrics"
	"github.com/Simplici0/o.quote/internal/pricing"
	"github.com/Simplici0/o.quote/internal/quotes"
)

type server struct {
	db      *sql.DB
	catalog *catalog.Store
	quotes  *quotes.Store
	engine  *pricing.Engine
	metrics *metrics.Recorder
	log     *zap.Logger
}

// routes builds the router. A nil registry disables /metrics.
func (s *server) routes(registry *prometheus.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealth)
	if registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(registry, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/materials", s.handleMaterialsList)
		r.Post("/materials", s.handleMaterialsUpsert)
		r.Get("/materials/{code}", s.handleMaterialGet)

		r.Get("/processes", s.handleProcessesList)
		r.Post("/processes", s.handleProcessesUpsert)
		r.Get("/processes/{code}", s.handleProcessGet)

		r.Get("/defaults", s.handleDefaultsGet)
		r.Put("/defaults", s.handleDefaultsUpdate)

		r.Post("/quotes/compute", s.handleQuoteCompute)
		r.Post("/quotes/calc", s.handleQuoteCalc)
		r.Post("/quotes", s.handleQuoteSave)
		r.Get("/quotes", s.handleQuotesList)
		r.Get("/quotes/{id}", s.handleQuoteGet)
		r.Get("/quotes/{id}/text", s.handleQuoteText)
	})

	return r
}

func (s *server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		s.log.Debug("request",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Int("bytes", ww.BytesWritten()),
			zap.Duration("duration", time.Since(start)),
			zap.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.db.PingContext(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "database unavailable")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// compute runs the engine and records the outcome.
func (s *server) compute(in pricing.QuoteInput) pricing.Result {
	start := time.Now()
	res := s.engine.Compute(in)
	s.observe(res, time.Since(start))
	return res
}

func (s *server) observe(res pricing.Result, elapsed time.Duration) {
	s.metrics.ObserveCompute(res, elapsed)
	if !res.OK() {
		s.log.Debug("quote computed with issues",
			zap.Int("lot_size", res.Totals.LotSize),
			zap.Int("issues", len(res.Issues)),
			zap.Duration("duration", elapsed),
		)
	}
}
