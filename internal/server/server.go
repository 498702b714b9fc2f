// Package server exposes the detection pipeline over HTTP.
package server

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/crimson-sun/vigil/internal/extract"
	"github.com/crimson-sun/vigil/internal/feedback"
	"github.com/crimson-sun/vigil/internal/history"
	"github.com/crimson-sun/vigil/internal/logging"
	"github.com/crimson-sun/vigil/internal/metrics"
	"github.com/crimson-sun/vigil/internal/pipeline"
	"github.com/crimson-sun/vigil/internal/scorer"
)

// TrainerConfig carries the settings retraining needs.
type TrainerConfig struct {
	FeatureNames []string
	ZThreshold   float64
	ModelPath    string
}

// Server routes HTTP requests to the pipeline and its stores.
type Server struct {
	pipe      *pipeline.Pipeline
	hist      *history.Store
	extractor *extract.Extractor
	model     *scorer.Swappable
	feedback  *feedback.Store
	trainer   TrainerConfig
	log       zerolog.Logger
}

// New creates a Server over the given stages.
func New(pipe *pipeline.Pipeline, hist *history.Store, ex *extract.Extractor, model *scorer.Swappable, fb *feedback.Store, trainer TrainerConfig) *Server {
	return &Server{
		pipe:      pipe,
		hist:      hist,
		extractor: ex,
		model:     model,
		feedback:  fb,
		trainer:   trainer,
		log:       logging.Component("server"),
	}
}

// Router builds the HTTP routing table.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.observe)

	r.HandleFunc("/stream/multi-source", s.handleStream).Methods(http.MethodPost)
	r.HandleFunc("/anomalies", s.handleAnomalies).Methods(http.MethodGet)
	r.HandleFunc("/anomalies", s.handleClearAnomalies).Methods(http.MethodDelete)
	r.HandleFunc("/train", s.handleTrain).Methods(http.MethodPost)
	r.HandleFunc("/feedback", s.handleFeedback).Methods(http.MethodPost)
	r.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)
	r.Handle("/metrics", promhttp.Handler()).Methods(http.MethodGet)
	return r
}

// observe records request latency per route template.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)

		endpoint := r.URL.Path
		if route := mux.CurrentRoute(r); route != nil {
			if tmpl, err := route.GetPathTemplate(); err == nil {
				endpoint = tmpl
			}
		}
		metrics.RequestDuration.WithLabelValues(r.Method, endpoint).Observe(time.Since(start).Seconds())
	})
}
