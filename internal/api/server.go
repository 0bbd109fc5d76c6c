// Package api exposes the indicator engine over HTTP.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"StockLens/internal/collector"
	"StockLens/internal/indicator"
	"StockLens/internal/recorder"
	"StockLens/internal/strategy"
)

// MetricsSource is what the server needs from the metrics package.
type MetricsSource interface {
	RequestObserver
	Handler() http.Handler
}

// Server holds the collaborators behind the HTTP handlers.
type Server struct {
	collector *collector.Collector
	registry  *indicator.Registry
	detector  *strategy.Detector
	recorder  recorder.Recorder
	metrics   MetricsSource
	log       zerolog.Logger
	logAll    bool
	now       func() time.Time
}

// Option customizes a Server.
type Option func(*Server)

// WithMetrics instruments every request and serves /metrics.
func WithMetrics(m MetricsSource) Option {
	return func(s *Server) { s.metrics = m }
}

// WithRecorder enables the signal history endpoint.
func WithRecorder(r recorder.Recorder) Option {
	return func(s *Server) { s.recorder = r }
}

// WithRequestLogging logs every request instead of only failed ones.
func WithRequestLogging(all bool) Option {
	return func(s *Server) { s.logAll = all }
}

// NewServer creates a Server.
func NewServer(col *collector.Collector, reg *indicator.Registry, det *strategy.Detector, log zerolog.Logger, opts ...Option) *Server {
	s := &Server{
		collector: col,
		registry:  reg,
		detector:  det,
		log:       log,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the gin engine with middleware and routes installed.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), LoggerMiddleware(s.log, s.logAll), CORSMiddleware())
	if s.metrics != nil {
		r.Use(MetricsMiddleware(s.metrics))
	}
	s.SetupRoutes(r)
	return r
}

// SetupRoutes registers the HTTP routes on r.
func (s *Server) SetupRoutes(r *gin.Engine) {
	r.GET("/", s.index)
	if s.metrics != nil {
		r.GET("/metrics", gin.WrapH(s.metrics.Handler()))
	}

	api := r.Group("/api")
	{
		api.GET("/health", s.health)
		api.GET("/indicators/config", s.indicatorConfig)
		api.GET("/data", s.stockData)
		api.GET("/signals", s.signals)
		api.GET("/report/markdown", s.reportMarkdown)
		if s.recorder != nil {
			api.GET("/signals/history", s.signalHistory)
		}
	}
}
