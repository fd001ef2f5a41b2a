// Package api serves the logo hunt HTTP surface.
package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"github.com/yourorg/logohunt-service/internal/candidates"
	"github.com/yourorg/logohunt-service/internal/circuitbreaker"
	"github.com/yourorg/logohunt-service/internal/collection"
	"github.com/yourorg/logohunt-service/internal/model"
	"github.com/yourorg/logohunt-service/internal/observability"
	"github.com/yourorg/logohunt-service/internal/otel"
)

// Version is reported by /health and /status
const Version = "1.0.0"

const serviceName = "Logo Hunt Backend"

// Collector runs the collect write path
type Collector interface {
	Collect(ctx context.Context, req collection.Request) (model.CollectResult, error)
}

// StatsReader reads the merged counters of all chains
type StatsReader interface {
	Chains() []string
	GlobalStats(ctx context.Context) (model.StatsView, error)
	UserStats(ctx context.Context, wallet common.Address) (model.StatsView, error)
}

// Ranker builds the leaderboard for a candidate list
type Ranker interface {
	Build(ctx context.Context, candidates []common.Address, topN int) ([]model.PlayerEntry, int, error)
}

// Options configures a Server
type Options struct {
	Port             string
	LeaderboardSize  int
	RateLimitRPS     float64
	RateLimitBurst   int
	WriteTimeout     time.Duration
	Registerer       prometheus.Registerer
	MetricsHandler   http.Handler
	Breakers         *circuitbreaker.Set
	CandidateSources candidates.Source
}

// Server represents the HTTP server instance
type Server struct {
	opts Options

	collector   Collector
	stats       StatsReader
	leaderboard Ranker

	server    *http.Server
	metrics   *serverMetrics
	rateLimit *rate.Limiter
	startTime time.Time
}

// NewServer creates a Server. A nil Registerer uses the default registry.
func NewServer(opts Options, collector Collector, stats StatsReader, ranker Ranker) *Server {
	if opts.Registerer == nil {
		opts.Registerer = prometheus.DefaultRegisterer
	}
	if opts.MetricsHandler == nil {
		opts.MetricsHandler = observability.Handler()
	}
	if opts.LeaderboardSize <= 0 {
		opts.LeaderboardSize = 10
	}
	if opts.CandidateSources == nil {
		opts.CandidateSources = candidates.NewMulti()
	}
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = 15 * time.Second
	}

	s := &Server{
		opts:        opts,
		collector:   collector,
		stats:       stats,
		leaderboard: ranker,
		metrics:     registerMetrics(opts.Registerer),
		startTime:   time.Now(),
	}
	if opts.RateLimitRPS > 0 {
		s.rateLimit = rate.NewLimiter(rate.Limit(opts.RateLimitRPS), opts.RateLimitBurst)
	}

	logrus.WithFields(logrus.Fields{
		"port":             opts.Port,
		"leaderboard_size": opts.LeaderboardSize,
		"rate_limit_rps":   opts.RateLimitRPS,
		"rate_limit_burst": opts.RateLimitBurst,
		"chains":           stats.Chains(),
	}).Info("Server initialized")

	return s
}

// Handler returns the router with every endpoint registered
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("/collect-logo", s.instrument("collect_logo", s.handleCollectLogo))
	mux.Handle("/check-collection", s.instrument("check_collection", s.handleCheckCollection))
	mux.Handle("/global-stats", s.instrument("global_stats", s.handleGlobalStats))
	mux.Handle("/leaderboard", s.instrument("leaderboard", s.handleLeaderboard))
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/status", s.handleStatus)
	mux.HandleFunc("/circuit", s.handleCircuitStatus)
	mux.Handle("/metrics", s.opts.MetricsHandler)

	return mux
}

// Start serves until Shutdown is called
func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:        ":" + s.opts.Port,
		Handler:     s.Handler(),
		ReadTimeout: 15 * time.Second,
		// a collect blocks until its transaction confirms
		WriteTimeout: s.opts.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	logrus.Infof("Server starting on port %s", s.opts.Port)
	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

// statusRecorder captures the status code written by a handler
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) instrument(endpoint string, next http.HandlerFunc) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx, span := otel.StartRequestSpan(r.Context(), endpoint, r.Method)
		defer span.End()

		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next(rec, r.WithContext(ctx))
		s.metrics.requestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
		s.metrics.requestCounter.WithLabelValues(endpoint, strconv.Itoa(rec.status)).Inc()
	})
}
