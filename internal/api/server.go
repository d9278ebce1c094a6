package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/roach88/provledger/internal/ledger"
)

// Options configures the HTTP adapter.
type Options struct {
	Logger *slog.Logger

	// Registry receives the HTTP collectors and backs /metrics. When nil a
	// fresh registry is created.
	Registry *prometheus.Registry

	// RateLimitRPS and RateLimitBurst configure the per-client token
	// bucket. RPS <= 0 disables rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int

	CORSOrigins []string

	// ProofCheck reports proof system readiness for /healthz. Optional.
	ProofCheck func() error
}

// Server is the gin engine plus what it needs to serve.
type Server struct {
	ledger  *ledger.Ledger
	logger  *slog.Logger
	reg     *prometheus.Registry
	metrics *httpMetrics
	opts    Options
	engine  *gin.Engine
}

// New builds the router. It does not start listening.
func New(l *ledger.Ledger, opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Registry == nil {
		opts.Registry = prometheus.NewRegistry()
	}
	registerValidators()

	s := &Server{
		ledger:  l,
		logger:  opts.Logger,
		reg:     opts.Registry,
		metrics: newHTTPMetrics(opts.Registry),
		opts:    opts,
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(s.requestLogger())
	r.Use(s.metrics.middleware())
	if len(opts.CORSOrigins) > 0 {
		r.Use(cors.New(cors.Config{
			AllowOrigins:  opts.CORSOrigins,
			AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodOptions},
			AllowHeaders:  []string{"Origin", "Content-Type", RequestIDHeader},
			ExposeHeaders: []string{RequestIDHeader},
			MaxAge:        12 * time.Hour,
		}))
	}

	r.GET("/healthz", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))

	prov := r.Group("/api/prov")
	if opts.RateLimitRPS > 0 {
		prov.Use(RateLimiter(opts.RateLimitRPS, opts.RateLimitBurst))
	}
	prov.POST("", s.prov)
	prov.GET("", methodNotAllowed)

	s.engine = r
	return s
}

// Handler returns the root http.Handler.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// ListenAndServe serves on addr until ctx is done, then shuts down
// gracefully, waiting up to grace for in-flight requests (including
// proof generation) to finish.
func (s *Server) ListenAndServe(ctx context.Context, addr string, grace time.Duration) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("http server listening", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info("http server shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), grace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}

func (s *Server) health(c *gin.Context) {
	count, err := s.ledger.Count(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
		return
	}

	proof := "unknown"
	if s.opts.ProofCheck != nil {
		proof = "ready"
		if err := s.opts.ProofCheck(); err != nil {
			proof = "unavailable"
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"status":       "ok",
		"events":       count,
		"proof_system": proof,
	})
}

func methodNotAllowed(c *gin.Context) {
	c.JSON(http.StatusMethodNotAllowed, gin.H{
		"error": "Method not allowed. Use POST with ?action=record, ?action=verify, ?action=chain or ?action=reprove",
	})
}
