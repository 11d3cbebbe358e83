// Package api serves a local sale over HTTP. It is a development node:
// callers identify themselves with the X-Caller header.
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Mohsinsiddi/nftsale/internal/sale"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// EventSource lists committed sale records. The SQLite store implements it;
// without one the node serves the in-memory log of the running sale.
type EventSource interface {
	Events(ctx context.Context, after uint64, limit int) ([]sale.Record, error)
}

// Server is the HTTP node.
type Server struct {
	router     *gin.Engine
	httpServer *http.Server
	sale       *sale.TokenSale
	events     EventSource
	metrics    *Metrics
	logger     *zap.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithEventSource serves /events from src.
func WithEventSource(src EventSource) Option {
	return func(s *Server) { s.events = src }
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(s *Server) { s.logger = l }
}

// NewServer builds the router for ts.
func NewServer(ts *sale.TokenSale, opts ...Option) (*Server, error) {
	s := &Server{sale: ts, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(s)
	}
	if s.events == nil {
		s.events = memoryEvents{ts}
	}

	s.metrics = NewMetrics(s.logger)
	if err := s.metrics.Observe(ts); err != nil {
		return nil, fmt.Errorf("subscribing metrics: %w", err)
	}

	router := gin.New()
	router.Use(gin.Recovery(), requestID(), accessLog(s.logger), s.metrics.Middleware())
	s.router = router
	s.setupRoutes()
	return s, nil
}

func (s *Server) setupRoutes() {
	s.router.GET("/sale", s.getSale)
	s.router.GET("/tokens/:id", s.getToken)
	s.router.GET("/balances/:address", s.getBalance)
	s.router.GET("/events", s.getEvents)
	s.router.POST("/buy", s.postBuy)

	admin := s.router.Group("/admin")
	admin.POST("/cost", s.postCost)
	admin.POST("/base-uri", s.postBaseURI)
	admin.POST("/withdraw", s.postWithdraw)
	admin.POST("/owner", s.postOwner)

	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.Registry(), promhttp.HandlerOpts{})))
}

// Handler returns the router, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.Info("sale node listening", zap.String("addr", ln.Addr().String()))

	errCh := make(chan error, 1)
	go func() { errCh <- s.httpServer.Serve(ln) }()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.logger.Info("sale node stopping")
		return s.httpServer.Shutdown(shutdownCtx)
	}
}

type memoryEvents struct{ ts *sale.TokenSale }

func (m memoryEvents) Events(_ context.Context, after uint64, limit int) ([]sale.Record, error) {
	var out []sale.Record
	for _, r := range m.ts.Events() {
		if r.Seq <= after {
			continue
		}
		out = append(out, r)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}
