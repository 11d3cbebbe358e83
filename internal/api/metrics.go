package api

import (
	"math/big"
	"strconv"
	"time"

	"github.com/Mohsinsiddi/nftsale/internal/sale"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
)

const metricsNamespace = "nftsale"

// Metrics holds the node's prometheus collectors. Each Metrics owns its own
// registry so several nodes can run in one process.
type Metrics struct {
	registry *prometheus.Registry
	logger   *zap.Logger

	requestCounter  *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	minted      prometheus.Counter
	revenue     prometheus.Counter
	withdrawals prometheus.Counter
	failedCalls *prometheus.CounterVec
}

// NewMetrics creates the collectors.
func NewMetrics(logger *zap.Logger) *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		logger:   logger,
		requestCounter: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total number of API requests",
			},
			[]string{"method", "path", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: metricsNamespace,
				Subsystem: "api",
				Name:      "request_duration_seconds",
				Help:      "API request duration in seconds",
				Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
			},
			[]string{"method", "path"},
		),
		minted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sale",
			Name:      "tokens_minted_total",
			Help:      "Tokens minted since the node started",
		}),
		revenue: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sale",
			Name:      "revenue_wei_total",
			Help:      "Sale proceeds received since the node started, in wei (float approximation)",
		}),
		withdrawals: factory.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "sale",
			Name:      "withdrawals_total",
			Help:      "Successful withdrawals since the node started",
		}),
		failedCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: metricsNamespace,
				Subsystem: "sale",
				Name:      "failed_calls_total",
				Help:      "Rejected or rolled back sale calls",
			},
			[]string{"op", "reason"},
		),
	}
}

// Registry exposes the registry for the /metrics handler.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// Observe subscribes the sale counters to s.
func (m *Metrics) Observe(s *sale.TokenSale) error {
	if err := s.Subscribe(m.onRecord); err != nil {
		return err
	}
	return s.SubscribeFailures(m.onFailure)
}

func (m *Metrics) onRecord(r sale.Record) {
	switch ev := r.Event.(type) {
	case sale.BuyEvent:
		m.minted.Inc()
		f, _ := new(big.Float).SetInt(ev.AmountPaid).Float64()
		m.revenue.Add(f)
	case sale.WithdrawEvent:
		m.withdrawals.Inc()
	}
}

func (m *Metrics) onFailure(op string, err error) {
	reason := sale.Code(err)
	if reason == "" {
		reason = "internal"
	}
	m.failedCalls.WithLabelValues(op, reason).Inc()
}

// Middleware records request count and latency per route.
func (m *Metrics) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		method := c.Request.Method
		status := c.Writer.Status()
		duration := time.Since(start)

		m.requestCounter.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
		m.requestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

		m.logger.Debug("request metrics collected",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", status),
			zap.Duration("duration", duration))
	}
}
