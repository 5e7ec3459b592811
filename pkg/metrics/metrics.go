// Package metrics 提供 Prometheus helper，包含常用 counter/gauge/histogram 模板
package metrics

import (
	"context"
	"fmt"
	"net/http"

	"github.com/wyfcoding/papertrading/pkg/logger"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 指标集合
type Metrics struct {
	// HTTP 请求计数
	HTTPRequestsTotal prometheus.Counter
	// HTTP 请求耗时
	HTTPRequestDuration prometheus.Histogram

	// 风控检查计数
	RiskChecksTotal prometheus.Counter
	// 风控通过计数
	RiskApprovalsTotal prometheus.Counter
	// 风控拒绝计数
	RiskRejectionsTotal prometheus.Counter
	// 风控缩量调整计数
	RiskAdjustmentsTotal prometheus.Counter
	// 熔断器状态（1 = 激活）
	CircuitBreakerActive prometheus.Gauge

	// 订单簿快照更新计数
	BookUpdatesTotal prometheus.Counter
	// 过期快照丢弃计数
	BookStaleDropsTotal prometheus.Counter

	// 成交记账计数
	FillsRecordedTotal prometheus.Counter
	// 当前持仓数
	PositionsActive prometheus.Gauge
}

// New 创建指标实例
func New(serviceName string) *Metrics {
	return &Metrics{
		HTTPRequestsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "http_requests_total",
			Help:      "Total HTTP requests",
		}),
		HTTPRequestDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}),

		RiskChecksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "risk_checks_total",
			Help:      "Total pre-trade risk checks performed",
		}),
		RiskApprovalsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "risk_approvals_total",
			Help:      "Total orders approved as submitted",
		}),
		RiskRejectionsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "risk_rejections_total",
			Help:      "Total orders rejected by risk checks",
		}),
		RiskAdjustmentsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "risk_adjustments_total",
			Help:      "Total orders approved with reduced quantity",
		}),
		CircuitBreakerActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "circuit_breaker_active",
			Help:      "Whether the circuit breaker is currently active",
		}),

		BookUpdatesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "book_updates_total",
			Help:      "Total order book snapshots applied",
		}),
		BookStaleDropsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "book_stale_drops_total",
			Help:      "Total order book snapshots discarded as stale",
		}),

		FillsRecordedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "fills_recorded_total",
			Help:      "Total simulated fills recorded into the ledger",
		}),
		PositionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "trading",
			Subsystem: serviceName,
			Name:      "positions_active",
			Help:      "Number of open positions",
		}),
	}
}

// Register 注册所有指标
func (m *Metrics) Register() error {
	collectors := []prometheus.Collector{
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.RiskChecksTotal,
		m.RiskApprovalsTotal,
		m.RiskRejectionsTotal,
		m.RiskAdjustmentsTotal,
		m.CircuitBreakerActive,
		m.BookUpdatesTotal,
		m.BookStaleDropsTotal,
		m.FillsRecordedTotal,
		m.PositionsActive,
	}

	for _, collector := range collectors {
		if err := prometheus.DefaultRegisterer.Register(collector); err != nil {
			logger.Error(context.Background(), "Failed to register metric", "error", err)
			return err
		}
	}

	logger.Info(context.Background(), "Metrics registered successfully")
	return nil
}

// StartHTTPServer 启动 Prometheus HTTP 服务器
func StartHTTPServer(port int, path string) error {
	if path == "" {
		path = "/metrics"
	}

	http.Handle(path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", port)
	logger.Info(context.Background(), "Starting Prometheus HTTP server", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, nil); err != nil {
			logger.Error(context.Background(), "Failed to start Prometheus HTTP server", "error", err)
		}
	}()

	return nil
}
