package metrics

import (
	"github.com/prometheus/client_golang/prometheus"

	"pictora-hq/relay/pkg/config"
)

// PaymentMetrics tracks PayPal order operations.
//
// Metrics:
//   - pictora_relay_payment_operations_total{operation, status}
type PaymentMetrics struct {
	operationsTotal *prometheus.CounterVec
}

// NewPaymentMetrics creates and registers payment metrics with the provided registry.
func NewPaymentMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *PaymentMetrics {
	pm := &PaymentMetrics{
		operationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "payment_operations_total",
				Help:      "Total number of PayPal order operations by resulting status",
			},
			[]string{"operation", "status"},
		),
	}

	registry.MustRegister(pm.operationsTotal)
	return pm
}

// RecordOperation records one operation.
func (pm *PaymentMetrics) RecordOperation(operation, status string) {
	if status == "" {
		status = "unknown"
	}
	pm.operationsTotal.WithLabelValues(operation, status).Inc()
}
