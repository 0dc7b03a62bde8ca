// Package metrics records marketplace operation metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/shopspring/decimal"
)

// Collector is implemented by every metrics backend the services accept.
type Collector interface {
	// Operation metrics
	RecordOperationDuration(operation string, duration time.Duration)
	RecordOperationResult(operation, result string)

	// Error metrics
	RecordError(operation, kind string)

	// Money metrics
	RecordTransferVolume(amount decimal.Decimal)
	RecordRefill(trigger string, amount decimal.Decimal)

	// Abuse prevention metrics
	RecordRateLimited(action string)
	RecordAbuseFlag(check string)
}

// Noop is a no-op implementation of Collector
type Noop struct{}

func (Noop) RecordOperationDuration(string, time.Duration) {}
func (Noop) RecordOperationResult(string, string)          {}
func (Noop) RecordError(string, string)                    {}
func (Noop) RecordTransferVolume(decimal.Decimal)          {}
func (Noop) RecordRefill(string, decimal.Decimal)          {}
func (Noop) RecordRateLimited(string)                      {}
func (Noop) RecordAbuseFlag(string)                        {}

// Prometheus exports the collector through a prometheus registry.
type Prometheus struct {
	operationDuration *prometheus.HistogramVec
	operationResults  *prometheus.CounterVec
	errors            *prometheus.CounterVec
	transferVolume    prometheus.Counter
	transfers         prometheus.Counter
	refills           *prometheus.CounterVec
	refillVolume      *prometheus.CounterVec
	rateLimited       *prometheus.CounterVec
	abuseFlags        *prometheus.CounterVec
}

// NewPrometheus registers the marketplace metrics on reg. Pass
// prometheus.DefaultRegisterer to expose them on the default handler.
func NewPrometheus(reg prometheus.Registerer) *Prometheus {
	factory := promauto.With(reg)
	return &Prometheus{
		operationDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "marketplace_operation_duration_seconds",
				Help:    "Duration of marketplace core operations",
				Buckets: []float64{.005, .01, .05, .1, .25, .5, 1, 2, 5},
			},
			[]string{"operation"},
		),
		operationResults: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_operation_results_total",
				Help: "Total number of marketplace operations by result",
			},
			[]string{"operation", "result"},
		),
		errors: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_errors_total",
				Help: "Total number of marketplace errors by kind",
			},
			[]string{"operation", "kind"},
		),
		transferVolume: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "marketplace_transfer_volume_total",
				Help: "Total amount moved between wallets by accepted purchases",
			},
		),
		transfers: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "marketplace_transfers_total",
				Help: "Total number of completed purchase transfers",
			},
		),
		refills: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_refills_total",
				Help: "Total number of wallet refills",
			},
			[]string{"trigger"},
		),
		refillVolume: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "wallet_refill_volume_total",
				Help: "Total amount credited by wallet refills",
			},
			[]string{"trigger"},
		),
		rateLimited: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_rate_limited_total",
				Help: "Total number of actions rejected by the rate limiter",
			},
			[]string{"action"},
		),
		abuseFlags: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "marketplace_abuse_flags_total",
				Help: "Total number of trades flagged by the abuse detector",
			},
			[]string{"check"},
		),
	}
}

func (p *Prometheus) RecordOperationDuration(operation string, duration time.Duration) {
	p.operationDuration.WithLabelValues(operation).Observe(duration.Seconds())
}

func (p *Prometheus) RecordOperationResult(operation, result string) {
	p.operationResults.WithLabelValues(operation, result).Inc()
}

func (p *Prometheus) RecordError(operation, kind string) {
	p.errors.WithLabelValues(operation, kind).Inc()
}

func (p *Prometheus) RecordTransferVolume(amount decimal.Decimal) {
	p.transfers.Inc()
	p.transferVolume.Add(amount.InexactFloat64())
}

func (p *Prometheus) RecordRefill(trigger string, amount decimal.Decimal) {
	p.refills.WithLabelValues(trigger).Inc()
	p.refillVolume.WithLabelValues(trigger).Add(amount.InexactFloat64())
}

func (p *Prometheus) RecordRateLimited(action string) {
	p.rateLimited.WithLabelValues(action).Inc()
}

func (p *Prometheus) RecordAbuseFlag(check string) {
	p.abuseFlags.WithLabelValues(check).Inc()
}
