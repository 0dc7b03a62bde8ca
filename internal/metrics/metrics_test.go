package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestPrometheusCollector(t *testing.T) {
	p := NewPrometheus(prometheus.NewRegistry())

	p.RecordOperationResult("accept_request", "success")
	p.RecordOperationResult("accept_request", "success")
	p.RecordOperationDuration("accept_request", 20*time.Millisecond)
	p.RecordError("top_up", "BalanceCapExceeded")
	p.RecordTransferVolume(decimal.NewFromInt(1500))
	p.RecordRefill("auto", decimal.NewFromInt(35000))
	p.RecordRateLimited("send_message")
	p.RecordAbuseFlag("direct")

	assert.Equal(t, 2.0, testutil.ToFloat64(p.operationResults.WithLabelValues("accept_request", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.errors.WithLabelValues("top_up", "BalanceCapExceeded")))
	assert.Equal(t, 1500.0, testutil.ToFloat64(p.transferVolume))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.transfers))
	assert.Equal(t, 35000.0, testutil.ToFloat64(p.refillVolume.WithLabelValues("auto")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.rateLimited.WithLabelValues("send_message")))
	assert.Equal(t, 1.0, testutil.ToFloat64(p.abuseFlags.WithLabelValues("direct")))
}

func TestNoopSatisfiesCollector(t *testing.T) {
	var c Collector = Noop{}
	c.RecordTransferVolume(decimal.NewFromInt(1))
}
