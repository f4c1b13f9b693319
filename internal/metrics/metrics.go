// internal/metrics/metrics.go
package metrics

import (
	"time"
)

// RecordTransaction records a confirmed or failed swap.
func (c *Collector) RecordTransaction(side string, duration time.Duration, success bool) {
	if c == nil {
		return
	}
	status := "success"
	if !success {
		status = "failure"
	}
	c.transactionCounter.WithLabelValues(side, status).Inc()
	c.transactionDuration.WithLabelValues(side).Observe(duration.Seconds())
}

// RecordRPC records the latency and outcome of one RPC request.
func (c *Collector) RecordRPC(method string, duration time.Duration, err error) {
	if c == nil {
		return
	}
	c.rpcLatency.WithLabelValues(method).Observe(duration.Seconds())
	if err != nil {
		c.rpcErrors.WithLabelValues(method).Inc()
	}
}

// PoolSeen counts a pool forwarded by the listener.
func (c *Collector) PoolSeen() {
	if c == nil {
		return
	}
	c.poolsSeen.Inc()
}

// RecordAdmission counts an admission decision.
func (c *Collector) RecordAdmission(admitted bool, reason string) {
	if c == nil {
		return
	}
	result := "rejected"
	if admitted {
		result = "admitted"
	}
	c.admissions.WithLabelValues(result, reason).Inc()
}

// SetOpenPositions sets the open positions gauge.
func (c *Collector) SetOpenPositions(n int) {
	if c == nil {
		return
	}
	c.openPositions.Set(float64(n))
}

// ExitTriggered counts an exit by reason (take_profit, stop_loss).
func (c *Collector) ExitTriggered(reason string) {
	if c == nil {
		return
	}
	c.exitTriggers.WithLabelValues(reason).Inc()
}

// Reconnected counts a subscription re-establishment.
func (c *Collector) Reconnected(stream string) {
	if c == nil {
		return
	}
	c.websocketReconnects.WithLabelValues(stream).Inc()
}
