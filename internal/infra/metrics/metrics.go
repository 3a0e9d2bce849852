package metrics

import "sync/atomic"

// Counters are process-wide operation counters. A nil *Counters
// discards every increment.
type Counters struct {
	ChargesAttempted    uint64
	ChargesSucceeded    uint64
	ChargesFailed       uint64
	RefundsIssued       uint64
	VoidsIssued         uint64
	ReconcilesProcessed uint64
	ReconcilesFailed    uint64
	ReconcileRetries    uint64
}

func (c *Counters) IncChargeAttempted() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.ChargesAttempted, 1)
}

func (c *Counters) IncChargeSucceeded() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.ChargesSucceeded, 1)
}

func (c *Counters) IncChargeFailed() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.ChargesFailed, 1)
}

func (c *Counters) IncRefund() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.RefundsIssued, 1)
}

func (c *Counters) IncVoid() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.VoidsIssued, 1)
}

func (c *Counters) IncReconcileProcessed() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.ReconcilesProcessed, 1)
}

func (c *Counters) IncReconcileFailed() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.ReconcilesFailed, 1)
}

func (c *Counters) IncReconcileRetry() {
	if c == nil {
		return
	}
	atomic.AddUint64(&c.ReconcileRetries, 1)
}

// Snapshot reads every counter atomically, one at a time.
func (c *Counters) Snapshot() map[string]uint64 {
	return map[string]uint64{
		"charges_attempted":    atomic.LoadUint64(&c.ChargesAttempted),
		"charges_succeeded":    atomic.LoadUint64(&c.ChargesSucceeded),
		"charges_failed":       atomic.LoadUint64(&c.ChargesFailed),
		"refunds_issued":       atomic.LoadUint64(&c.RefundsIssued),
		"voids_issued":         atomic.LoadUint64(&c.VoidsIssued),
		"reconciles_processed": atomic.LoadUint64(&c.ReconcilesProcessed),
		"reconciles_failed":    atomic.LoadUint64(&c.ReconcilesFailed),
		"reconcile_retries":    atomic.LoadUint64(&c.ReconcileRetries),
	}
}
