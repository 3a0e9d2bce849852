package metrics

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCounters_ConcurrentIncrements(t *testing.T) {
	c := &Counters{}

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncChargeAttempted()
			c.IncReconcileRetry()
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	require.Equal(t, uint64(50), snap["charges_attempted"])
	require.Equal(t, uint64(50), snap["reconcile_retries"])
	require.Zero(t, snap["voids_issued"])
}

func TestCounters_NilDiscards(t *testing.T) {
	var c *Counters
	require.NotPanics(t, func() {
		c.IncChargeFailed()
		c.IncVoid()
	})
}
