package jobqueue

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// Workers receive the stop channel at start time, so a later Stop/Start
// cycle replacing the manager's field cannot leave a draining worker
// selecting on a nil channel.
func TestWorkersStopOnSignal(t *testing.T) {
	m := &Manager{
		payoutTicker:  time.NewTicker(time.Hour),
		monthlyTicker: time.NewTicker(time.Hour),
	}
	defer m.payoutTicker.Stop()
	defer m.monthlyTicker.Stop()

	stopCh := make(chan struct{})
	m.wg.Add(2)
	go m.payoutWorker(stopCh, time.Hour)
	go m.monthlyWorker(stopCh)

	close(stopCh)

	done := make(chan struct{})
	go func() {
		m.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		assert.Fail(t, "workers did not drain after the stop signal")
	}
}
