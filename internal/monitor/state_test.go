package monitor

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rezdm/Argus/internal/domain"
)

func dest(warning, failure, reset, history int) domain.Destination {
	return domain.Destination{
		Name:     "web",
		Group:    "edge",
		Timeout:  time.Second,
		Interval: time.Second,
		Warning:  warning,
		Failure:  failure,
		Reset:    reset,
		History:  history,
		Test:     domain.TestSpec{Kind: domain.KindReachability, Host: "10.0.0.1"},
	}
}

func ok() domain.TestResult { return domain.TestResult{Success: true, Timestamp: time.Now()} }
func fail() domain.TestResult {
	return domain.TestResult{Success: false, Timestamp: time.Now(), Error: "boom"}
}

func TestState_Fresh(t *testing.T) {
	s := NewState(dest(1, 3, 2, 10), "PING")
	snap := s.Snapshot()

	assert.Equal(t, domain.StatusOK, snap.Status)
	assert.Zero(t, snap.ConsecutiveFailures)
	assert.Zero(t, snap.ConsecutiveSuccesses)
	assert.Nil(t, snap.LastResult)
	assert.Zero(t, snap.HistoryLen)
	assert.Equal(t, 0.0, s.Uptime())
	assert.Empty(t, s.History())
	assert.True(t, snap.LastChecked().IsZero())
	assert.Equal(t, "edge:web", snap.Key)
	assert.Equal(t, "PING", snap.Description)
}

func TestState_FailureThenStickyUntilReset(t *testing.T) {
	s := NewState(dest(1, 3, 2, 10), "PING")

	s.Apply(fail())
	assert.Equal(t, domain.StatusWarning, s.Status())
	s.Apply(fail())
	assert.Equal(t, domain.StatusWarning, s.Status())
	tr := s.Apply(fail())
	assert.Equal(t, Transition{Previous: domain.StatusWarning, Current: domain.StatusFailure}, tr)

	tr = s.Apply(ok())
	assert.False(t, tr.Changed(), "one success of two must not recover")
	assert.Equal(t, domain.StatusFailure, s.Status())
	assert.Equal(t, 1, s.Snapshot().ConsecutiveSuccesses)

	tr = s.Apply(ok())
	assert.True(t, tr.Changed())
	assert.Equal(t, domain.StatusOK, tr.Current)
	snap := s.Snapshot()
	assert.Equal(t, 0, snap.ConsecutiveSuccesses, "success counter resets on recovery")
	assert.Equal(t, 0, snap.ConsecutiveFailures)
}

func TestState_WarningHeldUntilFailureThreshold(t *testing.T) {
	s := NewState(dest(1, 5, 1, 10), "PING")

	s.Apply(fail())
	require.Equal(t, domain.StatusWarning, s.Status())
	for i := 2; i <= 4; i++ {
		s.Apply(fail())
		assert.Equal(t, domain.StatusWarning, s.Status(), "failure #%d", i)
	}
	s.Apply(fail())
	assert.Equal(t, domain.StatusFailure, s.Status())
}

func TestState_FailureIsNotDowngradedByFewerFailures(t *testing.T) {
	s := NewState(dest(2, 3, 3, 10), "PING")
	s.Apply(fail())
	s.Apply(fail())
	s.Apply(fail())
	require.Equal(t, domain.StatusFailure, s.Status())

	// one success resets the failure counter but not the status; a single
	// failure is below both thresholds so nothing is re-derived
	s.Apply(ok())
	s.Apply(fail())
	snap := s.Snapshot()
	assert.Equal(t, 1, snap.ConsecutiveFailures)
	assert.Equal(t, domain.StatusFailure, snap.Status)
}

func TestState_SuccessWhileOKKeepsCounting(t *testing.T) {
	s := NewState(dest(1, 3, 2, 10), "PING")
	for i := 0; i < 4; i++ {
		s.Apply(ok())
	}
	snap := s.Snapshot()
	assert.Equal(t, domain.StatusOK, snap.Status)
	assert.Equal(t, 4, snap.ConsecutiveSuccesses)
}

func TestState_Uptime(t *testing.T) {
	s := NewState(dest(5, 10, 1, 10), "PING")
	s.Apply(ok())
	s.Apply(fail())
	s.Apply(ok())
	s.Apply(ok())
	assert.InDelta(t, 75.0, s.Uptime(), 1e-9)
	assert.InDelta(t, 75.0, s.Snapshot().Uptime, 1e-9)
}

func TestState_HistoryFIFO(t *testing.T) {
	s := NewState(dest(100, 100, 1, 3), "PING")
	for i := 1; i <= 5; i++ {
		s.Apply(domain.TestResult{Success: true, DurationMS: int64(i)})
		h := s.History()
		assert.LessOrEqual(t, len(h), 3)
	}
	h := s.History()
	require.Len(t, h, 3)
	assert.Equal(t, []int64{3, 4, 5}, []int64{h[0].DurationMS, h[1].DurationMS, h[2].DurationMS})
	assert.Equal(t, int64(5), s.Snapshot().LastResult.DurationMS)
}

func TestState_HistoryCappedAtMax(t *testing.T) {
	s := NewState(dest(1, 1, 1, 5000), "PING")
	for i := 0; i < domain.MaxHistory+50; i++ {
		s.Apply(domain.TestResult{Success: i%2 == 0, DurationMS: int64(i)})
	}
	h := s.History()
	require.Len(t, h, domain.MaxHistory)
	assert.Equal(t, int64(50), h[0].DurationMS)
	assert.Equal(t, int64(domain.MaxHistory+49), h[len(h)-1].DurationMS)
}

func TestState_ZeroHistoryStillTracksStatus(t *testing.T) {
	s := NewState(dest(1, 2, 1, 0), "PING")
	s.Apply(fail())
	s.Apply(fail())
	assert.Equal(t, domain.StatusFailure, s.Status())
	assert.Empty(t, s.History())
	assert.Equal(t, 0.0, s.Uptime())
	assert.NotNil(t, s.Snapshot().LastResult)
}

func TestState_ConcurrentApplyIsLinearizable(t *testing.T) {
	const n, m = 400, 300
	s := NewState(dest(1, 1000, 1000, domain.MaxHistory), "PING")

	var wg sync.WaitGroup
	start := make(chan struct{})
	for i := 0; i < n+m; i++ {
		wg.Add(1)
		go func(success bool) {
			defer wg.Done()
			<-start
			s.Apply(domain.TestResult{Success: success})
		}(i < n)
	}
	// readers run alongside writers and must see consistent snapshots
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			snap := s.Snapshot()
			if snap.ConsecutiveFailures > 0 && snap.ConsecutiveSuccesses > 0 {
				t.Errorf("torn snapshot: %+v", snap)
				return
			}
		}
	}()
	close(start)
	wg.Wait()
	<-done

	h := s.History()
	require.Len(t, h, n+m, "no result lost or double counted")
	succ := 0
	for _, r := range h {
		if r.Success {
			succ++
		}
	}
	assert.Equal(t, n, succ)
	assert.InDelta(t, float64(n)/float64(n+m)*100, s.Uptime(), 1e-9)

	// the trailing run of equal outcomes in history must match the counters
	snap := s.Snapshot()
	last := h[len(h)-1].Success
	run := 0
	for i := len(h) - 1; i >= 0 && h[i].Success == last; i-- {
		run++
	}
	if last {
		assert.Equal(t, run, snap.ConsecutiveSuccesses)
		assert.Zero(t, snap.ConsecutiveFailures)
	} else {
		assert.Equal(t, run, snap.ConsecutiveFailures)
		assert.Zero(t, snap.ConsecutiveSuccesses)
	}
}
