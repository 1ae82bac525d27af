package monitor

import (
	"sync"
	"time"

	"github.com/rezdm/Argus/internal/domain"
)

// State tracks the health of one destination. All methods are safe for
// concurrent use; Apply runs its whole update under one lock so readers
// never see a half-applied result.
type State struct {
	dest        domain.Destination
	description string

	mu        sync.Mutex
	history   []domain.TestResult // ring buffer, cap = history capacity
	head      int                 // index of the oldest entry
	size      int
	fails     int
	successes int
	status    domain.Status
	last      *domain.TestResult
}

// Transition is the status before and after one Apply.
type Transition struct {
	Previous domain.Status
	Current  domain.Status
}

func (t Transition) Changed() bool { return t.Previous != t.Current }

// Snapshot is a consistent copy of a State taken under its lock.
type Snapshot struct {
	Key                  string             `json:"key"`
	Name                 string             `json:"name"`
	Group                string             `json:"group"`
	Host                 string             `json:"host,omitempty"`
	Description          string             `json:"description"`
	Status               domain.Status      `json:"status"`
	ConsecutiveFailures  int                `json:"consecutive_failures"`
	ConsecutiveSuccesses int                `json:"consecutive_successes"`
	LastResult           *domain.TestResult `json:"last_result,omitempty"`
	Uptime               float64            `json:"uptime"`
	HistoryLen           int                `json:"history_len"`
}

func NewState(dest domain.Destination, description string) *State {
	return &State{
		dest:        dest,
		description: description,
		history:     make([]domain.TestResult, dest.HistoryCapacity()),
		status:      domain.StatusOK,
	}
}

func (s *State) Destination() domain.Destination { return s.dest }
func (s *State) Description() string             { return s.description }

// Apply records res and advances the status machine.
//
// A success only clears a WARNING/FAILURE once Reset consecutive successes
// were seen; a failure escalates to FAILURE at the failure threshold, else
// to WARNING at the warning threshold, else leaves the status alone.
func (s *State) Apply(res domain.TestResult) Transition {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.status
	s.push(res)
	r := res
	s.last = &r

	if res.Success {
		s.fails = 0
		s.successes++
		if s.status != domain.StatusOK && s.successes >= s.dest.Reset {
			s.status = domain.StatusOK
			s.successes = 0
		}
	} else {
		s.successes = 0
		s.fails++
		switch {
		case s.fails >= s.dest.Failure:
			s.status = domain.StatusFailure
		case s.fails >= s.dest.Warning:
			s.status = domain.StatusWarning
		}
	}
	return Transition{Previous: prev, Current: s.status}
}

func (s *State) push(res domain.TestResult) {
	n := len(s.history)
	if n == 0 {
		return
	}
	if s.size < n {
		s.history[(s.head+s.size)%n] = res
		s.size++
		return
	}
	// full: overwrite the oldest
	s.history[s.head] = res
	s.head = (s.head + 1) % n
}

// Uptime is the percentage of successful results in the retained history,
// 0 when the history is empty.
func (s *State) Uptime() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.uptimeLocked()
}

func (s *State) uptimeLocked() float64 {
	if s.size == 0 {
		return 0
	}
	ok := 0
	n := len(s.history)
	for i := 0; i < s.size; i++ {
		if s.history[(s.head+i)%n].Success {
			ok++
		}
	}
	return float64(ok) / float64(s.size) * 100
}

// History returns the retained results, oldest first.
func (s *State) History() []domain.TestResult {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.TestResult, s.size)
	n := len(s.history)
	for i := 0; i < s.size; i++ {
		out[i] = s.history[(s.head+i)%n]
	}
	return out
}

func (s *State) Status() domain.Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

func (s *State) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		Key:                  s.dest.Key(),
		Name:                 s.dest.Name,
		Group:                s.dest.Group,
		Host:                 s.dest.Test.Host,
		Description:          s.description,
		Status:               s.status,
		ConsecutiveFailures:  s.fails,
		ConsecutiveSuccesses: s.successes,
		Uptime:               s.uptimeLocked(),
		HistoryLen:           s.size,
	}
	if s.last != nil {
		r := *s.last
		snap.LastResult = &r
	}
	return snap
}

// LastChecked is the timestamp of the last applied result, zero if none.
func (s Snapshot) LastChecked() time.Time {
	if s.LastResult == nil {
		return time.Time{}
	}
	return s.LastResult.Timestamp
}
