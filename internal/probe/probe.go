package probe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rezdm/Argus/internal/domain"
)

var (
	// ErrInvalidConfig wraps every validation failure reported by an Executor.
	ErrInvalidConfig = errors.New("invalid test configuration")
	// ErrUnsupportedKind is returned by the Registry for unknown test kinds.
	ErrUnsupportedKind = errors.New("unsupported test method")

	errHostUnreachable = errors.New("host unreachable")
)

// Executor runs one kind of network test.
//
// Execute never fails: transport, DNS and protocol errors are reported
// through a failed TestResult carrying the error text.
type Executor interface {
	Execute(ctx context.Context, spec domain.TestSpec, timeout time.Duration) domain.TestResult
	Validate(spec domain.TestSpec) error
	Describe(spec domain.TestSpec) string
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// finish builds the result for a probe that started at start.
func finish(start time.Time, err error) domain.TestResult {
	res := domain.TestResult{
		Success:    err == nil,
		DurationMS: time.Since(start).Milliseconds(),
		Timestamp:  time.Now(),
	}
	if err != nil {
		res.Error = err.Error()
	}
	return res
}
