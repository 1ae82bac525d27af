package probe

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/rezdm/Argus/internal/domain"
)

type Options struct {
	PrivilegedPing bool
}

// Registry maps test kinds to executors. It starts with the built-in kinds
// and accepts new registrations at any time; the last registration wins.
type Registry struct {
	mu        sync.RWMutex
	executors map[domain.TestKind]Executor
}

func NewRegistry(opts Options) *Registry {
	return &Registry{
		executors: map[domain.TestKind]Executor{
			domain.KindReachability: NewReachability(opts.PrivilegedPing),
			domain.KindConnect:      NewConnect(),
			domain.KindURL:          NewURLProbe(),
		},
	}
}

func (r *Registry) Register(kind domain.TestKind, exec Executor) error {
	if kind == "" || exec == nil {
		return errors.New("probe: kind and executor are required")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.executors[kind] = exec
	return nil
}

func (r *Registry) Get(kind domain.TestKind) (Executor, error) {
	r.mu.RLock()
	exec, ok := r.executors[kind]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q. Supported methods: %v", ErrUnsupportedKind, kind, r.Kinds())
	}
	return exec, nil
}

// Kinds lists the registered kinds in name order.
func (r *Registry) Kinds() []domain.TestKind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]domain.TestKind, 0, len(r.executors))
	for k := range r.executors {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ValidateAndDescribe looks up the executor for spec, runs its validation
// and returns its description of spec.
func (r *Registry) ValidateAndDescribe(spec domain.TestSpec) (string, error) {
	exec, err := r.Get(spec.Kind)
	if err != nil {
		return "", err
	}
	if err := exec.Validate(spec); err != nil {
		return "", err
	}
	return exec.Describe(spec), nil
}
