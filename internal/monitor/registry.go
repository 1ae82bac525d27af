package monitor

import (
	"fmt"
	"sort"

	"go.uber.org/multierr"

	"github.com/rezdm/Argus/internal/domain"
	"github.com/rezdm/Argus/internal/probe"
)

// Registry holds one State per configured destination. It is built once and
// never mutated afterwards, so lookups need no locking.
type Registry struct {
	byKey   map[string]*State
	ordered []*State
}

// NewRegistry validates every destination against probes and builds its
// State. All configuration problems are reported together; no registry is
// returned if any destination is invalid.
func NewRegistry(groups []domain.Group, probes *probe.Registry) (*Registry, error) {
	gs := make([]domain.Group, len(groups))
	copy(gs, groups)
	sort.SliceStable(gs, func(i, j int) bool { return gs[i].Sort < gs[j].Sort })

	r := &Registry{byKey: make(map[string]*State)}
	var errs error
	for _, g := range gs {
		dests := make([]domain.Destination, len(g.Destinations))
		copy(dests, g.Destinations)
		sort.SliceStable(dests, func(i, j int) bool { return dests[i].Sort < dests[j].Sort })

		for _, d := range dests {
			if d.Group == "" {
				d.Group = g.Name
			}
			d.GroupSort = g.Sort
			key := d.Key()
			if err := checkDestination(d); err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			desc, err := probes.ValidateAndDescribe(d.Test)
			if err != nil {
				errs = multierr.Append(errs, fmt.Errorf("%s: %w", key, err))
				continue
			}
			if _, dup := r.byKey[key]; dup {
				errs = multierr.Append(errs, fmt.Errorf("%s: duplicate destination", key))
				continue
			}
			st := NewState(d, desc)
			r.byKey[key] = st
			r.ordered = append(r.ordered, st)
		}
	}
	if errs != nil {
		return nil, errs
	}
	return r, nil
}

func checkDestination(d domain.Destination) error {
	var errs error
	if d.Name == "" {
		errs = multierr.Append(errs, fmt.Errorf("name is required"))
	}
	if d.Timeout <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("timeout must be positive"))
	}
	if d.Warning <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("warning threshold must be positive"))
	}
	if d.Failure <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("failure threshold must be positive"))
	}
	if d.Interval <= 0 {
		errs = multierr.Append(errs, fmt.Errorf("interval must be positive"))
	}
	return errs
}

func (r *Registry) Get(key string) (*State, bool) {
	st, ok := r.byKey[key]
	return st, ok
}

func (r *Registry) Len() int { return len(r.ordered) }

// States returns the states in group sort, then destination sort order.
func (r *Registry) States() []*State {
	out := make([]*State, len(r.ordered))
	copy(out, r.ordered)
	return out
}

func (r *Registry) Keys() []string {
	out := make([]string, len(r.ordered))
	for i, st := range r.ordered {
		out[i] = st.Destination().Key()
	}
	return out
}

func (r *Registry) Snapshots() []Snapshot {
	out := make([]Snapshot, len(r.ordered))
	for i, st := range r.ordered {
		out[i] = st.Snapshot()
	}
	return out
}
