package gate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/cachegate/cachegate/backend"
	"github.com/cachegate/cachegate/lock"
	st "github.com/cachegate/cachegate/settings"
)

// gates implement the same surface as the backends they wrap
var _ backend.Backend = (*Gate)(nil)

// A BackendFactory returns the storage for a named bin.
type BackendFactory func(bin string) (backend.Backend, error)

// A Registry hands out bin backends for one processing unit, decorating
// filter-enabled bins with a Gate. Construct one per unit and call
// FlushAll exactly once when the unit ends.
type Registry struct {
	factory  BackendFactory
	store    backend.Backend
	locker   lock.Locker
	storeBin string
	bins     map[string]BinConfig

	mu       sync.Mutex
	gates    map[string]*Gate
	backends map[string]backend.Backend
}

// NewRegistry wires a per-unit registry. store is the backend holding
// persisted filter state (the reserved storeBin); it and the locker are
// shared across units, everything else is unit-scoped.
func NewRegistry(factory BackendFactory, store backend.Backend, locker lock.Locker, storeBin string, bins map[string]BinConfig) *Registry {
	return &Registry{
		factory:  factory,
		store:    store,
		locker:   locker,
		storeBin: storeBin,
		bins:     bins,
		gates:    make(map[string]*Gate),
		backends: make(map[string]backend.Backend),
	}
}

// Resolve returns the backend to use for a bin. Filter-enabled bins get a
// memoized Gate; unconfigured bins and the filter store bin itself are
// returned undecorated. The store bin must never be gated or every filter
// load would recurse into another gate.
func (r *Registry) Resolve(bin string) (backend.Backend, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bin == r.storeBin {
		return r.store, nil
	}
	if g, ok := r.gates[bin]; ok {
		return g, nil
	}
	if be, ok := r.backends[bin]; ok {
		return be, nil
	}
	be, err := r.factory(bin)
	if err != nil {
		return nil, fmt.Errorf("bin %s: %w", bin, err)
	}
	config, gated := r.bins[bin]
	if !gated {
		r.backends[bin] = be
		return be, nil
	}
	g, err := NewGate(bin, be, r.store, r.locker, config)
	if err != nil {
		return nil, err
	}
	r.gates[bin] = g
	return g, nil
}

// FlushAll flushes every instantiated gate. Gates flush independently, one
// abandoned or failed flush never blocks another bin's.
func (r *Registry) FlushAll(ctx context.Context) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for bin, g := range r.gates {
		if err := g.Flush(ctx); err != nil {
			st.Logger.Warn().Err(err).Str("bin", bin).Msg("filter flush failed, admissions from this unit are lost")
		}
	}
}

// BinConfigFromSettings converts a configured bin profile.
func BinConfigFromSettings(b st.CGBin) BinConfig {
	return BinConfig{
		ExpectedSize: b.ExpectedSize,
		Probability:  b.Probability,
		Lifetime:     time.Second * time.Duration(b.LifetimeSeconds),
	}
}

// BinConfigsFromConf resolves every filter-enabled bin from settings.
func BinConfigsFromConf() map[string]BinConfig {
	bins := map[string]BinConfig{}
	for name, b := range st.GetBinsFromConf() {
		bins[name] = BinConfigFromSettings(b)
	}
	return bins
}
