package gate

import (
	"context"
	"fmt"
	"time"

	"github.com/cachegate/cachegate/backend"
	"github.com/cachegate/cachegate/bloom"
	"github.com/cachegate/cachegate/lock"
	"github.com/cachegate/cachegate/prom"
	st "github.com/cachegate/cachegate/settings"
)

// BinConfig is the immutable filter profile for one gated bin.
type BinConfig struct {
	// Expected number of distinct keys over the filter lifetime
	ExpectedSize uint64
	// Target false positive probability, in (0,1)
	Probability float64
	// How long persisted filter state lives, 0 keeps it forever
	Lifetime time.Duration
}

// StorageKey returns the filter store key (and lock name) for a bin.
func StorageKey(bin string) string {
	return "filter:" + bin
}

// A Gate wraps one bin's backend for the duration of one processing unit.
// It tracks which keys the unit asked for, suppresses writes for keys the
// shared filter has never seen, and at Flush reconciles the unit's new
// sightings into the persisted filter state under an advisory lock.
//
// A Gate is not safe for concurrent use. Every unit gets its own; the only
// state shared between units is the filter store and the lock.
type Gate struct {
	bin        string
	storageKey string
	backend    backend.Backend
	store      backend.Backend
	locker     lock.Locker
	config     BinConfig

	// keys read-attempted or write-suppressed this unit
	observed map[string]struct{}
	// loaded lazily, at most once per unit
	filter *bloom.Filter

	nowFunc func() time.Time
}

// NewGate validates the bin profile and returns an uninitialized gate.
// The filter is not loaded until the first operation that needs it.
func NewGate(bin string, be backend.Backend, store backend.Backend, locker lock.Locker, config BinConfig) (*Gate, error) {
	if config.ExpectedSize == 0 {
		return nil, fmt.Errorf("bin %s: expected size must be greater than 0", bin)
	}
	if config.Probability <= 0 || config.Probability >= 1 {
		return nil, fmt.Errorf("bin %s: probability must be in (0,1), got %v", bin, config.Probability)
	}
	return &Gate{
		bin:        bin,
		storageKey: StorageKey(bin),
		backend:    be,
		store:      store,
		locker:     locker,
		config:     config,
		observed:   make(map[string]struct{}),
		nowFunc:    time.Now,
	}, nil
}

// ensureFilter loads the persisted filter state on first use. Absent,
// expired or unreadable state gets a fresh filter instead.
func (g *Gate) ensureFilter(ctx context.Context) error {
	if g.filter != nil {
		return nil
	}
	item, err := g.store.Get(ctx, g.storageKey, false)
	if err != nil {
		return err
	}
	if item != nil {
		filter, err := bloom.UnmarshalBinary(item.Data)
		if err == nil {
			g.filter = filter
			prom.FilterLoads.Inc()
			return nil
		}
		st.Logger.Warn().Err(err).Str("bin", g.bin).Msg("discarding unreadable filter state")
	}
	filter, err := bloom.New(g.config.ExpectedSize, g.config.Probability)
	if err != nil {
		return err
	}
	g.filter = filter
	prom.FilterAllocations.Inc()
	return nil
}

func (g *Gate) Get(ctx context.Context, key string, allowInvalid bool) (*backend.Item, error) {
	if err := g.ensureFilter(ctx); err != nil {
		return nil, err
	}
	g.observed[key] = struct{}{}
	item, err := g.backend.Get(ctx, key, allowInvalid)
	if err != nil {
		return nil, err
	}
	if item != nil {
		// the key is materialized in the backend, so writes to it this
		// unit must not be suppressed even before the filter is persisted
		g.filter.Add(key)
	}
	return item, nil
}

func (g *Gate) GetMultiple(ctx context.Context, keys []string, allowInvalid bool) (map[string]*backend.Item, error) {
	if err := g.ensureFilter(ctx); err != nil {
		return nil, err
	}
	for _, k := range keys {
		g.observed[k] = struct{}{}
	}
	found, err := g.backend.GetMultiple(ctx, keys, allowInvalid)
	if err != nil {
		return nil, err
	}
	for k := range found {
		g.filter.Add(k)
	}
	return found, nil
}

func (g *Gate) Set(ctx context.Context, key string, data []byte, expire int64, tags []string) error {
	if err := g.ensureFilter(ctx); err != nil {
		return err
	}
	if g.filter.Test(key) {
		prom.WritesPassed.WithLabelValues(g.bin).Inc()
		return g.backend.Set(ctx, key, data, expire, tags)
	}
	// first sighting of the key: drop the write, remember the key as an
	// admission candidate so the next unit's write passes
	g.observed[key] = struct{}{}
	prom.WritesSuppressed.WithLabelValues(g.bin).Inc()
	return nil
}

func (g *Gate) SetMultiple(ctx context.Context, items map[string]backend.Item) error {
	if err := g.ensureFilter(ctx); err != nil {
		return err
	}
	admitted := make(map[string]backend.Item)
	for k, item := range items {
		if g.filter.Test(k) {
			admitted[k] = item
			prom.WritesPassed.WithLabelValues(g.bin).Inc()
			continue
		}
		g.observed[k] = struct{}{}
		prom.WritesSuppressed.WithLabelValues(g.bin).Inc()
	}
	if len(admitted) == 0 {
		return nil
	}
	return g.backend.SetMultiple(ctx, admitted)
}

func (g *Gate) Delete(ctx context.Context, key string) error {
	return g.backend.Delete(ctx, key)
}

func (g *Gate) DeleteMultiple(ctx context.Context, keys []string) error {
	return g.backend.DeleteMultiple(ctx, keys)
}

func (g *Gate) Invalidate(ctx context.Context, key string) error {
	return g.backend.Invalidate(ctx, key)
}

func (g *Gate) InvalidateMultiple(ctx context.Context, keys []string) error {
	return g.backend.InvalidateMultiple(ctx, keys)
}

func (g *Gate) InvalidateAll(ctx context.Context) error {
	return g.backend.InvalidateAll(ctx)
}

func (g *Gate) GarbageCollection(ctx context.Context) error {
	return g.backend.GarbageCollection(ctx)
}

// RemoveBin deletes the persisted filter state before removing the bin, so
// a concurrent flush cannot resurrect a stale filter for a bin that no
// longer exists. Ordering is best effort, not transactional.
func (g *Gate) RemoveBin(ctx context.Context) error {
	if err := g.store.Delete(ctx, g.storageKey); err != nil {
		return err
	}
	// drop this unit's sightings too, or the unit's own Flush would
	// recreate filter state for the removed bin
	g.observed = make(map[string]struct{})
	g.filter = nil
	return g.backend.RemoveBin(ctx)
}

// Flush merges this unit's new sightings into the persisted filter state.
// Called once at the end of the processing unit. Losing the lock race
// abandons the unit's admissions; that only costs admission accuracy for
// future units, never cache correctness.
func (g *Gate) Flush(ctx context.Context) error {
	if len(g.observed) == 0 {
		return nil
	}
	if err := g.ensureFilter(ctx); err != nil {
		return err
	}

	// narrow to genuinely new keys before paying for the lock
	candidates := make([]string, 0, len(g.observed))
	for k := range g.observed {
		if !g.filter.Test(k) {
			candidates = append(candidates, k)
		}
	}
	g.observed = make(map[string]struct{})
	if len(candidates) == 0 {
		return nil
	}

	if !g.locker.ProbeAvailable(ctx, g.storageKey) {
		if err := g.locker.WaitUntilAvailable(ctx, g.storageKey); err != nil {
			return err
		}
	}
	if !g.locker.Acquire(ctx, g.storageKey) {
		// raced by another unit's flush, drop this unit's admissions
		prom.FlushesAbandoned.WithLabelValues(g.bin).Inc()
		st.Logger.Debug().Str("bin", g.bin).Msg("lost filter lock race, abandoning admissions for this unit")
		return nil
	}
	defer g.locker.Release(ctx, g.storageKey)

	// another unit may have written since our lazy load, re-read fresh
	filter, expire, err := g.loadFreshLocked(ctx)
	if err != nil {
		return err
	}
	if filter != nil {
		// re-narrow against the authoritative state so keys another unit
		// already admitted are not double-charged toward saturation
		remaining := candidates[:0]
		for _, k := range candidates {
			if !filter.Test(k) {
				remaining = append(remaining, k)
			}
		}
		if len(remaining) == 0 {
			return nil
		}
		candidates = remaining
	} else {
		if filter, err = bloom.New(g.config.ExpectedSize, g.config.Probability); err != nil {
			return err
		}
		prom.FilterAllocations.Inc()
		if g.config.Lifetime == 0 {
			expire = backend.PermanentExpire
		} else {
			expire = g.nowFunc().Add(g.config.Lifetime).Unix()
		}
	}

	for _, k := range candidates {
		filter.Add(k)
	}
	raw, err := filter.MarshalBinary()
	if err != nil {
		return err
	}
	if err := g.store.Set(ctx, g.storageKey, raw, expire, nil); err != nil {
		return err
	}
	g.filter = filter
	prom.Flushes.WithLabelValues(g.bin).Inc()
	return nil
}

// loadFreshLocked re-reads persisted filter state under the lock. Returns
// (nil, 0, nil) when no usable state exists; otherwise the filter and its
// original expiry, which the flush write preserves.
func (g *Gate) loadFreshLocked(ctx context.Context) (*bloom.Filter, int64, error) {
	item, err := g.store.Get(ctx, g.storageKey, false)
	if err != nil {
		return nil, 0, err
	}
	if item == nil {
		return nil, 0, nil
	}
	filter, err := bloom.UnmarshalBinary(item.Data)
	if err != nil {
		st.Logger.Warn().Err(err).Str("bin", g.bin).Msg("discarding unreadable filter state")
		return nil, 0, nil
	}
	return filter, item.Expire, nil
}
