// Package feed loads the grant list for the current filters. Every fetch
// carries a generation number and only the newest fetch may replace the list;
// a failed fetch keeps the previous list visible and records the error.
package feed

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"grant-dashboard/models"
	"grant-dashboard/remote"
)

// ErrSuperseded is returned by Fetch when a newer fetch was issued before
// this one answered. The response was discarded.
var ErrSuperseded = errors.New("feed: superseded by a newer fetch")

// ErrClosed is returned by Fetch after Close.
var ErrClosed = errors.New("feed: closed")

// Lister is the grants endpoint.
type Lister interface {
	ListGrants(ctx context.Context, q remote.Encoder) (models.GrantPage, error)
}

// Snapshot is what the dashboard shows.
type Snapshot struct {
	Grants     []models.Grant `json:"grants"`
	Total      int            `json:"total"`
	Query      string         `json:"query"`
	Generation uint64         `json:"generation"`
	Loading    bool           `json:"loading"`
	// Err is the error of the latest fetch. Grants then still holds the
	// previous successful result.
	Err       error     `json:"-"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Feed struct {
	lister Lister
	log    *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	issued   uint64
	snap     Snapshot
	closed   bool
	onUpdate func(Snapshot)

	// deliver orders OnUpdate callbacks; delivered is the newest generation
	// handed to one.
	deliver   sync.Mutex
	delivered uint64
}

func New(l Lister, log *zap.Logger) *Feed {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Feed{lister: l, log: log, ctx: ctx, cancel: cancel}
}

// OnUpdate registers fn to receive the snapshot whenever an accepted fetch
// completes, successfully or not.
func (f *Feed) OnUpdate(fn func(Snapshot)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.onUpdate = fn
}

func (f *Feed) Snapshot() Snapshot {
	f.mu.Lock()
	defer f.mu.Unlock()
	s := f.snap
	s.Grants = append([]models.Grant(nil), s.Grants...)
	return s
}

// Reload starts a background fetch for q and returns its generation.
func (f *Feed) Reload(q remote.Encoder) uint64 {
	gen, ok := f.begin()
	if !ok {
		return 0
	}
	go func() {
		defer f.wg.Done()
		_ = f.run(f.ctx, gen, q)
	}()
	return gen
}

// Fetch runs a fetch for q and waits for it.
func (f *Feed) Fetch(ctx context.Context, q remote.Encoder) error {
	gen, ok := f.begin()
	if !ok {
		return ErrClosed
	}
	defer f.wg.Done()
	ctx, cancel := mergeCancel(ctx, f.ctx)
	defer cancel()
	return f.run(ctx, gen, q)
}

func (f *Feed) begin() (uint64, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return 0, false
	}
	f.issued++
	f.snap.Loading = true
	f.wg.Add(1)
	return f.issued, true
}

func (f *Feed) run(ctx context.Context, gen uint64, q remote.Encoder) error {
	start := time.Now()
	page, err := f.lister.ListGrants(ctx, q)

	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return ErrClosed
	}
	if gen != f.issued {
		f.mu.Unlock()
		discardedTotal.Inc()
		f.log.Debug("Discarded stale grant list", zap.Uint64("generation", gen), zap.Error(err))
		return ErrSuperseded
	}
	f.snap.Loading = false
	f.snap.Generation = gen
	f.snap.Query = q.Encode()
	f.snap.UpdatedAt = time.Now()
	if err != nil {
		f.snap.Err = err
	} else {
		f.snap.Err = nil
		f.snap.Grants = page.Grants
		f.snap.Total = page.Total
	}
	snap := f.snap
	fn := f.onUpdate
	f.mu.Unlock()

	reloadDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		reloadsTotal.WithLabelValues("error").Inc()
		f.log.Warn("Grant list reload failed, keeping previous list", zap.Uint64("generation", gen), zap.Error(err))
	} else {
		reloadsTotal.WithLabelValues("ok").Inc()
		f.log.Debug("Grant list reloaded", zap.Uint64("generation", gen), zap.Int("count", len(page.Grants)), zap.Int("total", page.Total))
	}
	if fn != nil {
		snap.Grants = append([]models.Grant(nil), snap.Grants...)
		f.notify(fn, snap)
	}
	if err != nil {
		return fmt.Errorf("reloading grants: %w", err)
	}
	return nil
}

// notify hands snap to fn unless a newer snapshot was already delivered.
func (f *Feed) notify(fn func(Snapshot), snap Snapshot) {
	f.deliver.Lock()
	defer f.deliver.Unlock()
	if snap.Generation <= f.delivered {
		discardedTotal.Inc()
		f.log.Debug("Dropped out-of-order grant list update", zap.Uint64("generation", snap.Generation), zap.Uint64("delivered", f.delivered))
		return
	}
	f.delivered = snap.Generation
	fn(snap)
}

// Close cancels outstanding fetches and waits for them. Their results are
// dropped.
func (f *Feed) Close() {
	f.mu.Lock()
	if f.closed {
		f.mu.Unlock()
		return
	}
	f.closed = true
	f.mu.Unlock()
	f.cancel()
	f.wg.Wait()
}

// mergeCancel returns a context that ends when either parent does.
func mergeCancel(ctx, other context.Context) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(ctx)
	stop := context.AfterFunc(other, cancel)
	return ctx, func() {
		stop()
		cancel()
	}
}
