// Package resources keeps per-user resources (favorites, alerts) in memory and
// synchronises them with the grants service optimistically: every change is
// visible immediately and is rolled back if the service does not confirm it.
package resources

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrClosed is returned for mutations issued after Close.
var ErrClosed = errors.New("resources: store closed")

// Outcome is what the service confirmed for a key.
type Outcome[K comparable, V any] struct {
	Value   V
	Present bool
	// Rekey moves the entry under NewKey, as when a created record receives
	// its server id.
	Rekey  bool
	NewKey K
}

// Call performs the network half of a mutation.
type Call[K comparable, V any] func(ctx context.Context) (Outcome[K, V], error)

type slot[V any] struct {
	value   V
	present bool
}

type inflight[V any] struct {
	gen  uint64
	next func(cur V, ok bool) (V, bool)
	m    *Mutation
}

// entry tracks one key: the last confirmed value plus the changes still
// waiting for the service, oldest first. view is base with every pending
// change replayed over it.
type entry[V any] struct {
	base         slot[V]
	confirmedGen uint64
	pending      []inflight[V]
	view         slot[V]
}

func (e *entry[V]) visible() slot[V] {
	return e.view
}

func (e *entry[V]) replay() {
	v := e.base
	for _, p := range e.pending {
		v.value, v.present = p.next(v.value, v.present)
	}
	e.view = v
}

// Store is the generic optimistic store. Mutations on the same key are
// ordered by a per-store generation counter: a confirmation applies only if
// it is newer than the last one applied, and it settles every older pending
// mutation on that key, so a late failure of an older mutation cannot undo a
// newer confirmed state.
type Store[K comparable, V any] struct {
	kind string
	log  *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	entries  map[K]*entry[V]
	order    []K
	gen      uint64
	closed   bool
	onChange func()

	errs chan error
}

// NewStore returns an empty store. kind labels logs and metrics.
func NewStore[K comparable, V any](kind string, log *zap.Logger) *Store[K, V] {
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Store[K, V]{
		kind:    kind,
		log:     log.With(zap.String("resource", kind)),
		ctx:     ctx,
		cancel:  cancel,
		entries: make(map[K]*entry[V]),
		errs:    make(chan error, 16),
	}
}

// OnChange registers fn to run after every change of the visible state. fn
// runs outside the store lock.
func (s *Store[K, V]) OnChange(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Errors delivers the error of every rolled-back mutation. Errors are dropped
// when nobody drains the channel fast enough; Mutation.Wait always reports
// them.
func (s *Store[K, V]) Errors() <-chan error {
	return s.errs
}

// Reset replaces the confirmed contents with a full load from the service.
// Pending mutations are discarded.
func (s *Store[K, V]) Reset(keys []K, values []V) {
	s.mu.Lock()
	s.entries = make(map[K]*entry[V], len(keys))
	s.order = s.order[:0]
	for i, k := range keys {
		if _, dup := s.entries[k]; dup {
			continue
		}
		base := slot[V]{value: values[i], present: true}
		s.entries[k] = &entry[V]{base: base, view: base}
		s.order = append(s.order, k)
	}
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// Get returns the visible value for key.
func (s *Store[K, V]) Get(key K) (V, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		v := e.visible()
		return v.value, v.present
	}
	var zero V
	return zero, false
}

// Keys returns the visible keys in display order.
func (s *Store[K, V]) Keys() []K {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]K, 0, len(s.order))
	for _, k := range s.order {
		if s.entries[k].visible().present {
			out = append(out, k)
		}
	}
	return out
}

// Values returns the visible values in display order.
func (s *Store[K, V]) Values() []V {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]V, 0, len(s.order))
	for _, k := range s.order {
		if v := s.entries[k].visible(); v.present {
			out = append(out, v.value)
		}
	}
	return out
}

// Pending reports how many mutations on key await the service.
func (s *Store[K, V]) Pending(key K) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[key]; ok {
		return len(e.pending)
	}
	return 0
}

// Mutate applies next to the visible value of key at once and runs call in the
// background. A new key is placed first when prepend is set, last otherwise.
// The returned Mutation settles when the service answers.
//
// next is replayed over the confirmed value whenever an older change on the
// same key settles, so it must not depend on anything but its arguments.
func (s *Store[K, V]) Mutate(op string, key K, prepend bool, next func(cur V, ok bool) (V, bool), call Call[K, V]) *Mutation {
	m := newMutation(s.kind, op)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		m.finish(RolledBack, ErrClosed)
		return m
	}
	e, ok := s.entries[key]
	if !ok {
		e = &entry[V]{}
		s.entries[key] = e
		if prepend {
			s.order = append([]K{key}, s.order...)
		} else {
			s.order = append(s.order, key)
		}
	}
	s.gen++
	gen := s.gen
	e.pending = append(e.pending, inflight[V]{gen: gen, next: next, m: m})
	e.view.value, e.view.present = next(e.view.value, e.view.present)
	fn := s.onChange
	s.wg.Add(1)
	s.mu.Unlock()

	if fn != nil {
		fn()
	}
	mutationsTotal.WithLabelValues(s.kind, op, string(Applied)).Inc()

	go func() {
		defer s.wg.Done()
		out, err := call(s.ctx)
		s.settle(key, gen, m, out, err)
	}()
	return m
}

func (s *Store[K, V]) settle(key K, gen uint64, m *Mutation, out Outcome[K, V], err error) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		if err == nil {
			err = ErrClosed
		}
		m.finish(Superseded, err)
		return
	}

	e := s.entries[key]
	idx := -1
	if e != nil {
		for i, p := range e.pending {
			if p.gen == gen {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		// A newer mutation on this key was already confirmed.
		s.mu.Unlock()
		s.log.Debug("Superseded response ignored", zap.String("op", m.op), zap.Uint64("generation", gen), zap.Error(err))
		m.finish(Superseded, err)
		return
	}

	var state State
	if err != nil {
		e.pending = append(e.pending[:idx], e.pending[idx+1:]...)
		state = RolledBack
	} else {
		if gen > e.confirmedGen {
			e.base = slot[V]{value: out.Value, present: out.Present}
			e.confirmedGen = gen
		}
		// Older pending mutations are settled by this confirmation.
		for _, p := range e.pending[:idx] {
			p.m.finish(Superseded, nil)
		}
		e.pending = append([]inflight[V](nil), e.pending[idx+1:]...)
		state = Confirmed
		if out.Rekey && out.NewKey != key && len(e.pending) == 0 {
			s.rekeyLocked(key, out.NewKey)
			key = out.NewKey
		}
	}
	e.replay()
	if !e.visible().present && len(e.pending) == 0 {
		s.dropLocked(key)
	}
	fn := s.onChange
	s.mu.Unlock()

	if state == RolledBack {
		s.log.Warn("Optimistic change rolled back", zap.String("op", m.op), zap.Uint64("generation", gen), zap.Error(err))
		s.emit(fmt.Errorf("%s %s: %w", s.kind, m.op, err))
	}
	if fn != nil {
		fn()
	}
	m.finish(state, err)
}

func (s *Store[K, V]) rekeyLocked(from, to K) {
	e := s.entries[from]
	delete(s.entries, from)
	if _, exists := s.entries[to]; exists {
		s.removeOrderLocked(from)
	} else {
		for i, k := range s.order {
			if k == from {
				s.order[i] = to
				break
			}
		}
	}
	s.entries[to] = e
}

func (s *Store[K, V]) dropLocked(key K) {
	delete(s.entries, key)
	s.removeOrderLocked(key)
}

func (s *Store[K, V]) removeOrderLocked(key K) {
	for i, k := range s.order {
		if k == key {
			s.order = append(s.order[:i], s.order[i+1:]...)
			return
		}
	}
}

func (s *Store[K, V]) emit(err error) {
	select {
	case s.errs <- err:
	default:
	}
}

// Close cancels in-flight calls and waits for them to return. Their results
// are discarded and later mutations fail with ErrClosed.
func (s *Store[K, V]) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()

	s.cancel()
	s.wg.Wait()
}
