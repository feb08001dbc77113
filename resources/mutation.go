package resources

import (
	"context"
	"sync"
)

// State is where a mutation is in its life.
type State string

const (
	// Applied: visible locally, waiting for the service.
	Applied State = "applied"
	// Confirmed: the service accepted it.
	Confirmed State = "confirmed"
	// RolledBack: the service refused it or could not be reached, and its
	// local effect was undone.
	RolledBack State = "rolled_back"
	// Superseded: a newer mutation on the same key settled first, so this
	// one's response no longer matters.
	Superseded State = "superseded"
)

// Mutation is the handle of one optimistic change.
type Mutation struct {
	kind, op string
	done     chan struct{}

	mu    sync.Mutex
	state State
	err   error
}

func newMutation(kind, op string) *Mutation {
	return &Mutation{kind: kind, op: op, done: make(chan struct{}), state: Applied}
}

// settled returns a mutation that never touched the network.
func settled(kind, op string, err error) *Mutation {
	m := newMutation(kind, op)
	if err != nil {
		m.finish(RolledBack, err)
	} else {
		m.finish(Confirmed, nil)
	}
	return m
}

// finish records the final state. Only the first call counts.
func (m *Mutation) finish(state State, err error) {
	m.mu.Lock()
	if m.state != Applied {
		m.mu.Unlock()
		return
	}
	m.state, m.err = state, err
	m.mu.Unlock()
	mutationsTotal.WithLabelValues(m.kind, m.op, string(state)).Inc()
	close(m.done)
}

// Op names the operation, e.g. "toggle".
func (m *Mutation) Op() string { return m.op }

// Done is closed once the mutation settles.
func (m *Mutation) Done() <-chan struct{} { return m.done }

func (m *Mutation) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Err is the network error of a settled mutation. Superseded mutations may
// carry one too; it had no effect on the store.
func (m *Mutation) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Wait blocks until the mutation settles or ctx ends.
func (m *Mutation) Wait(ctx context.Context) error {
	select {
	case <-m.done:
		return m.Err()
	case <-ctx.Done():
		return ctx.Err()
	}
}
