package resources

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"grant-dashboard/models"
)

var errBoom = errors.New("boom")

// held is one request the fake service is sitting on until the test answers.
type held struct {
	op    string
	id    string
	reply chan error
}

func (h *held) ok()            { h.reply <- nil }
func (h *held) fail(err error) { h.reply <- err }

// fakeRemote implements FavoritesRemote and AlertsRemote. Mutating calls
// block until the test answers them through next.
type fakeRemote struct {
	calls chan *held

	mu        sync.Mutex
	favorites []string
	alerts    []models.Alert
	listErr   error
	nextID    int64
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{calls: make(chan *held, 16), nextID: 100}
}

func (f *fakeRemote) hold(ctx context.Context, op, id string) error {
	h := &held{op: op, id: id, reply: make(chan error, 1)}
	select {
	case f.calls <- h:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case err := <-h.reply:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeRemote) next(t *testing.T) *held {
	t.Helper()
	select {
	case h := <-f.calls:
		return h
	case <-time.After(2 * time.Second):
		t.Fatal("no request reached the service")
		return nil
	}
}

func (f *fakeRemote) idle(t *testing.T) {
	t.Helper()
	select {
	case h := <-f.calls:
		t.Fatalf("unexpected request %s %s", h.op, h.id)
	case <-time.After(20 * time.Millisecond):
	}
}

func (f *fakeRemote) FavoriteIDs(context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]string(nil), f.favorites...), nil
}

func (f *fakeRemote) AddFavorite(ctx context.Context, id string) error {
	return f.hold(ctx, "add", id)
}

func (f *fakeRemote) RemoveFavorite(ctx context.Context, id string) error {
	return f.hold(ctx, "remove", id)
}

func (f *fakeRemote) Alerts(context.Context) ([]models.Alert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]models.Alert(nil), f.alerts...), nil
}

func (f *fakeRemote) CreateAlert(ctx context.Context, in models.AlertInput) (models.Alert, error) {
	if err := f.hold(ctx, "create", in.Name); err != nil {
		return models.Alert{}, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	return models.Alert{ID: f.nextID, Name: in.Name, Email: in.Email, Active: true, AlertCriteria: in.AlertCriteria}, nil
}

func (f *fakeRemote) UpdateAlert(ctx context.Context, id int64, patch models.AlertPatch) (models.Alert, error) {
	if err := f.hold(ctx, "update", ""); err != nil {
		return models.Alert{}, err
	}
	return patch.Apply(f.alert(id)), nil
}

func (f *fakeRemote) DeleteAlert(ctx context.Context, id int64) error {
	return f.hold(ctx, "delete", "")
}

func (f *fakeRemote) ToggleAlert(ctx context.Context, id int64) (models.Alert, error) {
	if err := f.hold(ctx, "toggle", ""); err != nil {
		return models.Alert{}, err
	}
	a := f.alert(id)
	a.Active = !a.Active
	return a, nil
}

func (f *fakeRemote) alert(id int64) models.Alert {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.alerts {
		if a.ID == id {
			return a
		}
	}
	return models.Alert{ID: id}
}

type memMirror struct {
	mu    sync.Mutex
	ids   []string
	saved bool
	saves int
	err   error
}

func (m *memMirror) Save(ids []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saves++
	if m.err != nil {
		return m.err
	}
	m.ids = append([]string(nil), ids...)
	m.saved = true
	return nil
}

func (m *memMirror) Load() ([]string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ids...), m.saved, nil
}

func (m *memMirror) snapshot() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.ids...)
}

func wait(t *testing.T, m *Mutation) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	select {
	case <-m.Done():
		return m.Err()
	case <-ctx.Done():
		t.Fatalf("%s mutation never settled", m.Op())
		return nil
	}
}
