package resources

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"grant-dashboard/models"
)

// ErrNotFound is returned when mutating an alert the store does not hold.
var ErrNotFound = errors.New("resources: not found")

// ErrUnsaved is returned when mutating an alert whose creation the service
// has not confirmed yet.
var ErrUnsaved = errors.New("resources: alert not saved yet")

// AlertsRemote is the part of the grants service alerts need.
type AlertsRemote interface {
	Alerts(ctx context.Context) ([]models.Alert, error)
	CreateAlert(ctx context.Context, in models.AlertInput) (models.Alert, error)
	UpdateAlert(ctx context.Context, id int64, patch models.AlertPatch) (models.Alert, error)
	DeleteAlert(ctx context.Context, id int64) error
	ToggleAlert(ctx context.Context, id int64) (models.Alert, error)
}

// Alerts holds the user's saved alerts. Alerts being created carry a negative
// temporary id until the service assigns the real one.
type Alerts struct {
	store   *Store[int64, models.Alert]
	remote  AlertsRemote
	temp    atomic.Int64
	created sync.Map // temporary id -> server id
}

func NewAlerts(remote AlertsRemote, log *zap.Logger) *Alerts {
	return &Alerts{store: NewStore[int64, models.Alert]("alerts", log), remote: remote}
}

// Load replaces the alerts with the service's list.
func (a *Alerts) Load(ctx context.Context) error {
	list, err := a.remote.Alerts(ctx)
	if err != nil {
		return fmt.Errorf("loading alerts: %w", err)
	}
	ids := make([]int64, len(list))
	for i, al := range list {
		ids[i] = al.ID
	}
	a.store.Reset(ids, list)
	return nil
}

// List returns the alerts, newest first.
func (a *Alerts) List() []models.Alert {
	return a.store.Values()
}

func (a *Alerts) Get(id int64) (models.Alert, bool) {
	return a.store.Get(id)
}

// Create adds the alert at the top of the list at once, under a temporary id
// returned here. On confirmation it moves to the id the service assigned.
func (a *Alerts) Create(in models.AlertInput) (int64, *Mutation) {
	tmp := -a.temp.Add(1)
	m := a.store.Mutate("create", tmp, true,
		func(models.Alert, bool) (models.Alert, bool) {
			return models.Alert{ID: tmp, Name: in.Name, Email: in.Email, Active: true, AlertCriteria: in.AlertCriteria}, true
		},
		func(ctx context.Context) (Outcome[int64, models.Alert], error) {
			created, err := a.remote.CreateAlert(ctx, in)
			if err != nil {
				return Outcome[int64, models.Alert]{}, err
			}
			a.created.Store(tmp, created.ID)
			return Outcome[int64, models.Alert]{Value: created, Present: true, Rekey: true, NewKey: created.ID}, nil
		})
	return tmp, m
}

// ServerID returns the id the service assigned to the alert created under
// the temporary id tmp, once the creation is confirmed.
func (a *Alerts) ServerID(tmp int64) (int64, bool) {
	v, ok := a.created.Load(tmp)
	if !ok {
		return 0, false
	}
	return v.(int64), true
}

// Update applies patch locally and sends it.
func (a *Alerts) Update(id int64, patch models.AlertPatch) *Mutation {
	if err := a.check(id); err != nil {
		return settled("alerts", "update", err)
	}
	return a.store.Mutate("update", id, false,
		func(cur models.Alert, _ bool) (models.Alert, bool) { return patch.Apply(cur), true },
		func(ctx context.Context) (Outcome[int64, models.Alert], error) {
			updated, err := a.remote.UpdateAlert(ctx, id, patch)
			return Outcome[int64, models.Alert]{Value: updated, Present: true}, err
		})
}

// Toggle flips whether the alert is active.
func (a *Alerts) Toggle(id int64) *Mutation {
	if err := a.check(id); err != nil {
		return settled("alerts", "toggle", err)
	}
	return a.store.Mutate("toggle", id, false,
		func(cur models.Alert, _ bool) (models.Alert, bool) {
			cur.Active = !cur.Active
			return cur, true
		},
		func(ctx context.Context) (Outcome[int64, models.Alert], error) {
			toggled, err := a.remote.ToggleAlert(ctx, id)
			return Outcome[int64, models.Alert]{Value: toggled, Present: true}, err
		})
}

// Delete removes the alert from the list at once.
func (a *Alerts) Delete(id int64) *Mutation {
	if err := a.check(id); err != nil {
		return settled("alerts", "delete", err)
	}
	return a.store.Mutate("delete", id, false,
		func(cur models.Alert, _ bool) (models.Alert, bool) { return cur, false },
		func(ctx context.Context) (Outcome[int64, models.Alert], error) {
			return Outcome[int64, models.Alert]{}, a.remote.DeleteAlert(ctx, id)
		})
}

func (a *Alerts) check(id int64) error {
	if id < 0 {
		return fmt.Errorf("alert %d: %w", id, ErrUnsaved)
	}
	if _, ok := a.store.Get(id); !ok {
		return fmt.Errorf("alert %d: %w", id, ErrNotFound)
	}
	return nil
}

// Errors delivers rolled-back alert changes.
func (a *Alerts) Errors() <-chan error { return a.store.Errors() }

func (a *Alerts) Close() { a.store.Close() }
