package resources

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// FavoritesRemote is the part of the grants service favorites need.
type FavoritesRemote interface {
	FavoriteIDs(ctx context.Context) ([]string, error)
	AddFavorite(ctx context.Context, grantID string) error
	RemoveFavorite(ctx context.Context, grantID string) error
}

// Mirror is a local best-effort copy of the favorite ids.
type Mirror interface {
	Save(ids []string) error
	Load() (ids []string, ok bool, err error)
}

// Origin says where the favorites currently shown were loaded from.
type Origin string

const (
	OriginNone   Origin = ""
	OriginRemote Origin = "remote"
	OriginMirror Origin = "mirror"
)

// Favorites is the set of grant ids the user starred.
type Favorites struct {
	store  *Store[string, struct{}]
	remote FavoritesRemote
	mirror Mirror
	log    *zap.Logger

	mu     sync.Mutex
	origin Origin

	mirrorMu sync.Mutex
}

// NewFavorites wires a favorites store. mirror may be nil.
func NewFavorites(remote FavoritesRemote, mirror Mirror, log *zap.Logger) *Favorites {
	if log == nil {
		log = zap.NewNop()
	}
	f := &Favorites{
		store:  NewStore[string, struct{}]("favorites", log),
		remote: remote,
		mirror: mirror,
		log:    log,
	}
	f.store.OnChange(f.saveMirror)
	return f
}

// Load fetches the favorites from the service. When that fails the mirror is
// used instead, if it has ever been written; the remote error is returned
// only when there is nothing to fall back to.
func (f *Favorites) Load(ctx context.Context) (Origin, error) {
	ids, err := f.remote.FavoriteIDs(ctx)
	if err == nil {
		f.reset(ids, OriginRemote)
		return OriginRemote, nil
	}
	if f.mirror == nil {
		return OriginNone, fmt.Errorf("loading favorites: %w", err)
	}
	mirrored, ok, merr := f.mirror.Load()
	if merr != nil || !ok {
		if merr != nil {
			f.log.Warn("Favorites mirror unreadable", zap.Error(merr))
		}
		return OriginNone, fmt.Errorf("loading favorites: %w", err)
	}
	f.log.Warn("Favorites loaded from local mirror", zap.Error(err), zap.Int("count", len(mirrored)))
	f.reset(mirrored, OriginMirror)
	return OriginMirror, nil
}

func (f *Favorites) reset(ids []string, origin Origin) {
	f.mu.Lock()
	f.origin = origin
	f.mu.Unlock()
	f.store.Reset(ids, make([]struct{}, len(ids)))
}

// Origin reports where the current set came from.
func (f *Favorites) Origin() Origin {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.origin
}

func (f *Favorites) saveMirror() {
	if f.mirror == nil {
		return
	}
	f.mirrorMu.Lock()
	defer f.mirrorMu.Unlock()
	if err := f.mirror.Save(f.store.Keys()); err != nil {
		f.log.Warn("Favorites mirror write failed", zap.Error(err))
	}
}

func (f *Favorites) Has(grantID string) bool {
	_, ok := f.store.Get(grantID)
	return ok
}

// IDs returns the favorite ids in the order they were added.
func (f *Favorites) IDs() []string {
	return f.store.Keys()
}

// Add stars grantID. Adding an id that is already a favorite does nothing
// and makes no request.
func (f *Favorites) Add(grantID string) *Mutation {
	if f.Has(grantID) {
		return settled("favorites", "add", nil)
	}
	return f.set("add", grantID, true)
}

// Remove unstars grantID. Removing an id that is not a favorite does nothing
// and makes no request.
func (f *Favorites) Remove(grantID string) *Mutation {
	if !f.Has(grantID) {
		return settled("favorites", "remove", nil)
	}
	return f.set("remove", grantID, false)
}

// Toggle flips the membership of grantID.
func (f *Favorites) Toggle(grantID string) *Mutation {
	// The target is fixed when the toggle is issued; replays keep it.
	var target, resolved bool
	return f.store.Mutate("toggle", grantID, false,
		func(_ struct{}, ok bool) (struct{}, bool) {
			if !resolved {
				target, resolved = !ok, true
			}
			return struct{}{}, target
		},
		func(ctx context.Context) (Outcome[string, struct{}], error) {
			return f.send(ctx, grantID, target)
		})
}

func (f *Favorites) set(op, grantID string, present bool) *Mutation {
	return f.store.Mutate(op, grantID, false,
		func(struct{}, bool) (struct{}, bool) { return struct{}{}, present },
		func(ctx context.Context) (Outcome[string, struct{}], error) {
			return f.send(ctx, grantID, present)
		})
}

func (f *Favorites) send(ctx context.Context, grantID string, present bool) (Outcome[string, struct{}], error) {
	var err error
	if present {
		err = f.remote.AddFavorite(ctx, grantID)
	} else {
		err = f.remote.RemoveFavorite(ctx, grantID)
	}
	return Outcome[string, struct{}]{Present: present}, err
}

// Errors delivers rolled-back favorite changes.
func (f *Favorites) Errors() <-chan error { return f.store.Errors() }

func (f *Favorites) Close() { f.store.Close() }
