// Package dashboard assembles one user's dashboard: filter state, the grant
// feed it drives, the list view over the feed, and the favorites and alerts
// stores.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"grant-dashboard/feed"
	"grant-dashboard/filters"
	"grant-dashboard/listview"
	"grant-dashboard/models"
	"grant-dashboard/resources"
)

// Remote is everything a session needs from the grants service.
type Remote interface {
	feed.Lister
	resources.FavoritesRemote
	resources.AlertsRemote
	AnalyticsOverview(ctx context.Context, days int) (models.Overview, error)
}

type Config struct {
	QueryLimit    int
	PageSize      int
	Locale        string
	ReloadWindow  time.Duration
	AnalyticsDays int
}

// Notice is a failed change reported to the user.
type Notice struct {
	At      time.Time `json:"at"`
	Message string    `json:"message"`
}

const maxNotices = 20

type Session struct {
	Filters   *filters.Aggregator
	List      *listview.Engine
	Feed      *feed.Feed
	Favorites *resources.Favorites
	Alerts    *resources.Alerts

	cfg       Config
	remote    Remote
	projector *filters.Projector
	coalescer *filters.Coalescer
	log       *zap.Logger

	mu          sync.Mutex
	mounted     bool
	closed      bool
	unsubscribe func()
	notices     []Notice
	stop        chan struct{}
	wg          sync.WaitGroup
}

// New builds a session. mirror may be nil.
func New(remote Remote, mirror resources.Mirror, cfg Config, log *zap.Logger) *Session {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Session{
		Filters:   filters.NewAggregator(),
		List:      listview.New(cfg.Locale, cfg.PageSize),
		Feed:      feed.New(remote, log.Named("feed")),
		Favorites: resources.NewFavorites(remote, mirror, log.Named("favorites")),
		Alerts:    resources.NewAlerts(remote, log.Named("alerts")),
		cfg:       cfg,
		remote:    remote,
		projector: filters.NewProjector(cfg.Locale),
		log:       log,
		stop:      make(chan struct{}),
	}
	s.coalescer = filters.NewCoalescer(cfg.ReloadWindow, func() { s.Feed.Reload(s.Query()) })
	s.Feed.OnUpdate(s.applyFeed)
	return s
}

// Mount loads favorites, alerts and the first grant page concurrently and
// starts reacting to filter changes. Load failures are returned but leave the
// session usable: favorites may come from the mirror and the list stays empty
// until a reload succeeds.
func (s *Session) Mount(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errors.New("dashboard: session closed")
	}
	if s.mounted {
		s.mu.Unlock()
		return nil
	}
	s.mounted = true
	s.unsubscribe = s.Filters.Subscribe(func(filters.State) { s.coalescer.Trigger() })
	s.mu.Unlock()

	s.wg.Add(2)
	go s.collect(s.Favorites.Errors())
	go s.collect(s.Alerts.Errors())

	var g errgroup.Group
	g.Go(func() error {
		origin, err := s.Favorites.Load(ctx)
		if origin == resources.OriginMirror {
			s.notify("Favorites could not be loaded from the service; showing the local copy")
		}
		return err
	})
	g.Go(func() error {
		return s.Alerts.Load(ctx)
	})
	g.Go(func() error {
		return s.Feed.Fetch(ctx, s.Query())
	})
	if err := g.Wait(); err != nil {
		s.log.Warn("Dashboard mounted with errors", zap.Error(err))
		return fmt.Errorf("mounting dashboard: %w", err)
	}
	s.log.Debug("Dashboard mounted", zap.Int("favorites", len(s.Favorites.IDs())), zap.Int("alerts", len(s.Alerts.List())))
	return nil
}

func (s *Session) applyFeed(snap feed.Snapshot) {
	if snap.Err != nil {
		s.notify("Grant list could not be refreshed: " + snap.Err.Error())
		return
	}
	s.List.SetRecords(snap.Grants)
}

// collect turns rolled-back mutations into notices until Close.
func (s *Session) collect(errs <-chan error) {
	defer s.wg.Done()
	for {
		select {
		case err := <-errs:
			s.notify(err.Error())
		case <-s.stop:
			return
		}
	}
}

func (s *Session) notify(msg string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.notices = append(s.notices, Notice{At: time.Now(), Message: msg})
	if len(s.notices) > maxNotices {
		s.notices = s.notices[len(s.notices)-maxNotices:]
	}
}

// Notices returns and clears the pending notices.
func (s *Session) Notices() []Notice {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := s.notices
	s.notices = nil
	return out
}

// Query is the service query for the current filters.
func (s *Session) Query() filters.Query {
	return filters.BuildQuery(s.Filters.State(), s.cfg.QueryLimit)
}

// ActiveFilters is the removable summary of the current filters.
func (s *Session) ActiveFilters() []filters.ActiveFilter {
	return s.projector.Project(s.Filters.State())
}

// Reload fetches the grant list now, bypassing the coalescing window.
func (s *Session) Reload() uint64 {
	return s.Feed.Reload(s.Query())
}

// Flush issues a reload that is waiting for its window to pass.
func (s *Session) Flush() {
	s.coalescer.Flush()
}

// AlertMatches previews which grants of the current list an alert matches.
func (s *Session) AlertMatches(id int64) ([]models.Grant, error) {
	a, ok := s.Alerts.Get(id)
	if !ok {
		return nil, fmt.Errorf("alert %d: %w", id, resources.ErrNotFound)
	}
	var out []models.Grant
	for _, g := range s.Feed.Snapshot().Grants {
		if a.Matches(g) {
			out = append(out, g)
		}
	}
	return out, nil
}

// Overview fetches the analytics summary for the configured window.
func (s *Session) Overview(ctx context.Context, days int) (models.Overview, error) {
	if days <= 0 {
		days = s.cfg.AnalyticsDays
	}
	return s.remote.AnalyticsOverview(ctx, days)
}

// Close stops reacting to filter changes and discards every response still in
// flight. It is safe to call more than once.
func (s *Session) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	unsubscribe := s.unsubscribe
	s.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
	s.coalescer.Stop()
	s.Feed.Close()
	s.Favorites.Close()
	s.Alerts.Close()
	close(s.stop)
	s.wg.Wait()
}
