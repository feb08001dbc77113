package remotetest_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grant-dashboard/filters"
	"grant-dashboard/identity"
	"grant-dashboard/models"
	"grant-dashboard/remote"
	"grant-dashboard/remotetest"
)

func f(v float64) *float64 { return &v }
func s(v string) *string   { return &v }

func day(v string) *models.Date {
	t, _ := time.Parse(models.DayLayout, v)
	return models.NewDate(t)
}

func start(t *testing.T) (*remotetest.Server, *remote.Client) {
	t.Helper()
	srv, err := remotetest.New()
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	now := models.NewDate(time.Now().UTC())
	require.NoError(t, srv.Seed(
		models.Grant{ID: "g1", Source: "BOE", Title: "Ayudas a la cultura", Department: s("Ministerio de Cultura"),
			ApplicationEndDate: day("2025-03-01"), BudgetAmount: f(100000), IsOpen: true, CapturedAt: now,
			NonprofitConfidence: f(0.9), IsNonprofit: true},
		models.Grant{ID: "g2", Source: "BDNS", Title: "Energía solar", Purpose: s("instalaciones fotovoltaicas"),
			ApplicationEndDate: day("2025-05-01"), BudgetAmount: f(750000), IsOpen: true, SentToN8n: true, CapturedAt: now,
			NonprofitConfidence: f(0.4)},
		models.Grant{ID: "g3", Source: "PLACSP", Title: "Obras públicas", ApplicationEndDate: day("2025-01-15"),
			PublicationDate: day("2024-12-01"), CapturedAt: now},
	))
	return srv, remote.New(srv.URL, identity.Static("user_a"))
}

func listIDs(t *testing.T, c *remote.Client, st filters.State) []string {
	t.Helper()
	page, err := c.ListGrants(context.Background(), filters.BuildQuery(st, 100))
	require.NoError(t, err)
	ids := make([]string, len(page.Grants))
	for i, g := range page.Grants {
		ids[i] = g.ID
	}
	assert.Equal(t, len(ids), page.Total)
	return ids
}

func TestBuiltQueriesAreUnderstood(t *testing.T) {
	_, c := start(t)

	st := filters.Defaults()
	assert.Equal(t, []string{"g3", "g1", "g2"}, listIDs(t, c, st), "deadline ascending")

	st.Quick[2].Active = true // large_amount
	st.Advanced.BudgetMin = 50000
	assert.Equal(t, []string{"g2"}, listIDs(t, c, st))

	st = filters.Defaults()
	st.Advanced.IsNonprofit = true
	assert.Equal(t, []string{"g1"}, listIDs(t, c, st))

	st = filters.Defaults()
	st.Advanced.ConfidenceMin = 50
	assert.Equal(t, []string{"g1"}, listIDs(t, c, st))

	st = filters.Defaults()
	st.Tab = filters.TabSent
	assert.Equal(t, []string{"g2"}, listIDs(t, c, st))

	st = filters.Defaults()
	st.Advanced.Search = "fotovoltaicas"
	assert.Equal(t, []string{"g2"}, listIDs(t, c, st))

	st = filters.Defaults()
	st.Dates = filters.DateRange{From: "2025-02-01", To: "2025-04-01"}
	assert.Equal(t, []string{"g1"}, listIDs(t, c, st))

	st.DateField = filters.DatePublication
	st.Dates = filters.DateRange{To: "2024-12-31"}
	assert.Equal(t, []string{"g3"}, listIDs(t, c, st))

	st = filters.Defaults()
	st.Advanced.Source = filters.SourceBDNS
	st.Advanced.Department = "cultura"
	assert.Empty(t, listIDs(t, c, st))
}

func TestInvalidLimitRejected(t *testing.T) {
	_, c := start(t)
	_, err := c.ListGrants(context.Background(), filters.BuildQuery(filters.Defaults(), 501))
	var rej *remote.RejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, http.StatusUnprocessableEntity, rej.Status)
}

func TestFavoritesPerUser(t *testing.T) {
	srv, c := start(t)
	ctx := context.Background()

	require.NoError(t, c.AddFavorite(ctx, "g2"))
	require.NoError(t, c.AddFavorite(ctx, "g1"))
	ids, err := c.FavoriteIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"g2", "g1"}, ids)
	assert.Empty(t, srv.Favorites("user_b"))

	var rej *remote.RejectedError
	err = c.AddFavorite(ctx, "g1")
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, "Already favorited", rej.Reason)

	err = c.AddFavorite(ctx, "nope")
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, http.StatusNotFound, rej.Status)

	require.NoError(t, c.RemoveFavorite(ctx, "g2"))
	assert.Equal(t, []string{"g1"}, srv.Favorites("user_a"))
	err = c.RemoveFavorite(ctx, "g2")
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, "Favorite not found", rej.Reason)
}

func TestAlertLifecycle(t *testing.T) {
	srv, c := start(t)
	ctx := context.Background()

	first, err := c.CreateAlert(ctx, models.AlertInput{Name: "cultura", Email: "a@b.es", AlertCriteria: models.AlertCriteria{Keywords: s("cultura"), Regions: []string{"Madrid"}}})
	require.NoError(t, err)
	assert.True(t, first.Active)
	second, err := c.CreateAlert(ctx, models.AlertInput{Name: "solar", Email: "a@b.es"})
	require.NoError(t, err)

	list, err := c.Alerts(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, []string{"Madrid"}, list[1].Regions)

	name := "cultura y arte"
	updated, err := c.UpdateAlert(ctx, first.ID, models.AlertPatch{Name: &name, Source: s("BOE")})
	require.NoError(t, err)
	assert.Equal(t, "cultura y arte", updated.Name)
	assert.Equal(t, "BOE", models.Str(updated.Source))

	var rej *remote.RejectedError
	_, err = c.UpdateAlert(ctx, first.ID, models.AlertPatch{Source: s("XYZ")})
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, http.StatusBadRequest, rej.Status)

	toggled, err := c.ToggleAlert(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, toggled.Active)

	require.NoError(t, c.DeleteAlert(ctx, second.ID))
	err = c.DeleteAlert(ctx, second.ID)
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, http.StatusNotFound, rej.Status)

	other := remote.New(srv.URL, identity.Static("user_b"))
	_, err = other.ToggleAlert(ctx, first.ID)
	require.True(t, errors.As(err, &rej), "alerts are private to their owner")
}

func TestFaultInjection(t *testing.T) {
	srv, c := start(t)
	ctx := context.Background()

	srv.FailNext(remotetest.RouteAddFavorite, 1, http.StatusServiceUnavailable)
	err := c.AddFavorite(ctx, "g1")
	var rej *remote.RejectedError
	require.True(t, errors.As(err, &rej))
	assert.Equal(t, http.StatusServiceUnavailable, rej.Status)
	assert.Equal(t, "injected failure", rej.Reason)
	require.NoError(t, c.AddFavorite(ctx, "g1"), "only the next request fails")

	// GETs would be retried by the transport on a fresh connection.
	srv.DropNext(remotetest.RouteAddFavorite, 1)
	err = c.AddFavorite(ctx, "g2")
	var netErr *remote.NetworkError
	assert.True(t, errors.As(err, &netErr), "got %v", err)

	release := srv.Hold(remotetest.RouteRemoveFavorite)
	done := make(chan error, 1)
	go func() { done <- c.RemoveFavorite(ctx, "g1") }()
	select {
	case <-done:
		t.Fatal("held request answered early")
	case <-time.After(50 * time.Millisecond):
	}
	release()
	require.NoError(t, <-done)
	assert.Equal(t, 1, srv.Hits(remotetest.RouteRemoveFavorite))
	assert.Equal(t, 3, srv.Hits(remotetest.RouteAddFavorite))
}

func TestOverview(t *testing.T) {
	_, c := start(t)
	o, err := c.AnalyticsOverview(context.Background(), 30)
	require.NoError(t, err)
	assert.Equal(t, 3, o.TotalGrants)
	assert.Equal(t, 1, o.NonprofitGrants)
	assert.Equal(t, 2, o.OpenGrants)
	assert.Equal(t, 1, o.SentToN8n)
	assert.InDelta(t, 850000, o.TotalBudget, 0.01)
	assert.InDelta(t, 0.65, o.AvgConfidence, 0.001)
	require.Len(t, o.GrantsBySource, 3)
	assert.Equal(t, "BDNS", o.GrantsBySource[0].Source)
	assert.Equal(t, 1, o.GrantsBySource[0].SentToN8nCount)
}
