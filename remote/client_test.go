package remote

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"grant-dashboard/identity"
	"grant-dashboard/models"
)

type rawQuery string

func (q rawQuery) Encode() string { return string(q) }

type recorded struct {
	method, path, query, user string
	body                      []byte
}

type recorder struct {
	mu    sync.Mutex
	calls []recorded
}

func (r *recorder) all() []recorded {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]recorded(nil), r.calls...)
}

func newServer(t *testing.T, status int, reply string) (*Client, *recorder) {
	t.Helper()
	rec := &recorder{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.calls = append(rec.calls, recorded{
			method: r.Method,
			path:   r.URL.Path,
			query:  r.URL.RawQuery,
			user:   r.Header.Get(identity.Header),
			body:   body,
		})
		rec.mu.Unlock()
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = io.WriteString(w, reply)
	}))
	t.Cleanup(srv.Close)
	return New(srv.URL+"/api/v1/", identity.Static("user_test")), rec
}

func TestListGrantsSendsQueryVerbatim(t *testing.T) {
	c, calls := newServer(t, http.StatusOK, `{"total":1,"grants":[{"id":"g1","source":"BOE","title":"t"}]}`)

	page, err := c.ListGrants(context.Background(), rawQuery("date_field=deadline&budget_min=500000&limit=100"))
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	require.Len(t, page.Grants, 1)
	assert.Equal(t, "g1", page.Grants[0].ID)

	all := calls.all()
	require.Len(t, all, 1)
	got := all[0]
	assert.Equal(t, "/api/v1/grants", got.path)
	assert.Equal(t, "date_field=deadline&budget_min=500000&limit=100", got.query)
	assert.Empty(t, got.user, "grant listing is not per-user")
}

func TestFavoritesCarryIdentity(t *testing.T) {
	c, calls := newServer(t, http.StatusOK, `["a","b"]`)

	ids, err := c.FavoriteIDs(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, ids)
	require.NoError(t, c.AddFavorite(context.Background(), "BOE-A/1"))
	require.NoError(t, c.RemoveFavorite(context.Background(), "x"))

	all := calls.all()
	require.Len(t, all, 3)
	for _, call := range all {
		assert.Equal(t, "user_test", call.user)
	}
	assert.Equal(t, http.MethodPost, all[1].method)
	assert.Equal(t, "/api/v1/favorites/BOE-A/1", all[1].path)
	assert.Equal(t, http.MethodDelete, all[2].method)
}

func TestUpdateAlertSendsPatch(t *testing.T) {
	c, calls := newServer(t, http.StatusOK, `{"id":7,"name":"renamed","email":"e@x","is_active":true}`)

	name := "renamed"
	a, err := c.UpdateAlert(context.Background(), 7, models.AlertPatch{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, int64(7), a.ID)
	assert.Equal(t, "renamed", a.Name)

	call := calls.all()[0]
	assert.Equal(t, http.MethodPut, call.method)
	assert.Equal(t, "/api/v1/alerts/7", call.path)
	var sent map[string]any
	require.NoError(t, json.Unmarshal(call.body, &sent))
	assert.Equal(t, map[string]any{"name": "renamed"}, sent)
}

func TestRejectedCarriesReason(t *testing.T) {
	c, _ := newServer(t, http.StatusNotFound, `{"detail":"Alert not found"}`)

	_, err := c.ToggleAlert(context.Background(), 99)
	var rej *RejectedError
	require.True(t, errors.As(err, &rej), "got %v", err)
	assert.Equal(t, http.StatusNotFound, rej.Status)
	assert.Equal(t, "Alert not found", rej.Reason)
	assert.Equal(t, "toggle_alert", rej.Op)
}

func TestNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, identity.Static("u"))
	_, err := c.Alerts(context.Background())
	var netErr *NetworkError
	require.True(t, errors.As(err, &netErr), "got %v", err)
	assert.Equal(t, "list_alerts", netErr.Op)
}

func TestUndecodableBodyIsDecodeError(t *testing.T) {
	c, _ := newServer(t, http.StatusOK, `not json`)
	_, err := c.AnalyticsOverview(context.Background(), 30)
	var decErr *DecodeError
	require.True(t, errors.As(err, &decErr), "got %v", err)
	assert.Equal(t, http.StatusOK, decErr.Status)
	assert.Equal(t, "analytics_overview", decErr.Op)
	var netErr *NetworkError
	assert.False(t, errors.As(err, &netErr), "a response arrived")
}

func TestMissingIdentityFailsBeforeSending(t *testing.T) {
	c, calls := newServer(t, http.StatusOK, `[]`)
	c.identity = identity.Static("")
	_, err := c.FavoriteIDs(context.Background())
	assert.Error(t, err)
	assert.Empty(t, calls.all())
}

func TestReason(t *testing.T) {
	tests := []struct {
		body, want string
	}{
		{`{"detail":"nope"}`, "nope"},
		{`{"detail":[{"loc":["query","limit"]}]}`, `[{"loc":["query","limit"]}]`},
		{`{"error":"bad"}`, "bad"},
		{"  plain text  ", "plain text"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, reason([]byte(tt.body)), tt.body)
	}
}

func TestReasonIsCutOnACharacterBoundary(t *testing.T) {
	body := strings.Repeat("a", maxReason-1) + "ñandú"
	got := reason([]byte(body))
	assert.True(t, utf8.ValidString(got))
	assert.Equal(t, strings.Repeat("a", maxReason-1), got)

	short := strings.Repeat("é", 50)
	assert.Equal(t, short, reason([]byte(short)))
}
