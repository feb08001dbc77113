// Package remote talks to the grants service over HTTP.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"grant-dashboard/identity"
	"grant-dashboard/models"
)

// Identity supplies the client id sent with per-user requests.
type Identity interface {
	ID() (string, error)
}

// Encoder is anything that renders itself as a URL query string.
type Encoder interface {
	Encode() string
}

type Client struct {
	baseURL  string
	http     *http.Client
	identity Identity
	log      *zap.Logger
}

type Option func(*Client)

func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func WithLogger(l *zap.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New builds a client for the service rooted at baseURL
// (e.g. http://localhost:8000/api/v1).
func New(baseURL string, id Identity, opts ...Option) *Client {
	c := &Client{
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		http:     &http.Client{Timeout: 30 * time.Second},
		identity: id,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ListGrants runs GET /grants with the query exactly as encoded.
func (c *Client) ListGrants(ctx context.Context, q Encoder) (models.GrantPage, error) {
	var page models.GrantPage
	path := "/grants"
	if enc := q.Encode(); enc != "" {
		path += "?" + enc
	}
	err := c.do(ctx, "list_grants", http.MethodGet, path, false, nil, &page)
	return page, err
}

func (c *Client) FavoriteIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := c.do(ctx, "favorite_ids", http.MethodGet, "/favorites/ids", true, nil, &ids)
	return ids, err
}

func (c *Client) AddFavorite(ctx context.Context, grantID string) error {
	return c.do(ctx, "add_favorite", http.MethodPost, "/favorites/"+url.PathEscape(grantID), true, nil, nil)
}

func (c *Client) RemoveFavorite(ctx context.Context, grantID string) error {
	return c.do(ctx, "remove_favorite", http.MethodDelete, "/favorites/"+url.PathEscape(grantID), true, nil, nil)
}

func (c *Client) Alerts(ctx context.Context) ([]models.Alert, error) {
	var list models.AlertList
	if err := c.do(ctx, "list_alerts", http.MethodGet, "/alerts", true, nil, &list); err != nil {
		return nil, err
	}
	return list.Alerts, nil
}

func (c *Client) CreateAlert(ctx context.Context, in models.AlertInput) (models.Alert, error) {
	var a models.Alert
	err := c.do(ctx, "create_alert", http.MethodPost, "/alerts", true, in, &a)
	return a, err
}

func (c *Client) UpdateAlert(ctx context.Context, id int64, patch models.AlertPatch) (models.Alert, error) {
	var a models.Alert
	err := c.do(ctx, "update_alert", http.MethodPut, alertPath(id), true, patch, &a)
	return a, err
}

func (c *Client) DeleteAlert(ctx context.Context, id int64) error {
	return c.do(ctx, "delete_alert", http.MethodDelete, alertPath(id), true, nil, nil)
}

func (c *Client) ToggleAlert(ctx context.Context, id int64) (models.Alert, error) {
	var a models.Alert
	err := c.do(ctx, "toggle_alert", http.MethodPost, alertPath(id)+"/toggle", true, nil, &a)
	return a, err
}

func (c *Client) AnalyticsOverview(ctx context.Context, days int) (models.Overview, error) {
	var o models.Overview
	err := c.do(ctx, "analytics_overview", http.MethodGet, "/analytics/overview?days="+strconv.Itoa(days), true, nil, &o)
	return o, err
}

func alertPath(id int64) string {
	return "/alerts/" + strconv.FormatInt(id, 10)
}

func (c *Client) do(ctx context.Context, op, method, path string, withIdentity bool, body, out any) (err error) {
	start := time.Now()
	defer func() {
		requestDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
		requestsTotal.WithLabelValues(op, outcome(err)).Inc()
	}()

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("%s: encoding body: %w", op, err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%s: building request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if withIdentity {
		id, err := c.identity.ID()
		if err != nil {
			return fmt.Errorf("%s: resolving identity: %w", op, err)
		}
		req.Header.Set(identity.Header, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Debug("Request failed", zap.String("op", op), zap.Error(err))
		return &NetworkError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		rej := &RejectedError{Op: op, Status: resp.StatusCode, Reason: reason(data)}
		c.log.Debug("Request rejected", zap.String("op", op), zap.Int("status", resp.StatusCode), zap.String("reason", rej.Reason))
		return rej
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.log.Debug("Response undecodable", zap.String("op", op), zap.Error(err))
		return &DecodeError{Op: op, Status: resp.StatusCode, Err: err}
	}
	return nil
}

func outcome(err error) string {
	switch err.(type) {
	case nil:
		return "ok"
	case *NetworkError:
		return "network_error"
	case *RejectedError:
		return "rejected"
	case *DecodeError:
		return "decode_error"
	default:
		return "error"
	}
}
