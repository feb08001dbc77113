// Package handlers exposes a dashboard session as a JSON API.
package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"grant-dashboard/dashboard"
	"grant-dashboard/filters"
	"grant-dashboard/remote"
	"grant-dashboard/resources"
)

// Handler serves one dashboard session.
type Handler struct {
	session *dashboard.Session
	log     *zap.Logger

	// wait bounds how long a mutation endpoint waits for the service before
	// answering 202 with the optimistic state.
	wait time.Duration
}

func NewHandler(session *dashboard.Session, log *zap.Logger, wait time.Duration) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	if wait <= 0 {
		wait = 30 * time.Second
	}
	return &Handler{session: session, log: log, wait: wait}
}

// NewRouter returns an engine with every route registered. Grant ids may
// contain slashes, so escaped path segments are matched raw.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.UseRawPath = true
	r.UnescapePathValues = true
	r.Use(accessLog(h.log), gin.Recovery())

	r.GET("/", func(c *gin.Context) {
		c.Redirect(http.StatusFound, "/api/state")
	})
	h.Register(r.Group("/api"))
	return r
}

// Register adds the API routes to r.
func (h *Handler) Register(r gin.IRouter) {
	r.GET("/state", h.GetState)
	r.PUT("/filters/search", h.SetSearch)
	r.PUT("/filters/quick/:id", h.SetQuickFilter)
	r.PUT("/filters/advanced", h.SetAdvanced)
	r.PUT("/filters/dates", h.SetDates)
	r.PUT("/filters/tab", h.SetTab)
	r.DELETE("/filters/:key", h.RemoveFilter)
	r.POST("/filters/clear", h.ClearFilters)

	r.GET("/grants", h.GetGrants)
	r.POST("/grants/sort/:field", h.ClickSort)
	r.POST("/grants/reload", h.Reload)

	r.GET("/favorites", h.GetFavorites)
	r.POST("/favorites/:id", h.AddFavorite)
	r.DELETE("/favorites/:id", h.RemoveFavorite)
	r.POST("/favorites/:id/toggle", h.ToggleFavorite)

	r.GET("/alerts", h.GetAlerts)
	r.POST("/alerts", h.CreateAlert)
	r.PUT("/alerts/:id", h.UpdateAlert)
	r.DELETE("/alerts/:id", h.DeleteAlert)
	r.POST("/alerts/:id/toggle", h.ToggleAlert)
	r.GET("/alerts/:id/matches", h.AlertMatches)

	r.GET("/analytics/overview", h.GetOverview)
	r.GET("/notices", h.GetNotices)
}

func accessLog(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		log.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)),
		)
	}
}

// statusOf maps an error to the status reported to the client. Rejections
// keep the grants service's status.
func statusOf(err error) int {
	var rej *remote.RejectedError
	var netErr *remote.NetworkError
	var decErr *remote.DecodeError
	switch {
	case errors.As(err, &rej):
		return rej.Status
	case errors.As(err, &netErr), errors.As(err, &decErr):
		return http.StatusBadGateway
	case errors.Is(err, resources.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, resources.ErrUnsaved):
		return http.StatusConflict
	case errors.Is(err, filters.ErrUnknownKey):
		return http.StatusBadRequest
	case errors.Is(err, resources.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func fail(c *gin.Context, err error) {
	c.JSON(statusOf(err), gin.H{"error": err.Error()})
}

// settle waits for m and reports whether the caller should write its success
// body. A rollback is written as an error; a wait that runs out is answered
// with 202 and the optimistic state.
func (h *Handler) settle(c *gin.Context, m *resources.Mutation) bool {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.wait)
	defer cancel()

	err := m.Wait(ctx)
	select {
	case <-m.Done():
	default:
		h.log.Debug("Mutation still pending", zap.String("op", m.Op()), zap.Error(err))
		c.JSON(http.StatusAccepted, gin.H{"state": m.State()})
		return false
	}
	if m.State() == resources.RolledBack {
		fail(c, m.Err())
		return false
	}
	return true
}
