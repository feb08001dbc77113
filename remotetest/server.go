// Package remotetest runs an in-process fake of the grants service, backed by
// an in-memory sqlite database, with hooks to make chosen requests fail,
// drop their connection or wait until released.
package remotetest

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"grant-dashboard/identity"
	"grant-dashboard/models"
)

// Route keys accepted by the fault hooks.
const (
	RouteListGrants     = "GET /grants"
	RouteFavoriteIDs    = "GET /favorites/ids"
	RouteAddFavorite    = "POST /favorites/:id"
	RouteRemoveFavorite = "DELETE /favorites/:id"
	RouteListAlerts     = "GET /alerts"
	RouteCreateAlert    = "POST /alerts"
	RouteUpdateAlert    = "PUT /alerts/:id"
	RouteDeleteAlert    = "DELETE /alerts/:id"
	RouteToggleAlert    = "POST /alerts/:id/toggle"
	RouteOverview       = "GET /analytics/overview"
)

const prefix = "/api/v1"

type fault struct {
	fail   int
	status int
	drop   int
	hold   chan struct{}
}

// Server is a running fake. URL is the API root to hand to remote.New.
type Server struct {
	URL string
	DB  *gorm.DB

	srv *httptest.Server

	mu     sync.Mutex
	faults map[string]*fault
	hits   map[string]int
}

// New starts a fake with an empty database.
func New() (*Server, error) {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("remotetest: opening database: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("remotetest: %w", err)
	}
	// Every connection to :memory: is a separate database.
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&grantRow{}, &favoriteRow{}, &alertRow{}); err != nil {
		return nil, fmt.Errorf("remotetest: migrating: %w", err)
	}

	s := &Server{
		DB:     db,
		faults: make(map[string]*fault),
		hits:   make(map[string]int),
	}
	s.srv = httptest.NewServer(s.router())
	s.URL = s.srv.URL + prefix
	return s, nil
}

func (s *Server) router() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.UseRawPath = true
	r.UnescapePathValues = true
	r.Use(gin.Recovery(), s.inject)

	api := r.Group(prefix)
	{
		api.GET("/grants", s.listGrants)
		api.GET("/favorites/ids", s.favoriteIDs)
		api.POST("/favorites/:id", s.addFavorite)
		api.DELETE("/favorites/:id", s.removeFavorite)
		api.GET("/alerts", s.listAlerts)
		api.POST("/alerts", s.createAlert)
		api.PUT("/alerts/:id", s.updateAlert)
		api.DELETE("/alerts/:id", s.deleteAlert)
		api.POST("/alerts/:id/toggle", s.toggleAlert)
		api.GET("/analytics/overview", s.overview)
	}
	return r
}

// inject counts requests and applies whatever fault is armed for the route.
func (s *Server) inject(c *gin.Context) {
	route := c.Request.Method + " " + strings.TrimPrefix(c.FullPath(), prefix)

	s.mu.Lock()
	s.hits[route]++
	f := s.faults[route]
	var hold chan struct{}
	drop, fail, status := false, false, 0
	if f != nil {
		hold = f.hold
		switch {
		case f.drop > 0:
			f.drop--
			drop = true
		case f.fail > 0:
			f.fail--
			fail, status = true, f.status
		}
	}
	s.mu.Unlock()

	if hold != nil {
		select {
		case <-hold:
		case <-c.Request.Context().Done():
			c.Abort()
			return
		}
	}
	if drop {
		if conn, _, err := c.Writer.Hijack(); err == nil {
			conn.Close()
		}
		c.Abort()
		return
	}
	if fail {
		c.AbortWithStatusJSON(status, gin.H{"detail": "injected failure"})
		return
	}
	c.Next()
}

func (s *Server) fault(route string) *fault {
	f := s.faults[route]
	if f == nil {
		f = &fault{}
		s.faults[route] = f
	}
	return f
}

// FailNext answers the next n requests to route with status.
func (s *Server) FailNext(route string, n, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	f := s.fault(route)
	f.fail, f.status = n, status
}

// DropNext closes the connection of the next n requests to route without
// answering.
func (s *Server) DropNext(route string, n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fault(route).drop = n
}

// Hold parks requests to route until release is called.
func (s *Server) Hold(route string) (release func()) {
	ch := make(chan struct{})
	s.mu.Lock()
	f := s.fault(route)
	if f.hold != nil {
		close(f.hold)
	}
	f.hold = ch
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if f.hold == ch {
			f.hold = nil
			close(ch)
		}
	}
}

// Hits reports how many requests reached route.
func (s *Server) Hits(route string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.hits[route]
}

// Seed inserts grants.
func (s *Server) Seed(grants ...models.Grant) error {
	if len(grants) == 0 {
		return nil
	}
	rows := make([]grantRow, len(grants))
	for i, g := range grants {
		rows[i] = grantFromModel(g)
	}
	return s.DB.Create(&rows).Error
}

// Favorites returns the ids the service holds for user.
func (s *Server) Favorites(user string) []string {
	ids, _ := s.favoriteIDsFor(user)
	return ids
}

// Close releases held requests, stops the server and closes the database.
func (s *Server) Close() {
	s.mu.Lock()
	for _, f := range s.faults {
		if f.hold != nil {
			close(f.hold)
			f.hold = nil
		}
	}
	s.mu.Unlock()
	s.srv.Close()
	if sqlDB, err := s.DB.DB(); err == nil {
		sqlDB.Close()
	}
}

func userID(c *gin.Context) string {
	if id := c.GetHeader(identity.Header); id != "" {
		return id
	}
	return "anonymous"
}

func detail(c *gin.Context, status int, msg string) {
	c.JSON(status, gin.H{"detail": msg})
}
