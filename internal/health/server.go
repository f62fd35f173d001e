// Package health exposes the bot's liveness and counters over HTTP for
// probes and dashboards. It is read-only: nothing here mutates the pipeline.
package health

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/vikram1211/polymarket-whale-bot/internal/stats"
	"github.com/vikram1211/polymarket-whale-bot/pkg/logger"
)

// Server serves /healthz and /stats off the stats monitor.
type Server struct {
	monitor *stats.Monitor
	srv     *http.Server
}

func New(addr string, monitor *stats.Monitor) *Server {
	s := &Server{monitor: monitor}
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", s.handleHealthz)
	r.GET("/stats", s.handleStats)
	return r
}

// handleHealthz reports ok only while the feed is connected. Connecting,
// stale and reconnecting all come back 503 so orchestrators see a feed
// outage even though the process itself is alive.
func (s *Server) handleHealthz(c *gin.Context) {
	state := s.monitor.FeedState()
	status := http.StatusOK
	body := gin.H{"status": "ok", "feed_state": state}
	if state != "connected" {
		status = http.StatusServiceUnavailable
		body["status"] = "degraded"
	}
	c.JSON(status, body)
}

func (s *Server) handleStats(c *gin.Context) {
	c.JSON(http.StatusOK, s.monitor.Snapshot())
}

// Start begins serving in the background. Errors other than a clean
// shutdown are logged, not fatal: the bot keeps trading alerts even if the
// health port is taken.
func (s *Server) Start() {
	go func() {
		logger.Infof("health server listening on %s", s.srv.Addr)
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Errorf("health server: %v", err)
		}
	}()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
