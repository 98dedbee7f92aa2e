// Package debugserver exposes a read-only gin HTTP server for inspecting a
// running session: the latest UI snapshot, queue contents, and disk cache
// usage (spec §6 ambient addition). Route/response shape mirrors
// internal/radio/handler's gin.H-based handlers, repurposed from
// station-admin endpoints to player/cache/queue introspection; it is
// entirely optional and flag-gated by --debug-http / AUDIO_DEBUG_HTTP_ADDR.
package debugserver

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sorairo/resonance/internal/queue"
	"github.com/sorairo/resonance/internal/snapshot"
	"github.com/sorairo/resonance/internal/transfer"
)

// CacheStatter reports the disk cache's current size, satisfied by
// *transfer.Actor.
type CacheStatter interface {
	CacheStats() (files int, bytes uint64, dir string)
}

// SnapshotSource returns the most recently built snapshot. The host keeps
// one under a mutex and updates it every time the reducer emits one; the
// debug server only ever reads it.
type SnapshotSource func() snapshot.Snapshot

// Server is the optional introspection HTTP server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server
}

// New builds a debug server bound to addr. snap returns the latest
// snapshot, q is the shared play queue, cache reports disk cache usage.
func New(addr string, snap SnapshotSource, q *queue.Queue, cache CacheStatter) *Server {
	gin.SetMode(gin.ReleaseMode)
	engine := gin.New()
	engine.Use(gin.Recovery())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	engine.GET("/snapshot", func(c *gin.Context) {
		s := snap()
		c.JSON(http.StatusOK, gin.H{
			"view":   s.View.String(),
			"player": s.Player,
		})
	})

	engine.GET("/queue", func(c *gin.Context) {
		current, hasCurrent := q.Current()
		c.JSON(http.StatusOK, gin.H{
			"status":      "ok",
			"length":      q.Len(),
			"mode":        q.Mode().String(),
			"has_current": hasCurrent,
			"current":     current,
			"songs":       q.Songs(),
		})
	})

	engine.GET("/cache", func(c *gin.Context) {
		files, bytes, dir := cache.CacheStats()
		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"files":  files,
			"bytes":  bytes,
			"dir":    dir,
		})
	})

	return &Server{
		engine:     engine,
		httpServer: &http.Server{Addr: addr, Handler: engine, ReadHeaderTimeout: 5 * time.Second},
	}
}

// Handler returns the underlying HTTP handler, for tests that want to
// drive requests through httptest without binding a real listener.
func (s *Server) Handler() http.Handler { return s.engine }

// Run starts serving until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		slog.Info("debug server listening", "addr", s.httpServer.Addr)
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return s.httpServer.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}
