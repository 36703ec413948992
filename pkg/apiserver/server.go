// Package apiserver exposes the operator-facing HTTP surface: liveness,
// Prometheus metrics, and read-only bucket/batch-run status.
package apiserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/objectstream/ingestd/pkg/auditlog"
	"github.com/objectstream/ingestd/pkg/reader"
)

// Server is the operator-facing HTTP API server.
type Server struct {
	engine     *gin.Engine
	httpServer *http.Server

	registry *reader.Registry
	store    *auditlog.Store
	version  string
}

// NewServer builds a Server. registry reports live per-bucket reader
// health; store answers batch-run history queries. promReg is the
// registry /metrics scrapes (pass prometheus.DefaultRegisterer unless a
// caller wired a dedicated one, e.g. in tests). version is the process's
// build stamp, echoed on /healthz.
func NewServer(registry *reader.Registry, store *auditlog.Store, promReg *prometheus.Registry, version string) *Server {
	gin.SetMode(gin.ReleaseMode)
	e := gin.New()
	e.Use(gin.Recovery())

	s := &Server{engine: e, registry: registry, store: store, version: version}
	s.setupRoutes(promReg)
	return s
}

func (s *Server) setupRoutes(promReg *prometheus.Registry) {
	s.engine.GET("/healthz", s.handleHealthz)
	s.engine.GET("/buckets", s.handleListBuckets)
	s.engine.GET("/buckets/:bucket/runs", s.handleBucketRuns)

	if promReg != nil {
		s.engine.GET("/metrics", gin.WrapH(promhttp.HandlerFor(promReg, promhttp.HandlerOpts{})))
	} else {
		s.engine.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}
}

func (s *Server) handleHealthz(c *gin.Context) {
	resp := gin.H{"status": "healthy", "version": s.version}
	status := http.StatusOK

	if s.store != nil {
		reqCtx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		dbHealth, err := s.store.Health(reqCtx)
		resp["database"] = dbHealth
		if err != nil {
			resp["status"] = "unhealthy"
			status = http.StatusServiceUnavailable
		}
	}
	c.JSON(status, resp)
}

func (s *Server) handleListBuckets(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"buckets": s.registry.Health()})
}

func (s *Server) handleBucketRuns(c *gin.Context) {
	bucket := c.Param("bucket")
	if s.store == nil {
		c.JSON(http.StatusOK, gin.H{"bucket": bucket, "runs": nil})
		return
	}

	reqCtx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
	defer cancel()

	runs, err := s.store.Recent(reqCtx, bucket, 20)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"bucket": bucket, "runs": runs})
}

// Start begins serving HTTP on addr in the background. Call Shutdown to
// stop it gracefully.
func (s *Server) Start(addr string) error {
	s.httpServer = &http.Server{Addr: addr, Handler: s.engine}
	errCh := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()
	select {
	case err := <-errCh:
		return err
	case <-time.After(100 * time.Millisecond):
		return nil
	}
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer == nil {
		return nil
	}
	return s.httpServer.Shutdown(ctx)
}
