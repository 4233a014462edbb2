// Package api provides the HTTP API for the port scanner service.
package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/JadenB9/mode/internal/ports"
	"github.com/JadenB9/mode/internal/scanerr"
	"github.com/JadenB9/mode/internal/scanner"
	"github.com/JadenB9/mode/internal/session"
)

// Server represents the HTTP API server.
type Server struct {
	runner   *session.Runner
	jobs     *session.Manager
	gatherer prometheus.Gatherer
	logger   *zap.SugaredLogger
	router   *gin.Engine
}

// New creates a new API server. Metrics are served from gatherer.
func New(runner *session.Runner, jobs *session.Manager, gatherer prometheus.Gatherer, logger *zap.SugaredLogger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		runner:   runner,
		jobs:     jobs,
		gatherer: gatherer,
		logger:   logger,
		router:   gin.New(),
	}

	s.setupRoutes()
	return s
}

// Router returns the gin router.
func (s *Server) Router() *gin.Engine {
	return s.router
}

func (s *Server) setupRoutes() {
	// Middleware
	s.router.Use(gin.Recovery())
	s.router.Use(s.loggingMiddleware())

	// Health endpoints
	s.router.GET("/health", s.healthHandler)
	s.router.GET("/ready", s.readyHandler)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		// Background scans
		v1.POST("/scans", s.startScanHandler)
		v1.GET("/scans", s.listScansHandler)
		v1.GET("/scans/:id", s.scanStatusHandler)
		v1.POST("/scans/:id/cancel", s.cancelScanHandler)

		// Synchronous quick scan of one target
		v1.POST("/scan/target", s.scanTargetHandler)
	}

	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
}

func (s *Server) loggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		s.logger.Debugw("Request completed",
			"path", path,
			"status", c.Writer.Status(),
			"method", c.Request.Method,
			"latency", time.Since(start),
		)
	}
}

// Health check handler
func (s *Server) healthHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "portscan",
	})
}

// Readiness check handler
func (s *Server) readyHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ready",
		"service": "portscan",
	})
}

// Start scan handler. Target and ports are validated before the job starts.
func (s *Server) startScanHandler(c *gin.Context) {
	var req StartScanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	scanType, err := ports.ParseScanType(req.ScanType)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	opts := scanner.Options{ServiceDetection: req.ServiceDetection, SaveToFile: req.SaveToFile}
	sess, err := session.Prepare(scanType, req.Target, req.PortRange, opts)
	if err != nil {
		respondError(c, err)
		return
	}

	snap := s.jobs.Start(session.JobRequest{
		Session:     sess,
		ProgressURL: req.ProgressURL,
		CompleteURL: req.CompleteURL,
		APIKey:      c.GetHeader("X-Internal-API-Key"),
	})

	c.JSON(http.StatusAccepted, StartScanResponse{
		ScanID: snap.ID,
		Status: string(snap.Status),
		Total:  snap.Total,
	})
}

func (s *Server) listScansHandler(c *gin.Context) {
	scans := s.jobs.List()
	c.JSON(http.StatusOK, gin.H{
		"scans": scans,
		"count": len(scans),
	})
}

func (s *Server) scanStatusHandler(c *gin.Context) {
	id, ok := scanID(c)
	if !ok {
		return
	}

	snap, found := s.jobs.Get(id)
	if !found {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: session.ErrJobNotFound.Error()})
		return
	}
	c.JSON(http.StatusOK, snap)
}

func (s *Server) cancelScanHandler(c *gin.Context) {
	id, ok := scanID(c)
	if !ok {
		return
	}

	switch err := s.jobs.Cancel(id); {
	case errors.Is(err, session.ErrJobNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: err.Error()})
	case errors.Is(err, session.ErrJobFinished):
		c.JSON(http.StatusConflict, ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusOK, gin.H{
			"scan_id": id.String(),
			"status":  "cancelling",
		})
	}
}

// Scan target handler - quick scan of one target, answered synchronously
func (s *Server) scanTargetHandler(c *gin.Context) {
	var req ScanTargetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "target IP address or hostname required"})
		return
	}

	sess, err := session.Prepare(ports.QuickScan, req.Target, "", scanner.Options{ServiceDetection: req.ServiceDetection})
	if err != nil {
		respondError(c, err)
		return
	}

	outcome, err := s.runner.Run(c.Request.Context(), sess, nil)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, ScanTargetResponse{
		Target:  req.Target,
		IP:      outcome.IP.String(),
		Results: outcome.Results,
		Count:   len(outcome.Results),
	})
}

func scanID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid scan id"})
		return uuid.Nil, false
	}
	return id, true
}

// respondError maps the scan error taxonomy onto HTTP status codes.
func respondError(c *gin.Context, err error) {
	kind := scanerr.KindOf(err)
	status := http.StatusInternalServerError
	switch kind {
	case scanerr.InvalidTarget, scanerr.InvalidPortRange:
		status = http.StatusBadRequest
	case scanerr.ResolutionFailed:
		status = http.StatusUnprocessableEntity
	case scanerr.Cancelled:
		status = http.StatusServiceUnavailable
	}
	c.JSON(status, ErrorResponse{Error: err.Error(), Kind: kind.String()})
}
