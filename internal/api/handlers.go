package api

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"zip-resizer/internal/domain"
	"zip-resizer/internal/ingest"
	"zip-resizer/internal/jobs"
	"zip-resizer/internal/options"
	"zip-resizer/internal/queue"
)

type addJobsRequest struct {
	Paths []string `json:"paths"`
}

type jobsResponse struct {
	Jobs    []domain.Job `json:"jobs"`
	Summary jobs.Summary `json:"summary"`
	Added   int          `json:"added,omitempty"`
}

type runResponse struct {
	Started bool   `json:"started"`
	RunID   string `json:"runId,omitempty"`
}

// API serves the job queue over HTTP.
type API struct {
	registry     *queue.Registry
	gateway      *ingest.Gateway
	orchestrator *jobs.Orchestrator
	events       *jobs.EventBus
	options      *RunOptions
	baseCtx      context.Context
}

// NewAPI wires handlers to the queue components. runOptions must be the
// options source the orchestrator was built with.
func NewAPI(registry *queue.Registry, gateway *ingest.Gateway, orchestrator *jobs.Orchestrator, events *jobs.EventBus, runOptions *RunOptions) *API {
	return &API{
		registry:     registry,
		gateway:      gateway,
		orchestrator: orchestrator,
		events:       events,
		options:      runOptions,
		baseCtx:      context.Background(),
	}
}

// SetBaseContext sets the context runs started over HTTP are derived from.
func (a *API) SetBaseContext(ctx context.Context) {
	a.baseCtx = ctx
}

// RegisterRoutes registers API routes on the provided gin engine
func (a *API) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1")
	{
		api.GET("/jobs", a.ListJobs)
		api.POST("/jobs", a.AddJobs)
		api.DELETE("/jobs", a.ClearJobs)
		api.POST("/runs", a.StartRun)
		api.GET("/runs/current", a.CurrentRun)
		api.GET("/events", a.Events)
	}
}

// ListJobs returns the queue in insertion order with per-status counts
func (a *API) ListJobs(c *gin.Context) {
	c.JSON(http.StatusOK, a.snapshot(0))
}

// AddJobs queues paths the same way a drop does
func (a *API) AddJobs(c *gin.Context) {
	var req addJobsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("invalid add jobs request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	added := a.gateway.DropComplete(req.Paths)
	log.Info().Int("submitted", len(req.Paths)).Int("added", added).Msg("jobs submitted")
	c.JSON(http.StatusOK, a.snapshot(added))
}

// ClearJobs empties the queue unless a run is in flight
func (a *API) ClearJobs(c *gin.Context) {
	removed, err := a.orchestrator.Clear()
	if err != nil {
		if errors.Is(err, jobs.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"removed": removed})
}

// StartRun dispatches every queued job. An optional body replaces the option inputs
func (a *API) StartRun(c *gin.Context) {
	raw, ok, err := bindRunOptions(c)
	if err != nil {
		log.Warn().Err(err).Msg("invalid run request")
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	if ok {
		a.options.Set(raw)
	}

	runID, started := a.orchestrator.Start(a.baseCtx)
	if !started {
		c.JSON(http.StatusOK, runResponse{Started: false})
		return
	}
	c.JSON(http.StatusAccepted, runResponse{Started: true, RunID: runID})
}

// CurrentRun reports whether a run is in flight and the options the next run resolves
func (a *API) CurrentRun(c *gin.Context) {
	runID, processing := a.orchestrator.CurrentRun()
	c.JSON(http.StatusOK, gin.H{
		"processing": processing,
		"runId":      runID,
		"options":    options.Format(a.options.Resolve()),
	})
}

// Events returns events published after the given sequence number
func (a *API) Events(c *gin.Context) {
	var since int64
	if raw := c.Query("since"); raw != "" {
		parsed, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || parsed < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid since"})
			return
		}
		since = parsed
	}
	c.JSON(http.StatusOK, gin.H{"events": a.events.Since(since)})
}

func (a *API) snapshot(added int) jobsResponse {
	list := a.registry.All()
	return jobsResponse{Jobs: list, Summary: jobs.Summarize(list), Added: added}
}

// bindRunOptions reads an optional options body. An empty body, chunked or
// not, reports ok false.
func bindRunOptions(c *gin.Context) (domain.RawOptions, bool, error) {
	var raw domain.RawOptions
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return raw, false, nil
	}
	if err := c.ShouldBindJSON(&raw); err != nil {
		if errors.Is(err, io.EOF) {
			return raw, false, nil
		}
		return raw, false, err
	}
	return raw, true, nil
}
