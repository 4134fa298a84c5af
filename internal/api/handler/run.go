package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/timmy/trendpipe/internal/domain"
	"github.com/timmy/trendpipe/internal/pipeline"
	"gorm.io/gorm"
)

// RunExecutor triggers pipeline runs.
type RunExecutor interface {
	Execute(ctx context.Context, opts pipeline.Options) (*domain.PipelineRun, error)
}

// RunReader reads persisted run records.
type RunReader interface {
	GetByID(ctx context.Context, id string) (*domain.PipelineRun, error)
	List(ctx context.Context, limit, offset int) ([]domain.PipelineRun, error)
}

// RunHandler handles pipeline run endpoints.
type RunHandler struct {
	executor RunExecutor
	runs     RunReader
}

// NewRunHandler creates a new run handler.
// Parameters:
//   - executor: pipeline runner used to trigger runs.
//   - runs: repository for run history.
// Returns:
//   - *RunHandler: initialized handler.
func NewRunHandler(executor RunExecutor, runs RunReader) *RunHandler {
	return &RunHandler{
		executor: executor,
		runs:     runs,
	}
}

// triggerRequest is the optional POST /api/v1/runs body.
type triggerRequest struct {
	Force       bool `json:"force"`
	SkipProduce bool `json:"skip_produce"`
}

// TriggerRun handles POST /api/v1/runs. The run executes synchronously
// within its configured deadline; an overlapping run is refused with 409.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RunHandler) TriggerRun(c *gin.Context) {
	var req triggerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request: " + err.Error(),
			})
			return
		}
	}

	run, err := h.executor.Execute(c.Request.Context(), pipeline.Options{
		ForceRefresh: req.Force,
		SkipProduce:  req.SkipProduce,
	})
	if err != nil {
		if errors.Is(err, pipeline.ErrRunInProgress) {
			c.JSON(http.StatusConflict, gin.H{
				"error": "A run is already in progress",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Run failed to start: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, run)
}

// ListRuns handles GET /api/v1/runs.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit := parseIntQuery(c, "limit", 20, 100)
	offset := parseIntQuery(c, "offset", 0, 1<<30)

	runs, err := h.runs.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list runs: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"runs":  runs,
		"total": len(runs),
	})
}

// GetRun handles GET /api/v1/runs/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RunHandler) GetRun(c *gin.Context) {
	id := c.Param("id")

	run, err := h.runs.GetByID(c.Request.Context(), id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{
				"error": "Run not found",
			})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to get run: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, run)
}

// parseIntQuery reads a bounded non-negative integer query parameter.
func parseIntQuery(c *gin.Context, name string, def, max int) int {
	raw := c.Query(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}
