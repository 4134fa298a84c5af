package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/timmy/trendpipe/internal/domain"
)

// TrendProvider serves the current scored candidate set.
type TrendProvider interface {
	Acquire(ctx context.Context, force bool) (*domain.CandidateSet, bool, error)
}

// TrendHandler handles trend inspection endpoints.
type TrendHandler struct {
	provider TrendProvider
}

// NewTrendHandler creates a new trend handler.
// Parameters:
//   - provider: trend analyzer used to serve candidate sets.
// Returns:
//   - *TrendHandler: initialized handler.
func NewTrendHandler(provider TrendProvider) *TrendHandler {
	return &TrendHandler{provider: provider}
}

// GetTrends handles GET /api/v1/trends. Results come from the cache
// when fresh; force=true refetches from all sources.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *TrendHandler) GetTrends(c *gin.Context) {
	force := c.Query("force") == "true"
	limit := parseIntQuery(c, "limit", 20, 100)

	set, cacheHit, err := h.provider.Acquire(c.Request.Context(), force)
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Trend data unavailable: " + err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"trends":        set.TopN(limit),
		"total":         set.Len(),
		"cache_hit":     cacheHit,
		"fetched_at":    set.FetchedAt,
		"source_counts": set.SourceCounts,
	})
}
