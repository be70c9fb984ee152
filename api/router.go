// Package api stellt die HTTP-Schnittstelle bereit: Feed, Filteroptionen,
// Job-Protokoll und manuelles Auslösen der Pipeline-Stufen.
package api

import (
	"context"
	"errors"
	"net/http"
	"sort"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/config"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/models"
	"github.com/MuhammadAbdelshafi/NeuroEdge-Backend/services"
)

const (
	userHeader      = "X-User-ID"
	apiKeyHeader    = "X-API-KEY"
	defaultRunLimit = 50
	maxRunLimit     = 200
)

// FeedService beantwortet Feed-Abfragen.
type FeedService interface {
	GetFeed(ctx context.Context, userID string, req services.FeedRequest) (services.FeedPage, error)
}

// JobTrigger startet Pipeline-Stufen asynchron.
type JobTrigger interface {
	Trigger(stage string) error
}

// JobRunLister liefert das Job-Protokoll.
type JobRunLister interface {
	RecentJobRuns(ctx context.Context, limit int) ([]models.JobRun, error)
}

// Handler bündelt die Abhängigkeiten der Routen.
type Handler struct {
	Config     *config.Config
	Logger     *zap.Logger
	Feed       FeedService
	Jobs       JobTrigger
	Runs       JobRunLister
	Taxonomies config.Taxonomies
	Sources    []config.Source
}

func apiKeyAuthMiddleware(cfg *config.Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cfg.APISecretKey == "" {
			c.Next()
			return
		}
		apiKey := c.GetHeader(apiKeyHeader)
		if apiKey != cfg.APISecretKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized: Invalid API Key"})
			return
		}
		c.Next()
	}
}

// NewRouter registriert alle Routen.
func NewRouter(h *Handler) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))
	router.GET("/feed", h.getFeed)
	router.GET("/filters", h.getFilters)

	jobs := router.Group("/jobs")
	jobs.GET("/runs", h.listRuns)
	jobs.POST("/:stage", apiKeyAuthMiddleware(h.Config), h.triggerStage)

	return router
}

func (h *Handler) getFeed(c *gin.Context) {
	var req services.FeedRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := h.Feed.GetFeed(c.Request.Context(), c.GetHeader(userHeader), req)
	if errors.Is(err, services.ErrInvalidFilter) {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		h.Logger.Error("Feed-Abfrage fehlgeschlagen", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	c.JSON(http.StatusOK, page)
}

func (h *Handler) getFilters(c *gin.Context) {
	seen := make(map[string]bool, len(h.Sources))
	journals := make([]string, 0, len(h.Sources))
	for _, s := range h.Sources {
		if !seen[s.Name] {
			seen[s.Name] = true
			journals = append(journals, s.Name)
		}
	}
	sort.Strings(journals)

	c.JSON(http.StatusOK, gin.H{
		"topics":         h.Taxonomies.Topics.LabelNames(),
		"research_types": h.Taxonomies.ResearchTypes.LabelNames(),
		"sources":        journals,
	})
}

func (h *Handler) listRuns(c *gin.Context) {
	limit := defaultRunLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid limit"})
			return
		}
		limit = min(n, maxRunLimit)
	}

	runs, err := h.Runs.RecentJobRuns(c.Request.Context(), limit)
	if err != nil {
		h.Logger.Error("Job-Protokoll konnte nicht geladen werden", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "database error"})
		return
	}
	c.JSON(http.StatusOK, runs)
}

func (h *Handler) triggerStage(c *gin.Context) {
	stage := c.Param("stage")
	err := h.Jobs.Trigger(stage)
	switch {
	case errors.Is(err, services.ErrUnknownStage):
		c.JSON(http.StatusNotFound, gin.H{"error": "unknown job", "job": stage})
	case errors.Is(err, services.ErrStageRunning):
		c.JSON(http.StatusConflict, gin.H{"error": "job already running", "job": stage})
	case err != nil:
		h.Logger.Error("Job konnte nicht gestartet werden", zap.String("job", stage), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not start job"})
	default:
		h.Logger.Info("Job manuell gestartet", zap.String("job", stage))
		c.JSON(http.StatusAccepted, gin.H{"status": "accepted", "job": stage})
	}
}
