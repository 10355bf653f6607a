package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/DavidD95/Prueba-Data-Engineering/internal/domain"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/logger"
	"github.com/DavidD95/Prueba-Data-Engineering/internal/service"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const (
	defaultListLimit = 20
	maxListLimit     = 100
)

// RunTrigger starts orchestrator runs.
type RunTrigger interface {
	Run(ctx context.Context) (*service.RunReport, error)
	Running() bool
}

// RunStore reads the run ledger.
type RunStore interface {
	GetByID(ctx context.Context, id string) (*domain.RunRecord, error)
	List(ctx context.Context, limit, offset int) ([]domain.RunRecord, error)
}

// RunHandler exposes the orchestrator over HTTP.
type RunHandler struct {
	trigger RunTrigger
	runs    RunStore

	mu         sync.RWMutex
	isRunning  bool
	lastReport *service.RunReport
	lastError  string
	wg         sync.WaitGroup
}

// NewRunHandler creates a new run handler.
// Parameters:
//   - trigger: orchestrator that executes runs.
//   - runs: run ledger used by the read endpoints.
// Returns:
//   - *RunHandler: initialized handler.
func NewRunHandler(trigger RunTrigger, runs RunStore) *RunHandler {
	return &RunHandler{
		trigger: trigger,
		runs:    runs,
	}
}

// RunStatusResponse represents the trigger status.
type RunStatusResponse struct {
	IsRunning     bool             `json:"is_running"`
	LastRunID     string           `json:"last_run_id,omitempty"`
	LastRunTime   string           `json:"last_run_time,omitempty"`
	LastRunStatus domain.RunStatus `json:"last_run_status,omitempty"`
	LastError     string           `json:"last_error,omitempty"`
}

// RunListResponse is one page of the run ledger.
type RunListResponse struct {
	Runs   []domain.RunRecord `json:"runs"`
	Limit  int                `json:"limit"`
	Offset int                `json:"offset"`
}

// TriggerRun handles POST /api/v1/runs.
// A run starts in the background and the handler answers 202, unless
// ?wait=true is given, in which case the response carries the full report.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RunHandler) TriggerRun(c *gin.Context) {
	ctx := c.Request.Context()
	wait, _ := strconv.ParseBool(c.DefaultQuery("wait", "false"))

	h.mu.Lock()
	if h.isRunning || h.trigger.Running() {
		h.mu.Unlock()
		logger.CtxWarn(ctx, "Run request rejected: already running, client_ip=%s", c.ClientIP())
		c.JSON(http.StatusConflict, gin.H{"error": service.ErrRunInProgress.Error()})
		return
	}
	h.isRunning = true
	h.mu.Unlock()

	logger.CtxInfo(ctx, "Starting run: wait=%v, client_ip=%s", wait, c.ClientIP())

	// Runs outlive the request; keep its logger fields but drop its deadline.
	runCtx := context.WithoutCancel(ctx)

	if !wait {
		h.wg.Add(1)
		go func() {
			defer h.wg.Done()
			_, _ = h.execute(runCtx)
		}()
		c.JSON(http.StatusAccepted, gin.H{"message": "Run started"})
		return
	}

	report, err := h.execute(runCtx)
	switch {
	case errors.Is(err, service.ErrRunInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	case err != nil && report == nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	case err != nil:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error(), "report": report})
	default:
		c.JSON(http.StatusOK, gin.H{"report": report})
	}
}

func (h *RunHandler) execute(ctx context.Context) (*service.RunReport, error) {
	start := time.Now()
	report, err := h.trigger.Run(ctx)

	h.mu.Lock()
	h.isRunning = false
	if report != nil {
		h.lastReport = report
	}
	h.lastError = ""
	if err != nil {
		h.lastError = err.Error()
	}
	h.mu.Unlock()

	entry := logger.With(logger.Fields{logger.FieldDurationMs: time.Since(start).Milliseconds()})
	if err != nil {
		entry.Error(ctx, "Run failed: error=%v", err)
		return report, err
	}
	entry.WithStatus(string(report.Status)).Info(ctx, "Run completed: run_id=%s", report.RunID)
	return report, nil
}

// Wait blocks until background runs started by TriggerRun have returned.
func (h *RunHandler) Wait() {
	h.wg.Wait()
}

// GetRunStatus handles GET /api/v1/runs/status.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RunHandler) GetRunStatus(c *gin.Context) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	resp := RunStatusResponse{
		IsRunning: h.isRunning || h.trigger.Running(),
		LastError: h.lastError,
	}
	if h.lastReport != nil {
		resp.LastRunID = h.lastReport.RunID
		resp.LastRunStatus = h.lastReport.Status
		resp.LastRunTime = h.lastReport.CompletedAt.Format(time.RFC3339)
	}

	c.JSON(http.StatusOK, resp)
}

// ListRuns handles GET /api/v1/runs.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RunHandler) ListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(defaultListLimit)))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	runs, err := h.runs.List(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error": "Failed to list runs: " + err.Error(),
		})
		return
	}
	if runs == nil {
		runs = []domain.RunRecord{}
	}

	c.JSON(http.StatusOK, RunListResponse{Runs: runs, Limit: limit, Offset: offset})
}

// GetRun handles GET /api/v1/runs/:id.
// Parameters:
//   - c: Gin request context.
// Returns: none (writes JSON response).
func (h *RunHandler) GetRun(c *gin.Context) {
	id := c.Param("id")
	if id == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Run ID is required",
		})
		return
	}

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
