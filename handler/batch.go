package handler

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/marketingkamdi24/Rowbooster-UI-sub001/config"
	"github.com/marketingkamdi24/Rowbooster-UI-sub001/middleware"
	"github.com/marketingkamdi24/Rowbooster-UI-sub001/model"
	"github.com/marketingkamdi24/Rowbooster-UI-sub001/pkg/logger"
	"github.com/marketingkamdi24/Rowbooster-UI-sub001/service"
)

// BatchHandler launches and inspects enrichment batches. A launched batch
// runs in the background; clients poll the status endpoints.
type BatchHandler struct {
	orchestrator *service.BatchOrchestrator
	store        *service.RunStore
	library      *service.LibraryStore
	batchConfig  *config.BatchConfig
}

func NewBatchHandler(orchestrator *service.BatchOrchestrator, cfg *config.BatchConfig) *BatchHandler {
	return &BatchHandler{
		orchestrator: orchestrator,
		store:        service.GetRunStore(),
		library:      service.GetLibraryStore(),
		batchConfig:  cfg,
	}
}

type batchRow struct {
	ArticleNumber string   `json:"article_number"`
	ProductName   string   `json:"product_name"`
	URL           string   `json:"url"`
	FileIDs       []string `json:"file_ids"`
}

type createBatchRequest struct {
	Mode        string                `json:"mode"`
	Rows        []batchRow            `json:"rows" binding:"required"`
	Properties  []model.PropertyField `json:"properties" binding:"required"`
	Parallelism int                   `json:"parallelism"`
}

// Create validates the request, registers the run, and starts it in the
// background. Responds 202 with the run ID for polling.
func (h *BatchHandler) Create(c *gin.Context) {
	tenant := middleware.GetTenant(c)

	var req createBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request: " + err.Error()})
		return
	}
	if len(req.Rows) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one row is required"})
		return
	}
	if len(req.Properties) == 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "At least one property is required"})
		return
	}
	for _, p := range req.Properties {
		if strings.TrimSpace(p.Name) == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Property name must not be empty"})
			return
		}
	}

	mode := req.Mode
	switch mode {
	case "":
		mode = model.ModeDirect
	case model.ModeDirect, model.ModeFolder:
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown mode: " + req.Mode})
		return
	}

	parallelism := req.Parallelism
	if parallelism == 0 {
		parallelism = h.batchConfig.DefaultParallelism
	}

	items := make([]*model.ExtractionItem, len(req.Rows))
	for i, row := range req.Rows {
		items[i] = &model.ExtractionItem{
			ID:            uuid.New().String(),
			ArticleNumber: strings.TrimSpace(row.ArticleNumber),
			ProductName:   strings.TrimSpace(row.ProductName),
			URL:           strings.TrimSpace(row.URL),
			FileIDs:       row.FileIDs,
			Status:        model.StatusRecord{Status: model.StatusPending},
		}
	}

	run := &model.BatchRun{
		ID:          uuid.New().String(),
		Tenant:      tenant,
		Mode:        mode,
		Items:       items,
		Properties:  req.Properties,
		Parallelism: parallelism,
		Status:      model.StatusPending,
		CreatedAt:   time.Now(),
	}
	h.store.Save(run)

	// Snapshot the library at launch; documents added later do not affect
	// a running batch.
	library := h.library.ListByTenant(tenant)

	logger.Info(c.Request.Context(), "batch launched",
		"batch_id", run.ID, "mode", mode, "items", len(items), "parallelism", parallelism)

	go h.orchestrator.Run(context.Background(), run, library)

	c.JSON(http.StatusAccepted, gin.H{
		"id":     run.ID,
		"status": run.Status,
		"items":  len(items),
	})
}

// List returns all batch runs for the current tenant
func (h *BatchHandler) List(c *gin.Context) {
	tenant := middleware.GetTenant(c)
	runs := h.store.GetByTenant(tenant)

	result := make([]gin.H, len(runs))
	for i, run := range runs {
		result[i] = gin.H{
			"id":         run.ID,
			"mode":       run.Mode,
			"status":     run.Status,
			"items":      len(run.Items),
			"completed":  run.Completed,
			"failed":     run.Failed,
			"created_at": run.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
			"updated_at": run.UpdatedAt.Format("2006-01-02T15:04:05Z07:00"),
		}
	}

	c.JSON(http.StatusOK, gin.H{"batches": result})
}

// Get returns a single run with full item detail
func (h *BatchHandler) Get(c *gin.Context) {
	run := h.tenantRun(c)
	if run == nil {
		return
	}
	c.JSON(http.StatusOK, run)
}

// GetStatus returns per-item progress without the heavy text artifacts.
func (h *BatchHandler) GetStatus(c *gin.Context) {
	run := h.tenantRun(c)
	if run == nil {
		return
	}

	items := make([]gin.H, len(run.Items))
	for i, item := range run.Items {
		entry := gin.H{
			"id":       item.ID,
			"status":   item.Status.Status,
			"progress": item.Status.Progress,
		}
		if item.Status.Error != "" {
			entry["error"] = item.Status.Error
		}
		if item.Status.Result != nil {
			entry["result"] = item.Status.Result
		}
		items[i] = entry
	}

	c.JSON(http.StatusOK, gin.H{
		"id":        run.ID,
		"status":    run.Status,
		"completed": run.Completed,
		"failed":    run.Failed,
		"items":     items,
	})
}

// Delete removes a batch run
func (h *BatchHandler) Delete(c *gin.Context) {
	run := h.tenantRun(c)
	if run == nil {
		return
	}

	h.store.Delete(run.ID)
	c.JSON(http.StatusOK, gin.H{"message": "Batch deleted"})
}

// tenantRun loads the run from the path parameter, writing a 404 and
// returning nil when it does not exist or belongs to another tenant.
func (h *BatchHandler) tenantRun(c *gin.Context) *model.BatchRun {
	tenant := middleware.GetTenant(c)
	id := c.Param("id")

	run := h.store.Get(id)
	if run == nil || run.Tenant != tenant {
		c.JSON(http.StatusNotFound, gin.H{"error": "Batch not found"})
		return nil
	}
	return run
}
