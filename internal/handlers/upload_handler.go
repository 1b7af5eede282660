package handlers

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/repositories"
	"github.com/learnflow/lms-service/internal/services"
	"github.com/learnflow/lms-service/internal/utils"
	"github.com/learnflow/lms-service/internal/validator"
)

type UploadHandler struct {
	BaseHandler
	uploadService services.UploadService
	exportService services.ExportService
}

func NewUploadHandler(uploadService services.UploadService, exportService services.ExportService, logger utils.Logger) *UploadHandler {
	return &UploadHandler{
		BaseHandler:   NewBaseHandler(logger),
		uploadService: uploadService,
		exportService: exportService,
	}
}

// CreateUpload registers a validated CSV upload for the caller.
func (h *UploadHandler) CreateUpload(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	var req validator.UploadCreateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating upload", "user_id", userID, "filename", req.Filename)

	resp, err := h.uploadService.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ListUploads returns the caller's uploads, paginated and filterable by
// status and upload date.
func (h *UploadHandler) ListUploads(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	filters := h.parseUploadFilters(c)
	resp, err := h.uploadService.List(c.Request.Context(), userID, filters)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UploadHandler) GetUpload(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}
	id, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.uploadService.GetByID(c.Request.Context(), id, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UploadHandler) RenameUpload(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}
	id, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		CustomFilename string `json:"custom_filename" binding:"required,max=500"`
	}
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.uploadService.Rename(c.Request.Context(), id, userID, req.CustomFilename); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "custom_filename": req.CustomFilename})
}

func (h *UploadHandler) UpdateUploadStatus(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}
	id, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Status models.UploadStatus `json:"status" binding:"required"`
	}
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.uploadService.UpdateStatus(c.Request.Context(), id, userID, req.Status); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": req.Status})
}

func (h *UploadHandler) DeleteUpload(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}
	id, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Deleting upload", "upload_id", id, "user_id", userID)

	if err := h.uploadService.Delete(c.Request.Context(), id, userID); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// DownloadUpload streams the raw time series payload back to the owner.
func (h *UploadHandler) DownloadUpload(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}
	id, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	rc, filename, err := h.uploadService.DownloadData(c.Request.Context(), id, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/json")
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.LogError(c, err, "Failed to stream upload payload", "upload_id", id)
	}
}

func (h *UploadHandler) GetUploadStats(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	stats, err := h.uploadService.GetStats(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ExportUpload renders the upload summary and anomalies as a spreadsheet.
func (h *UploadHandler) ExportUpload(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}
	id, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	data, filename, err := h.exportService.ExportUploadReport(c.Request.Context(), id, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
}

// ===== ANOMALIES =====

// AddAnomaly is the processing pipeline boundary: results land here as
// opaque rows tied to an existing upload.
func (h *UploadHandler) AddAnomaly(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}
	id, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	var req validator.AnomalyCreateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	anomaly, err := h.uploadService.AddAnomaly(c.Request.Context(), id, userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, anomaly)
}

func (h *UploadHandler) ListAnomalies(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}
	id, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	anomalies, err := h.uploadService.ListAnomalies(c.Request.Context(), id, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"anomalies": anomalies, "total": len(anomalies)})
}

func (h *UploadHandler) UpdateAnomalyAnalysis(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}
	id, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}
	anomalyID, ok := h.RequireParam(c, "anomaly_id")
	if !ok {
		return
	}

	var req struct {
		Analysis *string `json:"analysis"`
	}
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.uploadService.UpdateAnomalyAnalysis(c.Request.Context(), id, anomalyID, userID, req.Analysis); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": anomalyID})
}

func (h *UploadHandler) DeleteAnomaly(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}
	id, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}
	anomalyID, ok := h.RequireParam(c, "anomaly_id")
	if !ok {
		return
	}

	if err := h.uploadService.DeleteAnomaly(c.Request.Context(), id, anomalyID, userID); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ===== HELPER METHODS =====

func (h *UploadHandler) parseUploadFilters(c *gin.Context) repositories.UploadFilters {
	limit, offset := ParsePagination(c)
	filters := repositories.UploadFilters{
		Limit:     limit,
		Offset:    offset,
		SortBy:    c.DefaultQuery("sort_by", "uploaded_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	if statusStr := c.Query("status"); statusStr != "" {
		status := models.UploadStatus(statusStr)
		filters.Status = &status
	}
	if fromStr := c.Query("date_from"); fromStr != "" {
		if t, err := time.Parse(time.RFC3339, fromStr); err == nil {
			filters.DateFrom = &t
		}
	}
	if toStr := c.Query("date_to"); toStr != "" {
		if t, err := time.Parse(time.RFC3339, toStr); err == nil {
			filters.DateTo = &t
		}
	}

	return filters
}
