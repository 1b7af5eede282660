package handlers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/services"
	"github.com/learnflow/lms-service/internal/utils"
	"github.com/learnflow/lms-service/internal/validator"
)

type ShareHandler struct {
	BaseHandler
	shareService services.ShareService
}

func NewShareHandler(shareService services.ShareService, logger utils.Logger) *ShareHandler {
	return &ShareHandler{
		BaseHandler:  NewBaseHandler(logger),
		shareService: shareService,
	}
}

// CreateShare mints a share link for one of the caller's uploads.
func (h *ShareHandler) CreateShare(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}
	uploadID, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	var req validator.ShareCreateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating share link", "upload_id", uploadID, "user_id", userID)

	resp, err := h.shareService.Create(c.Request.Context(), uploadID, userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *ShareHandler) ListSharesForUpload(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}
	uploadID, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	shares, err := h.shareService.ListForUpload(c.Request.Context(), uploadID, userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shares": shares, "total": len(shares)})
}

func (h *ShareHandler) ListMyShares(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	shares, err := h.shareService.ListByCreator(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"shares": shares, "total": len(shares)})
}

func (h *ShareHandler) RevokeShare(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}
	shareID, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	if err := h.shareService.Revoke(c.Request.Context(), shareID, userID); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// ===== PUBLIC RESOLUTION (no auth) =====

// ResolveShare serves an anonymous consumer. The token is the only
// credential; every successful resolution is counted and logged.
func (h *ShareHandler) ResolveShare(c *gin.Context) {
	token, ok := h.RequireParam(c, "token")
	if !ok {
		return
	}

	entry := models.AccessLogEntry{
		RemoteAddr: c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	}

	view, err := h.shareService.Resolve(c.Request.Context(), token, entry)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, view)
}

// ResolveShareDownload streams the raw payload for view_download grants.
// Downloads are recorded in the grant's access trail like views.
func (h *ShareHandler) ResolveShareDownload(c *gin.Context) {
	token, ok := h.RequireParam(c, "token")
	if !ok {
		return
	}

	entry := models.AccessLogEntry{
		RemoteAddr: c.ClientIP(),
		UserAgent:  c.Request.UserAgent(),
	}

	rc, filename, err := h.shareService.ResolveDownload(c.Request.Context(), token, entry)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	defer rc.Close()

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", "application/json")
	if _, err := io.Copy(c.Writer, rc); err != nil {
		h.LogError(c, err, "Failed to stream shared payload")
	}
}
