package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/repositories"
	"github.com/learnflow/lms-service/internal/services"
	"github.com/learnflow/lms-service/internal/utils"
	"github.com/learnflow/lms-service/internal/validator"
)

type SupportHandler struct {
	BaseHandler
	supportService services.SupportService
}

func NewSupportHandler(supportService services.SupportService, logger utils.Logger) *SupportHandler {
	return &SupportHandler{
		BaseHandler:    NewBaseHandler(logger),
		supportService: supportService,
	}
}

// SubmitMessage accepts a support request. Works with or without a signed-in
// user; an authenticated caller gets linked to the message.
func (h *SupportHandler) SubmitMessage(c *gin.Context) {
	var req validator.SupportMessageRequest
	if !h.BindJSON(c, &req) {
		return
	}

	var userID *string
	if id, err := GetUserIDFromContext(c); err == nil {
		userID = &id
	}

	message, err := h.supportService.Submit(c.Request.Context(), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, message)
}

func (h *SupportHandler) ListMessages(c *gin.Context) {
	limit, offset := ParsePagination(c)
	filters := repositories.SupportFilters{Limit: limit, Offset: offset}
	if statusStr := c.Query("status"); statusStr != "" {
		status := models.SupportStatus(statusStr)
		filters.Status = &status
	}

	resp, err := h.supportService.List(c.Request.Context(), filters)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SupportHandler) ResolveMessage(c *gin.Context) {
	id, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	if err := h.supportService.Resolve(c.Request.Context(), id); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "status": models.SupportStatusResolved})
}
