package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/learnflow/lms-service/internal/models"
	"github.com/learnflow/lms-service/internal/repositories"
	"github.com/learnflow/lms-service/internal/services"
	"github.com/learnflow/lms-service/internal/utils"
)

type UserHandler struct {
	BaseHandler
	userService      services.UserService
	dashboardService services.DashboardService
}

func NewUserHandler(userService services.UserService, dashboardService services.DashboardService, logger utils.Logger) *UserHandler {
	return &UserHandler{
		BaseHandler:      NewBaseHandler(logger),
		userService:      userService,
		dashboardService: dashboardService,
	}
}

func (h *UserHandler) GetMe(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	resp, err := h.userService.GetProfile(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) UpdateMe(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	var req services.ProfileUpdateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.userService.UpdateProfile(c.Request.Context(), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) GetMyStats(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	stats, err := h.dashboardService.GetUserStats(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ===== ADMINISTRATION =====

func (h *UserHandler) ListUsers(c *gin.Context) {
	filters := h.parseUserFilters(c)
	resp, err := h.userService.List(c.Request.Context(), filters)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *UserHandler) ApproveUser(c *gin.Context) {
	id, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	var req struct {
		Approved *bool `json:"approved"`
	}
	if !h.BindJSON(c, &req) {
		return
	}
	approved := true
	if req.Approved != nil {
		approved = *req.Approved
	}

	h.LogRequest(c, "Changing user approval", "user_id", id, "approved", approved)

	if err := h.userService.SetApproval(c.Request.Context(), id, approved); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"id": id, "is_approved": approved})
}

func (h *UserHandler) GetAdminStats(c *gin.Context) {
	stats, err := h.dashboardService.GetAdminStats(c.Request.Context())
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// ===== HELPER METHODS =====

func (h *UserHandler) parseUserFilters(c *gin.Context) repositories.UserFilters {
	limit, offset := ParsePagination(c)
	filters := repositories.UserFilters{
		Limit:  limit,
		Offset: offset,
	}

	if roleStr := c.Query("role"); roleStr != "" {
		role := models.UserRole(roleStr)
		filters.Role = &role
	}
	if approvedStr := c.Query("is_approved"); approvedStr != "" {
		approved := approvedStr == "true"
		filters.IsApproved = &approved
	}
	if search := c.Query("q"); search != "" {
		filters.Search = &search
	}

	return filters
}
