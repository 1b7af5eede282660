package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/learnflow/lms-service/internal/services"
	"github.com/learnflow/lms-service/internal/utils"
	"github.com/learnflow/lms-service/internal/validator"
)

// ErrorResponse is the uniform error envelope returned by every handler.
type ErrorResponse struct {
	Error   string      `json:"error"`
	Message string      `json:"message,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// BaseHandler carries the shared logging and error mapping used by all
// handlers.
type BaseHandler struct {
	logger utils.Logger
}

func NewBaseHandler(logger utils.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

func (h *BaseHandler) LogRequest(c *gin.Context, msg string, args ...any) {
	utils.ContextLogger(c.Request.Context(), h.logger).Info(msg, args...)
}

func (h *BaseHandler) LogError(c *gin.Context, err error, msg string, args ...any) {
	args = append(args, "error", err)
	utils.ContextLogger(c.Request.Context(), h.logger).Error(msg, args...)
}

// HandleServiceError maps a service error onto the HTTP taxonomy. Every
// handler funnels its error paths through here so the mapping stays in one
// place.
func (h *BaseHandler) HandleServiceError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	var permErr *services.PermissionError
	var ruleErr *services.BusinessRuleError
	var refErr *services.ReferentialError
	var storeErr *services.StorageError

	switch {
	case errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_failed",
			Message: "one or more fields are invalid",
			Details: verrs,
		})
	case errors.As(err, &refErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_reference",
			Message: refErr.Error(),
		})
	case errors.As(err, &ruleErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   ruleErr.Rule,
			Message: ruleErr.Message,
		})
	case errors.As(err, &permErr):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "forbidden",
			Message: permErr.Error(),
		})
	case errors.Is(err, services.ErrDownloadForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{
			Error:   "download_forbidden",
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrShareExpired):
		c.JSON(http.StatusGone, ErrorResponse{
			Error:   "share_expired",
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrAlreadyEnrolled):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error:   "already_enrolled",
			Message: err.Error(),
		})
	case errors.Is(err, services.ErrUploadNotFound),
		errors.Is(err, services.ErrAnomalyNotFound),
		errors.Is(err, services.ErrShareNotFound),
		errors.Is(err, services.ErrCourseNotFound),
		errors.Is(err, services.ErrEnrollmentNotFound),
		errors.Is(err, services.ErrQuizNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrSupportNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Error:   "not_found",
			Message: err.Error(),
		})
	case errors.As(err, &storeErr):
		h.LogError(c, err, "Storage operation failed")
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Error:   "storage_unavailable",
			Message: "artifact storage is unavailable",
		})
	default:
		h.LogError(c, err, "Unhandled service error")
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error:   "internal_error",
			Message: "an unexpected error occurred",
		})
	}
}

// BindJSON binds the request body and reports a uniform 400 on failure.
func (h *BaseHandler) BindJSON(c *gin.Context, target interface{}) bool {
	if err := c.ShouldBindJSON(target); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid_body",
			Message: err.Error(),
		})
		return false
	}
	return true
}

// RequireParam returns the named path parameter, responding 400 when absent.
func (h *BaseHandler) RequireParam(c *gin.Context, name string) (string, bool) {
	value := c.Param(name)
	if value == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "missing_parameter",
			Message: name + " is required",
		})
		return "", false
	}
	return value, true
}

// ParsePagination reads page/size query parameters into limit and offset.
func ParsePagination(c *gin.Context) (limit, offset int) {
	page := 1
	size := 20

	if pageStr := c.Query("page"); pageStr != "" {
		if p, err := strconv.Atoi(pageStr); err == nil && p > 0 {
			page = p
		}
	}
	if sizeStr := c.Query("size"); sizeStr != "" {
		if s, err := strconv.Atoi(sizeStr); err == nil && s > 0 && s <= 100 {
			size = s
		}
	}
	return size, (page - 1) * size
}
