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

type CourseHandler struct {
	BaseHandler
	courseService services.CourseService
}

func NewCourseHandler(courseService services.CourseService, logger utils.Logger) *CourseHandler {
	return &CourseHandler{
		BaseHandler:   NewBaseHandler(logger),
		courseService: courseService,
	}
}

// CreateCourse adds a course to the catalog. Courses are immutable once
// created.
func (h *CourseHandler) CreateCourse(c *gin.Context) {
	var req validator.CourseCreateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating course", "title", req.Title)

	resp, err := h.courseService.Create(c.Request.Context(), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *CourseHandler) DeleteCourse(c *gin.Context) {
	id, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	if err := h.courseService.Delete(c.Request.Context(), id); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *CourseHandler) ListCourses(c *gin.Context) {
	filters := h.parseCourseFilters(c)
	resp, err := h.courseService.List(c.Request.Context(), filters)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CourseHandler) GetCourse(c *gin.Context) {
	id, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	resp, err := h.courseService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ===== ENROLLMENTS =====

func (h *CourseHandler) Enroll(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}
	courseID, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	h.LogRequest(c, "Enrolling in course", "course_id", courseID, "user_id", userID)

	resp, err := h.courseService.Enroll(c.Request.Context(), userID, courseID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *CourseHandler) UpdateProgress(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}
	courseID, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	var req validator.EnrollmentProgressRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.courseService.UpdateProgress(c.Request.Context(), userID, courseID, req.Progress)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *CourseHandler) ListMyEnrollments(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	enrollments, err := h.courseService.ListEnrollments(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"enrollments": enrollments, "total": len(enrollments)})
}

// ===== HELPER METHODS =====

func (h *CourseHandler) parseCourseFilters(c *gin.Context) repositories.CourseFilters {
	limit, offset := ParsePagination(c)
	filters := repositories.CourseFilters{
		Limit:     limit,
		Offset:    offset,
		SortBy:    c.DefaultQuery("sort_by", "created_at"),
		SortOrder: c.DefaultQuery("sort_order", "desc"),
	}

	if levelStr := c.Query("level"); levelStr != "" {
		level := models.CourseLevel(levelStr)
		filters.Level = &level
	}
	if search := c.Query("q"); search != "" {
		filters.Search = &search
	}

	return filters
}
