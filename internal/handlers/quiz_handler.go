package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/learnflow/lms-service/internal/services"
	"github.com/learnflow/lms-service/internal/utils"
	"github.com/learnflow/lms-service/internal/validator"
)

type QuizHandler struct {
	BaseHandler
	quizService services.QuizService
}

func NewQuizHandler(quizService services.QuizService, logger utils.Logger) *QuizHandler {
	return &QuizHandler{
		BaseHandler: NewBaseHandler(logger),
		quizService: quizService,
	}
}

func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	courseID, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	var req validator.QuizCreateRequest
	if !h.BindJSON(c, &req) {
		return
	}

	h.LogRequest(c, "Creating quiz", "course_id", courseID, "title", req.Title)

	quiz, err := h.quizService.Create(c.Request.Context(), courseID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, quiz)
}

func (h *QuizHandler) ListQuizzesByCourse(c *gin.Context) {
	courseID, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	quizzes, err := h.quizService.ListByCourse(c.Request.Context(), courseID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"quizzes": quizzes, "total": len(quizzes)})
}

func (h *QuizHandler) GetQuiz(c *gin.Context) {
	id, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	quiz, err := h.quizService.GetByID(c.Request.Context(), id)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, quiz)
}

func (h *QuizHandler) DeleteQuiz(c *gin.Context) {
	id, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	if err := h.quizService.Delete(c.Request.Context(), id); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// SubmitQuizResult records a client-graded attempt.
func (h *QuizHandler) SubmitQuizResult(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}
	quizID, ok := h.RequireParam(c, "id")
	if !ok {
		return
	}

	var req validator.QuizResultRequest
	if !h.BindJSON(c, &req) {
		return
	}

	resp, err := h.quizService.SubmitResult(c.Request.Context(), quizID, userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

func (h *QuizHandler) ListMyQuizResults(c *gin.Context) {
	userID, err := GetUserIDFromContext(c)
	if err != nil {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error()})
		return
	}

	results, err := h.quizService.ListResultsByUser(c.Request.Context(), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"results": results, "total": len(results)})
}
