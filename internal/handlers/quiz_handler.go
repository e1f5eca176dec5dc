package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"voltage-backend/internal/models"
	"voltage-backend/internal/service"
)

type QuizHandler struct {
	quizService service.QuizUseCase
}

func NewQuizHandler(quizService service.QuizUseCase) *QuizHandler {
	return &QuizHandler{quizService: quizService}
}

func (h *QuizHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.quizService == nil {
		serviceUnavailable(c, "quiz")
		return false
	}
	return true
}

func (h *QuizHandler) Intro(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	quizID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	intro, err := h.quizService.Intro(c.Request.Context(), userID, quizID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, intro)
}

func (h *QuizHandler) Start(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	quizID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	attempt, err := h.quizService.Start(c.Request.Context(), userID, quizID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, attempt)
}

func (h *QuizHandler) Submit(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	quizID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req models.SubmitQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result, err := h.quizService.Submit(c.Request.Context(), userID, quizID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"result": result})
}

// ViewResult returns a graded attempt. The per-question breakdown is only
// present when the quiz reveals answers.
func (h *QuizHandler) ViewResult(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	resultID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	view, err := h.quizService.ViewResult(c.Request.Context(), userID, resultID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

func (h *QuizHandler) ListResults(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	results, err := h.quizService.ListResults(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"results": results})
}

func (h *QuizHandler) CreateQuiz(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	var req models.CreateQuizRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	quiz, err := h.quizService.CreateQuiz(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"quiz": quiz})
}
