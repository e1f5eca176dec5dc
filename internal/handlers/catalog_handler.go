package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"voltage-backend/internal/models"
	"voltage-backend/internal/service"
)

type CatalogHandler struct {
	catalogService    service.CatalogUseCase
	enrollmentService service.EnrollmentUseCase
}

func NewCatalogHandler(catalogService service.CatalogUseCase, enrollmentService service.EnrollmentUseCase) *CatalogHandler {
	return &CatalogHandler{
		catalogService:    catalogService,
		enrollmentService: enrollmentService,
	}
}

func (h *CatalogHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.catalogService == nil {
		serviceUnavailable(c, "catalog")
		return false
	}
	return true
}

func (h *CatalogHandler) ensureEnrollments(c *gin.Context) bool {
	if h == nil || h.enrollmentService == nil {
		serviceUnavailable(c, "enrollment")
		return false
	}
	return true
}

// ListChapters serves GET /chapters?grade=N. Unparseable grades list every
// chapter.
func (h *CatalogHandler) ListChapters(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	grade, _ := strconv.Atoi(c.Query("grade"))
	chapters, err := h.catalogService.ListChapters(c.Request.Context(), grade)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"chapters": chapters})
}

func (h *CatalogHandler) ListLectures(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	chapterID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	listing, err := h.catalogService.ListLectures(c.Request.Context(), chapterID, currentUserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, listing)
}

func (h *CatalogHandler) LectureDetail(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	lectureID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	detail, err := h.catalogService.LectureDetail(c.Request.Context(), userID, lectureID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, detail)
}

func (h *CatalogHandler) UpdateProgress(c *gin.Context) {
	if !h.ensureEnrollments(c) {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}
	lectureID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	var req models.UpdateProgressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	update, err := h.enrollmentService.UpdateProgress(c.Request.Context(), userID, lectureID, req.Progress)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, update)
}

func (h *CatalogHandler) Dashboard(c *gin.Context) {
	if !h.ensureEnrollments(c) {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	dashboard, err := h.enrollmentService.Dashboard(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, dashboard)
}

func (h *CatalogHandler) CreateChapter(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	var req models.CreateChapterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	chapter, err := h.catalogService.CreateChapter(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"chapter": chapter})
}

func (h *CatalogHandler) CreateLecture(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	var req models.CreateLectureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	lecture, err := h.catalogService.CreateLecture(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"lecture": lecture})
}
