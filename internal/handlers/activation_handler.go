package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"voltage-backend/internal/models"
	"voltage-backend/internal/service"
)

type ActivationHandler struct {
	activationService service.ActivationUseCase
}

func NewActivationHandler(activationService service.ActivationUseCase) *ActivationHandler {
	return &ActivationHandler{activationService: activationService}
}

func (h *ActivationHandler) ensureService(c *gin.Context) bool {
	if h == nil || h.activationService == nil {
		serviceUnavailable(c, "activation")
		return false
	}
	return true
}

func (h *ActivationHandler) Redeem(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	userID, ok := requireUserID(c)
	if !ok {
		return
	}

	var req models.RedeemCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	enrollment, err := h.activationService.Redeem(c.Request.Context(), userID, req.Code)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"enrollment": enrollment})
}

func (h *ActivationHandler) Generate(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}

	var req models.GenerateCodesRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	codes, err := h.activationService.Generate(c.Request.Context(), req.LectureID, req.Count)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"codes": codes})
}

func (h *ActivationHandler) ListCodes(c *gin.Context) {
	if !h.ensureService(c) {
		return
	}
	lectureID, ok := parseUintParam(c, "id")
	if !ok {
		return
	}

	codes, err := h.activationService.ListCodes(c.Request.Context(), lectureID)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"codes": codes})
}
