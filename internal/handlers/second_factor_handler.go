package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"authcore/internal/models"
	"authcore/internal/services"
)

type SecondFactorHandler struct {
	svc services.SecondFactorService
	log *zap.Logger
}

func NewSecondFactorHandler(svc services.SecondFactorService, log *zap.Logger) *SecondFactorHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &SecondFactorHandler{svc: svc, log: log}
}

// @Summary      Start TOTP enrollment
// @Tags         2FA
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  models.TwoFactorEnrollment
// @Failure      400  {object}  map[string]string
// @Router       /api/auth/2fa/enroll [post]
func (h *SecondFactorHandler) Enroll(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	enrollment, err := h.svc.Enroll(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.log, "[auth][2fa]", err)
		return
	}
	c.JSON(http.StatusOK, enrollment)
}

// @Summary      Confirm TOTP enrollment
// @Tags         2FA
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.TwoFactorCodeRequest  true  "Current code"
// @Success      200   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /api/auth/2fa/confirm [post]
func (h *SecondFactorHandler) Confirm(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req models.TwoFactorCodeRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.Confirm(c.Request.Context(), userID, req.Code); err != nil {
		respondError(c, h.log, "[auth][2fa]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Two-factor authentication enabled"})
}

// @Summary      Disable TOTP
// @Tags         2FA
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body  body      models.TwoFactorCodeRequest  true  "Current code"
// @Success      200   {object}  map[string]string
// @Failure      403   {object}  map[string]string
// @Router       /api/auth/2fa/disable [post]
func (h *SecondFactorHandler) Disable(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}
	var req models.TwoFactorCodeRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.svc.Disable(c.Request.Context(), userID, req.Code); err != nil {
		respondError(c, h.log, "[auth][2fa]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Two-factor authentication disabled"})
}
