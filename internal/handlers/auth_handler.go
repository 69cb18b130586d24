package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"authcore/internal/middleware"
	"authcore/internal/models"
	"authcore/internal/services"
)

type AuthHandler struct {
	login    services.LoginService
	phone    services.PhoneOTPService
	reset    services.PasswordResetService
	register services.RegistrationService
	users    services.UserService
	log      *zap.Logger
}

func NewAuthHandler(
	login services.LoginService,
	phone services.PhoneOTPService,
	reset services.PasswordResetService,
	register services.RegistrationService,
	users services.UserService,
	log *zap.Logger,
) *AuthHandler {
	if log == nil {
		log = zap.NewNop()
	}
	return &AuthHandler{login: login, phone: phone, reset: reset, register: register, users: users, log: log}
}

// @Summary      Sign in
// @Description  Email and password, plus a TOTP code when the account has a second factor
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        login  body      models.LoginRequest  true  "Credentials"
// @Success      200    {object}  AuthResponse
// @Failure      400    {object}  map[string]string
// @Failure      401    {object}  map[string]interface{}
// @Failure      403    {object}  map[string]string
// @Router       /api/auth/login [post]
func (h *AuthHandler) Login(c *gin.Context) {
	var req models.LoginRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.login.Login(c.Request.Context(), req.Email, req.Password, req.TwoFactorCode)
	if err != nil {
		respondError(c, h.log, "[auth][login]", err)
		return
	}
	c.JSON(http.StatusOK, authResponse(res))
}

// @Summary      Register
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.RegisterRequest  true  "New account"
// @Success      201   {object}  AuthResponse
// @Failure      400   {object}  map[string]string
// @Failure      409   {object}  map[string]string
// @Router       /api/auth/register [post]
func (h *AuthHandler) Register(c *gin.Context) {
	var req models.RegisterRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.register.Register(c.Request.Context(), req.Name, req.Email, req.Phone, req.Password)
	if err != nil {
		respondError(c, h.log, "[auth][register]", err)
		return
	}
	c.JSON(http.StatusCreated, authResponse(res))
}

// @Summary      Request a phone sign-in code
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.PhoneCodeRequest  true  "Phone"
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /api/auth/phone/request-otp [post]
func (h *AuthHandler) RequestPhoneCode(c *gin.Context) {
	var req models.PhoneCodeRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.phone.RequestCode(c.Request.Context(), req.Phone); err != nil {
		respondError(c, h.log, "[auth][otp]", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "If the number can receive SMS, a code is on its way"})
}

// @Summary      Sign in with a phone code
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.PhoneVerifyRequest  true  "Phone and code"
// @Success      200   {object}  AuthResponse
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/auth/phone/verify [post]
func (h *AuthHandler) VerifyPhoneCode(c *gin.Context) {
	var req models.PhoneVerifyRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.phone.VerifyCode(c.Request.Context(), req.Phone, req.Code)
	if err != nil {
		respondError(c, h.log, "[auth][otp]", err)
		return
	}
	c.JSON(http.StatusOK, authResponse(res))
}

// @Summary      Request a password reset
// @Description  Always answers the same way so registered emails cannot be discovered
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.ForgotPasswordRequest  true  "Email"
// @Success      202   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /api/auth/forgot [post]
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req models.ForgotPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.reset.RequestReset(c.Request.Context(), req.Email); err != nil {
		respondError(c, h.log, "[password-reset]", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"message": "If the email is registered, a reset link has been sent"})
}

// @Summary      Reset password
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.ResetPasswordRequest  true  "Token and new password"
// @Success      200   {object}  map[string]string
// @Failure      400   {object}  map[string]string
// @Router       /api/auth/reset [post]
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req models.ResetPasswordRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.reset.ResetPassword(c.Request.Context(), req.Token, req.Password); err != nil {
		respondError(c, h.log, "[password-reset]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password updated"})
}

// @Summary      Refresh tokens
// @Tags         Auth
// @Accept       json
// @Produce      json
// @Param        body  body      models.RefreshRequest  true  "Refresh token"
// @Success      200   {object}  AuthResponse
// @Failure      401   {object}  map[string]interface{}
// @Router       /api/auth/refresh [post]
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	var req models.RefreshRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.login.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.log, "[auth][refresh]", err)
		return
	}
	c.JSON(http.StatusOK, authResponse(res))
}

// @Summary      Current identity
// @Tags         Auth
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  map[string]interface{}
// @Failure      401  {object}  map[string]interface{}
// @Router       /api/auth/me [get]
func (h *AuthHandler) Me(c *gin.Context) {
	claims, ok := middleware.ClaimsFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthenticated"})
		return
	}
	user, err := h.users.GetUserByID(c.Request.Context(), claims.UserID())
	if err != nil {
		respondError(c, h.log, "[auth][me]", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"user_id":    claims.UserID(),
		"email":      claims.Email,
		"phone":      claims.Phone,
		"expires_at": claims.ExpiresAt.Time,
		"user":       user.Summary(),
	})
}
