package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"authcore/internal/handlers"
	"authcore/internal/middleware"
)

func SetupRoutes(
	r *gin.Engine,
	authHandler *handlers.AuthHandler,
	twoFactorHandler *handlers.SecondFactorHandler,
	tokens middleware.TokenVerifier,
) *gin.Engine {
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// ---- public
	auth := r.Group("/api/auth")
	{
		auth.POST("/login", authHandler.Login)
		auth.POST("/register", authHandler.Register)
		auth.POST("/refresh", authHandler.RefreshToken)
		auth.POST("/phone/request-otp", authHandler.RequestPhoneCode)
		auth.POST("/phone/verify", authHandler.VerifyPhoneCode)
		auth.POST("/forgot", authHandler.ForgotPassword)
		auth.POST("/reset", authHandler.ResetPassword)
	}

	// ---- protected
	protected := auth.Group("", middleware.AuthMiddleware(tokens))
	{
		protected.GET("/me", authHandler.Me)
		protected.POST("/2fa/enroll", twoFactorHandler.Enroll)
		protected.POST("/2fa/confirm", twoFactorHandler.Confirm)
		protected.POST("/2fa/disable", twoFactorHandler.Disable)
	}

	return r
}
