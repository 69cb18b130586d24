package app

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"authcore/internal/config"
	"authcore/internal/middleware"
)

func middlewareStack(cfg config.ServerConfig, log *zap.Logger) []gin.HandlerFunc {
	return []gin.HandlerFunc{
		middleware.RequestLogger(log),
		middleware.CORS(),
		middleware.RequestTimeout(cfg.RequestTimeout),
	}
}
