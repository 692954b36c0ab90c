package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"calbot/internal/infra"
	"calbot/pkg/utils"
)

type HealthController struct {
	db     *gorm.DB
	logger *zap.Logger
}

func NewHealthController(db *gorm.DB, logger *zap.Logger) *HealthController {
	return &HealthController{db: db, logger: logger.Named("health")}
}

func (h *HealthController) Health(c *gin.Context) {
	if err := infra.Ping(h.db); err != nil {
		h.logger.Warn("database ping failed", zap.Error(err))
		utils.RespondError(c, http.StatusServiceUnavailable, "Database unavailable")
		return
	}
	utils.RespondSuccess(c, gin.H{"database": "ok"}, "Healthy")
}
