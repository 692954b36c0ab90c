package controllers

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"

	"calbot/internal/bot"
	"calbot/pkg/utils"
)

const telegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

type WebhookController struct {
	runner *bot.Runner
	logger *zap.Logger
}

func NewWebhookController(runner *bot.Runner, logger *zap.Logger) *WebhookController {
	return &WebhookController{runner: runner, logger: logger.Named("webhook")}
}

func (w *WebhookController) Receive(c *gin.Context) {
	if !w.runner.WebhookMode() {
		utils.RespondError(c, http.StatusNotFound, "Webhook is not enabled")
		return
	}

	if secret := w.runner.WebhookSecret(); secret != "" {
		got := c.GetHeader(telegramSecretHeader)
		if subtle.ConstantTimeCompare([]byte(got), []byte(secret)) != 1 {
			utils.RespondError(c, http.StatusUnauthorized, "Invalid webhook secret")
			return
		}
	}

	var update tgbotapi.Update
	if err := c.ShouldBindJSON(&update); err != nil {
		utils.RespondError(c, http.StatusBadRequest, "Invalid update payload")
		return
	}

	if err := w.runner.Enqueue(c.Request.Context(), update); err != nil {
		w.logger.Warn("update not queued", zap.Int("update_id", update.UpdateID), zap.Error(err))
		utils.RespondError(c, http.StatusServiceUnavailable, "Bot is not accepting updates")
		return
	}

	c.Status(http.StatusOK)
}
