package routes

import (
	"net/http"

	"github.com/gomes-camila/clinica-bot/handlers"
	"github.com/gomes-camila/clinica-bot/utils"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes wires the webhook and operational endpoints.
func RegisterRoutes(r *gin.Engine, webhook *handlers.WebhookHandler) {
	r.POST("/webhook/whatsapp", webhook.Incoming)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, utils.GetHealthStatus())
	})
}
