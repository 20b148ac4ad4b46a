package handlers

import (
	"net/http"
	"strconv"

	"github.com/gomes-camila/clinica-bot/models"
	"github.com/gomes-camila/clinica-bot/services/conversation"
	"github.com/gomes-camila/clinica-bot/services/whatsapp"
	"github.com/gomes-camila/clinica-bot/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

const somethingWentWrong = "Desculpe, algo deu errado. Digite \"menu\" para tentar novamente."

// WebhookHandler receives Twilio's inbound WhatsApp callbacks, runs one
// dialogue turn and renders the reply back through the messenger.
type WebhookHandler struct {
	Conversation *conversation.Handler
	Store        conversation.SessionStore
	Messenger    whatsapp.Sender
}

func NewWebhookHandler(conv *conversation.Handler, store conversation.SessionStore, messenger whatsapp.Sender) *WebhookHandler {
	return &WebhookHandler{Conversation: conv, Store: store, Messenger: messenger}
}

// Incoming handles POST /webhook/whatsapp. Twilio posts form-encoded
// fields; ButtonPayload carries the structured quick-reply id when the
// caller tapped a button instead of typing.
func (h *WebhookHandler) Incoming(c *gin.Context) {
	logger := utils.GetLogger()

	from := c.PostForm("From")
	body := c.PostForm("Body")
	buttonID := c.PostForm("ButtonPayload")

	if from == "" {
		utils.JSONError(c, http.StatusBadRequest, "missing sender", "From field is required")
		return
	}

	requestID := uuid.New().String()
	logger.Info("Received message",
		zap.String("requestID", requestID),
		zap.String("from", from),
		zap.String("body", body))

	// One in-flight turn per caller: the lock covers dispatch and the
	// button-map write so interleaved messages cannot corrupt state.
	unlock := h.Conversation.LockCaller(from)
	defer unlock()

	ctx := c.Request.Context()

	reply, err := h.Conversation.Process(ctx, models.Inbound{
		From:     from,
		Body:     body,
		ButtonID: buttonID,
	})
	if err != nil {
		logger.Error("Error processing webhook",
			zap.String("requestID", requestID), zap.Error(err))
		if sendErr := h.Messenger.SendText(from, somethingWentWrong); sendErr != nil {
			logger.Error("Error sending failure notice", zap.Error(sendErr))
		}
		c.Status(http.StatusInternalServerError)
		return
	}

	switch r := reply.(type) {
	case models.Text:
		if err := h.Messenger.SendText(from, r.Body); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}

	case models.Options:
		// Persist the displayed-index → option-id map before sending so
		// the very next numeral reply can be resolved.
		buttons := make(models.ButtonMap, len(r.Buttons))
		for i, btn := range r.Buttons {
			buttons[strconv.Itoa(i+1)] = btn.ID
		}
		if err := h.Store.PutButtons(ctx, from, buttons); err != nil {
			logger.Error("Error storing button map",
				zap.String("requestID", requestID), zap.Error(err))
		}
		if err := h.Messenger.SendOptions(from, r.Body, r.Buttons); err != nil {
			c.Status(http.StatusInternalServerError)
			return
		}
	}

	c.Status(http.StatusOK)
}
