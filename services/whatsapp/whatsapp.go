package whatsapp

import (
	"fmt"
	"strings"

	"github.com/gomes-camila/clinica-bot/models"
	"github.com/gomes-camila/clinica-bot/utils"

	"github.com/twilio/twilio-go"
	openapi "github.com/twilio/twilio-go/rest/api/v2010"
	"go.uber.org/zap"
)

// Sender delivers outbound messages to a caller. Options are rendered
// with at most three numbered entries for text-only fallback.
type Sender interface {
	SendText(to, body string) error
	SendOptions(to, body string, buttons []models.Button) error
}

// TwilioClient sends WhatsApp messages through the Twilio REST API.
type TwilioClient struct {
	client *twilio.RestClient
	from   string
}

func NewTwilioClient(accountSID, authToken, fromNumber string) *TwilioClient {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: accountSID,
		Password: authToken,
	})
	return &TwilioClient{client: client, from: fromNumber}
}

func (t *TwilioClient) SendText(to, body string) error {
	return t.send(to, body)
}

// SendOptions renders the buttons as a numbered list so callers whose
// client has no quick-reply support can answer with the numeral.
func (t *TwilioClient) SendOptions(to, body string, buttons []models.Button) error {
	var sb strings.Builder
	sb.WriteString(body)
	sb.WriteString("\n\n")
	for i, btn := range buttons {
		sb.WriteString(fmt.Sprintf("%d. %s\n", i+1, btn.Title))
	}
	sb.WriteString("\nResponda com o número da opção.")

	return t.send(to, sb.String())
}

func (t *TwilioClient) send(to, body string) error {
	params := &openapi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(to)
	params.SetBody(body)

	msg, err := t.client.Api.CreateMessage(params)
	if err != nil {
		utils.GetLogger().Error("Error sending message", zap.String("to", to), zap.Error(err))
		return fmt.Errorf("send message: %w", err)
	}

	sid := ""
	if msg.Sid != nil {
		sid = *msg.Sid
	}
	utils.GetLogger().Info("Message sent", zap.String("sid", sid))
	return nil
}
