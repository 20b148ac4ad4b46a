package conversation

import (
	"context"

	"github.com/gomes-camila/clinica-bot/models"
)

// SessionStore keeps per-caller dialogue state and the button index map
// between stateless webhook requests. Get returns (nil, nil) for a
// caller that has never been seen or whose entry expired.
type SessionStore interface {
	Get(ctx context.Context, phone string) (*models.Session, error)
	Put(ctx context.Context, phone string, session *models.Session) error
	Delete(ctx context.Context, phone string) error

	Buttons(ctx context.Context, phone string) (models.ButtonMap, error)
	PutButtons(ctx context.Context, phone string, buttons models.ButtonMap) error
}
