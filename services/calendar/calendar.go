package calendar

import (
	"context"
	"time"

	"github.com/gomes-camila/clinica-bot/models"
)

// API is the narrow calendar surface the booking core depends on. Both
// calls hit the network; implementations return errors rather than
// panicking so callers can recover locally.
type API interface {
	// BusyIntervals returns the blocked ranges overlapping [start, end),
	// ordered by start time, with recurring events already expanded.
	BusyIntervals(ctx context.Context, start, end time.Time) ([]models.BusyInterval, error)

	// InsertEvent writes the event and returns the provider's event id.
	InsertEvent(ctx context.Context, event models.Event) (string, error)
}
