package booking

import (
	"context"
	"fmt"

	"github.com/gomes-camila/clinica-bot/models"
	"github.com/gomes-camila/clinica-bot/services/calendar"
	"github.com/gomes-camila/clinica-bot/utils"

	"go.uber.org/zap"
)

// Reminder offsets attached to every appointment, in minutes before start.
var reminderMinutes = []int64{24 * 60, 60}

// Writer turns a confirmed selection into a calendar event. Collaborator
// failures are returned as errors, never panics, so the dialogue can
// treat a failed write as a normal outcome branch.
type Writer struct {
	Calendar calendar.API
}

func NewWriter(cal calendar.API) *Writer {
	return &Writer{Calendar: cal}
}

// CreateAppointment writes the appointment to the calendar and returns
// the created event id.
func (w *Writer) CreateAppointment(ctx context.Context, appt models.Appointment) (string, error) {
	event := models.Event{
		Summary: fmt.Sprintf("%s - %s", appt.ServiceName, appt.PatientName),
		Description: fmt.Sprintf("Patient: %s\nPhone: %s\nType: %s",
			appt.PatientName, appt.PatientPhone, appt.ServiceName),
		Start:           appt.Start,
		End:             appt.Start.Add(appt.Duration),
		ReminderMinutes: reminderMinutes,
	}

	eventID, err := w.Calendar.InsertEvent(ctx, event)
	if err != nil {
		utils.GetLogger().Error("Error creating appointment",
			zap.String("patient", appt.PatientName), zap.Error(err))
		return "", fmt.Errorf("create appointment: %w", err)
	}

	utils.GetLogger().Info("Created appointment",
		zap.String("eventID", eventID),
		zap.String("service", appt.ServiceName),
		zap.Time("start", appt.Start))

	return eventID, nil
}
