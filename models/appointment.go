package models

import "time"

// Option ids used by the main menu.
const (
	ServiceGeneral     = "appointment_1"
	ServiceSpecialized = "appointment_2"
	OptionOfficeHours  = "office_hours"

	OptionConfirmYes = "confirm_yes"
	OptionConfirmNo  = "confirm_no"
)

// ServiceNames maps bookable service ids to their display names.
var ServiceNames = map[string]string{
	ServiceGeneral:     "Consulta Geral",
	ServiceSpecialized: "Consulta Especializada",
}

// BusyInterval is a [start, end) calendar-blocked range. All-day events
// arrive expanded to the full day.
type BusyInterval struct {
	Start time.Time
	End   time.Time
}

// Overlaps reports whether the half-open interval [start, end) intersects
// the busy interval. Touching boundaries do not overlap.
func (b BusyInterval) Overlaps(start, end time.Time) bool {
	return start.Before(b.End) && b.Start.Before(end)
}

// Appointment is a confirmed selection ready to be written to the
// calendar.
type Appointment struct {
	PatientName  string
	PatientPhone string
	ServiceName  string
	Start        time.Time
	Duration     time.Duration
}

// Event is the calendar-facing descriptor built by the booking writer.
type Event struct {
	Summary         string
	Description     string
	Start           time.Time
	End             time.Time
	ReminderMinutes []int64
}
