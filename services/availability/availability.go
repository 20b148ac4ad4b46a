package availability

import (
	"context"
	"time"

	"github.com/gomes-camila/clinica-bot/models"
	"github.com/gomes-camila/clinica-bot/services/calendar"
	"github.com/gomes-camila/clinica-bot/utils"

	"go.uber.org/zap"
)

// maxOptions caps every result at the WhatsApp quick-reply button limit.
const maxOptions = 3

// Engine computes bookable dates and time slots from the calendar's busy
// intervals. All results are ordered chronologically and capped at three
// entries.
type Engine struct {
	Calendar      calendar.API
	Location      *time.Location
	WorkStartHour int
	WorkEndHour   int
	SlotDuration  time.Duration
}

// NewEngine builds an engine with the clinic's working-hours grid.
func NewEngine(cal calendar.API, loc *time.Location, workStart, workEnd, slotMinutes int) *Engine {
	return &Engine{
		Calendar:      cal,
		Location:      loc,
		WorkStartHour: workStart,
		WorkEndHour:   workEnd,
		SlotDuration:  time.Duration(slotMinutes) * time.Minute,
	}
}

// AvailableDates returns up to three weekdays within the horizon that have
// at least one open slot, starting from the day after now.
func (e *Engine) AvailableDates(ctx context.Context, now time.Time, horizonDays int) []time.Time {
	today := startOfDay(now.In(e.Location))

	var dates []time.Time
	for offset := 1; offset <= horizonDays && len(dates) < maxOptions; offset++ {
		day := today.AddDate(0, 0, offset)

		if wd := day.Weekday(); wd == time.Saturday || wd == time.Sunday {
			continue
		}

		if len(e.AvailableSlots(ctx, day)) > 0 {
			dates = append(dates, day)
		}
	}
	return dates
}

// AvailableSlots returns up to three open slot start times for the given
// date. The grid runs from the work start hour stepping by the slot
// duration; a slot whose end would pass the work end hour is never
// generated. A slot is open when it overlaps no busy interval, with
// half-open semantics: a slot ending exactly when an event starts is
// still open.
func (e *Engine) AvailableSlots(ctx context.Context, date time.Time) []time.Time {
	y, m, d := date.In(e.Location).Date()
	workStart := time.Date(y, m, d, e.WorkStartHour, 0, 0, 0, e.Location)
	workEnd := time.Date(y, m, d, e.WorkEndHour, 0, 0, 0, e.Location)

	busy, err := e.Calendar.BusyIntervals(ctx, workStart, workEnd)
	if err != nil {
		// A fetch failure means no busy data, not no availability; the
		// grid is offered as-is and the write will be re-checked later.
		utils.GetLogger().Error("Error fetching calendar events",
			zap.Time("date", date), zap.Error(err))
		busy = nil
	}

	var slots []time.Time
	for s := workStart; !s.Add(e.SlotDuration).After(workEnd); s = s.Add(e.SlotDuration) {
		if e.isFree(s, busy) {
			slots = append(slots, s)
			if len(slots) == maxOptions {
				break
			}
		}
	}
	return slots
}

func (e *Engine) isFree(start time.Time, busy []models.BusyInterval) bool {
	end := start.Add(e.SlotDuration)
	for _, b := range busy {
		if b.Overlaps(start, end) {
			return false
		}
	}
	return true
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
