package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/gomes-camila/clinica-bot/models"
	"github.com/gomes-camila/clinica-bot/utils"

	"go.uber.org/zap"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"
)

// GoogleCalendar implements API against the Google Calendar v3 service
// using a service-account credentials file.
type GoogleCalendar struct {
	svc        *gcal.Service
	calendarID string
	loc        *time.Location
}

// NewGoogleCalendar authenticates with the Google Calendar API. A failure
// here is fatal to the caller; the bot cannot run without its calendar.
func NewGoogleCalendar(ctx context.Context, credentialsFile, calendarID string, loc *time.Location) (*GoogleCalendar, error) {
	svc, err := gcal.NewService(ctx,
		option.WithCredentialsFile(credentialsFile),
		option.WithScopes(gcal.CalendarScope),
	)
	if err != nil {
		return nil, fmt.Errorf("authenticate with google calendar: %w", err)
	}

	utils.GetLogger().Info("Successfully authenticated with Google Calendar",
		zap.String("calendarID", calendarID))

	return &GoogleCalendar{svc: svc, calendarID: calendarID, loc: loc}, nil
}

func (g *GoogleCalendar) BusyIntervals(ctx context.Context, start, end time.Time) ([]models.BusyInterval, error) {
	result, err := g.svc.Events.List(g.calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}

	intervals := make([]models.BusyInterval, 0, len(result.Items))
	for _, item := range result.Items {
		if item.Start == nil || item.End == nil {
			continue
		}
		evStart, err := g.parseEventTime(item.Start)
		if err != nil {
			continue
		}
		evEnd, err := g.parseEventTime(item.End)
		if err != nil {
			continue
		}
		intervals = append(intervals, models.BusyInterval{Start: evStart, End: evEnd})
	}

	utils.GetLogger().Debug("Fetched calendar events",
		zap.Int("count", len(intervals)),
		zap.Time("start", start),
		zap.Time("end", end))

	return intervals, nil
}

// parseEventTime handles both timed events (DateTime) and all-day events
// (Date). An all-day boundary is midnight in the configured timezone, so
// such events block the entire working day.
func (g *GoogleCalendar) parseEventTime(edt *gcal.EventDateTime) (time.Time, error) {
	if edt.DateTime != "" {
		return time.Parse(time.RFC3339, edt.DateTime)
	}
	return time.ParseInLocation("2006-01-02", edt.Date, g.loc)
}

func (g *GoogleCalendar) InsertEvent(ctx context.Context, event models.Event) (string, error) {
	reminders := make([]*gcal.EventReminder, 0, len(event.ReminderMinutes))
	for _, m := range event.ReminderMinutes {
		reminders = append(reminders, &gcal.EventReminder{Method: "popup", Minutes: m})
	}

	ev := &gcal.Event{
		Summary:     event.Summary,
		Description: event.Description,
		Start: &gcal.EventDateTime{
			DateTime: event.Start.Format(time.RFC3339),
			TimeZone: g.loc.String(),
		},
		End: &gcal.EventDateTime{
			DateTime: event.End.Format(time.RFC3339),
			TimeZone: g.loc.String(),
		},
		Reminders: &gcal.EventReminders{
			UseDefault:      false,
			Overrides:       reminders,
			ForceSendFields: []string{"UseDefault"},
		},
	}

	created, err := g.svc.Events.Insert(g.calendarID, ev).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("insert event: %w", err)
	}

	utils.GetLogger().Info("Created calendar event", zap.String("eventID", created.Id))
	return created.Id, nil
}
