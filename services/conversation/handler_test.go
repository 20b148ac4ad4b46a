package conversation

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/gomes-camila/clinica-bot/models"
	"github.com/gomes-camila/clinica-bot/services/availability"
	"github.com/gomes-camila/clinica-bot/services/booking"
)

const caller = "whatsapp:+5541999990000"

type fakeCalendar struct {
	busy      []models.BusyInterval
	inserted  []models.Event
	insertErr error
}

func (f *fakeCalendar) BusyIntervals(_ context.Context, start, end time.Time) ([]models.BusyInterval, error) {
	var out []models.BusyInterval
	for _, b := range f.busy {
		if b.Start.Before(end) && start.Before(b.End) {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeCalendar) InsertEvent(_ context.Context, event models.Event) (string, error) {
	if f.insertErr != nil {
		return "", f.insertErr
	}
	f.inserted = append(f.inserted, event)
	return "event-123", nil
}

// Monday morning.
var testNow = time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC)

func newTestHandler(t *testing.T, cal *fakeCalendar) (*Handler, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore(30 * time.Minute)
	t.Cleanup(store.Close)
	engine := availability.NewEngine(cal, time.UTC, 9, 17, 30)
	writer := booking.NewWriter(cal)

	h := NewHandler(store, engine, writer, 14, "Clínica Dr. Silva", "(41) 3333-4444")
	h.Now = func() time.Time { return testNow }
	return h, store
}

// send runs one dialogue turn and, like the webhook transport, records
// the displayed-index map whenever the reply carries buttons.
func send(t *testing.T, h *Handler, store SessionStore, body, buttonID string) models.Reply {
	t.Helper()
	ctx := context.Background()

	reply, err := h.Process(ctx, models.Inbound{From: caller, Body: body, ButtonID: buttonID})
	if err != nil {
		t.Fatalf("process %q: %v", body, err)
	}

	if opts, ok := reply.(models.Options); ok {
		buttons := make(models.ButtonMap, len(opts.Buttons))
		for i, btn := range opts.Buttons {
			buttons[strconv.Itoa(i+1)] = btn.ID
		}
		if err := store.PutButtons(ctx, caller, buttons); err != nil {
			t.Fatalf("put buttons: %v", err)
		}
	}
	return reply
}

func sessionStep(t *testing.T, store SessionStore) models.Step {
	t.Helper()
	session, err := store.Get(context.Background(), caller)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session == nil {
		t.Fatal("expected session, got nil")
	}
	return session.Step
}

func TestGreetingShowsMenu(t *testing.T) {
	h, store := newTestHandler(t, &fakeCalendar{})

	reply := send(t, h, store, "oi", "")
	opts, ok := reply.(models.Options)
	if !ok {
		t.Fatalf("expected Options, got %T", reply)
	}
	if len(opts.Buttons) != 3 {
		t.Fatalf("expected 3 buttons, got %d", len(opts.Buttons))
	}
	expectedIDs := []string{"appointment_1", "appointment_2", "office_hours"}
	for i, id := range expectedIDs {
		if opts.Buttons[i].ID != id {
			t.Fatalf("button %d: expected %s, got %s", i, id, opts.Buttons[i].ID)
		}
	}
	if got := sessionStep(t, store); got != models.StepMenu {
		t.Fatalf("expected step menu, got %s", got)
	}
}

func TestResetKeywordIsIdempotent(t *testing.T) {
	h, store := newTestHandler(t, &fakeCalendar{})

	first := send(t, h, store, "oi", "")

	// Advance partway through the dialogue, then reset.
	send(t, h, store, "", "appointment_1")
	send(t, h, store, "Maria Silva", "")
	again := send(t, h, store, "menu", "")

	firstOpts := first.(models.Options)
	againOpts, ok := again.(models.Options)
	if !ok {
		t.Fatalf("expected Options, got %T", again)
	}
	if firstOpts.Body != againOpts.Body || len(firstOpts.Buttons) != len(againOpts.Buttons) {
		t.Fatal("reset menu differs from initial menu")
	}
	if got := sessionStep(t, store); got != models.StepMenu {
		t.Fatalf("expected step menu after reset, got %s", got)
	}
}

func TestOfficeHoursDoesNotAdvance(t *testing.T) {
	h, store := newTestHandler(t, &fakeCalendar{})

	send(t, h, store, "oi", "")
	reply := send(t, h, store, "", "office_hours")

	text, ok := reply.(models.Text)
	if !ok {
		t.Fatalf("expected Text, got %T", reply)
	}
	if !strings.Contains(text.Body, "Horário de Atendimento") {
		t.Fatalf("unexpected body: %s", text.Body)
	}
	if got := sessionStep(t, store); got != models.StepMenu {
		t.Fatalf("expected step menu, got %s", got)
	}
}

func TestMenuInvalidOption(t *testing.T) {
	h, store := newTestHandler(t, &fakeCalendar{})

	send(t, h, store, "oi", "")
	reply := send(t, h, store, "qualquer coisa", "")

	text := reply.(models.Text)
	if !strings.Contains(text.Body, "opção válida") {
		t.Fatalf("unexpected body: %s", text.Body)
	}
}

func TestServiceSelectionAsksForName(t *testing.T) {
	h, store := newTestHandler(t, &fakeCalendar{})

	send(t, h, store, "oi", "")
	reply := send(t, h, store, "", "appointment_1")

	text := reply.(models.Text)
	if !strings.Contains(text.Body, "nome completo") {
		t.Fatalf("unexpected body: %s", text.Body)
	}
	if got := sessionStep(t, store); got != models.StepAwaitingName {
		t.Fatalf("expected step awaiting_name, got %s", got)
	}

	session, _ := store.Get(context.Background(), caller)
	if session.ServiceName != "Consulta Geral" {
		t.Fatalf("expected Consulta Geral, got %s", session.ServiceName)
	}
}

func TestNameOffersDates(t *testing.T) {
	h, store := newTestHandler(t, &fakeCalendar{})

	send(t, h, store, "oi", "")
	send(t, h, store, "", "appointment_1")
	reply := send(t, h, store, "Maria Silva", "")

	opts, ok := reply.(models.Options)
	if !ok {
		t.Fatalf("expected Options, got %T", reply)
	}
	if !strings.Contains(opts.Body, "Obrigado, Maria Silva") {
		t.Fatalf("unexpected body: %s", opts.Body)
	}
	if len(opts.Buttons) != 3 {
		t.Fatalf("expected 3 date buttons, got %d", len(opts.Buttons))
	}
	// Monday reference: offered days are Tue 1, Wed 2, Thu 3 Sep.
	if opts.Buttons[0].Title != "Terça, 1 Set" {
		t.Fatalf("unexpected first date label: %s", opts.Buttons[0].Title)
	}

	session, _ := store.Get(context.Background(), caller)
	if session.Step != models.StepSelectDate {
		t.Fatalf("expected step select_date, got %s", session.Step)
	}
	if len(session.OfferedDates) != 3 {
		t.Fatalf("expected 3 offered dates, got %d", len(session.OfferedDates))
	}
	for _, idx := range []string{"1", "2", "3"} {
		if _, ok := session.OfferedDates[idx]; !ok {
			t.Fatalf("missing offered date index %s", idx)
		}
	}
}

func TestNoDatesAvailable(t *testing.T) {
	// Block every day of the horizon with all-day events.
	var busy []models.BusyInterval
	for i := 0; i <= 15; i++ {
		start := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC).AddDate(0, 0, i)
		busy = append(busy, models.BusyInterval{Start: start, End: start.AddDate(0, 0, 1)})
	}
	h, store := newTestHandler(t, &fakeCalendar{busy: busy})

	send(t, h, store, "oi", "")
	send(t, h, store, "", "appointment_1")
	reply := send(t, h, store, "Maria Silva", "")

	text, ok := reply.(models.Text)
	if !ok {
		t.Fatalf("expected Text, got %T", reply)
	}
	if !strings.Contains(text.Body, "(41) 3333-4444") {
		t.Fatalf("expected fallback phone in body: %s", text.Body)
	}
	if got := sessionStep(t, store); got != models.StepSelectDate {
		t.Fatalf("expected step select_date, got %s", got)
	}
}

func TestNumericDateSelectionOffersTimes(t *testing.T) {
	h, store := newTestHandler(t, &fakeCalendar{})

	send(t, h, store, "oi", "")
	send(t, h, store, "", "appointment_1")
	send(t, h, store, "Maria Silva", "")

	// The caller answers the numeral; the stored button map resolves it.
	reply := send(t, h, store, "1", "")

	opts, ok := reply.(models.Options)
	if !ok {
		t.Fatalf("expected Options, got %T", reply)
	}
	if !strings.Contains(opts.Body, "Data selecionada") {
		t.Fatalf("unexpected body: %s", opts.Body)
	}
	if len(opts.Buttons) != 3 {
		t.Fatalf("expected 3 time buttons, got %d", len(opts.Buttons))
	}
	if opts.Buttons[0].Title != "09:00" {
		t.Fatalf("unexpected first time label: %s", opts.Buttons[0].Title)
	}
	if got := sessionStep(t, store); got != models.StepSelectTime {
		t.Fatalf("expected step select_time, got %s", got)
	}
}

func TestDateFilledBeforeSelection(t *testing.T) {
	cal := &fakeCalendar{}
	h, store := newTestHandler(t, cal)

	send(t, h, store, "oi", "")
	send(t, h, store, "", "appointment_1")
	send(t, h, store, "Maria Silva", "")

	// The first offered day fills up between the date prompt and the
	// caller's answer.
	tuesday := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	cal.busy = append(cal.busy, models.BusyInterval{Start: tuesday, End: tuesday.AddDate(0, 0, 1)})

	reply := send(t, h, store, "1", "")
	text, ok := reply.(models.Text)
	if !ok {
		t.Fatalf("expected Text, got %T", reply)
	}
	if !strings.Contains(text.Body, "não há horários disponíveis") {
		t.Fatalf("unexpected body: %s", text.Body)
	}
	if got := sessionStep(t, store); got != models.StepSelectTime {
		t.Fatalf("expected step select_time, got %s", got)
	}
}

func TestInvalidDateSelection(t *testing.T) {
	h, store := newTestHandler(t, &fakeCalendar{})

	send(t, h, store, "oi", "")
	send(t, h, store, "", "appointment_1")
	send(t, h, store, "Maria Silva", "")
	reply := send(t, h, store, "9", "")

	text := reply.(models.Text)
	if !strings.Contains(text.Body, "data válida") {
		t.Fatalf("unexpected body: %s", text.Body)
	}
	if got := sessionStep(t, store); got != models.StepSelectDate {
		t.Fatalf("expected step select_date, got %s", got)
	}
}

func TestInvalidTimeSelection(t *testing.T) {
	h, store := newTestHandler(t, &fakeCalendar{})

	send(t, h, store, "oi", "")
	send(t, h, store, "", "appointment_1")
	send(t, h, store, "Maria Silva", "")
	send(t, h, store, "1", "")
	reply := send(t, h, store, "9", "")

	text := reply.(models.Text)
	if !strings.Contains(text.Body, "horário válido") {
		t.Fatalf("unexpected body: %s", text.Body)
	}
	if got := sessionStep(t, store); got != models.StepSelectTime {
		t.Fatalf("expected step select_time, got %s", got)
	}
}

func TestTimeSelectionShowsSummary(t *testing.T) {
	h, store := newTestHandler(t, &fakeCalendar{})

	send(t, h, store, "oi", "")
	send(t, h, store, "", "appointment_1")
	send(t, h, store, "Maria Silva", "")
	send(t, h, store, "1", "")
	reply := send(t, h, store, "", "time_2")

	opts, ok := reply.(models.Options)
	if !ok {
		t.Fatalf("expected Options, got %T", reply)
	}
	for _, want := range []string{"Maria Silva", "Consulta Geral", "09:30", "Resumo do Agendamento"} {
		if !strings.Contains(opts.Body, want) {
			t.Fatalf("summary missing %q: %s", want, opts.Body)
		}
	}
	if len(opts.Buttons) != 2 {
		t.Fatalf("expected 2 buttons, got %d", len(opts.Buttons))
	}
	if opts.Buttons[0].ID != "confirm_yes" || opts.Buttons[1].ID != "confirm_no" {
		t.Fatalf("unexpected buttons: %+v", opts.Buttons)
	}
	if got := sessionStep(t, store); got != models.StepConfirm {
		t.Fatalf("expected step confirm, got %s", got)
	}
}

func TestConfirmationBooksAndResets(t *testing.T) {
	cal := &fakeCalendar{}
	h, store := newTestHandler(t, cal)

	send(t, h, store, "oi", "")
	send(t, h, store, "", "appointment_1")
	send(t, h, store, "Maria Silva", "")
	send(t, h, store, "1", "")
	send(t, h, store, "", "time_1")
	reply := send(t, h, store, "", "confirm_yes")

	text, ok := reply.(models.Text)
	if !ok {
		t.Fatalf("expected Text, got %T", reply)
	}
	for _, want := range []string{"Agendamento Confirmado", "Maria Silva", "Consulta Geral", "Terça, 1 Set", "09:00"} {
		if !strings.Contains(text.Body, want) {
			t.Fatalf("success message missing %q: %s", want, text.Body)
		}
	}

	if len(cal.inserted) != 1 {
		t.Fatalf("expected 1 calendar write, got %d", len(cal.inserted))
	}
	expectedStart := time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC)
	if !cal.inserted[0].Start.Equal(expectedStart) {
		t.Fatalf("expected start %v, got %v", expectedStart, cal.inserted[0].Start)
	}

	if got := sessionStep(t, store); got != models.StepMenu {
		t.Fatalf("expected step menu after booking, got %s", got)
	}
}

func TestConfirmationWithNumeralAlias(t *testing.T) {
	cal := &fakeCalendar{}
	h, store := newTestHandler(t, cal)

	send(t, h, store, "oi", "")
	send(t, h, store, "", "appointment_2")
	send(t, h, store, "João Souza", "")
	send(t, h, store, "1", "")
	send(t, h, store, "", "time_1")
	reply := send(t, h, store, "1", "")

	if _, ok := reply.(models.Text); !ok {
		t.Fatalf("expected Text, got %T", reply)
	}
	if len(cal.inserted) != 1 {
		t.Fatalf("expected 1 calendar write, got %d", len(cal.inserted))
	}
}

func TestConfirmationWriteFailureKeepsStep(t *testing.T) {
	cal := &fakeCalendar{insertErr: errors.New("calendar unavailable")}
	h, store := newTestHandler(t, cal)

	send(t, h, store, "oi", "")
	send(t, h, store, "", "appointment_1")
	send(t, h, store, "Maria Silva", "")
	send(t, h, store, "1", "")
	send(t, h, store, "", "time_1")
	reply := send(t, h, store, "", "confirm_yes")

	text := reply.(models.Text)
	if !strings.Contains(text.Body, "erro ao confirmar") {
		t.Fatalf("unexpected body: %s", text.Body)
	}
	// The caller can retry the confirmation.
	if got := sessionStep(t, store); got != models.StepConfirm {
		t.Fatalf("expected step confirm, got %s", got)
	}

	cal.insertErr = nil
	retry := send(t, h, store, "", "confirm_yes")
	if _, ok := retry.(models.Text); !ok {
		t.Fatalf("expected Text, got %T", retry)
	}
	if len(cal.inserted) != 1 {
		t.Fatalf("expected successful retry write, got %d", len(cal.inserted))
	}
}

func TestConfirmationDeclined(t *testing.T) {
	cal := &fakeCalendar{}
	h, store := newTestHandler(t, cal)

	send(t, h, store, "oi", "")
	send(t, h, store, "", "appointment_1")
	send(t, h, store, "Maria Silva", "")
	send(t, h, store, "1", "")
	send(t, h, store, "", "time_1")
	reply := send(t, h, store, "", "confirm_no")

	text := reply.(models.Text)
	if !strings.Contains(text.Body, "cancelado") {
		t.Fatalf("unexpected body: %s", text.Body)
	}
	if len(cal.inserted) != 0 {
		t.Fatalf("expected no calendar writes, got %d", len(cal.inserted))
	}
	if got := sessionStep(t, store); got != models.StepMenu {
		t.Fatalf("expected step menu, got %s", got)
	}
}

func TestConfirmationUnrecognizedInput(t *testing.T) {
	cal := &fakeCalendar{}
	h, store := newTestHandler(t, cal)

	send(t, h, store, "oi", "")
	send(t, h, store, "", "appointment_1")
	send(t, h, store, "Maria Silva", "")
	send(t, h, store, "1", "")
	send(t, h, store, "", "time_1")
	reply := send(t, h, store, "talvez", "")

	text, ok := reply.(models.Text)
	if !ok {
		t.Fatalf("expected Text, got %T", reply)
	}
	if !strings.Contains(text.Body, "não entendi") {
		t.Fatalf("unexpected body: %s", text.Body)
	}
	if len(cal.inserted) != 0 {
		t.Fatalf("expected no calendar writes, got %d", len(cal.inserted))
	}
	// The summary is still pending; the caller can answer it again.
	if got := sessionStep(t, store); got != models.StepConfirm {
		t.Fatalf("expected step confirm, got %s", got)
	}
}

func TestLockCallerReleasesEntry(t *testing.T) {
	h, _ := newTestHandler(t, &fakeCalendar{})

	unlock := h.LockCaller(caller)
	h.mu.Lock()
	if len(h.locks) != 1 {
		h.mu.Unlock()
		t.Fatalf("expected 1 lock entry while held, got %d", len(h.locks))
	}
	h.mu.Unlock()

	unlock()
	h.mu.Lock()
	if len(h.locks) != 0 {
		h.mu.Unlock()
		t.Fatalf("expected lock entry to be dropped, got %d", len(h.locks))
	}
	h.mu.Unlock()

	// A second cycle builds a fresh entry and releases it again.
	unlock = h.LockCaller(caller)
	unlock()
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.locks) != 0 {
		t.Fatalf("expected empty lock map after reuse, got %d", len(h.locks))
	}
}

func TestUnknownCallerFallsBackToMenuStep(t *testing.T) {
	h, store := newTestHandler(t, &fakeCalendar{})

	// First contact with arbitrary text lands at the menu step and gets
	// the corrective prompt rather than an error.
	reply := send(t, h, store, "quero marcar uma consulta", "")
	text, ok := reply.(models.Text)
	if !ok {
		t.Fatalf("expected Text, got %T", reply)
	}
	if !strings.Contains(text.Body, "opção válida") {
		t.Fatalf("unexpected body: %s", text.Body)
	}
}
