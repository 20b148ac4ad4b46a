package conversation

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gomes-camila/clinica-bot/models"
	"github.com/gomes-camila/clinica-bot/services/availability"
	"github.com/gomes-camila/clinica-bot/services/booking"
	"github.com/gomes-camila/clinica-bot/utils"

	"go.uber.org/zap"
)

// resetKeywords force the caller back to the main menu from any step.
var resetKeywords = map[string]bool{
	"menu":  true,
	"start": true,
	"hello": true,
	"hi":    true,
	"olá":   true,
	"oi":    true,
}

const fallbackText = "Desculpe, não entendi. Digite 'menu' para voltar ao menu principal."

// Handler is the dialogue state machine. Each call to Process interprets
// one inbound message against the caller's current step and returns the
// next prompt. Errors are only returned for session-store failures; every
// calendar outcome is expressed as a normal Reply.
type Handler struct {
	Store        SessionStore
	Availability *availability.Engine
	Booking      *booking.Writer
	HorizonDays  int
	ClinicName   string
	ClinicPhone  string
	Now          func() time.Time

	mu    sync.Mutex
	locks map[string]*callerLock
}

type callerLock struct {
	mu   sync.Mutex
	refs int
}

func NewHandler(store SessionStore, engine *availability.Engine, writer *booking.Writer, horizonDays int, clinicName, clinicPhone string) *Handler {
	return &Handler{
		Store:        store,
		Availability: engine,
		Booking:      writer,
		HorizonDays:  horizonDays,
		ClinicName:   clinicName,
		ClinicPhone:  clinicPhone,
		Now:          time.Now,
		locks:        make(map[string]*callerLock),
	}
}

// LockCaller serializes turns for one caller. The webhook holds the lock
// from dispatch through button-map persistence so two concurrent messages
// from the same number cannot interleave step transitions. Entries are
// reference counted and removed when the last holder releases, so
// abandoned callers do not pin a mutex for the process lifetime.
func (h *Handler) LockCaller(phone string) func() {
	h.mu.Lock()
	l, ok := h.locks[phone]
	if !ok {
		l = &callerLock{}
		h.locks[phone] = l
	}
	l.refs++
	h.mu.Unlock()

	l.mu.Lock()
	return func() {
		l.mu.Unlock()

		h.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(h.locks, phone)
		}
		h.mu.Unlock()
	}
}

// Process handles one inbound message and returns the outbound reply.
func (h *Handler) Process(ctx context.Context, msg models.Inbound) (models.Reply, error) {
	message := strings.ToLower(strings.TrimSpace(msg.Body))

	session, err := h.Store.Get(ctx, msg.From)
	if err != nil {
		return nil, fmt.Errorf("load session: %w", err)
	}
	if session == nil {
		session = models.NewSession(msg.From)
	}

	// Reset keywords win over everything, including structured input.
	if resetKeywords[message] {
		if err := h.Store.Put(ctx, msg.From, models.NewSession(msg.From)); err != nil {
			return nil, fmt.Errorf("reset session: %w", err)
		}
		return h.mainMenu(), nil
	}

	// Structured button id first, numeral fallback second.
	buttonID := msg.ButtonID
	if buttonID == "" {
		buttons, err := h.Store.Buttons(ctx, msg.From)
		if err != nil {
			return nil, fmt.Errorf("load button map: %w", err)
		}
		buttonID = buttons[message]
	}

	utils.GetLogger().Debug("Processing message",
		zap.String("from", msg.From),
		zap.String("step", session.Step.String()),
		zap.String("buttonID", buttonID))

	switch session.Step {
	case models.StepMenu:
		return h.handleMenu(ctx, session, buttonID)
	case models.StepAwaitingName:
		return h.handleName(ctx, session, strings.TrimSpace(msg.Body))
	case models.StepSelectDate:
		return h.handleDateSelection(ctx, session, message, buttonID)
	case models.StepSelectTime:
		return h.handleTimeSelection(ctx, session, message, buttonID)
	case models.StepConfirm:
		return h.handleConfirmation(ctx, session, message, buttonID)
	}

	return models.Text{Body: fallbackText}, nil
}

func (h *Handler) mainMenu() models.Reply {
	return models.Options{
		Body: fmt.Sprintf("Olá! Bem-vindo à %s 🏥\n\nQual serviço deseja agendar?", h.ClinicName),
		Buttons: []models.Button{
			{ID: models.ServiceGeneral, Title: models.ServiceNames[models.ServiceGeneral]},
			{ID: models.ServiceSpecialized, Title: models.ServiceNames[models.ServiceSpecialized]},
			{ID: models.OptionOfficeHours, Title: "Horário de Atendimento"},
		},
	}
}

func (h *Handler) handleMenu(ctx context.Context, session *models.Session, buttonID string) (models.Reply, error) {
	if name, ok := models.ServiceNames[buttonID]; ok {
		session.ServiceID = buttonID
		session.ServiceName = name
		session.Step = models.StepAwaitingName
		if err := h.Store.Put(ctx, session.Phone, session); err != nil {
			return nil, err
		}
		return models.Text{Body: "Perfeito! Para continuar, preciso de algumas informações.\n\nQual é o seu nome completo?"}, nil
	}

	if buttonID == models.OptionOfficeHours {
		// Informational only; the caller stays at the menu.
		return models.Text{Body: h.officeHoursText()}, nil
	}

	return models.Text{Body: "Por favor, escolha uma opção válida ou digite 'menu'."}, nil
}

func (h *Handler) officeHoursText() string {
	return fmt.Sprintf(`📅 Horário de Atendimento:

Segunda a Sexta: %02d:00 - %02d:00
Sábado: Fechado
Domingo: Fechado

⏰ Duração da consulta: %d minutos

Digite 'menu' para voltar ao menu principal.`,
		h.Availability.WorkStartHour,
		h.Availability.WorkEndHour,
		int(h.Availability.SlotDuration.Minutes()))
}

func (h *Handler) handleName(ctx context.Context, session *models.Session, name string) (models.Reply, error) {
	if name == "" {
		return models.Text{Body: "Qual é o seu nome completo?"}, nil
	}

	session.PatientName = name
	session.Step = models.StepSelectDate

	dates := h.Availability.AvailableDates(ctx, h.Now(), h.HorizonDays)
	if len(dates) == 0 {
		if err := h.Store.Put(ctx, session.Phone, session); err != nil {
			return nil, err
		}
		return models.Text{Body: fmt.Sprintf("Desculpe, não há datas disponíveis no momento. Entre em contato pelo telefone %s.\n\nDigite \"menu\" para voltar.", h.ClinicPhone)}, nil
	}

	buttons := make([]models.Button, 0, len(dates))
	session.OfferedDates = make(map[string]time.Time, len(dates))
	for i, date := range dates {
		idx := strconv.Itoa(i + 1)
		buttons = append(buttons, models.Button{
			ID:    "date_" + idx,
			Title: availability.FormatDate(date),
		})
		session.OfferedDates[idx] = date
	}

	if err := h.Store.Put(ctx, session.Phone, session); err != nil {
		return nil, err
	}

	return models.Options{
		Body:    fmt.Sprintf("Obrigado, %s!\n\nEscolha uma data disponível:", name),
		Buttons: buttons,
	}, nil
}

func (h *Handler) handleDateSelection(ctx context.Context, session *models.Session, message, buttonID string) (models.Reply, error) {
	idx := resolveIndex(buttonID, "date_", message)

	date, ok := session.OfferedDates[idx]
	if !ok {
		return models.Text{Body: "Por favor, escolha uma data válida ou digite \"menu\" para voltar."}, nil
	}

	session.SelectedDate = date
	session.Step = models.StepSelectTime

	slots := h.Availability.AvailableSlots(ctx, date)
	if len(slots) == 0 {
		if err := h.Store.Put(ctx, session.Phone, session); err != nil {
			return nil, err
		}
		return models.Text{Body: "Desculpe, não há horários disponíveis nesta data. Digite \"menu\" para escolher outra data."}, nil
	}

	buttons := make([]models.Button, 0, len(slots))
	session.OfferedTimes = make(map[string]time.Time, len(slots))
	for i, slot := range slots {
		idx := strconv.Itoa(i + 1)
		buttons = append(buttons, models.Button{
			ID:    "time_" + idx,
			Title: availability.FormatTime(slot),
		})
		session.OfferedTimes[idx] = slot
	}

	if err := h.Store.Put(ctx, session.Phone, session); err != nil {
		return nil, err
	}

	return models.Options{
		Body:    fmt.Sprintf("Data selecionada: %s\n\nEscolha um horário:", availability.FormatDate(date)),
		Buttons: buttons,
	}, nil
}

func (h *Handler) handleTimeSelection(ctx context.Context, session *models.Session, message, buttonID string) (models.Reply, error) {
	idx := resolveIndex(buttonID, "time_", message)

	slot, ok := session.OfferedTimes[idx]
	if !ok {
		return models.Text{Body: "Por favor, escolha um horário válido ou digite \"menu\" para voltar."}, nil
	}

	session.SelectedTime = slot
	session.Step = models.StepConfirm
	if err := h.Store.Put(ctx, session.Phone, session); err != nil {
		return nil, err
	}

	summary := fmt.Sprintf(`📋 Resumo do Agendamento:

👤 Paciente: %s
🏥 Serviço: %s
📅 Data: %s
⏰ Horário: %s

Deseja confirmar este agendamento?`,
		session.PatientName,
		session.ServiceName,
		availability.FormatDate(session.SelectedDate),
		availability.FormatTime(slot))

	return models.Options{
		Body: summary,
		Buttons: []models.Button{
			{ID: models.OptionConfirmYes, Title: "Sim, confirmar"},
			{ID: models.OptionConfirmNo, Title: "Cancelar"},
		},
	}, nil
}

func (h *Handler) handleConfirmation(ctx context.Context, session *models.Session, message, buttonID string) (models.Reply, error) {
	// "1" doubles as confirm for callers typing the numeral directly.
	if buttonID == models.OptionConfirmYes || message == "1" {
		appt := models.Appointment{
			PatientName:  session.PatientName,
			PatientPhone: session.Phone,
			ServiceName:  session.ServiceName,
			Start:        session.SelectedTime,
			Duration:     h.Availability.SlotDuration,
		}

		if _, err := h.Booking.CreateAppointment(ctx, appt); err != nil {
			// Caller may retry from here or reset with "menu".
			return models.Text{Body: "Desculpe, houve um erro ao confirmar seu agendamento. Tente novamente ou digite \"menu\" para voltar."}, nil
		}

		success := fmt.Sprintf(`✅ Agendamento Confirmado!

👤 Paciente: %s
🏥 Serviço: %s
📅 Data: %s
⏰ Horário: %s

Você receberá lembretes 24h e 1h antes da consulta.

Digite 'menu' para um novo agendamento.`,
			session.PatientName,
			session.ServiceName,
			availability.FormatDate(session.SelectedDate),
			availability.FormatTime(session.SelectedTime))

		if err := h.Store.Put(ctx, session.Phone, models.NewSession(session.Phone)); err != nil {
			return nil, err
		}
		return models.Text{Body: success}, nil
	}

	if buttonID == models.OptionConfirmNo {
		if err := h.Store.Put(ctx, session.Phone, models.NewSession(session.Phone)); err != nil {
			return nil, err
		}
		return models.Text{Body: "Agendamento cancelado. Digite 'menu' para voltar ao menu principal."}, nil
	}

	return models.Text{Body: fallbackText}, nil
}

// resolveIndex recovers the display index from a prefixed button id
// ("date_2" → "2") or, failing that, from all-digit text input.
func resolveIndex(buttonID, prefix, message string) string {
	if strings.HasPrefix(buttonID, prefix) {
		return strings.TrimPrefix(buttonID, prefix)
	}
	if message != "" && isDigits(message) {
		return message
	}
	return ""
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
