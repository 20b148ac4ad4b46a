package models

import "time"

// Step is the caller's position in the fixed booking dialogue. A session
// only ever advances Menu → AwaitingName → SelectDate → SelectTime →
// Confirm, or resets to Menu.
type Step int

const (
	StepMenu Step = iota
	StepAwaitingName
	StepSelectDate
	StepSelectTime
	StepConfirm
)

func (s Step) String() string {
	switch s {
	case StepMenu:
		return "menu"
	case StepAwaitingName:
		return "awaiting_name"
	case StepSelectDate:
		return "select_date"
	case StepSelectTime:
		return "select_time"
	case StepConfirm:
		return "confirm"
	}
	return "unknown"
}

// Session holds one caller's dialogue state between stateless webhook
// requests. OfferedDates/OfferedTimes map the numeral shown to the caller
// ("1".."3") to the concrete date or start time it stands for.
type Session struct {
	Phone        string               `json:"phone"`
	Step         Step                 `json:"step"`
	ServiceID    string               `json:"serviceId,omitempty"`
	ServiceName  string               `json:"serviceName,omitempty"`
	PatientName  string               `json:"patientName,omitempty"`
	OfferedDates map[string]time.Time `json:"offeredDates,omitempty"`
	OfferedTimes map[string]time.Time `json:"offeredTimes,omitempty"`
	SelectedDate time.Time            `json:"selectedDate,omitempty"`
	SelectedTime time.Time            `json:"selectedTime,omitempty"`
}

// NewSession returns a fresh session at the main menu.
func NewSession(phone string) *Session {
	return &Session{Phone: phone, Step: StepMenu}
}

// ButtonMap maps the numeral label of the last button prompt sent to a
// caller ("1".."3") to the semantic option id behind it (e.g. "date_2").
// It is rebuilt on every button-bearing prompt and consulted on the next
// inbound message to resolve numeric fallback input.
type ButtonMap map[string]string

// Inbound is one message received from the messaging channel. ButtonID is
// set when the caller's client echoed a structured quick-reply id rather
// than plain text.
type Inbound struct {
	From     string
	Body     string
	ButtonID string
}
