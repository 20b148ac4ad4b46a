package availability

import (
	"fmt"
	"time"
)

var weekdays = [...]string{"Domingo", "Segunda", "Terça", "Quarta", "Quinta", "Sexta", "Sábado"}

var months = [...]string{"Jan", "Fev", "Mar", "Abr", "Mai", "Jun", "Jul", "Ago", "Set", "Out", "Nov", "Dez"}

// FormatDate renders a date for display in Portuguese, e.g. "Segunda, 2 Set".
func FormatDate(t time.Time) string {
	return fmt.Sprintf("%s, %d %s", weekdays[t.Weekday()], t.Day(), months[t.Month()-1])
}

// FormatTime renders a slot start time as "15:04".
func FormatTime(t time.Time) string {
	return t.Format("15:04")
}
