package model

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// DateLayout is the calendar date format used on the wire and in storage.
const DateLayout = "2006-01-02"

type ContactMethod string

const (
	ContactWhatsApp ContactMethod = "whatsapp"
	ContactCall     ContactMethod = "call"
)

// ContactMethods lists every supported channel in display order.
var ContactMethods = []ContactMethod{ContactWhatsApp, ContactCall}

func ParseContactMethod(raw string) (ContactMethod, bool) {
	m := ContactMethod(strings.ToLower(strings.TrimSpace(raw)))
	if slices.Contains(ContactMethods, m) {
		return m, true
	}
	return "", false
}

// Appointment is a patient booking kept in the agenda.
type Appointment struct {
	ID             string
	FirstName      string
	LastName       string
	Phone          string
	Date           time.Time // midnight UTC of the calendar day
	Time           string    // HH:MM, one of slots.All()
	ContactMethods []ContactMethod
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Title is the label rendered on the calendar, e.g. "Ana Lopez - 09:00".
func (a Appointment) Title() string {
	return fmt.Sprintf("%s %s - %s", a.FirstName, a.LastName, a.Time)
}

func (a Appointment) DateString() string {
	if a.Date.IsZero() {
		return ""
	}
	return a.Date.Format(DateLayout)
}

// Clone returns a copy that shares no slices with a.
func (a Appointment) Clone() Appointment {
	a.ContactMethods = slices.Clone(a.ContactMethods)
	return a
}

func ContactMethodStrings(methods []ContactMethod) []string {
	out := make([]string, 0, len(methods))
	for _, m := range methods {
		out = append(out, string(m))
	}
	return out
}
