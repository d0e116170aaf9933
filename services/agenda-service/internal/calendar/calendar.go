// Package calendar renders the agenda for calendar clients: FullCalendar
// event objects for the web view and an iCalendar feed for everything else.
package calendar

import (
	"fmt"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/model"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/slots"
)

const (
	ProductID = "-//DentaNova//Agenda//ES"

	// Local wall-clock layouts without zone; the agenda has no time zone.
	eventStartLayout = "2006-01-02T15:04:05"
	icsFloatLayout   = "20060102T150405"
)

type ExtendedProps struct {
	FirstName     string   `json:"firstName"`
	LastName      string   `json:"lastName"`
	Phone         string   `json:"phone"`
	Time          string   `json:"time"`
	ContactMethod []string `json:"contactMethod"`
}

// Event is the EventInput object consumed by the calendar widget.
type Event struct {
	ID            string        `json:"id"`
	Title         string        `json:"title"`
	Start         string        `json:"start"`
	End           string        `json:"end,omitempty"`
	AllDay        bool          `json:"allDay"`
	ExtendedProps ExtendedProps `json:"extendedProps"`
}

func Events(list []model.Appointment) []Event {
	out := make([]Event, 0, len(list))
	for _, a := range list {
		ev := Event{
			ID:    a.ID,
			Title: a.Title(),
			ExtendedProps: ExtendedProps{
				FirstName:     a.FirstName,
				LastName:      a.LastName,
				Phone:         a.Phone,
				Time:          a.Time,
				ContactMethod: model.ContactMethodStrings(a.ContactMethods),
			},
		}
		if start, ok := startOf(a); ok {
			ev.Start = start.Format(eventStartLayout)
			ev.End = start.Add(slots.Duration).Format(eventStartLayout)
		} else {
			ev.Start = a.DateString()
		}
		out = append(out, ev)
	}
	return out
}

// ICS serializes the agenda as a VCALENDAR with one VEVENT per appointment.
func ICS(list []model.Appointment, stamp time.Time) string {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(ProductID)

	for _, a := range list {
		start, ok := startOf(a)
		if !ok {
			continue
		}
		ev := cal.AddEvent(UID(a.ID))
		ev.SetDtStampTime(stamp.UTC())
		ev.SetSummary(a.Title())
		ev.SetDescription(describe(a))
		ev.SetProperty(ical.ComponentPropertyDtStart, start.Format(icsFloatLayout))
		ev.SetProperty(ical.ComponentPropertyDtEnd, start.Add(slots.Duration).Format(icsFloatLayout))
		if !a.CreatedAt.IsZero() {
			ev.SetCreatedTime(a.CreatedAt.UTC())
		}
		if !a.UpdatedAt.IsZero() {
			ev.SetModifiedAt(a.UpdatedAt.UTC())
		}
	}
	return cal.Serialize()
}

func UID(id string) string {
	return id + "@dentanova"
}

func startOf(a model.Appointment) (time.Time, bool) {
	if a.Date.IsZero() {
		return time.Time{}, false
	}
	off, ok := slots.Offset(a.Time)
	if !ok {
		return time.Time{}, false
	}
	y, m, d := a.Date.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Add(off), true
}

func describe(a model.Appointment) string {
	methods := model.ContactMethodStrings(a.ContactMethods)
	return fmt.Sprintf("Teléfono: %s\nContacto: %s", a.Phone, strings.Join(methods, ", "))
}
