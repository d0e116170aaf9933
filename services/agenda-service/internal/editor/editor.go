// Package editor implements the appointment modal behind the agenda calendar:
// picking a day or an existing booking loads the form, saving validates it
// and upserts the agenda, cancelling throws the edits away.
package editor

import (
	"context"
	"errors"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/model"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/storage"
)

var (
	ErrNotFound             = errors.New("appointment not found")
	ErrModalClosed          = errors.New("appointment modal is not open")
	ErrInvalidRange         = errors.New("selected range has no valid start date")
	ErrUnknownContactMethod = errors.New("unknown contact method")
)

// Store is the agenda the editor writes to.
type Store interface {
	Get(ctx context.Context, id string) (model.Appointment, error)
	Insert(ctx context.Context, appt model.Appointment) error
	Replace(ctx context.Context, appt model.Appointment) error
}

type Mode string

const (
	ModeClosed Mode = "closed"
	ModeCreate Mode = "create"
	ModeEdit   Mode = "edit"
)

// Form mirrors the modal inputs.
type Form struct {
	FirstName      string
	LastName       string
	Phone          string
	Date           string
	Time           string
	ContactMethods []model.ContactMethod
}

// FormPatch updates only the non-nil fields.
type FormPatch struct {
	FirstName      *string
	LastName       *string
	Phone          *string
	Date           *string
	Time           *string
	ContactMethods *[]string
}

// DateRange is a calendar selection. Only the day of Start is used.
type DateRange struct {
	Start string
	End   string
}

type State struct {
	Open       bool
	Mode       Mode
	SelectedID string
	Form       Form
}

// Result describes a successful save.
type Result struct {
	Appointment model.Appointment
	Created     bool
}

// Editor holds one user's modal state. It is not safe for concurrent use;
// Upsert alone touches no modal state and may be shared.
type Editor struct {
	store Store
	now   func() time.Time
	newID func() string

	mode       Mode
	selectedID string
	form       Form
}

type Option func(*Editor)

func WithClock(now func() time.Time) Option {
	return func(e *Editor) { e.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Editor) { e.newID = newID }
}

func New(store Store, opts ...Option) *Editor {
	e := &Editor{
		store: store,
		now:   time.Now,
		newID: uuid.NewString,
		mode:  ModeClosed,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SelectDate opens a blank modal for the first day of the selection.
func (e *Editor) SelectDate(r DateRange) error {
	day, ok := datePart(r.Start)
	if !ok {
		return ErrInvalidRange
	}
	e.reset()
	e.form.Date = day
	e.mode = ModeCreate
	return nil
}

// SelectExistingAppointment loads a stored appointment into the modal.
func (e *Editor) SelectExistingAppointment(ctx context.Context, id string) error {
	appt, err := e.store.Get(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return ErrNotFound
		}
		return err
	}
	e.reset()
	e.selectedID = appt.ID
	e.form = Form{
		FirstName:      appt.FirstName,
		LastName:       appt.LastName,
		Phone:          appt.Phone,
		Date:           appt.DateString(),
		Time:           appt.Time,
		ContactMethods: slices.Clone(appt.ContactMethods),
	}
	e.mode = ModeEdit
	return nil
}

func (e *Editor) UpdateForm(p FormPatch) error {
	if e.mode == ModeClosed {
		return ErrModalClosed
	}
	next := e.form
	if p.ContactMethods != nil {
		methods := make([]model.ContactMethod, 0, len(*p.ContactMethods))
		for _, raw := range *p.ContactMethods {
			m, ok := model.ParseContactMethod(raw)
			if !ok {
				return ErrUnknownContactMethod
			}
			if !slices.Contains(methods, m) {
				methods = append(methods, m)
			}
		}
		next.ContactMethods = methods
	}
	setIf(&next.FirstName, p.FirstName)
	setIf(&next.LastName, p.LastName)
	setIf(&next.Phone, p.Phone)
	setIf(&next.Date, p.Date)
	setIf(&next.Time, p.Time)
	e.form = next
	return nil
}

// ToggleContactMethod adds the method when absent and removes it otherwise.
func (e *Editor) ToggleContactMethod(raw string) error {
	if e.mode == ModeClosed {
		return ErrModalClosed
	}
	m, ok := model.ParseContactMethod(raw)
	if !ok {
		return ErrUnknownContactMethod
	}
	if i := slices.Index(e.form.ContactMethods, m); i >= 0 {
		e.form.ContactMethods = slices.Delete(slices.Clone(e.form.ContactMethods), i, i+1)
		return nil
	}
	e.form.ContactMethods = append(slices.Clone(e.form.ContactMethods), m)
	return nil
}

// Save validates the open form and upserts it. On a *ValidationError the
// modal stays open with the form as typed.
func (e *Editor) Save(ctx context.Context) (Result, error) {
	if e.mode == ModeClosed {
		return Result{}, ErrModalClosed
	}
	res, err := e.Upsert(ctx, e.selectedID, e.form)
	if err != nil {
		return Result{}, err
	}
	e.reset()
	return res, nil
}

// Cancel discards the form and closes the modal.
func (e *Editor) Cancel() {
	e.reset()
}

func (e *Editor) State() State {
	f := e.form
	f.ContactMethods = slices.Clone(f.ContactMethods)
	return State{
		Open:       e.mode != ModeClosed,
		Mode:       e.mode,
		SelectedID: e.selectedID,
		Form:       f,
	}
}

// Upsert validates form and inserts it (empty id) or replaces the
// appointment with the given id.
func (e *Editor) Upsert(ctx context.Context, id string, form Form) (Result, error) {
	clean, verr := validateForm(form)
	if verr != nil {
		return Result{}, verr
	}
	day, _ := time.Parse(model.DateLayout, clean.Date)
	now := e.now().UTC()

	appt := model.Appointment{
		FirstName:      clean.FirstName,
		LastName:       clean.LastName,
		Phone:          clean.Phone,
		Date:           day,
		Time:           clean.Time,
		ContactMethods: clean.ContactMethods,
		UpdatedAt:      now,
	}

	if id == "" {
		appt.ID = e.newID()
		appt.CreatedAt = now
		if err := e.store.Insert(ctx, appt); err != nil {
			return Result{}, err
		}
		return Result{Appointment: appt, Created: true}, nil
	}

	existing, err := e.store.Get(ctx, id)
	if err != nil {
		if storage.IsNotFound(err) {
			return Result{}, ErrNotFound
		}
		return Result{}, err
	}
	appt.ID = existing.ID
	appt.CreatedAt = existing.CreatedAt
	if err := e.store.Replace(ctx, appt); err != nil {
		if storage.IsNotFound(err) {
			return Result{}, ErrNotFound
		}
		return Result{}, err
	}
	return Result{Appointment: appt}, nil
}

func (e *Editor) reset() {
	e.mode = ModeClosed
	e.selectedID = ""
	e.form = Form{}
}

// datePart accepts "2024-05-01" as well as timed starts such as
// "2024-05-01T09:00:00-06:00" coming from week and day views.
func datePart(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if len(raw) < len(model.DateLayout) {
		return "", false
	}
	day := raw[:len(model.DateLayout)]
	if _, err := time.Parse(model.DateLayout, day); err != nil {
		return "", false
	}
	return day, true
}

func setIf(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}
