package storage

import (
	"context"
	"errors"
	"sync"

	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/model"
)

var (
	ErrNotFound  = errors.New("appointment not found")
	ErrDuplicate = errors.New("appointment id already exists")
)

// AppointmentRepository is the in-memory agenda. Entries keep insertion
// order and live until the process exits.
type AppointmentRepository struct {
	mu    sync.RWMutex
	order []string
	byID  map[string]model.Appointment
}

func NewAppointmentRepository() *AppointmentRepository {
	return &AppointmentRepository{byID: map[string]model.Appointment{}}
}

func (r *AppointmentRepository) Get(_ context.Context, id string) (model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	appt, ok := r.byID[id]
	if !ok {
		return model.Appointment{}, ErrNotFound
	}
	return appt.Clone(), nil
}

func (r *AppointmentRepository) List(_ context.Context) ([]model.Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]model.Appointment, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.byID[id].Clone())
	}
	return out, nil
}

func (r *AppointmentRepository) Insert(_ context.Context, appt model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[appt.ID]; exists {
		return ErrDuplicate
	}
	r.byID[appt.ID] = appt.Clone()
	r.order = append(r.order, appt.ID)
	return nil
}

// Replace overwrites the entry with the same id, keeping its position.
func (r *AppointmentRepository) Replace(_ context.Context, appt model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byID[appt.ID]; !exists {
		return ErrNotFound
	}
	r.byID[appt.ID] = appt.Clone()
	return nil
}

func (r *AppointmentRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
