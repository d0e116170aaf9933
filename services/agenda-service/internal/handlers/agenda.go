package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/md-rashed-zaman/dentanova/libs/httpx"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/calendar"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/editor"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/model"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/sessions"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/slots"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/storage"
)

// ChangeNotifier is told about every stored save.
type ChangeNotifier interface {
	AppointmentSaved(ctx context.Context, appt model.Appointment, created bool)
}

type AgendaHandler struct {
	repo     *storage.AppointmentRepository
	sessions *sessions.Registry
	upserter *editor.Editor
	notifier ChangeNotifier
	logger   *slog.Logger
	now      func() time.Time
}

func NewAgendaHandler(repo *storage.AppointmentRepository, registry *sessions.Registry, upserter *editor.Editor, notifier ChangeNotifier, logger *slog.Logger) *AgendaHandler {
	return &AgendaHandler{
		repo:     repo,
		sessions: registry,
		upserter: upserter,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (h *AgendaHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/agenda/slots", h.Slots)
	mux.HandleFunc("GET /api/v1/agenda/events", h.Events)
	mux.HandleFunc("GET /api/v1/agenda/calendar.ics", h.ICS)
	mux.HandleFunc("GET /api/v1/appointments/{id}", h.Get)
	mux.HandleFunc("POST /api/v1/appointments", h.Save)

	mux.HandleFunc("POST /api/v1/agenda/editor", h.OpenEditor)
	mux.HandleFunc("GET /api/v1/agenda/editor/{session}", h.EditorState)
	mux.HandleFunc("DELETE /api/v1/agenda/editor/{session}", h.CloseEditor)
	mux.HandleFunc("POST /api/v1/agenda/editor/{session}/select-date", h.SelectDate)
	mux.HandleFunc("POST /api/v1/agenda/editor/{session}/select-appointment", h.SelectAppointment)
	mux.HandleFunc("PATCH /api/v1/agenda/editor/{session}/form", h.UpdateForm)
	mux.HandleFunc("POST /api/v1/agenda/editor/{session}/contact-methods/{method}", h.ToggleContactMethod)
	mux.HandleFunc("POST /api/v1/agenda/editor/{session}/save", h.SaveEditor)
	mux.HandleFunc("POST /api/v1/agenda/editor/{session}/cancel", h.CancelEditor)
}

type formBody struct {
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	Phone          string   `json:"phone"`
	Date           string   `json:"date"`
	Time           string   `json:"time"`
	ContactMethods []string `json:"contactMethods"`
}

type saveRequest struct {
	ID string `json:"id"`
	formBody
}

type formPatchRequest struct {
	FirstName      *string   `json:"firstName"`
	LastName       *string   `json:"lastName"`
	Phone          *string   `json:"phone"`
	Date           *string   `json:"date"`
	Time           *string   `json:"time"`
	ContactMethods *[]string `json:"contactMethods"`
}

type selectDateRequest struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

type selectAppointmentRequest struct {
	ID string `json:"id"`
}

type appointmentResponse struct {
	ID             string   `json:"id"`
	Title          string   `json:"title"`
	FirstName      string   `json:"firstName"`
	LastName       string   `json:"lastName"`
	Phone          string   `json:"phone"`
	Date           string   `json:"date"`
	Time           string   `json:"time"`
	ContactMethods []string `json:"contactMethods"`
	CreatedAt      string   `json:"createdAt"`
	UpdatedAt      string   `json:"updatedAt"`
}

type editorStateResponse struct {
	SessionID  string   `json:"session_id"`
	Open       bool     `json:"open"`
	Mode       string   `json:"mode"`
	SelectedID string   `json:"selectedId,omitempty"`
	Form       formBody `json:"form"`
}

type saveEditorResponse struct {
	editorStateResponse
	Appointment appointmentResponse `json:"appointment"`
	Created     bool                `json:"created"`
}

func (h *AgendaHandler) Slots(w http.ResponseWriter, _ *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"slots":            slots.All(),
		"duration_minutes": int(slots.Duration / time.Minute),
	})
}

func (h *AgendaHandler) Events(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		h.internalError(w, "list appointments failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, calendar.Events(list))
}

func (h *AgendaHandler) ICS(w http.ResponseWriter, r *http.Request) {
	list, err := h.repo.List(r.Context())
	if err != nil {
		h.internalError(w, "list appointments failed", err)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `inline; filename="dentanova.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(calendar.ICS(list, h.now())))
}

func (h *AgendaHandler) Get(w http.ResponseWriter, r *http.Request) {
	appt, err := h.repo.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		if storage.IsNotFound(err) {
			httpx.WriteError(w, http.StatusNotFound, "not_found", "appointment not found")
			return
		}
		h.internalError(w, "get appointment failed", err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toAppointmentResponse(appt))
}

// Save is the stateless upsert: no id inserts, a known id replaces.
func (h *AgendaHandler) Save(w http.ResponseWriter, r *http.Request) {
	var req saveRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	res, err := h.upserter.Upsert(r.Context(), strings.TrimSpace(req.ID), req.formBody.toForm())
	if err != nil {
		h.writeEditorError(w, err)
		return
	}
	h.saved(r.Context(), res)

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	httpx.WriteJSON(w, status, toAppointmentResponse(res.Appointment))
}

func (h *AgendaHandler) OpenEditor(w http.ResponseWriter, _ *http.Request) {
	id := h.sessions.Open()
	httpx.WriteJSON(w, http.StatusCreated, map[string]string{"session_id": id})
}

func (h *AgendaHandler) EditorState(w http.ResponseWriter, r *http.Request) {
	h.withEditor(w, r, func(*editor.Editor) error { return nil })
}

func (h *AgendaHandler) CloseEditor(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.PathValue("session")); err != nil {
		h.writeEditorError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AgendaHandler) SelectDate(w http.ResponseWriter, r *http.Request) {
	var req selectDateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	h.withEditor(w, r, func(e *editor.Editor) error {
		return e.SelectDate(editor.DateRange{Start: req.Start, End: req.End})
	})
}

func (h *AgendaHandler) SelectAppointment(w http.ResponseWriter, r *http.Request) {
	var req selectAppointmentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	h.withEditor(w, r, func(e *editor.Editor) error {
		return e.SelectExistingAppointment(r.Context(), strings.TrimSpace(req.ID))
	})
}

func (h *AgendaHandler) UpdateForm(w http.ResponseWriter, r *http.Request) {
	var req formPatchRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	h.withEditor(w, r, func(e *editor.Editor) error {
		return e.UpdateForm(editor.FormPatch{
			FirstName:      req.FirstName,
			LastName:       req.LastName,
			Phone:          req.Phone,
			Date:           req.Date,
			Time:           req.Time,
			ContactMethods: req.ContactMethods,
		})
	})
}

func (h *AgendaHandler) ToggleContactMethod(w http.ResponseWriter, r *http.Request) {
	method := r.PathValue("method")
	h.withEditor(w, r, func(e *editor.Editor) error {
		return e.ToggleContactMethod(method)
	})
}

func (h *AgendaHandler) CancelEditor(w http.ResponseWriter, r *http.Request) {
	h.withEditor(w, r, func(e *editor.Editor) error {
		e.Cancel()
		return nil
	})
}

func (h *AgendaHandler) SaveEditor(w http.ResponseWriter, r *http.Request) {
	sessionID := r.PathValue("session")
	var (
		res   editor.Result
		state editor.State
	)
	err := h.sessions.With(sessionID, func(e *editor.Editor) error {
		var err error
		res, err = e.Save(r.Context())
		if err != nil {
			return err
		}
		state = e.State()
		return nil
	})
	if err != nil {
		h.writeEditorError(w, err)
		return
	}
	h.saved(r.Context(), res)

	status := http.StatusOK
	if res.Created {
		status = http.StatusCreated
	}
	httpx.WriteJSON(w, status, saveEditorResponse{
		editorStateResponse: toStateResponse(sessionID, state),
		Appointment:         toAppointmentResponse(res.Appointment),
		Created:             res.Created,
	})
}

// withEditor runs fn on the session's editor and answers with its state.
func (h *AgendaHandler) withEditor(w http.ResponseWriter, r *http.Request, fn func(*editor.Editor) error) {
	sessionID := r.PathValue("session")
	var state editor.State
	err := h.sessions.With(sessionID, func(e *editor.Editor) error {
		if err := fn(e); err != nil {
			return err
		}
		state = e.State()
		return nil
	})
	if err != nil {
		h.writeEditorError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, toStateResponse(sessionID, state))
}

func (h *AgendaHandler) saved(ctx context.Context, res editor.Result) {
	h.logger.Info("appointment saved", "appointment_id", res.Appointment.ID, "created", res.Created, "date", res.Appointment.DateString(), "time", res.Appointment.Time)
	if h.notifier != nil {
		h.notifier.AppointmentSaved(ctx, res.Appointment, res.Created)
	}
}

func (h *AgendaHandler) writeEditorError(w http.ResponseWriter, err error) {
	var verr *editor.ValidationError
	switch {
	case errors.As(err, &verr):
		httpx.WriteError(w, http.StatusUnprocessableEntity, string(verr.Code), verr.Message, verr.Fields...)
	case errors.Is(err, sessions.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "session_not_found", "editor session not found")
	case errors.Is(err, editor.ErrNotFound):
		httpx.WriteError(w, http.StatusNotFound, "not_found", "appointment not found")
	case errors.Is(err, editor.ErrModalClosed):
		httpx.WriteError(w, http.StatusConflict, "modal_closed", "appointment modal is not open")
	case errors.Is(err, editor.ErrInvalidRange):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "invalid_range", "selected range has no valid start date")
	case errors.Is(err, editor.ErrUnknownContactMethod):
		httpx.WriteError(w, http.StatusUnprocessableEntity, "unknown_contact_method", "unknown contact method")
	default:
		h.internalError(w, "agenda request failed", err)
	}
}

func (h *AgendaHandler) internalError(w http.ResponseWriter, msg string, err error) {
	h.logger.Error(msg, "err", err)
	httpx.WriteError(w, http.StatusInternalServerError, "internal", "internal error")
}

// toForm keeps unrecognised contact methods so validation reports them in
// order, after any missing field.
func (b formBody) toForm() editor.Form {
	methods := make([]model.ContactMethod, 0, len(b.ContactMethods))
	for _, raw := range b.ContactMethods {
		m, ok := model.ParseContactMethod(raw)
		if !ok {
			m = model.ContactMethod(strings.TrimSpace(raw))
		}
		methods = append(methods, m)
	}
	return editor.Form{
		FirstName:      b.FirstName,
		LastName:       b.LastName,
		Phone:          b.Phone,
		Date:           b.Date,
		Time:           b.Time,
		ContactMethods: methods,
	}
}

func toStateResponse(sessionID string, st editor.State) editorStateResponse {
	return editorStateResponse{
		SessionID:  sessionID,
		Open:       st.Open,
		Mode:       string(st.Mode),
		SelectedID: st.SelectedID,
		Form: formBody{
			FirstName:      st.Form.FirstName,
			LastName:       st.Form.LastName,
			Phone:          st.Form.Phone,
			Date:           st.Form.Date,
			Time:           st.Form.Time,
			ContactMethods: model.ContactMethodStrings(st.Form.ContactMethods),
		},
	}
}

func toAppointmentResponse(a model.Appointment) appointmentResponse {
	return appointmentResponse{
		ID:             a.ID,
		Title:          a.Title(),
		FirstName:      a.FirstName,
		LastName:       a.LastName,
		Phone:          a.Phone,
		Date:           a.DateString(),
		Time:           a.Time,
		ContactMethods: model.ContactMethodStrings(a.ContactMethods),
		CreatedAt:      a.CreatedAt.Format(time.RFC3339),
		UpdatedAt:      a.UpdatedAt.Format(time.RFC3339),
	}
}
