package handlers

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/editor"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/model"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/sessions"
	"github.com/md-rashed-zaman/dentanova/services/agenda-service/internal/storage"
)

type recordingNotifier struct {
	created []bool
}

func (n *recordingNotifier) AppointmentSaved(_ context.Context, _ model.Appointment, created bool) {
	n.created = append(n.created, created)
}

type testServer struct {
	mux      *http.ServeMux
	repo     *storage.AppointmentRepository
	notifier *recordingNotifier
}

func newTestServer() *testServer {
	repo := storage.NewAppointmentRepository()
	registry := sessions.NewRegistry(func() *editor.Editor { return editor.New(repo) })
	notifier := &recordingNotifier{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	h := NewAgendaHandler(repo, registry, editor.New(repo), notifier, logger)

	mux := http.NewServeMux()
	h.Register(mux)
	return &testServer{mux: mux, repo: repo, notifier: notifier}
}

func (s *testServer) do(t *testing.T, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(rec.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", rec.Body.String(), err)
	}
	return v
}

type errorResponse struct {
	Error struct {
		Code    string   `json:"code"`
		Message string   `json:"message"`
		Fields  []string `json:"fields"`
	} `json:"error"`
}

const anaLopez = `{"firstName":"Ana","lastName":"Lopez","phone":"5551234567","date":"2024-05-01","time":"09:00","contactMethods":["whatsapp"]}`

func TestEditorFlowCreatesAppointment(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPost, "/api/v1/agenda/editor", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("open editor: expected 201, got %d", rec.Code)
	}
	session := decode[map[string]string](t, rec)["session_id"]
	base := "/api/v1/agenda/editor/" + session

	rec = s.do(t, http.MethodPost, base+"/select-date", `{"start":"2024-05-01"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("select-date: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	state := decode[editorStateResponse](t, rec)
	if !state.Open || state.Mode != "create" || state.Form.Date != "2024-05-01" {
		t.Fatalf("unexpected state %+v", state)
	}

	rec = s.do(t, http.MethodPatch, base+"/form", `{"firstName":"Ana","lastName":"Lopez","phone":"5551234567","time":"09:00"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("patch form: expected 200, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, base+"/save", "")
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("save without contact: expected 422, got %d", rec.Code)
	}
	if got := decode[errorResponse](t, rec); got.Error.Code != "missing_contact_method" {
		t.Fatalf("unexpected error %+v", got)
	}
	if s.repo.Len() != 0 {
		t.Fatal("rejected save stored an appointment")
	}

	rec = s.do(t, http.MethodPost, base+"/contact-methods/whatsapp", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: expected 200, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, base+"/save", "")
	if rec.Code != http.StatusCreated {
		t.Fatalf("save: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	saved := decode[saveEditorResponse](t, rec)
	if saved.Appointment.Title != "Ana Lopez - 09:00" || saved.Appointment.Date != "2024-05-01" || saved.Open {
		t.Fatalf("unexpected save response %+v", saved)
	}
	if s.repo.Len() != 1 || len(s.notifier.created) != 1 || !s.notifier.created[0] {
		t.Fatalf("expected one stored and announced appointment")
	}

	rec = s.do(t, http.MethodGet, "/api/v1/agenda/events", "")
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"title":"Ana Lopez - 09:00"`) {
		t.Fatalf("events: %d %s", rec.Code, rec.Body.String())
	}
}

func TestStatelessSaveInsertThenReplace(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPost, "/api/v1/appointments", anaLopez)
	if rec.Code != http.StatusCreated {
		t.Fatalf("insert: expected 201, got %d %s", rec.Code, rec.Body.String())
	}
	created := decode[appointmentResponse](t, rec)

	body := `{"id":"` + created.ID + `","firstName":"Ana","lastName":"Lopez","phone":"5551234567","date":"2024-05-02","time":"14:00","contactMethods":["call"]}`
	rec = s.do(t, http.MethodPost, "/api/v1/appointments", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("replace: expected 200, got %d %s", rec.Code, rec.Body.String())
	}
	if s.repo.Len() != 1 {
		t.Fatalf("expected 1 appointment, got %d", s.repo.Len())
	}

	rec = s.do(t, http.MethodGet, "/api/v1/appointments/"+created.ID, "")
	got := decode[appointmentResponse](t, rec)
	if got.Title != "Ana Lopez - 14:00" || got.Date != "2024-05-02" || got.ContactMethods[0] != "call" {
		t.Fatalf("unexpected appointment %+v", got)
	}
	if got.CreatedAt != created.CreatedAt {
		t.Fatal("replace must keep the creation time")
	}
}

func TestStatelessSaveErrors(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodPost, "/api/v1/appointments", `{"firstName":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("bad json: expected 400, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/appointments", `{"firstName":"Ana","contactMethods":["call"]}`)
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("missing fields: expected 422, got %d", rec.Code)
	}
	errBody := decode[errorResponse](t, rec)
	if errBody.Error.Code != "missing_required_fields" || errBody.Error.Message != "Por favor, complete todos los campos obligatorios." {
		t.Fatalf("unexpected error %+v", errBody)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/appointments", `{"firstName":"Ana","contactMethods":["pigeon"]}`)
	if got := decode[errorResponse](t, rec); rec.Code != http.StatusUnprocessableEntity || got.Error.Code != "missing_required_fields" {
		t.Fatalf("unknown method with missing fields: %d %+v", rec.Code, got)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/appointments", `{"firstName":"Ana","lastName":"Lopez","phone":"1","date":"2024-05-01","time":"09:00","contactMethods":["pigeon"]}`)
	if got := decode[errorResponse](t, rec); rec.Code != http.StatusUnprocessableEntity || got.Error.Code != "unknown_contact_method" {
		t.Fatalf("unknown method: %d %+v", rec.Code, got)
	}

	rec = s.do(t, http.MethodPost, "/api/v1/appointments", `{"id":"missing","firstName":"Ana","lastName":"Lopez","phone":"1","date":"2024-05-01","time":"09:00","contactMethods":["call"]}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown id: expected 404, got %d", rec.Code)
	}
	if s.repo.Len() != 0 {
		t.Fatal("failed saves must not change the agenda")
	}
}

func TestEditorSessionErrors(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodGet, "/api/v1/agenda/editor/nope", "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("unknown session: expected 404, got %d", rec.Code)
	}

	session := decode[map[string]string](t, s.do(t, http.MethodPost, "/api/v1/agenda/editor", ""))["session_id"]
	base := "/api/v1/agenda/editor/" + session

	rec = s.do(t, http.MethodPost, base+"/save", "")
	if rec.Code != http.StatusConflict {
		t.Fatalf("save on closed modal: expected 409, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodPost, base+"/select-appointment", `{"id":"missing"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("select unknown appointment: expected 404, got %d", rec.Code)
	}

	rec = s.do(t, http.MethodDelete, base, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("close: expected 204, got %d", rec.Code)
	}
	rec = s.do(t, http.MethodGet, base, "")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("closed session: expected 404, got %d", rec.Code)
	}
}

func TestEditExistingThroughEditor(t *testing.T) {
	s := newTestServer()
	created := decode[appointmentResponse](t, s.do(t, http.MethodPost, "/api/v1/appointments", anaLopez))

	session := decode[map[string]string](t, s.do(t, http.MethodPost, "/api/v1/agenda/editor", ""))["session_id"]
	base := "/api/v1/agenda/editor/" + session

	rec := s.do(t, http.MethodPost, base+"/select-appointment", `{"id":"`+created.ID+`"}`)
	state := decode[editorStateResponse](t, rec)
	if state.Mode != "edit" || state.SelectedID != created.ID || state.Form.FirstName != "Ana" {
		t.Fatalf("unexpected state %+v", state)
	}

	s.do(t, http.MethodPatch, base+"/form", `{"phone":"5550000000"}`)
	rec = s.do(t, http.MethodPost, base+"/save", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("save edit: expected 200, got %d", rec.Code)
	}
	if s.repo.Len() != 1 {
		t.Fatalf("expected 1 appointment, got %d", s.repo.Len())
	}
	got, _ := s.repo.Get(context.Background(), created.ID)
	if got.Phone != "5550000000" {
		t.Fatalf("edit not applied: %+v", got)
	}

	s.do(t, http.MethodPost, base+"/select-appointment", `{"id":"`+created.ID+`"}`)
	s.do(t, http.MethodPatch, base+"/form", `{"phone":"1"}`)
	rec = s.do(t, http.MethodPost, base+"/cancel", "")
	if decode[editorStateResponse](t, rec).Open {
		t.Fatal("cancel must close the modal")
	}
	got, _ = s.repo.Get(context.Background(), created.ID)
	if got.Phone != "5550000000" {
		t.Fatal("cancel changed the agenda")
	}
}

func TestSlotsAndICS(t *testing.T) {
	s := newTestServer()

	rec := s.do(t, http.MethodGet, "/api/v1/agenda/slots", "")
	body := decode[struct {
		Slots []string `json:"slots"`
	}](t, rec)
	if len(body.Slots) != 19 || body.Slots[0] != "08:00" || body.Slots[18] != "18:00" {
		t.Fatalf("unexpected slots %v", body.Slots)
	}

	s.do(t, http.MethodPost, "/api/v1/appointments", anaLopez)
	rec = s.do(t, http.MethodGet, "/api/v1/agenda/calendar.ics", "")
	if rec.Code != http.StatusOK || !strings.HasPrefix(rec.Header().Get("Content-Type"), "text/calendar") {
		t.Fatalf("ics: %d %s", rec.Code, rec.Header().Get("Content-Type"))
	}
	if !strings.Contains(rec.Body.String(), "SUMMARY:Ana Lopez - 09:00") {
		t.Fatalf("ics missing event:\n%s", rec.Body.String())
	}
}
