package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/md-rashed-zaman/dentanova/libs/httpx"
	"golang.org/x/crypto/bcrypt"
)

const (
	msgMissingFields    = "Por favor, complete todos los campos obligatorios."
	msgTermsNotAccepted = "Debes aceptar los términos y condiciones"
	msgPasswordMismatch = "Las contraseñas no coinciden"
	msgInvalidEmail     = "Por favor, introduzca un correo electrónico válido."
)

// AuthHandler backs the login and sign-up pages. Nothing is persisted and no
// credential is checked; each submission is validated, delayed like a real
// round trip and logged without the password.
type AuthHandler struct {
	logger   *slog.Logger
	latency  time.Duration
	validate *validator.Validate
}

func NewAuthHandler(logger *slog.Logger, latency time.Duration) *AuthHandler {
	return &AuthHandler{logger: logger, latency: latency, validate: newValidator()}
}

func (h *AuthHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/auth/login", h.Login)
	mux.HandleFunc("POST /api/v1/auth/register", h.SignUp)
	mux.HandleFunc("POST /api/v1/auth/register/step", h.SignUpStep)
}

type loginRequest struct {
	Email      string `json:"email" validate:"required,email"`
	Password   string `json:"password" validate:"required"`
	RememberMe bool   `json:"remember_me"`
}

// AccountDetails is step one of the sign-up wizard.
type AccountDetails struct {
	FirstName       string `json:"first_name" validate:"required"`
	LastName        string `json:"last_name" validate:"required"`
	Email           string `json:"email" validate:"required,email"`
	Password        string `json:"password" validate:"required"`
	ConfirmPassword string `json:"confirm_password" validate:"required"`
}

// ClinicDetails is step two of the sign-up wizard.
type ClinicDetails struct {
	ClinicName    string `json:"clinic_name" validate:"required"`
	ClinicAddress string `json:"clinic_address" validate:"required"`
}

type registerRequest struct {
	AccountDetails
	ClinicDetails
	AcceptTerms bool `json:"accept_terms"`
}

type stepRequest struct {
	Step int `json:"step"`
	registerRequest
}

type stepResponse struct {
	Valid   bool     `json:"valid"`
	Missing []string `json:"missing"`
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	req.Email = strings.TrimSpace(req.Email)

	if missing, invalidEmail := h.check(req); len(missing) > 0 {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "missing_required_fields", msgMissingFields, missing...)
		return
	} else if invalidEmail {
		httpx.WriteError(w, http.StatusUnprocessableEntity, "invalid_email", msgInvalidEmail, "email")
		return
	}

	if err := h.simulateRoundTrip(r.Context()); err != nil {
		return
	}
	h.logger.Info("login attempt",
		"email", req.Email,
		"remember_me", req.RememberMe,
		"password_digest", h.redact(req.Password),
	)
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *AuthHandler) SignUp(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	req.trim()

	missing, invalidEmail := h.check(req)
	switch {
	case len(missing) > 0:
		httpx.WriteError(w, http.StatusUnprocessableEntity, "missing_required_fields", msgMissingFields, missing...)
		return
	case !req.AcceptTerms:
		httpx.WriteError(w, http.StatusUnprocessableEntity, "terms_not_accepted", msgTermsNotAccepted, "accept_terms")
		return
	case req.Password != req.ConfirmPassword:
		httpx.WriteError(w, http.StatusUnprocessableEntity, "password_mismatch", msgPasswordMismatch, "confirm_password")
		return
	case invalidEmail:
		httpx.WriteError(w, http.StatusUnprocessableEntity, "invalid_email", msgInvalidEmail, "email")
		return
	}

	if err := h.simulateRoundTrip(r.Context()); err != nil {
		return
	}
	h.logger.Info("registration submitted",
		"email", req.Email,
		"first_name", req.FirstName,
		"last_name", req.LastName,
		"clinic_name", req.ClinicName,
		"password_digest", h.redact(req.Password),
	)
	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{"status": "accepted"})
}

// SignUpStep reports whether the wizard may leave the given step.
func (h *AuthHandler) SignUpStep(w http.ResponseWriter, r *http.Request) {
	var req stepRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.WriteError(w, http.StatusBadRequest, "invalid_json", "invalid json body")
		return
	}
	req.trim()

	switch req.Step {
	case 1:
		missing, _ := h.check(req.AccountDetails)
		httpx.WriteJSON(w, http.StatusOK, stepResponse{Valid: len(missing) == 0, Missing: nonNil(missing)})
	case 2:
		missing, _ := h.check(req.ClinicDetails)
		httpx.WriteJSON(w, http.StatusOK, stepResponse{Valid: len(missing) == 0, Missing: nonNil(missing)})
	default:
		httpx.WriteError(w, http.StatusUnprocessableEntity, "invalid_step", "step must be 1 or 2", "step")
	}
}

// check returns the required fields left empty and whether the email is
// malformed. Format problems only matter once every field is present.
func (h *AuthHandler) check(v any) (missing []string, invalidEmail bool) {
	err := h.validate.Struct(v)
	if err == nil {
		return nil, false
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{"body"}, false
	}
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required":
			missing = append(missing, fe.Field())
		case "email":
			invalidEmail = true
		}
	}
	return missing, invalidEmail
}

func (h *AuthHandler) simulateRoundTrip(ctx context.Context) error {
	if h.latency <= 0 {
		return nil
	}
	t := time.NewTimer(h.latency)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (h *AuthHandler) redact(password string) string {
	digest, err := hashPassword(password)
	if err != nil {
		h.logger.Warn("password digest failed", "err", err)
		return "redacted"
	}
	return digest
}

func (r *registerRequest) trim() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.TrimSpace(r.Email)
	r.ClinicName = strings.TrimSpace(r.ClinicName)
	r.ClinicAddress = strings.TrimSpace(r.ClinicAddress)
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func hashPassword(raw string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(raw), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hash), nil
}
