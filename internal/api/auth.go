package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/andrapra-work/rag-system-api/internal/auth"
	"github.com/andrapra-work/rag-system-api/internal/log"
	"github.com/andrapra-work/rag-system-api/internal/store"
)

const minPasswordLength = 8

// authService is what the auth handler needs from the auth layer.
type authService interface {
	Login(ctx context.Context, email, password string) (*auth.Token, error)
	Register(ctx context.Context, email, password string, clientID uuid.UUID) (*store.User, error)
	ChangePassword(ctx context.Context, user *store.User, currentPassword, newPassword string) error
}

type authHandler struct {
	auth   authService
	logger log.Logger
}

// userResponse is the public view of a user. The password hash never
// leaves the service.
type userResponse struct {
	ID        uuid.UUID `json:"id"`
	Email     string    `json:"email"`
	ClientID  uuid.UUID `json:"client_id"`
	CreatedAt time.Time `json:"created_at"`
}

func newUserResponse(u *store.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, ClientID: u.ClientID, CreatedAt: u.CreatedAt}
}

// login exchanges form-encoded credentials for a bearer token.
// The form uses a username field that carries the email address.
func (h *authHandler) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_form", "invalid form data", h.logger)
		return
	}

	email := r.PostFormValue("username")
	if email == "" {
		email = r.PostFormValue("email")
	}
	password := r.PostFormValue("password")
	if email == "" || password == "" {
		writeError(w, http.StatusBadRequest, "missing_credentials", "username and password are required", h.logger)
		return
	}

	token, err := h.auth.Login(r.Context(), email, password)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, token, h.logger)
}

// registerRequest is the body for creating an account. client_id is
// optional; omitting it starts a new tenant.
type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	ClientID string `json:"client_id"`
}

func (h *authHandler) register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	if !strings.Contains(req.Email, "@") {
		writeError(w, http.StatusBadRequest, "invalid_email", "a valid email address is required", h.logger)
		return
	}
	if len(req.Password) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "weak_password", "password must be at least 8 characters", h.logger)
		return
	}

	clientID := uuid.Nil
	if req.ClientID != "" {
		parsed, err := uuid.Parse(req.ClientID)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid_client_id", "client_id must be a UUID", h.logger)
			return
		}
		clientID = parsed
	}

	user, err := h.auth.Register(r.Context(), req.Email, req.Password, clientID)
	if err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusCreated, newUserResponse(user), h.logger)
}

type changePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

func (h *authHandler) changePassword(w http.ResponseWriter, r *http.Request) {
	user, ok := userFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "invalid_credentials", "could not validate credentials", h.logger)
		return
	}

	var req changePasswordRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_body", "invalid request body", h.logger)
		return
	}
	if len(req.NewPassword) < minPasswordLength {
		writeError(w, http.StatusBadRequest, "weak_password", "password must be at least 8 characters", h.logger)
		return
	}

	if err := h.auth.ChangePassword(r.Context(), user, req.CurrentPassword, req.NewPassword); err != nil {
		writeServiceError(w, err, h.logger)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "password updated successfully"}, h.logger)
}
