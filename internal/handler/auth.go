// Package handler contains the HTTP request handlers for the CarKeeper API.
//
// Handlers are the glue between HTTP and the service layer: parse the
// request, call a service method, write the response. No business logic
// lives here.
package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/sakif/carkeeper/internal/apperror"
	"github.com/sakif/carkeeper/internal/service"
)

// AuthHandler serves registration and login.
type AuthHandler struct {
	auth   *service.AuthService
	logger *slog.Logger
}

func NewAuthHandler(auth *service.AuthService, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{auth: auth, logger: logger}
}

// credentials is the request body for both /register and /login.
type credentials struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleRegister creates a new account.
//
// HTTP: POST /register
// BODY: {"username": "...", "password": "..."}
//
// Responds 201 with the user object. Registration does NOT issue a token —
// the client returns to the login view and authenticates normally.
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	user, err := h.auth.Register(r.Context(), creds.Username, creds.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"user":    user,
		"message": "Registration successful",
	})
}

// HandleLogin verifies credentials and issues a token.
//
// HTTP: POST /login
// BODY: {"username": "...", "password": "..."}
//
// Responds 200 with {"user": {...}, "token": "..."}; the client sends the
// token as "Authorization: Bearer <token>" on all subsequent calls.
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, apperror.ValidationFailed("body", "invalid JSON body"))
		return
	}

	result, err := h.auth.Login(r.Context(), creds.Username, creds.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}
