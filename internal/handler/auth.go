package handler

import (
	"mime"
	"net/http"

	"github.com/msomdec/contacts-api/internal/service"
)

// AuthHandler handles registration, login, email confirmation and password
// reset requests.
type AuthHandler struct {
	accounts *service.AccountService
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(accounts *service.AccountService) *AuthHandler {
	return &AuthHandler{accounts: accounts}
}

// HandleRegister creates an unconfirmed account.
// POST /api/auth/register
// Request:  {"username":"...","email":"...","password":"..."}
// Response: 201 {user}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	account, err := h.accounts.Register(r.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, "register account", err)
		return
	}
	writeJSON(w, http.StatusCreated, toUserDTO(account))
}

// HandleLogin exchanges credentials for a bearer token. Accepts a JSON body
// or an OAuth2-style form with username and password fields.
// POST /api/auth/login
// Response: {"access_token":"...","token_type":"bearer"}
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	switch mediaType {
	case "application/x-www-form-urlencoded", "multipart/form-data":
		r.Body = http.MaxBytesReader(w, r.Body, maxJSONBody)
		req.Username = r.FormValue("username")
		req.Password = r.FormValue("password")
	default:
		if err := readJSON(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body.")
			return
		}
	}

	_, token, err := h.accounts.Authenticate(r.Context(), req.Username, req.Password)
	if err != nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeServiceError(w, r, "login", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"access_token": token,
		"token_type":   "bearer",
	})
}

// HandleConfirm confirms the email carried by an emailed token.
// GET /api/auth/confirm/{token}
func (h *AuthHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	already, err := h.accounts.ConfirmWithToken(r.Context(), r.PathValue("token"))
	if err != nil {
		writeServiceError(w, r, "confirm email", err)
		return
	}
	if already {
		writeMessage(w, "Your email is already confirmed.")
		return
	}
	writeMessage(w, "Your email has been confirmed.")
}

// HandleRequestConfirmation re-sends the confirmation email.
// POST /api/auth/request-confirmation
// Request: {"email":"..."}
func (h *AuthHandler) HandleRequestConfirmation(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := h.accounts.RequestConfirmation(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, "request confirmation", err)
		return
	}
	writeMessage(w, "Check your email for a confirmation link.")
}

// HandleRequestPasswordReset emails a reset link if the account exists.
// POST /api/auth/request-password-reset
// Request: {"email":"..."}
func (h *AuthHandler) HandleRequestPasswordReset(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := h.accounts.RequestPasswordReset(r.Context(), req.Email); err != nil {
		writeServiceError(w, r, "request password reset", err)
		return
	}
	writeMessage(w, "If the email exists, a reset link has been sent.")
}

// HandleResetPassword sets a new password using an emailed token.
// POST /api/auth/reset-password
// Request: {"token":"...","new_password":"..."}
func (h *AuthHandler) HandleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	if err := h.accounts.ResetPassword(r.Context(), req.Token, req.NewPassword); err != nil {
		writeServiceError(w, r, "reset password", err)
		return
	}
	writeMessage(w, "Password reset successful.")
}
