package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/msomdec/contacts-api/internal/domain"
	"github.com/msomdec/contacts-api/internal/service"
)

// UserHandler serves the caller's profile and avatars.
type UserHandler struct {
	accounts *service.AccountService
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(accounts *service.AccountService) *UserHandler {
	return &UserHandler{accounts: accounts}
}

// HandleMe returns the authenticated user.
// GET /api/users/me
func (h *UserHandler) HandleMe(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated.")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// HandleUpdateAvatar replaces the caller's avatar with an uploaded image.
// Administrators only.
// PATCH /api/users/avatar (multipart, field "file")
func (h *UserHandler) HandleUpdateAvatar(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	if err := service.RequireRole(user, domain.RoleAdmin); err != nil {
		writeServiceError(w, r, "update avatar", err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, service.MaxAvatarSize+(1<<20))
	if err := r.ParseMultipartForm(service.MaxAvatarSize); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "File too large.")
			return
		}
		writeError(w, http.StatusBadRequest, "Invalid multipart form.")
		return
	}

	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided.")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, service.MaxAvatarSize+1))
	if err != nil {
		writeServiceError(w, r, "read avatar upload", err)
		return
	}

	// Sniff the type from the bytes; the multipart header is client-supplied.
	contentType := http.DetectContentType(data)

	account, err := h.accounts.UpdateAvatar(r.Context(), user, contentType, data)
	if err != nil {
		writeServiceError(w, r, "update avatar", err)
		return
	}
	writeJSON(w, http.StatusOK, toUserDTO(account))
}

// HandleAvatar serves a stored avatar image.
// GET /api/avatars/{key}
func (h *UserHandler) HandleAvatar(w http.ResponseWriter, r *http.Request) {
	key := r.PathValue("key")
	if key == "" || strings.Contains(key, "/") {
		writeError(w, http.StatusNotFound, "Not found.")
		return
	}

	data, err := h.accounts.Avatar(r.Context(), key)
	if err != nil {
		writeServiceError(w, r, "get avatar", err)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(data))
	w.Header().Set("Cache-Control", "public, max-age=86400")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}
