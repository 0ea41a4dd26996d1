package handler

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/msomdec/contacts-api/internal/metrics"
	"github.com/msomdec/contacts-api/internal/service"
)

// RegisterRoutes sets up all HTTP routes on the given mux. db may be nil,
// which turns the health check into a liveness probe only.
func RegisterRoutes(mux *http.ServeMux, accounts *service.AccountService, contacts *service.ContactService, db Pinger, reg *prometheus.Registry) {
	authH := NewAuthHandler(accounts)
	userH := NewUserHandler(accounts)
	contactH := NewContactHandler(contacts)

	protected := func(h http.HandlerFunc) http.Handler {
		return RequireAuth(accounts, h)
	}

	mux.HandleFunc("GET /healthz", HandleHealthz(db))
	if reg != nil {
		mux.Handle("GET /metrics", metrics.Handler(reg))
	}

	mux.HandleFunc("POST /api/auth/register", authH.HandleRegister)
	mux.HandleFunc("POST /api/auth/login", authH.HandleLogin)
	mux.HandleFunc("GET /api/auth/confirm/{token}", authH.HandleConfirm)
	mux.HandleFunc("POST /api/auth/request-confirmation", authH.HandleRequestConfirmation)
	mux.HandleFunc("POST /api/auth/request-password-reset", authH.HandleRequestPasswordReset)
	mux.HandleFunc("POST /api/auth/reset-password", authH.HandleResetPassword)

	mux.Handle("GET /api/users/me", protected(userH.HandleMe))
	mux.Handle("PATCH /api/users/avatar", protected(userH.HandleUpdateAvatar))
	mux.HandleFunc("GET /api/avatars/{key}", userH.HandleAvatar)

	mux.Handle("GET /api/contacts", protected(contactH.HandleList))
	mux.Handle("POST /api/contacts", protected(contactH.HandleCreate))
	mux.Handle("GET /api/contacts/search", protected(contactH.HandleSearch))
	mux.Handle("GET /api/contacts/birthdays", protected(contactH.HandleBirthdays))
	mux.Handle("GET /api/contacts/{id}", protected(contactH.HandleGet))
	mux.Handle("PATCH /api/contacts/{id}", protected(contactH.HandleUpdate))
	mux.Handle("DELETE /api/contacts/{id}", protected(contactH.HandleDelete))
}
