package handler

import (
	"net/http"
	"strconv"

	"github.com/msomdec/contacts-api/internal/domain"
	"github.com/msomdec/contacts-api/internal/service"
)

// ContactHandler serves the caller's address book.
type ContactHandler struct {
	contacts *service.ContactService
}

// NewContactHandler creates a new ContactHandler.
func NewContactHandler(contacts *service.ContactService) *ContactHandler {
	return &ContactHandler{contacts: contacts}
}

type contactRequest struct {
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	PhoneNumber    string  `json:"phone_number"`
	Birthday       *date   `json:"birthday"`
	AdditionalInfo *string `json:"additional_info"`
}

type contactPatchRequest struct {
	FirstName      *string          `json:"first_name"`
	LastName       *string          `json:"last_name"`
	Email          *string          `json:"email"`
	PhoneNumber    *string          `json:"phone_number"`
	Birthday       optional[date]   `json:"birthday"`
	AdditionalInfo optional[string] `json:"additional_info"`
}

func (p contactPatchRequest) toPatch() service.ContactPatch {
	patch := service.ContactPatch{
		FirstName:   p.FirstName,
		LastName:    p.LastName,
		Email:       p.Email,
		PhoneNumber: p.PhoneNumber,
	}
	if p.Birthday.Set {
		if p.Birthday.Value == nil {
			patch.ClearBirthday = true
		} else {
			patch.Birthday = &p.Birthday.Value.Time
		}
	}
	if p.AdditionalInfo.Set {
		note := ""
		if p.AdditionalInfo.Value != nil {
			note = *p.AdditionalInfo.Value
		}
		patch.Note = &note
	}
	return patch
}

// HandleCreate adds a contact.
// POST /api/contacts
// Response: 201 {contact}
func (h *ContactHandler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	var req contactRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}
	in := service.ContactInput{
		FirstName:   req.FirstName,
		LastName:    req.LastName,
		Email:       req.Email,
		PhoneNumber: req.PhoneNumber,
		Note:        req.AdditionalInfo,
	}
	if req.Birthday != nil {
		in.Birthday = &req.Birthday.Time
	}

	c, err := h.contacts.Create(r.Context(), user.ID, in)
	if err != nil {
		writeServiceError(w, r, "create contact", err)
		return
	}
	writeJSON(w, http.StatusCreated, toContactDTO(c))
}

// HandleList returns a filtered window of contacts.
// GET /api/contacts?skip=&limit=&first_name=&last_name=&email=
func (h *ContactHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	skip, limit, ok := pageParams(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	page, err := h.contacts.List(r.Context(), user.ID, service.ListParams{
		Skip:  skip,
		Limit: limit,
		Filter: domain.ContactFilter{
			FirstName: q.Get("first_name"),
			LastName:  q.Get("last_name"),
			Email:     q.Get("email"),
		},
	})
	if err != nil {
		writeServiceError(w, r, "list contacts", err)
		return
	}
	writeJSON(w, http.StatusOK, toContactPageDTO(page))
}

// HandleGet returns one contact.
// GET /api/contacts/{id}
func (h *ContactHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	id, ok := contactID(w, r)
	if !ok {
		return
	}

	c, err := h.contacts.Get(r.Context(), user.ID, id)
	if err != nil {
		writeServiceError(w, r, "get contact", err)
		return
	}
	writeJSON(w, http.StatusOK, toContactDTO(c))
}

// HandleUpdate applies a partial update. Omitted fields are unchanged; a null
// birthday or additional_info clears it.
// PATCH /api/contacts/{id}
func (h *ContactHandler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	id, ok := contactID(w, r)
	if !ok {
		return
	}

	var req contactPatchRequest
	if err := readJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body.")
		return
	}

	c, err := h.contacts.Update(r.Context(), user.ID, id, req.toPatch())
	if err != nil {
		writeServiceError(w, r, "update contact", err)
		return
	}
	writeJSON(w, http.StatusOK, toContactDTO(c))
}

// HandleDelete removes a contact and returns it.
// DELETE /api/contacts/{id}
func (h *ContactHandler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())
	id, ok := contactID(w, r)
	if !ok {
		return
	}

	c, err := h.contacts.Delete(r.Context(), user.ID, id)
	if err != nil {
		writeServiceError(w, r, "delete contact", err)
		return
	}
	writeJSON(w, http.StatusOK, toContactDTO(c))
}

// HandleSearch matches first name, last name or email.
// GET /api/contacts/search?q=
func (h *ContactHandler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	contacts, err := h.contacts.Search(r.Context(), user.ID, r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, r, "search contacts", err)
		return
	}
	writeJSON(w, http.StatusOK, toContactDTOs(contacts))
}

// HandleBirthdays lists contacts with a birthday in the next days days.
// GET /api/contacts/birthdays?days=7&skip=&limit=
func (h *ContactHandler) HandleBirthdays(w http.ResponseWriter, r *http.Request) {
	user := UserFromContext(r.Context())

	days := 7
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, "days must be an integer.")
			return
		}
		days = n
	}
	skip, limit, ok := pageParams(w, r)
	if !ok {
		return
	}

	page, err := h.contacts.UpcomingBirthdays(r.Context(), user.ID, days, skip, limit)
	if err != nil {
		writeServiceError(w, r, "upcoming birthdays", err)
		return
	}
	writeJSON(w, http.StatusOK, toContactPageDTO(page))
}

func contactID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid contact id.")
		return 0, false
	}
	return id, true
}

// pageParams reads skip and limit; a missing limit selects the default.
func pageParams(w http.ResponseWriter, r *http.Request) (skip, limit int, ok bool) {
	q := r.URL.Query()
	for _, p := range []struct {
		name string
		dst  *int
	}{{"skip", &skip}, {"limit", &limit}} {
		v := q.Get(p.name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			writeError(w, http.StatusUnprocessableEntity, p.name+" must be an integer.")
			return 0, 0, false
		}
		*p.dst = n
	}
	return skip, limit, true
}
