package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"

	"github.com/msomdec/contacts-api/internal/domain"
)

// UserDTO is the JSON representation of an account.
type UserDTO struct {
	ID        int64   `json:"id"`
	Username  string  `json:"username"`
	Email     string  `json:"email"`
	Avatar    *string `json:"avatar"`
	Role      string  `json:"role"`
	Confirmed bool    `json:"confirmed"`
	CreatedAt string  `json:"created_at"`
}

func toUserDTO(a *domain.Account) UserDTO {
	return UserDTO{
		ID:        a.ID,
		Username:  a.Username,
		Email:     a.Email,
		Avatar:    a.Avatar,
		Role:      string(a.Role),
		Confirmed: a.Confirmed,
		CreatedAt: a.CreatedAt.Format(time.RFC3339),
	}
}

// ContactDTO is the JSON representation of a contact.
type ContactDTO struct {
	ID             int64   `json:"id"`
	FirstName      string  `json:"first_name"`
	LastName       string  `json:"last_name"`
	Email          string  `json:"email"`
	PhoneNumber    string  `json:"phone_number"`
	Birthday       *string `json:"birthday"`
	AdditionalInfo *string `json:"additional_info"`
}

func toContactDTO(c *domain.Contact) ContactDTO {
	dto := ContactDTO{
		ID:             c.ID,
		FirstName:      c.FirstName,
		LastName:       c.LastName,
		Email:          c.Email,
		PhoneNumber:    c.PhoneNumber,
		AdditionalInfo: c.Note,
	}
	if c.Birthday != nil {
		d := c.Birthday.Format(time.DateOnly)
		dto.Birthday = &d
	}
	return dto
}

func toContactDTOs(contacts []domain.Contact) []ContactDTO {
	dtos := make([]ContactDTO, len(contacts))
	for i := range contacts {
		dtos[i] = toContactDTO(&contacts[i])
	}
	return dtos
}

// ContactPageDTO is one window of a contact listing.
type ContactPageDTO struct {
	TotalCount int          `json:"total_count"`
	Skip       int          `json:"skip"`
	Limit      int          `json:"limit"`
	Contacts   []ContactDTO `json:"contacts"`
}

func toContactPageDTO(p *domain.Page) ContactPageDTO {
	return ContactPageDTO{
		TotalCount: p.TotalCount,
		Skip:       p.Skip,
		Limit:      p.Limit,
		Contacts:   toContactDTOs(p.Contacts),
	}
}

// date is a calendar date in YYYY-MM-DD form.
type date struct{ time.Time }

func (d *date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		return fmt.Errorf("birthday must be a YYYY-MM-DD date: %w", err)
	}
	d.Time = t
	return nil
}

// optional records whether a JSON field was present, so that an explicit
// null can be told apart from an omitted field.
type optional[T any] struct {
	Set   bool
	Value *T
}

func (o *optional[T]) UnmarshalJSON(b []byte) error {
	o.Set = true
	if bytes.Equal(b, []byte("null")) {
		o.Value = nil
		return nil
	}
	var v T
	if err := json.Unmarshal(b, &v); err != nil {
		return err
	}
	o.Value = &v
	return nil
}
