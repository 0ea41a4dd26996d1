package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/msomdec/contacts-api/internal/domain"
)

// Listing bounds.
const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

// ContactInput carries the fields of a new contact.
type ContactInput struct {
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Birthday    *time.Time
	Note        *string
}

// ContactPatch carries a partial update. Nil fields are left unchanged.
// ClearBirthday removes the birth date; an empty Note removes the note.
type ContactPatch struct {
	FirstName     *string
	LastName      *string
	Email         *string
	PhoneNumber   *string
	Birthday      *time.Time
	ClearBirthday bool
	Note          *string
}

// ListParams selects a window of an owner's contacts.
type ListParams struct {
	Skip   int
	Limit  int
	Filter domain.ContactFilter
}

// ContactService manages each account's address book.
type ContactService struct {
	contacts domain.ContactRepository
	now      func() time.Time
}

// NewContactService creates a new ContactService. A nil now uses time.Now.
func NewContactService(contacts domain.ContactRepository, now func() time.Time) *ContactService {
	if now == nil {
		now = time.Now
	}
	return &ContactService{contacts: contacts, now: now}
}

// Create adds a contact to the owner's address book.
func (s *ContactService) Create(ctx context.Context, ownerID int64, in ContactInput) (*domain.Contact, error) {
	c := &domain.Contact{
		OwnerID:     ownerID,
		FirstName:   strings.TrimSpace(in.FirstName),
		LastName:    strings.TrimSpace(in.LastName),
		Email:       strings.TrimSpace(in.Email),
		PhoneNumber: strings.TrimSpace(in.PhoneNumber),
		Birthday:    dateOnly(in.Birthday),
		Note:        normalizeNote(in.Note),
	}
	if err := validateContact(c, s.now()); err != nil {
		return nil, err
	}

	if err := s.contacts.Create(ctx, c); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("create contact: %w", err)
	}
	return c, nil
}

// List returns the owner's contacts matching the filter, windowed by skip
// and limit.
func (s *ContactService) List(ctx context.Context, ownerID int64, p ListParams) (*domain.Page, error) {
	limit, err := pageLimit(p.Skip, p.Limit)
	if err != nil {
		return nil, err
	}
	f := domain.ContactFilter{
		FirstName: strings.TrimSpace(p.Filter.FirstName),
		LastName:  strings.TrimSpace(p.Filter.LastName),
		Email:     strings.TrimSpace(p.Filter.Email),
	}

	contacts, total, err := s.contacts.List(ctx, ownerID, f, p.Skip, limit)
	if err != nil {
		return nil, fmt.Errorf("list contacts: %w", err)
	}
	return &domain.Page{TotalCount: total, Skip: p.Skip, Limit: limit, Contacts: contacts}, nil
}

// Get returns one of the owner's contacts.
func (s *ContactService) Get(ctx context.Context, ownerID, id int64) (*domain.Contact, error) {
	return s.contacts.GetByID(ctx, ownerID, id)
}

// Update applies a partial update to one of the owner's contacts.
func (s *ContactService) Update(ctx context.Context, ownerID, id int64, patch ContactPatch) (*domain.Contact, error) {
	now := s.now()
	c, err := s.contacts.Update(ctx, ownerID, id, func(c *domain.Contact) error {
		applyPatch(c, patch)
		return validateContact(c, now)
	})
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) || errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrInvalidInput) {
			return nil, err
		}
		return nil, fmt.Errorf("update contact: %w", err)
	}
	return c, nil
}

// Delete removes one of the owner's contacts and returns it.
func (s *ContactService) Delete(ctx context.Context, ownerID, id int64) (*domain.Contact, error) {
	return s.contacts.Delete(ctx, ownerID, id)
}

// Search returns the owner's contacts whose first name, last name or email
// contains query, ignoring case.
func (s *ContactService) Search(ctx context.Context, ownerID int64, query string) ([]domain.Contact, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("%w: search query is required", domain.ErrInvalidInput)
	}
	contacts, err := s.contacts.Search(ctx, ownerID, query)
	if err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	return contacts, nil
}

// UpcomingBirthdays returns the owner's contacts whose birthday falls within
// the next days days, today included.
func (s *ContactService) UpcomingBirthdays(ctx context.Context, ownerID int64, days, skip, limit int) (*domain.Page, error) {
	if days < 0 || days > domain.MaxBirthdayWindowDays {
		return nil, fmt.Errorf("%w: days must be between 0 and %d", domain.ErrInvalidInput, domain.MaxBirthdayWindowDays)
	}
	limit, err := pageLimit(skip, limit)
	if err != nil {
		return nil, err
	}

	now := s.now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	window := domain.NewBirthdayWindow(today, days)

	contacts, total, err := s.contacts.UpcomingBirthdays(ctx, ownerID, window, skip, limit)
	if err != nil {
		return nil, fmt.Errorf("upcoming birthdays: %w", err)
	}
	return &domain.Page{TotalCount: total, Skip: skip, Limit: limit, Contacts: contacts}, nil
}

func pageLimit(skip, limit int) (int, error) {
	if skip < 0 {
		return 0, fmt.Errorf("%w: skip must not be negative", domain.ErrInvalidInput)
	}
	if limit == 0 {
		return DefaultPageLimit, nil
	}
	if limit < 0 || limit > MaxPageLimit {
		return 0, fmt.Errorf("%w: limit must be between 1 and %d", domain.ErrInvalidInput, MaxPageLimit)
	}
	return limit, nil
}

func applyPatch(c *domain.Contact, p ContactPatch) {
	if p.FirstName != nil {
		c.FirstName = strings.TrimSpace(*p.FirstName)
	}
	if p.LastName != nil {
		c.LastName = strings.TrimSpace(*p.LastName)
	}
	if p.Email != nil {
		c.Email = strings.TrimSpace(*p.Email)
	}
	if p.PhoneNumber != nil {
		c.PhoneNumber = strings.TrimSpace(*p.PhoneNumber)
	}
	if p.ClearBirthday {
		c.Birthday = nil
	} else if p.Birthday != nil {
		c.Birthday = dateOnly(p.Birthday)
	}
	if p.Note != nil {
		c.Note = normalizeNote(p.Note)
	}
}

func validateContact(c *domain.Contact, now time.Time) error {
	for _, f := range []struct {
		name, value string
		max         int
	}{
		{"first name", c.FirstName, 50},
		{"last name", c.LastName, 50},
		{"phone number", c.PhoneNumber, 20},
	} {
		if f.value == "" {
			return fmt.Errorf("%w: %s is required", domain.ErrInvalidInput, f.name)
		}
		if utf8.RuneCountInString(f.value) > f.max {
			return fmt.Errorf("%w: %s must be %d characters or fewer", domain.ErrInvalidInput, f.name, f.max)
		}
	}
	if err := validateEmail(c.Email); err != nil {
		return err
	}
	if c.Birthday != nil && c.Birthday.After(now) {
		return fmt.Errorf("%w: birthday must not be in the future", domain.ErrInvalidInput)
	}
	if c.Note != nil && utf8.RuneCountInString(*c.Note) > 500 {
		return fmt.Errorf("%w: note must be 500 characters or fewer", domain.ErrInvalidInput)
	}
	return nil
}

func dateOnly(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	d := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	return &d
}

func normalizeNote(note *string) *string {
	if note == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*note)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
