package domain

import (
	"context"
	"time"
)

// Contact is an address book entry owned by exactly one account.
type Contact struct {
	ID          int64
	OwnerID     int64
	FirstName   string
	LastName    string
	Email       string
	PhoneNumber string
	Birthday    *time.Time // date only, UTC midnight
	Note        *string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ContactFilter narrows a contact listing. Non-empty fields are matched as
// case-insensitive substrings and combined with AND.
type ContactFilter struct {
	FirstName string
	LastName  string
	Email     string
}

// Page is one window of a filtered listing. TotalCount is the number of
// matching contacts regardless of Skip and Limit.
type Page struct {
	TotalCount int
	Skip       int
	Limit      int
	Contacts   []Contact
}

// ContactRepository defines persistence operations for contacts. Every
// operation is scoped to an owner; a contact owned by someone else is
// reported as ErrNotFound. Writes return ErrDuplicateContactEmail when the
// email is already taken.
type ContactRepository interface {
	Create(ctx context.Context, contact *Contact) error
	GetByID(ctx context.Context, ownerID, id int64) (*Contact, error)
	List(ctx context.Context, ownerID int64, filter ContactFilter, skip, limit int) ([]Contact, int, error)
	Search(ctx context.Context, ownerID int64, query string) ([]Contact, error)
	// Update loads the owned contact, passes it to apply and persists the
	// result in one transaction. An error from apply aborts the update.
	Update(ctx context.Context, ownerID, id int64, apply func(*Contact) error) (*Contact, error)
	// Delete removes the owned contact and returns it as it was.
	Delete(ctx context.Context, ownerID, id int64) (*Contact, error)
	UpcomingBirthdays(ctx context.Context, ownerID int64, window BirthdayWindow, skip, limit int) ([]Contact, int, error)
}
