package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/msomdec/contacts-api/internal/dbx"
	"github.com/msomdec/contacts-api/internal/domain"
)

const (
	contactColumns = `id, owner_id, first_name, last_name, email, phone_number, birthday, note, created_at, updated_at`
	birthdayLayout = "2006-01-02"
	// birthdayKey is the MMDD integer of a stored birth date.
	birthdayKey = `CAST(strftime('%m%d', birthday) AS INTEGER)`
)

// ContactRepository implements domain.ContactRepository using SQLite.
type ContactRepository struct {
	db *sql.DB
}

// NewContactRepository creates a new SQLite-backed ContactRepository.
func NewContactRepository(db *DB) *ContactRepository {
	return &ContactRepository{db: db.SqlDB}
}

func (r *ContactRepository) Create(ctx context.Context, c *domain.Contact) error {
	now := time.Now().UTC()
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO contacts (owner_id, first_name, last_name, email, phone_number, birthday, note, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.OwnerID, c.FirstName, c.LastName, c.Email, c.PhoneNumber,
		formatBirthday(c.Birthday), c.Note, now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return domain.ErrDuplicateContactEmail
		}
		return fmt.Errorf("insert contact: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	c.ID = id
	c.CreatedAt = now
	c.UpdatedAt = now
	return nil
}

func (r *ContactRepository) GetByID(ctx context.Context, ownerID, id int64) (*domain.Contact, error) {
	return getContact(ctx, r.db, ownerID, id)
}

func (r *ContactRepository) List(ctx context.Context, ownerID int64, filter domain.ContactFilter, skip, limit int) ([]domain.Contact, int, error) {
	where := []string{"owner_id = ?"}
	args := []any{ownerID}
	for _, f := range []struct{ column, value string }{
		{"first_name", filter.FirstName},
		{"last_name", filter.LastName},
		{"email", filter.Email},
	} {
		if f.value == "" {
			continue
		}
		where = append(where, likeFold(f.column))
		args = append(args, dbx.LikePattern(f.value))
	}
	return r.page(ctx, strings.Join(where, " AND "), args, "id", skip, limit)
}

func (r *ContactRepository) Search(ctx context.Context, ownerID int64, query string) ([]domain.Contact, error) {
	pattern := dbx.LikePattern(query)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts
		 WHERE owner_id = ?
		   AND (`+likeFold("first_name")+` OR `+likeFold("last_name")+` OR `+likeFold("email")+`)
		 ORDER BY id`,
		ownerID, pattern, pattern, pattern,
	)
	if err != nil {
		return nil, fmt.Errorf("search contacts: %w", err)
	}
	return scanContacts(rows)
}

func (r *ContactRepository) Update(ctx context.Context, ownerID, id int64, apply func(*domain.Contact) error) (*domain.Contact, error) {
	var updated *domain.Contact
	err := dbx.WithTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		c, err := getContact(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if err := apply(c); err != nil {
			return err
		}

		c.UpdatedAt = time.Now().UTC()
		_, err = tx.ExecContext(ctx,
			`UPDATE contacts SET first_name = ?, last_name = ?, email = ?, phone_number = ?,
			        birthday = ?, note = ?, updated_at = ?
			 WHERE id = ? AND owner_id = ?`,
			c.FirstName, c.LastName, c.Email, c.PhoneNumber,
			formatBirthday(c.Birthday), c.Note, c.UpdatedAt, id, ownerID,
		)
		if err != nil {
			if isUniqueConstraintError(err) {
				return domain.ErrDuplicateContactEmail
			}
			return fmt.Errorf("update contact: %w", err)
		}
		updated = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *ContactRepository) Delete(ctx context.Context, ownerID, id int64) (*domain.Contact, error) {
	var deleted *domain.Contact
	err := dbx.WithTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		c, err := getContact(ctx, tx, ownerID, id)
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			"DELETE FROM contacts WHERE id = ? AND owner_id = ?", id, ownerID); err != nil {
			return fmt.Errorf("delete contact: %w", err)
		}
		deleted = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return deleted, nil
}

func (r *ContactRepository) UpcomingBirthdays(ctx context.Context, ownerID int64, w domain.BirthdayWindow, skip, limit int) ([]domain.Contact, int, error) {
	where := "owner_id = ? AND birthday IS NOT NULL"
	args := []any{ownerID}
	switch {
	case w.All:
	case w.Wraps():
		where += " AND (" + birthdayKey + " >= ? OR " + birthdayKey + " <= ?)"
		args = append(args, w.StartKey(), w.EndKey())
	default:
		where += " AND " + birthdayKey + " BETWEEN ? AND ?"
		args = append(args, w.StartKey(), w.EndKey())
	}
	// Soonest first: days after the window start sort ahead of the wrapped tail.
	orderBy := fmt.Sprintf("CASE WHEN %s >= %d THEN 0 ELSE 1 END, %s, id", birthdayKey, w.StartKey(), birthdayKey)
	return r.page(ctx, where, args, orderBy, skip, limit)
}

// page returns one window of the contacts matching where, plus the total
// count of matches.
func (r *ContactRepository) page(ctx context.Context, where string, args []any, orderBy string, skip, limit int) ([]domain.Contact, int, error) {
	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contacts WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count contacts: %w", err)
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE `+where+
			` ORDER BY `+orderBy+` LIMIT ? OFFSET ?`,
		append(args, limit, skip)...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("list contacts: %w", err)
	}
	contacts, err := scanContacts(rows)
	if err != nil {
		return nil, 0, err
	}
	return contacts, total, nil
}

func getContact(ctx context.Context, db dbx.DBTX, ownerID, id int64) (*domain.Contact, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = ? AND owner_id = ?`, id, ownerID)
	c, err := scanContact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query contact: %w", err)
	}
	return c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContact(s scanner) (*domain.Contact, error) {
	c := &domain.Contact{}
	var birthday, note sql.NullString
	err := s.Scan(&c.ID, &c.OwnerID, &c.FirstName, &c.LastName, &c.Email, &c.PhoneNumber,
		&birthday, &note, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if birthday.Valid {
		t, err := time.Parse(birthdayLayout, birthday.String)
		if err != nil {
			return nil, fmt.Errorf("parse birthday %q: %w", birthday.String, err)
		}
		c.Birthday = &t
	}
	if note.Valid {
		c.Note = &note.String
	}
	return c, nil
}

func scanContacts(rows *sql.Rows) ([]domain.Contact, error) {
	defer rows.Close()

	contacts := []domain.Contact{}
	for rows.Next() {
		c, err := scanContact(rows)
		if err != nil {
			return nil, fmt.Errorf("scan contact: %w", err)
		}
		contacts = append(contacts, *c)
	}
	return contacts, rows.Err()
}

func formatBirthday(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(birthdayLayout)
}
