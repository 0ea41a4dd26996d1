package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/msomdec/contacts-api/internal/dbx"
	"github.com/msomdec/contacts-api/internal/domain"
)

const (
	contactColumns = `id, owner_id, first_name, last_name, email, phone_number, birthday, note, created_at, updated_at`
	// birthdayKey is the MMDD integer of a stored birth date.
	birthdayKey = `(EXTRACT(MONTH FROM birthday)::int * 100 + EXTRACT(DAY FROM birthday)::int)`
)

// ContactRepository implements domain.ContactRepository using PostgreSQL.
type ContactRepository struct {
	db *sql.DB
}

func NewContactRepository(db *sql.DB) *ContactRepository {
	return &ContactRepository{db: db}
}

func (r *ContactRepository) Create(ctx context.Context, c *domain.Contact) error {
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO contacts (owner_id, first_name, last_name, email, phone_number, birthday, note)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at, updated_at`,
		c.OwnerID, c.FirstName, c.LastName, c.Email, c.PhoneNumber,
		nullDate(c.Birthday), nullString(c.Note),
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return domain.ErrDuplicateContactEmail
		}
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}

func (r *ContactRepository) GetByID(ctx context.Context, ownerID, id int64) (*domain.Contact, error) {
	return getContact(ctx, r.db, ownerID, id)
}

func (r *ContactRepository) List(ctx context.Context, ownerID int64, filter domain.ContactFilter, skip, limit int) ([]domain.Contact, int, error) {
	q := newQuery(ownerID)
	q.like("first_name", filter.FirstName)
	q.like("last_name", filter.LastName)
	q.like("email", filter.Email)
	return r.page(ctx, q, "id", skip, limit)
}

func (r *ContactRepository) Search(ctx context.Context, ownerID int64, query string) ([]domain.Contact, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts
		 WHERE owner_id = $1
		   AND (first_name ILIKE $2 ESCAPE '\' OR last_name ILIKE $2 ESCAPE '\' OR email ILIKE $2 ESCAPE '\')
		 ORDER BY id`,
		ownerID, dbx.LikePattern(query),
	)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return scanContacts(rows)
}

func (r *ContactRepository) Update(ctx context.Context, ownerID, id int64, apply func(*domain.Contact) error) (*domain.Contact, error) {
	var updated *domain.Contact
	err := dbx.WithTx(ctx, r.db, func(ctx context.Context, tx dbx.DBTX) error {
		c, err := getContact(ctx, tx, ownerID, id, "FOR UPDATE")
		if err != nil {
			return err
		}
		if err := apply(c); err != nil {
			return err
		}

		err = tx.QueryRowContext(ctx,
			`UPDATE contacts SET first_name = $1, last_name = $2, email = $3, phone_number = $4,
			        birthday = $5, note = $6, updated_at = now()
			 WHERE id = $7 AND owner_id = $8
			 RETURNING updated_at`,
			c.FirstName, c.LastName, c.Email, c.PhoneNumber,
			nullDate(c.Birthday), nullString(c.Note), id, ownerID,
		).Scan(&c.UpdatedAt)
		if err != nil {
			if _, ok := uniqueViolation(err); ok {
				return domain.ErrDuplicateContactEmail
			}
			return fmt.Errorf("db error: %w", err)
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
	row := r.db.QueryRowContext(ctx,
		`DELETE FROM contacts WHERE id = $1 AND owner_id = $2 RETURNING `+contactColumns, id, ownerID)
	c, err := scanContact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

func (r *ContactRepository) UpcomingBirthdays(ctx context.Context, ownerID int64, w domain.BirthdayWindow, skip, limit int) ([]domain.Contact, int, error) {
	q := newQuery(ownerID)
	q.where = append(q.where, "birthday IS NOT NULL")
	switch {
	case w.All:
	case w.Wraps():
		q.where = append(q.where, fmt.Sprintf("(%s >= %s OR %s <= %s)",
			birthdayKey, q.arg(w.StartKey()), birthdayKey, q.arg(w.EndKey())))
	default:
		q.where = append(q.where, fmt.Sprintf("%s BETWEEN %s AND %s",
			birthdayKey, q.arg(w.StartKey()), q.arg(w.EndKey())))
	}
	orderBy := fmt.Sprintf("CASE WHEN %s >= %d THEN 0 ELSE 1 END, %s, id", birthdayKey, w.StartKey(), birthdayKey)
	return r.page(ctx, q, orderBy, skip, limit)
}

// query accumulates WHERE clauses with numbered placeholders.
type query struct {
	where []string
	args  []any
}

func newQuery(ownerID int64) *query {
	q := &query{}
	q.where = append(q.where, "owner_id = "+q.arg(ownerID))
	return q
}

func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return "$" + strconv.Itoa(len(q.args))
}

func (q *query) like(column, value string) {
	if value == "" {
		return
	}
	q.where = append(q.where, column+" ILIKE "+q.arg(dbx.LikePattern(value))+` ESCAPE '\'`)
}

func (r *ContactRepository) page(ctx context.Context, q *query, orderBy string, skip, limit int) ([]domain.Contact, int, error) {
	where := strings.Join(q.where, " AND ")

	var total int
	if err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM contacts WHERE `+where, q.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}

	limitArg, skipArg := q.arg(limit), q.arg(skip)
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE `+where+
			` ORDER BY `+orderBy+` LIMIT `+limitArg+` OFFSET `+skipArg,
		q.args...,
	)
	if err != nil {
		return nil, 0, fmt.Errorf("db error: %w", err)
	}
	contacts, err := scanContacts(rows)
	if err != nil {
		return nil, 0, err
	}
	return contacts, total, nil
}

func getContact(ctx context.Context, db dbx.DBTX, ownerID, id int64, lock ...string) (*domain.Contact, error) {
	row := db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1 AND owner_id = $2 `+strings.Join(lock, " "),
		id, ownerID)
	c, err := scanContact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return c, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanContact(s scanner) (*domain.Contact, error) {
	c := &domain.Contact{}
	var birthday sql.NullTime
	var note sql.NullString
	if err := s.Scan(&c.ID, &c.OwnerID, &c.FirstName, &c.LastName, &c.Email, &c.PhoneNumber,
		&birthday, &note, &c.CreatedAt, &c.UpdatedAt); err != nil {
		return nil, err
	}
	if birthday.Valid {
		b := time.Date(birthday.Time.Year(), birthday.Time.Month(), birthday.Time.Day(), 0, 0, 0, 0, time.UTC)
		c.Birthday = &b
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
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return contacts, nil
}

func nullDate(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(time.DateOnly)
}
