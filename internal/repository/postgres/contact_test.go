package postgres

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/msomdec/contacts-api/internal/domain"
)

var contactRowColumns = []string{"id", "owner_id", "first_name", "last_name", "email", "phone_number", "birthday", "note", "created_at", "updated_at"}

func contactRow(rows *sqlmock.Rows, id int64, first, email string, birthday any) *sqlmock.Rows {
	now := time.Now()
	return rows.AddRow(id, int64(1), first, "Smith", email, "555", birthday, nil, now, now)
}

func TestContactCreate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContactRepository(db)
	now := time.Now()
	bday := time.Date(1990, time.March, 4, 0, 0, 0, 0, time.UTC)
	note := "friend"

	mock.ExpectQuery(`(?s)^INSERT\s+INTO\s+contacts.*RETURNING\s+id,\s*created_at,\s*updated_at$`).
		WithArgs(int64(1), "Ann", "Smith", "ann@example.com", "555", "1990-03-04", "friend").
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at", "updated_at"}).AddRow(int64(10), now, now))

	c := &domain.Contact{OwnerID: 1, FirstName: "Ann", LastName: "Smith", Email: "ann@example.com",
		PhoneNumber: "555", Birthday: &bday, Note: &note}
	require.NoError(t, repo.Create(context.Background(), c))
	assert.Equal(t, int64(10), c.ID)
}

func TestContactCreate_Duplicate(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContactRepository(db)

	mock.ExpectQuery(`INSERT\s+INTO\s+contacts`).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "contacts_email_key"})

	err := repo.Create(context.Background(), &domain.Contact{OwnerID: 1, Email: "ann@example.com"})
	assert.ErrorIs(t, err, domain.ErrDuplicateContactEmail)
}

func TestContactList_BuildsFilteredQuery(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContactRepository(db)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM contacts WHERE owner_id = \$1 AND first_name ILIKE \$2 ESCAPE '\\' AND email ILIKE \$3 ESCAPE '\\'$`).
		WithArgs(int64(1), "%ann%", "%example%").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(`ORDER BY id LIMIT \$4 OFFSET \$5$`).
		WithArgs(int64(1), "%ann%", "%example%", 2, 3).
		WillReturnRows(contactRow(sqlmock.NewRows(contactRowColumns), 4, "Ann", "ann@example.com", nil))

	got, total, err := repo.List(context.Background(), 1,
		domain.ContactFilter{FirstName: "ann", Email: "example"}, 3, 2)
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, got, 1)
	assert.Nil(t, got[0].Birthday)
}

func TestContactSearch(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContactRepository(db)

	mock.ExpectQuery(`first_name ILIKE \$2 ESCAPE '\\' OR last_name ILIKE \$2 ESCAPE '\\' OR email ILIKE \$2`).
		WithArgs(int64(1), `%a\_b%`).
		WillReturnRows(sqlmock.NewRows(contactRowColumns))

	got, err := repo.Search(context.Background(), 1, "a_b")
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestContactUpdate_Transaction(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContactRepository(db)
	bday := time.Date(1990, time.March, 4, 0, 0, 0, 0, time.UTC)

	mock.ExpectBegin()
	mock.ExpectQuery(`WHERE id = \$1 AND owner_id = \$2 FOR UPDATE`).
		WithArgs(int64(4), int64(1)).
		WillReturnRows(contactRow(sqlmock.NewRows(contactRowColumns), 4, "Ann", "ann@example.com", bday))
	mock.ExpectQuery(`(?s)UPDATE\s+contacts\s+SET.*RETURNING\s+updated_at`).
		WithArgs("Anne", "Smith", "ann@example.com", "555", nil, nil, int64(4), int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"updated_at"}).AddRow(time.Now()))
	mock.ExpectCommit()

	got, err := repo.Update(context.Background(), 1, 4, func(c *domain.Contact) error {
		require.NotNil(t, c.Birthday)
		c.FirstName = "Anne"
		c.Birthday = nil
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "Anne", got.FirstName)
}

func TestContactUpdate_ConflictRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContactRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).
		WillReturnRows(contactRow(sqlmock.NewRows(contactRowColumns), 4, "Ann", "ann@example.com", nil))
	mock.ExpectQuery(`UPDATE\s+contacts`).
		WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation, ConstraintName: "contacts_email_key"})
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), 1, 4, func(c *domain.Contact) error {
		c.Email = "taken@example.com"
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrDuplicateContactEmail)
}

func TestContactUpdate_NotOwnedRollsBack(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContactRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(sqlmock.NewRows(contactRowColumns))
	mock.ExpectRollback()

	_, err := repo.Update(context.Background(), 2, 4, func(*domain.Contact) error {
		t.Fatal("apply must not run for a contact owned by someone else")
		return nil
	})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestContactDelete(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContactRepository(db)

	mock.ExpectQuery(`DELETE FROM contacts WHERE id = \$1 AND owner_id = \$2 RETURNING`).
		WithArgs(int64(4), int64(1)).
		WillReturnRows(contactRow(sqlmock.NewRows(contactRowColumns), 4, "Ann", "ann@example.com", nil))
	mock.ExpectQuery(`DELETE FROM contacts`).
		WithArgs(int64(4), int64(1)).
		WillReturnRows(sqlmock.NewRows(contactRowColumns))

	got, err := repo.Delete(context.Background(), 1, 4)
	require.NoError(t, err)
	assert.Equal(t, "Ann", got.FirstName)

	_, err = repo.Delete(context.Background(), 1, 4)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestContactUpcomingBirthdays_Wrapped(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContactRepository(db)
	w := domain.NewBirthdayWindow(time.Date(2024, time.December, 28, 0, 0, 0, 0, time.UTC), 7)

	mock.ExpectQuery(`birthday IS NOT NULL AND \(.* >= \$2 OR .* <= \$3\)$`).
		WithArgs(int64(1), 1228, 104).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery(`ORDER BY CASE WHEN .* >= 1228 THEN 0 ELSE 1 END`).
		WithArgs(int64(1), 1228, 104, 100, 0).
		WillReturnRows(contactRow(sqlmock.NewRows(contactRowColumns), 9, "Jan", "jan@example.com",
			time.Date(1985, time.January, 2, 0, 0, 0, 0, time.UTC)))

	got, total, err := repo.UpcomingBirthdays(context.Background(), 1, w, 0, 100)
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	require.Len(t, got, 1)
	assert.Equal(t, time.January, got[0].Birthday.Month())
}

func TestContactUpcomingBirthdays_AllYear(t *testing.T) {
	db, mock := newMock(t)
	repo := NewContactRepository(db)
	w := domain.NewBirthdayWindow(time.Now(), 365)

	mock.ExpectQuery(`WHERE owner_id = \$1 AND birthday IS NOT NULL$`).
		WithArgs(int64(1)).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(`LIMIT \$2 OFFSET \$3$`).
		WithArgs(int64(1), 100, 0).
		WillReturnRows(sqlmock.NewRows(contactRowColumns))

	got, total, err := repo.UpcomingBirthdays(context.Background(), 1, w, 0, 100)
	require.NoError(t, err)
	assert.Zero(t, total)
	assert.Empty(t, got)
}
