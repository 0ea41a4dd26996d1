package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/msomdec/contacts-api/internal/domain"
)

const accountColumns = `id, username, email, password_hash, avatar, role, confirmed, created_at, updated_at`

// AccountRepository implements domain.AccountRepository using SQLite.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new SQLite-backed AccountRepository.
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db.SqlDB}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	now := time.Now().UTC()
	if account.Role == "" {
		account.Role = domain.RoleUser
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (username, email, password_hash, avatar, role, confirmed, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		account.Username, account.Email, account.PasswordHash, account.Avatar,
		string(account.Role), account.Confirmed, now, now,
	)
	if err != nil {
		if isUniqueConstraintError(err) {
			return accountConflict(err)
		}
		return fmt.Errorf("insert account: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}

	account.ID = id
	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*domain.Account, error) {
	return r.getOne(ctx, "id", id)
}

func (r *AccountRepository) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return r.getOne(ctx, "username", username)
}

func (r *AccountRepository) GetByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.getOne(ctx, "email", email)
}

func (r *AccountRepository) getOne(ctx context.Context, column string, value any) (*domain.Account, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE `+column+` = ?`, value)
	account, err := scanAccount(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query account by %s: %w", column, err)
	}
	return account, nil
}

func (r *AccountRepository) MarkConfirmed(ctx context.Context, email string) error {
	return r.update(ctx, "mark confirmed",
		`UPDATE accounts SET confirmed = 1, updated_at = ? WHERE email = ?`,
		time.Now().UTC(), email)
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.update(ctx, "update password",
		`UPDATE accounts SET password_hash = ?, updated_at = ? WHERE id = ?`,
		passwordHash, time.Now().UTC(), id)
}

func (r *AccountRepository) UpdateAvatar(ctx context.Context, id int64, avatar string) error {
	return r.update(ctx, "update avatar",
		`UPDATE accounts SET avatar = ?, updated_at = ? WHERE id = ?`,
		avatar, time.Now().UTC(), id)
}

func (r *AccountRepository) update(ctx context.Context, op, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func scanAccount(row *sql.Row) (*domain.Account, error) {
	a := &domain.Account{}
	var avatar sql.NullString
	var role string
	err := row.Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &avatar, &role,
		&a.Confirmed, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if avatar.Valid {
		a.Avatar = &avatar.String
	}
	a.Role = domain.Role(role)
	return a, nil
}
