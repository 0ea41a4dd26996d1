package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/msomdec/contacts-api/internal/dbx"
	"github.com/msomdec/contacts-api/internal/domain"
)

const accountColumns = `id, username, email, password_hash, avatar, role, confirmed, created_at, updated_at`

// AccountRepository implements domain.AccountRepository using PostgreSQL.
type AccountRepository struct {
	db dbx.DBTX
}

func NewAccountRepository(db dbx.DBTX) *AccountRepository {
	return &AccountRepository{db: db}
}

func (r *AccountRepository) Create(ctx context.Context, account *domain.Account) error {
	if account.Role == "" {
		account.Role = domain.RoleUser
	}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO accounts (username, email, password_hash, avatar, role, confirmed)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING id, created_at, updated_at`,
		account.Username, account.Email, account.PasswordHash, nullString(account.Avatar),
		string(account.Role), account.Confirmed,
	).Scan(&account.ID, &account.CreatedAt, &account.UpdatedAt)
	if err != nil {
		if constraint, ok := uniqueViolation(err); ok {
			return accountConflict(constraint)
		}
		return fmt.Errorf("db error: %w", err)
	}
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
	a := &domain.Account{}
	var avatar sql.NullString
	var role string
	err := r.db.QueryRowContext(ctx,
		`SELECT `+accountColumns+` FROM accounts WHERE `+column+` = $1`, value,
	).Scan(&a.ID, &a.Username, &a.Email, &a.PasswordHash, &avatar, &role,
		&a.Confirmed, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	if avatar.Valid {
		a.Avatar = &avatar.String
	}
	a.Role = domain.Role(role)
	return a, nil
}

func (r *AccountRepository) MarkConfirmed(ctx context.Context, email string) error {
	return r.exec(ctx, `UPDATE accounts SET confirmed = TRUE, updated_at = now() WHERE email = $1`, email)
}

func (r *AccountRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	return r.exec(ctx, `UPDATE accounts SET password_hash = $1, updated_at = now() WHERE id = $2`, passwordHash, id)
}

func (r *AccountRepository) UpdateAvatar(ctx context.Context, id int64, avatar string) error {
	return r.exec(ctx, `UPDATE accounts SET avatar = $1, updated_at = now() WHERE id = $2`, avatar, id)
}

func (r *AccountRepository) exec(ctx context.Context, query string, args ...any) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func nullString(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
