package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/msomdec/contacts-api/internal/domain"
)

// MaxAvatarSize is the largest accepted avatar upload.
const MaxAvatarSize = 5 << 20

var allowedAvatarTypes = map[string]string{
	"image/jpeg": ".jpg",
	"image/png":  ".png",
}

// AccountConfig holds the tunables of AccountService.
type AccountConfig struct {
	SessionCacheTTL time.Duration
	// AvatarBaseURL prefixes stored avatar keys to form public avatar URLs.
	AvatarBaseURL string
}

// AccountService handles registration, confirmation, authentication,
// password reset and session resolution.
type AccountService struct {
	accounts domain.AccountRepository
	hasher   *PasswordHasher
	tokens   *TokenIssuer
	cache    domain.SessionCache
	mailer   domain.Mailer
	avatars  AvatarProvider
	files    domain.FileStore
	cfg      AccountConfig
	logger   *slog.Logger
}

// NewAccountService creates a new AccountService. avatars and files may be
// nil, which disables default avatars and avatar uploads respectively.
func NewAccountService(
	accounts domain.AccountRepository,
	hasher *PasswordHasher,
	tokens *TokenIssuer,
	cache domain.SessionCache,
	mailer domain.Mailer,
	avatars AvatarProvider,
	files domain.FileStore,
	cfg AccountConfig,
	logger *slog.Logger,
) *AccountService {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.SessionCacheTTL <= 0 {
		cfg.SessionCacheTTL = time.Hour
	}
	return &AccountService{
		accounts: accounts,
		hasher:   hasher,
		tokens:   tokens,
		cache:    cache,
		mailer:   mailer,
		avatars:  avatars,
		files:    files,
		cfg:      cfg,
		logger:   logger,
	}
}

// Register creates an unconfirmed account and sends a confirmation email.
func (s *AccountService) Register(ctx context.Context, username, email, password string) (*domain.Account, error) {
	username = strings.TrimSpace(username)
	email = strings.TrimSpace(email)
	if err := validateUsername(username); err != nil {
		return nil, err
	}
	if err := validateEmail(email); err != nil {
		return nil, err
	}
	if err := validatePassword(password); err != nil {
		return nil, err
	}

	if _, err := s.accounts.GetByEmail(ctx, email); err == nil {
		return nil, domain.ErrDuplicateEmail
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check email: %w", err)
	}
	if _, err := s.accounts.GetByUsername(ctx, username); err == nil {
		return nil, domain.ErrDuplicateUsername
	} else if !errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("check username: %w", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, err
	}

	account := &domain.Account{
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Avatar:       s.defaultAvatar(ctx, email),
	}
	// The store's unique constraints still decide races between the checks
	// above and this insert.
	if err := s.accounts.Create(ctx, account); err != nil {
		if errors.Is(err, domain.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	s.sendConfirmation(ctx, account)
	return account, nil
}

func (s *AccountService) defaultAvatar(ctx context.Context, email string) *string {
	if s.avatars == nil {
		return nil
	}
	u, err := s.avatars.AvatarURL(ctx, email)
	if err != nil {
		s.logger.WarnContext(ctx, "resolve default avatar", "error", err)
		return nil
	}
	return &u
}

// Authenticate verifies credentials and issues a session token. Unknown
// usernames and wrong passwords yield the same ErrInvalidCredentials.
func (s *AccountService) Authenticate(ctx context.Context, username, password string) (*domain.Account, string, error) {
	account, err := s.accounts.GetByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			s.hasher.VerifyDummy(password)
			return nil, "", domain.ErrInvalidCredentials
		}
		return nil, "", fmt.Errorf("get account: %w", err)
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		return nil, "", domain.ErrInvalidCredentials
	}
	if !account.Confirmed {
		return nil, "", domain.ErrEmailNotConfirmed
	}

	token, err := s.tokens.IssueSessionToken(account.Username, 0)
	if err != nil {
		return nil, "", fmt.Errorf("issue session token: %w", err)
	}
	return account, token, nil
}

// Confirm marks the account with the given email as confirmed. It reports
// whether the account was already confirmed, in which case nothing changes.
func (s *AccountService) Confirm(ctx context.Context, email string) (bool, error) {
	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return false, err
		}
		return false, fmt.Errorf("get account: %w", err)
	}
	if account.Confirmed {
		return true, nil
	}
	if err := s.accounts.MarkConfirmed(ctx, email); err != nil {
		return false, fmt.Errorf("mark confirmed: %w", err)
	}
	return false, nil
}

// ConfirmWithToken confirms the account named by an emailed action token.
func (s *AccountService) ConfirmWithToken(ctx context.Context, token string) (bool, error) {
	email, err := s.tokens.ParseActionToken(token)
	if err != nil {
		return false, err
	}
	return s.Confirm(ctx, email)
}

// RequestConfirmation re-sends the confirmation email when an unconfirmed
// account exists for email. Callers always report generic success.
func (s *AccountService) RequestConfirmation(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get account: %w", err)
	}
	if !account.Confirmed {
		s.sendConfirmation(ctx, account)
	}
	return nil
}

// RequestPasswordReset sends a reset email when an account exists for email.
// The outcome is identical whether or not the account exists.
func (s *AccountService) RequestPasswordReset(ctx context.Context, email string) error {
	account, err := s.accounts.GetByEmail(ctx, strings.TrimSpace(email))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil
		}
		return fmt.Errorf("get account: %w", err)
	}

	token, err := s.tokens.IssueActionToken(account.Email)
	if err != nil {
		return fmt.Errorf("issue reset token: %w", err)
	}
	if err := s.mailer.SendPasswordReset(ctx, account.Email, account.Username, token); err != nil {
		s.logger.ErrorContext(ctx, "send password reset email", "error", err, "account_id", account.ID)
	}
	return nil
}

// ResetPassword replaces the password of the account named by token.
func (s *AccountService) ResetPassword(ctx context.Context, token, newPassword string) error {
	email, err := s.tokens.ParseActionToken(token)
	if err != nil {
		return err
	}
	if err := validatePassword(newPassword); err != nil {
		return err
	}

	account, err := s.accounts.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return fmt.Errorf("get account: %w", err)
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.accounts.UpdatePassword(ctx, account.ID, hash); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// ResolveCurrentUser returns the session user for a session token, reading
// through the session cache. Every failure is reported as ErrUnauthorized.
func (s *AccountService) ResolveCurrentUser(ctx context.Context, token string) (*domain.SessionUser, error) {
	username, err := s.tokens.ParseSessionToken(token)
	if err != nil {
		return nil, domain.ErrUnauthorized
	}

	user, err := s.cache.Get(ctx, username)
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, domain.ErrCacheMiss) {
		s.logger.WarnContext(ctx, "session cache get", "error", err)
	}

	account, err := s.accounts.GetByUsername(ctx, username)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.logger.ErrorContext(ctx, "resolve session account", "error", err)
		}
		return nil, domain.ErrUnauthorized
	}

	user = account.SessionUser()
	if err := s.cache.Put(ctx, username, user, s.cfg.SessionCacheTTL); err != nil {
		s.logger.WarnContext(ctx, "session cache put", "error", err)
	}
	return user, nil
}

// GetByUsername returns the account with the given username.
func (s *AccountService) GetByUsername(ctx context.Context, username string) (*domain.Account, error) {
	return s.accounts.GetByUsername(ctx, username)
}

// RequireRole returns ErrForbidden unless user holds role.
func RequireRole(user *domain.SessionUser, role domain.Role) error {
	if user == nil {
		return domain.ErrUnauthorized
	}
	if user.Role != role {
		return fmt.Errorf("%w: %s role required", domain.ErrForbidden, role)
	}
	return nil
}

// UpdateAvatar stores an uploaded image and points the caller's avatar at it.
// Only administrators may upload avatars.
func (s *AccountService) UpdateAvatar(ctx context.Context, caller *domain.SessionUser, contentType string, data []byte) (*domain.Account, error) {
	if err := RequireRole(caller, domain.RoleAdmin); err != nil {
		return nil, err
	}
	if s.files == nil {
		return nil, errors.New("avatar storage is not configured")
	}
	ext, ok := allowedAvatarTypes[contentType]
	if !ok {
		return nil, fmt.Errorf("%w: avatar must be a JPEG or PNG image", domain.ErrInvalidInput)
	}
	if len(data) == 0 || len(data) > MaxAvatarSize {
		return nil, fmt.Errorf("%w: avatar must be between 1 byte and 5MB", domain.ErrInvalidInput)
	}

	key := uuid.NewString() + ext
	if err := s.files.Save(ctx, key, data); err != nil {
		return nil, fmt.Errorf("save avatar: %w", err)
	}

	avatarURL := strings.TrimRight(s.cfg.AvatarBaseURL, "/") + "/" + key
	if err := s.accounts.UpdateAvatar(ctx, caller.ID, avatarURL); err != nil {
		if delErr := s.files.Delete(ctx, key); delErr != nil {
			s.logger.WarnContext(ctx, "remove orphaned avatar", "error", delErr, "key", key)
		}
		return nil, fmt.Errorf("update avatar: %w", err)
	}

	account, err := s.accounts.GetByID(ctx, caller.ID)
	if err != nil {
		return nil, fmt.Errorf("get account: %w", err)
	}
	return account, nil
}

// Avatar returns the bytes of a stored avatar.
func (s *AccountService) Avatar(ctx context.Context, key string) ([]byte, error) {
	if s.files == nil {
		return nil, domain.ErrNotFound
	}
	return s.files.Get(ctx, key)
}

func (s *AccountService) sendConfirmation(ctx context.Context, account *domain.Account) {
	token, err := s.tokens.IssueActionToken(account.Email)
	if err != nil {
		s.logger.ErrorContext(ctx, "issue confirmation token", "error", err, "account_id", account.ID)
		return
	}
	if err := s.mailer.SendConfirmation(ctx, account.Email, account.Username, token); err != nil {
		s.logger.ErrorContext(ctx, "send confirmation email", "error", err, "account_id", account.ID)
	}
}

func validateUsername(username string) error {
	if n := utf8.RuneCountInString(username); n < 3 || n > 50 {
		return fmt.Errorf("%w: username must be between 3 and 50 characters", domain.ErrInvalidInput)
	}
	return nil
}

func validateEmail(email string) error {
	if len(email) > 254 {
		return fmt.Errorf("%w: email must be 254 characters or fewer", domain.ErrInvalidInput)
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return fmt.Errorf("%w: email is not valid", domain.ErrInvalidInput)
	}
	return nil
}

func validatePassword(password string) error {
	if len(password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", domain.ErrInvalidInput)
	}
	if len(password) > 72 {
		return fmt.Errorf("%w: password must be 72 bytes or fewer", domain.ErrInvalidInput)
	}
	return nil
}
