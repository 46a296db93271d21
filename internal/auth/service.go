package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dvloznov/imagexbot/internal/domain"
	"github.com/dvloznov/imagexbot/internal/logger"
	"github.com/dvloznov/imagexbot/internal/store"
)

// ErrInvalidCredentials is returned when an account has a password and the
// request's password is missing or does not match.
var ErrInvalidCredentials = errors.New("invalid credentials")

// LoginInput is the body of a login request.
type LoginInput struct {
	Name     string `json:"name"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password"`
	Picture  string `json:"picture"`
}

// LoginResult is the account and a fresh token.
type LoginResult struct {
	Account *domain.Account
	Token   string
	Created bool
}

// Service finds or creates accounts on login.
type Service struct {
	accounts store.AccountRepository
	issuer   *Issuer
	now      func() time.Time
	newID    func() string
}

// NewService creates a Service.
func NewService(accounts store.AccountRepository, issuer *Issuer) *Service {
	return &Service{
		accounts: accounts,
		issuer:   issuer,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
	}
}

// Login returns the account registered under the email, creating it on first
// login. Accounts signed in through a third party carry no password; once an
// account has a password every login must present it.
func (s *Service) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	log := logger.FromContext(ctx).With().Str("email", email).Logger()

	acc, err := s.accounts.FindAccountByEmail(ctx, email)
	switch {
	case err == nil:
		if err := verify(acc, in.Password); err != nil {
			log.Warn().Err(err).Msg("Login rejected")
			return nil, err
		}
		return s.result(acc, false)
	case !errors.Is(err, store.ErrNotFound):
		return nil, fmt.Errorf("Login: finding account: %w", err)
	}

	acc = &domain.Account{
		ID:        s.newID(),
		Name:      in.Name,
		Email:     email,
		Picture:   in.Picture,
		CreatedAt: s.now().UTC(),
	}
	if in.Password != "" {
		if acc.PasswordHash, err = HashPassword(in.Password); err != nil {
			return nil, fmt.Errorf("Login: %w", err)
		}
	}

	err = s.accounts.InsertAccount(ctx, acc)
	if errors.Is(err, store.ErrAlreadyExists) {
		// Lost a race with a concurrent first login.
		existing, ferr := s.accounts.FindAccountByEmail(ctx, email)
		if ferr != nil {
			return nil, fmt.Errorf("Login: reloading account: %w", ferr)
		}
		if err := verify(existing, in.Password); err != nil {
			log.Warn().Err(err).Msg("Login rejected")
			return nil, err
		}
		return s.result(existing, false)
	}
	if err != nil {
		return nil, fmt.Errorf("Login: inserting account: %w", err)
	}

	log.Info().Str("account_id", acc.ID).Msg("Account created")
	return s.result(acc, true)
}

func verify(acc *domain.Account, password string) error {
	if acc.PasswordHash == "" {
		return nil
	}
	if password == "" {
		return ErrInvalidCredentials
	}
	ok, err := CheckPassword(acc.PasswordHash, password)
	if err != nil {
		return fmt.Errorf("Login: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}
	return nil
}

func (s *Service) result(acc *domain.Account, created bool) (*LoginResult, error) {
	token, err := s.issuer.Issue(acc.ID)
	if err != nil {
		return nil, fmt.Errorf("Login: %w", err)
	}
	return &LoginResult{Account: acc, Token: token, Created: created}, nil
}
