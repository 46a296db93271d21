// Package store declares the persistence contracts for conversation turns
// and accounts. Implementations live under internal/infra.
package store

import (
	"context"
	"errors"

	"github.com/dvloznov/imagexbot/internal/domain"
)

var (
	// ErrNotFound is returned when a lookup matches no record.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyExists is returned when a unique key is already taken.
	ErrAlreadyExists = errors.New("record already exists")
)

// TurnRepository persists conversation turns. Turns are append-only.
type TurnRepository interface {
	// InsertTurns writes all turns in one batch request. It is not
	// transactional: a failure may leave part of the batch written.
	InsertTurns(ctx context.Context, turns []*domain.Turn) error

	// FindTurnsByUser returns every turn of userID ordered by creation time.
	FindTurnsByUser(ctx context.Context, userID string) ([]*domain.Turn, error)
}

// AccountRepository persists accounts keyed by a unique email.
type AccountRepository interface {
	// FindAccountByEmail returns ErrNotFound when no account matches.
	FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error)

	// InsertAccount returns ErrAlreadyExists when the email is taken.
	InsertAccount(ctx context.Context, account *domain.Account) error
}

// Repository is the full persistence surface used by the API server.
type Repository interface {
	TurnRepository
	AccountRepository
	Close() error
}
