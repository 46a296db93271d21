package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/dvloznov/imagexbot/internal/domain"
)

// Memory is a Repository kept in process memory, used for local runs and tests.
type Memory struct {
	mu       sync.RWMutex
	turns    []*domain.Turn
	accounts map[string]*domain.Account

	// InsertErr, when set, makes InsertTurns fail.
	InsertErr error
}

// NewMemory creates an empty repository.
func NewMemory() *Memory {
	return &Memory{accounts: make(map[string]*domain.Account)}
}

// InsertTurns implements TurnRepository.
func (m *Memory) InsertTurns(ctx context.Context, turns []*domain.Turn) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.InsertErr != nil {
		return fmt.Errorf("InsertTurns: %w", m.InsertErr)
	}
	for _, t := range turns {
		cp := *t
		m.turns = append(m.turns, &cp)
	}
	return nil
}

// FindTurnsByUser implements TurnRepository.
func (m *Memory) FindTurnsByUser(ctx context.Context, userID string) ([]*domain.Turn, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := []*domain.Turn{}
	for _, t := range m.turns {
		if t.UserID == userID {
			cp := *t
			out = append(out, &cp)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// Len returns the number of stored turns.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.turns)
}

// FindAccountByEmail implements AccountRepository.
func (m *Memory) FindAccountByEmail(ctx context.Context, email string) (*domain.Account, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	a, ok := m.accounts[strings.ToLower(email)]
	if !ok {
		return nil, fmt.Errorf("FindAccountByEmail: %s: %w", email, ErrNotFound)
	}
	cp := *a
	return &cp, nil
}

// InsertAccount implements AccountRepository.
func (m *Memory) InsertAccount(ctx context.Context, account *domain.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := strings.ToLower(account.Email)
	if _, ok := m.accounts[key]; ok {
		return fmt.Errorf("InsertAccount: %s: %w", account.Email, ErrAlreadyExists)
	}
	cp := *account
	m.accounts[key] = &cp
	return nil
}

// Close implements Repository.
func (m *Memory) Close() error { return nil }

var _ Repository = (*Memory)(nil)
