package bigquery

import (
	"time"

	"cloud.google.com/go/bigquery"

	"github.com/dvloznov/imagexbot/internal/domain"
)

// TurnRow represents a conversation turn record in BigQuery.
type TurnRow struct {
	TurnID     string              `bigquery:"turn_id"`
	UserID     string              `bigquery:"user_id"`
	Role       string              `bigquery:"role"`
	Content    string              `bigquery:"content"`
	ImageURL   bigquery.NullString `bigquery:"image_url"`
	TokensUsed int64               `bigquery:"tokens_used"`
	CreatedTS  time.Time           `bigquery:"created_ts"`
}

// AccountRow represents an account record in BigQuery.
type AccountRow struct {
	AccountID    string    `bigquery:"account_id"`
	Name         string    `bigquery:"name"`
	Email        string    `bigquery:"email"`
	PasswordHash string    `bigquery:"password_hash"`
	Picture      string    `bigquery:"picture"`
	CreatedTS    time.Time `bigquery:"created_ts"`
}

// NewTurnRow maps a domain turn to its row.
func NewTurnRow(t *domain.Turn) *TurnRow {
	row := &TurnRow{
		TurnID:     t.ID,
		UserID:     t.UserID,
		Role:       string(t.Role),
		Content:    t.Content,
		TokensUsed: t.TokensUsed,
		CreatedTS:  t.CreatedAt,
	}
	if t.ImageURL != nil {
		row.ImageURL = bigquery.NullString{StringVal: *t.ImageURL, Valid: true}
	}
	return row
}

// Turn maps the row back to a domain turn.
func (r *TurnRow) Turn() *domain.Turn {
	t := &domain.Turn{
		ID:         r.TurnID,
		UserID:     r.UserID,
		Role:       domain.Role(r.Role),
		Content:    r.Content,
		TokensUsed: r.TokensUsed,
		CreatedAt:  r.CreatedTS,
	}
	if r.ImageURL.Valid {
		u := r.ImageURL.StringVal
		t.ImageURL = &u
	}
	return t
}

// NewAccountRow maps a domain account to its row.
func NewAccountRow(a *domain.Account) *AccountRow {
	return &AccountRow{
		AccountID:    a.ID,
		Name:         a.Name,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Picture:      a.Picture,
		CreatedTS:    a.CreatedAt,
	}
}

// Account maps the row back to a domain account.
func (r *AccountRow) Account() *domain.Account {
	return &domain.Account{
		ID:           r.AccountID,
		Name:         r.Name,
		Email:        r.Email,
		PasswordHash: r.PasswordHash,
		Picture:      r.Picture,
		CreatedAt:    r.CreatedTS,
	}
}
