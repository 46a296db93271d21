package mongo

import (
	"time"

	"github.com/dvloznov/imagexbot/internal/domain"
)

// turnDocument is the stored shape of a conversation turn.
type turnDocument struct {
	ID         string    `bson:"_id"`
	UserID     string    `bson:"user_id"`
	Role       string    `bson:"type"`
	Content    string    `bson:"content"`
	ImageURL   *string   `bson:"image_url,omitempty"`
	TokensUsed int64     `bson:"token_used"`
	CreatedAt  time.Time `bson:"created_at"`
}

// accountDocument is the stored shape of an account.
type accountDocument struct {
	ID           string    `bson:"_id"`
	Name         string    `bson:"name"`
	Email        string    `bson:"email"`
	PasswordHash string    `bson:"password"`
	Picture      string    `bson:"picture"`
	CreatedAt    time.Time `bson:"created_at"`
}

func newTurnDocument(t *domain.Turn) turnDocument {
	return turnDocument{
		ID:         t.ID,
		UserID:     t.UserID,
		Role:       string(t.Role),
		Content:    t.Content,
		ImageURL:   t.ImageURL,
		TokensUsed: t.TokensUsed,
		CreatedAt:  t.CreatedAt,
	}
}

func (d turnDocument) turn() *domain.Turn {
	return &domain.Turn{
		ID:         d.ID,
		UserID:     d.UserID,
		Role:       domain.Role(d.Role),
		Content:    d.Content,
		ImageURL:   d.ImageURL,
		TokensUsed: d.TokensUsed,
		CreatedAt:  d.CreatedAt.UTC(),
	}
}

func newAccountDocument(a *domain.Account) accountDocument {
	return accountDocument{
		ID:           a.ID,
		Name:         a.Name,
		Email:        a.Email,
		PasswordHash: a.PasswordHash,
		Picture:      a.Picture,
		CreatedAt:    a.CreatedAt,
	}
}

func (d accountDocument) account() *domain.Account {
	return &domain.Account{
		ID:           d.ID,
		Name:         d.Name,
		Email:        d.Email,
		PasswordHash: d.PasswordHash,
		Picture:      d.Picture,
		CreatedAt:    d.CreatedAt.UTC(),
	}
}
