package domain

import "time"

// Account is a user of the chat assistant, keyed by a unique email.
type Account struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Picture      string    `json:"picture"`
	CreatedAt    time.Time `json:"createdAt"`
}
