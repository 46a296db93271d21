package handlers

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dvloznov/imagexbot/internal/api/middleware"
	"github.com/dvloznov/imagexbot/internal/auth"
	"github.com/dvloznov/imagexbot/internal/logger"
)

// Authenticator finds or creates accounts.
type Authenticator interface {
	Login(ctx context.Context, in auth.LoginInput) (*auth.LoginResult, error)
}

// AccountsHandler serves /login.
type AccountsHandler struct {
	auth Authenticator
}

// NewAccountsHandler creates an AccountsHandler.
func NewAccountsHandler(a Authenticator) *AccountsHandler {
	return &AccountsHandler{auth: a}
}

type userResponse struct {
	ID        string    `json:"_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Picture   string    `json:"picture"`
	CreatedAt time.Time `json:"createdAt"`
	Token     string    `json:"token"`
}

// Login handles POST /login.
func (h *AccountsHandler) Login(w http.ResponseWriter, r *http.Request) {
	var in auth.LoginInput
	if err := decode(w, r, &in); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "A valid email is required")
		return
	}

	res, err := h.auth.Login(r.Context(), in)
	if errors.Is(err, auth.ErrInvalidCredentials) {
		middleware.WriteError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}
	if err != nil {
		reqLog := logger.FromContext(r.Context())
		reqLog.Error().Err(err).Msg("Login failed")
		middleware.WriteError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	message := "User found"
	if res.Created {
		message = "User created successfully"
	}
	middleware.WriteJSON(w, http.StatusCreated, map[string]any{
		"message": message,
		"status":  true,
		"user": userResponse{
			ID:        res.Account.ID,
			Name:      res.Account.Name,
			Email:     res.Account.Email,
			Picture:   res.Account.Picture,
			CreatedAt: res.Account.CreatedAt,
			Token:     res.Token,
		},
	})
}
