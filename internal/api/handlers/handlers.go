// Package handlers implements the HTTP endpoints of the service.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/dvloznov/imagexbot/internal/api/middleware"
)

// maxBodyBytes bounds JSON request bodies. Statements with many
// transactions are the largest payloads.
const maxBodyBytes = 10 << 20

var validate = validator.New(validator.WithRequiredStructEnabled())

// errBadBody marks a body that could not be decoded.
var errBadBody = errors.New("invalid request body")

// decode reads a JSON body into dst and validates it. The returned error is
// errBadBody or a validator.ValidationErrors.
func decode(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return errBadBody
	}
	return validate.Struct(dst)
}

// Root handles GET /.
func Root(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"message": "Welcome to the Image-X-Bot API",
		"status":  true,
	})
}

// Health handles GET /health.
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
