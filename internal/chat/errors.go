package chat

import "errors"

var (
	// ErrInvalidRequest is returned when a required field is missing.
	ErrInvalidRequest = errors.New("all fields are required")

	// ErrNoImage is returned when image generation produced no image.
	ErrNoImage = errors.New("image generation failed")

	// ErrInvalidResponse is returned when the model reply has no usable content.
	ErrInvalidResponse = errors.New("invalid AI response format")
)
