package pipeline

import "errors"

var (
	// ErrNoFiles is returned when Analyze is called without source files.
	ErrNoFiles = errors.New("at least one file is required for analysis")

	// ErrFileProcessingFailed is returned when the provider reports an
	// uploaded file as FAILED.
	ErrFileProcessingFailed = errors.New("file processing failed")

	// ErrPollingExhausted is returned when a file is still processing after
	// the configured number of polls.
	ErrPollingExhausted = errors.New("file processing timed out")

	// ErrInvalidExtraction is returned when the model output is empty or is
	// not a statement object.
	ErrInvalidExtraction = errors.New("invalid statement extraction")
)
