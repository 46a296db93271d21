package handlers

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/dvloznov/imagexbot/internal/api/middleware"
	"github.com/dvloznov/imagexbot/internal/auth"
	"github.com/dvloznov/imagexbot/internal/metrics"
)

// Routes collects everything NewRouter wires. Nil handlers leave their
// routes unregistered.
type Routes struct {
	Chat       *ChatHandler
	Accounts   *AccountsHandler
	Statements *StatementsHandler
	Documents  *DocumentsHandler
	Jobs       *JobsHandler

	// Issuer verifies bearer tokens. Nil disables authentication.
	Issuer *auth.Issuer
	// AuthRequired rejects unauthenticated calls to protected routes.
	AuthRequired bool

	Gatherer prometheus.Gatherer
	Metrics  *metrics.Metrics
}

// NewRouter builds the HTTP handler with the full middleware chain.
func NewRouter(rt Routes, log zerolog.Logger) http.Handler {
	mux := http.NewServeMux()
	protect := middleware.Auth(rt.Issuer, rt.AuthRequired)
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, protect(h))
	}

	mux.HandleFunc("GET /{$}", Root)
	mux.HandleFunc("GET /health", Health)
	if rt.Gatherer != nil {
		mux.Handle("GET /metrics", promhttp.HandlerFor(rt.Gatherer, promhttp.HandlerOpts{}))
	}

	if rt.Accounts != nil {
		mux.HandleFunc("POST /login", rt.Accounts.Login)
	}

	if rt.Chat != nil {
		handle("POST /upload", rt.Chat.Upload)
		handle("GET /getChats/{userId}", rt.Chat.GetChats)
	}

	if rt.Statements != nil {
		handle("POST /api/analyze", rt.Statements.Analyze)
		handle("POST /api/chat", rt.Statements.Chat)
		handle("POST /api/statements/export", rt.Statements.Export)
	}

	if rt.Documents != nil {
		handle("POST /api/documents/upload-url", rt.Documents.CreateUploadURL)
		handle("DELETE /delete-pdf", rt.Documents.DeletePDF)
		handle("GET /api/files", rt.Documents.ListFiles)
		handle("POST /api/create-json", rt.Documents.CreateJSON)
		handle("DELETE /api/delete", rt.Documents.DeleteFile)
	}

	if rt.Jobs != nil {
		handle("GET /api/cleanup/jobs", rt.Jobs.ListJobs)
		handle("GET /api/cleanup/jobs/{id}", rt.Jobs.GetJob)
	}

	// Logger sits directly on the mux so it can read the matched pattern.
	return middleware.Recovery(log)(
		middleware.RequestID(log)(
			middleware.CORS(
				middleware.Logger(log, rt.Metrics)(mux),
			),
		),
	)
}
