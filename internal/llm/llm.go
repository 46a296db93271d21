// Package llm holds the narrow views of the Gemini client used by the chat
// and statement packages, plus response helpers shared by both.
package llm

import (
	"context"
	"fmt"
	"io"
	"iter"
	"strings"

	"google.golang.org/genai"
)

// Generator is the subset of *genai.Models used by the service.
type Generator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
	GenerateContentStream(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) iter.Seq2[*genai.GenerateContentResponse, error]
}

// FileService is the subset of *genai.Files used for document uploads.
type FileService interface {
	Upload(ctx context.Context, r io.Reader, config *genai.UploadFileConfig) (*genai.File, error)
	Get(ctx context.Context, name string, config *genai.GetFileConfig) (*genai.File, error)
}

// NewClient creates a Gemini API client. An empty apiKey falls back to the
// GOOGLE_API_KEY / GEMINI_API_KEY environment variables.
func NewClient(ctx context.Context, apiKey string) (*genai.Client, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("NewClient: create genai client: %w", err)
	}
	return client, nil
}

// Usage returns the provider-reported prompt and completion token counts,
// zero when the response carries no usage metadata.
func Usage(resp *genai.GenerateContentResponse) (prompt, completion int64) {
	if resp == nil || resp.UsageMetadata == nil {
		return 0, 0
	}
	return int64(resp.UsageMetadata.PromptTokenCount), int64(resp.UsageMetadata.CandidatesTokenCount)
}

// Parts returns the parts of the first candidate.
func Parts(resp *genai.GenerateContentResponse) []*genai.Part {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil
	}
	return resp.Candidates[0].Content.Parts
}

// Text concatenates the non-thought text parts of the first candidate.
func Text(resp *genai.GenerateContentResponse) string {
	var b strings.Builder
	for _, p := range Parts(resp) {
		if p == nil || p.Thought {
			continue
		}
		b.WriteString(p.Text)
	}
	return b.String()
}

// CleanJSON strips Markdown code fences and any text around the outermost
// JSON object or array.
func CleanJSON(raw string) string {
	s := strings.TrimSpace(raw)

	// Handle ```json ... ``` or ``` ... ``` wrappers.
	if strings.HasPrefix(s, "```") {
		if idx := strings.Index(s, "\n"); idx != -1 {
			s = s[idx+1:]
		} else {
			return s
		}
		s = strings.TrimSpace(s)
	}
	if idx := strings.LastIndex(s, "```"); idx != -1 {
		s = s[:idx]
	}
	s = strings.TrimSpace(s)

	open := strings.IndexAny(s, "{[")
	if open == -1 {
		return s
	}
	closer := "}"
	if s[open] == '[' {
		closer = "]"
	}
	if end := strings.LastIndex(s, closer); end > open {
		s = s[open : end+1]
	}
	return strings.TrimSpace(s)
}
