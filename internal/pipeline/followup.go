package pipeline

import (
	"context"
	"fmt"
	"iter"

	"google.golang.org/genai"

	"github.com/dvloznov/imagexbot/internal/domain"
	"github.com/dvloznov/imagexbot/internal/llm"
)

// FollowUpRequest is one question about an extracted statement.
type FollowUpRequest struct {
	Statement *domain.Statement `json:"systemPrompt" validate:"required"`
	Message   string            `json:"message" validate:"required"`
	History   []domain.Message  `json:"history"`
}

// FollowUp answers questions about a statement as a text stream.
type FollowUp struct {
	gen   llm.Generator
	model string
}

// NewFollowUp creates a FollowUp using model.
func NewFollowUp(gen llm.Generator, model string) *FollowUp {
	if model == "" {
		model = "gemini-2.5-flash"
	}
	return &FollowUp{gen: gen, model: model}
}

// Stream sends the question and yields reply chunks as they arrive. The
// conversation opens with a model greeting addressed to the account holder,
// followed by the caller's history.
func (f *FollowUp) Stream(ctx context.Context, req FollowUpRequest) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		contents, config, err := f.build(req)
		if err != nil {
			yield("", err)
			return
		}

		for resp, err := range f.gen.GenerateContentStream(ctx, f.model, contents, config) {
			if err != nil {
				yield("", fmt.Errorf("Stream: %w", err))
				return
			}
			chunk := llm.Text(resp)
			if chunk == "" {
				continue
			}
			if !yield(chunk, nil) {
				return
			}
		}
	}
}

func (f *FollowUp) build(req FollowUpRequest) ([]*genai.Content, *genai.GenerateContentConfig, error) {
	st := req.Statement
	if st == nil {
		st = &domain.Statement{}
	}
	st.Normalize()

	grounding, err := indentJSON(st)
	if err != nil {
		return nil, nil, fmt.Errorf("build: %w", err)
	}

	contents := []*genai.Content{{
		Role:  domain.MessageRoleModel,
		Parts: []*genai.Part{{Text: "Hello " + string(st.AccountName)}},
	}}
	for _, m := range req.History {
		if m.Content == "" {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  domain.NormalizeRole(m.Role),
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	contents = append(contents, &genai.Content{
		Role:  domain.MessageRoleUser,
		Parts: []*genai.Part{{Text: req.Message}},
	})

	return contents, &genai.GenerateContentConfig{
		SystemInstruction: &genai.Content{Parts: []*genai.Part{{Text: followUpInstruction(grounding)}}},
	}, nil
}
