package chat

import (
	"google.golang.org/genai"

	"github.com/dvloznov/imagexbot/internal/domain"
)

// HistoryWindow is the number of trailing turns sent to the chat model.
const HistoryWindow = 10

// FormatHistory maps the last HistoryWindow turns to model-facing messages,
// preserving order. Bot turns become "model", user turns "user".
func FormatHistory(turns []*domain.Turn) []domain.Message {
	if len(turns) > HistoryWindow {
		turns = turns[len(turns)-HistoryWindow:]
	}

	msgs := make([]domain.Message, 0, len(turns))
	for _, t := range turns {
		role := domain.MessageRoleUser
		if t.Role == domain.RoleBot {
			role = domain.MessageRoleModel
		}
		msgs = append(msgs, domain.Message{Role: role, Content: t.Content})
	}
	return msgs
}

// TrimHistory applies the same window to caller-supplied history.
func TrimHistory(msgs []domain.Message) []domain.Message {
	if len(msgs) > HistoryWindow {
		msgs = msgs[len(msgs)-HistoryWindow:]
	}
	out := make([]domain.Message, len(msgs))
	for i, m := range msgs {
		out[i] = domain.Message{Role: domain.NormalizeRole(m.Role), Content: m.Content}
	}
	return out
}

// toContents converts messages to provider contents. Empty messages are
// dropped because the provider rejects parts without text.
func toContents(msgs []domain.Message) []*genai.Content {
	contents := make([]*genai.Content, 0, len(msgs)+1)
	for _, m := range msgs {
		if m.Content == "" {
			continue
		}
		contents = append(contents, &genai.Content{
			Role:  m.Role,
			Parts: []*genai.Part{{Text: m.Content}},
		})
	}
	return contents
}

func userContent(text string) *genai.Content {
	return &genai.Content{
		Role:  domain.MessageRoleUser,
		Parts: []*genai.Part{{Text: text}},
	}
}
