package domain

import (
	"encoding/json"
	"strings"
	"time"
)

// Role identifies who authored a conversation turn.
type Role string

const (
	RoleUser Role = "user"
	RoleBot  Role = "bot"
)

// Turn is one persisted message of a conversation. Turns are append-only:
// they are created by the chat writer and never updated afterwards.
type Turn struct {
	ID         string    `json:"id"`
	UserID     string    `json:"userId"`
	Content    string    `json:"content"`
	ImageURL   *string   `json:"imageUrl,omitempty"`
	Role       Role      `json:"role"`
	TokensUsed int64     `json:"tokensUsed"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Message is a role/content pair in the shape the hosted chat API expects.
// Role is "user" or "model".
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// UnmarshalJSON accepts {role, content} as well as the provider's
// {role, parts: [{text}]} shape. The "bot" and "assistant" roles map to "model".
func (m *Message) UnmarshalJSON(data []byte) error {
	var raw struct {
		Role    string `json:"role"`
		Type    string `json:"type"`
		Content string `json:"content"`
		Parts   []struct {
			Text string `json:"text"`
		} `json:"parts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	role := raw.Role
	if role == "" {
		role = raw.Type
	}
	m.Role = NormalizeRole(role)
	m.Content = raw.Content
	if m.Content == "" {
		texts := make([]string, 0, len(raw.Parts))
		for _, p := range raw.Parts {
			texts = append(texts, p.Text)
		}
		m.Content = strings.Join(texts, "")
	}
	return nil
}

// NormalizeRole maps a client or stored role to a model-facing role.
func NormalizeRole(role string) string {
	switch strings.ToLower(strings.TrimSpace(role)) {
	case "model", "bot", "assistant", "ai":
		return MessageRoleModel
	default:
		return MessageRoleUser
	}
}

// Model-facing roles.
const (
	MessageRoleUser  = "user"
	MessageRoleModel = "model"
)
