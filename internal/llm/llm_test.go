package llm

import (
	"testing"

	"google.golang.org/genai"
)

func TestCleanJSON(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{name: "plain object", in: `{"a":1}`, want: `{"a":1}`},
		{name: "fenced json", in: "```json\n{\"a\":1}\n```", want: `{"a":1}`},
		{name: "fenced bare", in: "```\n[1,2]\n```", want: `[1,2]`},
		{name: "prose around", in: "Here you go: {\"context\":\"x\"} hope it helps", want: `{"context":"x"}`},
		{name: "array", in: "  [ {\"a\":1} ]  ", want: `[ {"a":1} ]`},
		{name: "empty", in: "   ", want: ""},
		{name: "no json", in: "sorry", want: "sorry"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CleanJSON(tt.in); got != tt.want {
				t.Errorf("CleanJSON(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestUsage(t *testing.T) {
	if p, c := Usage(nil); p != 0 || c != 0 {
		t.Errorf("nil response: got %d/%d", p, c)
	}
	if p, c := Usage(&genai.GenerateContentResponse{}); p != 0 || c != 0 {
		t.Errorf("no metadata: got %d/%d", p, c)
	}

	resp := &genai.GenerateContentResponse{
		UsageMetadata: &genai.GenerateContentResponseUsageMetadata{PromptTokenCount: 11, CandidatesTokenCount: 42},
	}
	if p, c := Usage(resp); p != 11 || c != 42 {
		t.Errorf("got %d/%d, want 11/42", p, c)
	}
}

func TestText_SkipsThoughts(t *testing.T) {
	resp := &genai.GenerateContentResponse{
		Candidates: []*genai.Candidate{{
			Content: &genai.Content{Parts: []*genai.Part{
				{Text: "thinking...", Thought: true},
				{Text: "Hello "},
				{Text: "world"},
			}},
		}},
	}
	if got := Text(resp); got != "Hello world" {
		t.Errorf("Text() = %q", got)
	}
	if got := Text(&genai.GenerateContentResponse{}); got != "" {
		t.Errorf("Text(empty) = %q", got)
	}
}
