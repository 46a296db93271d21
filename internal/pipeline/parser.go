package pipeline

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dvloznov/imagexbot/internal/domain"
	"github.com/dvloznov/imagexbot/internal/llm"
)

// ParseStatement decodes the model output into a normalized statement.
// Markdown fences and surrounding text are tolerated; every missing field
// becomes "NA". Output that is empty or not a JSON object returns
// ErrInvalidExtraction.
func ParseStatement(raw string) (*domain.Statement, error) {
	clean := llm.CleanJSON(raw)
	if clean == "" {
		return nil, fmt.Errorf("ParseStatement: empty model output: %w", ErrInvalidExtraction)
	}
	if !strings.HasPrefix(clean, "{") {
		return nil, fmt.Errorf("ParseStatement: output is not an object: %w", ErrInvalidExtraction)
	}

	var st domain.Statement
	if err := json.Unmarshal([]byte(clean), &st); err != nil {
		return nil, fmt.Errorf("ParseStatement: unmarshal: %v: %w", err, ErrInvalidExtraction)
	}

	st.Normalize()
	for i := range st.Transactions {
		st.Transactions[i].Category = normalizeCategory(st.Transactions[i].Category)
	}
	return &st, nil
}

// normalizeCategory maps the bank's CR/DR markers to credit/debit.
func normalizeCategory(c domain.Text) domain.Text {
	switch strings.ToUpper(strings.TrimSpace(string(c))) {
	case "CR", "CREDIT":
		return "credit"
	case "DR", "DEBIT":
		return "debit"
	}
	return c
}
