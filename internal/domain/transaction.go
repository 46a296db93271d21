package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NotAvailable marks a field the model could not find in the statement.
const NotAvailable = "NA"

// Transaction is one row of an extracted bank statement. JSON keys follow the
// contract the statement table in the web client renders.
type Transaction struct {
	BankName     Text   `json:"bank_Name"`
	Date         Text   `json:"date"`
	Description  Text   `json:"description"`
	RefNo        Text   `json:"ref_No"`
	Amount       Amount `json:"amount"`
	AICategory   Text   `json:"ai"`
	Category     Text   `json:"category"` // credit or debit
	BalanceAfter Amount `json:"balance_after_Transaction"`
}

// Normalize replaces empty text fields with NotAvailable.
func (t *Transaction) Normalize() {
	for _, f := range []*Text{&t.BankName, &t.Date, &t.Description, &t.RefNo, &t.AICategory, &t.Category} {
		f.normalize()
	}
}

// IsCredit reports whether the transaction was categorized as a credit.
func (t Transaction) IsCredit() bool {
	c := strings.ToLower(string(t.Category))
	return c == "credit" || c == "cr"
}

// Text is a string field that tolerates null and non-string JSON values and
// serializes empty values as "NA".
type Text string

func (t *Text) normalize() {
	if strings.TrimSpace(string(*t)) == "" {
		*t = NotAvailable
	}
}

// Available reports whether the field holds a real value.
func (t Text) Available() bool {
	return t != "" && t != NotAvailable
}

// MarshalJSON implements json.Marshaler.
func (t Text) MarshalJSON() ([]byte, error) {
	if strings.TrimSpace(string(t)) == "" {
		return json.Marshal(NotAvailable)
	}
	return json.Marshal(string(t))
}

// UnmarshalJSON implements json.Unmarshaler.
func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*t = NotAvailable
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = Text(s)
		t.normalize()
		return nil
	}
	// Numbers and booleans are kept verbatim, e.g. a cheque number emitted as 123456.
	*t = Text(data)
	return nil
}

// Amount is a numeric field that may be missing. A missing amount serializes
// as the string "NA".
type Amount struct {
	Value float64
	Valid bool
}

// NewAmount returns a present amount. NaN and infinities are not amounts and
// yield a missing one.
func NewAmount(v float64) Amount {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Amount{}
	}
	return Amount{Value: v, Valid: true}
}

// String returns the amount formatted with two decimals, or "NA".
func (a Amount) String() string {
	if !a.Valid {
		return NotAvailable
	}
	return strconv.FormatFloat(a.Value, 'f', 2, 64)
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	if !a.Valid || math.IsNaN(a.Value) || math.IsInf(a.Value, 0) {
		return json.Marshal(NotAvailable)
	}
	return json.Marshal(a.Value)
}

// UnmarshalJSON implements json.Unmarshaler. It accepts numbers, null, "NA"
// and numeric strings with thousands separators ("1,938.18").
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	*a = Amount{}
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*a = ParseAmount(s)
		return nil
	}
	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}
	*a = NewAmount(f)
	return nil
}

// ParseAmount parses a human formatted amount. Unparseable input yields a
// missing amount.
func ParseAmount(s string) Amount {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "/-")
	s = strings.TrimPrefix(s, "₹")
	s = strings.TrimPrefix(strings.TrimSpace(s), "INR")
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || strings.EqualFold(s, NotAvailable) {
		return Amount{}
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return Amount{}
	}
	return NewAmount(f)
}
