package domain

// Statement is the structured data extracted from one or more bank statement
// PDFs. It is produced per request and never persisted.
type Statement struct {
	Summary          Text          `json:"summary"`
	AccountName      Text          `json:"account_Name"`
	StartingDate     Text          `json:"starting_date"`
	EndingDate       Text          `json:"ending_date"`
	BeginningBalance Amount        `json:"beginning_balance"`
	EndingBalance    Amount        `json:"ending_balance"`
	Transactions     []Transaction `json:"transactions"`
}

// Normalize fills every missing text field with NotAvailable and guarantees a
// non-nil transaction list.
func (s *Statement) Normalize() {
	for _, f := range []*Text{&s.Summary, &s.AccountName, &s.StartingDate, &s.EndingDate} {
		f.normalize()
	}
	if s.Transactions == nil {
		s.Transactions = []Transaction{}
	}
	for i := range s.Transactions {
		s.Transactions[i].Normalize()
	}
}

// Totals sums credits and debits over transactions with a known amount.
func (s *Statement) Totals() (credit, debit float64) {
	for _, tx := range s.Transactions {
		if !tx.Amount.Valid {
			continue
		}
		if tx.IsCredit() {
			credit += tx.Amount.Value
		} else {
			debit += tx.Amount.Value
		}
	}
	return credit, debit
}
