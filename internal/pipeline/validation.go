package pipeline

import (
	"fmt"
	"math"

	"github.com/dvloznov/imagexbot/internal/domain"
)

// reconcileTolerance absorbs rounding in the statement's printed figures.
const reconcileTolerance = 1.0

// Reconcile compares the extracted ending balance with the beginning balance
// plus credits minus debits. It returns a non-empty description when the two
// disagree, which usually means the model skipped or duplicated rows. The
// statement is still returned to the caller either way.
func Reconcile(st *domain.Statement) string {
	if st == nil || !st.BeginningBalance.Valid || !st.EndingBalance.Valid || len(st.Transactions) == 0 {
		return ""
	}

	credit, debit := st.Totals()
	expected := st.BeginningBalance.Value + credit - debit
	if math.Abs(expected-st.EndingBalance.Value) <= reconcileTolerance {
		return ""
	}
	return fmt.Sprintf("expected ending balance %.2f, statement says %.2f", expected, st.EndingBalance.Value)
}

// Mismatches returns the indexes of transactions whose balance after the
// transaction does not follow from the previous row.
func Mismatches(st *domain.Statement) []int {
	var out []int
	if st == nil {
		return out
	}

	prev := st.BeginningBalance
	for i, tx := range st.Transactions {
		if prev.Valid && tx.Amount.Valid && tx.BalanceAfter.Valid {
			want := prev.Value - tx.Amount.Value
			if tx.IsCredit() {
				want = prev.Value + tx.Amount.Value
			}
			if math.Abs(want-tx.BalanceAfter.Value) > reconcileTolerance {
				out = append(out, i)
			}
		}
		prev = tx.BalanceAfter
	}
	return out
}
