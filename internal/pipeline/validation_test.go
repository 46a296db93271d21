package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/dvloznov/imagexbot/internal/domain"
)

func TestReconcile(t *testing.T) {
	txs := []domain.Transaction{
		{Amount: domain.NewAmount(1000), Category: "credit", BalanceAfter: domain.NewAmount(11000)},
		{Amount: domain.NewAmount(250.5), Category: "debit", BalanceAfter: domain.NewAmount(10749.5)},
	}

	tests := []struct {
		name     string
		st       *domain.Statement
		wantDiff bool
	}{
		{name: "nil", st: nil},
		{name: "balanced", st: &domain.Statement{BeginningBalance: domain.NewAmount(10000), EndingBalance: domain.NewAmount(10749.5), Transactions: txs}},
		{name: "within tolerance", st: &domain.Statement{BeginningBalance: domain.NewAmount(10000), EndingBalance: domain.NewAmount(10750), Transactions: txs}},
		{name: "missing row", st: &domain.Statement{BeginningBalance: domain.NewAmount(10000), EndingBalance: domain.NewAmount(9000), Transactions: txs}, wantDiff: true},
		{name: "unknown balance", st: &domain.Statement{EndingBalance: domain.NewAmount(1), Transactions: txs}},
		{name: "no transactions", st: &domain.Statement{BeginningBalance: domain.NewAmount(1), EndingBalance: domain.NewAmount(2)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Reconcile(tt.st)
			if tt.wantDiff {
				assert.NotEmpty(t, got)
			} else {
				assert.Empty(t, got)
			}
		})
	}
}

func TestMismatches(t *testing.T) {
	st := &domain.Statement{
		BeginningBalance: domain.NewAmount(500),
		Transactions: []domain.Transaction{
			{Amount: domain.NewAmount(100), Category: "debit", BalanceAfter: domain.NewAmount(400)},
			{Amount: domain.NewAmount(50), Category: "credit", BalanceAfter: domain.NewAmount(300)},
			{Amount: domain.NewAmount(10), Category: "debit"},
			{Amount: domain.NewAmount(10), Category: "debit", BalanceAfter: domain.NewAmount(280)},
		},
	}

	assert.Equal(t, []int{1}, Mismatches(st))
	assert.Empty(t, Mismatches(nil))
}
