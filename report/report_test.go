package report

import (
	"bytes"
	"testing"
	"time"

	"github.com/billbatista/acasinha-finance/debt"
	"github.com/billbatista/acasinha-finance/expense"
	"github.com/billbatista/acasinha-finance/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExpenseSummaryPDF(t *testing.T) {
	due := time.Date(2025, time.March, 15, 0, 0, 0, 0, time.UTC)
	sum := expense.Summarize([]expense.Expense{
		{ID: uuid.New(), DetailName: "Aluguel de março", Amount: decimal.NewFromInt(1200), PaidAmount: decimal.NewFromInt(200),
			PendingAmount: decimal.NewFromInt(1000), DueDate: due, Status: ledger.StatusPartial},
	})
	sum.Month, sum.Year = 3, 2025

	out, err := ExpenseSummaryPDF(&sum)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
}

func TestDebtorReportPDF(t *testing.T) {
	tests := []struct {
		name     string
		payments []debt.ReportEntry
	}{
		{"empty", nil},
		{"with payments", []debt.ReportEntry{
			{ID: uuid.New(), Amount: decimal.RequireFromString("50.25"), PaymentDate: time.Now(), DebtReason: "Empréstimo", PaymentReason: "pix"},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &debt.Report{
				Debtor:    debt.Debtor{FirstName: "José", LastName: "Silva", Email: "jose@example.com"},
				TotalPaid: decimal.RequireFromString("50.25"),
				Payments:  tt.payments,
			}
			out, err := DebtorReportPDF(r)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
