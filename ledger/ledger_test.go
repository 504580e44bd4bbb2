package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var today = time.Date(2025, time.March, 10, 15, 30, 0, 0, time.UTC)

func day(offset int) time.Time {
	return time.Date(2025, time.March, 10+offset, 0, 0, 0, 0, time.UTC)
}

func TestDaysUntil(t *testing.T) {
	assert.Equal(t, 0, DaysUntil(day(0), today))
	assert.Equal(t, 5, DaysUntil(day(5), today))
	assert.Equal(t, -1, DaysUntil(day(-1), today))
	assert.Equal(t, 22, DaysUntil(time.Date(2025, time.April, 1, 0, 0, 0, 0, time.UTC), today))
}

func TestExpenseStatusOf(t *testing.T) {
	tests := []struct {
		name  string
		paid  string
		total string
		due   time.Time
		want  ExpenseStatus
	}{
		{name: "unpaid due in five days", paid: "0", total: "100", due: day(5), want: StatusNearDue},
		{name: "unpaid due in six days", paid: "0", total: "100", due: day(6), want: StatusUpcoming},
		{name: "unpaid due today", paid: "0", total: "100", due: day(0), want: StatusNearDue},
		{name: "unpaid due yesterday", paid: "0", total: "100", due: day(-1), want: StatusOverdue},
		{name: "partial dominates overdue", paid: "1", total: "100", due: day(-30), want: StatusPartial},
		{name: "partial dominates upcoming", paid: "0.01", total: "100", due: day(30), want: StatusPartial},
		{name: "fully paid", paid: "100", total: "100", due: day(-30), want: StatusCompleted},
		{name: "paid above total", paid: "100.01", total: "100", due: day(3), want: StatusCompleted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := Balance{Total: dec(tt.total), Paid: dec(tt.paid)}
			assert.Equal(t, tt.want, ExpenseStatusOf(b, tt.due, today))
		})
	}
}

func TestDebtStatusOf(t *testing.T) {
	tests := []struct {
		name  string
		paid  string
		total string
		want  DebtStatus
	}{
		{name: "nothing paid", paid: "0", total: "500", want: DebtPending},
		{name: "some paid", paid: "200", total: "500", want: DebtPartial},
		{name: "all paid", paid: "500", total: "500", want: DebtPaid},
		{name: "overpaid", paid: "501", total: "500", want: DebtPaid},
		{name: "negative paid", paid: "-1", total: "500", want: DebtPending},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b := Balance{Total: dec(tt.total), Paid: dec(tt.paid)}
			assert.Equal(t, tt.want, DebtStatusOf(b))
		})
	}
}

func TestBalanceApply(t *testing.T) {
	b := NewBalance(dec("100"))

	b, err := b.Apply(dec("30"))
	require.NoError(t, err)
	assert.True(t, b.Paid.Equal(dec("30")))
	assert.True(t, b.Remaining().Equal(dec("70")))

	b, err = b.Apply(dec("70"))
	require.NoError(t, err)
	assert.True(t, b.Remaining().IsZero())
	assert.True(t, b.Paid.Add(b.Remaining()).Equal(b.Total))
}

func TestBalanceApplyRejectsOverCapacity(t *testing.T) {
	b := Balance{Total: dec("100"), Paid: dec("40")}

	got, err := b.Apply(b.Remaining().Add(dec("0.01")))
	require.ErrorIs(t, err, ErrInvalidPayment)
	assert.Equal(t, b, got)

	var perr *PaymentError
	require.True(t, errors.As(err, &perr))
	assert.True(t, perr.Amount.Equal(dec("60.01")))
	assert.True(t, perr.Remaining.Equal(dec("60")))
	assert.Equal(t, "payment amount (60.01) exceeds remaining amount (60.00)", perr.Error())
}

func TestBalanceApplyRejectsNonPositive(t *testing.T) {
	b := NewBalance(dec("100"))

	_, err := b.Apply(decimal.Zero)
	assert.ErrorIs(t, err, ErrInvalidAmount)

	_, err = b.Apply(dec("-1"))
	assert.ErrorIs(t, err, ErrInvalidAmount)
}

func TestRebuildIsOrderIndependent(t *testing.T) {
	total := dec("500")
	payments := []decimal.Decimal{dec("100"), dec("50.25"), dec("75"), dec("0.75")}

	for i := range payments {
		reduced := make([]decimal.Decimal, 0, len(payments)-1)
		reduced = append(reduced, payments[:i]...)
		reduced = append(reduced, payments[i+1:]...)

		reversed := make([]decimal.Decimal, 0, len(reduced))
		for j := len(reduced) - 1; j >= 0; j-- {
			reversed = append(reversed, reduced[j])
		}

		want := total
		for _, p := range reduced {
			want = want.Sub(p)
		}

		assert.True(t, Rebuild(total, reduced).Remaining().Equal(want))
		assert.True(t, Rebuild(total, reversed).Remaining().Equal(want))
	}
}

func TestExpenseStatusValid(t *testing.T) {
	for _, s := range ExpenseStatuses() {
		assert.True(t, s.Valid())
	}
	assert.False(t, ExpenseStatus("late").Valid())
	assert.True(t, DebtPartial.Valid())
	assert.False(t, DebtStatus("closed").Valid())
}
