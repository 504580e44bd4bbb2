package ledger

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseStatus classifies an expense by paid amount and due-date proximity.
type ExpenseStatus string

const (
	StatusUpcoming  ExpenseStatus = "upcoming"
	StatusNearDue   ExpenseStatus = "near_due"
	StatusOverdue   ExpenseStatus = "overdue"
	StatusPartial   ExpenseStatus = "partial"
	StatusCompleted ExpenseStatus = "completed"
)

// DebtStatus classifies a debt by its remaining amount only.
type DebtStatus string

const (
	DebtPending DebtStatus = "pending"
	DebtPartial DebtStatus = "partial"
	DebtPaid    DebtStatus = "paid"
)

// NearDueDays is the widest gap, in days, still considered near due.
const NearDueDays = 5

var (
	ErrInvalidPayment = errors.New("invalid payment")
	ErrInvalidAmount  = errors.New("amount must be positive")
)

var expenseStatuses = []ExpenseStatus{StatusUpcoming, StatusNearDue, StatusOverdue, StatusPartial, StatusCompleted}

// ExpenseStatuses lists every expense status in lifecycle order.
func ExpenseStatuses() []ExpenseStatus {
	return append([]ExpenseStatus(nil), expenseStatuses...)
}

func (s ExpenseStatus) Valid() bool {
	for _, v := range expenseStatuses {
		if s == v {
			return true
		}
	}
	return false
}

func (s DebtStatus) Valid() bool {
	return s == DebtPending || s == DebtPartial || s == DebtPaid
}

// PaymentError reports a payment that would drive the remaining balance below zero.
type PaymentError struct {
	Amount    decimal.Decimal
	Remaining decimal.Decimal
}

func (e *PaymentError) Error() string {
	return fmt.Sprintf("payment amount (%s) exceeds remaining amount (%s)", e.Amount.StringFixed(2), e.Remaining.StringFixed(2))
}

func (e *PaymentError) Is(target error) bool {
	return target == ErrInvalidPayment
}

// Balance is the running balance of an obligation. Remaining is always
// derived, so Paid + Remaining == Total holds by construction.
type Balance struct {
	Total decimal.Decimal
	Paid  decimal.Decimal
}

func NewBalance(total decimal.Decimal) Balance {
	return Balance{Total: total, Paid: decimal.Zero}
}

func (b Balance) Remaining() decimal.Decimal {
	return b.Total.Sub(b.Paid)
}

// Apply registers a payment against the balance. Equality with the remaining
// amount is allowed and settles the obligation; anything above it is rejected
// and the balance is returned unchanged.
func (b Balance) Apply(amount decimal.Decimal) (Balance, error) {
	if !amount.IsPositive() {
		return b, ErrInvalidAmount
	}
	if err := CheckCapacity(amount, b.Remaining()); err != nil {
		return b, err
	}
	b.Paid = b.Paid.Add(amount)
	return b, nil
}

// CheckCapacity fails with a *PaymentError when amount exceeds remaining.
func CheckCapacity(amount, remaining decimal.Decimal) error {
	if amount.GreaterThan(remaining) {
		return &PaymentError{Amount: amount, Remaining: remaining}
	}
	return nil
}

// Rebuild recomputes a balance from scratch out of the full payment history.
func Rebuild(total decimal.Decimal, payments []decimal.Decimal) Balance {
	paid := decimal.Zero
	for _, p := range payments {
		paid = paid.Add(p)
	}
	return Balance{Total: total, Paid: paid}
}

// DaysUntil returns the number of calendar days from today to due. A due date
// earlier than today yields a negative value.
func DaysUntil(due, today time.Time) int {
	d := time.Date(due.Year(), due.Month(), due.Day(), 0, 0, 0, 0, time.UTC)
	t := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.UTC)
	return int(d.Sub(t).Hours() / 24)
}

// ExpenseStatusOf derives an expense status. Any payment at all dominates the
// due date: a partially paid expense is never overdue.
func ExpenseStatusOf(b Balance, due, today time.Time) ExpenseStatus {
	switch {
	case b.Paid.GreaterThanOrEqual(b.Total):
		return StatusCompleted
	case b.Paid.IsPositive():
		return StatusPartial
	}

	days := DaysUntil(due, today)
	switch {
	case days < 0:
		return StatusOverdue
	case days <= NearDueDays:
		return StatusNearDue
	default:
		return StatusUpcoming
	}
}

// DebtStatusOf derives a debt status from the remaining amount alone.
func DebtStatusOf(b Balance) DebtStatus {
	remaining := b.Remaining()
	switch {
	case !remaining.IsPositive():
		return DebtPaid
	case remaining.GreaterThanOrEqual(b.Total):
		return DebtPending
	default:
		return DebtPartial
	}
}
