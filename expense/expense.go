package expense

import (
	"errors"
	"time"

	"github.com/billbatista/acasinha-finance/ledger"
	"github.com/billbatista/acasinha-finance/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("expense not found")
	ErrPaymentNotFound = errors.New("payment not found")
	ErrAmountBelowPaid = errors.New("amount can't be lower than what was already paid")
	ErrInvalidPeriod   = errors.New("month must be between 1 and 12 and given together with year")
	ErrMissingDueDate  = errors.New("due date is required")
)

type Expense struct {
	ID            uuid.UUID            `json:"id"`
	OwnerID       uuid.UUID            `json:"owner_id"`
	DetailID      uuid.UUID            `json:"expense_detail_id"`
	DetailName    string               `json:"expense_detail_name,omitempty"`
	Amount        decimal.Decimal      `json:"amount"`
	PaidAmount    decimal.Decimal      `json:"paid_amount"`
	PendingAmount decimal.Decimal      `json:"pending_amount"`
	ExpenseDate   time.Time            `json:"expense_date"`
	DueDate       time.Time            `json:"due_date"`
	Status        ledger.ExpenseStatus `json:"status"`
	Notes         string               `json:"notes"`
	AttachmentURL string               `json:"attachment_url"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}

type Payment struct {
	ID           uuid.UUID       `json:"id"`
	ExpenseID    uuid.UUID       `json:"expense_id"`
	RegisteredBy uuid.UUID       `json:"registered_by"`
	Amount       decimal.Decimal `json:"amount"`
	PaymentDate  time.Time       `json:"payment_date"`
	Notes        string          `json:"notes"`
	CreatedAt    time.Time       `json:"created_at"`
}

// NewExpense builds an unpaid expense with its initial status for today.
func NewExpense(ownerID, detailID uuid.UUID, amount decimal.Decimal, expenseDate, dueDate, today time.Time) (*Expense, error) {
	if err := money.Validate(amount); err != nil {
		return nil, err
	}
	if dueDate.IsZero() {
		return nil, ErrMissingDueDate
	}
	if expenseDate.IsZero() {
		expenseDate = civil(today)
	}

	now := time.Now().UTC()
	e := &Expense{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		DetailID:    detailID,
		ExpenseDate: civil(expenseDate),
		DueDate:     civil(dueDate),
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	e.setBalance(ledger.NewBalance(amount), today)
	return e, nil
}

func (e *Expense) Balance() ledger.Balance {
	return ledger.Balance{Total: e.Amount, Paid: e.PaidAmount}
}

// setBalance is the only place that writes the amount columns and the status.
func (e *Expense) setBalance(b ledger.Balance, today time.Time) {
	e.Amount = b.Total
	e.PaidAmount = b.Paid
	e.PendingAmount = b.Remaining()
	e.Status = ledger.ExpenseStatusOf(b, e.DueDate, today)
}

// Refresh re-derives the status for today and reports whether it changed.
func (e *Expense) Refresh(today time.Time) bool {
	before := e.Status
	e.setBalance(e.Balance(), today)
	return before != e.Status
}

func (e *Expense) ApplyPayment(amount decimal.Decimal, today time.Time) error {
	b, err := e.Balance().Apply(amount)
	if err != nil {
		return err
	}
	e.setBalance(b, today)
	return nil
}

// ChangeAmount replaces the total. A total lower than the paid amount would
// leave a negative pending balance and is rejected.
func (e *Expense) ChangeAmount(amount decimal.Decimal, today time.Time) error {
	if err := money.Validate(amount); err != nil {
		return err
	}
	if amount.LessThan(e.PaidAmount) {
		return ErrAmountBelowPaid
	}
	e.setBalance(ledger.Balance{Total: amount, Paid: e.PaidAmount}, today)
	return nil
}

func (e *Expense) ChangeDueDate(due, today time.Time) {
	e.DueDate = civil(due)
	e.setBalance(e.Balance(), today)
}

// Reconcile rebuilds the paid and pending amounts from the full payment history.
func (e *Expense) Reconcile(payments []decimal.Decimal, today time.Time) {
	e.setBalance(ledger.Rebuild(e.Amount, payments), today)
}

type Summary struct {
	Month        int                          `json:"month,omitempty"`
	Year         int                          `json:"year,omitempty"`
	Total        int                          `json:"total"`
	TotalAmount  decimal.Decimal              `json:"total_amount"`
	TotalPaid    decimal.Decimal              `json:"total_paid"`
	TotalPending decimal.Decimal              `json:"total_pending"`
	ByStatus     map[ledger.ExpenseStatus]int `json:"by_status"`
	Expenses     []Expense                    `json:"-"`
}

// Summarize folds already refreshed expenses into totals and per-status counts.
func Summarize(expenses []Expense) Summary {
	s := Summary{
		Total:        len(expenses),
		TotalAmount:  decimal.Zero,
		TotalPaid:    decimal.Zero,
		TotalPending: decimal.Zero,
		ByStatus:     make(map[ledger.ExpenseStatus]int),
		Expenses:     expenses,
	}
	for _, st := range ledger.ExpenseStatuses() {
		s.ByStatus[st] = 0
	}
	for _, e := range expenses {
		s.TotalAmount = s.TotalAmount.Add(e.Amount)
		s.TotalPaid = s.TotalPaid.Add(e.PaidAmount)
		s.TotalPending = s.TotalPending.Add(e.PendingAmount)
		s.ByStatus[e.Status]++
	}
	return s
}

func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
