package debt

import (
	"encoding/json"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/billbatista/acasinha-finance/ledger"
	"github.com/billbatista/acasinha-finance/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound        = errors.New("debt not found")
	ErrPaymentNotFound = errors.New("debt payment not found")
	ErrDebtorNotFound  = errors.New("debtor not found")
	ErrTotalBelowPaid  = errors.New("total amount can't be lower than what was already paid")
	ErrBlankReason     = errors.New("reason can't be blank")
	ErrBlankName       = errors.New("debtor first name can't be blank")
)

type Debtor struct {
	ID        uuid.UUID `json:"id"`
	OwnerID   uuid.UUID `json:"owner_id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Notes     string    `json:"notes"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (d Debtor) FullName() string {
	return strings.TrimSpace(d.FirstName + " " + d.LastName)
}

func (d Debtor) MarshalJSON() ([]byte, error) {
	type plain Debtor
	return json.Marshal(struct {
		plain
		FullName string `json:"full_name"`
	}{plain(d), d.FullName()})
}

type Debt struct {
	ID              uuid.UUID         `json:"id"`
	OwnerID         uuid.UUID         `json:"owner_id"`
	DebtorID        uuid.UUID         `json:"debtor_id"`
	DebtorName      string            `json:"debtor_name,omitempty"`
	Reason          string            `json:"reason"`
	TotalAmount     decimal.Decimal   `json:"total_amount"`
	RemainingAmount decimal.Decimal   `json:"remaining_amount"`
	DebtDate        time.Time         `json:"debt_date"`
	Notes           string            `json:"notes"`
	Status          ledger.DebtStatus `json:"status"`
	CreatedAt       time.Time         `json:"created_at"`
	UpdatedAt       time.Time         `json:"updated_at"`
}

type Payment struct {
	ID            uuid.UUID       `json:"id"`
	DebtID        uuid.UUID       `json:"debt_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   time.Time       `json:"payment_date"`
	PaymentReason string          `json:"payment_reason"`
	Notes         string          `json:"notes"`
	CreatedAt     time.Time       `json:"created_at"`
}

// NewDebt builds a debt with nothing paid: remaining equals total and the
// status is pending.
func NewDebt(ownerID, debtorID uuid.UUID, reason string, total decimal.Decimal, debtDate time.Time) (*Debt, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, ErrBlankReason
	}
	if err := money.Validate(total); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	d := &Debt{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		DebtorID:  debtorID,
		Reason:    reason,
		DebtDate:  civil(debtDate),
		CreatedAt: now,
		UpdatedAt: now,
	}
	d.setBalance(ledger.NewBalance(total))
	return d, nil
}

func (d *Debt) Balance() ledger.Balance {
	return ledger.Balance{Total: d.TotalAmount, Paid: d.TotalAmount.Sub(d.RemainingAmount)}
}

func (d *Debt) setBalance(b ledger.Balance) {
	d.TotalAmount = b.Total
	d.RemainingAmount = b.Remaining()
	d.Status = ledger.DebtStatusOf(b)
}

func (d *Debt) ApplyPayment(amount decimal.Decimal) error {
	b, err := d.Balance().Apply(amount)
	if err != nil {
		return err
	}
	d.setBalance(b)
	return nil
}

// ChangeTotal sets a new total and rebuilds the balance from the payment
// history. Totals below the amount already paid are rejected.
func (d *Debt) ChangeTotal(total decimal.Decimal, payments []decimal.Decimal) error {
	if err := money.Validate(total); err != nil {
		return err
	}
	b := ledger.Rebuild(total, payments)
	if b.Remaining().IsNegative() {
		return ErrTotalBelowPaid
	}
	d.setBalance(b)
	return nil
}

// Reconcile recomputes remaining and status from scratch out of the payments
// that currently exist, discarding whatever the stored balance said.
func (d *Debt) Reconcile(payments []decimal.Decimal) {
	d.setBalance(ledger.Rebuild(d.TotalAmount, payments))
}

type Summary struct {
	TotalDebtors       int             `json:"total_debtors"`
	ActiveDebtors      int             `json:"active_debtors"`
	TotalDebtAmount    decimal.Decimal `json:"total_debt_amount"`
	TotalPendingAmount decimal.Decimal `json:"total_pending_amount"`
}

// Summarize folds the owner's debtors and debts into totals.
func Summarize(debtors []Debtor, debts []Debt) Summary {
	s := Summary{
		TotalDebtors:       len(debtors),
		TotalDebtAmount:    decimal.Zero,
		TotalPendingAmount: decimal.Zero,
	}
	for _, d := range debtors {
		if d.IsActive {
			s.ActiveDebtors++
		}
	}
	for _, d := range debts {
		s.TotalDebtAmount = s.TotalDebtAmount.Add(d.TotalAmount)
		s.TotalPendingAmount = s.TotalPendingAmount.Add(d.RemainingAmount)
	}
	return s
}

type ReportEntry struct {
	ID            uuid.UUID       `json:"id"`
	DebtID        uuid.UUID       `json:"debt_id"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   time.Time       `json:"payment_date"`
	PaymentReason string          `json:"payment_reason"`
	DebtReason    string          `json:"debt_reason"`
	Notes         string          `json:"notes"`
}

type Report struct {
	Debtor    Debtor          `json:"debtor"`
	TotalPaid decimal.Decimal `json:"total_paid"`
	Payments  []ReportEntry   `json:"payments"`
}

// BuildReport lists every payment made on the debtor's debts, newest payment
// date first. Payments on the same date keep the order they were given in.
func BuildReport(debtor Debtor, debts []Debt, payments []Payment) Report {
	reasons := make(map[uuid.UUID]string, len(debts))
	for _, d := range debts {
		reasons[d.ID] = d.Reason
	}

	r := Report{Debtor: debtor, TotalPaid: decimal.Zero, Payments: make([]ReportEntry, 0, len(payments))}
	for _, p := range payments {
		reason, ok := reasons[p.DebtID]
		if !ok {
			continue
		}
		r.Payments = append(r.Payments, ReportEntry{
			ID:            p.ID,
			DebtID:        p.DebtID,
			Amount:        p.Amount,
			PaymentDate:   p.PaymentDate,
			PaymentReason: p.PaymentReason,
			DebtReason:    reason,
			Notes:         p.Notes,
		})
		r.TotalPaid = r.TotalPaid.Add(p.Amount)
	}
	sort.SliceStable(r.Payments, func(i, j int) bool {
		return r.Payments[i].PaymentDate.After(r.Payments[j].PaymentDate)
	})
	return r
}

func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
