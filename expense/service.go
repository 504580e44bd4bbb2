package expense

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/billbatista/acasinha-finance/category"
	"github.com/billbatista/acasinha-finance/eventlogger"
	"github.com/billbatista/acasinha-finance/ledger"
	"github.com/billbatista/acasinha-finance/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Filter narrows a listing. Zero values mean no restriction. The status is
// matched after statuses have been refreshed for today.
type Filter struct {
	Status  ledger.ExpenseStatus
	DueFrom time.Time
	DueTo   time.Time
}

// Store reads expenses outside of a transaction. Get returns nil, nil when no
// expense with that id belongs to ownerID.
type Store interface {
	Get(ctx context.Context, ownerID, id uuid.UUID) (*Expense, error)
	List(ctx context.Context, ownerID uuid.UUID, f Filter) ([]Expense, error)
	SaveStatus(ctx context.Context, e *Expense) error
	Payments(ctx context.Context, expenseID uuid.UUID) ([]Payment, error)
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx groups the writes of one mutation. Lock and LockPayment hold a row lock
// on the expense until the transaction ends.
type Tx interface {
	Lock(ctx context.Context, ownerID, id uuid.UUID) (*Expense, error)
	Insert(ctx context.Context, e *Expense) error
	Update(ctx context.Context, e *Expense) error
	Delete(ctx context.Context, id uuid.UUID) error
	InsertPayment(ctx context.Context, p *Payment) error
	LockPayment(ctx context.Context, ownerID, paymentID uuid.UUID) (*Payment, error)
	DeletePayment(ctx context.Context, id uuid.UUID) error
	PaymentAmounts(ctx context.Context, expenseID uuid.UUID) ([]decimal.Decimal, error)
}

type DetailResolver interface {
	VisibleDetail(ctx context.Context, userID, id uuid.UUID) (*category.Detail, error)
}

type Service struct {
	store   Store
	details DetailResolver
	events  eventlogger.Recorder
	now     func() time.Time
	loc     *time.Location
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLocation sets the time zone that decides which calendar day is today.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		s.loc = loc
	}
}

func WithEvents(r eventlogger.Recorder) Option {
	return func(s *Service) {
		s.events = r
	}
}

func NewService(store Store, details DetailResolver, opts ...Option) *Service {
	s := &Service{
		store:   store,
		details: details,
		events:  eventlogger.Discard,
		now:     time.Now,
		loc:     time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

type CreateInput struct {
	DetailID      uuid.UUID
	Amount        decimal.Decimal
	ExpenseDate   time.Time
	DueDate       time.Time
	Notes         string
	AttachmentURL string
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*Expense, error) {
	detail, err := s.details.VisibleDetail(ctx, ownerID, in.DetailID)
	if err != nil {
		return nil, err
	}

	e, err := NewExpense(ownerID, detail.ID, in.Amount, in.ExpenseDate, in.DueDate, s.today())
	if err != nil {
		return nil, err
	}
	e.DetailName = detail.Name
	e.Notes = in.Notes
	e.AttachmentURL = in.AttachmentURL

	err = s.store.WithTx(ctx, func(tx Tx) error {
		return tx.Insert(ctx, e)
	})
	if err != nil {
		return nil, fmt.Errorf("creating expense: %w", err)
	}

	s.record(ownerID, ledger.EventExpenseCreated, ledger.ObligationEvent{
		ObligationID: e.ID,
		Total:        e.Amount,
		Status:       string(e.Status),
	})
	return e, nil
}

// Get returns the expense with its status refreshed for today. A changed
// status is written back before returning.
func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*Expense, error) {
	e, err := s.store.Get(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("fetching expense: %w", err)
	}
	if e == nil {
		return nil, ErrNotFound
	}
	if err := s.refresh(ctx, e); err != nil {
		return nil, err
	}
	return e, nil
}

func (s *Service) refresh(ctx context.Context, e *Expense) error {
	if !e.Refresh(s.today()) {
		return nil
	}
	if err := s.store.SaveStatus(ctx, e); err != nil {
		return fmt.Errorf("saving refreshed status: %w", err)
	}
	return nil
}

func (s *Service) List(ctx context.Context, ownerID uuid.UUID, f Filter) ([]Expense, error) {
	all, err := s.store.List(ctx, ownerID, Filter{DueFrom: f.DueFrom, DueTo: f.DueTo})
	if err != nil {
		return nil, fmt.Errorf("listing expenses: %w", err)
	}

	out := make([]Expense, 0, len(all))
	for i := range all {
		if err := s.refresh(ctx, &all[i]); err != nil {
			return nil, err
		}
		if f.Status != "" && all[i].Status != f.Status {
			continue
		}
		out = append(out, all[i])
	}
	return out, nil
}

// Pending lists every expense that is not completed, earliest due date first.
func (s *Service) Pending(ctx context.Context, ownerID uuid.UUID) ([]Expense, error) {
	all, err := s.List(ctx, ownerID, Filter{})
	if err != nil {
		return nil, err
	}
	pending := make([]Expense, 0, len(all))
	for _, e := range all {
		if e.Status != ledger.StatusCompleted {
			pending = append(pending, e)
		}
	}
	sort.SliceStable(pending, func(i, j int) bool {
		return pending[i].DueDate.Before(pending[j].DueDate)
	})
	return pending, nil
}

// Changes holds the editable fields. Nil pointers leave a field untouched.
type Changes struct {
	DetailID      *uuid.UUID
	Amount        *decimal.Decimal
	ExpenseDate   *time.Time
	DueDate       *time.Time
	Notes         *string
	AttachmentURL *string
}

func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, c Changes) (*Expense, error) {
	var detail *category.Detail
	if c.DetailID != nil {
		d, err := s.details.VisibleDetail(ctx, ownerID, *c.DetailID)
		if err != nil {
			return nil, err
		}
		detail = d
	}

	var updated *Expense
	err := s.store.WithTx(ctx, func(tx Tx) error {
		e, err := tx.Lock(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if e == nil {
			return ErrNotFound
		}

		today := s.today()
		if detail != nil {
			e.DetailID = detail.ID
			e.DetailName = detail.Name
		}
		if c.ExpenseDate != nil {
			e.ExpenseDate = civil(*c.ExpenseDate)
		}
		if c.DueDate != nil {
			e.ChangeDueDate(*c.DueDate, today)
		}
		if c.Amount != nil {
			if err := e.ChangeAmount(*c.Amount, today); err != nil {
				return err
			}
		}
		if c.Notes != nil {
			e.Notes = *c.Notes
		}
		if c.AttachmentURL != nil {
			e.AttachmentURL = *c.AttachmentURL
		}
		e.Refresh(today)
		e.UpdatedAt = time.Now().UTC()

		if err := tx.Update(ctx, e); err != nil {
			return err
		}
		updated = e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ownerID, ledger.EventExpenseUpdated, ledger.ObligationEvent{
		ObligationID: updated.ID,
		Total:        updated.Amount,
		Status:       string(updated.Status),
	})
	return updated, nil
}

// Delete removes the expense together with its payments.
func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx Tx) error {
		e, err := tx.Lock(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if e == nil {
			return ErrNotFound
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.record(ownerID, ledger.EventExpenseDeleted, map[string]string{"expense_id": id.String()})
	return nil
}

type PaymentInput struct {
	Amount      decimal.Decimal
	PaymentDate time.Time
	Notes       string
}

// Pay registers a payment. The capacity check, the payment insert and the
// balance update share one transaction holding the expense row lock, so a
// rejected or failed payment leaves nothing behind.
func (s *Service) Pay(ctx context.Context, ownerID, expenseID uuid.UUID, in PaymentInput) (*Payment, *Expense, error) {
	if err := money.Validate(in.Amount); err != nil {
		return nil, nil, err
	}

	var (
		payment *Payment
		updated *Expense
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		e, err := tx.Lock(ctx, ownerID, expenseID)
		if err != nil {
			return err
		}
		if e == nil {
			return ErrNotFound
		}

		today := s.today()
		if err := e.ApplyPayment(in.Amount, today); err != nil {
			return err
		}
		e.UpdatedAt = time.Now().UTC()

		paymentDate := in.PaymentDate
		if paymentDate.IsZero() {
			paymentDate = today
		}
		p := &Payment{
			ID:           uuid.New(),
			ExpenseID:    e.ID,
			RegisteredBy: ownerID,
			Amount:       in.Amount,
			PaymentDate:  civil(paymentDate),
			Notes:        in.Notes,
			CreatedAt:    time.Now().UTC(),
		}
		if err := tx.InsertPayment(ctx, p); err != nil {
			return err
		}
		if err := tx.Update(ctx, e); err != nil {
			return err
		}
		payment, updated = p, e
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	slog.Info("expense payment registered", "expense_id", updated.ID, "amount", money.Format(payment.Amount), "status", updated.Status)
	s.record(ownerID, ledger.EventExpensePaid, ledger.PaymentRegisteredEvent{
		ObligationID: updated.ID,
		PaymentID:    payment.ID,
		Amount:       payment.Amount,
		PaymentDate:  payment.PaymentDate,
		Remaining:    updated.PendingAmount,
		Status:       string(updated.Status),
	})
	return payment, updated, nil
}

// DeletePayment removes a payment and rebuilds the expense balance from the
// payments that remain. If the rebuilt expense can't be saved the payment is
// kept.
func (s *Service) DeletePayment(ctx context.Context, ownerID, paymentID uuid.UUID) (*Expense, error) {
	var (
		removed *Payment
		updated *Expense
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		p, err := tx.LockPayment(ctx, ownerID, paymentID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrPaymentNotFound
		}
		e, err := tx.Lock(ctx, ownerID, p.ExpenseID)
		if err != nil {
			return err
		}
		if e == nil {
			return ErrPaymentNotFound
		}

		if err := tx.DeletePayment(ctx, p.ID); err != nil {
			return err
		}
		amounts, err := tx.PaymentAmounts(ctx, e.ID)
		if err != nil {
			return err
		}
		e.Reconcile(amounts, s.today())
		e.UpdatedAt = time.Now().UTC()
		if err := tx.Update(ctx, e); err != nil {
			return err
		}
		removed, updated = p, e
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ownerID, ledger.EventExpensePaymentRemoved, ledger.PaymentRemovedEvent{
		ObligationID: updated.ID,
		PaymentID:    removed.ID,
		Amount:       removed.Amount,
		Remaining:    updated.PendingAmount,
		Status:       string(updated.Status),
	})
	return updated, nil
}

// ListPayments returns the payments of an expense, newest payment date first.
func (s *Service) ListPayments(ctx context.Context, ownerID, expenseID uuid.UUID) ([]Payment, error) {
	e, err := s.store.Get(ctx, ownerID, expenseID)
	if err != nil {
		return nil, fmt.Errorf("fetching expense: %w", err)
	}
	if e == nil {
		return nil, ErrNotFound
	}
	payments, err := s.store.Payments(ctx, expenseID)
	if err != nil {
		return nil, fmt.Errorf("listing payments: %w", err)
	}
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].PaymentDate.After(payments[j].PaymentDate)
	})
	return payments, nil
}

// Summary aggregates the owner's expenses. When month and year are both set
// only expenses due in that month are counted; both zero means all expenses.
func (s *Service) Summary(ctx context.Context, ownerID uuid.UUID, month, year int) (*Summary, error) {
	var f Filter
	switch {
	case month == 0 && year == 0:
	case month >= 1 && month <= 12 && year > 0:
		f.DueFrom = time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
		f.DueTo = f.DueFrom.AddDate(0, 1, -1)
	default:
		return nil, ErrInvalidPeriod
	}

	expenses, err := s.List(ctx, ownerID, f)
	if err != nil {
		return nil, err
	}
	sum := Summarize(expenses)
	sum.Month, sum.Year = month, year
	return &sum, nil
}

func (s *Service) record(ownerID uuid.UUID, eventType string, data any) {
	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventType),
		eventlogger.WithData(data),
		eventlogger.WithOwner(ownerID),
	))
}
