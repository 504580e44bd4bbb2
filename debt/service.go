package debt

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"github.com/billbatista/acasinha-finance/eventlogger"
	"github.com/billbatista/acasinha-finance/ledger"
	"github.com/billbatista/acasinha-finance/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Store reads debtors, debts and payments scoped by owner. The single-row
// getters return nil, nil when nothing owned by ownerID matches.
type Store interface {
	GetDebtor(ctx context.Context, ownerID, id uuid.UUID) (*Debtor, error)
	ListDebtors(ctx context.Context, ownerID uuid.UUID) ([]Debtor, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*Debt, error)
	List(ctx context.Context, ownerID uuid.UUID) ([]Debt, error)
	ListByDebtor(ctx context.Context, ownerID, debtorID uuid.UUID) ([]Debt, error)
	Payments(ctx context.Context, debtID uuid.UUID) ([]Payment, error)
	PaymentsByDebtor(ctx context.Context, ownerID, debtorID uuid.UUID) ([]Payment, error)
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Tx groups the writes of one mutation. Lock and LockPayment keep the debt
// row locked until the transaction ends.
type Tx interface {
	InsertDebtor(ctx context.Context, d *Debtor) error
	Lock(ctx context.Context, ownerID, id uuid.UUID) (*Debt, error)
	Insert(ctx context.Context, d *Debt) error
	Update(ctx context.Context, d *Debt) error
	Delete(ctx context.Context, id uuid.UUID) error
	InsertPayment(ctx context.Context, p *Payment) error
	LockPayment(ctx context.Context, ownerID, paymentID uuid.UUID) (*Payment, error)
	DeletePayment(ctx context.Context, id uuid.UUID) error
	PaymentAmounts(ctx context.Context, debtID uuid.UUID) ([]decimal.Decimal, error)
}

type Service struct {
	store  Store
	events eventlogger.Recorder
	now    func() time.Time
	loc    *time.Location
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// WithLocation sets the time zone used to pick the default debt and payment
// date.
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

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		events: eventlogger.Discard,
		now:    time.Now,
		loc:    time.UTC,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) today() time.Time {
	return s.now().In(s.loc)
}

type DebtorInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Address   string
	Notes     string
}

func (s *Service) CreateDebtor(ctx context.Context, ownerID uuid.UUID, in DebtorInput) (*Debtor, error) {
	first := strings.TrimSpace(in.FirstName)
	if first == "" {
		return nil, ErrBlankName
	}

	now := time.Now().UTC()
	d := &Debtor{
		ID:        uuid.New(),
		OwnerID:   ownerID,
		FirstName: first,
		LastName:  strings.TrimSpace(in.LastName),
		Email:     strings.TrimSpace(in.Email),
		Phone:     strings.TrimSpace(in.Phone),
		Address:   in.Address,
		Notes:     in.Notes,
		IsActive:  true,
		CreatedAt: now,
		UpdatedAt: now,
	}
	err := s.store.WithTx(ctx, func(tx Tx) error {
		return tx.InsertDebtor(ctx, d)
	})
	if err != nil {
		return nil, fmt.Errorf("creating debtor: %w", err)
	}
	return d, nil
}

func (s *Service) ListDebtors(ctx context.Context, ownerID uuid.UUID) ([]Debtor, error) {
	debtors, err := s.store.ListDebtors(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing debtors: %w", err)
	}
	return debtors, nil
}

func (s *Service) GetDebtor(ctx context.Context, ownerID, id uuid.UUID) (*Debtor, error) {
	d, err := s.store.GetDebtor(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("fetching debtor: %w", err)
	}
	if d == nil {
		return nil, ErrDebtorNotFound
	}
	return d, nil
}

type CreateInput struct {
	DebtorID    uuid.UUID
	Reason      string
	TotalAmount decimal.Decimal
	DebtDate    time.Time
	Notes       string
}

func (s *Service) CreateDebt(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*Debt, error) {
	debtor, err := s.GetDebtor(ctx, ownerID, in.DebtorID)
	if err != nil {
		return nil, err
	}

	debtDate := in.DebtDate
	if debtDate.IsZero() {
		debtDate = s.today()
	}
	d, err := NewDebt(ownerID, debtor.ID, in.Reason, in.TotalAmount, debtDate)
	if err != nil {
		return nil, err
	}
	d.DebtorName = debtor.FullName()
	d.Notes = in.Notes

	err = s.store.WithTx(ctx, func(tx Tx) error {
		return tx.Insert(ctx, d)
	})
	if err != nil {
		return nil, fmt.Errorf("creating debt: %w", err)
	}

	s.record(ownerID, ledger.EventDebtCreated, ledger.ObligationEvent{
		ObligationID: d.ID,
		Total:        d.TotalAmount,
		Status:       string(d.Status),
	})
	return d, nil
}

func (s *Service) GetDebt(ctx context.Context, ownerID, id uuid.UUID) (*Debt, error) {
	d, err := s.store.Get(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("fetching debt: %w", err)
	}
	if d == nil {
		return nil, ErrNotFound
	}
	return d, nil
}

// ListDebts returns the owner's debts, most recent debt date first.
func (s *Service) ListDebts(ctx context.Context, ownerID uuid.UUID) ([]Debt, error) {
	debts, err := s.store.List(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing debts: %w", err)
	}
	return debts, nil
}

func (s *Service) ListByDebtor(ctx context.Context, ownerID, debtorID uuid.UUID) ([]Debt, error) {
	if _, err := s.GetDebtor(ctx, ownerID, debtorID); err != nil {
		return nil, err
	}
	debts, err := s.store.ListByDebtor(ctx, ownerID, debtorID)
	if err != nil {
		return nil, fmt.Errorf("listing debts of debtor: %w", err)
	}
	return debts, nil
}

// Changes holds the editable fields of a debt. Nil pointers leave a field
// untouched.
type Changes struct {
	DebtorID    *uuid.UUID
	Reason      *string
	TotalAmount *decimal.Decimal
	DebtDate    *time.Time
	Notes       *string
}

func (s *Service) UpdateDebt(ctx context.Context, ownerID, id uuid.UUID, c Changes) (*Debt, error) {
	var debtor *Debtor
	if c.DebtorID != nil {
		d, err := s.GetDebtor(ctx, ownerID, *c.DebtorID)
		if err != nil {
			return nil, err
		}
		debtor = d
	}
	if c.Reason != nil && strings.TrimSpace(*c.Reason) == "" {
		return nil, ErrBlankReason
	}

	var updated *Debt
	err := s.store.WithTx(ctx, func(tx Tx) error {
		d, err := tx.Lock(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if d == nil {
			return ErrNotFound
		}

		if debtor != nil {
			d.DebtorID = debtor.ID
			d.DebtorName = debtor.FullName()
		}
		if c.Reason != nil {
			d.Reason = strings.TrimSpace(*c.Reason)
		}
		if c.DebtDate != nil {
			d.DebtDate = civil(*c.DebtDate)
		}
		if c.Notes != nil {
			d.Notes = *c.Notes
		}
		if c.TotalAmount != nil {
			amounts, err := tx.PaymentAmounts(ctx, d.ID)
			if err != nil {
				return err
			}
			if err := d.ChangeTotal(*c.TotalAmount, amounts); err != nil {
				return err
			}
		}
		d.UpdatedAt = time.Now().UTC()

		if err := tx.Update(ctx, d); err != nil {
			return err
		}
		updated = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.record(ownerID, ledger.EventDebtUpdated, ledger.ObligationEvent{
		ObligationID: updated.ID,
		Total:        updated.TotalAmount,
		Status:       string(updated.Status),
	})
	return updated, nil
}

// DeleteDebt removes the debt and its payments.
func (s *Service) DeleteDebt(ctx context.Context, ownerID, id uuid.UUID) error {
	err := s.store.WithTx(ctx, func(tx Tx) error {
		d, err := tx.Lock(ctx, ownerID, id)
		if err != nil {
			return err
		}
		if d == nil {
			return ErrNotFound
		}
		return tx.Delete(ctx, id)
	})
	if err != nil {
		return err
	}

	s.record(ownerID, ledger.EventDebtDeleted, map[string]string{"debt_id": id.String()})
	return nil
}

type PaymentInput struct {
	Amount        decimal.Decimal
	PaymentDate   time.Time
	PaymentReason string
	Notes         string
}

// Pay registers a payment against the debt. Paying exactly the remaining
// amount settles it; anything above is rejected with a *ledger.PaymentError
// and nothing is written.
func (s *Service) Pay(ctx context.Context, ownerID, debtID uuid.UUID, in PaymentInput) (*Payment, *Debt, error) {
	if err := money.Validate(in.Amount); err != nil {
		return nil, nil, err
	}

	var (
		payment *Payment
		updated *Debt
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		d, err := tx.Lock(ctx, ownerID, debtID)
		if err != nil {
			return err
		}
		if d == nil {
			return ErrNotFound
		}
		if err := d.ApplyPayment(in.Amount); err != nil {
			return err
		}
		d.UpdatedAt = time.Now().UTC()

		paymentDate := in.PaymentDate
		if paymentDate.IsZero() {
			paymentDate = s.today()
		}
		p := &Payment{
			ID:            uuid.New(),
			DebtID:        d.ID,
			Amount:        in.Amount,
			PaymentDate:   civil(paymentDate),
			PaymentReason: strings.TrimSpace(in.PaymentReason),
			Notes:         in.Notes,
			CreatedAt:     time.Now().UTC(),
		}
		if err := tx.InsertPayment(ctx, p); err != nil {
			return err
		}
		if err := tx.Update(ctx, d); err != nil {
			return err
		}
		payment, updated = p, d
		return nil
	})
	if err != nil {
		return nil, nil, err
	}

	slog.Info("debt payment registered", "debt_id", updated.ID, "amount", money.Format(payment.Amount), "status", updated.Status)
	s.record(ownerID, ledger.EventDebtPaid, ledger.PaymentRegisteredEvent{
		ObligationID: updated.ID,
		PaymentID:    payment.ID,
		Amount:       payment.Amount,
		PaymentDate:  payment.PaymentDate,
		Remaining:    updated.RemainingAmount,
		Status:       string(updated.Status),
	})
	return payment, updated, nil
}

// DeletePayment deletes a payment and rebuilds the parent debt from the
// payments left. Both writes commit together or not at all.
func (s *Service) DeletePayment(ctx context.Context, ownerID, paymentID uuid.UUID) (*Debt, error) {
	var (
		removed *Payment
		updated *Debt
	)
	err := s.store.WithTx(ctx, func(tx Tx) error {
		p, err := tx.LockPayment(ctx, ownerID, paymentID)
		if err != nil {
			return err
		}
		if p == nil {
			return ErrPaymentNotFound
		}
		d, err := tx.Lock(ctx, ownerID, p.DebtID)
		if err != nil {
			return err
		}
		if d == nil {
			return ErrPaymentNotFound
		}

		if err := tx.DeletePayment(ctx, p.ID); err != nil {
			return err
		}
		amounts, err := tx.PaymentAmounts(ctx, d.ID)
		if err != nil {
			return err
		}
		d.Reconcile(amounts)
		d.UpdatedAt = time.Now().UTC()
		if err := tx.Update(ctx, d); err != nil {
			return err
		}
		removed, updated = p, d
		return nil
	})
	if err != nil {
		return nil, err
	}

	slog.Info("debt reconciled after payment removal", "debt_id", updated.ID, "remaining", money.Format(updated.RemainingAmount))
	s.record(ownerID, ledger.EventDebtPaymentRemoved, ledger.PaymentRemovedEvent{
		ObligationID: updated.ID,
		PaymentID:    removed.ID,
		Amount:       removed.Amount,
		Remaining:    updated.RemainingAmount,
		Status:       string(updated.Status),
	})
	return updated, nil
}

// ListPayments returns the payments of one debt, newest payment date first.
func (s *Service) ListPayments(ctx context.Context, ownerID, debtID uuid.UUID) ([]Payment, error) {
	if _, err := s.GetDebt(ctx, ownerID, debtID); err != nil {
		return nil, err
	}
	payments, err := s.store.Payments(ctx, debtID)
	if err != nil {
		return nil, fmt.Errorf("listing debt payments: %w", err)
	}
	sort.SliceStable(payments, func(i, j int) bool {
		return payments[i].PaymentDate.After(payments[j].PaymentDate)
	})
	return payments, nil
}

func (s *Service) Summary(ctx context.Context, ownerID uuid.UUID) (Summary, error) {
	debtors, err := s.store.ListDebtors(ctx, ownerID)
	if err != nil {
		return Summary{}, fmt.Errorf("listing debtors: %w", err)
	}
	debts, err := s.store.List(ctx, ownerID)
	if err != nil {
		return Summary{}, fmt.Errorf("listing debts: %w", err)
	}
	return Summarize(debtors, debts), nil
}

// PaymentReport collects the payments across all debts of one debtor. A
// debtor without debts yields an empty report.
func (s *Service) PaymentReport(ctx context.Context, ownerID, debtorID uuid.UUID) (*Report, error) {
	debtor, err := s.GetDebtor(ctx, ownerID, debtorID)
	if err != nil {
		return nil, err
	}
	debts, err := s.store.ListByDebtor(ctx, ownerID, debtorID)
	if err != nil {
		return nil, fmt.Errorf("listing debts of debtor: %w", err)
	}
	payments, err := s.store.PaymentsByDebtor(ctx, ownerID, debtorID)
	if err != nil {
		return nil, fmt.Errorf("listing payments of debtor: %w", err)
	}
	r := BuildReport(*debtor, debts, payments)
	return &r, nil
}

func (s *Service) record(ownerID uuid.UUID, eventType string, data any) {
	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventType),
		eventlogger.WithData(data),
		eventlogger.WithOwner(ownerID),
	))
}
