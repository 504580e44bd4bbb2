package expense

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/billbatista/acasinha-finance/category"
	"github.com/billbatista/acasinha-finance/eventlogger"
	"github.com/billbatista/acasinha-finance/ledger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memState struct {
	expenses map[uuid.UUID]Expense
	payments map[uuid.UUID]Payment
}

func (s memState) clone() memState {
	c := memState{expenses: map[uuid.UUID]Expense{}, payments: map[uuid.UUID]Payment{}}
	for k, v := range s.expenses {
		c.expenses[k] = v
	}
	for k, v := range s.payments {
		c.payments[k] = v
	}
	return c
}

// memStore keeps committed state and applies a transaction to a copy that
// replaces it only on success.
type memStore struct {
	mu          sync.Mutex
	state       memState
	failUpdate  bool
	statusSaves int
}

func newMemStore() *memStore {
	return &memStore{state: memState{expenses: map[uuid.UUID]Expense{}, payments: map[uuid.UUID]Payment{}}}
}

func (m *memStore) Get(_ context.Context, ownerID, id uuid.UUID) (*Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.state.expenses[id]
	if !ok || e.OwnerID != ownerID {
		return nil, nil
	}
	return &e, nil
}

func (m *memStore) List(_ context.Context, ownerID uuid.UUID, f Filter) ([]Expense, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Expense, 0)
	for _, e := range m.state.expenses {
		if e.OwnerID != ownerID {
			continue
		}
		if !f.DueFrom.IsZero() && e.DueDate.Before(f.DueFrom) {
			continue
		}
		if !f.DueTo.IsZero() && e.DueDate.After(f.DueTo) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func (m *memStore) SaveStatus(_ context.Context, e *Expense) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored := m.state.expenses[e.ID]
	stored.Status = e.Status
	m.state.expenses[e.ID] = stored
	m.statusSaves++
	return nil
}

func (m *memStore) Payments(_ context.Context, expenseID uuid.UUID) ([]Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Payment, 0)
	for _, p := range m.state.payments {
		if p.ExpenseID == expenseID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *memStore) WithTx(_ context.Context, fn func(tx Tx) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	work := &memTx{state: m.state.clone(), failUpdate: m.failUpdate}
	if err := fn(work); err != nil {
		return err
	}
	m.state = work.state
	return nil
}

type memTx struct {
	state      memState
	failUpdate bool
}

func (t *memTx) Lock(_ context.Context, ownerID, id uuid.UUID) (*Expense, error) {
	e, ok := t.state.expenses[id]
	if !ok || e.OwnerID != ownerID {
		return nil, nil
	}
	return &e, nil
}

func (t *memTx) Insert(_ context.Context, e *Expense) error {
	t.state.expenses[e.ID] = *e
	return nil
}

func (t *memTx) Update(_ context.Context, e *Expense) error {
	if t.failUpdate {
		return errors.New("disk full")
	}
	t.state.expenses[e.ID] = *e
	return nil
}

func (t *memTx) Delete(_ context.Context, id uuid.UUID) error {
	delete(t.state.expenses, id)
	for pid, p := range t.state.payments {
		if p.ExpenseID == id {
			delete(t.state.payments, pid)
		}
	}
	return nil
}

func (t *memTx) InsertPayment(_ context.Context, p *Payment) error {
	t.state.payments[p.ID] = *p
	return nil
}

func (t *memTx) LockPayment(_ context.Context, ownerID, paymentID uuid.UUID) (*Payment, error) {
	p, ok := t.state.payments[paymentID]
	if !ok || t.state.expenses[p.ExpenseID].OwnerID != ownerID {
		return nil, nil
	}
	return &p, nil
}

func (t *memTx) DeletePayment(_ context.Context, id uuid.UUID) error {
	delete(t.state.payments, id)
	return nil
}

func (t *memTx) PaymentAmounts(_ context.Context, expenseID uuid.UUID) ([]decimal.Decimal, error) {
	out := make([]decimal.Decimal, 0)
	for _, p := range t.state.payments {
		if p.ExpenseID == expenseID {
			out = append(out, p.Amount)
		}
	}
	return out, nil
}

type stubDetails struct {
	detail category.Detail
}

func (s stubDetails) VisibleDetail(_ context.Context, userID, id uuid.UUID) (*category.Detail, error) {
	if id != s.detail.ID || !category.VisibleTo(s.detail.Owner, userID) {
		return nil, category.ErrDetailNotFound
	}
	d := s.detail
	return &d, nil
}

type memRecorder struct {
	events []eventlogger.Event
}

func (r *memRecorder) Log(e eventlogger.Event) { r.events = append(r.events, e) }

func (r *memRecorder) types() []string {
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	svc    *Service
	store  *memStore
	events *memRecorder
	detail category.Detail
	owner  uuid.UUID
	clock  *time.Time
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	now := time.Date(2025, time.March, 10, 9, 0, 0, 0, time.UTC)
	f := &fixture{
		store:  newMemStore(),
		events: &memRecorder{},
		detail: category.Detail{ID: uuid.New(), Owner: category.System{}, Name: "Rent"},
		owner:  uuid.New(),
		clock:  &now,
	}
	f.svc = NewService(f.store, stubDetails{detail: f.detail},
		WithClock(func() time.Time { return *f.clock }),
		WithEvents(f.events),
	)
	return f
}

func (f *fixture) create(t *testing.T, amount string, dueInDays int) *Expense {
	t.Helper()
	e, err := f.svc.Create(context.Background(), f.owner, CreateInput{
		DetailID: f.detail.ID,
		Amount:   dec(amount),
		DueDate:  f.clock.AddDate(0, 0, dueInDays),
	})
	require.NoError(t, err)
	return e
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func assertBalanced(t *testing.T, e *Expense) {
	t.Helper()
	assert.True(t, e.PaidAmount.Add(e.PendingAmount).Equal(e.Amount),
		"paid %s + pending %s != amount %s", e.PaidAmount, e.PendingAmount, e.Amount)
}

func TestExpenseLifecycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	e := f.create(t, "100", 10)
	assert.Equal(t, ledger.StatusUpcoming, e.Status)
	assert.True(t, e.PendingAmount.Equal(dec("100")))
	assert.Equal(t, "Rent", e.DetailName)

	_, e, err := f.svc.Pay(ctx, f.owner, e.ID, PaymentInput{Amount: dec("30")})
	require.NoError(t, err)
	assert.True(t, e.PaidAmount.Equal(dec("30")))
	assert.True(t, e.PendingAmount.Equal(dec("70")))
	assert.Equal(t, ledger.StatusPartial, e.Status)
	assertBalanced(t, e)

	second, e, err := f.svc.Pay(ctx, f.owner, e.ID, PaymentInput{Amount: dec("70")})
	require.NoError(t, err)
	assert.True(t, e.PaidAmount.Equal(dec("100")))
	assert.True(t, e.PendingAmount.IsZero())
	assert.Equal(t, ledger.StatusCompleted, e.Status)

	// completed stays completed on later reads, even past the due date
	*f.clock = f.clock.AddDate(0, 1, 0)
	got, err := f.svc.Get(ctx, f.owner, e.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCompleted, got.Status)

	// removing a payment rebuilds the balance from the remaining history
	got, err = f.svc.DeletePayment(ctx, f.owner, second.ID)
	require.NoError(t, err)
	assert.True(t, got.PaidAmount.Equal(dec("30")))
	assert.True(t, got.PendingAmount.Equal(dec("70")))
	assert.Equal(t, ledger.StatusPartial, got.Status)
	assertBalanced(t, got)

	assert.Equal(t, []string{
		ledger.EventExpenseCreated,
		ledger.EventExpensePaid,
		ledger.EventExpensePaid,
		ledger.EventExpensePaymentRemoved,
	}, f.events.types())
}

func TestPayRejectsOverCapacity(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, "100", 10)

	_, e, err := f.svc.Pay(ctx, f.owner, e.ID, PaymentInput{Amount: dec("40")})
	require.NoError(t, err)

	_, _, err = f.svc.Pay(ctx, f.owner, e.ID, PaymentInput{Amount: dec("60.01")})
	require.ErrorIs(t, err, ledger.ErrInvalidPayment)

	var perr *ledger.PaymentError
	require.ErrorAs(t, err, &perr)
	assert.True(t, perr.Remaining.Equal(dec("60")))

	got, err := f.svc.Get(ctx, f.owner, e.ID)
	require.NoError(t, err)
	assert.True(t, got.PendingAmount.Equal(dec("60")))

	payments, err := f.svc.ListPayments(ctx, f.owner, e.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestPayIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, "100", 10)

	f.store.failUpdate = true
	_, _, err := f.svc.Pay(ctx, f.owner, e.ID, PaymentInput{Amount: dec("10")})
	require.Error(t, err)
	f.store.failUpdate = false

	payments, err := f.svc.ListPayments(ctx, f.owner, e.ID)
	require.NoError(t, err)
	assert.Empty(t, payments)

	got, err := f.svc.Get(ctx, f.owner, e.ID)
	require.NoError(t, err)
	assert.True(t, got.PaidAmount.IsZero())
}

func TestDeletePaymentKeepsPaymentWhenRecomputeFails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, "100", 10)

	p, _, err := f.svc.Pay(ctx, f.owner, e.ID, PaymentInput{Amount: dec("25")})
	require.NoError(t, err)

	f.store.failUpdate = true
	_, err = f.svc.DeletePayment(ctx, f.owner, p.ID)
	require.Error(t, err)

	payments, err := f.svc.ListPayments(ctx, f.owner, e.ID)
	require.NoError(t, err)
	assert.Len(t, payments, 1)
}

func TestOwnershipScopesEveryOperation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, "100", 10)
	p, _, err := f.svc.Pay(ctx, f.owner, e.ID, PaymentInput{Amount: dec("10")})
	require.NoError(t, err)

	stranger := uuid.New()

	_, err = f.svc.Get(ctx, stranger, e.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = f.svc.Pay(ctx, stranger, e.ID, PaymentInput{Amount: dec("1")})
	assert.ErrorIs(t, err, ErrNotFound)

	_, err = f.svc.DeletePayment(ctx, stranger, p.ID)
	assert.ErrorIs(t, err, ErrPaymentNotFound)

	assert.ErrorIs(t, f.svc.Delete(ctx, stranger, e.ID), ErrNotFound)

	_, err = f.svc.Create(ctx, f.owner, CreateInput{DetailID: uuid.New(), Amount: dec("1"), DueDate: *f.clock})
	assert.ErrorIs(t, err, category.ErrDetailNotFound)
}

func TestGetRefreshesStaleStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, "100", 6)
	assert.Equal(t, ledger.StatusUpcoming, e.Status)

	*f.clock = f.clock.AddDate(0, 0, 1)
	got, err := f.svc.Get(ctx, f.owner, e.ID)
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusNearDue, got.Status)
	assert.Equal(t, 1, f.store.statusSaves)

	*f.clock = f.clock.AddDate(0, 0, 6)
	list, err := f.svc.List(ctx, f.owner, Filter{Status: ledger.StatusOverdue})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, ledger.StatusOverdue, f.store.state.expenses[e.ID].Status)
}

func TestUpdateAmount(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, "100", 10)
	_, _, err := f.svc.Pay(ctx, f.owner, e.ID, PaymentInput{Amount: dec("60")})
	require.NoError(t, err)

	lower := dec("50")
	_, err = f.svc.Update(ctx, f.owner, e.ID, Changes{Amount: &lower})
	assert.ErrorIs(t, err, ErrAmountBelowPaid)

	exact := dec("60")
	got, err := f.svc.Update(ctx, f.owner, e.ID, Changes{Amount: &exact})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusCompleted, got.Status)
	assert.True(t, got.PendingAmount.IsZero())

	higher := dec("200")
	notes := "renegotiated"
	got, err = f.svc.Update(ctx, f.owner, e.ID, Changes{Amount: &higher, Notes: &notes})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusPartial, got.Status)
	assert.True(t, got.PendingAmount.Equal(dec("140")))
	assert.Equal(t, "renegotiated", got.Notes)
	assertBalanced(t, got)
}

func TestUpdateDueDateRederivesStatus(t *testing.T) {
	f := newFixture(t)
	e := f.create(t, "100", 10)

	due := f.clock.AddDate(0, 0, -1)
	got, err := f.svc.Update(context.Background(), f.owner, e.ID, Changes{DueDate: &due})
	require.NoError(t, err)
	assert.Equal(t, ledger.StatusOverdue, got.Status)
}

func TestDeleteCascadesPayments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, "100", 10)
	_, _, err := f.svc.Pay(ctx, f.owner, e.ID, PaymentInput{Amount: dec("10")})
	require.NoError(t, err)

	require.NoError(t, f.svc.Delete(ctx, f.owner, e.ID))
	assert.Empty(t, f.store.state.expenses)
	assert.Empty(t, f.store.state.payments)
}

func TestPendingAndSummary(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	later := f.create(t, "300", 20)
	soon := f.create(t, "100", 2)
	done := f.create(t, "50", 1)
	_, _, err := f.svc.Pay(ctx, f.owner, done.ID, PaymentInput{Amount: dec("50")})
	require.NoError(t, err)
	_, _, err = f.svc.Pay(ctx, f.owner, later.ID, PaymentInput{Amount: dec("0.50")})
	require.NoError(t, err)

	pending, err := f.svc.Pending(ctx, f.owner)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, soon.ID, pending[0].ID)
	assert.Equal(t, later.ID, pending[1].ID)

	sum, err := f.svc.Summary(ctx, f.owner, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, sum.Total)
	assert.True(t, sum.TotalAmount.Equal(dec("450")))
	assert.True(t, sum.TotalPaid.Equal(dec("50.50")))
	assert.True(t, sum.TotalPending.Equal(dec("399.50")))
	assert.Equal(t, 1, sum.ByStatus[ledger.StatusCompleted])
	assert.Equal(t, 1, sum.ByStatus[ledger.StatusPartial])
	assert.Equal(t, 1, sum.ByStatus[ledger.StatusNearDue])
	assert.Equal(t, 0, sum.ByStatus[ledger.StatusOverdue])

	// due dates of the fixture expenses fall in March 2025
	march, err := f.svc.Summary(ctx, f.owner, 3, 2025)
	require.NoError(t, err)
	assert.Equal(t, 3, march.Total)

	april, err := f.svc.Summary(ctx, f.owner, 4, 2025)
	require.NoError(t, err)
	assert.Equal(t, 0, april.Total)

	_, err = f.svc.Summary(ctx, f.owner, 13, 2025)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
	_, err = f.svc.Summary(ctx, f.owner, 3, 0)
	assert.ErrorIs(t, err, ErrInvalidPeriod)
}

func TestListPaymentsNewestFirst(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	e := f.create(t, "100", 10)

	first := f.clock.AddDate(0, 0, -3)
	last := f.clock.AddDate(0, 0, -1)
	_, _, err := f.svc.Pay(ctx, f.owner, e.ID, PaymentInput{Amount: dec("10"), PaymentDate: first})
	require.NoError(t, err)
	_, _, err = f.svc.Pay(ctx, f.owner, e.ID, PaymentInput{Amount: dec("10"), PaymentDate: last})
	require.NoError(t, err)

	payments, err := f.svc.ListPayments(ctx, f.owner, e.ID)
	require.NoError(t, err)
	require.Len(t, payments, 2)
	assert.True(t, payments[0].PaymentDate.After(payments[1].PaymentDate))
}
