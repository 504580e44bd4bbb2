package income

import (
	"context"
	"fmt"
	"time"

	"github.com/billbatista/acasinha-finance/eventlogger"
	"github.com/billbatista/acasinha-finance/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Filter restricts a listing to incomes dated within [From, To]. Zero values
// leave that side open.
type Filter struct {
	From time.Time
	To   time.Time
}

// Store persists incomes. GetType and Get return nil, nil when nothing
// visible to ownerID matches; Update and Delete report false when the row is
// gone.
type Store interface {
	GetType(ctx context.Context, id uuid.UUID) (*Type, error)
	ListTypes(ctx context.Context, ownerID uuid.UUID) ([]Type, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*Income, error)
	List(ctx context.Context, ownerID uuid.UUID, f Filter) ([]Income, error)
	Insert(ctx context.Context, in *Income) error
	Update(ctx context.Context, in *Income) (bool, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) (bool, error)
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

// WithLocation sets the time zone used to pick the default income date.
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

func (s *Service) ListTypes(ctx context.Context, ownerID uuid.UUID) ([]Type, error) {
	types, err := s.store.ListTypes(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing income types: %w", err)
	}
	return types, nil
}

func (s *Service) visibleType(ctx context.Context, ownerID, id uuid.UUID) (*Type, error) {
	t, err := s.store.GetType(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching income type: %w", err)
	}
	if t == nil || !t.VisibleTo(ownerID) {
		return nil, ErrTypeNotFound
	}
	return t, nil
}

type CreateInput struct {
	TypeID     uuid.UUID
	Amount     decimal.Decimal
	IncomeDate time.Time
	Notes      string
}

func (s *Service) Create(ctx context.Context, ownerID uuid.UUID, in CreateInput) (*Income, error) {
	t, err := s.visibleType(ctx, ownerID, in.TypeID)
	if err != nil {
		return nil, err
	}
	inc, err := NewIncome(ownerID, t, in.Amount, in.IncomeDate, s.today(), in.Notes)
	if err != nil {
		return nil, err
	}
	if err := s.store.Insert(ctx, inc); err != nil {
		return nil, err
	}

	s.record(ownerID, EventIncomeCreated, inc)
	return inc, nil
}

func (s *Service) Get(ctx context.Context, ownerID, id uuid.UUID) (*Income, error) {
	inc, err := s.store.Get(ctx, ownerID, id)
	if err != nil {
		return nil, fmt.Errorf("fetching income: %w", err)
	}
	if inc == nil {
		return nil, ErrNotFound
	}
	return inc, nil
}

// List returns the owner's incomes, newest income date first.
func (s *Service) List(ctx context.Context, ownerID uuid.UUID, f Filter) ([]Income, error) {
	incomes, err := s.store.List(ctx, ownerID, f)
	if err != nil {
		return nil, fmt.Errorf("listing incomes: %w", err)
	}
	return incomes, nil
}

// Changes holds the editable fields. Nil pointers leave a field untouched.
type Changes struct {
	TypeID     *uuid.UUID
	Amount     *decimal.Decimal
	IncomeDate *time.Time
	Notes      *string
}

func (s *Service) Update(ctx context.Context, ownerID, id uuid.UUID, c Changes) (*Income, error) {
	inc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	if c.TypeID != nil {
		t, err := s.visibleType(ctx, ownerID, *c.TypeID)
		if err != nil {
			return nil, err
		}
		inc.TypeID, inc.TypeName = t.ID, t.Name
	}
	if c.Amount != nil {
		if err := money.Validate(*c.Amount); err != nil {
			return nil, err
		}
		inc.Amount = *c.Amount
	}
	if c.IncomeDate != nil {
		inc.IncomeDate = civil(*c.IncomeDate)
	}
	if c.Notes != nil {
		inc.Notes = *c.Notes
	}
	inc.UpdatedAt = time.Now().UTC()

	ok, err := s.store.Update(ctx, inc)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNotFound
	}

	s.record(ownerID, EventIncomeUpdated, inc)
	return inc, nil
}

func (s *Service) Delete(ctx context.Context, ownerID, id uuid.UUID) error {
	ok, err := s.store.Delete(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if !ok {
		return ErrNotFound
	}

	s.record(ownerID, EventIncomeDeleted, map[string]string{"income_id": id.String()})
	return nil
}

func (s *Service) MonthlySummary(ctx context.Context, ownerID uuid.UUID, year, month int) (*MonthlySummary, error) {
	if year <= 0 || month < 1 || month > 12 {
		return nil, ErrInvalidPeriod
	}
	from := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, time.UTC)
	incomes, err := s.List(ctx, ownerID, Filter{From: from, To: from.AddDate(0, 1, -1)})
	if err != nil {
		return nil, err
	}
	sum := SummarizeMonth(year, month, incomes)
	return &sum, nil
}

func (s *Service) YearlySummary(ctx context.Context, ownerID uuid.UUID, year int) (*YearlySummary, error) {
	if year <= 0 {
		return nil, ErrInvalidPeriod
	}
	from := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	incomes, err := s.List(ctx, ownerID, Filter{From: from, To: from.AddDate(1, 0, -1)})
	if err != nil {
		return nil, err
	}
	sum := SummarizeYear(year, incomes)
	return &sum, nil
}

func (s *Service) record(ownerID uuid.UUID, eventType string, data any) {
	s.events.Log(eventlogger.NewEvent(
		eventlogger.WithType(eventType),
		eventlogger.WithData(data),
		eventlogger.WithOwner(ownerID),
	))
}
