package income

import (
	"errors"
	"sort"
	"time"

	"github.com/billbatista/acasinha-finance/money"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventIncomeCreated = "income.created"
	EventIncomeUpdated = "income.updated"
	EventIncomeDeleted = "income.deleted"
)

var (
	ErrNotFound      = errors.New("income not found")
	ErrTypeNotFound  = errors.New("income type not found")
	ErrInvalidPeriod = errors.New("year is required and month must be between 1 and 12")
)

// Type is an income category. System types have no owner and are shared by
// every user.
type Type struct {
	ID          uuid.UUID     `json:"id"`
	OwnerID     uuid.NullUUID `json:"-"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	IsActive    bool          `json:"is_active"`
	CreatedAt   time.Time     `json:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at"`
}

func (t Type) IsSystem() bool {
	return !t.OwnerID.Valid
}

func (t Type) VisibleTo(userID uuid.UUID) bool {
	return t.IsSystem() || t.OwnerID.UUID == userID
}

type Income struct {
	ID         uuid.UUID       `json:"id"`
	OwnerID    uuid.UUID       `json:"owner_id"`
	TypeID     uuid.UUID       `json:"income_type_id"`
	TypeName   string          `json:"income_type_name,omitempty"`
	Amount     decimal.Decimal `json:"amount"`
	IncomeDate time.Time       `json:"income_date"`
	Notes      string          `json:"notes"`
	CreatedAt  time.Time       `json:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at"`
}

// NewIncome builds an income of type t. A zero date means today.
func NewIncome(ownerID uuid.UUID, t *Type, amount decimal.Decimal, date, today time.Time, notes string) (*Income, error) {
	if err := money.Validate(amount); err != nil {
		return nil, err
	}
	if date.IsZero() {
		date = today
	}

	now := time.Now().UTC()
	return &Income{
		ID:         uuid.New(),
		OwnerID:    ownerID,
		TypeID:     t.ID,
		TypeName:   t.Name,
		Amount:     amount,
		IncomeDate: civil(date),
		Notes:      notes,
		CreatedAt:  now,
		UpdatedAt:  now,
	}, nil
}

type TypeTotal struct {
	TypeID   uuid.UUID       `json:"income_type_id"`
	TypeName string          `json:"income_type_name"`
	Total    decimal.Decimal `json:"total"`
	Count    int             `json:"count"`
}

type DayTotal struct {
	Date  string          `json:"date"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

type MonthlySummary struct {
	Year        int             `json:"year"`
	Month       int             `json:"month"`
	TotalIncome decimal.Decimal `json:"total_income"`
	ByType      []TypeTotal     `json:"incomes_by_type"`
	ByDay       []DayTotal      `json:"incomes_by_day"`
}

type MonthTotal struct {
	Month int             `json:"month"`
	Total decimal.Decimal `json:"total"`
	Count int             `json:"count"`
}

type YearlySummary struct {
	Year        int             `json:"year"`
	TotalIncome decimal.Decimal `json:"total_income"`
	ByMonth     []MonthTotal    `json:"incomes_by_month"`
}

// SummarizeMonth totals incomes by type, largest first, and by day in
// calendar order. Days without income are left out.
func SummarizeMonth(year, month int, incomes []Income) MonthlySummary {
	s := MonthlySummary{
		Year:        year,
		Month:       month,
		TotalIncome: decimal.Zero,
		ByType:      make([]TypeTotal, 0),
		ByDay:       make([]DayTotal, 0),
	}

	types := make(map[uuid.UUID]int)
	days := make(map[string]int)
	for _, in := range incomes {
		s.TotalIncome = s.TotalIncome.Add(in.Amount)

		i, ok := types[in.TypeID]
		if !ok {
			i = len(s.ByType)
			types[in.TypeID] = i
			s.ByType = append(s.ByType, TypeTotal{TypeID: in.TypeID, TypeName: in.TypeName, Total: decimal.Zero})
		}
		s.ByType[i].Total = s.ByType[i].Total.Add(in.Amount)
		s.ByType[i].Count++

		day := in.IncomeDate.Format(time.DateOnly)
		j, ok := days[day]
		if !ok {
			j = len(s.ByDay)
			days[day] = j
			s.ByDay = append(s.ByDay, DayTotal{Date: day, Total: decimal.Zero})
		}
		s.ByDay[j].Total = s.ByDay[j].Total.Add(in.Amount)
		s.ByDay[j].Count++
	}

	sort.SliceStable(s.ByType, func(i, j int) bool {
		if c := s.ByType[i].Total.Cmp(s.ByType[j].Total); c != 0 {
			return c > 0
		}
		return s.ByType[i].TypeName < s.ByType[j].TypeName
	})
	sort.Slice(s.ByDay, func(i, j int) bool { return s.ByDay[i].Date < s.ByDay[j].Date })
	return s
}

// SummarizeYear totals incomes per calendar month. All twelve months are
// present, empty ones with a zero total.
func SummarizeYear(year int, incomes []Income) YearlySummary {
	s := YearlySummary{
		Year:        year,
		TotalIncome: decimal.Zero,
		ByMonth:     make([]MonthTotal, 12),
	}
	for i := range s.ByMonth {
		s.ByMonth[i] = MonthTotal{Month: i + 1, Total: decimal.Zero}
	}
	for _, in := range incomes {
		if in.IncomeDate.Year() != year {
			continue
		}
		m := &s.ByMonth[in.IncomeDate.Month()-1]
		m.Total = m.Total.Add(in.Amount)
		m.Count++
		s.TotalIncome = s.TotalIncome.Add(in.Amount)
	}
	return s
}

func civil(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
