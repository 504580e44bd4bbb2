package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/billbatista/acasinha-finance/auth"
	"github.com/billbatista/acasinha-finance/category"
	"github.com/billbatista/acasinha-finance/debt"
	"github.com/billbatista/acasinha-finance/eventlogger"
	"github.com/billbatista/acasinha-finance/expense"
	"github.com/billbatista/acasinha-finance/income"
	"github.com/billbatista/acasinha-finance/ledger"
	"github.com/billbatista/acasinha-finance/middleware"
	"github.com/billbatista/acasinha-finance/money"
	"github.com/billbatista/acasinha-finance/user"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

var errBadRequest = errors.New("bad request")

type AuthService interface {
	Register(ctx context.Context, reg user.Registration) (*user.User, error)
	Login(ctx context.Context, email, password string) (*auth.Session, error)
	Me(ctx context.Context, userID uuid.UUID) (*user.User, error)
	UpdateProfile(ctx context.Context, userID uuid.UUID, firstName, lastName string) (*user.User, error)
	ForgotPassword(ctx context.Context, email string) error
	VerifyResetCode(ctx context.Context, email, code string) error
	ResetPassword(ctx context.Context, email, code, newPassword string) error
}

type CategoryService interface {
	CreateType(ctx context.Context, userID uuid.UUID, name, description string) (*category.ExpenseType, error)
	ListTypes(ctx context.Context, userID uuid.UUID) ([]category.ExpenseType, error)
	GetType(ctx context.Context, userID, id uuid.UUID) (*category.ExpenseType, error)
	DeleteType(ctx context.Context, userID, id uuid.UUID) error
	CreateDetail(ctx context.Context, userID, typeID uuid.UUID, name, description string) (*category.Detail, error)
	ListDetails(ctx context.Context, userID, typeID uuid.UUID) ([]category.Detail, error)
	VisibleDetail(ctx context.Context, userID, id uuid.UUID) (*category.Detail, error)
	DeleteDetail(ctx context.Context, userID, id uuid.UUID) error
}

type ExpenseService interface {
	Create(ctx context.Context, ownerID uuid.UUID, in expense.CreateInput) (*expense.Expense, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*expense.Expense, error)
	List(ctx context.Context, ownerID uuid.UUID, f expense.Filter) ([]expense.Expense, error)
	Pending(ctx context.Context, ownerID uuid.UUID) ([]expense.Expense, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, c expense.Changes) (*expense.Expense, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	Pay(ctx context.Context, ownerID, expenseID uuid.UUID, in expense.PaymentInput) (*expense.Payment, *expense.Expense, error)
	DeletePayment(ctx context.Context, ownerID, paymentID uuid.UUID) (*expense.Expense, error)
	ListPayments(ctx context.Context, ownerID, expenseID uuid.UUID) ([]expense.Payment, error)
	Summary(ctx context.Context, ownerID uuid.UUID, month, year int) (*expense.Summary, error)
}

type DebtService interface {
	CreateDebtor(ctx context.Context, ownerID uuid.UUID, in debt.DebtorInput) (*debt.Debtor, error)
	ListDebtors(ctx context.Context, ownerID uuid.UUID) ([]debt.Debtor, error)
	GetDebtor(ctx context.Context, ownerID, id uuid.UUID) (*debt.Debtor, error)
	CreateDebt(ctx context.Context, ownerID uuid.UUID, in debt.CreateInput) (*debt.Debt, error)
	GetDebt(ctx context.Context, ownerID, id uuid.UUID) (*debt.Debt, error)
	ListDebts(ctx context.Context, ownerID uuid.UUID) ([]debt.Debt, error)
	ListByDebtor(ctx context.Context, ownerID, debtorID uuid.UUID) ([]debt.Debt, error)
	UpdateDebt(ctx context.Context, ownerID, id uuid.UUID, c debt.Changes) (*debt.Debt, error)
	DeleteDebt(ctx context.Context, ownerID, id uuid.UUID) error
	Pay(ctx context.Context, ownerID, debtID uuid.UUID, in debt.PaymentInput) (*debt.Payment, *debt.Debt, error)
	DeletePayment(ctx context.Context, ownerID, paymentID uuid.UUID) (*debt.Debt, error)
	ListPayments(ctx context.Context, ownerID, debtID uuid.UUID) ([]debt.Payment, error)
	Summary(ctx context.Context, ownerID uuid.UUID) (debt.Summary, error)
	PaymentReport(ctx context.Context, ownerID, debtorID uuid.UUID) (*debt.Report, error)
}

type IncomeService interface {
	ListTypes(ctx context.Context, ownerID uuid.UUID) ([]income.Type, error)
	Create(ctx context.Context, ownerID uuid.UUID, in income.CreateInput) (*income.Income, error)
	Get(ctx context.Context, ownerID, id uuid.UUID) (*income.Income, error)
	List(ctx context.Context, ownerID uuid.UUID, f income.Filter) ([]income.Income, error)
	Update(ctx context.Context, ownerID, id uuid.UUID, c income.Changes) (*income.Income, error)
	Delete(ctx context.Context, ownerID, id uuid.UUID) error
	MonthlySummary(ctx context.Context, ownerID uuid.UUID, year, month int) (*income.MonthlySummary, error)
	YearlySummary(ctx context.Context, ownerID uuid.UUID, year int) (*income.YearlySummary, error)
}

type EventReader interface {
	GetByOwner(ctx context.Context, ownerID uuid.UUID, eventType string, limit int) ([]eventlogger.Event, error)
}

// Handler serves the JSON API. Every field must be set before Routes is called.
type Handler struct {
	Auth       AuthService
	Categories CategoryService
	Expenses   ExpenseService
	Debts      DebtService
	Incomes    IncomeService
	Events     EventReader
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding response", "status", status, "error", err)
	}
}

type errorBody struct {
	Error     string `json:"error"`
	Kind      string `json:"kind"`
	Amount    string `json:"amount,omitempty"`
	Remaining string `json:"remaining,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorBody{Error: msg, Kind: kind})
}

// writeError maps a service error to its HTTP status and error kind.
// Unknown errors are logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var perr *ledger.PaymentError
	if errors.As(err, &perr) {
		writeJSON(w, http.StatusBadRequest, errorBody{
			Error:     perr.Error(),
			Kind:      "invalid_payment",
			Amount:    money.Format(perr.Amount),
			Remaining: money.Format(perr.Remaining),
		})
		return
	}

	status, kind := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeErr(w, status, kind, "internal server error")
		return
	}
	writeErr(w, status, kind, err.Error())
}

func statusFor(err error) (int, string) {
	switch {
	case isAny(err,
		expense.ErrNotFound, expense.ErrPaymentNotFound,
		debt.ErrNotFound, debt.ErrPaymentNotFound, debt.ErrDebtorNotFound,
		category.ErrTypeNotFound, category.ErrDetailNotFound,
		income.ErrNotFound, income.ErrTypeNotFound,
		user.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case isAny(err, category.ErrNameExists, category.ErrInUse, user.ErrEmailExists):
		return http.StatusConflict, "conflict"
	case errors.Is(err, category.ErrReadOnly):
		return http.StatusForbidden, "forbidden"
	case isAny(err, auth.ErrInvalidCredentials, auth.ErrInactiveUser):
		return http.StatusUnauthorized, "unauthorized"
	case isAny(err,
		errBadRequest, money.ErrInvalidAmount, ledger.ErrInvalidAmount,
		expense.ErrAmountBelowPaid, expense.ErrInvalidPeriod, expense.ErrMissingDueDate,
		debt.ErrTotalBelowPaid, debt.ErrBlankReason, debt.ErrBlankName,
		income.ErrInvalidPeriod,
		category.ErrBlankName,
		user.ErrInvalidEmail, user.ErrBlankPassword, user.ErrShortPassword,
		auth.ErrInvalidResetCode):
		return http.StatusBadRequest, "invalid_request"
	default:
		return http.StatusInternalServerError, "internal"
	}
}

func isAny(err error, targets ...error) bool {
	for _, t := range targets {
		if errors.Is(err, t) {
			return true
		}
	}
	return false
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid json: %v", errBadRequest, err)
	}
	return nil
}

func currentUser(r *http.Request) uuid.UUID {
	id, _ := middleware.GetUserID(r.Context())
	return id
}

func pathID(r *http.Request, name string) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, name))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: invalid %s", errBadRequest, name)
	}
	return id, nil
}

func queryInt(r *http.Request, name string) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s must be a number", errBadRequest, name)
	}
	return n, nil
}

func queryDate(r *http.Request, name string) (time.Time, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := parseDate(raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %s must be a date", errBadRequest, name)
	}
	return t, nil
}

// Date accepts "2006-01-02" as well as full RFC 3339 timestamps.
type Date struct {
	time.Time
}

func (d *Date) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	if s == "" {
		d.Time = time.Time{}
		return nil
	}
	t, err := parseDate(s)
	if err != nil {
		return err
	}
	d.Time = t
	return nil
}

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(time.DateOnly, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func datePtr(d *Date) *time.Time {
	if d == nil {
		return nil
	}
	return &d.Time
}

func writePDF(w http.ResponseWriter, filename string, b []byte) {
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename="+filename)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(b); err != nil {
		slog.Error("writing pdf response", "filename", filename, "error", err)
	}
}
