package api

import (
	"fmt"
	"net/http"

	"github.com/billbatista/acasinha-finance/expense"
	"github.com/billbatista/acasinha-finance/ledger"
	"github.com/billbatista/acasinha-finance/report"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type expenseRequest struct {
	ExpenseDetailID uuid.UUID       `json:"expense_detail_id"`
	Amount          decimal.Decimal `json:"amount"`
	ExpenseDate     Date            `json:"expense_date"`
	DueDate         Date            `json:"due_date"`
	Notes           string          `json:"notes"`
	AttachmentURL   string          `json:"attachment_url"`
}

type expenseChanges struct {
	ExpenseDetailID *uuid.UUID       `json:"expense_detail_id"`
	Amount          *decimal.Decimal `json:"amount"`
	ExpenseDate     *Date            `json:"expense_date"`
	DueDate         *Date            `json:"due_date"`
	Notes           *string          `json:"notes"`
	AttachmentURL   *string          `json:"attachment_url"`
}

type paymentRequest struct {
	Amount        decimal.Decimal `json:"amount"`
	PaymentDate   Date            `json:"payment_date"`
	PaymentReason string          `json:"payment_reason"`
	Notes         string          `json:"notes"`
}

func (h *Handler) createExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	e, err := h.Expenses.Create(r.Context(), currentUser(r), expense.CreateInput{
		DetailID:      req.ExpenseDetailID,
		Amount:        req.Amount,
		ExpenseDate:   req.ExpenseDate.Time,
		DueDate:       req.DueDate.Time,
		Notes:         req.Notes,
		AttachmentURL: req.AttachmentURL,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, e)
}

func (h *Handler) listExpenses(w http.ResponseWriter, r *http.Request) {
	var f expense.Filter
	if s := r.URL.Query().Get("status"); s != "" {
		f.Status = ledger.ExpenseStatus(s)
		if !f.Status.Valid() {
			writeError(w, r, fmt.Errorf("%w: unknown status %q", errBadRequest, s))
			return
		}
	}
	var err error
	if f.DueFrom, err = queryDate(r, "due_from"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.DueTo, err = queryDate(r, "due_to"); err != nil {
		writeError(w, r, err)
		return
	}

	expenses, err := h.Expenses.List(r.Context(), currentUser(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (h *Handler) pendingExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := h.Expenses.Pending(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (h *Handler) expenseSummary(w http.ResponseWriter, r *http.Request) {
	sum, ok := h.loadSummary(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) expenseSummaryPDF(w http.ResponseWriter, r *http.Request) {
	sum, ok := h.loadSummary(w, r)
	if !ok {
		return
	}
	b, err := report.ExpenseSummaryPDF(sum)
	if err != nil {
		writeError(w, r, err)
		return
	}
	name := "expense-summary.pdf"
	if sum.Month > 0 {
		name = fmt.Sprintf("expense-summary-%d-%02d.pdf", sum.Year, sum.Month)
	}
	writePDF(w, name, b)
}

func (h *Handler) loadSummary(w http.ResponseWriter, r *http.Request) (*expense.Summary, bool) {
	month, err := queryInt(r, "month")
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	year, err := queryInt(r, "year")
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	sum, err := h.Expenses.Summary(r.Context(), currentUser(r), month, year)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return sum, true
}

func (h *Handler) getExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := h.Expenses.Get(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) updateExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req expenseChanges
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	e, err := h.Expenses.Update(r.Context(), currentUser(r), id, expense.Changes{
		DetailID:      req.ExpenseDetailID,
		Amount:        req.Amount,
		ExpenseDate:   datePtr(req.ExpenseDate),
		DueDate:       datePtr(req.DueDate),
		Notes:         req.Notes,
		AttachmentURL: req.AttachmentURL,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (h *Handler) deleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Expenses.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) payExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req paymentRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	p, e, err := h.Expenses.Pay(r.Context(), currentUser(r), id, expense.PaymentInput{
		Amount:      req.Amount,
		PaymentDate: req.PaymentDate.Time,
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"payment": p, "expense": e})
}

func (h *Handler) listExpensePayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	payments, err := h.Expenses.ListPayments(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (h *Handler) deleteExpensePayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := h.Expenses.DeletePayment(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}
