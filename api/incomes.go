package api

import (
	"net/http"

	"github.com/billbatista/acasinha-finance/income"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type incomeRequest struct {
	IncomeTypeID uuid.UUID       `json:"income_type_id"`
	Amount       decimal.Decimal `json:"amount"`
	IncomeDate   Date            `json:"income_date"`
	Notes        string          `json:"notes"`
}

type incomeChanges struct {
	IncomeTypeID *uuid.UUID       `json:"income_type_id"`
	Amount       *decimal.Decimal `json:"amount"`
	IncomeDate   *Date            `json:"income_date"`
	Notes        *string          `json:"notes"`
}

func (h *Handler) listIncomeTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Incomes.ListTypes(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, types)
}

func (h *Handler) createIncome(w http.ResponseWriter, r *http.Request) {
	var req incomeRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	in, err := h.Incomes.Create(r.Context(), currentUser(r), income.CreateInput{
		TypeID:     req.IncomeTypeID,
		Amount:     req.Amount,
		IncomeDate: req.IncomeDate.Time,
		Notes:      req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, in)
}

func (h *Handler) listIncomes(w http.ResponseWriter, r *http.Request) {
	var (
		f   income.Filter
		err error
	)
	if f.From, err = queryDate(r, "from"); err != nil {
		writeError(w, r, err)
		return
	}
	if f.To, err = queryDate(r, "to"); err != nil {
		writeError(w, r, err)
		return
	}

	incomes, err := h.Incomes.List(r.Context(), currentUser(r), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, incomes)
}

func (h *Handler) monthlyIncomeSummary(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year")
	if err != nil {
		writeError(w, r, err)
		return
	}
	month, err := queryInt(r, "month")
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := h.Incomes.MonthlySummary(r.Context(), currentUser(r), year, month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) yearlyIncomeSummary(w http.ResponseWriter, r *http.Request) {
	year, err := queryInt(r, "year")
	if err != nil {
		writeError(w, r, err)
		return
	}
	sum, err := h.Incomes.YearlySummary(r.Context(), currentUser(r), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) getIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	in, err := h.Incomes.Get(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (h *Handler) updateIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req incomeChanges
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}

	in, err := h.Incomes.Update(r.Context(), currentUser(r), id, income.Changes{
		TypeID:     req.IncomeTypeID,
		Amount:     req.Amount,
		IncomeDate: datePtr(req.IncomeDate),
		Notes:      req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, in)
}

func (h *Handler) deleteIncome(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Incomes.Delete(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
