package api

import (
	"fmt"
	"net/http"

	"github.com/billbatista/acasinha-finance/debt"
	"github.com/billbatista/acasinha-finance/report"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type debtorRequest struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Phone     string `json:"phone"`
	Address   string `json:"address"`
	Notes     string `json:"notes"`
}

type debtRequest struct {
	DebtorID    uuid.UUID       `json:"debtor_id"`
	Reason      string          `json:"reason"`
	TotalAmount decimal.Decimal `json:"total_amount"`
	DebtDate    Date            `json:"debt_date"`
	Notes       string          `json:"notes"`
}

type debtChanges struct {
	DebtorID    *uuid.UUID       `json:"debtor_id"`
	Reason      *string          `json:"reason"`
	TotalAmount *decimal.Decimal `json:"total_amount"`
	DebtDate    *Date            `json:"debt_date"`
	Notes       *string          `json:"notes"`
}

func (h *Handler) createDebtor(w http.ResponseWriter, r *http.Request) {
	var req debtorRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Debts.CreateDebtor(r.Context(), currentUser(r), debt.DebtorInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Address:   req.Address,
		Notes:     req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) listDebtors(w http.ResponseWriter, r *http.Request) {
	debtors, err := h.Debts.ListDebtors(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, debtors)
}

func (h *Handler) debtSummary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.Debts.Summary(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sum)
}

func (h *Handler) getDebtor(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Debts.GetDebtor(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) listDebtorDebts(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	debts, err := h.Debts.ListByDebtor(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, debts)
}

func (h *Handler) paymentReport(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.loadReport(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

func (h *Handler) paymentReportPDF(w http.ResponseWriter, r *http.Request) {
	rep, ok := h.loadReport(w, r)
	if !ok {
		return
	}
	b, err := report.DebtorReportPDF(rep)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writePDF(w, fmt.Sprintf("payments-%s.pdf", rep.Debtor.ID), b)
}

func (h *Handler) loadReport(w http.ResponseWriter, r *http.Request) (*debt.Report, bool) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	rep, err := h.Debts.PaymentReport(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return nil, false
	}
	return rep, true
}

func (h *Handler) createDebt(w http.ResponseWriter, r *http.Request) {
	var req debtRequest
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Debts.CreateDebt(r.Context(), currentUser(r), debt.CreateInput{
		DebtorID:    req.DebtorID,
		Reason:      req.Reason,
		TotalAmount: req.TotalAmount,
		DebtDate:    req.DebtDate.Time,
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (h *Handler) listDebts(w http.ResponseWriter, r *http.Request) {
	debts, err := h.Debts.ListDebts(r.Context(), currentUser(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, debts)
}

func (h *Handler) getDebt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Debts.GetDebt(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) updateDebt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req debtChanges
	if err := decode(r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Debts.UpdateDebt(r.Context(), currentUser(r), id, debt.Changes{
		DebtorID:    req.DebtorID,
		Reason:      req.Reason,
		TotalAmount: req.TotalAmount,
		DebtDate:    datePtr(req.DebtDate),
		Notes:       req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (h *Handler) deleteDebt(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := h.Debts.DeleteDebt(r.Context(), currentUser(r), id); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) payDebt(w http.ResponseWriter, r *http.Request) {
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
	p, d, err := h.Debts.Pay(r.Context(), currentUser(r), id, debt.PaymentInput{
		Amount:        req.Amount,
		PaymentDate:   req.PaymentDate.Time,
		PaymentReason: req.PaymentReason,
		Notes:         req.Notes,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"payment": p, "debt": d})
}

func (h *Handler) listDebtPayments(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	payments, err := h.Debts.ListPayments(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

func (h *Handler) deleteDebtPayment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := h.Debts.DeletePayment(r.Context(), currentUser(r), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}
