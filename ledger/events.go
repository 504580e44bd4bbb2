package ledger

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	EventExpenseCreated        = "expense.created"
	EventExpenseUpdated        = "expense.updated"
	EventExpenseDeleted        = "expense.deleted"
	EventExpensePaid           = "expense.payment_registered"
	EventExpensePaymentRemoved = "expense.payment_removed"
	EventDebtCreated           = "debt.created"
	EventDebtUpdated           = "debt.updated"
	EventDebtDeleted           = "debt.deleted"
	EventDebtPaid              = "debt.payment_registered"
	EventDebtPaymentRemoved    = "debt.payment_removed"
)

// ObligationEvent describes an expense or debt after it was created or edited.
type ObligationEvent struct {
	ObligationID uuid.UUID       `json:"obligation_id"`
	Total        decimal.Decimal `json:"total"`
	Status       string          `json:"status"`
}

type PaymentRegisteredEvent struct {
	ObligationID uuid.UUID       `json:"obligation_id"`
	PaymentID    uuid.UUID       `json:"payment_id"`
	Amount       decimal.Decimal `json:"amount"`
	PaymentDate  time.Time       `json:"payment_date"`
	Remaining    decimal.Decimal `json:"remaining"`
	Status       string          `json:"status"`
}

// PaymentRemovedEvent records the balance rebuilt after a payment deletion.
type PaymentRemovedEvent struct {
	ObligationID uuid.UUID       `json:"obligation_id"`
	PaymentID    uuid.UUID       `json:"payment_id"`
	Amount       decimal.Decimal `json:"amount"`
	Remaining    decimal.Decimal `json:"remaining"`
	Status       string          `json:"status"`
}
