package expense

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/billbatista/acasinha-finance/postgres"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const selectExpense = `SELECT e.id, e.owner_id, e.expense_detail_id, d.name, e.amount, e.paid_amount, e.pending_amount,
		e.expense_date, e.due_date, e.status, e.notes, e.attachment_url, e.created_at, e.updated_at
	FROM expenses e
	JOIN expense_details d ON d.id = e.expense_detail_id`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) WithTx(ctx context.Context, fn func(tx Tx) error) error {
	return postgres.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		return fn(&txRepository{q: tx})
	})
}

func (r *repository) Get(ctx context.Context, ownerID, id uuid.UUID) (*Expense, error) {
	return getExpense(ctx, r.db, selectExpense+` WHERE e.id = $1 AND e.owner_id = $2`, id, ownerID)
}

func (r *repository) List(ctx context.Context, ownerID uuid.UUID, f Filter) ([]Expense, error) {
	var b strings.Builder
	b.WriteString(selectExpense)
	b.WriteString(` WHERE e.owner_id = $1`)
	args := []any{ownerID}
	if !f.DueFrom.IsZero() {
		args = append(args, f.DueFrom)
		fmt.Fprintf(&b, ` AND e.due_date >= $%d`, len(args))
	}
	if !f.DueTo.IsZero() {
		args = append(args, f.DueTo)
		fmt.Fprintf(&b, ` AND e.due_date <= $%d`, len(args))
	}
	b.WriteString(` ORDER BY e.created_at DESC`)

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	expenses := make([]Expense, 0)
	for rows.Next() {
		e, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		expenses = append(expenses, *e)
	}
	return expenses, rows.Err()
}

// SaveStatus persists a derived status only while the amounts it was derived
// from are unchanged; a concurrent payment wins and the write is dropped.
func (r *repository) SaveStatus(ctx context.Context, e *Expense) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE expenses SET status = $1 WHERE id = $2 AND paid_amount = $3 AND amount = $4`,
		e.Status, e.ID, e.PaidAmount, e.Amount)
	return err
}

func (r *repository) Payments(ctx context.Context, expenseID uuid.UUID) ([]Payment, error) {
	query := `SELECT id, expense_id, registered_by, amount, payment_date, notes, created_at
		FROM expense_payments
		WHERE expense_id = $1
		ORDER BY payment_date DESC, created_at DESC`
	rows, err := r.db.QueryContext(ctx, query, expenseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]Payment, 0)
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.ExpenseID, &p.RegisteredBy, &p.Amount, &p.PaymentDate, &p.Notes, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

type txRepository struct {
	q postgres.Querier
}

func (t *txRepository) Lock(ctx context.Context, ownerID, id uuid.UUID) (*Expense, error) {
	return getExpense(ctx, t.q, selectExpense+` WHERE e.id = $1 AND e.owner_id = $2 FOR UPDATE OF e`, id, ownerID)
}

func (t *txRepository) Insert(ctx context.Context, e *Expense) error {
	query := `INSERT INTO expenses (id, owner_id, expense_detail_id, amount, paid_amount, pending_amount,
			expense_date, due_date, status, notes, attachment_url, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)`
	_, err := t.q.ExecContext(ctx, query,
		e.ID, e.OwnerID, e.DetailID, e.Amount, e.PaidAmount, e.PendingAmount,
		e.ExpenseDate, e.DueDate, e.Status, e.Notes, e.AttachmentURL, e.CreatedAt, e.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting expense: %w", err)
	}
	return nil
}

func (t *txRepository) Update(ctx context.Context, e *Expense) error {
	query := `UPDATE expenses SET expense_detail_id = $1, amount = $2, paid_amount = $3, pending_amount = $4,
			expense_date = $5, due_date = $6, status = $7, notes = $8, attachment_url = $9, updated_at = $10
		WHERE id = $11`
	_, err := t.q.ExecContext(ctx, query,
		e.DetailID, e.Amount, e.PaidAmount, e.PendingAmount,
		e.ExpenseDate, e.DueDate, e.Status, e.Notes, e.AttachmentURL, e.UpdatedAt, e.ID,
	)
	if err != nil {
		return fmt.Errorf("updating expense: %w", err)
	}
	return nil
}

func (t *txRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := t.q.ExecContext(ctx, `DELETE FROM expenses WHERE id = $1`, id)
	return err
}

func (t *txRepository) InsertPayment(ctx context.Context, p *Payment) error {
	query := `INSERT INTO expense_payments (id, expense_id, registered_by, amount, payment_date, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := t.q.ExecContext(ctx, query, p.ID, p.ExpenseID, p.RegisteredBy, p.Amount, p.PaymentDate, p.Notes, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting payment: %w", err)
	}
	return nil
}

func (t *txRepository) LockPayment(ctx context.Context, ownerID, paymentID uuid.UUID) (*Payment, error) {
	query := `SELECT p.id, p.expense_id, p.registered_by, p.amount, p.payment_date, p.notes, p.created_at
		FROM expense_payments p
		JOIN expenses e ON e.id = p.expense_id
		WHERE p.id = $1 AND e.owner_id = $2
		FOR UPDATE OF p`

	var p Payment
	err := t.q.QueryRowContext(ctx, query, paymentID, ownerID).Scan(
		&p.ID, &p.ExpenseID, &p.RegisteredBy, &p.Amount, &p.PaymentDate, &p.Notes, &p.CreatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (t *txRepository) DeletePayment(ctx context.Context, id uuid.UUID) error {
	_, err := t.q.ExecContext(ctx, `DELETE FROM expense_payments WHERE id = $1`, id)
	return err
}

func (t *txRepository) PaymentAmounts(ctx context.Context, expenseID uuid.UUID) ([]decimal.Decimal, error) {
	rows, err := t.q.QueryContext(ctx, `SELECT amount FROM expense_payments WHERE expense_id = $1`, expenseID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	amounts := make([]decimal.Decimal, 0)
	for rows.Next() {
		var a decimal.Decimal
		if err := rows.Scan(&a); err != nil {
			return nil, err
		}
		amounts = append(amounts, a)
	}
	return amounts, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func getExpense(ctx context.Context, q postgres.Querier, query string, args ...any) (*Expense, error) {
	e, err := scanExpense(q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return e, nil
}

func scanExpense(s scanner) (*Expense, error) {
	var e Expense
	err := s.Scan(
		&e.ID, &e.OwnerID, &e.DetailID, &e.DetailName, &e.Amount, &e.PaidAmount, &e.PendingAmount,
		&e.ExpenseDate, &e.DueDate, &e.Status, &e.Notes, &e.AttachmentURL, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &e, nil
}
