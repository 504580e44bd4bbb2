package debt

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/billbatista/acasinha-finance/postgres"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	selectDebtor = `SELECT id, owner_id, first_name, last_name, email, phone, address, notes, is_active, created_at, updated_at
	FROM debtors`

	selectDebt = `SELECT d.id, d.owner_id, d.debtor_id, trim(dr.first_name || ' ' || dr.last_name), d.reason,
		d.total_amount, d.remaining_amount, d.debt_date, d.notes, d.status, d.created_at, d.updated_at
	FROM debts d
	JOIN debtors dr ON dr.id = d.debtor_id`

	selectPayment = `SELECT p.id, p.debt_id, p.amount, p.payment_date, p.payment_reason, p.notes, p.created_at
	FROM debt_payments p`
)

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

func (r *repository) GetDebtor(ctx context.Context, ownerID, id uuid.UUID) (*Debtor, error) {
	var d Debtor
	err := r.db.QueryRowContext(ctx, selectDebtor+` WHERE id = $1 AND owner_id = $2`, id, ownerID).Scan(
		&d.ID, &d.OwnerID, &d.FirstName, &d.LastName, &d.Email, &d.Phone, &d.Address, &d.Notes, &d.IsActive, &d.CreatedAt, &d.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *repository) ListDebtors(ctx context.Context, ownerID uuid.UUID) ([]Debtor, error) {
	rows, err := r.db.QueryContext(ctx, selectDebtor+` WHERE owner_id = $1 ORDER BY first_name, last_name`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	debtors := make([]Debtor, 0)
	for rows.Next() {
		var d Debtor
		if err := rows.Scan(
			&d.ID, &d.OwnerID, &d.FirstName, &d.LastName, &d.Email, &d.Phone, &d.Address, &d.Notes, &d.IsActive, &d.CreatedAt, &d.UpdatedAt,
		); err != nil {
			return nil, err
		}
		debtors = append(debtors, d)
	}
	return debtors, rows.Err()
}

func (r *repository) Get(ctx context.Context, ownerID, id uuid.UUID) (*Debt, error) {
	return getDebt(ctx, r.db, selectDebt+` WHERE d.id = $1 AND d.owner_id = $2`, id, ownerID)
}

func (r *repository) List(ctx context.Context, ownerID uuid.UUID) ([]Debt, error) {
	return listDebts(ctx, r.db, selectDebt+` WHERE d.owner_id = $1 ORDER BY d.debt_date DESC, d.created_at DESC`, ownerID)
}

func (r *repository) ListByDebtor(ctx context.Context, ownerID, debtorID uuid.UUID) ([]Debt, error) {
	return listDebts(ctx, r.db, selectDebt+` WHERE d.owner_id = $1 AND d.debtor_id = $2 ORDER BY d.debt_date DESC`, ownerID, debtorID)
}

func (r *repository) Payments(ctx context.Context, debtID uuid.UUID) ([]Payment, error) {
	return listPayments(ctx, r.db, selectPayment+` WHERE p.debt_id = $1 ORDER BY p.payment_date DESC, p.created_at DESC`, debtID)
}

// PaymentsByDebtor returns payments grouped by debt in the debtor's debt
// order, which is the fetch order the payment report keeps for equal dates.
func (r *repository) PaymentsByDebtor(ctx context.Context, ownerID, debtorID uuid.UUID) ([]Payment, error) {
	query := selectPayment + `
	JOIN debts d ON d.id = p.debt_id
	WHERE d.owner_id = $1 AND d.debtor_id = $2
	ORDER BY d.debt_date DESC, d.id, p.payment_date DESC, p.created_at DESC`
	return listPayments(ctx, r.db, query, ownerID, debtorID)
}

type txRepository struct {
	q postgres.Querier
}

func (t *txRepository) InsertDebtor(ctx context.Context, d *Debtor) error {
	query := `INSERT INTO debtors (id, owner_id, first_name, last_name, email, phone, address, notes, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := t.q.ExecContext(ctx, query,
		d.ID, d.OwnerID, d.FirstName, d.LastName, d.Email, d.Phone, d.Address, d.Notes, d.IsActive, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting debtor: %w", err)
	}
	return nil
}

func (t *txRepository) Lock(ctx context.Context, ownerID, id uuid.UUID) (*Debt, error) {
	return getDebt(ctx, t.q, selectDebt+` WHERE d.id = $1 AND d.owner_id = $2 FOR UPDATE OF d`, id, ownerID)
}

func (t *txRepository) Insert(ctx context.Context, d *Debt) error {
	query := `INSERT INTO debts (id, owner_id, debtor_id, reason, total_amount, remaining_amount, debt_date, notes, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := t.q.ExecContext(ctx, query,
		d.ID, d.OwnerID, d.DebtorID, d.Reason, d.TotalAmount, d.RemainingAmount, d.DebtDate, d.Notes, d.Status, d.CreatedAt, d.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting debt: %w", err)
	}
	return nil
}

func (t *txRepository) Update(ctx context.Context, d *Debt) error {
	query := `UPDATE debts SET debtor_id = $1, reason = $2, total_amount = $3, remaining_amount = $4,
			debt_date = $5, notes = $6, status = $7, updated_at = $8
		WHERE id = $9`
	_, err := t.q.ExecContext(ctx, query,
		d.DebtorID, d.Reason, d.TotalAmount, d.RemainingAmount, d.DebtDate, d.Notes, d.Status, d.UpdatedAt, d.ID,
	)
	if err != nil {
		return fmt.Errorf("updating debt: %w", err)
	}
	return nil
}

func (t *txRepository) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := t.q.ExecContext(ctx, `DELETE FROM debts WHERE id = $1`, id)
	return err
}

func (t *txRepository) InsertPayment(ctx context.Context, p *Payment) error {
	query := `INSERT INTO debt_payments (id, debt_id, amount, payment_date, payment_reason, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := t.q.ExecContext(ctx, query, p.ID, p.DebtID, p.Amount, p.PaymentDate, p.PaymentReason, p.Notes, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting debt payment: %w", err)
	}
	return nil
}

func (t *txRepository) LockPayment(ctx context.Context, ownerID, paymentID uuid.UUID) (*Payment, error) {
	query := selectPayment + `
	JOIN debts d ON d.id = p.debt_id
	WHERE p.id = $1 AND d.owner_id = $2
	FOR UPDATE OF p`

	var p Payment
	err := t.q.QueryRowContext(ctx, query, paymentID, ownerID).Scan(
		&p.ID, &p.DebtID, &p.Amount, &p.PaymentDate, &p.PaymentReason, &p.Notes, &p.CreatedAt,
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
	_, err := t.q.ExecContext(ctx, `DELETE FROM debt_payments WHERE id = $1`, id)
	return err
}

func (t *txRepository) PaymentAmounts(ctx context.Context, debtID uuid.UUID) ([]decimal.Decimal, error) {
	rows, err := t.q.QueryContext(ctx, `SELECT amount FROM debt_payments WHERE debt_id = $1`, debtID)
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

func scanDebt(s scanner) (*Debt, error) {
	var d Debt
	err := s.Scan(
		&d.ID, &d.OwnerID, &d.DebtorID, &d.DebtorName, &d.Reason,
		&d.TotalAmount, &d.RemainingAmount, &d.DebtDate, &d.Notes, &d.Status, &d.CreatedAt, &d.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func getDebt(ctx context.Context, q postgres.Querier, query string, args ...any) (*Debt, error) {
	d, err := scanDebt(q.QueryRowContext(ctx, query, args...))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func listDebts(ctx context.Context, q postgres.Querier, query string, args ...any) ([]Debt, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	debts := make([]Debt, 0)
	for rows.Next() {
		d, err := scanDebt(rows)
		if err != nil {
			return nil, err
		}
		debts = append(debts, *d)
	}
	return debts, rows.Err()
}

func listPayments(ctx context.Context, q postgres.Querier, query string, args ...any) ([]Payment, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make([]Payment, 0)
	for rows.Next() {
		var p Payment
		if err := rows.Scan(&p.ID, &p.DebtID, &p.Amount, &p.PaymentDate, &p.PaymentReason, &p.Notes, &p.CreatedAt); err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
