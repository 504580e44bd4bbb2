package income

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const selectIncome = `SELECT i.id, i.owner_id, i.income_type_id, t.name, i.amount, i.income_date, i.notes,
		i.created_at, i.updated_at
	FROM incomes i
	JOIN income_types t ON t.id = i.income_type_id`

const selectType = `SELECT id, owner_id, name, description, is_active, created_at, updated_at FROM income_types`

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) GetType(ctx context.Context, id uuid.UUID) (*Type, error) {
	t, err := scanType(r.db.QueryRowContext(ctx, selectType+` WHERE id = $1`, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *repository) ListTypes(ctx context.Context, ownerID uuid.UUID) ([]Type, error) {
	rows, err := r.db.QueryContext(ctx, selectType+` WHERE (owner_id IS NULL OR owner_id = $1) AND is_active ORDER BY name`, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := make([]Type, 0)
	for rows.Next() {
		t, err := scanType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, *t)
	}
	return types, rows.Err()
}

func (r *repository) Get(ctx context.Context, ownerID, id uuid.UUID) (*Income, error) {
	inc, err := scanIncome(r.db.QueryRowContext(ctx, selectIncome+` WHERE i.id = $1 AND i.owner_id = $2`, id, ownerID))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return inc, nil
}

func (r *repository) List(ctx context.Context, ownerID uuid.UUID, f Filter) ([]Income, error) {
	var b strings.Builder
	b.WriteString(selectIncome)
	b.WriteString(` WHERE i.owner_id = $1`)
	args := []any{ownerID}
	if !f.From.IsZero() {
		args = append(args, f.From)
		fmt.Fprintf(&b, ` AND i.income_date >= $%d`, len(args))
	}
	if !f.To.IsZero() {
		args = append(args, f.To)
		fmt.Fprintf(&b, ` AND i.income_date <= $%d`, len(args))
	}
	b.WriteString(` ORDER BY i.income_date DESC, i.created_at DESC`)

	rows, err := r.db.QueryContext(ctx, b.String(), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	incomes := make([]Income, 0)
	for rows.Next() {
		inc, err := scanIncome(rows)
		if err != nil {
			return nil, err
		}
		incomes = append(incomes, *inc)
	}
	return incomes, rows.Err()
}

func (r *repository) Insert(ctx context.Context, in *Income) error {
	query := `INSERT INTO incomes (id, owner_id, income_type_id, amount, income_date, notes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query,
		in.ID, in.OwnerID, in.TypeID, in.Amount, in.IncomeDate, in.Notes, in.CreatedAt, in.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("inserting income: %w", err)
	}
	return nil
}

func (r *repository) Update(ctx context.Context, in *Income) (bool, error) {
	query := `UPDATE incomes SET income_type_id = $1, amount = $2, income_date = $3, notes = $4, updated_at = $5
		WHERE id = $6 AND owner_id = $7`
	res, err := r.db.ExecContext(ctx, query,
		in.TypeID, in.Amount, in.IncomeDate, in.Notes, in.UpdatedAt, in.ID, in.OwnerID,
	)
	if err != nil {
		return false, fmt.Errorf("updating income: %w", err)
	}
	return affected(res)
}

func (r *repository) Delete(ctx context.Context, ownerID, id uuid.UUID) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM incomes WHERE id = $1 AND owner_id = $2`, id, ownerID)
	if err != nil {
		return false, fmt.Errorf("deleting income: %w", err)
	}
	return affected(res)
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanType(s scanner) (*Type, error) {
	var t Type
	if err := s.Scan(&t.ID, &t.OwnerID, &t.Name, &t.Description, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	return &t, nil
}

func scanIncome(s scanner) (*Income, error) {
	var in Income
	err := s.Scan(
		&in.ID, &in.OwnerID, &in.TypeID, &in.TypeName, &in.Amount, &in.IncomeDate, &in.Notes,
		&in.CreatedAt, &in.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &in, nil
}
