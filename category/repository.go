package category

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/billbatista/acasinha-finance/postgres"
	"github.com/google/uuid"
)

type repository struct {
	db *sql.DB
}

func NewRepository(db *sql.DB) *repository {
	return &repository{db: db}
}

func (r *repository) CreateType(ctx context.Context, t *ExpenseType) error {
	query := `INSERT INTO expense_types (id, owner_id, name, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := r.db.ExecContext(ctx, query, t.ID, ownerColumn(t.Owner), t.Name, t.Description, t.IsActive, t.CreatedAt, t.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ErrNameExists
		}
		return fmt.Errorf("inserting expense type: %w", err)
	}
	return nil
}

func (r *repository) GetType(ctx context.Context, id uuid.UUID) (*ExpenseType, error) {
	query := `SELECT id, owner_id, name, description, is_active, created_at, updated_at FROM expense_types WHERE id = $1`

	t, err := scanType(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (r *repository) ListTypes(ctx context.Context, userID uuid.UUID) ([]ExpenseType, error) {
	query := `SELECT id, owner_id, name, description, is_active, created_at, updated_at
		FROM expense_types
		WHERE owner_id IS NULL OR owner_id = $1
		ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	types := make([]ExpenseType, 0)
	for rows.Next() {
		t, err := scanType(rows)
		if err != nil {
			return nil, err
		}
		types = append(types, *t)
	}
	return types, rows.Err()
}

func (r *repository) DeleteType(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM expense_types WHERE id = $1`, id)
	if postgres.IsForeignKeyViolation(err) {
		return ErrInUse
	}
	return err
}

func (r *repository) CreateDetail(ctx context.Context, d *Detail) error {
	query := `INSERT INTO expense_details (id, expense_type_id, owner_id, name, description, is_active, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := r.db.ExecContext(ctx, query, d.ID, d.TypeID, ownerColumn(d.Owner), d.Name, d.Description, d.IsActive, d.CreatedAt, d.UpdatedAt)
	if err != nil {
		if postgres.IsUniqueViolation(err) {
			return ErrNameExists
		}
		return fmt.Errorf("inserting expense detail: %w", err)
	}
	return nil
}

func (r *repository) GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error) {
	query := `SELECT id, expense_type_id, owner_id, name, description, is_active, created_at, updated_at
		FROM expense_details WHERE id = $1`

	d, err := scanDetail(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *repository) ListDetails(ctx context.Context, userID, typeID uuid.UUID) ([]Detail, error) {
	query := `SELECT id, expense_type_id, owner_id, name, description, is_active, created_at, updated_at
		FROM expense_details
		WHERE expense_type_id = $1 AND (owner_id IS NULL OR owner_id = $2)
		ORDER BY name`
	rows, err := r.db.QueryContext(ctx, query, typeID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	details := make([]Detail, 0)
	for rows.Next() {
		d, err := scanDetail(rows)
		if err != nil {
			return nil, err
		}
		details = append(details, *d)
	}
	return details, rows.Err()
}

func (r *repository) DeleteDetail(ctx context.Context, id uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM expense_details WHERE id = $1`, id)
	if postgres.IsForeignKeyViolation(err) {
		return ErrInUse
	}
	return err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanType(s scanner) (*ExpenseType, error) {
	var t ExpenseType
	var owner uuid.NullUUID
	if err := s.Scan(&t.ID, &owner, &t.Name, &t.Description, &t.IsActive, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Owner = ownershipFromColumn(owner)
	return &t, nil
}

func scanDetail(s scanner) (*Detail, error) {
	var d Detail
	var owner uuid.NullUUID
	if err := s.Scan(&d.ID, &d.TypeID, &owner, &d.Name, &d.Description, &d.IsActive, &d.CreatedAt, &d.UpdatedAt); err != nil {
		return nil, err
	}
	d.Owner = ownershipFromColumn(owner)
	return &d, nil
}
