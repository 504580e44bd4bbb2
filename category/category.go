package category

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
)

var (
	ErrTypeNotFound   = errors.New("expense type not found")
	ErrDetailNotFound = errors.New("expense detail not found")
	ErrNameExists     = errors.New("a category with this name already exists")
	ErrBlankName      = errors.New("name can't be blank")
	ErrReadOnly       = errors.New("system categories can't be modified")
	ErrInUse          = errors.New("category is still referenced by expenses")
)

// Ownership says who a category belongs to: either the shared System scope or
// a single User. Only System and User implement it.
type Ownership interface {
	isOwnership()
}

type System struct{}

type User struct {
	ID uuid.UUID
}

func (System) isOwnership() {}
func (User) isOwnership()   {}

// VisibleTo reports whether userID may read a category with ownership o.
func VisibleTo(o Ownership, userID uuid.UUID) bool {
	switch o := o.(type) {
	case System:
		return true
	case User:
		return o.ID == userID
	default:
		return false
	}
}

// WritableBy reports whether userID may modify or delete the category.
func WritableBy(o Ownership, userID uuid.UUID) bool {
	switch o := o.(type) {
	case System:
		return false
	case User:
		return o.ID == userID
	default:
		return false
	}
}

func ownershipFromColumn(owner uuid.NullUUID) Ownership {
	if !owner.Valid {
		return System{}
	}
	return User{ID: owner.UUID}
}

func ownerColumn(o Ownership) uuid.NullUUID {
	switch o := o.(type) {
	case User:
		return uuid.NullUUID{UUID: o.ID, Valid: true}
	default:
		return uuid.NullUUID{}
	}
}

type ExpenseType struct {
	ID          uuid.UUID
	Owner       Ownership
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type Detail struct {
	ID          uuid.UUID
	TypeID      uuid.UUID
	Owner       Ownership
	Name        string
	Description string
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

type ownershipJSON struct {
	IsSystem bool       `json:"is_system"`
	OwnerID  *uuid.UUID `json:"owner_id,omitempty"`
}

func marshalOwnership(o Ownership) ownershipJSON {
	switch o := o.(type) {
	case User:
		id := o.ID
		return ownershipJSON{OwnerID: &id}
	default:
		return ownershipJSON{IsSystem: true}
	}
}

func (t ExpenseType) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          uuid.UUID `json:"id"`
		Name        string    `json:"name"`
		Description string    `json:"description"`
		IsActive    bool      `json:"is_active"`
		ownershipJSON
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}{t.ID, t.Name, t.Description, t.IsActive, marshalOwnership(t.Owner), t.CreatedAt, t.UpdatedAt})
}

func (d Detail) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ID          uuid.UUID `json:"id"`
		TypeID      uuid.UUID `json:"expense_type_id"`
		Name        string    `json:"name"`
		Description string    `json:"description"`
		IsActive    bool      `json:"is_active"`
		ownershipJSON
		CreatedAt time.Time `json:"created_at"`
		UpdatedAt time.Time `json:"updated_at"`
	}{d.ID, d.TypeID, d.Name, d.Description, d.IsActive, marshalOwnership(d.Owner), d.CreatedAt, d.UpdatedAt})
}

// Repository returns nil, nil from the Get methods when the row does not exist.
type Repository interface {
	CreateType(ctx context.Context, t *ExpenseType) error
	GetType(ctx context.Context, id uuid.UUID) (*ExpenseType, error)
	ListTypes(ctx context.Context, userID uuid.UUID) ([]ExpenseType, error)
	DeleteType(ctx context.Context, id uuid.UUID) error
	CreateDetail(ctx context.Context, d *Detail) error
	GetDetail(ctx context.Context, id uuid.UUID) (*Detail, error)
	ListDetails(ctx context.Context, userID, typeID uuid.UUID) ([]Detail, error)
	DeleteDetail(ctx context.Context, id uuid.UUID) error
}
