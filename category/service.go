package category

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateType(ctx context.Context, userID uuid.UUID, name, description string) (*ExpenseType, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrBlankName
	}

	now := time.Now().UTC()
	t := &ExpenseType{
		ID:          uuid.New(),
		Owner:       User{ID: userID},
		Name:        name,
		Description: strings.TrimSpace(description),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateType(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

// ListTypes returns the system types plus the ones userID created.
func (s *Service) ListTypes(ctx context.Context, userID uuid.UUID) ([]ExpenseType, error) {
	all, err := s.repo.ListTypes(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing expense types: %w", err)
	}
	visible := make([]ExpenseType, 0, len(all))
	for _, t := range all {
		if VisibleTo(t.Owner, userID) {
			visible = append(visible, t)
		}
	}
	return visible, nil
}

func (s *Service) GetType(ctx context.Context, userID, id uuid.UUID) (*ExpenseType, error) {
	t, err := s.repo.GetType(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching expense type: %w", err)
	}
	if t == nil || !VisibleTo(t.Owner, userID) {
		return nil, ErrTypeNotFound
	}
	return t, nil
}

func (s *Service) DeleteType(ctx context.Context, userID, id uuid.UUID) error {
	t, err := s.GetType(ctx, userID, id)
	if err != nil {
		return err
	}
	if !WritableBy(t.Owner, userID) {
		return ErrReadOnly
	}
	return s.repo.DeleteType(ctx, id)
}

// CreateDetail adds a user-owned detail under any type visible to userID,
// system types included.
func (s *Service) CreateDetail(ctx context.Context, userID, typeID uuid.UUID, name, description string) (*Detail, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrBlankName
	}
	if _, err := s.GetType(ctx, userID, typeID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	d := &Detail{
		ID:          uuid.New(),
		TypeID:      typeID,
		Owner:       User{ID: userID},
		Name:        name,
		Description: strings.TrimSpace(description),
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repo.CreateDetail(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

func (s *Service) ListDetails(ctx context.Context, userID, typeID uuid.UUID) ([]Detail, error) {
	if _, err := s.GetType(ctx, userID, typeID); err != nil {
		return nil, err
	}
	all, err := s.repo.ListDetails(ctx, userID, typeID)
	if err != nil {
		return nil, fmt.Errorf("listing expense details: %w", err)
	}
	visible := make([]Detail, 0, len(all))
	for _, d := range all {
		if VisibleTo(d.Owner, userID) {
			visible = append(visible, d)
		}
	}
	return visible, nil
}

// VisibleDetail resolves a detail reference for userID. Details the user
// can't see are reported as missing.
func (s *Service) VisibleDetail(ctx context.Context, userID, id uuid.UUID) (*Detail, error) {
	d, err := s.repo.GetDetail(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetching expense detail: %w", err)
	}
	if d == nil || !VisibleTo(d.Owner, userID) {
		return nil, ErrDetailNotFound
	}
	return d, nil
}

func (s *Service) DeleteDetail(ctx context.Context, userID, id uuid.UUID) error {
	d, err := s.VisibleDetail(ctx, userID, id)
	if err != nil {
		return err
	}
	if !WritableBy(d.Owner, userID) {
		return ErrReadOnly
	}
	return s.repo.DeleteDetail(ctx, id)
}
