package unit

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/dorobek/core"
)

var (
	// errors
	ErrNotFound    = errors.New("unit not found")
	ErrInvalidKind = errors.New("invalid unit kind")
)

type (
	Repository interface {
		CreateUnit(ctx context.Context, u Unit, exec ...core.DBExecutor) (Unit, error)
		// QueryUnits lists the units of kind; QueryFilter.Search does a case-insensitive
		// match on Unit.Name or Unit.Abbreviation.
		QueryUnits(ctx context.Context, kind Kind, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Unit, error)
		GetUnit(ctx context.Context, kind Kind, id int, exec ...core.DBExecutor) (Unit, error)
		UpdateUnit(ctx context.Context, u Unit, exec ...core.DBExecutor) (Unit, error)
		// DeleteUnits deletes the units and, in cascade, their sub-units.
		DeleteUnits(ctx context.Context, kind Kind, ids []int, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		Create(ctx context.Context, kind Kind, nu NewUnit) (Unit, error)
		Query(ctx context.Context, kind Kind, filter *QueryFilter, ordering []core.DBOrdering) ([]Unit, error)
		// GetByID fills the University of departments.
		GetByID(ctx context.Context, kind Kind, id int) (Unit, error)
		Update(ctx context.Context, u Unit, uu UpdateUnit) (Unit, error)
		Delete(ctx context.Context, kind Kind, ids ...int) error
	}

	service struct {
		repo Repository
	}
)

var _ Service = (*service)(nil)

func NewService(repo Repository) Service {
	return &service{repo: repo}
}

func (svc *service) Create(ctx context.Context, kind Kind, nu NewUnit) (Unit, error) {
	if !kind.Valid() {
		return Unit{}, ErrInvalidKind
	}
	return svc.repo.CreateUnit(ctx, Unit{
		Kind:         kind,
		Name:         nu.Name,
		Abbreviation: nu.Abbreviation,
		ParentID:     nu.ParentID,
	})
}

func (svc *service) Query(ctx context.Context, kind Kind, filter *QueryFilter, ordering []core.DBOrdering) ([]Unit, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	return svc.repo.QueryUnits(ctx, kind, filter, core.FilterOrdering(ordering, OrderingFields...))
}

func (svc *service) GetByID(ctx context.Context, kind Kind, id int) (Unit, error) {
	if !kind.Valid() {
		return Unit{}, ErrInvalidKind
	}
	u, err := svc.repo.GetUnit(ctx, kind, id)
	if err != nil {
		return Unit{}, err
	}
	if kind == Department && u.ParentID != nil {
		fac, err := svc.repo.GetUnit(ctx, Faculty, *u.ParentID)
		if err != nil {
			return Unit{}, errors.Wrap(err, "getting faculty")
		}
		if fac.ParentID != nil {
			uni, err := svc.repo.GetUnit(ctx, University, *fac.ParentID)
			if err != nil {
				return Unit{}, errors.Wrap(err, "getting university")
			}
			u.University = &uni
		}
	}
	return u, nil
}

// Update expects uu to have been validated against u.
func (svc *service) Update(ctx context.Context, u Unit, uu UpdateUnit) (Unit, error) {
	if uu.Name != nil {
		u.Name = *uu.Name
	}
	if uu.Abbreviation != nil {
		u.Abbreviation = *uu.Abbreviation
	}
	if uu.ParentID != nil {
		u.ParentID = uu.ParentID
	}
	u.University = nil
	return svc.repo.UpdateUnit(ctx, u)
}

func (svc *service) Delete(ctx context.Context, kind Kind, ids ...int) error {
	if !kind.Valid() {
		return ErrInvalidKind
	}
	if len(ids) == 0 {
		return nil
	}
	_, err := svc.repo.DeleteUnits(ctx, kind, ids)
	return err
}
