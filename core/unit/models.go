package unit

import (
	"context"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/dorobek/core"
)

// Kind is the level of a unit in the university > faculty > department hierarchy.
type Kind string

const (
	University Kind = "university"
	Faculty    Kind = "faculty"
	Department Kind = "department"
)

var Kinds = []Kind{University, Faculty, Department}

func (k Kind) Valid() bool {
	switch k {
	case University, Faculty, Department:
		return true
	}
	return false
}

// Parent returns the kind of the units k belongs to, "" for universities.
func (k Kind) Parent() Kind {
	switch k {
	case Faculty:
		return University
	case Department:
		return Faculty
	}
	return ""
}

func (k Kind) Plural() string {
	switch k {
	case University:
		return "universities"
	case Faculty:
		return "faculties"
	case Department:
		return "departments"
	}
	return string(k)
}

type Unit struct {
	ID           int    `json:"id"`
	Kind         Kind   `json:"kind"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation"`
	ParentID     *int   `json:"parent_id,omitempty"`

	// University is set on departments fetched one by one.
	University *Unit `json:"university,omitempty"`
}

func (u Unit) String() string { return u.Name }

// NewUnit contains information needed to create a new Unit.
type NewUnit struct {
	Name         string `json:"name" validate:"required,notblank,max=50"`
	Abbreviation string `json:"abbreviation" validate:"required,notblank,max=10"`
	ParentID     *int   `json:"parent_id"`
}

func (nu *NewUnit) Validate(ctx context.Context, kind Kind, validate *validator.Validate, svc Service) error {
	nu.Name = core.CleanString(nu.Name)
	nu.Abbreviation = core.CleanString(nu.Abbreviation)
	if kind.Parent() == "" {
		nu.ParentID = nil
	}

	if err := validate.Struct(nu); err != nil {
		return err
	}
	return validateParent(ctx, kind, nu.ParentID, svc)
}

// UpdateUnit defines what information may be provided to modify an existing Unit.
type UpdateUnit struct {
	Name         *string `json:"name" validate:"omitempty,notblank,max=50"`
	Abbreviation *string `json:"abbreviation" validate:"omitempty,notblank,max=10"`
	ParentID     *int    `json:"parent_id"`
}

func (uu *UpdateUnit) Validate(ctx context.Context, orig Unit, validate *validator.Validate, svc Service) error {
	if uu.Name != nil {
		name := core.CleanString(*uu.Name)
		uu.Name = &name
	}
	if uu.Abbreviation != nil {
		abbr := core.CleanString(*uu.Abbreviation)
		uu.Abbreviation = &abbr
	}
	if err := validate.Struct(uu); err != nil {
		return err
	}

	if orig.Kind.Parent() == "" {
		uu.ParentID = nil
		return nil
	}
	if uu.ParentID == nil {
		uu.ParentID = orig.ParentID
		return nil
	}
	return validateParent(ctx, orig.Kind, uu.ParentID, svc)
}

func validateParent(ctx context.Context, kind Kind, parentID *int, svc Service) error {
	parentKind := kind.Parent()
	if parentKind == "" {
		return nil
	}
	if parentID == nil {
		return core.NewValidationError(nil, core.FieldError{Field: "parent_id", Error: "this field is required"})
	}
	if _, err := svc.GetByID(ctx, parentKind, *parentID); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "parent_id", Error: "invalid " + string(parentKind)})
		}
		return err
	}
	return nil
}

type QueryFilter struct {
	Search   string `query:"search"`
	ParentID int    `query:"parent"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// OrderingFields lists the fields units can be ordered by.
var OrderingFields = []string{"id", "name", "abbreviation"}
