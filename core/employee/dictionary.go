package employee

import (
	"context"
	"fmt"
	"sort"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/dorobek/core"
)

// Kind identifies a dictionary of named entries referenced by employees.
type Kind string

const (
	Status     Kind = "status"
	Degree     Kind = "degree"
	Domain     Kind = "domain"
	Discipline Kind = "discipline"
	Group      Kind = "group"
	Subgroup   Kind = "subgroup"
)

var Kinds = []Kind{Status, Degree, Domain, Discipline, Group, Subgroup}

func (k Kind) Valid() bool {
	switch k {
	case Status, Degree, Domain, Discipline, Group, Subgroup:
		return true
	}
	return false
}

// Parent returns the kind of the entries k belongs to, "" when k has no parent.
func (k Kind) Parent() Kind {
	switch k {
	case Discipline:
		return Domain
	case Subgroup:
		return Group
	}
	return ""
}

// HasAbbreviation is false for degrees, which are only named.
func (k Kind) HasAbbreviation() bool { return k != Degree }

func (k Kind) Plural() string {
	if k == Status {
		return "statuses"
	}
	return string(k) + "s"
}

// Named is an entry of a dictionary.
type Named struct {
	ID           int    `json:"id"`
	Kind         Kind   `json:"kind"`
	Name         string `json:"name"`
	Abbreviation string `json:"abbreviation,omitempty"`
	ParentID     *int   `json:"parent_id,omitempty"`
	ParentName   string `json:"parent_name,omitempty"` // read-only
}

func (n Named) String() string {
	if n.Name != "" {
		return n.Name
	}
	return n.Abbreviation
}

type NewNamed struct {
	Name         string `json:"name" validate:"required,notblank,max=50"`
	Abbreviation string `json:"abbreviation" validate:"max=10"`
	ParentID     *int   `json:"parent_id"`
}

func (nn *NewNamed) Validate(ctx context.Context, kind Kind, validate *validator.Validate, svc Service) error {
	nn.Name = core.CleanString(nn.Name)
	nn.Abbreviation = core.CleanString(nn.Abbreviation)
	if !kind.HasAbbreviation() {
		nn.Abbreviation = ""
	}
	if kind.Parent() == "" {
		nn.ParentID = nil
	}

	if err := validate.Struct(nn); err != nil {
		return err
	}
	if kind.HasAbbreviation() && nn.Abbreviation == "" {
		return core.NewValidationError(nil, core.FieldError{Field: "abbreviation", Error: "this field is required"})
	}
	return validateParent(ctx, kind, nn.ParentID, svc)
}

type UpdateNamed struct {
	Name         *string `json:"name" validate:"omitempty,notblank,max=50"`
	Abbreviation *string `json:"abbreviation" validate:"omitempty,notblank,max=10"`
	ParentID     *int    `json:"parent_id"`
}

func (un *UpdateNamed) Validate(ctx context.Context, orig Named, validate *validator.Validate, svc Service) error {
	if un.Name != nil {
		name := core.CleanString(*un.Name)
		un.Name = &name
	}
	if un.Abbreviation != nil {
		abbr := core.CleanString(*un.Abbreviation)
		un.Abbreviation = &abbr
	}
	if !orig.Kind.HasAbbreviation() {
		un.Abbreviation = nil
	}
	if err := validate.Struct(un); err != nil {
		return err
	}

	if orig.Kind.Parent() == "" || un.ParentID == nil {
		un.ParentID = nil
		return nil
	}
	return validateParent(ctx, orig.Kind, un.ParentID, svc)
}

func validateParent(ctx context.Context, kind Kind, parentID *int, svc Service) error {
	parentKind := kind.Parent()
	if parentKind == "" {
		return nil
	}
	if parentID == nil {
		return core.NewValidationError(nil, core.FieldError{Field: "parent_id", Error: "this field is required"})
	}
	return checkNamedRef(ctx, svc, parentKind, *parentID, "parent_id")
}

// checkNamedRef reports a field error when id does not reference an entry of kind.
func checkNamedRef(ctx context.Context, svc Service, kind Kind, id int, field string) error {
	if _, err := svc.GetNamed(ctx, kind, id); err != nil {
		if errors.Cause(err) == ErrNotFound {
			return core.NewValidationError(err, core.FieldError{Field: field, Error: fmt.Sprintf("invalid %s", kind)})
		}
		return err
	}
	return nil
}

type NamedFilter struct {
	Search   string `query:"search"`
	ParentID int    `query:"parent"`
}

func (nf *NamedFilter) Clean() {
	nf.Search = core.CleanString(nf.Search)
}

// NamedOrderingFields lists the fields dictionary entries can be ordered by.
var NamedOrderingFields = []string{"id", "name", "abbreviation", "parent_name"}

// Position is a job position. Its group is only defined when all of its subgroups belong to one group.
type Position struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	SubgroupIDs []int   `json:"subgroup_ids"`
	Subgroups   []Named `json:"subgroups"` // read-only, ordered by group name then name
	Group       *Named  `json:"group"`     // read-only
}

func (p Position) String() string { return p.Name }

func (p Position) HasValidSubgroups() bool {
	groups := make(map[int]bool)
	for _, sg := range p.Subgroups {
		if sg.ParentID != nil {
			groups[*sg.ParentID] = true
		}
	}
	return len(groups) == 1
}

// groupID returns the ID of the group of p, if any.
func (p Position) groupID() (int, bool) {
	if !p.HasValidSubgroups() {
		return 0, false
	}
	for _, sg := range p.Subgroups {
		if sg.ParentID != nil {
			return *sg.ParentID, true
		}
	}
	return 0, false
}

type NewPosition struct {
	Name        string `json:"name" validate:"required,notblank,max=50"`
	SubgroupIDs []int  `json:"subgroup_ids"`
}

func (np *NewPosition) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	np.Name = core.CleanString(np.Name)
	np.SubgroupIDs = uniqueIDs(np.SubgroupIDs)

	if err := validate.Struct(np); err != nil {
		return err
	}
	return validateSubgroups(ctx, np.SubgroupIDs, svc)
}

type UpdatePosition struct {
	Name        *string `json:"name" validate:"omitempty,notblank,max=50"`
	SubgroupIDs []int   `json:"subgroup_ids"` // nil: unchanged
}

func (up *UpdatePosition) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	if up.Name != nil {
		name := core.CleanString(*up.Name)
		up.Name = &name
	}
	if up.SubgroupIDs != nil {
		up.SubgroupIDs = uniqueIDs(up.SubgroupIDs)
	}

	if err := validate.Struct(up); err != nil {
		return err
	}
	return validateSubgroups(ctx, up.SubgroupIDs, svc)
}

func validateSubgroups(ctx context.Context, ids []int, svc Service) error {
	for _, id := range ids {
		if err := checkNamedRef(ctx, svc, Subgroup, id, "subgroup_ids"); err != nil {
			return err
		}
	}
	return nil
}

func uniqueIDs(ids []int) []int {
	if ids == nil {
		return nil
	}
	seen := make(map[int]bool, len(ids))
	uniq := make([]int, 0, len(ids))
	for _, id := range ids {
		if !seen[id] {
			seen[id] = true
			uniq = append(uniq, id)
		}
	}
	sort.Ints(uniq)
	return uniq
}

// PositionOrderingFields lists the fields positions can be ordered by.
var PositionOrderingFields = []string{"id", "name"}
