package employee

import (
	"context"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/unit"
	"github.com/trezcool/dorobek/core/user"
)

type Sex string

const (
	Female Sex = "F"
	Male   Sex = "M"
)

type Employee struct {
	ID           int     `json:"id"`
	UserID       int     `json:"user_id"`
	Sex          Sex     `json:"sex"`
	DegreeID     *int    `json:"degree_id"`
	StatusID     *int    `json:"status_id"`
	InEvaluation bool    `json:"in_evaluation"`
	DisciplineID *int    `json:"discipline_id"`
	ORCID        *string `json:"orcid"`

	// read-only, from the user account & the degree
	Username   string `json:"username"`
	FirstName  string `json:"first_name"`
	LastName   string `json:"last_name"`
	Email      string `json:"email"`
	DegreeName string `json:"degree_name,omitempty"`
}

// ShortName is the first name of the employee, or its username when no first name was given.
func (e Employee) ShortName() string {
	return user.User{Username: e.Username, FirstName: e.FirstName}.ShortName()
}

func (e Employee) String() string {
	if e.DegreeName != "" {
		return e.ShortName() + ", " + e.DegreeName
	}
	return e.ShortName()
}

// NewEmployee contains information needed to create a new Employee.
type NewEmployee struct {
	UserID       int     `json:"user_id" validate:"required"`
	Sex          Sex     `json:"sex" validate:"omitempty,oneof=F M"`
	DegreeID     *int    `json:"degree_id"`
	StatusID     *int    `json:"status_id"`
	InEvaluation *bool   `json:"in_evaluation"`
	DisciplineID *int    `json:"discipline_id"`
	ORCID        *string `json:"orcid" validate:"omitempty,max=19,orcid"`
}

func (ne *NewEmployee) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	if ne.Sex == "" {
		ne.Sex = Female
	}
	if ne.InEvaluation == nil {
		inEval := true
		ne.InEvaluation = &inEval
	}
	ne.ORCID = cleanORCID(ne.ORCID)

	if err := validate.Struct(ne); err != nil {
		return err
	}
	if err := svc.CheckUser(ctx, ne.UserID); err != nil {
		return err
	}
	if err := svc.CheckORCID(ctx, ne.ORCID, 0); err != nil {
		return err
	}
	return checkEmployeeRefs(ctx, svc, ne.DegreeID, ne.StatusID, ne.DisciplineID)
}

// UpdateEmployee defines what information may be provided to modify an existing Employee.
// The user of an employee can not be changed.
type UpdateEmployee struct {
	Sex          Sex     `json:"sex" validate:"omitempty,oneof=F M"`
	DegreeID     *int    `json:"degree_id"`
	StatusID     *int    `json:"status_id"`
	InEvaluation *bool   `json:"in_evaluation"`
	DisciplineID *int    `json:"discipline_id"`
	ORCID        *string `json:"orcid" validate:"omitempty,max=19,orcid"`
}

// Validate fills the fields left blank with the values of orig.
// A zero ID clears an optional reference; an empty ORCID clears it.
func (ue *UpdateEmployee) Validate(ctx context.Context, orig Employee, validate *validator.Validate, svc Service) error {
	if ue.Sex == "" {
		ue.Sex = orig.Sex
	}
	if ue.InEvaluation == nil {
		ue.InEvaluation = &orig.InEvaluation
	}
	ue.DegreeID = mergeRef(ue.DegreeID, orig.DegreeID)
	ue.StatusID = mergeRef(ue.StatusID, orig.StatusID)
	ue.DisciplineID = mergeRef(ue.DisciplineID, orig.DisciplineID)
	if ue.ORCID == nil {
		ue.ORCID = orig.ORCID
	} else {
		ue.ORCID = cleanORCID(ue.ORCID)
	}

	if err := validate.Struct(ue); err != nil {
		return err
	}
	if err := svc.CheckORCID(ctx, ue.ORCID, orig.ID); err != nil {
		return err
	}
	return checkEmployeeRefs(ctx, svc, ue.DegreeID, ue.StatusID, ue.DisciplineID)
}

func checkEmployeeRefs(ctx context.Context, svc Service, degreeID, statusID, disciplineID *int) error {
	refs := []struct {
		id    *int
		kind  Kind
		field string
	}{
		{degreeID, Degree, "degree_id"},
		{statusID, Status, "status_id"},
		{disciplineID, Discipline, "discipline_id"},
	}
	for _, ref := range refs {
		if ref.id == nil {
			continue
		}
		if err := checkNamedRef(ctx, svc, ref.kind, *ref.id, ref.field); err != nil {
			return err
		}
	}
	return nil
}

// mergeRef keeps orig when ref is nil and clears the reference when ref is 0.
func mergeRef(ref, orig *int) *int {
	switch {
	case ref == nil:
		return orig
	case *ref == 0:
		return nil
	}
	return ref
}

func cleanORCID(orcid *string) *string {
	if orcid == nil {
		return nil
	}
	s := strings.ToUpper(core.CleanString(*orcid))
	if s == "" {
		return nil
	}
	return &s
}

// Employment locates an employee in the organization. Every employee has exactly one.
type Employment struct {
	ID           int  `json:"id"`
	EmployeeID   int  `json:"employee_id"`
	PositionID   *int `json:"position_id"`
	SubgroupID   *int `json:"subgroup_id"`
	DepartmentID *int `json:"department_id"`

	// read-only
	Employee               string `json:"employee"`
	PositionName           string `json:"position_name,omitempty"`
	SubgroupAbbreviation   string `json:"subgroup_abbreviation,omitempty"`
	DepartmentAbbreviation string `json:"department_abbreviation,omitempty"`
}

func (em Employment) String() string {
	var info []string
	for _, part := range []string{em.PositionName, em.SubgroupAbbreviation, em.DepartmentAbbreviation} {
		if part != "" {
			info = append(info, part)
		}
	}
	if len(info) == 0 {
		return strings.TrimSpace(em.Employee)
	}
	return strings.TrimSpace(em.Employee + " (" + strings.Join(info, ", ") + ")")
}

// UpdateEmployment defines what information may be provided to modify an Employment.
// A zero ID clears a reference.
type UpdateEmployment struct {
	PositionID   *int `json:"position_id"`
	SubgroupID   *int `json:"subgroup_id"`
	DepartmentID *int `json:"department_id"`
}

func (ue *UpdateEmployment) Validate(ctx context.Context, orig Employment, svc Service, unitSvc unit.Service) error {
	ue.PositionID = mergeRef(ue.PositionID, orig.PositionID)
	ue.SubgroupID = mergeRef(ue.SubgroupID, orig.SubgroupID)
	ue.DepartmentID = mergeRef(ue.DepartmentID, orig.DepartmentID)

	if ue.PositionID != nil {
		if _, err := svc.GetPosition(ctx, *ue.PositionID); err != nil {
			if errors.Cause(err) == ErrNotFound {
				return core.NewValidationError(err, core.FieldError{Field: "position_id", Error: "invalid position"})
			}
			return err
		}
	}
	if ue.SubgroupID != nil {
		if err := checkNamedRef(ctx, svc, Subgroup, *ue.SubgroupID, "subgroup_id"); err != nil {
			return err
		}
	}
	if ue.DepartmentID != nil {
		if _, err := unitSvc.GetByID(ctx, unit.Department, *ue.DepartmentID); err != nil {
			if errors.Cause(err) == unit.ErrNotFound {
				return core.NewValidationError(err, core.FieldError{Field: "department_id", Error: "invalid department"})
			}
			return err
		}
	}
	return nil
}

// EmployeeRow is a line of the employees listing.
type EmployeeRow struct {
	ID           int    `json:"id"`
	LastName     string `json:"last_name"`
	FirstName    string `json:"first_name"`
	Degree       string `json:"degree"` // name: degrees have no abbreviation
	Status       string `json:"status"`
	InEvaluation bool   `json:"in_evaluation"`
	Domain       string `json:"domain"`
	Discipline   string `json:"discipline"`
	Group        string `json:"group"`
	Subgroup     string `json:"subgroup"`
	Position     string `json:"position"`
	Department   string `json:"department"`
}

// EmploymentRow is a line of the employments listing.
type EmploymentRow struct {
	ID         int    `json:"id"`
	EmployeeID int    `json:"employee_id"`
	Employee   string `json:"employee"`
	Group      string `json:"group"`
	Subgroup   string `json:"subgroup"`
	Position   string `json:"position"`
	Department string `json:"department"`
}

// GetFilter selects a single Employee; the first non-zero field wins.
type GetFilter struct {
	ID     int
	UserID int
	ORCID  string
}

// QueryFilter.Search matches the ID, the names or the email of employees.
type QueryFilter struct {
	Search       string `query:"search"`
	InEvaluation *bool  `query:"in_evaluation"`
	DisciplineID int    `query:"discipline"`
	DepartmentID int    `query:"department"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// EmploymentFilter.Search matches the ID or the employee's names of employments.
type EmploymentFilter struct {
	Search       string `query:"search"`
	DepartmentID int    `query:"department"`
}

func (ef *EmploymentFilter) Clean() {
	ef.Search = core.CleanString(ef.Search)
}

var (
	// OrderingFields lists the fields the employees listing can be ordered by.
	OrderingFields = []string{
		"id", "last_name", "first_name", "degree", "status", "in_evaluation",
		"domain", "discipline", "group", "subgroup", "position", "department",
	}
	// EmploymentOrderingFields lists the fields the employments listing can be ordered by.
	EmploymentOrderingFields = []string{"id", "employee", "group", "subgroup", "position", "department"}
)
