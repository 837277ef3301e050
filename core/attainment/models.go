package attainment

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/employee"
)

// Kind is the kind of an attainment, the only valid targets of a contribution.
type Kind string

const (
	Article Kind = "article"
	Patent  Kind = "patent"
	Grant   Kind = "grant"
)

var Kinds = []Kind{Article, Patent, Grant}

func (k Kind) Valid() bool {
	switch k {
	case Article, Patent, Grant:
		return true
	}
	return false
}

func (k Kind) Plural() string { return string(k) + "s" }

// KindError is returned when a contribution targets something that is not an attainment.
type KindError struct {
	Kind string
}

func (e *KindError) Error() string {
	return fmt.Sprintf("%q is not an attainment kind (expected one of: %s, %s, %s)", e.Kind, Article, Patent, Grant)
}

func ParseKind(s string) (Kind, error) {
	if k := Kind(strings.ToLower(strings.TrimSpace(s))); k.Valid() {
		return k, nil
	}
	return "", &KindError{Kind: s}
}

const (
	titleWords = 10

	// NotOnlyByEmployeesHint is shown along the authors of attainments having non-employee authors.
	NotOnlyByEmployeesHint = "Authors who are not employees are marked in light grey."
)

type Attainment struct {
	ID          int    `json:"id"`
	Kind        Kind   `json:"kind"`
	Title       string `json:"title"`
	AuthorsList string `json:"authors_list"` // read-only, see AuthorsList
}

// TruncatedTitle keeps the first words of the title.
func (a Attainment) TruncatedTitle() string { return core.TruncateWords(a.Title, titleWords) }

func (a Attainment) String() string {
	s := a.TruncatedTitle()
	if a.AuthorsList != "" {
		s = a.AuthorsList + ": " + s
	}
	return core.StripTags(strings.TrimSpace(s))
}

// Detail is an attainment along with its contributions, ordered.
type Detail struct {
	Attainment
	Contributions   []Contribution `json:"contributions"`
	OnlyByEmployees bool           `json:"only_by_employees"`
	AuthorsHint     string         `json:"authors_hint,omitempty"`
}

type NewAttainment struct {
	Title string `json:"title" validate:"required,notblank"`
}

func (na *NewAttainment) Validate(validate *validator.Validate) error {
	na.Title = core.CleanString(na.Title)
	return validate.Struct(na)
}

type UpdateAttainment struct {
	Title *string `json:"title" validate:"omitempty,notblank"`
}

func (ua *UpdateAttainment) Validate(validate *validator.Validate) error {
	if ua.Title != nil {
		title := core.CleanString(*ua.Title)
		ua.Title = &title
	}
	return validate.Struct(ua)
}

// QueryFilter.Search does a case-insensitive match on the title or the authors list.
type QueryFilter struct {
	Search   string `query:"search"`
	AuthorID int    `query:"author"`
}

func (qf *QueryFilter) Clean() {
	qf.Search = core.CleanString(qf.Search)
}

// Author is a contributor of attainments: an employee, or a mere alias for outsiders.
type Author struct {
	ID         int    `json:"id"`
	EmployeeID *int   `json:"employee_id"`
	Alias      string `json:"alias"`

	// read-only, through the employee & its employment
	Employee     string `json:"employee,omitempty"`
	Employed     bool   `json:"is_employed"`
	DepartmentID *int   `json:"department_id,omitempty"`
}

func (a Author) String() string { return a.Alias }

func (a Author) IsEmployed() bool { return a.EmployeeID != nil && a.Employed }

// Department returns the ID of the department of the author's employment, if any.
func (a Author) Department() *int {
	if !a.IsEmployed() {
		return nil
	}
	return a.DepartmentID
}

// AuthorURL is the location of an author in the API.
func AuthorURL(id int) string { return "/api/attainments/authors/" + strconv.Itoa(id) }

type NewAuthor struct {
	EmployeeID *int   `json:"employee_id"`
	Alias      string `json:"alias" validate:"max=50"`
}

// Validate requires an employee or an alias; the alias of an employee defaults to its short name.
func (na *NewAuthor) Validate(ctx context.Context, validate *validator.Validate, empSvc employee.Service) error {
	na.Alias = core.CleanString(na.Alias)
	if na.EmployeeID != nil && *na.EmployeeID == 0 {
		na.EmployeeID = nil
	}
	if err := validate.Struct(na); err != nil {
		return err
	}
	alias, err := cleanAuthor(ctx, na.EmployeeID, na.Alias, empSvc)
	if err != nil {
		return err
	}
	na.Alias = alias
	return nil
}

// UpdateAuthor defines what information may be provided to modify an Author.
// A zero employee ID unlinks the author from its employee.
type UpdateAuthor struct {
	EmployeeID *int    `json:"employee_id"`
	Alias      *string `json:"alias" validate:"omitempty,max=50"`
}

func (ua *UpdateAuthor) Validate(ctx context.Context, orig Author, validate *validator.Validate, empSvc employee.Service) error {
	switch {
	case ua.EmployeeID == nil:
		ua.EmployeeID = orig.EmployeeID
	case *ua.EmployeeID == 0:
		ua.EmployeeID = nil
	}
	alias := orig.Alias
	if ua.Alias != nil {
		alias = core.CleanString(*ua.Alias)
	}
	ua.Alias = &alias

	if err := validate.Struct(ua); err != nil {
		return err
	}
	alias, err := cleanAuthor(ctx, ua.EmployeeID, alias, empSvc)
	if err != nil {
		return err
	}
	ua.Alias = &alias
	return nil
}

const maxAliasLength = 50

var ErrAuthorIdentity = errors.New("creating or changing an author requires an alias or an employee")

func cleanAuthor(ctx context.Context, employeeID *int, alias string, empSvc employee.Service) (string, error) {
	if employeeID == nil {
		if alias == "" {
			return "", core.NewValidationError(ErrAuthorIdentity)
		}
		return alias, nil
	}
	emp, err := empSvc.GetByID(ctx, *employeeID)
	if err != nil {
		if errors.Cause(err) == employee.ErrEmployeeNotFound {
			return "", core.NewValidationError(err, core.FieldError{Field: "employee_id", Error: "invalid employee"})
		}
		return "", err
	}
	if alias == "" {
		alias = emp.ShortName()
		if n := utf8.RuneCountInString(alias); n > maxAliasLength {
			return "", core.NewValidationError(nil, core.FieldError{
				Field: "alias",
				Error: fmt.Sprintf("alias must be a maximum of %d characters in length", maxAliasLength),
			})
		}
	}
	return alias, nil
}

// AuthorFilter.Search does a case-insensitive match on the alias or the employee's names.
type AuthorFilter struct {
	Search     string `query:"search"`
	EmployeeID int    `query:"employee"`
}

func (af *AuthorFilter) Clean() {
	af.Search = core.CleanString(af.Search)
}

// Contribution links an author to an attainment of any kind.
type Contribution struct {
	ID         int  `json:"id"`
	Kind       Kind `json:"kind"`
	ObjectID   int  `json:"object_id"`
	Order      int  `json:"order"`
	AuthorID   int  `json:"author_id"`
	Percentage int  `json:"percentage"`

	// read-only, from the author
	AuthorAlias      string `json:"author"`
	AuthorEmployeeID *int   `json:"author_employee_id"`
}

func (c Contribution) String() string {
	return fmt.Sprintf("%s, in element of type %s (ID=%d)", c.AuthorAlias, c.Kind, c.ObjectID)
}

func (c Contribution) ByEmployee() bool { return c.AuthorEmployeeID != nil }

// target is the attainment a contribution points to.
type target struct {
	kind     Kind
	objectID int
}

func (c Contribution) target() target { return target{kind: c.Kind, objectID: c.ObjectID} }

type NewContribution struct {
	Kind       string `json:"kind" validate:"required"`
	ObjectID   int    `json:"object_id" validate:"required,min=1"`
	Order      *int   `json:"order" validate:"omitempty,min=1"`
	AuthorID   int    `json:"author_id" validate:"required"`
	Percentage *int   `json:"percentage" validate:"omitempty,min=0,max=100"`
}

func (nc *NewContribution) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	if nc.Order == nil {
		order := 1
		nc.Order = &order
	}
	if nc.Percentage == nil {
		pct := 0
		nc.Percentage = &pct
	}
	if err := validate.Struct(nc); err != nil {
		return err
	}
	kind, err := ParseKind(nc.Kind)
	if err != nil {
		return core.NewValidationError(err, core.FieldError{Field: "kind", Error: "invalid attainment kind"})
	}
	nc.Kind = string(kind)
	return checkAuthor(ctx, nc.AuthorID, svc)
}

type UpdateContribution struct {
	Kind       *string `json:"kind"`
	ObjectID   *int    `json:"object_id" validate:"omitempty,min=1"`
	Order      *int    `json:"order" validate:"omitempty,min=1"`
	AuthorID   *int    `json:"author_id"`
	Percentage *int    `json:"percentage" validate:"omitempty,min=0,max=100"`
}

func (uc *UpdateContribution) Validate(ctx context.Context, validate *validator.Validate, svc Service) error {
	if err := validate.Struct(uc); err != nil {
		return err
	}
	if uc.Kind != nil {
		kind, err := ParseKind(*uc.Kind)
		if err != nil {
			return core.NewValidationError(err, core.FieldError{Field: "kind", Error: "invalid attainment kind"})
		}
		k := string(kind)
		uc.Kind = &k
	}
	if uc.AuthorID != nil {
		return checkAuthor(ctx, *uc.AuthorID, svc)
	}
	return nil
}

func checkAuthor(ctx context.Context, authorID int, svc Service) error {
	if _, err := svc.GetAuthor(ctx, authorID); err != nil {
		if errors.Cause(err) == ErrAuthorNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "author_id", Error: "invalid author"})
		}
		return err
	}
	return nil
}

// ContributionFilter.Search does a case-insensitive match on the author's alias.
type ContributionFilter struct {
	Search   string `query:"search"`
	Kind     Kind   `query:"kind"`
	ObjectID int    `query:"object_id"`
	AuthorID int    `query:"author"`
}

func (cf *ContributionFilter) Clean() {
	cf.Search = core.CleanString(cf.Search)
}

var (
	// OrderingFields lists the fields attainments can be ordered by.
	OrderingFields = []string{"id", "title"}
	// AuthorOrderingFields lists the fields authors can be ordered by.
	AuthorOrderingFields = []string{"id", "alias", "employee"}
	// ContributionOrderingFields lists the fields contributions can be ordered by.
	ContributionOrderingFields = []string{"id", "order", "percentage", "author"}
)
