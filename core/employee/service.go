package employee

import (
	"context"
	"io"

	"github.com/pkg/errors"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/user"
)

var (
	// errors
	ErrNotFound           = errors.New("not found")
	ErrInvalidKind        = errors.New("invalid dictionary kind")
	ErrEmployeeNotFound   = errors.New("employee not found")
	ErrEmploymentNotFound = errors.New("employment not found")
	ErrUserTaken          = errors.New("this user already has an employee record")
	ErrORCIDExists        = errors.New("an employee with this ORCID already exists")
)

type (
	Repository interface {
		CreateNamed(ctx context.Context, n Named, exec ...core.DBExecutor) (Named, error)
		// QueryNamed lists the entries of kind; NamedFilter.Search does a case-insensitive
		// match on Named.Name or Named.Abbreviation, or an exact one on Named.ID.
		QueryNamed(ctx context.Context, kind Kind, filter *NamedFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Named, error)
		GetNamed(ctx context.Context, kind Kind, id int, exec ...core.DBExecutor) (Named, error)
		UpdateNamed(ctx context.Context, n Named, exec ...core.DBExecutor) (Named, error)
		DeleteNamed(ctx context.Context, kind Kind, ids []int, exec ...core.DBExecutor) (int, error)

		// CreatePosition & UpdatePosition save Position.SubgroupIDs as the subgroups of the position.
		CreatePosition(ctx context.Context, p Position, exec ...core.DBExecutor) (Position, error)
		QueryPositions(ctx context.Context, filter *NamedFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]Position, error)
		GetPosition(ctx context.Context, id int, exec ...core.DBExecutor) (Position, error)
		UpdatePosition(ctx context.Context, p Position, exec ...core.DBExecutor) (Position, error)
		DeletePositions(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error)

		// CreateEmployee returns ErrUserTaken or ErrORCIDExists on unique constraint violations.
		CreateEmployee(ctx context.Context, e Employee, exec ...core.DBExecutor) (Employee, error)
		GetEmployee(ctx context.Context, filter GetFilter, exec ...core.DBExecutor) (Employee, error)
		QueryEmployees(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]EmployeeRow, error)
		UpdateEmployee(ctx context.Context, e Employee, exec ...core.DBExecutor) (Employee, error)
		DeleteEmployees(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error)

		CreateEmployment(ctx context.Context, em Employment, exec ...core.DBExecutor) (Employment, error)
		// GetEmployment finds an employment by ID or, when id is 0, by employee ID.
		GetEmployment(ctx context.Context, id, employeeID int, exec ...core.DBExecutor) (Employment, error)
		QueryEmployments(ctx context.Context, filter *EmploymentFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]EmploymentRow, error)
		UpdateEmployment(ctx context.Context, em Employment, exec ...core.DBExecutor) (Employment, error)
		DeleteEmployments(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error)
	}

	Service interface {
		CreateNamed(ctx context.Context, kind Kind, nn NewNamed) (Named, error)
		QueryNamed(ctx context.Context, kind Kind, filter *NamedFilter, ordering []core.DBOrdering) ([]Named, error)
		GetNamed(ctx context.Context, kind Kind, id int) (Named, error)
		UpdateNamed(ctx context.Context, n Named, un UpdateNamed) (Named, error)
		DeleteNamed(ctx context.Context, kind Kind, ids ...int) error

		CreatePosition(ctx context.Context, np NewPosition) (Position, error)
		QueryPositions(ctx context.Context, filter *NamedFilter, ordering []core.DBOrdering) ([]Position, error)
		GetPosition(ctx context.Context, id int) (Position, error)
		UpdatePosition(ctx context.Context, p Position, up UpdatePosition) (Position, error)
		DeletePositions(ctx context.Context, ids ...int) error

		CheckUser(ctx context.Context, userID int) error
		CheckORCID(ctx context.Context, orcid *string, exclEmployeeID int) error
		// Create saves a new employee along with its (empty) employment.
		Create(ctx context.Context, ne NewEmployee) (Employee, Employment, error)
		Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]EmployeeRow, error)
		GetByID(ctx context.Context, id int) (Employee, error)
		// Update saves e and creates its employment when it has none.
		Update(ctx context.Context, e Employee, ue UpdateEmployee) (Employee, error)
		Delete(ctx context.Context, ids ...int) error
		// Export writes the employees listing to w as an xlsx workbook and returns the number of rows written.
		Export(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, w io.Writer) (int, error)

		QueryEmployments(ctx context.Context, filter *EmploymentFilter, ordering []core.DBOrdering) ([]EmploymentRow, error)
		GetEmployment(ctx context.Context, id int) (Employment, error)
		GetEmploymentByEmployee(ctx context.Context, employeeID int) (Employment, error)
		UpdateEmployment(ctx context.Context, em Employment, ue UpdateEmployment) (Employment, error)
		DeleteEmployments(ctx context.Context, ids ...int) error
	}

	service struct {
		db     core.DB
		repo   Repository
		usrSvc user.Service
	}
)

var _ Service = (*service)(nil)

func NewService(db core.DB, repo Repository, usrSvc user.Service) Service {
	return &service{
		db:     db,
		repo:   repo,
		usrSvc: usrSvc,
	}
}

// Dictionaries

func (svc *service) CreateNamed(ctx context.Context, kind Kind, nn NewNamed) (Named, error) {
	if !kind.Valid() {
		return Named{}, ErrInvalidKind
	}
	return svc.repo.CreateNamed(ctx, Named{
		Kind:         kind,
		Name:         nn.Name,
		Abbreviation: nn.Abbreviation,
		ParentID:     nn.ParentID,
	})
}

func (svc *service) QueryNamed(ctx context.Context, kind Kind, filter *NamedFilter, ordering []core.DBOrdering) ([]Named, error) {
	if !kind.Valid() {
		return nil, ErrInvalidKind
	}
	ordering = core.FilterOrdering(ordering, NamedOrderingFields...)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "id", Ascending: true}}
	}
	return svc.repo.QueryNamed(ctx, kind, filter, ordering)
}

func (svc *service) GetNamed(ctx context.Context, kind Kind, id int) (Named, error) {
	if !kind.Valid() {
		return Named{}, ErrInvalidKind
	}
	return svc.repo.GetNamed(ctx, kind, id)
}

// UpdateNamed expects un to have been validated against n.
func (svc *service) UpdateNamed(ctx context.Context, n Named, un UpdateNamed) (Named, error) {
	if un.Name != nil {
		n.Name = *un.Name
	}
	if un.Abbreviation != nil {
		n.Abbreviation = *un.Abbreviation
	}
	if un.ParentID != nil {
		n.ParentID = un.ParentID
	}
	return svc.repo.UpdateNamed(ctx, n)
}

func (svc *service) DeleteNamed(ctx context.Context, kind Kind, ids ...int) error {
	if !kind.Valid() {
		return ErrInvalidKind
	}
	if len(ids) == 0 {
		return nil
	}
	_, err := svc.repo.DeleteNamed(ctx, kind, ids)
	return err
}

// Positions

func (svc *service) CreatePosition(ctx context.Context, np NewPosition) (Position, error) {
	subgroupIDs := np.SubgroupIDs
	if subgroupIDs == nil {
		subgroupIDs = []int{}
	}
	var p Position
	err := svc.db.WithTx(ctx, func(exec core.DBExecutor) error {
		var err error
		p, err = svc.repo.CreatePosition(ctx, Position{Name: np.Name, SubgroupIDs: subgroupIDs}, exec)
		return err
	})
	if err != nil {
		return Position{}, err
	}
	return svc.GetPosition(ctx, p.ID)
}

func (svc *service) QueryPositions(ctx context.Context, filter *NamedFilter, ordering []core.DBOrdering) ([]Position, error) {
	ordering = core.FilterOrdering(ordering, PositionOrderingFields...)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "id", Ascending: true}}
	}
	positions, err := svc.repo.QueryPositions(ctx, filter, ordering)
	if err != nil {
		return nil, err
	}
	groups := make(map[int]*Named)
	for i := range positions {
		if err := svc.setGroup(ctx, &positions[i], groups); err != nil {
			return nil, err
		}
	}
	return positions, nil
}

func (svc *service) GetPosition(ctx context.Context, id int) (Position, error) {
	p, err := svc.repo.GetPosition(ctx, id)
	if err != nil {
		return Position{}, err
	}
	if err = svc.setGroup(ctx, &p, make(map[int]*Named)); err != nil {
		return Position{}, err
	}
	return p, nil
}

// setGroup resolves the group of p, caching the groups already fetched.
func (svc *service) setGroup(ctx context.Context, p *Position, cache map[int]*Named) error {
	p.Group = nil
	groupID, ok := p.groupID()
	if !ok {
		return nil
	}
	if g, ok := cache[groupID]; ok {
		p.Group = g
		return nil
	}
	g, err := svc.repo.GetNamed(ctx, Group, groupID)
	if err != nil {
		return errors.Wrap(err, "getting position group")
	}
	cache[groupID] = &g
	p.Group = &g
	return nil
}

// UpdatePosition expects up to have been validated.
func (svc *service) UpdatePosition(ctx context.Context, p Position, up UpdatePosition) (Position, error) {
	if up.Name != nil {
		p.Name = *up.Name
	}
	if up.SubgroupIDs != nil {
		p.SubgroupIDs = up.SubgroupIDs
	}
	err := svc.db.WithTx(ctx, func(exec core.DBExecutor) error {
		_, err := svc.repo.UpdatePosition(ctx, p, exec)
		return err
	})
	if err != nil {
		return Position{}, err
	}
	return svc.GetPosition(ctx, p.ID)
}

func (svc *service) DeletePositions(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := svc.repo.DeletePositions(ctx, ids)
	return err
}

// Employees

func (svc *service) CheckUser(ctx context.Context, userID int) error {
	if _, err := svc.usrSvc.GetByID(ctx, userID); err != nil {
		if errors.Cause(err) == user.ErrNotFound {
			return core.NewValidationError(err, core.FieldError{Field: "user_id", Error: "invalid user"})
		}
		return err
	}
	_, err := svc.repo.GetEmployee(ctx, GetFilter{UserID: userID})
	switch errors.Cause(err) {
	case nil:
		return core.NewValidationError(ErrUserTaken, core.FieldError{Field: "user_id", Error: ErrUserTaken.Error()})
	case ErrEmployeeNotFound:
		return nil
	}
	return err
}

func (svc *service) CheckORCID(ctx context.Context, orcid *string, exclEmployeeID int) error {
	if orcid == nil {
		return nil
	}
	e, err := svc.repo.GetEmployee(ctx, GetFilter{ORCID: *orcid})
	switch errors.Cause(err) {
	case nil:
		if e.ID == exclEmployeeID {
			return nil
		}
		return core.NewValidationError(ErrORCIDExists, core.FieldError{Field: "orcid", Error: ErrORCIDExists.Error()})
	case ErrEmployeeNotFound:
		return nil
	}
	return err
}

func (svc *service) Create(ctx context.Context, ne NewEmployee) (Employee, Employment, error) {
	e := Employee{
		UserID:       ne.UserID,
		Sex:          ne.Sex,
		DegreeID:     ne.DegreeID,
		StatusID:     ne.StatusID,
		InEvaluation: true,
		DisciplineID: ne.DisciplineID,
		ORCID:        ne.ORCID,
	}
	if e.Sex == "" {
		e.Sex = Female
	}
	if ne.InEvaluation != nil {
		e.InEvaluation = *ne.InEvaluation
	}

	err := svc.db.WithTx(ctx, func(exec core.DBExecutor) error {
		var err error
		if e, err = svc.repo.CreateEmployee(ctx, e, exec); err != nil {
			return err
		}
		_, err = svc.repo.CreateEmployment(ctx, Employment{EmployeeID: e.ID}, exec)
		return errors.Wrap(err, "creating employment")
	})
	if err != nil {
		return Employee{}, Employment{}, err
	}

	if e, err = svc.GetByID(ctx, e.ID); err != nil {
		return Employee{}, Employment{}, err
	}
	em, err := svc.GetEmploymentByEmployee(ctx, e.ID)
	if err != nil {
		return Employee{}, Employment{}, err
	}
	return e, em, nil
}

func (svc *service) Query(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering) ([]EmployeeRow, error) {
	ordering = core.FilterOrdering(ordering, OrderingFields...)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "id", Ascending: true}}
	}
	return svc.repo.QueryEmployees(ctx, filter, ordering)
}

func (svc *service) GetByID(ctx context.Context, id int) (Employee, error) {
	return svc.repo.GetEmployee(ctx, GetFilter{ID: id})
}

// Update expects ue to have been validated against e.
func (svc *service) Update(ctx context.Context, e Employee, ue UpdateEmployee) (Employee, error) {
	if ue.Sex != "" {
		e.Sex = ue.Sex
	}
	if ue.InEvaluation != nil {
		e.InEvaluation = *ue.InEvaluation
	}
	e.DegreeID = ue.DegreeID
	e.StatusID = ue.StatusID
	e.DisciplineID = ue.DisciplineID
	e.ORCID = ue.ORCID

	err := svc.db.WithTx(ctx, func(exec core.DBExecutor) error {
		if _, err := svc.repo.UpdateEmployee(ctx, e, exec); err != nil {
			return err
		}
		return svc.ensureEmployment(ctx, e.ID, exec)
	})
	if err != nil {
		return Employee{}, err
	}
	return svc.GetByID(ctx, e.ID)
}

func (svc *service) ensureEmployment(ctx context.Context, employeeID int, exec core.DBExecutor) error {
	_, err := svc.repo.GetEmployment(ctx, 0, employeeID, exec)
	if errors.Cause(err) == ErrEmploymentNotFound {
		_, err = svc.repo.CreateEmployment(ctx, Employment{EmployeeID: employeeID}, exec)
		return errors.Wrap(err, "creating employment")
	}
	return err
}

func (svc *service) Delete(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := svc.repo.DeleteEmployees(ctx, ids)
	return err
}

func (svc *service) Export(ctx context.Context, filter *QueryFilter, ordering []core.DBOrdering, w io.Writer) (int, error) {
	rows, err := svc.Query(ctx, filter, ordering)
	if err != nil {
		return 0, err
	}
	if err = WriteWorkbook(w, rows); err != nil {
		return 0, errors.Wrap(err, "writing workbook")
	}
	return len(rows), nil
}

// Employments

func (svc *service) QueryEmployments(ctx context.Context, filter *EmploymentFilter, ordering []core.DBOrdering) ([]EmploymentRow, error) {
	ordering = core.FilterOrdering(ordering, EmploymentOrderingFields...)
	if len(ordering) == 0 {
		ordering = []core.DBOrdering{{Field: "id", Ascending: true}}
	}
	return svc.repo.QueryEmployments(ctx, filter, ordering)
}

func (svc *service) GetEmployment(ctx context.Context, id int) (Employment, error) {
	if id == 0 {
		return Employment{}, ErrEmploymentNotFound
	}
	return svc.repo.GetEmployment(ctx, id, 0)
}

func (svc *service) GetEmploymentByEmployee(ctx context.Context, employeeID int) (Employment, error) {
	if employeeID == 0 {
		return Employment{}, ErrEmploymentNotFound
	}
	return svc.repo.GetEmployment(ctx, 0, employeeID)
}

// UpdateEmployment expects ue to have been validated against em.
func (svc *service) UpdateEmployment(ctx context.Context, em Employment, ue UpdateEmployment) (Employment, error) {
	em.PositionID = ue.PositionID
	em.SubgroupID = ue.SubgroupID
	em.DepartmentID = ue.DepartmentID
	if _, err := svc.repo.UpdateEmployment(ctx, em); err != nil {
		return Employment{}, err
	}
	return svc.GetEmployment(ctx, em.ID)
}

func (svc *service) DeleteEmployments(ctx context.Context, ids ...int) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := svc.repo.DeleteEmployments(ctx, ids)
	return err
}
