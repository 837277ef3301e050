package sqlxrepos

import (
	"context"
	"strconv"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/employee"
)

const (
	employeeUserConstraint  = "employees_user_id_key"
	employeeORCIDConstraint = "employees_orcid_key"
)

var (
	namedOrderingColumns = map[string]string{
		"id":           "t.id",
		"name":         "t.name",
		"abbreviation": "t.abbreviation",
		"parent_name":  "parent_name",
	}
	positionOrderingColumns = map[string]string{
		"id":   "id",
		"name": "name",
	}
	employeeOrderingColumns = map[string]string{
		"id":            "e.id",
		"last_name":     "u.last_name",
		"first_name":    "u.first_name",
		"degree":        "degree",
		"status":        "status",
		"in_evaluation": "e.in_evaluation",
		"domain":        "domain",
		"discipline":    "discipline",
		"group":         `"group"`,
		"subgroup":      "subgroup",
		"position":      "position",
		"department":    "department",
	}
	employmentOrderingColumns = map[string]string{
		"id":         "em.id",
		"employee":   "employee_name",
		"group":      `"group"`,
		"subgroup":   "subgroup",
		"position":   "position",
		"department": "department",
	}
)

type employeeRepository struct {
	repository
}

var _ employee.Repository = (*employeeRepository)(nil) // interface compliance check

func NewEmployeeRepository(exec core.DBExecutor) employee.Repository {
	return &employeeRepository{repository{exec: exec}}
}

// Dictionaries

type namedRow struct {
	ID           int      `db:"id"`
	Name         string   `db:"name"`
	Abbreviation string   `db:"abbreviation"`
	ParentID     null.Int `db:"parent_id"`
	ParentName   string   `db:"parent_name"`
}

func (r namedRow) named(kind employee.Kind) employee.Named {
	return employee.Named{
		ID:           r.ID,
		Kind:         kind,
		Name:         r.Name,
		Abbreviation: r.Abbreviation,
		ParentID:     r.ParentID.Ptr(),
		ParentName:   r.ParentName,
	}
}

func selectNamed(kind employee.Kind) sq.SelectBuilder {
	q := psql.Select("t.id", "t.name", "t.abbreviation").From(kind.Plural() + " t")
	if parent := kind.Parent(); parent != "" {
		return q.Columns("t.parent_id", "COALESCE(p.name, '') AS parent_name").
			LeftJoin(parent.Plural() + " p ON p.id = t.parent_id")
	}
	return q.Columns("NULL::integer AS parent_id", "'' AS parent_name")
}

func namedValues(n employee.Named) map[string]interface{} {
	values := map[string]interface{}{
		"name":         n.Name,
		"abbreviation": n.Abbreviation,
	}
	if n.Kind.Parent() != "" {
		values["parent_id"] = null.IntFromPtr(n.ParentID)
	}
	return values
}

func (repo employeeRepository) CreateNamed(ctx context.Context, n employee.Named, exec ...core.DBExecutor) (employee.Named, error) {
	if !n.Kind.Valid() {
		return employee.Named{}, employee.ErrInvalidKind
	}
	exe := repo.getExec(exec)
	values := namedValues(n)
	if n.ID != 0 {
		values["id"] = n.ID
	}

	var id int
	if err := getRow(ctx, exe, &id, psql.Insert(n.Kind.Plural()).SetMap(values).Suffix("RETURNING id")); err != nil {
		return employee.Named{}, errors.Wrapf(err, "inserting %s", n.Kind)
	}
	if n.ID != 0 {
		if err := bumpSequence(ctx, exe, n.Kind.Plural()); err != nil {
			return employee.Named{}, err
		}
	}
	return repo.GetNamed(ctx, n.Kind, id, exe)
}

func (repo employeeRepository) QueryNamed(ctx context.Context, kind employee.Kind, filter *employee.NamedFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]employee.Named, error) {
	if !kind.Valid() {
		return nil, employee.ErrInvalidKind
	}
	q := selectNamed(kind)
	if filter != nil {
		if filter.Search != "" {
			match := search(filter.Search, "t.name", "t.abbreviation")
			if id, err := strconv.Atoi(filter.Search); err == nil {
				match = append(match, sq.Eq{"t.id": id})
			}
			q = q.Where(match)
		}
		if filter.ParentID != 0 && kind.Parent() != "" {
			q = q.Where(sq.Eq{"t.parent_id": filter.ParentID})
		}
	}
	q = orderBy(q, ordering, namedOrderingColumns)

	var rows []namedRow
	if err := selectRows(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrapf(err, "querying %s", kind.Plural())
	}
	list := make([]employee.Named, 0, len(rows))
	for _, r := range rows {
		list = append(list, r.named(kind))
	}
	return list, nil
}

func (repo employeeRepository) GetNamed(ctx context.Context, kind employee.Kind, id int, exec ...core.DBExecutor) (employee.Named, error) {
	if !kind.Valid() {
		return employee.Named{}, employee.ErrInvalidKind
	}
	var row namedRow
	if err := getRow(ctx, repo.getExec(exec), &row, selectNamed(kind).Where(sq.Eq{"t.id": id})); err != nil {
		return employee.Named{}, trapNoRowsErr(err, employee.ErrNotFound, "finding "+string(kind))
	}
	return row.named(kind), nil
}

func (repo employeeRepository) UpdateNamed(ctx context.Context, n employee.Named, exec ...core.DBExecutor) (employee.Named, error) {
	if !n.Kind.Valid() {
		return employee.Named{}, employee.ErrInvalidKind
	}
	exe := repo.getExec(exec)
	cnt, err := execQuery(ctx, exe, psql.Update(n.Kind.Plural()).SetMap(namedValues(n)).Where(sq.Eq{"id": n.ID}))
	if err != nil {
		return employee.Named{}, errors.Wrapf(err, "updating %s", n.Kind)
	}
	if cnt == 0 {
		return employee.Named{}, employee.ErrNotFound
	}
	return repo.GetNamed(ctx, n.Kind, n.ID, exe)
}

// DeleteNamed relies on the foreign keys: children are deleted, references are nulled.
func (repo employeeRepository) DeleteNamed(ctx context.Context, kind employee.Kind, ids []int, exec ...core.DBExecutor) (int, error) {
	if !kind.Valid() {
		return 0, employee.ErrInvalidKind
	}
	cnt, err := execQuery(ctx, repo.getExec(exec), psql.Delete(kind.Plural()).Where(sq.Eq{"id": ids}))
	if err != nil {
		return 0, errors.Wrapf(err, "deleting %s", kind.Plural())
	}
	return cnt, nil
}

// Positions

type positionRow struct {
	ID   int    `db:"id"`
	Name string `db:"name"`
}

type positionSubgroupRow struct {
	PositionID int `db:"position_id"`
	namedRow
}

// loadSubgroups fills the subgroups of positions.
func (repo employeeRepository) loadSubgroups(ctx context.Context, exe core.DBExecutor, positions []employee.Position) error {
	if len(positions) == 0 {
		return nil
	}
	ids := make([]int, 0, len(positions))
	for _, p := range positions {
		ids = append(ids, p.ID)
	}

	q := selectNamed(employee.Subgroup).
		Columns("ps.position_id").
		Join("position_subgroups ps ON ps.subgroup_id = t.id").
		Where(sq.Eq{"ps.position_id": ids}).
		OrderBy("parent_name ASC", "t.name ASC", "t.id ASC")
	var rows []positionSubgroupRow
	if err := selectRows(ctx, exe, &rows, q); err != nil {
		return errors.Wrap(err, "querying position subgroups")
	}

	byPosition := make(map[int][]employee.Named, len(positions))
	for _, r := range rows {
		byPosition[r.PositionID] = append(byPosition[r.PositionID], r.named(employee.Subgroup))
	}
	for i := range positions {
		sgs := byPosition[positions[i].ID]
		positions[i].Subgroups = make([]employee.Named, 0, len(sgs))
		positions[i].SubgroupIDs = make([]int, 0, len(sgs))
		for _, sg := range sgs {
			positions[i].Subgroups = append(positions[i].Subgroups, sg)
			positions[i].SubgroupIDs = append(positions[i].SubgroupIDs, sg.ID)
		}
	}
	return nil
}

func (repo employeeRepository) setSubgroups(ctx context.Context, exe core.DBExecutor, positionID int, subgroupIDs []int) error {
	if _, err := execQuery(ctx, exe, psql.Delete("position_subgroups").Where(sq.Eq{"position_id": positionID})); err != nil {
		return errors.Wrap(err, "clearing position subgroups")
	}
	if len(subgroupIDs) == 0 {
		return nil
	}
	q := psql.Insert("position_subgroups").Columns("position_id", "subgroup_id")
	for _, id := range subgroupIDs {
		q = q.Values(positionID, id)
	}
	_, err := execQuery(ctx, exe, q)
	return errors.Wrap(err, "inserting position subgroups")
}

func (repo employeeRepository) CreatePosition(ctx context.Context, p employee.Position, exec ...core.DBExecutor) (employee.Position, error) {
	exe := repo.getExec(exec)
	values := map[string]interface{}{"name": p.Name}
	if p.ID != 0 {
		values["id"] = p.ID
	}

	var id int
	if err := getRow(ctx, exe, &id, psql.Insert("positions").SetMap(values).Suffix("RETURNING id")); err != nil {
		return employee.Position{}, errors.Wrap(err, "inserting position")
	}
	if p.ID != 0 {
		if err := bumpSequence(ctx, exe, "positions"); err != nil {
			return employee.Position{}, err
		}
	}
	if err := repo.setSubgroups(ctx, exe, id, p.SubgroupIDs); err != nil {
		return employee.Position{}, err
	}
	return repo.GetPosition(ctx, id, exe)
}

func (repo employeeRepository) QueryPositions(ctx context.Context, filter *employee.NamedFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]employee.Position, error) {
	exe := repo.getExec(exec)
	q := psql.Select("id", "name").From("positions")
	if filter != nil {
		if filter.Search != "" {
			match := search(filter.Search, "name")
			if id, err := strconv.Atoi(filter.Search); err == nil {
				match = append(match, sq.Eq{"id": id})
			}
			q = q.Where(match)
		}
		if filter.ParentID != 0 {
			q = q.Where("id IN (SELECT position_id FROM position_subgroups WHERE subgroup_id = ?)", filter.ParentID)
		}
	}
	q = orderBy(q, ordering, positionOrderingColumns)

	var rows []positionRow
	if err := selectRows(ctx, exe, &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying positions")
	}
	positions := make([]employee.Position, 0, len(rows))
	for _, r := range rows {
		positions = append(positions, employee.Position{ID: r.ID, Name: r.Name})
	}
	if err := repo.loadSubgroups(ctx, exe, positions); err != nil {
		return nil, err
	}
	return positions, nil
}

func (repo employeeRepository) GetPosition(ctx context.Context, id int, exec ...core.DBExecutor) (employee.Position, error) {
	exe := repo.getExec(exec)
	var row positionRow
	if err := getRow(ctx, exe, &row, psql.Select("id", "name").From("positions").Where(sq.Eq{"id": id})); err != nil {
		return employee.Position{}, trapNoRowsErr(err, employee.ErrNotFound, "finding position")
	}
	positions := []employee.Position{{ID: row.ID, Name: row.Name}}
	if err := repo.loadSubgroups(ctx, exe, positions); err != nil {
		return employee.Position{}, err
	}
	return positions[0], nil
}

func (repo employeeRepository) UpdatePosition(ctx context.Context, p employee.Position, exec ...core.DBExecutor) (employee.Position, error) {
	exe := repo.getExec(exec)
	cnt, err := execQuery(ctx, exe, psql.Update("positions").Set("name", p.Name).Where(sq.Eq{"id": p.ID}))
	if err != nil {
		return employee.Position{}, errors.Wrap(err, "updating position")
	}
	if cnt == 0 {
		return employee.Position{}, employee.ErrNotFound
	}
	if err = repo.setSubgroups(ctx, exe, p.ID, p.SubgroupIDs); err != nil {
		return employee.Position{}, err
	}
	return repo.GetPosition(ctx, p.ID, exe)
}

func (repo employeeRepository) DeletePositions(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error) {
	cnt, err := execQuery(ctx, repo.getExec(exec), psql.Delete("positions").Where(sq.Eq{"id": ids}))
	if err != nil {
		return 0, errors.Wrap(err, "deleting positions")
	}
	return cnt, nil
}

// Employees

type employeeRow struct {
	ID           int         `db:"id"`
	UserID       int         `db:"user_id"`
	Sex          string      `db:"sex"`
	DegreeID     null.Int    `db:"degree_id"`
	StatusID     null.Int    `db:"status_id"`
	InEvaluation bool        `db:"in_evaluation"`
	DisciplineID null.Int    `db:"discipline_id"`
	ORCID        null.String `db:"orcid"`
	Username     string      `db:"username"`
	FirstName    string      `db:"first_name"`
	LastName     string      `db:"last_name"`
	Email        string      `db:"email"`
	DegreeName   string      `db:"degree_name"`
}

func (r employeeRow) employee() employee.Employee {
	return employee.Employee{
		ID:           r.ID,
		UserID:       r.UserID,
		Sex:          employee.Sex(r.Sex),
		DegreeID:     r.DegreeID.Ptr(),
		StatusID:     r.StatusID.Ptr(),
		InEvaluation: r.InEvaluation,
		DisciplineID: r.DisciplineID.Ptr(),
		ORCID:        r.ORCID.Ptr(),
		Username:     r.Username,
		FirstName:    r.FirstName,
		LastName:     r.LastName,
		Email:        r.Email,
		DegreeName:   r.DegreeName,
	}
}

func employeeValues(e employee.Employee) map[string]interface{} {
	return map[string]interface{}{
		"user_id":       e.UserID,
		"sex":           string(e.Sex),
		"degree_id":     null.IntFromPtr(e.DegreeID),
		"status_id":     null.IntFromPtr(e.StatusID),
		"in_evaluation": e.InEvaluation,
		"discipline_id": null.IntFromPtr(e.DisciplineID),
		"orcid":         null.StringFromPtr(e.ORCID),
	}
}

// employeeErr maps unique constraint violations to domain errors.
func employeeErr(err error, msg string) error {
	if constraint, ok := uniqueViolation(err); ok {
		switch constraint {
		case employeeUserConstraint:
			return employee.ErrUserTaken
		case employeeORCIDConstraint:
			return employee.ErrORCIDExists
		}
	}
	return errors.Wrap(err, msg)
}

var selectEmployee = psql.Select(
	"e.id", "e.user_id", "e.sex", "e.degree_id", "e.status_id", "e.in_evaluation", "e.discipline_id", "e.orcid",
	"u.username", "u.first_name", "u.last_name", "u.email", "COALESCE(d.name, '') AS degree_name",
).
	From("employees e").
	Join("users u ON u.id = e.user_id").
	LeftJoin("degrees d ON d.id = e.degree_id")

func (repo employeeRepository) CreateEmployee(ctx context.Context, e employee.Employee, exec ...core.DBExecutor) (employee.Employee, error) {
	exe := repo.getExec(exec)
	values := employeeValues(e)
	if e.ID != 0 {
		values["id"] = e.ID
	}

	var id int
	if err := getRow(ctx, exe, &id, psql.Insert("employees").SetMap(values).Suffix("RETURNING id")); err != nil {
		return employee.Employee{}, employeeErr(err, "inserting employee")
	}
	if e.ID != 0 {
		if err := bumpSequence(ctx, exe, "employees"); err != nil {
			return employee.Employee{}, err
		}
	}
	return repo.GetEmployee(ctx, employee.GetFilter{ID: id}, exe)
}

func (repo employeeRepository) GetEmployee(ctx context.Context, filter employee.GetFilter, exec ...core.DBExecutor) (employee.Employee, error) {
	q := selectEmployee.Limit(1)
	switch {
	case filter.ID != 0:
		q = q.Where(sq.Eq{"e.id": filter.ID})
	case filter.UserID != 0:
		q = q.Where(sq.Eq{"e.user_id": filter.UserID})
	case filter.ORCID != "":
		q = q.Where(sq.Eq{"e.orcid": filter.ORCID})
	default:
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}

	var row employeeRow
	if err := getRow(ctx, repo.getExec(exec), &row, q); err != nil {
		return employee.Employee{}, trapNoRowsErr(err, employee.ErrEmployeeNotFound, "finding employee")
	}
	return row.employee(), nil
}

type employeeListRow struct {
	ID           int    `db:"id"`
	LastName     string `db:"last_name"`
	FirstName    string `db:"first_name"`
	Degree       string `db:"degree"`
	Status       string `db:"status"`
	InEvaluation bool   `db:"in_evaluation"`
	Domain       string `db:"domain"`
	Discipline   string `db:"discipline"`
	Group        string `db:"group"`
	Subgroup     string `db:"subgroup"`
	Position     string `db:"position"`
	Department   string `db:"department"`
}

func (repo employeeRepository) QueryEmployees(ctx context.Context, filter *employee.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]employee.EmployeeRow, error) {
	q := psql.Select(
		"e.id", "u.last_name", "u.first_name",
		"COALESCE(d.name, '') AS degree",
		"COALESCE(st.abbreviation, '') AS status",
		"e.in_evaluation",
		"COALESCE(dom.abbreviation, '') AS domain",
		"COALESCE(dis.abbreviation, '') AS discipline",
		`COALESCE(g.abbreviation, '') AS "group"`,
		"COALESCE(sg.abbreviation, '') AS subgroup",
		"COALESCE(p.name, '') AS position",
		"COALESCE(dep.abbreviation, '') AS department",
	).
		From("employees e").
		Join("users u ON u.id = e.user_id").
		LeftJoin("degrees d ON d.id = e.degree_id").
		LeftJoin("statuses st ON st.id = e.status_id").
		LeftJoin("disciplines dis ON dis.id = e.discipline_id").
		LeftJoin("domains dom ON dom.id = dis.parent_id").
		LeftJoin("employments em ON em.employee_id = e.id").
		LeftJoin("subgroups sg ON sg.id = em.subgroup_id").
		LeftJoin("groups g ON g.id = sg.parent_id").
		LeftJoin("positions p ON p.id = em.position_id").
		LeftJoin("departments dep ON dep.id = em.department_id")

	if filter != nil {
		if filter.Search != "" {
			match := search(filter.Search, "u.last_name", "u.first_name", "u.email")
			if id, err := strconv.Atoi(filter.Search); err == nil {
				match = append(match, sq.Eq{"e.id": id})
			}
			q = q.Where(match)
		}
		if filter.InEvaluation != nil {
			q = q.Where(sq.Eq{"e.in_evaluation": *filter.InEvaluation})
		}
		if filter.DisciplineID != 0 {
			q = q.Where(sq.Eq{"e.discipline_id": filter.DisciplineID})
		}
		if filter.DepartmentID != 0 {
			q = q.Where(sq.Eq{"em.department_id": filter.DepartmentID})
		}
	}
	q = orderBy(q, ordering, employeeOrderingColumns)

	var rows []employeeListRow
	if err := selectRows(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying employees")
	}
	list := make([]employee.EmployeeRow, 0, len(rows))
	for _, r := range rows {
		list = append(list, employee.EmployeeRow(r))
	}
	return list, nil
}

func (repo employeeRepository) UpdateEmployee(ctx context.Context, e employee.Employee, exec ...core.DBExecutor) (employee.Employee, error) {
	exe := repo.getExec(exec)
	values := employeeValues(e)
	delete(values, "user_id")

	cnt, err := execQuery(ctx, exe, psql.Update("employees").SetMap(values).Where(sq.Eq{"id": e.ID}))
	if err != nil {
		return employee.Employee{}, employeeErr(err, "updating employee")
	}
	if cnt == 0 {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return repo.GetEmployee(ctx, employee.GetFilter{ID: e.ID}, exe)
}

// DeleteEmployees relies on the foreign keys: employments are deleted, authors are unlinked.
func (repo employeeRepository) DeleteEmployees(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error) {
	cnt, err := execQuery(ctx, repo.getExec(exec), psql.Delete("employees").Where(sq.Eq{"id": ids}))
	if err != nil {
		return 0, errors.Wrap(err, "deleting employees")
	}
	return cnt, nil
}

// Employments

type employmentRow struct {
	ID                     int         `db:"id"`
	EmployeeID             int         `db:"employee_id"`
	PositionID             null.Int    `db:"position_id"`
	SubgroupID             null.Int    `db:"subgroup_id"`
	DepartmentID           null.Int    `db:"department_id"`
	PositionName           string      `db:"position_name"`
	SubgroupAbbreviation   string      `db:"subgroup_abbreviation"`
	DepartmentAbbreviation string      `db:"department_abbreviation"`
	Employee               employeeRow `db:"employee"`
}

var selectEmployment = psql.Select(
	"em.id", "em.employee_id", "em.position_id", "em.subgroup_id", "em.department_id",
	"COALESCE(p.name, '') AS position_name",
	"COALESCE(sg.abbreviation, '') AS subgroup_abbreviation",
	"COALESCE(dep.abbreviation, '') AS department_abbreviation",
	`u.username AS "employee.username"`,
	`u.first_name AS "employee.first_name"`,
	`COALESCE(d.name, '') AS "employee.degree_name"`,
).
	From("employments em").
	Join("employees e ON e.id = em.employee_id").
	Join("users u ON u.id = e.user_id").
	LeftJoin("degrees d ON d.id = e.degree_id").
	LeftJoin("positions p ON p.id = em.position_id").
	LeftJoin("subgroups sg ON sg.id = em.subgroup_id").
	LeftJoin("departments dep ON dep.id = em.department_id")

func (r employmentRow) employment() employee.Employment {
	return employee.Employment{
		ID:                     r.ID,
		EmployeeID:             r.EmployeeID,
		PositionID:             r.PositionID.Ptr(),
		SubgroupID:             r.SubgroupID.Ptr(),
		DepartmentID:           r.DepartmentID.Ptr(),
		Employee:               r.Employee.employee().String(),
		PositionName:           r.PositionName,
		SubgroupAbbreviation:   r.SubgroupAbbreviation,
		DepartmentAbbreviation: r.DepartmentAbbreviation,
	}
}

func employmentValues(em employee.Employment) map[string]interface{} {
	return map[string]interface{}{
		"employee_id":   em.EmployeeID,
		"position_id":   null.IntFromPtr(em.PositionID),
		"subgroup_id":   null.IntFromPtr(em.SubgroupID),
		"department_id": null.IntFromPtr(em.DepartmentID),
	}
}

func (repo employeeRepository) CreateEmployment(ctx context.Context, em employee.Employment, exec ...core.DBExecutor) (employee.Employment, error) {
	exe := repo.getExec(exec)
	values := employmentValues(em)
	if em.ID != 0 {
		values["id"] = em.ID
	}

	var id int
	if err := getRow(ctx, exe, &id, psql.Insert("employments").SetMap(values).Suffix("RETURNING id")); err != nil {
		return employee.Employment{}, errors.Wrap(err, "inserting employment")
	}
	if em.ID != 0 {
		if err := bumpSequence(ctx, exe, "employments"); err != nil {
			return employee.Employment{}, err
		}
	}
	return repo.GetEmployment(ctx, id, 0, exe)
}

func (repo employeeRepository) GetEmployment(ctx context.Context, id, employeeID int, exec ...core.DBExecutor) (employee.Employment, error) {
	q := selectEmployment
	if id != 0 {
		q = q.Where(sq.Eq{"em.id": id})
	} else {
		q = q.Where(sq.Eq{"em.employee_id": employeeID})
	}

	var row employmentRow
	if err := getRow(ctx, repo.getExec(exec), &row, q); err != nil {
		return employee.Employment{}, trapNoRowsErr(err, employee.ErrEmploymentNotFound, "finding employment")
	}
	return row.employment(), nil
}

type employmentListRow struct {
	ID           int    `db:"id"`
	EmployeeID   int    `db:"employee_id"`
	Username     string `db:"username"`
	FirstName    string `db:"first_name"`
	DegreeName   string `db:"degree_name"`
	EmployeeName string `db:"employee_name"`
	Group        string `db:"group"`
	Subgroup     string `db:"subgroup"`
	Position     string `db:"position"`
	Department   string `db:"department"`
}

func (repo employeeRepository) QueryEmployments(ctx context.Context, filter *employee.EmploymentFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]employee.EmploymentRow, error) {
	q := psql.Select(
		"em.id", "em.employee_id", "u.username", "u.first_name",
		"COALESCE(d.name, '') AS degree_name",
		"COALESCE(NULLIF(u.first_name, ''), u.username) AS employee_name",
		`COALESCE(g.name, '') AS "group"`,
		"COALESCE(sg.name, '') AS subgroup",
		"COALESCE(p.name, '') AS position",
		"COALESCE(dep.name, '') AS department",
	).
		From("employments em").
		Join("employees e ON e.id = em.employee_id").
		Join("users u ON u.id = e.user_id").
		LeftJoin("degrees d ON d.id = e.degree_id").
		LeftJoin("subgroups sg ON sg.id = em.subgroup_id").
		LeftJoin("groups g ON g.id = sg.parent_id").
		LeftJoin("positions p ON p.id = em.position_id").
		LeftJoin("departments dep ON dep.id = em.department_id")

	if filter != nil {
		if filter.Search != "" {
			match := search(filter.Search, "u.last_name", "u.first_name")
			if id, err := strconv.Atoi(filter.Search); err == nil {
				match = append(match, sq.Eq{"em.id": id})
			}
			q = q.Where(match)
		}
		if filter.DepartmentID != 0 {
			q = q.Where(sq.Eq{"em.department_id": filter.DepartmentID})
		}
	}
	q = orderBy(q, ordering, employmentOrderingColumns)

	var rows []employmentListRow
	if err := selectRows(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrap(err, "querying employments")
	}
	list := make([]employee.EmploymentRow, 0, len(rows))
	for _, r := range rows {
		emp := employee.Employee{Username: r.Username, FirstName: r.FirstName, DegreeName: r.DegreeName}
		list = append(list, employee.EmploymentRow{
			ID:         r.ID,
			EmployeeID: r.EmployeeID,
			Employee:   emp.String(),
			Group:      r.Group,
			Subgroup:   r.Subgroup,
			Position:   r.Position,
			Department: r.Department,
		})
	}
	return list, nil
}

func (repo employeeRepository) UpdateEmployment(ctx context.Context, em employee.Employment, exec ...core.DBExecutor) (employee.Employment, error) {
	exe := repo.getExec(exec)
	values := employmentValues(em)
	delete(values, "employee_id")

	cnt, err := execQuery(ctx, exe, psql.Update("employments").SetMap(values).Where(sq.Eq{"id": em.ID}))
	if err != nil {
		return employee.Employment{}, errors.Wrap(err, "updating employment")
	}
	if cnt == 0 {
		return employee.Employment{}, employee.ErrEmploymentNotFound
	}
	return repo.GetEmployment(ctx, em.ID, 0, exe)
}

func (repo employeeRepository) DeleteEmployments(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error) {
	cnt, err := execQuery(ctx, repo.getExec(exec), psql.Delete("employments").Where(sq.Eq{"id": ids}))
	if err != nil {
		return 0, errors.Wrap(err, "deleting employments")
	}
	return cnt, nil
}
