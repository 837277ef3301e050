package dummydb

import (
	"context"
	"strconv"

	"github.com/pkg/errors"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/employee"
	"github.com/trezcool/dorobek/core/unit"
)

type employeeRepository struct {
	db *DB
}

var _ employee.Repository = (*employeeRepository)(nil) // interface compliance check

func NewEmployeeRepository(db *DB) employee.Repository {
	return &employeeRepository{db: db}
}

func namedTable(kind employee.Kind) string { return "named." + string(kind) }

// Dictionaries

func (db *DB) getNamed(kind employee.Kind, id *int) (employee.Named, bool) {
	if id == nil {
		return employee.Named{}, false
	}
	n, ok := db.named[kind][*id]
	if !ok {
		return employee.Named{}, false
	}
	named := *n
	named.ParentID = copyInt(n.ParentID)
	if parent, ok := db.getNamed(kind.Parent(), n.ParentID); ok {
		named.ParentName = parent.Name
	}
	return named, true
}

func (repo *employeeRepository) CreateNamed(ctx context.Context, n employee.Named, exec ...core.DBExecutor) (employee.Named, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	table, ok := repo.db.named[n.Kind]
	if !ok {
		return employee.Named{}, employee.ErrInvalidKind
	}
	if n.ID == 0 {
		n.ID = repo.db.nextPK(namedTable(n.Kind))
	} else {
		repo.db.usePK(namedTable(n.Kind), n.ID)
	}
	n.ParentID = copyInt(n.ParentID)
	n.ParentName = ""
	table[n.ID] = &n

	named, _ := repo.db.getNamed(n.Kind, &n.ID)
	return named, nil
}

func (repo *employeeRepository) QueryNamed(ctx context.Context, kind employee.Kind, filter *employee.NamedFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]employee.Named, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	list := make([]employee.Named, 0, len(repo.db.named[kind]))
	for id := range repo.db.named[kind] {
		id := id
		n, _ := repo.db.getNamed(kind, &id)
		if filter != nil {
			if filter.Search != "" && strconv.Itoa(n.ID) != filter.Search &&
				!contains(n.Name, filter.Search) && !contains(n.Abbreviation, filter.Search) {
				continue
			}
			if filter.ParentID != 0 && (n.ParentID == nil || *n.ParentID != filter.ParentID) {
				continue
			}
		}
		list = append(list, n)
	}

	sortRows(list, ordering, map[string]comparator{
		"id":           func(i, j int) int { return cmpInt(list[i].ID, list[j].ID) },
		"name":         func(i, j int) int { return cmpStr(list[i].Name, list[j].Name) },
		"abbreviation": func(i, j int) int { return cmpStr(list[i].Abbreviation, list[j].Abbreviation) },
		"parent_name":  func(i, j int) int { return cmpStr(list[i].ParentName, list[j].ParentName) },
	})
	return list, nil
}

func (repo *employeeRepository) GetNamed(ctx context.Context, kind employee.Kind, id int, exec ...core.DBExecutor) (employee.Named, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if n, ok := repo.db.getNamed(kind, &id); ok {
		return n, nil
	}
	return employee.Named{}, employee.ErrNotFound
}

func (repo *employeeRepository) UpdateNamed(ctx context.Context, n employee.Named, exec ...core.DBExecutor) (employee.Named, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.named[n.Kind][n.ID]; !ok {
		return employee.Named{}, employee.ErrNotFound
	}
	n.ParentID = copyInt(n.ParentID)
	n.ParentName = ""
	repo.db.named[n.Kind][n.ID] = &n

	named, _ := repo.db.getNamed(n.Kind, &n.ID)
	return named, nil
}

func (repo *employeeRepository) DeleteNamed(ctx context.Context, kind employee.Kind, ids []int, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.named[kind][id]; ok {
			repo.db.deleteNamed(kind, id)
			cnt++
		}
	}
	return cnt, nil
}

// deleteNamed deletes an entry & its children in cascade; references from employees,
// employments & positions are cleared.
func (db *DB) deleteNamed(kind employee.Kind, id int) {
	delete(db.named[kind], id)

	switch kind {
	case employee.Domain, employee.Group:
		child := employee.Discipline
		if kind == employee.Group {
			child = employee.Subgroup
		}
		for _, n := range db.named[child] {
			if n.ParentID != nil && *n.ParentID == id {
				db.deleteNamed(child, n.ID)
			}
		}
	case employee.Degree, employee.Status, employee.Discipline:
		for _, e := range db.employees {
			ref := &e.DegreeID
			if kind == employee.Status {
				ref = &e.StatusID
			} else if kind == employee.Discipline {
				ref = &e.DisciplineID
			}
			if *ref != nil && **ref == id {
				*ref = nil
			}
		}
	case employee.Subgroup:
		for _, p := range db.positions {
			ids := p.subgroupIDs[:0]
			for _, sgID := range p.subgroupIDs {
				if sgID != id {
					ids = append(ids, sgID)
				}
			}
			p.subgroupIDs = ids
		}
		for _, em := range db.employments {
			if em.SubgroupID != nil && *em.SubgroupID == id {
				em.SubgroupID = nil
			}
		}
	}
}

// Positions

func (db *DB) getPosition(id int) (employee.Position, bool) {
	p, ok := db.positions[id]
	if !ok {
		return employee.Position{}, false
	}
	pos := employee.Position{
		ID:          p.id,
		Name:        p.name,
		SubgroupIDs: append([]int{}, p.subgroupIDs...),
		Subgroups:   make([]employee.Named, 0, len(p.subgroupIDs)),
	}
	for _, sgID := range p.subgroupIDs {
		sgID := sgID
		if sg, ok := db.getNamed(employee.Subgroup, &sgID); ok {
			pos.Subgroups = append(pos.Subgroups, sg)
		}
	}
	sgs := pos.Subgroups
	sortRows(sgs, []core.DBOrdering{{Field: "parent_name", Ascending: true}, {Field: "name", Ascending: true}}, map[string]comparator{
		"id":          func(i, j int) int { return cmpInt(sgs[i].ID, sgs[j].ID) },
		"name":        func(i, j int) int { return cmpStr(sgs[i].Name, sgs[j].Name) },
		"parent_name": func(i, j int) int { return cmpStr(sgs[i].ParentName, sgs[j].ParentName) },
	})
	return pos, true
}

func (repo *employeeRepository) CreatePosition(ctx context.Context, p employee.Position, exec ...core.DBExecutor) (employee.Position, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if p.ID == 0 {
		p.ID = repo.db.nextPK("positions")
	} else {
		repo.db.usePK("positions", p.ID)
	}
	repo.db.positions[p.ID] = &position{id: p.ID, name: p.Name, subgroupIDs: append([]int{}, p.SubgroupIDs...)}

	pos, _ := repo.db.getPosition(p.ID)
	return pos, nil
}

func (repo *employeeRepository) QueryPositions(ctx context.Context, filter *employee.NamedFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]employee.Position, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	list := make([]employee.Position, 0, len(repo.db.positions))
	for id := range repo.db.positions {
		p, _ := repo.db.getPosition(id)
		if filter != nil && filter.Search != "" && strconv.Itoa(p.ID) != filter.Search && !contains(p.Name, filter.Search) {
			continue
		}
		if filter != nil && filter.ParentID != 0 && !idIn(filter.ParentID, p.SubgroupIDs) {
			continue
		}
		list = append(list, p)
	}

	sortRows(list, ordering, map[string]comparator{
		"id":   func(i, j int) int { return cmpInt(list[i].ID, list[j].ID) },
		"name": func(i, j int) int { return cmpStr(list[i].Name, list[j].Name) },
	})
	return list, nil
}

func (repo *employeeRepository) GetPosition(ctx context.Context, id int, exec ...core.DBExecutor) (employee.Position, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if p, ok := repo.db.getPosition(id); ok {
		return p, nil
	}
	return employee.Position{}, employee.ErrNotFound
}

func (repo *employeeRepository) UpdatePosition(ctx context.Context, p employee.Position, exec ...core.DBExecutor) (employee.Position, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	pos, ok := repo.db.positions[p.ID]
	if !ok {
		return employee.Position{}, employee.ErrNotFound
	}
	pos.name = p.Name
	pos.subgroupIDs = append([]int{}, p.SubgroupIDs...)

	updated, _ := repo.db.getPosition(p.ID)
	return updated, nil
}

func (repo *employeeRepository) DeletePositions(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.positions[id]; !ok {
			continue
		}
		delete(repo.db.positions, id)
		cnt++
		for _, em := range repo.db.employments {
			if em.PositionID != nil && *em.PositionID == id {
				em.PositionID = nil
			}
		}
	}
	return cnt, nil
}

// Employees

// getEmployee fills the read-only fields of an employee.
func (db *DB) getEmployee(id int) (employee.Employee, bool) {
	e, ok := db.employees[id]
	if !ok {
		return employee.Employee{}, false
	}
	emp := *e
	emp.DegreeID = copyInt(e.DegreeID)
	emp.StatusID = copyInt(e.StatusID)
	emp.DisciplineID = copyInt(e.DisciplineID)
	emp.ORCID = copyStr(e.ORCID)
	if usr, ok := db.users[e.UserID]; ok {
		emp.Username = usr.Username
		emp.FirstName = usr.FirstName
		emp.LastName = usr.LastName
		emp.Email = usr.Email
	}
	if degree, ok := db.getNamed(employee.Degree, e.DegreeID); ok {
		emp.DegreeName = degree.Name
	}
	return emp, true
}

func (db *DB) employmentOf(employeeID int) (*employee.Employment, bool) {
	for _, em := range db.employments {
		if em.EmployeeID == employeeID {
			return em, true
		}
	}
	return nil, false
}

func (db *DB) checkEmployeeUniqueness(e employee.Employee) error {
	for _, other := range db.employees {
		if other.ID == e.ID {
			continue
		}
		if other.UserID == e.UserID {
			return employee.ErrUserTaken
		}
		if e.ORCID != nil && other.ORCID != nil && *e.ORCID == *other.ORCID {
			return employee.ErrORCIDExists
		}
	}
	return nil
}

func (repo *employeeRepository) CreateEmployee(ctx context.Context, e employee.Employee, exec ...core.DBExecutor) (employee.Employee, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if err := repo.db.checkEmployeeUniqueness(e); err != nil {
		return employee.Employee{}, err
	}
	if _, ok := repo.db.users[e.UserID]; !ok {
		return employee.Employee{}, errors.New("inserting employee: user does not exist")
	}
	if e.ID == 0 {
		e.ID = repo.db.nextPK("employees")
	} else {
		repo.db.usePK("employees", e.ID)
	}
	stored := e
	repo.db.employees[e.ID] = &stored

	emp, _ := repo.db.getEmployee(e.ID)
	return emp, nil
}

func (repo *employeeRepository) GetEmployee(ctx context.Context, filter employee.GetFilter, exec ...core.DBExecutor) (employee.Employee, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	for _, e := range repo.db.employees {
		if (filter.ID != 0 && e.ID == filter.ID) ||
			(filter.ID == 0 && filter.UserID != 0 && e.UserID == filter.UserID) ||
			(filter.ID == 0 && filter.UserID == 0 && filter.ORCID != "" && e.ORCID != nil && *e.ORCID == filter.ORCID) {
			emp, _ := repo.db.getEmployee(e.ID)
			return emp, nil
		}
	}
	return employee.Employee{}, employee.ErrEmployeeNotFound
}

func (repo *employeeRepository) QueryEmployees(ctx context.Context, filter *employee.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]employee.EmployeeRow, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := make([]employee.EmployeeRow, 0, len(repo.db.employees))
	for id := range repo.db.employees {
		e, _ := repo.db.getEmployee(id)
		em, hasEmployment := repo.db.employmentOf(id)

		if filter != nil {
			if filter.Search != "" && strconv.Itoa(e.ID) != filter.Search &&
				!contains(e.LastName, filter.Search) && !contains(e.FirstName, filter.Search) && !contains(e.Email, filter.Search) {
				continue
			}
			if filter.InEvaluation != nil && e.InEvaluation != *filter.InEvaluation {
				continue
			}
			if filter.DisciplineID != 0 && (e.DisciplineID == nil || *e.DisciplineID != filter.DisciplineID) {
				continue
			}
			if filter.DepartmentID != 0 && (!hasEmployment || em.DepartmentID == nil || *em.DepartmentID != filter.DepartmentID) {
				continue
			}
		}

		row := employee.EmployeeRow{
			ID:           e.ID,
			LastName:     e.LastName,
			FirstName:    e.FirstName,
			Degree:       e.DegreeName,
			InEvaluation: e.InEvaluation,
		}
		if status, ok := repo.db.getNamed(employee.Status, e.StatusID); ok {
			row.Status = status.Abbreviation
		}
		if discipline, ok := repo.db.getNamed(employee.Discipline, e.DisciplineID); ok {
			row.Discipline = discipline.Abbreviation
			if domain, ok := repo.db.getNamed(employee.Domain, discipline.ParentID); ok {
				row.Domain = domain.Abbreviation
			}
		}
		if hasEmployment {
			if subgroup, ok := repo.db.getNamed(employee.Subgroup, em.SubgroupID); ok {
				row.Subgroup = subgroup.Abbreviation
				if group, ok := repo.db.getNamed(employee.Group, subgroup.ParentID); ok {
					row.Group = group.Abbreviation
				}
			}
			if em.PositionID != nil {
				if p, ok := repo.db.positions[*em.PositionID]; ok {
					row.Position = p.name
				}
			}
			if em.DepartmentID != nil {
				if dep, ok := repo.db.units[unit.Department][*em.DepartmentID]; ok {
					row.Department = dep.Abbreviation
				}
			}
		}
		rows = append(rows, row)
	}

	sortRows(rows, ordering, map[string]comparator{
		"id":            func(i, j int) int { return cmpInt(rows[i].ID, rows[j].ID) },
		"last_name":     func(i, j int) int { return cmpStr(rows[i].LastName, rows[j].LastName) },
		"first_name":    func(i, j int) int { return cmpStr(rows[i].FirstName, rows[j].FirstName) },
		"degree":        func(i, j int) int { return cmpStr(rows[i].Degree, rows[j].Degree) },
		"status":        func(i, j int) int { return cmpStr(rows[i].Status, rows[j].Status) },
		"in_evaluation": func(i, j int) int { return cmpBool(rows[i].InEvaluation, rows[j].InEvaluation) },
		"domain":        func(i, j int) int { return cmpStr(rows[i].Domain, rows[j].Domain) },
		"discipline":    func(i, j int) int { return cmpStr(rows[i].Discipline, rows[j].Discipline) },
		"group":         func(i, j int) int { return cmpStr(rows[i].Group, rows[j].Group) },
		"subgroup":      func(i, j int) int { return cmpStr(rows[i].Subgroup, rows[j].Subgroup) },
		"position":      func(i, j int) int { return cmpStr(rows[i].Position, rows[j].Position) },
		"department":    func(i, j int) int { return cmpStr(rows[i].Department, rows[j].Department) },
	})
	return rows, nil
}

func (repo *employeeRepository) UpdateEmployee(ctx context.Context, e employee.Employee, exec ...core.DBExecutor) (employee.Employee, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.employees[e.ID]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	e.UserID = orig.UserID
	if err := repo.db.checkEmployeeUniqueness(e); err != nil {
		return employee.Employee{}, err
	}
	stored := e
	stored.DegreeID = copyInt(e.DegreeID)
	stored.StatusID = copyInt(e.StatusID)
	stored.DisciplineID = copyInt(e.DisciplineID)
	stored.ORCID = copyStr(e.ORCID)
	repo.db.employees[e.ID] = &stored

	emp, _ := repo.db.getEmployee(e.ID)
	return emp, nil
}

func (repo *employeeRepository) DeleteEmployees(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.employees[id]; ok {
			repo.db.deleteEmployee(id)
			cnt++
		}
	}
	return cnt, nil
}

// deleteEmployee deletes an employee & its employment; its authors lose their employee.
func (db *DB) deleteEmployee(id int) {
	delete(db.employees, id)
	for _, em := range db.employments {
		if em.EmployeeID == id {
			delete(db.employments, em.ID)
		}
	}
	for _, a := range db.authors {
		if a.EmployeeID != nil && *a.EmployeeID == id {
			a.EmployeeID = nil
		}
	}
}

// Employments

// getEmployment fills the read-only fields of an employment.
func (db *DB) getEmployment(em *employee.Employment) employee.Employment {
	employment := *em
	employment.PositionID = copyInt(em.PositionID)
	employment.SubgroupID = copyInt(em.SubgroupID)
	employment.DepartmentID = copyInt(em.DepartmentID)
	if e, ok := db.getEmployee(em.EmployeeID); ok {
		employment.Employee = e.String()
	}
	if em.PositionID != nil {
		if p, ok := db.positions[*em.PositionID]; ok {
			employment.PositionName = p.name
		}
	}
	if sg, ok := db.getNamed(employee.Subgroup, em.SubgroupID); ok {
		employment.SubgroupAbbreviation = sg.Abbreviation
	}
	if em.DepartmentID != nil {
		if dep, ok := db.units[unit.Department][*em.DepartmentID]; ok {
			employment.DepartmentAbbreviation = dep.Abbreviation
		}
	}
	return employment
}

func (repo *employeeRepository) CreateEmployment(ctx context.Context, em employee.Employment, exec ...core.DBExecutor) (employee.Employment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.employees[em.EmployeeID]; !ok {
		return employee.Employment{}, errors.New("inserting employment: employee does not exist")
	}
	if _, ok := repo.db.employmentOf(em.EmployeeID); ok {
		return employee.Employment{}, errors.New("inserting employment: employee already employed")
	}
	if em.ID == 0 {
		em.ID = repo.db.nextPK("employments")
	} else {
		repo.db.usePK("employments", em.ID)
	}
	stored := em
	repo.db.employments[em.ID] = &stored
	return repo.db.getEmployment(&stored), nil
}

func (repo *employeeRepository) GetEmployment(ctx context.Context, id, employeeID int, exec ...core.DBExecutor) (employee.Employment, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	var (
		em *employee.Employment
		ok bool
	)
	if id != 0 {
		em, ok = repo.db.employments[id]
	} else {
		em, ok = repo.db.employmentOf(employeeID)
	}
	if !ok {
		return employee.Employment{}, employee.ErrEmploymentNotFound
	}
	return repo.db.getEmployment(em), nil
}

func (repo *employeeRepository) QueryEmployments(ctx context.Context, filter *employee.EmploymentFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]employee.EmploymentRow, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	rows := make([]employee.EmploymentRow, 0, len(repo.db.employments))
	for _, em := range repo.db.employments {
		e, _ := repo.db.getEmployee(em.EmployeeID)
		if filter != nil {
			if filter.Search != "" && strconv.Itoa(em.ID) != filter.Search &&
				!contains(e.LastName, filter.Search) && !contains(e.FirstName, filter.Search) {
				continue
			}
			if filter.DepartmentID != 0 && (em.DepartmentID == nil || *em.DepartmentID != filter.DepartmentID) {
				continue
			}
		}

		row := employee.EmploymentRow{ID: em.ID, EmployeeID: em.EmployeeID, Employee: e.String()}
		if sg, ok := repo.db.getNamed(employee.Subgroup, em.SubgroupID); ok {
			row.Subgroup = sg.Name
			row.Group = sg.ParentName
		}
		if em.PositionID != nil {
			if p, ok := repo.db.positions[*em.PositionID]; ok {
				row.Position = p.name
			}
		}
		if em.DepartmentID != nil {
			if dep, ok := repo.db.units[unit.Department][*em.DepartmentID]; ok {
				row.Department = dep.Name
			}
		}
		rows = append(rows, row)
	}

	sortRows(rows, ordering, map[string]comparator{
		"id":         func(i, j int) int { return cmpInt(rows[i].ID, rows[j].ID) },
		"employee":   func(i, j int) int { return cmpStr(rows[i].Employee, rows[j].Employee) },
		"group":      func(i, j int) int { return cmpStr(rows[i].Group, rows[j].Group) },
		"subgroup":   func(i, j int) int { return cmpStr(rows[i].Subgroup, rows[j].Subgroup) },
		"position":   func(i, j int) int { return cmpStr(rows[i].Position, rows[j].Position) },
		"department": func(i, j int) int { return cmpStr(rows[i].Department, rows[j].Department) },
	})
	return rows, nil
}

func (repo *employeeRepository) UpdateEmployment(ctx context.Context, em employee.Employment, exec ...core.DBExecutor) (employee.Employment, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	orig, ok := repo.db.employments[em.ID]
	if !ok {
		return employee.Employment{}, employee.ErrEmploymentNotFound
	}
	orig.PositionID = copyInt(em.PositionID)
	orig.SubgroupID = copyInt(em.SubgroupID)
	orig.DepartmentID = copyInt(em.DepartmentID)
	return repo.db.getEmployment(orig), nil
}

func (repo *employeeRepository) DeleteEmployments(ctx context.Context, ids []int, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.employments[id]; ok {
			delete(repo.db.employments, id)
			cnt++
		}
	}
	return cnt, nil
}
