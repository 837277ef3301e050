package dummydb

import (
	"context"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/unit"
)

type unitRepository struct {
	db *DB
}

var _ unit.Repository = (*unitRepository)(nil) // interface compliance check

func NewUnitRepository(db *DB) unit.Repository {
	return &unitRepository{db: db}
}

func unitTable(kind unit.Kind) string { return "units." + string(kind) }

func (repo *unitRepository) CreateUnit(ctx context.Context, u unit.Unit, exec ...core.DBExecutor) (unit.Unit, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	table, ok := repo.db.units[u.Kind]
	if !ok {
		return unit.Unit{}, unit.ErrInvalidKind
	}
	if u.ID == 0 {
		u.ID = repo.db.nextPK(unitTable(u.Kind))
	} else {
		repo.db.usePK(unitTable(u.Kind), u.ID)
	}
	u.ParentID = copyInt(u.ParentID)
	u.University = nil
	table[u.ID] = &u
	return u, nil
}

func (repo *unitRepository) QueryUnits(ctx context.Context, kind unit.Kind, filter *unit.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]unit.Unit, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	units := make([]unit.Unit, 0, len(repo.db.units[kind]))
	for _, u := range repo.db.units[kind] {
		if filter != nil {
			if filter.Search != "" && !contains(u.Name, filter.Search) && !contains(u.Abbreviation, filter.Search) {
				continue
			}
			if filter.ParentID != 0 && (u.ParentID == nil || *u.ParentID != filter.ParentID) {
				continue
			}
		}
		units = append(units, *u)
	}

	sortRows(units, ordering, map[string]comparator{
		"id":           func(i, j int) int { return cmpInt(units[i].ID, units[j].ID) },
		"name":         func(i, j int) int { return cmpStr(units[i].Name, units[j].Name) },
		"abbreviation": func(i, j int) int { return cmpStr(units[i].Abbreviation, units[j].Abbreviation) },
	})
	return units, nil
}

func (repo *unitRepository) GetUnit(ctx context.Context, kind unit.Kind, id int, exec ...core.DBExecutor) (unit.Unit, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if u, ok := repo.db.units[kind][id]; ok {
		return *u, nil
	}
	return unit.Unit{}, unit.ErrNotFound
}

func (repo *unitRepository) UpdateUnit(ctx context.Context, u unit.Unit, exec ...core.DBExecutor) (unit.Unit, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.units[u.Kind][u.ID]; !ok {
		return unit.Unit{}, unit.ErrNotFound
	}
	u.ParentID = copyInt(u.ParentID)
	u.University = nil
	repo.db.units[u.Kind][u.ID] = &u
	return u, nil
}

func (repo *unitRepository) DeleteUnits(ctx context.Context, kind unit.Kind, ids []int, exec ...core.DBExecutor) (int, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var cnt int
	for _, id := range ids {
		if _, ok := repo.db.units[kind][id]; ok {
			repo.db.deleteUnit(kind, id)
			cnt++
		}
	}
	return cnt, nil
}

// deleteUnit deletes a unit, its sub-units in cascade & unlinks the employments of deleted departments.
func (db *DB) deleteUnit(kind unit.Kind, id int) {
	delete(db.units[kind], id)

	if kind == unit.Department {
		for _, em := range db.employments {
			if em.DepartmentID != nil && *em.DepartmentID == id {
				em.DepartmentID = nil
			}
		}
		return
	}
	var child unit.Kind
	switch kind {
	case unit.University:
		child = unit.Faculty
	case unit.Faculty:
		child = unit.Department
	}
	for _, u := range db.units[child] {
		if u.ParentID != nil && *u.ParentID == id {
			db.deleteUnit(child, u.ID)
		}
	}
}
