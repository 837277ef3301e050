package dummydb

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/employee"
	"github.com/trezcool/dorobek/core/fixture"
	"github.com/trezcool/dorobek/core/unit"
)

type fixtureRepository struct {
	db *DB
}

var _ fixture.Repository = (*fixtureRepository)(nil) // interface compliance check

func NewFixtureRepository(db *DB) fixture.Repository {
	return &fixtureRepository{db: db}
}

func (repo *fixtureRepository) SaveObject(ctx context.Context, m fixture.Model, obj fixture.Object, exec ...core.DBExecutor) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	str := func(field string) string {
		s, _ := obj.Fields[field].(string)
		return s
	}
	parent := func() *int {
		for field, col := range m.Columns {
			if col != "parent_id" {
				continue
			}
			if id, ok := fixture.IntValue(obj.Fields[field]); ok {
				return &id
			}
		}
		return nil
	}

	for _, k := range unit.Kinds {
		if k.Plural() == m.Table {
			u := &unit.Unit{ID: obj.PK, Kind: k, ParentID: parent()}
			if orig, ok := repo.db.units[k][obj.PK]; ok {
				*u = *orig
				if p := parent(); p != nil {
					u.ParentID = p
				}
			}
			if _, ok := obj.Fields["name"]; ok {
				u.Name = str("name")
			}
			if _, ok := obj.Fields["abbreviation"]; ok {
				u.Abbreviation = str("abbreviation")
			}
			repo.db.units[k][obj.PK] = u
			repo.db.usePK(unitTable(k), obj.PK)
			return nil
		}
	}
	for _, k := range employee.Kinds {
		if k.Plural() == m.Table {
			n := &employee.Named{ID: obj.PK, Kind: k, ParentID: parent()}
			if orig, ok := repo.db.named[k][obj.PK]; ok {
				*n = *orig
				if p := parent(); p != nil {
					n.ParentID = p
				}
			}
			if _, ok := obj.Fields["name"]; ok {
				n.Name = str("name")
			}
			if _, ok := obj.Fields["abbreviation"]; ok {
				n.Abbreviation = str("abbreviation")
			}
			repo.db.named[k][obj.PK] = n
			repo.db.usePK(namedTable(k), obj.PK)
			return nil
		}
	}
	if m.Table == "positions" {
		p, ok := repo.db.positions[obj.PK]
		if !ok {
			p = &position{id: obj.PK}
			repo.db.positions[obj.PK] = p
		}
		if _, ok := obj.Fields["name"]; ok {
			p.name = str("name")
		}
		if val, ok := obj.Fields["subgroups"]; ok {
			ids, err := fixture.IntList(val)
			if err != nil {
				return errors.Wrap(err, "subgroups")
			}
			p.subgroupIDs = ids
		}
		repo.db.usePK("positions", obj.PK)
		return nil
	}
	return errors.Errorf("unsupported table %q", m.Table)
}

// ResetSequences is a no-op: SaveObject already bumps the primary keys.
func (repo *fixtureRepository) ResetSequences(ctx context.Context, tables []string, exec ...core.DBExecutor) error {
	return nil
}
