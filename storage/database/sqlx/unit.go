package sqlxrepos

import (
	"context"

	sq "github.com/Masterminds/squirrel"
	"github.com/pkg/errors"
	"github.com/volatiletech/null/v8"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/unit"
)

var unitOrderingColumns = map[string]string{
	"id":           "id",
	"name":         "name",
	"abbreviation": "abbreviation",
}

type unitRow struct {
	ID           int      `db:"id"`
	Name         string   `db:"name"`
	Abbreviation string   `db:"abbreviation"`
	ParentID     null.Int `db:"parent_id"`
}

func (r unitRow) unit(kind unit.Kind) unit.Unit {
	return unit.Unit{
		ID:           r.ID,
		Kind:         kind,
		Name:         r.Name,
		Abbreviation: r.Abbreviation,
		ParentID:     r.ParentID.Ptr(),
	}
}

// unitColumns lists the selected columns of kind; universities have no parent.
func unitColumns(kind unit.Kind) []string {
	if kind.Parent() == "" {
		return []string{"id", "name", "abbreviation", "NULL::integer AS parent_id"}
	}
	return []string{"id", "name", "abbreviation", "parent_id"}
}

func unitValues(u unit.Unit) map[string]interface{} {
	values := map[string]interface{}{
		"name":         u.Name,
		"abbreviation": u.Abbreviation,
	}
	if u.Kind.Parent() != "" {
		values["parent_id"] = null.IntFromPtr(u.ParentID)
	}
	return values
}

type unitRepository struct {
	repository
}

var _ unit.Repository = (*unitRepository)(nil) // interface compliance check

func NewUnitRepository(exec core.DBExecutor) unit.Repository {
	return &unitRepository{repository{exec: exec}}
}

func (repo unitRepository) CreateUnit(ctx context.Context, u unit.Unit, exec ...core.DBExecutor) (unit.Unit, error) {
	if !u.Kind.Valid() {
		return unit.Unit{}, unit.ErrInvalidKind
	}
	exe := repo.getExec(exec)
	table := u.Kind.Plural()
	values := unitValues(u)
	if u.ID != 0 {
		values["id"] = u.ID
	}

	var row unitRow
	q := psql.Insert(table).SetMap(values).Suffix("RETURNING " + joinColumns(unitColumns(u.Kind)))
	if err := getRow(ctx, exe, &row, q); err != nil {
		return unit.Unit{}, errors.Wrapf(err, "inserting %s", u.Kind)
	}
	if u.ID != 0 {
		if err := bumpSequence(ctx, exe, table); err != nil {
			return unit.Unit{}, err
		}
	}
	return row.unit(u.Kind), nil
}

func (repo unitRepository) QueryUnits(ctx context.Context, kind unit.Kind, filter *unit.QueryFilter, ordering []core.DBOrdering, exec ...core.DBExecutor) ([]unit.Unit, error) {
	if !kind.Valid() {
		return nil, unit.ErrInvalidKind
	}
	q := psql.Select(unitColumns(kind)...).From(kind.Plural())
	if filter != nil {
		if filter.Search != "" {
			q = q.Where(search(filter.Search, "name", "abbreviation"))
		}
		if filter.ParentID != 0 && kind.Parent() != "" {
			q = q.Where(sq.Eq{"parent_id": filter.ParentID})
		}
	}
	q = orderBy(q, ordering, unitOrderingColumns)

	var rows []unitRow
	if err := selectRows(ctx, repo.getExec(exec), &rows, q); err != nil {
		return nil, errors.Wrapf(err, "querying %s", kind.Plural())
	}
	units := make([]unit.Unit, 0, len(rows))
	for _, r := range rows {
		units = append(units, r.unit(kind))
	}
	return units, nil
}

func (repo unitRepository) GetUnit(ctx context.Context, kind unit.Kind, id int, exec ...core.DBExecutor) (unit.Unit, error) {
	if !kind.Valid() {
		return unit.Unit{}, unit.ErrInvalidKind
	}
	var row unitRow
	q := psql.Select(unitColumns(kind)...).From(kind.Plural()).Where(sq.Eq{"id": id})
	if err := getRow(ctx, repo.getExec(exec), &row, q); err != nil {
		return unit.Unit{}, trapNoRowsErr(err, unit.ErrNotFound, "finding "+string(kind))
	}
	return row.unit(kind), nil
}

func (repo unitRepository) UpdateUnit(ctx context.Context, u unit.Unit, exec ...core.DBExecutor) (unit.Unit, error) {
	if !u.Kind.Valid() {
		return unit.Unit{}, unit.ErrInvalidKind
	}
	var row unitRow
	q := psql.Update(u.Kind.Plural()).
		SetMap(unitValues(u)).
		Where(sq.Eq{"id": u.ID}).
		Suffix("RETURNING " + joinColumns(unitColumns(u.Kind)))
	if err := getRow(ctx, repo.getExec(exec), &row, q); err != nil {
		return unit.Unit{}, trapNoRowsErr(err, unit.ErrNotFound, "updating "+string(u.Kind))
	}
	return row.unit(u.Kind), nil
}

// DeleteUnits relies on ON DELETE CASCADE for sub-units.
func (repo unitRepository) DeleteUnits(ctx context.Context, kind unit.Kind, ids []int, exec ...core.DBExecutor) (int, error) {
	if !kind.Valid() {
		return 0, unit.ErrInvalidKind
	}
	cnt, err := execQuery(ctx, repo.getExec(exec), psql.Delete(kind.Plural()).Where(sq.Eq{"id": ids}))
	if err != nil {
		return 0, errors.Wrapf(err, "deleting %s", kind.Plural())
	}
	return cnt, nil
}
