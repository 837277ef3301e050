package sqlxrepos

import (
	"context"
	"sort"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/fixture"
)

type fixtureRepository struct {
	repository
}

var _ fixture.Repository = (*fixtureRepository)(nil) // interface compliance check

func NewFixtureRepository(exec core.DBExecutor) fixture.Repository {
	return &fixtureRepository{repository{exec: exec}}
}

func (repo fixtureRepository) SaveObject(ctx context.Context, m fixture.Model, obj fixture.Object, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)

	fields := make([]string, 0, len(obj.Fields))
	for field := range obj.Fields {
		if _, ok := m.Columns[field]; ok {
			fields = append(fields, field)
		}
	}
	sort.Strings(fields)

	cols := []string{"id"}
	vals := []interface{}{obj.PK}
	updates := make([]string, 0, len(fields))
	for _, field := range fields {
		col := m.Columns[field]
		cols = append(cols, col)
		vals = append(vals, obj.Fields[field])
		updates = append(updates, pq.QuoteIdentifier(col)+" = EXCLUDED."+pq.QuoteIdentifier(col))
	}
	conflict := "ON CONFLICT (id) DO NOTHING"
	if len(updates) > 0 {
		conflict = "ON CONFLICT (id) DO UPDATE SET " + strings.Join(updates, ", ")
	}
	q := psql.Insert(m.Table).Columns(cols...).Values(vals...).Suffix(conflict)
	if _, err := execQuery(ctx, exe, q); err != nil {
		return errors.Wrapf(err, "upserting into %s", m.Table)
	}

	for field, link := range m.Links {
		val, ok := obj.Fields[field]
		if !ok {
			continue
		}
		ids, err := fixture.IntList(val)
		if err != nil {
			return errors.Wrap(err, field)
		}
		if _, err = execQuery(ctx, exe, psql.Delete(link.Table).Where(sq.Eq{link.OwnerColumn: obj.PK})); err != nil {
			return errors.Wrapf(err, "clearing %s", link.Table)
		}
		if len(ids) == 0 {
			continue
		}
		ins := psql.Insert(link.Table).Columns(link.OwnerColumn, link.TargetColumn)
		for _, id := range ids {
			ins = ins.Values(obj.PK, id)
		}
		if _, err = execQuery(ctx, exe, ins); err != nil {
			return errors.Wrapf(err, "inserting into %s", link.Table)
		}
	}
	return nil
}

func (repo fixtureRepository) ResetSequences(ctx context.Context, tables []string, exec ...core.DBExecutor) error {
	exe := repo.getExec(exec)
	for _, table := range tables {
		if err := bumpSequence(ctx, exe, table); err != nil {
			return err
		}
	}
	return nil
}
