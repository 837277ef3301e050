// Package sqlxrepos implements the repositories on PostgreSQL with sqlx & squirrel.
package sqlxrepos

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/pkg/errors"

	"github.com/trezcool/dorobek/core"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// repository holds the default executor; services may pass a transaction instead.
type repository struct {
	exec core.DBExecutor
}

func (repo repository) getExec(svcExec []core.DBExecutor) core.DBExecutor {
	if len(svcExec) > 0 && svcExec[0] != nil {
		return svcExec[0]
	}
	return repo.exec
}

// trapNoRowsErr maps psql "no rows" err to notFound
func trapNoRowsErr(err, notFound error, msg string) error {
	if errors.Cause(err) == sql.ErrNoRows {
		return notFound
	}
	return errors.Wrap(err, msg)
}

// uniqueViolation returns the name of the violated unique constraint, if any.
func uniqueViolation(err error) (string, bool) {
	if pqErr, ok := errors.Cause(err).(*pq.Error); ok && string(pqErr.Code) == pgerrcode.UniqueViolation {
		return pqErr.Constraint, true
	}
	return "", false
}

func selectRows(ctx context.Context, exec core.DBExecutor, dest interface{}, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.SelectContext(ctx, exec, dest, query, args...)
}

func getRow(ctx context.Context, exec core.DBExecutor, dest interface{}, q sq.Sqlizer) error {
	query, args, err := q.ToSql()
	if err != nil {
		return errors.Wrap(err, "building query")
	}
	return sqlx.GetContext(ctx, exec, dest, query, args...)
}

func execQuery(ctx context.Context, exec core.DBExecutor, q sq.Sqlizer) (int, error) {
	query, args, err := q.ToSql()
	if err != nil {
		return 0, errors.Wrap(err, "building query")
	}
	res, err := exec.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	cnt, err := res.RowsAffected()
	return int(cnt), err
}

// bumpSequence moves the id sequence of table past rows inserted with explicit IDs.
func bumpSequence(ctx context.Context, exec core.DBExecutor, table string) error {
	q := fmt.Sprintf(
		"SELECT setval(pg_get_serial_sequence('%s', 'id'), GREATEST(COALESCE(MAX(id), 0), 1)) FROM %s",
		table, pq.QuoteIdentifier(table))
	_, err := exec.ExecContext(ctx, q)
	return errors.Wrapf(err, "bumping %s id sequence", table)
}

// orderBy translates ordering through columns (field -> SQL expression); ties are broken by columns["id"].
func orderBy(q sq.SelectBuilder, ordering []core.DBOrdering, columns map[string]string) sq.SelectBuilder {
	clauses := make([]string, 0, len(ordering)+1)
	for _, ord := range ordering {
		col, ok := columns[ord.Field]
		if !ok {
			continue
		}
		clauses = append(clauses, core.DBOrdering{Field: col, Ascending: ord.Ascending}.String())
	}
	clauses = append(clauses, columns["id"]+" ASC")
	return q.OrderBy(clauses...)
}

// search matches val case-insensitively against any of cols.
func search(val string, cols ...string) sq.Or {
	pattern := "%" + strings.NewReplacer(`\`, `\\`, "%", `\%`, "_", `\_`).Replace(val) + "%"
	or := make(sq.Or, 0, len(cols))
	for _, col := range cols {
		or = append(or, sq.Expr(col+" ILIKE ?", pattern))
	}
	return or
}

func joinColumns(cols []string) string { return strings.Join(cols, ", ") }
