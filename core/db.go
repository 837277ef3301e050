package core

import (
	"context"

	"github.com/jmoiron/sqlx"
)

type (
	// DBExecutor is satisfied by both *sqlx.DB and *sqlx.Tx.
	DBExecutor interface {
		sqlx.ExtContext
	}

	// DB runs units of work atomically.
	// fn receives the executor every repository call of the unit must use;
	// the transaction is committed when fn returns nil and rolled back otherwise.
	DB interface {
		WithTx(ctx context.Context, fn func(exec DBExecutor) error) error
	}
)

type DBOrdering struct {
	Field     string
	Ascending bool
}

func (ord DBOrdering) String() string {
	direction := "DESC"
	if ord.Ascending {
		direction = "ASC"
	}
	return ord.Field + " " + direction
}

// FilterOrdering drops the orderings on fields that are not listed in allowed.
func FilterOrdering(ordering []DBOrdering, allowed ...string) []DBOrdering {
	if len(ordering) == 0 {
		return nil
	}
	ok := make(map[string]bool, len(allowed))
	for _, f := range allowed {
		ok[f] = true
	}
	filtered := make([]DBOrdering, 0, len(ordering))
	for _, ord := range ordering {
		if ok[ord.Field] {
			filtered = append(filtered, ord)
		}
	}
	return filtered
}
