// Package dummydb implements the repositories in memory, for tests & local hacking.
package dummydb

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/attainment"
	"github.com/trezcool/dorobek/core/employee"
	"github.com/trezcool/dorobek/core/unit"
	"github.com/trezcool/dorobek/core/user"
)

type (
	position struct {
		id          int
		name        string
		subgroupIDs []int
	}

	// DB holds every table behind a single lock so that cascades stay consistent.
	DB struct {
		sync.RWMutex
		pks map[string]int

		users       map[int]*user.User
		units       map[unit.Kind]map[int]*unit.Unit
		named       map[employee.Kind]map[int]*employee.Named
		positions   map[int]*position
		employees   map[int]*employee.Employee
		employments map[int]*employee.Employment
		attainments map[attainment.Kind]map[int]*attainment.Attainment
		authors     map[int]*attainment.Author
		contribs    map[int]*attainment.Contribution
	}
)

var _ core.DB = (*DB)(nil) // interface compliance check

func Open() *DB {
	db := new(DB)
	db.Reset()
	return db
}

// Reset empties every table.
func (db *DB) Reset() {
	db.Lock()
	defer db.Unlock()

	db.pks = make(map[string]int)
	db.users = make(map[int]*user.User)
	db.units = make(map[unit.Kind]map[int]*unit.Unit)
	for _, k := range unit.Kinds {
		db.units[k] = make(map[int]*unit.Unit)
	}
	db.named = make(map[employee.Kind]map[int]*employee.Named)
	for _, k := range employee.Kinds {
		db.named[k] = make(map[int]*employee.Named)
	}
	db.positions = make(map[int]*position)
	db.employees = make(map[int]*employee.Employee)
	db.employments = make(map[int]*employee.Employment)
	db.attainments = make(map[attainment.Kind]map[int]*attainment.Attainment)
	for _, k := range attainment.Kinds {
		db.attainments[k] = make(map[int]*attainment.Attainment)
	}
	db.authors = make(map[int]*attainment.Author)
	db.contribs = make(map[int]*attainment.Contribution)
}

// WithTx runs fn straight away: there is nothing to roll back in memory.
func (db *DB) WithTx(ctx context.Context, fn func(exec core.DBExecutor) error) error {
	return fn(nil)
}

func (db *DB) nextPK(table string) int {
	db.pks[table]++
	return db.pks[table]
}

// usePK registers an explicit primary key, as a DB sequence would be bumped.
func (db *DB) usePK(table string, id int) {
	if id > db.pks[table] {
		db.pks[table] = id
	}
}

// helpers

type comparator func(i, j int) int

// sortRows sorts slice according to ordering, ties broken by the "id" comparator.
func sortRows(slice interface{}, ordering []core.DBOrdering, cmps map[string]comparator) {
	sort.SliceStable(slice, func(i, j int) bool {
		for _, ord := range ordering {
			cmp, ok := cmps[ord.Field]
			if !ok {
				continue
			}
			if c := cmp(i, j); c != 0 {
				if ord.Ascending {
					return c < 0
				}
				return c > 0
			}
		}
		return cmps["id"](i, j) < 0
	})
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func cmpStr(a, b string) int { return strings.Compare(strings.ToLower(a), strings.ToLower(b)) }

func cmpTime(a, b time.Time) int {
	switch {
	case a.Before(b):
		return -1
	case a.After(b):
		return 1
	}
	return 0
}

func cmpBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	}
	return 1
}

func contains(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

func copyInt(p *int) *int {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func copyStr(p *string) *string {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func idIn(id int, ids []int) bool {
	for _, i := range ids {
		if i == id {
			return true
		}
	}
	return false
}
