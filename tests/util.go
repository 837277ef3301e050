// Package testutil gathers helpers shared by the tests of several packages.
package testutil

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/user"
	"github.com/trezcool/dorobek/storage/database"
)

// tables lists every table, children first.
var tables = []string{
	"contributions", "authors", "articles", "patents", "grants",
	"employments", "employees", "position_subgroups", "positions",
	"subgroups", "groups", "disciplines", "domains", "degrees", "statuses",
	"departments", "faculties", "universities", "users",
}

func CreateUser(
	t *testing.T,
	repo user.Repository,
	firstName, uname, email, pwd string,
	roles []string,
	isActive bool,
	createdAt ...time.Time,
) user.User {
	tstamp := time.Now().UTC()
	if len(createdAt) > 0 {
		tstamp = createdAt[0].UTC()
	}
	if roles == nil {
		roles = []string{}
	}
	usr := user.User{
		FirstName: firstName,
		Username:  uname,
		Email:     email,
		Roles:     roles,
		IsActive:  isActive,
		CreatedAt: tstamp,
		UpdatedAt: tstamp,
	}
	if pwd != "" {
		if err := usr.SetPassword(pwd); err != nil {
			t.Fatalf("createUser() failed: %v", err)
		}
	}
	usr, err := repo.CreateUser(context.Background(), usr)
	if err != nil {
		t.Fatalf("createUser() failed: %v", err)
	}
	return usr
}

// PrepareDB opens the test database, migrates it and empties it.
// The test is skipped when DB_TESTS is not set or when the database is unreachable.
func PrepareDB(t *testing.T) *database.DB {
	t.Helper()
	if os.Getenv("DB_TESTS") == "" {
		t.Skip("DB_TESTS not set: skipping database tests")
	}
	if os.Getenv("ENV") == "" {
		_ = os.Setenv("ENV", "TEST")
	}

	conf := core.NewConfig()
	db, err := database.Open(conf)
	if err != nil {
		t.Skipf("database unavailable: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(db, "up"); err != nil {
		t.Fatalf("Migrate(): %v", err)
	}
	ResetDB(t, db)
	return db
}

// ResetDB empties every table & restarts the sequences.
func ResetDB(t *testing.T, db *database.DB) {
	t.Helper()
	q := "TRUNCATE TABLE " + strings.Join(tables, ", ") + " RESTART IDENTITY CASCADE"
	if _, err := db.Exec(q); err != nil {
		t.Fatalf("ResetDB(): %v", err)
	}
}
