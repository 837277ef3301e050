package main

import (
	"bytes"
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"testing"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/employee"
	"github.com/trezcool/dorobek/core/fixture"
	"github.com/trezcool/dorobek/core/unit"
	"github.com/trezcool/dorobek/core/user"
	appfs "github.com/trezcool/dorobek/fs"
	"github.com/trezcool/dorobek/services/email"
	"github.com/trezcool/dorobek/storage/database"
	"github.com/trezcool/dorobek/storage/database/dummy"
	"github.com/trezcool/dorobek/tests"
)

var (
	usrRepo  user.Repository
	unitRepo unit.Repository
)

func setup(t *testing.T) (*commandLine, *bytes.Buffer) {
	conf := &core.Config{Env: "TEST", TestMode: true, AppName: "Dorobek"}

	// set up DB & services
	db := dummydb.Open()
	usrRepo = dummydb.NewUserRepository(db)
	unitRepo = dummydb.NewUnitRepository(db)
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	usrSvc := user.NewService(db, usrRepo, mailSvc, conf)
	emailsvc.ClearSentMessages()
	require.NoError(t, core.ParseEmailTemplates(conf, appfs.FS, appfs.EmailTemplatesDir))

	// start CLI
	out := new(bytes.Buffer)
	return &commandLine{
		db:         &database.DB{DB: &sqlx.DB{}},
		out:        out,
		usrRepo:    usrRepo,
		usrSvc:     usrSvc,
		empSvc:     employee.NewService(db, dummydb.NewEmployeeRepository(db), usrSvc),
		fixtureSvc: fixture.NewService(db, dummydb.NewFixtureRepository(db)),
		mailSvc:    mailSvc,
	}, out
}

type cliTest struct {
	name       string
	args       []string // without program name
	wantErr    error
	wantErrStr string
	extra      interface{}
}

func (tt cliTest) check(t *testing.T, err error) {
	t.Helper()
	switch {
	case tt.wantErr != nil:
		assert.Equal(t, tt.wantErr, err)
	case tt.wantErrStr != "":
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), tt.wantErrStr)
		}
	default:
		assert.NoError(t, err)
	}
}

func newWorkbook(t *testing.T, sheets map[string][][]interface{}) string {
	t.Helper()
	f := excelize.NewFile()
	for name, rows := range sheets {
		f.NewSheet(name)
		for i, row := range rows {
			axis, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(name, axis, &row))
		}
	}
	f.DeleteSheet("Sheet1")
	path := filepath.Join(t.TempDir(), "data.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func Test_commandLine_migrate(t *testing.T) {
	cli, _ := setup(t)

	gooseRunFunc = func(command string, db *sql.DB, fsys fs.FS, dir string, args ...string) error {
		if dir != appfs.MigrationsDir {
			return fmt.Errorf("unexpected migrations dir %q", dir)
		}
		switch command {
		case "up", "up-by-one", "down", "fix", "redo", "reset", "status", "version": // pass
		case "up-to":
			if len(args) == 0 {
				return fmt.Errorf("up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		case "create":
			if len(args) == 0 {
				return fmt.Errorf("create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]")
			}
		case "down-to":
			if len(args) == 0 {
				return fmt.Errorf("down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION")
			}
			if _, err := strconv.ParseInt(args[0], 10, 64); err != nil {
				return fmt.Errorf("version must be a number (got '%s')", args[0])
			}
		default:
			return fmt.Errorf("%q: no such command", command)
		}
		return nil
	}

	tests := []cliTest{
		{name: "no subcommand", args: []string{"migrate"}, wantErr: errHelp},
		{name: "unknown subcommand", args: []string{"migrate", "lol"}, wantErrStr: "\"lol\": no such command"},
		{name: "up-to: no args", args: []string{"migrate", "up-to"}, wantErrStr: "up-to must be of form: goose [OPTIONS] DRIVER DBSTRING up-to VERSION"},
		{name: "up-to: non-int arg", args: []string{"migrate", "up-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "create: no args", args: []string{"migrate", "create"}, wantErrStr: "create must be of form: goose [OPTIONS] DRIVER DBSTRING create NAME [go|sql]"},
		{name: "down-to: no args", args: []string{"migrate", "down-to"}, wantErrStr: "down-to must be of form: goose [OPTIONS] DRIVER DBSTRING down-to VERSION"},
		{name: "down-to: non-int arg", args: []string{"migrate", "down-to", "lol"}, wantErrStr: "version must be a number (got 'lol')"},
		{name: "up", args: []string{"migrate", "up"}},
		{name: "up-by-one", args: []string{"migrate", "up-by-one"}},
		{name: "up-to", args: []string{"migrate", "up-to", "2"}},
		{name: "down", args: []string{"migrate", "down"}},
		{name: "down-to", args: []string{"migrate", "down-to", "1"}},
		{name: "redo", args: []string{"migrate", "redo"}},
		{name: "reset", args: []string{"migrate", "reset"}},
		{name: "status", args: []string{"migrate", "status"}},
		{name: "version", args: []string{"migrate", "version"}},
		{name: "create", args: []string{"migrate", "create", "grants", "sql"}},
		{name: "fix", args: []string{"migrate", "fix"}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}
}

func Test_commandLine_addUser(t *testing.T) {
	cli, _ := setup(t)
	ctx := context.Background()

	existing := testutil.CreateUser(t, usrRepo, "Awe", "awe", "awe@test.cd", "mdr", nil, false)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no args", args: []string{"adduser"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"adduser", "-username", "jdoe"}, wantErr: errHelp},
		{name: "create", args: []string{"adduser", "-username", "JDoe", "-email", "jdoe@test.cd"}, extra: extra{pwd: "secret"}},
		{name: "create admin", args: []string{"adduser", "-username", "boss", "-admin"}, extra: extra{pwd: "secret"}},
		{name: "update existing", args: []string{"adduser", "-username", existing.Username, "-admin"}, extra: extra{pwd: "newpwd"}},
	}
	for _, tt := range tests {
		tt := tt
		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	jdoe, err := usrRepo.GetUser(ctx, user.GetFilter{Username: "jdoe"})
	require.NoError(t, err)
	assert.Equal(t, "jdoe@test.cd", jdoe.Email)
	assert.True(t, jdoe.IsActive)
	assert.Empty(t, jdoe.Roles)
	assert.NoError(t, jdoe.CheckPassword("secret"))

	boss, err := usrRepo.GetUser(ctx, user.GetFilter{Username: "boss"})
	require.NoError(t, err)
	assert.True(t, boss.IsSuperuser())

	awe, err := usrRepo.GetUser(ctx, user.GetFilter{ID: existing.ID})
	require.NoError(t, err)
	assert.True(t, awe.IsActive)
	assert.True(t, awe.IsAdmin())
	assert.NoError(t, awe.CheckPassword("newpwd"))
}

func Test_commandLine_resetPassword(t *testing.T) {
	cli, _ := setup(t)

	usr := testutil.CreateUser(t, usrRepo, "User", "awe", "awe@test.cd", "mdr", nil, true)

	type extra struct {
		pwd string
	}
	tests := []cliTest{
		{name: "no command", wantErr: errHelp},
		{name: "unknown command", args: []string{"lol"}, wantErr: errHelp},
		{name: "no args", args: []string{"resetpassword"}, wantErr: errHelp},
		{name: "username but no password", args: []string{"resetpassword", "-username", "lol"}, wantErr: errHelp},
		{name: "user not found", args: []string{"resetpassword", "-username", "lol"}, extra: extra{pwd: "lol"}, wantErrStr: user.ErrNotFound.Error()},
		{name: "reset with username", args: []string{"resetpassword", "-username", usr.Username}, extra: extra{pwd: "lol"}},
		{name: "reset with email", args: []string{"resetpassword", "-username", usr.Email}, extra: extra{pwd: "lmao"}},
	}
	for _, tt := range tests {
		tt := tt
		readPasswordFunc = func(fd int) ([]byte, error) {
			if extra, ok := tt.extra.(extra); ok {
				return []byte(extra.pwd), nil
			}
			return nil, nil
		}

		t.Run(tt.name, func(t *testing.T) {
			err := cli.run(append([]string{"admin"}, tt.args...))
			tt.check(t, err)
			if err == nil {
				refreshedUsr, err := usrRepo.GetUser(context.Background(), user.GetFilter{ID: usr.ID})
				require.NoError(t, err)
				assert.NotEqual(t, usr.PasswordHash, refreshedUsr.PasswordHash, "failed to update new password")
				if extra, ok := tt.extra.(extra); ok {
					assert.NoError(t, refreshedUsr.CheckPassword(extra.pwd))
				}
			}
		})
	}
}

func Test_commandLine_loadUsers(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()

	testutil.CreateUser(t, usrRepo, "Taken", "taken", "taken@test.cd", "mdr", nil, true)
	rows := [][]interface{}{
		{"id", "username", "password", "first_name", "last_name", "email", "is_staff", "is_superuser"},
		{10, "JDoe", "secret", "John", "Doe", "jdoe@test.cd", 1, 0},
		{11, "taken", "secret", "", "", "", 0, 0},
		{12, "boss", "secret", "", "", "", 0, 1},
	}
	path := newWorkbook(t, map[string][][]interface{}{user.DefaultSheet: rows, "notes": {{"whatever"}}})

	tests := []cliTest{
		{name: "no args", args: []string{"loadusers"}, wantErr: errHelp},
		{name: "missing file", args: []string{"loadusers", "-file", filepath.Join(t.TempDir(), "nope.xlsx")}, wantErrStr: "no such file"},
		{name: "missing sheet", args: []string{"loadusers", "-file", path, "-sheet", "other"}, wantErrStr: `sheet "other" not found`},
		{name: "wrong sheet", args: []string{"loadusers", "-file", path, "-sheet", "notes"}, wantErrStr: "the sheet must contain the following columns"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	t.Run("import", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "loadusers", "-file", path}))
		assert.Contains(t, out.String(), "row 3: database integrity problems occurred when creating user \"taken\" (id=11)")
		assert.Contains(t, out.String(), "2 user(s) created, 1 skipped")

		jdoe, err := usrRepo.GetUser(ctx, user.GetFilter{ID: 10})
		require.NoError(t, err)
		assert.Equal(t, "jdoe", jdoe.Username)
		assert.True(t, jdoe.IsStaff())
		assert.NoError(t, jdoe.CheckPassword("secret"))

		boss, err := usrRepo.GetUser(ctx, user.GetFilter{ID: 12})
		require.NoError(t, err)
		assert.True(t, boss.IsSuperuser())
	})

	t.Run("single sheet is read whatever its name", func(t *testing.T) {
		single := newWorkbook(t, map[string][][]interface{}{"staff": {
			rows[0],
			{20, "zoe", "secret", "Zoe", "", "", 0, 0},
		}})
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "loadusers", "-file", single, "-sheet", "other"}))
		assert.Contains(t, out.String(), "1 user(s) created, 0 skipped")
	})
}

func Test_commandLine_fixtures(t *testing.T) {
	cli, out := setup(t)
	ctx := context.Background()
	dir := t.TempDir()

	path := newWorkbook(t, map[string][][]interface{}{
		"units.university": {{"id", "name", "abbreviation"}, {1, "University of Warsaw", "UW"}},
		"units.faculty":    {{"id", "name", "abbreviation", "university"}, {2, "Faculty of Physics", "FUW", 1}},
		"employees.status": {{"id", "name"}, {1, "Active"}},
	})

	tests := []cliTest{
		{name: "writefixtures: no args", args: []string{"writefixtures"}, wantErr: errHelp},
		{name: "writefixtures: no apps", args: []string{"writefixtures", "-file", path}, wantErr: errHelp},
		{name: "loaddata: no files", args: []string{"loaddata"}, wantErr: errHelp},
		{name: "loaddata: missing file", args: []string{"loaddata", filepath.Join(dir, "nope.json")}, wantErrStr: "no such file"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	t.Run("write then load", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "writefixtures", "-file", path, "-apps", "units", "-out", dir}))
		fixturePath := filepath.Join(dir, "units.json")
		assert.Contains(t, out.String(), "wrote "+fixturePath)
		_, err := os.Stat(filepath.Join(dir, "employees.json"))
		assert.True(t, os.IsNotExist(err), "only the requested apps are written")

		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "loaddata", fixturePath}))
		assert.Contains(t, out.String(), "Installed 2 object(s) from 1 fixture(s)")

		fac, err := unitRepo.GetUnit(ctx, unit.Faculty, 2)
		require.NoError(t, err)
		assert.Equal(t, "Faculty of Physics", fac.Name)
		if assert.NotNil(t, fac.ParentID) {
			assert.Equal(t, 1, *fac.ParentID)
		}
	})

	t.Run("invalid fixture", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte(`[{"model": "units.campus", "pk": 1, "fields": {}}]`), 0o644))
		err := cli.run([]string{"admin", "loaddata", bad})
		if assert.Error(t, err) {
			assert.Contains(t, err.Error(), `unknown model "units.campus"`)
		}
	})
}

func Test_commandLine_exportEmployees(t *testing.T) {
	cli, out := setup(t)
	path := filepath.Join(t.TempDir(), "employees.xlsx")

	tests := []cliTest{
		{name: "no args", args: []string{"exportemployees"}, wantErr: errHelp},
		{name: "invalid email", args: []string{"exportemployees", "-file", path, "-email", "lol"}, wantErrStr: "invalid email"},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			tt.check(t, cli.run(append([]string{"admin"}, tt.args...)))
		})
	}

	t.Run("export & mail", func(t *testing.T) {
		out.Reset()
		require.NoError(t, cli.run([]string{"admin", "exportemployees", "-file", path, "-email", "boss@test.cd"}))
		assert.Contains(t, out.String(), "0 employee(s) exported to "+path)
		assert.Contains(t, out.String(), "export mailed to boss@test.cd")

		f, err := excelize.OpenFile(path)
		require.NoError(t, err)
		assert.Contains(t, f.GetSheetList(), employee.ExportSheet)

		require.Len(t, emailsvc.SentMessages, 1)
		msg := emailsvc.SentMessages[0]
		assert.Equal(t, "boss@test.cd", msg.To[0].Address)
		assert.Contains(t, msg.TextContent, "(0 employees)")
		if assert.Len(t, msg.Attachments, 1) {
			assert.Equal(t, "employees.xlsx", msg.Attachments[0].Filename)
			assert.Equal(t, xlsxContentType, msg.Attachments[0].ContentType)
		}
	})
}
