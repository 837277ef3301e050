package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/employee"
	"github.com/trezcool/dorobek/core/fixture"
	"github.com/trezcool/dorobek/core/user"
	"github.com/trezcool/dorobek/storage/database"
)

var (
	readPasswordFunc = term.ReadPassword // mockable

	errHelp = errors.New("help provided")
)

type commandLine struct {
	db         *database.DB
	out        io.Writer
	usrRepo    user.Repository
	usrSvc     user.Service
	empSvc     employee.Service
	fixtureSvc fixture.Service
	mailSvc    core.EmailService
}

func (cli *commandLine) printUsage() {
	fmt.Fprintln(cli.out, "Usage:")
	fmt.Fprintln(cli.out, "  migrate COMMAND [ARGS] - run a goose command (up, down, status, ...) against the database")
	fmt.Fprintln(cli.out, "  adduser -username USERNAME [-email EMAIL] [-admin] - create or update a user; the password is prompted next")
	fmt.Fprintln(cli.out, "  resetpassword -username USERNAME|EMAIL - reset user's password")
	fmt.Fprintln(cli.out, "  loadusers -file WORKBOOK [-sheet SHEET] - create the users listed in an xlsx workbook")
	fmt.Fprintln(cli.out, "  writefixtures -file WORKBOOK -apps APP[,APP] [-out DIR] - turn the sheets of an xlsx workbook into JSON fixtures")
	fmt.Fprintln(cli.out, "  loaddata FIXTURE... - load JSON fixtures into the database")
	fmt.Fprintln(cli.out, "  exportemployees -file WORKBOOK [-email EMAIL] - export the employees listing, optionally mailing it")
}

func (cli *commandLine) run(args []string) error {
	if len(args) < 2 {
		cli.printUsage()
		return errHelp
	}

	addUserCmd := flag.NewFlagSet("adduser", flag.ContinueOnError)
	addUserUname := addUserCmd.String("username", "", "The user's username.")
	addUserEmail := addUserCmd.String("email", "", "The user's email.")
	addUserAdmin := addUserCmd.Bool("admin", false, "Grant every role to the user.")

	resetPasswordCmd := flag.NewFlagSet("resetpassword", flag.ContinueOnError)
	resetPasswordUname := resetPasswordCmd.String("username", "", "The user's username or email. The password will be prompted next.")

	loadUsersCmd := flag.NewFlagSet("loadusers", flag.ContinueOnError)
	loadUsersFile := loadUsersCmd.String("file", "", "The xlsx workbook listing the users.")
	loadUsersSheet := loadUsersCmd.String("sheet", user.DefaultSheet, "The sheet listing the users.")

	writeFixturesCmd := flag.NewFlagSet("writefixtures", flag.ContinueOnError)
	writeFixturesFile := writeFixturesCmd.String("file", "", "The xlsx workbook to read.")
	writeFixturesApps := writeFixturesCmd.String("apps", "", "Comma separated app labels whose sheets are read (e.g. units,employees).")
	writeFixturesDir := writeFixturesCmd.String("out", "fixtures", "The directory the fixtures are written to.")

	exportCmd := flag.NewFlagSet("exportemployees", flag.ContinueOnError)
	exportFile := exportCmd.String("file", "", "The xlsx workbook to write.")
	exportEmail := exportCmd.String("email", "", "Mail the workbook to this address.")

	for _, fs := range []*flag.FlagSet{addUserCmd, resetPasswordCmd, loadUsersCmd, writeFixturesCmd, exportCmd} {
		fs.SetOutput(cli.out)
	}

	switch args[1] {
	case "migrate":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.migrate(args[2:])

	case "adduser":
		if err := addUserCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *addUserUname == "" {
			addUserCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			addUserCmd.Usage()
			return errHelp
		}
		return cli.addUser(*addUserUname, *addUserEmail, pwd, *addUserAdmin)

	case "resetpassword":
		if err := resetPasswordCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *resetPasswordUname == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		pwd, err := cli.promptPassword()
		if err != nil {
			return err
		}
		if pwd == "" {
			resetPasswordCmd.Usage()
			return errHelp
		}
		return cli.resetPassword(*resetPasswordUname, pwd)

	case "loadusers":
		if err := loadUsersCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *loadUsersFile == "" {
			loadUsersCmd.Usage()
			return errHelp
		}
		return cli.loadUsers(*loadUsersFile, *loadUsersSheet)

	case "writefixtures":
		if err := writeFixturesCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *writeFixturesFile == "" || *writeFixturesApps == "" {
			writeFixturesCmd.Usage()
			return errHelp
		}
		return cli.writeFixtures(*writeFixturesFile, strings.Split(*writeFixturesApps, ","), *writeFixturesDir)

	case "loaddata":
		if len(args) < 3 {
			cli.printUsage()
			return errHelp
		}
		return cli.loadData(args[2:])

	case "exportemployees":
		if err := exportCmd.Parse(args[2:]); err != nil {
			return errHelp
		}
		if *exportFile == "" {
			exportCmd.Usage()
			return errHelp
		}
		return cli.exportEmployees(*exportFile, *exportEmail)

	default:
		cli.printUsage()
		return errHelp
	}
}

func (cli *commandLine) promptPassword() (string, error) {
	fmt.Fprint(cli.out, "Enter password:")
	pwd, err := readPasswordFunc(int(syscall.Stdin))
	fmt.Fprintln(cli.out)
	if err != nil {
		return "", err
	}
	return string(pwd), nil
}
