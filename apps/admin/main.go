package main

import (
	"log"
	"os"

	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/employee"
	"github.com/trezcool/dorobek/core/fixture"
	"github.com/trezcool/dorobek/core/user"
	appfs "github.com/trezcool/dorobek/fs"
	"github.com/trezcool/dorobek/services/email"
	"github.com/trezcool/dorobek/services/logger"
	"github.com/trezcool/dorobek/storage/database"
	"github.com/trezcool/dorobek/storage/database/sqlx"
)

var logger core.Logger

func main() {
	conf := core.NewConfig()

	stdLogger := log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	rbLogger := logsvc.NewRollbarLogger(stdLogger, conf)
	rbLogger.Enable(!conf.Debug)
	logger = rbLogger

	// set up DB
	db, err := database.Open(conf)
	errAndDie(err)
	defer db.Close()

	// set up mail
	var mailSvc core.EmailService
	if conf.Debug {
		mailSvc = emailsvc.NewConsoleService(conf)
	} else {
		mailSvc = emailsvc.NewSendgridService(conf, logger)
	}
	errAndDie(core.ParseEmailTemplates(conf, appfs.FS, appfs.EmailTemplatesDir))

	// set up services
	usrRepo := sqlxrepos.NewUserRepository(db)
	usrSvc := user.NewService(db, usrRepo, mailSvc, conf)
	empSvc := employee.NewService(db, sqlxrepos.NewEmployeeRepository(db), usrSvc)

	// start CLI
	cli := commandLine{
		db:         db,
		out:        os.Stdout,
		usrRepo:    usrRepo,
		usrSvc:     usrSvc,
		empSvc:     empSvc,
		fixtureSvc: fixture.NewService(db, sqlxrepos.NewFixtureRepository(db)),
		mailSvc:    mailSvc,
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Error("\nerror: "+err.Error(), err)
		}
		_ = db.Close()
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err.Error(), err)
	}
}
