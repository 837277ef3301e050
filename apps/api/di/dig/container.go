package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/trezcool/dorobek/apps/api/echo"
	"github.com/trezcool/dorobek/core"
	"github.com/trezcool/dorobek/core/attainment"
	"github.com/trezcool/dorobek/core/employee"
	"github.com/trezcool/dorobek/core/fixture"
	"github.com/trezcool/dorobek/core/unit"
	"github.com/trezcool/dorobek/core/user"
	"github.com/trezcool/dorobek/services/email"
	"github.com/trezcool/dorobek/services/logger"
	"github.com/trezcool/dorobek/storage/database"
	"github.com/trezcool/dorobek/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

type serverParams struct {
	dig.In

	Conf          *core.Config
	Logger        core.Logger
	Validate      *validator.Validate
	Translator    ut.Translator
	UserSvc       user.Service
	UnitSvc       unit.Service
	EmployeeSvc   employee.Service
	AttainmentSvc attainment.Service
}

func newLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "API : ", log.LstdFlags)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

func newDBLogger(conf *core.Config) core.Logger {
	stdLogger := log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)
	logger := logsvc.NewRollbarLogger(stdLogger, conf)
	logger.Enable(!conf.Debug)
	return logger
}

// newDB creates the database when missing and migrates it up.
// The pool doubles as the executor of the repositories.
func newDB(conf *core.Config, loggerParam DBLoggerParam) (*database.DB, core.DB, core.DBExecutor) {
	setUp := func() (*database.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db, "up"); err != nil {
			return nil, err
		}
		return db, nil
	}

	db, err := setUp()
	if err != nil {
		loggerParam.Logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	return db, db, db
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newServer(p serverParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.ServerDeps{
		Conf:          p.Conf,
		Logger:        p.Logger,
		Validate:      p.Validate,
		Translator:    p.Translator,
		UserSvc:       p.UserSvc,
		UnitSvc:       p.UnitSvc,
		EmployeeSvc:   p.EmployeeSvc,
		AttainmentSvc: p.AttainmentSvc,
	})
}

// New returns a new dependency injection dig.Container
func New() *dig.Container {
	c := dig.New()

	must(c.Provide(core.NewConfig))
	must(c.Provide(newLogger))
	must(c.Provide(newDBLogger, dig.Name("dbLogger")))
	must(c.Provide(newDB))
	must(c.Provide(newEmailService))
	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewUnitRepository))
	must(c.Provide(sqlxrepos.NewEmployeeRepository))
	must(c.Provide(sqlxrepos.NewAttainmentRepository))
	must(c.Provide(sqlxrepos.NewFixtureRepository))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(unit.NewService))
	must(c.Provide(employee.NewService))
	must(c.Provide(attainment.NewService))
	must(c.Provide(fixture.NewService))

	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
