package dig_container

import (
	"fmt"
	"log"
	"os"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
	"go.uber.org/dig"

	echoapi "github.com/openschool/campus/apps/api/echo"
	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/course"
	"github.com/openschool/campus/core/enrollment"
	"github.com/openschool/campus/core/payment"
	"github.com/openschool/campus/core/submission"
	"github.com/openschool/campus/core/user"
	emailsvc "github.com/openschool/campus/services/email"
	"github.com/openschool/campus/services/filestore"
	logsvc "github.com/openschool/campus/services/logger"
	"github.com/openschool/campus/services/paysafe"
	"github.com/openschool/campus/services/scheduler"
	"github.com/openschool/campus/storage/database"
	sqlxrepos "github.com/openschool/campus/storage/database/sqlx"
)

type DBLoggerParam struct {
	dig.In
	Logger core.Logger `name:"dbLogger"`
}

// ServerParams are the dependencies of the API server.
type ServerParams struct {
	dig.In

	Conf        *core.Config
	Logger      core.Logger
	Validate    *validator.Validate
	Translator  ut.Translator
	Users       user.Service
	Courses     course.Service
	Enrollments enrollment.Service
	Submissions submission.Service
	Payments    payment.Service
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

func newDB(conf *core.Config, loggerParam DBLoggerParam) (*sqlx.DB, core.DB, core.DBExecutor) {
	setUp := func() (*sqlx.DB, error) {
		if err := database.CreateIfNotExist(conf); err != nil {
			return nil, err
		}

		db, err := database.Open(conf)
		if err != nil {
			return nil, err
		}

		if err = database.Migrate(db.DB); err != nil {
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

// newSubmissionRepository also counts the submitted units of enrollments.
func newSubmissionRepository(db core.DB) (submission.Repository, enrollment.UnitCounter) {
	repo := sqlxrepos.NewSubmissionRepository(db)
	return repo, repo
}

func newEmailService(conf *core.Config, logger core.Logger) core.EmailService {
	if conf.Debug {
		return emailsvc.NewConsoleService(conf, logger)
	}
	return emailsvc.NewSendgridService(conf, logger)
}

func newPaymentProvider(conf *core.Config, logger core.Logger) payment.Provider {
	return paysafe.NewClient(conf, logger)
}

func newFileStore(conf *core.Config) (submission.FileStore, error) {
	return filestore.NewDiskStore(conf)
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

func newServer(p ServerParams) *echoapi.Server {
	return echoapi.NewServer(echoapi.Options{
		Conf:        p.Conf,
		Logger:      p.Logger,
		Validate:    p.Validate,
		Translator:  p.Translator,
		Users:       p.Users,
		Courses:     p.Courses,
		Enrollments: p.Enrollments,
		Submissions: p.Submissions,
		Payments:    p.Payments,
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
	must(c.Provide(newPaymentProvider))
	must(c.Provide(newFileStore))

	// repositories
	must(c.Provide(sqlxrepos.NewUserRepository))
	must(c.Provide(sqlxrepos.NewCourseRepository))
	must(c.Provide(sqlxrepos.NewEnrollmentRepository))
	must(c.Provide(sqlxrepos.NewPaymentRepository))
	must(c.Provide(newSubmissionRepository))

	must(c.Provide(validator.New))
	must(c.Provide(newTranslator))

	// services
	must(c.Provide(user.NewService))
	must(c.Provide(course.NewService))
	must(c.Provide(enrollment.NewService))
	must(c.Provide(submission.NewService))
	must(c.Provide(payment.NewService))
	must(c.Provide(scheduler.New))
	must(c.Provide(newServer))

	return c
}

// must exits program if err happened
func must(err error) {
	if err != nil {
		log.Fatal(errors.Wrap(err, "failed to provide dependency").Error())
	}
}
