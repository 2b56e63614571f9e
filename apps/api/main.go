package main

import (
	"context"
	"expvar"
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"

	dig_container "github.com/openschool/campus/apps/api/di/dig"
	echoapi "github.com/openschool/campus/apps/api/echo"
	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/user"
	"github.com/openschool/campus/services/scheduler"
)

func main() {
	c := dig_container.New()

	must(c.Invoke(func(
		conf *core.Config,
		apiLogger core.Logger,
		dbLoggerParam dig_container.DBLoggerParam,
		db *sqlx.DB,
		validate *validator.Validate,
		translator ut.Translator,
		sched *scheduler.Scheduler,
		server *echoapi.Server,
	) {
		apiLogger.Info(fmt.Sprintf("Campus API initializing : version %q", conf.Build))
		initDomain(conf, apiLogger, validate, translator)

		defer func() {
			if err := db.Close(); err != nil {
				dbLoggerParam.Logger.Fatal("Failed to close", err)
			}
		}()
		defer apiLogger.Info("Campus API stopped")

		serveDebug(conf, apiLogger)

		sched.Start()
		go server.Start()

		select {
		case err := <-server.Errors():
			apiLogger.Fatal(fmt.Sprintf("server error: %v", err), err)
		case sig := <-server.ShutdownSignal():
			apiLogger.Info(fmt.Sprintf("%v: Start shutdown...", sig))
			shutdown(conf, apiLogger, server, sched)
		}
	}))
}

// initDomain registers the validators and loads the data the core packages need before serving.
func initDomain(conf *core.Config, logger core.Logger, validate *validator.Validate, translator ut.Translator) {
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)
	core.ParseEmailTemplates(conf, logger)
	user.LoadCommonPasswords(logger)
}

// serveDebug exposes /debug/pprof and /debug/vars on the debug host.
func serveDebug(conf *core.Config, logger core.Logger) {
	expvar.NewString("build").Set(conf.Build)
	expvar.NewString("env").Set(conf.Env)

	go func() {
		if err := http.ListenAndServe(conf.Server.DebugHost, http.DefaultServeMux); err != nil {
			logger.Error(fmt.Sprintf("debug server closed: %v", err), err)
		}
	}()
}

// shutdown gives outstanding requests and scheduled jobs until the shutdown timeout to complete.
func shutdown(conf *core.Config, logger core.Logger, server *echoapi.Server, sched *scheduler.Scheduler) {
	ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)
		if err = server.Close(); err != nil {
			logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
		}
	}
	if err := sched.Stop(ctx); err != nil {
		logger.Error(fmt.Sprintf("could not stop scheduler: %v", err), err)
	}
}

func must(err error) {
	if err != nil {
		log.Fatal(err)
	}
}
