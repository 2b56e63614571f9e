package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/course"
	"github.com/openschool/campus/core/enrollment"
	"github.com/openschool/campus/core/payment"
	"github.com/openschool/campus/core/submission"
	"github.com/openschool/campus/core/user"
)

// Options carries the dependencies of the API server.
type Options struct {
	Conf           *core.Config
	Logger         core.Logger
	Validate       *validator.Validate
	Translator     ut.Translator
	DisableReqLogs bool

	Users       user.Service
	Courses     course.Service
	Enrollments enrollment.Service
	Submissions submission.Service
	Payments    payment.Service
}

type Server struct {
	opts     Options
	app      *echo.Echo
	errors   chan error
	shutdown chan os.Signal
}

var _ http.Handler = (*Server)(nil)

func NewServer(opts Options) *Server {
	s := &Server{
		opts:     opts,
		app:      echo.New(),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *Server) setup() {
	conf := s.opts.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.opts.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{conf.FrontendBaseURL},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
	}))

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.opts.Logger, s.opts.Translator, s.signalShutdown)
	s.app.Debug = conf.Debug

	s.app.GET("/", s.home)

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(jwtConfig(conf))
	auth := &authenticator{conf: conf, users: s.opts.Users}

	registerUserAPI(v1, jwt, &userApi{
		svc:        s.opts.Users,
		auth:       auth,
		validate:   s.opts.Validate,
		translator: s.opts.Translator,
		logger:     s.opts.Logger,
	})
	registerCourseAPI(v1, jwt, &courseApi{svc: s.opts.Courses, validate: s.opts.Validate})
	registerEnrollmentAPI(v1, jwt, &enrollmentApi{svc: s.opts.Enrollments, validate: s.opts.Validate})
	registerSubmissionAPI(v1, jwt, &submissionApi{
		svc:           s.opts.Submissions,
		enrollments:   s.opts.Enrollments,
		users:         s.opts.Users,
		maxUploadSize: conf.Server.MaxUploadSize,
	})
	registerPaymentAPI(v1, jwt, &paymentApi{svc: s.opts.Payments, users: s.opts.Users, validate: s.opts.Validate})
	registerCountryAPI(v1)
}

// Start listens on the configured address and relays SIGINT/SIGTERM to ShutdownSignal.
func (s *Server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	s.opts.Logger.Info("API listening on " + s.opts.Conf.Server.Address)
	if err := s.app.Start(s.opts.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *Server) Errors() <-chan error {
	return s.errors
}

func (s *Server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *Server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default:
	}
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *Server) Close() error {
	return s.app.Close()
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *Server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.opts.Conf.AppName+" API!")
}
