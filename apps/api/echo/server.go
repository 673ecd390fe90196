package echoapi

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/labstack/gommon/log"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/academic"
	"github.com/trezcool/shule/core/account"
	"github.com/trezcool/shule/core/attendance"
	"github.com/trezcool/shule/core/feedback"
	"github.com/trezcool/shule/core/leave"
	"github.com/trezcool/shule/core/result"
)

type (
	ServerDeps struct {
		Conf           *core.Config
		Logger         core.Logger
		DB             core.Pinger
		Sessions       core.SessionStore
		AccountSvc     account.Service
		AcademicSvc    academic.Service
		AttendanceSvc  attendance.Service
		LeaveSvc       leave.Service
		FeedbackSvc    feedback.Service
		ResultSvc      result.Service
		Validate       *validator.Validate
		Translator     ut.Translator
		DisableReqLogs bool
	}

	Server interface {
		http.Handler
		Start()
		Shutdown(ctx context.Context) error
		Close() error
		Errors() <-chan error
		ShutdownSignal() <-chan os.Signal
	}

	server struct {
		deps     ServerDeps
		app      *echo.Echo
		metrics  *metrics
		errors   chan error
		shutdown chan os.Signal
	}
)

var _ Server = (*server)(nil)

func NewServer(deps ServerDeps) Server {
	s := &server{
		deps:     deps,
		app:      echo.New(),
		metrics:  newMetrics(deps.Conf.AppName),
		errors:   make(chan error, 1),
		shutdown: make(chan os.Signal, 1),
	}
	s.setup()
	return s
}

func (s *server) setup() {
	conf := s.deps.Conf

	s.app.HideBanner = true
	s.app.Pre(middleware.RemoveTrailingSlash())
	if !s.deps.DisableReqLogs {
		s.app.Use(middleware.Logger())
	}
	// do not recover in DEV|TEST mode
	if !(conf.Debug || conf.TestMode) {
		s.app.Use(middleware.RecoverWithConfig(middleware.RecoverConfig{LogLevel: log.ERROR}))
	}
	s.app.Use(s.metrics.middleware())

	s.app.HTTPErrorHandler = newAppHTTPErrorHandler(s.deps.Logger, s.deps.Translator, s.signalShutdown)
	s.app.Renderer = newTemplateRenderer()
	s.app.Debug = conf.Debug && !conf.TestMode

	s.app.GET("/", s.home)
	s.app.GET("/healthz", s.healthz)
	s.app.GET("/metrics", s.metrics.handler())

	v1 := s.app.Group("/v1")
	jwt := middleware.JWTWithConfig(newJWTConfig(conf))
	authed := []echo.MiddlewareFunc{jwt, revocationMiddleware(s.deps.Sessions)}

	registerAccountAPI(v1, authed, s.deps)
	registerAttendanceAPI(v1, authed, s.deps)
	registerLeaveAPI(v1, authed, s.deps)
	registerFeedbackAPI(v1, authed, s.deps)
	registerResultAPI(v1, authed, s.deps)
	registerAcademicAPI(v1, authed, s.deps)

	registerPages(s.app, s.deps)
}

func (s *server) Start() {
	signal.Notify(s.shutdown, os.Interrupt, syscall.SIGTERM)
	if err := s.app.Start(s.deps.Conf.Server.Address); err != nil && err != http.ErrServerClosed {
		s.errors <- err
	}
}

func (s *server) Shutdown(ctx context.Context) error {
	return s.app.Shutdown(ctx)
}

func (s *server) Close() error {
	return s.app.Close()
}

func (s *server) Errors() <-chan error {
	return s.errors
}

func (s *server) ShutdownSignal() <-chan os.Signal {
	return s.shutdown
}

func (s *server) signalShutdown() {
	select {
	case s.shutdown <- syscall.SIGTERM:
	default: // already shutting down
	}
}

func (s *server) ServeHTTP(w http.ResponseWriter, r *http.Request) { // for tests
	s.app.ServeHTTP(w, r)
}

func (s *server) home(ctx echo.Context) error {
	return ctx.String(http.StatusOK, "Welcome to "+s.deps.Conf.AppName+"!")
}

func (s *server) healthz(ctx echo.Context) error {
	c, cancel := context.WithTimeout(ctx.Request().Context(), 2*time.Second)
	defer cancel()

	status := echo.Map{"db": "ok", "sessions": "ok"}
	code := http.StatusOK
	if s.deps.DB != nil {
		if err := s.deps.DB.PingContext(c); err != nil {
			status["db"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	if p, ok := s.deps.Sessions.(core.Pinger); ok {
		if err := p.PingContext(c); err != nil {
			status["sessions"] = err.Error()
			code = http.StatusServiceUnavailable
		}
	}
	return ctx.JSON(code, status)
}
