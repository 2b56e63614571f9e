package logsvc

import (
	"log"
	"net/http"
	"strings"
	"sync"

	"github.com/pkg/errors"
	"github.com/rollbar/rollbar-go"
	rollbarerrors "github.com/rollbar/rollbar-go/errors"

	"github.com/openschool/campus/core"
	"github.com/openschool/campus/core/user"
)

// RollbarLogger writes every message to a standard logger and reports it to Rollbar.
//
// Validation and domain errors are answered to the user who caused them: they are written
// locally but never reported.
type RollbarLogger struct {
	std *log.Logger

	// rollbar holds the person of the next report globally
	mu sync.Mutex
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(rollbarerrors.StackTracer)
	return &RollbarLogger{std: std}
}

// Enable toggles reporting to Rollbar; local output is always written.
func (l *RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// reportable is false when the error among args is a business-rule violation.
func reportable(args []interface{}) bool {
	for _, arg := range args {
		err, ok := arg.(error)
		if !ok {
			continue
		}
		switch errors.Cause(err).(type) {
		case *core.ValidationError, *core.DomainError:
			return false
		}
	}
	return true
}

// prepare turns args into rollbar interfaces: every map is merged into one set of extras and
// the first user becomes the person of the report.
func prepare(msg string, args []interface{}) []interface{} {
	var (
		usr    *user.User
		extras map[string]interface{}
	)
	out := make([]interface{}, 0, len(args)+2)
	out = append(out, msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			if usr == nil {
				usr = &a
			}
		case map[string]interface{}:
			if extras == nil {
				extras = make(map[string]interface{}, len(a))
			}
			for k, v := range a {
				extras[k] = v
			}
		default:
			out = append(out, arg)
		}
	}

	if usr != nil && usr.ID != "" {
		rollbar.SetPerson(usr.ID, usr.Username, usr.Email)
		if len(usr.Roles) > 0 {
			if extras == nil {
				extras = make(map[string]interface{}, 1)
			}
			extras["roles"] = strings.Join(usr.Roles, ",")
		}
	} else {
		rollbar.ClearPerson()
	}
	if extras != nil {
		out = append(out, extras)
	}
	return out
}

// print writes msg and its args. Users are written by username: their password hash stays out of the logs.
func (l *RollbarLogger) print(level, msg string, args []interface{}) {
	l.std.Printf("%s: %s", strings.ToUpper(level), msg)
	for _, arg := range args {
		switch a := arg.(type) {
		case user.User:
			if a.Username != "" {
				l.std.Printf("user=%s", a.Username)
			}
		case *http.Request:
			l.std.Printf("request=%s %s", a.Method, a.URL.Path)
		default:
			l.std.Printf("%+v", arg)
		}
	}
}

func (l *RollbarLogger) log(level, msg string, args []interface{}) {
	l.print(level, msg, args)
	if !reportable(args) {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	rollbar.Log(level, prepare(msg, args)...)
}

func (l *RollbarLogger) Debug(msg string, args ...interface{}) { l.log(rollbar.DEBUG, msg, args) }
func (l *RollbarLogger) Info(msg string, args ...interface{})  { l.log(rollbar.INFO, msg, args) }
func (l *RollbarLogger) Warn(msg string, args ...interface{})  { l.log(rollbar.WARN, msg, args) }
func (l *RollbarLogger) Error(msg string, args ...interface{}) { l.log(rollbar.ERR, msg, args) }

func (l *RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, msg, args)
	rollbar.Close()
	l.std.Fatal(msg)
}
