package logsvc

import (
	"context"
	"log"

	"github.com/rollbar/rollbar-go"
	"github.com/rollbar/rollbar-go/errors"

	"github.com/trezcool/shule/core"
	"github.com/trezcool/shule/core/account"
)

// RollbarLogger reports events to Rollbar and echoes them on a std logger.
type RollbarLogger struct {
	std *log.Logger
}

var _ core.Logger = (*RollbarLogger)(nil)

func NewRollbarLogger(std *log.Logger, conf *core.Config) *RollbarLogger {
	rollbar.SetToken(conf.RollbarToken)
	rollbar.SetEnvironment(conf.Env)
	rollbar.SetServerHost(conf.Server.Host)
	rollbar.SetCodeVersion(conf.Build)
	rollbar.SetStackTracer(errors.StackTracer)
	return &RollbarLogger{std: std}
}

func (l RollbarLogger) Enable(enabled bool) {
	rollbar.SetEnabled(enabled)
}

// item is what one log call turns into: the Rollbar arguments plus the account it concerns.
type item struct {
	args   []interface{}
	acc    *account.Account
	extras map[string]interface{}
}

// newItem sorts args into an error, extra data and at most one account.
// Maps are merged so that every piece of extra data reaches Rollbar.
func newItem(msg string, args []interface{}) item {
	it := item{args: []interface{}{msg}}
	for _, arg := range args {
		switch v := arg.(type) {
		case account.Account:
			if it.acc == nil {
				acc := v
				it.acc = &acc
			}
		case map[string]interface{}:
			if it.extras == nil {
				it.extras = make(map[string]interface{}, len(v))
			}
			for k, val := range v {
				it.extras[k] = val
			}
		default:
			it.args = append(it.args, arg)
		}
	}
	if it.acc != nil {
		if it.extras == nil {
			it.extras = make(map[string]interface{}, 1)
		}
		it.extras["role"] = string(it.acc.Role)
	}
	if it.extras != nil {
		it.args = append(it.args, it.extras)
	}
	return it
}

// context carries the account as the item's Rollbar person.
func (it item) context() context.Context {
	ctx := context.Background()
	if it.acc != nil {
		ctx = rollbar.NewPersonContext(ctx, &rollbar.Person{Id: it.acc.ID, Username: it.acc.Username, Email: it.acc.Email})
	}
	return ctx
}

func (l RollbarLogger) log(level, msg string, args []interface{}) {
	it := newItem(msg, args)
	rollbar.Log(level, append(it.args, it.context())...)

	l.std.Println(msg)
	for _, arg := range args {
		l.std.Printf("%+v\n", arg)
	}
}

func (l RollbarLogger) Debug(msg string, args ...interface{}) { l.log(rollbar.DEBUG, msg, args) }
func (l RollbarLogger) Info(msg string, args ...interface{})  { l.log(rollbar.INFO, msg, args) }
func (l RollbarLogger) Warn(msg string, args ...interface{})  { l.log(rollbar.WARN, msg, args) }
func (l RollbarLogger) Error(msg string, args ...interface{}) { l.log(rollbar.ERR, msg, args) }

// Fatal waits for pending Rollbar items before exiting.
func (l RollbarLogger) Fatal(msg string, args ...interface{}) {
	l.log(rollbar.CRIT, msg, args)
	rollbar.Wait()
	l.std.Fatal(msg)
}
