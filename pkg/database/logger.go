package database

import (
	"github.com/jackc/pgx/v5/tracelog"

	"dyad.dev/pkg/utils/context"
	"dyad.dev/pkg/utils/log"
	"dyad.dev/pkg/utils/lol"
)

// dbLogger routes pgx tracelog output through the application logger so
// query logging follows the same level switches as everything else.
type dbLogger struct{}

func (l *dbLogger) Log(
	c context.T, level tracelog.LogLevel, msg string, data map[string]any,
) {
	switch level {
	case tracelog.LogLevelTrace, tracelog.LogLevelDebug:
		log.T.F("%s %v", msg, data)
	case tracelog.LogLevelInfo:
		log.D.F("%s %v", msg, data)
	case tracelog.LogLevelWarn:
		log.W.F("%s %v", msg, data)
	case tracelog.LogLevelError:
		log.E.F("%s %v", msg, data)
	}
}

// traceLevel maps the application's level names onto pgx tracelog levels.
// Full query tracing is down at the application's trace level because it is
// extremely noisy.
func traceLevel(name string) tracelog.LogLevel {
	switch int32(lol.GetLogLevel(name)) {
	case lol.Fatal, lol.Error:
		return tracelog.LogLevelError
	case lol.Warn:
		return tracelog.LogLevelWarn
	case lol.Info:
		return tracelog.LogLevelWarn
	case lol.Debug:
		return tracelog.LogLevelInfo
	case lol.Trace:
		return tracelog.LogLevelTrace
	}
	return tracelog.LogLevelWarn
}
