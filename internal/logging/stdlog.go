package logging

import (
	"log"
	"log/slog"
)

// StdLogger bridges a component-scoped slog logger to *log.Logger for
// libraries that only accept the standard logger (http.Server.ErrorLog).
func StdLogger(base *slog.Logger, component string) *log.Logger {
	return slog.NewLogLogger(base.With("component", component).Handler(), slog.LevelError)
}
