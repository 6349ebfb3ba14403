package mmap

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"runtime"
)

// Reporter receives a diagnostic for every failed Open, Flush or Close.
// location is the "file:line" in this package where the failure was detected.
type Reporter interface {
	Report(message, location string)
}

// ReporterFunc adapts a function to the Reporter interface.
type ReporterFunc func(message, location string)

func (f ReporterFunc) Report(message, location string) { f(message, location) }

// LogReporter returns a Reporter that logs failures at error level.
func LogReporter(logger *slog.Logger) Reporter {
	return ReporterFunc(func(message, location string) {
		logger.LogAttrs(context.Background(), slog.LevelError, message,
			slog.String("location", location))
	})
}

// report builds the *Error for a failure, hands it to r and returns it.
func report(r Reporter, op, path string, err error) *Error {
	e, ok := err.(*Error)
	if !ok {
		e = &Error{Op: op, Path: path, Err: err}
	}
	if r != nil {
		r.Report(e.Error(), callerLocation(2))
	}
	return e
}

func callerLocation(skip int) string {
	_, file, line, ok := runtime.Caller(skip)
	if !ok {
		return "unknown"
	}
	return fmt.Sprintf("%s:%d", filepath.Base(file), line)
}
