// Package cli implements the patriline command-line interface.
//
// This package provides commands for simulating patrilineal genealogies,
// estimating population-structure statistics, rendering pedigrees, and
// serving the pipeline over HTTP. The CLI is built using cobra and
// supports verbose logging via the charmbracelet/log library.
//
// # Commands
//
// The main commands are:
//   - simulate: Run the genealogy/haplotype pipeline
//   - estimate: Run the theta and F-statistics estimators on samples
//   - render:   Draw pedigrees from an exported population
//   - serve:    Expose the pipeline as an HTTP API
//   - runs:     Inspect saved run summaries
//   - cache:    Manage the local result cache
//
// # Logging
//
// All commands support --verbose (-v) for debug-level logging. Loggers
// are passed through context.Context, and long-running pipeline stages
// are timed with a stageTimer that tags its output with the stage name.
package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// newLogger creates the CLI logger. It writes to w, filters at the given
// level, and prefixes every line with the application name so pipeline
// output is attributable when commands are chained in scripts.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
		Prefix:          "patriline",
	})
}

// stageTimer times one pipeline stage (simulate, render, ...) and logs
// its completion tagged with the stage name.
type stageTimer struct {
	logger *log.Logger
	stage  string
	start  time.Time
}

// startStage begins timing the named stage.
func startStage(l *log.Logger, stage string) *stageTimer {
	l.Debug("stage started", "stage", stage)
	return &stageTimer{logger: l, stage: stage, start: time.Now()}
}

// done logs the formatted message with the stage name and the elapsed
// time, rounded to the nearest millisecond.
// Example output: "Simulated 1042 individuals stage=simulate duration=1.234s"
func (t *stageTimer) done(format string, args ...any) {
	t.logger.Info(fmt.Sprintf(format, args...),
		"stage", t.stage,
		"duration", time.Since(t.start).Round(time.Millisecond))
}

// ctxKey is the type for context keys used in this package.
type ctxKey int

// loggerKey is the context key for storing a logger.
const loggerKey ctxKey = 0

// withLogger returns a new context with the given logger attached.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext retrieves the logger from ctx, falling back to
// log.Default() so commands always have a valid logger.
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
