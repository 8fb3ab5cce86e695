package console

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/log"
)

// ConsoleLogger writes log lines to a terminal or pipe through
// charmbracelet/log.
type ConsoleLogger struct {
	l *log.Logger
}

type ConsoleLoggerParams struct {
	Debug bool
	// Format is text (default), json or logfmt. Unknown names fall back to
	// text; use ParseFormat to reject them up front.
	Format string
	Prefix string
	// Writer defaults to stderr.
	Writer io.Writer
}

var formats = map[string]log.Formatter{
	"":       log.TextFormatter,
	"text":   log.TextFormatter,
	"json":   log.JSONFormatter,
	"logfmt": log.LogfmtFormatter,
}

// ParseFormat maps a format name to its formatter.
func ParseFormat(name string) (log.Formatter, error) {
	f, ok := formats[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return log.TextFormatter, fmt.Errorf("unknown log format %q (want text, json or logfmt)", name)
	}
	return f, nil
}

func NewConsoleLogger(params ConsoleLoggerParams) *ConsoleLogger {
	formatter, _ := ParseFormat(params.Format)

	opts := log.Options{
		ReportTimestamp: true,
		Level:           log.InfoLevel,
		Formatter:       formatter,
		Prefix:          params.Prefix,
	}
	if params.Debug {
		opts.Level = log.DebugLevel
	}

	w := params.Writer
	if w == nil {
		w = os.Stderr
	}
	return &ConsoleLogger{l: log.NewWithOptions(w, opts)}
}

func (c *ConsoleLogger) Log(message string, keyvals ...any)   { c.l.Print(message, keyvals...) }
func (c *ConsoleLogger) Debug(message string, keyvals ...any) { c.l.Debug(message, keyvals...) }
func (c *ConsoleLogger) Info(message string, keyvals ...any)  { c.l.Info(message, keyvals...) }
func (c *ConsoleLogger) Warn(message string, keyvals ...any)  { c.l.Warn(message, keyvals...) }
func (c *ConsoleLogger) Error(message string, keyvals ...any) { c.l.Error(message, keyvals...) }

// Fatal logs and exits with status 1.
func (c *ConsoleLogger) Fatal(message string, keyvals ...any) { c.l.Fatal(message, keyvals...) }
