package console

import (
	"os"

	"github.com/charmbracelet/log"
)

// Logger writes structured log lines to stderr via charmbracelet/log.
type Logger struct {
	logger *log.Logger
}

// Options configures the console backend.
type Options struct {
	Debug bool
}

// New creates a console logging backend.
func New(opts Options) *Logger {
	level := log.InfoLevel
	if opts.Debug {
		level = log.DebugLevel
	}
	return &Logger{
		logger: log.NewWithOptions(os.Stderr, log.Options{
			ReportTimestamp: true,
			Level:           level,
		}),
	}
}

func (c *Logger) Log(message string, keyvals ...any) {
	c.logger.Print(message, keyvals...)
}

func (c *Logger) Debug(message string, keyvals ...any) {
	c.logger.Debug(message, keyvals...)
}

func (c *Logger) Info(message string, keyvals ...any) {
	c.logger.Info(message, keyvals...)
}

func (c *Logger) Warn(message string, keyvals ...any) {
	c.logger.Warn(message, keyvals...)
}

func (c *Logger) Error(message string, keyvals ...any) {
	c.logger.Error(message, keyvals...)
}

// Fatal logs the message and exits the process.
func (c *Logger) Fatal(message string, keyvals ...any) {
	c.logger.Fatal(message, keyvals...)
}
