package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Options controls how NewLogger builds the base *logrus.Entry.
type Options struct {
	Component string // "imgjail-demo", "loader-pool", etc.
	Debug     bool
}

// NewLogger returns a new logger, JSON-formatted like the original, tagged
// with component/debug fields instead of the build-version fields a
// TUI application would carry.
func NewLogger(opts Options) *logrus.Entry {
	var logger *logrus.Logger
	if opts.Debug || os.Getenv("DEBUG") == "TRUE" {
		logger = newDevelopmentLogger()
	} else {
		logger = newProductionLogger()
	}

	logger.Formatter = &logrus.JSONFormatter{}

	return logger.WithFields(logrus.Fields{
		"component": opts.Component,
		"debug":     opts.Debug,
	})
}

func getLogLevel() logrus.Level {
	strLevel := os.Getenv("LOG_LEVEL")
	level, err := logrus.ParseLevel(strLevel)
	if err != nil {
		return logrus.DebugLevel
	}
	return level
}

func newDevelopmentLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(getLogLevel())
	logger.Out = os.Stderr
	return logger
}

func newProductionLogger() *logrus.Logger {
	logger := logrus.New()
	logger.Out = io.Discard
	logger.SetLevel(logrus.ErrorLevel)
	return logger
}
