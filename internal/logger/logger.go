// Package logger builds the logrus logger shared by the binaries.
package logger

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Shivanand-hulikatti/spotlight/internal/config"
)

// New returns a logger writing to stderr with the configured level and
// format. An unknown level falls back to info.
func New(cfg config.LogConfig) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	l.SetLevel(level)

	if strings.EqualFold(cfg.Format, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return l
}
