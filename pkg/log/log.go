// Package log configures logrus from the logs.* settings.
package log

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/kerbaras/mdex/pkg/config"
	"github.com/kerbaras/mdex/pkg/filesystem"
	"github.com/kerbaras/mdex/pkg/where"
	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

// Setup configures the standard logger.
func Setup(verbose bool) error {
	return Configure(logrus.StandardLogger(), verbose)
}

// Configure sends l to a dated file in the logs directory when logs.write is
// on, to stderr when verbose, and nowhere otherwise.
func Configure(l *logrus.Logger, verbose bool) error {
	if viper.GetBool(config.LogsJSON) {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(viper.GetString(config.LogsLevel))
	if err != nil {
		level = logrus.InfoLevel
	}
	if verbose && level < logrus.DebugLevel {
		level = logrus.DebugLevel
	}
	l.SetLevel(level)

	switch {
	case viper.GetBool(config.LogsWrite):
		path := filepath.Join(where.Logs(), time.Now().Format("2006-01-02")+".log")
		f, err := filesystem.API().OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_APPEND, 0666)
		if err != nil {
			return fmt.Errorf("failed to open log file: %w", err)
		}
		if verbose {
			l.SetOutput(io.MultiWriter(f, os.Stderr))
		} else {
			l.SetOutput(f)
		}
	case verbose:
		l.SetOutput(os.Stderr)
	default:
		l.SetOutput(io.Discard)
	}
	return nil
}
