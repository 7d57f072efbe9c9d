// Package logging configures the logrus logger from the logging section of the config.
package logging

import (
	"io"

	"github.com/sirupsen/logrus"

	"github.com/signalnine/tuneloop/internal/config"
)

// Configure sets the global logrus format and level.
//   - format: text (default) or json
//   - level: trace, debug, info (default), warn, error, fatal, panic
func Configure(cfg config.Logging, out io.Writer) {
	if out != nil {
		logrus.SetOutput(out)
	}

	switch cfg.Format {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	case "text":
		fallthrough
	default:
		logrus.SetFormatter(&logrus.TextFormatter{})
	}

	switch cfg.Level {
	case "trace":
		logrus.SetLevel(logrus.TraceLevel)
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	case "fatal":
		logrus.SetLevel(logrus.FatalLevel)
	case "panic":
		logrus.SetLevel(logrus.PanicLevel)
	case "info":
		fallthrough
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}
}
