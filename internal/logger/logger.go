// Package logger configures the process-wide logrus logger for the commands.
package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New creates a logger writing to out. The level comes from LOG_LEVEL
// (default "info") and the format from LOG_FORMAT ("json" or text).
func New(out io.Writer) *logrus.Logger {
	log := logrus.New()

	lvl, ok := os.LookupEnv("LOG_LEVEL")
	if !ok {
		lvl = "info"
	}
	level, err := logrus.ParseLevel(lvl)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if strings.ToLower(os.Getenv("LOG_FORMAT")) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
			ForceColors:   true,
		})
	}

	log.SetOutput(out)
	return log
}

// Init creates the standard output logger.
func Init() *logrus.Logger {
	return New(os.Stdout)
}
