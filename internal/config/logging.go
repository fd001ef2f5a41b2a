package config

import (
	"strings"

	"github.com/sirupsen/logrus"
)

// SetupLogging configures the global logger from LOG_FORMAT and LOG_LEVEL
func SetupLogging() {
	logFormat := strings.ToLower(GetEnvOrDefault("LOG_FORMAT", "text"))
	logLevel := strings.ToLower(GetEnvOrDefault("LOG_LEVEL", "info"))

	// Set log formatter based on environment
	switch logFormat {
	case "json":
		logrus.SetFormatter(&logrus.JSONFormatter{})
	default:
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp: true,
		})
	}

	// Set log level based on environment
	switch logLevel {
	case "debug":
		logrus.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		logrus.SetLevel(logrus.WarnLevel)
	case "error":
		logrus.SetLevel(logrus.ErrorLevel)
	default:
		logrus.SetLevel(logrus.InfoLevel)
	}

	logrus.Debug("Logging configured")
}
