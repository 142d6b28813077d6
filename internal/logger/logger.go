package logger

import (
	"io"
	"os"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	mu  sync.RWMutex
	std *logrus.Logger
)

// InitLogger configures the process-wide logger.
// Empty level/format fall back to LOG_LEVEL / LOG_FORMAT, then "info" / "text".
// Logs go to stderr so CLI reports on stdout stay clean.
func InitLogger(level, format string) *logrus.Logger {
	log := logrus.New()

	if level == "" {
		level = os.Getenv("LOG_LEVEL")
	}
	if level == "" {
		level = "info"
	}
	if lvl, err := logrus.ParseLevel(strings.ToLower(level)); err == nil {
		log.SetLevel(lvl)
	} else {
		log.SetLevel(logrus.InfoLevel)
		log.WithField("invalid_level", level).Warn("Invalid log level, using INFO")
	}

	if format == "" {
		format = os.Getenv("LOG_FORMAT")
	}
	if strings.ToLower(format) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02T15:04:05.000Z07:00",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}
	log.SetOutput(os.Stderr)

	mu.Lock()
	std = log
	mu.Unlock()
	return log
}

// GetLogger returns the process-wide logger, initializing it on first use.
func GetLogger() *logrus.Logger {
	mu.RLock()
	l := std
	mu.RUnlock()
	if l == nil {
		return InitLogger("", "")
	}
	return l
}

// Discard returns a logger that drops everything; handy in tests.
func Discard() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

// WithComponent tags entries with the subsystem that produced them.
func WithComponent(name string) *logrus.Entry {
	return GetLogger().WithField("component", name)
}

// WithPlayer tags entries with the player being analyzed.
func WithPlayer(player string) *logrus.Entry {
	return GetLogger().WithField("player", player)
}

// WithRunID tags entries with a backtest suite run.
func WithRunID(runID string) *logrus.Entry {
	return GetLogger().WithField("run_id", runID)
}

// WithHTTPContext creates a logger with HTTP request context.
func WithHTTPContext(method, path, clientIP string) *logrus.Entry {
	return GetLogger().WithFields(logrus.Fields{
		"http_method": method,
		"http_path":   path,
		"client_ip":   clientIP,
	})
}
