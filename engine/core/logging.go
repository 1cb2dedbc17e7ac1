package core

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

type LogLevel int

const (
	LogLevelDebug LogLevel = iota
	LogLevelInfo
	LogLevelWarn
	LogLevelError
)

var once sync.Once

type logger struct {
	*log.Logger
}

var singleton *logger

func getLogger() *logger {
	once.Do(
		func() {
			l := log.NewWithOptions(os.Stderr, log.Options{
				ReportCaller:    true,
				ReportTimestamp: true,
				TimeFormat:      time.RFC3339,
				Prefix:          "Anima 🦴 ",
			})
			l.SetLevel(log.DebugLevel)
			singleton = &logger{l}
		})
	return singleton
}

// ParseLogLevel maps the config spelling of a level. Unknown values fall back to info.
func ParseLogLevel(s string) LogLevel {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	default:
		return LogLevelInfo
	}
}

func SetLogLevel(level LogLevel) {
	switch level {
	case LogLevelDebug:
		getLogger().SetLevel(log.DebugLevel)
	case LogLevelWarn:
		getLogger().SetLevel(log.WarnLevel)
	case LogLevelError:
		getLogger().SetLevel(log.ErrorLevel)
	default:
		getLogger().SetLevel(log.InfoLevel)
	}
}

// SetLogOutput redirects every subsequent log line, mostly for tests.
func SetLogOutput(w io.Writer) {
	getLogger().SetOutput(w)
}

func LogDebug(msg string, args ...interface{}) {
	getLogger().Debugf(msg, args...)
}

func LogInfo(msg string, args ...interface{}) {
	getLogger().Infof(msg, args...)
}

func LogWarn(msg string, args ...interface{}) {
	getLogger().Warnf(msg, args...)
}

func LogError(msg string, args ...interface{}) {
	getLogger().Errorf(msg, args...)
}

func LogFatal(msg string, args ...interface{}) {
	getLogger().Fatalf(msg, args...)
}
