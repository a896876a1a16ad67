package logger

import (
	"errors"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"
)

// Level is the severity of a log line.
type Level uint8

const (
	levelUnknown Level = iota

	// ErrorLevel is for failures of the behavior under test or of a fixture
	// that the caller asked to be strict about.
	ErrorLevel

	// WarnLevel is for the non-critical failures that are swallowed, like a
	// cleanup deletion that did not succeed.
	WarnLevel

	// InfoLevel logs what fixtures are created and deleted.
	InfoLevel

	// DebugLevel logs every HTTP exchange with the CMIS server.
	DebugLevel
)

// ErrInvalidLevel is returned when parsing an unknown level name.
var ErrInvalidLevel = errors.New("not a valid logging Level")

// ParseLevel takes a string level and returns the log level constant.
func ParseLevel(lvl string) (Level, error) {
	switch strings.ToLower(lvl) {
	case "error":
		return ErrorLevel, nil
	case "warn", "warning":
		return WarnLevel, nil
	case "info":
		return InfoLevel, nil
	case "debug":
		return DebugLevel, nil
	}
	return levelUnknown, fmt.Errorf("%q: %w", lvl, ErrInvalidLevel)
}

func (level Level) String() string {
	switch level {
	case DebugLevel:
		return "debug"
	case InfoLevel:
		return "info"
	case WarnLevel:
		return "warning"
	case ErrorLevel:
		return "error"
	}
	return "unknown"
}

func (level Level) logrus() logrus.Level {
	switch level {
	case DebugLevel:
		return logrus.DebugLevel
	case InfoLevel:
		return logrus.InfoLevel
	case WarnLevel:
		return logrus.WarnLevel
	default:
		return logrus.ErrorLevel
	}
}
