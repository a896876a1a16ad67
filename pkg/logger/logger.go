package logger

import (
	"fmt"
	"io"
	"time"

	build "github.com/nemakiware/cmis-fixture/pkg/config"
	"github.com/sirupsen/logrus"
)

// Fields type, used to pass to [Logger.WithFields].
type Fields map[string]interface{}

// Logger allows to emits logs. The fixture code only depends on this
// interface, so that tests can plug their own.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})

	Debug(msg string)
	Info(msg string)
	Warn(msg string)
	Error(msg string)

	WithField(fn string, fv interface{}) Logger
	WithFields(fields Fields) Logger

	Log(level Level, msg string)
}

// Options contains the configuration values of the logger system
type Options struct {
	Output io.Writer
	Level  string
	JSON   bool
}

// Init initializes the logger module with the specified options. It can be
// called several times, the last call wins.
func Init(opt Options) error {
	level := opt.Level
	if level == "" {
		level = "info"
	}
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}

	l := logrus.StandardLogger()
	l.SetLevel(lvl.logrus())
	if opt.Output != nil {
		l.SetOutput(opt.Output)
	}
	if opt.JSON {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		formatter := &logrus.TextFormatter{}
		if build.IsDevRelease() && lvl == DebugLevel {
			formatter.TimestampFormat = time.RFC3339Nano
			formatter.FullTimestamp = true
		}
		l.SetFormatter(formatter)
	}
	return nil
}

// Entry is the struct on which we can call the Debug, Info, Warn, Error
// methods with the structured data accumulated.
type Entry struct {
	entry *logrus.Entry
}

// WithNamespace returns a logger with the specified nspace field.
func WithNamespace(nspace string) *Entry {
	return &Entry{logrus.WithField("nspace", nspace)}
}

// WithNamespace adds a namespace (nspace field).
func (e *Entry) WithNamespace(nspace string) *Entry {
	return &Entry{e.entry.WithField("nspace", nspace)}
}

// WithField adds a single field to the Entry.
func (e *Entry) WithField(key string, value interface{}) Logger {
	return &Entry{e.entry.WithField(key, value)}
}

// WithFields adds a map of fields to the Entry.
func (e *Entry) WithFields(fields Fields) Logger {
	return &Entry{e.entry.WithFields(logrus.Fields(fields))}
}

// maxLineWidth limits the number of characters of a line of log, response
// bodies of a failing server can be huge HTML pages.
const maxLineWidth = 2000

func (e *Entry) Log(level Level, msg string) {
	if len(msg) > maxLineWidth {
		msg = msg[:maxLineWidth-12] + " [TRUNCATED]"
	}
	e.entry.Log(level.logrus(), msg)
}

func (e *Entry) Debug(msg string) { e.Log(DebugLevel, msg) }
func (e *Entry) Info(msg string)  { e.Log(InfoLevel, msg) }
func (e *Entry) Warn(msg string)  { e.Log(WarnLevel, msg) }
func (e *Entry) Error(msg string) { e.Log(ErrorLevel, msg) }

func (e *Entry) Debugf(format string, args ...interface{}) {
	e.Debug(fmt.Sprintf(format, args...))
}

func (e *Entry) Infof(format string, args ...interface{}) {
	e.Info(fmt.Sprintf(format, args...))
}

func (e *Entry) Warnf(format string, args ...interface{}) {
	e.Warn(fmt.Sprintf(format, args...))
}

func (e *Entry) Errorf(format string, args ...interface{}) {
	e.Error(fmt.Sprintf(format, args...))
}

// IsDebug returns whether or not the debug mode is activated.
func (e *Entry) IsDebug() bool {
	return e.entry.Logger.IsLevelEnabled(logrus.DebugLevel)
}
