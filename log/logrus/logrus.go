// Package logrus adapts a logrus entry to usestorage.Logger.
package logrus

import (
	"github.com/sirupsen/logrus"

	usestorage "github.com/Hampfh/use-storage"
)

var _ usestorage.Logger = LogrusLogger{}

type LogrusLogger struct{ E *logrus.Entry }

// New tags every record with component=usestorage. A nil logger uses
// logrus.StandardLogger.
func New(l *logrus.Logger) LogrusLogger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return LogrusLogger{E: l.WithField("component", "usestorage")}
}

func (l LogrusLogger) Debug(msg string, f usestorage.Fields) { l.with(f).Debug(msg) }
func (l LogrusLogger) Info(msg string, f usestorage.Fields)  { l.with(f).Info(msg) }
func (l LogrusLogger) Warn(msg string, f usestorage.Fields)  { l.with(f).Warn(msg) }
func (l LogrusLogger) Error(msg string, f usestorage.Fields) { l.with(f).Error(msg) }

func (l LogrusLogger) with(f usestorage.Fields) *logrus.Entry {
	e := l.E
	if e == nil {
		e = logrus.NewEntry(logrus.StandardLogger())
	}
	if len(f) == 0 {
		return e
	}
	return e.WithFields(logrus.Fields(f))
}
