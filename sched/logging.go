package sched

import "github.com/sirupsen/logrus"

// defaultLogger returns the logger a Scheduler uses when the caller does
// not supply one via WithLogger: logrus' standard logger shape at Warn
// level, so an embedding application gets scheduler diagnostics (dropped
// ready-fiber wake-ups, affinity pin failures) without configuring
// anything, but each Scheduler owns its own *logrus.Logger rather than
// sharing one package-level instance — important since more than one
// Scheduler can be constructed in the same process (tests do this).
func defaultLogger() *logrus.Logger {
	l := logrus.New()
	l.SetLevel(logrus.WarnLevel)
	return l
}
