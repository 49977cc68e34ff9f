// Package monitoring holds the diagnostic logger shared by the pipeline,
// the transport and the storage layer.
package monitoring

import "log"

// LogFunc is a printf-style logging function.
type LogFunc func(format string, v ...interface{})

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf LogFunc = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f LogFunc) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// Component returns a logger that prefixes every line with "[name] ".
// The current Logf is looked up on each call, so SetLogger applies to
// component loggers created earlier.
func Component(name string) LogFunc {
	prefix := "[" + name + "] "
	return func(format string, v ...interface{}) {
		Logf(prefix+format, v...)
	}
}
