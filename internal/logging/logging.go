// Package logging provides the structured logger shared by every
// component that needs to report a non-fatal anomaly: a panicking
// callback, a saturating counter, a selector that raised, or a
// subscriber that failed. It replaces ad-hoc fmt.Printf calls with a
// single logrus instance so field data (resource name, callback kind,
// recovered value) is queryable instead of string-interpolated.
package logging

import (
	"os"
	"sync"

	"github.com/sirupsen/logrus"
)

var (
	once sync.Once
	log  *logrus.Logger
)

// Logger returns the package-wide logrus instance, initialising it on
// first use with JSON output to stderr at info level.
func Logger() *logrus.Logger {
	once.Do(func() {
		log = logrus.New()
		log.SetOutput(os.Stderr)
		log.SetFormatter(&logrus.JSONFormatter{})
		log.SetLevel(logrus.InfoLevel)
	})
	return log
}

// CallbackPanic logs a recovered panic from a user-supplied callback
// (OnStateChange, selector, ping probe).
func CallbackPanic(resource, callback string, recovered interface{}) {
	Logger().WithFields(logrus.Fields{
		"resource": resource,
		"callback": callback,
		"panic":    recovered,
	}).Warn("callback panicked, applying safe default")
}

// CounterSaturation logs a counter that hit a saturation bound instead
// of wrapping or overflowing silently.
func CounterSaturation(resource, counter string) {
	Logger().WithFields(logrus.Fields{
		"resource": resource,
		"counter":  counter,
	}).Warn("counter saturated at bound")
}

// SubscriberError logs an instrumentation subscriber callback that
// panicked; subscriber failures never affect the call whose event
// triggered them.
func SubscriberError(resource, event string, err error) {
	Logger().WithFields(logrus.Fields{
		"resource": resource,
		"event":    event,
		"error":    err,
	}).Warn("instrumentation subscriber failed")
}
