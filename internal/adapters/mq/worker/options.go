package worker

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/genie/pkg/logger"
)

// Option applies a configuration option to a Loop.
type Option func(*Loop)

// WithErrorBackoff sets the minimum sleep after a failed iteration.
func WithErrorBackoff(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.errorBackoff = d
		}
	}
}

// WithMaxSleep caps the delay a step may request.
func WithMaxSleep(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.maxSleep = d
		}
	}
}

// WithRate limits iterations to perSecond with the given burst.
// A non-positive rate leaves the loop unlimited.
func WithRate(perSecond float64, burst int) Option {
	return func(l *Loop) {
		if perSecond <= 0 {
			return
		}
		if burst < 1 {
			burst = 1
		}
		l.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithLogger sets a custom logger for the loop.
func WithLogger(log logger.Logger) Option {
	return func(l *Loop) {
		if log != nil {
			l.logger = log
		}
	}
}
