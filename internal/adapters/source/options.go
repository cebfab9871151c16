package source

import (
	"net/http"
	"time"

	"github.com/okian/covidash/pkg/logger"
)

// Option configures a Loader.
type Option func(*Loader)

// WithURL sets the dataset location: an http(s) URL or a local path.
func WithURL(url string) Option {
	return func(l *Loader) {
		if url != "" {
			l.url = url
		}
	}
}

// WithHTTPClient replaces the client used for remote fetches.
func WithHTTPClient(c *http.Client) Option {
	return func(l *Loader) {
		if c != nil {
			l.client = c
		}
	}
}

// WithTimeout bounds a single Load call.
func WithTimeout(d time.Duration) Option {
	return func(l *Loader) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log logger.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}
