package transport

import (
	"net/http"

	"github.com/okian/genie/pkg/logger"
)

// Option applies a configuration option to a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Per-call deadlines come from
// the context, so the client's own Timeout should normally be zero.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithMaxFanout bounds the number of concurrent solver calls.
func WithMaxFanout(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.fanout = n
		}
	}
}

// WithHotkey sets the identity sent in HeaderHotkey.
func WithHotkey(hotkey string) Option {
	return func(c *Client) {
		c.hotkey = hotkey
	}
}

// WithLogger sets a custom logger for the client.
func WithLogger(log logger.Logger) Option {
	return func(c *Client) {
		if log != nil {
			c.logger = log
		}
	}
}
