package verify

import (
	"context"
	"net/http"
	"time"
)

// HTTPChecker resolves references with a HEAD request.
type HTTPChecker struct {
	Client  *http.Client
	Timeout time.Duration
}

// Resolves reports whether ref answers HEAD with a 2xx or 3xx status.
func (c *HTTPChecker) Resolves(ctx context.Context, ref string) bool {
	client := c.Client
	if client == nil {
		client = http.DefaultClient
	}
	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, ref, http.NoBody)
	if err != nil {
		return false
	}
	resp, err := client.Do(req)
	if err != nil {
		return false
	}
	_ = resp.Body.Close()
	return resp.StatusCode >= 200 && resp.StatusCode < 400
}
