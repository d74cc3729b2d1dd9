package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/okian/genie/internal/domain/verify"
	"github.com/okian/genie/pkg/logger"
)

const (
	defaultFanout   = 64
	maxBodyBytes    = 4 << 20
	contentTypeJSON = "application/json"
)

// Client fans requests out to solver endpoints.
type Client struct {
	http   *http.Client
	fanout int
	hotkey string
	logger logger.Logger
}

// NewClient creates a Client with configuration options.
func NewClient(opts ...Option) *Client {
	c := &Client{
		http:   &http.Client{},
		fanout: defaultFanout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = logger.Get().Named("transport")
	}
	return c
}

// Commit sends req to every endpoint and collects digests.
func (c *Client) Commit(ctx context.Context, endpoints []string, req CommitRequest, timeout time.Duration) []verify.Response {
	return c.Send(ctx, endpoints, PathCommit, req, timeout)
}

// Reveal sends req to every endpoint and collects payloads.
func (c *Client) Reveal(ctx context.Context, endpoints []string, req RevealRequest, timeout time.Duration) []verify.Response {
	return c.Send(ctx, endpoints, PathReveal, req, timeout)
}

// Forward sends an organic query to every endpoint.
func (c *Client) Forward(ctx context.Context, endpoints []string, req ForwardRequest, timeout time.Duration) []verify.Response {
	return c.Send(ctx, endpoints, PathForward, req, timeout)
}

// Send posts body to path on every endpoint, each call bounded by timeout.
// The result is index-aligned with endpoints. Failures never abort the other
// calls; they show up as a non-200 StatusCode.
func (c *Client) Send(ctx context.Context, endpoints []string, path string, body any, timeout time.Duration) []verify.Response {
	out := make([]verify.Response, len(endpoints))
	if len(endpoints) == 0 {
		return out
	}

	raw, err := json.Marshal(body)
	if err != nil {
		c.logger.Error(ctx, "encode request", logger.String("path", path), logger.Error(err))
		for i := range out {
			out[i].StatusCode = http.StatusBadRequest
		}
		return out
	}

	var g errgroup.Group
	g.SetLimit(c.fanout)
	for i, endpoint := range endpoints {
		g.Go(func() error {
			out[i] = c.call(ctx, endpoint, path, raw, timeout)
			return nil
		})
	}
	_ = g.Wait()
	return out
}

func (c *Client) call(ctx context.Context, endpoint, path string, raw []byte, timeout time.Duration) verify.Response {
	start := time.Now()
	if strings.TrimSpace(endpoint) == "" {
		return verify.Response{StatusCode: http.StatusNotFound}
	}

	callCtx := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	url := strings.TrimRight(endpoint, "/") + path
	req, err := http.NewRequestWithContext(callCtx, http.MethodPost, url, bytes.NewReader(raw))
	if err != nil {
		return verify.Response{StatusCode: http.StatusBadRequest, ProcessTime: time.Since(start)}
	}
	req.Header.Set("Content-Type", contentTypeJSON)
	if c.hotkey != "" {
		req.Header.Set(HeaderHotkey, c.hotkey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		status := http.StatusServiceUnavailable
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(callCtx.Err(), context.DeadlineExceeded) {
			status = http.StatusRequestTimeout
		}
		c.logger.Debug(ctx, "solver call failed",
			logger.String("url", url),
			logger.Int("status", status),
			logger.Error(err),
		)
		return verify.Response{StatusCode: status, ProcessTime: time.Since(start)}
	}
	defer func() { _ = resp.Body.Close() }()

	r := verify.Response{StatusCode: resp.StatusCode}
	if resp.StatusCode == http.StatusOK {
		var env envelope
		if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&env); err != nil {
			r.StatusCode = http.StatusBadGateway
			if errors.Is(callCtx.Err(), context.DeadlineExceeded) {
				r.StatusCode = http.StatusRequestTimeout
			}
		} else {
			r.Digest = env.Digest
			r.Payload = env.Payload
		}
	}
	r.ProcessTime = time.Since(start)
	return r
}
