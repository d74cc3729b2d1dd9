package chain

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/okian/genie/internal/domain/model"
	"github.com/okian/genie/internal/domain/types"
	"github.com/okian/genie/pkg/logger"
)

// LogPublisher writes weight vectors to the log. Used when no publish URL is configured.
type LogPublisher struct {
	log logger.Logger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(log logger.Logger) *LogPublisher {
	if log == nil {
		log = logger.Get().Named("publisher")
	}
	return &LogPublisher{log: log}
}

func (p *LogPublisher) Publish(ctx context.Context, v types.WeightVector) error {
	fields := []logger.Field{
		logger.Uint64("version", v.Version),
		logger.Uint64("session", v.Session),
		logger.Int("entries", len(v.Entries)),
	}
	for _, e := range v.Entries {
		fields = append(fields, logger.Float64(e.SolverID, e.Weight))
	}
	p.log.Info(ctx, "weights published", fields...)
	return nil
}

// HTTPPublisher posts weight vectors as JSON.
type HTTPPublisher struct {
	url    string
	client *http.Client
}

// NewHTTPPublisher creates a publisher posting to url.
func NewHTTPPublisher(url string, timeout time.Duration) *HTTPPublisher {
	return &HTTPPublisher{url: url, client: &http.Client{Timeout: timeout}}
}

func (p *HTTPPublisher) Publish(ctx context.Context, v types.WeightVector) error {
	body, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode: %v", model.ErrPublicationFailure, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrPublicationFailure, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", model.ErrPublicationFailure, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("%w: status %d", model.ErrPublicationFailure, resp.StatusCode)
	}
	return nil
}
