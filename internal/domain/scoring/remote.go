package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/genie/internal/domain/model"
)

const defaultRemoteTimeout = 30 * time.Second

// RemoteRequest is the body posted to a remote metric endpoint.
type RemoteRequest struct {
	Metric      string   `json:"metric"`
	TaskID      string   `json:"task_id"`
	GroundTruth string   `json:"ground_truth,omitempty"`
	Prompt      string   `json:"prompt,omitempty"`
	SolverIDs   []string `json:"solver_ids"`
	Payloads    []string `json:"payloads"`
}

// RemoteResponse carries one score per payload.
type RemoteResponse struct {
	Scores []float64 `json:"scores"`
}

// Remote is a Metric served by an external HTTP scoring service.
type Remote struct {
	name     string
	endpoint string
	client   *http.Client
}

// NewRemote creates a remote metric posting to endpoint.
func NewRemote(name, endpoint string, client *http.Client) *Remote {
	if client == nil {
		client = &http.Client{Timeout: defaultRemoteTimeout}
	}
	return &Remote{name: name, endpoint: endpoint, client: client}
}

// Name returns the metric name.
func (r *Remote) Name() string { return r.name }

// Score posts the round to the remote service.
func (r *Remote) Score(ctx context.Context, task model.Task, solutions []model.Solution) ([]float64, error) {
	req := RemoteRequest{
		Metric:      r.name,
		TaskID:      task.ID,
		GroundTruth: task.GroundTruth,
		Prompt:      task.Prompt,
		SolverIDs:   make([]string, len(solutions)),
		Payloads:    make([]string, len(solutions)),
	}
	for i, s := range solutions {
		req.SolverIDs[i] = s.SolverID
		req.Payloads[i] = s.Payload
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode %s request: %w", r.name, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrUpstreamCallFailure, r.name, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", model.ErrUpstreamCallFailure, r.name, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("%w: %s: status %d", model.ErrUpstreamCallFailure, r.name, resp.StatusCode)
	}

	var out RemoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("%w: %s: decode: %w", model.ErrUpstreamCallFailure, r.name, err)
	}
	return out.Scores, nil
}
