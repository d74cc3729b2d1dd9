// Package transport carries commit, reveal and forward calls between the
// evaluator and solver endpoints over HTTP.
package transport

import (
	"time"

	"github.com/okian/genie/internal/domain/model"
)

// Solver endpoint paths.
const (
	PathCommit  = "/commit"
	PathReveal  = "/reveal"
	PathForward = "/forward"
)

// HeaderHotkey names the calling evaluator.
const HeaderHotkey = "X-Genie-Hotkey"

// CommitRequest asks a solver to produce an answer and return only its digest.
type CommitRequest struct {
	TaskID    string `json:"task_id" binding:"required"`
	Prompt    string `json:"prompt" binding:"required"`
	TimeoutMS int64  `json:"timeout_ms"`
}

// CommitResponse carries the hex sha256 of the committed answer.
type CommitResponse struct {
	TaskID string `json:"task_id"`
	Digest string `json:"digest"`
}

// RevealRequest asks a solver for the answer it committed to.
type RevealRequest struct {
	TaskID string `json:"task_id" binding:"required"`
}

// RevealResponse carries the raw committed answer.
type RevealResponse struct {
	TaskID  string `json:"task_id"`
	Payload string `json:"payload"`
}

// ForwardRequest is a single-phase organic query.
type ForwardRequest struct {
	Prompt string `json:"prompt" binding:"required"`
}

// ForwardResponse carries the answer to an organic query.
type ForwardResponse struct {
	Payload string `json:"payload"`
}

// NewCommitRequest builds the commit-phase request for t.
func NewCommitRequest(t model.Task) CommitRequest {
	return CommitRequest{
		TaskID:    t.ID,
		Prompt:    t.Prompt,
		TimeoutMS: t.Timeout.Milliseconds(),
	}
}

// Timeout returns the commit deadline the evaluator asked for.
func (r CommitRequest) Timeout() time.Duration {
	return time.Duration(r.TimeoutMS) * time.Millisecond
}

// envelope decodes any of the response bodies.
type envelope struct {
	Digest  string `json:"digest"`
	Payload string `json:"payload"`
}
