package synth

import (
	"context"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/okian/genie/internal/domain/model"
)

// SourceSynthetic marks tasks created by the evaluator itself.
const SourceSynthetic = "synthetic"

// ImageToMarkup asks solvers to rebuild a page from its screenshot.
type ImageToMarkup struct {
	dataset Dataset
	timeout time.Duration
	now     func() time.Time
}

// NewImageToMarkup creates a generator over dataset with the given commit timeout.
func NewImageToMarkup(dataset Dataset, timeout time.Duration) *ImageToMarkup {
	return &ImageToMarkup{dataset: dataset, timeout: timeout, now: time.Now}
}

// Name returns the generator name.
func (g *ImageToMarkup) Name() string { return "image_to_markup" }

// Generate draws a sample and wraps it in a task.
func (g *ImageToMarkup) Generate(ctx context.Context) (model.Task, error) {
	sample, err := g.dataset.Next(ctx)
	if err != nil {
		return model.Task{}, fmt.Errorf("next sample: %w", err)
	}
	return model.Task{
		ID:          uuid.NewString(),
		Source:      SourceSynthetic,
		GroundTruth: sample.HTML,
		Prompt:      base64.StdEncoding.EncodeToString(sample.Screenshot),
		Timeout:     g.timeout,
		CreatedAt:   g.now(),
	}, nil
}
