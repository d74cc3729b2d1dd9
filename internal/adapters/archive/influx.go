package archive

import (
	"context"
	"fmt"
	"strconv"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

const measurement = "genie_round_scores"

// InfluxConfig locates the InfluxDB bucket.
type InfluxConfig struct {
	URL    string
	Token  string
	Org    string
	Bucket string
}

// InfluxArchiver writes one point per solver and round.
type InfluxArchiver struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
}

// NewInfluxArchiver creates a blocking writer for cfg.
func NewInfluxArchiver(cfg InfluxConfig) (*InfluxArchiver, error) {
	if cfg.URL == "" || cfg.Org == "" || cfg.Bucket == "" {
		return nil, ErrIncompleteInfluxConfig
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &InfluxArchiver{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
	}, nil
}

func (a *InfluxArchiver) Archive(ctx context.Context, r Record) error {
	points := make([]*write.Point, 0, len(r.SolverIDs))
	for i, id := range r.SolverIDs {
		p := influxdb2.NewPointWithMeasurement(measurement).
			AddTag("task_id", r.TaskID).
			AddTag("solver_id", id).
			AddTag("kind", string(r.Kind)).
			AddTag("source", r.Source).
			AddTag("session", strconv.FormatUint(r.Session, 10)).
			SetTime(r.ScoredAt)
		if i < len(r.Aggregated) {
			p.AddField("aggregated", r.Aggregated[i])
		}
		for metric, values := range r.PerMetric {
			if i < len(values) {
				p.AddField(metric, values[i])
			}
		}
		points = append(points, p)
	}
	if len(points) == 0 {
		return nil
	}
	if err := a.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("write points: %w", err)
	}
	return nil
}

// Close releases the client.
func (a *InfluxArchiver) Close() error {
	a.client.Close()
	return nil
}
