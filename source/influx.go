package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
)

// ErrBackfillDisabled is returned by NewBackfill when no InfluxDB URL is set.
var ErrBackfillDisabled = errors.New("source: influxdb backfill disabled")

// InfluxConfig locates the telemetry history in InfluxDB. Points carry the
// entity and component as tags, the property as field name.
type InfluxConfig struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	Measurement string
}

// Backfill replays telemetry history from InfluxDB.
type Backfill struct {
	cfg    InfluxConfig
	client influxdb2.Client
	query  api.QueryAPI
}

// NewBackfill returns a Backfill for cfg.
func NewBackfill(cfg InfluxConfig) (*Backfill, error) {
	if cfg.URL == "" {
		return nil, ErrBackfillDisabled
	}
	client := influxdb2.NewClient(cfg.URL, cfg.Token)
	return &Backfill{cfg: cfg, client: client, query: client.QueryAPI(cfg.Org)}, nil
}

// Close releases the client.
func (b *Backfill) Close() { b.client.Close() }

// fluxQuery selects every point of the configured measurement within the last
// window.
func (b *Backfill) fluxQuery(window time.Duration) string {
	return fmt.Sprintf(
		`from(bucket: %q) |> range(start: -%ds) |> filter(fn: (r) => r._measurement == %q) |> sort(columns: ["_time"])`,
		b.cfg.Bucket, int64(window/time.Second), b.cfg.Measurement,
	)
}

// Run records the history of the last window into rec and returns the number
// of samples recorded.
func (b *Backfill) Run(ctx context.Context, window time.Duration, rec Recorder) (int, error) {
	result, err := b.query.Query(ctx, b.fluxQuery(window))
	if err != nil {
		return 0, fmt.Errorf("query history: %w", err)
	}
	defer result.Close()

	var n int
	for result.Next() {
		record := result.Record()
		entity, _ := record.ValueByKey("entityId").(string)
		component, _ := record.ValueByKey("componentName").(string)
		r := Reading{
			EntityID:      entity,
			ComponentName: component,
			PropertyName:  record.Field(),
			Time:          record.Time(),
			Value:         record.Value(),
		}
		if err := r.Record(rec, record.Time()); err != nil {
			continue
		}
		n++
	}
	if err := result.Err(); err != nil {
		return n, fmt.Errorf("read history: %w", err)
	}
	return n, nil
}
