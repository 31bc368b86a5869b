/*
Package source feeds live telemetry into a databinding.Store.

Three feeders are provided: Stream consumes a gocloud pubsub subscription,
MQTT subscribes to a broker topic, and Backfill replays recent history from
InfluxDB so that a freshly started process does not begin with an empty
window. The pubsub and MQTT feeders share one JSON message format, a Reading
or an array of them:

	{"entityId": "room-1", "componentName": "Thermo", "propertyName": "temp",
	 "time": "2024-05-01T12:00:00Z", "value": 21.5}
*/
package source

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-digitaltwin/go-scenetwin/databinding"
)

// Recorder accepts samples of one labelled series. *databinding.Store
// implements it.
type Recorder interface {
	Record(labels map[string]string, property string, samples ...databinding.Sample)
}

// Reading is a single telemetry value of one entity property.
type Reading struct {
	EntityID      string    `json:"entityId"`
	ComponentName string    `json:"componentName"`
	PropertyName  string    `json:"propertyName"`
	Time          time.Time `json:"time,omitzero"`
	Value         any       `json:"value"`
}

// ErrIncompleteReading is returned for readings that lack an entity, a property
// or a value.
var ErrIncompleteReading = errors.New("source: incomplete reading")

// Labels returns the series labels of r.
func (r Reading) Labels() map[string]string {
	labels := map[string]string{databinding.EntityID: r.EntityID}
	if r.ComponentName != "" {
		labels[databinding.ComponentName] = r.ComponentName
	}
	return labels
}

// Record validates r and records it. A reading without a time is stamped with
// now.
func (r Reading) Record(rec Recorder, now time.Time) error {
	if r.EntityID == "" || r.PropertyName == "" || r.Value == nil {
		return fmt.Errorf("%w: %+v", ErrIncompleteReading, r)
	}
	t := r.Time
	if t.IsZero() {
		t = now
	}
	rec.Record(r.Labels(), r.PropertyName, databinding.Sample{Time: t, Value: normalize(r.Value)})
	return nil
}

// normalize maps JSON numbers onto float64 and keeps strings and booleans.
func normalize(v any) any {
	switch n := v.(type) {
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return v
	}
}

// DecodeReadings decodes a single reading or an array of readings.
func DecodeReadings(p []byte) ([]Reading, error) {
	p = bytes.TrimSpace(p)
	if len(p) > 0 && p[0] == '[' {
		var rs []Reading
		if err := json.Unmarshal(p, &rs); err != nil {
			return nil, fmt.Errorf("decode readings: %w", err)
		}
		return rs, nil
	}
	var r Reading
	if err := json.Unmarshal(p, &r); err != nil {
		return nil, fmt.Errorf("decode reading: %w", err)
	}
	return []Reading{r}, nil
}

// recordAll records every reading, joining the errors of the incomplete ones.
func recordAll(rec Recorder, readings []Reading, now time.Time) error {
	var errs []error
	for _, r := range readings {
		if err := r.Record(rec, now); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
