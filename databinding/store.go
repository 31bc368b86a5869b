package databinding

import (
	"sort"
	"sync"
	"time"
)

// DefaultWindow is the history a Store keeps when none is configured.
const DefaultWindow = 10 * time.Minute

// Store accumulates telemetry samples from any number of feeders and hands the
// reconciler consistent snapshots. It keeps a rolling window of history per
// series, but never drops the newest sample of a series, so that slow sensors
// keep their last known value.
//
// A Store is safe for concurrent use.
type Store struct {
	mu     sync.RWMutex
	window time.Duration
	series map[seriesKey]*Field
	now    func() time.Time
}

type seriesKey struct {
	frame    string
	property string
}

// NewStore returns an empty Store keeping window worth of history. A
// non-positive window selects DefaultWindow.
func NewStore(window time.Duration) *Store {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Store{
		window: window,
		series: make(map[seriesKey]*Field),
		now:    time.Now,
	}
}

// Window returns the history length the store keeps.
func (s *Store) Window() time.Duration { return s.window }

// Record adds samples to the series of property that is labelled by labels. The
// labels must not include PropertyName; it is derived from property.
func (s *Store) Record(labels map[string]string, property string, samples ...Sample) {
	if len(samples) == 0 {
		return
	}
	key := seriesKey{frame: frameID(labels), property: property}

	s.mu.Lock()
	defer s.mu.Unlock()
	field, ok := s.series[key]
	if !ok {
		l := make(map[string]string, len(labels)+1)
		for k, v := range labels {
			l[k] = v
		}
		l[PropertyName] = property
		field = &Field{Name: property, Labels: l}
		s.series[key] = field
	}
	for _, sample := range samples {
		i := sort.Search(len(field.Samples), func(i int) bool {
			return field.Samples[i].Time.After(sample.Time)
		})
		field.Samples = append(field.Samples, Sample{})
		copy(field.Samples[i+1:], field.Samples[i:])
		field.Samples[i] = sample
	}
	s.prune(field, s.now().Add(-s.window))
}

// prune drops samples older than cutoff, keeping at least the newest one.
func (s *Store) prune(f *Field, cutoff time.Time) {
	n := len(f.Samples)
	drop := sort.Search(n, func(i int) bool { return !f.Samples[i].Time.Before(cutoff) })
	if drop >= n {
		drop = n - 1
	}
	if drop > 0 {
		f.Samples = append(f.Samples[:0], f.Samples[drop:]...)
	}
}

// Snapshot returns a copy of the current window as a DataInput. Frames are
// ordered by identifier and fields by property name.
func (s *Store) Snapshot() DataInput {
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()

	frames := make(map[string]*DataFrame)
	for key, field := range s.series {
		s.prune(field, now.Add(-s.window))
		frame, ok := frames[key.frame]
		if !ok {
			frame = &DataFrame{ID: key.frame}
			frames[key.frame] = frame
		}
		labels := make(map[string]string, len(field.Labels))
		for k, v := range field.Labels {
			labels[k] = v
		}
		frame.Fields = append(frame.Fields, Field{
			Name:    field.Name,
			Labels:  labels,
			Samples: append([]Sample(nil), field.Samples...),
		})
	}

	in := DataInput{Start: now.Add(-s.window), End: now}
	for _, frame := range frames {
		sort.Slice(frame.Fields, func(i, j int) bool { return frame.Fields[i].Name < frame.Fields[j].Name })
		in.Frames = append(in.Frames, *frame)
	}
	sort.Slice(in.Frames, func(i, j int) bool { return in.Frames[i].ID < in.Frames[j].ID })
	return in
}

// History returns the samples of one series taken within [start, end].
func (s *Store) History(labels map[string]string, property string, start, end time.Time) []Sample {
	key := seriesKey{frame: frameID(labels), property: property}
	s.mu.RLock()
	defer s.mu.RUnlock()
	field, ok := s.series[key]
	if !ok {
		return nil
	}
	var out []Sample
	for _, sample := range field.Samples {
		if sample.Time.Before(start) || sample.Time.After(end) {
			continue
		}
		out = append(out, sample)
	}
	return out
}
