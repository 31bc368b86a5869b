package databinding

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestTemplateExpand(t *testing.T) {
	tpl := Template{"sel_entity": "room-1", "component": "Thermo"}
	tests := []struct {
		in, want string
	}{
		{"${sel_entity}", "room-1"},
		{"prefix-${component}-${sel_entity}", "prefix-Thermo-room-1"},
		{"${unknown}", "${unknown}"},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		if got := tpl.Expand(tt.in); got != tt.want {
			t.Errorf("Expand(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestValuesOf(t *testing.T) {
	t0 := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	labels := func(entity, property string) map[string]string {
		return map[string]string{EntityID: entity, ComponentName: "Thermo", PropertyName: property}
	}
	in := DataInput{
		End: t0.Add(time.Minute),
		Frames: []DataFrame{
			{ID: "room-1", Fields: []Field{
				{Name: "temp", Labels: labels("room-1", "temp"), Samples: []Sample{
					{Time: t0, Value: 21.0},
					{Time: t0.Add(30 * time.Second), Value: 30.0},
					{Time: t0.Add(2 * time.Minute), Value: 99.0},
				}},
				{Name: "humidity", Labels: labels("room-1", "humidity"), Samples: []Sample{
					{Time: t0, Value: 40.0},
				}},
			}},
			{ID: "room-2", Fields: []Field{
				{Name: "temp", Labels: labels("room-2", "temp"), Samples: []Sample{
					{Time: t0, Value: 18.0},
				}},
			}},
		},
	}

	tests := []struct {
		name    string
		binding ValueDataBinding
		tpl     Template
		want    map[string]any
	}{
		{
			name: "single property",
			binding: ValueDataBinding{Context: Context{
				EntityID: "room-1", ComponentName: "Thermo", PropertyName: "temp",
			}},
			want: map[string]any{"temp": 30.0},
		},
		{
			name: "whole component",
			binding: ValueDataBinding{Context: Context{
				EntityID: "room-1", ComponentName: "Thermo",
			}},
			want: map[string]any{"temp": 30.0, "humidity": 40.0},
		},
		{
			name: "templated entity",
			binding: ValueDataBinding{Context: Context{
				EntityID: "${sel_entity}", ComponentName: "Thermo", PropertyName: "temp",
			}},
			tpl:  Template{"sel_entity": "room-2"},
			want: map[string]any{"temp": 18.0},
		},
		{
			name: "no match",
			binding: ValueDataBinding{Context: Context{
				EntityID: "room-3", ComponentName: "Thermo",
			}},
			want: nil,
		},
		{
			name:    "empty binding",
			binding: ValueDataBinding{},
			want:    nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ValuesOf(in, tt.binding, tt.tpl)
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("ValuesOf() mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestStore(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	s := NewStore(time.Minute)
	s.now = func() time.Time { return now }

	room := map[string]string{EntityID: "room-1", ComponentName: "Thermo"}
	// Out of order on purpose.
	s.Record(room, "temp",
		Sample{Time: now.Add(-10 * time.Second), Value: 25.0},
		Sample{Time: now.Add(-30 * time.Second), Value: 24.0},
		Sample{Time: now.Add(-5 * time.Minute), Value: 10.0},
	)
	// Stale but the only sample of its series, so it is kept.
	s.Record(room, "humidity", Sample{Time: now.Add(-time.Hour), Value: 40.0})

	in := s.Snapshot()
	want := DataInput{
		Start: now.Add(-time.Minute),
		End:   now,
		Frames: []DataFrame{{
			ID: "componentName=Thermo,entityId=room-1",
			Fields: []Field{
				{
					Name:    "humidity",
					Labels:  map[string]string{EntityID: "room-1", ComponentName: "Thermo", PropertyName: "humidity"},
					Samples: []Sample{{Time: now.Add(-time.Hour), Value: 40.0}},
				},
				{
					Name:   "temp",
					Labels: map[string]string{EntityID: "room-1", ComponentName: "Thermo", PropertyName: "temp"},
					Samples: []Sample{
						{Time: now.Add(-30 * time.Second), Value: 24.0},
						{Time: now.Add(-10 * time.Second), Value: 25.0},
					},
				},
			},
		}},
	}
	if diff := cmp.Diff(want, in); diff != "" {
		t.Errorf("Snapshot() mismatch (-want +got):\n%s", diff)
	}

	values := ValuesOf(in, ValueDataBinding{Context: Context{EntityID: "room-1", ComponentName: "Thermo"}}, nil)
	if diff := cmp.Diff(map[string]any{"temp": 25.0, "humidity": 40.0}, values); diff != "" {
		t.Errorf("ValuesOf(snapshot) mismatch (-want +got):\n%s", diff)
	}

	history := s.History(room, "temp", now.Add(-20*time.Second), now)
	if diff := cmp.Diff([]Sample{{Time: now.Add(-10 * time.Second), Value: 25.0}}, history); diff != "" {
		t.Errorf("History() mismatch (-want +got):\n%s", diff)
	}
}
