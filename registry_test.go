package scenetwin

import (
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/go-digitaltwin/go-scenetwin/scene"
)

func TestRegistry(t *testing.T) {
	r := newRegistry()
	lamp := NewText(scene.Identity(), Anchor{})
	door := NewButton(scene.Identity(), Anchor{})
	r.bind("Lamp", lamp)
	r.bind("Door", door)

	if got, ok := r.Find("Lamp"); !ok || got != Object(lamp) {
		t.Errorf("Find(Lamp) = %v, %v; want the lamp wrapper", got, ok)
	}
	if _, ok := r.Find("Ghost"); ok {
		t.Error("Find(Ghost) reported a binding")
	}
	if got := r.Len(); got != 2 {
		t.Errorf("Len() = %d, want 2", got)
	}
	if diff := cmp.Diff([]string{"Door", "Lamp"}, r.Tags()); diff != "" {
		t.Errorf("Tags() mismatch (-want +got):\n%s", diff)
	}

	// The loop body may bind tags without deadlocking or seeing them.
	var seen []string
	for tag := range r.All() {
		seen = append(seen, tag)
		r.bind(tag+"-copy", lamp)
	}
	if diff := cmp.Diff([]string{"Door", "Lamp"}, seen); diff != "" {
		t.Errorf("All() mismatch (-want +got):\n%s", diff)
	}

	var n int
	for range r.All() {
		n++
		break
	}
	if n != 1 {
		t.Errorf("All() yielded %d tags after break, want 1", n)
	}
}

func TestRegistryConcurrentReads(t *testing.T) {
	r := newRegistry()
	var wg sync.WaitGroup
	for i := range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i == 0 {
				r.bind("Lamp", NewText(scene.Identity(), Anchor{}))
				return
			}
			r.Find("Lamp")
			_ = r.Tags()
		}()
	}
	wg.Wait()
	if r.Len() != 1 {
		t.Errorf("Len() = %d, want 1", r.Len())
	}
}
