package app

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestSamplerSuppressesConsecutiveDuplicates(t *testing.T) {
	probe := &scriptedProbe{steps: []probeStep{
		reading("code", "main.go"),
		reading("code", "main.go"),
		{err: errors.New("xdotool: no window")},
		reading("code", "main.go"),
		reading("code", "sampler.go"),
		reading("firefox", "sampler.go"),
		{reading: reading("", "").reading},
		reading("firefox", "sampler.go"),
		reading("code", "main.go"),
	}}
	clock := newFakeClock(time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC))
	sampler := NewSampler(probe, sequentialIDs("act"), clock.Now, nil)

	var emitted []string
	for range probe.steps {
		clock.Advance(time.Minute)
		activity, ok := sampler.Sample(context.Background())
		if !ok {
			continue
		}
		emitted = append(emitted, activity.ProcessName+"|"+activity.WindowTitle)
	}

	want := []string{"code|main.go", "code|sampler.go", "firefox|sampler.go", "code|main.go"}
	if len(emitted) != len(want) {
		t.Fatalf("emitted %v, want %v", emitted, want)
	}
	for i := range want {
		if emitted[i] != want[i] {
			t.Fatalf("emitted[%d] = %q, want %q", i, emitted[i], want[i])
		}
	}
	for i := 1; i < len(emitted); i++ {
		if emitted[i] == emitted[i-1] {
			t.Fatalf("consecutive duplicate emitted at %d: %v", i, emitted)
		}
	}
}

func TestSamplerTrimsBeforeComparing(t *testing.T) {
	probe := &scriptedProbe{steps: []probeStep{
		reading("code", "main.go"),
		reading(" code ", "main.go  "),
	}}
	sampler := NewSampler(probe, sequentialIDs("act"), nil, nil)
	if _, ok := sampler.Sample(context.Background()); !ok {
		t.Fatal("expected first reading to be emitted")
	}
	if _, ok := sampler.Sample(context.Background()); ok {
		t.Fatal("expected padded duplicate to be suppressed")
	}
}

func TestSamplerLastTracksReturnedActivity(t *testing.T) {
	probe := &scriptedProbe{steps: []probeStep{
		reading("code", "main.go"),
		{err: ErrProbeMiss},
	}}
	sampler := NewSampler(probe, sequentialIDs("act"), nil, nil)
	if _, ok := sampler.Last(); ok {
		t.Fatal("expected no last activity before sampling")
	}

	first, ok := sampler.Sample(context.Background())
	if !ok {
		t.Fatal("expected first sample to be emitted")
	}
	if _, ok := sampler.Sample(context.Background()); ok {
		t.Fatal("expected probe miss to be absent")
	}
	last, ok := sampler.Last()
	if !ok || last.ID != first.ID {
		t.Fatalf("Last() = %#v, %v; want %q", last, ok, first.ID)
	}
}
