package profiler

import (
	"testing"
	"time"
)

func TestTickWaitsForInterval(t *testing.T) {
	p := NewProfiler()
	p.SetInterval(time.Hour)
	for i := 0; i < 10; i++ {
		if p.Tick() {
			t.Fatal("reported before the interval elapsed")
		}
	}
}

func TestTickReports(t *testing.T) {
	p := NewProfiler()
	p.SetInterval(0)
	if !p.Tick() {
		t.Fatal("expected a report with a zero interval")
	}
	s := p.Last()
	if s.FPS <= 0 || s.SysMB <= 0 {
		t.Fatalf("stats = %+v", s)
	}
	if p.frameCount != 0 {
		t.Fatalf("frame count not reset: %d", p.frameCount)
	}
}
