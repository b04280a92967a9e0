package logging

import "testing"

func TestProgressSamplerDefaults(t *testing.T) {
	if s := NewProgressSampler(0); s.step != 5 {
		t.Fatalf("unexpected default step: %+v", s)
	}
	var s *ProgressSampler
	if !s.ShouldLog(50, "rewrite") {
		t.Error("nil sampler should always log")
	}
	s.Reset()
}

func TestProgressSamplerSteps(t *testing.T) {
	s := NewProgressSampler(10)
	steps := []struct {
		percent float64
		label   string
		want    bool
	}{
		{0, "rewrite", true},
		{4, "rewrite", false},
		{12, "rewrite", true},
		{19, "rewrite", false},
		{35, "rewrite", true},
		{-1, "rewrite", false},
		{35, "translate", true},
		{36, "translate", false},
		{100, "translate", true},
		{100, "translate", false},
		{100, "", false},
	}
	for i, step := range steps {
		if got := s.ShouldLog(step.percent, step.label); got != step.want {
			t.Fatalf("step %d (%v%% %s): got %v want %v", i, step.percent, step.label, got, step.want)
		}
	}
	s.Reset()
	if !s.ShouldLog(0, "") {
		t.Fatal("expected log after reset")
	}
}
