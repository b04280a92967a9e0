package logging

import "strings"

// ProgressSampler thins out progress logging: it lets a value through when
// the label changes, when progress reaches the next step, and once at 100%.
type ProgressSampler struct {
	step  float64
	label string
	next  float64
	done  bool
}

// NewProgressSampler emits every step percent. A non-positive step means 5.
func NewProgressSampler(step float64) *ProgressSampler {
	if step <= 0 {
		step = 5
	}
	return &ProgressSampler{step: step}
}

// ShouldLog reports whether progress at percent for label is worth logging.
// A negative percent means unknown and only a label change lets it through.
// A nil sampler logs everything.
func (s *ProgressSampler) ShouldLog(percent float64, label string) bool {
	if s == nil {
		return true
	}
	emit := false
	if label = strings.TrimSpace(label); label != "" && label != s.label {
		s.label = label
		s.next, s.done = 0, false
		emit = true
	}
	switch {
	case percent < 0 || s.done:
	case percent >= 100:
		s.done = true
		emit = true
	case percent >= s.next:
		s.next = (float64(int(percent/s.step)) + 1) * s.step
		emit = true
	}
	return emit
}

// Reset forgets the label and position, for reuse across runs.
func (s *ProgressSampler) Reset() {
	if s == nil {
		return
	}
	*s = ProgressSampler{step: s.step}
}
