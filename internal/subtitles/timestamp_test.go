package subtitles

import "testing"

func TestTimestampRoundTrip(t *testing.T) {
	values := []int64{0, 1, 999, 1000, 59_999, 60_000, 3_599_999, 3_600_000, 86_399_999, 359_999_999, 360_000_000, 1_234_567_890}
	for _, ms := range values {
		formatted := FormatTimestamp(ms)
		if got := ParseTimestamp(formatted); got != ms {
			t.Errorf("ParseTimestamp(FormatTimestamp(%d)) = %d (formatted %q)", ms, got, formatted)
		}
	}
	for ms := int64(0); ms < 200_000; ms += 997 {
		if got := ParseTimestamp(FormatTimestamp(ms)); got != ms {
			t.Fatalf("round trip failed for %d: got %d", ms, got)
		}
	}
}

func TestFormatTimestamp(t *testing.T) {
	tests := []struct {
		ms   int64
		want string
	}{
		{0, "00:00:00,000"},
		{-500, "00:00:00,000"},
		{1_500, "00:00:01,500"},
		{11_500, "00:00:11,500"},
		{3_723_004, "01:02:03,004"},
		{360_000_000, "100:00:00,000"},
	}
	for _, tt := range tests {
		if got := FormatTimestamp(tt.ms); got != tt.want {
			t.Errorf("FormatTimestamp(%d) = %q, want %q", tt.ms, got, tt.want)
		}
	}
}

func TestParseTimestampMalformed(t *testing.T) {
	for _, input := range []string{"", "garbage", "00:00:01.500", "0:0:1,5", "aa:bb:cc,ddd"} {
		if got := ParseTimestamp(input); got != 0 {
			t.Errorf("ParseTimestamp(%q) = %d, want 0", input, got)
		}
	}
}

func TestParseRange(t *testing.T) {
	start, end, ok := ParseRange("00:00:10,000 --> 00:00:11,500")
	if !ok || start != 10_000 || end != 11_500 {
		t.Fatalf("ParseRange = (%d, %d, %v), want (10000, 11500, true)", start, end, ok)
	}
	if _, _, ok := ParseRange("00:00:10,000"); ok {
		t.Fatal("expected missing arrow to fail")
	}
	if _, _, ok := ParseRange("00:00:10,000 --> soon"); ok {
		t.Fatal("expected unreadable end to fail")
	}
	if got := FormatRange(10_000, 11_500); got != "00:00:10,000 --> 00:00:11,500" {
		t.Fatalf("FormatRange = %q", got)
	}
}
