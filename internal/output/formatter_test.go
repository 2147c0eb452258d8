package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/fiberlab/fiberlab/internal/analyzer"
	"github.com/fiberlab/fiberlab/internal/model"
)

func sampleSummary() *model.RunSummary {
	return &model.RunSummary{
		FibersStarted:  10,
		FibersFinished: 10,
		PeakMounted:    4,
		TotalMounts:    24,
		TotalUnmounts:  24,
		PinnedEvents:   2,
		PinnedTotal:    12 * time.Millisecond,
		WallTime:       80 * time.Millisecond,
		Carriers: []model.CarrierStats{
			{Carrier: 0, Mounts: 12, DistinctFibers: 6, PinnedTime: 12 * time.Millisecond},
			{Carrier: 1, Mounts: 12, DistinctFibers: 7},
		},
	}
}

func TestFormatRunSummary(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := NewFormatter(&buf).FormatRunSummary(sampleSummary()); err != nil {
		t.Fatalf("FormatRunSummary: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"RECORDING SUMMARY", "Fibers started", "10", "Peak mounted"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestFormatTimingsHighlightsExtremes(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	NewFormatter(&buf).FormatTimings("COMPARISON", []Timing{
		{Label: "fast", Duration: 10 * time.Millisecond},
		{Label: "slow", Duration: 40 * time.Millisecond},
	})
	out := buf.String()
	if !strings.Contains(out, "fast") || !strings.Contains(out, "slow") {
		t.Fatalf("timing labels missing from output:\n%s", out)
	}
	if !strings.Contains(out, "4.00x") {
		t.Errorf("slowest/fastest ratio missing from output:\n%s", out)
	}
}

func TestFormatInsights(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	err := NewFormatter(&buf).FormatInsights([]analyzer.NarrativeInsight{
		{Title: "Carrier Pinning Detected", Observation: "obs", Suggestion: "sug", Severity: "critical"},
	})
	if err != nil {
		t.Fatalf("FormatInsights: %v", err)
	}
	if !strings.Contains(buf.String(), "Carrier Pinning Detected") {
		t.Error("insight title missing from output")
	}
}

func TestJSONRunSummaryRoundTrips(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	if err := NewJSONFormatter(&buf).FormatRunSummary(sampleSummary()); err != nil {
		t.Fatalf("FormatRunSummary: %v", err)
	}

	var decoded RunSummaryJSON
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if decoded.FibersStarted != 10 || decoded.PeakMounted != 4 {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.WallTime != "80ms" {
		t.Errorf("wall_time = %q, want 80ms", decoded.WallTime)
	}
	if len(decoded.Carriers) != 2 {
		t.Errorf("got %d carriers, want 2", len(decoded.Carriers))
	}
}

func TestFormatDuration(t *testing.T) {
	t.Parallel()

	for _, tc := range []struct {
		in   time.Duration
		want string
	}{
		{900 * time.Nanosecond, "900ns"},
		{42 * time.Microsecond, "42.0µs"},
		{13500 * time.Microsecond, "13.5ms"},
		{2300 * time.Millisecond, "2.30s"},
	} {
		if got := FormatDuration(tc.in); got != tc.want {
			t.Errorf("FormatDuration(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
