package analyzer

import (
	"strings"
	"testing"
	"time"

	"github.com/fiberlab/fiberlab/internal/model"
)

func TestAnalyzeFlagsHeavyPinning(t *testing.T) {
	t.Parallel()

	s := &model.RunSummary{
		FibersStarted:  4,
		FibersFinished: 4,
		TotalMounts:    4,
		WallTime:       100 * time.Millisecond,
		PinnedEvents:   4,
		PinnedTotal:    60 * time.Millisecond,
		Carriers:       []model.CarrierStats{{Carrier: 0, Mounts: 2}, {Carrier: 1, Mounts: 2}},
	}

	Analyze(s)
	if !s.HasSchedulingIssues {
		t.Fatal("60ms pinned over 2x100ms not flagged")
	}
	if len(s.Issues) == 0 || !strings.Contains(s.Issues[0], "pinned") {
		t.Errorf("issues = %v, want a pinning issue", s.Issues)
	}
}

func TestAnalyzeFlagsLopsidedMountDistribution(t *testing.T) {
	t.Parallel()

	s := &model.RunSummary{
		FibersStarted:  10,
		FibersFinished: 10,
		TotalMounts:    10,
		WallTime:       100 * time.Millisecond,
		Carriers:       []model.CarrierStats{{Carrier: 0, Mounts: 9}, {Carrier: 1, Mounts: 1}},
	}

	Analyze(s)
	if !s.HasSchedulingIssues {
		t.Fatal("9 of 10 mounts on one carrier not flagged")
	}
}

func TestAnalyzeFlagsUnfinishedFibers(t *testing.T) {
	t.Parallel()

	s := &model.RunSummary{
		FibersStarted:  5,
		FibersFinished: 3,
		WallTime:       time.Millisecond,
	}

	Analyze(s)
	if !s.HasSchedulingIssues {
		t.Fatal("unfinished fibers not flagged")
	}
}

func TestAnalyzeHealthyRun(t *testing.T) {
	t.Parallel()

	s := &model.RunSummary{
		FibersStarted:  8,
		FibersFinished: 8,
		TotalMounts:    16,
		WallTime:       100 * time.Millisecond,
		Carriers:       []model.CarrierStats{{Carrier: 0, Mounts: 8}, {Carrier: 1, Mounts: 8}},
		PeakMounted:    2,
	}

	Analyze(s)
	if s.HasSchedulingIssues {
		t.Fatalf("healthy run flagged: %v", s.Issues)
	}

	insights := GenerateInsights(s)
	found := false
	for _, in := range insights {
		if in.Title == "Healthy Carrier Pool" {
			found = true
		}
		if in.Severity == "critical" {
			t.Errorf("healthy run produced a critical insight: %+v", in)
		}
	}
	if !found {
		t.Error("no healthy-pool insight for a clean run")
	}
}

func TestInsightsSurfacePinning(t *testing.T) {
	t.Parallel()

	s := &model.RunSummary{
		FibersStarted:  4,
		FibersFinished: 4,
		PinnedEvents:   4,
		PinnedTotal:    60 * time.Millisecond,
		WallTime:       100 * time.Millisecond,
		Carriers:       []model.CarrierStats{{Carrier: 0}},
		PeakMounted:    1,
	}
	Analyze(s)

	insights := GenerateInsights(s)
	if len(insights) == 0 {
		t.Fatal("no insights for a heavily pinned run")
	}
	if insights[0].Title != "Carrier Pinning Detected" || insights[0].Severity != "critical" {
		t.Errorf("insights[0] = %+v, want critical pinning insight", insights[0])
	}
	for _, in := range insights {
		if in.Title == "Healthy Carrier Pool" {
			t.Error("healthy insight emitted alongside a critical pinning insight")
		}
	}
}
