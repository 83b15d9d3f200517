package domain

import (
	"testing"
	"time"
)

// TestJobStatusIsTerminal checks which statuses end a dispatch.
func TestJobStatusIsTerminal(t *testing.T) {
	cases := map[JobStatus]bool{
		JobStatusPending:    false,
		JobStatusProcessing: false,
		JobStatusDone:       true,
		JobStatusFailed:     true,
	}
	for status, want := range cases {
		if got := status.IsTerminal(); got != want {
			t.Fatalf("%s.IsTerminal() = %v, want %v", status, got, want)
		}
	}
}

// TestNewDiagnosticReport checks skipped items do not count as failures.
func TestNewDiagnosticReport(t *testing.T) {
	at := time.Date(2024, 1, 2, 3, 4, 5, 0, time.FixedZone("x", 3600))
	report := NewDiagnosticReport(at,
		DiagnosticItem{ID: "a", Status: DiagnosticStatusPass},
		DiagnosticItem{ID: "b", Status: DiagnosticStatusSkip},
	)
	if report.HasFailures {
		t.Fatal("expected no failures")
	}
	if report.GeneratedAt.Location() != time.UTC {
		t.Fatalf("expected UTC timestamp, got %v", report.GeneratedAt)
	}

	report = NewDiagnosticReport(at, DiagnosticItem{ID: "c", Status: DiagnosticStatusFail})
	if !report.HasFailures {
		t.Fatal("expected failures")
	}
	if _, ok := report.Item("c"); !ok {
		t.Fatal("expected item c")
	}
	if _, ok := report.Item("missing"); ok {
		t.Fatal("unexpected item")
	}
}
