package pipeline

import (
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"
)

func TestRun_StateTransitions(t *testing.T) {
	run := NewRun("", "Book", "/tmp/out")
	if run.Status != StatusPending {
		t.Fatalf("expected status %q, got %q", StatusPending, run.Status)
	}

	transitions := []struct {
		status RunStatus
		phase  string
	}{
		{StatusOutline, "outline"},
		{StatusPlanning, "summaries"},
		{StatusContent, "content"},
		{StatusDiagrams, "diagram plan"},
		{StatusCompleted, "done"},
	}
	for _, tr := range transitions {
		before := run.UpdatedAt
		time.Sleep(time.Millisecond)
		run.SetStatus(tr.status, tr.phase)

		if run.Status != tr.status {
			t.Errorf("expected status %q, got %q", tr.status, run.Status)
		}
		if run.Phase != tr.phase {
			t.Errorf("expected phase %q, got %q", tr.phase, run.Phase)
		}
		if !run.UpdatedAt.After(before) {
			t.Errorf("expected UpdatedAt to advance after SetStatus(%q)", tr.status)
		}
	}
}

func TestRun_Fail(t *testing.T) {
	run := NewRun("", "Book", "")
	run.Fail(errors.New("boom"))
	snap := run.Snapshot()
	if snap.Status != StatusFailed {
		t.Errorf("expected status %q, got %q", StatusFailed, snap.Status)
	}
	if snap.Error != "boom" {
		t.Errorf("expected error %q, got %q", "boom", snap.Error)
	}
}

func TestRun_Counters(t *testing.T) {
	run := NewRun("", "", "")
	run.SetTotal(7)
	run.IncrNodesDone()
	run.IncrNodesDone()
	run.IncrOverviewRetries()
	run.AddWarning("summaries failed")

	snap := run.Snapshot()
	if snap.Progress.NodesTotal != 7 || snap.Progress.NodesDone != 2 {
		t.Errorf("expected 2/7 nodes, got %d/%d", snap.Progress.NodesDone, snap.Progress.NodesTotal)
	}
	if snap.Progress.OverviewRetries != 1 {
		t.Errorf("expected 1 retry, got %d", snap.Progress.OverviewRetries)
	}
	if len(snap.Progress.Warnings) != 1 || snap.Progress.Warnings[0] != "summaries failed" {
		t.Errorf("expected one warning, got %v", snap.Progress.Warnings)
	}
}

func TestRun_SnapshotWarningsNotNil(t *testing.T) {
	snap := NewRun("", "", "").Snapshot()
	if snap.Progress.Warnings == nil {
		t.Error("expected non-nil warnings slice in snapshot")
	}
}

func TestRun_SnapshotIsCopy(t *testing.T) {
	run := NewRun("", "", "")
	run.AddWarning("first")
	snap := run.Snapshot()
	run.AddWarning("second")
	if len(snap.Progress.Warnings) != 1 {
		t.Errorf("expected snapshot to keep 1 warning, got %d", len(snap.Progress.Warnings))
	}
}

var ulidRe = regexp.MustCompile(`^[0-9A-HJKMNP-TV-Z]{26}$`)

func TestNewRunID_FormatAndOrder(t *testing.T) {
	prev := ""
	for i := 0; i < 50; i++ {
		id := NewRunID()
		if !ulidRe.MatchString(id) {
			t.Fatalf("expected 26 crockford characters, got %q", id)
		}
		if id <= prev {
			t.Fatalf("expected ids to increase, got %q after %q", id, prev)
		}
		prev = id
	}
}

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Operations Manual":       "operations-manual",
		"  Go: The Good Parts!  ": "go-the-good-parts",
		"a--b__c":                 "a-b-c",
		"Ünïcode":                 "n-code",
		"!!!":                     "",
		strings.Repeat("abc ", 30): strings.TrimRight(strings.Repeat("abc-", 13)[:50], "-"),
	}
	for in, want := range cases {
		if got := Slugify(in); got != want {
			t.Errorf("Slugify(%q): expected %q, got %q", in, want, got)
		}
	}
}

func TestRunDirName(t *testing.T) {
	if got := RunDirName("01ABC", "My Book"); got != "01ABC-my-book" {
		t.Errorf("expected %q, got %q", "01ABC-my-book", got)
	}
	if got := RunDirName("01ABC", "???"); got != "01ABC-untitled" {
		t.Errorf("expected %q, got %q", "01ABC-untitled", got)
	}
}
