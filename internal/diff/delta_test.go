package diff

import (
	"strings"
	"testing"
)

func TestComputeEditDeltaIdentical(t *testing.T) {
	if d := ComputeEditDelta("same\n", "same\n"); d != "" {
		t.Errorf("expected empty delta for identical input, got %q", d)
	}
}

func TestComputeEditDelta(t *testing.T) {
	delta := ComputeEditDelta("a\nb\nc\n", "a\nB\nc\n")

	if !strings.Contains(delta, "@@") {
		t.Errorf("expected hunk header in delta, got %q", delta)
	}
	if !strings.Contains(delta, "-b") || !strings.Contains(delta, "+B") {
		t.Errorf("expected -b/+B lines, got %q", delta)
	}
	// Default context: the unchanged neighbors appear.
	if !strings.Contains(delta, " a") || !strings.Contains(delta, " c") {
		t.Errorf("expected context lines, got %q", delta)
	}
}

func TestParseDeltaStats(t *testing.T) {
	delta := ComputeEditDelta("a\nb\nc\n", "a\nB\nc\nd\n")

	stats, err := ParseDeltaStats(delta)
	if err != nil {
		t.Fatal(err)
	}
	if stats.Added != 2 || stats.Deleted != 1 {
		t.Errorf("expected 2 added / 1 deleted, got %+v", stats)
	}
}

func TestParseDeltaStatsEmpty(t *testing.T) {
	stats, err := ParseDeltaStats("")
	if err != nil {
		t.Fatal(err)
	}
	if stats.Added != 0 || stats.Deleted != 0 {
		t.Errorf("expected zero stats, got %+v", stats)
	}
}
