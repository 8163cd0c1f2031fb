package diff

import (
	"fmt"
	"strings"

	"github.com/bluekeyes/go-gitdiff/gitdiff"
	"github.com/pmezard/go-difflib/difflib"
)

// ComputeEditDelta returns a human-readable unified diff (default three
// lines of context) between old and new content. Identical inputs yield
// an empty string. The delta is stored for audit and display only; hunk
// counting always goes through Decompose.
func ComputeEditDelta(old, new string) string {
	if old == new {
		return ""
	}

	ud := difflib.UnifiedDiff{
		A:        difflib.SplitLines(old),
		B:        difflib.SplitLines(new),
		FromFile: "a/file",
		ToFile:   "b/file",
		Context:  3,
	}

	text, err := difflib.GetUnifiedDiffString(ud)
	if err != nil {
		return ""
	}
	return text
}

// DeltaStats holds line counts summarizing a stored edit delta.
type DeltaStats struct {
	Added   int
	Deleted int
}

// ParseDeltaStats parses a delta produced by ComputeEditDelta and counts
// its added and deleted lines. An empty delta yields zero stats.
func ParseDeltaStats(delta string) (DeltaStats, error) {
	if strings.TrimSpace(delta) == "" {
		return DeltaStats{}, nil
	}

	files, _, err := gitdiff.Parse(strings.NewReader(delta))
	if err != nil {
		return DeltaStats{}, fmt.Errorf("parsing delta: %w", err)
	}

	var stats DeltaStats
	for _, f := range files {
		for _, frag := range f.TextFragments {
			for _, line := range frag.Lines {
				switch line.Op {
				case gitdiff.OpAdd:
					stats.Added++
				case gitdiff.OpDelete:
					stats.Deleted++
				}
			}
		}
	}

	return stats, nil
}
