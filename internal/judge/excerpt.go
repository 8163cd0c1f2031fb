// Package judge produces the qualitative narrative that accompanies a
// session score. The narrative comes from an LLM when one is configured
// and from a label-keyed template otherwise.
package judge

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/akshatvasisht/oversite/internal/diff"
	"github.com/akshatvasisht/oversite/internal/model"
)

const (
	maxExcerptPrompts = 5
	maxReviewMoments  = 3
	maxPromptChars    = 200
)

// ReviewMoment is one notable chunk decision surfaced to the narrator.
type ReviewMoment struct {
	Decision      model.Decision
	CharDelta     int
	TimeOnChunkMS int
}

// ExecutionSummary counts code runs and how many exited cleanly.
type ExecutionSummary struct {
	Total  int
	Passed int
}

// Excerpt is the compact session digest handed to the narrator. It is
// built once per scoring run and bounded in size regardless of session
// length.
type Excerpt struct {
	Duration      time.Duration
	Prompts       []string
	ReviewMoments []ReviewMoment
	Executions    ExecutionSummary
	LinesAdded    int
	LinesDeleted  int
}

// BuildExcerpt digests session records into a bounded excerpt. All
// inputs may be empty.
func BuildExcerpt(session *model.Session, events []model.Event, interactions []model.Interaction, decisions []model.ChunkDecision, snapshots []model.EditorSnapshot) Excerpt {
	var ex Excerpt

	if session != nil && session.EndedAt != nil {
		ex.Duration = session.EndedAt.Sub(session.StartedAt)
	}

	// Longest prompts first: they carry the most signal about how the
	// candidate framed the work.
	prompts := make([]string, 0, len(interactions))
	for _, in := range interactions {
		if in.Prompt != "" {
			prompts = append(prompts, in.Prompt)
		}
	}
	sort.SliceStable(prompts, func(i, j int) bool { return len(prompts[i]) > len(prompts[j]) })
	if len(prompts) > maxExcerptPrompts {
		prompts = prompts[:maxExcerptPrompts]
	}
	for _, p := range prompts {
		ex.Prompts = append(ex.Prompts, truncate(p, maxPromptChars))
	}

	// The most heavily reworked chunks make the best review moments.
	moments := make([]ReviewMoment, 0, len(decisions))
	for _, d := range decisions {
		moments = append(moments, ReviewMoment{
			Decision:      d.Decision,
			CharDelta:     len(d.FinalCode) - len(d.ProposedCode),
			TimeOnChunkMS: d.TimeOnChunkMS,
		})
	}
	sort.SliceStable(moments, func(i, j int) bool {
		return abs(moments[i].CharDelta) > abs(moments[j].CharDelta)
	})
	if len(moments) > maxReviewMoments {
		moments = moments[:maxReviewMoments]
	}
	ex.ReviewMoments = moments

	for _, e := range events {
		if e.EventType != model.EventExecute {
			continue
		}
		ex.Executions.Total++
		if code, ok := e.Metadata["exit_code"]; ok && isZero(code) {
			ex.Executions.Passed++
		}
	}

	for _, snap := range snapshots {
		stats, err := diff.ParseDeltaStats(snap.EditDelta)
		if err != nil {
			continue
		}
		ex.LinesAdded += stats.Added
		ex.LinesDeleted += stats.Deleted
	}

	return ex
}

// Render formats the excerpt as the plain-text block embedded in the
// narrator prompt.
func (ex Excerpt) Render() string {
	var b strings.Builder

	fmt.Fprintf(&b, "Session duration: %s\n", ex.Duration.Round(time.Second))
	fmt.Fprintf(&b, "Code executions: %d (%d exited cleanly)\n", ex.Executions.Total, ex.Executions.Passed)
	fmt.Fprintf(&b, "Manual edits: +%d/-%d lines\n", ex.LinesAdded, ex.LinesDeleted)

	if len(ex.Prompts) > 0 {
		b.WriteString("\nRepresentative prompts:\n")
		for _, p := range ex.Prompts {
			fmt.Fprintf(&b, "- %q\n", p)
		}
	}
	if len(ex.ReviewMoments) > 0 {
		b.WriteString("\nNotable review moments:\n")
		for _, m := range ex.ReviewMoments {
			fmt.Fprintf(&b, "- %s a chunk (%+d chars, %dms deliberation)\n", m.Decision, m.CharDelta, m.TimeOnChunkMS)
		}
	}
	return b.String()
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}

// isZero matches the numeric shapes JSON decoding produces for metadata
// values.
func isZero(v any) bool {
	switch n := v.(type) {
	case float64:
		return n == 0
	case int:
		return n == 0
	case int64:
		return n == 0
	case string:
		return n == "0"
	}
	return false
}
