// Package diff decomposes edits into independently-decidable hunks.
package diff

import (
	"strings"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/akshatvasisht/oversite/internal/model"
)

// splitLines splits s on line boundaries keeping terminators, so joining
// the pieces reproduces s byte for byte. Empty input yields no lines.
func splitLines(s string) []string {
	if s == "" {
		return nil
	}
	lines := strings.SplitAfter(s, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Decompose computes the ordered list of change blocks between original
// and proposed. The line diff uses zero lines of context, so every
// maximal contiguous run of removed/added lines becomes exactly one hunk
// and unchanged lines never appear inside a hunk's text.
//
// Identical inputs yield an empty list. A hunk with empty OriginalCode is
// a pure insertion; StartLine and EndLine then both hold the original
// line the insertion follows (0 when inserting before the first line).
func Decompose(original, proposed string) []model.Hunk {
	a := splitLines(original)
	b := splitLines(proposed)

	matcher := difflib.NewMatcher(a, b)

	var hunks []model.Hunk
	for _, op := range matcher.GetOpCodes() {
		if op.Tag == 'e' {
			continue
		}

		origCount := op.I2 - op.I1
		start := op.I1 + 1
		end := op.I1 + origCount
		if origCount == 0 {
			// Insert-after-this-line marker, matching the @@ -N,0 header
			// a zero-context unified diff would carry.
			start = op.I1
			end = op.I1
		}

		proposedCode := strings.Join(b[op.J1:op.J2], "")
		hunks = append(hunks, model.Hunk{
			Index:             len(hunks),
			OriginalCode:      strings.Join(a[op.I1:op.I2], ""),
			ProposedCode:      proposedCode,
			StartLine:         start,
			EndLine:           end,
			ProposedCharCount: len(proposedCode),
		})
	}

	return hunks
}

// Apply replays hunks against original and returns the resulting text.
// Hunks must be the unmodified output of Decompose for the same original.
func Apply(original string, hunks []model.Hunk) string {
	lines := splitLines(original)

	var out strings.Builder
	cursor := 0
	for _, h := range hunks {
		if h.OriginalCode == "" {
			// Insertion after line StartLine.
			for ; cursor < h.StartLine && cursor < len(lines); cursor++ {
				out.WriteString(lines[cursor])
			}
			out.WriteString(h.ProposedCode)
			continue
		}
		for ; cursor < h.StartLine-1 && cursor < len(lines); cursor++ {
			out.WriteString(lines[cursor])
		}
		out.WriteString(h.ProposedCode)
		cursor = h.EndLine
	}
	for ; cursor < len(lines); cursor++ {
		out.WriteString(lines[cursor])
	}

	return out.String()
}
