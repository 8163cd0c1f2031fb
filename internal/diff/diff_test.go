package diff

import (
	"strings"
	"testing"
)

func TestDecomposeIdentical(t *testing.T) {
	text := "line1\nline2\nline3\n"
	hunks := Decompose(text, text)
	if len(hunks) != 0 {
		t.Fatalf("expected no hunks for identical input, got %d", len(hunks))
	}
}

func TestDecomposeSingleInsertion(t *testing.T) {
	original := "line1\nline3\n"
	proposed := "line1\nline2\nline3\n"

	hunks := Decompose(original, proposed)
	if len(hunks) != 1 {
		t.Fatalf("expected 1 hunk, got %d: %+v", len(hunks), hunks)
	}

	h := hunks[0]
	if h.OriginalCode != "" {
		t.Errorf("expected empty original code for pure insertion, got %q", h.OriginalCode)
	}
	if !strings.Contains(h.ProposedCode, "line2") {
		t.Errorf("expected proposed code to contain line2, got %q", h.ProposedCode)
	}
	if h.StartLine != 1 || h.EndLine != 1 {
		t.Errorf("expected insert-after marker 1/1, got %d/%d", h.StartLine, h.EndLine)
	}
	if h.ProposedCharCount != len(h.ProposedCode) {
		t.Errorf("char count %d != len(proposed) %d", h.ProposedCharCount, len(h.ProposedCode))
	}
}

func TestDecomposeInsertionAtTop(t *testing.T) {
	hunks := Decompose("b\n", "a\nb\n")
	if len(hunks) != 1 {
		t.Fatalf("expected 1 hunk, got %d", len(hunks))
	}
	if hunks[0].StartLine != 0 || hunks[0].EndLine != 0 {
		t.Errorf("expected insert-before-first marker 0/0, got %d/%d", hunks[0].StartLine, hunks[0].EndLine)
	}
}

func TestDecomposeEmptyOriginal(t *testing.T) {
	hunks := Decompose("", "def foo():\n    return 1\n")
	if len(hunks) != 1 {
		t.Fatalf("expected 1 hunk, got %d", len(hunks))
	}
	if hunks[0].OriginalCode != "" {
		t.Errorf("expected empty original code, got %q", hunks[0].OriginalCode)
	}
	if hunks[0].ProposedCode != "def foo():\n    return 1\n" {
		t.Errorf("unexpected proposed code %q", hunks[0].ProposedCode)
	}
}

func TestDecomposeEmptyProposed(t *testing.T) {
	hunks := Decompose("a\nb\nc\n", "")
	if len(hunks) != 1 {
		t.Fatalf("expected 1 hunk, got %d", len(hunks))
	}
	h := hunks[0]
	if h.ProposedCode != "" {
		t.Errorf("expected empty proposed code, got %q", h.ProposedCode)
	}
	if h.OriginalCode != "a\nb\nc\n" {
		t.Errorf("unexpected original code %q", h.OriginalCode)
	}
	if h.StartLine != 1 || h.EndLine != 3 {
		t.Errorf("expected range 1-3, got %d-%d", h.StartLine, h.EndLine)
	}
	if h.ProposedCharCount != 0 {
		t.Errorf("expected char count 0, got %d", h.ProposedCharCount)
	}
}

func TestDecomposeMultipleBlocks(t *testing.T) {
	original := "one\ntwo\nthree\nfour\nfive\n"
	proposed := "ONE\ntwo\nthree\nfour\nFIVE\n"

	hunks := Decompose(original, proposed)
	if len(hunks) != 2 {
		t.Fatalf("expected 2 hunks, got %d: %+v", len(hunks), hunks)
	}

	for i, h := range hunks {
		if h.Index != i {
			t.Errorf("hunk %d has index %d", i, h.Index)
		}
		// Unchanged lines must never leak into hunk text.
		for _, leaked := range []string{"two", "three", "four"} {
			if strings.Contains(h.OriginalCode, leaked) || strings.Contains(h.ProposedCode, leaked) {
				t.Errorf("hunk %d contains unchanged line %q", i, leaked)
			}
		}
	}

	if hunks[0].OriginalCode != "one\n" || hunks[0].ProposedCode != "ONE\n" {
		t.Errorf("unexpected first hunk %+v", hunks[0])
	}
	if hunks[1].OriginalCode != "five\n" || hunks[1].ProposedCode != "FIVE\n" {
		t.Errorf("unexpected second hunk %+v", hunks[1])
	}
}

func TestDecomposeReplacement(t *testing.T) {
	hunks := Decompose("def foo():\n    return 1\n", "def foo():\n    return 2\n")
	if len(hunks) != 1 {
		t.Fatalf("expected 1 hunk, got %d", len(hunks))
	}
	h := hunks[0]
	if h.OriginalCode != "    return 1\n" || h.ProposedCode != "    return 2\n" {
		t.Errorf("unexpected hunk %+v", h)
	}
	if h.StartLine != 2 || h.EndLine != 2 {
		t.Errorf("expected range 2-2, got %d-%d", h.StartLine, h.EndLine)
	}
}

func TestDecomposeIndexOrdering(t *testing.T) {
	original := "a\nb\nc\nd\ne\nf\ng\n"
	proposed := "A\nb\nC\nd\nE\nf\nG\n"

	hunks := Decompose(original, proposed)
	for i, h := range hunks {
		if h.Index != i {
			t.Fatalf("expected contiguous indexes from 0, got %d at position %d", h.Index, i)
		}
		if h.ProposedCharCount != len(h.ProposedCode) {
			t.Errorf("hunk %d char count mismatch", i)
		}
	}
}

func TestApplyRoundTrip(t *testing.T) {
	cases := []struct {
		name     string
		original string
		proposed string
	}{
		{"insertion", "line1\nline3\n", "line1\nline2\nline3\n"},
		{"deletion", "a\nb\nc\n", "a\nc\n"},
		{"replacement", "x = 1\ny = 2\n", "x = 1\ny = 3\n"},
		{"from empty", "", "hello\nworld\n"},
		{"to empty", "hello\nworld\n", ""},
		{"multi block", "one\ntwo\nthree\nfour\nfive\n", "ONE\ntwo\nthree\nfour\nFIVE\nsix\n"},
		{"append", "a\n", "a\nb\n"},
		{"no trailing newline", "a\nb", "a\nc"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			hunks := Decompose(tc.original, tc.proposed)
			got := Apply(tc.original, hunks)
			if got != tc.proposed {
				t.Errorf("round trip failed:\noriginal: %q\nwant:     %q\ngot:      %q", tc.original, tc.proposed, got)
			}
		})
	}
}
