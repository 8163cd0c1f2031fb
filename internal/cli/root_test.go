package cli

import (
	"strings"
	"testing"
	"time"

	"github.com/akshatvasisht/oversite/internal/model"
)

func TestRootCommandHasSubcommands(t *testing.T) {
	cmds := rootCmd.Commands()
	names := make(map[string]bool)
	for _, c := range cmds {
		names[c.Name()] = true
	}

	for _, want := range []string{"serve", "score", "report", "check", "version"} {
		if !names[want] {
			t.Errorf("root command missing subcommand %q", want)
		}
	}
}

func TestVersionOutput(t *testing.T) {
	// version vars are set via ldflags; in tests they have their defaults
	if version != "dev" {
		t.Errorf("expected default version %q, got %q", "dev", version)
	}
}

func TestRenderReport(t *testing.T) {
	sc := &model.SessionScore{
		SessionID:          "s1",
		ComputedAt:         time.Date(2026, 3, 1, 10, 30, 0, 0, time.UTC),
		BehavioralScore:    3.0,
		BehavioralLabel:    model.LabelBalanced,
		PromptScore:        3.5,
		ReviewScore:        4.5,
		WeightedScore:      3.66,
		OverallLabel:       model.LabelStrategic,
		FallbackComponents: []string{"behavioral"},
		Narrative:          "Reviewed suggestions carefully before accepting.",
	}

	out := renderReport(sc)
	for _, want := range []string{"STRATEGIC", "3.66", "4.50", "fallback scoring: behavioral", "Reviewed suggestions"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}
