package cli

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/akshatvasisht/oversite/internal/model"
	"github.com/akshatvasisht/oversite/internal/store"
)

var reportCmd = &cobra.Command{
	Use:   "report <session-id>",
	Short: "Print a styled score report for a session",
	Long: `Print the persisted score for a session as a terminal report.
Run "oversite score" first if the session has not been scored yet.`,
	Args: cobra.ExactArgs(1),
	RunE: runReport,
}

var (
	reportTitleStyle = lipgloss.NewStyle().Bold(true).Underline(true)
	reportBoxStyle   = lipgloss.NewStyle().
				Border(lipgloss.RoundedBorder()).
				Padding(0, 2)
	reportDimStyle = lipgloss.NewStyle().Faint(true)

	labelStyles = map[string]lipgloss.Style{
		model.LabelStrategic:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("10")),
		model.LabelBalanced:    lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("11")),
		model.LabelOverReliant: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
	}
)

func runReport(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, err := store.OpenSQLite(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	sc, err := st.GetScore(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("no score for session %s; run \"oversite score\" first: %w", args[0], err)
	}

	fmt.Println(renderReport(sc))
	return nil
}

func renderReport(sc *model.SessionScore) string {
	var b strings.Builder

	b.WriteString(reportTitleStyle.Render("Session Assessment"))
	b.WriteString("\n")
	b.WriteString(reportDimStyle.Render(fmt.Sprintf("session %s, scored %s",
		sc.SessionID, sc.ComputedAt.Format("2006-01-02 15:04"))))
	b.WriteString("\n\n")

	label := labelStyle(sc.OverallLabel).Render(strings.ToUpper(sc.OverallLabel))
	b.WriteString(fmt.Sprintf("Overall: %s  (%.2f / 5.00)\n\n", label, sc.WeightedScore))

	b.WriteString(fmt.Sprintf("  Behavioral       %.2f  %s\n", sc.BehavioralScore, labelStyle(sc.BehavioralLabel).Render(sc.BehavioralLabel)))
	b.WriteString(fmt.Sprintf("  Prompt quality   %.2f\n", sc.PromptScore))
	b.WriteString(fmt.Sprintf("  Critical review  %.2f\n", sc.ReviewScore))

	if len(sc.FallbackComponents) > 0 {
		b.WriteString("\n")
		b.WriteString(reportDimStyle.Render("fallback scoring: " + strings.Join(sc.FallbackComponents, ", ")))
		b.WriteString("\n")
	}
	if sc.Narrative != "" {
		b.WriteString("\n")
		b.WriteString(sc.Narrative)
		b.WriteString("\n")
	}

	return reportBoxStyle.Render(b.String())
}

func labelStyle(label string) lipgloss.Style {
	if s, ok := labelStyles[label]; ok {
		return s
	}
	return lipgloss.NewStyle()
}
