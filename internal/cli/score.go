package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/akshatvasisht/oversite/internal/score"
	"github.com/akshatvasisht/oversite/internal/store"
)

var scoreCmd = &cobra.Command{
	Use:   "score <session-id>",
	Short: "Run the scoring pipeline for a session",
	Long: `Run the full scoring pipeline against the local database and print
the result as JSON. Useful for rescoring after swapping model artifacts.`,
	Args: cobra.ExactArgs(1),
	RunE: runScore,
}

func runScore(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}

	st, err := store.OpenSQLite(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	registry := score.NewRegistry(cfg.Models.Dir, cfg.Models.ForceFallback)
	pipeline := score.NewPipeline(st, registry, nil)

	sc, err := pipeline.Run(cmd.Context(), args[0])
	if err != nil {
		return fmt.Errorf("scoring session: %w", err)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(sc)
}
