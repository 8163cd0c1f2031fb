package cli

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/akshatvasisht/oversite/internal/api"
	"github.com/akshatvasisht/oversite/internal/judge"
	"github.com/akshatvasisht/oversite/internal/score"
	"github.com/akshatvasisht/oversite/internal/store"
	"github.com/akshatvasisht/oversite/internal/track"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP server exposing the oversite session API.

Endpoints:
  GET  /health                   — Health check
  POST /api/v1/session/start     — Open an assessment session
  POST /api/v1/events/...        — Record editor/panel/execute telemetry
  POST /api/v1/ai/chat           — Record an assistant interaction
  POST /api/v1/suggestions       — Register a suggestion for chunk review
  GET  /api/v1/session/{id}/score — Compute or fetch the session score
  GET  /api/ws                   — WebSocket for live session feeds`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringP("addr", "a", "", "address to listen on (overrides config)")
	serveCmd.Flags().IntP("port", "p", 0, "port to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
		cfg.Server.Addr = addr
	}
	if port, _ := cmd.Flags().GetInt("port"); port != 0 {
		cfg.Server.Port = port
	}

	st, err := store.OpenSQLite(cfg.Database.Path)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer st.Close()

	registry := score.NewRegistry(cfg.Models.Dir, cfg.Models.ForceFallback)
	tracker := track.New(st)

	var narrator judge.Narrator
	if cfg.Judge.Enabled {
		narrator, err = judge.NewGemini(cmd.Context(), cfg.Judge.APIKey, cfg.Judge.Model)
		if err != nil {
			log.Printf("serve: judge disabled, client init failed: %v", err)
			narrator = nil
		}
	}
	pipeline := score.NewPipeline(st, registry, narrator)

	srv := api.New(cfg.ListenAddr(), st, tracker, pipeline)
	return srv.ListenAndServe()
}
