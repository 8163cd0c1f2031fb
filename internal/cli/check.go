package cli

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check that a running server is healthy",
	Long: `Probe the /health endpoint of a running oversite server.

Exit codes:
  0 — server is healthy
  1 — server is unreachable or unhealthy`,
	RunE: runCheck,
}

func init() {
	checkCmd.Flags().StringP("url", "u", "", "server base URL (defaults to the configured listen address)")
}

func runCheck(cmd *cobra.Command, args []string) error {
	base, _ := cmd.Flags().GetString("url")
	if base == "" {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		base = "http://" + cfg.ListenAddr()
	}

	client := &http.Client{Timeout: 5 * time.Second}
	resp, err := client.Get(base + "/health")
	if err != nil {
		return fmt.Errorf("server unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server unhealthy: %s", resp.Status)
	}
	fmt.Printf("ok: %s\n", base)
	return nil
}
