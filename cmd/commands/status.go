package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/urfave/cli/v3"

	"github.com/aegisworks/aegis/internal/missions"
	"github.com/aegisworks/aegis/internal/runner"
)

// NewStatusCommand returns the status subcommand.
func NewStatusCommand() *cli.Command {
	return &cli.Command{
		Name:  "status",
		Usage: "Show Aegis daemon status",
		Action: func(_ context.Context, cmd *cli.Command) error {
			resp, err := httpClient().Get(gatewayURL(cmd) + "/api/state")
			if err != nil {
				fmt.Println("Daemon: NOT RUNNING")
				return nil
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("gateway returned %s", resp.Status)
			}

			var snap runner.Snapshot
			if err := json.NewDecoder(resp.Body).Decode(&snap); err != nil {
				return fmt.Errorf("decode state: %w", err)
			}

			mode := "MANUAL"
			if snap.Autonomous {
				mode = "AUTONOMOUS"
			}
			fmt.Printf("Daemon: ALIVE (%s)\n", mode)
			if snap.ActiveID != "" {
				fmt.Printf("Active mission: %s\n", snap.ActiveID)
			}

			byStatus := map[missions.Status]int{}
			for _, m := range snap.Missions {
				byStatus[m.Status]++
			}
			fmt.Printf("Missions: %d total (%d queued, %d completed, %d failed, %d escalated)\n",
				len(snap.Missions),
				byStatus[missions.StatusQueued],
				byStatus[missions.StatusCompleted],
				byStatus[missions.StatusFailed],
				byStatus[missions.StatusEscalated],
			)
			fmt.Printf("Vault: %d artifacts, %d pending sign-off\n", len(snap.Vault), len(snap.Pending))
			return nil
		},
	}
}
