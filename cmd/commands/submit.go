package commands

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/aegisworks/aegis/internal/config"
	"github.com/aegisworks/aegis/internal/missions"
)

// NewSubmitCommand returns the submit subcommand.
func NewSubmitCommand() *cli.Command {
	return &cli.Command{
		Name:      "submit",
		Usage:     "Queue a mission for the daemon to execute",
		ArgsUsage: "<prompt>",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "modality",
				Aliases: []string{"m"},
				Usage:   "Output modality (TEXT, IMAGE, VIDEO, AUDIO, FILE, CODE)",
				Value:   "TEXT",
			},
			&cli.StringFlag{
				Name:  "priority",
				Usage: "Mission priority (low, normal, high)",
			},
		},
		Action: runSubmit,
	}
}

func runSubmit(_ context.Context, cmd *cli.Command) error {
	prompt := cmd.Args().First()
	if prompt == "" {
		return fmt.Errorf("usage: aegis submit <prompt>")
	}

	modality, err := missions.ParseModality(cmd.String("modality"))
	if err != nil {
		return err
	}

	m := &missions.Mission{
		Prompt:   prompt,
		Modality: modality,
		Origin:   "cli",
	}
	if p := cmd.String("priority"); p != "" {
		m.Priority = missions.Priority(p)
	}

	// The daemon polls the shared mission store, so a direct write is
	// enough to get the mission picked up.
	store := newMissionStore()
	if err := store.Create(m); err != nil {
		return fmt.Errorf("queue mission: %w", err)
	}

	fmt.Printf("Mission %s queued (%s).\n", m.ID, m.Modality)
	return nil
}

func newMissionStore() *missions.FileStore {
	return missions.NewFileStore(filepath.Join(config.AegisPath(), "missions"))
}
