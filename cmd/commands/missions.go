package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"

	"github.com/aegisworks/aegis/internal/missions"
)

// NewMissionsCommand returns the missions subcommand.
func NewMissionsCommand() *cli.Command {
	return &cli.Command{
		Name:  "missions",
		Usage: "Inspect the mission queue",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List all missions",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "status",
						Usage: "Filter by status (queued, active, completed, failed, escalated)",
					},
				},
				Action: runMissionsList,
			},
			{
				Name:      "show",
				Usage:     "Show a mission and its stage log",
				ArgsUsage: "<mission_id>",
				Action:    runMissionsShow,
			},
		},
		DefaultCommand: "list",
	}
}

func runMissionsList(_ context.Context, cmd *cli.Command) error {
	store := newMissionStore()

	list, err := store.List(missions.ListFilter{
		Status: missions.Status(cmd.String("status")),
	})
	if err != nil {
		return fmt.Errorf("list missions: %w", err)
	}

	if len(list) == 0 {
		fmt.Println("No missions found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tMODALITY\tRETRIES\tCREATED\tPROMPT")
	for _, m := range list {
		prompt := m.Prompt
		if len(prompt) > 48 {
			prompt = prompt[:45] + "..."
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%s\t%s\n",
			m.ID,
			m.Status,
			m.Modality,
			m.RetryCount,
			m.CreatedAt.Format("2006-01-02 15:04"),
			prompt,
		)
	}
	return w.Flush()
}

func runMissionsShow(_ context.Context, cmd *cli.Command) error {
	missionID := cmd.Args().First()
	if missionID == "" {
		return fmt.Errorf("usage: aegis missions show <mission_id>")
	}

	store := newMissionStore()

	m, err := store.Get(missionID)
	if err != nil {
		return fmt.Errorf("get mission: %w", err)
	}

	out, err := yaml.Marshal(m)
	if err != nil {
		return fmt.Errorf("render mission: %w", err)
	}
	fmt.Print(string(out))

	logs, err := store.LoadLogs(missionID)
	if err != nil {
		return fmt.Errorf("load logs: %w", err)
	}
	if len(logs) > 0 {
		fmt.Println("\nStage log:")
		for _, e := range logs {
			fmt.Printf("  [%s] %s (%s): %s\n", e.Ts.Format("15:04:05"), e.Role, e.Status, e.Content)
		}
	}
	return nil
}
