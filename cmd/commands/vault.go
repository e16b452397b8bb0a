package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"text/tabwriter"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/aegisworks/aegis/internal/pipeline"
)

// NewVaultCommand returns the vault subcommand.
func NewVaultCommand() *cli.Command {
	return &cli.Command{
		Name:  "vault",
		Usage: "Inspect and resolve vaulted artifacts",
		Commands: []*cli.Command{
			{
				Name:   "list",
				Usage:  "List vaulted artifacts",
				Action: runVaultList,
			},
			{
				Name:   "pending",
				Usage:  "List artifacts awaiting human sign-off",
				Action: runVaultPending,
			},
			{
				Name:      "accept",
				Usage:     "Accept a pending artifact into the vault",
				ArgsUsage: "<artifact_id>",
				Action:    runVaultAccept,
			},
			{
				Name:      "reject",
				Usage:     "Reject and discard a pending artifact",
				ArgsUsage: "<artifact_id>",
				Action:    runVaultReject,
			},
		},
		DefaultCommand: "list",
	}
}

func gatewayURL(cmd *cli.Command) string {
	cfg := loadConfig(cmd)
	return fmt.Sprintf("http://%s:%d", cfg.Gateway.Host, cfg.Gateway.Port)
}

func httpClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

func fetchArtifacts(cmd *cli.Command, path string) ([]*pipeline.FinalArtifact, error) {
	resp, err := httpClient().Get(gatewayURL(cmd) + path)
	if err != nil {
		return nil, fmt.Errorf("reach gateway (is the daemon running?): %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway returned %s", resp.Status)
	}

	var list []*pipeline.FinalArtifact
	if err := json.NewDecoder(resp.Body).Decode(&list); err != nil {
		return nil, fmt.Errorf("decode artifacts: %w", err)
	}
	return list, nil
}

func printArtifacts(list []*pipeline.FinalArtifact) error {
	if len(list) == 0 {
		fmt.Println("No artifacts found.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tMODALITY\tSCORE\tPASSES\tCREATED\tSPECS")
	for _, a := range list {
		fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\t%s\n",
			a.ID,
			a.Modality,
			a.VerificationScore,
			a.RecheckPasses,
			a.CreatedAt.Format("2006-01-02 15:04"),
			a.Specs,
		)
	}
	return w.Flush()
}

func runVaultList(_ context.Context, cmd *cli.Command) error {
	list, err := fetchArtifacts(cmd, "/api/artifacts")
	if err != nil {
		return err
	}
	return printArtifacts(list)
}

func runVaultPending(_ context.Context, cmd *cli.Command) error {
	list, err := fetchArtifacts(cmd, "/api/artifacts/pending")
	if err != nil {
		return err
	}
	return printArtifacts(list)
}

func resolveArtifact(cmd *cli.Command, action string) error {
	artifactID := cmd.Args().First()
	if artifactID == "" {
		return fmt.Errorf("usage: aegis vault %s <artifact_id>", action)
	}

	url := fmt.Sprintf("%s/api/artifacts/%s/%s", gatewayURL(cmd), artifactID, action)
	resp, err := httpClient().Post(url, "application/json", nil)
	if err != nil {
		return fmt.Errorf("reach gateway (is the daemon running?): %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway returned %s", resp.Status)
	}

	fmt.Printf("Artifact %s %sed.\n", artifactID, action)
	return nil
}

func runVaultAccept(_ context.Context, cmd *cli.Command) error {
	return resolveArtifact(cmd, "accept")
}

func runVaultReject(_ context.Context, cmd *cli.Command) error {
	return resolveArtifact(cmd, "reject")
}
