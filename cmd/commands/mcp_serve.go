package commands

import (
	"context"
	"log/slog"
	"os"

	"github.com/urfave/cli/v3"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/aegisworks/aegis/internal/events"
	aegismcp "github.com/aegisworks/aegis/internal/mcp"
	"github.com/aegisworks/aegis/internal/missions"
	"github.com/aegisworks/aegis/internal/runner"
	"github.com/aegisworks/aegis/internal/vault"
)

// NewMCPServeCommand returns the mcp-serve subcommand.
func NewMCPServeCommand() *cli.Command {
	return &cli.Command{
		Name:   "mcp-serve",
		Usage:  "Expose the mission pipeline as an MCP server (stdio)",
		Action: runMCPServe,
	}
}

// storePipeline serves MCP tool calls straight from the shared stores.
// Missions it queues are picked up by a running daemon.
type storePipeline struct {
	store missions.Store
	vlt   *vault.Vault
}

func (p *storePipeline) Enqueue(prompt string, modality missions.Modality, origin string) (string, error) {
	m := &missions.Mission{
		Prompt:   prompt,
		Modality: modality,
		Origin:   origin,
	}
	if err := p.store.Create(m); err != nil {
		return "", err
	}
	return m.ID, nil
}

func (p *storePipeline) Observe() (*runner.Snapshot, error) {
	list, err := p.store.List(missions.ListFilter{})
	if err != nil {
		return nil, err
	}
	return &runner.Snapshot{
		Missions: list,
		Vault:    p.vlt.Snapshot(),
		Pending:  p.vlt.Pending(),
	}, nil
}

func runMCPServe(_ context.Context, cmd *cli.Command) error {
	// Log to stderr, stdout carries the MCP stdio transport
	level := slog.LevelWarn
	if cmd.Bool("debug") {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))

	cfg := loadConfig(cmd)

	ctx := context.Background()

	bus := events.NewBus(64)
	defer bus.Close()

	sqlStore, err := vault.OpenSQLStore(cfg.Vault.DB)
	if err != nil {
		return err
	}
	defer sqlStore.Close()

	vlt, err := vault.New(sqlStore, bus, nil)
	if err != nil {
		return err
	}

	pipeline := &storePipeline{store: newMissionStore(), vlt: vlt}

	server := aegismcp.NewMCPServer(pipeline, vlt)
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}
