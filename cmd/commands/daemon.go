package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v3"
	"google.golang.org/genai"

	"github.com/aegisworks/aegis/internal/capability"
	"github.com/aegisworks/aegis/internal/config"
	"github.com/aegisworks/aegis/internal/events"
	"github.com/aegisworks/aegis/internal/gateway"
	"github.com/aegisworks/aegis/internal/missions"
	"github.com/aegisworks/aegis/internal/models"
	"github.com/aegisworks/aegis/internal/pipeline"
	"github.com/aegisworks/aegis/internal/runner"
	"github.com/aegisworks/aegis/internal/scheduler"
	"github.com/aegisworks/aegis/internal/vault"
)

// NewDaemonCommand returns the daemon subcommand.
func NewDaemonCommand() *cli.Command {
	return &cli.Command{
		Name:  "daemon",
		Usage: "Start the Aegis daemon: runner, scheduler and gateway",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "host",
				Usage: "Host to listen on",
			},
			&cli.IntFlag{
				Name:  "port",
				Usage: "Port to listen on",
			},
			&cli.BoolFlag{
				Name:  "manual",
				Usage: "Start with autonomous mode off",
			},
		},
		Action: runDaemon,
	}
}

func runDaemon(_ context.Context, cmd *cli.Command) error {
	if cmd.Bool("debug") {
		slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelDebug})))
	}

	cfg := loadConfig(cmd)

	// CLI flags override config
	if cmd.IsSet("host") {
		cfg.Gateway.Host = cmd.String("host")
	}
	if cmd.IsSet("port") {
		cfg.Gateway.Port = int(cmd.Int("port"))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	// Event bus
	bus := events.NewBus(cfg.Events.BufferSize)
	defer bus.Close()

	// Artifact vault, persisted in SQLite
	sqlStore, err := vault.OpenSQLStore(cfg.Vault.DB)
	if err != nil {
		return fmt.Errorf("open vault db: %w", err)
	}
	defer sqlStore.Close()

	vlt, err := vault.New(sqlStore, bus, nil)
	if err != nil {
		return fmt.Errorf("init vault: %w", err)
	}

	// Model registry and media client
	registry := models.NewRegistry(cfg.Models)

	apiKey := os.Getenv("GEMINI_API_KEY")
	if apiKey == "" {
		apiKey = os.Getenv("GOOGLE_API_KEY")
	}
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return fmt.Errorf("init genai client: %w", err)
	}

	if err := capability.ValidateRoles(); err != nil {
		return err
	}
	engine := capability.NewEngine(client, registry, capability.EngineOptions{}, nil)

	// Mission store
	store := missions.NewFileStore(filepath.Join(config.AegisPath(), "missions"))

	// Persist every stage result into the mission log
	onStep := func(missionID string, res pipeline.StepResult) {
		entry := missions.LogEntry{
			Ts:      res.Timestamp,
			Role:    string(res.Role),
			Status:  string(res.Status),
			Content: res.Content,
		}
		if err := store.AppendLog(missionID, entry); err != nil {
			slog.Error("append mission log", "mission", missionID, "error", err)
		}
	}

	sm := pipeline.NewStateMachine(
		pipeline.NewStageExecutor(engine, nil),
		cfg.Pipeline.MaxRetries,
		cfg.Pipeline.ScoreThreshold,
		bus, onStep, nil)

	rn := runner.New(store, sm, vlt, bus, cfg.Pipeline.TickInterval.Duration(), nil)
	rn.Start(ctx)
	defer rn.Stop()
	rn.SetAutonomous(!cmd.Bool("manual"))

	// Scheduler
	sched, err := scheduler.New(cfg.Schedules, rn, bus, nil)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	sched.Start()
	defer sched.Stop()

	// Gateway server
	server := gateway.NewServer(bus, store, rn, vlt, cfg.Gateway.Host, cfg.Gateway.Port)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		slog.Info("shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// loadConfig loads the config file named by the --config flag, falling
// back to defaults when it is missing.
func loadConfig(cmd *cli.Command) *config.Config {
	configPath := cmd.String("config")
	cfg, err := config.Load(configPath)
	if err != nil {
		slog.Warn("config not found, using defaults", "path", configPath, "error", err)
		cfg = &config.Config{}
		cfg.Gateway.Host = "127.0.0.1"
		cfg.Gateway.Port = 18700
		cfg.Events.BufferSize = 1024
		cfg.Pipeline.MaxRetries = 2
		cfg.Pipeline.ScoreThreshold = 100
		cfg.Pipeline.TickInterval = config.Duration(time.Second)
		cfg.Vault.DB = filepath.Join(config.AegisPath(), "vault.db")
	}
	return cfg
}
