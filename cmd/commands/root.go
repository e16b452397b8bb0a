// Package commands holds the Aegis CLI surface.
package commands

import (
	"github.com/urfave/cli/v3"

	"github.com/aegisworks/aegis/internal/config"
)

// NewRootCommand returns the top-level CLI command.
func NewRootCommand() *cli.Command {
	return &cli.Command{
		Name:  "aegis",
		Usage: "Autonomous mission pipeline with consensus verification",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to config file",
				Value:   config.ConfigPath(),
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "Enable debug logging",
			},
		},
		Commands: []*cli.Command{
			NewWakeCommand(),
			NewDaemonCommand(),
			NewSubmitCommand(),
			NewMissionsCommand(),
			NewVaultCommand(),
			NewStatusCommand(),
			NewMCPServeCommand(),
		},
	}
}
