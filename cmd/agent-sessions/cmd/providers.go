package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ovachiever/agent-sessions/internal/config"
	"github.com/ovachiever/agent-sessions/internal/output"
)

func newProvidersCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "providers",
		Short: "List AI coding assistant harnesses and their availability",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runProviders(cmd)
		},
	}
}

func runProviders(cmd *cobra.Command) error {
	out := output.New(cmd.OutOrStdout())

	cfg, err := config.Load(".")
	if err != nil {
		cfg = config.NewConfig()
	}
	registry := buildRegistry(cfg)

	for _, p := range registry.All() {
		icon := "✗"
		if p.IsAvailable() {
			icon = "✓"
		}
		out.Statusf(icon, "%-14s %s", p.Name(), p.DisplayName())
	}
	return nil
}
