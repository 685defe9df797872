package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	app "github.com/kode4food/walkthrough"
	"github.com/kode4food/walkthrough/internal/config"
	"github.com/kode4food/walkthrough/internal/recipes"
	"github.com/kode4food/walkthrough/internal/recipes/balance"
	"github.com/kode4food/walkthrough/pkg/api"
	"github.com/kode4food/walkthrough/pkg/log"
	"github.com/kode4food/walkthrough/pkg/workflow"
)

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   app.Name,
		Short: "Step through live API walkthroughs",
		Long: `
Walkthrough runs recipes: ordered sequences of explanatory content and live
API calls, where each step feeds the values it received to the steps after
it. Runs can be driven from the terminal or through the HTTP service.
`,
		Example: `
	# List the steps of the Tink balance check
	walkthrough steps tink-balance-check

	# Run it against the sandbox, pausing before each step
	TINK_CLIENT_ID=... TINK_CLIENT_SECRET=... walkthrough run --pause

	# Serve sessions over HTTP
	walkthrough serve
`,
		Version:       app.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(newServeCmd())
	cmd.AddCommand(newRunCmd())
	cmd.AddCommand(newStepsCmd())

	return cmd
}

func newStepsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "steps [recipe]",
		Short: "List the steps of a recipe, or every recipe",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			portal := workflow.PortalMap(cfg.Tink.Settings())
			return listSteps(
				cmd.Context(), cmd.OutOrStdout(), recipes.Builtin(), portal,
				args...,
			)
		},
	}
}

func listSteps(
	ctx context.Context, w io.Writer, reg *recipes.Registry,
	portal workflow.Portal, ids ...string,
) error {
	list := reg.List()
	if len(ids) > 0 {
		rec, err := reg.Get(api.RecipeID(ids[0]))
		if err != nil {
			return err
		}
		list = []*recipes.Recipe{rec}
	}

	for _, rec := range list {
		info, err := rec.Info(ctx, portal)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(w, "%s (%s)\n", info.Title, info.ID)
		for i, step := range info.Steps {
			_, _ = fmt.Fprintf(w, "  %d. %s: %s\n", i+1, step.ID, step.Name)
		}
	}
	return nil
}

func recipeArg(args []string) api.RecipeID {
	if len(args) == 0 {
		return balance.ID
	}
	return api.RecipeID(args[0])
}

func loadConfig() (*config.Config, error) {
	cfg := config.NewDefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the process logger. Terminal runs write logs to stderr
// so stdout carries only the walkthrough itself
func newLogger(cfg *config.Config, w io.Writer) *slog.Logger {
	level := log.ParseLevel(cfg.LogLevel)
	logger := log.NewWithWriter(w, app.Name, os.Getenv("ENV"), app.Version,
		level,
	)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level)
	return logger
}
