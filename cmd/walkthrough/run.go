package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/kode4food/walkthrough/internal/catalog"
	"github.com/kode4food/walkthrough/internal/client"
	"github.com/kode4food/walkthrough/internal/host"
	"github.com/kode4food/walkthrough/internal/recipes"
	"github.com/kode4food/walkthrough/pkg/api"
	"github.com/kode4food/walkthrough/pkg/log"
	"github.com/kode4food/walkthrough/pkg/workflow"
)

type runOptions struct {
	baseURL string
	timeout time.Duration
	pause   bool
}

var ErrStepNotAdvanced = errors.New("step did not advance")

func newRunCmd() *cobra.Command {
	opts := &runOptions{}
	cmd := &cobra.Command{
		Use:   "run [recipe]",
		Short: "Run a recipe in the terminal, calling the live API",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRecipe(cmd, recipeArg(args), opts)
		},
	}

	cmd.Flags().StringVar(&opts.baseURL, "base-url", "",
		"API base URL, overriding TINK_BASE_URL and the bundled document")
	cmd.Flags().DurationVar(&opts.timeout, "timeout", 0,
		"per-request timeout, overriding STEP_TIMEOUT")
	cmd.Flags().BoolVar(&opts.pause, "pause", false,
		"wait for Enter before each step, and retry a step that failed")

	return cmd
}

func runRecipe(cmd *cobra.Command, id api.RecipeID, opts *runOptions) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := newLogger(cfg, cmd.ErrOrStderr())
	if opts.baseURL != "" {
		cfg.Tink.BaseURL = opts.baseURL
	}
	if opts.timeout > 0 {
		cfg.StepTimeout = opts.timeout
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	cat, err := catalog.Tink(ctx, catalog.WithBaseURL(cfg.Tink.BaseURL))
	if err != nil {
		return err
	}

	portal := workflow.PortalMap(cfg.Tink.Settings())
	def, err := recipes.Builtin().Build(ctx, id, portal)
	if err != nil {
		return err
	}

	term := newTerminal(cmd.OutOrStdout())
	h := host.New(cat, client.NewHTTPClient(cfg.StepTimeout, logger),
		host.WithObserver(term),
		host.WithLogger(logger),
	)
	r, err := workflow.NewRunner(def, h,
		workflow.WithPortal(portal),
		workflow.WithLogger(logger.With(log.RecipeID(id))),
	)
	if err != nil {
		return err
	}

	var in *bufio.Reader
	if opts.pause {
		in = bufio.NewReader(cmd.InOrStdin())
	}
	return drive(ctx, r, h, term, in)
}

// drive attempts steps until the run completes. Without a reader the first
// step that does not advance ends the run
func drive(
	ctx context.Context, r *workflow.Runner, h *host.Host, term *terminal,
	in *bufio.Reader,
) error {
	for !r.Done() {
		spec, _ := r.Current()
		if in != nil {
			term.prompt(spec)
			if _, err := in.ReadString('\n'); err != nil {
				if errors.Is(err, io.EOF) {
					return nil
				}
				return err
			}
		}

		out, err := r.Next(ctx)
		if err != nil {
			return err
		}
		h.Recorded(ctx, out, r.Progress())
		if out.Advanced() {
			continue
		}

		term.outcome(out)
		if in == nil {
			return fmt.Errorf("%w: %s: %s", ErrStepNotAdvanced,
				out.StepID, out.Status)
		}
	}
	return nil
}
