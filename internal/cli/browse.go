package cli

import (
	"context"
	"io"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/matzehuels/rewritetree/pkg/dispatch"
	"github.com/matzehuels/rewritetree/pkg/errors"
	"github.com/matzehuels/rewritetree/pkg/tree"
)

// browseOpts holds the command-line flags for the browse command.
type browseOpts struct {
	depth   int    // decompression depth (0 uses the configured depth)
	watch   bool   // replay FILE again when it changes
	logFile string // where to write logs while the browser owns the terminal
}

// browseCommand creates the browse command. It opens the interactive tree
// browser on a command file or an archived tree.
func (c *CLI) browseCommand() *cobra.Command {
	var opts browseOpts

	cmd := &cobra.Command{
		Use:   "browse FILE|KEY",
		Short: "Explore a rewrite tree in the terminal",
		Long: `Browse replays a command file, or loads an archived tree by key, and opens an
interactive browser on the last finished tree. Moving the selection expands the
tree around it; nodes further away than the depth are shown compressed.`,
		Example: `  rewritetree browse trace.jsonl --watch
  rewritetree browse 3f0c1d2e-8a4b-4c5d-9e6f-7a8b9c0d1e2f`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runBrowse(cmd.Context(), args[0], opts)
		},
	}

	cmd.Flags().IntVar(&opts.depth, "depth", 0, "decompression depth around the selection")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "replay FILE again when it changes")
	cmd.Flags().StringVar(&opts.logFile, "log", "", "write logs to this file while browsing")

	return cmd
}

func (c *CLI) runBrowse(ctx context.Context, arg string, opts browseOpts) error {
	logger := loggerFromContext(ctx)
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var store *dispatch.Store
	if _, err := os.Stat(arg); err == nil {
		s := c.startSession(ctx, opts.depth, nil)
		defer s.close()

		sp := newSpinnerWithContext(ctx, "Replaying "+arg)
		sp.Start()
		skipped, err := s.replay(ctx, arg)
		sp.Stop()
		if err != nil {
			return err
		}
		if skipped > 0 {
			logger.Warn("skipped malformed lines", "path", arg, "count", skipped)
		}
		if opts.watch {
			err := watchFile(ctx, arg, logger, func() {
				if _, err := s.replay(ctx, arg); err != nil {
					logger.Error("replay failed", "path", arg, "err", err)
				}
			})
			if err != nil {
				return err
			}
		}
		store = s.store
	} else {
		if opts.watch {
			return errors.New(errors.ErrCodeInvalidInput, "--watch needs a FILE, %q is not one", arg)
		}
		a, err := c.openArchive(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		t, err := a.Load(ctx, arg, c.treeOptions()...)
		if err != nil {
			return err
		}
		store = c.newStore(opts.depth)
		store.Publish(t)
	}

	// The browser owns the terminal; logs go to --log or nowhere.
	var logOut io.Writer = io.Discard
	if opts.logFile != "" {
		f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			return err
		}
		defer f.Close()
		logOut = f
	}
	logger.SetOutput(logOut)
	defer logger.SetOutput(os.Stderr)

	frames := make(chan struct{}, 1)
	anim := dispatch.NewAnimator(store, c.config().Render.FPS, func(*tree.Tree) {
		select {
		case frames <- struct{}{}:
		default:
		}
	})
	go anim.Run(ctx)
	anim.Wake()

	p := tea.NewProgram(
		NewBrowseModel(store, frames, appName+" browse "+arg),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
		tea.WithContext(ctx),
	)
	_, err := p.Run()
	return err
}
