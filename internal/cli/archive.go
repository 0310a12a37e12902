package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/matzehuels/rewritetree/pkg/cache"
	"github.com/matzehuels/rewritetree/pkg/config"
	"github.com/matzehuels/rewritetree/pkg/tree"
)

// archiveCommand creates the archive management command.
func (c *CLI) archiveCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Manage archived rewrite trees",
	}

	cmd.AddCommand(c.archiveListCommand())
	cmd.AddCommand(c.archiveShowCommand())
	cmd.AddCommand(c.archiveRemoveCommand())
	cmd.AddCommand(c.archiveClearCommand())
	cmd.AddCommand(c.archivePathCommand())

	return cmd
}

// archiveListCommand creates the "archive list" subcommand.
func (c *CLI) archiveListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archived trees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.openArchive(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			keys, err := a.List(ctx)
			if err != nil {
				return err
			}
			if len(keys) == 0 {
				printInfo("Archive is empty")
				return nil
			}

			rows := make([][]string, 0, len(keys))
			for _, key := range keys {
				t, err := a.Load(ctx, key)
				if err != nil {
					loggerFromContext(ctx).Warn("skipping unreadable entry", "key", key, "err", err)
					continue
				}
				rows = append(rows, []string{cache.TreeID(key), firstLine(t.Root().Label), strconv.Itoa(t.NodeCount())})
			}

			headerStyle := lipgloss.NewStyle().Foreground(colorGray).Bold(true)
			tbl := table.New().
				Border(lipgloss.RoundedBorder()).
				BorderStyle(lipgloss.NewStyle().Foreground(colorDim)).
				Headers("ID", "Root", "Nodes").
				Rows(rows...).
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == -1 {
						return headerStyle
					}
					if col == 2 {
						return lipgloss.NewStyle().Foreground(colorCyan)
					}
					return lipgloss.NewStyle().Foreground(colorWhite)
				})
			fmt.Println(tbl.Render())
			printDetail("%d trees", len(rows))
			return nil
		},
	}
}

// archiveShowCommand creates the "archive show" subcommand. It prints the
// summary of an archived tree and can export it like replay does.
func (c *CLI) archiveShowCommand() *cobra.Command {
	var (
		export     exportOpts
		selectPath string
		depth      int
	)
	cmd := &cobra.Command{
		Use:   "show KEY",
		Short: "Show or export an archived tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			target, err := parsePath(selectPath)
			if err != nil {
				return err
			}
			a, err := c.openArchive(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			t, err := a.Load(ctx, args[0], c.treeOptions()...)
			if err != nil {
				return err
			}
			store := c.newStore(depth)
			store.Publish(t)
			if _, err := store.SelectPath(target, depth); err != nil {
				return err
			}

			printSuccess("%s %s", StyleHighlight.Render(firstLine(t.Root().Label)), StyleDim.Render(t.ID()))
			var visible int
			store.View(func(t *tree.Tree) { visible = t.Visible() })
			printStats(t.NodeCount(), visible, true)
			return writeExports(store.View, export)
		},
	}

	cmd.Flags().StringVar(&selectPath, "select", "", "select the node at this path (e.g. 0.2.1) before exporting")
	cmd.Flags().IntVar(&depth, "depth", 0, "decompression depth around the selection")
	cmd.Flags().StringVar(&export.json, "json", "", "write the tree as graph JSON")
	cmd.Flags().StringVar(&export.layout, "layout", "", "write the layout as JSON")
	cmd.Flags().StringVar(&export.dot, "dot", "", "write the tree as Graphviz DOT")
	cmd.Flags().StringVar(&export.svg, "svg", "", "render the tree as SVG")
	cmd.Flags().BoolVar(&export.visibleOnly, "visible", false, "only draw the nodes visible at the selection")
	return cmd
}

// archiveRemoveCommand creates the "archive rm" subcommand.
func (c *CLI) archiveRemoveCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "rm KEY...",
		Short: "Remove archived trees",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.openArchive(ctx)
			if err != nil {
				return err
			}
			defer a.Close()
			for _, key := range args {
				if err := a.Delete(ctx, key); err != nil {
					printError("Could not remove %s", key)
					return err
				}
			}
			printSuccess("Removed %d trees", len(args))
			return nil
		},
	}
}

// archiveClearCommand creates the "archive clear" subcommand.
func (c *CLI) archiveClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove all archived trees",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := c.openArchive(ctx)
			if err != nil {
				return err
			}
			defer a.Close()

			count, err := clearArchive(ctx, a)
			if err != nil {
				printError("Could not clear archive")
				return err
			}
			if count == 0 {
				printInfo("Archive is empty")
				return nil
			}
			printSuccess("Cleared %d archived trees", count)
			if loc, err := archiveLocation(c.config().Archive); err == nil {
				printDetail("Location: %s", loc)
			}
			return nil
		},
	}
}

func clearArchive(ctx context.Context, a *cache.Archive) (int, error) {
	keys, err := a.List(ctx)
	if err != nil {
		return 0, err
	}
	for _, key := range keys {
		if err := a.Delete(ctx, key); err != nil {
			return 0, err
		}
	}
	if fc, ok := a.Cache().(*cache.FileCache); ok {
		if err := fc.Clear(); err != nil {
			return 0, err
		}
	}
	return len(keys), nil
}

// archivePathCommand creates the "archive path" subcommand.
func (c *CLI) archivePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print where trees are archived",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := c.config().Archive
			loc, err := archiveLocation(cfg)
			if err != nil {
				return fmt.Errorf("get archive location: %w", err)
			}
			printKeyValue("backend", cfg.Backend)
			printKeyValue("location", loc)
			return nil
		},
	}
}

// archiveLocation describes where the configured backend keeps its data.
func archiveLocation(cfg config.Archive) (string, error) {
	switch cfg.Backend {
	case config.BackendNone:
		return "(archiving disabled)", nil
	case config.BackendRedis:
		return "redis://" + cfg.RedisAddr, nil
	case config.BackendBolt:
		if cfg.Path != "" {
			return cfg.Path, nil
		}
		dir, err := cacheDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "archive.db"), nil
	default:
		if cfg.Dir != "" {
			return cfg.Dir, nil
		}
		dir, err := cacheDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(dir, "trees"), nil
	}
}
