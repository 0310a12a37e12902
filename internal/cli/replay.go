package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/matzehuels/rewritetree/pkg/cache"
	"github.com/matzehuels/rewritetree/pkg/errors"
	"github.com/matzehuels/rewritetree/pkg/graph"
	"github.com/matzehuels/rewritetree/pkg/render/nodelink"
	"github.com/matzehuels/rewritetree/pkg/tree"
)

// replayOpts holds the command-line flags for the replay command.
type replayOpts struct {
	selectPath string // node to select before exporting, as child indices
	depth      int    // decompression depth (0 uses the configured depth)
	archive    bool   // archive every finished tree
	export     exportOpts
}

// exportOpts names the files the last finished tree is written to.
type exportOpts struct {
	json        string  // node-link graph JSON
	layout      string  // positioned visible nodes JSON
	dot         string  // Graphviz DOT
	svg         string  // node-link SVG
	pdf         string  // node-link PDF (requires rsvg-convert)
	png         string  // node-link PNG (requires rsvg-convert)
	scale       float64 // PNG scale factor
	visibleOnly bool    // restrict diagrams to the visible nodes
	properties  bool    // include node properties in diagram labels
}

func (o exportOpts) any() bool {
	return o.json != "" || o.layout != "" || o.dot != "" || o.svg != "" || o.pdf != "" || o.png != ""
}

// replayCommand creates the replay command. It streams a command file
// through the builder, prints a summary for every finished tree and
// exports the last one.
func (c *CLI) replayCommand() *cobra.Command {
	var opts replayOpts

	cmd := &cobra.Command{
		Use:   "replay FILE",
		Short: "Build rewrite trees from a command file",
		Long: `Replay reads a JSON Lines command stream (use - for stdin), builds the rewrite
trees it describes and prints a summary for each finished tree. The last
finished tree can be exported as graph JSON, layout JSON, DOT, SVG, PDF or PNG.`,
		Example: `  rewritetree replay trace.jsonl
  rewritetree replay trace.jsonl --select 0.1 --depth 3 --svg tree.svg
  engine --trace | rewritetree replay - --archive`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runReplay(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVar(&opts.selectPath, "select", "", "select the node at this path (e.g. 0.2.1) before exporting")
	cmd.Flags().IntVar(&opts.depth, "depth", 0, "decompression depth around the selection")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "archive every finished tree")
	cmd.Flags().StringVar(&opts.export.json, "json", "", "write the last tree as graph JSON")
	cmd.Flags().StringVar(&opts.export.layout, "layout", "", "write the layout of the last tree as JSON")
	cmd.Flags().StringVar(&opts.export.dot, "dot", "", "write the last tree as Graphviz DOT")
	cmd.Flags().StringVar(&opts.export.svg, "svg", "", "render the last tree as SVG")
	cmd.Flags().StringVar(&opts.export.pdf, "pdf", "", "render the last tree as PDF")
	cmd.Flags().StringVar(&opts.export.png, "png", "", "render the last tree as PNG")
	cmd.Flags().Float64Var(&opts.export.scale, "scale", 2, "PNG scale factor")
	cmd.Flags().BoolVar(&opts.export.visibleOnly, "visible", false, "only draw the nodes visible at the selection")
	cmd.Flags().BoolVar(&opts.export.properties, "properties", false, "include node properties in diagram labels")

	return cmd
}

func (c *CLI) runReplay(cmd *cobra.Command, path string, opts replayOpts) error {
	ctx := cmd.Context()
	logger := loggerFromContext(ctx)

	target, err := parsePath(opts.selectPath)
	if err != nil {
		return err
	}

	var archive *cache.Archive
	if opts.archive {
		if archive, err = c.openArchive(ctx); err != nil {
			return err
		}
		defer archive.Close()
	}

	var (
		s        *session
		finished int
		lastKey  string
	)
	s = c.startSession(ctx, opts.depth, func(t *tree.Tree) {
		finished++
		archived := false
		if archive != nil {
			key, err := archive.Save(ctx, t)
			if err != nil {
				logger.Warn("archive failed", "id", t.ID(), "err", err)
			} else {
				archived, lastKey = true, key
			}
		}
		var visible int
		s.store.View(func(*tree.Tree) { visible = t.Visible() })
		printSuccess("%s %s", StyleHighlight.Render(t.Root().Label), StyleDim.Render(t.ID()))
		printStats(t.NodeCount(), visible, archived)
	})

	prog := newProgress(logger)
	skipped, err := s.replay(ctx, path)
	s.close()
	if err != nil {
		return err
	}
	prog.done(fmt.Sprintf("Replayed %s", path))
	printSkipped(skipped)

	if finished == 0 {
		if opts.export.any() || opts.selectPath != "" {
			return errors.New(errors.ErrCodeNoTree, "%s did not finish a tree", path)
		}
		printWarning("%s did not finish a tree", path)
		return nil
	}

	if target != nil {
		n, err := s.store.SelectPath(target, opts.depth)
		if err != nil {
			return err
		}
		printInfo("Selected %s", StyleValue.Render(n.Label))
	}

	if err := writeExports(s.store.View, opts.export); err != nil {
		return err
	}
	if lastKey != "" {
		printNextStep("Browse the last tree", fmt.Sprintf("%s browse %s", appName, cache.TreeID(lastKey)))
	}
	return nil
}

// writeExports writes the current tree to every file named in opts. view
// runs its argument with exclusive access to the tree.
func writeExports(view func(func(*tree.Tree)), opts exportOpts) error {
	var err error
	view(func(t *tree.Tree) { err = exportTree(t, opts) })
	return err
}

func exportTree(t *tree.Tree, opts exportOpts) error {
	if opts.json != "" {
		if err := graph.WriteGraphFile(t, opts.json); err != nil {
			return fmt.Errorf("write %s: %w", opts.json, err)
		}
		printFile(opts.json)
	}
	if opts.layout != "" {
		if err := graph.WriteLayoutFile(graph.LayoutFromTree(t), opts.layout); err != nil {
			return fmt.Errorf("write %s: %w", opts.layout, err)
		}
		printFile(opts.layout)
	}

	dot := nodelink.ToDOT(t, nodelink.Options{VisibleOnly: opts.visibleOnly, Properties: opts.properties})
	renders := []struct {
		path   string
		render func() ([]byte, error)
	}{
		{opts.dot, func() ([]byte, error) { return []byte(dot), nil }},
		{opts.svg, func() ([]byte, error) { return nodelink.RenderSVG(dot) }},
		{opts.pdf, func() ([]byte, error) { return nodelink.RenderPDF(dot) }},
		{opts.png, func() ([]byte, error) { return nodelink.RenderPNG(dot, opts.scale) }},
	}
	for _, r := range renders {
		if r.path == "" {
			continue
		}
		data, err := r.render()
		if err != nil {
			return fmt.Errorf("render %s: %w", r.path, err)
		}
		if err := os.WriteFile(r.path, data, 0644); err != nil {
			return err
		}
		printFile(r.path)
	}
	return nil
}
