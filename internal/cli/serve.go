package cli

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/matzehuels/rewritetree/pkg/cache"
	"github.com/matzehuels/rewritetree/pkg/errors"
	"github.com/matzehuels/rewritetree/pkg/graph"
	"github.com/matzehuels/rewritetree/pkg/tree"
)

const (
	defaultAddr     = "127.0.0.1:8080"
	shutdownTimeout = 5 * time.Second
	maxCommandBody  = 64 << 20
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	addr    string // listen address
	depth   int    // decompression depth (0 uses the configured depth)
	watch   bool   // replay FILE again when it changes
	archive bool   // archive every finished tree
}

// serveCommand creates the serve command. It exposes the store over HTTP
// and accepts producer commands on POST /commands.
func (c *CLI) serveCommand() *cobra.Command {
	opts := serveOpts{addr: defaultAddr}

	cmd := &cobra.Command{
		Use:   "serve [FILE]",
		Short: "Serve rewrite trees over HTTP",
		Long: `Serve starts an HTTP server around the tree store. Producers post JSON Lines
command streams to /commands; consumers read the current tree and its layout,
change the selection and hit-test points.

  GET  /tree       current tree as graph JSON
  GET  /layout     positioned visible nodes
  POST /select     select a node: {"path": "0.1", "depth": 2} or {"id": "n3"}
  GET  /hit?x=&y=  node under a point
  POST /commands   JSON Lines command stream
  GET  /history    ids of finished trees
  GET  /metrics    Prometheus metrics`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			file := ""
			if len(args) == 1 {
				file = args[0]
			}
			return c.runServe(cmd.Context(), file, opts)
		},
	}

	cmd.Flags().StringVar(&opts.addr, "addr", opts.addr, "listen address")
	cmd.Flags().IntVar(&opts.depth, "depth", 0, "decompression depth around the selection")
	cmd.Flags().BoolVar(&opts.watch, "watch", false, "replay FILE again when it changes")
	cmd.Flags().BoolVar(&opts.archive, "archive", false, "archive every finished tree")

	return cmd
}

func (c *CLI) runServe(ctx context.Context, file string, opts serveOpts) error {
	logger := loggerFromContext(ctx)
	if opts.watch && file == "" {
		return errors.New(errors.ErrCodeInvalidInput, "--watch needs a FILE")
	}

	m := newMetrics(newLogHooks(logger))
	m.register()

	var archive *cache.Archive
	if opts.archive {
		a, err := c.openArchive(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		archive = a
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s := c.startSession(ctx, opts.depth, func(t *tree.Tree) {
		if archive == nil {
			return
		}
		if _, err := archive.Save(ctx, t); err != nil {
			logger.Warn("archive failed", "id", t.ID(), "err", err)
		}
	})
	defer s.close()

	if file != "" {
		replay := func() {
			skipped, err := s.replay(ctx, file)
			if err != nil {
				logger.Error("replay failed", "path", file, "err", err)
				return
			}
			logger.Info("replayed", "path", file, "skipped", skipped)
		}
		replay()
		if opts.watch {
			if err := watchFile(ctx, file, logger, replay); err != nil {
				return err
			}
		}
	}

	srv := &http.Server{
		Addr:              opts.addr,
		Handler:           newServer(s, m, logger).routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() {
		logger.Info("listening", "addr", opts.addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	return ctx.Err()
}

// =============================================================================
// HTTP API
// =============================================================================

type server struct {
	sess    *session
	metrics *metrics
	logger  *log.Logger
}

func newServer(sess *session, m *metrics, logger *log.Logger) *server {
	return &server{sess: sess, metrics: m, logger: logger}
}

func (s *server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/tree", s.handleTree)
	r.Get("/layout", s.handleLayout)
	r.Post("/select", s.handleSelect)
	r.Get("/hit", s.handleHit)
	r.Post("/commands", s.handleCommands)
	r.Get("/history", s.handleHistory)
	if s.metrics != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{}))
	}
	return r
}

func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.logger.Debug("request", "method", r.Method, "path", r.URL.Path,
			"status", ww.Status(), "took", time.Since(start).Round(time.Microsecond))
	})
}

func (s *server) handleTree(w http.ResponseWriter, r *http.Request) {
	var g graph.Graph
	s.sess.store.View(func(t *tree.Tree) { g = graph.FromTree(t) })
	writeJSON(w, http.StatusOK, g)
}

func (s *server) handleLayout(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.layout())
}

func (s *server) layout() graph.Layout {
	var l graph.Layout
	s.sess.store.View(func(t *tree.Tree) { l = graph.LayoutFromTree(t) })
	return l
}

// selectRequest names a node by path or by graph node id.
type selectRequest struct {
	Path  string `json:"path,omitempty"`
	ID    string `json:"id,omitempty"`
	Depth int    `json:"depth,omitempty"`
}

func (s *server) handleSelect(w http.ResponseWriter, r *http.Request) {
	var req selectRequest
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&req); err != nil {
		writeError(w, errors.Wrap(errors.ErrCodeInvalidInput, err, "decode select request"))
		return
	}

	store := s.sess.store
	if req.ID != "" {
		var n *tree.Node
		store.View(func(t *tree.Tree) { n = graph.Lookup(t, req.ID) })
		if n == nil || !store.Select(n, req.Depth) {
			writeError(w, errors.New(errors.ErrCodeNodeNotFound, "no node %q", req.ID))
			return
		}
	} else {
		path, err := parsePath(req.Path)
		if err != nil {
			writeError(w, err)
			return
		}
		if _, err := store.SelectPath(path, req.Depth); err != nil {
			writeError(w, err)
			return
		}
	}
	writeJSON(w, http.StatusOK, s.layout())
}

// hitResponse describes the node under a point.
type hitResponse struct {
	ID    string `json:"id"`
	Path  string `json:"path"`
	Label string `json:"label"`
}

func (s *server) handleHit(w http.ResponseWriter, r *http.Request) {
	x, errX := strconv.ParseFloat(r.URL.Query().Get("x"), 64)
	y, errY := strconv.ParseFloat(r.URL.Query().Get("y"), 64)
	if errX != nil || errY != nil {
		writeError(w, errors.New(errors.ErrCodeInvalidInput, "x and y must be numbers"))
		return
	}

	var (
		resp hitResponse
		hit  bool
	)
	s.sess.store.View(func(t *tree.Tree) {
		n := t.DetectMouseOver(x, y)
		if n == nil {
			return
		}
		hit = true
		resp = hitResponse{ID: graph.IDs(t)[n], Path: formatPath(n.Path()), Label: n.Label}
	})
	if !hit {
		writeError(w, errors.New(errors.ErrCodeNodeNotFound, "no node at (%g, %g)", x, y))
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// commandsResponse reports the outcome of a posted command stream.
type commandsResponse struct {
	Skipped int    `json:"skipped"`
	Current string `json:"current"`
}

func (s *server) handleCommands(w http.ResponseWriter, r *http.Request) {
	body := http.MaxBytesReader(w, r.Body, maxCommandBody)
	skipped, err := s.sess.feed(r.Context(), body)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, commandsResponse{Skipped: skipped, Current: s.sess.store.Current().ID()})
}

func (s *server) handleHistory(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.sess.store.History())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeError(w http.ResponseWriter, err error) {
	code := errors.GetCode(err)
	status := http.StatusInternalServerError
	switch code {
	case errors.ErrCodeInvalidInput, errors.ErrCodeInvalidCommand, errors.ErrCodeInvalidPath:
		status = http.StatusBadRequest
	case errors.ErrCodeNodeNotFound, errors.ErrCodeNotFound:
		status = http.StatusNotFound
	case "":
		code = errors.ErrCodeInternal
	}
	writeJSON(w, status, errorResponse{Code: string(code), Message: errors.UserMessage(err)})
}
