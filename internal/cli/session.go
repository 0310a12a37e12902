package cli

import (
	"context"
	"io"
	"os"
	"strconv"
	"strings"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/rewritetree/pkg/dispatch"
	"github.com/matzehuels/rewritetree/pkg/errors"
	"github.com/matzehuels/rewritetree/pkg/protocol"
	"github.com/matzehuels/rewritetree/pkg/tree"
)

// session is one dispatcher running in the background, publishing to a
// store that consumers read from.
type session struct {
	store  *dispatch.Store
	disp   *dispatch.Dispatcher
	logger *log.Logger

	// feedMu keeps one command stream in the queue at a time, so
	// concurrent streams cannot interleave their trees.
	feedMu sync.Mutex
}

// startSession starts a dispatcher that publishes to a new store. onFinish
// runs on the dispatcher goroutine for every finished tree and may be nil.
func (c *CLI) startSession(ctx context.Context, depth int, onFinish func(*tree.Tree)) *session {
	s := &session{store: c.newStore(depth), logger: c.Logger}
	var opts []dispatch.Option
	if onFinish != nil {
		opts = append(opts, dispatch.WithOnFinish(onFinish))
	}
	s.disp = c.newDispatcher(s.store, opts...)
	go func() {
		if err := s.disp.Run(ctx); err != nil && err != context.Canceled {
			s.logger.Error("dispatcher stopped", "err", err)
		}
	}()
	return s
}

// replay sends every command in the file at path ("-" for stdin) and
// waits until all of them were applied. It returns the number of
// malformed lines that were skipped.
func (s *session) replay(ctx context.Context, path string) (int, error) {
	r, err := openInput(path)
	if err != nil {
		return 0, err
	}
	defer r.Close()
	return s.feed(ctx, r)
}

// feed sends every command read from r and waits until all of them were
// applied. Concurrent calls are serialized.
func (s *session) feed(ctx context.Context, r io.Reader) (int, error) {
	s.feedMu.Lock()
	defer s.feedMu.Unlock()
	skipped, err := s.disp.Feed(ctx, protocol.NewReader(r))
	if err != nil {
		return skipped, err
	}
	return skipped, s.disp.Flush(ctx)
}

// close stops the dispatcher after the queued commands were applied.
func (s *session) close() {
	s.disp.Close()
	<-s.disp.Done()
}

func openInput(path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "open %s", path)
	}
	return f, nil
}

// parsePath parses a dot-separated list of child indices such as "0.2.1".
// The empty string and "root" name the root.
func parsePath(s string) ([]int, error) {
	s = strings.TrimSpace(s)
	if s == "" || s == "root" {
		return nil, nil
	}
	parts := strings.Split(s, ".")
	path := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n < 0 {
			return nil, errors.New(errors.ErrCodeInvalidPath, "invalid path %q: %q is not a child index", s, p)
		}
		path[i] = n
	}
	return path, nil
}

// formatPath is the inverse of parsePath.
func formatPath(path []int) string {
	if len(path) == 0 {
		return "root"
	}
	parts := make([]string, len(path))
	for i, n := range path {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ".")
}
