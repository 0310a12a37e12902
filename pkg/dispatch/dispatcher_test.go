package dispatch

import (
	"context"
	stderrors "errors"
	"io"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/rewritetree/pkg/builder"
	"github.com/matzehuels/rewritetree/pkg/protocol"
	"github.com/matzehuels/rewritetree/pkg/tree"
)

func startDispatcher(t *testing.T, opts ...Option) (*Dispatcher, *builder.Builder, *Store) {
	t.Helper()
	logger := log.New(io.Discard)
	b := builder.New(builder.WithLogger(logger))
	s := newTestStore()
	opts = append([]Option{WithLogger(logger)}, opts...)
	d := New(b, s, opts...)

	ctx, cancel := context.WithCancel(context.Background())
	go d.Run(ctx)
	t.Cleanup(func() {
		cancel()
		<-d.Done()
	})
	return d, b, s
}

func send(t *testing.T, d *Dispatcher, cmds ...protocol.Command) {
	t.Helper()
	for _, cmd := range cmds {
		if err := d.Send(context.Background(), cmd); err != nil {
			t.Fatalf("Send(%v): %v", cmd, err)
		}
	}
}

func TestDispatcherPublishesFinishedTrees(t *testing.T) {
	var finished []string
	d, _, s := startDispatcher(t, WithOnFinish(func(tr *tree.Tree) {
		finished = append(finished, tr.Root().Label)
	}))

	send(t, d,
		protocol.NewTree{Label: "first"},
		protocol.AddChild{Label: "x"},
		protocol.FinishTree{},
		protocol.NewTree{Label: "second"},
		protocol.AddChild{Label: "y", Comment: true},
		protocol.AddChild{Label: "z"},
		protocol.FinishTree{},
	)
	if err := d.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}

	cur := s.Current()
	if cur.Root().Label != "second" || cur.Root().Len() != 2 {
		t.Errorf("current = %q with %d children", cur.Root().Label, cur.Root().Len())
	}
	if len(s.History()) != 2 {
		t.Errorf("History() = %v", s.History())
	}
	if strings.Join(finished, ",") != "first,second" {
		t.Errorf("finished = %v", finished)
	}
}

func TestDispatcherSerializesProducers(t *testing.T) {
	d, b, s := startDispatcher(t)
	send(t, d, protocol.NewTree{Label: "root"})

	const producers, perProducer = 8, 50
	var wg sync.WaitGroup
	for range producers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perProducer {
				if err := d.Send(context.Background(), protocol.AddChild{Label: "n"}); err != nil {
					t.Error(err)
					return
				}
			}
		}()
	}
	wg.Wait()
	if err := d.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got, want := b.NodeCount(), 1+producers*perProducer; got != want {
		t.Errorf("NodeCount() = %d, want %d", got, want)
	}

	send(t, d, protocol.FinishTree{})
	if err := d.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if got := s.Current().Root().Len(); got != producers*perProducer {
		t.Errorf("root has %d children, want %d", got, producers*perProducer)
	}
}

func TestDispatcherFinishWithoutTree(t *testing.T) {
	d, _, s := startDispatcher(t)
	send(t, d, protocol.FinishTree{})
	if err := d.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if s.Current().ID() != "welcome" {
		t.Error("a stray FinishTree should not publish anything")
	}
}

func TestDispatcherClose(t *testing.T) {
	logger := log.New(io.Discard)
	s := newTestStore()
	d := New(builder.New(builder.WithLogger(logger)), s, WithLogger(logger), WithCapacity(4))

	send(t, d, protocol.NewTree{Label: "queued"}, protocol.FinishTree{})
	d.Close()
	d.Close()

	if err := d.Send(context.Background(), protocol.PushScope{}); !stderrors.Is(err, ErrClosed) {
		t.Errorf("Send after Close = %v, want ErrClosed", err)
	}
	if err := d.Run(context.Background()); err != nil {
		t.Fatalf("Run() = %v, want nil after Close", err)
	}
	if s.Current().Root().Label != "queued" {
		t.Error("commands queued before Close should be applied")
	}
	if err := d.Flush(context.Background()); !stderrors.Is(err, ErrClosed) {
		t.Errorf("Flush after Close = %v, want ErrClosed", err)
	}
}

func TestDispatcherSendCanceled(t *testing.T) {
	logger := log.New(io.Discard)
	d := New(builder.New(builder.WithLogger(logger)), newTestStore(), WithLogger(logger), WithCapacity(1))
	send(t, d, protocol.PushScope{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := d.Send(ctx, protocol.PopScope{}); !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Send on a full queue = %v, want DeadlineExceeded", err)
	}
}

func TestDispatcherFeed(t *testing.T) {
	d, _, s := startDispatcher(t)
	stream := strings.Join([]string{
		`{"op":"new","label":"fed"}`,
		`{"op":"add","label":"ok"}`,
		`{"op":"nope"}`,
		`not json`,
		`{"op":"finish"}`,
	}, "\n")

	skipped, err := d.Feed(context.Background(), protocol.NewReader(strings.NewReader(stream)))
	if err != nil {
		t.Fatal(err)
	}
	if skipped != 2 {
		t.Errorf("skipped = %d, want 2", skipped)
	}
	if err := d.Flush(context.Background()); err != nil {
		t.Fatal(err)
	}
	if root := s.Current().Root(); root.Label != "fed" || root.Len() != 1 {
		t.Errorf("current = %q with %d children", root.Label, root.Len())
	}
}

func TestAnimatorSettles(t *testing.T) {
	s := newTestStore()
	var frames atomic.Int32
	a := NewAnimator(s, 500, func(*tree.Tree) { frames.Add(1) })

	ctx, cancel := context.WithCancel(context.Background())
	errc := make(chan error, 1)
	go func() { errc <- a.Run(ctx) }()

	tr := chain("anim")
	s.Publish(tr)

	deadline := time.Now().Add(5 * time.Second)
	for {
		settled := false
		s.View(func(t *tree.Tree) { settled = t.Settled() })
		if settled && frames.Load() > 0 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("animation did not settle")
		}
		time.Sleep(5 * time.Millisecond)
	}

	// An idle animator produces no frames.
	idle := frames.Load()
	time.Sleep(50 * time.Millisecond)
	if got := frames.Load(); got != idle {
		t.Errorf("frames advanced from %d to %d while idle", idle, got)
	}

	a.Wake()
	deadline = time.Now().Add(5 * time.Second)
	for frames.Load() == idle {
		if time.Now().After(deadline) {
			t.Fatal("Wake did not produce a frame")
		}
		time.Sleep(5 * time.Millisecond)
	}

	cancel()
	if err := <-errc; !stderrors.Is(err, context.Canceled) {
		t.Errorf("Run() = %v, want context.Canceled", err)
	}
}
