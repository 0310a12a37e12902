package dispatch

import (
	"context"
	stderrors "errors"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/rewritetree/pkg/builder"
	"github.com/matzehuels/rewritetree/pkg/errors"
	"github.com/matzehuels/rewritetree/pkg/protocol"
	"github.com/matzehuels/rewritetree/pkg/tree"
)

// DefaultCapacity is the default number of commands the queue buffers.
const DefaultCapacity = 256

// ErrClosed is returned when sending to a closed dispatcher.
var ErrClosed = stderrors.New("dispatcher closed")

// Dispatcher is the single consumer of producer commands. Any number of
// goroutines may Send; only [Dispatcher.Run] touches the builder, so
// commands are applied one at a time in the order they were queued.
type Dispatcher struct {
	builder *builder.Builder
	store   *Store
	logger  *log.Logger

	queue    chan envelope
	closed   chan struct{}
	done     chan struct{}
	once     sync.Once
	onFinish func(*tree.Tree)
}

type envelope struct {
	cmd     protocol.Command
	barrier chan struct{}
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithCapacity sets the queue capacity.
func WithCapacity(n int) Option {
	return func(d *Dispatcher) {
		if n > 0 {
			d.queue = make(chan envelope, n)
		}
	}
}

// WithLogger sets the logger used for diagnostics.
func WithLogger(l *log.Logger) Option {
	return func(d *Dispatcher) {
		if l != nil {
			d.logger = l
		}
	}
}

// WithOnFinish registers fn to run on the dispatcher goroutine for every
// finished tree, after it was published.
func WithOnFinish(fn func(*tree.Tree)) Option {
	return func(d *Dispatcher) { d.onFinish = fn }
}

// New creates a Dispatcher applying commands to b and publishing finished
// trees to store.
func New(b *builder.Builder, store *Store, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		builder: b,
		store:   store,
		logger:  log.Default(),
		queue:   make(chan envelope, DefaultCapacity),
		closed:  make(chan struct{}),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Run applies queued commands until ctx is canceled or the dispatcher is
// closed. After Close, Run applies what is still queued and returns nil.
// Run must be called at most once.
func (d *Dispatcher) Run(ctx context.Context) error {
	defer close(d.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case env := <-d.queue:
			d.handle(env)
		case <-d.closed:
			for {
				select {
				case env := <-d.queue:
					d.handle(env)
				default:
					return nil
				}
			}
		}
	}
}

// Send queues cmd. It blocks while the queue is full.
func (d *Dispatcher) Send(ctx context.Context, cmd protocol.Command) error {
	return d.enqueue(ctx, envelope{cmd: cmd})
}

// Flush blocks until every command queued before it has been applied.
func (d *Dispatcher) Flush(ctx context.Context) error {
	barrier := make(chan struct{})
	if err := d.enqueue(ctx, envelope{barrier: barrier}); err != nil {
		return err
	}
	select {
	case <-barrier:
		return nil
	case <-d.done:
		select {
		case <-barrier:
			return nil
		default:
			return ErrClosed
		}
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Feed sends every command read from r. Malformed lines are logged and
// skipped; Feed returns the number of skipped lines and the first error
// that ended the stream, if any.
func (d *Dispatcher) Feed(ctx context.Context, r *protocol.Reader) (int, error) {
	skipped := 0
	for {
		cmd, err := r.Next()
		if err == io.EOF {
			return skipped, nil
		}
		var le *errors.LineError
		if stderrors.As(err, &le) {
			d.logger.Warn("dropping malformed command", "line", le.Line, "err", errors.UserMessage(le.Err))
			skipped++
			continue
		}
		if err != nil {
			return skipped, err
		}
		if err := d.Send(ctx, cmd); err != nil {
			return skipped, err
		}
	}
}

// Close stops accepting commands. Commands queued before Close are still
// applied by Run; a Send racing with Close may be dropped.
func (d *Dispatcher) Close() {
	d.once.Do(func() { close(d.closed) })
}

// Done is closed when Run has returned.
func (d *Dispatcher) Done() <-chan struct{} { return d.done }

func (d *Dispatcher) enqueue(ctx context.Context, env envelope) error {
	select {
	case <-d.closed:
		return ErrClosed
	default:
	}
	select {
	case d.queue <- env:
		return nil
	case <-d.closed:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) handle(env envelope) {
	if env.barrier != nil {
		close(env.barrier)
		return
	}
	t, err := protocol.Apply(d.builder, env.cmd)
	if err != nil {
		d.logger.Warn("dropping command", "op", env.cmd.Op(), "err", errors.UserMessage(err))
		return
	}
	if t == nil {
		return
	}
	d.store.Publish(t)
	if d.onFinish != nil {
		d.onFinish(t)
	}
}
