package dispatch

import (
	"context"
	"time"

	"github.com/matzehuels/rewritetree/pkg/tree"
)

// DefaultFPS is the default animation frame rate.
const DefaultFPS = 30

// Animator is the render loop. It sleeps until the store changes or Wake is
// called, then advances expansion animations at a fixed frame rate until
// they settle, calling a frame callback after every step.
type Animator struct {
	store    *Store
	interval time.Duration
	onFrame  func(t *tree.Tree)
	wake     chan struct{}
}

// NewAnimator creates an Animator ticking at fps frames per second. onFrame
// runs under the store lock after every frame and must not call back into
// the store.
func NewAnimator(store *Store, fps int, onFrame func(t *tree.Tree)) *Animator {
	if fps <= 0 {
		fps = DefaultFPS
	}
	if onFrame == nil {
		onFrame = func(*tree.Tree) {}
	}
	return &Animator{
		store:    store,
		interval: time.Second / time.Duration(fps),
		onFrame:  onFrame,
		wake:     make(chan struct{}, 1),
	}
}

// Wake requests at least one frame.
func (a *Animator) Wake() {
	select {
	case a.wake <- struct{}{}:
	default:
	}
}

// Run drives the animation until ctx is canceled.
func (a *Animator) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.store.Changed():
		case <-a.wake:
		}
		if err := a.animate(ctx); err != nil {
			return err
		}
	}
}

// animate ticks until every visible node has settled.
func (a *Animator) animate(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	last := time.Now()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-a.store.Changed():
			// Keep animating; the next tick picks up the new layout.
			continue
		case <-a.wake:
			continue
		case now := <-ticker.C:
			dt := now.Sub(last)
			last = now
			moving := false
			a.store.View(func(t *tree.Tree) {
				moving = t.Animate(dt)
				a.onFrame(t)
			})
			if !moving {
				return nil
			}
		}
	}
}
