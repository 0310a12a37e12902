// Package observability provides hooks for metrics, tracing, and logging.
//
// This package enables optional instrumentation without adding hard
// dependencies on specific observability backends. Consumers register hooks
// at startup to receive events about tree construction and layout.
//
// # Architecture
//
// The package uses a simple hooks pattern:
//   - Define hook interfaces for different event categories
//   - Provide no-op default implementations
//   - Allow registration of custom implementations at startup
//
// # Usage
//
// Register hooks at application startup:
//
//	func main() {
//	    observability.SetBuilderHooks(&myBuilderHooks{})
//	    observability.SetLayoutHooks(&myLayoutHooks{})
//	    // ... run application
//	}
//
// Libraries call hooks to emit events:
//
//	observability.Builder().OnTreeStart(label)
//	// ... build ...
//	observability.Builder().OnTreeFinish(id, nodeCount, duration)
package observability

import (
	"sync"
	"time"
)

// =============================================================================
// Builder Hooks
// =============================================================================

// BuilderHooks receives events from tree construction.
type BuilderHooks interface {
	// OnTreeStart records the start of a new tree.
	OnTreeStart(label string)

	// OnTreeFinish records a completed tree handed off to consumers.
	OnTreeFinish(id string, nodeCount int, duration time.Duration)

	// OnFatal records the builder entering its fatal state.
	OnFatal(reason string, nodeCount int)

	// OnDropped records a command dropped while ignoring or after a fatal error.
	OnDropped(command string)
}

// =============================================================================
// Layout Hooks
// =============================================================================

// LayoutHooks receives events from the layout engine.
type LayoutHooks interface {
	// OnSelect records a selection and the layout pass that followed it.
	OnSelect(depth, visible int, duration time.Duration)
}

// =============================================================================
// No-op Implementations
// =============================================================================

// NoopBuilderHooks is a no-op implementation of BuilderHooks.
type NoopBuilderHooks struct{}

func (NoopBuilderHooks) OnTreeStart(string)                      {}
func (NoopBuilderHooks) OnTreeFinish(string, int, time.Duration) {}
func (NoopBuilderHooks) OnFatal(string, int)                     {}
func (NoopBuilderHooks) OnDropped(string)                        {}

// NoopLayoutHooks is a no-op implementation of LayoutHooks.
type NoopLayoutHooks struct{}

func (NoopLayoutHooks) OnSelect(int, int, time.Duration) {}

// =============================================================================
// Global Hook Registry
// =============================================================================

var (
	builderHooks BuilderHooks = NoopBuilderHooks{}
	layoutHooks  LayoutHooks  = NoopLayoutHooks{}
	hooksMu      sync.RWMutex
)

// SetBuilderHooks registers custom builder hooks.
// This should be called once at application startup before any tree is built.
func SetBuilderHooks(h BuilderHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		builderHooks = h
	}
}

// SetLayoutHooks registers custom layout hooks.
// This should be called once at application startup before any selection.
func SetLayoutHooks(h LayoutHooks) {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	if h != nil {
		layoutHooks = h
	}
}

// Builder returns the registered builder hooks.
func Builder() BuilderHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return builderHooks
}

// Layout returns the registered layout hooks.
func Layout() LayoutHooks {
	hooksMu.RLock()
	defer hooksMu.RUnlock()
	return layoutHooks
}

// Reset restores all hooks to their no-op defaults.
// This is primarily useful for testing.
func Reset() {
	hooksMu.Lock()
	defer hooksMu.Unlock()
	builderHooks = NoopBuilderHooks{}
	layoutHooks = NoopLayoutHooks{}
}
