package cli

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/matzehuels/rewritetree/pkg/builder"
	"github.com/matzehuels/rewritetree/pkg/observability"
)

func TestLogHooks(t *testing.T) {
	var buf bytes.Buffer
	h := newLogHooks(newLogger(&buf, log.DebugLevel))

	h.OnTreeStart("reduce")
	h.OnTreeFinish("t1", 3, time.Millisecond)
	h.OnFatal(`unknown identifier "x"`, 2)
	h.OnDropped("add")
	h.OnSelect(2, 5, time.Microsecond)

	out := buf.String()
	for _, want := range []string{"tree started", "tree finished", "tree fatal", "command dropped", "selection"} {
		if !strings.Contains(out, want) {
			t.Errorf("log output missing %q:\n%s", want, out)
		}
	}
}

func TestMetricsHooks(t *testing.T) {
	t.Cleanup(observability.Reset)
	m := newMetrics(newLogHooks(log.New(&bytes.Buffer{})))
	m.register()

	b := builder.New(builder.WithLogger(log.New(&bytes.Buffer{})), builder.WithNodeLimit(3))
	b.NewTree("reduce")
	b.AddChild("", "", "a", false)
	b.AddChild("", "", "b", false)
	b.AddChild("", "", "dropped", false)
	b.FinishTree()

	if got := testutil.ToFloat64(m.treesStarted); got != 1 {
		t.Errorf("trees started = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.treesFinished); got != 1 {
		t.Errorf("trees finished = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.fatal.WithLabelValues("node_limit")); got != 1 {
		t.Errorf("node limit fatals = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.dropped.WithLabelValues("add")); got != 1 {
		t.Errorf("dropped adds = %v, want 1", got)
	}
}

func TestFatalKind(t *testing.T) {
	tests := map[string]string{
		"node limit":               "node_limit",
		"node limit of 10 reached": "node_limit",
		`unknown identifier "x1"`:  "unknown_identifier",
	}
	for reason, want := range tests {
		if got := fatalKind(reason); got != want {
			t.Errorf("fatalKind(%q) = %q, want %q", reason, got, want)
		}
	}
}
