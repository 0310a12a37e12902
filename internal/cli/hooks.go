package cli

import (
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/matzehuels/rewritetree/pkg/observability"
)

// =============================================================================
// Logging Hooks
// =============================================================================

// logHooks reports builder and layout events as debug log lines.
type logHooks struct {
	logger *log.Logger
}

func newLogHooks(l *log.Logger) *logHooks { return &logHooks{logger: l} }

func (h *logHooks) OnTreeStart(label string) {
	h.logger.Debug("tree started", "root", label)
}

func (h *logHooks) OnTreeFinish(id string, nodeCount int, d time.Duration) {
	h.logger.Debug("tree finished", "id", id, "nodes", nodeCount, "took", d.Round(time.Microsecond))
}

func (h *logHooks) OnFatal(reason string, nodeCount int) {
	h.logger.Debug("tree fatal", "reason", reason, "nodes", nodeCount)
}

func (h *logHooks) OnDropped(command string) {
	h.logger.Debug("command dropped", "op", command)
}

func (h *logHooks) OnSelect(depth, visible int, d time.Duration) {
	h.logger.Debug("selection", "depth", depth, "visible", visible, "took", d.Round(time.Microsecond))
}

// =============================================================================
// Prometheus Hooks
// =============================================================================

// metrics exports builder and layout events as Prometheus metrics. Events
// are forwarded to next as well.
type metrics struct {
	registry *prometheus.Registry
	next     *logHooks

	treesStarted  prometheus.Counter
	treesFinished prometheus.Counter
	fatal         *prometheus.CounterVec
	dropped       *prometheus.CounterVec
	treeNodes     prometheus.Histogram
	buildSeconds  prometheus.Histogram
	selectSeconds prometheus.Histogram
	visibleNodes  prometheus.Gauge
}

func newMetrics(next *logHooks) *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		next:     next,
		treesStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: appName,
			Name:      "trees_started_total",
			Help:      "Trees started by the builder.",
		}),
		treesFinished: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: appName,
			Name:      "trees_finished_total",
			Help:      "Trees finished and published.",
		}),
		fatal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: appName,
			Name:      "trees_fatal_total",
			Help:      "Trees whose construction stopped on an error.",
		}, []string{"reason"}),
		dropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: appName,
			Name:      "commands_dropped_total",
			Help:      "Commands dropped while ignoring or after a fatal error.",
		}, []string{"op"}),
		treeNodes: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: appName,
			Name:      "tree_nodes",
			Help:      "Nodes per finished tree.",
			Buckets:   prometheus.ExponentialBuckets(1, 4, 10),
		}),
		buildSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: appName,
			Name:      "tree_build_seconds",
			Help:      "Time from starting to finishing a tree.",
			Buckets:   prometheus.DefBuckets,
		}),
		selectSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: appName,
			Name:      "select_seconds",
			Help:      "Time spent in selection and layout.",
			Buckets:   prometheus.ExponentialBuckets(1e-6, 4, 10),
		}),
		visibleNodes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: appName,
			Name:      "visible_nodes",
			Help:      "Visible nodes after the last selection.",
		}),
	}
	m.registry.MustRegister(
		collectors.NewGoCollector(),
		m.treesStarted, m.treesFinished, m.fatal, m.dropped,
		m.treeNodes, m.buildSeconds, m.selectSeconds, m.visibleNodes,
	)
	return m
}

// register installs m as the process-wide builder and layout hooks.
func (m *metrics) register() {
	observability.SetBuilderHooks(m)
	observability.SetLayoutHooks(m)
}

func (m *metrics) OnTreeStart(label string) {
	m.treesStarted.Inc()
	m.next.OnTreeStart(label)
}

func (m *metrics) OnTreeFinish(id string, nodeCount int, d time.Duration) {
	m.treesFinished.Inc()
	m.treeNodes.Observe(float64(nodeCount))
	m.buildSeconds.Observe(d.Seconds())
	m.next.OnTreeFinish(id, nodeCount, d)
}

func (m *metrics) OnFatal(reason string, nodeCount int) {
	m.fatal.WithLabelValues(fatalKind(reason)).Inc()
	m.next.OnFatal(reason, nodeCount)
}

func (m *metrics) OnDropped(command string) {
	m.dropped.WithLabelValues(command).Inc()
	m.next.OnDropped(command)
}

func (m *metrics) OnSelect(depth, visible int, d time.Duration) {
	m.selectSeconds.Observe(d.Seconds())
	m.visibleNodes.Set(float64(visible))
	m.next.OnSelect(depth, visible, d)
}

// fatalKind maps a fatal reason to a bounded label value.
func fatalKind(reason string) string {
	if strings.HasPrefix(reason, "node limit") {
		return "node_limit"
	}
	return "unknown_identifier"
}

var (
	_ observability.BuilderHooks = (*logHooks)(nil)
	_ observability.LayoutHooks  = (*logHooks)(nil)
	_ observability.BuilderHooks = (*metrics)(nil)
	_ observability.LayoutHooks  = (*metrics)(nil)
)
