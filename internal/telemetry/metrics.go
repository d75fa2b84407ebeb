package telemetry

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus counters and gauges for one runtime process.
// A single Metrics instance is shared across every web the process drives;
// per-web cardinality is kept low by labeling on web id only where the
// cardinality is bounded by max_agents.
type Metrics struct {
	registry *prometheus.Registry

	signalsDelivered   *prometheus.CounterVec
	signalsUnheard     *prometheus.CounterVec
	agentsSpawned      *prometheus.CounterVec
	agentsTerminated   *prometheus.CounterVec
	spawnRefused       *prometheus.CounterVec
	validations        *prometheus.CounterVec
	healthTransitions  *prometheus.CounterVec
	ticksProcessed     *prometheus.CounterVec
	websConverged      *prometheus.CounterVec
	websFailed         *prometheus.CounterVec
	activeAgentsGauge  *prometheus.GaugeVec
	logEvents          *prometheus.CounterVec
}

// NewMetrics builds and registers every counter/gauge used by the runtime.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		signalsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arachnid", Subsystem: "signal", Name: "delivered_total",
			Help: "Signal deliveries to agents, whether or not the agent activated.",
		}, []string{"web_id"}),
		signalsUnheard: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arachnid", Subsystem: "signal", Name: "unheard_total",
			Help: "Signals whose amplitude died without activating any agent.",
		}, []string{"web_id"}),
		agentsSpawned: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arachnid", Subsystem: "agent", Name: "spawned_total",
			Help: "Agents created by the spawn protocol.",
		}, []string{"web_id"}),
		agentsTerminated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arachnid", Subsystem: "agent", Name: "terminated_total",
			Help: "Agents that completed the wind-down cascade.",
		}, []string{"web_id"}),
		spawnRefused: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arachnid", Subsystem: "spawn", Name: "refused_total",
			Help: "Spawn requests refused due to capacity limits.",
		}, []string{"web_id", "reason"}),
		validations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arachnid", Subsystem: "validation", Name: "completed_total",
			Help: "Validations completed, by judgment.",
		}, []string{"web_id", "judgment"}),
		healthTransitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arachnid", Subsystem: "lifecycle", Name: "transitions_total",
			Help: "Agent lifecycle state transitions.",
		}, []string{"web_id", "from", "to"}),
		ticksProcessed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arachnid", Subsystem: "loop", Name: "ticks_total",
			Help: "Coordination loop ticks processed.",
		}, []string{"web_id"}),
		websConverged: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arachnid", Subsystem: "web", Name: "converged_total",
			Help: "Webs that reached Converged.",
		}, []string{}),
		websFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arachnid", Subsystem: "web", Name: "failed_total",
			Help: "Webs that reached Failed.",
		}, []string{}),
		activeAgentsGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "arachnid", Subsystem: "agent", Name: "active",
			Help: "Agents currently in the Active state.",
		}, []string{"web_id"}),
		logEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "arachnid", Subsystem: "log", Name: "events_total",
			Help: "Log lines emitted, by level and component.",
		}, []string{"level", "component"}),
	}

	reg.MustRegister(
		m.signalsDelivered, m.signalsUnheard, m.agentsSpawned, m.agentsTerminated,
		m.spawnRefused, m.validations, m.healthTransitions, m.ticksProcessed,
		m.websConverged, m.websFailed, m.activeAgentsGauge, m.logEvents,
	)
	return m
}

// Handler exposes the registry over HTTP for Prometheus scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SignalDelivered(webID string)    { m.signalsDelivered.WithLabelValues(webID).Inc() }
func (m *Metrics) SignalUnheard(webID string)      { m.signalsUnheard.WithLabelValues(webID).Inc() }
func (m *Metrics) AgentSpawned(webID string)       { m.agentsSpawned.WithLabelValues(webID).Inc() }
func (m *Metrics) AgentTerminated(webID string)    { m.agentsTerminated.WithLabelValues(webID).Inc() }
func (m *Metrics) SpawnRefused(webID, reason string) {
	m.spawnRefused.WithLabelValues(webID, reason).Inc()
}
func (m *Metrics) Validation(webID, judgment string) {
	m.validations.WithLabelValues(webID, judgment).Inc()
}
func (m *Metrics) HealthTransition(webID, from, to string) {
	m.healthTransitions.WithLabelValues(webID, from, to).Inc()
}
func (m *Metrics) TickProcessed(webID string) { m.ticksProcessed.WithLabelValues(webID).Inc() }
func (m *Metrics) WebConverged()              { m.websConverged.WithLabelValues().Inc() }
func (m *Metrics) WebFailed()                 { m.websFailed.WithLabelValues().Inc() }
func (m *Metrics) SetActiveAgents(webID string, n int) {
	m.activeAgentsGauge.WithLabelValues(webID).Set(float64(n))
}

// IncLogEvents implements MetricsSink so Logger can report its own volume.
func (m *Metrics) IncLogEvents(level, component string) {
	m.logEvents.WithLabelValues(level, component).Inc()
}
