package monitoring

import (
	"net/http"
	"sync"
	"time"

	"github.com/GriffinCanCode/WebDesk/internal/shared/errs"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "webdesk"

// Metrics holds the kernel's Prometheus collectors on a private registry
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics (inspector API)
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	// Process metrics
	ProcessesActive prometheus.Gauge
	Launches        *prometheus.CounterVec
	LaunchDuration  prometheus.Histogram

	// RPC metrics
	RPCCalls    *prometheus.CounterVec
	RPCDuration *prometheus.HistogramVec

	// Filesystem metrics
	FilesystemOps *prometheus.CounterVec

	// Event metrics
	EventsEmitted *prometheus.CounterVec

	// WebSocket metrics
	WSConnections prometheus.Gauge
	WSMessages    *prometheus.CounterVec

	startTime time.Time

	mu       sync.RWMutex
	snapshot Snapshot // Protected by mu
}

// Snapshot holds current values for the JSON state API
type Snapshot struct {
	Uptime          time.Duration `json:"uptime"`
	ActiveProcesses int64         `json:"activeProcesses"`
	Launches        int64         `json:"launches"`
	LaunchFailures  int64         `json:"launchFailures"`
	RPCCalls        int64         `json:"rpcCalls"`
	RPCErrors       int64         `json:"rpcErrors"`
	FilesystemOps   int64         `json:"filesystemOps"`
	HTTPRequests    int64         `json:"httpRequests"`
	WSConnections   int64         `json:"wsConnections"`
}

// NewMetrics creates a collector set registered on its own registry
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	m := &Metrics{
		registry:  reg,
		startTime: time.Now(),

		RequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of inspector HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "Inspector HTTP request duration in seconds",
				Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
			},
			[]string{"method", "path"},
		),

		ProcessesActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "processes_active",
				Help:      "Number of live application processes",
			},
		),
		Launches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "launches_total",
				Help:      "Application launches by outcome",
			},
			[]string{"result"},
		),
		LaunchDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "launch_duration_seconds",
				Help:      "Time from launch request to running process",
				Buckets:   []float64{.001, .005, .01, .05, .1, .25, .5, 1, 5},
			},
		),

		RPCCalls: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "rpc_calls_total",
				Help:      "Remote service calls by outcome",
			},
			[]string{"service", "method", "status"},
		),
		RPCDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "rpc_call_duration_seconds",
				Help:      "Remote service call duration in seconds",
				Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 15},
			},
			[]string{"service", "method"},
		),

		FilesystemOps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "filesystem_ops_total",
				Help:      "Filesystem operations by backend and outcome",
			},
			[]string{"backend", "op", "status"},
		),

		EventsEmitted: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "events_total",
				Help:      "Kernel events emitted",
			},
			[]string{"name"},
		),

		WSConnections: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "ws_connections",
				Help:      "Open event stream connections",
			},
		),
		WSMessages: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "ws_messages_total",
				Help:      "Event stream messages",
			},
			[]string{"direction"},
		),
	}

	factory.NewGaugeFunc(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "uptime_seconds",
			Help:      "Kernel host uptime in seconds",
		},
		func() float64 { return time.Since(m.startTime).Seconds() },
	)

	return m
}

// Registry returns the private registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// status labels an outcome by error kind
func status(err error) string {
	if err == nil {
		return "ok"
	}
	return errs.KindOf(err).String()
}

// RecordHTTPRequest records an inspector request
func (m *Metrics) RecordHTTPRequest(method, path, code string, duration time.Duration) {
	m.RequestsTotal.WithLabelValues(method, path, code).Inc()
	m.RequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.HTTPRequests++
	m.mu.Unlock()
}

// ObserveCall implements rpc.Observer
func (m *Metrics) ObserveCall(service, method string, duration time.Duration, err error) {
	m.RPCCalls.WithLabelValues(service, method, status(err)).Inc()
	m.RPCDuration.WithLabelValues(service, method).Observe(duration.Seconds())

	m.mu.Lock()
	m.snapshot.RPCCalls++
	if err != nil {
		m.snapshot.RPCErrors++
	}
	m.mu.Unlock()
}

// ObserveFilesystemOp implements filesystem.Observer
func (m *Metrics) ObserveFilesystemOp(backend, op string, err error) {
	m.FilesystemOps.WithLabelValues(backend, op, status(err)).Inc()

	m.mu.Lock()
	m.snapshot.FilesystemOps++
	m.mu.Unlock()
}

// ObserveProcessCount implements process.Observer
func (m *Metrics) ObserveProcessCount(n int) {
	m.ProcessesActive.Set(float64(n))

	m.mu.Lock()
	m.snapshot.ActiveProcesses = int64(n)
	m.mu.Unlock()
}

// RecordLaunch records one launch attempt
func (m *Metrics) RecordLaunch(duration time.Duration, err error) {
	m.Launches.WithLabelValues(status(err)).Inc()
	if err == nil {
		m.LaunchDuration.Observe(duration.Seconds())
	}

	m.mu.Lock()
	m.snapshot.Launches++
	if err != nil {
		m.snapshot.LaunchFailures++
	}
	m.mu.Unlock()
}

// RecordEvent counts an emitted event
func (m *Metrics) RecordEvent(name string) {
	m.EventsEmitted.WithLabelValues(name).Inc()
}

// RecordWSMessage records an event stream message
func (m *Metrics) RecordWSMessage(direction string) {
	m.WSMessages.WithLabelValues(direction).Inc()
}

// IncWSConnections increments open event stream connections
func (m *Metrics) IncWSConnections() {
	m.WSConnections.Inc()
	m.mu.Lock()
	m.snapshot.WSConnections++
	m.mu.Unlock()
}

// DecWSConnections decrements open event stream connections
func (m *Metrics) DecWSConnections() {
	m.WSConnections.Dec()
	m.mu.Lock()
	m.snapshot.WSConnections--
	m.mu.Unlock()
}

// Snapshot returns current values
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.snapshot
	s.Uptime = time.Since(m.startTime)
	return s
}
