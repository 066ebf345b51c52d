package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all warehouse state engine metrics
type Metrics struct {
	serviceName string
	registry    *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal    *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
	HTTPRequestsInFlight prometheus.Gauge

	// Kafka metrics
	KafkaEventsPublished *prometheus.CounterVec
	KafkaPublishDuration *prometheus.HistogramVec

	// MongoDB metrics
	MongoDBOperations        *prometheus.CounterVec
	MongoDBOperationDuration *prometheus.HistogramVec

	// Order API metrics
	OrderAPICalls        *prometheus.CounterVec
	OrderAPICallDuration *prometheus.HistogramVec
	OrderSyncRuns        *prometheus.CounterVec
	OrdersCached         prometheus.Gauge

	// Inventory projection metrics
	ProjectionRebuilds     *prometheus.CounterVec
	ProjectionLinesSkipped prometheus.Counter
	ProjectionClamped      prometheus.Counter
	LocationsOccupied      prometheus.Gauge

	// Lifecycle and fleet metrics
	OrderTransitions *prometheus.CounterVec
	Dispatches       *prometheus.CounterVec
	AMRsByStatus     *prometheus.GaugeVec
	SimulatorTicks   prometheus.Counter

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// Config holds metrics configuration
type Config struct {
	ServiceName string
	Namespace   string
}

// DefaultConfig returns default metrics configuration
func DefaultConfig(serviceName string) *Config {
	return &Config{
		ServiceName: serviceName,
		Namespace:   "wms",
	}
}

// New creates a new Metrics instance backed by its own registry
func New(config *Config) *Metrics {
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	ns := config.Namespace
	svc := prometheus.Labels{"service": config.ServiceName}

	m := &Metrics{
		serviceName: config.ServiceName,
		registry:    registry,
	}

	m.HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "http_requests_total", Help: "Total number of HTTP requests"},
		[]string{"service", "method", "path", "status"},
	)
	m.HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "method", "path"},
	)
	m.HTTPRequestsInFlight = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "http_requests_in_flight",
		Help:        "Number of HTTP requests currently being processed",
		ConstLabels: svc,
	})

	m.KafkaEventsPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "kafka_events_published_total", Help: "Total number of Kafka events published"},
		[]string{"service", "topic", "event_type", "status"},
	)
	m.KafkaPublishDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "kafka_publish_duration_seconds",
			Help:      "Kafka publish duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
		},
		[]string{"service", "topic"},
	)

	m.MongoDBOperations = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "mongodb_operations_total", Help: "Total number of MongoDB operations"},
		[]string{"service", "collection", "operation", "status"},
	)
	m.MongoDBOperationDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "mongodb_operation_duration_seconds",
			Help:      "MongoDB operation duration in seconds",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		},
		[]string{"service", "collection", "operation"},
	)

	m.OrderAPICalls = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "order_api_calls_total", Help: "Total number of calls to the order API"},
		[]string{"service", "operation", "status"},
	)
	m.OrderAPICallDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: ns,
			Name:      "order_api_call_duration_seconds",
			Help:      "Order API call duration in seconds",
			Buckets:   []float64{.01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"service", "operation"},
	)
	m.OrderSyncRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "order_sync_runs_total", Help: "Total number of order synchronisation runs"},
		[]string{"service", "status"},
	)
	m.OrdersCached = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "orders_cached",
		Help:        "Number of orders held in the local cache",
		ConstLabels: svc,
	})

	m.ProjectionRebuilds = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "inventory_projection_rebuilds_total", Help: "Total number of inventory projection rebuilds"},
		[]string{"service", "cache"},
	)
	m.ProjectionLinesSkipped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   ns,
		Name:        "inventory_projection_lines_skipped_total",
		Help:        "Order lines skipped during replay because of an invalid location or item",
		ConstLabels: svc,
	})
	m.ProjectionClamped = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   ns,
		Name:        "inventory_projection_clamped_total",
		Help:        "Location and item pairs whose replayed quantity went below zero",
		ConstLabels: svc,
	})
	m.LocationsOccupied = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace:   ns,
		Name:        "locations_occupied",
		Help:        "Number of storage locations holding stock",
		ConstLabels: svc,
	})

	m.OrderTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "order_transitions_total", Help: "Total number of requested order status transitions"},
		[]string{"service", "from", "to", "result"},
	)
	m.Dispatches = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "amr_dispatches_total", Help: "Total number of AMR dispatch attempts"},
		[]string{"service", "task_type", "result"},
	)
	m.AMRsByStatus = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: ns, Name: "amrs_by_status", Help: "Number of AMRs in each status"},
		[]string{"service", "status"},
	)
	m.SimulatorTicks = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace:   ns,
		Name:        "fleet_simulator_ticks_total",
		Help:        "Total number of fleet simulator ticks",
		ConstLabels: svc,
	})

	m.CircuitBreakerState = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{Namespace: ns, Name: "circuit_breaker_state", Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)"},
		[]string{"service", "name"},
	)
	m.CircuitBreakerTrips = prometheus.NewCounterVec(
		prometheus.CounterOpts{Namespace: ns, Name: "circuit_breaker_trips_total", Help: "Total number of circuit breaker trips"},
		[]string{"service", "name"},
	)

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.HTTPRequestsInFlight,
		m.KafkaEventsPublished,
		m.KafkaPublishDuration,
		m.MongoDBOperations,
		m.MongoDBOperationDuration,
		m.OrderAPICalls,
		m.OrderAPICallDuration,
		m.OrderSyncRuns,
		m.OrdersCached,
		m.ProjectionRebuilds,
		m.ProjectionLinesSkipped,
		m.ProjectionClamped,
		m.LocationsOccupied,
		m.OrderTransitions,
		m.Dispatches,
		m.AMRsByStatus,
		m.SimulatorTicks,
		m.CircuitBreakerState,
		m.CircuitBreakerTrips,
	)

	return m
}

// Handler returns an HTTP handler for the metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{
		EnableOpenMetrics: true,
	})
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(m.serviceName, method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(m.serviceName, method, path).Observe(duration.Seconds())
}

// IncrementHTTPRequestsInFlight increments in-flight requests
func (m *Metrics) IncrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Inc()
}

// DecrementHTTPRequestsInFlight decrements in-flight requests
func (m *Metrics) DecrementHTTPRequestsInFlight() {
	m.HTTPRequestsInFlight.Dec()
}

// RecordKafkaPublish records a Kafka publish
func (m *Metrics) RecordKafkaPublish(topic, eventType string, success bool, duration time.Duration) {
	m.KafkaEventsPublished.WithLabelValues(m.serviceName, topic, eventType, statusLabel(success)).Inc()
	m.KafkaPublishDuration.WithLabelValues(m.serviceName, topic).Observe(duration.Seconds())
}

// RecordMongoDBOperation records a MongoDB operation
func (m *Metrics) RecordMongoDBOperation(collection, operation string, success bool, duration time.Duration) {
	m.MongoDBOperations.WithLabelValues(m.serviceName, collection, operation, statusLabel(success)).Inc()
	m.MongoDBOperationDuration.WithLabelValues(m.serviceName, collection, operation).Observe(duration.Seconds())
}

// RecordOrderAPICall records a call to the order API
func (m *Metrics) RecordOrderAPICall(operation string, success bool, duration time.Duration) {
	m.OrderAPICalls.WithLabelValues(m.serviceName, operation, statusLabel(success)).Inc()
	m.OrderAPICallDuration.WithLabelValues(m.serviceName, operation).Observe(duration.Seconds())
}

// RecordOrderSync records one synchronisation run and the resulting cache size
func (m *Metrics) RecordOrderSync(success bool, cached int) {
	m.OrderSyncRuns.WithLabelValues(m.serviceName, statusLabel(success)).Inc()
	if success {
		m.OrdersCached.Set(float64(cached))
	}
}

// RecordProjection records a projection lookup; cacheHit is false when a replay ran
func (m *Metrics) RecordProjection(cacheHit bool, skipped, clamped, occupied int) {
	if cacheHit {
		m.ProjectionRebuilds.WithLabelValues(m.serviceName, "hit").Inc()
		return
	}
	m.ProjectionRebuilds.WithLabelValues(m.serviceName, "miss").Inc()
	m.ProjectionLinesSkipped.Add(float64(skipped))
	m.ProjectionClamped.Add(float64(clamped))
	m.LocationsOccupied.Set(float64(occupied))
}

// RecordTransition records a requested order status transition
func (m *Metrics) RecordTransition(from, to, result string) {
	m.OrderTransitions.WithLabelValues(m.serviceName, from, to, result).Inc()
}

// RecordDispatch records a dispatch attempt
func (m *Metrics) RecordDispatch(taskType string, dispatched bool) {
	result := "dispatched"
	if !dispatched {
		result = "no_amr_available"
	}
	m.Dispatches.WithLabelValues(m.serviceName, taskType, result).Inc()
}

// SetAMRStatusCounts replaces the per-status AMR gauge values
func (m *Metrics) SetAMRStatusCounts(counts map[string]int) {
	for status, n := range counts {
		m.AMRsByStatus.WithLabelValues(m.serviceName, status).Set(float64(n))
	}
}

// RecordSimulatorTick records one simulator tick
func (m *Metrics) RecordSimulatorTick() {
	m.SimulatorTicks.Inc()
}

// SetCircuitBreakerState sets the circuit breaker state
func (m *Metrics) SetCircuitBreakerState(name string, state int) {
	m.CircuitBreakerState.WithLabelValues(m.serviceName, name).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(name string) {
	m.CircuitBreakerTrips.WithLabelValues(m.serviceName, name).Inc()
}
