package metrics

import (
	"net/http"
	"strconv"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	once sync.Once

	generateRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discount_generate_requests_total",
			Help: "Generate requests by outcome (done/exhausted/rejected/error).",
		},
		[]string{"outcome"},
	)

	codesGenerated = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discount_codes_generated_total",
			Help: "Codes newly inserted by generate requests, per code length.",
		},
		[]string{"length"},
	)

	generateAttempts = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "discount_generate_attempts",
			Help:    "Insert attempts needed per generate request.",
			Buckets: []float64{1, 2, 3, 4, 5},
		},
	)

	redemptions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discount_redemptions_total",
			Help: "Redemption attempts by result.",
		},
		[]string{"result"},
	)

	statusCacheRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discount_status_cache_requests_total",
			Help: "Status cache lookups by result (hit/miss).",
		},
		[]string{"result"},
	)

	messages = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "discount_messages_total",
			Help: "Inbound protocol messages by type.",
		},
		[]string{"type"},
	)

	connections = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "discount_ws_connections",
			Help: "Open WebSocket connections.",
		},
	)

	storedCodes = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "discount_codes_stored",
			Help: "Codes in the store by state (used/unused).",
		},
		[]string{"state"},
	)
)

// MustRegister registers collectors with the default registry (idempotent).
func MustRegister() {
	once.Do(func() {
		prometheus.MustRegister(
			generateRequests, codesGenerated, generateAttempts,
			redemptions, statusCacheRequests, messages,
			connections, storedCodes,
		)
	})
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

// -------- Generation --------

func ObserveGenerate(outcome string, length, inserted, attempts int) {
	generateRequests.WithLabelValues(outcome).Inc()
	if inserted > 0 {
		codesGenerated.WithLabelValues(strconv.Itoa(length)).Add(float64(inserted))
	}
	if attempts > 0 {
		generateAttempts.Observe(float64(attempts))
	}
}

// -------- Redemption --------

func IncRedemption(result string) {
	redemptions.WithLabelValues(result).Inc()
}

func IncStatusCache(result string) {
	statusCacheRequests.WithLabelValues(result).Inc()
}

// -------- Transport --------

func IncMessage(messageType string) {
	messages.WithLabelValues(messageType).Inc()
}

func ConnectionOpened() { connections.Inc() }

func ConnectionClosed() { connections.Dec() }

// -------- Store --------

func SetStoredCodes(used, unused int) {
	storedCodes.WithLabelValues("used").Set(float64(used))
	storedCodes.WithLabelValues("unused").Set(float64(unused))
}

// StoredCodes returns the stored-codes gauge for state.
func StoredCodes(state string) prometheus.Gauge {
	return storedCodes.WithLabelValues(state)
}
