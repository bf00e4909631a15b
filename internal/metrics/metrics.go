package metrics

import (
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/openhobd/go-hobd-server/internal/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Prometheus counters
var (
	SerialRxFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serial_rx_frames_total",
		Help: "Total adapter frames parsed from the serial link.",
	})
	SerialTxCommands = promauto.NewCounter(prometheus.CounterOpts{
		Name: "serial_tx_commands_total",
		Help: "Total command bytes written to the adapter.",
	})
	DecodedEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "decoded_events_total",
		Help: "Total decoded adapter events by kind.",
	}, []string{"kind"})
	TCPRxCommands = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tcp_rx_commands_total",
		Help: "Total command bytes received from TCP clients.",
	})
	TCPTxEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "tcp_tx_events_total",
		Help: "Total events sent to TCP clients.",
	})
	HubDroppedEvents = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hub_dropped_events_total",
		Help: "Total events dropped by hub due to slow clients.",
	})
	HubKickedClients = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hub_kicked_clients_total",
		Help: "Total clients disconnected due to backpressure kick policy.",
	})
	HubRejectedClients = promauto.NewCounter(prometheus.CounterOpts{
		Name: "hub_rejected_clients_total",
		Help: "Total client connection attempts rejected (e.g., max-clients).",
	})
	HubActiveClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hub_active_clients",
		Help: "Current number of active connected clients.",
	})
	HubBroadcastFanout = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hub_broadcast_fanout",
		Help: "Number of clients targeted in the most recent broadcast.",
	})
	HubQueueDepthMax = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hub_queue_depth_max",
		Help: "Observed max queued events among clients since last sample window.",
	})
	HubQueueDepthAvg = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "hub_queue_depth_avg",
		Help: "Approximate average queued events per client in last sample.",
	})
	BuildInfo = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "build_info",
		Help: "Build metadata (value is always 1).",
	}, []string{"version", "commit", "date"})
	Errors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "errors_total",
		Help: "Error counters by subsystem.",
	}, []string{"where"})
	MalformedFrames = promauto.NewCounter(prometheus.CounterOpts{
		Name: "malformed_frames_total",
		Help: "Total frames rejected by checksum verification.",
	})
	readinessMu sync.RWMutex
	readinessFn func() bool
)

// Error label constants (stable label values to bound cardinality)
const (
	ErrTCPRead        = "tcp_read"
	ErrTCPWrite       = "tcp_write"
	ErrHandshake      = "handshake"
	ErrSerialWrite    = "serial_write"
	ErrSerialOverflow = "serial_tx_overflow"
	ErrSerialRead     = "serial_read"
	ErrDecode         = "decode"
	ErrEmulator       = "emulator"
)

// Event kind label constants, matching Event.Kind values.
const (
	KindTelemetry    = "telemetry"
	KindTroubleCodes = "trouble_codes"
	KindAck          = "ack"
	KindDeviceError  = "device_error"
	KindUnknown      = "unknown"
)

// StartHTTP serves Prometheus metrics at /metrics on the given mux.
// If mux is nil, a default mux is created and registered.
func StartHTTP(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/ready", func(w http.ResponseWriter, r *http.Request) {
		if IsReady() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready\n"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("not ready\n"))
	})

	srv := &http.Server{
		Addr:    addr,
		Handler: mux,
	}
	go func() {
		logging.L().Info("metrics_listen", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logging.L().Error("metrics_http_error", "error", err)
		}
	}()
	return srv
}

// Local mirrored counters for easy logging (avoid Prometheus scraping in-process)
var (
	localSerialRx     uint64
	localCommandTx    uint64
	localTelemetry    uint64
	localTroubleCodes uint64
	localAcks         uint64
	localDeviceErrors uint64
	localUnknown      uint64
	localTCPRx        uint64
	localTCPTx        uint64
	localHubDrop      uint64
	localHubKick      uint64
	localHubReject    uint64
	localErrors       uint64
	localHubClients   uint64
	localFanout       uint64
	localMalformed    uint64
	localQDMax        uint64
	localQDAvg        uint64
)

// Snapshot is a cheap copy of local counters.
type Snapshot struct {
	SerialRx      uint64
	CommandTx     uint64
	Telemetry     uint64
	TroubleCodes  uint64
	Acks          uint64
	DeviceErrors  uint64
	UnknownEvents uint64
	TCPRx         uint64
	TCPTx         uint64
	HubDrops      uint64
	HubKicks      uint64
	HubRejects    uint64
	Errors        uint64 // sum across error labels
	HubClients    uint64
	Fanout        uint64
	Malformed     uint64
	QueueDepthMax uint64
	QueueDepthAvg uint64
}

func Snap() Snapshot {
	return Snapshot{
		SerialRx:      atomic.LoadUint64(&localSerialRx),
		CommandTx:     atomic.LoadUint64(&localCommandTx),
		Telemetry:     atomic.LoadUint64(&localTelemetry),
		TroubleCodes:  atomic.LoadUint64(&localTroubleCodes),
		Acks:          atomic.LoadUint64(&localAcks),
		DeviceErrors:  atomic.LoadUint64(&localDeviceErrors),
		UnknownEvents: atomic.LoadUint64(&localUnknown),
		TCPRx:         atomic.LoadUint64(&localTCPRx),
		TCPTx:         atomic.LoadUint64(&localTCPTx),
		HubDrops:      atomic.LoadUint64(&localHubDrop),
		HubKicks:      atomic.LoadUint64(&localHubKick),
		HubRejects:    atomic.LoadUint64(&localHubReject),
		Errors:        atomic.LoadUint64(&localErrors),
		HubClients:    atomic.LoadUint64(&localHubClients),
		Fanout:        atomic.LoadUint64(&localFanout),
		Malformed:     atomic.LoadUint64(&localMalformed),
		QueueDepthMax: atomic.LoadUint64(&localQDMax),
		QueueDepthAvg: atomic.LoadUint64(&localQDAvg),
	}
}

// Wrapper helpers to keep call sites simple.
func IncSerialRx() {
	SerialRxFrames.Inc()
	atomic.AddUint64(&localSerialRx, 1)
}

func IncCommandTx() {
	SerialTxCommands.Inc()
	atomic.AddUint64(&localCommandTx, 1)
}

// IncDecoded counts one decoded event under its kind label.
func IncDecoded(kind string) {
	DecodedEvents.WithLabelValues(kind).Inc()
	switch kind {
	case KindTelemetry:
		atomic.AddUint64(&localTelemetry, 1)
	case KindTroubleCodes:
		atomic.AddUint64(&localTroubleCodes, 1)
	case KindAck:
		atomic.AddUint64(&localAcks, 1)
	case KindDeviceError:
		atomic.AddUint64(&localDeviceErrors, 1)
	default:
		atomic.AddUint64(&localUnknown, 1)
	}
}

func IncTCPRx() {
	TCPRxCommands.Inc()
	atomic.AddUint64(&localTCPRx, 1)
}

func AddTCPTx(n int) {
	TCPTxEvents.Add(float64(n))
	atomic.AddUint64(&localTCPTx, uint64(n))
}

func IncHubDrop() {
	HubDroppedEvents.Inc()
	atomic.AddUint64(&localHubDrop, 1)
}

func IncHubKick() {
	HubKickedClients.Inc()
	atomic.AddUint64(&localHubKick, 1)
}

func IncHubReject() {
	HubRejectedClients.Inc()
	atomic.AddUint64(&localHubReject, 1)
}

func SetHubClients(n int) {
	HubActiveClients.Set(float64(n))
	atomic.StoreUint64(&localHubClients, uint64(n))
}

func SetBroadcastFanout(n int) {
	HubBroadcastFanout.Set(float64(n))
	atomic.StoreUint64(&localFanout, uint64(n))
}

func IncError(label string) {
	Errors.WithLabelValues(label).Inc()
	atomic.AddUint64(&localErrors, 1)
}

func IncMalformed() {
	MalformedFrames.Inc()
	atomic.AddUint64(&localMalformed, 1)
}

// SetQueueDepth records a snapshot of max and avg queue depth.
func SetQueueDepth(max, avg int) {
	HubQueueDepthMax.Set(float64(max))
	HubQueueDepthAvg.Set(float64(avg))
	atomic.StoreUint64(&localQDMax, uint64(max))
	atomic.StoreUint64(&localQDAvg, uint64(avg))
}

// InitBuildInfo sets the build info gauge (should be called once at startup).
func InitBuildInfo(version, commit, date string) {
	BuildInfo.WithLabelValues(version, commit, date).Set(1)
	// Pre-register common label series so first use does not log a registration latency.
	for _, lbl := range []string{
		ErrTCPRead, ErrTCPWrite, ErrHandshake,
		ErrSerialWrite, ErrSerialOverflow, ErrSerialRead,
		ErrDecode, ErrEmulator,
	} {
		Errors.WithLabelValues(lbl).Add(0)
	}
	for _, kind := range []string{
		KindTelemetry, KindTroubleCodes, KindAck, KindDeviceError, KindUnknown,
	} {
		DecodedEvents.WithLabelValues(kind).Add(0)
	}
}

// SetReadinessFunc registers a function used by /ready and IsReady.
func SetReadinessFunc(fn func() bool) { readinessMu.Lock(); readinessFn = fn; readinessMu.Unlock() }

// IsReady invokes the registered readiness function if present.
func IsReady() bool {
	readinessMu.RLock()
	fn := readinessFn
	readinessMu.RUnlock()
	if fn == nil { // if not set yet, treat as ready so metrics endpoint doesn't flap
		return true
	}
	return fn()
}

// Ready is a concise alias used at call sites.
func Ready() bool { return IsReady() }
