package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mfahlbusch/camswitch/internal/camera"
	"github.com/mfahlbusch/camswitch/internal/events"
)

// Metrics exposes camera and supervisor state as Prometheus metrics. All
// series are driven by bus events plus a live read of subscriber counts;
// nothing here is on any hot path.
type Metrics struct {
	registry *prometheus.Registry

	cameraLive   *prometheus.GaugeVec
	encoderExits *prometheus.CounterVec
	encoderUp    prometheus.GaugeFunc
	subscribers  prometheus.GaugeFunc
	configevents prometheus.Counter

	unsubscribers []func()
}

// New creates the metric set and subscribes it to the event bus.
func New(bus *events.Bus, cameras *camera.Registry) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		cameraLive: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "camswitch_camera_live",
			Help: "1 when the camera presents the live feed, 0 on standby.",
		}, []string{"stream_id"}),
		encoderExits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "camswitch_encoder_exits_total",
			Help: "Unexpected standby encoder process exits, per camera.",
		}, []string{"stream_id"}),
		configevents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "camswitch_config_changes_total",
			Help: "Detected cameras file changes (applied on next restart).",
		}),
	}

	m.encoderUp = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "camswitch_encoders_running",
		Help: "Number of standby encoder processes currently alive.",
	}, func() float64 {
		var n float64
		for _, cam := range cameras.Cameras() {
			if cam.Status().StandbyOK {
				n++
			}
		}
		return n
	})

	m.subscribers = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "camswitch_subscribers",
		Help: "Active mode-change subscribers across all cameras.",
	}, func() float64 {
		var n float64
		for _, cam := range cameras.Cameras() {
			n += float64(cam.SubscriberCount())
		}
		return n
	})

	m.registry.MustRegister(m.cameraLive, m.encoderExits, m.encoderUp, m.subscribers, m.configevents)

	// Every camera starts on standby.
	for _, cam := range cameras.Cameras() {
		m.cameraLive.WithLabelValues(cam.ID()).Set(0)
	}

	m.unsubscribers = []func(){
		bus.Subscribe(func(e events.ModeChangedEvent) {
			value := 0.0
			if e.Mode == string(camera.ModeLive) {
				value = 1.0
			}
			m.cameraLive.WithLabelValues(e.StreamID).Set(value)
		}),
		bus.Subscribe(func(e events.ProcessExitEvent) {
			m.encoderExits.WithLabelValues(e.StreamID).Inc()
		}),
		bus.Subscribe(func(e events.ConfigReloadedEvent) {
			m.configevents.Inc()
		}),
	}

	return m
}

// Handler returns the HTTP handler serving the metric registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Close detaches the metric set from the event bus.
func (m *Metrics) Close() {
	for _, unsub := range m.unsubscribers {
		unsub()
	}
}
