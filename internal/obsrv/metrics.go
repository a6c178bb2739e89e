// Package obsrv provides per-daemon loop metrics and the small HTTP
// surface that exposes them. The web dashboard itself is a separate
// system; daemons only publish health and Prometheus metrics.
package obsrv

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/nevs77-02/pi-timelaps/internal/log"
)

// LoopMetrics counts what a control loop does. All methods are safe on a
// nil receiver so daemons can run without metrics attached.
type LoopMetrics struct {
	ticksOK       prometheus.Counter
	ticksFailed   prometheus.Counter
	writesApplied prometheus.Counter
	writesSkipped prometheus.Counter
	restarts      prometheus.Counter
	lastLux       prometheus.Gauge
}

// NewLoopMetrics registers loop metrics for the named daemon on the
// default registry.
func NewLoopMetrics(daemon string) *LoopMetrics {
	m := &LoopMetrics{
		ticksOK: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "tl_ticks_total",
			Help:        "Control loop ticks completed without error.",
			ConstLabels: prometheus.Labels{"daemon": daemon},
		}),
		ticksFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "tl_tick_errors_total",
			Help:        "Control loop ticks that ended in a logged error.",
			ConstLabels: prometheus.Labels{"daemon": daemon},
		}),
		writesApplied: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "tl_config_writes_total",
			Help:        "Updates persisted to the shared capture config.",
			ConstLabels: prometheus.Labels{"daemon": daemon},
		}),
		writesSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "tl_write_skips_total",
			Help:        "Ticks that computed targets but suppressed the write.",
			ConstLabels: prometheus.Labels{"daemon": daemon},
		}),
		restarts: prometheus.NewCounter(prometheus.CounterOpts{
			Name:        "tl_capture_restarts_total",
			Help:        "Stop/start cycles issued to the capture process.",
			ConstLabels: prometheus.Labels{"daemon": daemon},
		}),
		lastLux: prometheus.NewGauge(prometheus.GaugeOpts{
			Name:        "tl_last_lux",
			Help:        "Most recent trailing-average lux seen by the loop.",
			ConstLabels: prometheus.Labels{"daemon": daemon},
		}),
	}
	prometheus.MustRegister(
		m.ticksOK, m.ticksFailed, m.writesApplied, m.writesSkipped, m.restarts, m.lastLux)
	return m
}

// TickOK counts a clean tick.
func (m *LoopMetrics) TickOK() {
	if m != nil {
		m.ticksOK.Inc()
	}
}

// TickError counts a failed tick.
func (m *LoopMetrics) TickError() {
	if m != nil {
		m.ticksFailed.Inc()
	}
}

// WriteApplied counts a persisted config update.
func (m *LoopMetrics) WriteApplied() {
	if m != nil {
		m.writesApplied.Inc()
	}
}

// WriteSkipped counts a suppressed write.
func (m *LoopMetrics) WriteSkipped() {
	if m != nil {
		m.writesSkipped.Inc()
	}
}

// Restart counts a capture stop/start cycle.
func (m *LoopMetrics) Restart() {
	if m != nil {
		m.restarts.Inc()
	}
}

// SetLux records the latest trailing lux average.
func (m *LoopMetrics) SetLux(lux float64) {
	if m != nil {
		m.lastLux.Set(lux)
	}
}

// Serve exposes /healthz and /metrics on the given port. Runs until the
// process exits; start it in its own goroutine. Port 0 disables serving.
func Serve(daemon string, port int) {
	if port == 0 {
		return
	}
	app := fiber.New(fiber.Config{
		DisableStartupMessage: true,
	})
	app.Get("/healthz", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"daemon": daemon, "status": "ok"})
	})
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	if err := app.Listen(fmt.Sprintf(":%d", port)); err != nil {
		log.Error("metrics endpoint failed", "err", err)
	}
}
