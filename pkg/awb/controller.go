// Package awb adjusts the manual white-balance gains at night.
//
// The loop only acts when two gates hold: the trailing lux average is at
// or below the night threshold, and auto white balance is disabled in the
// live record. Daylight shots with AWB on are never touched.
package awb

import (
	"math"
	"time"

	"github.com/nevs77-02/pi-timelaps/internal/log"
	"github.com/nevs77-02/pi-timelaps/internal/obsrv"
	"github.com/nevs77-02/pi-timelaps/pkg/sensor"
	"github.com/nevs77-02/pi-timelaps/pkg/store"
)

// writeEpsilon is the minimal gain movement worth persisting.
const writeEpsilon = 1e-3

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// TargetGain computes the next gain for one colour channel from the
// channel/green ratio: deadband on the error, clamped proportional step,
// EMA blend toward the proposal, final range clamp.
func TargetGain(current, ratio float64, cfg *Config) float64 {
	err := 1.0 - ratio
	if math.Abs(err) <= cfg.Deadband {
		return current
	}
	rel := clamp(cfg.KP*err, -cfg.StepMax, cfg.StepMax)
	proposed := current * (1.0 + rel)
	target := (1.0-cfg.SmoothingAlpha)*current + cfg.SmoothingAlpha*proposed
	return clamp(target, cfg.GainMin, cfg.GainMax)
}

// Controller runs the white-balance gain loop.
type Controller struct {
	cfg   Config
	store *store.Store
	lux   *sensor.Window
	color *sensor.Feed

	metrics *obsrv.LoopMetrics
	stop    chan struct{}
}

// NewController creates the colour controller.
func NewController(cfg Config, st *store.Store) *Controller {
	return &Controller{
		cfg:   cfg,
		store: st,
		lux:   sensor.NewFeed(cfg.LuxCSV).Window(cfg.LuxColumn, cfg.LuxWindowSamples),
		color: sensor.NewFeed(cfg.ColorCSV),
		stop:  make(chan struct{}),
	}
}

// SetMetrics attaches loop metrics. Optional.
func (c *Controller) SetMetrics(m *obsrv.LoopMetrics) { c.metrics = m }

// Run executes the loop until Stop is called. Tick failures are logged
// and never end the loop.
func (c *Controller) Run() {
	interval := time.Duration(c.cfg.IntervalS * float64(time.Second))
	for {
		if err := c.Tick(); err != nil {
			log.Error("tick failed", "err", err)
			c.metrics.TickError()
		} else {
			c.metrics.TickOK()
		}
		select {
		case <-c.stop:
			return
		case <-time.After(interval):
		}
	}
}

// Stop halts the loop cleanly before the next tick.
func (c *Controller) Stop() {
	close(c.stop)
}

// Tick runs one adjustment cycle. A tick that does nothing (gates closed,
// no data, inside deadband) returns nil.
func (c *Controller) Tick() error {
	if c.cfg.UseLuxGate {
		avg, err := c.lux.Average()
		if err != nil {
			log.Warn("no lux data this tick", "err", err)
			return nil
		}
		c.metrics.SetLux(avg)
		if avg > c.cfg.NightMaxLux {
			log.Debug("daylight, holding", "lux", avg)
			return nil
		}
	}

	live := c.store.Read()
	if c.cfg.RequireAWBDisabled && live.AWBOn() {
		log.Debug("awb enabled, holding")
		return nil
	}
	curR, curB := live.AWBGains()

	col, err := c.color.LastColor(c.cfg.RedColumn, c.cfg.GreenColumn, c.cfg.BlueColumn)
	if err != nil {
		log.Warn("no usable colour sample", "err", err)
		return nil
	}

	newR := TargetGain(curR, col.R/col.G, &c.cfg)
	newB := TargetGain(curB, col.B/col.G, &c.cfg)

	if math.Abs(newR-curR) < writeEpsilon && math.Abs(newB-curB) < writeEpsilon {
		c.metrics.WriteSkipped()
		return nil
	}

	err = c.store.Update(func(r *store.Record) {
		r.AWBGainR = round3(newR)
		r.AWBGainB = round3(newB)
	})
	if err != nil {
		return err
	}
	c.metrics.WriteApplied()
	log.Info("awb gains adjusted",
		"r_from", curR, "r_to", newR, "b_from", curB, "b_to", newB)
	return nil
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
