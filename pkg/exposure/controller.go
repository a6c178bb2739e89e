package exposure

import (
	"math"
	"time"

	"github.com/nevs77-02/pi-timelaps/internal/log"
	"github.com/nevs77-02/pi-timelaps/internal/obsrv"
	"github.com/nevs77-02/pi-timelaps/pkg/sensor"
	"github.com/nevs77-02/pi-timelaps/pkg/store"
)

// clamp restricts v to the range [lo, hi].
func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// quantize rounds x to the nearest multiple of step (step > 1).
func quantize(x float64, step int) int {
	if step > 1 {
		return int(math.Round(x/float64(step))) * step
	}
	return int(math.Round(x))
}

// shutterCeilingUS derives the maximum shutter time in µs that still fits
// the frame interval after raw capture delay and fixed overhead.
func shutterCeilingUS(minInterval, rawDelay, overhead float64) float64 {
	return math.Max(0, minInterval-rawDelay-overhead) * 1e6
}

// targets is the outcome of one normal-mode computation.
type targets struct {
	shutterUS int
	gain      float64
	emaET     float64
	rawET     float64
}

// Controller runs the lux → shutter/gain loop. All state is owned by the
// loop instance; concurrency exists only across daemon processes and is
// handled by the store's lock.
type Controller struct {
	cfg   Config
	store *store.Store
	lux   *sensor.Window

	dryRun  bool
	metrics *obsrv.LoopMetrics

	// control state, process-local
	ema       float64
	shutter   int
	gain      float64
	lastCam   string
	holdUntil time.Time

	astro astroState

	now  func() time.Time
	stop chan struct{}
}

// astroState tracks the NORMAL/ASTRO hysteresis. Enter and exit use
// distinct thresholds and continuous hold durations, so lux chatter in
// the band between them never toggles the mode.
type astroState struct {
	active     bool
	written    bool
	belowSince time.Time
	aboveSince time.Time
}

// update advances the hysteresis timers and returns the transitions taken.
func (a *astroState) update(lux float64, now time.Time, cfg *Config) (entered, exited bool) {
	if lux <= cfg.AstroEnterLux {
		if a.belowSince.IsZero() {
			a.belowSince = now
		}
	} else {
		a.belowSince = time.Time{}
	}
	if lux >= cfg.AstroExitLux {
		if a.aboveSince.IsZero() {
			a.aboveSince = now
		}
	} else {
		a.aboveSince = time.Time{}
	}

	if !a.active && !a.belowSince.IsZero() && now.Sub(a.belowSince) >= secs(cfg.AstroEnterHoldS) {
		a.active = true
		entered = true
	}
	if a.active && !a.aboveSince.IsZero() && now.Sub(a.aboveSince) >= secs(cfg.AstroExitHoldS) {
		a.active = false
		a.written = false
		exited = true
	}
	return entered, exited
}

func secs(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// NewController creates the exposure controller. The EMA is seeded from
// the live record so the first ticks continue from wherever the system
// currently sits instead of jumping.
func NewController(cfg Config, st *store.Store, dryRun bool) *Controller {
	live := st.Read()
	shutter := live.ShutterOr(store.DefaultShutter)
	gain := live.GainOr(store.DefaultGain)
	return &Controller{
		cfg:     cfg,
		store:   st,
		lux:     sensor.NewFeed(cfg.SensorCSV).Window(cfg.SensorColumn, cfg.AvgSamples),
		dryRun:  dryRun,
		ema:     math.Max(1, float64(shutter)*math.Max(gain, 1)),
		shutter: shutter,
		gain:    gain,
		lastCam: live.CameraIDOr(store.DefaultCameraID),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
}

// SetMetrics attaches loop metrics. Optional.
func (c *Controller) SetMetrics(m *obsrv.LoopMetrics) { c.metrics = m }

// Run executes the control loop until Stop is called. Any single-tick
// failure is logged and the loop proceeds after the configured interval.
func (c *Controller) Run() {
	interval := secs(c.cfg.IntervalS)
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

// Stop halts the control loop cleanly before the next tick.
func (c *Controller) Stop() {
	close(c.stop)
}

// Tick runs one control cycle.
func (c *Controller) Tick() error {
	lux, err := c.lux.Average()
	if err != nil {
		log.Warn("no lux data this tick", "err", err)
		return nil
	}
	c.metrics.SetLux(lux)

	live := c.store.Read()
	c.shutter = live.ShutterOr(c.shutter)
	c.gain = live.GainOr(c.gain)
	cam := live.CameraIDOr(store.DefaultCameraID)
	now := c.now()

	entered, exited := c.astro.update(lux, now, &c.cfg)
	if entered {
		log.Info("astro mode active", "lux", lux)
	}
	if exited {
		log.Info("astro mode deactivated", "lux", lux)
	}

	if c.astro.active {
		return c.tickAstro(lux)
	}

	if cam != c.lastCam {
		if c.cfg.HoldAfterCamSwitchS > 0 {
			c.holdUntil = now.Add(secs(c.cfg.HoldAfterCamSwitchS))
			log.Info("camera switch detected, pausing",
				"from", c.lastCam, "to", cam, "hold_s", c.cfg.HoldAfterCamSwitchS)
		}
		c.lastCam = cam
	}
	if !c.holdUntil.IsZero() && now.Before(c.holdUntil) {
		return nil
	}

	tgt := c.computeTargets(lux, cam, live)
	c.ema = tgt.emaET

	if c.cfg.WriteGated() && live.AEOn() {
		log.Info("auto exposure on, skipping write",
			"lux", lux, "target_shutter_us", tgt.shutterUS, "target_gain", tgt.gain)
		c.metrics.WriteSkipped()
		return nil
	}

	propS, propG := c.limitAndClamp(tgt, live, cam)

	writeS := math.Abs(float64(propS-c.shutter)) >= float64(c.cfg.MinWriteDeltaShutterUS)
	writeG := math.Abs(propG-c.gain) >= c.cfg.MinWriteDeltaGain
	if !writeS && !writeG {
		log.Debug("within write deltas, holding",
			"lux", lux, "shutter_us", propS, "gain", propG)
		c.metrics.WriteSkipped()
		return nil
	}

	if c.dryRun {
		log.Info("dry run, would write",
			"shutter_us", propS, "write_shutter", writeS, "gain", propG, "write_gain", writeG)
		return nil
	}

	err = c.store.Update(func(r *store.Record) {
		if writeS {
			r.Shutter = propS
		}
		if writeG {
			r.Gain = round3(propG)
		}
	})
	if err != nil {
		return err
	}
	c.metrics.WriteApplied()
	log.Info("exposure updated",
		"lux", lux, "ema_et_us", int(tgt.emaET), "raw_et_us", int(tgt.rawET),
		"shutter_us", propS, "gain", propG)
	return nil
}

// tickAstro writes the fixed astro parameters exactly once per activation.
func (c *Controller) tickAstro(lux float64) error {
	if c.astro.written || c.dryRun {
		log.Info("astro mode holding fixed values", "lux", lux)
		return nil
	}
	err := c.store.Update(func(r *store.Record) {
		r.Shutter = c.cfg.AstroShutterUS
		r.Gain = round3(c.cfg.AstroGain)
	})
	if err != nil {
		return err
	}
	c.astro.written = true
	c.metrics.WriteApplied()
	log.Info("astro values written",
		"shutter_us", c.cfg.AstroShutterUS, "gain", c.cfg.AstroGain)
	return nil
}

// computeTargets maps the lux average to smoothed shutter/gain targets.
func (c *Controller) computeTargets(lux float64, cam string, live *store.Record) targets {
	table := TableForCamera(c.cfg.Tables, c.cfg.Table, cam)
	raw := table.Interpolate(lux)

	alpha := c.cfg.SmoothingET
	ema := raw
	if c.ema > 0 {
		ema = alpha*c.ema + (1-alpha)*raw
	}

	ceiling := shutterCeilingUS(
		live.MinIntervalOr(store.DefaultMinInterval), live.RawDelay, c.cfg.IntervalOverheadS)
	maxS := math.Min(float64(c.cfg.MaxShutterUS), ceiling)

	s := clamp(ema, float64(c.cfg.MinShutterUS), maxS)
	g := clamp(ema/math.Max(s, 1), c.cfg.MinGain, c.maxGainFor(cam))

	sInt := int(math.Round(s))
	if c.cfg.QuantizeShutterUS > 0 && sInt >= c.cfg.QuantizeMinUS {
		sInt = quantize(s, c.cfg.QuantizeShutterUS)
	}
	return targets{shutterUS: sInt, gain: g, emaET: ema, rawET: raw}
}

// limitAndClamp applies the per-tick step limiter against the live values,
// then re-applies the absolute and interval-derived bounds from the freshly
// read record.
func (c *Controller) limitAndClamp(tgt targets, live *store.Record, cam string) (int, float64) {
	pctS := c.cfg.MaxStepShutterPct
	propS := clamp(float64(tgt.shutterUS),
		float64(c.shutter)*(1-pctS), float64(c.shutter)*(1+pctS))

	pctG := c.cfg.MaxStepGainPct
	propG := clamp(tgt.gain, c.gain*(1-pctG), c.gain*(1+pctG))

	ceiling := shutterCeilingUS(
		live.MinIntervalOr(store.DefaultMinInterval), live.RawDelay, c.cfg.IntervalOverheadS)
	propS = clamp(propS,
		float64(c.cfg.MinShutterUS), math.Min(float64(c.cfg.MaxShutterUS), ceiling))

	sInt := int(math.Round(propS))
	if c.cfg.QuantizeShutterUS > 0 && sInt >= c.cfg.QuantizeMinUS {
		sInt = quantize(propS, c.cfg.QuantizeShutterUS)
	}
	propG = clamp(propG, c.cfg.MinGain, c.maxGainFor(cam))
	return sInt, propG
}

// maxGainFor returns the effective gain ceiling for a camera model.
func (c *Controller) maxGainFor(cam string) float64 {
	maxG := c.cfg.MaxGain
	if byCam, ok := c.cfg.MaxGainByCamera[cam]; ok {
		maxG = math.Min(byCam, maxG)
	}
	return maxG
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
