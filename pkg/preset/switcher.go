package preset

import (
	"fmt"
	"time"

	"github.com/nevs77-02/pi-timelaps/internal/log"
	"github.com/nevs77-02/pi-timelaps/internal/obsrv"
	"github.com/nevs77-02/pi-timelaps/pkg/sensor"
	"github.com/nevs77-02/pi-timelaps/pkg/store"
	"github.com/nevs77-02/pi-timelaps/pkg/supervise"
)

// Switcher runs the lux → preset loop. It is the only component that ever
// restarts the capture process, so restarts are serialized by its loop.
type Switcher struct {
	ctlPath string
	store   *store.Store
	sup     supervise.Supervisor
	cycle   supervise.CycleOpts

	metrics *obsrv.LoopMetrics

	// control state, process-local
	current    string
	lastSwitch time.Time

	// trailing lux window, rebuilt when the control file changes its feed
	win     *sensor.Window
	winPath string
	winCol  string
	winN    int

	now  func() time.Time
	stop chan struct{}
}

// NewSwitcher creates the preset switcher reading its control file from
// ctlPath and commanding the capture process through sup.
func NewSwitcher(ctlPath string, st *store.Store, sup supervise.Supervisor) *Switcher {
	return &Switcher{
		ctlPath: ctlPath,
		store:   st,
		sup:     sup,
		cycle:   supervise.DefaultCycleOpts(),
		now:     time.Now,
		stop:    make(chan struct{}),
	}
}

// SetMetrics attaches loop metrics. Optional.
func (s *Switcher) SetMetrics(m *obsrv.LoopMetrics) { s.metrics = m }

// Run executes the loop until Stop is called. The check interval comes
// from the control file and is re-read every tick.
func (s *Switcher) Run() {
	for {
		cfg, err := LoadConfig(s.ctlPath)
		if err != nil {
			log.Error("control file unreadable", "err", err)
			s.metrics.TickError()
			cfg = DefaultConfig()
		} else if err := s.Tick(&cfg); err != nil {
			log.Error("tick failed", "err", err)
			s.metrics.TickError()
		} else {
			s.metrics.TickOK()
		}
		select {
		case <-s.stop:
			return
		case <-time.After(time.Duration(cfg.CheckIntervalS) * time.Second):
		}
	}
}

// Stop halts the loop cleanly before the next tick.
func (s *Switcher) Stop() {
	close(s.stop)
}

// Tick runs one switching cycle against an already-loaded control config.
func (s *Switcher) Tick(cfg *Config) error {
	if !cfg.Enabled {
		log.Debug("switching disabled, idling")
		return nil
	}

	if cfg.ForcePreset != "" {
		if cfg.ForcePreset == s.current && s.sup.Running(s.store.Path()) {
			log.Debug("force preset already active", "preset", cfg.ForcePreset)
			return nil
		}
		log.Info("force preset active", "preset", cfg.ForcePreset)
		if err := s.Apply(cfg.ForcePreset, cfg); err != nil {
			return err
		}
		s.current = cfg.ForcePreset
		return nil
	}

	avg, err := s.luxWindow(cfg).Average()
	if err != nil {
		log.Warn("no lux data this tick", "err", err)
		return nil
	}
	s.metrics.SetLux(avg)

	name := Choose(avg, cfg.Mappings)
	log.Debug("preset resolved", "lux", avg, "samples", cfg.WindowSamples(), "preset", name)
	if name == "" || name == s.current {
		return nil
	}

	now := s.now()
	if !s.lastSwitch.IsZero() && now.Sub(s.lastSwitch) < time.Duration(cfg.CooldownS)*time.Second {
		left := time.Duration(cfg.CooldownS)*time.Second - now.Sub(s.lastSwitch)
		log.Info("preset change deferred by cooldown", "preset", name, "remaining", left.Round(time.Second))
		return nil
	}

	if err := s.Apply(name, cfg); err != nil {
		return err
	}
	s.current = name
	s.lastSwitch = now
	return nil
}

// luxWindow returns the persistent trailing window for the control file's
// current feed settings, rebuilding it only when they change.
func (s *Switcher) luxWindow(cfg *Config) *sensor.Window {
	n := cfg.WindowSamples()
	if s.win == nil || s.winPath != cfg.SensorLogCSV || s.winCol != cfg.SensorLuxCol || s.winN != n {
		s.win = sensor.NewFeed(cfg.SensorLogCSV).Window(cfg.SensorLuxCol, n)
		s.winPath, s.winCol, s.winN = cfg.SensorLogCSV, cfg.SensorLuxCol, n
	}
	return s.win
}

// Apply overlays the named preset onto the live record (carrying over the
// runtime-tunable fields), persists it atomically, and restarts the
// capture process when a critical key changed or it is not running.
func (s *Switcher) Apply(name string, cfg *Config) error {
	bundle, err := Load(name, cfg.PresetsDir)
	if err != nil {
		return err
	}

	pre := s.store.Read()
	var mergeErr error
	err = s.store.Update(func(r *store.Record) {
		merged, e := Overlay(r, bundle)
		if e != nil {
			mergeErr = e
			return
		}
		*r = *merged
	})
	if err == nil {
		err = mergeErr
	}
	if err != nil {
		return fmt.Errorf("preset: apply %s: %w", name, err)
	}
	post := s.store.Read()
	log.Info("preset applied", "preset", name)

	if NeedsRestart(pre, post) || !s.sup.Running(s.store.Path()) {
		log.Info("restarting capture process", "preset", name)
		s.metrics.Restart()
		if err := supervise.Cycle(s.sup, s.store.Path(), s.cycle); err != nil {
			return fmt.Errorf("preset: restart after %s: %w", name, err)
		}
	}
	return nil
}
