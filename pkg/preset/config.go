package preset

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
)

// Mapping is one lux-range-to-preset rule. Rules are evaluated in file
// order; the first rule whose inclusive range contains the average wins.
type Mapping struct {
	MinLux float64 `json:"min_lux"`
	MaxLux float64 `json:"max_lux"`
	Preset string  `json:"preset"`
}

// Matches reports whether avg falls inside the rule's range.
func (m Mapping) Matches(avg float64) bool {
	return m.MinLux <= avg && avg <= m.MaxLux
}

// Choose evaluates the ordered rules and returns the first matching
// preset name, or "" when no rule matches.
func Choose(avg float64, mappings []Mapping) string {
	for _, m := range mappings {
		if m.Matches(avg) {
			return m.Preset
		}
	}
	return ""
}

// Config is the live control surface for the preset switcher. It is
// re-read every tick, so edits (from the dashboard or by hand) take
// effect without a daemon restart.
type Config struct {
	Enabled        bool      `json:"enabled"`
	CheckIntervalS int       `json:"check_interval_s"`
	SwitchDelayS   int       `json:"switch_delay_s"`
	CooldownS      int       `json:"cooldown_s"`
	SensorLogCSV   string    `json:"sensor_log_csv"`
	SensorLuxCol   string    `json:"sensor_lux_column"`
	PresetsDir     string    `json:"presets_dir"`
	Mappings       []Mapping `json:"mappings"`
	ForcePreset    string    `json:"force_preset"`
}

// DefaultConfig returns the switcher defaults: a one-minute check with a
// five-minute averaging window and a fifteen-minute dwell after a switch.
func DefaultConfig() Config {
	return Config{
		Enabled:        true,
		CheckIntervalS: 60,
		SwitchDelayS:   300,
		CooldownS:      900,
		SensorLogCSV:   "sensor_log.csv",
		SensorLuxCol:   "veml_autolux",
		PresetsDir:     "/mnt/hdd/timelapse/presets",
	}
}

// LoadConfig reads the control file over the defaults. A missing file
// disables nothing; it just means defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("preset: read control file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("preset: parse control file: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.CheckIntervalS < 1 {
		c.CheckIntervalS = 1
	}
	if c.SwitchDelayS < 1 {
		c.SwitchDelayS = 1
	}
	if c.CooldownS < 1 {
		c.CooldownS = 1
	}
}

// WindowSamples sizes the trailing lux window so the average spans the
// switch delay: round(switch_delay / check_interval), minimum 1.
func (c *Config) WindowSamples() int {
	n := int(math.Round(float64(c.SwitchDelayS) / float64(c.CheckIntervalS)))
	if n < 1 {
		n = 1
	}
	return n
}
