package exposure

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds all tunable parameters for the exposure controller.
// Parameters are organized by stage for clarity.
type Config struct {
	// Sensor feed
	SensorCSV    string `json:"sensor_csv"`
	SensorColumn string `json:"sensor_column"`
	AvgSamples   int    `json:"avg_samples"`

	// Loop
	IntervalS float64 `json:"interval_s"`

	// Smoothing
	SmoothingET float64 `json:"smoothing_et"` // EMA weight of the previous value

	// Shutter/gain split
	MinShutterUS      int                `json:"min_shutter_us"`
	MaxShutterUS      int                `json:"max_shutter_us"`
	MinGain           float64            `json:"min_gain"`
	MaxGain           float64            `json:"max_gain"`
	MaxGainByCamera   map[string]float64 `json:"max_gain_by_camera"`
	IntervalOverheadS float64            `json:"interval_overhead_s"`

	// Quantization (e.g. 10000µs steps to stay on 50Hz flicker multiples)
	QuantizeShutterUS int `json:"quantize_shutter_us"`
	QuantizeMinUS     int `json:"quantize_min_us"`

	// Step limiting and write gating
	MaxStepShutterPct      float64 `json:"max_step_shutter_pct"`
	MaxStepGainPct         float64 `json:"max_step_gain_pct"`
	MinWriteDeltaShutterUS int     `json:"min_write_delta_shutter_us"`
	MinWriteDeltaGain      float64 `json:"min_write_delta_gain"`
	WriteOnlyIfAEOff       *bool   `json:"write_only_if_ae_off"`

	// Camera switch pause
	HoldAfterCamSwitchS float64 `json:"hold_after_cam_switch_s"`

	// Astro mode
	AstroEnterLux   float64 `json:"astro_enter_lux"`
	AstroExitLux    float64 `json:"astro_exit_lux"`
	AstroEnterHoldS float64 `json:"astro_enter_hold_s"`
	AstroExitHoldS  float64 `json:"astro_exit_hold_s"`
	AstroShutterUS  int     `json:"astro_shutter_us"`
	AstroGain       float64 `json:"astro_gain"`

	// Exposure tables
	Tables map[string]Table `json:"tables"`
	Table  Table            `json:"table"`
}

// DefaultConfig returns a Config with sensible defaults for a Raspberry Pi
// camera running ten-second timelapse intervals.
func DefaultConfig() Config {
	return Config{
		SensorCSV:    "sensor_log.csv",
		SensorColumn: "veml_autolux",
		AvgSamples:   5,

		IntervalS: 10,

		SmoothingET: 0.7,

		MinShutterUS:      100,
		MaxShutterUS:      9_000_000,
		MinGain:           1.0,
		MaxGain:           16.0,
		IntervalOverheadS: 0.5,

		QuantizeShutterUS: 0,
		QuantizeMinUS:     8000,

		MaxStepShutterPct:      0.30,
		MaxStepGainPct:         0.30,
		MinWriteDeltaShutterUS: 100,
		MinWriteDeltaGain:      0.05,

		AstroEnterLux:   0.05,
		AstroExitLux:    0.10,
		AstroEnterHoldS: 60,
		AstroExitHoldS:  60,
		AstroShutterUS:  8_000_000,
		AstroGain:       8.0,
	}
}

// LoadConfig reads a JSON control file over the defaults. Exit threshold
// defaults to twice the enter threshold when absent, keeping a hysteresis
// band even in minimal files.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("exposure: read control file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("exposure: parse control file: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	if c.IntervalS <= 0 {
		c.IntervalS = DefaultConfig().IntervalS
	}
	if c.AvgSamples < 1 {
		c.AvgSamples = 1
	}
	if c.AstroExitLux <= c.AstroEnterLux {
		c.AstroExitLux = c.AstroEnterLux * 2
	}
}

// WriteGated reports whether writes are suppressed while auto exposure is
// enabled in the live record. Defaults to true.
func (c *Config) WriteGated() bool {
	if c.WriteOnlyIfAEOff == nil {
		return true
	}
	return *c.WriteOnlyIfAEOff
}
