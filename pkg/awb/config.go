package awb

import (
	"encoding/json"
	"fmt"
	"os"
)

// Config holds the tunable parameters of the white-balance loop.
type Config struct {
	// Feeds
	ColorCSV    string `json:"color_csv"`
	LuxCSV      string `json:"lux_csv"`
	RedColumn   string `json:"color_red_col"`
	GreenColumn string `json:"color_green_col"`
	BlueColumn  string `json:"color_blue_col"`
	LuxColumn   string `json:"lux_col"`

	// Loop and gates
	IntervalS          float64 `json:"interval_s"`
	LuxWindowSamples   int     `json:"lux_window_samples"`
	RequireAWBDisabled bool    `json:"require_awb_disabled"`
	UseLuxGate         bool    `json:"use_lux_gate"`
	NightMaxLux        float64 `json:"night_max_lux"`

	// Control
	Deadband       float64 `json:"deadband"`
	KP             float64 `json:"k_p"`
	StepMax        float64 `json:"step_max"`
	SmoothingAlpha float64 `json:"smoothing_alpha"`
	GainMin        float64 `json:"gain_min"`
	GainMax        float64 `json:"gain_max"`
}

// DefaultConfig returns the defaults for a TCS34725 colour sensor feeding
// a five-second adjustment loop.
func DefaultConfig() Config {
	return Config{
		ColorCSV:    "color_log.csv",
		LuxCSV:      "sensor_log.csv",
		RedColumn:   "tcs_r",
		GreenColumn: "tcs_g",
		BlueColumn:  "tcs_b",
		LuxColumn:   "veml_autolux",

		IntervalS:          5,
		LuxWindowSamples:   10,
		RequireAWBDisabled: true,
		UseLuxGate:         true,
		NightMaxLux:        1.0,

		Deadband:       0.03,
		KP:             0.5,
		StepMax:        0.05,
		SmoothingAlpha: 0.3,
		GainMin:        0.5,
		GainMax:        8.0,
	}
}

// LoadConfig reads a JSON control file over the defaults. A missing file
// just means defaults.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("awb: read control file: %w", err)
	}
	if err := json.Unmarshal(data, &cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("awb: parse control file: %w", err)
	}
	if cfg.IntervalS <= 0 {
		cfg.IntervalS = DefaultConfig().IntervalS
	}
	if cfg.LuxWindowSamples < 1 {
		cfg.LuxWindowSamples = 1
	}
	return cfg, nil
}
