// Package store provides the shared capture-parameter record and the
// lock-coordinated JSON store the control daemons read and mutate.
//
// The record file is the single source of truth for the capture process.
// Up to three daemons rewrite it concurrently; every writer holds an
// exclusive advisory lock on a separate well-known lock file for the
// duration of its read-modify-write and replaces the file atomically.
package store

import "strings"

// Record holds the live capture parameters persisted in config_tl.json.
// Unknown keys written by other tools are preserved across rewrites via
// the Extra map.
type Record struct {
	Shutter    int     `json:"shutter,omitempty"`     // exposure time, µs
	Gain       float64 `json:"gain,omitempty"`        // analogue gain
	AEEnable   *bool   `json:"ae_enable,omitempty"`   // auto exposure
	AWBEnable  *bool   `json:"awb_enable,omitempty"`  // auto white balance
	AWBGainR   float64 `json:"awb_gain_r,omitempty"`  // manual red gain
	AWBGainB   float64 `json:"awb_gain_b,omitempty"`  // manual blue gain
	CameraID   string  `json:"camera_id,omitempty"`   // sensor model substring, e.g. "imx708"
	UseHDR     bool    `json:"use_hdr,omitempty"`
	Resolution []int   `json:"resolution,omitempty"` // [width, height]

	MinInterval float64 `json:"min_interval,omitempty"` // seconds between frames
	RawDelay    float64 `json:"raw_delay,omitempty"`    // extra delay for raw capture, s
	Duration    float64 `json:"duration,omitempty"`     // session length, s (0 = endless)

	TimelapseFolder string `json:"timelapse_folder,omitempty"`
	RawFolder       string `json:"raw_folder,omitempty"`
	LogFolder       string `json:"log_folder,omitempty"`

	// Extra carries fields this suite does not interpret (awb_mode,
	// noise reduction, autofocus settings, ...) so a rewrite never
	// drops another tool's keys.
	Extra map[string]any `json:"-"`
}

// Defaults applied when a field is absent from the file.
const (
	DefaultShutter     = 4000
	DefaultGain        = 1.0
	DefaultCameraID    = "imx708"
	DefaultMinInterval = 10.0
	DefaultAWBGain     = 1.0
)

// AEOn reports whether auto exposure is enabled; absent means enabled.
func (r *Record) AEOn() bool {
	if r.AEEnable == nil {
		return true
	}
	return *r.AEEnable
}

// AWBOn reports whether auto white balance is enabled; absent means enabled.
func (r *Record) AWBOn() bool {
	if r.AWBEnable == nil {
		return true
	}
	return *r.AWBEnable
}

// ShutterOr returns the shutter or def when unset.
func (r *Record) ShutterOr(def int) int {
	if r.Shutter == 0 {
		return def
	}
	return r.Shutter
}

// GainOr returns the gain or def when unset.
func (r *Record) GainOr(def float64) float64 {
	if r.Gain == 0 {
		return def
	}
	return r.Gain
}

// AWBGains returns the manual white-balance gains, defaulted to 1.0.
func (r *Record) AWBGains() (red, blue float64) {
	red, blue = r.AWBGainR, r.AWBGainB
	if red == 0 {
		red = DefaultAWBGain
	}
	if blue == 0 {
		blue = DefaultAWBGain
	}
	return red, blue
}

// MinIntervalOr returns the frame interval or def when unset.
func (r *Record) MinIntervalOr(def float64) float64 {
	if r.MinInterval == 0 {
		return def
	}
	return r.MinInterval
}

// CameraIDOr returns the lowercase camera id or def when unset.
func (r *Record) CameraIDOr(def string) string {
	if r.CameraID == "" {
		return def
	}
	return strings.ToLower(r.CameraID)
}
