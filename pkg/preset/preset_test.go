package preset

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/nevs77-02/pi-timelaps/pkg/store"
)

func TestChoose_FirstMatchWins(t *testing.T) {
	mappings := []Mapping{
		{MinLux: 0, MaxLux: 10, Preset: "night"},
		{MinLux: 5, MaxLux: 100, Preset: "dawn"},
		{MinLux: 100, MaxLux: 1e9, Preset: "day"},
	}

	if got := Choose(7, mappings); got != "night" {
		t.Errorf("overlapping ranges: got %q, want night (first rule)", got)
	}
	if got := Choose(50, mappings); got != "dawn" {
		t.Errorf("got %q, want dawn", got)
	}
	if got := Choose(1e10, mappings); got != "" {
		t.Errorf("no rule should match: got %q", got)
	}
}

func TestMapping_InclusiveBounds(t *testing.T) {
	m := Mapping{MinLux: 10, MaxLux: 20, Preset: "x"}
	if !m.Matches(10) || !m.Matches(20) {
		t.Error("range bounds are inclusive")
	}
	if m.Matches(9.999) || m.Matches(20.001) {
		t.Error("values outside the range must not match")
	}
}

func TestConfig_WindowSamples(t *testing.T) {
	cfg := Config{CheckIntervalS: 60, SwitchDelayS: 300}
	if got := cfg.WindowSamples(); got != 5 {
		t.Errorf("got %d, want 5", got)
	}
	cfg = Config{CheckIntervalS: 60, SwitchDelayS: 90}
	if got := cfg.WindowSamples(); got != 2 {
		t.Errorf("round(1.5): got %d, want 2", got)
	}
	cfg = Config{CheckIntervalS: 600, SwitchDelayS: 60}
	if got := cfg.WindowSamples(); got != 1 {
		t.Errorf("minimum window: got %d, want 1", got)
	}
}

func TestLoad_ByNameAndPath(t *testing.T) {
	dir := t.TempDir()
	body := []byte(`{"camera_id": "imx708", "shutter": 4000, "use_hdr": false}`)
	path := filepath.Join(dir, "day.json")
	if err := os.WriteFile(path, body, 0o644); err != nil {
		t.Fatal(err)
	}

	byName, err := Load("day", dir)
	if err != nil {
		t.Fatalf("Load by name: %v", err)
	}
	if byName["camera_id"] != "imx708" {
		t.Errorf("camera_id: got %v", byName["camera_id"])
	}
	if v, ok := byName["use_hdr"]; !ok || v != false {
		t.Errorf("zero-valued key lost at load: use_hdr=%v present=%v", v, ok)
	}

	byPath, err := Load(path, "/elsewhere")
	if err != nil {
		t.Fatalf("Load by path: %v", err)
	}
	if byPath["shutter"] != float64(4000) {
		t.Errorf("shutter: got %v", byPath["shutter"])
	}

	if _, err := Load("missing", dir); err == nil {
		t.Error("missing preset must error")
	}
}

func TestLoad_RejectsMistypedField(t *testing.T) {
	dir := t.TempDir()
	body := []byte(`{"shutter": "fast"}`)
	if err := os.WriteFile(filepath.Join(dir, "bad.json"), body, 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := Load("bad", dir); err == nil {
		t.Error("mistyped field must fail at load time")
	}
}

func TestOverlay_CarriesRuntimeTunables(t *testing.T) {
	ae := false
	live := &store.Record{
		Shutter:    123456,
		Gain:       3.21,
		AWBGainR:   1.8,
		AWBGainB:   2.2,
		AEEnable:   &ae,
		CameraID:   "imx708",
		Resolution: []int{1920, 1080},
	}
	preset := map[string]any{
		"shutter":    4000,
		"gain":       1.0,
		"awb_gain_r": 1.0,
		"awb_gain_b": 1.0,
		"camera_id":  "imx477",
		"resolution": []int{4056, 3040},
		"use_hdr":    true,
	}

	merged, err := Overlay(live, preset)
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}

	// Runtime-tunable fields keep the live values, not the preset's.
	if merged.Shutter != 123456 {
		t.Errorf("shutter reset by preset: got %d, want 123456", merged.Shutter)
	}
	if merged.Gain != 3.21 {
		t.Errorf("gain reset by preset: got %v, want 3.21", merged.Gain)
	}
	if merged.AWBGainR != 1.8 || merged.AWBGainB != 2.2 {
		t.Errorf("awb gains reset: got %v/%v", merged.AWBGainR, merged.AWBGainB)
	}

	// Everything else comes from the preset bundle.
	if merged.CameraID != "imx477" {
		t.Errorf("camera_id: got %q, want imx477", merged.CameraID)
	}
	if merged.Resolution[0] != 4056 {
		t.Errorf("resolution: got %v", merged.Resolution)
	}
	if !merged.UseHDR {
		t.Error("use_hdr lost")
	}

	// Live-only fields survive the overlay.
	if merged.AEEnable == nil || *merged.AEEnable != false {
		t.Error("ae_enable from live record lost")
	}
}

func TestOverlay_PresetValueUsedWhenLiveLacksField(t *testing.T) {
	live := &store.Record{CameraID: "imx708"}
	preset := map[string]any{"shutter": 4000}

	merged, err := Overlay(live, preset)
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	if merged.Shutter != 4000 {
		t.Errorf("preset shutter should seed an empty live record: got %d", merged.Shutter)
	}
}

func TestOverlay_ZeroValuedPresetFieldsApply(t *testing.T) {
	live := &store.Record{
		CameraID:        "imx708",
		UseHDR:          true,
		Duration:        60,
		TimelapseFolder: "/mnt/hdd/timelapse/summer",
	}
	preset := map[string]any{
		"use_hdr":          false,
		"duration":         0,
		"timelapse_folder": "",
	}

	merged, err := Overlay(live, preset)
	if err != nil {
		t.Fatalf("Overlay: %v", err)
	}
	if merged.UseHDR {
		t.Error("use_hdr false in the preset must override the live true")
	}
	if merged.Duration != 0 {
		t.Errorf("duration 0 (endless) must override: got %v", merged.Duration)
	}
	if merged.TimelapseFolder != "" {
		t.Errorf("empty folder must override: got %q", merged.TimelapseFolder)
	}
	if merged.CameraID != "imx708" {
		t.Errorf("keys absent from the preset must survive: got %q", merged.CameraID)
	}
	if !NeedsRestart(live, merged) {
		t.Error("hdr and duration changes are critical and must restart")
	}
}

func TestNeedsRestart(t *testing.T) {
	oldRec := &store.Record{CameraID: "imx708", Resolution: []int{1920, 1080}, Duration: 60}
	same := &store.Record{CameraID: "imx708", Resolution: []int{1920, 1080}, Duration: 60}
	if NeedsRestart(oldRec, same) {
		t.Error("identical critical keys must not restart")
	}

	hot := &store.Record{CameraID: "imx708", Resolution: []int{1920, 1080}, Duration: 60, Shutter: 999}
	if NeedsRestart(oldRec, hot) {
		t.Error("shutter is a hot-reload field, not critical")
	}

	res := &store.Record{CameraID: "imx708", Resolution: []int{4056, 3040}, Duration: 60}
	if !NeedsRestart(oldRec, res) {
		t.Error("resolution change must restart")
	}

	cam := &store.Record{CameraID: "imx477", Resolution: []int{1920, 1080}, Duration: 60}
	if !NeedsRestart(oldRec, cam) {
		t.Error("camera change must restart")
	}

	hdr := &store.Record{CameraID: "imx708", Resolution: []int{1920, 1080}, Duration: 60, UseHDR: true}
	if !NeedsRestart(oldRec, hdr) {
		t.Error("hdr change must restart")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("missing control file should mean defaults: %v", err)
	}
	if !cfg.Enabled || cfg.CheckIntervalS != 60 || cfg.CooldownS != 900 {
		t.Errorf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "lux_control.json")
	body := map[string]any{
		"enabled":          false,
		"check_interval_s": 30,
		"force_preset":     "day",
		"mappings": []map[string]any{
			{"min_lux": 0, "max_lux": 5, "preset": "night"},
		},
	}
	data, _ := json.Marshal(body)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Enabled {
		t.Error("enabled=false not honored")
	}
	if cfg.CheckIntervalS != 30 || cfg.ForcePreset != "day" || len(cfg.Mappings) != 1 {
		t.Errorf("overrides not applied: %+v", cfg)
	}
}
