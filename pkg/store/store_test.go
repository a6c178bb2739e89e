package store

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	return New(filepath.Join(dir, "config_tl.json"), filepath.Join(dir, "tlcfg.lock"))
}

func TestRead_MissingFile(t *testing.T) {
	s := newTestStore(t)

	rec := s.Read()
	if rec == nil {
		t.Fatal("Read returned nil for missing file")
	}
	if rec.Shutter != 0 || rec.CameraID != "" {
		t.Errorf("expected empty record, got %+v", rec)
	}
	if !rec.AEOn() || !rec.AWBOn() {
		t.Error("absent ae_enable/awb_enable should default to on")
	}
}

func TestRead_MalformedJSON(t *testing.T) {
	s := newTestStore(t)
	if err := os.WriteFile(s.Path(), []byte(`{"shutter": 400`), 0o644); err != nil {
		t.Fatal(err)
	}

	rec := s.Read()
	if rec.Shutter != 0 {
		t.Errorf("malformed file should yield empty record, got shutter=%d", rec.Shutter)
	}
}

func TestUpdate_WritesAtomically(t *testing.T) {
	s := newTestStore(t)

	err := s.Update(func(r *Record) {
		r.Shutter = 8000
		r.Gain = 2.5
		r.CameraID = "imx708"
	})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}

	rec := s.Read()
	if rec.Shutter != 8000 {
		t.Errorf("shutter: got %d, want 8000", rec.Shutter)
	}
	if rec.Gain != 2.5 {
		t.Errorf("gain: got %v, want 2.5", rec.Gain)
	}
	if _, err := os.Stat(s.Path() + ".tmp"); !os.IsNotExist(err) {
		t.Error("temp file left behind after rename")
	}
}

func TestUpdate_ReadsFreshUnderLock(t *testing.T) {
	s := newTestStore(t)
	if err := s.Update(func(r *Record) { r.Shutter = 1000 }); err != nil {
		t.Fatal(err)
	}

	// A stale caller that only sets gain must not clobber a sibling's
	// shutter write that landed in between.
	stale := s.Read()
	_ = stale
	if err := s.Update(func(r *Record) { r.Shutter = 2000 }); err != nil {
		t.Fatal(err)
	}
	if err := s.Update(func(r *Record) { r.Gain = 4.0 }); err != nil {
		t.Fatal(err)
	}

	rec := s.Read()
	if rec.Shutter != 2000 {
		t.Errorf("shutter clobbered: got %d, want 2000", rec.Shutter)
	}
	if rec.Gain != 4.0 {
		t.Errorf("gain: got %v, want 4.0", rec.Gain)
	}
}

func TestRecord_PreservesForeignKeys(t *testing.T) {
	s := newTestStore(t)
	src := []byte(`{"shutter": 4000, "awb_mode": "tungsten", "nr_mode": "off", "resolution": [1920, 1080]}`)
	if err := os.WriteFile(s.Path(), src, 0o644); err != nil {
		t.Fatal(err)
	}

	if err := s.Update(func(r *Record) { r.Gain = 1.5 }); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(s.Path())
	if err != nil {
		t.Fatal(err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatal(err)
	}
	if raw["awb_mode"] != "tungsten" {
		t.Errorf("awb_mode lost on rewrite: %v", raw["awb_mode"])
	}
	if raw["nr_mode"] != "off" {
		t.Errorf("nr_mode lost on rewrite: %v", raw["nr_mode"])
	}
	if raw["shutter"] != float64(4000) {
		t.Errorf("shutter: got %v, want 4000", raw["shutter"])
	}
}

func TestRecord_Defaults(t *testing.T) {
	rec := &Record{}

	if got := rec.ShutterOr(DefaultShutter); got != DefaultShutter {
		t.Errorf("ShutterOr: got %d", got)
	}
	if got := rec.GainOr(DefaultGain); got != DefaultGain {
		t.Errorf("GainOr: got %v", got)
	}
	if got := rec.CameraIDOr(DefaultCameraID); got != DefaultCameraID {
		t.Errorf("CameraIDOr: got %q", got)
	}
	r, b := rec.AWBGains()
	if r != 1.0 || b != 1.0 {
		t.Errorf("AWBGains: got %v,%v want 1,1", r, b)
	}
}

func TestRecord_CameraIDLowercased(t *testing.T) {
	rec := &Record{CameraID: "IMX708"}
	if got := rec.CameraIDOr("x"); got != "imx708" {
		t.Errorf("CameraIDOr: got %q, want imx708", got)
	}
}

func TestProbe_BadLockPath(t *testing.T) {
	s := New(filepath.Join(t.TempDir(), "config.json"), "/nonexistent-dir/deep/tlcfg.lock")
	if err := s.Probe(); err == nil {
		t.Error("Probe should fail for unreachable lock path")
	}
}
