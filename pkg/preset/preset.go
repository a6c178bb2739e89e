// Package preset switches the capture config between named scene bundles
// based on ambient light, restarting the capture process when a
// structurally significant parameter changes.
package preset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"reflect"

	"github.com/nevs77-02/pi-timelaps/internal/log"
	"github.com/nevs77-02/pi-timelaps/pkg/store"
)

// criticalKeys are the config fields whose change requires a capture
// process restart rather than a hot reload.
var criticalKeys = []string{
	"camera_id",
	"use_hdr",
	"resolution",
	"timelapse_folder",
	"raw_folder",
	"duration",
}

// runtimeTunable are the fields the exposure and colour loops own. A scene
// switch carries them over from the live record so hours of convergence
// are not thrown away at a mapping boundary.
var runtimeTunable = []string{
	"shutter",
	"gain",
	"awb_gain_r",
	"awb_gain_b",
}

// Load reads a preset bundle by name (resolved in dir as <name>.json) or
// by absolute path. The bundle is the file's raw key set: a typed decode
// would drop zero-valued fields on re-marshal, and a preset saying
// use_hdr false or duration 0 means exactly that.
func Load(nameOrPath, dir string) (map[string]any, error) {
	path := nameOrPath
	if !filepath.IsAbs(nameOrPath) {
		path = filepath.Join(dir, nameOrPath+".json")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("preset: read %s: %w", path, err)
	}
	// Typed decode first, so a mistyped field fails at load time.
	if err := json.Unmarshal(data, &store.Record{}); err != nil {
		return nil, fmt.Errorf("preset: parse %s: %w", path, err)
	}
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("preset: parse %s: %w", path, err)
	}
	return raw, nil
}

// Overlay merges a preset bundle onto the live record. Every key present
// in the preset file wins over the live value, zero-valued or not, except
// the runtime-tunable fields, which keep their current live values when
// present. Keys in neither set survive from the live record untouched.
func Overlay(live *store.Record, preset map[string]any) (*store.Record, error) {
	liveMap, err := toMap(live)
	if err != nil {
		return nil, err
	}

	merged := make(map[string]any, len(liveMap)+len(preset))
	for k, v := range liveMap {
		merged[k] = v
	}
	for k, v := range preset {
		merged[k] = v
	}
	for _, k := range runtimeTunable {
		if v, ok := liveMap[k]; ok {
			merged[k] = v
		}
	}

	data, err := json.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("preset: merge: %w", err)
	}
	out := &store.Record{}
	if err := json.Unmarshal(data, out); err != nil {
		return nil, fmt.Errorf("preset: merge: %w", err)
	}
	return out, nil
}

// NeedsRestart reports whether any critical key differs between the pre-
// and post-apply records.
func NeedsRestart(oldRec, newRec *store.Record) bool {
	oldMap, err1 := toMap(oldRec)
	newMap, err2 := toMap(newRec)
	if err1 != nil || err2 != nil {
		return true
	}
	for _, k := range criticalKeys {
		if !reflect.DeepEqual(oldMap[k], newMap[k]) {
			log.Info("critical config change", "key", k,
				"from", oldMap[k], "to", newMap[k])
			return true
		}
	}
	return false
}

func toMap(rec *store.Record) (map[string]any, error) {
	data, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("preset: marshal record: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("preset: unmarshal record: %w", err)
	}
	return m, nil
}
