package store

import "encoding/json"

// recordAlias avoids recursing into the custom JSON methods.
type recordAlias Record

// knownKeys are the fields the suite interprets; everything else round-trips
// through Extra untouched.
var knownKeys = map[string]bool{
	"shutter":          true,
	"gain":             true,
	"ae_enable":        true,
	"awb_enable":       true,
	"awb_gain_r":       true,
	"awb_gain_b":       true,
	"camera_id":        true,
	"use_hdr":          true,
	"resolution":       true,
	"min_interval":     true,
	"raw_delay":        true,
	"duration":         true,
	"timelapse_folder": true,
	"raw_folder":       true,
	"log_folder":       true,
}

// UnmarshalJSON decodes the recognized fields and stashes everything else
// in Extra so a later rewrite preserves foreign keys.
func (r *Record) UnmarshalJSON(data []byte) error {
	var a recordAlias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	extra := make(map[string]any)
	for k, v := range raw {
		if knownKeys[k] {
			continue
		}
		var val any
		if err := json.Unmarshal(v, &val); err != nil {
			continue
		}
		extra[k] = val
	}
	*r = Record(a)
	if len(extra) > 0 {
		r.Extra = extra
	}
	return nil
}

// MarshalJSON encodes the recognized fields merged with Extra.
func (r Record) MarshalJSON() ([]byte, error) {
	data, err := json.Marshal(recordAlias(r))
	if err != nil {
		return nil, err
	}
	if len(r.Extra) == 0 {
		return data, nil
	}
	var merged map[string]any
	if err := json.Unmarshal(data, &merged); err != nil {
		return nil, err
	}
	for k, v := range r.Extra {
		if _, clash := merged[k]; !clash {
			merged[k] = v
		}
	}
	return json.Marshal(merged)
}
