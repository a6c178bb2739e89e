// Package exposure maps ambient light to shutter time and analogue gain.
//
// The mapping runs through a static anchor table interpolated log-log, an
// exponential moving average, a shutter/gain split against configured and
// interval-derived ceilings, optional quantization and a per-tick step
// limiter. A hysteresis state machine switches into a fixed-parameter
// astro mode in very low light.
package exposure

import (
	"math"
	"sort"
)

// Anchor is one (lux, exposure time) point of the mapping table.
type Anchor struct {
	Lux  float64 `json:"lux"`
	ETUS float64 `json:"et_us"`
}

// Table is an ordered list of anchors. Interpolation sorts it
// lux-descending itself, so file order does not matter.
type Table []Anchor

// fallbackTable is used when neither a per-camera nor a global table is
// configured. Spans bright daylight down to deep night.
var fallbackTable = Table{
	{Lux: 2000, ETUS: 4000},
	{Lux: 200, ETUS: 40000},
	{Lux: 20, ETUS: 400000},
	{Lux: 2, ETUS: 1200000},
	{Lux: 0.2, ETUS: 8000000},
}

// Interpolate maps lux to a raw exposure time in µs by piecewise log-log
// linear interpolation. Outside the table's domain the extreme anchor's
// exposure time is returned unchanged.
func (t Table) Interpolate(lux float64) float64 {
	if len(t) == 0 {
		return 0
	}
	if lux <= 0 {
		lux = 1e-6
	}
	sorted := make(Table, len(t))
	copy(sorted, t)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Lux > sorted[j].Lux })

	if lux >= sorted[0].Lux {
		return sorted[0].ETUS
	}
	last := sorted[len(sorted)-1]
	if lux <= last.Lux {
		return last.ETUS
	}

	lx := math.Log(lux)
	for i := 0; i < len(sorted)-1; i++ {
		hi, lo := sorted[i], sorted[i+1]
		if lo.Lux <= lux && lux <= hi.Lux {
			lhi, llo := math.Log(hi.Lux), math.Log(lo.Lux)
			thi, tlo := math.Log(hi.ETUS), math.Log(lo.ETUS)
			u := (lx - llo) / (lhi - llo)
			return math.Exp(tlo + u*(thi-tlo))
		}
	}
	return last.ETUS
}

// TableForCamera resolves the table for a camera id: the per-camera set
// first, then the flat global table, then the built-in fallback.
func TableForCamera(tables map[string]Table, global Table, cameraID string) Table {
	if t, ok := tables[cameraID]; ok && len(t) > 0 {
		return t
	}
	if len(global) > 0 {
		return global
	}
	return fallbackTable
}
