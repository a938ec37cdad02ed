// Package viseme turns raw lip-sync timelines into morph target influences
// driven by an audio clock.
package viseme

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// Window is the half-width, in seconds, of a frame's influence ramp.
const Window = 0.14

// millisecondThreshold flips a whole timeline to milliseconds when any raw
// time exceeds it.
const millisecondThreshold = 20

// RawFrame is one timeline entry as produced by the speech service. Time
// is in seconds or milliseconds; the unit is inferred per timeline.
type RawFrame struct {
	ShapeKey string
	Viseme   string
	Time     float64
}

// UnmarshalJSON accepts shapeKey and viseme strings and a time in
// "tiempo", "time" or "timestamp" (first numeric one wins). Non-string
// viseme ids are ignored.
func (f *RawFrame) UnmarshalJSON(data []byte) error {
	var raw struct {
		ShapeKey  json.RawMessage `json:"shapeKey"`
		Viseme    json.RawMessage `json:"viseme"`
		Tiempo    json.RawMessage `json:"tiempo"`
		Time      json.RawMessage `json:"time"`
		Timestamp json.RawMessage `json:"timestamp"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("viseme frame: %w", err)
	}

	*f = RawFrame{
		ShapeKey: jsonString(raw.ShapeKey),
		Viseme:   jsonString(raw.Viseme),
	}
	for _, t := range []json.RawMessage{raw.Tiempo, raw.Time, raw.Timestamp} {
		if v, ok := jsonNumber(t); ok {
			f.Time = v
			break
		}
	}
	return nil
}

// MarshalJSON writes the frame in the speech service's field names.
func (f RawFrame) MarshalJSON() ([]byte, error) {
	out := struct {
		ShapeKey string  `json:"shapeKey,omitempty"`
		Viseme   string  `json:"viseme,omitempty"`
		Tiempo   float64 `json:"tiempo"`
	}{f.ShapeKey, f.Viseme, f.Time}
	return json.Marshal(out)
}

func jsonString(raw json.RawMessage) string {
	if len(raw) == 0 || raw[0] != '"' {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func jsonNumber(raw json.RawMessage) (float64, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] == '"' || raw[0] == 'n' {
		return 0, false
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, false
	}
	return v, true
}

// Frame is a resolved timeline entry.
type Frame struct {
	Index int     // Morph influence index on the primary mesh
	Time  float64 // Seconds
}
