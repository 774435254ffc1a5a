package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Tuning holds every policy constant the engine consults at runtime. Values
// left at zero in the file fall back to Defaults.
type Tuning struct {
	// Server side.
	BroadcastMinIntervalMs int      `yaml:"broadcast_min_interval_ms"`
	DeleteRangeM           float64  `yaml:"delete_range_m"`
	TelemetryBuffer        int      `yaml:"telemetry_buffer"`
	TelemetryMaxBytes      int      `yaml:"telemetry_max_bytes"`
	Palette                []string `yaml:"palette"`

	// Client side (uplink gating + smoothing).
	DeadBandM         float64 `yaml:"dead_band_m"`
	SendMinIntervalMs int     `yaml:"send_min_interval_ms"`
	SmoothingRate     float64 `yaml:"smoothing_rate"`
}

func Defaults() Tuning {
	return Tuning{
		BroadcastMinIntervalMs: 90,
		DeleteRangeM:           10,
		TelemetryBuffer:        256,
		TelemetryMaxBytes:      4096,
		Palette:                []string{"#00A3FF", "#FFCC00", "#34D399", "#F472B6", "#F59E0B"},
		DeadBandM:              1.8,
		SendMinIntervalMs:      1000,
		SmoothingRate:          8,
	}
}

func Load(path string) (Tuning, error) {
	var t Tuning
	raw, err := os.ReadFile(path)
	if err != nil {
		return t, err
	}
	if err := yaml.Unmarshal(raw, &t); err != nil {
		return t, fmt.Errorf("tuning.yaml: %w", err)
	}
	return t.withDefaults(), nil
}

func (t Tuning) withDefaults() Tuning {
	d := Defaults()
	if t.BroadcastMinIntervalMs <= 0 {
		t.BroadcastMinIntervalMs = d.BroadcastMinIntervalMs
	}
	if t.DeleteRangeM <= 0 {
		t.DeleteRangeM = d.DeleteRangeM
	}
	if t.TelemetryBuffer <= 0 {
		t.TelemetryBuffer = d.TelemetryBuffer
	}
	if t.TelemetryMaxBytes <= 0 {
		t.TelemetryMaxBytes = d.TelemetryMaxBytes
	}
	if len(t.Palette) == 0 {
		t.Palette = d.Palette
	}
	if t.DeadBandM <= 0 {
		t.DeadBandM = d.DeadBandM
	}
	if t.SendMinIntervalMs <= 0 {
		t.SendMinIntervalMs = d.SendMinIntervalMs
	}
	if t.SmoothingRate <= 0 {
		t.SmoothingRate = d.SmoothingRate
	}
	return t
}
