package tui

import (
	"testing"

	"runtopsy/internal/config"
	"runtopsy/internal/store"
)

func TestUnitsFormat(t *testing.T) {
	km := NewUnits(config.DisplayConfig{DistanceUnit: "km"})
	mi := NewUnits(config.DisplayConfig{DistanceUnit: "mi"})

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"km distance", km.FormatDistance(5000), "5.0 km"},
		{"mi distance", mi.FormatDistance(1609.34), "1.0 mi"},
		{"km pace", km.FormatPace(1800, 5000), "6:00/km"},
		{"no pace", km.FormatPace(0, 5000), "-"},
		{"km speed", km.FormatSpeed(10), "36.0 km/h"},
		{"run tempo", km.FormatTempo(store.Activity{Type: store.TypeRunning, MovingTime: 1800, Distance: 5000}), "6:00/km"},
		{"ride tempo", km.FormatTempo(store.Activity{Type: store.TypeCycling, AvgSpeed: 7.5}), "27.0 km/h"},
		{"duration", formatDuration(3725), "1h 2m"},
		{"short duration", formatDuration(95), "1m 35s"},
		{"truncate", truncateName("Morning Run Along The River", 10), "Morning..."},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %q, want %q", tt.got, tt.want)
			}
		})
	}
}
