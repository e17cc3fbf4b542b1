package tui

import (
	"fmt"

	"runtopsy/internal/config"
	"runtopsy/internal/store"
)

const (
	metersPerMile = 1609.34
	metersPerKm   = 1000.0
)

// Units provides unit conversion and formatting based on user preferences
type Units struct {
	cfg config.DisplayConfig
}

// NewUnits creates a new Units helper with the given display config
func NewUnits(cfg config.DisplayConfig) Units {
	return Units{cfg: cfg}
}

// FormatDistance formats a distance in meters to the user's preferred unit
func (u Units) FormatDistance(meters float64) string {
	return fmt.Sprintf("%.1f %s", meters/u.metersPerUnit(), u.DistanceLabel())
}

// FormatPace formats pace from total seconds and meters, e.g. "5:59/km"
func (u Units) FormatPace(seconds, meters float64) string {
	if meters <= 0 || seconds <= 0 {
		return "-"
	}

	paceSeconds := seconds / (meters / u.metersPerUnit())
	mins := int(paceSeconds) / 60
	secs := int(paceSeconds) % 60
	return fmt.Sprintf("%d:%02d/%s", mins, secs, u.DistanceLabel())
}

// FormatSpeed formats a speed in m/s as km/h or mph
func (u Units) FormatSpeed(mps float64) string {
	if u.IsMiles() {
		return fmt.Sprintf("%.1f mph", mps*3600/metersPerMile)
	}
	return fmt.Sprintf("%.1f km/h", mps*3.6)
}

// FormatTempo shows pace for foot sports and speed for everything else
func (u Units) FormatTempo(a store.Activity) string {
	switch a.Type {
	case store.TypeRunning, store.TypeWalking, store.TypeHiking:
		return u.FormatPace(a.MovingTime, a.Distance)
	}
	if a.AvgSpeed <= 0 {
		return "-"
	}
	return u.FormatSpeed(a.AvgSpeed)
}

// ConvertSpeedData converts m/s samples to the speed unit of FormatSpeed
func (u Units) ConvertSpeedData(mps []float64) []float64 {
	factor := 3.6
	if u.IsMiles() {
		factor = 3600 / metersPerMile
	}
	converted := make([]float64, len(mps))
	for i, v := range mps {
		converted[i] = v * factor
	}
	return converted
}

// SpeedLabel returns "km/h" or "mph"
func (u Units) SpeedLabel() string {
	if u.IsMiles() {
		return "mph"
	}
	return "km/h"
}

// DistanceLabel returns the short unit label ("mi" or "km")
func (u Units) DistanceLabel() string {
	if u.IsMiles() {
		return "mi"
	}
	return "km"
}

// IsMiles returns true if distance unit is miles
func (u Units) IsMiles() bool {
	return u.cfg.DistanceUnit == "mi"
}

func (u Units) metersPerUnit() float64 {
	if u.IsMiles() {
		return metersPerMile
	}
	return metersPerKm
}

func formatDuration(seconds float64) string {
	total := int(seconds)
	h := total / 3600
	m := (total % 3600) / 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	return fmt.Sprintf("%dm %ds", m, total%60)
}

func truncateName(s string, max int) string {
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max-3]) + "..."
}
