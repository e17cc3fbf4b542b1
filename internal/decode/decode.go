// Package decode turns device files into a nested session/lap/record
// structure that the importers consume.
package decode

import (
	"context"
	"io"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// File is the decoded content of one device file
type File struct {
	Sessions []Session `json:"sessions" yaml:"sessions"`
}

// Session is one workout inside a device file
type Session struct {
	Sport          string    `json:"sport" yaml:"sport"`
	StartTime      time.Time `json:"start_time" yaml:"start_time"`
	Timestamp      time.Time `json:"timestamp" yaml:"timestamp"`
	TotalDistance  float64   `json:"total_distance" yaml:"total_distance"`     // meters
	TotalTimerTime float64   `json:"total_timer_time" yaml:"total_timer_time"` // seconds
	AvgSpeed       float64   `json:"avg_speed" yaml:"avg_speed"`               // m/s
	Laps           []Lap     `json:"laps" yaml:"laps"`
}

// Lap groups the records between two lap markers
type Lap struct {
	StartTime time.Time `json:"start_time" yaml:"start_time"`
	Timestamp time.Time `json:"timestamp" yaml:"timestamp"`
	Records   []Record  `json:"records" yaml:"records"`
}

// Record is a single sample. Optional fields are nil when the device did
// not write them.
type Record struct {
	Timestamp    time.Time `json:"timestamp" yaml:"timestamp"`
	ElapsedTime  float64   `json:"elapsed_time" yaml:"elapsed_time"` // seconds since session start
	Distance     *float64  `json:"distance,omitempty" yaml:"distance,omitempty"`
	Speed        *float64  `json:"speed,omitempty" yaml:"speed,omitempty"`
	PositionLat  *float64  `json:"position_lat,omitempty" yaml:"position_lat,omitempty"`
	PositionLong *float64  `json:"position_long,omitempty" yaml:"position_long,omitempty"`
}

// Decoder decodes the raw bytes of one device file
type Decoder interface {
	Decode(ctx context.Context, r io.Reader) (*File, error)
}

// Registry maps lower-case file extensions to decoders
type Registry map[string]Decoder

// DefaultRegistry knows .fit and .gpx files
func DefaultRegistry() Registry {
	return Registry{
		".fit": FIT{},
		".gpx": GPX{},
	}
}

// For returns the decoder for a file name, matching the extension
// case-insensitively
func (r Registry) For(name string) (Decoder, bool) {
	d, ok := r[strings.ToLower(filepath.Ext(name))]
	return d, ok
}

// Extensions returns the registered extensions, sorted
func (r Registry) Extensions() []string {
	exts := make([]string, 0, len(r))
	for ext := range r {
		exts = append(exts, ext)
	}
	sort.Strings(exts)
	return exts
}

func float64Ptr(v float64) *float64 {
	return &v
}
