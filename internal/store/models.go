package store

import (
	"errors"
	"fmt"
	"time"
)

// ActivityType is the normalized kind of a workout
type ActivityType string

const (
	TypeRunning  ActivityType = "running"
	TypeWalking  ActivityType = "walking"
	TypeHiking   ActivityType = "hiking"
	TypeCycling  ActivityType = "cycling"
	TypeSwimming ActivityType = "swimming"
	TypeOther    ActivityType = "other"
)

// Activity is the canonical record of a single workout
type Activity struct {
	ID            string       `json:"id"`
	Type          ActivityType `json:"type"`
	Name          string       `json:"name,omitempty"`
	StartTime     time.Time    `json:"start_time"`
	EndTime       time.Time    `json:"end_time"`
	Distance      float64      `json:"distance"`    // meters
	MovingTime    float64      `json:"moving_time"` // seconds
	AvgSpeed      float64      `json:"avg_speed"`   // m/s
	TrackPolyline string       `json:"track_polyline,omitempty"`
}

// Equal reports whether two activities carry the same fields.
// Instants are compared with time.Equal so a JSON round-trip does not
// make an unchanged activity look modified.
func (a Activity) Equal(b Activity) bool {
	return a.ID == b.ID &&
		a.Type == b.Type &&
		a.Name == b.Name &&
		a.StartTime.Equal(b.StartTime) &&
		a.EndTime.Equal(b.EndTime) &&
		a.Distance == b.Distance &&
		a.MovingTime == b.MovingTime &&
		a.AvgSpeed == b.AvgSpeed &&
		a.TrackPolyline == b.TrackPolyline
}

// LatLng is a position in degrees
type LatLng [2]float64

// Records is the time series of an activity, stored as parallel arrays.
// Position entries are nil where the device had no GPS fix.
type Records struct {
	Time     []float64 `json:"time"`     // elapsed seconds
	Distance []float64 `json:"distance"` // meters
	Speed    []float64 `json:"speed"`    // m/s
	Position []*LatLng `json:"position"`
}

// ErrMisalignedRecords is returned when the parallel arrays differ in length
var ErrMisalignedRecords = errors.New("records arrays have different lengths")

// Append adds one sample, keeping every array aligned
func (r *Records) Append(elapsed, distance, speed float64, pos *LatLng) {
	r.Time = append(r.Time, elapsed)
	r.Distance = append(r.Distance, distance)
	r.Speed = append(r.Speed, speed)
	r.Position = append(r.Position, pos)
}

// Len returns the number of samples
func (r *Records) Len() int {
	if r == nil {
		return 0
	}
	return len(r.Time)
}

// Validate checks the parallel-array invariant
func (r *Records) Validate() error {
	n := len(r.Time)
	if len(r.Distance) != n || len(r.Speed) != n || len(r.Position) != n {
		return fmt.Errorf("%w: time=%d distance=%d speed=%d position=%d",
			ErrMisalignedRecords, n, len(r.Distance), len(r.Speed), len(r.Position))
	}
	return nil
}
