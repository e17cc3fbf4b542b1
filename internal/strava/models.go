package strava

import "time"

// Activity represents a Strava activity from the API
type Activity struct {
	ID             int64     `json:"id"`
	Athlete        Athlete   `json:"athlete"`
	Name           string    `json:"name"`
	Type           string    `json:"type"`
	SportType      string    `json:"sport_type"`
	StartDate      time.Time `json:"start_date"`
	StartDateLocal time.Time `json:"start_date_local"`
	Timezone       string    `json:"timezone"`
	Distance       float64   `json:"distance"`      // meters
	MovingTime     float64   `json:"moving_time"`   // seconds
	ElapsedTime    float64   `json:"elapsed_time"`  // seconds
	AverageSpeed   float64   `json:"average_speed"` // m/s
	MaxSpeed       float64   `json:"max_speed"`     // m/s
	Map            Map       `json:"map"`
}

// Athlete represents a Strava athlete (minimal info in activity response)
type Athlete struct {
	ID int64 `json:"id"`
}

// Map carries the encoded route of an activity
type Map struct {
	ID              string `json:"id"`
	SummaryPolyline string `json:"summary_polyline"`
}

// Kind returns sport_type, falling back to the legacy type field
func (a *Activity) Kind() string {
	if a.SportType != "" {
		return a.SportType
	}
	return a.Type
}

// Streams represents activity stream data from the API
// Strava returns streams keyed by type when key_by_type=true
type Streams struct {
	Time           *StreamData[float64]    `json:"time"`
	Distance       *StreamData[float64]    `json:"distance"`
	LatLng         *StreamData[[2]float64] `json:"latlng"`
	VelocitySmooth *StreamData[float64]    `json:"velocity_smooth"`
}

// StreamData represents a single stream type
type StreamData[T any] struct {
	Data         []T    `json:"data"`
	SeriesType   string `json:"series_type"`
	OriginalSize int    `json:"original_size"`
	Resolution   string `json:"resolution"`
}

// Len returns the length of the stream, or 0 if nil
func (s *Streams) Len() int {
	if s == nil || s.Time == nil {
		return 0
	}
	return len(s.Time.Data)
}
