package importer

import (
	"strconv"
	"time"

	"runtopsy/internal/store"
	"runtopsy/internal/strava"
)

func stravaActivityID(id string) string {
	return "strava_" + id
}

// extractStravaActivity maps a Strava summary to an activity. Strava
// already reports meters and m/s.
func extractStravaActivity(a strava.Activity) store.Activity {
	start := a.StartDate
	return store.Activity{
		ID:            stravaActivityID(strconv.FormatInt(a.ID, 10)),
		Type:          typeFromStrava(a.Kind()),
		Name:          a.Name,
		StartTime:     start,
		EndTime:       start.Add(time.Duration(a.ElapsedTime * float64(time.Second))),
		Distance:      a.Distance,
		MovingTime:    a.MovingTime,
		AvgSpeed:      a.AverageSpeed,
		TrackPolyline: a.Map.SummaryPolyline,
	}
}

// extractStravaRecords aligns the streams on the time stream. Samples
// missing from a shorter stream become 0, or nil for positions.
func extractStravaRecords(s *strava.Streams) *store.Records {
	r := &store.Records{
		Time:     []float64{},
		Distance: []float64{},
		Speed:    []float64{},
		Position: []*store.LatLng{},
	}
	for i := 0; i < s.Len(); i++ {
		var distance, speed float64
		if s.Distance != nil && i < len(s.Distance.Data) {
			distance = s.Distance.Data[i]
		}
		if s.VelocitySmooth != nil && i < len(s.VelocitySmooth.Data) {
			speed = s.VelocitySmooth.Data[i]
		}
		var pos *store.LatLng
		if s.LatLng != nil && i < len(s.LatLng.Data) {
			p := store.LatLng(s.LatLng.Data[i])
			pos = &p
		}
		r.Append(s.Time.Data[i], distance, speed, pos)
	}
	return r
}
