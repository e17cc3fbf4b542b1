package decode

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/golang/geo/s2"
	"github.com/tkrajina/gpxgo/gpx"
)

const (
	earthRadiusMeters = 6371000.0
	// Below this speed (m/s) a gap between two points counts as standing still
	movingThreshold = 0.5
)

// GPX decodes GPS exchange files. Each track becomes a session and each
// track segment a lap; distance and speed are derived from the positions.
type GPX struct{}

// Decode parses r as GPX
func (GPX) Decode(ctx context.Context, r io.Reader) (*File, error) {
	g, err := gpx.Parse(r)
	if err != nil {
		return nil, fmt.Errorf("decoding gpx: %w", err)
	}

	out := &File{}
	for _, track := range g.Tracks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if session, ok := trackSession(track); ok {
			out.Sessions = append(out.Sessions, session)
		}
	}
	return out, nil
}

func trackSession(track gpx.GPXTrack) (Session, bool) {
	session := Session{Sport: strings.ToLower(strings.TrimSpace(track.Type))}

	var (
		prev     *gpx.GPXPoint
		total    float64
		moving   float64
		hasStart bool
	)
	for _, segment := range track.Segments {
		var lap Lap
		for i := range segment.Points {
			p := &segment.Points[i]
			if p.Timestamp.IsZero() {
				continue
			}
			if !hasStart {
				session.StartTime = p.Timestamp
				hasStart = true
			}

			speed := 0.0
			if prev != nil {
				d := distance(prev, p)
				dt := p.Timestamp.Sub(prev.Timestamp).Seconds()
				total += d
				if dt > 0 {
					speed = d / dt
					if speed >= movingThreshold {
						moving += dt
					}
				}
			}

			if len(lap.Records) == 0 {
				lap.StartTime = p.Timestamp
			}
			lap.Timestamp = p.Timestamp
			lap.Records = append(lap.Records, Record{
				Timestamp:    p.Timestamp,
				ElapsedTime:  p.Timestamp.Sub(session.StartTime).Seconds(),
				Distance:     float64Ptr(total),
				Speed:        float64Ptr(speed),
				PositionLat:  float64Ptr(p.Point.Latitude),
				PositionLong: float64Ptr(p.Point.Longitude),
			})
			session.Timestamp = p.Timestamp
			prev = p
		}
		if len(lap.Records) > 0 {
			session.Laps = append(session.Laps, lap)
		}
	}
	if !hasStart {
		return Session{}, false
	}

	session.TotalDistance = total
	session.TotalTimerTime = moving
	if moving > 0 {
		session.AvgSpeed = total / moving
	}
	return session, true
}

func distance(a, b *gpx.GPXPoint) float64 {
	p1 := s2.LatLngFromDegrees(a.Point.Latitude, a.Point.Longitude)
	p2 := s2.LatLngFromDegrees(b.Point.Latitude, b.Point.Longitude)
	return p1.Distance(p2).Radians() * earthRadiusMeters
}
