package decode

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/muktihari/fit/decoder"
	"github.com/muktihari/fit/profile/basetype"
	"github.com/muktihari/fit/profile/filedef"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
)

// Degrees per semicircle (FIT position unit)
const semicirclesToDegrees = 180.0 / 2147483648.0

// FIT decodes Garmin FIT activity files
type FIT struct{}

// Decode reads every FIT sequence in r and nests records into laps and
// laps into sessions by timestamp
func (FIT) Decode(ctx context.Context, r io.Reader) (*File, error) {
	dec := decoder.New(r)

	out := &File{}
	sequences := 0
	for dec.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		fit, err := dec.Decode()
		if err != nil {
			return nil, fmt.Errorf("decoding fit: %w", err)
		}
		sequences++
		activity := filedef.NewActivity(fit.Messages...)
		out.Sessions = append(out.Sessions, cascade(activity)...)
	}
	if sequences == 0 {
		return nil, errors.New("decoding fit: no fit data")
	}
	return out, nil
}

func cascade(activity *filedef.Activity) []Session {
	sessions := make([]Session, 0, len(activity.Sessions))
	next := 0 // index of the first record not yet assigned

	for _, s := range activity.Sessions {
		session := Session{
			StartTime:      s.StartTime,
			Timestamp:      s.Timestamp,
			TotalDistance:  scaledUint32(s.TotalDistance, 100),
			TotalTimerTime: scaledUint32(s.TotalTimerTime, 1000),
			AvgSpeed:       sessionAvgSpeed(s),
		}
		if s.Sport != typedef.SportInvalid {
			session.Sport = s.Sport.String()
		}

		for _, span := range lapSpans(activity.Laps, s) {
			lap := Lap{StartTime: span.start, Timestamp: span.end}
			for next < len(activity.Records) {
				rec := activity.Records[next]
				if rec.Timestamp.After(span.end) {
					break
				}
				next++
				if rec.Timestamp.Before(span.start) {
					continue
				}
				lap.Records = append(lap.Records, convertRecord(rec, s.StartTime))
			}
			session.Laps = append(session.Laps, lap)
		}
		sessions = append(sessions, session)
	}
	return sessions
}

type span struct {
	start, end time.Time
}

// lapSpans returns the laps that belong to a session, or one lap spanning
// the whole session when the file has none
func lapSpans(laps []*mesgdef.Lap, s *mesgdef.Session) []span {
	var spans []span
	for _, l := range laps {
		if l.StartTime.Before(s.StartTime) || l.StartTime.After(s.Timestamp) {
			continue
		}
		spans = append(spans, span{start: l.StartTime, end: l.Timestamp})
	}
	if len(spans) == 0 {
		spans = append(spans, span{start: s.StartTime, end: s.Timestamp})
	}
	return spans
}

func convertRecord(rec *mesgdef.Record, start time.Time) Record {
	r := Record{
		Timestamp:   rec.Timestamp,
		ElapsedTime: rec.Timestamp.Sub(start).Seconds(),
	}
	if rec.Distance != basetype.Uint32Invalid {
		r.Distance = float64Ptr(float64(rec.Distance) / 100)
	}
	switch {
	case rec.EnhancedSpeed != basetype.Uint32Invalid:
		r.Speed = float64Ptr(float64(rec.EnhancedSpeed) / 1000)
	case rec.Speed != basetype.Uint16Invalid:
		r.Speed = float64Ptr(float64(rec.Speed) / 1000)
	}
	if rec.PositionLat != basetype.Sint32Invalid {
		r.PositionLat = float64Ptr(float64(rec.PositionLat) * semicirclesToDegrees)
	}
	if rec.PositionLong != basetype.Sint32Invalid {
		r.PositionLong = float64Ptr(float64(rec.PositionLong) * semicirclesToDegrees)
	}
	return r
}

func sessionAvgSpeed(s *mesgdef.Session) float64 {
	if s.EnhancedAvgSpeed != basetype.Uint32Invalid {
		return float64(s.EnhancedAvgSpeed) / 1000
	}
	if s.AvgSpeed != basetype.Uint16Invalid {
		return float64(s.AvgSpeed) / 1000
	}
	return 0
}

func scaledUint32(v uint32, scale float64) float64 {
	if v == basetype.Uint32Invalid {
		return 0
	}
	return float64(v) / scale
}
