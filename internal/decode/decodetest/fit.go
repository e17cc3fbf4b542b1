// Package decodetest writes small device files for tests.
package decodetest

import (
	"math"
	"os"
	"time"

	"github.com/muktihari/fit/encoder"
	"github.com/muktihari/fit/profile/mesgdef"
	"github.com/muktihari/fit/profile/typedef"
	"github.com/muktihari/fit/proto"
)

// Constant for converting Degrees to Semicircles (FIT Standard)
const degreesToSemicircles = 2147483648.0 / 180.0

// Session describes one session to encode
type Session struct {
	Sport      typedef.Sport
	Start      time.Time
	Distance   float64 // meters
	TimerTime  float64 // seconds
	AvgSpeed   float64 // m/s
	Records    []Record
	LapRecords int // records per lap; 0 writes a single lap
}

// Record is one sample; Lat/Lng nil leaves the position fields unset
type Record struct {
	Offset   time.Duration
	Distance float64
	Speed    float64
	Lat, Lng *float64
}

// Pos returns a pointer for Record.Lat/Lng
func Pos(v float64) *float64 {
	return &v
}

// WriteFIT encodes the sessions into a FIT activity file at path
func WriteFIT(path string, sessions ...Session) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	fit := proto.FIT{}

	fileID := mesgdef.NewFileId(nil)
	fileID.Type = typedef.FileActivity
	fileID.Manufacturer = typedef.ManufacturerDevelopment
	fileID.SerialNumber = 12345
	if len(sessions) > 0 {
		fileID.TimeCreated = sessions[0].Start
	}
	fit.Messages = append(fit.Messages, fileID.ToMesg(nil))

	for _, s := range sessions {
		end := s.Start
		lapStart := s.Start
		for i, r := range s.Records {
			ts := s.Start.Add(r.Offset)
			end = ts

			rec := mesgdef.NewRecord(nil)
			rec.Timestamp = ts
			rec.Distance = uint32(math.Round(r.Distance * 100))
			rec.Speed = uint16(math.Round(r.Speed * 1000))
			if r.Lat != nil && r.Lng != nil {
				rec.PositionLat = int32(math.Round(*r.Lat * degreesToSemicircles))
				rec.PositionLong = int32(math.Round(*r.Lng * degreesToSemicircles))
			}
			fit.Messages = append(fit.Messages, rec.ToMesg(nil))

			if s.LapRecords > 0 && (i+1)%s.LapRecords == 0 && i+1 < len(s.Records) {
				fit.Messages = append(fit.Messages, lapMesg(lapStart, ts))
				lapStart = s.Start.Add(s.Records[i+1].Offset)
			}
		}
		fit.Messages = append(fit.Messages, lapMesg(lapStart, end))

		session := mesgdef.NewSession(nil)
		session.Timestamp = end
		session.StartTime = s.Start
		session.Sport = s.Sport
		session.TotalDistance = uint32(math.Round(s.Distance * 100))
		session.TotalTimerTime = uint32(math.Round(s.TimerTime * 1000))
		session.TotalElapsedTime = uint32(math.Round(end.Sub(s.Start).Seconds() * 1000))
		session.AvgSpeed = uint16(math.Round(s.AvgSpeed * 1000))
		session.Event = typedef.EventSession
		session.EventType = typedef.EventTypeStop
		fit.Messages = append(fit.Messages, session.ToMesg(nil))
	}

	return encoder.New(f).Encode(&fit)
}

func lapMesg(start, end time.Time) proto.Message {
	lap := mesgdef.NewLap(nil)
	lap.Timestamp = end
	lap.StartTime = start
	lap.Event = typedef.EventLap
	lap.EventType = typedef.EventTypeStop
	return lap.ToMesg(nil)
}
