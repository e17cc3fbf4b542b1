package decode

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/muktihari/fit/profile/typedef"
	"github.com/stretchr/testify/require"

	"runtopsy/internal/decode/decodetest"
)

func TestRegistryMatchesExtensionCaseInsensitive(t *testing.T) {
	r := DefaultRegistry()

	tests := []struct {
		name string
		want bool
	}{
		{"run.fit", true},
		{"RUN.FIT", true},
		{"track.Gpx", true},
		{"notes.txt", false},
		{"fit", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok := r.For(tt.name)
			require.Equal(t, tt.want, ok)
		})
	}
	require.Equal(t, []string{".fit", ".gpx"}, r.Extensions())
}

func TestFITDecodeNestsRecordsIntoLaps(t *testing.T) {
	start := time.Date(2024, 6, 1, 8, 0, 0, 0, time.UTC)
	path := filepath.Join(t.TempDir(), "run.fit")
	err := decodetest.WriteFIT(path, decodetest.Session{
		Sport:     typedef.SportRunning,
		Start:     start,
		Distance:  5000,
		TimerTime: 1800,
		AvgSpeed:  2.78,
		Records: []decodetest.Record{
			{Offset: 0, Distance: 0, Speed: 0, Lat: decodetest.Pos(52.5), Lng: decodetest.Pos(13.4)},
			{Offset: time.Second, Distance: 2.5, Speed: 2.5},
			{Offset: 2 * time.Second, Distance: 5, Speed: 2.5, Lat: decodetest.Pos(52.50002), Lng: decodetest.Pos(13.40003)},
			{Offset: 3 * time.Second, Distance: 7.5, Speed: 2.5, Lat: decodetest.Pos(52.50004), Lng: decodetest.Pos(13.40006)},
		},
		LapRecords: 2,
	})
	require.NoError(t, err)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	out, err := FIT{}.Decode(context.Background(), f)
	require.NoError(t, err)
	require.Len(t, out.Sessions, 1)

	s := out.Sessions[0]
	require.Equal(t, "running", s.Sport)
	require.True(t, s.StartTime.Equal(start))
	require.Equal(t, 5000.0, s.TotalDistance)
	require.Equal(t, 1800.0, s.TotalTimerTime)
	require.Equal(t, 2.78, s.AvgSpeed)

	require.Len(t, s.Laps, 2)
	require.Len(t, s.Laps[0].Records, 2)
	require.Len(t, s.Laps[1].Records, 2)

	second := s.Laps[0].Records[1]
	require.Equal(t, 1.0, second.ElapsedTime)
	require.Nil(t, second.PositionLat)
	require.Nil(t, second.PositionLong)
	require.NotNil(t, second.Speed)
	require.Equal(t, 2.5, *second.Speed)

	first := s.Laps[0].Records[0]
	require.NotNil(t, first.PositionLat)
	require.InDelta(t, 52.5, *first.PositionLat, 1e-6)
	require.InDelta(t, 13.4, *first.PositionLong, 1e-6)
	require.Equal(t, 7.5, *s.Laps[1].Records[1].Distance)
}

func TestFITDecodeRejectsGarbage(t *testing.T) {
	_, err := FIT{}.Decode(context.Background(), strings.NewReader("definitely not a fit file"))
	require.Error(t, err)
}

const sampleGPX = `<?xml version="1.0" encoding="UTF-8"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk>
    <name>Evening walk</name>
    <type>walking</type>
    <trkseg>
      <trkpt lat="52.5000" lon="13.4000"><time>2024-06-01T18:00:00Z</time></trkpt>
      <trkpt lat="52.5001" lon="13.4000"><time>2024-06-01T18:00:10Z</time></trkpt>
      <trkpt lat="52.5002" lon="13.4000"><time>2024-06-01T18:00:20Z</time></trkpt>
    </trkseg>
    <trkseg>
      <trkpt lat="52.5003" lon="13.4000"><time>2024-06-01T18:00:30Z</time></trkpt>
    </trkseg>
  </trk>
</gpx>`

func TestGPXDecodeDerivesDistanceAndSpeed(t *testing.T) {
	out, err := GPX{}.Decode(context.Background(), strings.NewReader(sampleGPX))
	require.NoError(t, err)
	require.Len(t, out.Sessions, 1)

	s := out.Sessions[0]
	require.Equal(t, "walking", s.Sport)
	require.Equal(t, time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC), s.StartTime.UTC())
	require.Equal(t, time.Date(2024, 6, 1, 18, 0, 30, 0, time.UTC), s.Timestamp.UTC())
	require.Len(t, s.Laps, 2)

	// 0.0001 degrees of latitude is about 11.1 m
	require.InDelta(t, 33.4, s.TotalDistance, 0.5)
	require.Equal(t, 30.0, s.TotalTimerTime)
	require.InDelta(t, 1.11, s.AvgSpeed, 0.02)

	last := s.Laps[1].Records[0]
	require.Equal(t, 30.0, last.ElapsedTime)
	require.InDelta(t, 33.4, *last.Distance, 0.5)
	require.NotNil(t, last.PositionLat)
}

func TestGPXDecodeSkipsTracksWithoutTime(t *testing.T) {
	doc := `<?xml version="1.0"?>
<gpx version="1.1" creator="test" xmlns="http://www.topografix.com/GPX/1/1">
  <trk><trkseg><trkpt lat="1" lon="2"></trkpt></trkseg></trk>
</gpx>`
	out, err := GPX{}.Decode(context.Background(), strings.NewReader(doc))
	require.NoError(t, err)
	require.Empty(t, out.Sessions)
}
