package telemetry

import (
	"bufio"
	"compress/gzip"
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
)

func TestPublisher_LatestBeforePublish(t *testing.T) {
	var p Publisher
	_, ok := p.Latest()
	assert.False(t, ok)
}

func TestPublisher_ReadersSeeWholeTicks(t *testing.T) {
	var p Publisher
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := int64(1); i <= 2000; i++ {
			p.Publish(Snapshot{Tick: i, SpeedKmh: float64(i), EngineRPM: float64(i) * 2})
		}
	}()

	for i := 0; i < 2000; i++ {
		if s, ok := p.Latest(); ok {
			require.Equal(t, float64(s.Tick), s.SpeedKmh)
			require.Equal(t, float64(s.Tick)*2, s.EngineRPM)
		}
	}
	wg.Wait()

	s, ok := p.Latest()
	require.True(t, ok)
	assert.Equal(t, int64(2000), s.Tick)
}

func TestSnapshot_DisplayGear(t *testing.T) {
	assert.Equal(t, "1", Snapshot{Gear: 1}.DisplayGear())
	assert.Equal(t, "3", Snapshot{Gear: 3}.DisplayGear())
	assert.Equal(t, "R", Snapshot{Gear: 1, Reverse: true}.DisplayGear())
}

func TestSnapshot_Heading(t *testing.T) {
	s := Snapshot{Rotation: mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0})}
	assert.InDelta(t, math.Pi/2, s.Heading(), 1e-9)
	assert.InDelta(t, 10.0, Snapshot{SpeedKmh: 36}.SpeedMS(), 1e-9)
}

func TestSnapshot_Corners(t *testing.T) {
	s := Snapshot{
		Position: mgl64.Vec3{10, 0, 5},
		Rotation: mgl64.QuatRotate(math.Pi/2, mgl64.Vec3{0, 1, 0}),
	}
	want := [4]mgl64.Vec2{{12, 6}, {12, 4}, {8, 4}, {8, 6}}
	got := s.Corners(4, 2)
	for i := range want {
		assert.InDelta(t, want[i].X(), got[i].X(), 1e-9, "corner %d", i)
		assert.InDelta(t, want[i].Y(), got[i].Y(), 1e-9, "corner %d", i)
	}
}

func TestNeedles(t *testing.T) {
	assert.InDelta(t, 0.5, TachNeedle(3000), 1e-9)
	assert.InDelta(t, 0.5, SpeedNeedle(130), 1e-9)
	assert.InDelta(t, 90.0, NeedleAngle(180, 0, 0.5), 1e-9)
}

func TestHUD(t *testing.T) {
	s := Snapshot{SpeedKmh: 87.4, EngineRPM: 4321, Gear: 3, GForce: 0.5, Checkpoints: 3, Squeal: true}
	s.LosingTraction[3] = true
	out := HUD(s)
	assert.Contains(t, out, "Speed:  87 km/h")
	assert.Contains(t, out, "RPM:    4321")
	assert.Contains(t, out, "Gear:   3")
	assert.Contains(t, out, "G:      +0.50")
	assert.Contains(t, out, "Gates:  3")
	assert.Contains(t, out, "- - | - *")
	assert.Contains(t, out, "[SQUEAL]")
	assert.NotContains(t, out, "[FINISHED]")
}

func TestMetrics_NilIsSafe(t *testing.T) {
	var m *Metrics
	ctx := context.Background()
	assert.NotPanics(t, func() {
		m.Shift(ctx, "up")
		m.TractionLost(ctx, "RL")
		m.Checkpoint(ctx)
		m.TickDuration(ctx, 0.001)
	})
}

func TestMetrics_Create(t *testing.T) {
	m, err := NewMetrics(noop.NewMeterProvider().Meter("test"))
	require.NoError(t, err)
	require.NotNil(t, m)
	m.Shift(context.Background(), "down")

	global, err := NewMetrics(nil)
	require.NoError(t, err)
	assert.NotNil(t, global)
}

func TestInfluxSink_Point(t *testing.T) {
	sink := NewInfluxSink(zerolog.Nop(), InfluxConfig{}, "run-1")
	sink.Start = time.Unix(100, 0).UTC()

	snap := Snapshot{Tick: 50, Time: 1, SpeedKmh: 72, EngineRPM: 3500, Gear: 2, Checkpoints: 2}
	snap.Slip[2] = 0.4
	line := influxdb2_write.PointToLineProtocol(sink.Point(snap), time.Nanosecond)

	assert.True(t, strings.HasPrefix(line, Measurement+","))
	assert.Contains(t, line, "gear=2")
	assert.Contains(t, line, "run=run-1")
	assert.Contains(t, line, "speed_kmh=72")
	assert.Contains(t, line, "engine_rpm=3500")
	assert.Contains(t, line, "slip_2=0.4")
	assert.Contains(t, line, "tick=50i")
	assert.Contains(t, line, " 101000000000")
}

func TestInfluxSink_BackupFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "telemetry.gz")
	sink := NewInfluxSink(zerolog.Nop(), InfluxConfig{BackupPath: path, SampleEvery: 10}, "run-2")
	require.NoError(t, sink.OpenBackup())

	ctx := context.Background()
	for tick := int64(0); tick < 35; tick++ {
		require.NoError(t, sink.Record(ctx, Snapshot{Tick: tick, SpeedKmh: float64(tick)}))
	}
	require.NoError(t, sink.Close())

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	gz, err := gzip.NewReader(f)
	require.NoError(t, err)

	var lines []string
	sc := bufio.NewScanner(gz)
	for sc.Scan() {
		if sc.Text() != "" {
			lines = append(lines, sc.Text())
		}
	}
	require.NoError(t, sc.Err())
	assert.Len(t, lines, 4, "ticks 0, 10, 20 and 30")
	assert.Contains(t, lines[3], "tick=30i")
}

func TestInfluxSink_RecordWithoutConnection(t *testing.T) {
	sink := NewInfluxSink(zerolog.Nop(), InfluxConfig{}, "run-3")
	assert.Error(t, sink.Record(context.Background(), Snapshot{}))
	assert.Error(t, sink.Connect(context.Background()), "empty url")
}
