package telemetry

import (
	"compress/gzip"
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	influxdb2_api "github.com/influxdata/influxdb-client-go/v2/api"
	influxdb2_write "github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/rs/zerolog"
)

// Measurement is the InfluxDB measurement name for car telemetry.
const Measurement = "vehicle_telemetry"

// InfluxConfig describes where telemetry points go.
type InfluxConfig struct {
	URL         string
	Token       string
	Org         string
	Bucket      string
	BackupPath  string // gzip line-protocol file used when the server is unreachable
	SampleEvery int    // write one point every N ticks
}

// InfluxSink writes sampled snapshots to InfluxDB, or to a gzip backup file
// when the server cannot be reached.
type InfluxSink struct {
	Client       influxdb2.Client
	Writer       influxdb2_api.WriteAPI
	BackupWriter *gzip.Writer
	IsValid      bool
	Logger       zerolog.Logger

	// Start anchors simulated time to a wall clock timestamp.
	Start time.Time
	Run   string

	cfg        InfluxConfig
	backupFile *os.File
}

// NewInfluxSink creates an unconnected sink for one run.
func NewInfluxSink(log zerolog.Logger, cfg InfluxConfig, run string) *InfluxSink {
	if cfg.SampleEvery < 1 {
		cfg.SampleEvery = 1
	}
	return &InfluxSink{
		Logger: log,
		Start:  time.Now().UTC(),
		Run:    run,
		cfg:    cfg,
	}
}

// Connect pings the server and falls back to the backup file if it is down.
func (s *InfluxSink) Connect(ctx context.Context) error {
	if s.cfg.URL == "" {
		return errors.New("influx url is empty")
	}

	s.Client = influxdb2.NewClientWithOptions(
		s.cfg.URL,
		s.cfg.Token,
		influxdb2.DefaultOptions().
			SetBatchSize(500).
			SetFlushInterval(1000),
	)

	running, err := s.Client.Ping(ctx)
	if err != nil || !running {
		s.Logger.Warn().Err(err).Str("backupPath", s.cfg.BackupPath).
			Msg("InfluxDB unreachable, writing telemetry to backup file")
		s.Client.Close()
		s.Client = nil
		return s.OpenBackup()
	}

	s.Writer = s.Client.WriteAPI(s.cfg.Org, s.cfg.Bucket)
	go func(errorsCh <-chan error) {
		for writeErr := range errorsCh {
			s.Logger.Error().Err(writeErr).Str("bucket", s.cfg.Bucket).
				Msg("Error sending telemetry to InfluxDB")
		}
	}(s.Writer.Errors())

	s.IsValid = true
	s.Logger.Info().Str("url", s.cfg.URL).Str("bucket", s.cfg.Bucket).Msg("InfluxDB sink connected")
	return nil
}

// OpenBackup switches the sink to the gzip backup file.
func (s *InfluxSink) OpenBackup() error {
	if s.BackupWriter != nil {
		return nil
	}
	if s.cfg.BackupPath == "" {
		return errors.New("influx backup path is empty")
	}
	file, err := os.OpenFile(s.cfg.BackupPath, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("error creating backup file: %w", err)
	}
	s.backupFile = file
	s.BackupWriter = gzip.NewWriter(file)
	s.IsValid = false
	return nil
}

// Point converts a snapshot into an InfluxDB point.
func (s *InfluxSink) Point(snap Snapshot) *influxdb2_write.Point {
	ts := s.Start.Add(time.Duration(snap.Time * float64(time.Second)))
	p := influxdb2_write.NewPointWithMeasurement(Measurement).
		AddTag("run", s.Run).
		AddTag("gear", snap.DisplayGear()).
		AddField("tick", snap.Tick).
		AddField("speed_kmh", snap.SpeedKmh).
		AddField("engine_rpm", snap.EngineRPM).
		AddField("g_force", snap.GForce).
		AddField("checkpoints", snap.Checkpoints).
		AddField("squeal", snap.Squeal).
		AddField("x", snap.Position.X()).
		AddField("z", snap.Position.Z()).
		SetTime(ts)

	for i, slip := range snap.Slip {
		p.AddField("slip_"+strconv.Itoa(i), slip)
	}
	return p
}

// Record writes snap if its tick falls on the sampling interval.
func (s *InfluxSink) Record(ctx context.Context, snap Snapshot) error {
	if snap.Tick%int64(s.cfg.SampleEvery) != 0 {
		return nil
	}
	point := s.Point(snap)

	if s.IsValid {
		s.Writer.WritePoint(point)
		return nil
	}
	if s.BackupWriter == nil {
		return errors.New("influx sink not connected and backup writer not available")
	}

	line := influxdb2_write.PointToLineProtocol(point, time.Nanosecond)
	line = strings.TrimSuffix(line, "\n") + "\n"
	if _, err := s.BackupWriter.Write([]byte(line)); err != nil {
		return fmt.Errorf("error writing telemetry backup: %w", err)
	}
	return nil
}

// Close flushes pending points and releases the client or backup file.
func (s *InfluxSink) Close() error {
	var errs []error
	if s.Writer != nil {
		s.Writer.Flush()
	}
	if s.Client != nil {
		s.Client.Close()
	}
	if s.BackupWriter != nil {
		errs = append(errs, s.BackupWriter.Close())
	}
	if s.backupFile != nil {
		errs = append(errs, s.backupFile.Close())
	}
	return errors.Join(errs...)
}
