// Package store keeps a history of finished runs in a local SQLite file.
// Results are written once per run and never fed back into a simulation.
package store

import (
	"errors"
	"fmt"
	"math"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"drift-sim/internal/telemetry"
)

// RunResult is one row per run.
type RunResult struct {
	gorm.Model
	Run       string `json:"run" gorm:"size:64;uniqueIndex"`
	Track     string `json:"track" gorm:"size:255"`
	Drive     string `json:"drive" gorm:"size:8"`
	Gearbox   string `json:"gearbox" gorm:"size:16"`
	Autopilot string `json:"autopilot" gorm:"size:16"`

	Ticks       int64   `json:"ticks"`
	SimSeconds  float64 `json:"simSeconds"`
	Finished    bool    `json:"finished"`
	FinishTick  int64   `json:"finishTick"`
	FinishTime  float64 `json:"finishTime"`
	Checkpoints int     `json:"checkpoints"`

	TopSpeedKmh    float64 `json:"topSpeedKmh"`
	MaxGForce      float64 `json:"maxGForce"`
	Shifts         int     `json:"shifts"`
	TractionLosses int     `json:"tractionLosses"`
}

// Observe folds one published snapshot into the run statistics.
func (r *RunResult) Observe(prev, snap telemetry.Snapshot) {
	r.Ticks = snap.Tick
	r.SimSeconds = snap.Time
	r.Checkpoints = snap.Checkpoints
	r.TopSpeedKmh = math.Max(r.TopSpeedKmh, snap.SpeedKmh)
	r.MaxGForce = math.Max(r.MaxGForce, math.Abs(snap.GForce))
	if prev.Tick > 0 && (snap.Gear != prev.Gear || snap.Reverse != prev.Reverse) {
		r.Shifts++
	}
	for w, losing := range snap.LosingTraction {
		if losing && !prev.LosingTraction[w] {
			r.TractionLosses++
		}
	}
}

// Store wraps the results database.
type Store struct {
	db *gorm.DB
}

// Open opens or creates the database at path and migrates the schema. An
// empty path opens a private in-memory database.
func Open(path string) (*Store, error) {
	dsn := path
	if dsn == "" {
		dsn = "file::memory:"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("error opening results db: %w", err)
	}
	if path == "" {
		// Every connection to :memory: is a separate database.
		sqlDB, err := db.DB()
		if err != nil {
			return nil, fmt.Errorf("error opening results db: %w", err)
		}
		sqlDB.SetMaxOpenConns(1)
	}
	if err := db.AutoMigrate(&RunResult{}); err != nil {
		return nil, fmt.Errorf("error migrating results db: %w", err)
	}
	return &Store{db: db}, nil
}

// Save inserts r and fills in its ID.
func (s *Store) Save(r *RunResult) error {
	if r.Run == "" {
		return errors.New("run result has no run name")
	}
	if err := s.db.Create(r).Error; err != nil {
		return fmt.Errorf("error saving run %s: %w", r.Run, err)
	}
	return nil
}

// List returns the most recent results first, at most limit rows (all when
// limit <= 0).
func (s *Store) List(limit int) ([]RunResult, error) {
	var out []RunResult
	q := s.db.Order("id desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&out).Error; err != nil {
		return nil, fmt.Errorf("error listing runs: %w", err)
	}
	return out, nil
}

// Best returns the fastest finished run on a track.
func (s *Store) Best(track string) (RunResult, error) {
	var out RunResult
	err := s.db.Where("track = ? AND finished = ?", track, true).
		Order("finish_time asc").
		First(&out).Error
	if err != nil {
		return RunResult{}, fmt.Errorf("error finding best run on %s: %w", track, err)
	}
	return out, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
