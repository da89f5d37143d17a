// Package store is the relational persistence gateway. All writes are
// idempotent upserts keyed by the rows' natural composite identities,
// so re-ingesting a run converges to the same stored state instead of
// appending duplicates.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/pagepulse/pagepulse/pkg/config"
)

// Store provides persistence for normalized run data.
type Store interface {
	Start(ctx context.Context) error
	Stop() error

	// Run metadata.
	UpsertTestRun(ctx context.Context, run *TestRun) error
	GetTestRun(ctx context.Context, testID string) (*TestRun, error)
	ListTestRuns(ctx context.Context) ([]TestRun, error)

	// Coach advice rows.
	UpsertAdvice(ctx context.Context, row *CoachAdvice) error
	ListAdviceByTestID(ctx context.Context, testID string) ([]CoachAdvice, error)

	// Per-run category scores.
	UpsertCoachScores(ctx context.Context, row *CoachScores) error
	GetCoachScores(ctx context.Context, testID string) (*CoachScores, error)

	// Pagexray content breakdown rows.
	UpsertPagexray(ctx context.Context, row *PagexrayRow) error
	ListPagexrayByTestID(ctx context.Context, testID string) ([]PagexrayRow, error)
}

// Compile-time interface check.
var _ Store = (*store)(nil)

type store struct {
	log logrus.FieldLogger
	cfg *config.DatabaseConfig
	db  *gorm.DB
}

// NewStore creates a new Store backed by the configured database driver.
func NewStore(
	log logrus.FieldLogger,
	cfg *config.DatabaseConfig,
) Store {
	return &store{
		log: log.WithField("component", "store"),
		cfg: cfg,
	}
}

// Start opens the database connection and runs migrations.
func (s *store) Start(ctx context.Context) error {
	var dialector gorm.Dialector

	gormCfg := &gorm.Config{
		Logger: logger.Discard,
	}

	switch s.cfg.Driver {
	case "sqlite":
		dialector = sqlite.Open(s.cfg.SQLite.Path)
	case "postgres":
		dsn := fmt.Sprintf(
			"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			s.cfg.Postgres.Host,
			s.cfg.Postgres.Port,
			s.cfg.Postgres.User,
			s.cfg.Postgres.Password,
			s.cfg.Postgres.Database,
			s.cfg.Postgres.SSLMode,
		)
		dialector = postgres.Open(dsn)
	default:
		return fmt.Errorf("unsupported database driver: %s", s.cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}

	s.db = db

	if err := s.db.WithContext(ctx).AutoMigrate(
		&TestRun{},
		&CoachAdvice{},
		&CoachScores{},
		&PagexrayRow{},
	); err != nil {
		return fmt.Errorf("running migrations: %w", err)
	}

	s.log.WithField("driver", s.cfg.Driver).Info("Database connected")

	return nil
}

// Stop closes the underlying database connection.
func (s *store) Stop() error {
	if s.db == nil {
		return nil
	}

	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("getting underlying db: %w", err)
	}

	return sqlDB.Close()
}

// --- Run metadata ---

// UpsertTestRun inserts or updates the run row keyed by test_id,
// refreshing browser and created_at.
func (s *store) UpsertTestRun(ctx context.Context, run *TestRun) error {
	result := s.db.WithContext(ctx).
		Where("test_id = ?", run.TestID).
		Assign(map[string]any{
			"browser":    run.Browser,
			"created_at": time.Now().UTC(),
		}).
		FirstOrCreate(run)
	if result.Error != nil {
		return fmt.Errorf("upserting test run: %w", result.Error)
	}

	return nil
}

func (s *store) GetTestRun(
	ctx context.Context, testID string,
) (*TestRun, error) {
	var run TestRun
	if err := s.db.WithContext(ctx).
		Where("test_id = ?", testID).
		First(&run).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("getting test run: %w", err)
	}

	return &run, nil
}

func (s *store) ListTestRuns(ctx context.Context) ([]TestRun, error) {
	var runs []TestRun
	if err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("listing test runs: %w", err)
	}

	return runs, nil
}

// --- Coach advice ---

// UpsertAdvice inserts or updates an advice row keyed by
// test_id+group_name+category_name+advice_id. The mutable fields
// (score, title, description) are overwritten and created_at is
// refreshed; the identity fields are never touched. The assignment uses
// a map so a zero score still overwrites a previous value.
func (s *store) UpsertAdvice(ctx context.Context, row *CoachAdvice) error {
	result := s.db.WithContext(ctx).
		Where(
			"test_id = ? AND group_name = ? AND category_name = ? AND advice_id = ?",
			row.TestID, row.GroupName, row.CategoryName, row.AdviceID,
		).
		Assign(map[string]any{
			"url":         row.URL,
			"score":       row.Score,
			"title":       row.Title,
			"description": row.Description,
			"created_at":  time.Now().UTC(),
		}).
		FirstOrCreate(row)
	if result.Error != nil {
		return fmt.Errorf("upserting coach advice: %w", result.Error)
	}

	return nil
}

func (s *store) ListAdviceByTestID(
	ctx context.Context, testID string,
) ([]CoachAdvice, error) {
	var rows []CoachAdvice
	if err := s.db.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("created_at DESC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing coach advice: %w", err)
	}

	return rows, nil
}

// --- Category scores ---

// UpsertCoachScores inserts or updates the per-run score row keyed by
// test_id. Nil scores overwrite too: an absent category must read back
// as absent after re-ingestion.
func (s *store) UpsertCoachScores(ctx context.Context, row *CoachScores) error {
	result := s.db.WithContext(ctx).
		Where("test_id = ?", row.TestID).
		Assign(map[string]any{
			"performance_score":  row.PerformanceScore,
			"privacy_score":      row.PrivacyScore,
			"bestpractice_score": row.BestPracticeScore,
			"created_at":         time.Now().UTC(),
		}).
		FirstOrCreate(row)
	if result.Error != nil {
		return fmt.Errorf("upserting coach scores: %w", result.Error)
	}

	return nil
}

func (s *store) GetCoachScores(
	ctx context.Context, testID string,
) (*CoachScores, error) {
	var row CoachScores
	if err := s.db.WithContext(ctx).
		Where("test_id = ?", testID).
		First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}

		return nil, fmt.Errorf("getting coach scores: %w", err)
	}

	return &row, nil
}

// --- Pagexray ---

// UpsertPagexray inserts or updates a content breakdown row keyed by
// test_id+group_name+content_type, overwriting the three counters.
func (s *store) UpsertPagexray(ctx context.Context, row *PagexrayRow) error {
	result := s.db.WithContext(ctx).
		Where(
			"test_id = ? AND group_name = ? AND content_type = ?",
			row.TestID, row.GroupName, row.ContentType,
		).
		Assign(map[string]any{
			"url":           row.URL,
			"browser":       row.Browser,
			"requests":      row.Requests,
			"content_size":  row.ContentSize,
			"transfer_size": row.TransferSize,
			"created_at":    time.Now().UTC(),
		}).
		FirstOrCreate(row)
	if result.Error != nil {
		return fmt.Errorf("upserting pagexray row: %w", result.Error)
	}

	return nil
}

func (s *store) ListPagexrayByTestID(
	ctx context.Context, testID string,
) ([]PagexrayRow, error) {
	var rows []PagexrayRow
	if err := s.db.WithContext(ctx).
		Where("test_id = ?", testID).
		Order("content_type").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("listing pagexray rows: %w", err)
	}

	return rows, nil
}
