package journal

import (
	"database/sql"
	"os"
	"path/filepath"
	"sync"

	"codeberg.org/mutker/resmon/internal/errors"
	"codeberg.org/mutker/resmon/internal/logger"
	"codeberg.org/mutker/resmon/internal/monitor"

	_ "github.com/mattn/go-sqlite3"
)

type sqliteRepository struct {
	db *sql.DB
	mu sync.Mutex
}

func NewRepository(cfg Config) (Repository, error) {
	errFactory := errors.New()

	if cfg.DBPath == "" {
		return nil, errFactory.New(ErrInvalidDBPath)
	}

	logger.Debug().Msgf("Initializing journal repository at: %s", cfg.DBPath)

	// Ensure the directory exists
	if err := os.MkdirAll(filepath.Dir(cfg.DBPath), defaultDirPerm); err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	dsn := cfg.DBPath + "?_journal=WAL&_auto_vacuum=2"
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, errFactory.Wrap(ErrStorageInit, err)
	}

	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}

	return &sqliteRepository{db: db}, nil
}

func (r *sqliteRepository) Store(summary *monitor.TaskSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, err := r.db.Exec(insertSummarySQL,
		summary.TaskID,
		summary.TaskType,
		summary.TaskTitle,
		summary.StartTime.Unix(),
		summary.EndTime.Unix(),
		summary.DurationMS,
		summary.AvgCPUPercent,
		summary.MaxCPUPercent,
		summary.AvgAccelUtilization,
		summary.MaxAccelUtilization,
		summary.PeakVRAMUsedMB,
		summary.VRAMDeltaMB,
		summary.SampleCount,
	)
	if err != nil {
		return errors.New().Wrap(ErrRecordFailed, err)
	}

	return nil
}

func (r *sqliteRepository) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.db.Close(); err != nil {
		return errors.New().Wrap(ErrStorageClose, err)
	}
	return nil
}
