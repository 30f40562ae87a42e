package journal

import (
	"database/sql"

	"codeberg.org/mutker/resmon/internal/errors"
	"codeberg.org/mutker/resmon/internal/logger"
)

const (
	SchemaVersion = 1

	createTablesSQL = `
	   CREATE TABLE IF NOT EXISTS schema_versions (
	       version     INTEGER PRIMARY KEY,
	       applied_at  TEXT NOT NULL
	   );
	   CREATE TABLE IF NOT EXISTS task_summaries (
	       id                    INTEGER PRIMARY KEY AUTOINCREMENT,
	       task_id               TEXT NOT NULL,
	       task_type             TEXT NOT NULL,
	       task_title            TEXT NOT NULL,
	       start_time            INTEGER NOT NULL,
	       end_time              INTEGER NOT NULL,
	       duration_ms           REAL NOT NULL,
	       avg_cpu_percent       REAL NOT NULL,
	       max_cpu_percent       REAL NOT NULL,
	       avg_accel_utilization REAL NOT NULL,
	       max_accel_utilization INTEGER NOT NULL,
	       peak_vram_used_mb     INTEGER NOT NULL,
	       vram_delta_mb         INTEGER NOT NULL,
	       sample_count          INTEGER NOT NULL
	   );`

	insertSummarySQL = `
    INSERT INTO task_summaries (
        task_id, task_type, task_title,
        start_time, end_time, duration_ms,
        avg_cpu_percent, max_cpu_percent,
        avg_accel_utilization, max_accel_utilization,
        peak_vram_used_mb, vram_delta_mb, sample_count
    ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
)

// initSchema creates the journal schema and records its version.
func initSchema(db *sql.DB) error {
	errFactory := errors.New()

	tx, err := db.Begin()
	if err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	committed := false
	defer func() {
		if !committed {
			if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
				logger.Debug().Err(err).Msg("Failed to rollback transaction")
			}
		}
	}()

	if _, err := tx.Exec(createTablesSQL); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	if _, err := tx.Exec(`
        INSERT OR IGNORE INTO schema_versions (version, applied_at)
        VALUES (?, datetime('now'))
    `, SchemaVersion); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}

	if err := tx.Commit(); err != nil {
		return errFactory.Wrap(ErrSchemaInitFailed, err)
	}
	committed = true

	logger.Debug().Int("version", SchemaVersion).Msg("Journal schema initialized")

	return nil
}
