package history

import (
	"database/sql"

	"github.com/HerbHall/portscout/internal/store"
)

// migrations returns the history component's database migrations.
func migrations() []store.Migration {
	return []store.Migration{
		{
			Version:     1,
			Description: "create scan_history and scan_open_ports tables",
			Up: func(tx *sql.Tx) error {
				stmts := []string{
					`CREATE TABLE scan_history (
						id          TEXT PRIMARY KEY,
						target_ip   TEXT NOT NULL,
						target_name TEXT NOT NULL DEFAULT '',
						started_at  DATETIME NOT NULL,
						ended_at    DATETIME NOT NULL,
						duration_ms INTEGER NOT NULL DEFAULT 0,
						probed      INTEGER NOT NULL DEFAULT 0,
						open_count  INTEGER NOT NULL DEFAULT 0
					)`,
					`CREATE INDEX idx_scan_history_started ON scan_history(started_at)`,
					`CREATE TABLE scan_open_ports (
						scan_id TEXT NOT NULL REFERENCES scan_history(id) ON DELETE CASCADE,
						port    INTEGER NOT NULL,
						service TEXT NOT NULL DEFAULT 'unknown',
						PRIMARY KEY (scan_id, port)
					)`,
				}
				for _, stmt := range stmts {
					if _, err := tx.Exec(stmt); err != nil {
						return err
					}
				}
				return nil
			},
		},
	}
}
