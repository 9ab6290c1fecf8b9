// Package history persists completed sweeps so past results survive the
// process and can be listed later.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/HerbHall/portscout/internal/scan"
	"github.com/HerbHall/portscout/internal/store"
	"github.com/HerbHall/portscout/internal/svcmap"
	"github.com/google/uuid"
)

const component = "history"

// Record is one persisted sweep.
type Record struct {
	ID           string
	TargetIP     string
	TargetDomain string // empty when the user supplied a literal IP
	StartedAt    time.Time
	EndedAt      time.Time
	Duration     time.Duration
	Probed       int
	OpenPorts    []int // ascending
}

// Store provides database operations for scan history.
type Store struct {
	db *store.SQLiteStore
}

// NewStore creates a history store and brings its schema up to date.
func NewStore(ctx context.Context, db *store.SQLiteStore) (*Store, error) {
	if err := db.Migrate(ctx, component, migrations()); err != nil {
		return nil, fmt.Errorf("migrate history schema: %w", err)
	}
	return &Store{db: db}, nil
}

// SaveScan persists one completed sweep and its open ports in a single
// transaction. Returns the generated record ID.
func (s *Store) SaveScan(ctx context.Context, res *scan.Result) (string, error) {
	id := uuid.New().String()

	err := s.db.Tx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO scan_history (
				id, target_ip, target_name, started_at, ended_at,
				duration_ms, probed, open_count
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			id, res.Target.IP, res.Target.Domain, res.StartedAt, res.EndedAt,
			res.Duration.Milliseconds(), res.Probed, len(res.OpenPorts),
		)
		if err != nil {
			return fmt.Errorf("insert scan: %w", err)
		}

		for _, port := range res.OpenPorts {
			_, err := tx.ExecContext(ctx,
				"INSERT INTO scan_open_ports (scan_id, port, service) VALUES (?, ?, ?)",
				id, port, svcmap.Name(port),
			)
			if err != nil {
				return fmt.Errorf("insert open port %d: %w", port, err)
			}
		}
		return nil
	})
	if err != nil {
		return "", err
	}
	return id, nil
}

// ListScans returns the most recent sweeps, newest first. A non-positive
// limit defaults to 20.
func (s *Store) ListScans(ctx context.Context, limit int) ([]Record, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.DB().QueryContext(ctx, `
		SELECT id, target_ip, target_name, started_at, ended_at, duration_ms, probed
		FROM scan_history
		ORDER BY started_at DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query scan history: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var r Record
		var durationMS int64
		if err := rows.Scan(&r.ID, &r.TargetIP, &r.TargetDomain,
			&r.StartedAt, &r.EndedAt, &durationMS, &r.Probed); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		r.Duration = time.Duration(durationMS) * time.Millisecond
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scan history: %w", err)
	}

	for i := range records {
		ports, err := s.openPorts(ctx, records[i].ID)
		if err != nil {
			return nil, err
		}
		records[i].OpenPorts = ports
	}
	return records, nil
}

func (s *Store) openPorts(ctx context.Context, scanID string) ([]int, error) {
	rows, err := s.db.DB().QueryContext(ctx,
		"SELECT port FROM scan_open_ports WHERE scan_id = ? ORDER BY port", scanID)
	if err != nil {
		return nil, fmt.Errorf("query open ports for %s: %w", scanID, err)
	}
	defer rows.Close()

	var ports []int
	for rows.Next() {
		var p int
		if err := rows.Scan(&p); err != nil {
			return nil, fmt.Errorf("scan port row: %w", err)
		}
		ports = append(ports, p)
	}
	return ports, rows.Err()
}
