// Package persistence stores world snapshots and the report log in SQLite.
package persistence

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/hinterland/internal/engine"
)

// ErrNoSnapshot is returned when the database holds no saved world.
var ErrNoSnapshot = errors.New("no snapshot saved")

// ErrCorrupt is returned when a stored blob no longer matches its digest.
var ErrCorrupt = errors.New("snapshot digest mismatch")

// DefaultKeep is how many snapshots are retained when Keep is unset.
const DefaultKeep = 10

// DB wraps a SQLite connection for world state persistence.
type DB struct {
	Keep int // Snapshots retained after each save

	conn *sqlx.DB
}

// SnapshotInfo describes a stored snapshot.
type SnapshotInfo struct {
	ID      int64     `db:"id" json:"id"`
	SavedAt time.Time `db:"-" json:"saved_at"`
	Tick    time.Time `db:"-" json:"tick"`
	Digest  string    `db:"digest" json:"digest"`
	Size    int       `db:"size" json:"size"`

	SavedAtNS int64 `db:"saved_at" json:"-"`
	TickNS    int64 `db:"tick" json:"-"`
}

// StoredSnapshot is a snapshot row including its blob.
type StoredSnapshot struct {
	SnapshotInfo
	Blob []byte `db:"blob"`
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{Keep: DefaultKeep, conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}

	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS snapshots (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		saved_at INTEGER NOT NULL,
		tick INTEGER NOT NULL,
		digest TEXT NOT NULL,
		size INTEGER NOT NULL,
		blob BLOB NOT NULL
	);

	CREATE TABLE IF NOT EXISTS reports (
		id TEXT PRIMARY KEY,
		time INTEGER NOT NULL,
		kind TEXT NOT NULL,
		mission TEXT NOT NULL,
		origin INTEGER NOT NULL,
		target INTEGER NOT NULL,
		title TEXT NOT NULL,
		body TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS world_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_reports_time ON reports(time);
	CREATE INDEX IF NOT EXISTS idx_reports_origin ON reports(origin);
	CREATE INDEX IF NOT EXISTS idx_reports_target ON reports(target);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Save writes a snapshot and its reports in one transaction and prunes old
// snapshots. It satisfies engine.Saver.
func (db *DB) Save(ctx context.Context, snap engine.Snapshot) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertSnapshot(ctx, tx, snap.Time, snap.Blob); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	if err := insertReports(ctx, tx, snap.Reports); err != nil {
		return fmt.Errorf("save reports: %w", err)
	}
	if err := db.prune(ctx, tx); err != nil {
		return fmt.Errorf("prune snapshots: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		"last_tick", snap.Time.UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("save meta: %w", err)
	}
	return tx.Commit()
}

// SaveSnapshot stores blob taken at simulation time tick.
func (db *DB) SaveSnapshot(ctx context.Context, tick time.Time, blob []byte) error {
	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertSnapshot(ctx, tx, tick, blob); err != nil {
		return err
	}
	if err := db.prune(ctx, tx); err != nil {
		return err
	}
	return tx.Commit()
}

func insertSnapshot(ctx context.Context, tx *sqlx.Tx, tick time.Time, blob []byte) error {
	_, err := tx.ExecContext(ctx,
		"INSERT INTO snapshots (saved_at, tick, digest, size, blob) VALUES (?, ?, ?, ?, ?)",
		time.Now().UnixNano(), tick.UnixNano(), Digest(blob), len(blob), blob,
	)
	return err
}

func (db *DB) prune(ctx context.Context, tx *sqlx.Tx) error {
	keep := db.Keep
	if keep <= 0 {
		keep = DefaultKeep
	}
	_, err := tx.ExecContext(ctx,
		"DELETE FROM snapshots WHERE id NOT IN (SELECT id FROM snapshots ORDER BY id DESC LIMIT ?)",
		keep,
	)
	return err
}

// LatestSnapshot returns the newest snapshot after checking its digest.
func (db *DB) LatestSnapshot(ctx context.Context) (*StoredSnapshot, error) {
	var s StoredSnapshot
	err := db.conn.GetContext(ctx, &s,
		"SELECT id, saved_at, tick, digest, size, blob FROM snapshots ORDER BY id DESC LIMIT 1")
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, err
	}
	s.fill()
	if got := Digest(s.Blob); got != s.Digest {
		slog.Error("snapshot failed verification", "id", s.ID, "want", s.Digest, "got", got)
		return nil, fmt.Errorf("snapshot %d: %w", s.ID, ErrCorrupt)
	}
	return &s, nil
}

// Snapshots lists stored snapshots newest first, without their blobs.
func (db *DB) Snapshots(ctx context.Context) ([]SnapshotInfo, error) {
	var out []SnapshotInfo
	err := db.conn.SelectContext(ctx, &out,
		"SELECT id, saved_at, tick, digest, size FROM snapshots ORDER BY id DESC")
	if err != nil {
		return nil, err
	}
	for i := range out {
		out[i].fill()
	}
	return out, nil
}

func (s *SnapshotInfo) fill() {
	s.SavedAt = time.Unix(0, s.SavedAtNS).UTC()
	s.Tick = time.Unix(0, s.TickNS).UTC()
}

// SaveReports appends reports to the long-term log. Reports already
// stored are skipped.
func (db *DB) SaveReports(ctx context.Context, reports []engine.Report) error {
	if len(reports) == 0 {
		return nil
	}

	tx, err := db.conn.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := insertReports(ctx, tx, reports); err != nil {
		return err
	}
	return tx.Commit()
}

func insertReports(ctx context.Context, tx *sqlx.Tx, reports []engine.Report) error {
	for _, r := range reports {
		body, err := json.Marshal(r)
		if err != nil {
			return fmt.Errorf("encode report %s: %w", r.ID, err)
		}
		_, err = tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO reports (id, time, kind, mission, origin, target, title, body)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			r.ID, r.Time.UnixNano(), string(r.Kind), string(r.Mission),
			int64(r.Origin), int64(r.Target), r.Title, string(body),
		)
		if err != nil {
			return fmt.Errorf("insert report %s: %w", r.ID, err)
		}
	}
	return nil
}

// RecentReports returns up to limit logged reports, newest first.
func (db *DB) RecentReports(ctx context.Context, limit int) ([]engine.Report, error) {
	var bodies []string
	err := db.conn.SelectContext(ctx, &bodies,
		"SELECT body FROM reports ORDER BY time DESC, id LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, err
	}
	out := make([]engine.Report, 0, len(bodies))
	for _, b := range bodies {
		var r engine.Report
		if err := json.Unmarshal([]byte(b), &r); err != nil {
			return nil, fmt.Errorf("decode report: %w", err)
		}
		out = append(out, r)
	}
	return out, nil
}

// SaveMeta stores a key-value pair in world metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO world_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM world_meta WHERE key = ?", key)
	return value, err
}
