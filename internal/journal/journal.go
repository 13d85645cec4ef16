package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"subpipe/internal/services"
)

// Event kinds recorded by the cache layer.
const (
	KindRestoreHit  = "restore_hit"
	KindRestoreMiss = "restore_miss"
	KindStored      = "stored"
	KindStoreSkip   = "store_skipped"
	KindInvalidated = "invalidated"
	KindDegraded    = "degraded"
)

// Event is one journaled cache decision.
type Event struct {
	ID        string
	CreatedAt time.Time
	MediaID   string
	Kind      string
	Detail    string
}

// Journal is a sqlite-backed record of cache decisions, kept so operators
// can audit hit rates and invalidations after the fact. A nil Journal is
// valid and records nothing.
type Journal struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS cache_events (
	id TEXT PRIMARY KEY,
	created_at TEXT NOT NULL,
	media_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	detail TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS idx_cache_events_media ON cache_events(media_id, created_at);
`

// Open creates or opens the journal database at path, applying the schema.
func Open(path string) (*Journal, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "journal", "open", "create journal directory", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)", path)
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "journal", "open", "open journal database", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, services.Wrap(services.ErrConfiguration, "journal", "open", "apply journal schema", err)
	}
	return &Journal{db: db}, nil
}

// Close releases the underlying database.
func (j *Journal) Close() error {
	if j == nil || j.db == nil {
		return nil
	}
	return j.db.Close()
}

// Record appends one event. Recording on a nil journal is a no-op.
func (j *Journal) Record(ctx context.Context, mediaID, kind, detail string) error {
	if j == nil || j.db == nil {
		return nil
	}
	_, err := j.db.ExecContext(ctx,
		`INSERT INTO cache_events (id, created_at, media_id, kind, detail) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), time.Now().UTC().Format(time.RFC3339Nano), mediaID, kind, detail)
	if err != nil {
		return services.Wrap(services.ErrTransient, "journal", "record", "insert cache event", err)
	}
	return nil
}

// List returns the most recent events, newest first. A limit of zero or
// less means no limit. An empty mediaID matches every media.
func (j *Journal) List(ctx context.Context, mediaID string, limit int) ([]Event, error) {
	if j == nil || j.db == nil {
		return nil, nil
	}

	query := `SELECT id, created_at, media_id, kind, detail FROM cache_events`
	args := []any{}
	if mediaID != "" {
		query += ` WHERE media_id = ?`
		args = append(args, mediaID)
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := j.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "journal", "list", "query cache events", err)
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var event Event
		var createdAt string
		if err := rows.Scan(&event.ID, &createdAt, &event.MediaID, &event.Kind, &event.Detail); err != nil {
			return nil, services.Wrap(services.ErrTransient, "journal", "list", "scan cache event", err)
		}
		if ts, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
			event.CreatedAt = ts
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
