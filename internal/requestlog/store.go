package requestlog

import (
	"database/sql"
	"embed"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // registers "pgx" driver

	"github.com/voicekit/tts-gateway/internal/observe"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// maxRecords bounds the table; oldest rows are pruned on insert.
const maxRecords = 1000

// Store persists request records to PostgreSQL.
type Store struct {
	db *sql.DB
}

// Open connects to the request-log database at connStr and applies
// pending migrations.
func Open(connStr string) (*Store, error) {
	db, err := sql.Open("pgx", connStr)
	if err != nil {
		return nil, fmt.Errorf("requestlog open: %w", err)
	}
	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("requestlog ping: %w", err)
	}
	if err = migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("requestlog migrate: %w", err)
	}
	return &Store{db: db}, nil
}

func migrate(db *sql.DB) error {
	_, err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_version (version INTEGER NOT NULL)`)
	if err != nil {
		return err
	}

	var current int
	row := db.QueryRow(`SELECT COALESCE(MAX(version), -1) FROM schema_version`)
	if err = row.Scan(&current); err != nil {
		return err
	}

	entries, err := migrationFS.ReadDir("migrations")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	for i := current + 1; i < len(entries); i++ {
		data, readErr := migrationFS.ReadFile("migrations/" + entries[i].Name())
		if readErr != nil {
			return fmt.Errorf("read migration %d: %w", i, readErr)
		}
		if _, execErr := db.Exec(string(data)); execErr != nil {
			return fmt.Errorf("migration %d: %w", i, execErr)
		}
		if _, execErr := db.Exec(`INSERT INTO schema_version (version) VALUES ($1)`, i); execErr != nil {
			return fmt.Errorf("migration %d record: %w", i, execErr)
		}
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Record inserts one request record and prunes old rows. It satisfies
// the log sink contract; callers treat failures as non-fatal.
func (s *Store) Record(rec observe.LogRecord) error {
	_, err := s.db.Exec(
		`INSERT INTO requests (trace_id, recorded_at, endpoint, status, latency_ms, error_detail, input_text, language, audio_file, audio_bytes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		rec.TraceID, rec.Timestamp.UTC(), rec.Endpoint, rec.Status.String(), rec.LatencyMs,
		rec.Error, rec.InputText, rec.Language, rec.AudioFile, rec.AudioBytes,
	)
	if err != nil {
		return err
	}
	_, err = s.db.Exec(
		`DELETE FROM requests WHERE trace_id NOT IN (SELECT trace_id FROM requests ORDER BY recorded_at DESC LIMIT $1)`,
		maxRecords,
	)
	return err
}

// List returns records ordered newest first, with the total count.
func (s *Store) List(limit, offset int) ([]Row, int, error) {
	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM requests`).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := s.db.Query(`
		SELECT trace_id, recorded_at, endpoint, status, latency_ms, error_detail, input_text, language, audio_file, audio_bytes
		FROM requests
		ORDER BY recorded_at DESC
		LIMIT $1 OFFSET $2
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var records []Row
	for rows.Next() {
		var r Row
		var recordedAt time.Time
		if err = rows.Scan(&r.TraceID, &recordedAt, &r.Endpoint, &r.Status, &r.LatencyMs,
			&r.Error, &r.InputText, &r.Language, &r.AudioFile, &r.AudioBytes); err != nil {
			return nil, 0, err
		}
		r.Timestamp = recordedAt.UTC().Format("2006-01-02 15:04:05")
		records = append(records, r)
	}
	return records, total, rows.Err()
}
