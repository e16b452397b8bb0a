package vault

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/aegisworks/aegis/internal/pipeline"
)

// SQLStore persists vaulted artifacts in a single SQLite table. Rows are
// insert-only; the autoincrement sequence mirrors the in-memory append
// order across restarts.
type SQLStore struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS artifacts (
	seq        INTEGER PRIMARY KEY AUTOINCREMENT,
	id         TEXT NOT NULL UNIQUE,
	created_at TEXT NOT NULL,
	data       TEXT NOT NULL
);`

// OpenSQLStore opens (creating if needed) the vault database at path.
func OpenSQLStore(path string) (*SQLStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create vault dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open vault db: %w", err)
	}
	// modernc sqlite serializes writes itself; one connection avoids
	// SQLITE_BUSY under concurrent appends.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("init vault schema: %w", err)
	}
	return &SQLStore{db: db}, nil
}

// Save inserts one artifact row.
func (s *SQLStore) Save(art *pipeline.FinalArtifact) error {
	data, err := json.Marshal(art)
	if err != nil {
		return fmt.Errorf("marshal artifact: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT INTO artifacts (id, created_at, data) VALUES (?, ?, ?)`,
		art.ID, art.CreatedAt.Format(time.RFC3339Nano), string(data))
	if err != nil {
		return fmt.Errorf("insert artifact: %w", err)
	}
	return nil
}

// LoadAll returns every artifact in insertion order.
func (s *SQLStore) LoadAll() ([]*pipeline.FinalArtifact, error) {
	rows, err := s.db.Query(`SELECT data FROM artifacts ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query artifacts: %w", err)
	}
	defer rows.Close()

	var out []*pipeline.FinalArtifact
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("scan artifact: %w", err)
		}
		var art pipeline.FinalArtifact
		if err := json.Unmarshal([]byte(data), &art); err != nil {
			continue // skip corrupted rows
		}
		out = append(out, &art)
	}
	return out, rows.Err()
}

// Close closes the underlying database.
func (s *SQLStore) Close() error {
	return s.db.Close()
}
