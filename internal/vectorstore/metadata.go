package vectorstore

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	_ "modernc.org/sqlite"
)

// metadataDB persists block metadata, bm25 text, and token vectors in
// SQLite using the pure-Go modernc.org/sqlite driver, avoiding a cgo
// dependency for what is otherwise a single-writer embedded store.
type metadataDB struct {
	mu sync.Mutex
	db *sql.DB
}

func openMetadataDB(path string) (*metadataDB, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("create metadata dir: %w", err)
		}
	} else {
		path = ":memory:"
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open metadata db: %w", err)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma: %w", err)
		}
	}

	const schema = `
	CREATE TABLE IF NOT EXISTS blocks (
		id TEXT PRIMARY KEY,
		file TEXT NOT NULL,
		type TEXT NOT NULL,
		name TEXT NOT NULL,
		start_line INTEGER NOT NULL,
		end_line INTEGER NOT NULL,
		content TEXT NOT NULL,
		bm25_text TEXT NOT NULL,
		tokens BLOB NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_blocks_file ON blocks(file);
	`
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &metadataDB{db: db}, nil
}

func (m *metadataDB) put(ctx context.Context, id string, tokens [][]float32, bm25Text string, meta Metadata) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	buf, err := encodeTokens(tokens)
	if err != nil {
		return err
	}

	_, err = m.db.ExecContext(ctx, `
		INSERT INTO blocks (id, file, type, name, start_line, end_line, content, bm25_text, tokens)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			file=excluded.file, type=excluded.type, name=excluded.name,
			start_line=excluded.start_line, end_line=excluded.end_line,
			content=excluded.content, bm25_text=excluded.bm25_text, tokens=excluded.tokens
	`, id, meta.File, meta.Type, meta.Name, meta.StartLine, meta.EndLine, meta.Content, bm25Text, buf)
	return err
}

func (m *metadataDB) getTokens(ctx context.Context, id string) ([][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var buf []byte
	err := m.db.QueryRowContext(ctx, `SELECT tokens FROM blocks WHERE id = ?`, id).Scan(&buf)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return decodeTokens(buf)
}

func (m *metadataDB) getMetadata(ctx context.Context, id string) (Metadata, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var meta Metadata
	err := m.db.QueryRowContext(ctx, `
		SELECT file, type, name, start_line, end_line, content FROM blocks WHERE id = ?
	`, id).Scan(&meta.File, &meta.Type, &meta.Name, &meta.StartLine, &meta.EndLine, &meta.Content)
	if err == sql.ErrNoRows {
		return Metadata{}, false, nil
	}
	if err != nil {
		return Metadata{}, false, err
	}
	return meta, true, nil
}

// allTokens returns every stored block id and its token matrix, used to
// rebuild the in-memory token graph when a store is reopened in a fresh
// process.
func (m *metadataDB) allTokens(ctx context.Context) (map[string][][]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	rows, err := m.db.QueryContext(ctx, `SELECT id, tokens FROM blocks`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	out := make(map[string][][]float32)
	for rows.Next() {
		var id string
		var buf []byte
		if err := rows.Scan(&id, &buf); err != nil {
			return nil, err
		}
		tokens, err := decodeTokens(buf)
		if err != nil {
			return nil, err
		}
		out[id] = tokens
	}
	return out, rows.Err()
}

func (m *metadataDB) delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, err := m.db.ExecContext(ctx, `DELETE FROM blocks WHERE id = ?`, id)
	return err
}

func (m *metadataDB) close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.db.Close()
}

func encodeTokens(tokens [][]float32) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(tokens); err != nil {
		return nil, fmt.Errorf("encode tokens: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeTokens(data []byte) ([][]float32, error) {
	var tokens [][]float32
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&tokens); err != nil {
		return nil, fmt.Errorf("decode tokens: %w", err)
	}
	return tokens, nil
}
