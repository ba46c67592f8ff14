package topics

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// SQLiteStore implements Store using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist. ":memory:" opens a private in-memory database.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0755); err != nil {
				return nil, fmt.Errorf("failed to create database directory: %w", err)
			}
		}
	}
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if dbPath == ":memory:" {
		// Every pooled connection to :memory: would be a separate database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS topics (
		name TEXT PRIMARY KEY COLLATE NOCASE,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS topic_keywords (
		topic TEXT NOT NULL COLLATE NOCASE,
		position INTEGER NOT NULL,
		keyword TEXT NOT NULL,
		PRIMARY KEY (topic, position),
		FOREIGN KEY (topic) REFERENCES topics(name) ON DELETE CASCADE
	);

	CREATE INDEX IF NOT EXISTS idx_topic_keywords_keyword ON topic_keywords(keyword);
	`
	_, err := db.Exec(schema)
	return err
}

// Upsert inserts or replaces a topic and its keywords.
func (s *SQLiteStore) Upsert(ctx context.Context, t *Topic) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if err := upsertTx(ctx, tx, t); err != nil {
		return err
	}
	return tx.Commit()
}

// ReplaceAll swaps the whole catalog for topics in one transaction.
func (s *SQLiteStore) ReplaceAll(ctx context.Context, topics []*Topic) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, `DELETE FROM topics`); err != nil {
		return fmt.Errorf("clear topics: %w", err)
	}
	for _, t := range topics {
		if err := upsertTx(ctx, tx, t); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func upsertTx(ctx context.Context, tx *sql.Tx, t *Topic) error {
	name := strings.TrimSpace(t.Name)
	if name == "" {
		return fmt.Errorf("topic name must not be empty")
	}
	t.Name = name
	t.Keywords = CleanKeywords(t.Keywords)
	t.UpdatedAt = time.Now().UTC()

	// Keywords go first so renaming the parent row never leaves children behind.
	if _, err := tx.ExecContext(ctx, `DELETE FROM topic_keywords WHERE topic = ?`, t.Name); err != nil {
		return fmt.Errorf("clear keywords for %q: %w", t.Name, err)
	}
	_, err := tx.ExecContext(ctx,
		`INSERT INTO topics (name, updated_at) VALUES (?, ?)
		 ON CONFLICT(name) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`,
		t.Name, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert topic %q: %w", t.Name, err)
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO topic_keywords (topic, position, keyword) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for i, k := range t.Keywords {
		if _, err := stmt.ExecContext(ctx, t.Name, i, k); err != nil {
			return fmt.Errorf("insert keyword %q: %w", k, err)
		}
	}
	return nil
}

// Get returns a topic by name.
func (s *SQLiteStore) Get(ctx context.Context, name string) (*Topic, error) {
	var t Topic
	err := s.db.QueryRowContext(ctx,
		`SELECT name, updated_at FROM topics WHERE name = ?`, strings.TrimSpace(name),
	).Scan(&t.Name, &t.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrTopicNotFound, name)
	}
	if err != nil {
		return nil, err
	}
	kws, err := s.keywords(ctx, t.Name)
	if err != nil {
		return nil, err
	}
	t.Keywords = kws
	return &t, nil
}

func (s *SQLiteStore) keywords(ctx context.Context, name string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT keyword FROM topic_keywords WHERE topic = ? ORDER BY position`, name)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	kws := make([]string, 0)
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		kws = append(kws, k)
	}
	return kws, rows.Err()
}

// List returns every topic with its keywords, ordered by name.
func (s *SQLiteStore) List(ctx context.Context) ([]*Topic, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name, t.updated_at, k.keyword
		FROM topics t LEFT JOIN topic_keywords k ON k.topic = t.name
		ORDER BY t.name COLLATE NOCASE, k.position`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Topic
	var cur *Topic
	for rows.Next() {
		var name string
		var updated time.Time
		var kw sql.NullString
		if err := rows.Scan(&name, &updated, &kw); err != nil {
			return nil, err
		}
		if cur == nil || cur.Name != name {
			cur = &Topic{Name: name, UpdatedAt: updated, Keywords: make([]string, 0)}
			out = append(out, cur)
		}
		if kw.Valid {
			cur.Keywords = append(cur.Keywords, kw.String)
		}
	}
	return out, rows.Err()
}

// Names returns all topic names ordered by name.
func (s *SQLiteStore) Names(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name FROM topics ORDER BY name COLLATE NOCASE`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

// Delete removes a topic and its keywords.
func (s *SQLiteStore) Delete(ctx context.Context, name string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM topics WHERE name = ?`, strings.TrimSpace(name))
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("%w: %s", ErrTopicNotFound, name)
	}
	return nil
}

// Count returns the number of topics.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM topics`).Scan(&n)
	return n, err
}

// Close closes the database.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
