package session

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/glebarez/go-sqlite"

	"github.com/comigor/chat-relay/internal/history"
	"github.com/comigor/chat-relay/internal/logger"
)

var sqliteSchema = []string{`
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    created_at INTEGER NOT NULL,
    updated_at INTEGER NOT NULL
);`, `
CREATE TABLE IF NOT EXISTS turns (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
    seq INTEGER NOT NULL,
    role TEXT NOT NULL,
    content TEXT NOT NULL,
    created_at INTEGER NOT NULL,
    UNIQUE (session_id, seq)
);`}

// SQLiteStore keeps sessions in SQLite. The default path ":memory:" gives a
// process-lifetime store with the same semantics as MemoryStore.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLiteStore opens (or creates) the database at path and ensures the schema exists.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	dsn := path
	if path != ":memory:" {
		dsn = "file:" + path + "?_pragma=busy_timeout(10000)&_pragma=foreign_keys(1)"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serialises writers.
	db.SetMaxOpenConns(1)

	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("sqlite schema: %w", err)
		}
	}
	logger.L.Info("sqlite session store initialized", "path", path)
	return &SQLiteStore{db: db}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (*Session, error) {
	var created, updated int64
	err := s.db.QueryRowContext(ctx, `SELECT created_at, updated_at FROM sessions WHERE id = ?;`, id).Scan(&created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get session: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `SELECT role, content, created_at FROM turns WHERE session_id = ? ORDER BY seq ASC;`, id)
	if err != nil {
		return nil, fmt.Errorf("sqlite list turns: %w", err)
	}
	defer rows.Close()

	var turns []history.Turn
	for rows.Next() {
		var (
			role, content string
			at            int64
		)
		if err := rows.Scan(&role, &content, &at); err != nil {
			return nil, fmt.Errorf("sqlite scan turn: %w", err)
		}
		turns = append(turns, history.Turn{
			Role:      history.Role(role),
			Parts:     []history.Part{{Text: content}},
			CreatedAt: time.Unix(0, at).UTC(),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite list turns: %w", err)
	}

	return &Session{
		ID:         id,
		Transcript: history.NewTranscript(turns...),
		CreatedAt:  time.Unix(0, created).UTC(),
		UpdatedAt:  time.Unix(0, updated).UTC(),
	}, nil
}

func (s *SQLiteStore) Create(ctx context.Context) (*Session, error) {
	sess := newSession()
	_, err := s.db.ExecContext(ctx, `INSERT INTO sessions (id, created_at, updated_at) VALUES (?,?,?);`,
		sess.ID, sess.CreatedAt.UnixNano(), sess.UpdatedAt.UnixNano())
	if err != nil {
		return nil, fmt.Errorf("sqlite create session: %w", err)
	}
	return sess, nil
}

// Save appends the turns not yet stored. Transcripts only grow, so rows already
// present are never rewritten.
func (s *SQLiteStore) Save(ctx context.Context, sess *Session) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	sess.UpdatedAt = time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO sessions (id, created_at, updated_at) VALUES (?,?,?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at;`,
		sess.ID, sess.CreatedAt.UnixNano(), sess.UpdatedAt.UnixNano()); err != nil {
		return fmt.Errorf("sqlite touch session: %w", err)
	}

	var stored int
	if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM turns WHERE session_id = ?;`, sess.ID).Scan(&stored); err != nil {
		return fmt.Errorf("sqlite count turns: %w", err)
	}

	turns := sess.Transcript.Turns()
	for seq := stored; seq < len(turns); seq++ {
		t := turns[seq]
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO turns (session_id, seq, role, content, created_at) VALUES (?,?,?,?,?);`,
			sess.ID, seq, string(t.Role), t.Text(), t.CreatedAt.UnixNano()); err != nil {
			return fmt.Errorf("sqlite insert turn: %w", err)
		}
	}

	return tx.Commit()
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
