package conversation

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/zero-day-ai/cortex/internal/diagram"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS conversations (
	id         TEXT PRIMARY KEY,
	name       TEXT NOT NULL DEFAULT '',
	updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS turns (
	conversation_id TEXT NOT NULL REFERENCES conversations(id) ON DELETE CASCADE,
	seq             INTEGER NOT NULL,
	user_text       TEXT NOT NULL,
	response_text   TEXT NOT NULL,
	diagrams        TEXT NOT NULL DEFAULT '[]',
	created_at      TEXT NOT NULL,
	PRIMARY KEY (conversation_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_conversations_updated ON conversations(updated_at);
`

// SQLiteStore keeps conversations in a single SQLite database.
type SQLiteStore struct {
	db  *sql.DB
	now func() time.Time
}

// OpenSQLiteStore opens (or creates) the database at path and migrates it.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, newPersistenceError("open", path, err)
		}
	}

	db, err := sql.Open("sqlite3", "file:"+path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)&_pragma=foreign_keys(ON)")
	if err != nil {
		return nil, newPersistenceError("open", path, err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, newPersistenceError("migrate", path, err)
	}
	return &SQLiteStore{db: db, now: time.Now}, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Load(ctx context.Context, id string) ([]Turn, error) {
	if err := ValidateID(id); err != nil {
		return nil, err
	}
	return s.turns(ctx, id)
}

func (s *SQLiteStore) turns(ctx context.Context, id string) ([]Turn, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT user_text, response_text, diagrams, created_at FROM turns WHERE conversation_id = ? ORDER BY seq`, id)
	if err != nil {
		return nil, newPersistenceError("load", id, err)
	}
	defer rows.Close()

	out := []Turn{}
	for rows.Next() {
		var (
			t        Turn
			diagrams string
			created  string
		)
		if err := rows.Scan(&t.UserText, &t.ResponseText, &diagrams, &created); err != nil {
			return nil, newPersistenceError("load", id, err)
		}
		if err := json.Unmarshal([]byte(diagrams), &t.Diagrams); err != nil {
			return nil, newPersistenceError("load", id, fmt.Errorf("decode diagrams: %w", err))
		}
		if t.CreatedAt, err = time.Parse(time.RFC3339Nano, created); err != nil {
			return nil, newPersistenceError("load", id, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, newPersistenceError("load", id, err)
	}
	return out, nil
}

func (s *SQLiteStore) Get(ctx context.Context, id string) (Conversation, error) {
	if err := ValidateID(id); err != nil {
		return Conversation{}, err
	}

	conv := Conversation{ID: id}
	var updated string
	err := s.db.QueryRowContext(ctx, `SELECT name, updated_at FROM conversations WHERE id = ?`, id).Scan(&conv.Name, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return Conversation{}, ErrNotFound
	}
	if err != nil {
		return Conversation{}, newPersistenceError("load", id, err)
	}
	if conv.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
		return Conversation{}, newPersistenceError("load", id, err)
	}
	if conv.Turns, err = s.turns(ctx, id); err != nil {
		return Conversation{}, err
	}
	return conv, nil
}

func (s *SQLiteStore) Append(ctx context.Context, id string, turn Turn) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	now := s.now().UTC()
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = now
	}

	return s.inTx(ctx, "append", id, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO conversations (id, updated_at) VALUES (?, ?)
			 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
			id, now.Format(time.RFC3339Nano)); err != nil {
			return err
		}
		return insertTurn(ctx, tx, id, turn)
	})
}

// Save replaces the name and turns of a conversation in one transaction.
func (s *SQLiteStore) Save(ctx context.Context, id, name string, turns []Turn) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	now := s.now().UTC()

	return s.inTx(ctx, "save", id, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO conversations (id, name, updated_at) VALUES (?, ?, ?)
			 ON CONFLICT(id) DO UPDATE SET name = excluded.name, updated_at = excluded.updated_at`,
			id, name, now.Format(time.RFC3339Nano)); err != nil {
			return err
		}
		if turns == nil {
			return nil
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM turns WHERE conversation_id = ?`, id); err != nil {
			return err
		}
		for _, t := range turns {
			if t.CreatedAt.IsZero() {
				t.CreatedAt = now
			}
			if err := insertTurn(ctx, tx, id, t); err != nil {
				return err
			}
		}
		return nil
	})
}

func insertTurn(ctx context.Context, tx *sql.Tx, id string, t Turn) error {
	diagrams := t.Diagrams
	if diagrams == nil {
		diagrams = []diagram.Diagram{}
	}
	encoded, err := json.Marshal(diagrams)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`INSERT INTO turns (conversation_id, seq, user_text, response_text, diagrams, created_at)
		 VALUES (?, (SELECT COALESCE(MAX(seq), 0) + 1 FROM turns WHERE conversation_id = ?), ?, ?, ?, ?)`,
		id, id, t.UserText, t.ResponseText, string(encoded), t.CreatedAt.UTC().Format(time.RFC3339Nano))
	return err
}

func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM conversations WHERE id = ?`, id)
	if err != nil {
		return newPersistenceError("delete", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.name, c.updated_at, COUNT(t.seq)
		FROM conversations c LEFT JOIN turns t ON t.conversation_id = c.id
		GROUP BY c.id, c.name, c.updated_at`)
	if err != nil {
		return nil, newPersistenceError("list", "", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		var (
			sum     Summary
			updated string
		)
		if err := rows.Scan(&sum.ID, &sum.Name, &updated, &sum.TurnCount); err != nil {
			return nil, newPersistenceError("list", "", err)
		}
		if sum.UpdatedAt, err = time.Parse(time.RFC3339Nano, updated); err != nil {
			return nil, newPersistenceError("list", sum.ID, err)
		}
		out = append(out, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, newPersistenceError("list", "", err)
	}
	sortSummaries(out)
	return out, nil
}

func (s *SQLiteStore) inTx(ctx context.Context, op, id string, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return newPersistenceError(op, id, err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return newPersistenceError(op, id, err)
	}
	if err := tx.Commit(); err != nil {
		return newPersistenceError(op, id, err)
	}
	return nil
}

var _ Store = (*SQLiteStore)(nil)
