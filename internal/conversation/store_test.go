package conversation

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zero-day-ai/cortex/internal/diagram"
)

type clock struct{ t time.Time }

func (c *clock) now() time.Time {
	c.t = c.t.Add(time.Second)
	return c.t
}

func backends(t *testing.T) map[string]func(t *testing.T) (Store, *clock) {
	t.Helper()
	return map[string]func(t *testing.T) (Store, *clock){
		"file": func(t *testing.T) (Store, *clock) {
			s, err := NewFileStore(t.TempDir())
			require.NoError(t, err)
			c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
			s.now = c.now
			return s, c
		},
		"sqlite": func(t *testing.T) (Store, *clock) {
			s, err := OpenSQLiteStore(filepath.Join(t.TempDir(), "conversations.db"))
			require.NoError(t, err)
			t.Cleanup(func() { s.Close() })
			c := &clock{t: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
			s.now = c.now
			return s, c
		},
	}
}

func sampleTurn(user string) Turn {
	return Turn{
		UserText:     user,
		ResponseText: "answer to " + user,
		Diagrams:     []diagram.Diagram{{SourceQuestion: user, Code: "graph TD\nA-->B"}},
		CreatedAt:    time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestStore_AppendThenLoad(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s, _ := open(t)
			ctx := context.Background()
			id := NewID()

			turns, err := s.Load(ctx, id)
			require.NoError(t, err)
			assert.NotNil(t, turns)
			assert.Empty(t, turns)

			first, second := sampleTurn("first"), sampleTurn("second")
			require.NoError(t, s.Append(ctx, id, first))
			require.NoError(t, s.Append(ctx, id, second))

			turns, err = s.Load(ctx, id)
			require.NoError(t, err)
			require.Len(t, turns, 2)
			assert.Equal(t, first, turns[0])
			assert.Equal(t, second, turns[len(turns)-1])
		})
	}
}

func TestStore_AppendStampsCreatedAt(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s, _ := open(t)
			ctx := context.Background()

			require.NoError(t, s.Append(ctx, "c1", Turn{UserText: "q", ResponseText: "a"}))
			turns, err := s.Load(ctx, "c1")
			require.NoError(t, err)
			require.Len(t, turns, 1)
			assert.False(t, turns[0].CreatedAt.IsZero())
		})
	}
}

func TestStore_SaveRenameDelete(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s, _ := open(t)
			ctx := context.Background()

			require.NoError(t, s.Save(ctx, "c1", "Stoicism", []Turn{sampleTurn("a"), sampleTurn("b")}))
			require.NoError(t, s.Save(ctx, "c1", "Stoic ethics", nil))

			conv, err := s.Get(ctx, "c1")
			require.NoError(t, err)
			assert.Equal(t, "c1", conv.ID)
			assert.Equal(t, "Stoic ethics", conv.Name)
			require.Len(t, conv.Turns, 2)
			assert.Equal(t, "b", conv.Turns[1].UserText)

			require.NoError(t, s.Save(ctx, "c1", "Stoic ethics", []Turn{sampleTurn("c")}))
			turns, err := s.Load(ctx, "c1")
			require.NoError(t, err)
			require.Len(t, turns, 1)
			assert.Equal(t, "c", turns[0].UserText)

			require.NoError(t, s.Delete(ctx, "c1"))
			_, err = s.Get(ctx, "c1")
			assert.ErrorIs(t, err, ErrNotFound)
			assert.ErrorIs(t, s.Delete(ctx, "c1"), ErrNotFound)
		})
	}
}

func TestStore_ListMostRecentFirst(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s, _ := open(t)
			ctx := context.Background()

			require.NoError(t, s.Append(ctx, "older", sampleTurn("a")))
			require.NoError(t, s.Save(ctx, "newer", "Named", []Turn{sampleTurn("b"), sampleTurn("c")}))

			list, err := s.List(ctx)
			require.NoError(t, err)
			require.Len(t, list, 2)
			assert.Equal(t, "newer", list[0].ID)
			assert.Equal(t, "Named", list[0].Name)
			assert.Equal(t, 2, list[0].TurnCount)
			assert.Equal(t, "older", list[1].ID)
			assert.Equal(t, 1, list[1].TurnCount)
		})
	}
}

func TestStore_RejectsInvalidIDs(t *testing.T) {
	for name, open := range backends(t) {
		t.Run(name, func(t *testing.T) {
			s, _ := open(t)
			ctx := context.Background()

			for _, id := range []string{"", "../etc/passwd", "a/b", "with space", string(make([]byte, 129))} {
				_, err := s.Load(ctx, id)
				assert.ErrorIs(t, err, ErrInvalidID, "id %q", id)
				assert.ErrorIs(t, s.Append(ctx, id, sampleTurn("x")), ErrInvalidID)
				assert.ErrorIs(t, s.Delete(ctx, id), ErrInvalidID)
			}
		})
	}
}

func TestFileStore_ReadsBareTurnArrays(t *testing.T) {
	dir := t.TempDir()
	legacy := `[{"user": "hello", "ai": "hi there"}]`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "legacy.json"), []byte(legacy), 0o600))

	s, err := NewFileStore(dir)
	require.NoError(t, err)

	turns, err := s.Load(context.Background(), "legacy")
	require.NoError(t, err)
	require.Len(t, turns, 1)
	assert.Equal(t, "hello", turns[0].UserText)
	assert.Equal(t, "hi there", turns[0].ResponseText)
}

func TestFileStore_CorruptFileIsPersistenceError(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{not json"), 0o600))

	s, err := NewFileStore(dir)
	require.NoError(t, err)

	_, err = s.Load(context.Background(), "bad")
	var perr *PersistenceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "load", perr.Op)
	assert.Equal(t, "bad", perr.ConversationID)
}

func TestValidateID(t *testing.T) {
	assert.NoError(t, ValidateID(NewID()))
	assert.NoError(t, ValidateID("abc_DEF-123"))
	assert.ErrorIs(t, ValidateID("abc.json"), ErrInvalidID)
}

func TestOpen_SelectsBackend(t *testing.T) {
	cfg := DefaultStoreConfig(t.TempDir())

	s, err := Open(cfg)
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)
	require.NoError(t, s.Close())

	cfg.Backend = "sqlite"
	s, err = Open(cfg)
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.Close())

	cfg.Backend = "postgres"
	_, err = Open(cfg)
	assert.Error(t, err)
}
