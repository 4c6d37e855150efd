package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// FileStore keeps one JSON file per conversation in a directory. Writes go
// to a temp file that is renamed over the target.
type FileStore struct {
	mu  sync.Mutex
	dir string
	now func() time.Time
}

// NewFileStore stores one JSON file per conversation under dir, creating it
// if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, newPersistenceError("open", dir, err)
	}
	return &FileStore{dir: dir, now: time.Now}, nil
}

func (s *FileStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

func (s *FileStore) Load(ctx context.Context, id string) ([]Turn, error) {
	conv, err := s.Get(ctx, id)
	if errors.Is(err, ErrNotFound) {
		return []Turn{}, nil
	}
	if err != nil {
		return nil, err
	}
	return conv.Turns, nil
}

func (s *FileStore) Get(ctx context.Context, id string) (Conversation, error) {
	if err := ValidateID(id); err != nil {
		return Conversation{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read(id)
}

// read decodes a stored conversation. Files holding a bare array of turns
// are accepted as unnamed conversations.
func (s *FileStore) read(id string) (Conversation, error) {
	data, err := os.ReadFile(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return Conversation{}, ErrNotFound
	}
	if err != nil {
		return Conversation{}, newPersistenceError("load", id, err)
	}

	var conv Conversation
	if trimmed := strings.TrimSpace(string(data)); strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &conv.Turns); err != nil {
			return Conversation{}, newPersistenceError("load", id, err)
		}
		conv.ID = id
	} else if err := json.Unmarshal(data, &conv); err != nil {
		return Conversation{}, newPersistenceError("load", id, err)
	}
	if conv.Turns == nil {
		conv.Turns = []Turn{}
	}
	return conv, nil
}

func (s *FileStore) Append(ctx context.Context, id string, turn Turn) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.read(id)
	if errors.Is(err, ErrNotFound) {
		conv = Conversation{ID: id, Turns: []Turn{}}
	} else if err != nil {
		return err
	}
	if turn.CreatedAt.IsZero() {
		turn.CreatedAt = s.now().UTC()
	}
	conv.Turns = append(conv.Turns, turn)
	return s.write(conv)
}

// Save replaces the name and turns of a conversation. A nil turns slice
// keeps the stored turns.
func (s *FileStore) Save(ctx context.Context, id, name string, turns []Turn) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, err := s.read(id)
	if errors.Is(err, ErrNotFound) {
		conv = Conversation{ID: id, Turns: []Turn{}}
	} else if err != nil {
		return err
	}
	conv.Name = name
	if turns != nil {
		conv.Turns = turns
	}
	return s.write(conv)
}

func (s *FileStore) write(conv Conversation) error {
	conv.UpdatedAt = s.now().UTC()
	data, err := json.MarshalIndent(conv, "", "  ")
	if err != nil {
		return newPersistenceError("save", conv.ID, err)
	}

	tmp, err := os.CreateTemp(s.dir, "."+conv.ID+"-*.tmp")
	if err != nil {
		return newPersistenceError("save", conv.ID, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return newPersistenceError("save", conv.ID, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return newPersistenceError("save", conv.ID, err)
	}
	if err := tmp.Close(); err != nil {
		return newPersistenceError("save", conv.ID, err)
	}
	if err := os.Rename(tmp.Name(), s.path(conv.ID)); err != nil {
		return newPersistenceError("save", conv.ID, err)
	}
	return nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	if err := ValidateID(id); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	err := os.Remove(s.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return ErrNotFound
	}
	if err != nil {
		return newPersistenceError("delete", id, err)
	}
	return nil
}

func (s *FileStore) List(ctx context.Context) ([]Summary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, newPersistenceError("list", s.dir, err)
	}

	out := []Summary{}
	for _, e := range entries {
		id, ok := strings.CutSuffix(e.Name(), ".json")
		if e.IsDir() || !ok || ValidateID(id) != nil {
			continue
		}
		conv, err := s.read(id)
		if err != nil {
			return nil, err
		}
		updated := conv.UpdatedAt
		if updated.IsZero() {
			if info, err := e.Info(); err == nil {
				updated = info.ModTime().UTC()
			}
		}
		out = append(out, Summary{ID: id, Name: conv.Name, TurnCount: len(conv.Turns), UpdatedAt: updated})
	}
	sortSummaries(out)
	return out, nil
}

func (s *FileStore) Close() error { return nil }

func sortSummaries(out []Summary) {
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
}

var _ Store = (*FileStore)(nil)
