package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	logx "bunkbot/pkg/logx"
)

// fileStore keeps the subscription map in a single JSON document,
// read fully on every query and rewritten fully (temp file + rename)
// on every mutation. Entry counts are small and mutations rare, so
// there is no cache.
type fileStore struct {
	log  logx.Logger
	path string

	mu sync.Mutex
}

func openFile(cfg Config, log logx.Logger) (Store, error) {
	path := strings.TrimSpace(cfg.Path)
	if path == "" {
		return nil, errors.New("store.path is required for file driver")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return &fileStore{log: log, path: path}, nil
}

func (s *fileStore) Close() error { return nil }

func (s *fileStore) Get(ctx context.Context, recipient int64) (bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return false, err
	}
	return m[strconv.FormatInt(recipient, 10)], nil
}

func (s *fileStore) SetEnabled(ctx context.Context, recipient int64, enabled bool) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return err
	}
	key := strconv.FormatInt(recipient, 10)
	if enabled {
		m[key] = true
	} else {
		delete(m, key)
	}
	return s.save(m)
}

func (s *fileStore) Enabled(ctx context.Context) ([]int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	m, err := s.load()
	if err != nil {
		return nil, err
	}

	out := make([]int64, 0, len(m))
	for key, on := range m {
		if !on {
			continue
		}
		id, err := strconv.ParseInt(key, 10, 64)
		if err != nil {
			s.log.Warn("skipping malformed subscription key", logx.String("key", key))
			continue
		}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out, nil
}

func (s *fileStore) Len(ctx context.Context) (int, error) {
	ids, err := s.Enabled(ctx)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (s *fileStore) load() (map[string]bool, error) {
	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]bool{}, nil
		}
		return nil, err
	}
	var m map[string]bool
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, err
	}
	if m == nil {
		m = map[string]bool{}
	}
	return m, nil
}

func (s *fileStore) save(m map[string]bool) error {
	b, err := json.Marshal(m)
	if err != nil {
		return err
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o600); err != nil {
		return err
	}
	return os.Rename(tmp, s.path)
}
