package kv

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"github.com/pkg/errors"

	"github.com/imtaco/bedrud-client/internal/log"
	isync "github.com/imtaco/bedrud-client/internal/sync"
)

// fileStore keeps everything in memory and rewrites one JSON document on
// every mutation.
type fileStore struct {
	path   string
	cache  *isync.Map[string, string]
	wmu    sync.Mutex
	logger *log.Logger
}

func NewFile(path string, logger *log.Logger) (Store, error) {
	if logger == nil {
		panic("logger is required")
	}
	if path == "" {
		return nil, errors.New("file store needs a path")
	}

	s := &fileStore{
		path:   path,
		cache:  isync.NewMap[string, string](),
		logger: logger,
	}

	bs, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, errors.Wrapf(err, "read %s", path)
	default:
		content := map[string]string{}
		if err := json.Unmarshal(bs, &content); err != nil {
			// unreadable file is treated as empty
			logger.Warn("store file is corrupt, starting empty", log.String("path", path), log.Error(err))
		} else {
			s.cache.Replace(content)
		}
	}
	return s, nil
}

func (s *fileStore) GetString(_ context.Context, key string) (string, bool) {
	return s.cache.Load(key)
}

func (s *fileStore) SetString(_ context.Context, key, value string) error {
	return s.mutate(func(content map[string]string) { content[key] = value })
}

func (s *fileStore) Remove(_ context.Context, key string) error {
	return s.mutate(func(content map[string]string) { delete(content, key) })
}

// mutate writes the changed document first; the cache only moves once the
// file holds the new content.
func (s *fileStore) mutate(change func(map[string]string)) error {
	s.wmu.Lock()
	defer s.wmu.Unlock()

	next := s.cache.Snapshot()
	change(next)
	if err := s.flush(next); err != nil {
		return err
	}
	s.cache.Replace(next)
	return nil
}

func (s *fileStore) flush(content map[string]string) error {
	bs, err := json.MarshalIndent(content, "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode store")
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return errors.Wrap(err, "create store dir")
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, bs, 0o600); err != nil {
		return errors.Wrap(err, "write store")
	}
	return errors.Wrap(os.Rename(tmp, s.path), "replace store")
}
