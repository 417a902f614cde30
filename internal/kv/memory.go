package kv

import (
	"context"

	isync "github.com/imtaco/bedrud-client/internal/sync"
)

type memoryStore struct {
	m *isync.Map[string, string]
}

func NewMemory() Store {
	return &memoryStore{m: isync.NewMap[string, string]()}
}

func (s *memoryStore) GetString(_ context.Context, key string) (string, bool) {
	return s.m.Load(key)
}

func (s *memoryStore) SetString(_ context.Context, key, value string) error {
	s.m.Store(key, value)
	return nil
}

func (s *memoryStore) Remove(_ context.Context, key string) error {
	s.m.Delete(key)
	return nil
}
