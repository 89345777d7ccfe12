// Package storage implements invoice object storage.
package storage

import (
	"context"
	"strings"
	"sync"
)

// MemoryStorage keeps objects in process. It serves local development and
// tests; URLs point at baseURL but nothing is served there.
type MemoryStorage struct {
	mu      sync.RWMutex
	baseURL string
	objects map[string]Object
}

type Object struct {
	Data        []byte
	ContentType string
}

func NewMemoryStorage(baseURL string) *MemoryStorage {
	if baseURL == "" {
		baseURL = "memory://invoices"
	}
	return &MemoryStorage{baseURL: strings.TrimRight(baseURL, "/"), objects: make(map[string]Object)}
}

// Upload stores data under key, replacing any previous object.
func (s *MemoryStorage) Upload(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = Object{Data: append([]byte(nil), data...), ContentType: contentType}
	return s.baseURL + "/" + key, nil
}

func (s *MemoryStorage) Get(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	return o, ok
}

func (s *MemoryStorage) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
