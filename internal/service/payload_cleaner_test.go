package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/linkvault-api/pkg/jobs"
	"github.com/noah-isme/linkvault-api/pkg/storage"
)

type flakyStore struct {
	mu       sync.Mutex
	failures int
	deleted  []string
}

func (s *flakyStore) Put(ctx context.Context, name string, r io.Reader, size int64, contentType string) (string, error) {
	return name, nil
}

func (s *flakyStore) Open(ctx context.Context, name string) (*storage.Object, error) {
	return nil, storage.ErrObjectNotFound
}

func (s *flakyStore) Delete(ctx context.Context, name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failures > 0 {
		s.failures--
		return errors.New("transient")
	}
	s.deleted = append(s.deleted, name)
	return nil
}

func (s *flakyStore) deletedNames() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.deleted...)
}

func TestPayloadCleanerRetriesFailedDelete(t *testing.T) {
	store := &flakyStore{failures: 2}
	cleaner := NewPayloadCleaner(store, NewMetricsService(), nil, jobs.QueueConfig{Workers: 1, MaxRetries: 3, RetryDelay: 10 * time.Millisecond})
	cleaner.Start(context.Background())
	defer cleaner.Stop()

	cleaner.Remove(context.Background(), "1-abc.bin")

	require.Eventually(t, func() bool { return len(store.deletedNames()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"1-abc.bin"}, store.deletedNames())
}

func TestPayloadCleanerIgnoresEmptyName(t *testing.T) {
	store := &flakyStore{}
	cleaner := NewPayloadCleaner(store, nil, nil, jobs.QueueConfig{})
	cleaner.Remove(context.Background(), "")
	assert.Empty(t, store.deletedNames())
}
