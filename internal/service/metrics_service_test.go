package service

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/linkvault-api/internal/models"
	appErrors "github.com/noah-isme/linkvault-api/pkg/errors"
)

func counterValue(t *testing.T, m *MetricsService, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := m.Registry().Gather()
	require.NoError(t, err)
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
	next:
		for _, metric := range family.GetMetric() {
			for _, pair := range metric.GetLabel() {
				if labels[pair.GetName()] != pair.GetValue() {
					continue next
				}
			}
			return metric.GetCounter().GetValue()
		}
	}
	return 0
}

func TestMetricsServiceCounters(t *testing.T) {
	m := NewMetricsService()

	m.ShareCreated(models.ShareKindFile)
	m.ShareAccess(operationDownload, OutcomeGranted)
	m.ShareAccess(operationDownload, OutcomeGranted)
	m.ShareAccess(operationView, OutcomeExpired)
	m.ReaperSweep(3, time.Millisecond)
	m.PayloadDeleteFailed()

	assert.Equal(t, 1.0, counterValue(t, m, "shares_created_total", map[string]string{"kind": "file"}))
	assert.Equal(t, 2.0, counterValue(t, m, "share_access_total", map[string]string{"operation": "download", "outcome": "granted"}))
	assert.Equal(t, 1.0, counterValue(t, m, "share_access_total", map[string]string{"operation": "view", "outcome": "expired"}))
	assert.Equal(t, 3.0, counterValue(t, m, "share_reaper_deleted_total", nil))
	assert.Equal(t, 1.0, counterValue(t, m, "share_payload_delete_failures_total", nil))

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "share_access_total")
}

func TestMetricsServiceNilIsSafe(t *testing.T) {
	var m *MetricsService
	m.ShareCreated(models.ShareKindText)
	m.ShareAccess(operationView, OutcomeGranted)
	m.ReaperSweep(1, time.Second)
	m.RecordCacheOperation(true)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

type memoryCache struct {
	values      map[string]interface{}
	getErr      error
	invalidated []string
}

func (c *memoryCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.getErr != nil {
		return c.getErr
	}
	value, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	ptr, ok := dest.(*string)
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*ptr = value.(string)
	return nil
}

func (c *memoryCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	c.values[key] = value
	return nil
}

func (c *memoryCache) DeleteByPattern(ctx context.Context, pattern string) error {
	c.invalidated = append(c.invalidated, pattern)
	return nil
}

func TestCacheServiceHitMissAndInvalidate(t *testing.T) {
	repo := &memoryCache{values: map[string]interface{}{}}
	metrics := NewMetricsService()
	svc := NewCacheService(repo, metrics, time.Minute, nil, true)

	var got string
	assert.False(t, svc.Get(context.Background(), "k", &got))

	svc.Set(context.Background(), "k", "v", 0)
	require.True(t, svc.Get(context.Background(), "k", &got))
	assert.Equal(t, "v", got)

	svc.InvalidateUserStats(context.Background())
	assert.Equal(t, []string{cacheKeyUserStatsPattern}, repo.invalidated)

	assert.Equal(t, 1.0, counterValue(t, metrics, "cache_hits_total", nil))
	assert.Equal(t, 1.0, counterValue(t, metrics, "cache_misses_total", nil))
}

func TestCacheServiceDisabled(t *testing.T) {
	repo := &memoryCache{values: map[string]interface{}{"k": "v"}}
	svc := NewCacheService(repo, nil, 0, nil, false)

	var got string
	assert.False(t, svc.Get(context.Background(), "k", &got))
	svc.InvalidateUserStats(context.Background())
	assert.Empty(t, repo.invalidated)
}
