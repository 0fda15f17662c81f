package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appErrors "github.com/noah-isme/academic-timetable-api/pkg/errors"
)

type cacheRepoStub struct {
	values   map[string]string
	getErr   error
	patterns []string
	ttls     []time.Duration
}

func (s *cacheRepoStub) Get(_ context.Context, key string, dest interface{}) error {
	if s.getErr != nil {
		return s.getErr
	}
	value, ok := s.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	*(dest.(*string)) = value
	return nil
}

func (s *cacheRepoStub) Set(_ context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.values == nil {
		s.values = map[string]string{}
	}
	s.values[key] = value.(string)
	s.ttls = append(s.ttls, ttl)
	return nil
}

func (s *cacheRepoStub) DeleteByPattern(_ context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	return nil
}

type cacheObserverStub struct {
	hits, misses, writes int
}

func (s *cacheObserverStub) RecordCacheOperation(hit bool, _ time.Duration) {
	if hit {
		s.hits++
		return
	}
	s.misses++
}

func (s *cacheObserverStub) ObserveCacheWrite(time.Duration) { s.writes++ }

func TestCacheServiceHitMissAndTTL(t *testing.T) {
	repo := &cacheRepoStub{}
	observer := &cacheObserverStub{}
	cache := NewCacheService(repo, observer, 30*time.Second, nil, true)

	var value string
	hit, err := cache.Get(context.Background(), "timetable:bookings:a", &value)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, cache.Set(context.Background(), "timetable:bookings:a", "cached", 0))
	hit, err = cache.Get(context.Background(), "timetable:bookings:a", &value)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, "cached", value)

	assert.Equal(t, []time.Duration{30 * time.Second}, repo.ttls)
	assert.Equal(t, 1, observer.hits)
	assert.Equal(t, 1, observer.misses)
	assert.Equal(t, 1, observer.writes)

	require.NoError(t, cache.Invalidate(context.Background(), bookingViewPattern))
	assert.Equal(t, []string{bookingViewPattern}, repo.patterns)
}

func TestCacheServiceSurfacesTransportErrors(t *testing.T) {
	repo := &cacheRepoStub{getErr: errors.New("redis down")}
	cache := NewCacheService(repo, nil, 0, nil, true)

	var value string
	hit, err := cache.Get(context.Background(), "k", &value)
	assert.False(t, hit)
	assert.EqualError(t, err, "redis down")
}

func TestCacheServiceDisabledIsANoop(t *testing.T) {
	repo := &cacheRepoStub{}
	cache := NewCacheService(repo, nil, 0, nil, false)

	require.NoError(t, cache.Set(context.Background(), "k", "v", time.Minute))
	require.NoError(t, cache.Invalidate(context.Background(), "*"))
	assert.Empty(t, repo.values)
	assert.Empty(t, repo.patterns)
	assert.False(t, cache.Enabled())
}
