package persistence

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/khoahotran/career-path/internal/application/service"
	"github.com/khoahotran/career-path/internal/domain/profile"
	"github.com/khoahotran/career-path/internal/domain/roadmap"
	"github.com/khoahotran/career-path/pkg/apperror"
	"github.com/khoahotran/career-path/pkg/logger"
)

func newTestCache(t *testing.T, ttl time.Duration) (*miniredis.Miniredis, service.LocalCache) {
	t.Helper()
	m, err := miniredis.Run()
	if err != nil {
		t.Fatalf("start miniredis: %v", err)
	}
	t.Cleanup(m.Close)
	client := redis.NewClient(&redis.Options{Addr: m.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return m, NewRedisLocalCache(client, ttl, logger.NewNopLogger())
}

func TestRedisLocalCache_RoundTripAndTTL(t *testing.T) {
	m, cache := newTestCache(t, time.Hour)
	ctx := context.Background()
	id := uuid.New()

	in := &profile.Profile{ID: id, Name: "Ada", Skills: []string{"Go"}}
	require.NoError(t, cache.Store(ctx, id, service.CacheKeyProfile, in))

	var out profile.Profile
	found, err := cache.Load(ctx, id, service.CacheKeyProfile, &out)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, "Ada", out.Name)
	assert.Equal(t, []string{"Go"}, out.Skills)

	key := "careerpath:" + id.String() + ":profile"
	assert.True(t, m.Exists(key))
	assert.Equal(t, time.Hour, m.TTL(key))

	m.FastForward(2 * time.Hour)
	found, err = cache.Load(ctx, id, service.CacheKeyProfile, &out)
	require.NoError(t, err)
	assert.False(t, found)
}

func TestRedisLocalCache_CorruptEntryIsDeleted(t *testing.T) {
	m, cache := newTestCache(t, time.Hour)
	ctx := context.Background()
	id := uuid.New()
	key := "careerpath:" + id.String() + ":roadmap"
	require.NoError(t, m.Set(key, "{not json"))

	var r roadmap.Roadmap
	found, err := cache.Load(ctx, id, service.CacheKeyRoadmap, &r)

	require.NoError(t, err)
	assert.False(t, found)
	assert.False(t, m.Exists(key))
}

func TestRedisLocalCache_LegacyRoadmapDecodes(t *testing.T) {
	m, cache := newTestCache(t, time.Hour)
	ctx := context.Background()
	id := uuid.New()
	require.NoError(t, m.Set("careerpath:"+id.String()+":roadmap",
		`{"milestones":[{"title":"Basics"}],"kanban":{"backlog":[],"in_progress":[],"done":["Basics"]}}`))

	var r roadmap.Roadmap
	found, err := cache.Load(ctx, id, service.CacheKeyRoadmap, &r)
	require.NoError(t, err)
	require.True(t, found)

	n := r.Normalize()
	assert.Equal(t, roadmap.StatusDone, n.Milestones[0].Status)
	assert.Equal(t, 100, n.Progress.Percentage)
}

func TestRedisLocalCache_DeleteIsPerKey(t *testing.T) {
	_, cache := newTestCache(t, time.Hour)
	ctx := context.Background()
	id := uuid.New()

	require.NoError(t, cache.Store(ctx, id, service.CacheKeyProfile, map[string]string{"a": "b"}))
	require.NoError(t, cache.Store(ctx, id, service.CacheKeySkillsGap, map[string]string{"c": "d"}))
	require.NoError(t, cache.Delete(ctx, id, service.CacheKeyProfile))

	var v map[string]string
	found, _ := cache.Load(ctx, id, service.CacheKeyProfile, &v)
	assert.False(t, found)
	found, _ = cache.Load(ctx, id, service.CacheKeySkillsGap, &v)
	assert.True(t, found)
}

func TestRedisLocalCache_Unavailable(t *testing.T) {
	m, cache := newTestCache(t, time.Hour)
	m.Close()

	var v map[string]string
	_, err := cache.Load(context.Background(), uuid.New(), service.CacheKeyProfile, &v)
	assert.ErrorIs(t, err, apperror.ErrRemoteUnavailable)
}
