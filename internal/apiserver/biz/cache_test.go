package biz

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanq-io/hanq/internal/model"
)

func setupTestRedis(t *testing.T) *goredis.Client {
	client := goredis.NewClient(&goredis.Options{
		Addr: "localhost:6379",
		DB:   15,
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("redis not available, skipping")
	}

	client.FlushDB(ctx)
	return client
}

func TestNewQueryCacheWithNilConfig(t *testing.T) {
	cache := NewQueryCache(nil, nil)
	assert.NotNil(t, cache)
	assert.False(t, cache.config.Enabled)
	assert.Equal(t, 1*time.Hour, cache.config.TTL)
	assert.Equal(t, "hanq:qa:", cache.config.KeyPrefix)
}

func TestGenerateCacheKey(t *testing.T) {
	cache := NewQueryCache(nil, &QueryCacheConfig{
		Enabled:   true,
		TTL:       time.Hour,
		KeyPrefix: "test:qa:",
	})

	key1 := cache.generateCacheKey("한국의 수도는 어디인가요?", 5)
	key2 := cache.generateCacheKey("한국의 수도는 어디인가요?", 5)
	key3 := cache.generateCacheKey("서울의 인구는 얼마인가요?", 5)

	assert.Equal(t, key1, key2)
	assert.NotEqual(t, key1, key3)
	assert.Contains(t, key1, "test:qa:")
}

func TestGenerateCacheKeyVariesWithTopK(t *testing.T) {
	cache := NewQueryCache(nil, &QueryCacheConfig{
		Enabled:   true,
		TTL:       time.Hour,
		KeyPrefix: "test:qa:",
	})

	// Same question, different retrieval depth, different entry.
	key1 := cache.generateCacheKey("한국의 수도는 어디인가요?", 1)
	key5 := cache.generateCacheKey("한국의 수도는 어디인가요?", 5)
	assert.NotEqual(t, key1, key5)
}

func TestQueryCacheSetAndGet(t *testing.T) {
	client := setupTestRedis(t)
	defer func() { _ = client.Close() }()

	cache := NewQueryCache(client, &QueryCacheConfig{
		Enabled:   true,
		TTL:       time.Hour,
		KeyPrefix: "test:qa:",
	})
	ctx := context.Background()

	question := "한국의 수도는 어디인가요?"
	result := &model.QAResult{
		RetrievedDocumentID: "6566495-0-0",
		RetrievedDocument:   "한국의 수도는 서울이다.",
		Question:            question,
		Answers: []model.Answer{
			{Text: "서울이다", AnswerStart: 8},
		},
	}

	require.NoError(t, cache.Set(ctx, question, 5, result))

	cached, err := cache.Get(ctx, question, 5)
	require.NoError(t, err)
	require.NotNil(t, cached)
	assert.Equal(t, result.RetrievedDocumentID, cached.RetrievedDocumentID)
	assert.Equal(t, result.Answers, cached.Answers)

	// a different top_k for the same question is a miss
	cached, err = cache.Get(ctx, question, 1)
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestQueryCacheMiss(t *testing.T) {
	client := setupTestRedis(t)
	defer func() { _ = client.Close() }()

	cache := NewQueryCache(client, &QueryCacheConfig{
		Enabled:   true,
		TTL:       time.Hour,
		KeyPrefix: "test:qa:",
	})

	cached, err := cache.Get(context.Background(), "캐시에 없는 질문", 5)
	require.NoError(t, err)
	assert.Nil(t, cached)
}

func TestQueryCacheDisabled(t *testing.T) {
	cache := NewQueryCache(nil, &QueryCacheConfig{Enabled: false})
	ctx := context.Background()

	_, err := cache.Get(ctx, "질문", 5)
	assert.Error(t, err)

	// disabled Set is a no-op, never an error
	assert.NoError(t, cache.Set(ctx, "질문", 5, &model.QAResult{}))
	assert.NoError(t, cache.Clear(ctx))

	stats, err := cache.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, false, stats["enabled"])
}

func TestQueryCacheClearAndStats(t *testing.T) {
	client := setupTestRedis(t)
	defer func() { _ = client.Close() }()

	cache := NewQueryCache(client, &QueryCacheConfig{
		Enabled:   true,
		TTL:       time.Hour,
		KeyPrefix: "test:qa:",
	})
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "질문1", 5, &model.QAResult{Question: "질문1"}))
	require.NoError(t, cache.Set(ctx, "질문2", 5, &model.QAResult{Question: "질문2"}))

	stats, err := cache.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, stats["enabled"])
	assert.Equal(t, 2, stats["key_count"])

	require.NoError(t, cache.Clear(ctx))

	stats, err = cache.GetStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, stats["key_count"])
}
