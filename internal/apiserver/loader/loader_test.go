package loader

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hanq-io/hanq/internal/model"
)

func waitForState(t *testing.T, l *Loader, state string) {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		if l.Status().State == state {
			return
		}
		select {
		case <-deadline:
			t.Fatalf("loader never reached state %q, last status %+v", state, l.Status())
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func TestLoaderStartsIdle(t *testing.T) {
	l := New(nil, "data/korquad.json")
	status := l.Status()
	assert.Equal(t, model.LoadingStateIdle, status.State)
	assert.False(t, l.Ready())
	assert.Nil(t, l.Stats())
}

func TestLoaderSuccess(t *testing.T) {
	indexed := make(chan struct{})
	l := New(func(ctx context.Context, path string, recreate bool, onProgress func(indexed, total int)) (*model.IndexStats, error) {
		defer close(indexed)
		return &model.IndexStats{Documents: 10, Chunks: 42, Indexed: 42}, nil
	}, "data/korquad.json")

	require.NoError(t, l.Start(context.Background(), false))
	<-indexed
	waitForState(t, l, model.LoadingStateReady)

	assert.True(t, l.Ready())
	status := l.Status()
	assert.Equal(t, 1.0, status.Progress)
	assert.NotNil(t, status.StartedAt)
	assert.NotNil(t, status.ReadyAt)
	assert.Empty(t, status.Error)

	require.NotNil(t, l.Stats())
	assert.Equal(t, 42, l.Stats().Indexed)
}

func TestLoaderFailure(t *testing.T) {
	l := New(func(ctx context.Context, path string, recreate bool, onProgress func(indexed, total int)) (*model.IndexStats, error) {
		return nil, errors.New("milvus unavailable")
	}, "data/korquad.json")

	require.NoError(t, l.Start(context.Background(), false))
	waitForState(t, l, model.LoadingStateFailed)

	assert.False(t, l.Ready())
	status := l.Status()
	assert.Equal(t, "milvus unavailable", status.Error)
	assert.NotEmpty(t, status.Message)
}

func TestLoaderRejectsConcurrentStart(t *testing.T) {
	var mu sync.Mutex
	release := make(chan struct{})

	l := New(func(ctx context.Context, path string, recreate bool, onProgress func(indexed, total int)) (*model.IndexStats, error) {
		mu.Lock()
		defer mu.Unlock()
		<-release
		return &model.IndexStats{}, nil
	}, "data/korquad.json")

	require.NoError(t, l.Start(context.Background(), false))
	waitForState(t, l, model.LoadingStateLoading)

	err := l.Start(context.Background(), false)
	require.ErrorIs(t, err, ErrAlreadyLoading)

	close(release)
	waitForState(t, l, model.LoadingStateReady)

	// a finished loader may start again
	require.NoError(t, l.Start(context.Background(), true))
	waitForState(t, l, model.LoadingStateReady)
}

func TestLoaderRestartAfterFailure(t *testing.T) {
	calls := 0
	l := New(func(ctx context.Context, path string, recreate bool, onProgress func(indexed, total int)) (*model.IndexStats, error) {
		calls++
		if calls == 1 {
			return nil, errors.New("transient")
		}
		return &model.IndexStats{Documents: 1}, nil
	}, "data/korquad.json")

	require.NoError(t, l.Start(context.Background(), false))
	waitForState(t, l, model.LoadingStateFailed)

	require.NoError(t, l.Start(context.Background(), false))
	waitForState(t, l, model.LoadingStateReady)
	assert.True(t, l.Ready())
}

func TestLoaderStartIsNoOpWhenReady(t *testing.T) {
	calls := 0
	l := New(func(ctx context.Context, path string, recreate bool, onProgress func(indexed, total int)) (*model.IndexStats, error) {
		calls++
		return &model.IndexStats{Documents: 1, Chunks: 2, Indexed: 2}, nil
	}, "data/korquad.json")

	require.NoError(t, l.Start(context.Background(), false))
	waitForState(t, l, model.LoadingStateReady)
	require.Equal(t, 1, calls)

	// restarting a ready loader without recreate must not index again
	err := l.Start(context.Background(), false)
	require.ErrorIs(t, err, ErrAlreadyReady)
	assert.Equal(t, 1, calls)
	assert.True(t, l.Ready())

	// recreate forces a full reload
	require.NoError(t, l.Start(context.Background(), true))
	waitForState(t, l, model.LoadingStateReady)
	assert.Equal(t, 2, calls)
}

func TestLoaderProgress(t *testing.T) {
	release := make(chan struct{})
	reported := make(chan struct{})

	l := New(func(ctx context.Context, path string, recreate bool, onProgress func(indexed, total int)) (*model.IndexStats, error) {
		onProgress(5, 10)
		close(reported)
		<-release
		return &model.IndexStats{Chunks: 10, Indexed: 10}, nil
	}, "data/korquad.json")

	require.NoError(t, l.Start(context.Background(), false))
	<-reported

	// half the batches indexed maps into the 0.1 to 0.95 range
	assert.InDelta(t, 0.525, l.Status().Progress, 1e-9)

	close(release)
	waitForState(t, l, model.LoadingStateReady)
	assert.Equal(t, 1.0, l.Status().Progress)
}

func TestLoaderMarkReady(t *testing.T) {
	l := New(nil, "data/korquad.json")
	l.MarkReady("기존 컬렉션을 재사용합니다.")

	assert.True(t, l.Ready())
	status := l.Status()
	assert.Equal(t, model.LoadingStateReady, status.State)
	assert.Equal(t, 1.0, status.Progress)
	assert.NotNil(t, status.ReadyAt)
}
