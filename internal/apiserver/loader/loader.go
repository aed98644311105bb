// Package loader drives background loading of the KorQuAD dataset so the
// server can come up immediately and report readiness separately.
package loader

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/kart-io/logger"

	"github.com/hanq-io/hanq/internal/model"
)

// Start outcomes that are not failures; callers translate them into
// already-done responses instead of errors.
var (
	ErrAlreadyLoading = errors.New("dataset loading already in progress")
	ErrAlreadyReady   = errors.New("dataset already loaded")
)

// IndexFunc runs one indexing pass over a dataset file. onProgress, when
// non-nil, is called after each indexed batch with the running chunk count.
type IndexFunc func(ctx context.Context, path string, recreate bool, onProgress func(indexed, total int)) (*model.IndexStats, error)

// Loader runs dataset indexing in the background and tracks its state.
// Queries are rejected with a service-unavailable error until the loader
// reaches the ready state.
type Loader struct {
	indexFn IndexFunc
	path    string

	mu        sync.RWMutex
	state     string
	progress  float64
	message   string
	lastErr   string
	startedAt *time.Time
	readyAt   *time.Time
	stats     *model.IndexStats
}

// New creates a loader for the given dataset path.
func New(indexFn IndexFunc, path string) *Loader {
	return &Loader{
		indexFn: indexFn,
		path:    path,
		state:   model.LoadingStateIdle,
	}
}

// Status returns a snapshot of the current loading state.
func (l *Loader) Status() model.LoadingStatus {
	l.mu.RLock()
	defer l.mu.RUnlock()

	return model.LoadingStatus{
		State:     l.state,
		Progress:  l.progress,
		Message:   l.message,
		Error:     l.lastErr,
		StartedAt: l.startedAt,
		ReadyAt:   l.readyAt,
	}
}

// Ready reports whether the dataset finished loading.
func (l *Loader) Ready() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state == model.LoadingStateReady
}

// Stats returns the result of the last successful indexing run, or nil.
func (l *Loader) Stats() *model.IndexStats {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.stats
}

// MarkReady transitions straight to ready without indexing. Used when the
// collection is already populated from a previous run.
func (l *Loader) MarkReady(message string) {
	now := time.Now()
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = model.LoadingStateReady
	l.progress = 1
	l.message = message
	l.lastErr = ""
	l.readyAt = &now
}

// Start launches a background indexing run. A Start while one is in flight
// returns ErrAlreadyLoading, and a Start on a ready loader without recreate
// is a no-op returning ErrAlreadyReady so repeated initialize calls cannot
// duplicate the indexed chunks.
func (l *Loader) Start(ctx context.Context, recreate bool) error {
	l.mu.Lock()
	if l.state == model.LoadingStateLoading {
		l.mu.Unlock()
		return ErrAlreadyLoading
	}
	if l.state == model.LoadingStateReady && !recreate {
		l.mu.Unlock()
		return ErrAlreadyReady
	}
	now := time.Now()
	l.state = model.LoadingStateLoading
	l.progress = 0
	l.message = "데이터셋 로딩 중입니다."
	l.lastErr = ""
	l.startedAt = &now
	l.readyAt = nil
	l.mu.Unlock()

	go l.run(ctx, recreate)
	return nil
}

// run executes the indexing pass and records the outcome. It recovers from
// panics so a loader crash degrades to the failed state instead of taking
// the process down.
func (l *Loader) run(ctx context.Context, recreate bool) {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorw("dataset loader panicked", "error", fmt.Sprintf("%v", r))
			l.fail(fmt.Sprintf("loader panic: %v", r))
		}
	}()

	logger.Infow("dataset loading started", "path", l.path, "recreate", recreate)
	l.setProgress(0.1)

	// Reserve the head of the progress range for parsing and chunking and
	// the tail for the ready transition.
	stats, err := l.indexFn(ctx, l.path, recreate, func(indexed, total int) {
		if total <= 0 {
			return
		}
		l.setProgress(0.1 + 0.85*float64(indexed)/float64(total))
	})
	if err != nil {
		logger.Warnw("dataset loading failed", "error", err.Error(), "path", l.path)
		l.fail(err.Error())
		return
	}

	now := time.Now()
	l.mu.Lock()
	l.state = model.LoadingStateReady
	l.progress = 1
	l.message = fmt.Sprintf("문서 %d개, 청크 %d개 로딩 완료", stats.Documents, stats.Indexed)
	l.readyAt = &now
	l.stats = stats
	l.mu.Unlock()

	logger.Infow("dataset loading completed",
		"documents", stats.Documents,
		"chunks", stats.Indexed,
		"elapsed_ms", stats.ElapsedMS,
	)
}

func (l *Loader) setProgress(p float64) {
	if p > 1 {
		p = 1
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == model.LoadingStateLoading {
		l.progress = p
	}
}

func (l *Loader) fail(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = model.LoadingStateFailed
	l.message = "데이터셋 로딩에 실패했습니다."
	l.lastErr = msg
}
