package history

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/nerrad567/gray-logic-dimmer/internal/fade"
)

const (
	defaultQueueSize = 32

	// writeTimeout bounds a single journal insert.
	writeTimeout = 2 * time.Second

	// drainTimeout bounds flushing queued changes on shutdown.
	drainTimeout = 3 * time.Second
)

// Logger defines the logging interface for the recorder.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}

// RecorderConfig controls queueing and retention.
type RecorderConfig struct {
	ClientID string

	// QueueSize is the number of changes buffered ahead of the writer.
	QueueSize int

	// Retention is how long entries are kept. Zero disables pruning.
	Retention time.Duration

	// PruneInterval is how often old entries are pruned.
	PruneInterval time.Duration
}

// Recorder is a fade.Listener that journals every change.
//
// LightChanged never blocks: when the writer falls behind, changes are
// dropped and counted.
type Recorder struct {
	repo    Repository
	cfg     RecorderConfig
	queue   chan fade.Change
	logger  Logger
	written atomic.Uint64
	dropped atomic.Uint64
}

// NewRecorder creates a recorder writing to repo.
func NewRecorder(repo Repository, cfg RecorderConfig) *Recorder {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaultQueueSize
	}
	return &Recorder{
		repo:   repo,
		cfg:    cfg,
		queue:  make(chan fade.Change, cfg.QueueSize),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the recorder.
func (r *Recorder) SetLogger(logger Logger) {
	r.logger = logger
}

// LightChanged implements fade.Listener.
func (r *Recorder) LightChanged(change fade.Change) {
	select {
	case r.queue <- change:
	default:
		r.dropped.Add(1)
		r.logger.Warn("history queue full, dropping change",
			"target", change.Target,
			"cause", string(change.Cause),
		)
	}
}

// Run writes queued changes until ctx is cancelled, then flushes what is
// left. Old entries are pruned on cfg.PruneInterval when retention is set.
func (r *Recorder) Run(ctx context.Context) {
	var prune <-chan time.Time
	if r.cfg.Retention > 0 && r.cfg.PruneInterval > 0 {
		ticker := time.NewTicker(r.cfg.PruneInterval)
		defer ticker.Stop()
		prune = ticker.C
		r.prune(ctx)
	}

	for {
		select {
		case <-ctx.Done():
			r.drain(context.WithoutCancel(ctx))
			return
		case change := <-r.queue:
			r.write(ctx, change)
		case <-prune:
			r.prune(ctx)
		}
	}
}

func (r *Recorder) drain(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, drainTimeout)
	defer cancel()

	for {
		select {
		case change := <-r.queue:
			r.write(ctx, change)
		default:
			return
		}
	}
}

func (r *Recorder) write(ctx context.Context, change fade.Change) {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()

	if err := r.repo.RecordChange(ctx, r.cfg.ClientID, change); err != nil {
		r.logger.Warn("recording light change failed", "error", err)
		return
	}
	r.written.Add(1)
}

func (r *Recorder) prune(ctx context.Context) {
	n, err := r.repo.Prune(ctx, r.cfg.Retention)
	if err != nil {
		r.logger.Warn("pruning light history failed", "error", err)
		return
	}
	if n > 0 {
		r.logger.Info("pruned light history", "deleted", n)
	}
}

// Written returns the number of changes persisted.
func (r *Recorder) Written() uint64 {
	return r.written.Load()
}

// Dropped returns the number of changes discarded on a full queue.
func (r *Recorder) Dropped() uint64 {
	return r.dropped.Load()
}
