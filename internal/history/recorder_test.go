package history

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-dimmer/internal/fade"
)

// memoryRepository records changes in a slice.
type memoryRepository struct {
	mu       sync.Mutex
	changes  []fade.Change
	err      error
	prunes   int
	latest   *Entry
	latestFn func() error
}

func (m *memoryRepository) RecordChange(_ context.Context, _ string, change fade.Change) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.changes = append(m.changes, change)
	return nil
}

func (m *memoryRepository) Latest(context.Context, string) (Entry, error) {
	if m.latestFn != nil {
		if err := m.latestFn(); err != nil {
			return Entry{}, err
		}
	}
	if m.latest == nil {
		return Entry{}, ErrNotFound
	}
	return *m.latest, nil
}

func (m *memoryRepository) GetHistory(context.Context, string, int) ([]Entry, error) {
	return nil, nil
}

func (m *memoryRepository) Prune(context.Context, time.Duration) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.prunes++
	return 0, nil
}

func (m *memoryRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.changes)
}

func (m *memoryRepository) pruneCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.prunes
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met within 2s")
}

func TestRecorder_WritesChanges(t *testing.T) {
	repo := &memoryRepository{}
	rec := NewRecorder(repo, RecorderConfig{ClientID: "dev-1"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Run(ctx)
		close(done)
	}()

	for _, level := range []int{10, 20, 30} {
		rec.LightChanged(fade.Change{Target: level})
	}

	waitFor(t, func() bool { return repo.count() == 3 })
	cancel()
	<-done

	if rec.Written() != 3 {
		t.Errorf("Written() = %d, want 3", rec.Written())
	}
	if rec.Dropped() != 0 {
		t.Errorf("Dropped() = %d, want 0", rec.Dropped())
	}
}

func TestRecorder_DropsWhenQueueFull(t *testing.T) {
	repo := &memoryRepository{}
	rec := NewRecorder(repo, RecorderConfig{ClientID: "dev-1", QueueSize: 2})

	// No writer running: the third change has nowhere to go.
	for i := 0; i < 3; i++ {
		rec.LightChanged(fade.Change{Target: i})
	}

	if rec.Dropped() != 1 {
		t.Errorf("Dropped() = %d, want 1", rec.Dropped())
	}
}

func TestRecorder_DrainsOnShutdown(t *testing.T) {
	repo := &memoryRepository{}
	rec := NewRecorder(repo, RecorderConfig{ClientID: "dev-1", QueueSize: 4})

	rec.LightChanged(fade.Change{Target: 1})
	rec.LightChanged(fade.Change{Target: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Run(ctx)

	if got := repo.count(); got != 2 {
		t.Errorf("changes written on shutdown = %d, want 2", got)
	}
}

func TestRecorder_WriteErrorNotCounted(t *testing.T) {
	repo := &memoryRepository{err: errors.New("disk full")}
	rec := NewRecorder(repo, RecorderConfig{ClientID: "dev-1"})

	rec.LightChanged(fade.Change{Target: 1})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rec.Run(ctx)

	if rec.Written() != 0 {
		t.Errorf("Written() = %d, want 0", rec.Written())
	}
}

func TestRecorder_Prunes(t *testing.T) {
	repo := &memoryRepository{}
	rec := NewRecorder(repo, RecorderConfig{
		ClientID:      "dev-1",
		Retention:     time.Hour,
		PruneInterval: 10 * time.Millisecond,
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		rec.Run(ctx)
		close(done)
	}()

	waitFor(t, func() bool { return repo.pruneCount() >= 2 })
	cancel()
	<-done
}

// fakeRestorer records the replayed state.
type fakeRestorer struct {
	state  fade.LightState
	level  int
	called bool
	err    error
}

func (f *fakeRestorer) Restore(state fade.LightState, level int) error {
	f.called = true
	f.state = state
	f.level = level
	return f.err
}

func TestRestoreLatest(t *testing.T) {
	tests := []struct {
		name       string
		repo       *memoryRepository
		restoreErr error
		want       bool
		wantErr    bool
	}{
		{
			name: "nothing journalled",
			repo: &memoryRepository{},
			want: false,
		},
		{
			name: "replays newest entry",
			repo: &memoryRepository{latest: &Entry{State: fade.On, Level: 512}},
			want: true,
		},
		{
			name:    "repository error",
			repo:    &memoryRepository{latestFn: func() error { return errors.New("locked") }},
			wantErr: true,
		},
		{
			name:       "restore error",
			repo:       &memoryRepository{latest: &Entry{State: fade.Off, Level: 0}},
			restoreErr: errors.New("output unavailable"),
			wantErr:    true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			light := &fakeRestorer{err: tt.restoreErr}
			got, err := RestoreLatest(context.Background(), tt.repo, "dev-1", light)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RestoreLatest() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("RestoreLatest() = %v, want %v", got, tt.want)
			}
			if tt.want && (light.state != fade.On || light.level != 512) {
				t.Errorf("restored %v/%d, want On/512", light.state, light.level)
			}
		})
	}
}
