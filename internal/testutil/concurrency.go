package testutil

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/vk/taskgrid/internal/registry"
)

// SleeperName is the executor registered by SleeperModule.
const SleeperName = "sleeper"

// SleeperModule is a shared, self-contained module for concurrency tests.
// Its executor sleeps for the "sleep_ms" option, fails when "fail" is true
// and records when each task ran.
type SleeperModule struct {
	DefaultSleep time.Duration

	mu      sync.Mutex
	records map[string]*ExecutionRecord
	running int
	peak    int
}

// NewSleeperModule creates a new sleeper module for testing.
func NewSleeperModule(sleep time.Duration) *SleeperModule {
	return &SleeperModule{DefaultSleep: sleep, records: make(map[string]*ExecutionRecord)}
}

// Register registers the sleeper executor.
func (m *SleeperModule) Register(r *registry.Registry) {
	r.Register(SleeperName, registry.ExecutorFunc(m.run))
}

func (m *SleeperModule) run(ctx context.Context, options map[string]any, ec *registry.Context) <-chan registry.Output {
	ch := make(chan registry.Output, 1)
	go func() {
		defer close(ch)

		sleep := m.DefaultSleep
		if ms, ok := options["sleep_ms"].(int); ok {
			sleep = time.Duration(ms) * time.Millisecond
		}

		m.mu.Lock()
		m.running++
		m.peak = max(m.peak, m.running)
		rec := &ExecutionRecord{Start: time.Now()}
		m.records[ec.TaskID] = rec
		m.mu.Unlock()

		var err error
		select {
		case <-time.After(sleep):
		case <-ctx.Done():
			err = ctx.Err()
		}

		m.mu.Lock()
		m.running--
		rec.End = time.Now()
		m.mu.Unlock()

		if err == nil && options["fail"] == true {
			err = errors.New("sleeper asked to fail")
		}
		ch <- registry.Output{Success: err == nil, Err: err}
	}()
	return ch
}

// Record returns the execution record of a task, if it ran.
func (m *SleeperModule) Record(taskID string) (ExecutionRecord, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[taskID]
	if !ok {
		return ExecutionRecord{}, false
	}
	return *rec, true
}

// Peak returns the highest number of tasks observed running at once.
func (m *SleeperModule) Peak() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.peak
}
