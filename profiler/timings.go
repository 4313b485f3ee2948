// Package profiler records per-stage durations of the icon pipeline.
package profiler

import (
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Timings collects operation durations. It is safe for concurrent use; a nil
// *Timings records nothing.
type Timings struct {
	mu             sync.Mutex
	operationTimes map[string]*TimeTracker
}

// TimeTracker tracks timing statistics for one operation.
type TimeTracker struct {
	name      string
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
}

// Stats is a point-in-time summary of a TimeTracker.
type Stats struct {
	Name  string        `json:"name"`
	Count int64         `json:"count"`
	Total time.Duration `json:"total"`
	Avg   time.Duration `json:"avg"`
	Min   time.Duration `json:"min"`
	Max   time.Duration `json:"max"`
}

// NewTimings creates an empty Timings.
func NewTimings() *Timings {
	return &Timings{operationTimes: make(map[string]*TimeTracker)}
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes
func (t *Timings) StartOperation(name string) func() {
	if t == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		t.Record(name, time.Since(start))
	}
}

// Record adds one completed operation.
func (t *Timings) Record(name string, duration time.Duration) {
	if t == nil {
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	tracker, exists := t.operationTimes[name]
	if !exists {
		tracker = &TimeTracker{
			name:    name,
			minTime: duration,
			maxTime: duration,
		}
		t.operationTimes[name] = tracker
	}

	tracker.totalTime += duration
	tracker.count++

	if duration < tracker.minTime {
		tracker.minTime = duration
	}
	if duration > tracker.maxTime {
		tracker.maxTime = duration
	}
}

// Snapshot returns the statistics of every operation sorted by name.
func (t *Timings) Snapshot() []Stats {
	if t == nil {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	stats := make([]Stats, 0, len(t.operationTimes))
	for name, tracker := range t.operationTimes {
		stats = append(stats, Stats{
			Name:  name,
			Count: tracker.count,
			Total: tracker.totalTime,
			Avg:   tracker.totalTime / time.Duration(tracker.count),
			Min:   tracker.minTime,
			Max:   tracker.maxTime,
		})
	}
	sort.Slice(stats, func(i, j int) bool { return stats[i].Name < stats[j].Name })
	return stats
}

// Log writes one debug line per operation.
func (t *Timings) Log(logger *zap.Logger) {
	for _, s := range t.Snapshot() {
		logger.Debug("operation timing",
			zap.String("operation", s.Name),
			zap.Int64("count", s.Count),
			zap.Duration("avg", s.Avg.Truncate(time.Microsecond)),
			zap.Duration("min", s.Min.Truncate(time.Microsecond)),
			zap.Duration("max", s.Max.Truncate(time.Microsecond)),
		)
	}
}
