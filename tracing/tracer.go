// Package tracing records how long every year and every stage of a run
// takes.
package tracing

import (
	"sync"
	"time"

	"github.com/rs/xid"

	"github.com/sarchlab/cohortsim/cycle"
	"github.com/sarchlab/cohortsim/datarecording"
)

// TraceTable is the table the tracer writes into.
const TraceTable = "trace"

// Task kinds.
const (
	KindYear  = "year"
	KindStage = "stage"
)

// Task is a traced span. Times are seconds since the tracer was created.
type Task struct {
	ID        string
	ParentID  string
	Kind      string
	What      string
	Year      int
	StartTime float64
	EndTime   float64
}

// DBTracer is a hook that stores tasks through a DataRecorder.
type DBTracer struct {
	mu      sync.Mutex
	backend datarecording.DataRecorder
	origin  time.Time
	now     func() time.Time

	year  Task
	stage Task
	total map[string]time.Duration
	err   error
}

// NewDBTracer creates the trace table in the recorder.
func NewDBTracer(recorder datarecording.DataRecorder) (*DBTracer, error) {
	if err := recorder.CreateTable(TraceTable, Task{}); err != nil {
		return nil, err
	}

	t := &DBTracer{
		backend: recorder,
		now:     time.Now,
		total:   make(map[string]time.Duration),
	}
	t.origin = t.now()

	return t, nil
}

func (t *DBTracer) elapsed() float64 {
	return t.now().Sub(t.origin).Seconds()
}

// Func starts and ends tasks at the hook sites of the controller.
func (t *DBTracer) Func(ctx cycle.HookCtx) {
	t.mu.Lock()
	defer t.mu.Unlock()

	switch ctx.Pos {
	case cycle.HookPosBeforeYear:
		now := t.elapsed()
		t.year = Task{
			ID:        xid.New().String(),
			Kind:      KindYear,
			What:      KindYear,
			Year:      ctx.Year,
			StartTime: now,
		}
		t.stage = t.newStage(ctx.Year, now)
	case cycle.HookPosAfterStage:
		stage, ok := ctx.Detail.(cycle.Stage)
		if !ok {
			return
		}

		now := t.elapsed()
		t.stage.What = string(stage)
		t.endTask(t.stage, now)
		t.stage = t.newStage(ctx.Year, now)
	case cycle.HookPosAfterYear:
		t.endTask(t.year, t.elapsed())
	}
}

func (t *DBTracer) newStage(year int, start float64) Task {
	return Task{
		ID:        xid.New().String(),
		ParentID:  t.year.ID,
		Kind:      KindStage,
		Year:      year,
		StartTime: start,
	}
}

func (t *DBTracer) endTask(task Task, end float64) {
	task.EndTime = end
	t.total[task.What] += time.Duration((task.EndTime - task.StartTime) * float64(time.Second))

	if err := t.backend.InsertData(TraceTable, task); err != nil && t.err == nil {
		t.err = err
	}
}

// TotalTime returns the time spent on a stage, or on whole years when what is
// KindYear, across the run.
func (t *DBTracer) TotalTime(what string) time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.total[what]
}

// Err returns the first error met while recording.
func (t *DBTracer) Err() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.err
}
