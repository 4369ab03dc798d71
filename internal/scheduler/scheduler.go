// Package scheduler provides a single-goroutine timer wheel for reminder
// and retry tasks. Tasks are keyed by hierarchical path so a later schedule
// for the same path replaces the earlier one, and an entire instance's tasks
// can be cancelled by prefix
package scheduler

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/docketry/docket/pkg/log"
)

type (
	// Scheduler runs delayed tasks and supports replacement and prefix cancel
	Scheduler struct {
		now       Clock
		makeTimer TimerConstructor
		tasks     chan taskReq
	}

	// TaskFunc is called when its run time arrives
	TaskFunc func() error

	taskReqOp uint8

	taskReq struct {
		op     taskReqOp
		task   *Task
		key    taskPath
		prefix taskPath
	}
)

const (
	taskReqSchedule taskReqOp = iota
	taskReqCancel
	taskReqCancelPrefix
)

// taskBacklog bounds requests waiting for the scheduler goroutine. Callers
// block once it fills rather than dropping work
const taskBacklog = 100

// New creates a scheduler using the provided clock and timer constructor
func New(now Clock, makeTimer TimerConstructor) *Scheduler {
	return &Scheduler{
		now:       now,
		makeTimer: makeTimer,
		tasks:     make(chan taskReq, taskBacklog),
	}
}

// Schedule enqueues a task to run at the requested time
func (s *Scheduler) Schedule(
	ctx context.Context, path []string, at time.Time, fn TaskFunc,
) {
	s.scheduleTaskReq(ctx, taskReq{
		op:   taskReqSchedule,
		task: &Task{Func: fn, At: at, Path: path},
	})
}

// Cancel removes the task registered for the exact path
func (s *Scheduler) Cancel(ctx context.Context, path []string) {
	s.scheduleTaskReq(ctx, taskReq{op: taskReqCancel, key: path})
}

// CancelPrefix removes all tasks under the provided path prefix
func (s *Scheduler) CancelPrefix(ctx context.Context, prefix []string) {
	s.scheduleTaskReq(ctx, taskReq{
		op: taskReqCancelPrefix, prefix: prefix,
	})
}

// Run processes scheduler requests until the context is cancelled. The timer
// is always armed for the earliest pending task, and parked when none remain
func (s *Scheduler) Run(ctx context.Context) {
	timer := s.makeTimer(0)
	var timerCh <-chan time.Time
	tasks := NewTaskHeap()

	rearm := func() {
		var next time.Time
		if t := tasks.Peek(); t != nil {
			next = t.At
		}
		if next.IsZero() {
			timer.Stop()
			timerCh = nil
			return
		}
		timer.Reset(next.Sub(s.now()))
		timerCh = timer.Channel()
	}

	rearm()

	for {
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case req := <-s.tasks:
			switch req.op {
			case taskReqSchedule:
				tasks.Insert(req.task)
			case taskReqCancel:
				tasks.Cancel(req.key)
			case taskReqCancelPrefix:
				tasks.CancelPrefix(req.prefix)
			}
			rearm()
		case <-timerCh:
			task := tasks.PopTask()
			if task == nil {
				rearm()
				continue
			}
			if err := task.Func(); err != nil {
				slog.Error("Scheduled task failed",
					slog.String("task", strings.Join(task.Path, "/")),
					log.Error(err))
			}
			rearm()
		}
	}
}

func (s *Scheduler) scheduleTaskReq(ctx context.Context, req taskReq) {
	select {
	case s.tasks <- req:
	case <-ctx.Done():
	}
}
