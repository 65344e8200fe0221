package task

import (
	"time"
)

type Runner interface {
	Run() error
}

// TimerTask runs its runner exactly once after a fixed delay. A scheduled
// task can be cancelled until it fires; once fired or cancelled it is
// terminal and cannot be restarted.
type TimerTask struct {
	delay  time.Duration
	runner Runner
	timer  *time.Timer
	done   chan struct{}
}

func NewTimerTask(delay time.Duration, runner Runner) *TimerTask {
	return &TimerTask{
		delay:  delay,
		runner: runner,
		done:   make(chan struct{}),
	}
}

// Start schedules the task. Calling Start on an already scheduled task has no
// effect.
func (t *TimerTask) Start() {
	if t.timer != nil {
		return
	}

	t.timer = time.AfterFunc(t.delay, func() {
		t.runner.Run()
		close(t.done)
	})
}

// Cancel stops a scheduled task and reports whether the cancellation
// prevented the run. Cancelling a task that already ran returns false.
func (t *TimerTask) Cancel() bool {
	if t.timer == nil {
		return false
	}

	stopped := t.timer.Stop()
	if stopped {
		close(t.done)
	}
	return stopped
}

// Done exports readonly done channel, closed once the task has either run or
// been cancelled.
func (t *TimerTask) Done() <-chan struct{} {
	return t.done
}
