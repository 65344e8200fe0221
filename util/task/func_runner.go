package task

import "time"

type funcRunner struct {
	run func() error
}

func (r funcRunner) Run() error {
	return r.run()
}

func NewTimerTaskFromFunc(delay time.Duration, runner func() error) *TimerTask {
	return NewTimerTask(delay, funcRunner{run: runner})
}
