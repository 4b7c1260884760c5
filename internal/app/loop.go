package app

import (
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

const loopBuffer = 256

// Loop queues work for the bubbletea Update loop. Player callbacks and
// poll ticks arrive on other goroutines and run in Update as RunMsg.
type Loop struct {
	work chan func()
}

// NewLoop returns an empty Loop.
func NewLoop() *Loop {
	return &Loop{work: make(chan func(), loopBuffer)}
}

// Post queues fn. It never blocks the caller.
func (l *Loop) Post(fn func()) {
	select {
	case l.work <- fn:
	default:
		go func() { l.work <- fn }()
	}
}

// Every queues fn every d until stop is called. A tick already queued when
// stop is called does not run.
func (l *Loop) Every(d time.Duration, fn func()) (stop func()) {
	var stopped atomic.Bool
	done := make(chan struct{})
	var once sync.Once

	go func() {
		t := time.NewTicker(d)
		defer t.Stop()
		for {
			select {
			case <-t.C:
				l.Post(func() {
					if !stopped.Load() {
						fn()
					}
				})
			case <-done:
				return
			}
		}
	}()

	return func() {
		once.Do(func() {
			stopped.Store(true)
			close(done)
		})
	}
}

// Wait returns a command that delivers the next queued work as a RunMsg.
func (l *Loop) Wait() tea.Cmd {
	return func() tea.Msg {
		return RunMsg{Fn: <-l.work}
	}
}
