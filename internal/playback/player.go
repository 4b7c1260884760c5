// Package playback keeps the annotated videos in step with their external
// players: it creates one player per video, tracks playback position while a
// video plays, and ensures at most one video plays at a time.
package playback

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrNotReady is returned by players asked to act before they are connected.
var ErrNotReady = errors.New("player not ready")

// State is a player's playback state.
type State int

const (
	StateUnstarted State = iota
	StatePlaying
	StatePaused
	StateEnded
	StateBuffering
)

func (s State) String() string {
	switch s {
	case StatePlaying:
		return "PLAYING"
	case StatePaused:
		return "PAUSED"
	case StateEnded:
		return "ENDED"
	case StateBuffering:
		return "BUFFERING"
	default:
		return "UNSTARTED"
	}
}

// Controls drives one player instance. Getters return the last known value
// and never block.
type Controls interface {
	Play() error
	Pause() error
	SeekTo(seconds int, allowSeekAhead bool) error
	CurrentTime() float64
	Duration() float64
	Title() string
	State() State
	Destroy() error
}

// Events are the callbacks a player fires. They may run on any goroutine.
type Events struct {
	Ready       func()
	StateChange func(State)
}

// Factory creates players. Create must return promptly; the player signals
// Events.Ready once it can be driven.
type Factory interface {
	Create(ctx context.Context, name, sourceRef string, events Events) (Controls, error)
}

// Loop runs work on the single event loop that owns all engine state.
type Loop interface {
	// Post schedules fn on the loop. It is safe to call from any goroutine.
	Post(fn func())
	// Every runs fn on the loop every d until stop is called.
	Every(d time.Duration, fn func()) (stop func())
}

// Handle is the per-video player slot: NotReady or Ready.
type Handle interface {
	isHandle()
}

// NotReady is a player that exists but has not signalled readiness.
type NotReady struct {
	instance Controls
}

// Ready is a player that can be driven.
type Ready struct {
	Controls
}

func (NotReady) isHandle() {}
func (Ready) isHandle()    {}

// Readiness is a one-shot signal that players may be created.
type Readiness struct {
	once sync.Once
	ch   chan struct{}
}

// NewReadiness returns an unfired Readiness.
func NewReadiness() *Readiness {
	return &Readiness{ch: make(chan struct{})}
}

// Fire marks the readiness. Later calls do nothing.
func (r *Readiness) Fire() {
	r.once.Do(func() { close(r.ch) })
}

// Done is closed once Fire has been called.
func (r *Readiness) Done() <-chan struct{} {
	return r.ch
}

// PlayerName is the name of the player instance for a video.
func PlayerName(videoID int) string {
	return fmt.Sprintf("player-preview-%d", videoID)
}
