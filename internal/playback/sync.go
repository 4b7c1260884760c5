package playback

import (
	"context"
	"math"
	"time"

	"github.com/jwulff/tubemarker/internal/annotation"
	"github.com/jwulff/tubemarker/internal/logger"
)

// PollInterval is how often the position of a playing video is sampled.
const PollInterval = 500 * time.Millisecond

// Library is the video list the players report into.
type Library interface {
	Videos() []*annotation.Video
	Video(id int) (*annotation.Video, bool)
	ApplyPlayerInfo(videoID, duration int, title string) bool
}

// Sync owns the players of one session. Every method must be called on the
// loop.
type Sync struct {
	loop    Loop
	factory Factory
	lib     Library

	players map[int]Handle
	pollers map[int]func()

	ctx    context.Context
	cancel context.CancelFunc
}

// New creates a Sync with no players.
func New(loop Loop, factory Factory, lib Library) *Sync {
	ctx, cancel := context.WithCancel(context.Background())
	return &Sync{
		loop:    loop,
		factory: factory,
		lib:     lib,
		players: map[int]Handle{},
		pollers: map[int]func(){},
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Subscribe creates every player once r fires. It may be called from any
// goroutine but should be called once per session.
func (s *Sync) Subscribe(r *Readiness) {
	go func() {
		select {
		case <-r.Done():
			s.loop.Post(s.InitAll)
		case <-s.ctx.Done():
		}
	}()
}

// InitAll creates a player for every video that has none.
func (s *Sync) InitAll() {
	for _, v := range s.lib.Videos() {
		s.Attach(v.ID)
	}
}

// Attach creates the player for a video unless it already has one.
func (s *Sync) Attach(videoID int) {
	if s.ctx.Err() != nil {
		return
	}
	if _, ok := s.Handle(videoID); ok {
		return
	}
	v, ok := s.lib.Video(videoID)
	if !ok {
		logger.Warnf("[PlaybackSync] no video %d, skipping player", videoID)
		return
	}

	name := PlayerName(videoID)
	logger.Infof("[PlaybackSync] creating %s for %s", name, v.SourceRef)

	instance, err := s.factory.Create(s.ctx, name, v.SourceRef, Events{
		Ready: func() {
			s.loop.Post(func() { s.onReady(videoID) })
		},
		StateChange: func(st State) {
			s.loop.Post(func() { s.onStateChange(videoID, st) })
		},
	})
	if err != nil {
		logger.Errorf("[PlaybackSync] create %s: %v", name, err)
		return
	}
	s.players[videoID] = NotReady{instance: instance}
}

// Handle returns the player slot of a video.
func (s *Sync) Handle(videoID int) (Handle, bool) {
	h, ok := s.players[videoID]
	return h, ok
}

// ready returns the controls of a video whose player is ready.
func (s *Sync) ready(videoID int) (Controls, bool) {
	h, _ := s.Handle(videoID)
	switch h := h.(type) {
	case Ready:
		return h.Controls, true
	default:
		return nil, false
	}
}

func (s *Sync) onReady(videoID int) {
	h, _ := s.Handle(videoID)
	nr, ok := h.(NotReady)
	if !ok {
		return
	}
	s.players[videoID] = Ready{Controls: nr.instance}

	duration := int(math.Floor(nr.instance.Duration()))
	title := nr.instance.Title()
	logger.Infof("[PlaybackSync] player ready: video %d, %q, %ds", videoID, title, duration)

	s.lib.ApplyPlayerInfo(videoID, duration, title)
}

func (s *Sync) onStateChange(videoID int, st State) {
	v, ok := s.lib.Video(videoID)
	if !ok {
		return
	}

	switch st {
	case StatePlaying:
		v.IsPlaying = true
		s.startPolling(videoID)
	case StatePaused, StateEnded, StateBuffering:
		v.IsPlaying = false
		s.stopPolling(videoID)
		if st == StateEnded {
			v.CurrentTime = 0
		}
	}
}

func (s *Sync) startPolling(videoID int) {
	if _, ok := s.pollers[videoID]; ok {
		return
	}
	s.pollers[videoID] = s.loop.Every(PollInterval, func() { s.updateTime(videoID) })
}

func (s *Sync) stopPolling(videoID int) {
	if stop, ok := s.pollers[videoID]; ok {
		stop()
		delete(s.pollers, videoID)
	}
}

// Polling reports whether a video's position is being sampled.
func (s *Sync) Polling(videoID int) bool {
	_, ok := s.pollers[videoID]
	return ok
}

func (s *Sync) updateTime(videoID int) {
	c, ok := s.ready(videoID)
	if !ok {
		return
	}
	if v, ok := s.lib.Video(videoID); ok {
		v.CurrentTime = int(math.Floor(c.CurrentTime()))
	}
}

// Seek moves a video to t and, when resume is set, starts it if it is not
// already playing.
func (s *Sync) Seek(videoID, t int, resume bool) {
	c, ok := s.ready(videoID)
	v, found := s.lib.Video(videoID)
	if !ok || !found {
		logger.Warnf("[PlaybackSync] seek: player for video %d is not ready", videoID)
		return
	}

	if err := c.SeekTo(t, true); err != nil {
		logger.Warnf("[PlaybackSync] seek video %d: %v", videoID, err)
		return
	}
	v.CurrentTime = t

	if resume && c.State() != StatePlaying {
		s.TogglePlay(videoID)
	}
}

// Preview moves a video to t without resuming playback. Used while dragging.
func (s *Sync) Preview(videoID, t int) {
	v, ok := s.lib.Video(videoID)
	if !ok {
		return
	}
	v.CurrentTime = t

	c, ok := s.ready(videoID)
	if !ok {
		return
	}
	if err := c.SeekTo(t, false); err != nil {
		logger.Debugf("[PlaybackSync] preview video %d: %v", videoID, err)
	}
}

// TogglePlay pauses a playing video, otherwise pauses every other playing
// video and starts this one.
func (s *Sync) TogglePlay(videoID int) {
	c, ok := s.ready(videoID)
	if !ok {
		logger.Warnf("[PlaybackSync] toggle: player for video %d is not ready", videoID)
		return
	}

	if c.State() == StatePlaying {
		if err := c.Pause(); err != nil {
			logger.Warnf("[PlaybackSync] pause video %d: %v", videoID, err)
		}
		return
	}

	s.PauseOthers(videoID)
	if err := c.Play(); err != nil {
		logger.Warnf("[PlaybackSync] play video %d: %v", videoID, err)
	}
}

// Pause pauses a video's player if it is ready.
func (s *Sync) Pause(videoID int) {
	c, ok := s.ready(videoID)
	if !ok {
		return
	}
	if err := c.Pause(); err != nil {
		logger.Warnf("[PlaybackSync] pause video %d: %v", videoID, err)
	}
}

// PauseOthers pauses every video other than videoID that is marked playing.
func (s *Sync) PauseOthers(videoID int) {
	for _, v := range s.lib.Videos() {
		if v.ID != videoID && v.IsPlaying {
			s.Pause(v.ID)
		}
	}
}

// Dispose stops all polling and destroys every player. The Sync cannot be
// used afterwards.
func (s *Sync) Dispose() {
	s.cancel()

	for id, stop := range s.pollers {
		stop()
		delete(s.pollers, id)
	}

	for id, h := range s.players {
		var c Controls
		switch h := h.(type) {
		case Ready:
			c = h.Controls
		case NotReady:
			c = h.instance
		}
		if c != nil {
			if err := c.Destroy(); err != nil {
				logger.Warnf("[PlaybackSync] destroy %s: %v", PlayerName(id), err)
			}
		}
		delete(s.players, id)
	}
}
