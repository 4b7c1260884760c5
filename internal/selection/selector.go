// Package selection turns pointer gestures on a video's timeline into either
// a seek or a new marker.
package selection

import (
	"fmt"
	"strings"

	"github.com/jwulff/tubemarker/internal/annotation"
	"github.com/jwulff/tubemarker/internal/logger"
	"github.com/jwulff/tubemarker/internal/markertype"
	"github.com/jwulff/tubemarker/internal/timeline"
)

// State is the gesture state.
type State int

const (
	Idle State = iota
	Selecting
)

func (s State) String() string {
	if s == Selecting {
		return "selecting"
	}
	return "idle"
}

// Range is the current time selection in whole seconds.
type Range struct {
	Start    int
	End      int
	Duration int
}

// Request describes a marker waiting for its label.
type Request struct {
	VideoID     int
	Start       int
	End         int
	Type        string
	DisplayName string
	Default     string
}

// Prompter asks the user for a marker label. answer must be called exactly
// once, on the event loop, with ok false when the user cancelled.
type Prompter interface {
	Prompt(req Request, answer func(text string, ok bool))
}

// Library is the video list markers are added to.
type Library interface {
	Video(id int) (*annotation.Video, bool)
	AddMarker(videoID, start, end int, typ, label string) bool
}

// Player moves playback in response to gestures.
type Player interface {
	Seek(videoID, t int, resume bool)
	Preview(videoID, t int)
	Pause(videoID int)
}

// Selector tracks one timeline gesture at a time for the current video.
type Selector struct {
	lib      Library
	player   Player
	registry *markertype.Registry
	prompter Prompter

	videoID int
	state   State
	rng     Range
	pending bool
}

// New returns an idle Selector with no current video.
func New(lib Library, player Player, registry *markertype.Registry, prompter Prompter) *Selector {
	return &Selector{lib: lib, player: player, registry: registry, prompter: prompter}
}

// SetVideo makes videoID the video gestures apply to; 0 means none.
func (s *Selector) SetVideo(videoID int) {
	s.videoID = videoID
}

// State returns the gesture state.
func (s *Selector) State() State {
	return s.state
}

// Range returns the current selection.
func (s *Selector) Range() Range {
	return s.rng
}

// Pending reports whether a label prompt is open.
func (s *Selector) Pending() bool {
	return s.pending
}

func (s *Selector) current() (*annotation.Video, bool) {
	if s.videoID == 0 {
		return nil, false
	}
	return s.lib.Video(s.videoID)
}

// Start begins a gesture at ev.
func (s *Selector) Start(ev timeline.PointerEvent, bounds timeline.Bounds) {
	if s.pending || ev.OnMarker {
		return
	}
	if ev.Kind == timeline.PointerMouse && ev.Button != timeline.ButtonPrimary {
		return
	}
	v, ok := s.current()
	if !ok {
		return
	}

	t := timeline.ResolveTime(ev, bounds, v.Duration)
	s.state = Selecting
	s.rng = Range{Start: t, End: t}

	if v.IsPlaying {
		s.player.Pause(v.ID)
	}
}

// Move extends the selection to ev and previews that position.
func (s *Selector) Move(ev timeline.PointerEvent, bounds timeline.Bounds) {
	if s.state != Selecting {
		return
	}
	if ev.Kind == timeline.PointerMouse && ev.Buttons == 0 {
		return
	}
	v, ok := s.current()
	if !ok {
		return
	}

	t := timeline.ResolveTime(ev, bounds, v.Duration)
	s.rng.End = t
	s.rng.Duration = abs(s.rng.End - s.rng.Start)

	s.player.Preview(v.ID, t)
}

// End finishes the gesture. With an active type the selection is labeled,
// otherwise playback jumps to its start.
func (s *Selector) End() {
	if s.state != Selecting {
		return
	}
	defer func() { s.state = Idle }()

	v, ok := s.current()
	if !ok {
		s.Cancel()
		return
	}

	lo, hi := min(s.rng.Start, s.rng.End), max(s.rng.Start, s.rng.End)
	s.rng.Start, s.rng.End = lo, hi

	if s.rng.Duration < 1 {
		s.point(v.ID, lo)
		return
	}

	if typ, ok := s.registry.Active(); ok {
		s.promptForLabel(v.ID, lo, hi, typ)
		return
	}
	s.player.Seek(v.ID, lo, true)
	s.Cancel()
}

// Click handles a press and release with no drag at ev.
func (s *Selector) Click(ev timeline.PointerEvent, bounds timeline.Bounds) {
	if s.pending || s.state == Selecting || s.rng.Duration >= 1 {
		return
	}
	v, ok := s.current()
	if !ok {
		return
	}
	s.point(v.ID, timeline.ResolveTime(ev, bounds, v.Duration))
}

// point labels the second at t when a type is active, else seeks there.
func (s *Selector) point(videoID, t int) {
	if typ, ok := s.registry.Active(); ok {
		s.promptForLabel(videoID, t, t+1, typ)
		return
	}
	s.player.Seek(videoID, t, true)
	s.Cancel()
}

// Cancel clears the selection. The active type is kept.
func (s *Selector) Cancel() {
	s.state = Idle
	s.rng = Range{}
}

func (s *Selector) promptForLabel(videoID, start, end int, typ string) {
	s.registry.Resolve(typ)
	name := s.registry.DisplayName(typ)

	req := Request{
		VideoID:     videoID,
		Start:       start,
		End:         end,
		Type:        typ,
		DisplayName: name,
		Default:     fmt.Sprintf("%s at %s", name, timeline.FormatTime(start)),
	}

	s.pending = true
	s.prompter.Prompt(req, func(text string, ok bool) {
		s.pending = false
		label := strings.TrimSpace(text)

		switch {
		case !ok:
			logger.Infof("[RangeSelector] marker cancelled")
		case label == "":
			logger.Warnf("[RangeSelector] marker label cannot be empty, not adding")
		default:
			s.lib.AddMarker(req.VideoID, req.Start, req.End, req.Type, label)
		}

		s.Cancel()
		s.registry.ClearActive()
	})
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
