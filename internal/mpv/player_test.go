package mpv

import (
	"context"
	"errors"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/jwulff/tubemarker/internal/playback"
)

type recorder struct {
	ready  int
	states []playback.State
}

func (r *recorder) events() playback.Events {
	return playback.Events{
		Ready:       func() { r.ready++ },
		StateChange: func(s playback.State) { r.states = append(r.states, s) },
	}
}

func prop(name, data string) Event {
	return Event{Event: EventPropertyChange, Name: name, Data: []byte(data)}
}

func TestPlayerReadyAfterLoadAndDuration(t *testing.T) {
	var rec recorder
	p := newPlayer("player-preview-1", rec.events())

	p.handle(prop(PropPause, "true"))
	p.handle(prop(PropMediaTitle, `"Vue 3 Core Concepts"`))
	if rec.ready != 0 {
		t.Fatalf("ready fired before file loaded")
	}

	p.handle(Event{Event: EventFileLoaded})
	if rec.ready != 0 {
		t.Fatalf("ready fired before duration known")
	}

	p.handle(prop(PropDuration, "212.4"))
	p.handle(prop(PropTimePos, "0.5"))

	if rec.ready != 1 {
		t.Errorf("ready = %d, want 1", rec.ready)
	}
	if got := p.Duration(); got != 212.4 {
		t.Errorf("Duration() = %v, want 212.4", got)
	}
	if got := p.Title(); got != "Vue 3 Core Concepts" {
		t.Errorf("Title() = %q, want %q", got, "Vue 3 Core Concepts")
	}
	if got := p.CurrentTime(); got != 0.5 {
		t.Errorf("CurrentTime() = %v, want 0.5", got)
	}
}

func TestPlayerStateTransitions(t *testing.T) {
	var rec recorder
	p := newPlayer("player-preview-1", rec.events())

	if got := p.State(); got != playback.StateUnstarted {
		t.Errorf("initial state = %s, want UNSTARTED", got)
	}

	p.handle(prop(PropPause, "true"))
	p.handle(Event{Event: EventFileLoaded})
	p.handle(prop(PropPause, "false"))
	p.handle(prop(PropTimePos, "1.0"))
	p.handle(prop(PropPausedForCache, "true"))
	p.handle(prop(PropPausedForCache, "false"))
	p.handle(prop(PropEOFReached, "true"))

	want := []playback.State{
		playback.StatePaused,
		playback.StatePlaying,
		playback.StateBuffering,
		playback.StatePlaying,
		playback.StateEnded,
	}
	if len(rec.states) != len(want) {
		t.Fatalf("states = %v, want %v", rec.states, want)
	}
	for i := range want {
		if rec.states[i] != want[i] {
			t.Errorf("states[%d] = %s, want %s", i, rec.states[i], want[i])
		}
	}
}

func TestPlayerReadyWithoutFileLoadedEvent(t *testing.T) {
	var rec recorder
	p := newPlayer("player-preview-1", rec.events())

	// the initial replay after observe_property, file already loaded
	p.handle(prop(PropPause, "true"))
	p.handle(prop(PropDuration, "95"))

	if rec.ready != 1 {
		t.Errorf("ready = %d, want 1", rec.ready)
	}
	if got := p.State(); got != playback.StatePaused {
		t.Errorf("State() = %s, want PAUSED", got)
	}
}

func TestAttachDetectsLoadedFile(t *testing.T) {
	m := startMockMpv(t, func(cmd Command) Response {
		if cmd.Command[0] == "get_property" && cmd.Command[1] == PropDuration {
			return Response{Error: "success", Data: []byte(`95.2`)}
		}
		return Response{Error: "success"}
	})
	c := connect(t, m.sock)

	var rec recorder
	p := newPlayer("player-preview-1", rec.events())
	if err := p.attach(context.Background(), c); err != nil {
		t.Fatalf("attach: %v", err)
	}

	if rec.ready != 1 {
		t.Errorf("ready = %d, want 1", rec.ready)
	}
	if got := p.Duration(); got != 95.2 {
		t.Errorf("Duration() = %v, want 95.2", got)
	}
}

func TestAttachBeforeLoadWaitsForEvents(t *testing.T) {
	m := startMockMpv(t, func(cmd Command) Response {
		if cmd.Command[0] == "get_property" {
			return Response{Error: "property unavailable"}
		}
		return Response{Error: "success"}
	})
	c := connect(t, m.sock)

	var rec recorder
	p := newPlayer("player-preview-1", rec.events())
	if err := p.attach(context.Background(), c); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if rec.ready != 0 {
		t.Errorf("ready = %d before the file loaded, want 0", rec.ready)
	}
}

func TestPlayerShutdownReportsPaused(t *testing.T) {
	var rec recorder
	p := newPlayer("player-preview-1", rec.events())

	p.handle(Event{Event: EventFileLoaded})
	p.handle(prop(PropPause, "false"))
	p.handle(Event{Event: EventShutdown})

	want := []playback.State{playback.StatePlaying, playback.StatePaused}
	if len(rec.states) != len(want) || rec.states[0] != want[0] || rec.states[1] != want[1] {
		t.Errorf("states = %v, want %v", rec.states, want)
	}
}

func TestPlayerIgnoresNullProperties(t *testing.T) {
	p := newPlayer("player-preview-1", playback.Events{})

	p.handle(prop(PropDuration, "90"))
	p.handle(prop(PropDuration, "null"))

	if got := p.Duration(); got != 90 {
		t.Errorf("Duration() = %v, want 90", got)
	}
}

func TestPlayerCommandsBeforeConnect(t *testing.T) {
	p := newPlayer("player-preview-1", playback.Events{})

	if err := p.Play(); !errors.Is(err, playback.ErrNotReady) {
		t.Errorf("Play() = %v, want ErrNotReady", err)
	}
	if err := p.SeekTo(5, true); !errors.Is(err, playback.ErrNotReady) {
		t.Errorf("SeekTo() = %v, want ErrNotReady", err)
	}
}

func TestPlayerCommands(t *testing.T) {
	m := startMockMpv(t, success)
	c := connect(t, m.sock)

	p := newPlayer("player-preview-1", playback.Events{})
	if err := p.attach(context.Background(), c); err != nil {
		t.Fatalf("attach: %v", err)
	}
	for range observed {
		cmd := <-m.commands
		if cmd.Command[0] != "observe_property" {
			t.Fatalf("command = %v, want observe_property", cmd.Command)
		}
	}
	if cmd := <-m.commands; cmd.Command[0] != "get_property" {
		t.Fatalf("command = %v, want get_property duration", cmd.Command)
	}

	tests := []struct {
		name string
		do   func() error
		want []any
	}{
		{"play", p.Play, []any{"set_property", "pause", false}},
		{"pause", p.Pause, []any{"set_property", "pause", true}},
		{"seek", func() error { return p.SeekTo(12, true) }, []any{"seek", float64(12), "absolute+exact"}},
		{"preview", func() error { return p.SeekTo(30, false) }, []any{"seek", float64(30), "absolute+keyframes"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.do(); err != nil {
				t.Fatalf("%s: %v", tt.name, err)
			}
			got := (<-m.commands).Command
			if len(got) != len(tt.want) {
				t.Fatalf("command = %v, want %v", got, tt.want)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("command[%d] = %v, want %v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestPlayAfterEndRestarts(t *testing.T) {
	m := startMockMpv(t, success)
	c := connect(t, m.sock)

	p := newPlayer("player-preview-1", playback.Events{})
	p.mu.Lock()
	p.client = c
	p.props = snapshot{loaded: true, eof: true, duration: 60}
	p.mu.Unlock()

	if err := p.Play(); err != nil {
		t.Fatalf("play: %v", err)
	}

	first := (<-m.commands).Command
	if first[0] != "seek" {
		t.Errorf("first command = %v, want seek to 0", first)
	}
	second := (<-m.commands).Command
	if second[0] != "set_property" {
		t.Errorf("second command = %v, want set_property", second)
	}
}

func TestLauncherSocketPath(t *testing.T) {
	l := NewLauncher("mpv", "/tmp/tm")
	a := l.SocketPath("player-preview-1")
	b := NewLauncher("mpv", "/tmp/tm").SocketPath("player-preview-1")

	if a == b {
		t.Errorf("sessions share socket path %q", a)
	}
	if got, want := WatchURL("acvIVA9-FMQ"), "https://www.youtube.com/watch?v=acvIVA9-FMQ"; got != want {
		t.Errorf("WatchURL = %q, want %q", got, want)
	}
}

// TestLiveMpv launches a real mpv. Skipped unless mpv is installed and
// TUBEMARKER_LIVE_MPV is set, since it needs network access.
func TestLiveMpv(t *testing.T) {
	if os.Getenv("TUBEMARKER_LIVE_MPV") == "" {
		t.Skip("TUBEMARKER_LIVE_MPV not set")
	}
	if _, err := exec.LookPath("mpv"); err != nil {
		t.Skip("mpv not installed")
	}

	l := NewLauncher("mpv", t.TempDir())
	if err := l.Prepare(); err != nil {
		t.Fatalf("prepare: %v", err)
	}
	defer l.Cleanup()

	ready := make(chan struct{}, 1)
	c, err := l.Create(context.Background(), "player-preview-1", "acvIVA9-FMQ", playback.Events{
		Ready: func() { ready <- struct{}{} },
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer c.Destroy()

	select {
	case <-ready:
	case <-time.After(30 * time.Second):
		t.Fatal("player never became ready")
	}
	if c.Duration() <= 0 {
		t.Errorf("duration = %v, want > 0", c.Duration())
	}
	t.Logf("live: %q, %.0fs", c.Title(), c.Duration())
}
