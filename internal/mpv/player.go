package mpv

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jwulff/tubemarker/internal/logger"
	"github.com/jwulff/tubemarker/internal/playback"
)

const (
	connectTimeout = 10 * time.Second
	commandTimeout = 2 * time.Second
	quitTimeout    = 3 * time.Second
)

var observed = []string{
	PropTimePos,
	PropDuration,
	PropMediaTitle,
	PropPause,
	PropEOFReached,
	PropPausedForCache,
}

// WatchURL is the URL mpv is given for a YouTube video id.
func WatchURL(sourceRef string) string {
	return "https://www.youtube.com/watch?v=" + sourceRef
}

// Launcher starts mpv processes, one per player, with their IPC sockets in a
// per-session directory.
type Launcher struct {
	path string
	dir  string
}

// NewLauncher returns a Launcher using the mpv binary at path. Sockets live
// in a fresh directory under socketDir.
func NewLauncher(path, socketDir string) *Launcher {
	return &Launcher{
		path: path,
		dir:  filepath.Join(socketDir, "session-"+uuid.NewString()),
	}
}

// Prepare checks that mpv can be run and creates the socket directory.
func (l *Launcher) Prepare() error {
	resolved, err := exec.LookPath(l.path)
	if err != nil {
		return fmt.Errorf("find mpv: %w", err)
	}
	l.path = resolved
	if err := os.MkdirAll(l.dir, 0o700); err != nil {
		return fmt.Errorf("create socket dir: %w", err)
	}
	return nil
}

// Cleanup removes the session's socket directory.
func (l *Launcher) Cleanup() error {
	return os.RemoveAll(l.dir)
}

// SocketPath is where the player called name listens.
func (l *Launcher) SocketPath(name string) string {
	return filepath.Join(l.dir, name+".sock")
}

// Create starts an idle, paused mpv on the video and returns at once. The
// player fires events.Ready when the file is loaded.
func (l *Launcher) Create(ctx context.Context, name, sourceRef string, events playback.Events) (playback.Controls, error) {
	sock := l.SocketPath(name)
	cmd := exec.Command(l.path,
		"--idle=yes",
		"--pause=yes",
		"--keep-open=yes",
		"--force-window=yes",
		"--title="+name,
		"--input-ipc-server="+sock,
		WatchURL(sourceRef),
	)
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start mpv: %w", err)
	}

	p := newPlayer(name, events)
	p.cmd = cmd
	p.sock = sock

	go func() {
		c, err := dialWhenReady(ctx, sock, connectTimeout)
		if err != nil {
			logger.Errorf("[mpv] %s: %v", name, err)
			return
		}
		if err := p.attach(ctx, c); err != nil {
			logger.Errorf("[mpv] %s: %v", name, err)
			c.Close()
		}
	}()
	return p, nil
}

// dialWhenReady retries until mpv has created its socket.
func dialWhenReady(ctx context.Context, sock string, timeout time.Duration) (*Client, error) {
	deadline := time.Now().Add(timeout)
	for {
		c, err := Connect(sock)
		if err == nil {
			return c, nil
		}
		if time.Now().After(deadline) {
			return nil, err
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(50 * time.Millisecond):
		}
	}
}

type snapshot struct {
	timePos   float64
	duration  float64
	title     string
	paused    bool
	eof       bool
	buffering bool
	loaded    bool
}

func (s snapshot) state() playback.State {
	switch {
	case !s.loaded:
		return playback.StateUnstarted
	case s.eof:
		return playback.StateEnded
	case s.buffering:
		return playback.StateBuffering
	case s.paused:
		return playback.StatePaused
	default:
		return playback.StatePlaying
	}
}

// Player is one mpv instance. Getters read values cached from observed
// property changes.
type Player struct {
	name   string
	events playback.Events
	cmd    *exec.Cmd
	sock   string

	mu     sync.Mutex
	client *Client
	props  snapshot
	last   playback.State

	readyOnce sync.Once
}

func newPlayer(name string, events playback.Events) *Player {
	return &Player{name: name, events: events}
}

// attach binds a connected client, subscribes to properties and starts
// dispatching events.
func (p *Player) attach(ctx context.Context, c *Client) error {
	p.mu.Lock()
	p.client = c
	p.mu.Unlock()

	go p.pump(c)

	for i, prop := range observed {
		cctx, cancel := context.WithTimeout(ctx, commandTimeout)
		err := c.ObserveProperty(cctx, i+1, prop)
		cancel()
		if err != nil {
			return fmt.Errorf("observe %s: %w", prop, err)
		}
	}

	// mpv may have loaded the file before we connected, in which case no
	// file-loaded event will follow.
	cctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()
	var duration float64
	if err := c.GetProperty(cctx, PropDuration, &duration); err != nil {
		logger.Debugf("[mpv] %s: duration not known yet: %v", p.name, err)
		return nil
	}
	if duration > 0 {
		p.update(func(s *snapshot) {
			s.duration = duration
			s.loaded = true
		})
	}
	return nil
}

func (p *Player) pump(c *Client) {
	for ev := range c.Events() {
		p.handle(ev)
	}
	logger.Debugf("[mpv] %s: event stream closed", p.name)
}

// handle folds one event into the cached snapshot and fires callbacks.
func (p *Player) handle(ev Event) {
	p.update(func(s *snapshot) {
		switch ev.Event {
		case EventFileLoaded:
			s.loaded = true
			s.eof = false
		case EventEndFile:
			if ev.Reason == "eof" {
				s.eof = true
			}
		case EventShutdown:
			// the window was closed; report it as paused so polling stops
			logger.Infof("[mpv] %s: player shut down", p.name)
			s.paused = true
		case EventPropertyChange:
			p.apply(s, ev)
		}
	})
}

// update applies fn to the snapshot under the lock, then fires Ready once the
// file is loaded with a known duration, and StateChange when the state moved.
func (p *Player) update(fn func(s *snapshot)) {
	p.mu.Lock()
	fn(&p.props)

	ready := p.props.loaded && p.props.duration > 0
	st := p.props.state()
	changed := st != p.last && st != playback.StateUnstarted
	p.last = st
	p.mu.Unlock()

	if ready && p.events.Ready != nil {
		p.readyOnce.Do(p.events.Ready)
	}
	if changed && p.events.StateChange != nil {
		p.events.StateChange(st)
	}
}

// apply folds a property change into s. A known duration also means the
// file is loaded, which covers a file-loaded event sent before we connected.
func (p *Player) apply(s *snapshot, ev Event) {
	if len(ev.Data) == 0 || string(ev.Data) == "null" {
		return
	}
	var err error
	switch ev.Name {
	case PropTimePos:
		err = json.Unmarshal(ev.Data, &s.timePos)
	case PropDuration:
		err = json.Unmarshal(ev.Data, &s.duration)
		if err == nil && s.duration > 0 {
			s.loaded = true
		}
	case PropMediaTitle:
		err = json.Unmarshal(ev.Data, &s.title)
	case PropPause:
		err = json.Unmarshal(ev.Data, &s.paused)
	case PropEOFReached:
		err = json.Unmarshal(ev.Data, &s.eof)
	case PropPausedForCache:
		err = json.Unmarshal(ev.Data, &s.buffering)
	}
	if err != nil {
		logger.Warnf("[mpv] %s: decode %s: %v", p.name, ev.Name, err)
	}
}

func (p *Player) connected() (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.client == nil {
		return nil, playback.ErrNotReady
	}
	return p.client, nil
}

func (p *Player) command(args ...any) error {
	c, err := p.connected()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	_, err = c.Command(ctx, args...)
	return err
}

func (p *Player) setPause(paused bool) error {
	c, err := p.connected()
	if err != nil {
		return err
	}
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return c.SetProperty(ctx, PropPause, paused)
}

// Play unpauses, restarting from the top when the video had ended.
func (p *Player) Play() error {
	if p.State() == playback.StateEnded {
		if err := p.command("seek", 0, "absolute"); err != nil {
			return err
		}
	}
	return p.setPause(false)
}

// Pause pauses playback.
func (p *Player) Pause() error {
	return p.setPause(true)
}

// SeekTo jumps to seconds. Without allowSeekAhead the seek snaps to the
// nearest keyframe, which is fast enough for scrubbing.
func (p *Player) SeekTo(seconds int, allowSeekAhead bool) error {
	mode := "absolute+exact"
	if !allowSeekAhead {
		mode = "absolute+keyframes"
	}
	return p.command("seek", seconds, mode)
}

func (p *Player) CurrentTime() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.props.timePos
}

func (p *Player) Duration() float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.props.duration
}

func (p *Player) Title() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.props.title
}

func (p *Player) State() playback.State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.props.state()
}

// Destroy asks mpv to quit, kills it if it does not, and removes its socket.
func (p *Player) Destroy() error {
	if c, err := p.connected(); err == nil {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		_, qerr := c.Command(ctx, "quit")
		cancel()
		if qerr != nil && !errors.Is(qerr, ErrClosed) {
			logger.Debugf("[mpv] %s: quit: %v", p.name, qerr)
		}
		c.Close()
	}

	var err error
	if p.cmd != nil && p.cmd.Process != nil {
		done := make(chan error, 1)
		go func() { done <- p.cmd.Wait() }()
		select {
		case <-done:
		case <-time.After(quitTimeout):
			err = p.cmd.Process.Kill()
			<-done
		}
	}
	if p.sock != "" {
		os.Remove(p.sock)
	}
	return err
}
