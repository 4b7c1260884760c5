package playback

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/jwulff/tubemarker/internal/annotation"
)

// fakeLoop queues posted work until the test drains it.
type fakeLoop struct {
	fns     chan func()
	tickers map[int]func()
	nextID  int
	mu      sync.Mutex
}

func newFakeLoop() *fakeLoop {
	return &fakeLoop{fns: make(chan func(), 64), tickers: map[int]func(){}}
}

func (l *fakeLoop) Post(fn func()) { l.fns <- fn }

func (l *fakeLoop) Every(d time.Duration, fn func()) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.nextID++
	id := l.nextID
	l.tickers[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.tickers, id)
	}
}

// drain runs everything queued so far.
func (l *fakeLoop) drain() {
	for {
		select {
		case fn := <-l.fns:
			fn()
		default:
			return
		}
	}
}

// next waits for one posted func and runs it.
func (l *fakeLoop) next(t *testing.T) {
	t.Helper()
	select {
	case fn := <-l.fns:
		fn()
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for posted work")
	}
}

// tick fires every active ticker once.
func (l *fakeLoop) tick() {
	l.mu.Lock()
	fns := make([]func(), 0, len(l.tickers))
	for _, fn := range l.tickers {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

func (l *fakeLoop) activeTickers() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.tickers)
}

type seekCall struct {
	t              int
	allowSeekAhead bool
}

type fakePlayer struct {
	name      string
	sourceRef string
	events    Events

	state     State
	current   float64
	duration  float64
	title     string
	seeks     []seekCall
	plays     int
	pauses    int
	destroyed bool
}

func (p *fakePlayer) Play() error {
	p.plays++
	p.state = StatePlaying
	return nil
}

func (p *fakePlayer) Pause() error {
	p.pauses++
	p.state = StatePaused
	return nil
}

func (p *fakePlayer) SeekTo(t int, allowSeekAhead bool) error {
	p.seeks = append(p.seeks, seekCall{t, allowSeekAhead})
	p.current = float64(t)
	return nil
}

func (p *fakePlayer) CurrentTime() float64 { return p.current }
func (p *fakePlayer) Duration() float64    { return p.duration }
func (p *fakePlayer) Title() string        { return p.title }
func (p *fakePlayer) State() State         { return p.state }

func (p *fakePlayer) Destroy() error {
	p.destroyed = true
	return nil
}

type fakeFactory struct {
	players map[string]*fakePlayer
	fail    bool
}

func newFakeFactory() *fakeFactory {
	return &fakeFactory{players: map[string]*fakePlayer{}}
}

func (f *fakeFactory) Create(ctx context.Context, name, sourceRef string, events Events) (Controls, error) {
	if f.fail {
		return nil, fmt.Errorf("mpv not found")
	}
	p := &fakePlayer{name: name, sourceRef: sourceRef, events: events, duration: 212.7, title: "Real Title"}
	f.players[name] = p
	return p, nil
}

type infoCall struct {
	id       int
	duration int
	title    string
}

type fakeLibrary struct {
	videos []*annotation.Video
	infos  []infoCall
}

func (l *fakeLibrary) Videos() []*annotation.Video { return l.videos }

func (l *fakeLibrary) Video(id int) (*annotation.Video, bool) {
	for _, v := range l.videos {
		if v.ID == id {
			return v, true
		}
	}
	return nil, false
}

func (l *fakeLibrary) ApplyPlayerInfo(id, duration int, title string) bool {
	l.infos = append(l.infos, infoCall{id, duration, title})
	return true
}

func newFakeLibrary() *fakeLibrary {
	return &fakeLibrary{videos: []*annotation.Video{
		{ID: 1, Name: "abc", SourceRef: "abc"},
		{ID: 2, Name: "Second", SourceRef: "def", Duration: 90},
	}}
}
