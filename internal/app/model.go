package app

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	"github.com/dustin/go-humanize"

	"github.com/jwulff/tubemarker/internal/annotation"
	"github.com/jwulff/tubemarker/internal/logger"
	"github.com/jwulff/tubemarker/internal/markertype"
	"github.com/jwulff/tubemarker/internal/playback"
	"github.com/jwulff/tubemarker/internal/selection"
	"github.com/jwulff/tubemarker/internal/tempo"
	"github.com/jwulff/tubemarker/internal/timeline"

	tea "github.com/charmbracelet/bubbletea"
)

// Screen is the view being shown.
type Screen int

const (
	ScreenList Screen = iota
	ScreenDetail
)

// InputMode tracks which text input, if any, has the keyboard.
type InputMode int

const (
	InputNone InputMode = iota
	InputLabel
	InputNewType
)

const flashTimeout = 5 * time.Second

// Deps are the engine components the TUI drives.
type Deps struct {
	Store     *annotation.Store
	Registry  *markertype.Registry
	Sync      *playback.Sync
	Loop      *Loop
	Readiness *playback.Readiness
	// Prepare readies the player backend. Nil means there is nothing to do.
	Prepare func() error
	// Now is the clock used for tap tempo. Defaults to time.Now.
	Now func() time.Time
}

// modalPrompter answers selection prompts through the label input.
type modalPrompter struct {
	req    selection.Request
	answer func(string, bool)
	open   bool
	fresh  bool
}

func (p *modalPrompter) Prompt(req selection.Request, answer func(string, bool)) {
	p.req = req
	p.answer = answer
	p.open = true
	p.fresh = true
}

// take closes the prompt and returns its answer func.
func (p *modalPrompter) take() func(string, bool) {
	answer := p.answer
	p.open = false
	p.answer = nil
	return answer
}

// Model is the root bubbletea model for the tubemarker TUI.
type Model struct {
	store     *annotation.Store
	registry  *markertype.Registry
	sync      *playback.Sync
	sel       *selection.Selector
	tempo     *tempo.Estimator
	loop      *Loop
	readiness *playback.Readiness
	prepare   func() error
	now       func() time.Time
	epoch     time.Time
	prompter  *modalPrompter

	// Navigation
	screen       Screen
	listCursor   int
	selectedID   int
	markerCursor int

	// Input
	input     textinput.Model
	inputMode InputMode
	dragging  bool

	// UI state
	width  int
	height int

	// Messages
	flash      string
	flashErr   bool
	flashSeq   int
	playerErr  string
	playerInit bool
}

// New creates a Model over deps, showing the video list.
func New(deps Deps) Model {
	now := deps.Now
	if now == nil {
		now = time.Now
	}
	prompter := &modalPrompter{}

	m := Model{
		store:     deps.Store,
		registry:  deps.Registry,
		sync:      deps.Sync,
		tempo:     tempo.New(),
		loop:      deps.Loop,
		readiness: deps.Readiness,
		prepare:   deps.Prepare,
		now:       now,
		epoch:     now(),
		prompter:  prompter,
		input:     textinput.New(),
	}
	m.sel = selection.New(deps.Store, deps.Sync, deps.Registry, prompter)
	return m
}

// Init subscribes the players to readiness, prepares the backend and starts
// draining the loop.
func (m Model) Init() tea.Cmd {
	m.sync.Subscribe(m.readiness)
	return tea.Batch(prepareCmd(m.prepare), m.loop.Wait())
}

// prepareCmd readies the player backend off the event loop.
func prepareCmd(prepare func() error) tea.Cmd {
	return func() tea.Msg {
		if prepare == nil {
			return PlayerPreparedMsg{}
		}
		return PlayerPreparedMsg{Err: prepare()}
	}
}

// clearFlashCmd fires after a delay to clear the flash line.
func clearFlashCmd(seq int) tea.Cmd {
	return tea.Tick(flashTimeout, func(time.Time) tea.Msg {
		return ClearFlashMsg{Seq: seq}
	})
}

func (m *Model) setFlash(text string, isErr bool) tea.Cmd {
	m.flash = text
	m.flashErr = isErr
	m.flashSeq++
	return clearFlashCmd(m.flashSeq)
}

// Update processes messages and returns the updated model and any commands.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case RunMsg:
		if msg.Fn != nil {
			msg.Fn()
		}
		return m, m.loop.Wait()

	case PlayerPreparedMsg:
		m.playerInit = true
		if msg.Err != nil {
			m.playerErr = msg.Err.Error()
			logger.Errorf("[TUI] player backend unavailable: %v", msg.Err)
			return m, nil
		}
		m.readiness.Fire()
		return m, nil

	case ClearFlashMsg:
		if msg.Seq == m.flashSeq {
			m.flash = ""
			m.flashErr = false
		}
		return m, nil
	}

	return m, nil
}

// current returns the video open in the detail screen.
func (m Model) current() (*annotation.Video, bool) {
	if m.screen != ScreenDetail {
		return nil, false
	}
	return m.store.Video(m.selectedID)
}

// selectVideo opens a video: other playing videos are paused, tap tempo is
// reset and no marker type is active.
func (m *Model) selectVideo(id int) {
	m.sync.PauseOthers(id)
	m.tempo.Reset()
	m.registry.ClearActive()
	m.sel.Cancel()
	m.sel.SetVideo(id)
	m.selectedID = id
	m.markerCursor = 0
	m.screen = ScreenDetail
}

// back pauses the open video and returns to the list.
func (m *Model) back() {
	if m.selectedID != 0 {
		m.sync.Pause(m.selectedID)
	}
	m.sel.Cancel()
	m.registry.ClearActive()
	m.sel.SetVideo(0)
	m.selectedID = 0
	m.dragging = false
	m.screen = ScreenList
}

// openPrompt starts the label input when the selector asked for one.
func (m *Model) openPrompt() tea.Cmd {
	if !m.prompter.fresh {
		return nil
	}
	m.prompter.fresh = false
	return m.startInput(InputLabel, m.prompter.req.Default, "label")
}

func (m *Model) startInput(mode InputMode, value, placeholder string) tea.Cmd {
	m.input = textinput.New()
	m.input.Placeholder = placeholder
	m.input.CharLimit = 200
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.inputMode = mode
	return m.input.Focus()
}

func (m *Model) stopInput() {
	m.input.Blur()
	m.inputMode = InputNone
}

// handleInputKey routes keys to the open text input.
func (m Model) handleInputKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case KeyCtrlC:
		return m, tea.Quit

	case KeyEnter:
		value := m.input.Value()
		mode := m.inputMode
		m.stopInput()

		switch mode {
		case InputLabel:
			answer := m.prompter.take()
			if answer != nil {
				answer(value, true)
			}
			if strings.TrimSpace(value) == "" {
				return m, m.setFlash("Marker label cannot be empty, not added", true)
			}
			return m, m.setFlash("Marker added", false)

		case InputNewType:
			key, err := m.registry.CreateType(value)
			if err != nil {
				return m, m.setFlash("Marker type cannot be empty", true)
			}
			return m, m.setFlash(fmt.Sprintf("Marker mode: %s, drag on the timeline", m.registry.DisplayName(key)), false)
		}
		return m, nil

	case KeyEsc:
		mode := m.inputMode
		m.stopInput()
		if mode == InputLabel {
			if answer := m.prompter.take(); answer != nil {
				answer("", false)
			}
		}
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// handleKey processes key presses.
func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.inputMode != InputNone {
		return m.handleInputKey(msg)
	}

	switch msg.String() {
	case KeyQuit, KeyQuitUpper, KeyCtrlC:
		return m, tea.Quit
	}

	if m.screen == ScreenList {
		return m.handleListKey(msg)
	}
	return m.handleDetailKey(msg)
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	videos := m.store.Videos()

	switch msg.String() {
	case KeyJ, KeyDown:
		if m.listCursor < len(videos)-1 {
			m.listCursor++
		}
	case KeyK, KeyUp:
		if m.listCursor > 0 {
			m.listCursor--
		}
	case KeyEnter:
		if m.listCursor < len(videos) {
			m.selectVideo(videos[m.listCursor].ID)
		}
	case KeySpace:
		if m.listCursor < len(videos) {
			m.sync.TogglePlay(videos[m.listCursor].ID)
		}
	}
	return m, nil
}

func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	v, ok := m.current()
	if !ok {
		m.back()
		return m, nil
	}

	key := msg.String()
	switch key {
	case KeyEsc:
		if m.sel.State() == selection.Selecting {
			m.sel.Cancel()
			m.dragging = false
			return m, nil
		}
		m.back()
		return m, nil

	case KeySpace:
		m.sync.TogglePlay(v.ID)

	case KeyLeft:
		m.sync.Seek(v.ID, max(0, v.CurrentTime-SeekStepSecs), false)

	case KeyRight:
		t := v.CurrentTime + SeekStepSecs
		if v.Duration > 0 {
			t = min(t, v.Duration)
		}
		m.sync.Seek(v.ID, t, false)

	case KeyTap:
		m.tempo.RegisterTap(float64(m.now().Sub(m.epoch).Microseconds()) / 1000)

	case KeyResetTaps:
		m.tempo.Reset()

	case KeyCommitBPM:
		bpm, err := m.tempo.Commit(m.store, v.ID)
		if errors.Is(err, tempo.ErrNoBPM) {
			return m, m.setFlash(fmt.Sprintf("Tap at least %d times before saving BPM", tempo.MinTaps), true)
		}
		if err != nil {
			return m, m.setFlash("BPM not saved: "+err.Error(), true)
		}
		return m, m.setFlash(fmt.Sprintf("BPM saved: %d", bpm), false)

	case KeyNewType:
		return m, m.startInput(InputNewType, "", "new marker type")

	case KeyClearType:
		m.registry.ClearActive()

	case KeyMarkHere:
		if v.Duration > 0 {
			ev := timeline.PointerEvent{Kind: timeline.PointerMouse, ClientX: float64(v.CurrentTime) + 0.5}
			m.sel.Click(ev, timeline.Bounds{Left: 0, Width: float64(v.Duration)})
		}
		return m, m.openPrompt()

	case KeyJ, KeyDown:
		if m.markerCursor < len(v.TimeLabels)-1 {
			m.markerCursor++
		}

	case KeyK, KeyUp:
		if m.markerCursor > 0 {
			m.markerCursor--
		}

	case KeyEnter:
		if marker, ok := m.markerAtCursor(v); ok {
			m.sync.Seek(v.ID, marker.Start, true)
		}

	default:
		if len(key) == 1 && key[0] >= '1' && key[0] <= '0'+MaxTypeHotkey {
			types := m.registry.Types()
			i := int(key[0] - '1')
			if i < len(types) {
				if active, on := m.registry.SetActive(types[i].Key); on {
					return m, m.setFlash(fmt.Sprintf("Marker mode: %s, drag on the timeline", m.registry.DisplayName(active)), false)
				}
				return m, m.setFlash("Marker mode off", false)
			}
		}
	}
	return m, nil
}

// listedMarkers returns the open video's markers in the order they are
// listed: grouped by type, then by start.
func (m Model) listedMarkers(v *annotation.Video) []annotation.Marker {
	var out []annotation.Marker
	for _, g := range m.store.GroupMarkers(v) {
		out = append(out, g.Markers...)
	}
	return out
}

func (m Model) markerAtCursor(v *annotation.Video) (annotation.Marker, bool) {
	markers := m.listedMarkers(v)
	if m.markerCursor < 0 || m.markerCursor >= len(markers) {
		return annotation.Marker{}, false
	}
	return markers[m.markerCursor], true
}

// handleMouse turns terminal mouse events over the timeline into pointer
// gestures.
func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	v, ok := m.current()
	if !ok || m.inputMode != InputNone {
		return m, nil
	}
	bounds := m.timelineBounds()

	switch msg.Action {
	case tea.MouseActionPress:
		if !m.onTimeline(msg.Y) {
			return m, nil
		}
		if marker, hit := m.markerAtColumn(v, msg.X); hit && msg.Y == timelineMarkerRow {
			m.sync.Seek(v.ID, marker.Start, true)
			return m, nil
		}
		ev := timeline.PointerEvent{
			Kind:    timeline.PointerMouse,
			ClientX: float64(msg.X),
			Button:  domButton(msg.Button),
			Buttons: 1,
		}
		m.sel.Start(ev, bounds)
		m.dragging = m.sel.State() == selection.Selecting

	case tea.MouseActionMotion:
		if !m.dragging {
			return m, nil
		}
		buttons := 0
		if msg.Button == tea.MouseButtonLeft {
			buttons = 1
		}
		m.sel.Move(timeline.PointerEvent{Kind: timeline.PointerMouse, ClientX: float64(msg.X), Buttons: buttons}, bounds)

	case tea.MouseActionRelease:
		if !m.dragging {
			return m, nil
		}
		m.dragging = false
		m.sel.End()
		return m, m.openPrompt()
	}
	return m, nil
}

// domButton numbers buttons the way pointer events do: 0 primary, 1 middle,
// 2 secondary.
func domButton(b tea.MouseButton) int {
	switch b {
	case tea.MouseButtonLeft:
		return timeline.ButtonPrimary
	case tea.MouseButtonMiddle:
		return 1
	case tea.MouseButtonRight:
		return 2
	default:
		return 3
	}
}

// statusLine summarizes the open video.
func (m Model) statusLine(v *annotation.Video) string {
	state := "paused"
	if v.IsPlaying {
		state = "playing"
	}
	parts := []string{
		state,
		fmt.Sprintf("%s / %s", timeline.FormatTime(v.CurrentTime), timeline.FormatTime(v.Duration)),
	}
	if v.BPM.Valid {
		parts = append(parts, fmt.Sprintf("BPM %d", v.BPM.Int64))
	} else {
		parts = append(parts, "BPM -")
	}
	if bpm, ok := m.tempo.BPM(); ok {
		parts = append(parts, fmt.Sprintf("tap %.1f (%s tap)", bpm, humanize.Ordinal(len(m.tempo.Taps()))))
	} else if n := len(m.tempo.Taps()); n > 0 {
		parts = append(parts, fmt.Sprintf("tap %d/%d", n, tempo.MinTaps))
	}
	return strings.Join(parts, "  ·  ")
}
