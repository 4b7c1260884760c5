package app

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jwulff/tubemarker/internal/annotation"
	"github.com/jwulff/tubemarker/internal/markertype"
	"github.com/jwulff/tubemarker/internal/playback"
	"github.com/jwulff/tubemarker/internal/timeline"
	"github.com/jwulff/tubemarker/internal/ui"
)

// Detail screen layout. Mouse rows are fixed so they can be hit-tested
// without rendering.
const (
	timelineLeft      = 2
	timelineMarkerRow = 3
	timelineBarRow    = 4
	minTimelineWidth  = 10
	selectionOpacity  = 0.25
)

func (m Model) timelineWidth() int {
	return max(minTimelineWidth, m.width-2*timelineLeft)
}

// timelineBounds spans the first to the last cell, so a press on the last
// cell resolves to the end of the video.
func (m Model) timelineBounds() timeline.Bounds {
	return timeline.Bounds{Left: timelineLeft, Width: float64(m.timelineWidth() - 1)}
}

func (m Model) onTimeline(y int) bool {
	return y == timelineMarkerRow || y == timelineBarRow
}

// markerSpan returns the cells [start, end) a marker covers.
func markerSpan(mk annotation.Marker, duration, width int) (int, int) {
	start := timeline.Column(mk.Start, duration, width)
	end := timeline.Column(mk.End, duration, width)
	return start, max(end, start+1)
}

// markerAtColumn returns the topmost marker drawn at screen column x.
func (m Model) markerAtColumn(v *annotation.Video, x int) (annotation.Marker, bool) {
	w := m.timelineWidth()
	col := x - timelineLeft
	if v.Duration == 0 || col < 0 || col >= w {
		return annotation.Marker{}, false
	}
	var hit annotation.Marker
	found := false
	for _, mk := range v.TimeLabels {
		start, end := markerSpan(mk, v.Duration, w)
		if col >= start && col < end {
			hit, found = mk, true
		}
	}
	return hit, found
}

// View renders the full TUI.
func (m Model) View() string {
	if m.width == 0 {
		return "Initializing..."
	}
	if v, ok := m.current(); ok {
		return m.renderDetail(v)
	}
	return m.renderList()
}

func (m Model) divider() string {
	return ui.DividerStyle.Render(strings.Repeat("─", m.width))
}

func (m Model) renderHeader(subtitle string) string {
	title := ui.TitleStyle.Render("TUBEMARKER")
	if subtitle != "" {
		title += ui.DimStyle.Render("  " + subtitle)
	}
	return title
}

func (m Model) renderPlayerStatus() string {
	switch {
	case m.playerErr != "":
		return ui.ErrorStyle.Render("player unavailable: " + m.playerErr)
	case !m.playerInit:
		return ui.DimStyle.Render("starting players...")
	default:
		return ""
	}
}

// renderVideoStatus reports a player that exists but has not loaded yet.
func (m Model) renderVideoStatus(v *annotation.Video) string {
	if m.sync == nil {
		return ""
	}
	h, ok := m.sync.Handle(v.ID)
	if !ok {
		return ""
	}
	if _, ready := h.(playback.NotReady); ready {
		return ui.DimStyle.Render("loading video...")
	}
	return ""
}

func (m Model) renderList() string {
	var sections []string
	sections = append(sections, m.renderHeader(fmt.Sprintf("%d videos", len(m.store.Videos()))))
	sections = append(sections, m.renderPlayerStatus())
	sections = append(sections, m.divider())

	for i, v := range m.store.Videos() {
		dot := ui.PausedStyle.Render("○")
		if v.IsPlaying {
			dot = ui.PlayingStyle.Render("▶")
		}
		bpm := "-"
		if v.BPM.Valid {
			bpm = fmt.Sprint(v.BPM.Int64)
		}
		meta := ui.DimStyle.Render(fmt.Sprintf("  %s  BPM %s  %d markers",
			timeline.FormatTime(v.Duration), bpm, len(v.TimeLabels)))

		name := v.Name
		if i == m.listCursor {
			name = ui.SelectedStyle.Render("› " + name)
		} else {
			name = "  " + name
		}
		sections = append(sections, dot+" "+name+meta)
	}

	sections = append(sections, m.divider())
	if m.flash != "" {
		sections = append(sections, m.renderFlash())
	}
	sections = append(sections, m.renderFooter([][2]string{
		{"j/k", "move"}, {"enter", "open"}, {"space", "play/pause"}, {"q", "quit"},
	}))
	return strings.Join(sections, "\n")
}

func (m Model) renderDetail(v *annotation.Video) string {
	var sections []string
	sections = append(sections, m.renderHeader(v.Name))
	sections = append(sections, ui.StatusStyle.Render(m.statusLine(v))+"  "+m.renderPlayerStatus()+m.renderVideoStatus(v))
	sections = append(sections, m.divider())
	sections = append(sections, m.renderMarkerLane(v))
	sections = append(sections, m.renderTimelineBar(v))
	sections = append(sections, m.renderAxis(v))
	sections = append(sections, m.divider())
	sections = append(sections, m.renderTypes())
	sections = append(sections, m.divider())
	sections = append(sections, m.renderMarkerList(v)...)

	if m.inputMode != InputNone {
		sections = append(sections, m.renderModal())
	}
	if m.flash != "" {
		sections = append(sections, m.renderFlash())
	}
	sections = append(sections, m.renderFooter([][2]string{
		{"drag", "select"}, {"1-9", "type"}, {"n", "new type"}, {"m", "mark"},
		{"space", "play"}, {"←/→", "seek"}, {"t", "tap"}, {"b", "save BPM"}, {"esc", "back"},
	}))
	return strings.Join(sections, "\n")
}

func (m Model) renderMarkerLane(v *annotation.Video) string {
	w := m.timelineWidth()
	cells := make([]string, w)
	for i := range cells {
		cells[i] = " "
	}
	if v.Duration > 0 {
		for _, mk := range v.TimeLabels {
			start, end := markerSpan(mk, v.Duration, w)
			style := ui.MarkerStyle(m.registry.Color(mk.Type))
			for c := start; c < end && c < w; c++ {
				cells[c] = style.Render("▆")
			}
		}
	}
	return strings.Repeat(" ", timelineLeft) + strings.Join(cells, "")
}

func (m Model) renderTimelineBar(v *annotation.Video) string {
	w := m.timelineWidth()
	progress := int(timeline.ProgressPercent(v.CurrentTime, v.Duration) / 100 * float64(w))
	head := timeline.Column(v.CurrentTime, v.Duration, w)

	rng := m.sel.Range()
	selecting := rng.Start != rng.End || m.dragging || m.prompter.open
	lo, hi := min(rng.Start, rng.End), max(rng.Start, rng.End)
	selLo := timeline.Column(lo, v.Duration, w)
	selHi := max(timeline.Column(hi, v.Duration, w), selLo+1)

	overlay := markertype.NeutralHex
	if active, ok := m.registry.Active(); ok {
		overlay = m.registry.Color(active)
	}
	tint := lipgloss.Color(markertype.Overlay(overlay, selectionOpacity))

	var b strings.Builder
	b.WriteString(strings.Repeat(" ", timelineLeft))
	for c := 0; c < w; c++ {
		glyph, style := "─", ui.TrackStyle
		switch {
		case v.Duration > 0 && c == head:
			glyph, style = "●", ui.PlayheadStyle
		case c < progress:
			glyph, style = "━", ui.ProgressStyle
		}
		if selecting && v.Duration > 0 && c >= selLo && c < selHi {
			style = style.Background(tint)
		}
		b.WriteString(style.Render(glyph))
	}
	return b.String()
}

func (m Model) renderAxis(v *annotation.Video) string {
	w := m.timelineWidth()
	left := "0:00"
	right := timeline.FormatTime(v.Duration)
	gap := max(1, w-len(left)-len(right))
	return ui.DimStyle.Render(strings.Repeat(" ", timelineLeft) + left + strings.Repeat(" ", gap) + right)
}

func (m Model) renderTypes() string {
	active, _ := m.registry.Active()
	var parts []string
	for i, t := range m.registry.Types() {
		label := fmt.Sprintf("%d %s", i+1, t.DisplayName)
		if i >= MaxTypeHotkey {
			label = t.DisplayName
		}
		if t.Key == active {
			parts = append(parts, ui.ActiveTypeStyle(t.Hex).Render(" "+label+" "))
		} else {
			parts = append(parts, ui.Swatch(t.Hex)+" "+label)
		}
	}
	return ui.PanelTitleStyle.Render(fmt.Sprintf("Types (%d) ", m.registry.Len())) + strings.Join(parts, "  ")
}

func (m Model) renderMarkerList(v *annotation.Video) []string {
	groups := m.store.GroupMarkers(v)
	if len(groups) == 0 {
		return []string{ui.DimStyle.Render("  No markers yet. Pick a type and drag on the timeline.")}
	}

	var lines []string
	idx := 0
	for _, g := range groups {
		lines = append(lines, ui.Swatch(g.ColorHex)+" "+ui.PanelTitleStyle.Render(g.DisplayName)+
			ui.DimStyle.Render(fmt.Sprintf(" (%d)", len(g.Markers))))
		for _, mk := range g.Markers {
			text := fmt.Sprintf("%s~%s  %s", timeline.FormatTime(mk.Start), timeline.FormatTime(mk.End), mk.Label)
			if idx == m.markerCursor {
				lines = append(lines, ui.SelectedStyle.Render("  › "+text))
			} else {
				lines = append(lines, "    "+text)
			}
			idx++
		}
	}
	return lines
}

func (m Model) renderModal() string {
	var title string
	switch m.inputMode {
	case InputLabel:
		req := m.prompter.req
		title = fmt.Sprintf("Marker label (%s, %s ~ %s)", req.DisplayName,
			timeline.FormatTime(req.Start), timeline.FormatTime(req.End))
	case InputNewType:
		title = "New marker type"
	}
	body := ui.PanelTitleStyle.Render(title) + "\n" + m.input.View() + "\n" +
		ui.DimStyle.Render("enter to save, esc to cancel")
	return ui.ModalStyle.Render(body)
}

func (m Model) renderFlash() string {
	if m.flashErr {
		return ui.ErrorStyle.Render(m.flash)
	}
	return ui.FlashStyle.Render(m.flash)
}

func (m Model) renderFooter(keys [][2]string) string {
	var parts []string
	for _, k := range keys {
		parts = append(parts, ui.FooterKeyStyle.Render(k[0])+" "+ui.FooterDescStyle.Render(k[1]))
	}
	return strings.Join(parts, "  ")
}
