// Package timeline converts pointer positions over a timeline strip into
// playback seconds, and back into positions for rendering.
package timeline

import (
	"fmt"
	"math"
)

// PointerKind distinguishes mouse pointers from touch sequences.
type PointerKind int

const (
	PointerMouse PointerKind = iota
	PointerTouch
)

// ButtonPrimary is the button number of a primary (left) press.
const ButtonPrimary = 0

// Touch is a single contact point of a touch event.
type Touch struct {
	ClientX float64
}

// PointerEvent is a normalized mouse or touch event.
type PointerEvent struct {
	Kind    PointerKind
	ClientX float64
	// Touches lists the active contact points; the first is the primary one.
	Touches []Touch
	// Button is the button that changed state; only meaningful for mice.
	Button int
	// Buttons is the bitmask of buttons currently held; only meaningful for mice.
	Buttons int
	// OnMarker reports that the event originated on an existing marker glyph.
	OnMarker bool
}

// Bounds is the horizontal geometry of the timeline container.
type Bounds struct {
	Left  float64
	Width float64
}

// ClientX returns the horizontal coordinate of ev, preferring the primary touch.
func ClientX(ev PointerEvent) float64 {
	if len(ev.Touches) > 0 {
		return ev.Touches[0].ClientX
	}
	return ev.ClientX
}

// ResolveTime maps ev over bounds to a whole second in [0, duration].
func ResolveTime(ev PointerEvent, bounds Bounds, duration int) int {
	if duration == 0 || bounds.Width <= 0 {
		return 0
	}

	x := ClientX(ev) - bounds.Left
	fraction := math.Min(1, math.Max(0, x/bounds.Width))

	return int(math.Floor(fraction * float64(duration)))
}

// FormatTime renders whole seconds as m:ss.
func FormatTime(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%d:%02d", seconds/60, seconds%60)
}

// Percent returns t as a percentage of duration, 0 when duration is unknown.
func Percent(t, duration int) float64 {
	if duration == 0 {
		return 0
	}
	return float64(t) / float64(duration) * 100
}

// ProgressPercent is Percent capped at 100.
func ProgressPercent(current, duration int) float64 {
	return math.Min(Percent(current, duration), 100)
}

// Column maps second t onto one of width cells. The last cell holds t == duration.
func Column(t, duration, width int) int {
	if duration == 0 || width <= 0 {
		return 0
	}
	col := int(math.Floor(float64(t) / float64(duration) * float64(width)))
	if col >= width {
		col = width - 1
	}
	if col < 0 {
		col = 0
	}
	return col
}
