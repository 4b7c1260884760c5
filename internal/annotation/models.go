// Package annotation owns the list of videos and their markers, and keeps the
// remote store in sync with it.
package annotation

import (
	"gopkg.in/guregu/null.v4"
)

// Marker is a labeled time interval on a video's timeline.
type Marker struct {
	Start int    `json:"start"`
	End   int    `json:"end"`
	Label string `json:"label"`
	Type  string `json:"type"`
}

// Video is an annotated video. CurrentTime and IsPlaying are session state
// and never persisted.
type Video struct {
	ID         int
	Name       string
	SourceRef  string
	Duration   int
	BPM        null.Int
	TimeLabels []Marker

	CurrentTime int
	IsPlaying   bool
}

// Record is the persisted shape of a Video.
type Record struct {
	ID         int      `json:"id"`
	Name       string   `json:"name"`
	VideoID    string   `json:"videoId"`
	TimeLabels []Marker `json:"timeLabels"`
	BPM        null.Int `json:"bpm"`
	Duration   int      `json:"duration"`
}

// Group is the markers of one type, ready for display.
type Group struct {
	Key         string
	DisplayName string
	ColorHex    string
	Markers     []Marker
}

func (v *Video) record() Record {
	labels := make([]Marker, len(v.TimeLabels))
	copy(labels, v.TimeLabels)
	return Record{
		ID:         v.ID,
		Name:       v.Name,
		VideoID:    v.SourceRef,
		TimeLabels: labels,
		BPM:        v.BPM,
		Duration:   v.Duration,
	}
}

// Renamed reports whether the video has a name other than its source id.
func (v *Video) Renamed() bool {
	return v.Name != v.SourceRef
}
