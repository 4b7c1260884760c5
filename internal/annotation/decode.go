package annotation

import (
	"fmt"
	"math"

	jsoniter "github.com/json-iterator/go"
	"github.com/tidwall/gjson"
	"gopkg.in/guregu/null.v4"

	"github.com/jwulff/tubemarker/internal/logger"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// wireMarker accepts both the current {start,end} shape and the legacy
// {time[,end]} shape.
type wireMarker struct {
	Start *float64 `json:"start"`
	End   *float64 `json:"end"`
	Time  *float64 `json:"time"`
	Label string   `json:"label"`
	Type  string   `json:"type"`
}

type wireVideo struct {
	ID         int          `json:"id"`
	Name       string       `json:"name"`
	VideoID    string       `json:"videoId"`
	Duration   float64      `json:"duration"`
	BPM        null.Int     `json:"bpm"`
	TimeLabels []wireMarker `json:"timeLabels"`
}

// DecodeVideos parses a remote video list, upgrading legacy markers. The body
// must be a JSON array; null and other top-level values are rejected.
func DecodeVideos(body []byte) ([]*Video, error) {
	if !gjson.ParseBytes(body).IsArray() {
		return nil, ErrNotArray
	}

	var wire []wireVideo
	if err := json.Unmarshal(body, &wire); err != nil {
		return nil, fmt.Errorf("decode videos: %w", err)
	}

	videos := make([]*Video, 0, len(wire))
	for _, w := range wire {
		v := &Video{
			ID:         w.ID,
			Name:       w.Name,
			SourceRef:  w.VideoID,
			Duration:   int(math.Floor(w.Duration)),
			BPM:        w.BPM,
			TimeLabels: make([]Marker, 0, len(w.TimeLabels)),
		}
		for _, wm := range w.TimeLabels {
			m, ok := wm.marker()
			if !ok {
				logger.Warnf("[AnnotationStore] video %d: dropping marker %q without a time", w.ID, wm.Label)
				continue
			}
			v.TimeLabels = append(v.TimeLabels, m)
		}
		sortMarkers(v.TimeLabels)
		videos = append(videos, v)
	}
	return videos, nil
}

func (wm wireMarker) marker() (Marker, bool) {
	m := Marker{Label: wm.Label, Type: wm.Type}

	switch {
	case wm.Start != nil:
		m.Start = int(*wm.Start)
	case wm.Time != nil:
		m.Start = int(*wm.Time)
	default:
		return Marker{}, false
	}

	if wm.End != nil {
		m.End = int(*wm.End)
	} else {
		m.End = m.Start + 1
	}
	return m, true
}

// EncodeVideos serializes the durable fields of videos.
func EncodeVideos(videos []*Video) ([]byte, error) {
	records := make([]Record, 0, len(videos))
	for _, v := range videos {
		records = append(records, v.record())
	}
	data, err := json.Marshal(records)
	if err != nil {
		return nil, fmt.Errorf("encode videos: %w", err)
	}
	return data, nil
}
