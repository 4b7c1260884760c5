package annotation

import "gopkg.in/guregu/null.v4"

// seedVideos is shown when the remote store cannot be read.
func seedVideos() []*Video {
	return []*Video{
		{
			ID:        1,
			Name:      "Vue 3 Core Concepts and the Composition API",
			SourceRef: "acvIVA9-FMQ",
			TimeLabels: []Marker{
				{Start: 5, End: 10, Label: "Vue core differences (FALLBACK)", Type: "summary"},
			},
			BPM: null.IntFrom(120),
		},
		{
			ID:        2,
			Name:      "TypeScript Complete Tutorial: From Basics to Practice",
			SourceRef: "K544Q2kHhW8",
			TimeLabels: []Marker{
				{Start: 10, End: 25, Label: "Type system introduction (FALLBACK)", Type: "summary"},
			},
		},
	}
}
