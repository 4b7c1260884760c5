package annotation

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/remeh/sizedwaitgroup"
	"gopkg.in/guregu/null.v4"

	"github.com/jwulff/tubemarker/internal/logger"
	"github.com/jwulff/tubemarker/internal/markertype"
)

const writeTimeout = 10 * time.Second

// Remote is the video store the list is loaded from and written back to.
type Remote interface {
	FetchVideos(ctx context.Context) ([]byte, error)
	ReplaceVideos(ctx context.Context, body []byte) error
}

// Store is the in-memory video list. It is not safe for concurrent use; all
// calls are made from the UI event loop. Writes to the remote run in the
// background, one at a time, and only the newest pending snapshot is sent.
type Store struct {
	videos   []*Video
	registry *markertype.Registry
	remote   Remote

	// writer is sized to one so at most one flush goroutine exists.
	writer   sizedwaitgroup.SizedWaitGroup
	wmu      sync.Mutex
	pending  []byte
	flushing bool
	lastErr  error
}

// New creates an empty Store.
func New(remote Remote, registry *markertype.Registry) *Store {
	return &Store{
		registry: registry,
		remote:   remote,
		writer:   sizedwaitgroup.New(1),
	}
}

// Load replaces the list with the remote one, falling back to the built-in
// seed videos on any failure. It reports whether the remote list was used.
func (s *Store) Load(ctx context.Context) bool {
	logger.Infof("[AnnotationStore] loading videos")

	body, err := s.remote.FetchVideos(ctx)
	if err == nil {
		var videos []*Video
		videos, err = DecodeVideos(body)
		if err == nil {
			s.videos = videos
			logger.Infof("[AnnotationStore] loaded %d videos", len(videos))
			return true
		}
	}

	logger.Errorf("[AnnotationStore] load failed, using fallback videos: %v", err)
	s.videos = seedVideos()
	return false
}

// Videos returns the live list. Callers must not retain it across mutations.
func (s *Store) Videos() []*Video {
	return s.videos
}

// Video returns the video with id.
func (s *Store) Video(id int) (*Video, bool) {
	for _, v := range s.videos {
		if v.ID == id {
			return v, true
		}
	}
	return nil, false
}

// AddMarker adds a marker to a video and persists the list. Unknown videos
// and invalid markers are logged and ignored.
func (s *Store) AddMarker(videoID, start, end int, typ, label string) bool {
	v, ok := s.Video(videoID)
	if !ok {
		logger.Warnf("[AnnotationStore] add marker: unknown video %d", videoID)
		return false
	}
	key, ok := markertype.Normalize(typ)
	if !ok {
		logger.Warnf("[AnnotationStore] add marker: empty type for video %d", videoID)
		return false
	}
	if start < 0 || end < start {
		logger.Warnf("[AnnotationStore] add marker: invalid range %d~%d for video %d", start, end, videoID)
		return false
	}

	labels := append(append([]Marker(nil), v.TimeLabels...), Marker{
		Start: start,
		End:   end,
		Label: label,
		Type:  key,
	})
	sortMarkers(labels)
	v.TimeLabels = labels

	s.persist()
	logger.Infof("[AnnotationStore] video %d: added %q [%s] at %d~%d", videoID, label, key, start, end)
	return true
}

// SetBPM stores a committed tempo on a video and persists the list.
func (s *Store) SetBPM(videoID, bpm int) error {
	v, ok := s.Video(videoID)
	if !ok {
		return ErrUnknownVideo
	}
	v.BPM = null.IntFrom(int64(bpm))
	s.persist()
	logger.Infof("[AnnotationStore] video %d: bpm set to %d", videoID, bpm)
	return nil
}

// ApplyPlayerInfo records the duration reported by a ready player and adopts
// the player's title while the video still carries its raw source id as name.
// The list is persisted when anything changed.
func (s *Store) ApplyPlayerInfo(videoID, duration int, title string) bool {
	v, ok := s.Video(videoID)
	if !ok {
		return false
	}

	changed := false
	if v.Duration != duration {
		v.Duration = duration
		changed = true
	}
	if !v.Renamed() && title != "" {
		v.Name = title
		changed = true
	}
	if changed {
		s.persist()
	}
	return changed
}

// GroupMarkers groups a video's markers by type. Only types with markers are
// returned, ordered by key; markers within a group are ordered by start.
// Types missing from the registry are registered on the way.
func (s *Store) GroupMarkers(v *Video) []Group {
	if v == nil {
		return nil
	}

	byKey := map[string]*Group{}
	for _, m := range v.TimeLabels {
		key, ok := markertype.Normalize(m.Type)
		if !ok {
			continue
		}
		g, ok := byKey[key]
		if !ok {
			hex := s.registry.Resolve(key)
			t, _ := s.registry.Lookup(key)
			g = &Group{Key: key, DisplayName: t.DisplayName, ColorHex: hex}
			byKey[key] = g
		}
		g.Markers = append(g.Markers, m)
	}

	groups := make([]Group, 0, len(byKey))
	for _, g := range byKey {
		sortMarkers(g.Markers)
		groups = append(groups, *g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Key < groups[j].Key })
	return groups
}

func (s *Store) persist() {
	s.Persist(s.videos)
}

// Persist writes the durable fields of videos to the remote store in the
// background. An empty list is never written. A snapshot still waiting when a
// newer one arrives is replaced by it. Failures are logged and dropped.
func (s *Store) Persist(videos []*Video) {
	if len(videos) == 0 {
		logger.Warnf("[AnnotationStore] nothing to save, skipping write")
		return
	}

	body, err := EncodeVideos(videos)
	if err != nil {
		logger.Errorf("[AnnotationStore] save failed: %v", err)
		return
	}

	logger.Debugf("[AnnotationStore] saving %d videos", len(videos))

	s.wmu.Lock()
	if s.pending != nil {
		logger.Debugf("[AnnotationStore] dropping superseded snapshot")
	}
	s.pending = body
	if s.flushing {
		s.wmu.Unlock()
		return
	}
	s.flushing = true
	s.wmu.Unlock()

	s.writer.Add()
	go s.flush()
}

// flush sends pending snapshots until none is left.
func (s *Store) flush() {
	defer s.writer.Done()

	for {
		s.wmu.Lock()
		body := s.pending
		s.pending = nil
		if body == nil {
			s.flushing = false
			s.wmu.Unlock()
			return
		}
		s.wmu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := s.remote.ReplaceVideos(ctx, body)
		cancel()
		if err != nil {
			logger.Errorf("[AnnotationStore] save failed: %v", err)
		}

		s.wmu.Lock()
		s.lastErr = err
		s.wmu.Unlock()
	}
}

// Wait blocks until background writes have finished and returns the error of
// the last one, nil when it succeeded or nothing was written.
func (s *Store) Wait() error {
	s.writer.Wait()

	s.wmu.Lock()
	defer s.wmu.Unlock()
	return s.lastErr
}

// sortMarkers orders markers by start, keeping insertion order for ties.
func sortMarkers(markers []Marker) {
	sort.SliceStable(markers, func(i, j int) bool { return markers[i].Start < markers[j].Start })
}
