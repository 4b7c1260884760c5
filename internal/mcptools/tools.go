// Package mcptools exposes the annotation store as MCP tools.
package mcptools

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	jsoniter "github.com/json-iterator/go"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/jwulff/tubemarker/internal/annotation"
	"github.com/jwulff/tubemarker/internal/logger"
	"github.com/jwulff/tubemarker/internal/markertype"
	"github.com/jwulff/tubemarker/internal/timeline"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var errUnavailable = errors.New("remote store unavailable, showing built-in videos")

// Service serves tool calls against a Store. Calls are serialized and every
// call reloads the list so edits made elsewhere are seen.
type Service struct {
	mu       sync.Mutex
	store    *annotation.Store
	registry *markertype.Registry
}

// New returns a Service over store.
func New(store *annotation.Store, registry *markertype.Registry) *Service {
	return &Service{store: store, registry: registry}
}

// Register adds the tools to srv.
func (s *Service) Register(srv *server.MCPServer) {
	srv.AddTool(mcp.NewTool("list_videos",
		mcp.WithDescription("List annotated videos with their duration, BPM and marker count"),
	), s.listVideos)

	srv.AddTool(mcp.NewTool("list_markers",
		mcp.WithDescription("List a video's markers grouped by type"),
		mcp.WithNumber("video_id", mcp.Required(), mcp.Description("Video id from list_videos")),
	), s.listMarkers)

	srv.AddTool(mcp.NewTool("add_marker",
		mcp.WithDescription("Add a labeled marker to a video"),
		mcp.WithNumber("video_id", mcp.Required(), mcp.Description("Video id from list_videos")),
		mcp.WithNumber("start", mcp.Required(), mcp.Description("Start time in seconds")),
		mcp.WithNumber("end", mcp.Description("End time in seconds (defaults to start+1)")),
		mcp.WithString("type", mcp.Required(), mcp.Description("Marker type, e.g. question, summary, action, reference")),
		mcp.WithString("label", mcp.Required(), mcp.Description("Marker text")),
	), s.addMarker)
}

// NewServer returns an MCP server with the tools registered.
func NewServer(s *Service, version string) *server.MCPServer {
	srv := server.NewMCPServer("tubemarker", version, server.WithToolCapabilities(false))
	s.Register(srv)
	return srv
}

type videoSummary struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	VideoID  string `json:"videoId"`
	Duration string `json:"duration"`
	BPM      *int64 `json:"bpm"`
	Markers  int    `json:"markers"`
}

type markerView struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Label string `json:"label"`
}

type groupView struct {
	Type        string       `json:"type"`
	DisplayName string       `json:"displayName"`
	Color       string       `json:"color"`
	Markers     []markerView `json:"markers"`
}

// reload must be called with s.mu held.
func (s *Service) reload(ctx context.Context) error {
	if !s.store.Load(ctx) {
		return errUnavailable
	}
	return nil
}

func (s *Service) listVideos(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	loadErr := s.reload(ctx)

	out := make([]videoSummary, 0, len(s.store.Videos()))
	for _, v := range s.store.Videos() {
		out = append(out, videoSummary{
			ID:       v.ID,
			Name:     v.Name,
			VideoID:  v.SourceRef,
			Duration: timeline.FormatTime(v.Duration),
			BPM:      v.BPM.Ptr(),
			Markers:  len(v.TimeLabels),
		})
	}
	return jsonResult(out, loadErr)
}

func (s *Service) listMarkers(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("video_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	loadErr := s.reload(ctx)

	v, ok := s.store.Video(id)
	if !ok {
		return mcp.NewToolResultError(fmt.Sprintf("no video with id %d", id)), nil
	}

	groups := s.store.GroupMarkers(v)
	out := make([]groupView, 0, len(groups))
	for _, g := range groups {
		gv := groupView{Type: g.Key, DisplayName: g.DisplayName, Color: g.ColorHex}
		for _, m := range g.Markers {
			gv.Markers = append(gv.Markers, markerView{
				Start: timeline.FormatTime(m.Start),
				End:   timeline.FormatTime(m.End),
				Label: m.Label,
			})
		}
		out = append(out, gv)
	}
	return jsonResult(out, loadErr)
}

func (s *Service) addMarker(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	id, err := req.RequireInt("video_id")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	start, err := req.RequireInt("start")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	end := req.GetInt("end", start+1)
	typ, err := req.RequireString("type")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	label, err := req.RequireString("label")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	label = strings.TrimSpace(label)
	if label == "" {
		return mcp.NewToolResultError("label cannot be empty"), nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.reload(ctx); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if !s.store.AddMarker(id, start, end, typ, label) {
		return mcp.NewToolResultError(fmt.Sprintf("marker rejected for video %d: check the id, type and that 0 <= start <= end", id)), nil
	}
	if err := s.store.Wait(); err != nil {
		logger.Errorf("[MCP] marker for video %d not saved: %v", id, err)
		return mcp.NewToolResultError(fmt.Sprintf("marker for video %d could not be saved: %v", id, err)), nil
	}

	key, _ := markertype.Normalize(typ)
	logger.Infof("[MCP] added %q to video %d", label, id)
	return mcp.NewToolResultText(fmt.Sprintf("Added %s marker %q at %s~%s to video %d",
		s.registry.DisplayName(key), label, timeline.FormatTime(start), timeline.FormatTime(end), id)), nil
}

func jsonResult(v any, warn error) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode result: %w", err)
	}
	text := string(data)
	if warn != nil {
		text = "warning: " + warn.Error() + "\n" + text
	}
	return mcp.NewToolResultText(text), nil
}
