// Package mpv drives mpv media player instances over their JSON IPC socket.
// Commands and replies are newline-delimited JSON; replies carry the
// request_id of the command they answer and events arrive interleaved.
package mpv

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Event names emitted by mpv.
const (
	EventFileLoaded     = "file-loaded"
	EventEndFile        = "end-file"
	EventPropertyChange = "property-change"
	EventShutdown       = "shutdown"
)

// Properties observed on every player.
const (
	PropTimePos        = "time-pos"
	PropDuration       = "duration"
	PropMediaTitle     = "media-title"
	PropPause          = "pause"
	PropEOFReached     = "eof-reached"
	PropPausedForCache = "paused-for-cache"
)

// Command is sent from a client to mpv.
type Command struct {
	Command   []any `json:"command"`
	RequestID int64 `json:"request_id"`
}

// Response is mpv's reply to a Command.
type Response struct {
	Error     string              `json:"error"`
	Data      jsoniter.RawMessage `json:"data,omitempty"`
	RequestID int64               `json:"request_id"`
}

// OK reports whether mpv accepted the command.
func (r Response) OK() bool {
	return r.Error == "success"
}

// Event is an asynchronous notification from mpv.
type Event struct {
	Event  string              `json:"event"`
	ID     int64               `json:"id,omitempty"`
	Name   string              `json:"name,omitempty"`
	Data   jsoniter.RawMessage `json:"data,omitempty"`
	Reason string              `json:"reason,omitempty"`
}

// CommandError is returned when mpv rejects a command.
type CommandError struct {
	Command string
	Reason  string
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("mpv %s: %s", e.Command, e.Reason)
}
