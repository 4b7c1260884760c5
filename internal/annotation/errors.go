package annotation

import "errors"

var (
	// ErrUnknownVideo is returned when a video id is not in the list.
	ErrUnknownVideo = errors.New("unknown video")
	// ErrNotArray is returned when a video list body is not a JSON array.
	ErrNotArray = errors.New("video list is not a JSON array")
)
