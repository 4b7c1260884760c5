package app

// RunMsg carries work queued on the Loop.
type RunMsg struct {
	Fn func()
}

// PlayerPreparedMsg reports whether the player backend can be used.
type PlayerPreparedMsg struct {
	Err error
}

// ClearFlashMsg clears the flash line after a timeout.
type ClearFlashMsg struct {
	Seq int
}
