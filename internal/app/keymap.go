package app

// Key binding constants used in handleKey.
const (
	KeyQuit       = "q"
	KeyQuitUpper  = "Q"
	KeyCtrlC      = "ctrl+c"
	KeySpace      = " "
	KeyEnter      = "enter"
	KeyEsc        = "esc"
	KeyUp         = "up"
	KeyDown       = "down"
	KeyLeft       = "left"
	KeyRight      = "right"
	KeyJ          = "j"
	KeyK          = "k"
	KeyTap        = "t"
	KeyCommitBPM  = "b"
	KeyResetTaps  = "r"
	KeyNewType    = "n"
	KeyMarkHere   = "m"
	KeyClearType  = "0"
	SeekStepSecs  = 5
	MaxTypeHotkey = 9
)
