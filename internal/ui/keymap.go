package ui

// Key binding constants used in handleKey.
const (
	KeyQuit      = "q"
	KeyCtrlC     = "ctrl+c"
	KeySpace     = " "
	KeyLanguage  = "l"
	KeyCopy      = "c"
	KeyEnter     = "enter"
	KeyEsc       = "esc"
	KeyRerequest = "r"
)
