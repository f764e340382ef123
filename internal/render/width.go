package render

import "os"

// TerminalWidth returns the column count of the terminal behind f, or
// DefaultWidth when f is not a terminal.
func TerminalWidth(f *os.File) int {
	if f == nil {
		return DefaultWidth
	}
	if w, ok := terminalWidth(int(f.Fd())); ok && w > 0 {
		return w
	}
	return DefaultWidth
}
