//go:build !unix

package render

func terminalWidth(int) (int, bool) { return 0, false }
