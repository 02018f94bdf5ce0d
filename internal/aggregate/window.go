package aggregate

import (
	"errors"
	"strings"
)

const (
	Window7D  Window = "7d"
	Window30D Window = "30d"
	WindowAll Window = "all"
)

// DefaultWindow is used when a caller does not pick one.
const DefaultWindow = Window30D

// Window selects how much of the cumulative series to summarize.
type Window string

var ErrUnknownWindow = errors.New("unknown window")

// ParseWindow accepts "7d", "30d" or "all". Blank input selects DefaultWindow.
func ParseWindow(s string) (Window, error) {
	switch w := Window(strings.ToLower(strings.TrimSpace(s))); w {
	case "":
		return DefaultWindow, nil
	case Window7D, Window30D, WindowAll:
		return w, nil
	default:
		return "", ErrUnknownWindow
	}
}

// Days returns the window length in days, or 0 for WindowAll.
func (w Window) Days() int {
	switch w {
	case Window7D:
		return 7
	case Window30D:
		return 30
	default:
		return 0
	}
}

// Windows lists the selectable windows in display order.
func Windows() []Window {
	return []Window{Window7D, Window30D, WindowAll}
}
