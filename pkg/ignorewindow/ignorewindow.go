// Package ignorewindow implements the fixed-length window that opens when the robot has
// travelled far enough for an intersection to be expected.
package ignorewindow

// DefaultBudget is the window length in control ticks (8.5s at 1kHz).
const DefaultBudget = 8500

// Window is owned by a single task; it is not safe for concurrent use.
type Window struct {
	Budget uint32

	active bool
	count  uint32
}

func New(budget uint32) *Window {
	return &Window{Budget: budget}
}

// Activate opens the window.  It returns false and does nothing if the window is already
// open; the window is not extended.
func (w *Window) Activate() bool {
	if w.active {
		return false
	}
	w.active = true
	w.count = 0
	return true
}

// Tick advances an open window by one tick and returns true on the tick that closes it.
// Ticks while closed are ignored.
func (w *Window) Tick() (expired bool) {
	if !w.active {
		return false
	}
	w.count++
	if w.count >= w.Budget {
		w.active = false
		w.count = 0
		return true
	}
	return false
}

// Remaining returns the number of ticks left in an open window, or 0 when closed.
func (w *Window) Remaining() uint32 {
	if !w.active {
		return 0
	}
	return w.Budget - w.count
}
