// Package sprint models iteration windows and their providers.
package sprint

import "time"

// Window is one time-boxed iteration against which capacity is computed.
type Window struct {
	ID            int
	Name          string
	Start         time.Time
	End           time.Time
	TotalDays     int
	RemainingDays int
}

// Provider supplies the active iteration window. A nil window with a nil
// error means no iteration is currently active.
type Provider interface {
	Active() (*Window, error)
}

// Static is a fixed-window Provider for tests and teams running a fixed
// cadence without a tracker.
type Static struct {
	Window *Window
}

// Active returns the configured window.
func (s Static) Active() (*Window, error) {
	return s.Window, nil
}

// FromDates builds a window with day counts derived from start/end.
func FromDates(id int, name string, start, end time.Time) *Window {
	w := &Window{ID: id, Name: name, Start: start, End: end}
	w.TotalDays = int(end.Sub(start).Hours() / 24)
	remaining := int(time.Until(end).Hours() / 24)
	if remaining < 0 {
		remaining = 0
	}
	if remaining > w.TotalDays {
		remaining = w.TotalDays
	}
	w.RemainingDays = remaining
	return w
}
