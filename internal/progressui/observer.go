// Package progressui defines the ProgressObserver contract the download
// engine reports through and ships two concrete renderers: a bubbletea TUI
// for interactive terminals and a schollz/progressbar/v3 fallback
// otherwise.
package progressui

// ProgressObserver receives numeric progress updates: segment counts from
// the Segment Downloader, byte counts from the progressive downloader. The
// engine depends only on this interface, never on a concrete renderer.
type ProgressObserver interface {
	// Start is called once total is known (segment count, or byte count
	// for a progressive download).
	Start(total int)
	// Advance is called once per segment that finishes, in completion
	// order (not playlist order), or once per chunk written for a
	// progressive download, with a human label for the current unit.
	Advance(completed, total int, label string)
	// Done is called exactly once when the job reaches a terminal state.
	Done(err error)
}

// Noop discards every update; used by callers (tests, library consumers)
// that don't want terminal output.
type Noop struct{}

func (Noop) Start(int)                    {}
func (Noop) Advance(int, int, string)      {}
func (Noop) Done(error)                    {}
