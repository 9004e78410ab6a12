// Package state defines the Bubble Tea messages exchanged between the wizard
// and its background work.
package state

import (
	"limeinstall/internal/install"
)

// AnimateMsg is sent periodically while the progress screen is shown to
// advance the spinner and the sweeping progress bar highlight.
type AnimateMsg struct{}

// PhaseState is the display state of one installation phase.
type PhaseState int

const (
	PhasePending PhaseState = iota
	PhaseRunning
	PhaseDone
	PhaseFailed
	PhaseSkipped
)

func (s PhaseState) String() string {
	switch s {
	case PhaseRunning:
		return "running"
	case PhaseDone:
		return "done"
	case PhaseFailed:
		return "failed"
	case PhaseSkipped:
		return "skipped"
	default:
		return "pending"
	}
}

// PhaseStatus pairs a phase with its state and the last event details.
type PhaseStatus struct {
	Phase    install.Phase
	State    PhaseState
	Code     int   // phase code when failed
	Warnings error // advisory failures reported on success
}

// InstallProgress reports the state of a running installation.
type InstallProgress struct {
	Phases  []PhaseStatus
	Ticks   int      // supervisor heartbeats since the attempt started
	LogTail []string // last lines of the install log
	Done    bool     // true when the orchestrator returned
	Err     error    // non-nil if the attempt failed or was aborted
}

// Completed returns how many phases are done or skipped.
func (p InstallProgress) Completed() int {
	n := 0
	for _, ph := range p.Phases {
		if ph.State == PhaseDone || ph.State == PhaseSkipped {
			n++
		}
	}
	return n
}

// DiskSizeMsg carries the size of the disk selected in the wizard.
type DiskSizeMsg struct {
	Path string
	Size uint64
	Err  error
}

// ErrorMsg represents an error that must be dismissed by the user
type ErrorMsg struct {
	Message string
}
