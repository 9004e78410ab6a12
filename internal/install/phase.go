// Package install runs the installation phases in order against a confirmed
// configuration and reports their progress.
package install

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Phase is one top-level stage of installation.
type Phase int

const (
	PhasePartition Phase = iota
	PhaseRootfs
	PhaseBootloader
	PhaseLocale
)

// Phases lists every phase in execution order.
var Phases = []Phase{PhasePartition, PhaseRootfs, PhaseBootloader, PhaseLocale}

// Install result codes, one per phase.
const (
	CodeSuccess    = 0
	CodeDisk       = -1
	CodeExtract    = -2
	CodeBootloader = -3
	CodeLocale     = -4
)

// ExitAborted is the process exit code when the user aborts the installer.
const ExitAborted = 130

func (p Phase) String() string {
	switch p {
	case PhasePartition:
		return "partition"
	case PhaseRootfs:
		return "rootfs"
	case PhaseBootloader:
		return "bootloader"
	case PhaseLocale:
		return "locale"
	default:
		return "unknown"
	}
}

// Title is the label shown on the progress screen.
func (p Phase) Title() string {
	switch p {
	case PhasePartition:
		return "Partitioning disk"
	case PhaseRootfs:
		return "Extracting system files"
	case PhaseBootloader:
		return "Installing bootloader"
	case PhaseLocale:
		return "Configuring locale"
	default:
		return p.String()
	}
}

// Code is the install result code reported when the phase fails.
func (p Phase) Code() int {
	switch p {
	case PhasePartition:
		return CodeDisk
	case PhaseRootfs:
		return CodeExtract
	case PhaseBootloader:
		return CodeBootloader
	case PhaseLocale:
		return CodeLocale
	default:
		return CodeDisk
	}
}

// ParsePhase converts a phase name back into a Phase.
func ParsePhase(s string) (Phase, error) {
	for _, p := range Phases {
		if strings.EqualFold(strings.TrimSpace(s), p.String()) {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown phase %q", s)
}

// ParsePhases parses a list of phase names, as given to --skip.
func ParsePhases(names []string) ([]Phase, error) {
	var phases []Phase
	for _, name := range names {
		if strings.TrimSpace(name) == "" {
			continue
		}
		p, err := ParsePhase(name)
		if err != nil {
			return nil, err
		}
		phases = append(phases, p)
	}
	return phases, nil
}

// EventKind is the kind of progress event.
type EventKind int

const (
	EventStarted EventKind = iota
	EventSucceeded
	EventFailed
)

func (k EventKind) String() string {
	switch k {
	case EventStarted:
		return "started"
	case EventSucceeded:
		return "succeeded"
	case EventFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Event is emitted to the progress sink at every phase transition.
type Event struct {
	Kind  EventKind
	Phase Phase
	Code  int   // install code of the phase; CodeSuccess unless Kind is EventFailed
	Err   error // the phase error for EventFailed, warnings for EventSucceeded
}

// ProgressFunc receives progress events. It is called from the goroutine
// running the installation.
type ProgressFunc func(Event)

// Error is returned when a phase fails. Err keeps the most specific cause,
// usually a *command.StepError carrying the step code.
type Error struct {
	Phase Phase
	Code  int
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s failed (code %d): %v", strings.ToLower(e.Phase.Title()), e.Code, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// ExitCode maps the result of an installation to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	var ierr *Error
	if errors.As(err, &ierr) {
		return -ierr.Code
	}
	if errors.Is(err, context.Canceled) {
		return ExitAborted
	}
	return 1
}
