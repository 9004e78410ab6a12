// Package internal provides the background installation driver for the wizard.
//
// The orchestrator runs in its own goroutine while the Bubble Tea program
// keeps rendering. Progress events and supervisor heartbeats are folded into
// an installTracker; the UI polls it with tea.Tick and never blocks on the
// installation itself.
package internal

import (
	"context"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"limeinstall/internal/command"
	"limeinstall/internal/install"
	"limeinstall/internal/state"
	"limeinstall/internal/store"
)

// Polling cadence for the progress screen.
const (
	progressPollInterval = 200 * time.Millisecond
	animateInterval      = 100 * time.Millisecond
	logTailLines         = 8
)

// installTracker collects orchestrator events for the UI. All methods are
// safe for concurrent use.
type installTracker struct {
	mu     sync.Mutex
	phases []state.PhaseStatus
	ticks  int
	done   bool
	err    error
}

func newInstallTracker() *installTracker {
	t := &installTracker{}
	t.reset(nil)
	return t
}

// reset prepares the tracker for a new attempt. Skipped phases never emit
// events, so they are marked up front.
func (t *installTracker) reset(skip map[install.Phase]bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.phases = make([]state.PhaseStatus, len(install.Phases))
	for i, p := range install.Phases {
		t.phases[i] = state.PhaseStatus{Phase: p, State: state.PhasePending}
		if skip[p] {
			t.phases[i].State = state.PhaseSkipped
		}
	}
	t.ticks = 0
	t.done = false
	t.err = nil
}

// observe is the orchestrator's progress sink.
func (t *installTracker) observe(ev install.Event) {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i := range t.phases {
		if t.phases[i].Phase != ev.Phase {
			continue
		}
		switch ev.Kind {
		case install.EventStarted:
			t.phases[i].State = state.PhaseRunning
		case install.EventSucceeded:
			t.phases[i].State = state.PhaseDone
			t.phases[i].Warnings = ev.Err
		case install.EventFailed:
			t.phases[i].State = state.PhaseFailed
			t.phases[i].Code = ev.Code
		}
	}
}

// heartbeat is the supervisor tick callback.
func (t *installTracker) heartbeat() {
	t.mu.Lock()
	t.ticks++
	t.mu.Unlock()
}

func (t *installTracker) finish(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.done = true
	t.err = err
}

func (t *installTracker) snapshot() state.InstallProgress {
	t.mu.Lock()
	defer t.mu.Unlock()
	return state.InstallProgress{
		Phases: append([]state.PhaseStatus(nil), t.phases...),
		Ticks:  t.ticks,
		Done:   t.done,
		Err:    t.err,
	}
}

// startInstall launches one installation attempt in the background and
// returns the initial progress message.
func startInstall(ctx context.Context, orch *install.Orchestrator, cfg store.Config, tracker *installTracker, logger *zap.Logger) tea.Cmd {
	return func() tea.Msg {
		tracker.reset(orch.Skip)
		orch.Progress = tracker.observe
		orch.Tick = tracker.heartbeat

		go func() {
			err := orch.Run(ctx, cfg)
			if err != nil {
				logger.Error("installation failed", zap.Error(err), zap.Int("exit_code", install.ExitCode(err)))
			} else {
				logger.Info("installation complete", zap.String("disk", cfg.Disk))
			}
			tracker.finish(err)
		}()

		return tracker.snapshot()
	}
}

// CheckInstallProgress polls the tracker and the install log tail.
func CheckInstallProgress(tracker *installTracker, log *command.InstallLog) tea.Cmd {
	return tea.Tick(progressPollInterval, func(time.Time) tea.Msg {
		progress := tracker.snapshot()
		if lines, err := log.Tail(logTailLines); err == nil {
			progress.LogTail = lines
		}
		return progress
	})
}

// animate schedules the next spinner frame.
func animate() tea.Cmd {
	return tea.Tick(animateInterval, func(time.Time) tea.Msg {
		return state.AnimateMsg{}
	})
}
