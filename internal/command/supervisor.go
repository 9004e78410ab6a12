package command

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// Status codes returned alongside the child's own exit status. A normal exit
// yields its exit status (0-255) with a nil error.
const (
	CodeSuccess = 0

	// CodeFailure is the generic failure status used when the child could not
	// enter its chroot.
	CodeFailure = 1

	// CodeSignaled means the child was terminated by a signal.
	CodeSignaled = -1

	// CodeSupervisorFailure means the command could not be started or waited for.
	CodeSupervisorFailure = -2
)

const (
	defaultShell        = "/bin/sh"
	defaultPollInterval = 50 * time.Millisecond
)

// TickFunc is called between polls while a child process is running.
type TickFunc func()

// Runner executes shell command lines. Implementations return the exit
// status of the command; err is non-nil only when the command could not be
// run to completion or ended abnormally.
type Runner interface {
	Execute(command string, tick TickFunc) (int, error)
	ExecuteChroot(root, command string, tick TickFunc) (int, error)
}

// SignalError reports a child that was terminated by a signal.
type SignalError struct {
	Signal syscall.Signal
}

func (e *SignalError) Error() string {
	return fmt.Sprintf("terminated by signal: %v", e.Signal)
}

// ErrChroot is returned when a chroot-flavoured command cannot enter its root.
var ErrChroot = errors.New("cannot enter chroot")

// Options configures a Supervisor.
type Options struct {
	DryRun       bool
	InstallLog   *InstallLog
	DryRunLog    *DryRunLog
	Logger       *zap.Logger
	Shell        string        // defaults to /bin/sh
	PollInterval time.Duration // defaults to 50ms
}

// Supervisor is the single choke point for external commands. At most one
// child is outstanding at a time and it is never killed: the supervisor only
// observes and reports.
type Supervisor struct {
	dryRun       bool
	installLog   *InstallLog
	dryRunLog    *DryRunLog
	logger       *zap.Logger
	shell        string
	pollInterval time.Duration
}

// NewSupervisor builds a Supervisor from opts.
func NewSupervisor(opts Options) *Supervisor {
	s := &Supervisor{
		dryRun:       opts.DryRun,
		installLog:   opts.InstallLog,
		dryRunLog:    opts.DryRunLog,
		logger:       opts.Logger,
		shell:        opts.Shell,
		pollInterval: opts.PollInterval,
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}
	if s.shell == "" {
		s.shell = defaultShell
	}
	if s.pollInterval <= 0 {
		s.pollInterval = defaultPollInterval
	}
	if s.dryRun && s.dryRunLog == nil {
		s.dryRunLog = NewDryRunLog(DryRunLogPath)
	}
	return s
}

// DryRun reports whether commands are diverted to the dry-run log.
func (s *Supervisor) DryRun() bool {
	return s.dryRun
}

// Execute runs command through the shell. Without a tick it blocks until the
// child exits; with a tick it polls the child and calls tick between polls.
func (s *Supervisor) Execute(command string, tick TickFunc) (int, error) {
	return s.execute("", command, tick)
}

// ExecuteChroot runs command with root as the child's root directory. The
// parent's root is never changed.
func (s *Supervisor) ExecuteChroot(root, command string, tick TickFunc) (int, error) {
	return s.execute(root, command, tick)
}

func (s *Supervisor) execute(root, command string, tick TickFunc) (int, error) {
	display := command
	if root != "" {
		display = fmt.Sprintf("chroot %s %s -c %s", Quote(root), s.shell, Quote(command))
	}

	s.installLog.Printf("$ %s", display)
	s.logger.Debug("executing command",
		zap.String("command", display),
		zap.Bool("dry_run", s.dryRun),
		zap.Bool("polled", tick != nil),
	)

	if s.dryRun {
		if err := s.dryRunLog.Record(display); err != nil {
			return CodeSupervisorFailure, fmt.Errorf("recording dry-run command: %w", err)
		}
		return CodeSuccess, nil
	}

	if root != "" {
		if info, err := os.Stat(root); err != nil || !info.IsDir() {
			s.installLog.Printf("cannot chroot into %s", root)
			return CodeFailure, fmt.Errorf("%w: %s", ErrChroot, root)
		}
	}

	stdin, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return CodeSupervisorFailure, fmt.Errorf("opening %s: %w", os.DevNull, err)
	}
	defer stdin.Close()

	output, err := s.installLog.File()
	if err != nil {
		output = stdin
	}

	cmd := exec.Command(s.shell, "-c", command)
	cmd.Stdin = stdin
	cmd.Stdout = output
	cmd.Stderr = output
	if root != "" {
		cmd.SysProcAttr = &syscall.SysProcAttr{Chroot: root}
		cmd.Dir = "/"
	}

	var code int
	if tick == nil {
		code, err = s.wait(cmd, root)
	} else {
		code, err = s.poll(cmd, root, tick)
	}

	if err != nil {
		s.installLog.Printf("command failed: %v", err)
		s.logger.Warn("command failed", zap.String("command", display), zap.Int("code", code), zap.Error(err))
	} else if code != CodeSuccess {
		s.installLog.Printf("command exited with status %d", code)
		s.logger.Debug("command exited non-zero", zap.String("command", display), zap.Int("code", code))
	}
	return code, err
}

// wait runs cmd to completion in the foreground.
func (s *Supervisor) wait(cmd *exec.Cmd, root string) (int, error) {
	err := cmd.Run()
	if err == nil {
		return CodeSuccess, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		if status, ok := exitErr.Sys().(syscall.WaitStatus); ok && status.Signaled() {
			return CodeSignaled, &SignalError{Signal: status.Signal()}
		}
		return exitErr.ExitCode(), nil
	}
	return startFailure(err, root)
}

// poll starts cmd and reaps it with a non-blocking wait, calling tick and
// sleeping between attempts.
func (s *Supervisor) poll(cmd *exec.Cmd, root string, tick TickFunc) (int, error) {
	if err := cmd.Start(); err != nil {
		return startFailure(err, root)
	}
	pid := cmd.Process.Pid
	defer cmd.Process.Release()

	for {
		var status unix.WaitStatus
		wpid, err := unix.Wait4(pid, &status, unix.WNOHANG, nil)
		if errors.Is(err, unix.EINTR) {
			continue
		}
		if err != nil {
			return CodeSupervisorFailure, fmt.Errorf("waiting for pid %d: %w", pid, err)
		}
		if wpid == pid {
			return fromWaitStatus(status)
		}

		tick()
		time.Sleep(s.pollInterval)
	}
}

func fromWaitStatus(status unix.WaitStatus) (int, error) {
	switch {
	case status.Exited():
		return status.ExitStatus(), nil
	case status.Signaled():
		return CodeSignaled, &SignalError{Signal: status.Signal()}
	default:
		return CodeSupervisorFailure, fmt.Errorf("unexpected wait status %#x", uint32(status))
	}
}

// startFailure maps an error from starting a child. Inside a chroot the
// failure happened on the child side and gets the generic failure status.
func startFailure(err error, root string) (int, error) {
	if root != "" {
		return CodeFailure, fmt.Errorf("%w %s: %v", ErrChroot, root, err)
	}
	return CodeSupervisorFailure, fmt.Errorf("starting command: %w", err)
}
