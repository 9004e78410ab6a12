// Package command runs shell commands on behalf of the installer.
//
// Every external tool the installer invokes goes through a Runner. The real
// Runner, Supervisor, either diverts commands to the dry-run log or runs them
// as child processes, and records each one in the diagnostic install log.
package command

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"sync"
)

const (
	// InstallLogPath is the diagnostic log shared by all phases.
	InstallLogPath = "/tmp/limeos-install.log"

	// DryRunLogPath receives one command per line when dry-run is active.
	DryRunLogPath = "/tmp/limeos-dry-run.log"

	headerRule = "--------------------------------------------------------------"
)

// lazyFile is a log file opened, and truncated, on first use and kept open
// until Close.
type lazyFile struct {
	path string

	mu   sync.Mutex
	file *os.File
}

func (l *lazyFile) get() (*os.File, error) {
	if l.file != nil {
		return l.file, nil
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", l.path, err)
	}
	l.file = f
	return f, nil
}

func (l *lazyFile) write(s string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	f, err := l.get()
	if err != nil {
		return err
	}
	_, err = f.WriteString(s)
	return err
}

func (l *lazyFile) close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}

// InstallLog is the diagnostic log that records phase headers, every
// supervised command and the output of those commands. A nil *InstallLog
// discards everything.
type InstallLog struct {
	lazyFile
}

// NewInstallLog returns a log backed by path. Nothing is created on disk until
// the first write.
func NewInstallLog(path string) *InstallLog {
	return &InstallLog{lazyFile{path: path}}
}

// Path returns the file backing the log.
func (l *InstallLog) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

// Header writes a framed section title, one per phase.
func (l *InstallLog) Header(name string) {
	if l == nil {
		return
	}
	_ = l.write(fmt.Sprintf("\n%s\n  %s\n%s\n\n", headerRule, name, headerRule))
}

// Printf appends one line of free-form text.
func (l *InstallLog) Printf(format string, args ...any) {
	if l == nil {
		return
	}
	line := fmt.Sprintf(format, args...)
	if !strings.HasSuffix(line, "\n") {
		line += "\n"
	}
	_ = l.write(line)
}

// File returns the open log file so that child processes can write their
// output straight into it.
func (l *InstallLog) File() (*os.File, error) {
	if l == nil {
		return nil, os.ErrInvalid
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.get()
}

// Tail returns at most n of the last lines of the log.
func (l *InstallLog) Tail(n int) ([]string, error) {
	if l == nil || n <= 0 {
		return nil, nil
	}
	f, err := os.Open(l.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	lines := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if len(lines) == n {
			copy(lines, lines[1:])
			lines = lines[:n-1]
		}
		lines = append(lines, scanner.Text())
	}
	return lines, scanner.Err()
}

// Close releases the file handle. A later write reopens and truncates it.
func (l *InstallLog) Close() error {
	if l == nil {
		return nil
	}
	return l.close()
}

// DryRunLog collects the commands that would have run.
type DryRunLog struct {
	lazyFile
}

func NewDryRunLog(path string) *DryRunLog {
	return &DryRunLog{lazyFile{path: path}}
}

// Record appends command as a single line.
func (d *DryRunLog) Record(command string) error {
	return d.write(command + "\n")
}

func (d *DryRunLog) Path() string {
	return d.path
}

func (d *DryRunLog) Close() error {
	return d.close()
}

// Quote wraps s in single quotes for safe use in a shell command line.
func Quote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}
