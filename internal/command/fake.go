package command

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/shlex"
)

// FakeRunner records commands instead of running them. SideEffect, when set,
// decides the result of each command; otherwise every command succeeds.
// Chroot commands are recorded as "chroot <root> <command>".
type FakeRunner struct {
	SideEffect func(command string) (int, error)

	mu       sync.Mutex
	commands []string
}

func (f *FakeRunner) Execute(command string, tick TickFunc) (int, error) {
	return f.record(command, tick)
}

func (f *FakeRunner) ExecuteChroot(root, command string, tick TickFunc) (int, error) {
	return f.record(fmt.Sprintf("chroot %s %s", root, command), tick)
}

func (f *FakeRunner) record(command string, tick TickFunc) (int, error) {
	f.mu.Lock()
	f.commands = append(f.commands, command)
	f.mu.Unlock()

	if tick != nil {
		tick()
	}
	if f.SideEffect != nil {
		return f.SideEffect(command)
	}
	return CodeSuccess, nil
}

// Commands returns the recorded commands in call order.
func (f *FakeRunner) Commands() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.commands...)
}

// Matching returns the recorded commands that contain substr.
func (f *FakeRunner) Matching(substr string) []string {
	var out []string
	for _, c := range f.Commands() {
		if strings.Contains(c, substr) {
			out = append(out, c)
		}
	}
	return out
}

// Argv splits the i-th recorded command the way the shell would.
func (f *FakeRunner) Argv(i int) ([]string, error) {
	cmds := f.Commands()
	if i < 0 || i >= len(cmds) {
		return nil, fmt.Errorf("no command at index %d", i)
	}
	return shlex.Split(cmds[i])
}

// Reset forgets all recorded commands.
func (f *FakeRunner) Reset() {
	f.mu.Lock()
	f.commands = nil
	f.mu.Unlock()
}

// FailOn returns a SideEffect that fails every command containing substr
// with the given exit status.
func FailOn(substr string, status int) func(string) (int, error) {
	return func(command string) (int, error) {
		if strings.Contains(command, substr) {
			return status, nil
		}
		return CodeSuccess, nil
	}
}
