package command

import (
	"fmt"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"
)

// Step is one command in an ordered sequence. A fatal step stops the
// sequence on failure and reports Code; an advisory step only adds a warning.
type Step struct {
	Desc    string
	Command string
	Chroot  string // run inside this root when set
	Fatal   bool
	Code    int
}

// StepError is returned for the first fatal step that failed.
type StepError struct {
	Desc string
	Code int // code of the failed step
	Exit int // status reported by the Runner
	Err  error
}

func (e *StepError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (code %d): %v", e.Desc, e.Code, e.Err)
	}
	return fmt.Sprintf("%s (code %d): exit status %d", e.Desc, e.Code, e.Exit)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Sequence drives a list of steps through a Runner.
type Sequence struct {
	Runner Runner
	Tick   TickFunc
	Log    *InstallLog
	Logger *zap.Logger
}

// Run executes steps in order. It stops at the first failed fatal step and
// returns a *StepError; failed advisory steps are collected into warnings.
func (q Sequence) Run(steps []Step) (warnings error, err error) {
	logger := q.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	var advisories *multierror.Error
	for _, step := range steps {
		code, runErr := q.exec(step)
		if code == CodeSuccess && runErr == nil {
			continue
		}

		if step.Fatal {
			return advisories.ErrorOrNil(), &StepError{Desc: step.Desc, Code: step.Code, Exit: code, Err: runErr}
		}

		warning := fmt.Errorf("%s: exit status %d", step.Desc, code)
		if runErr != nil {
			warning = fmt.Errorf("%s: %w", step.Desc, runErr)
		}
		advisories = multierror.Append(advisories, warning)
		q.Log.Printf("warning: %v", warning)
		logger.Warn("advisory step failed", zap.String("step", step.Desc), zap.Int("code", code), zap.Error(runErr))
	}
	return advisories.ErrorOrNil(), nil
}

func (q Sequence) exec(step Step) (int, error) {
	if step.Chroot != "" {
		return q.Runner.ExecuteChroot(step.Chroot, step.Command, q.Tick)
	}
	return q.Runner.Execute(step.Command, q.Tick)
}
