package install

import (
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/siderolabs/go-retry/retry"
	"go.uber.org/zap"

	"limeinstall/internal/command"
	"limeinstall/internal/partitions"
	"limeinstall/internal/store"
)

// Release defaults.
const (
	DefaultReleaseTimeout  = 10 * time.Second
	DefaultReleaseInterval = 500 * time.Millisecond
)

// Release undoes what a failed attempt left active on the host so the disk
// can be partitioned again: swap on the planned partitions is turned off and
// the target root is unmounted recursively, retried while it is busy.
func (o *Orchestrator) Release(cfg store.Config) error {
	var errs *multierror.Error

	var steps []command.Step
	for i, p := range cfg.Partitions {
		if p.Filesystem != store.FSSwap {
			continue
		}
		steps = append(steps, command.Step{
			Desc:    fmt.Sprintf("disable swap on partition %d", i+1),
			Command: "swapoff " + command.Quote(partitions.DeviceName(cfg.Disk, i+1)),
		})
	}
	if warnings, _ := o.sequence().Run(steps); warnings != nil {
		errs = multierror.Append(errs, warnings)
	}

	if err := o.unmountTarget(); err != nil {
		errs = multierror.Append(errs, err)
	}
	return errs.ErrorOrNil()
}

func (o *Orchestrator) unmountTarget() error {
	timeout, interval := o.ReleaseTimeout, o.ReleaseInterval
	if timeout <= 0 {
		timeout = DefaultReleaseTimeout
	}
	if interval <= 0 {
		interval = DefaultReleaseInterval
	}
	target := command.Quote(o.target())

	return retry.Constant(timeout, retry.WithUnits(interval)).Retry(func() error {
		code, err := o.Runner.Execute("mountpoint -q "+target, o.Tick)
		if err != nil {
			return retry.UnexpectedError(err)
		}
		if code != command.CodeSuccess {
			return nil
		}

		code, err = o.Runner.Execute("umount -R "+target, o.Tick)
		if err != nil {
			return retry.UnexpectedError(err)
		}
		if code != command.CodeSuccess {
			o.logger().Debug("target busy, retrying unmount", zap.Int("code", code))
			return retry.ExpectedError(fmt.Errorf("umount -R %s: exit status %d", target, code))
		}
		return nil
	})
}
