package install

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"limeinstall/internal/command"
	"limeinstall/internal/partitions"
	"limeinstall/internal/store"
)

// DefaultRootfs is the rootfs archive shipped on the live medium.
const DefaultRootfs = "assets/placeholder-rootfs.gz"

// Orchestrator runs the installation phases in order. A failed phase aborts
// the remaining ones. Run may be called again after a failure; every attempt
// after the first releases the target root before partitioning again.
type Orchestrator struct {
	Runner   command.Runner
	Log      *command.InstallLog
	Logger   *zap.Logger
	Progress ProgressFunc
	Tick     command.TickFunc

	// Skip holds phases that are not run, for development builds.
	Skip map[Phase]bool

	// Target is the mount point of the new root; defaults to partitions.TargetRoot.
	Target string

	// Rootfs is the archive extracted into the target; defaults to DefaultRootfs.
	Rootfs string

	// DiskSize is passed to the executor to clamp the last partition.
	DiskSize uint64

	// DryRun skips host-side checks such as the rootfs archive existing.
	DryRun bool

	// DetectUEFI reports the host firmware; defaults to partitions.DetectUEFI.
	DetectUEFI func() bool

	// ReleaseTimeout bounds how long the target is retried while busy.
	ReleaseTimeout  time.Duration
	ReleaseInterval time.Duration

	mu       sync.Mutex
	attempts int
}

// Attempts returns how many times Run has been called.
func (o *Orchestrator) Attempts() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.attempts
}

func (o *Orchestrator) logger() *zap.Logger {
	if o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o *Orchestrator) target() string {
	if o.Target == "" {
		return partitions.TargetRoot
	}
	return o.Target
}

func (o *Orchestrator) rootfs() string {
	if o.Rootfs == "" {
		return DefaultRootfs
	}
	return o.Rootfs
}

func (o *Orchestrator) mode(cfg store.Config) partitions.Mode {
	detect := o.DetectUEFI
	if detect == nil {
		detect = partitions.DetectUEFI
	}
	return partitions.ResolveMode(detect(), cfg.ForceUEFI)
}

func (o *Orchestrator) sequence() command.Sequence {
	return command.Sequence{Runner: o.Runner, Tick: o.Tick, Log: o.Log, Logger: o.Logger}
}

func (o *Orchestrator) emit(ev Event) {
	if o.Progress != nil {
		o.Progress(ev)
	}
}

// Run installs cfg. It returns nil on success, a *Error naming the failed
// phase, or the context error when ctx is cancelled between phases.
func (o *Orchestrator) Run(ctx context.Context, cfg store.Config) error {
	o.mu.Lock()
	o.attempts++
	attempt := o.attempts
	o.mu.Unlock()

	logger := o.logger().With(zap.Int("attempt", attempt))
	mode := o.mode(cfg)

	if attempt > 1 {
		o.Log.Header(fmt.Sprintf("Releasing target (attempt %d)", attempt))
		if err := o.Release(cfg); err != nil {
			logger.Warn("target release incomplete", zap.Error(err))
			o.Log.Printf("warning: %v", err)
		}
	}

	o.Log.Header(fmt.Sprintf("Installing LimeOS to %s (%s, attempt %d)", cfg.Disk, mode, attempt))
	logger.Info("installation started",
		zap.String("disk", cfg.Disk),
		zap.String("mode", mode.String()),
		zap.Int("partitions", cfg.PartitionCount()))

	for _, phase := range Phases {
		if err := ctx.Err(); err != nil {
			logger.Warn("installation cancelled", zap.Stringer("before", phase))
			return err
		}
		if o.Skip[phase] {
			o.Log.Printf("%s: skipped", phase.Title())
			logger.Info("phase skipped", zap.Stringer("phase", phase))
			continue
		}

		o.Log.Header(phase.Title())
		o.emit(Event{Kind: EventStarted, Phase: phase})
		start := time.Now()

		warnings, err := o.runPhase(phase, cfg, mode)
		if err != nil {
			ierr := &Error{Phase: phase, Code: phase.Code(), Err: err}
			o.Log.Printf("%s: FAILED: %v", phase.Title(), err)
			logger.Error("phase failed", zap.Stringer("phase", phase), zap.Int("code", ierr.Code), zap.Error(err))
			o.emit(Event{Kind: EventFailed, Phase: phase, Code: ierr.Code, Err: ierr})
			return ierr
		}

		o.Log.Printf("%s: OK", phase.Title())
		logger.Info("phase succeeded", zap.Stringer("phase", phase), zap.Duration("took", time.Since(start)))
		o.emit(Event{Kind: EventSucceeded, Phase: phase, Err: warnings})
	}

	o.Log.Header("Installation complete")
	logger.Info("installation complete")
	return nil
}

func (o *Orchestrator) runPhase(phase Phase, cfg store.Config, mode partitions.Mode) (warnings error, err error) {
	switch phase {
	case PhasePartition:
		return o.partition(cfg)
	case PhaseRootfs:
		return nil, o.extractRootfs()
	case PhaseBootloader:
		return o.installBootloader(cfg.Disk, mode)
	case PhaseLocale:
		return o.configureLocale(cfg.Locale)
	default:
		return nil, fmt.Errorf("unknown phase %d", phase)
	}
}

func (o *Orchestrator) partition(cfg store.Config) (warnings error, err error) {
	exec := &partitions.Executor{
		Runner:   o.Runner,
		Log:      o.Log,
		Logger:   o.Logger,
		Tick:     o.Tick,
		Target:   o.target(),
		DiskSize: o.DiskSize,
	}
	result, err := exec.Apply(cfg.Disk, cfg.Partitions)
	return result.Warnings, err
}
