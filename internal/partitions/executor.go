package partitions

import (
	"fmt"
	"path"
	"sort"
	"strings"

	"github.com/dustin/go-humanize"
	"go.uber.org/zap"

	"limeinstall/internal/command"
	"limeinstall/internal/store"
)

// Executor failure codes, one per step kind.
const (
	CodeTable     = -1 // mklabel gpt
	CodeCreate    = -2 // mkpart
	CodeBootFlag  = -3 // set N boot on
	CodeFlag      = -4 // set N esp|bios_grub on
	CodeFormat    = -5 // mkfs / mkswap
	CodeNoRoot    = -6 // no partition mounted at /
	CodeMountRoot = -7 // mount root at the target
)

// TargetRoot is where the installed system is assembled.
const TargetRoot = "/mnt"

const (
	mib = 1024 * 1024

	// firstOffsetMiB leaves room for the primary GPT and alignment.
	firstOffsetMiB = 1
)

// Extent is the MiB range [Start, End) given to parted for one partition.
type Extent struct {
	Start uint64
	End   uint64
}

// Layout lays partitions out contiguously from 1 MiB in sequence order.
// Sizes are truncated to whole MiB with a floor of 1 MiB. When diskSize is
// known the last partition is clamped so it ends before the backup GPT.
func Layout(parts []store.Partition, diskSize uint64) []Extent {
	extents := make([]Extent, len(parts))
	start := uint64(firstOffsetMiB)
	for i, p := range parts {
		size := p.SizeBytes / mib
		if size == 0 {
			size = 1
		}
		extents[i] = Extent{Start: start, End: start + size}
		start += size
	}

	if n := len(extents); n > 0 && diskSize > 0 {
		limit := diskSize/mib - 1
		last := &extents[n-1]
		if last.End > limit && limit > last.Start {
			last.End = limit
		}
	}
	return extents
}

// Result carries the non-fatal outcome of Apply.
type Result struct {
	// Warnings aggregates failed advisory steps (swap activation, optional
	// mounts). It is nil when every step succeeded.
	Warnings error
}

// Executor applies a partition layout to a disk through a command.Runner.
// It never modifies the layout it is given.
type Executor struct {
	Runner command.Runner
	Log    *command.InstallLog
	Logger *zap.Logger
	Tick   command.TickFunc

	// Target is the mount point of the new root; defaults to TargetRoot.
	Target string

	// DiskSize, when non-zero, lets Layout clamp the last partition.
	DiskSize uint64
}

func (e *Executor) target() string {
	if e.Target == "" {
		return TargetRoot
	}
	return e.Target
}

func (e *Executor) sequence() command.Sequence {
	return command.Sequence{Runner: e.Runner, Tick: e.Tick, Log: e.Log, Logger: e.Logger}
}

// Apply creates a fresh GPT table on disk, creates and flags every partition,
// formats them, mounts root at the target and then mounts or activates the
// rest. The first fatal failure is returned as a *command.StepError; nothing
// already done is rolled back.
func (e *Executor) Apply(disk string, parts []store.Partition) (Result, error) {
	logger := e.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("applying partition layout", zap.String("disk", disk), zap.Int("partitions", len(parts)))

	extents := Layout(parts, e.DiskSize)
	for i, p := range parts {
		e.Log.Printf("partition %d: %s %s %s at %dMiB-%dMiB",
			i+1, p.MountPoint, p.Filesystem, humanize.Bytes(p.SizeBytes), extents[i].Start, extents[i].End)
	}

	var result Result
	if _, err := e.sequence().Run(e.PrepareSteps(disk, parts)); err != nil {
		return result, err
	}

	if rootIndex(parts) < 0 {
		return result, &command.StepError{Desc: "locate root partition", Code: CodeNoRoot}
	}

	warnings, err := e.sequence().Run(e.MountSteps(disk, parts))
	result.Warnings = warnings
	if warnings != nil {
		logger.Warn("partition layout applied with warnings", zap.Error(warnings))
	}
	return result, err
}

// PrepareSteps returns the table, partition, flag and format steps.
func (e *Executor) PrepareSteps(disk string, parts []store.Partition) []command.Step {
	qdisk := command.Quote(disk)
	steps := []command.Step{{
		Desc:    "create GPT partition table",
		Command: fmt.Sprintf("parted -s %s mklabel gpt", qdisk),
		Fatal:   true,
		Code:    CodeTable,
	}}

	for i, ext := range Layout(parts, e.DiskSize) {
		p := parts[i]
		n := i + 1
		steps = append(steps, command.Step{
			Desc:    fmt.Sprintf("create partition %d", n),
			Command: fmt.Sprintf("parted -s %s mkpart %s %dMiB %dMiB", qdisk, p.Type, ext.Start, ext.End),
			Fatal:   true,
			Code:    CodeCreate,
		})
		for _, flag := range p.Flags() {
			code := CodeFlag
			if flag == "boot" {
				code = CodeBootFlag
			}
			steps = append(steps, command.Step{
				Desc:    fmt.Sprintf("set %s flag on partition %d", flag, n),
				Command: fmt.Sprintf("parted -s %s set %d %s on", qdisk, n, flag),
				Fatal:   true,
				Code:    code,
			})
		}
	}

	for i, p := range parts {
		var format string
		dev := command.Quote(DeviceName(disk, i+1))
		switch p.Filesystem {
		case store.FSExt4:
			format = "mkfs.ext4 -F " + dev
		case store.FSSwap:
			format = "mkswap " + dev
		case store.FSFAT32:
			format = "mkfs.vfat -F 32 " + dev
		default:
			continue
		}
		steps = append(steps, command.Step{
			Desc:    fmt.Sprintf("format partition %d as %s", i+1, p.Filesystem),
			Command: format,
			Fatal:   true,
			Code:    CodeFormat,
		})
	}
	return steps
}

// MountSteps mounts root first, then activates swap and mounts the remaining
// absolute mount points, shallowest path first. Only the root mount is fatal.
func (e *Executor) MountSteps(disk string, parts []store.Partition) []command.Step {
	root := rootIndex(parts)
	if root < 0 {
		return nil
	}
	target := e.target()

	steps := []command.Step{{
		Desc:    "mount root partition",
		Command: fmt.Sprintf("mount %s %s", command.Quote(DeviceName(disk, root+1)), command.Quote(target)),
		Fatal:   true,
		Code:    CodeMountRoot,
	}}

	var mounts []int
	for i, p := range parts {
		if i == root {
			continue
		}
		dev := command.Quote(DeviceName(disk, i+1))
		switch {
		case p.Filesystem == store.FSSwap:
			steps = append(steps, command.Step{
				Desc:    fmt.Sprintf("enable swap on partition %d", i+1),
				Command: "swapon " + dev,
			})
		case strings.HasPrefix(p.MountPoint, "/") && !p.IsRoot():
			mounts = append(mounts, i)
		}
	}

	sort.SliceStable(mounts, func(a, b int) bool {
		return mountDepth(parts[mounts[a]].MountPoint) < mountDepth(parts[mounts[b]].MountPoint)
	})
	for _, i := range mounts {
		dir := command.Quote(path.Join(target, parts[i].MountPoint))
		steps = append(steps, command.Step{
			Desc:    fmt.Sprintf("mount partition %d at %s", i+1, parts[i].MountPoint),
			Command: fmt.Sprintf("mkdir -p %s && mount %s %s", dir, command.Quote(DeviceName(disk, i+1)), dir),
		})
	}
	return steps
}

func mountDepth(mountPoint string) int {
	return strings.Count(path.Clean(mountPoint), "/")
}

func rootIndex(parts []store.Partition) int {
	for i, p := range parts {
		if p.IsRoot() {
			return i
		}
	}
	return -1
}
