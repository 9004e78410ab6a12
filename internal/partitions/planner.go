package partitions

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"

	"limeinstall/internal/store"
)

// Sizes used by the automatic layout, in decimal units.
const (
	ESPSize      uint64 = 300 * 1000 * 1000
	BiosGrubSize uint64 = 2 * 1000 * 1000
	MinRootSize  uint64 = 4 * 1000 * 1000 * 1000
)

// ErrDiskTooSmall is returned when the disk cannot hold the boot partition
// plus the minimum root size.
var ErrDiskTooSmall = errors.New("disk is too small for automatic partitioning")

// BootSize returns the boot partition size reserved for mode.
func BootSize(mode Mode) uint64 {
	if mode == UEFI {
		return ESPSize
	}
	return BiosGrubSize
}

// MinimumDiskSize is the smallest disk the automatic layout accepts.
func MinimumDiskSize(mode Mode) uint64 {
	return BootSize(mode) + MinRootSize
}

// Plan computes the automatic layout: a boot partition shaped by the firmware
// mode followed by an ext4 root taking the rest of the disk.
func Plan(diskSize uint64, mode Mode) ([]store.Partition, error) {
	bootSize := BootSize(mode)
	if diskSize < bootSize+MinRootSize {
		return nil, fmt.Errorf("%w: needs %s, disk has %s",
			ErrDiskTooSmall, humanize.Bytes(MinimumDiskSize(mode)), humanize.Bytes(diskSize))
	}

	boot := store.Partition{SizeBytes: bootSize, Type: store.Primary}
	if mode == UEFI {
		boot.MountPoint = "/boot/efi"
		boot.Filesystem = store.FSFAT32
		boot.FlagESP = true
	} else {
		boot.MountPoint = "[bios]"
		boot.Filesystem = store.FSNone
		boot.FlagBiosGrub = true
	}

	root := store.Partition{
		SizeBytes:  diskSize - bootSize,
		MountPoint: "/",
		Filesystem: store.FSExt4,
		Type:       store.Primary,
	}

	return []store.Partition{boot, root}, nil
}

// PlanInto runs Plan and, only on success, overwrites the partition sequence
// of s with the result.
func PlanInto(s *store.Store, diskSize uint64, mode Mode) error {
	parts, err := Plan(diskSize, mode)
	if err != nil {
		return err
	}
	return s.ReplacePartitions(parts)
}

// SwapMount is the pseudo-mount used for swap partitions.
const SwapMount = "[swap]"

// Autofill is the manual editor's starting layout: the automatic layout with
// a swap partition of swapSize inserted before root. Swap is dropped when it
// would push root under MinRootSize.
func Autofill(diskSize uint64, mode Mode, swapSize uint64) ([]store.Partition, error) {
	parts, err := Plan(diskSize, mode)
	if err != nil {
		return nil, err
	}

	root := parts[1]
	if swapSize == 0 || root.SizeBytes < swapSize+MinRootSize {
		return parts, nil
	}

	swap := store.Partition{
		SizeBytes:  swapSize,
		MountPoint: SwapMount,
		Filesystem: store.FSSwap,
		Type:       store.Primary,
	}
	root.SizeBytes -= swapSize

	return []store.Partition{parts[0], swap, root}, nil
}
