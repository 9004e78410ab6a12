// Package drives provides target disk detection for the installer.
// This module maps mounted filesystems back to the disks they live on.
package drives

import (
	"fmt"
	"strings"

	"github.com/shirou/gopsutil/v3/disk"
)

// Mount is one mounted block device.
type Mount struct {
	Device     string
	MountPoint string
}

// partitionLister reads the host mount table. Tests replace it.
var partitionLister = disk.Partitions

// MountedDevices returns every mounted block device on the host.
func MountedDevices() ([]Mount, error) {
	stats, err := partitionLister(false)
	if err != nil {
		return nil, fmt.Errorf("failed to read mount table: %w", err)
	}

	mounts := make([]Mount, 0, len(stats))
	for _, st := range stats {
		if !strings.HasPrefix(st.Device, "/dev/") {
			continue
		}
		mounts = append(mounts, Mount{Device: st.Device, MountPoint: st.Mountpoint})
	}
	return mounts, nil
}

// BelongsTo reports whether device is diskPath itself or one of its
// partitions ("/dev/sda2" on "/dev/sda", "/dev/nvme0n1p1" on "/dev/nvme0n1").
func BelongsTo(device, diskPath string) bool {
	if device == diskPath {
		return true
	}
	rest, ok := strings.CutPrefix(device, diskPath)
	if !ok || rest == "" {
		return false
	}
	if last := diskPath[len(diskPath)-1]; last >= '0' && last <= '9' {
		rest, ok = strings.CutPrefix(rest, "p")
		if !ok || rest == "" {
			return false
		}
	}
	for _, r := range rest {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// mountsOnDisk returns the mount points of every partition of diskPath.
func mountsOnDisk(diskPath string, mounts []Mount) []string {
	var points []string
	for _, m := range mounts {
		if BelongsTo(m.Device, diskPath) {
			points = append(points, m.MountPoint)
		}
	}
	return points
}
