// Package drives provides target disk detection for the installer.
// This module handles disk discovery and enumeration using lsblk.
package drives

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/siderolabs/go-cmd/pkg/cmd"
)

// probeTimeout bounds each read-only system probe.
const probeTimeout = 10 * time.Second

// probe runs a read-only system command and returns its stdout. Tests
// replace it.
var probe = cmd.RunContext

// lsblkArgs lists whole disks only, sizes in bytes.
var lsblkArgs = []string{"-J", "-b", "-d", "-o", "NAME,PATH,SIZE,MODEL,TYPE,TRAN,RM,RO"}

// LoadDisks scans for installable disks and returns them as a Bubble Tea command.
func LoadDisks() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), probeTimeout)
		defer cancel()

		disks, err := ListDisks(ctx)
		return DisksLoaded{Disks: disks, Err: err}
	}
}

// ListDisks returns every whole disk on the host, sorted by path. Disks with
// a mounted partition are returned with InUse set.
func ListDisks(ctx context.Context) ([]Disk, error) {
	out, err := probe(ctx, "lsblk", lsblkArgs...)
	if err != nil {
		return nil, fmt.Errorf("failed to list block devices: %w", err)
	}

	parsed, err := ParseLsblk([]byte(out))
	if err != nil {
		return nil, err
	}

	mounts, err := MountedDevices()
	if err != nil {
		// without mount information every disk would look free
		return nil, err
	}

	disks := make([]Disk, 0, len(parsed.BlockDevices))
	for _, dev := range parsed.BlockDevices {
		if !isTargetCandidate(dev) {
			continue
		}

		path := dev.Path
		if path == "" {
			path = "/dev/" + dev.Name
		}
		disk := Disk{
			Path:      path,
			Name:      dev.Name,
			SizeBytes: uint64(dev.Size),
			Model:     strings.TrimSpace(dev.Model),
			Transport: dev.Tran,
			Removable: bool(dev.RM),
			ReadOnly:  bool(dev.RO),
		}
		disk.MountPoints = mountsOnDisk(path, mounts)
		disk.InUse = len(disk.MountPoints) > 0

		disks = append(disks, disk)
	}

	sort.Slice(disks, func(i, j int) bool { return disks[i].Path < disks[j].Path })
	return disks, nil
}

// isTargetCandidate filters out virtual and optical devices.
func isTargetCandidate(dev LsblkDevice) bool {
	if dev.Type != "disk" {
		return false
	}
	for _, prefix := range []string{"loop", "ram", "zram", "sr"} {
		if strings.HasPrefix(dev.Name, prefix) {
			return false
		}
	}
	return true
}

// DiskSize returns the size of a block device in bytes.
func DiskSize(ctx context.Context, path string) (uint64, error) {
	out, err := probe(ctx, "blockdev", "--getsize64", path)
	if err != nil {
		return 0, fmt.Errorf("failed to read size of %s: %w", path, err)
	}
	size, err := strconv.ParseUint(strings.TrimSpace(out), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid size for %s: %w", path, err)
	}
	return size, nil
}

// FindDisk returns the disk with the given path.
func FindDisk(disks []Disk, path string) (Disk, bool) {
	for _, d := range disks {
		if d.Path == path {
			return d, true
		}
	}
	return Disk{}, false
}
