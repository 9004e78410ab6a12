// Package drives provides target disk detection for the installer.
// This module defines the core types used throughout the drives package.
package drives

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Disk is a whole block device that can be chosen as installation target.
type Disk struct {
	Path      string // Device path (e.g., "/dev/sda", "/dev/nvme0n1")
	Name      string // Kernel name (e.g., "sda")
	SizeBytes uint64
	Model     string
	Transport string // "sata", "nvme", "usb", ... when lsblk reports it
	Removable bool
	ReadOnly  bool

	// InUse is set when a partition of the disk is mounted on the host,
	// typically the live medium itself.
	InUse       bool
	MountPoints []string
}

// Label returns the name shown in the disk list.
func (d Disk) Label() string {
	if d.Model != "" {
		return d.Model
	}
	if d.Removable {
		return "Removable Disk"
	}
	return "Disk"
}

// Selectable reports whether the disk may be used as installation target.
func (d Disk) Selectable() bool {
	return !d.InUse && !d.ReadOnly && d.SizeBytes > 0
}

// DisksLoaded is a Bubble Tea message containing the results of disk enumeration.
type DisksLoaded struct {
	Disks []Disk
	Err   error
}

// lsblkSize accepts both the numeric and the quoted form of the SIZE column;
// util-linux switched from strings to numbers for -b output.
type lsblkSize uint64

func (s *lsblkSize) UnmarshalJSON(data []byte) error {
	data = bytes.Trim(data, `"`)
	if len(data) == 0 || string(data) == "null" {
		*s = 0
		return nil
	}
	n, err := strconv.ParseUint(string(data), 10, 64)
	if err != nil {
		return fmt.Errorf("invalid lsblk size %q: %w", data, err)
	}
	*s = lsblkSize(n)
	return nil
}

// lsblkBool accepts true/false as well as the "0"/"1" used by older lsblk.
type lsblkBool bool

func (b *lsblkBool) UnmarshalJSON(data []byte) error {
	switch string(bytes.Trim(data, `"`)) {
	case "true", "1":
		*b = true
	case "false", "0", "", "null":
		*b = false
	default:
		return fmt.Errorf("invalid lsblk flag %s", data)
	}
	return nil
}

// LsblkDevice represents a block device from lsblk JSON output.
type LsblkDevice struct {
	Name  string    `json:"name"`
	Path  string    `json:"path"`
	Size  lsblkSize `json:"size"`
	Model string    `json:"model"`
	Type  string    `json:"type"`
	Tran  string    `json:"tran"`
	RM    lsblkBool `json:"rm"`
	RO    lsblkBool `json:"ro"`
}

// LsblkOutput represents the root JSON structure from lsblk command.
type LsblkOutput struct {
	BlockDevices []LsblkDevice `json:"blockdevices"`
}

// ParseLsblk decodes lsblk -J output.
func ParseLsblk(out []byte) (LsblkOutput, error) {
	var parsed LsblkOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return LsblkOutput{}, fmt.Errorf("failed to parse lsblk output: %w", err)
	}
	return parsed, nil
}
