// Package store holds the installer configuration collected by the wizard.
//
// This package defines:
//   - Partition, the in-memory description of one planned partition
//   - Enumerations for filesystems, partition types, firmware override and method
//   - Store, the process-wide configuration with a bounded partition sequence
//
// Enumerations implement encoding.TextMarshaler so that preseed files can spell
// them as plain words ("ext4", "easy", "force-uefi").
package store

import (
	"fmt"
	"strings"
)

// Filesystem is the filesystem a partition is formatted with.
type Filesystem int

const (
	FSExt4  Filesystem = iota // journaled root/data filesystem
	FSSwap                    // swap signature
	FSFAT32                   // FAT32, required for the ESP
	FSNone                    // left unformatted (bios_grub)
)

// Filesystems lists every filesystem in the order the editor cycles through them.
var Filesystems = []Filesystem{FSExt4, FSSwap, FSFAT32, FSNone}

// String returns the name used in commands, preseeds and the UI.
func (f Filesystem) String() string {
	switch f {
	case FSExt4:
		return "ext4"
	case FSSwap:
		return "swap"
	case FSFAT32:
		return "fat32"
	case FSNone:
		return "none"
	default:
		return "unknown"
	}
}

// ParseFilesystem converts a filesystem name back into a Filesystem.
func ParseFilesystem(s string) (Filesystem, error) {
	for _, f := range Filesystems {
		if strings.EqualFold(s, f.String()) {
			return f, nil
		}
	}
	return FSNone, fmt.Errorf("unknown filesystem %q", s)
}

func (f Filesystem) MarshalText() ([]byte, error) {
	return []byte(f.String()), nil
}

func (f *Filesystem) UnmarshalText(text []byte) error {
	parsed, err := ParseFilesystem(string(text))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// PartitionType is the parted partition type.
type PartitionType int

const (
	Primary PartitionType = iota
	Logical
)

func (t PartitionType) String() string {
	if t == Logical {
		return "logical"
	}
	return "primary"
}

func (t PartitionType) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *PartitionType) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "primary", "":
		*t = Primary
	case "logical":
		*t = Logical
	default:
		return fmt.Errorf("unknown partition type %q", string(text))
	}
	return nil
}

// PseudoMountPrefix marks a mount point that is never mounted, such as "[bios]".
const PseudoMountPrefix = "["

// Partition describes one planned partition. Its position in the sequence is
// its on-disk position: device suffix = index+1.
type Partition struct {
	SizeBytes    uint64        `yaml:"size_bytes"`
	MountPoint   string        `yaml:"mount_point"`
	Filesystem   Filesystem    `yaml:"filesystem"`
	Type         PartitionType `yaml:"type"`
	FlagBoot     bool          `yaml:"flag_boot,omitempty"`
	FlagESP      bool          `yaml:"flag_esp,omitempty"`
	FlagBiosGrub bool          `yaml:"flag_bios_grub,omitempty"`
}

// IsPseudoMount reports whether the mount point is a bracket placeholder.
func (p Partition) IsPseudoMount() bool {
	return strings.HasPrefix(p.MountPoint, PseudoMountPrefix)
}

// IsRoot reports whether the partition is mounted at "/".
func (p Partition) IsRoot() bool {
	return p.MountPoint == "/"
}

// Flags returns the enabled flag names in parted spelling.
func (p Partition) Flags() []string {
	var flags []string
	if p.FlagBoot {
		flags = append(flags, "boot")
	}
	if p.FlagESP {
		flags = append(flags, "esp")
	}
	if p.FlagBiosGrub {
		flags = append(flags, "bios_grub")
	}
	return flags
}
