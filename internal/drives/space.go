// Package drives provides target disk detection for the installer.
// This module handles size parsing and free-space arithmetic for the editor.
package drives

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dustin/go-humanize"

	"limeinstall/internal/store"
)

// ErrNoSpace is returned when a partition does not fit in the free space.
var ErrNoSpace = errors.New("not enough free space on disk")

// ParseSize converts human-readable size strings to bytes.
// Accepts SI and IEC units ("512M", "20GB", "1.5TiB"); a bare number is bytes.
func ParseSize(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty size")
	}
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", s, err)
	}
	if n == 0 {
		return 0, fmt.Errorf("size must be greater than zero")
	}
	return n, nil
}

// FreeBytes is what is left of diskSize after the planned partitions.
func FreeBytes(diskSize uint64, parts []store.Partition) uint64 {
	var used uint64
	for _, p := range parts {
		used += p.SizeBytes
	}
	if used >= diskSize {
		return 0
	}
	return diskSize - used
}

// CheckFits verifies that a partition of size bytes fits next to parts,
// excluding the partition at index skip (the one being edited, or -1).
func CheckFits(diskSize uint64, parts []store.Partition, skip int, size uint64) error {
	if diskSize == 0 {
		return nil
	}
	others := make([]store.Partition, 0, len(parts))
	for i, p := range parts {
		if i != skip {
			others = append(others, p)
		}
	}
	free := FreeBytes(diskSize, others)
	if size > free {
		return fmt.Errorf("%w: %s requested, %s free", ErrNoSpace, FormatBytes(size), FormatBytes(free))
	}
	return nil
}
