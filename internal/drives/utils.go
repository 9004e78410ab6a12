// Package drives provides target disk detection for the installer.
// This module contains utility functions used across the drives package.
package drives

import (
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v3/mem"
)

// FormatBytes formats byte counts into human-readable size in decimal
// units, matching how disk vendors and the partition sizes are spelled.
//
//	FormatBytes(300000000)   -> "300 MB"
//	FormatBytes(19700000000) -> "20 GB"
func FormatBytes(bytes uint64) string {
	return humanize.Bytes(bytes)
}

// memoryReader reads host memory statistics. Tests replace it.
var memoryReader = mem.VirtualMemory

// SystemMemory returns the total RAM of the host in bytes.
func SystemMemory() (uint64, error) {
	vm, err := memoryReader()
	if err != nil {
		return 0, fmt.Errorf("failed to read memory info: %w", err)
	}
	return vm.Total, nil
}

// Swap suggestion bounds.
const (
	minSwapSuggestion uint64 = 1000 * 1000 * 1000
	maxSwapSuggestion uint64 = 8 * 1000 * 1000 * 1000
)

// SuggestSwapSize proposes a swap partition equal to system RAM, clamped to
// a sensible range. It falls back to the minimum when RAM is unknown.
func SuggestSwapSize() uint64 {
	total, err := SystemMemory()
	if err != nil || total < minSwapSuggestion {
		return minSwapSuggestion
	}
	if total > maxSwapSuggestion {
		return maxSwapSuggestion
	}
	return total
}
