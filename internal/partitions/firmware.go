// Package partitions plans, validates and applies the GPT layout of the
// target disk.
//
// The Planner builds the two-partition layout used by the easy method, the
// Validator decides whether a layout may be installed for the firmware mode,
// and the Executor turns a layout into parted, mkfs and mount commands.
package partitions

import (
	"os"
	"strconv"
	"unicode"

	"limeinstall/internal/store"
)

// Mode is the firmware boot mode of the machine being installed.
type Mode int

const (
	BIOS Mode = iota
	UEFI
)

func (m Mode) String() string {
	if m == UEFI {
		return "UEFI"
	}
	return "BIOS"
}

// efiDir exists only when the running kernel was booted through UEFI.
var efiDir = "/sys/firmware/efi"

// DetectUEFI reports whether the host booted in UEFI mode.
func DetectUEFI() bool {
	_, err := os.Stat(efiDir)
	return err == nil
}

// ResolveMode applies the user's override to the detected firmware mode.
func ResolveMode(detectedUEFI bool, override store.FirmwareOverride) Mode {
	switch override {
	case store.FirmwareForceUEFI:
		return UEFI
	case store.FirmwareForceBIOS:
		return BIOS
	}
	if detectedUEFI {
		return UEFI
	}
	return BIOS
}

// Detect returns the firmware mode of the host, honouring override.
func Detect(override store.FirmwareOverride) Mode {
	return ResolveMode(DetectUEFI(), override)
}

// DeviceName returns the device path of partition number n (1-based) on disk.
// Disks whose name ends in a digit (nvme0n1, mmcblk0, loop0) take a "p"
// separator; sdX-style disks take the number directly.
func DeviceName(disk string, n int) string {
	if disk == "" {
		return strconv.Itoa(n)
	}
	last := rune(disk[len(disk)-1])
	if unicode.IsDigit(last) {
		return disk + "p" + strconv.Itoa(n)
	}
	return disk + strconv.Itoa(n)
}
