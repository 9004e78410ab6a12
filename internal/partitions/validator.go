package partitions

import (
	"limeinstall/internal/store"
)

// Size limits enforced on boot-related partitions, in decimal units.
const (
	MinESPSize      uint64 = 100 * 1000 * 1000
	MinBiosGrubSize uint64 = 1 * 1000 * 1000
	MaxBiosGrubSize uint64 = 2 * 1000 * 1000
	MinBootSize     uint64 = 300 * 1000 * 1000
)

// BootResult is the outcome of the boot-partition rules.
type BootResult int

const (
	BootValid BootResult = iota
	BootMissingESP
	BootESPNotFAT32
	BootESPTooSmall
	BootESPHasBiosGrub
	BootMissingBiosGrub
	BootBiosGrubHasFS
	BootBiosGrubWrongSize
	BootBiosGrubHasESP
	BootNoFS
	BootTooSmall
	BootHasBiosGrub
)

func (r BootResult) String() string {
	switch r {
	case BootValid:
		return "valid"
	case BootMissingESP:
		return "missing-esp"
	case BootESPNotFAT32:
		return "esp-not-fat32"
	case BootESPTooSmall:
		return "esp-too-small"
	case BootESPHasBiosGrub:
		return "uefi-has-bios-grub"
	case BootMissingBiosGrub:
		return "missing-bios-grub"
	case BootBiosGrubHasFS:
		return "bios-grub-has-fs"
	case BootBiosGrubWrongSize:
		return "bios-grub-wrong-size"
	case BootBiosGrubHasESP:
		return "bios-has-esp"
	case BootNoFS:
		return "boot-no-fs"
	case BootTooSmall:
		return "boot-too-small"
	case BootHasBiosGrub:
		return "boot-has-bios-grub"
	default:
		return "unknown"
	}
}

// Message returns the remediation text shown to the user.
func (r BootResult) Message() string {
	switch r {
	case BootValid:
		return ""
	case BootMissingESP:
		return "UEFI requires an EFI System Partition (ESP).\nAdd: FAT32, >=100MB, flag=esp, mount=/boot/efi"
	case BootESPNotFAT32:
		return "ESP must be formatted as FAT32.\nEdit the ESP and set filesystem to fat32."
	case BootESPTooSmall:
		return "ESP must be at least 100MB (300MB recommended).\nGo back and resize the ESP partition."
	case BootESPHasBiosGrub:
		return "UEFI mode forbids bios_grub partitions.\nRemove the bios_grub partition."
	case BootMissingBiosGrub:
		return "BIOS+GPT requires a BIOS boot partition.\nAdd: 1-2MB, no filesystem, flag=bios_grub"
	case BootBiosGrubHasFS:
		return "BIOS boot partition must have no filesystem.\nEdit it and set filesystem to 'none'."
	case BootBiosGrubWrongSize:
		return "BIOS boot partition must be 1-2MB.\nGo back and resize it."
	case BootBiosGrubHasESP:
		return "BIOS mode forbids ESP partitions.\nRemove the ESP partition."
	case BootNoFS:
		return "/boot partition must have a filesystem.\nEdit /boot and set a filesystem (ext4)."
	case BootTooSmall:
		return "/boot partition must be at least 300MB.\nGo back and resize /boot."
	case BootHasBiosGrub:
		return "/boot cannot have the bios_grub flag.\nEdit /boot and remove the bios_grub flag."
	default:
		return "Unknown boot partition error."
	}
}

// Issue identifies which rule category failed.
type Issue int

const (
	IssueNone Issue = iota
	IssueMissingRoot
	IssueDuplicateMount
	IssueBoot
)

const (
	missingRootMessage    = "A root (/) partition is required.\nGo back and add one to continue."
	duplicateMountMessage = "Multiple partitions share the same mount point.\nGo back and fix the configuration."
)

// ValidationError is the first rule a layout violates.
type ValidationError struct {
	Issue Issue
	Boot  BootResult // set when Issue is IssueBoot
}

func (e *ValidationError) Error() string {
	switch e.Issue {
	case IssueMissingRoot:
		return missingRootMessage
	case IssueDuplicateMount:
		return duplicateMountMessage
	default:
		return e.Boot.Message()
	}
}

// HasRoot reports whether some partition is mounted at "/".
func HasRoot(parts []store.Partition) bool {
	for _, p := range parts {
		if p.IsRoot() {
			return true
		}
	}
	return false
}

// HasDuplicateMounts reports whether two real mount points are equal.
// Pseudo-mounts such as "[bios]" never conflict.
func HasDuplicateMounts(parts []store.Partition) bool {
	seen := make(map[string]struct{}, len(parts))
	for _, p := range parts {
		if p.IsPseudoMount() {
			continue
		}
		if _, dup := seen[p.MountPoint]; dup {
			return true
		}
		seen[p.MountPoint] = struct{}{}
	}
	return false
}

// bootParts are the partitions the boot rules look at.
type bootParts struct {
	esp      *store.Partition
	biosGrub *store.Partition
	boot     *store.Partition // mounted at exactly /boot
}

func findBootParts(parts []store.Partition) bootParts {
	var b bootParts
	for i := range parts {
		p := &parts[i]
		if p.FlagESP {
			b.esp = p
		}
		if p.FlagBiosGrub {
			b.biosGrub = p
		}
		if p.MountPoint == "/boot" && b.boot == nil {
			b.boot = p
		}
	}
	return b
}

// bootCheck pairs a predicate with the result it produces. Checks run in
// slice order and the first one that fails wins.
type bootCheck struct {
	fails  func(b bootParts) bool
	result BootResult
}

var uefiChecks = []bootCheck{
	{func(b bootParts) bool { return b.esp == nil }, BootMissingESP},
	{func(b bootParts) bool { return b.esp.Filesystem != store.FSFAT32 }, BootESPNotFAT32},
	{func(b bootParts) bool { return b.esp.SizeBytes < MinESPSize }, BootESPTooSmall},
	{func(b bootParts) bool { return b.biosGrub != nil }, BootESPHasBiosGrub},
}

var biosChecks = []bootCheck{
	{func(b bootParts) bool { return b.biosGrub == nil }, BootMissingBiosGrub},
	{func(b bootParts) bool { return b.biosGrub.Filesystem != store.FSNone }, BootBiosGrubHasFS},
	{func(b bootParts) bool {
		return b.biosGrub.SizeBytes < MinBiosGrubSize || b.biosGrub.SizeBytes > MaxBiosGrubSize
	}, BootBiosGrubWrongSize},
	{func(b bootParts) bool { return b.esp != nil }, BootBiosGrubHasESP},
}

var bootMountChecks = []bootCheck{
	{func(b bootParts) bool { return b.boot.Filesystem == store.FSNone }, BootNoFS},
	{func(b bootParts) bool { return b.boot.SizeBytes < MinBootSize }, BootTooSmall},
	{func(b bootParts) bool { return b.boot.FlagBiosGrub }, BootHasBiosGrub},
}

func runChecks(b bootParts, checks []bootCheck) BootResult {
	for _, c := range checks {
		if c.fails(b) {
			return c.result
		}
	}
	return BootValid
}

// ValidateBoot applies the firmware-specific rules and then the /boot rules.
func ValidateBoot(parts []store.Partition, mode Mode) BootResult {
	b := findBootParts(parts)

	checks := biosChecks
	if mode == UEFI {
		checks = uefiChecks
	}
	if r := runChecks(b, checks); r != BootValid {
		return r
	}

	if b.boot != nil {
		return runChecks(b, bootMountChecks)
	}
	return BootValid
}

// Report holds the independent outcome of every rule category.
type Report struct {
	HasRoot       bool
	HasDuplicates bool
	Boot          BootResult
}

// Check evaluates all rule categories without short-circuiting.
func Check(parts []store.Partition, mode Mode) Report {
	return Report{
		HasRoot:       HasRoot(parts),
		HasDuplicates: HasDuplicateMounts(parts),
		Boot:          ValidateBoot(parts, mode),
	}
}

// CanInstall is the installation gate.
func (r Report) CanInstall() bool {
	return r.HasRoot && !r.HasDuplicates && r.Boot == BootValid
}

// Messages lists the remediation text of every failed category in rule order.
func (r Report) Messages() []string {
	var msgs []string
	if !r.HasRoot {
		msgs = append(msgs, missingRootMessage)
	}
	if r.HasDuplicates {
		msgs = append(msgs, duplicateMountMessage)
	}
	if r.Boot != BootValid {
		msgs = append(msgs, r.Boot.Message())
	}
	return msgs
}

// rules run in this order; the error shown to the user depends on it.
var rules = []func(parts []store.Partition, mode Mode) *ValidationError{
	func(parts []store.Partition, _ Mode) *ValidationError {
		if !HasRoot(parts) {
			return &ValidationError{Issue: IssueMissingRoot}
		}
		return nil
	},
	func(parts []store.Partition, _ Mode) *ValidationError {
		if HasDuplicateMounts(parts) {
			return &ValidationError{Issue: IssueDuplicateMount}
		}
		return nil
	},
	func(parts []store.Partition, mode Mode) *ValidationError {
		if r := ValidateBoot(parts, mode); r != BootValid {
			return &ValidationError{Issue: IssueBoot, Boot: r}
		}
		return nil
	},
}

// Validate returns the first violated rule as a *ValidationError, or nil.
func Validate(parts []store.Partition, mode Mode) error {
	for _, rule := range rules {
		if err := rule(parts, mode); err != nil {
			return err
		}
	}
	return nil
}
