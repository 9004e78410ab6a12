package partitions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limeinstall/internal/store"
)

func esp(size uint64) store.Partition {
	return store.Partition{SizeBytes: size, MountPoint: "/boot/efi", Filesystem: store.FSFAT32, FlagESP: true}
}

func biosGrub(size uint64) store.Partition {
	return store.Partition{SizeBytes: size, MountPoint: "[bios]", Filesystem: store.FSNone, FlagBiosGrub: true}
}

func mounted(mp string, size uint64) store.Partition {
	return store.Partition{SizeBytes: size, MountPoint: mp, Filesystem: store.FSExt4}
}

func bootResult(t *testing.T, err error) BootResult {
	t.Helper()
	var verr *ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, IssueBoot, verr.Issue)
	return verr.Boot
}

func TestValidateRuleOrder(t *testing.T) {
	// no root, duplicate mounts and no ESP: root is reported first
	parts := []store.Partition{mounted("/data", 1e9), mounted("/data", 1e9)}
	var verr *ValidationError
	require.ErrorAs(t, Validate(parts, UEFI), &verr)
	assert.Equal(t, IssueMissingRoot, verr.Issue)

	// with root, duplicates are reported before boot problems
	parts = append(parts, mounted("/", 10e9))
	require.ErrorAs(t, Validate(parts, UEFI), &verr)
	assert.Equal(t, IssueDuplicateMount, verr.Issue)

	// both categories are visible independently in the report
	report := Check(parts, UEFI)
	assert.True(t, report.HasRoot)
	assert.True(t, report.HasDuplicates)
	assert.Equal(t, BootMissingESP, report.Boot)
	assert.False(t, report.CanInstall())
	assert.Len(t, report.Messages(), 2)
}

func TestDuplicateMountRegardlessOfMode(t *testing.T) {
	for _, mode := range []Mode{UEFI, BIOS} {
		parts := []store.Partition{esp(300e6), biosGrub(2e6), mounted("/", 10e9), mounted("/data", 1e9), mounted("/data", 2e9)}
		var verr *ValidationError
		require.ErrorAs(t, Validate(parts, mode), &verr)
		assert.Equal(t, IssueDuplicateMount, verr.Issue, mode.String())
	}
}

func TestPseudoMountsNeverDuplicate(t *testing.T) {
	parts := []store.Partition{biosGrub(2e6), biosGrub(2e6), mounted("/", 10e9)}
	assert.False(t, HasDuplicateMounts(parts))
}

func TestMissingESPClearedByAddingOne(t *testing.T) {
	parts := []store.Partition{mounted("/", 10e9)}
	assert.Equal(t, BootMissingESP, bootResult(t, Validate(parts, UEFI)))

	parts = append(parts, esp(150e6))
	assert.NoError(t, Validate(parts, UEFI))
}

func TestBiosGrubSizeWindow(t *testing.T) {
	parts := []store.Partition{biosGrub(3e6), mounted("/", 10e9)}
	assert.Equal(t, BootBiosGrubWrongSize, bootResult(t, Validate(parts, BIOS)))

	parts[0].SizeBytes = 1.5e6
	assert.NoError(t, Validate(parts, BIOS))

	parts[0].SizeBytes = MinBiosGrubSize - 1
	assert.Equal(t, BootBiosGrubWrongSize, ValidateBoot(parts, BIOS))
}

func TestBootRules(t *testing.T) {
	root := mounted("/", 10e9)
	for _, tc := range []struct {
		name  string
		mode  Mode
		parts []store.Partition
		want  BootResult
	}{
		{"uefi valid", UEFI, []store.Partition{esp(300e6), root}, BootValid},
		{"esp not fat32", UEFI, []store.Partition{{SizeBytes: 300e6, MountPoint: "/boot/efi", Filesystem: store.FSExt4, FlagESP: true}, root}, BootESPNotFAT32},
		{"esp too small", UEFI, []store.Partition{esp(MinESPSize - 1), root}, BootESPTooSmall},
		{"esp at minimum", UEFI, []store.Partition{esp(MinESPSize), root}, BootValid},
		{"uefi with bios_grub", UEFI, []store.Partition{esp(300e6), biosGrub(2e6), root}, BootESPHasBiosGrub},
		{"bios valid", BIOS, []store.Partition{biosGrub(2e6), root}, BootValid},
		{"missing bios_grub", BIOS, []store.Partition{root}, BootMissingBiosGrub},
		{"bios_grub with fs", BIOS, []store.Partition{{SizeBytes: 2e6, MountPoint: "[bios]", Filesystem: store.FSFAT32, FlagBiosGrub: true}, root}, BootBiosGrubHasFS},
		{"bios with esp", BIOS, []store.Partition{biosGrub(1e6), esp(300e6), root}, BootBiosGrubHasESP},
		{"boot without fs", UEFI, []store.Partition{esp(300e6), {SizeBytes: 500e6, MountPoint: "/boot", Filesystem: store.FSNone}, root}, BootNoFS},
		{"boot too small", UEFI, []store.Partition{esp(300e6), mounted("/boot", 200e6), root}, BootTooSmall},
		{"boot with bios_grub", UEFI, []store.Partition{esp(300e6), {SizeBytes: 500e6, MountPoint: "/boot", Filesystem: store.FSExt4, FlagBiosGrub: true}, root}, BootESPHasBiosGrub},
		{"bios boot with bios_grub flag", BIOS, []store.Partition{{SizeBytes: 2e6, MountPoint: "/boot", Filesystem: store.FSNone, FlagBiosGrub: true}, root}, BootNoFS},
		{"boot/efi is not /boot", UEFI, []store.Partition{esp(300e6), root}, BootValid},
		{"valid /boot", BIOS, []store.Partition{biosGrub(2e6), mounted("/boot", 512e6), root}, BootValid},
	} {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ValidateBoot(tc.parts, tc.mode))
			if tc.want != BootValid {
				assert.NotEmpty(t, tc.want.Message())
			}
		})
	}
}

func TestValidateIsPure(t *testing.T) {
	parts := []store.Partition{esp(300e6), mounted("/", 10e9), mounted("/home", 5e9), mounted("/var", 3e9)}
	before := append([]store.Partition(nil), parts...)

	first := Check(parts, UEFI)
	second := Check(parts, UEFI)
	assert.Equal(t, first, second)
	assert.Equal(t, before, parts)

	parts[2], parts[3] = parts[3], parts[2]
	assert.Equal(t, first, Check(parts, UEFI))
	assert.True(t, first.CanInstall())
	assert.Empty(t, first.Messages())
}

func TestValidationErrorMessages(t *testing.T) {
	assert.Contains(t, (&ValidationError{Issue: IssueMissingRoot}).Error(), "root (/)")
	assert.Contains(t, (&ValidationError{Issue: IssueDuplicateMount}).Error(), "same mount point")
	assert.Contains(t, (&ValidationError{Issue: IssueBoot, Boot: BootMissingESP}).Error(), "EFI System Partition")
	assert.Equal(t, "bios-grub-wrong-size", BootBiosGrubWrongSize.String())
}
