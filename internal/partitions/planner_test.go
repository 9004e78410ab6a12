package partitions

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limeinstall/internal/store"
)

func TestResolveMode(t *testing.T) {
	for _, tc := range []struct {
		detected bool
		override store.FirmwareOverride
		want     Mode
	}{
		{true, store.FirmwareAuto, UEFI},
		{false, store.FirmwareAuto, BIOS},
		{false, store.FirmwareForceUEFI, UEFI},
		{true, store.FirmwareForceBIOS, BIOS},
	} {
		assert.Equal(t, tc.want, ResolveMode(tc.detected, tc.override), "detected=%v override=%s", tc.detected, tc.override)
	}
}

func TestDetectUEFIUsesFirmwareDir(t *testing.T) {
	saved := efiDir
	defer func() { efiDir = saved }()

	efiDir = t.TempDir()
	assert.True(t, DetectUEFI())
	assert.Equal(t, UEFI, Detect(store.FirmwareAuto))

	efiDir = filepath.Join(t.TempDir(), "absent")
	assert.False(t, DetectUEFI())
	assert.Equal(t, UEFI, Detect(store.FirmwareForceUEFI))
}

func TestDeviceName(t *testing.T) {
	for disk, want := range map[string]string{
		"/dev/sda":       "/dev/sda1",
		"/dev/vdb":       "/dev/vdb1",
		"/dev/nvme0n1":   "/dev/nvme0n1p1",
		"/dev/mmcblk0":   "/dev/mmcblk0p1",
		"/dev/loop7":     "/dev/loop7p1",
		"/dev/disk/test": "/dev/disk/test1",
	} {
		assert.Equal(t, want, DeviceName(disk, 1), disk)
	}
	assert.Equal(t, "/dev/nvme0n1p12", DeviceName("/dev/nvme0n1", 12))
	assert.Equal(t, "/dev/sda12", DeviceName("/dev/sda", 12))
}

func TestPlanRejectsSmallDisks(t *testing.T) {
	for _, mode := range []Mode{UEFI, BIOS} {
		threshold := MinimumDiskSize(mode)
		for _, size := range []uint64{0, 1, threshold / 2, threshold - 1} {
			parts, err := Plan(size, mode)
			assert.ErrorIs(t, err, ErrDiskTooSmall, "mode=%s size=%d", mode, size)
			assert.Nil(t, parts)
		}
	}
}

func TestPlanIntoLeavesStoreUntouchedOnFailure(t *testing.T) {
	s := store.New()
	manual := store.Partition{SizeBytes: 5e9, MountPoint: "/", Filesystem: store.FSExt4}
	require.NoError(t, s.AddPartition(manual))

	err := PlanInto(s, MinimumDiskSize(UEFI)-1, UEFI)

	assert.ErrorIs(t, err, ErrDiskTooSmall)
	assert.Equal(t, []store.Partition{manual}, s.Partitions())
}

func TestPlanShapes(t *testing.T) {
	for _, mode := range []Mode{UEFI, BIOS} {
		threshold := MinimumDiskSize(mode)
		for _, size := range []uint64{threshold, threshold + 1, 20e9, 2e12} {
			parts, err := Plan(size, mode)
			require.NoError(t, err)
			require.Len(t, parts, 2)

			boot, root := parts[0], parts[1]
			assert.Equal(t, size, boot.SizeBytes+root.SizeBytes)
			assert.Equal(t, "/", root.MountPoint)
			assert.Equal(t, store.FSExt4, root.Filesystem)
			assert.Equal(t, BootSize(mode), boot.SizeBytes)

			if mode == UEFI {
				assert.Equal(t, store.FSFAT32, boot.Filesystem)
				assert.True(t, boot.FlagESP)
				assert.False(t, boot.FlagBiosGrub)
				assert.Equal(t, "/boot/efi", boot.MountPoint)
			} else {
				assert.Equal(t, store.FSNone, boot.Filesystem)
				assert.True(t, boot.FlagBiosGrub)
				assert.False(t, boot.FlagESP)
				assert.True(t, boot.IsPseudoMount())
			}

			assert.NoError(t, Validate(parts, mode), "planned layout must validate")
		}
	}
}

func TestPlanIntoOverwrites(t *testing.T) {
	s := store.New()
	for i := 0; i < 5; i++ {
		require.NoError(t, s.AddPartition(store.Partition{SizeBytes: 1e9, MountPoint: "/data"}))
	}

	require.NoError(t, PlanInto(s, 20e9, UEFI))

	parts := s.Partitions()
	require.Len(t, parts, 2)
	assert.Equal(t, "/boot/efi", parts[0].MountPoint)
	assert.Equal(t, uint64(19_700_000_000), parts[1].SizeBytes)
}

func TestAutofill(t *testing.T) {
	parts, err := Autofill(20e9, UEFI, 4e9)
	require.NoError(t, err)
	require.Len(t, parts, 3)
	assert.True(t, parts[0].FlagESP)
	assert.Equal(t, store.FSSwap, parts[1].Filesystem)
	assert.Equal(t, SwapMount, parts[1].MountPoint)
	assert.Equal(t, uint64(15_700_000_000), parts[2].SizeBytes)
	assert.NoError(t, Validate(parts, UEFI))

	// 6GB disk: root would drop under 4GB with 4GB of swap.
	parts, err = Autofill(6e9, BIOS, 4e9)
	require.NoError(t, err)
	require.Len(t, parts, 2)
	assert.True(t, parts[0].FlagBiosGrub)

	_, err = Autofill(1e9, UEFI, 1e9)
	assert.ErrorIs(t, err, ErrDiskTooSmall)
}
