package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limeinstall/internal/drives"
	"limeinstall/internal/screens"
	"limeinstall/internal/store"
)

func TestExactSize(t *testing.T) {
	tests := []struct {
		in   uint64
		want string
	}{
		{0, ""},
		{20e9, "20GB"},
		{300e6, "300MB"},
		{2e6, "2MB"},
		{1_500_000_000, "1500MB"},
		{1234, "1234"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, exactSize(tt.in))

		if tt.in > 0 {
			n, err := drives.ParseSize(tt.want)
			require.NoError(t, err)
			assert.Equal(t, tt.in, n, "%q does not round-trip", tt.want)
		}
	}
}

func TestNewPartitionFormDefaults(t *testing.T) {
	f := newPartitionForm(nil, 20e9)
	assert.Equal(t, -1, f.index)
	assert.Equal(t, "/", f.mountPoint())
	assert.Equal(t, "20GB", f.size)
	assert.Equal(t, store.FSExt4, f.fs)

	root := store.Partition{SizeBytes: 15e9, MountPoint: "/", Filesystem: store.FSExt4}
	f = newPartitionForm([]store.Partition{root}, 20e9)
	assert.Equal(t, "/home", f.mountPoint())
	assert.Equal(t, "5GB", f.size)

	f = newPartitionForm([]store.Partition{{SizeBytes: 20e9, MountPoint: "/"}}, 20e9)
	assert.Empty(t, f.size)
}

func TestPartitionFormPresets(t *testing.T) {
	f := newPartitionForm(nil, 20e9)
	f.field = screens.FieldMount

	f.mount = screens.IndexOf(screens.MountPresets, "/boot")
	f.cycle(1)
	assert.Equal(t, "/boot/efi", f.mountPoint())
	assert.Equal(t, store.FSFAT32, f.fs)
	assert.True(t, f.esp)

	f.mount = screens.IndexOf(screens.MountPresets, "[bios]")
	f.applyPreset()
	assert.Equal(t, store.FSNone, f.fs)
	assert.True(t, f.biosGrub)
	assert.False(t, f.esp)
	assert.Equal(t, "2MB", f.size)

	f.mount = screens.IndexOf(screens.MountPresets, "[swap]")
	f.applyPreset()
	assert.Equal(t, store.FSSwap, f.fs)
	assert.False(t, f.biosGrub)

	// wraps from the last preset back to "/"
	f.mount = len(screens.MountPresets) - 1
	f.cycle(1)
	assert.Equal(t, "/", f.mountPoint())
	assert.Equal(t, store.FSExt4, f.fs)

	f.field = screens.FieldFilesystem
	f.cycle(-1)
	assert.Equal(t, store.Filesystems[len(store.Filesystems)-1], f.fs)

	f.field = screens.FieldType
	f.cycle(1)
	assert.Equal(t, store.Logical, f.ptype)
}

func TestPartitionFormSizeInput(t *testing.T) {
	f := newPartitionForm(nil, 20e9)
	f.size = ""
	for _, r := range "512M!" {
		f.typeRune(r)
	}
	assert.Equal(t, "512M", f.size)

	f.backspace()
	assert.Equal(t, "512", f.size)

	// typing is ignored outside the size field
	f.move(1)
	f.typeRune('9')
	assert.Equal(t, "512", f.size)

	f.move(-2)
	assert.Equal(t, screens.FieldCancel, f.field)
}

func TestPartitionFormSave(t *testing.T) {
	s := store.New()
	require.NoError(t, s.AddPartition(store.Partition{SizeBytes: 300e6, MountPoint: "/boot/efi", Filesystem: store.FSFAT32, FlagESP: true}))

	f := newPartitionForm(s.Partitions(), 20e9)
	f.size = "25GB"
	err := f.save(s, 20e9)
	assert.ErrorIs(t, err, drives.ErrNoSpace)

	f.size = "19700MB"
	f.esp, f.biosGrub = true, true
	assert.Error(t, f.save(s, 20e9))

	f.esp = false
	f.biosGrub = false
	require.NoError(t, f.save(s, 20e9))
	require.Equal(t, 2, s.PartitionCount())
	assert.Equal(t, uint64(19_700_000_000), s.Partitions()[1].SizeBytes)

	// editing may reuse the partition's own space
	f = editPartitionForm(1, s.Partitions()[1])
	assert.Equal(t, "19700MB", f.size)
	f.size = "19700MB"
	f.boot = true
	require.NoError(t, f.save(s, 20e9))
	assert.True(t, s.Partitions()[1].FlagBoot)
	assert.Equal(t, 2, s.PartitionCount())
}

func TestEditFormKeepsCustomMount(t *testing.T) {
	p := store.Partition{SizeBytes: 1e9, MountPoint: "/srv/data", Filesystem: store.FSExt4}
	f := editPartitionForm(0, p)
	assert.Equal(t, "/srv/data", f.mountPoint())

	built, err := f.partition([]store.Partition{p}, 20e9)
	require.NoError(t, err)
	assert.Equal(t, "/srv/data", built.MountPoint)

	f.field = screens.FieldMount
	f.cycle(1)
	assert.Equal(t, screens.MountPresets[f.mount], f.mountPoint())
}
