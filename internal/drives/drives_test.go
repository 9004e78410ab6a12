package drives

import (
	"context"
	"errors"
	"testing"

	"github.com/shirou/gopsutil/v3/disk"
	"github.com/shirou/gopsutil/v3/mem"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limeinstall/internal/store"
)

const lsblkNumeric = `{
   "blockdevices": [
      {"name":"sda", "path":"/dev/sda", "size":500107862016, "model":"Samsung SSD 860 ", "type":"disk", "tran":"sata", "rm":false, "ro":false},
      {"name":"nvme0n1", "path":"/dev/nvme0n1", "size":1000204886016, "model":"WD Blue SN570", "type":"disk", "tran":"nvme", "rm":false, "ro":false},
      {"name":"loop0", "path":"/dev/loop0", "size":912261120, "model":null, "type":"loop", "tran":null, "rm":false, "ro":true},
      {"name":"sr0", "path":"/dev/sr0", "size":1073741312, "model":"QEMU DVD-ROM", "type":"rom", "tran":"ata", "rm":true, "ro":false},
      {"name":"sdb", "path":"/dev/sdb", "size":15518924800, "model":"USB Flash", "type":"disk", "tran":"usb", "rm":true, "ro":false}
   ]
}`

// util-linux before 2.33 quoted every value and had no PATH column.
const lsblkQuoted = `{
   "blockdevices": [
      {"name":"vda", "size":"21474836480", "model":null, "type":"disk", "tran":null, "rm":"0", "ro":"0"}
   ]
}`

func stubProbe(t *testing.T, outputs map[string]string) {
	t.Helper()
	saved := probe
	t.Cleanup(func() { probe = saved })
	probe = func(_ context.Context, name string, _ ...string) (string, error) {
		out, ok := outputs[name]
		if !ok {
			return "", errors.New(name + ": not found")
		}
		return out, nil
	}
}

func stubMounts(t *testing.T, mounts ...disk.PartitionStat) {
	t.Helper()
	saved := partitionLister
	t.Cleanup(func() { partitionLister = saved })
	partitionLister = func(bool) ([]disk.PartitionStat, error) { return mounts, nil }
}

func TestListDisks(t *testing.T) {
	stubProbe(t, map[string]string{"lsblk": lsblkNumeric})
	stubMounts(t,
		disk.PartitionStat{Device: "/dev/sdb1", Mountpoint: "/run/live/medium"},
		disk.PartitionStat{Device: "overlay", Mountpoint: "/"},
		disk.PartitionStat{Device: "/dev/loop0", Mountpoint: "/run/live/rootfs"},
	)

	disks, err := ListDisks(context.Background())
	require.NoError(t, err)
	require.Len(t, disks, 3)

	assert.Equal(t, "/dev/nvme0n1", disks[0].Path)
	assert.Equal(t, "/dev/sda", disks[1].Path)
	assert.Equal(t, "/dev/sdb", disks[2].Path)

	assert.Equal(t, uint64(500107862016), disks[1].SizeBytes)
	assert.Equal(t, "Samsung SSD 860", disks[1].Model)
	assert.True(t, disks[1].Selectable())

	assert.True(t, disks[2].InUse)
	assert.True(t, disks[2].Removable)
	assert.Equal(t, []string{"/run/live/medium"}, disks[2].MountPoints)
	assert.False(t, disks[2].Selectable())
}

func TestListDisksQuotedOutput(t *testing.T) {
	stubProbe(t, map[string]string{"lsblk": lsblkQuoted})
	stubMounts(t)

	disks, err := ListDisks(context.Background())
	require.NoError(t, err)
	require.Len(t, disks, 1)
	assert.Equal(t, "/dev/vda", disks[0].Path)
	assert.Equal(t, uint64(21474836480), disks[0].SizeBytes)
	assert.Equal(t, "Disk", disks[0].Label())
}

func TestListDisksErrors(t *testing.T) {
	stubProbe(t, map[string]string{})
	stubMounts(t)
	_, err := ListDisks(context.Background())
	assert.Error(t, err)

	stubProbe(t, map[string]string{"lsblk": "not json"})
	_, err = ListDisks(context.Background())
	assert.Error(t, err)

	msg := LoadDisks()()
	loaded, ok := msg.(DisksLoaded)
	require.True(t, ok)
	assert.Error(t, loaded.Err)
}

func TestDiskSize(t *testing.T) {
	stubProbe(t, map[string]string{"blockdev": "20000000000\n"})
	size, err := DiskSize(context.Background(), "/dev/sda")
	require.NoError(t, err)
	assert.Equal(t, uint64(20e9), size)

	stubProbe(t, map[string]string{"blockdev": "garbage"})
	_, err = DiskSize(context.Background(), "/dev/sda")
	assert.Error(t, err)
}

func TestBelongsTo(t *testing.T) {
	for _, tc := range []struct {
		device, disk string
		want         bool
	}{
		{"/dev/sda1", "/dev/sda", true},
		{"/dev/sda12", "/dev/sda", true},
		{"/dev/sda", "/dev/sda", true},
		{"/dev/sdaa1", "/dev/sda", false},
		{"/dev/sdb1", "/dev/sda", false},
		{"/dev/nvme0n1p2", "/dev/nvme0n1", true},
		{"/dev/nvme0n12", "/dev/nvme0n1", false},
		{"/dev/nvme0n1p", "/dev/nvme0n1", false},
		{"/dev/mmcblk0p1", "/dev/mmcblk0", true},
	} {
		assert.Equal(t, tc.want, BelongsTo(tc.device, tc.disk), "%s on %s", tc.device, tc.disk)
	}
}

func TestParseSize(t *testing.T) {
	for in, want := range map[string]uint64{
		"512M":   512e6,
		"20GB":   20e9,
		"1.5GiB": 1610612736,
		" 300MB": 300e6,
		"4096":   4096,
	} {
		got, err := ParseSize(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	for _, bad := range []string{"", "abc", "0", "-5G"} {
		_, err := ParseSize(bad)
		assert.Error(t, err, bad)
	}
}

func TestFreeSpace(t *testing.T) {
	parts := []store.Partition{{SizeBytes: 300e6}, {SizeBytes: 10e9}}
	assert.Equal(t, uint64(9_700_000_000), FreeBytes(20e9, parts))
	assert.Zero(t, FreeBytes(5e9, parts))

	assert.NoError(t, CheckFits(20e9, parts, -1, 9.7e9))
	assert.ErrorIs(t, CheckFits(20e9, parts, -1, 9.7e9+1), ErrNoSpace)
	assert.NoError(t, CheckFits(20e9, parts, 1, 19.7e9), "the edited partition's own size is free")
	assert.NoError(t, CheckFits(0, parts, -1, 1e15), "unknown disk size never blocks")
}

func TestSuggestSwapSize(t *testing.T) {
	saved := memoryReader
	defer func() { memoryReader = saved }()

	memoryReader = func() (*mem.VirtualMemoryStat, error) { return &mem.VirtualMemoryStat{Total: 4e9}, nil }
	assert.Equal(t, uint64(4e9), SuggestSwapSize())

	memoryReader = func() (*mem.VirtualMemoryStat, error) { return &mem.VirtualMemoryStat{Total: 64e9}, nil }
	assert.Equal(t, maxSwapSuggestion, SuggestSwapSize())

	memoryReader = func() (*mem.VirtualMemoryStat, error) { return nil, errors.New("no /proc") }
	assert.Equal(t, minSwapSuggestion, SuggestSwapSize())
}

func TestFormatBytes(t *testing.T) {
	assert.Equal(t, "300 MB", FormatBytes(300e6))
	assert.Equal(t, "20 GB", FormatBytes(20e9))
}
