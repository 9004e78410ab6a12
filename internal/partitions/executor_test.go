package partitions

import (
	"strconv"
	"strings"
	"testing"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limeinstall/internal/command"
	"limeinstall/internal/store"
)

func TestApplyUEFIAutoLayout(t *testing.T) {
	parts, err := Plan(20e9, UEFI)
	require.NoError(t, err)

	runner := &command.FakeRunner{}
	ticks := 0
	exec := &Executor{Runner: runner, Tick: func() { ticks++ }}

	result, err := exec.Apply("/dev/sda", parts)
	require.NoError(t, err)
	assert.Nil(t, result.Warnings)

	assert.Equal(t, []string{
		"parted -s '/dev/sda' mklabel gpt",
		"parted -s '/dev/sda' mkpart primary 1MiB 287MiB",
		"parted -s '/dev/sda' set 1 esp on",
		"parted -s '/dev/sda' mkpart primary 287MiB 19074MiB",
		"mkfs.vfat -F 32 '/dev/sda1'",
		"mkfs.ext4 -F '/dev/sda2'",
		"mount '/dev/sda2' '/mnt'",
		"mkdir -p '/mnt/boot/efi' && mount '/dev/sda1' '/mnt/boot/efi'",
	}, runner.Commands())
	assert.Equal(t, len(runner.Commands()), ticks)
}

func TestApplyBIOSLayoutOnNVMe(t *testing.T) {
	parts, err := Plan(20e9, BIOS)
	require.NoError(t, err)

	runner := &command.FakeRunner{}
	_, err = (&Executor{Runner: runner}).Apply("/dev/nvme0n1", parts)
	require.NoError(t, err)

	assert.Equal(t, []string{"parted -s '/dev/nvme0n1' set 1 bios_grub on"}, runner.Matching(" set "))
	assert.Equal(t, []string{"mkfs.ext4 -F '/dev/nvme0n1p2'"}, runner.Matching("mkfs"))
	assert.Empty(t, runner.Matching("[bios]"))
	assert.Equal(t, []string{"mount '/dev/nvme0n1p2' '/mnt'"}, runner.Matching("mount"))
}

func TestApplyOrdering(t *testing.T) {
	parts := []store.Partition{
		esp(300e6),
		mounted("/home", 5e9),
		{SizeBytes: 2e9, MountPoint: "[swap]", Filesystem: store.FSSwap},
		mounted("/", 10e9),
	}

	runner := &command.FakeRunner{}
	_, err := (&Executor{Runner: runner}).Apply("/dev/vda", parts)
	require.NoError(t, err)

	cmds := runner.Commands()
	assert.Len(t, runner.Matching("mklabel"), 1)
	assert.Equal(t, "parted -s '/dev/vda' mklabel gpt", cmds[0])

	var prevEnd uint64
	var seen int
	for i := range cmds {
		argv, err := runner.Argv(i)
		require.NoError(t, err)
		if len(argv) < 7 || argv[3] != "mkpart" {
			continue
		}
		start, err := strconv.ParseUint(strings.TrimSuffix(argv[5], "MiB"), 10, 64)
		require.NoError(t, err)
		end, err := strconv.ParseUint(strings.TrimSuffix(argv[6], "MiB"), 10, 64)
		require.NoError(t, err)
		assert.Less(t, start, end)
		assert.GreaterOrEqual(t, start, prevEnd)
		prevEnd = end
		seen++
	}
	assert.Equal(t, len(parts), seen)

	rootMount := indexOf(cmds, "mount '/dev/vda4' '/mnt'")
	require.GreaterOrEqual(t, rootMount, 0)
	for i, c := range cmds {
		if strings.Contains(c, "mkdir -p") || strings.HasPrefix(c, "swapon") {
			assert.Greater(t, i, rootMount, c)
		}
		if strings.HasPrefix(c, "mkfs") || strings.HasPrefix(c, "mkswap") {
			assert.Less(t, i, rootMount, c)
		}
	}
	assert.Equal(t, []string{"swapon '/dev/vda3'"}, runner.Matching("swapon"))
	assert.Equal(t, []string{"mkswap '/dev/vda3'"}, runner.Matching("mkswap"))
}

func TestMountsShallowestFirst(t *testing.T) {
	parts := []store.Partition{
		mounted("/var/lib/docker", 1e9),
		mounted("/", 10e9),
		mounted("/var", 1e9),
		esp(300e6),
	}
	steps := (&Executor{}).MountSteps("/dev/sda", parts)

	var order []string
	for _, s := range steps {
		order = append(order, s.Command)
	}
	assert.Equal(t, []string{
		"mount '/dev/sda2' '/mnt'",
		"mkdir -p '/mnt/var' && mount '/dev/sda3' '/mnt/var'",
		"mkdir -p '/mnt/boot/efi' && mount '/dev/sda4' '/mnt/boot/efi'",
		"mkdir -p '/mnt/var/lib/docker' && mount '/dev/sda1' '/mnt/var/lib/docker'",
	}, order)
}

func TestApplyFailureCodes(t *testing.T) {
	parts := []store.Partition{esp(300e6), mounted("/", 10e9)}
	parts[1].FlagBoot = true

	for _, tc := range []struct {
		failOn string
		code   int
	}{
		{"mklabel", CodeTable},
		{"mkpart", CodeCreate},
		{"boot on", CodeBootFlag},
		{"esp on", CodeFlag},
		{"mkfs.vfat", CodeFormat},
		{"mount '/dev/sda2' '/mnt'", CodeMountRoot},
	} {
		t.Run(tc.failOn, func(t *testing.T) {
			runner := &command.FakeRunner{SideEffect: command.FailOn(tc.failOn, 1)}
			_, err := (&Executor{Runner: runner}).Apply("/dev/sda", parts)

			var stepErr *command.StepError
			require.ErrorAs(t, err, &stepErr)
			assert.Equal(t, tc.code, stepErr.Code)
			assert.Equal(t, 1, stepErr.Exit)

			last := runner.Commands()[len(runner.Commands())-1]
			assert.Contains(t, last, tc.failOn, "execution must stop at the failed step")
		})
	}
}

func TestApplyWithoutRoot(t *testing.T) {
	parts := []store.Partition{esp(300e6), mounted("/home", 5e9)}
	runner := &command.FakeRunner{}

	_, err := (&Executor{Runner: runner}).Apply("/dev/sda", parts)

	var stepErr *command.StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, CodeNoRoot, stepErr.Code)
	assert.Len(t, runner.Matching("mkfs"), 2, "partitions are formatted before the root check")
	assert.Empty(t, runner.Matching("mount"))
}

func TestApplyAdvisoryMountFailures(t *testing.T) {
	parts := []store.Partition{
		esp(300e6),
		mounted("/", 10e9),
		{SizeBytes: 1e9, MountPoint: "[swap]", Filesystem: store.FSSwap},
		mounted("/home", 5e9),
	}
	runner := &command.FakeRunner{SideEffect: func(c string) (int, error) {
		if strings.HasPrefix(c, "swapon") || strings.Contains(c, "/mnt/home") {
			return 32, nil
		}
		return command.CodeSuccess, nil
	}}

	result, err := (&Executor{Runner: runner}).Apply("/dev/sda", parts)
	require.NoError(t, err)

	var merr *multierror.Error
	require.ErrorAs(t, result.Warnings, &merr)
	assert.Len(t, merr.Errors, 2)
	assert.Len(t, runner.Matching("/mnt/boot/efi"), 1, "later mounts still run")
}

func TestApplyDoesNotModifyLayout(t *testing.T) {
	parts := []store.Partition{mounted("/", 100), esp(300e6)}
	before := append([]store.Partition(nil), parts...)

	_, err := (&Executor{Runner: &command.FakeRunner{}}).Apply("/dev/sda", parts)
	require.NoError(t, err)
	assert.Equal(t, before, parts)
}

func TestLayout(t *testing.T) {
	parts := []store.Partition{mounted("/", 100), mounted("/a", 3*mib+5)}
	assert.Equal(t, []Extent{{1, 2}, {2, 5}}, Layout(parts, 0))

	planned, err := Plan(20e9, UEFI)
	require.NoError(t, err)
	extents := Layout(planned, 20e9)
	assert.Equal(t, Extent{287, 19072}, extents[1], "last partition ends before the backup GPT")

	assert.Empty(t, Layout(nil, 20e9))
}

func indexOf(list []string, s string) int {
	for i, v := range list {
		if v == s {
			return i
		}
	}
	return -1
}
