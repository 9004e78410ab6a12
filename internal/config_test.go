package internal

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"limeinstall/internal/store"
)

const preseedDoc = `
locale: de_DE.UTF-8
disk: /dev/vda
dry_run: false
force_uefi: force-uefi
partition_method: manual
partitions:
  - size_bytes: 300000000
    mount_point: /boot/efi
    filesystem: fat32
    flag_esp: true
  - size_bytes: 10000000000
    mount_point: /
    filesystem: ext4
`

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "preseed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadPreseed(t *testing.T) {
	cfg, err := LoadPreseed(writeFile(t, preseedDoc))
	require.NoError(t, err)

	assert.Equal(t, "de_DE.UTF-8", cfg.Locale)
	assert.Equal(t, "/dev/vda", cfg.Disk)
	assert.Equal(t, store.FirmwareForceUEFI, cfg.ForceUEFI)
	assert.Equal(t, store.MethodManual, cfg.Method)
	require.Len(t, cfg.Partitions, 2)
	assert.True(t, cfg.Partitions[0].FlagESP)
	assert.Equal(t, store.FSFAT32, cfg.Partitions[0].Filesystem)
}

func TestLoadPreseedErrors(t *testing.T) {
	var many strings.Builder
	many.WriteString("partitions:\n")
	for i := 0; i <= store.MaxPartitions; i++ {
		fmt.Fprintf(&many, "  - size_bytes: 1000000\n    mount_point: /data%d\n    filesystem: ext4\n", i)
	}

	tests := []struct {
		name string
		doc  string
		want string
	}{
		{"unknown key", "locale: en_US.UTF-8\nhostname: lime\n", "hostname"},
		{"bad filesystem", "partitions:\n  - size_bytes: 1\n    mount_point: /\n    filesystem: btrfs\n", "btrfs"},
		{"zero size", "partitions:\n  - size_bytes: 0\n    mount_point: /\n    filesystem: ext4\n", store.ErrInvalidSize.Error()},
		{"too many partitions", many.String(), store.ErrTooManyPartitions.Error()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadPreseed(writeFile(t, tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}

	_, err := LoadPreseed(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyPreseedKeepsDryRun(t *testing.T) {
	s := store.New()
	s.SetDryRun(true)

	require.NoError(t, ApplyPreseed(s, writeFile(t, preseedDoc)))

	cfg := s.Snapshot()
	assert.True(t, cfg.DryRun)
	assert.Equal(t, "/dev/vda", cfg.Disk)
	assert.Equal(t, 2, cfg.PartitionCount())
}

func TestSessionCanBeReplayedAsPreseed(t *testing.T) {
	cfg, err := LoadPreseed(writeFile(t, preseedDoc))
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "nested", "session.yaml")
	require.NoError(t, SaveSession(path, cfg, 2))

	_, err = os.Stat(path + ".tmp")
	assert.ErrorIs(t, err, os.ErrNotExist)

	session, err := LoadSession(path)
	require.NoError(t, err)
	assert.Equal(t, AppVersion, session.Version)
	assert.Equal(t, 2, session.Attempt)
	assert.False(t, session.SavedAt.IsZero())
	assert.Equal(t, cfg, session.Config)

	replay, err := LoadPreseed(path)
	require.NoError(t, err)
	assert.Equal(t, cfg, replay)
}
