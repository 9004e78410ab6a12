package internal

import (
	"errors"
	"fmt"
	"unicode"

	"limeinstall/internal/drives"
	"limeinstall/internal/partitions"
	"limeinstall/internal/screens"
	"limeinstall/internal/store"
)

// partitionForm is the state of the add/edit partition dialog.
type partitionForm struct {
	index    int // partition being edited, -1 when adding
	field    int // focused field, one of screens.Field*
	size     string
	mount    int    // index into screens.MountPresets
	custom   string // mount point outside the presets, kept until cycled
	fs       store.Filesystem
	ptype    store.PartitionType
	boot     bool
	esp      bool
	biosGrub bool
	err      string
}

// newPartitionForm opens the dialog for a new partition sized to the free
// space, mounted at "/" until a root exists.
func newPartitionForm(parts []store.Partition, diskSize uint64) *partitionForm {
	f := &partitionForm{index: -1, fs: store.FSExt4}
	if partitions.HasRoot(parts) {
		f.mount = screens.IndexOf(screens.MountPresets, "/home")
	}
	if free := drives.FreeBytes(diskSize, parts); free > 0 {
		f.size = exactSize(free)
	}
	return f
}

// exactSize spells n in the largest decimal unit that divides it, so that
// parsing the text back yields n again.
func exactSize(n uint64) string {
	switch {
	case n == 0:
		return ""
	case n%1e9 == 0:
		return fmt.Sprintf("%dGB", n/1e9)
	case n%1e6 == 0:
		return fmt.Sprintf("%dMB", n/1e6)
	default:
		return fmt.Sprintf("%d", n)
	}
}

// editPartitionForm opens the dialog on an existing partition.
func editPartitionForm(i int, p store.Partition) *partitionForm {
	f := &partitionForm{
		index:    i,
		size:     exactSize(p.SizeBytes),
		mount:    screens.IndexOf(screens.MountPresets, p.MountPoint),
		fs:       p.Filesystem,
		ptype:    p.Type,
		boot:     p.FlagBoot,
		esp:      p.FlagESP,
		biosGrub: p.FlagBiosGrub,
	}
	if screens.MountPresets[f.mount] != p.MountPoint {
		f.custom = p.MountPoint
	}
	return f
}

func (f *partitionForm) mountPoint() string {
	if f.custom != "" {
		return f.custom
	}
	return screens.MountPresets[f.mount]
}

// cycle moves the focused choice field by delta.
func (f *partitionForm) cycle(delta int) {
	switch f.field {
	case screens.FieldMount:
		n := len(screens.MountPresets)
		if f.custom != "" {
			f.custom = ""
		} else {
			f.mount = ((f.mount+delta)%n + n) % n
		}
		f.applyPreset()
	case screens.FieldFilesystem:
		n := len(store.Filesystems)
		i := 0
		for j, fs := range store.Filesystems {
			if fs == f.fs {
				i = j
			}
		}
		f.fs = store.Filesystems[((i+delta)%n+n)%n]
	case screens.FieldType:
		if f.ptype == store.Primary {
			f.ptype = store.Logical
		} else {
			f.ptype = store.Primary
		}
	}
}

// applyPreset sets the filesystem and flags a mount preset implies.
func (f *partitionForm) applyPreset() {
	switch f.mountPoint() {
	case "/boot/efi":
		f.fs, f.esp, f.biosGrub = store.FSFAT32, true, false
	case "[bios]":
		f.fs, f.esp, f.biosGrub = store.FSNone, false, true
		f.size = exactSize(partitions.BiosGrubSize)
	case partitions.SwapMount:
		f.fs, f.esp, f.biosGrub = store.FSSwap, false, false
		f.size = exactSize(drives.SuggestSwapSize() / 1e6 * 1e6)
	default:
		f.fs, f.esp, f.biosGrub = store.FSExt4, false, false
	}
}

// toggle flips the focused flag field.
func (f *partitionForm) toggle() {
	switch f.field {
	case screens.FieldBoot:
		f.boot = !f.boot
	case screens.FieldESP:
		f.esp = !f.esp
	case screens.FieldBiosGrub:
		f.biosGrub = !f.biosGrub
	}
}

// typeRune appends r to the size field.
func (f *partitionForm) typeRune(r rune) {
	if f.field != screens.FieldSize {
		return
	}
	if unicode.IsDigit(r) || unicode.IsLetter(r) || r == '.' || r == ' ' {
		f.size += string(r)
		f.err = ""
	}
}

func (f *partitionForm) backspace() {
	if f.field != screens.FieldSize || f.size == "" {
		return
	}
	r := []rune(f.size)
	f.size = string(r[:len(r)-1])
	f.err = ""
}

func (f *partitionForm) move(delta int) {
	f.field = ((f.field+delta)%screens.FieldCount + screens.FieldCount) % screens.FieldCount
}

// partition builds the partition described by the form and checks that it
// fits next to parts.
func (f *partitionForm) partition(parts []store.Partition, diskSize uint64) (store.Partition, error) {
	size, err := drives.ParseSize(f.size)
	if err != nil {
		return store.Partition{}, err
	}
	if err := drives.CheckFits(diskSize, parts, f.index, size); err != nil {
		return store.Partition{}, err
	}
	if f.esp && f.biosGrub {
		return store.Partition{}, errors.New("a partition cannot be both esp and bios_grub")
	}

	return store.Partition{
		SizeBytes:    size,
		MountPoint:   f.mountPoint(),
		Filesystem:   f.fs,
		Type:         f.ptype,
		FlagBoot:     f.boot,
		FlagESP:      f.esp,
		FlagBiosGrub: f.biosGrub,
	}, nil
}

// save writes the form into s.
func (f *partitionForm) save(s *store.Store, diskSize uint64) error {
	p, err := f.partition(s.Partitions(), diskSize)
	if err != nil {
		return err
	}
	if f.index < 0 {
		err = s.AddPartition(p)
	} else {
		err = s.UpdatePartition(f.index, p)
	}
	if err != nil {
		return fmt.Errorf("failed to save partition: %w", err)
	}
	return nil
}
