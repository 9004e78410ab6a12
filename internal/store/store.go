package store

import (
	"errors"
	"fmt"
	"strings"
	"sync"
)

const (
	// MaxPartitions bounds the partition sequence.
	MaxPartitions = 16

	// MaxMountLen bounds the length of a mount point string in bytes.
	MaxMountLen = 64
)

var (
	ErrTooManyPartitions = fmt.Errorf("at most %d partitions are supported", MaxPartitions)
	ErrInvalidSize       = errors.New("partition size must be greater than zero")
	ErrMountTooLong      = fmt.Errorf("mount point longer than %d bytes", MaxMountLen)
	ErrIndexOutOfRange   = errors.New("partition index out of range")
)

// FirmwareOverride selects how the firmware mode is decided.
type FirmwareOverride int

const (
	FirmwareForceBIOS FirmwareOverride = -1
	FirmwareAuto      FirmwareOverride = 0
	FirmwareForceUEFI FirmwareOverride = 1
)

func (o FirmwareOverride) String() string {
	switch o {
	case FirmwareForceUEFI:
		return "force-uefi"
	case FirmwareForceBIOS:
		return "force-bios"
	default:
		return "auto"
	}
}

// Next cycles auto -> force-uefi -> force-bios -> auto.
func (o FirmwareOverride) Next() FirmwareOverride {
	switch o {
	case FirmwareAuto:
		return FirmwareForceUEFI
	case FirmwareForceUEFI:
		return FirmwareForceBIOS
	default:
		return FirmwareAuto
	}
}

func (o FirmwareOverride) MarshalText() ([]byte, error) {
	return []byte(o.String()), nil
}

func (o *FirmwareOverride) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "auto", "":
		*o = FirmwareAuto
	case "force-uefi", "uefi":
		*o = FirmwareForceUEFI
	case "force-bios", "bios":
		*o = FirmwareForceBIOS
	default:
		return fmt.Errorf("unknown firmware override %q", string(text))
	}
	return nil
}

// Method is the partitioning method chosen in the wizard.
type Method int

const (
	MethodManual Method = iota
	MethodEasy
)

func (m Method) String() string {
	if m == MethodEasy {
		return "easy"
	}
	return "manual"
}

func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Method) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "easy", "auto":
		*m = MethodEasy
	case "manual", "":
		*m = MethodManual
	default:
		return fmt.Errorf("unknown partition method %q", string(text))
	}
	return nil
}

// Config is a plain copy of the installer configuration. Components receive a
// Config by value so that an install in flight never observes wizard edits.
type Config struct {
	Locale     string           `yaml:"locale"`
	Disk       string           `yaml:"disk"`
	DryRun     bool             `yaml:"dry_run"`
	ForceUEFI  FirmwareOverride `yaml:"force_uefi"`
	Method     Method           `yaml:"partition_method"`
	Partitions []Partition      `yaml:"partitions"`
}

// PartitionCount returns the number of configured partitions.
func (c Config) PartitionCount() int {
	return len(c.Partitions)
}

// UsedBytes sums the sizes of all configured partitions.
func (c Config) UsedBytes() uint64 {
	var used uint64
	for _, p := range c.Partitions {
		used += p.SizeBytes
	}
	return used
}

// Validate checks the structural limits of a configuration, as used for
// preseed files. Layout rules belong to the partitions package.
func (c Config) Validate() error {
	if len(c.Partitions) > MaxPartitions {
		return ErrTooManyPartitions
	}
	for i, p := range c.Partitions {
		if err := checkPartition(p); err != nil {
			return fmt.Errorf("partition %d: %w", i+1, err)
		}
	}
	return nil
}

func (c Config) clone() Config {
	out := c
	out.Partitions = append([]Partition(nil), c.Partitions...)
	return out
}

// Store is the process-wide installer configuration. It is created once at
// startup with zero defaults and mutated only through whole-sequence
// operations. The mutex serializes the wizard against the install goroutine.
type Store struct {
	mu  sync.RWMutex
	cfg Config
}

// New returns a Store holding default values.
func New() *Store {
	return &Store{}
}

// Reset restores every field to its default, keeping the dry-run switch
// because it comes from the command line rather than the wizard.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = Config{DryRun: s.cfg.DryRun}
}

// Snapshot returns a deep copy of the current configuration.
func (s *Store) Snapshot() Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg.clone()
}

// Load replaces the whole configuration, e.g. from a preseed file.
func (s *Store) Load(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg = cfg.clone()
	return nil
}

func (s *Store) SetLocale(locale string) {
	s.mu.Lock()
	s.cfg.Locale = locale
	s.mu.Unlock()
}

func (s *Store) SetDisk(disk string) {
	s.mu.Lock()
	s.cfg.Disk = disk
	s.mu.Unlock()
}

func (s *Store) SetDryRun(dry bool) {
	s.mu.Lock()
	s.cfg.DryRun = dry
	s.mu.Unlock()
}

func (s *Store) SetForceUEFI(o FirmwareOverride) {
	s.mu.Lock()
	s.cfg.ForceUEFI = o
	s.mu.Unlock()
}

func (s *Store) SetMethod(m Method) {
	s.mu.Lock()
	s.cfg.Method = m
	s.mu.Unlock()
}

// Partitions returns a copy of the partition sequence.
func (s *Store) Partitions() []Partition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]Partition(nil), s.cfg.Partitions...)
}

// PartitionCount returns the number of configured partitions.
func (s *Store) PartitionCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.cfg.Partitions)
}

// AddPartition appends a partition to the end of the sequence.
func (s *Store) AddPartition(p Partition) error {
	if err := checkPartition(p); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.cfg.Partitions) >= MaxPartitions {
		return ErrTooManyPartitions
	}
	s.cfg.Partitions = append(s.cfg.Partitions, p)
	return nil
}

// UpdatePartition replaces the partition at index i.
func (s *Store) UpdatePartition(i int, p Partition) error {
	if err := checkPartition(p); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.cfg.Partitions) {
		return ErrIndexOutOfRange
	}
	next := append([]Partition(nil), s.cfg.Partitions...)
	next[i] = p
	s.cfg.Partitions = next
	return nil
}

// RemovePartition deletes the partition at index i, shifting later entries down.
func (s *Store) RemovePartition(i int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i < 0 || i >= len(s.cfg.Partitions) {
		return ErrIndexOutOfRange
	}
	next := make([]Partition, 0, len(s.cfg.Partitions)-1)
	next = append(next, s.cfg.Partitions[:i]...)
	next = append(next, s.cfg.Partitions[i+1:]...)
	s.cfg.Partitions = next
	return nil
}

// ClearPartitions empties the partition sequence.
func (s *Store) ClearPartitions() {
	s.mu.Lock()
	s.cfg.Partitions = nil
	s.mu.Unlock()
}

// ReplacePartitions overwrites the whole sequence. On error the previous
// sequence is left untouched.
func (s *Store) ReplacePartitions(parts []Partition) error {
	if len(parts) > MaxPartitions {
		return ErrTooManyPartitions
	}
	for i, p := range parts {
		if err := checkPartition(p); err != nil {
			return fmt.Errorf("partition %d: %w", i+1, err)
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.Partitions = append([]Partition(nil), parts...)
	return nil
}

func checkPartition(p Partition) error {
	if p.SizeBytes == 0 {
		return ErrInvalidSize
	}
	if len(p.MountPoint) > MaxMountLen {
		return ErrMountTooLong
	}
	return nil
}
