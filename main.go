// Package main implements the entry point and system initialization for the
// LimeOS installer.
//
// This package handles:
//   - Command line flags and preseed loading
//   - Privilege elevation and root access verification
//   - Single instance checking to prevent concurrent installations
//   - System dependency validation (parted, mkfs.*, mount, tar, ...)
//   - Signal handling for clean shutdown
//   - TUI initialization and execution
//
// Installation requires root privileges for partitioning, formatting and
// mounting. When not running as root the installer re-executes itself with
// sudo. Dry runs only record commands and never elevate.
package main

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"limeinstall/internal"
	"limeinstall/internal/command"
	"limeinstall/internal/install"
	"limeinstall/internal/store"
)

// lockFilePath defines the location of the singleton instance lock file.
const lockFilePath = "/tmp/limeinstall.lock"

type options struct {
	dryRun    bool
	forceUEFI bool
	forceBIOS bool
	preseed   string
	skip      []string
	rootfs    string
	debug     bool
}

var opts options

var rootCmd = &cobra.Command{
	Use:           "limeinstall",
	Short:         internal.AppDesc,
	Version:       internal.GetVersionString(),
	Args:          cobra.NoArgs,
	SilenceErrors: true,
	SilenceUsage:  true,
	RunE: func(cmd *cobra.Command, args []string) error {
		code, err := run()
		if err != nil {
			return err
		}
		if code != 0 {
			os.Exit(code)
		}
		return nil
	},
}

func init() {
	flags := rootCmd.Flags()
	flags.BoolVar(&opts.dryRun, "dry", false, "Record commands to "+command.DryRunLogPath+" instead of running them")
	flags.BoolVar(&opts.forceUEFI, "force-uefi", false, "Partition and install GRUB for UEFI regardless of the host firmware")
	flags.BoolVar(&opts.forceBIOS, "force-bios", false, "Partition and install GRUB for BIOS regardless of the host firmware")
	flags.StringVar(&opts.preseed, "preseed", "", "YAML file pre-filling the wizard")
	flags.StringSliceVar(&opts.skip, "skip", nil, "Installation phases to skip (partition, rootfs, bootloader, locale)")
	flags.StringVar(&opts.rootfs, "rootfs", install.DefaultRootfs, "Root filesystem archive to extract")
	flags.BoolVar(&opts.debug, "debug", false, "Write debug entries to the application log")
	rootCmd.MarkFlagsMutuallyExclusive("force-uefi", "force-bios")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "❌ %v\n", err)
		os.Exit(1)
	}
}

// checkSingleInstance verifies that no other installer process is running.
// Stale lock files are cleaned up if the process no longer exists.
func checkSingleInstance() error {
	lockContent, err := os.ReadFile(lockFilePath)
	if err != nil {
		return nil
	}

	pid := strings.TrimSpace(string(lockContent))
	if pidInt, err := strconv.Atoi(pid); err == nil {
		if process, err := os.FindProcess(pidInt); err == nil {
			// signal 0 only checks that the process exists
			if err := process.Signal(syscall.Signal(0)); err == nil {
				return fmt.Errorf("another installer process is already running (PID: %s)", pid)
			}
		}
	}

	os.Remove(lockFilePath)
	return nil
}

func createInstanceLock() error {
	return os.WriteFile(lockFilePath, []byte(strconv.Itoa(os.Getpid())), 0o644)
}

func removeInstanceLock() {
	os.Remove(lockFilePath)
}

// elevateToRoot re-executes the installer with sudo and returns the exit
// code of the elevated process.
func elevateToRoot() (int, error) {
	execPath, err := os.Executable()
	if err != nil {
		return 1, fmt.Errorf("failed to get executable path: %w", err)
	}
	if !checkProgramExists("sudo") {
		return 1, errors.New("sudo is required but not available")
	}

	cmd := exec.Command("sudo", append([]string{execPath}, os.Args[1:]...)...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	err = cmd.Run()
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	if err != nil {
		fmt.Println("🔒 The installer requires administrator privileges")
		fmt.Println("📋 Needed for: partitioning, formatting, mounting, bootloader installation")
		return 1, fmt.Errorf("sudo execution failed: %w", err)
	}
	return 0, nil
}

// run starts the installer and returns the process exit code.
func run() (int, error) {
	if !opts.dryRun && os.Geteuid() != 0 {
		return elevateToRoot()
	}

	logger, err := internal.NewLogger(internal.LogFilePath(), opts.debug)
	if err != nil {
		fmt.Printf("⚠️  Application log unavailable: %v\n", err)
		logger = zap.NewNop()
	}
	defer logger.Sync() //nolint:errcheck

	if err := checkSingleInstance(); err != nil {
		fmt.Println("⚠️  " + err.Error())
		fmt.Println()
		fmt.Println("💡 If you're sure no other installer is running, remove the lock file:")
		fmt.Println("   sudo rm " + lockFilePath)
		return 1, nil
	}
	if err := createInstanceLock(); err != nil {
		return 1, fmt.Errorf("failed to create instance lock: %w", err)
	}
	defer removeInstanceLock()

	if err := checkSystemDependencies(opts.dryRun); err != nil {
		fmt.Printf("❌ Dependency check failed: %v\n", err)
		return 1, nil
	}

	skipped, err := install.ParsePhases(opts.skip)
	if err != nil {
		return 1, err
	}
	skip := make(map[install.Phase]bool, len(skipped))
	for _, p := range skipped {
		skip[p] = true
	}

	s := store.New()
	s.SetDryRun(opts.dryRun)
	if opts.preseed != "" {
		if err := internal.ApplyPreseed(s, opts.preseed); err != nil {
			return 1, err
		}
		logger.Info("preseed loaded", zap.String("path", opts.preseed))
	}
	switch {
	case opts.forceUEFI:
		s.SetForceUEFI(store.FirmwareForceUEFI)
	case opts.forceBIOS:
		s.SetForceUEFI(store.FirmwareForceBIOS)
	}

	installLog := command.NewInstallLog(command.InstallLogPath)
	dryRunLog := command.NewDryRunLog(command.DryRunLogPath)
	defer installLog.Close()
	defer dryRunLog.Close()

	supervisor := command.NewSupervisor(command.Options{
		DryRun:     opts.dryRun,
		InstallLog: installLog,
		DryRunLog:  dryRunLog,
		Logger:     logger,
	})

	orch := &install.Orchestrator{
		Runner: supervisor,
		Log:    installLog,
		Logger: logger,
		Skip:   skip,
		Rootfs: opts.rootfs,
		DryRun: opts.dryRun,
	}

	logger.Info("installer started",
		zap.String("version", internal.GetVersionString()),
		zap.Bool("dry_run", opts.dryRun),
		zap.Stringer("firmware_override", s.Snapshot().ForceUEFI),
		zap.Strings("skip", opts.skip))

	p := tea.NewProgram(internal.InitialModel(internal.Options{
		Store:        s,
		Orchestrator: orch,
		InstallLog:   installLog,
		Logger:       logger,
		SessionPath:  internal.SessionPath,
	}), tea.WithAltScreen())

	// SIGTERM takes the same path as ctrl+c so a running install stops
	// between phases instead of mid-command
	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sig)
	go func() {
		for range sig {
			p.Send(tea.KeyMsg{Type: tea.KeyCtrlC})
		}
	}()

	final, err := p.Run()
	if err != nil {
		return 1, fmt.Errorf("terminal UI failed: %w", err)
	}

	code := final.(internal.Model).ExitCode()
	logger.Info("installer exiting", zap.Int("exit_code", code))
	if code == 0 && opts.dryRun {
		fmt.Printf("Dry run complete. Commands recorded in %s\n", command.DryRunLogPath)
	} else if code != 0 && code != install.ExitAborted {
		fmt.Printf("❌ Installation failed (exit code %d). See %s\n", code, command.InstallLogPath)
	}
	return code, nil
}

// requiredPrograms are the host tools the installer invokes. Tools marked
// non-critical only run inside the target root.
var requiredPrograms = []struct {
	name     string
	purpose  string
	critical bool
}{
	// Disk detection
	{"lsblk", "disk detection", true},
	{"blockdev", "disk size", true},

	// Partitioning and formatting
	{"parted", "partition table creation", true},
	{"mkfs.ext4", "ext4 formatting", true},
	{"mkfs.vfat", "EFI system partition formatting", true},
	{"mkswap", "swap formatting", true},
	{"swapon", "swap activation", true},
	{"swapoff", "swap release on retry", true},

	// Mounting and extraction
	{"mount", "target mounting", true},
	{"umount", "target unmounting", true},
	{"mountpoint", "mount verification", true},
	{"mkdir", "mount point creation", true},
	{"tar", "root filesystem extraction", true},
	{"chroot", "bootloader installation", true},

	// Run inside the target root
	{"grub-install", "bootloader installation", false},
	{"update-grub", "bootloader configuration", false},
	{"dpkg", "GRUB package installation", false},
}

// checkSystemDependencies validates that the tools the installer invokes are
// on PATH. In dry-run mode missing tools are only reported.
func checkSystemDependencies(dryRun bool) error {
	var missing, warnings []string
	for _, prog := range requiredPrograms {
		if checkProgramExists(prog.name) {
			continue
		}
		entry := fmt.Sprintf("%s (%s)", prog.name, prog.purpose)
		if prog.critical && !dryRun {
			missing = append(missing, entry)
		} else {
			warnings = append(warnings, entry)
		}
	}

	if len(warnings) > 0 {
		fmt.Println("⚠️  Programs missing on this host:")
		for _, w := range warnings {
			fmt.Printf("   • %s\n", w)
		}
		fmt.Println()
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing critical programs:\n%s", formatMissingList(missing))
	}
	return nil
}

func checkProgramExists(program string) bool {
	_, err := exec.LookPath(program)
	return err == nil
}

func formatMissingList(missing []string) string {
	var b strings.Builder
	for _, prog := range missing {
		fmt.Fprintf(&b, "   • %s\n", prog)
	}
	return b.String()
}
