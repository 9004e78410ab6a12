// Package internal provides the core application model for the installer TUI.
//
// This package implements the Bubble Tea model pattern for the wizard.
// The model handles:
//   - Step navigation: locale, disk, partition method, partitions, confirm
//   - The manual partition editor and its add/edit dialog
//   - Launching the installation in the background and polling its progress
//   - The retry-or-reconfigure loop after a failed installation
//
// All configuration lives in a store.Store shared with the rest of the
// installer; the model only holds UI state.
package internal

import (
	"context"
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"limeinstall/internal/command"
	"limeinstall/internal/drives"
	"limeinstall/internal/handlers"
	"limeinstall/internal/install"
	"limeinstall/internal/partitions"
	"limeinstall/internal/screens"
	"limeinstall/internal/state"
	"limeinstall/internal/store"
)

// Options wires the model to the rest of the installer.
type Options struct {
	Store        *store.Store
	Orchestrator *install.Orchestrator
	InstallLog   *command.InstallLog
	Logger       *zap.Logger

	// DetectUEFI reports the host firmware; defaults to partitions.DetectUEFI.
	DetectUEFI func() bool

	// LoadDisks scans for target disks; defaults to drives.LoadDisks.
	LoadDisks func() tea.Cmd

	// DiskSize reads the exact size of a disk; defaults to drives.DiskSize.
	DiskSize func(ctx context.Context, path string) (uint64, error)

	// SessionPath receives the configuration when installation starts;
	// empty disables the snapshot.
	SessionPath string
}

// Model represents the complete wizard state. It implements tea.Model.
type Model struct {
	opts Options

	// Screen and navigation state
	screen     screens.Screen // Current active screen
	lastScreen screens.Screen // Screen to return to from the error screen
	cursor     int            // Current cursor/selection position
	choices    []string       // Available menu options for current screen
	message    string         // Status or error message for the current screen

	// Display dimensions
	width  int
	height int

	// Disk selection
	disks        []drives.Disk
	loadingDisks bool
	readingSize  bool
	diskSize     uint64

	// Partitioning
	planErr error          // automatic planner failure
	form    *partitionForm // open add/edit dialog
	report  partitions.Report

	// Installation
	tracker  *installTracker
	progress state.InstallProgress
	cancel   context.CancelFunc
	aborting bool
	frame    int   // animation frame
	result   error // outcome of the last attempt
	aborted  bool  // user quit or interrupted the installer
}

// InitialModel creates the wizard positioned on the locale step, with the
// cursor on the preseeded locale if there is one.
func InitialModel(opts Options) Model {
	if opts.Store == nil {
		opts.Store = store.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.DetectUEFI == nil {
		opts.DetectUEFI = partitions.DetectUEFI
	}
	if opts.LoadDisks == nil {
		opts.LoadDisks = drives.LoadDisks
	}
	if opts.DiskSize == nil {
		opts.DiskSize = drives.DiskSize
	}

	m := Model{
		opts:    opts,
		screen:  screens.ScreenLocale,
		choices: screens.LocaleChoices,
		tracker: newInstallTracker(),
		width:   100,
		height:  30,
	}
	if locale := opts.Store.Snapshot().Locale; locale != "" {
		m.cursor = screens.IndexOf(screens.LocaleChoices, locale)
	}
	return m
}

// Init implements tea.Model.Init.
func (m Model) Init() tea.Cmd {
	return nil
}

// ExitCode is the process exit status for the final model: the negated
// install code, or 130 when the user aborted.
func (m Model) ExitCode() int {
	if m.aborted {
		return install.ExitAborted
	}
	return install.ExitCode(m.result)
}

// Screen returns the active screen.
func (m Model) Screen() screens.Screen {
	return m.screen
}

func (m Model) config() store.Config {
	return m.opts.Store.Snapshot()
}

// mode resolves the firmware mode, honoring the override.
func (m Model) mode() partitions.Mode {
	return partitions.ResolveMode(m.opts.DetectUEFI(), m.config().ForceUEFI)
}

// Update implements tea.Model.Update and routes every message.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case drives.DisksLoaded:
		return m.disksLoaded(msg)

	case state.DiskSizeMsg:
		return m.diskSizeRead(msg)

	case state.InstallProgress:
		return m.installProgress(msg)

	case state.AnimateMsg:
		m.frame++
		if m.screen == screens.ScreenProgress {
			return m, animate()
		}
		return m, nil

	case state.ErrorMsg:
		return m.showError(msg.Message), nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}

	return m, nil
}

func (m Model) showError(message string) Model {
	if m.screen != screens.ScreenError {
		m.lastScreen = m.screen
	}
	m.message = message
	m.screen = screens.ScreenError
	return m
}

func (m Model) disksLoaded(msg drives.DisksLoaded) (tea.Model, tea.Cmd) {
	m.loadingDisks = false
	if msg.Err != nil {
		m.opts.Logger.Error("disk scan failed", zap.Error(msg.Err))
		m.screen = screens.ScreenLocale
		m.choices = screens.LocaleChoices
		return m.showError(fmt.Sprintf("Failed to list disks: %v", msg.Err)), nil
	}

	m.disks = msg.Disks
	m.choices = make([]string, len(m.disks)+1)
	for i, d := range m.disks {
		m.choices[i] = fmt.Sprintf("%s (%s) - %s", d.Path, drives.FormatBytes(d.SizeBytes), d.Label())
	}
	m.choices[len(m.disks)] = "Back"

	m.cursor = 0
	if preset := m.config().Disk; preset != "" {
		for i, d := range m.disks {
			if d.Path == preset {
				m.cursor = i
			}
		}
	}
	if len(m.disks) == 0 {
		m.message = "No installable disks were found."
	}
	return m, nil
}

// readDiskSize asks the kernel for the exact size of path.
func (m Model) readDiskSize(path string) tea.Cmd {
	sizer := m.opts.DiskSize
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		size, err := sizer(ctx, path)
		return state.DiskSizeMsg{Path: path, Size: size, Err: err}
	}
}

func (m Model) diskSizeRead(msg state.DiskSizeMsg) (tea.Model, tea.Cmd) {
	m.readingSize = false
	size := msg.Size
	if msg.Err != nil {
		// lsblk already reported a size; blockdev is only more precise
		d, ok := drives.FindDisk(m.disks, msg.Path)
		if !ok || d.SizeBytes == 0 {
			return m.showError(fmt.Sprintf("Failed to read the size of %s: %v", msg.Path, msg.Err)), nil
		}
		m.opts.Logger.Warn("blockdev failed, using lsblk size", zap.String("disk", msg.Path), zap.Error(msg.Err))
		size = d.SizeBytes
	}

	m.diskSize = size
	m.opts.Store.SetDisk(msg.Path)
	m.opts.Logger.Info("disk selected", zap.String("disk", msg.Path), zap.Uint64("size", size))

	m.message = ""
	m.screen = screens.ScreenMethod
	m.choices = screens.MethodChoices
	m.cursor = 0
	if m.config().Method == store.MethodManual && m.config().PartitionCount() > 0 {
		m.cursor = 1
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// error screen: any key returns to where the error came from
	if m.screen == screens.ScreenError {
		m.screen = m.lastScreen
		m.message = ""
		return m, nil
	}

	if m.screen == screens.ScreenComplete {
		return m, tea.Quit
	}

	if msg.String() == "ctrl+c" {
		return m.abort()
	}

	if m.screen == screens.ScreenPartitionEdit {
		return m.handleFormKey(msg)
	}

	switch msg.String() {
	case "q":
		if m.screen == screens.ScreenLocale {
			return m.abort()
		}
		return m, nil

	case "esc":
		return m.back()

	case "up", "k":
		m = m.moveCursor(-1)
		return m, nil

	case "down", "j":
		m = m.moveCursor(1)
		return m, nil

	case "f":
		if m.screen == screens.ScreenMethod {
			m.opts.Store.SetForceUEFI(m.config().ForceUEFI.Next())
			m.opts.Logger.Debug("firmware override changed", zap.Stringer("override", m.config().ForceUEFI))
		}
		return m, nil

	case "d", "delete":
		if m.screen == screens.ScreenPartitions {
			return m.removePartition()
		}
		return m, nil

	case "enter", " ":
		return m.handleSelection()
	}

	return m, nil
}

// moveCursor moves through the menu with wrap-around.
func (m Model) moveCursor(delta int) Model {
	n := len(m.choices)
	if m.screen == screens.ScreenPartitions {
		n += m.opts.Store.PartitionCount()
	}
	if n == 0 || m.screen == screens.ScreenProgress || m.screen == screens.ScreenAutoPreview {
		return m
	}
	m.cursor = ((m.cursor+delta)%n + n) % n
	return m
}

// abort leaves the wizard. During installation the orchestrator is asked to
// stop after the running phase; the program quits once it returns.
func (m Model) abort() (tea.Model, tea.Cmd) {
	if m.screen == screens.ScreenProgress && !m.progress.Done {
		if m.cancel != nil {
			m.cancel()
		}
		m.aborting = true
		m.message = "Aborting after the current step finishes..."
		return m, nil
	}
	m.aborted = true
	return m, tea.Quit
}

// back implements Esc for every wizard step.
func (m Model) back() (tea.Model, tea.Cmd) {
	m.message = ""
	switch m.screen {
	case screens.ScreenDisk:
		m.screen = screens.ScreenLocale
		m.choices = screens.LocaleChoices
		m.cursor = screens.IndexOf(screens.LocaleChoices, m.config().Locale)
	case screens.ScreenMethod:
		m = m.enterDisk()
		return m, m.opts.LoadDisks()
	case screens.ScreenAutoPreview:
		// the generated layout is discarded when leaving the preview
		m.opts.Store.ClearPartitions()
		m.planErr = nil
		m.screen = screens.ScreenMethod
		m.choices = screens.MethodChoices
		m.cursor = 0
	case screens.ScreenPartitions:
		m.screen = screens.ScreenMethod
		m.choices = screens.MethodChoices
		m.cursor = 1
	case screens.ScreenConfirm:
		screen, choices := handlers.PreviousScreen(m.config().Method)
		if !m.report.CanInstall() {
			screen, choices = handlers.ReconfigureScreen(m.config().Method)
		}
		m = m.enterScreen(screen, choices)
	}
	return m, nil
}

func (m Model) enterDisk() Model {
	m.screen = screens.ScreenDisk
	m.choices = nil
	m.cursor = 0
	m.loadingDisks = true
	return m
}

// enterScreen switches to screen, running the entry work some screens need.
func (m Model) enterScreen(screen screens.Screen, choices []string) Model {
	m.screen = screen
	m.choices = choices
	m.cursor = 0
	switch screen {
	case screens.ScreenAutoPreview:
		m = m.planAuto()
	case screens.ScreenMethod:
		if m.config().Method == store.MethodManual {
			m.cursor = 1
		}
	case screens.ScreenConfirm:
		m.report = partitions.Check(m.config().Partitions, m.mode())
		m.choices = screens.ConfirmChoices
	}
	return m
}

// planAuto runs the planner for the selected disk. On failure the store is
// left untouched and the preview shows the error.
func (m Model) planAuto() Model {
	mode := m.mode()
	m.planErr = partitions.PlanInto(m.opts.Store, m.diskSize, mode)
	if m.planErr != nil {
		m.opts.Logger.Warn("automatic partitioning unavailable", zap.Error(m.planErr))
	} else {
		m.opts.Logger.Info("automatic layout planned", zap.Stringer("mode", mode), zap.Uint64("disk_size", m.diskSize))
	}
	return m
}

// handleSelection processes Enter on the current screen.
func (m Model) handleSelection() (tea.Model, tea.Cmd) {
	m.message = ""
	switch m.screen {
	case screens.ScreenLocale:
		h := handlers.NewLocaleHandler(m.opts.Store, m.opts.LoadDisks)
		screen, _, _, cmd := h.HandleSelection(m.cursor)
		if screen == screens.ScreenDisk {
			m = m.enterDisk()
		}
		return m, cmd

	case screens.ScreenDisk:
		return m.selectDisk()

	case screens.ScreenMethod:
		h := handlers.NewMethodHandler(m.opts.Store)
		screen, _, choices, _ := h.HandleSelection(m.cursor)
		return m.enterScreen(screen, choices), nil

	case screens.ScreenAutoPreview:
		if m.planErr != nil {
			return m.back()
		}
		return m.enterScreen(screens.ScreenConfirm, nil), nil

	case screens.ScreenPartitions:
		return m.editorSelection()

	case screens.ScreenConfirm:
		h := handlers.NewConfirmHandler(m.opts.Store, m.report.CanInstall())
		screen, op, choices, _ := h.HandleSelection(m.cursor)
		if op == "install" {
			return m.startInstall()
		}
		m = m.enterScreen(screen, choices)
		if op == "blocked" {
			m.message = "Fix the partition layout before installing."
		}
		return m, nil

	case screens.ScreenFailure:
		h := handlers.NewFailureHandler(m.opts.Store)
		screen, op, choices, _ := h.HandleSelection(m.cursor)
		if op == "retry" {
			return m.startInstall()
		}
		return m.enterScreen(screen, choices), nil
	}

	return m, nil
}

func (m Model) selectDisk() (tea.Model, tea.Cmd) {
	if m.loadingDisks || m.readingSize {
		return m, nil
	}
	if m.cursor >= len(m.disks) {
		return m.back()
	}

	d := m.disks[m.cursor]
	if !d.Selectable() {
		if d.InUse {
			m.message = fmt.Sprintf("%s is in use (mounted at %v).", d.Path, d.MountPoints)
		} else {
			m.message = fmt.Sprintf("%s is read-only.", d.Path)
		}
		return m, nil
	}

	// a different disk invalidates any layout sized for the previous one
	if prev := m.config().Disk; prev != "" && prev != d.Path {
		m.opts.Store.ClearPartitions()
	}

	m.readingSize = true
	m.message = "Reading disk size..."
	return m, m.readDiskSize(d.Path)
}

// editorSelection handles Enter in the manual editor: the control rows come
// first, then one row per partition.
func (m Model) editorSelection() (tea.Model, tea.Cmd) {
	parts := m.opts.Store.Partitions()

	if m.cursor >= len(m.choices) {
		i := m.cursor - len(m.choices)
		if i < len(parts) {
			m.form = editPartitionForm(i, parts[i])
			m.screen = screens.ScreenPartitionEdit
		}
		return m, nil
	}

	switch m.cursor {
	case screens.EditorAdd:
		if len(parts) >= store.MaxPartitions {
			m.message = store.ErrTooManyPartitions.Error()
			return m, nil
		}
		m.form = newPartitionForm(parts, m.diskSize)
		m.screen = screens.ScreenPartitionEdit

	case screens.EditorAutofill:
		layout, err := partitions.Autofill(m.diskSize, m.mode(), drives.SuggestSwapSize())
		if err == nil {
			err = m.opts.Store.ReplacePartitions(layout)
		}
		if err != nil {
			m.message = err.Error()
		}

	case screens.EditorContinue:
		return m.enterScreen(screens.ScreenConfirm, nil), nil

	case screens.EditorBack:
		return m.back()
	}
	return m, nil
}

func (m Model) removePartition() (tea.Model, tea.Cmd) {
	i := m.cursor - len(m.choices)
	if i < 0 {
		return m, nil
	}
	if err := m.opts.Store.RemovePartition(i); err != nil {
		m.message = err.Error()
		return m, nil
	}
	if m.cursor > 0 && m.cursor >= len(m.choices)+m.opts.Store.PartitionCount() {
		m.cursor--
	}
	return m, nil
}

// handleFormKey drives the add/edit partition dialog.
func (m Model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	f := m.form
	switch msg.Type {
	case tea.KeyEsc:
		return m.closeForm(), nil
	case tea.KeyUp, tea.KeyShiftTab:
		f.move(-1)
	case tea.KeyDown, tea.KeyTab:
		f.move(1)
	case tea.KeyLeft:
		f.cycle(-1)
	case tea.KeyRight:
		f.cycle(1)
	case tea.KeyBackspace:
		f.backspace()
	case tea.KeySpace:
		f.toggle()
	case tea.KeyEnter:
		switch f.field {
		case screens.FieldSave:
			if err := f.save(m.opts.Store, m.diskSize); err != nil {
				f.err = err.Error()
				return m, nil
			}
			return m.closeForm(), nil
		case screens.FieldCancel:
			return m.closeForm(), nil
		case screens.FieldBoot, screens.FieldESP, screens.FieldBiosGrub:
			f.toggle()
		default:
			f.move(1)
		}
	case tea.KeyRunes:
		for _, r := range msg.Runes {
			f.typeRune(r)
		}
	}
	return m, nil
}

func (m Model) closeForm() Model {
	m.form = nil
	m.screen = screens.ScreenPartitions
	m.choices = screens.EditorControlChoices
	return m
}

// startInstall snapshots the configuration and launches an attempt.
func (m Model) startInstall() (tea.Model, tea.Cmd) {
	orch := m.opts.Orchestrator
	if orch == nil {
		return m.showError("No installer backend is configured."), nil
	}

	cfg := m.config()
	orch.DiskSize = m.diskSize
	orch.Log.Printf("%s", GetInstallLogHeader(orch.Attempts()+1))

	if m.opts.SessionPath != "" {
		if err := SaveSession(m.opts.SessionPath, cfg, orch.Attempts()+1); err != nil {
			m.opts.Logger.Warn("failed to save session", zap.Error(err))
		}
	}

	m.opts.Logger.Info("starting installation",
		zap.String("disk", cfg.Disk),
		zap.Stringer("method", cfg.Method),
		zap.Int("partitions", cfg.PartitionCount()),
		zap.Bool("dry_run", cfg.DryRun),
		zap.Int("attempt", orch.Attempts()+1))

	ctx, cancel := context.WithCancel(context.Background())
	m.cancel = cancel
	m.aborting = false
	m.result = nil
	m.progress = state.InstallProgress{}
	m.screen = screens.ScreenProgress
	m.choices = nil
	m.cursor = 0
	m.message = ""

	return m, tea.Batch(
		startInstall(ctx, orch, cfg, m.tracker, m.opts.Logger),
		animate(),
	)
}

func (m Model) installProgress(msg state.InstallProgress) (tea.Model, tea.Cmd) {
	m.progress = msg
	if !msg.Done {
		return m, CheckInstallProgress(m.tracker, m.opts.InstallLog)
	}

	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
	m.result = msg.Err

	switch {
	case msg.Err == nil:
		m.screen = screens.ScreenComplete
	case errors.Is(msg.Err, context.Canceled):
		m.aborted = true
		return m, tea.Quit
	default:
		m.screen = screens.ScreenFailure
		m.choices = screens.FailureChoices
		m.cursor = 0
		m.message = firstLine(msg.Err.Error())
	}
	return m, nil
}
