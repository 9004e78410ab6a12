package internal

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"limeinstall/internal/command"
	"limeinstall/internal/drives"
	"limeinstall/internal/install"
	"limeinstall/internal/partitions"
	"limeinstall/internal/screens"
	"limeinstall/internal/state"
	"limeinstall/internal/store"
)

// Styles
var (
	// Tokyo Night palette
	primaryColor    = lipgloss.Color("#7aa2f7") // blue
	secondaryColor  = lipgloss.Color("#9ece6a") // green
	warningColor    = lipgloss.Color("#e0af68") // yellow
	errorColor      = lipgloss.Color("#f7768e") // red
	successColor    = lipgloss.Color("#9ece6a") // green
	textColor       = lipgloss.Color("#c0caf5") // foreground
	dimColor        = lipgloss.Color("#565f89") // comment
	backgroundColor = lipgloss.Color("#1a1b26") // background
	borderColor     = lipgloss.Color("#414868") // border

	asciiStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true).
			Align(lipgloss.Center).
			MarginBottom(1)

	titleStyle = lipgloss.NewStyle().
			Foreground(secondaryColor).
			Bold(true).
			Align(lipgloss.Center).
			MarginBottom(1)

	subtitleStyle = lipgloss.NewStyle().
			Foreground(textColor).
			Align(lipgloss.Center).
			MarginBottom(1)

	menuItemStyle = lipgloss.NewStyle().
			PaddingLeft(2).
			PaddingRight(2).
			Foreground(textColor)

	selectedMenuItemStyle = lipgloss.NewStyle().
				PaddingLeft(2).
				PaddingRight(2).
				Background(primaryColor).
				Foreground(backgroundColor).
				Bold(true).
				Border(lipgloss.RoundedBorder()).
				BorderForeground(primaryColor)

	inactiveMenuItemStyle = menuItemStyle.
				Foreground(dimColor)

	borderStyle = lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(2, 3).
			Margin(1)

	warningStyle = lipgloss.NewStyle().
			Foreground(backgroundColor).
			Background(warningColor).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(warningColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(backgroundColor).
			Background(errorColor).
			Bold(true).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(errorColor)

	successStyle = lipgloss.NewStyle().
			Foreground(backgroundColor).
			Background(successColor).
			Bold(true).
			Align(lipgloss.Center).
			Padding(0, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(successColor)

	helpStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			Align(lipgloss.Center).
			Italic(true).
			MarginTop(2)

	infoBoxStyle = lipgloss.NewStyle().
			Background(borderColor).
			Foreground(textColor).
			Padding(0, 1).
			Margin(0).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(dimColor)

	logBoxStyle = lipgloss.NewStyle().
			Foreground(dimColor).
			Padding(0, 1).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(borderColor)

	tableHeaderStyle = lipgloss.NewStyle().
				Foreground(primaryColor).
				Bold(true)
)

// ASCII art for the program name
const asciiArt = ` _     _                 ___  ____
| |   (_)_ __ ___   ___ / _ \/ ___|
| |   | | '_ ' _ \ / _ \ | | \___ \
| |___| | | | | | |  __/ |_| |___) |
|_____|_|_| |_| |_|\___|\___/|____/ `

// View implements tea.Model.View.
func (m Model) View() string {
	switch m.screen {
	case screens.ScreenLocale:
		return m.renderMenuScreen(m.renderInfo(CurrentSymbols.Locale + " The locale sets the language and formats of the installed system."))
	case screens.ScreenDisk:
		return m.renderDiskSelect()
	case screens.ScreenMethod:
		return m.renderMethod()
	case screens.ScreenAutoPreview:
		return m.renderAutoPreview()
	case screens.ScreenPartitions:
		return m.renderPartitions()
	case screens.ScreenPartitionEdit:
		return m.renderPartitionForm()
	case screens.ScreenConfirm:
		return m.renderConfirmation()
	case screens.ScreenProgress:
		return m.renderProgress()
	case screens.ScreenFailure:
		return m.renderFailure()
	case screens.ScreenComplete:
		return m.renderComplete()
	case screens.ScreenError:
		return m.renderError()
	default:
		return "Unknown screen"
	}
}

// frameContent centers content inside the rounded border.
func (m Model) frameContent(s string) string {
	content := borderStyle.Width(m.width - 8).Render(s)
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m Model) renderHeader() string {
	ascii := asciiStyle.Render(asciiArt)
	title := titleStyle.Render(AppDesc)
	subtitle := subtitleStyle.Render(GetSubtitle())

	header := ascii + "\n" + title + "\n" + subtitle
	if m.config().DryRun {
		header += "\n" + warningStyle.Render("DRY RUN: commands are logged to "+command.DryRunLogPath+", nothing is changed")
	}
	return header
}

func (m Model) renderHelp() string {
	return helpStyle.Render("↑/↓: navigate • enter: select • esc: back • ctrl+c: quit")
}

func (m Model) renderInfo(text string) string {
	return infoBoxStyle.Render(text)
}

// renderChoices draws the menu with the cursor row highlighted.
func (m Model) renderChoices(s *strings.Builder) {
	for i, choice := range m.choices {
		if m.cursor == i {
			s.WriteString(selectedMenuItemStyle.Render(CurrentSymbols.Cursor+" "+choice) + "\n")
		} else {
			s.WriteString(menuItemStyle.Render("  "+choice) + "\n")
		}
	}
}

func (m Model) renderMessage(s *strings.Builder) {
	if m.message != "" {
		s.WriteString("\n" + warningStyle.Render(m.message) + "\n")
	}
}

// renderMenuScreen is the layout shared by plain menu steps.
func (m Model) renderMenuScreen(info string) string {
	var s strings.Builder

	s.WriteString(m.renderHeader() + "\n\n")
	s.WriteString(titleStyle.Render(m.screen.Title()) + "\n\n")
	m.renderChoices(&s)

	if info != "" {
		s.WriteString("\n" + info + "\n")
	}
	m.renderMessage(&s)
	s.WriteString("\n" + m.renderHelp())

	return m.frameContent(s.String())
}

func (m Model) renderDiskSelect() string {
	var s strings.Builder

	s.WriteString(m.renderHeader() + "\n\n")
	s.WriteString(titleStyle.Render(m.screen.Title()) + "\n\n")

	if m.loadingDisks {
		s.WriteString(subtitleStyle.Render("Scanning disks...") + "\n")
		return m.frameContent(s.String())
	}

	for i, choice := range m.choices {
		label := FormatDrive(choice)
		if i == len(m.disks) {
			label = choice
		}
		switch {
		case m.cursor == i:
			s.WriteString(selectedMenuItemStyle.Render(CurrentSymbols.Cursor+" "+label) + "\n")
		case i < len(m.disks) && !m.disks[i].Selectable():
			s.WriteString(inactiveMenuItemStyle.Render("  "+label+" (in use)") + "\n")
		default:
			s.WriteString(menuItemStyle.Render("  "+label) + "\n")
		}
	}

	s.WriteString("\n" + m.renderInfo(FormatWarning("The selected disk will be completely erased.")) + "\n")
	m.renderMessage(&s)
	s.WriteString("\n" + m.renderHelp())

	return m.frameContent(s.String())
}

// modeDescription explains how the firmware mode was decided.
func (m Model) modeDescription() string {
	mode := m.mode()
	switch m.config().ForceUEFI {
	case store.FirmwareForceUEFI, store.FirmwareForceBIOS:
		return fmt.Sprintf("%s (forced, host reports %s)", mode, partitions.ResolveMode(m.opts.DetectUEFI(), store.FirmwareAuto))
	default:
		return fmt.Sprintf("%s (detected)", mode)
	}
}

func (m Model) renderMethod() string {
	cfg := m.config()
	info := fmt.Sprintf("Disk: %s (%s)\nFirmware: %s\nOverride: %s",
		cfg.Disk, drives.FormatBytes(m.diskSize), m.modeDescription(), cfg.ForceUEFI)

	var s strings.Builder
	s.WriteString(m.renderHeader() + "\n\n")
	s.WriteString(titleStyle.Render(m.screen.Title()) + "\n\n")

	for i, choice := range m.choices {
		// mark the method already configured
		if (i == 0 && cfg.Method == store.MethodEasy) || (i == 1 && cfg.Method == store.MethodManual && cfg.PartitionCount() > 0) {
			choice += " " + CurrentSymbols.Selected
		}
		if m.cursor == i {
			s.WriteString(selectedMenuItemStyle.Render(CurrentSymbols.Cursor+" "+choice) + "\n")
		} else {
			s.WriteString(menuItemStyle.Render("  "+choice) + "\n")
		}
	}

	s.WriteString("\n" + m.renderInfo(info) + "\n")
	m.renderMessage(&s)
	s.WriteString("\n" + helpStyle.Render("↑/↓: navigate • enter: select • f: firmware override • esc: back"))

	return m.frameContent(s.String())
}

func (m Model) renderAutoPreview() string {
	var s strings.Builder
	s.WriteString(m.renderHeader() + "\n\n")
	s.WriteString(titleStyle.Render(m.screen.Title()) + "\n\n")

	mode := m.mode()
	if m.planErr != nil {
		s.WriteString(errorStyle.Render("Disk is too small for automatic partitioning.") + "\n\n")
		s.WriteString(subtitleStyle.Render(fmt.Sprintf("Minimum %s required, disk has %s. Use Manual mode instead.",
			drives.FormatBytes(partitions.MinimumDiskSize(mode)), drives.FormatBytes(m.diskSize))) + "\n")
		s.WriteString("\n" + helpStyle.Render("esc: back"))
		return m.frameContent(s.String())
	}

	var info string
	if mode == partitions.UEFI {
		info = fmt.Sprintf("UEFI mode detected.\nCreating ESP (%s) + Root partition.", drives.FormatBytes(partitions.ESPSize))
	} else {
		info = fmt.Sprintf("BIOS mode detected.\nCreating BIOS boot (%s) + Root partition.", drives.FormatBytes(partitions.BiosGrubSize))
	}
	s.WriteString(m.renderInfo(info) + "\n\n")
	s.WriteString(m.renderPartitionTable(m.config(), -1) + "\n")

	s.WriteString("\n" + helpStyle.Render("enter: continue • esc: back"))
	return m.frameContent(s.String())
}

// renderPartitionTable lists the partitions of cfg with their device names.
// selected highlights one row, -1 for none.
func (m Model) renderPartitionTable(cfg store.Config, selected int) string {
	var s strings.Builder

	header := fmt.Sprintf("%-16s %10s  %-10s %-6s %-8s %s", "Device", "Size", "Mount", "FS", "Type", "Flags")
	s.WriteString(tableHeaderStyle.Render(header) + "\n")

	if len(cfg.Partitions) == 0 {
		s.WriteString(inactiveMenuItemStyle.Render("  No partitions configured.") + "\n")
	}

	for i, p := range cfg.Partitions {
		row := fmt.Sprintf("%-16s %10s  %-10s %-6s %-8s %s",
			truncate(partitions.DeviceName(cfg.Disk, i+1), 16),
			drives.FormatBytes(p.SizeBytes),
			truncate(p.MountPoint, 10),
			p.Filesystem,
			p.Type,
			strings.Join(p.Flags(), ","))
		if i == selected {
			s.WriteString(selectedMenuItemStyle.Render(CurrentSymbols.Cursor+" "+row) + "\n")
		} else {
			s.WriteString(menuItemStyle.Render("  "+row) + "\n")
		}
	}

	free := drives.FreeBytes(m.diskSize, cfg.Partitions)
	s.WriteString("\n" + subtitleStyle.Render(fmt.Sprintf("Disk %s • Used %s • Free %s",
		drives.FormatBytes(m.diskSize), drives.FormatBytes(cfg.UsedBytes()), drives.FormatBytes(free))))

	return s.String()
}

func (m Model) renderPartitions() string {
	cfg := m.config()

	var s strings.Builder
	s.WriteString(m.renderHeader() + "\n\n")
	s.WriteString(titleStyle.Render(m.screen.Title()) + "\n\n")

	m.renderChoices(&s)
	s.WriteString("\n")
	s.WriteString(m.renderPartitionTable(cfg, m.cursor-len(m.choices)) + "\n")

	hint := fmt.Sprintf("Firmware: %s • Suggested swap: %s (RAM)",
		m.modeDescription(), drives.FormatBytes(drives.SuggestSwapSize()))
	s.WriteString("\n" + m.renderInfo(hint) + "\n")

	m.renderMessage(&s)
	s.WriteString("\n" + helpStyle.Render("↑/↓: navigate • enter: select/edit • d: delete • esc: back"))

	return m.frameContent(s.String())
}

func (m Model) renderPartitionForm() string {
	f := m.form

	var s strings.Builder
	s.WriteString(m.renderHeader() + "\n\n")

	title := "Add Partition"
	if f.index >= 0 {
		title = fmt.Sprintf("Edit Partition %d", f.index+1)
	}
	s.WriteString(titleStyle.Render(title) + "\n\n")

	check := func(on bool) string {
		if on {
			return "[x]"
		}
		return "[ ]"
	}

	fields := []string{
		fmt.Sprintf("Size:        %s_", f.size),
		fmt.Sprintf("Mount point: ◀ %s ▶", f.mountPoint()),
		fmt.Sprintf("Filesystem:  ◀ %s ▶", f.fs),
		fmt.Sprintf("Type:        ◀ %s ▶", f.ptype),
		check(f.boot) + " boot",
		check(f.esp) + " esp",
		check(f.biosGrub) + " bios_grub",
		"Save",
		"Cancel",
	}
	for i, field := range fields {
		if f.field == i {
			s.WriteString(selectedMenuItemStyle.Render(CurrentSymbols.Cursor+" "+field) + "\n")
		} else {
			s.WriteString(menuItemStyle.Render("  "+field) + "\n")
		}
	}

	free := drives.FreeBytes(m.diskSize, m.config().Partitions)
	s.WriteString("\n" + m.renderInfo(fmt.Sprintf("Free space: %s\nSizes accept units such as 512M, 20GB or 1.5TiB.", drives.FormatBytes(free))) + "\n")

	if f.err != "" {
		s.WriteString("\n" + errorStyle.Render(f.err) + "\n")
	}

	s.WriteString("\n" + helpStyle.Render("↑/↓: field • ←/→: change • space: toggle • enter: confirm • esc: cancel"))
	return m.frameContent(s.String())
}

func (m Model) renderConfirmation() string {
	cfg := m.config()

	var s strings.Builder
	s.WriteString(m.renderHeader() + "\n\n")
	s.WriteString(titleStyle.Render(m.screen.Title()) + "\n\n")

	summary := fmt.Sprintf("Locale: %s\nDisk: %s (%s)\nMethod: %s\nFirmware: %s\nPartitions: %d",
		cfg.Locale, cfg.Disk, drives.FormatBytes(m.diskSize), cfg.Method, m.modeDescription(), cfg.PartitionCount())
	s.WriteString(m.renderInfo(summary) + "\n\n")
	s.WriteString(m.renderPartitionTable(cfg, -1) + "\n\n")

	if m.report.CanInstall() {
		s.WriteString(warningStyle.Render(fmt.Sprintf("ALL DATA ON %s WILL BE ERASED", cfg.Disk)) + "\n\n")
	} else {
		for _, msg := range m.report.Messages() {
			s.WriteString(errorStyle.Render(msg) + "\n")
		}
		s.WriteString("\n")
	}

	m.renderChoices(&s)
	m.renderMessage(&s)
	s.WriteString("\n" + m.renderHelp())

	return m.frameContent(s.String())
}

// phaseGlyph returns the symbol drawn next to a phase.
func (m Model) phaseGlyph(ph state.PhaseStatus) string {
	switch ph.State {
	case state.PhaseRunning:
		return GetSpinnerFrame(m.frame + m.progress.Ticks)
	case state.PhaseDone:
		return CurrentSymbols.Done
	case state.PhaseFailed:
		return CurrentSymbols.Failed
	case state.PhaseSkipped:
		return CurrentSymbols.Skipped
	default:
		return CurrentSymbols.Pending
	}
}

func (m Model) renderPhases(s *strings.Builder) {
	phases := m.progress.Phases
	if len(phases) == 0 {
		for _, p := range install.Phases {
			phases = append(phases, state.PhaseStatus{Phase: p})
		}
	}

	for _, ph := range phases {
		line := fmt.Sprintf("%s %s", m.phaseGlyph(ph), ph.Phase.Title())
		switch ph.State {
		case state.PhaseDone:
			if ph.Warnings != nil {
				line += " (with warnings)"
			}
			s.WriteString(lipgloss.NewStyle().Foreground(successColor).Render(line) + "\n")
		case state.PhaseFailed:
			line += fmt.Sprintf(" (code %d)", ph.Code)
			s.WriteString(lipgloss.NewStyle().Foreground(errorColor).Render(line) + "\n")
		case state.PhaseRunning:
			s.WriteString(lipgloss.NewStyle().Foreground(primaryColor).Bold(true).Render(line) + "\n")
		default:
			s.WriteString(lipgloss.NewStyle().Foreground(dimColor).Render(line) + "\n")
		}
	}
}

func (m Model) renderLogTail(s *strings.Builder) {
	if len(m.progress.LogTail) == 0 {
		return
	}
	width := m.width - 20
	lines := make([]string, len(m.progress.LogTail))
	for i, l := range m.progress.LogTail {
		lines[i] = truncate(l, width)
	}
	s.WriteString(logBoxStyle.Render(strings.Join(lines, "\n")) + "\n")
}

func (m Model) renderProgress() string {
	var s strings.Builder
	s.WriteString(m.renderHeader() + "\n\n")

	if m.aborting {
		s.WriteString(titleStyle.Render("Aborting Installation") + "\n\n")
	} else {
		s.WriteString(titleStyle.Render("Installing LimeOS to "+m.config().Disk) + "\n\n")
	}

	m.renderPhases(&s)
	s.WriteString("\n" + m.renderProgressBar() + "\n\n")
	m.renderLogTail(&s)

	if m.message != "" {
		s.WriteString("\n" + warningStyle.Render(m.message) + "\n")
	}

	logPath := m.opts.InstallLog.Path()
	if logPath == "" {
		logPath = command.InstallLogPath
	}
	s.WriteString(subtitleStyle.Render("Log: "+logPath) + "\n")

	if m.aborting {
		s.WriteString(helpStyle.Render("Please wait for the current step to finish..."))
	} else {
		s.WriteString(helpStyle.Render("Please wait... • ctrl+c: abort after the current step"))
	}

	return m.frameContent(s.String())
}

// renderProgressBar shows completed phases with a sweeping highlight.
func (m Model) renderProgressBar() string {
	width := 50

	total := len(install.Phases)
	ratio := float64(m.progress.Completed()) / float64(total)
	filled := int(ratio * float64(width))

	pos := m.frame % 20
	if pos >= 10 {
		pos = 20 - pos
	}
	pos = pos * width / 10

	var bar strings.Builder
	for i := 0; i < width; i++ {
		highlight := i == pos || i == pos+1
		switch {
		case i < filled && highlight:
			bar.WriteString("▓")
		case i < filled:
			bar.WriteString("█")
		case highlight:
			bar.WriteString("▒")
		default:
			bar.WriteString("░")
		}
	}

	text := fmt.Sprintf("Progress: [%s] %d/%d", bar.String(), m.progress.Completed(), total)
	return lipgloss.NewStyle().
		Foreground(primaryColor).
		Align(lipgloss.Center).
		Render(text)
}

func (m Model) renderFailure() string {
	cfg := m.config()

	var s strings.Builder
	s.WriteString(m.renderHeader() + "\n\n")
	s.WriteString(errorStyle.Render(fmt.Sprintf("Installation failed (exit code %d)", install.ExitCode(m.result))) + "\n\n")

	m.renderPhases(&s)
	s.WriteString("\n")

	if m.message != "" {
		s.WriteString(subtitleStyle.Render(m.message) + "\n")
	}

	summary := fmt.Sprintf("Locale: %s\nDisk: %s\nMethod: %s\nPartitions: %d\nLog: %s",
		cfg.Locale, cfg.Disk, cfg.Method, cfg.PartitionCount(), command.InstallLogPath)
	s.WriteString(m.renderInfo(summary) + "\n\n")

	m.renderLogTail(&s)
	s.WriteString("\n")
	m.renderChoices(&s)

	s.WriteString("\n" + helpStyle.Render("↑/↓: navigate • enter: select • ctrl+c: quit"))
	return m.frameContent(s.String())
}

func (m Model) renderComplete() string {
	var s strings.Builder
	s.WriteString(m.renderHeader() + "\n\n")
	s.WriteString(successStyle.Render("Installation complete") + "\n\n")

	m.renderPhases(&s)
	s.WriteString("\n")

	if m.config().DryRun {
		s.WriteString(subtitleStyle.Render("Dry run: the commands are listed in "+command.DryRunLogPath) + "\n")
	} else {
		s.WriteString(subtitleStyle.Render("Remove the installation media and reboot.") + "\n")
	}

	s.WriteString(helpStyle.Render("Press any key to exit"))
	return m.frameContent(s.String())
}

func (m Model) renderError() string {
	var s strings.Builder
	s.WriteString(m.renderHeader() + "\n\n")
	s.WriteString(errorStyle.Render(m.message) + "\n")
	s.WriteString(helpStyle.Render("Press any key to continue"))
	return m.frameContent(s.String())
}
