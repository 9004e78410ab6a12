package handlers

import (
	"limeinstall/internal/screens"
	"limeinstall/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

// LocaleHandler handles locale selections and returns the next screen state
type LocaleHandler struct {
	store     *store.Store
	loadDisks func() tea.Cmd
}

// NewLocaleHandler creates a new locale handler. loadDisks starts the disk
// scan for the next step.
func NewLocaleHandler(s *store.Store, loadDisks func() tea.Cmd) *LocaleHandler {
	return &LocaleHandler{store: s, loadDisks: loadDisks}
}

// HandleSelection records the locale under the cursor and moves to disk selection
func (h *LocaleHandler) HandleSelection(cursor int) (screen screens.Screen, operation string, choices []string, cmd tea.Cmd) {
	if cursor < 0 || cursor >= len(screens.LocaleChoices) {
		return screens.ScreenLocale, "", screens.LocaleChoices, nil
	}
	h.store.SetLocale(screens.LocaleChoices[cursor])

	if h.loadDisks != nil {
		cmd = h.loadDisks()
	}
	return screens.ScreenDisk, "load_disks", nil, cmd
}
