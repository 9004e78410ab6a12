package handlers

import (
	"limeinstall/internal/screens"
	"limeinstall/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

// ConfirmHandler gates installation on the validation result
type ConfirmHandler struct {
	store      *store.Store
	canInstall bool
}

// NewConfirmHandler creates a confirm handler for a layout that has already
// been checked; canInstall is the validation gate.
func NewConfirmHandler(s *store.Store, canInstall bool) *ConfirmHandler {
	return &ConfirmHandler{store: s, canInstall: canInstall}
}

// HandleSelection starts the installation when the gate passes. Back, or
// Install on a blocked layout, returns to the step that can fix it.
func (h *ConfirmHandler) HandleSelection(cursor int) (screen screens.Screen, operation string, choices []string, cmd tea.Cmd) {
	method := h.store.Snapshot().Method
	switch cursor {
	case 0: // Install
		if h.canInstall {
			return screens.ScreenProgress, "install", nil, nil
		}
		screen, choices = ReconfigureScreen(method)
		return screen, "blocked", choices, nil
	case 1: // Back
		if !h.canInstall {
			screen, choices = ReconfigureScreen(method)
			return screen, "", choices, nil
		}
		screen, choices = PreviousScreen(method)
		return screen, "", choices, nil
	}
	return screens.ScreenConfirm, "", screens.ConfirmChoices, nil
}
