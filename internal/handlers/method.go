package handlers

import (
	"limeinstall/internal/screens"
	"limeinstall/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

// MethodHandler handles the easy/manual partitioning choice
type MethodHandler struct {
	store *store.Store
}

// NewMethodHandler creates a new method handler
func NewMethodHandler(s *store.Store) *MethodHandler {
	return &MethodHandler{store: s}
}

// HandleSelection stores the method and returns the partitioning screen for
// it. The easy path returns the "plan_auto" operation; the model runs the
// planner because it knows the disk size and firmware mode.
func (h *MethodHandler) HandleSelection(cursor int) (screen screens.Screen, operation string, choices []string, cmd tea.Cmd) {
	switch cursor {
	case 0: // Easy
		h.store.SetMethod(store.MethodEasy)
		return screens.ScreenAutoPreview, "plan_auto", nil, nil
	case 1: // Manual
		h.store.SetMethod(store.MethodManual)
		return screens.ScreenPartitions, "", screens.EditorControlChoices, nil
	}
	return screens.ScreenMethod, "", screens.MethodChoices, nil
}
