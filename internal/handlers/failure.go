package handlers

import (
	"limeinstall/internal/screens"
	"limeinstall/internal/store"

	tea "github.com/charmbracelet/bubbletea"
)

// ReconfigureScreen is where "return to configuration" and a blocked
// confirmation land: the method step for the easy path, since the generated
// layout can only change by switching method or firmware mode, and the
// partition editor for the manual path.
func ReconfigureScreen(method store.Method) (screens.Screen, []string) {
	if method == store.MethodEasy {
		return screens.ScreenMethod, screens.MethodChoices
	}
	return screens.ScreenPartitions, screens.EditorControlChoices
}

// PreviousScreen is the step before confirmation for method.
func PreviousScreen(method store.Method) (screens.Screen, []string) {
	if method == store.MethodEasy {
		return screens.ScreenAutoPreview, nil
	}
	return screens.ScreenPartitions, screens.EditorControlChoices
}

// FailureHandler handles the retry-or-reconfigure choice after a failed install
type FailureHandler struct {
	store *store.Store
}

// NewFailureHandler creates a new failure handler
func NewFailureHandler(s *store.Store) *FailureHandler {
	return &FailureHandler{store: s}
}

// HandleSelection returns "retry" with the progress screen, or the
// reconfiguration step for the current method.
func (h *FailureHandler) HandleSelection(cursor int) (screen screens.Screen, operation string, choices []string, cmd tea.Cmd) {
	switch cursor {
	case 0: // Retry
		return screens.ScreenProgress, "retry", nil, nil
	case 1: // Return to configuration
		screen, choices = ReconfigureScreen(h.store.Snapshot().Method)
		return screen, "reconfigure", choices, nil
	}
	return screens.ScreenFailure, "", screens.FailureChoices, nil
}
