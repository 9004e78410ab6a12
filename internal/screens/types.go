package screens

import "strconv"

// Screen represents the different screens/views in the wizard
type Screen int

// Screen constants define all wizard steps in the order they are visited
const (
	ScreenLocale Screen = iota
	ScreenDisk
	ScreenMethod
	ScreenAutoPreview
	ScreenPartitions
	ScreenPartitionEdit
	ScreenConfirm
	ScreenProgress
	ScreenFailure
	ScreenComplete
	ScreenError
)

// String returns the string representation of a screen
func (s Screen) String() string {
	switch s {
	case ScreenLocale:
		return "Locale"
	case ScreenDisk:
		return "Disk Selection"
	case ScreenMethod:
		return "Partition Method"
	case ScreenAutoPreview:
		return "Automatic Partitioning"
	case ScreenPartitions:
		return "Manual Partitioning"
	case ScreenPartitionEdit:
		return "Edit Partition"
	case ScreenConfirm:
		return "Confirmation"
	case ScreenProgress:
		return "Installing"
	case ScreenFailure:
		return "Installation Failed"
	case ScreenComplete:
		return "Complete"
	case ScreenError:
		return "Error"
	default:
		return "Unknown"
	}
}

// Step returns the 1-based wizard step number shown in titles, or 0 for
// screens outside the step sequence.
func (s Screen) Step() int {
	switch s {
	case ScreenLocale:
		return 1
	case ScreenDisk:
		return 2
	case ScreenMethod:
		return 3
	case ScreenAutoPreview, ScreenPartitions, ScreenPartitionEdit:
		return 4
	case ScreenConfirm:
		return 5
	default:
		return 0
	}
}

// Title returns "Step N: Name" for wizard steps and the plain name otherwise.
func (s Screen) Title() string {
	if n := s.Step(); n > 0 {
		return "Step " + strconv.Itoa(n) + ": " + s.String()
	}
	return s.String()
}
