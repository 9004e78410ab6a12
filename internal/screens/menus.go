package screens

// Menu choice tables for the wizard screens
var (
	// LocaleChoices lists the locales offered on the first step. The first
	// entry is the default.
	LocaleChoices = []string{
		"en_US.UTF-8",
		"en_GB.UTF-8",
		"de_DE.UTF-8",
		"fr_FR.UTF-8",
		"es_ES.UTF-8",
		"it_IT.UTF-8",
		"nl_NL.UTF-8",
		"pl_PL.UTF-8",
		"pt_BR.UTF-8",
		"ru_RU.UTF-8",
		"ja_JP.UTF-8",
		"zh_CN.UTF-8",
	}

	// MethodChoices defines the partitioning methods in the order shown
	MethodChoices = []string{
		"Easy (Recommended) - Auto partition based on disk size",
		"Manual - Full control over partition layout",
	}

	// EditorControlChoices are the control rows above the partition table
	EditorControlChoices = []string{
		"Add partition",
		"Auto-fill layout",
		"Continue",
		"Back",
	}

	// ConfirmChoices defines the confirmation screen options
	ConfirmChoices = []string{
		"Install",
		"Back",
	}

	// FailureChoices are the two ways out of a failed installation
	FailureChoices = []string{
		"Retry installation",
		"Return to configuration",
	}

	// MountPresets are the mount points the partition form cycles through
	MountPresets = []string{
		"/",
		"/boot",
		"/boot/efi",
		"/home",
		"/var",
		"/tmp",
		"[swap]",
		"[bios]",
	}
)

// Editor control indexes
const (
	EditorAdd = iota
	EditorAutofill
	EditorContinue
	EditorBack
)

// Partition form fields in display order
const (
	FieldSize = iota
	FieldMount
	FieldFilesystem
	FieldType
	FieldBoot
	FieldESP
	FieldBiosGrub
	FieldSave
	FieldCancel
	FieldCount
)

// GetMenuChoices returns the fixed menu choices for a given screen
func GetMenuChoices(screen Screen) []string {
	switch screen {
	case ScreenLocale:
		return LocaleChoices
	case ScreenMethod:
		return MethodChoices
	case ScreenPartitions:
		return EditorControlChoices
	case ScreenConfirm:
		return ConfirmChoices
	case ScreenFailure:
		return FailureChoices
	default:
		return []string{}
	}
}

// IndexOf returns the position of value in choices, or 0 when absent.
func IndexOf(choices []string, value string) int {
	for i, c := range choices {
		if c == value {
			return i
		}
	}
	return 0
}
