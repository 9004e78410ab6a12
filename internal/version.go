// Package internal provides the interactive installer wizard for LimeOS.
//
// This module centralizes version and branding strings so the header, the
// about line and the install log all agree. To update the version, change
// AppVersion only.
package internal

// Application metadata constants.
const (
	// AppName is the official name of the application
	AppName = "LimeOS Installer"

	// AppVersion follows semantic versioning (major.minor.patch)
	AppVersion = "0.4.0"

	// AppAuthor is shown in the subtitle
	AppAuthor = "the LimeOS project"

	// AppDesc is the tagline used in the UI header
	AppDesc = "Install LimeOS to this computer"
)

// GetVersionString returns just the version number for programmatic use.
func GetVersionString() string {
	return AppVersion
}

// GetFullVersionString returns the application name with version for display.
// Example: "LimeOS Installer v0.4.0"
func GetFullVersionString() string {
	return AppName + " v" + AppVersion
}

// GetSubtitle returns a compact version and author string for UI headers.
// Example: "v0.4.0 by the LimeOS project"
func GetSubtitle() string {
	return "v" + AppVersion + " by " + AppAuthor
}

// GetInstallLogHeader is written at the top of every installation attempt in
// the diagnostic log so a report can be traced back to a build.
func GetInstallLogHeader(attempt int) string {
	if attempt > 1 {
		return GetFullVersionString() + " (retry)"
	}
	return GetFullVersionString()
}
