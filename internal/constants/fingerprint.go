package constants

const (
	// TimestampLayout formats fingerprint and export timestamps.
	TimestampLayout = "2006-01-02 15:04:05"

	// ClockLayout formats the push event timestamp.
	ClockLayout = "15:04:05"

	// ExportFileLayout names export downloads and backup objects.
	ExportFileLayout = "fingerprints_20060102_150405.json"

	// ExportFormatVersion is written into every export document.
	ExportFormatVersion = "1.1.0"

	// SupportedImportVersions is the semver constraint accepted on import.
	SupportedImportVersions = ">= 1.0.0, < 2.0.0"
)

// Import modes
const (
	// ImportModeAppend adds imported fingerprints after the existing ones
	ImportModeAppend = "append"
	// ImportModeReplace discards existing fingerprints before importing
	ImportModeReplace = "replace"
)

// Status values returned by the API
const (
	StatusSuccess = "success"
)
