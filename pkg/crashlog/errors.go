package crashlog

import "errors"

var (
	// ErrFileRead is returned when the report could not be read from disk
	ErrFileRead = errors.New("failed to read report")
	// ErrEmptyFile is returned when the report is empty
	ErrEmptyFile = errors.New("report is empty")
	// ErrTranslation is returned when a JSON report could not be translated to the legacy text format
	ErrTranslation = errors.New("failed to translate report")
	// ErrUnsupportedFormat is returned when no processes could be recognized in the report
	ErrUnsupportedFormat = errors.New("unsupported report format")
	// ErrMissingArchitecture is returned when a process has no detectable architecture
	ErrMissingArchitecture = errors.New("could not detect architecture")
	// ErrMissingBinaryImages is returned when a process has frames but no binary images
	ErrMissingBinaryImages = errors.New("no binary images found")
)
