package mobility

import (
	"errors"
	"fmt"
	"strings"
)

// FormatError is returned when a file's extension is neither delimited text
// nor a spreadsheet.
type FormatError struct {
	FileName  string
	Extension string
}

func (e *FormatError) Error() string {
	if e.Extension == "" {
		return fmt.Sprintf("unsupported file format: %s has no extension", e.FileName)
	}
	return fmt.Sprintf("unsupported file format: %s (%s)", e.FileName, e.Extension)
}

// SchemaError is returned when required columns are absent from the header.
type SchemaError struct {
	FileName string
	Missing  []string // In the order the flow declares them
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("missing required column(s) in %s: %s", e.FileName, strings.Join(e.Missing, ", "))
}

// LoadError wraps any other failure while reading a file.
type LoadError struct {
	FileName string
	Err      error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load %s: %v", e.FileName, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

var (
	// ErrNoDataset is returned when a flow has no uploaded file yet.
	ErrNoDataset = errors.New("no dataset loaded for this flow")

	// ErrNothingToExport is returned when the current selection does not
	// produce a table.
	ErrNothingToExport = errors.New("no rows to export for the current filters")

	// ErrInvalidSelection is returned for malformed filter parameters.
	ErrInvalidSelection = errors.New("invalid filter selection")
)
