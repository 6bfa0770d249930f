package mobility

// error_messages.go maps technical errors to messages shown next to the
// upload form.
//
// Codes, for support reference:
//
//	FILE001 - Unsupported format: extension is not csv/tsv/txt/xlsx/xlsm/xls
//	FILE002 - Unreadable file: parse failure, message carries the cause
//	FILE003 - File too large: upload exceeds UPLOAD_MAX_FILE_SIZE
//	FILE004 - No file: the form had no file part
//	VAL004  - Missing column: required columns absent, message names them
//	VAL001  - Invalid selection: malformed year/country/region parameters
//	FLW001  - Unknown flow: URL names an unregistered flow
//	DATA001 - No dataset: the flow has no uploaded file in this session
//	EXP002  - Nothing to export: the filters do not produce a table yet
//	UPL002  - System busy: no upload slot within UPLOAD_MAX_WAIT_TIME
//	EXP001  - Export failed: CSV or spreadsheet rendering failed
//	NAV001  - Unknown page
//	RATE001 - Rate limited
//	ERR000  - Anything else; check the logs for the technical error
//
// Typed errors are matched first with errors.As so their messages can carry
// details (file name, missing columns). Untyped errors fall back to
// case-insensitive substring patterns; the first match wins.

import (
	"errors"
	"fmt"
	"strings"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "file too large",
		msg: UserMessage{
			Message: "The file exceeds the maximum upload size",
			Action:  "Export a smaller extract and upload it again",
			Code:    "FILE003",
		},
	},
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Choose a CSV or Excel file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "too many concurrent uploads",
		msg: UserMessage{
			Message: "Too many uploads are being processed",
			Action:  "Please wait a moment and try again",
			Code:    "UPL002",
		},
	},
	{
		pattern: "render csv",
		msg: UserMessage{
			Message: "The CSV download could not be generated",
			Action:  "Please try again or download the Excel version",
			Code:    "EXP001",
		},
	},
	{
		pattern: "render xlsx",
		msg: UserMessage{
			Message: "The Excel download could not be generated",
			Action:  "Please try again or download the CSV version",
			Code:    "EXP001",
		},
	},
	{
		pattern: "page not found",
		msg: UserMessage{
			Message: "This page does not exist",
			Action:  "Go back to the start page",
			Code:    "NAV001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts an error to a user-friendly message.
// Returns the zero UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	var formatErr *FormatError
	var schemaErr *SchemaError
	var loadErr *LoadError

	switch {
	case errors.As(err, &formatErr):
		return UserMessage{
			Message: fmt.Sprintf("Unsupported file format for %s", formatErr.FileName),
			Action:  "Upload a CSV or Excel file (.csv, .tsv, .txt, .xlsx, .xls)",
			Code:    "FILE001",
		}
	case errors.As(err, &schemaErr):
		return UserMessage{
			Message: fmt.Sprintf("The following columns are missing from the file: %s", strings.Join(schemaErr.Missing, ", ")),
			Action:  "Check that the export contains every required column",
			Code:    "VAL004",
		}
	case errors.As(err, &loadErr):
		return UserMessage{
			Message: fmt.Sprintf("Error while loading the file: %v", loadErr.Err),
			Action:  "Check that the file is a valid, uncorrupted export",
			Code:    "FILE002",
		}
	case errors.Is(err, ErrUnknownFlow):
		return UserMessage{
			Message: "This mobility category does not exist",
			Action:  "Pick one of the tabs",
			Code:    "FLW001",
		}
	case errors.Is(err, ErrNoDataset):
		return UserMessage{
			Message: "No file has been uploaded for this category",
			Action:  "Upload a CSV or Excel export first",
			Code:    "DATA001",
		}
	case errors.Is(err, ErrNothingToExport):
		return UserMessage{
			Message: "There is nothing to download for the current filters",
			Action:  "Select a year, at least one country and a region",
			Code:    "EXP002",
		}
	case errors.Is(err, ErrInvalidSelection):
		return UserMessage{
			Message: "The filter selection is invalid",
			Action:  "Reset the filters and choose again",
			Code:    "VAL001",
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// IsUserFacing reports whether err maps to a specific message rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
