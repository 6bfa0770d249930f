package mobility

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantCode    string
		wantMessage string
	}{
		{
			name:        "format",
			err:         &FormatError{FileName: "notes.pdf", Extension: ".pdf"},
			wantCode:    "FILE001",
			wantMessage: "Unsupported file format for notes.pdf",
		},
		{
			name:        "schema",
			err:         &SchemaError{FileName: "a.csv", Missing: []string{"pays", "date_depart"}},
			wantCode:    "VAL004",
			wantMessage: "The following columns are missing from the file: pays, date_depart",
		},
		{
			name:        "load",
			err:         &LoadError{FileName: "a.xlsx", Err: errors.New("zip: not a valid zip file")},
			wantCode:    "FILE002",
			wantMessage: "Error while loading the file: zip: not a valid zip file",
		},
		{
			name:        "wrapped schema",
			err:         fmt.Errorf("upload: %w", &SchemaError{Missing: []string{"pays"}}),
			wantCode:    "VAL004",
			wantMessage: "The following columns are missing from the file: pays",
		},
		{
			name:     "unknown flow",
			err:      fmt.Errorf("%w: %q", ErrUnknownFlow, "nope"),
			wantCode: "FLW001",
		},
		{
			name:     "no dataset",
			err:      ErrNoDataset,
			wantCode: "DATA001",
		},
		{
			name:     "nothing to export",
			err:      fmt.Errorf("download: %w", ErrNothingToExport),
			wantCode: "EXP002",
		},
		{
			name:     "invalid selection",
			err:      fmt.Errorf("%w: year must be a number", ErrInvalidSelection),
			wantCode: "VAL001",
		},
		{
			name:     "file too large",
			err:      errors.New("http: request body too large: file too large"),
			wantCode: "FILE003",
		},
		{
			name:     "no file",
			err:      errors.New("no file provided"),
			wantCode: "FILE004",
		},
		{
			name:     "busy",
			err:      errors.New("too many concurrent uploads, please try again later"),
			wantCode: "UPL002",
		},
		{
			name:     "csv render",
			err:      errors.New("render csv: flush: short write"),
			wantCode: "EXP001",
		},
		{
			name:     "xlsx render",
			err:      errors.New("Render XLSX: boom"),
			wantCode: "EXP001",
		},
		{
			name:     "unknown",
			err:      errors.New("something odd"),
			wantCode: "ERR000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := MapError(tt.err)
			assert.Equal(t, tt.wantCode, msg.Code)
			assert.NotEmpty(t, msg.Action)
			if tt.wantMessage != "" {
				assert.Equal(t, tt.wantMessage, msg.Message)
			}
		})
	}
}

func TestMapError_Nil(t *testing.T) {
	assert.Equal(t, UserMessage{}, MapError(nil))
}

func TestIsUserFacing(t *testing.T) {
	assert.False(t, IsUserFacing(nil))
	assert.False(t, IsUserFacing(errors.New("boom")))
	assert.True(t, IsUserFacing(&FormatError{FileName: "x"}))
}

func TestTypedErrorMessages(t *testing.T) {
	assert.Equal(t, "unsupported file format: notes has no extension", (&FormatError{FileName: "notes"}).Error())
	assert.Equal(t, "missing required column(s) in a.csv: pays", (&SchemaError{FileName: "a.csv", Missing: []string{"pays"}}).Error())

	cause := errors.New("bad")
	err := &LoadError{FileName: "a.csv", Err: cause}
	assert.ErrorIs(t, err, cause)
}
