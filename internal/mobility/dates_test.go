package mobility

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseYear(t *testing.T) {
	tests := []struct {
		input  string
		want   int
		wantOK bool
	}{
		{"2024-03-01", 2024, true},
		{"2024-03-01 08:30:00", 2024, true},
		{"2024-03-01T08:30:00+01:00", 2024, true},
		{"2024-03-01T08:30:00", 2024, true},
		{"01/03/2024", 2024, true},
		{"25/03/2024", 2024, true},
		{"03/25/2024", 2024, true},
		{"1/3/2024", 2024, true},
		{"25.03.2023", 2023, true},
		{"2023/12/31", 2023, true},
		{"Mar 1, 2024", 2024, true},
		{"20240301", 2024, true},
		{"2024", 2024, true},
		{"01/03/24", 2024, true},
		{"  2025-01-15  ", 2025, true},
		{"", 0, false},
		{"not a date", 0, false},
		{"32/13/2024", 0, false},
		{"N/A", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, ok := ParseYear(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseCellYear(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		date1904 bool
		want     int
		wantOK   bool
	}{
		{"serial date", "45352", false, 2024, true}, // 2024-03-01
		{"serial with time", "45352.5", false, 2024, true},
		{"serial 2023", "44936", false, 2023, true}, // 2023-01-10
		{"1904 serial", "43890", true, 2024, true},  // 2024-03-01
		{"1904 serial read as 1900", "43890", false, 2020, true},
		{"bare year", "2024", false, 2024, true},
		{"bare year in 1904 workbook", "2024", true, 2024, true},
		{"text date", "2024-03-01", false, 2024, true},
		{"empty", "", false, 0, false},
		{"garbage", "soon", false, 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseCellYear(tt.input, tt.date1904)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}
