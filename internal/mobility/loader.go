package mobility

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

// DefaultPlaceholder fills optional display columns missing from a file.
const DefaultPlaceholder = "Not available"

// ContextCheckInterval is how often, in rows, Load checks for cancellation.
var ContextCheckInterval = 1000

// ErrEmptyFile is wrapped in a LoadError when a file has no header row.
var ErrEmptyFile = errors.New("empty file: no columns to parse")

type fileKind int

const (
	kindText fileKind = iota
	kindSpreadsheet
)

var extensionKinds = map[string]fileKind{
	".csv":  kindText,
	".tsv":  kindText,
	".txt":  kindText,
	".xlsx": kindSpreadsheet,
	".xlsm": kindSpreadsheet,
	".xls":  kindSpreadsheet,
}

// SupportedExtensions returns the accepted file extensions, for form hints.
func SupportedExtensions() []string {
	return []string{".csv", ".tsv", ".txt", ".xlsx", ".xlsm", ".xls"}
}

// Loader reads uploaded exports into datasets.
type Loader struct {
	placeholder string
	now         func() time.Time
}

// NewLoader creates a loader that backfills absent optional columns with
// placeholder. An empty placeholder uses DefaultPlaceholder.
func NewLoader(placeholder string) *Loader {
	if placeholder == "" {
		placeholder = DefaultPlaceholder
	}
	return &Loader{placeholder: placeholder, now: time.Now}
}

// Load parses an uploaded file for the given flow.
//
// It returns *FormatError for an unsupported extension, *SchemaError when
// required columns are missing and *LoadError for any other failure. On error
// the dataset is always nil.
func (l *Loader) Load(ctx context.Context, fileName string, r io.Reader, flow Flow) (ds *Dataset, err error) {
	defer func() {
		if p := recover(); p != nil {
			ds = nil
			err = &LoadError{FileName: fileName, Err: fmt.Errorf("parser panic: %v", p)}
		}
	}()

	ext := strings.ToLower(filepath.Ext(fileName))
	kind, ok := extensionKinds[ext]
	if !ok {
		return nil, &FormatError{FileName: fileName, Extension: ext}
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &LoadError{FileName: fileName, Err: fmt.Errorf("read file: %w", err)}
	}

	var rows [][]string
	yearOf := ParseYear
	switch kind {
	case kindSpreadsheet:
		var date1904 bool
		rows, date1904, err = readWorkbook(data)
		if err != nil && ext == ".xls" {
			err = fmt.Errorf("legacy .xls workbooks must be saved as .xlsx: %w", err)
		}
		yearOf = func(s string) (int, bool) { return ParseCellYear(s, date1904) }
	default:
		rows, err = parseDelimited(data)
	}
	if err != nil {
		return nil, &LoadError{FileName: fileName, Err: err}
	}

	records, err := l.buildRecords(ctx, fileName, rows, flow.Columns, yearOf)
	if err != nil {
		return nil, err
	}

	return &Dataset{
		Flow:     flow.Key,
		FileName: fileName,
		Variant:  flow.Variant,
		Records:  records,
		LoadedAt: l.now(),
	}, nil
}

// readWorkbook returns the raw cell values of the first sheet and whether
// the workbook counts serial dates from 1904.
func readWorkbook(data []byte) ([][]string, bool, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, false, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, false, errors.New("workbook has no sheets")
	}

	props, err := f.GetWorkbookProps()
	if err != nil {
		return nil, false, fmt.Errorf("read workbook properties: %w", err)
	}
	date1904 := props.Date1904 != nil && *props.Date1904

	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, false, fmt.Errorf("read sheet %q: %w", sheets[0], err)
	}
	return rows, date1904, nil
}

// buildRecords validates the header and converts data rows.
func (l *Loader) buildRecords(ctx context.Context, fileName string, rows [][]string, cols Columns, yearOf func(string) (int, bool)) ([]Record, error) {
	headerRow := -1
	for i, row := range rows {
		if !isEmptyRow(row) {
			headerRow = i
			break
		}
	}
	if headerRow < 0 {
		return nil, &LoadError{FileName: fileName, Err: ErrEmptyFile}
	}

	idx := makeHeaderIndex(rows[headerRow])

	var missing []string
	for _, col := range cols.Required() {
		if idx.lookup(col) < 0 {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, &SchemaError{FileName: fileName, Missing: missing}
	}

	countryPos := idx.lookup(cols.Country)
	regionPos := idx.lookup(cols.Region)
	datePos := idx.lookup(cols.Date)
	institutionPos := idx.lookup(cols.Institution)
	applicantPos := idx.lookup(cols.Applicant)

	dataRows := rows[headerRow+1:]
	records := make([]Record, 0, len(dataRows))

	for i, row := range dataRows {
		if i%ContextCheckInterval == 0 && ctx.Err() != nil {
			return nil, &LoadError{FileName: fileName, Err: ctx.Err()}
		}
		if isEmptyRow(row) {
			continue
		}

		rec := Record{
			Country:     cell(row, countryPos),
			Region:      cell(row, regionPos),
			Date:        cell(row, datePos),
			Institution: l.placeholder,
			Applicant:   l.placeholder,
		}
		if institutionPos >= 0 {
			rec.Institution = cell(row, institutionPos)
		}
		if applicantPos >= 0 {
			rec.Applicant = cell(row, applicantPos)
		}
		if year, ok := yearOf(rec.Date); ok {
			rec.Year = year
		}

		records = append(records, rec)
	}

	return records, nil
}

// cell returns the cleaned value at pos, or "" for short rows.
func cell(row []string, pos int) string {
	if pos < 0 || pos >= len(row) {
		return ""
	}
	return cleanCell(row[pos])
}
