package mobility

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"
)

const (
	ContentTypeCSV  = "text/csv; charset=utf-8"
	ContentTypeXLSX = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

// DefaultSheetName matches the sheet name spreadsheet tools give new workbooks.
const DefaultSheetName = "Sheet1"

// Payload is one rendered download.
type Payload struct {
	FileName    string
	ContentType string
	Data        []byte
	Err         error // Non-nil when this format failed; Data is then nil
}

// Export holds both renderings of a table.
type Export struct {
	CSV  Payload
	XLSX Payload
}

// Exporter renders tables to CSV and spreadsheet bytes.
type Exporter struct {
	sheet string
}

// NewExporter builds an exporter writing workbooks with a single sheet.
func NewExporter() *Exporter {
	return &Exporter{sheet: DefaultSheetName}
}

// Export renders both formats. A failure in one format is recorded in its
// payload and does not prevent the other.
func (e *Exporter) Export(t *Table, stem string) Export {
	var out Export

	out.CSV = Payload{FileName: stem + ".csv", ContentType: ContentTypeCSV}
	out.CSV.Data, out.CSV.Err = e.RenderCSV(t)

	out.XLSX = Payload{FileName: stem + ".xlsx", ContentType: ContentTypeXLSX}
	out.XLSX.Data, out.XLSX.Err = e.RenderXLSX(t)

	return out
}

// RenderCSV produces comma-delimited UTF-8 bytes with a header row. The
// byte-order mark makes Excel read accented names as UTF-8.
func (e *Exporter) RenderCSV(t *Table) ([]byte, error) {
	if t == nil || len(t.Headers) == 0 {
		return nil, errors.New("render csv: table has no headers")
	}

	buf := bytes.NewBuffer(append([]byte(nil), utf8BOM...))
	writer := csv.NewWriter(buf)
	if err := writer.Write(t.Headers); err != nil {
		return nil, fmt.Errorf("render csv: write headers: %w", err)
	}
	for _, row := range t.Rows {
		if err := writer.Write(row); err != nil {
			return nil, fmt.Errorf("render csv: write row: %w", err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("render csv: flush: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderXLSX produces a workbook with the header in row 1 and data below.
func (e *Exporter) RenderXLSX(t *Table) ([]byte, error) {
	if t == nil || len(t.Headers) == 0 {
		return nil, errors.New("render xlsx: table has no headers")
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if sheet != e.sheet {
		if err := f.SetSheetName(sheet, e.sheet); err != nil {
			return nil, fmt.Errorf("render xlsx: rename sheet: %w", err)
		}
		sheet = e.sheet
	}

	if err := writeSheetRow(f, sheet, 1, t.Headers); err != nil {
		return nil, fmt.Errorf("render xlsx: write headers: %w", err)
	}
	for i, row := range t.Rows {
		if err := writeSheetRow(f, sheet, i+2, row); err != nil {
			return nil, fmt.Errorf("render xlsx: write row %d: %w", i+1, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// writeSheetRow writes values as text cells so identifiers like SIRET keep
// their leading zeros.
func writeSheetRow(f *excelize.File, sheet string, rowNum int, values []string) error {
	cellName, err := excelize.CoordinatesToCellName(1, rowNum)
	if err != nil {
		return err
	}
	row := make([]interface{}, len(values))
	for i, v := range values {
		row[i] = v
	}
	return f.SetSheetRow(sheet, cellName, &row)
}

// FileStem builds "<flow slug>_<countries joined by ->_<year>".
func FileStem(flow Flow, countries []string, year int) string {
	parts := make([]string, len(countries))
	for i, c := range countries {
		parts[i] = sanitizeFileName(c)
	}
	return sanitizeFileName(flow.Slug) + "_" + strings.Join(parts, "-") + "_" + strconv.Itoa(year)
}

// sanitizeFileName replaces characters that are unsafe in file names or
// Content-Disposition headers.
func sanitizeFileName(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r < 0x20 || r == 0x7f:
			return '_'
		case strings.ContainsRune(`/\":*?<>|`, r):
			return '_'
		}
		return r
	}, s)
}
