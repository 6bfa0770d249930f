package mobility

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func mustFlow(t *testing.T, key string) Flow {
	t.Helper()
	f, err := LookupFlow(key)
	require.NoError(t, err)
	return f
}

func loadCSV(t *testing.T, flowKey, content string) *Dataset {
	t.Helper()
	ds, err := NewLoader("").Load(context.Background(), "export.csv", strings.NewReader(content), mustFlow(t, flowKey))
	require.NoError(t, err)
	return ds
}

// buildWorkbook writes rows into the first sheet of a new workbook.
// time.Time values become date cells.
func buildWorkbook(t *testing.T, rows [][]interface{}) []byte {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cellName, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		r := row
		require.NoError(t, f.SetSheetRow(sheet, cellName, &r))
	}

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf.Bytes()
}

func readWorkbookBytes(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	return rows
}
