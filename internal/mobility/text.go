package mobility

// text.go prepares delimited text exports for encoding/csv.
//
// Office tools produce CSV with a UTF-8 BOM, in Windows-1252 instead of
// UTF-8, and with semicolons instead of commas (French locale). These helpers
// normalize the bytes and detect the delimiter before parsing.

import (
	"bytes"
	"encoding/csv"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// candidateDelimiters are tried in order; ties go to the earlier entry.
var candidateDelimiters = []rune{',', ';', '\t', '|'}

// SniffLines is the number of non-blank lines inspected for delimiter detection.
var SniffLines = 10

// normalizeText strips a BOM and decodes non-UTF-8 input as Windows-1252.
func normalizeText(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(data) {
		return data, nil
	}
	return charmap.Windows1252.NewDecoder().Bytes(data)
}

// sniffDelimiter picks the delimiter that splits the leading lines into the
// same, largest number of fields. Falls back to comma.
func sniffDelimiter(data []byte) rune {
	lines := leadingLines(data, SniffLines)
	if len(lines) == 0 {
		return ','
	}

	best := ','
	bestScore := 0
	for _, d := range candidateDelimiters {
		header := countOutsideQuotes(lines[0], d)
		if header == 0 {
			continue
		}
		consistent := 1
		for _, line := range lines[1:] {
			if countOutsideQuotes(line, d) == header {
				consistent++
			}
		}
		// Consistency dominates; field count breaks ties.
		score := consistent*1000 + header
		if score > bestScore {
			best, bestScore = d, score
		}
	}
	return best
}

// leadingLines returns up to n non-blank lines.
func leadingLines(data []byte, n int) []string {
	var lines []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
		if len(lines) == n {
			break
		}
	}
	return lines
}

// countOutsideQuotes counts occurrences of d not enclosed in double quotes.
func countOutsideQuotes(line string, d rune) int {
	n := 0
	inQuotes := false
	for _, r := range line {
		switch {
		case r == '"':
			inQuotes = !inQuotes
		case r == d && !inQuotes:
			n++
		}
	}
	return n
}

// parseDelimited normalizes, sniffs and parses a delimited text export.
func parseDelimited(data []byte) ([][]string, error) {
	data, err := normalizeText(data)
	if err != nil {
		return nil, err
	}

	r := csv.NewReader(bytes.NewReader(data))
	r.Comma = sniffDelimiter(data)
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	return r.ReadAll()
}

// isEmptyRow reports whether every cell is blank.
func isEmptyRow(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}

// cleanCell removes common export artifacts from a cell value:
// surrounding whitespace and Excel's ="..." text-forcing formula.
func cleanCell(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "=\"") && strings.HasSuffix(s, "\"") && len(s) >= 3 {
		s = s[2 : len(s)-1]
	}
	return s
}

// headerIndex maps normalized column names to their position.
type headerIndex map[string]int

func makeHeaderIndex(header []string) headerIndex {
	idx := make(headerIndex, len(header))
	for i, h := range header {
		key := normalizeHeader(h)
		if _, dup := idx[key]; dup {
			continue
		}
		idx[key] = i
	}
	return idx
}

func normalizeHeader(h string) string {
	h = strings.TrimPrefix(h, "\ufeff")
	return strings.ToLower(cleanCell(h))
}

// lookup returns the position of a column, or -1.
func (h headerIndex) lookup(name string) int {
	if pos, ok := h[normalizeHeader(name)]; ok {
		return pos
	}
	return -1
}
