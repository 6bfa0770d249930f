package mobility

// DisplayHeaders are the projected column names, in order.
var DisplayHeaders = []string{"Region", "Pays", "Etablissement", "SIRET"}

// Table is the projected result of a fully specified selection.
type Table struct {
	Headers []string   `json:"headers"`
	Rows    [][]string `json:"rows"`
}

// Len returns the number of data rows.
func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// project builds the display table from matching records.
func project(records []Record) *Table {
	t := &Table{
		Headers: append([]string(nil), DisplayHeaders...),
		Rows:    make([][]string, 0, len(records)),
	}
	for _, r := range records {
		t.Rows = append(t.Rows, []string{r.Region, r.Country, r.Institution, r.Applicant})
	}
	return t
}
