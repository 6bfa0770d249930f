package mobility

import "time"

// Variant identifies which schema an export follows.
type Variant string

const (
	VariantOutgoing Variant = "outgoing"
	VariantIncoming Variant = "incoming"
)

// Columns maps record fields to source column headers.
type Columns struct {
	Country     string // Destination or origin country
	Region      string // Instructing-group label
	Date        string // Departure date (outgoing) or entry start date (incoming)
	Institution string // Optional, backfilled when absent
	Applicant   string // Optional SIRET identifier, backfilled when absent
}

// DefaultColumns returns the column names used by exports of the given variant.
func DefaultColumns(v Variant) Columns {
	cols := Columns{
		Country:     "pays",
		Region:      "groupe_instructeur_label",
		Date:        "date_depart",
		Institution: "libelle_etablissement",
		Applicant:   "demandeur_siret",
	}
	if v == VariantIncoming {
		cols.Date = "date_debut_accueil"
	}
	return cols
}

// Required returns the columns a file must contain, in reporting order.
func (c Columns) Required() []string {
	return []string{c.Country, c.Region, c.Date}
}

// Record is one mobility row.
type Record struct {
	Country     string
	Region      string
	Date        string // Raw date cell as read from the file
	Year        int    // Calendar year of Date; 0 when the date could not be parsed
	Institution string
	Applicant   string
}

// HasYear reports whether the record's date yielded a year.
func (r Record) HasYear() bool {
	return r.Year != 0
}

// Dataset is the full content of one uploaded file.
type Dataset struct {
	Flow     string
	FileName string
	Variant  Variant
	Records  []Record
	LoadedAt time.Time
}

// Len returns the number of records.
func (d *Dataset) Len() int {
	if d == nil {
		return 0
	}
	return len(d.Records)
}

// Selection is the user's filter state for one flow.
// The zero value asks for the default year and no countries.
type Selection struct {
	Year      int      `json:"year,omitempty"`      // 0 selects the earliest offered year
	Countries []string `json:"countries,omitempty"` // Order is kept for file names
	Region    string   `json:"region,omitempty"`    // "" selects the all-regions sentinel
}
