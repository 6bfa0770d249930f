package mobility

// pipeline.go implements the cascading year -> countries -> region filter.
//
// Each step narrows the rows the next step sees:
//
//  1. Years: distinct parsed years >= MinYear. None stops the cascade.
//  2. Countries: distinct values among rows of the selected year.
//  3. Regions: sentinel + distinct labels among rows of the year and
//     selected countries. Only computed once a country is selected.
//  4. Projection of rows matching all three, in source order.
//
// Run never mutates the dataset or the selection.

import (
	"fmt"
	"slices"
	"sort"
)

// DefaultMinYear is the earliest year offered in the year filter.
const DefaultMinYear = 2023

// DefaultAllRegions is the label of the pseudo-region meaning "no restriction".
const DefaultAllRegions = "All regions"

// Stage reports how far a selection got through the cascade.
type Stage string

const (
	StageNoYears     Stage = "no_years"     // No year >= MinYear in the dataset
	StageNeedCountry Stage = "need_country" // Year chosen, no country selected
	StageNeedRegion  Stage = "need_region"  // Countries chosen, region not on offer
	StageNoMatch     Stage = "no_match"     // Fully filtered, zero rows
	StageReady       Stage = "ready"        // Fully filtered, Table populated
)

// Severity classifies the message attached to a stage.
type Severity string

const (
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
)

// PipelineConfig tunes the filter.
type PipelineConfig struct {
	MinYear    int    // Earliest year offered (default: 2023)
	AllRegions string // Sentinel label (default: "All regions")
}

// Pipeline runs the cascading filter. It holds configuration only and is
// safe for concurrent use.
type Pipeline struct {
	minYear    int
	allRegions string
}

// NewPipeline creates a pipeline, applying defaults for zero config fields.
func NewPipeline(cfg PipelineConfig) *Pipeline {
	if cfg.MinYear == 0 {
		cfg.MinYear = DefaultMinYear
	}
	if cfg.AllRegions == "" {
		cfg.AllRegions = DefaultAllRegions
	}
	return &Pipeline{minYear: cfg.MinYear, allRegions: cfg.AllRegions}
}

// Result is the outcome of one pipeline run.
type Result struct {
	Stage Stage `json:"stage"`
	Total int   `json:"total"` // Records in the dataset
	Count int   `json:"count"` // Records matching the filters applied so far

	Years []int `json:"years"`
	Year  int   `json:"year,omitempty"`

	Countries         []string `json:"countries"`
	SelectedCountries []string `json:"selectedCountries"`

	Regions []string `json:"regions"`
	Region  string   `json:"region,omitempty"`

	Table *Table `json:"table,omitempty"`

	minYear int
}

// Message returns the user-facing status line for non-ready stages.
func (r Result) Message() string {
	switch r.Stage {
	case StageNoYears:
		return fmt.Sprintf("No data available for years from %d onward.", r.minYear)
	case StageNeedCountry:
		return "Select at least one country to continue."
	case StageNeedRegion:
		return "Select a region to display the results."
	case StageNoMatch:
		return "No data matches the selected filters."
	default:
		return ""
	}
}

// Severity returns how the stage message should be presented.
func (r Result) Severity() Severity {
	switch r.Stage {
	case StageNoYears, StageNoMatch:
		return SeverityWarning
	default:
		return SeverityInfo
	}
}

// Run applies sel to ds.
func (p *Pipeline) Run(ds *Dataset, sel Selection) Result {
	res := Result{
		Total:   ds.Len(),
		Count:   ds.Len(),
		minYear: p.minYear,
	}
	if ds == nil {
		res.Stage = StageNoYears
		return res
	}

	// Step 1: year
	res.Years = p.AvailableYears(ds)
	if len(res.Years) == 0 {
		res.Stage = StageNoYears
		return res
	}
	res.Year = res.Years[0]
	if containsInt(res.Years, sel.Year) {
		res.Year = sel.Year
	}

	yearRows := filterRecords(ds.Records, func(r Record) bool {
		return r.Year == res.Year
	})
	res.Count = len(yearRows)

	// Step 2: countries
	res.Countries = distinctSorted(yearRows, func(r Record) string { return r.Country })
	res.SelectedCountries = intersectOrdered(sel.Countries, res.Countries)
	if len(res.SelectedCountries) == 0 {
		res.Stage = StageNeedCountry
		return res
	}

	selected := make(map[string]bool, len(res.SelectedCountries))
	for _, c := range res.SelectedCountries {
		selected[c] = true
	}
	countryRows := filterRecords(yearRows, func(r Record) bool {
		return selected[r.Country]
	})
	res.Count = len(countryRows)

	// Step 3: region
	// A real label spelled like the sentinel is offered once, as the sentinel.
	labels := distinctSorted(countryRows, func(r Record) string { return r.Region })
	labels = slices.DeleteFunc(labels, func(l string) bool { return l == p.allRegions })
	res.Regions = append([]string{p.allRegions}, labels...)

	region := sel.Region
	if region == "" {
		region = p.allRegions
	}
	if region != p.allRegions && !containsString(labels, region) {
		res.Stage = StageNeedRegion
		return res
	}
	res.Region = region

	// Step 4: projection
	final := countryRows
	if region != p.allRegions {
		final = filterRecords(countryRows, func(r Record) bool {
			return r.Region == region
		})
	}
	res.Count = len(final)

	if len(final) == 0 {
		res.Stage = StageNoMatch
		return res
	}

	res.Stage = StageReady
	res.Table = project(final)
	return res
}

// AvailableYears returns the distinct parsed years >= MinYear, ascending.
func (p *Pipeline) AvailableYears(ds *Dataset) []int {
	seen := make(map[int]bool)
	var years []int
	for _, r := range ds.Records {
		if !r.HasYear() || r.Year < p.minYear || seen[r.Year] {
			continue
		}
		seen[r.Year] = true
		years = append(years, r.Year)
	}
	sort.Ints(years)
	return years
}

func filterRecords(records []Record, keep func(Record) bool) []Record {
	var out []Record
	for _, r := range records {
		if keep(r) {
			out = append(out, r)
		}
	}
	return out
}

// distinctSorted returns the distinct values of field, sorted byte-wise.
func distinctSorted(records []Record, field func(Record) string) []string {
	seen := make(map[string]bool)
	values := make([]string, 0)
	for _, r := range records {
		v := field(r)
		if seen[v] {
			continue
		}
		seen[v] = true
		values = append(values, v)
	}
	sort.Strings(values)
	return values
}

// intersectOrdered keeps the requested values that are on offer, in request
// order, without duplicates.
func intersectOrdered(requested, offered []string) []string {
	out := make([]string, 0, len(requested))
	seen := make(map[string]bool, len(requested))
	for _, v := range requested {
		if seen[v] || !containsString(offered, v) {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

func containsString(values []string, v string) bool {
	i := sort.SearchStrings(values, v)
	return i < len(values) && values[i] == v
}

func containsInt(values []int, v int) bool {
	i := sort.SearchInts(values, v)
	return i < len(values) && values[i] == v
}
