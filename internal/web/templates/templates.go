// Package templates holds the templ components for the server-rendered
// pages. The *_templ.go files are generated from the .templ sources.
package templates

//go:generate templ generate

import (
	"fmt"
	"strings"

	"github.com/a-h/templ"

	"github.com/JonMunkholm/mobility/internal/mobility"
)

// Chrome is the page-level text shared by every page.
type Chrome struct {
	Title  string
	Icon   string
	Footer string
}

// Alert is a message box. Severity is "info", "warning" or "error".
type Alert struct {
	Severity string
	Message  string
	Action   string
	Code     string
}

// Tab is one entry of the flow navigation.
type Tab struct {
	Label  string
	Href   string
	Active bool
	Loaded bool
}

// FlowPage is everything the flow page shows.
type FlowPage struct {
	Chrome Chrome
	Tabs   []Tab
	Flow   mobility.Flow

	// BasePath is the flow's page URL; forms and links hang off it.
	BasePath string

	Accept        string // accept attribute of the file input
	MaxUploadSize string // human-readable limit

	// UploadError is set when the last upload failed.
	UploadError *Alert

	// Dataset and Result are nil until a file is loaded.
	Dataset *mobility.Dataset
	Result  *mobility.Result

	// DownloadQuery is the encoded selection appended to download links.
	DownloadQuery string
}

var downloadFormats = []string{"csv", "xlsx"}

// TitleLine is "<flow label> - <countries> - <year>".
func TitleLine(flow mobility.Flow, countries []string, year int) string {
	return fmt.Sprintf("%s - %s - %d", flow.Label, strings.Join(countries, ", "), year)
}

func documentTitle(c Chrome, pageTitle string) string {
	if pageTitle == "" {
		return c.Title
	}
	return pageTitle + " | " + c.Title
}

func alertAttrs(a Alert) templ.Attributes {
	severity := a.Severity
	switch severity {
	case "info", "warning", "error":
	default:
		severity = "info"
	}
	return templ.Attributes{"class": "alert alert-" + severity, "role": "alert"}
}

func headingText(p FlowPage) string {
	if p.Result == nil {
		return p.Flow.Label
	}
	return fmt.Sprintf("%s (%d records)", p.Flow.Label, p.Result.Count)
}

func stageAlert(res mobility.Result) Alert {
	return Alert{Severity: string(res.Severity()), Message: res.Message()}
}

func isSelected(values []string, v string) bool {
	for _, s := range values {
		if s == v {
			return true
		}
	}
	return false
}
