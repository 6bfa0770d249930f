package templates

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/mobility/internal/mobility"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	buf := &bytes.Buffer{}
	require.NoError(t, c.Render(context.Background(), buf))
	return buf.String()
}

func learners(t *testing.T) mobility.Flow {
	t.Helper()
	f, err := mobility.LookupFlow("learners")
	require.NoError(t, err)
	return f
}

func basePage(t *testing.T) FlowPage {
	return FlowPage{
		Chrome:   Chrome{Title: "Mobility", Icon: "M", Footer: "footer text"},
		Tabs:     []Tab{{Label: "Outgoing learner mobility", Href: "/flows/learners", Active: true}, {Label: "Incoming mobility", Href: "/flows/incoming", Loaded: true}},
		Flow:     learners(t),
		BasePath: "/flows/learners",
		Accept:   ".csv,.xlsx",
	}
}

func TestFlowPage_Empty(t *testing.T) {
	out := render(t, FlowPageView(basePage(t)))

	assert.Contains(t, out, "<title>Outgoing learner mobility | Mobility</title>")
	assert.Contains(t, out, "Upload a file to start.")
	assert.Contains(t, out, `action="/flows/learners/upload"`)
	assert.Contains(t, out, `class="active" aria-current="page"`)
	assert.Contains(t, out, "footer text")
	assert.NotContains(t, out, "<table>")
}

func TestFlowPage_UploadError(t *testing.T) {
	p := basePage(t)
	p.UploadError = &Alert{Severity: "error", Message: "Unsupported file format for a.pdf", Code: "FILE001"}

	out := render(t, FlowPageView(p))
	assert.Contains(t, out, "alert-error")
	assert.Contains(t, out, "FILE001")
	assert.NotContains(t, out, "Upload a file to start.")
}

func TestFlowPage_StageMessage(t *testing.T) {
	p := basePage(t)
	p.Dataset = &mobility.Dataset{FileName: "export.csv", Records: make([]mobility.Record, 3)}
	p.Result = &mobility.Result{
		Stage:     mobility.StageNeedCountry,
		Count:     2,
		Years:     []int{2023, 2024},
		Year:      2024,
		Countries: []string{"France", "Italie"},
	}

	out := render(t, FlowPageView(p))
	assert.Contains(t, out, "Outgoing learner mobility (2 records)")
	assert.Contains(t, out, `<option value="2024" selected>2024</option>`)
	assert.Contains(t, out, `<select name="country" multiple>`)
	assert.NotContains(t, out, `name="region"`)
	assert.Contains(t, out, "Select at least one country to continue.")
	assert.Contains(t, out, `name="applied" value="1"`)
}

func TestFlowPage_Ready(t *testing.T) {
	p := basePage(t)
	p.Dataset = &mobility.Dataset{FileName: "export.csv", Records: make([]mobility.Record, 3)}
	p.Result = &mobility.Result{
		Stage:             mobility.StageReady,
		Count:             1,
		Years:             []int{2024},
		Year:              2024,
		Countries:         []string{"France", "Germany"},
		SelectedCountries: []string{"France", "Germany"},
		Regions:           []string{"All regions", "Île-de-France"},
		Region:            "All regions",
		Table: &mobility.Table{
			Headers: mobility.DisplayHeaders,
			Rows:    [][]string{{"Île-de-France", "France", "<script>", "123"}},
		},
	}
	p.DownloadQuery = "applied=1&country=France&year=2024"

	out := render(t, FlowPageView(p))
	assert.Contains(t, out, "Outgoing learner mobility - France, Germany - 2024")
	assert.Contains(t, out, "Total records: 1")
	assert.Contains(t, out, `href="/flows/learners/download.csv?applied=1&amp;country=France&amp;year=2024"`)
	assert.Contains(t, out, "download.xlsx")
	assert.Contains(t, out, `<option value="All regions" selected>`)
	assert.Contains(t, out, "&lt;script&gt;")
	assert.NotContains(t, out, "<script>")
	assert.Equal(t, 1, strings.Count(out, "<tbody><tr>"))
}

func TestErrorPage(t *testing.T) {
	out := render(t, ErrorPage(Chrome{Title: "Mobility"}, Alert{Severity: "bogus", Message: "Nope", Code: "FLW001"}, "/"))
	assert.Contains(t, out, "alert-info")
	assert.Contains(t, out, "Nope")
	assert.Contains(t, out, `href="/"`)
}

func TestTitleLine(t *testing.T) {
	assert.Equal(t, "Outgoing learner mobility - France - 2023", TitleLine(learners(t), []string{"France"}, 2023))
}
