package web

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/JonMunkholm/mobility/internal/mobility"
	"github.com/JonMunkholm/mobility/internal/session"
)

// selectionQuery is the filter selection as submitted in a query string:
// year, repeated country, region, and applied=1 for an explicit submission.
type selectionQuery struct {
	Year      int      `validate:"gte=0,lte=9999"`
	Countries []string `validate:"max=500,dive,max=256"`
	Region    string   `validate:"max=256"`
}

// parseSelection reads the selection from q. explicit is false when the
// query carries no filter parameters at all.
func parseSelection(v *validator.Validate, q url.Values) (sel mobility.Selection, explicit bool, err error) {
	explicit = q.Get("applied") == "1" || q.Has("year") || q.Has("country") || q.Has("region")
	if !explicit {
		return mobility.Selection{}, false, nil
	}

	form := selectionQuery{
		Countries: q["country"],
		Region:    q.Get("region"),
	}
	if ys := strings.TrimSpace(q.Get("year")); ys != "" {
		form.Year, err = strconv.Atoi(ys)
		if err != nil {
			return mobility.Selection{}, true, fmt.Errorf("%w: year %q is not a number", mobility.ErrInvalidSelection, ys)
		}
	}
	if err := v.Struct(form); err != nil {
		return mobility.Selection{}, true, fmt.Errorf("%w: %v", mobility.ErrInvalidSelection, err)
	}

	return mobility.Selection{
		Year:      form.Year,
		Countries: append([]string(nil), form.Countries...),
		Region:    form.Region,
	}, true, nil
}

// encodeSelection is the inverse of parseSelection, used for download links.
func encodeSelection(sel mobility.Selection) string {
	q := url.Values{}
	q.Set("applied", "1")
	if sel.Year != 0 {
		q.Set("year", strconv.Itoa(sel.Year))
	}
	for _, c := range sel.Countries {
		q.Add("country", c)
	}
	if sel.Region != "" {
		q.Set("region", sel.Region)
	}
	return q.Encode()
}

// runFilter resolves the selection for this request, runs the pipeline on
// the flow's dataset and remembers the effective selection in the session.
func (s *Server) runFilter(sess *session.Session, flow mobility.Flow, q url.Values) (*mobility.Dataset, mobility.Result, error) {
	ds := sess.Dataset(flow.Key)
	if ds == nil {
		return nil, mobility.Result{}, mobility.ErrNoDataset
	}

	sel, explicit, err := parseSelection(s.validate, q)
	if err != nil {
		return ds, mobility.Result{}, err
	}
	if !explicit {
		sel = sess.Selection(flow.Key)
	}

	res := s.pipeline.Run(ds, sel)
	sess.SetSelection(flow.Key, effectiveSelection(res))
	return ds, res, nil
}

func effectiveSelection(res mobility.Result) mobility.Selection {
	return mobility.Selection{
		Year:      res.Year,
		Countries: res.SelectedCountries,
		Region:    res.Region,
	}
}
