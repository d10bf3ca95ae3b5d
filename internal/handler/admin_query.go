package handler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/iliyamo/shopease-api/internal/apperr"
	"github.com/iliyamo/shopease-api/internal/model"
)

const dateOnly = "2006-01-02"

// parseOrderFilter reads the admin list filters from the query string.
// status may be repeated or comma separated. from and to accept RFC 3339
// or a bare date in loc; a bare to date covers the whole day.
func parseOrderFilter(c echo.Context, loc *time.Location) (model.OrderFilter, error) {
	var f model.OrderFilter
	q := c.QueryParams()

	for _, raw := range q["status"] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.ToLower(strings.TrimSpace(s)); s != "" {
				f.Statuses = append(f.Statuses, model.OrderStatus(s))
			}
		}
	}
	if v := q.Get("from"); v != "" {
		t, _, err := parseTime(v, loc)
		if err != nil {
			return f, apperr.Validation("Invalid from date: " + v)
		}
		f.From = &t
	}
	if v := q.Get("to"); v != "" {
		t, bare, err := parseTime(v, loc)
		if err != nil {
			return f, apperr.Validation("Invalid to date: " + v)
		}
		if bare {
			t = t.AddDate(0, 0, 1).Add(-time.Millisecond)
		}
		f.To = &t
	}
	f.Query = strings.TrimSpace(q.Get("q"))
	var err error
	if f.MinTotal, err = parseMoney(q.Get("minTotal"), "minTotal"); err != nil {
		return f, err
	}
	if f.MaxTotal, err = parseMoney(q.Get("maxTotal"), "maxTotal"); err != nil {
		return f, err
	}
	if v := q.Get("customerId"); v != "" {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil || id == 0 {
			return f, apperr.Validation("Invalid customerId: " + v)
		}
		f.CustomerID = id
	}
	f.Sort = model.OrderSort(strings.TrimSpace(q.Get("sort")))
	return f, nil
}

// parsePage reads page and limit. Missing values are left zero for the
// service to default.
func parsePage(c echo.Context) (model.Page, error) {
	var p model.Page
	for name, dst := range map[string]*int{"page": &p.Number, "limit": &p.Size} {
		v := c.QueryParam(name)
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return p, apperr.Validation(fmt.Sprintf("%s must be a positive integer", name))
		}
		*dst = n
	}
	return p, nil
}

func parseTime(v string, loc *time.Location) (t time.Time, bare bool, err error) {
	if t, err = time.Parse(time.RFC3339Nano, v); err == nil {
		return t, false, nil
	}
	t, err = time.ParseInLocation(dateOnly, v, loc)
	return t, err == nil, err
}

func parseMoney(v, name string) (*decimal.Decimal, error) {
	if v == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(v)
	if err != nil || d.IsNegative() {
		return nil, apperr.Validation(fmt.Sprintf("Invalid %s: %s", name, v))
	}
	return &d, nil
}
