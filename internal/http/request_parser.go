// Package http provides the REST transport of the API.
//
// This file implements utilities for parsing and validating request data:
// JSON bodies, path ids and the query parameters of the report endpoints.

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"projex/internal/core"
	"projex/internal/services"
)

// maxBodyBytes bounds every JSON request body.
const maxBodyBytes = 1 << 20

// decodeJSON reads the request body into dst. An empty body leaves dst
// untouched.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return core.Validationf("Request body too large")
		}
		// Field decoders such as money and dates already speak the domain.
		var domainErr *core.Error
		if errors.As(err, &domainErr) {
			return domainErr
		}
		return core.Validationf("Invalid request body")
	}
	return nil
}

// pathID reads a numeric path variable.
func pathID(r *http.Request, name string) (int64, error) {
	raw := mux.Vars(r)[name]
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, core.Validationf("Invalid %s %q", name, raw)
	}
	return id, nil
}

// ParseDateRange reads the optional startDate and endDate parameters
// (YYYY-MM-DD). Either bound may be omitted.
func ParseDateRange(query url.Values) (core.DateRange, error) {
	var r core.DateRange
	for _, p := range []struct {
		name string
		dst  *core.Date
	}{
		{"startDate", &r.From},
		{"endDate", &r.To},
	} {
		v := strings.TrimSpace(query.Get(p.name))
		if v == "" {
			continue
		}
		d, err := core.ParseDate(v)
		if err != nil {
			return core.DateRange{}, core.Validationf("Invalid %s %q: use YYYY-MM-DD", p.name, v)
		}
		*p.dst = d
	}
	return r, r.Validate()
}

// ParseExpenseFilter reads the date range and the exact category filter.
func ParseExpenseFilter(query url.Values) (core.ExpenseFilter, error) {
	r, err := ParseDateRange(query)
	if err != nil {
		return core.ExpenseFilter{}, err
	}
	return core.ExpenseFilter{Range: r, Category: strings.TrimSpace(query.Get("category"))}, nil
}

// ParseYear reads the year parameter, defaulting to the year of now.
func ParseYear(query url.Values, now time.Time) (int, error) {
	v := strings.TrimSpace(query.Get("year"))
	if v == "" {
		return now.UTC().Year(), nil
	}
	y, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.Validationf("Invalid year %q", v)
	}
	return y, nil
}

// ParseYears reads the years parameter of the annual report.
func ParseYears(query url.Values) (int, error) {
	v := strings.TrimSpace(query.Get("years"))
	if v == "" {
		return services.DefaultAnnualYears, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, core.Validationf("Invalid years %q", v)
	}
	return n, nil
}
