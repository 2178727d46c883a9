// Package http provides HTTP server and handler implementations.
//
// This file implements utilities for parsing and validating query
// parameters into filter criteria.

package http

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"expensetracker/internal/core"
)

// Query parameter names accepted by the report and export endpoints.
const (
	paramStartDate  = "startDate"
	paramEndDate    = "endDate"
	paramCategoryID = "categoryId"
	paramLimit      = "limit"
	paramFormat     = "format"
)

// ParamError reports a malformed query parameter.
type ParamError struct {
	Param string
	Value string
	Err   error
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("invalid %s %q", e.Param, e.Value)
}

func (e *ParamError) Unwrap() error { return e.Err }

// ParseFilterCriteria builds filter criteria for ownerID from query
// parameters. Absent parameters leave the matching filter unset; present
// but malformed ones are rejected. Cross-field checks such as the date
// order are left to FilterCriteria.Validate.
func ParseFilterCriteria(query url.Values, ownerID int64) (core.FilterCriteria, error) {
	f := core.FilterCriteria{OwnerID: ownerID}

	if v := strings.TrimSpace(query.Get(paramStartDate)); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return f, &ParamError{Param: paramStartDate, Value: v, Err: err}
		}
		f.DateRange.Start = d
	}
	if v := strings.TrimSpace(query.Get(paramEndDate)); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return f, &ParamError{Param: paramEndDate, Value: v, Err: err}
		}
		f.DateRange.End = d
	}
	if v := strings.TrimSpace(query.Get(paramCategoryID)); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return f, &ParamError{Param: paramCategoryID, Value: v, Err: err}
		}
		f.CategoryID = &id
	}
	if v := strings.TrimSpace(query.Get(paramLimit)); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return f, &ParamError{Param: paramLimit, Value: v, Err: err}
		}
		if n <= 0 {
			return f, &ParamError{Param: paramLimit, Value: v, Err: core.ErrInvalidLimit}
		}
		f.Limit = n
	}

	return f, nil
}
