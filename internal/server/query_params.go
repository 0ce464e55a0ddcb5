package server

import (
	"errors"
	"strings"
	"time"

	reportdomain "github.com/smallbiznis/detailflow/internal/report/domain"
)

var errInvalidTime = errors.New("invalid_time")

// parseBound reads an RFC3339 timestamp or a YYYY-MM-DD date. Dates are UTC
// midnight; as an upper bound a date covers the whole day, so the exclusive
// bound becomes the next midnight.
func parseBound(value string, upper bool) (*time.Time, error) {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return nil, nil
	}
	if parsed, err := time.Parse(time.RFC3339, trimmed); err == nil {
		return &parsed, nil
	}
	parsed, err := time.Parse(time.DateOnly, trimmed)
	if err != nil {
		return nil, errInvalidTime
	}
	if upper {
		parsed = parsed.AddDate(0, 0, 1)
	}
	return &parsed, nil
}

func parseRange(startValue, endValue string) (reportdomain.RangeRequest, error) {
	var req reportdomain.RangeRequest

	start, err := parseBound(startValue, false)
	if err != nil {
		return req, newValidationError("start", "invalid_start", "invalid start")
	}
	end, err := parseBound(endValue, true)
	if err != nil {
		return req, newValidationError("end", "invalid_end", "invalid end")
	}
	if start != nil {
		req.Start = *start
	}
	if end != nil {
		req.End = *end
	}
	return req, nil
}
