// Package search turns loosely specified search criteria into an ordered,
// paginated page of events.
//
// ParseFilter validates raw inputs into a Filter, Plan translates a Filter into a
// query.Predicate and query.Order, and Service runs the plan against a record
// store and slices the result with Paginate.
package search

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/Himson2006/Yolo-Gpu-2/internal/errors"
	"github.com/Himson2006/Yolo-Gpu-2/internal/query"
)

// Accepted date formats. A bare calendar date as end date means the end of that day.
const (
	dateLayout      = "2006-01-02"
	timestampLayout = "2006-01-02T15:04:05"
)

// RawParams holds unvalidated search inputs as received from a caller.
// Empty strings mean "not supplied".
type RawParams struct {
	Species       []string // each value may hold a comma-separated list
	Match         string
	MinCount      string
	MinDuration   string
	StartDate     string
	EndDate       string
	DeviceID      string
	TimeOfDay     string
	MinConfidence string
	Behavior      string
	Sort          string
	Page          string
}

// Filter is a validated, normalized set of search criteria.
type Filter struct {
	Species       []string // trimmed, case-folded, deduplicated, in input order
	SpeciesGiven  bool     // a species value was non-empty, even if every name was blank
	Match         query.MatchMode
	MinCount      *int
	MinDuration   *float64
	StartDate     time.Time // inclusive, zero when unset
	EndDate       time.Time // exclusive, zero when unset
	DeviceID      string
	TimeOfDay     query.TimeOfDay // empty when unset
	MinConfidence *float64
	Behavior      string
	Sort          query.SortKey
	Page          int

	// SearchPerformed is true when at least one criterion was supplied.
	// Match, Sort and Page alone do not count.
	SearchPerformed bool
}

// ParseFilter validates raw inputs. It fails with a validation error when a date does
// not parse, a numeric field is not numeric, or an enumerated field has an unknown value.
// An unparsable or non-positive page becomes page 1.
func ParseFilter(raw RawParams) (Filter, error) {
	f := Filter{
		Match: query.MatchAny,
		Sort:  query.SortRecent,
		Page:  parsePage(raw.Page),
	}

	f.Species = normalizeSpecies(raw.Species)
	for _, v := range raw.Species {
		if v != "" {
			f.SpeciesGiven = true
			break
		}
	}

	if v := strings.TrimSpace(raw.Match); v != "" {
		switch mode := query.MatchMode(strings.ToLower(v)); mode {
		case query.MatchAny, query.MatchAll:
			f.Match = mode
		default:
			return Filter{}, fieldError("match", v, "must be 'any' or 'all'")
		}
	}

	if v := strings.TrimSpace(raw.MinCount); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return Filter{}, fieldError("min_count", v, "must be an integer")
		}
		if n < 0 {
			return Filter{}, fieldError("min_count", v, "must not be negative")
		}
		f.MinCount = &n
	}

	var err error
	if f.MinDuration, err = parseNonNegative("min_duration", raw.MinDuration); err != nil {
		return Filter{}, err
	}
	if f.MinConfidence, err = parseNonNegative("min_confidence", raw.MinConfidence); err != nil {
		return Filter{}, err
	}

	if v := strings.TrimSpace(raw.StartDate); v != "" {
		t, _, err := parseDate(v)
		if err != nil {
			return Filter{}, fieldError("start_date", v, "must be YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS")
		}
		f.StartDate = t
	}

	if v := strings.TrimSpace(raw.EndDate); v != "" {
		t, dateOnly, err := parseDate(v)
		if err != nil {
			return Filter{}, fieldError("end_date", v, "must be YYYY-MM-DD or YYYY-MM-DDTHH:MM:SS")
		}
		if dateOnly {
			t = t.AddDate(0, 0, 1)
		}
		f.EndDate = t
	}

	f.DeviceID = strings.TrimSpace(raw.DeviceID)

	if v := strings.TrimSpace(raw.TimeOfDay); v != "" {
		switch tod := query.TimeOfDay(strings.ToLower(v)); tod {
		case query.TimeOfDayDay, query.TimeOfDayNight:
			f.TimeOfDay = tod
		default:
			return Filter{}, fieldError("time_of_day", v, "must be 'day' or 'night'")
		}
	}

	f.Behavior = strings.TrimSpace(raw.Behavior)

	if v := strings.TrimSpace(raw.Sort); v != "" {
		switch key := query.SortKey(strings.ToLower(v)); key {
		case query.SortRecent, query.SortOldest, query.SortLongest, query.SortShortest:
			f.Sort = key
		default:
			return Filter{}, fieldError("sort", v, "must be one of recent, oldest, longest, shortest")
		}
	}

	f.SearchPerformed = f.SpeciesGiven ||
		f.MinCount != nil ||
		f.MinDuration != nil ||
		!f.StartDate.IsZero() ||
		!f.EndDate.IsZero() ||
		f.DeviceID != "" ||
		f.TimeOfDay != "" ||
		f.MinConfidence != nil ||
		f.Behavior != ""

	return f, nil
}

// normalizeSpecies splits comma lists, trims, case-folds and deduplicates labels.
func normalizeSpecies(values []string) []string {
	var out []string
	seen := make(map[string]struct{})
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			label := query.FoldLabel(strings.TrimSpace(part))
			if label == "" {
				continue
			}
			if _, dup := seen[label]; dup {
				continue
			}
			seen[label] = struct{}{}
			out = append(out, label)
		}
	}
	return out
}

func parseNonNegative(field, raw string) (*float64, error) {
	v := strings.TrimSpace(raw)
	if v == "" {
		return nil, nil
	}
	n, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return nil, fieldError(field, v, "must be a number")
	}
	if n < 0 {
		return nil, fieldError(field, v, "must not be negative")
	}
	return &n, nil
}

// parseDate parses a calendar date or a naive UTC timestamp.
func parseDate(v string) (t time.Time, dateOnly bool, err error) {
	if t, err = time.ParseInLocation(dateLayout, v, time.UTC); err == nil {
		return t, true, nil
	}
	if t, err = time.ParseInLocation(timestampLayout, v, time.UTC); err == nil {
		return t, false, nil
	}
	if t, err = time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), false, nil
	}
	return time.Time{}, false, err
}

func parsePage(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

func fieldError(field, value, reason string) error {
	return errors.Newf("invalid %s %q: %s", field, value, reason).
		Component("search").
		Category(errors.CategoryValidation).
		Context("field", field).
		Build()
}
