package buyer

// filters.go validates the query parameters of the list and export
// endpoints. Invalid page/limit/sortBy/sortOrder values fail validation
// rather than being clamped to the nearest legal value.

import (
	"fmt"
	"net/url"
	"strconv"
)

// Pagination and sorting bounds and defaults.
const (
	DefaultPage      = 1
	DefaultLimit     = 10
	MaxLimit         = 100
	DefaultSortBy    = "updatedAt"
	DefaultSortOrder = "desc"
)

// SortFields are the columns a listing may be ordered by.
var SortFields = []string{"updatedAt", "fullName", "createdAt"}

// Filters is a validated set of listing parameters. Enum fields are empty
// when the filter is not applied.
type Filters struct {
	City         City
	PropertyType PropertyType
	Status       Status
	Timeline     Timeline
	Search       string
	Page         int
	Limit        int
	SortBy       string
	SortOrder    string
}

// ParseFilters validates listing query parameters, applying defaults for
// absent values.
func ParseFilters(q url.Values) (Filters, error) {
	var errs ValidationErrors

	f := Filters{
		Search:    q.Get("search"),
		Page:      DefaultPage,
		Limit:     DefaultLimit,
		SortBy:    DefaultSortBy,
		SortOrder: DefaultSortOrder,
	}

	if raw := q.Get("city"); raw != "" {
		f.City, errs = parseEnum(errs, "city", raw, Cities)
	}
	if raw := q.Get("propertyType"); raw != "" {
		f.PropertyType, errs = parseEnum(errs, "propertyType", raw, PropertyTypes)
	}
	if raw := q.Get("status"); raw != "" {
		f.Status, errs = parseEnum(errs, "status", raw, Statuses)
	}
	if raw := q.Get("timeline"); raw != "" {
		f.Timeline, errs = parseEnum(errs, "timeline", raw, Timelines)
	}

	if raw := q.Get("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil || page < 1 {
			errs = append(errs, ValidationError{Field: "page", Message: "page must be a positive integer"})
		} else {
			f.Page = page
		}
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 1 || limit > MaxLimit {
			errs = append(errs, ValidationError{Field: "limit", Message: fmt.Sprintf("limit must be between 1 and %d", MaxLimit)})
		} else {
			f.Limit = limit
		}
	}

	if raw := q.Get("sortBy"); raw != "" {
		if !enumValid(raw, SortFields) {
			errs = append(errs, ValidationError{Field: "sortBy", Message: "sortBy must be one of: updatedAt, fullName, createdAt"})
		} else {
			f.SortBy = raw
		}
	}
	if raw := q.Get("sortOrder"); raw != "" {
		if raw != "asc" && raw != "desc" {
			errs = append(errs, ValidationError{Field: "sortOrder", Message: "sortOrder must be asc or desc"})
		} else {
			f.SortOrder = raw
		}
	}

	if len(errs) > 0 {
		return Filters{}, errs
	}
	return f, nil
}
