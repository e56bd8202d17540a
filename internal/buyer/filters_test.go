package buyer

import (
	"net/url"
	"testing"
)

func TestParseFilters_Defaults(t *testing.T) {
	f, err := ParseFilters(url.Values{})
	if err != nil {
		t.Fatalf("ParseFilters() error = %v", err)
	}

	if f.Page != DefaultPage {
		t.Errorf("Page = %d, want %d", f.Page, DefaultPage)
	}
	if f.Limit != DefaultLimit {
		t.Errorf("Limit = %d, want %d", f.Limit, DefaultLimit)
	}
	if f.SortBy != DefaultSortBy {
		t.Errorf("SortBy = %q, want %q", f.SortBy, DefaultSortBy)
	}
	if f.SortOrder != DefaultSortOrder {
		t.Errorf("SortOrder = %q, want %q", f.SortOrder, DefaultSortOrder)
	}
}

func TestParseFilters_Valid(t *testing.T) {
	q := url.Values{}
	q.Set("city", "Mohali")
	q.Set("status", "Qualified")
	q.Set("search", "asha")
	q.Set("page", "3")
	q.Set("limit", "50")
	q.Set("sortBy", "fullName")
	q.Set("sortOrder", "asc")

	f, err := ParseFilters(q)
	if err != nil {
		t.Fatalf("ParseFilters() error = %v", err)
	}

	if f.City != CityMohali {
		t.Errorf("City = %q, want %q", f.City, CityMohali)
	}
	if f.Status != StatusQualified {
		t.Errorf("Status = %q, want %q", f.Status, StatusQualified)
	}
	if f.Search != "asha" {
		t.Errorf("Search = %q, want %q", f.Search, "asha")
	}
	if f.Page != 3 || f.Limit != 50 {
		t.Errorf("Page/Limit = %d/%d, want 3/50", f.Page, f.Limit)
	}
	if f.SortBy != "fullName" || f.SortOrder != "asc" {
		t.Errorf("SortBy/SortOrder = %s/%s, want fullName/asc", f.SortBy, f.SortOrder)
	}
}

func TestParseFilters_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		key   string
		value string
		field string
	}{
		{"unknown city", "city", "Delhi", "city"},
		{"lowercased status", "status", "qualified", "status"},
		{"zero page", "page", "0", "page"},
		{"non-numeric page", "page", "two", "page"},
		{"limit over max", "limit", "101", "limit"},
		{"zero limit", "limit", "0", "limit"},
		{"unknown sort field", "sortBy", "phone", "sortBy"},
		{"unknown sort order", "sortOrder", "sideways", "sortOrder"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := url.Values{}
			q.Set(tt.key, tt.value)

			_, err := ParseFilters(q)
			if err == nil {
				t.Fatalf("expected error for %s=%s", tt.key, tt.value)
			}
			fields := fieldErrors(t, err)
			if _, ok := fields[tt.field]; !ok {
				t.Errorf("violation should be reported on %s: %v", tt.field, fields)
			}
		})
	}
}

func TestParseFilters_LimitAtMax(t *testing.T) {
	q := url.Values{}
	q.Set("limit", "100")

	f, err := ParseFilters(q)
	if err != nil {
		t.Fatalf("ParseFilters() error = %v", err)
	}
	if f.Limit != MaxLimit {
		t.Errorf("Limit = %d, want %d", f.Limit, MaxLimit)
	}
}
