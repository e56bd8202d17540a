package buyer

// csvrow.go is the CSV-facing validation variant. Every field arrives as
// text: budgets are parsed from decimal strings (empty meaning absent,
// not zero), tags are split on commas, and status defaults to New when
// the column is blank or missing. Cross-field rules are shared with the
// create path.

import (
	"strconv"
	"strings"
)

// ParseCSVRow validates and normalizes one CSV record, keyed by column
// name. The returned Buyer has no identifier, owner, or timestamps.
func ParseCSVRow(rec map[string]string) (Buyer, error) {
	var errs ValidationErrors

	errs = appendFullNameErrs(errs, rec["fullName"])
	errs = appendPhoneErrs(errs, rec["phone"])
	errs = appendEmailErrs(errs, rec["email"])

	city, errs := parseEnum(errs, "city", rec["city"], Cities)
	propertyType, errs := parseEnum(errs, "propertyType", rec["propertyType"], PropertyTypes)
	purpose, errs := parseEnum(errs, "purpose", rec["purpose"], Purposes)
	timeline, errs := parseEnum(errs, "timeline", rec["timeline"], Timelines)
	source, errs := parseEnum(errs, "source", rec["source"], Sources)

	bhk, errs := parseBHK(errs, rec["bhk"], propertyType, rec["propertyType"])

	budgetMin, errs := parseBudgetText(errs, "budgetMin", rec["budgetMin"])
	budgetMax, errs := parseBudgetText(errs, "budgetMax", rec["budgetMax"])
	errs = appendBudgetErrs(errs, budgetMin, budgetMax)

	errs = appendNotesErrs(errs, rec["notes"])

	status := StatusNew
	if raw := strings.TrimSpace(rec["status"]); raw != "" {
		status, errs = parseEnum(errs, "status", raw, Statuses)
	}

	if len(errs) > 0 {
		return Buyer{}, errs
	}

	return Buyer{
		FullName:     strings.TrimSpace(rec["fullName"]),
		Email:        rec["email"],
		Phone:        rec["phone"],
		City:         city,
		PropertyType: propertyType,
		BHK:          bhk,
		Purpose:      purpose,
		BudgetMin:    budgetMin,
		BudgetMax:    budgetMax,
		Timeline:     timeline,
		Source:       source,
		Status:       status,
		Notes:        rec["notes"],
		Tags:         SplitTags(rec["tags"]),
	}, nil
}

// SplitTags splits a comma-separated tag string into trimmed parts.
// Empty parts are kept, and an empty input yields an empty slice rather
// than an absent one.
func SplitTags(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	tags := make([]string, len(parts))
	for i, p := range parts {
		tags[i] = strings.TrimSpace(p)
	}
	return tags
}

// parseBudgetText parses an optional decimal budget column. An empty
// string means the budget is absent, never zero.
func parseBudgetText(errs ValidationErrors, field, raw string) (*int, ValidationErrors) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, errs
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, append(errs, ValidationError{Field: field, Message: "must be a whole number"})
	}
	return &n, errs
}
