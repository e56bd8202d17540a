package buyer

// diff.go computes the field-level change set recorded in a buyer's
// history. Only fields present in the update payload participate, and a
// field is included only when its normalized value actually differs from
// the persisted one. The identifier and updatedAt never appear in a diff.
//
// An empty diff means the update changed nothing; the repository must
// then skip the history write entirely.

import "slices"

// ComputeDiff compares the persisted record against the updated record
// for every field the payload submitted. next should be the result of
// in.Apply(existing).
func ComputeDiff(existing, next Buyer, in UpdateInput) Diff {
	diff := Diff{}

	if in.FullName != nil && next.FullName != existing.FullName {
		diff["fullName"] = FieldChange{Old: existing.FullName, New: next.FullName}
	}
	if in.Email != nil && next.Email != existing.Email {
		diff["email"] = FieldChange{Old: existing.Email, New: next.Email}
	}
	if in.Phone != nil && next.Phone != existing.Phone {
		diff["phone"] = FieldChange{Old: existing.Phone, New: next.Phone}
	}
	if in.City != nil && next.City != existing.City {
		diff["city"] = FieldChange{Old: string(existing.City), New: string(next.City)}
	}
	if in.PropertyType != nil && next.PropertyType != existing.PropertyType {
		diff["propertyType"] = FieldChange{Old: string(existing.PropertyType), New: string(next.PropertyType)}
	}
	// A propertyType switch away from residential clears bhk server-side,
	// so that change is recorded even when the payload never named bhk.
	if (in.BHK != nil || in.PropertyType != nil) && next.BHK != existing.BHK {
		diff["bhk"] = FieldChange{Old: bhkValue(existing.BHK), New: bhkValue(next.BHK)}
	}
	if in.Purpose != nil && next.Purpose != existing.Purpose {
		diff["purpose"] = FieldChange{Old: string(existing.Purpose), New: string(next.Purpose)}
	}
	if in.BudgetMin != nil && !intPtrEqual(existing.BudgetMin, next.BudgetMin) {
		diff["budgetMin"] = FieldChange{Old: intValue(existing.BudgetMin), New: intValue(next.BudgetMin)}
	}
	if in.BudgetMax != nil && !intPtrEqual(existing.BudgetMax, next.BudgetMax) {
		diff["budgetMax"] = FieldChange{Old: intValue(existing.BudgetMax), New: intValue(next.BudgetMax)}
	}
	if in.Timeline != nil && next.Timeline != existing.Timeline {
		diff["timeline"] = FieldChange{Old: string(existing.Timeline), New: string(next.Timeline)}
	}
	if in.Source != nil && next.Source != existing.Source {
		diff["source"] = FieldChange{Old: string(existing.Source), New: string(next.Source)}
	}
	if in.Status != nil && next.Status != existing.Status {
		diff["status"] = FieldChange{Old: string(existing.Status), New: string(next.Status)}
	}
	if in.Notes != nil && next.Notes != existing.Notes {
		diff["notes"] = FieldChange{Old: existing.Notes, New: next.Notes}
	}
	if in.Tags != nil && !slices.Equal(existing.Tags, next.Tags) {
		diff["tags"] = FieldChange{Old: tagsValue(existing.Tags), New: tagsValue(next.Tags)}
	}

	return diff
}

// bhkValue renders an absent bhk as nil rather than "".
func bhkValue(b BHK) any {
	if b == "" {
		return nil
	}
	return string(b)
}

func intValue(p *int) any {
	if p == nil {
		return nil
	}
	return *p
}

// tagsValue keeps nil and empty slices distinguishable in stored diffs.
func tagsValue(tags []string) any {
	if tags == nil {
		return nil
	}
	return tags
}

func intPtrEqual(a, b *int) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
