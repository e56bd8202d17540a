package buyer

import (
	"testing"
	"time"
)

func TestComputeDiff_NoChange(t *testing.T) {
	existing := Buyer{FullName: "Asha Verma", Notes: "same"}
	in := UpdateInput{
		FullName:  strPtr("Asha Verma"),
		Notes:     strPtr("same"),
		UpdatedAt: time.Now(),
	}
	next := in.Apply(existing)

	diff := ComputeDiff(existing, next, in)
	if len(diff) != 0 {
		t.Errorf("diff = %v, want empty for identical values", diff)
	}
}

func TestComputeDiff_ChangedField(t *testing.T) {
	existing := Buyer{Status: StatusNew}
	in := UpdateInput{Status: strPtr("Qualified")}
	next := in.Apply(existing)

	diff := ComputeDiff(existing, next, in)
	change, ok := diff["status"]
	if !ok {
		t.Fatalf("diff missing status change: %v", diff)
	}
	if change.Old != "New" || change.New != "Qualified" {
		t.Errorf("status change = %+v, want New -> Qualified", change)
	}
}

func TestComputeDiff_AbsentFieldsExcluded(t *testing.T) {
	// Notes differ between existing and next, but the payload never
	// submitted notes, so the diff must not mention it.
	existing := Buyer{Notes: "old", Status: StatusNew}
	in := UpdateInput{Status: strPtr("Contacted")}
	next := in.Apply(existing)
	next.Notes = "sideways"

	diff := ComputeDiff(existing, next, in)
	if _, ok := diff["notes"]; ok {
		t.Errorf("diff includes unsubmitted field: %v", diff)
	}
}

func TestComputeDiff_BudgetAbsentRendersNil(t *testing.T) {
	min := 1000000
	existing := Buyer{}
	in := UpdateInput{BudgetMin: &min}
	next := in.Apply(existing)

	diff := ComputeDiff(existing, next, in)
	change, ok := diff["budgetMin"]
	if !ok {
		t.Fatalf("diff missing budgetMin: %v", diff)
	}
	if change.Old != nil {
		t.Errorf("Old = %v, want nil for absent budget", change.Old)
	}
	if change.New != 1000000 {
		t.Errorf("New = %v, want 1000000", change.New)
	}
}

func TestComputeDiff_TagsOrderMatters(t *testing.T) {
	existing := Buyer{Tags: []string{"a", "b"}}
	tags := []string{"b", "a"}
	in := UpdateInput{Tags: &tags}
	next := in.Apply(existing)

	diff := ComputeDiff(existing, next, in)
	if _, ok := diff["tags"]; !ok {
		t.Errorf("reordered tags should diff: %v", diff)
	}
}

func TestComputeDiff_BHKClearedByPropertySwitch(t *testing.T) {
	// The payload never names bhk; switching to Plot clears it in Apply
	// and the clearing still lands in the diff.
	existing := Buyer{PropertyType: PropertyApartment, BHK: BHK2}
	in := UpdateInput{PropertyType: strPtr("Plot")}
	next := in.Apply(existing)

	diff := ComputeDiff(existing, next, in)
	change, ok := diff["bhk"]
	if !ok {
		t.Fatalf("diff missing bhk: %v", diff)
	}
	if change.Old != "2" || change.New != nil {
		t.Errorf("bhk change = %+v, want 2 -> nil", change)
	}
}

func TestCreatedDiff(t *testing.T) {
	diff := CreatedDiff()
	change, ok := diff["created"]
	if !ok {
		t.Fatalf("created diff missing entry: %v", diff)
	}
	if change.Old != nil {
		t.Errorf("Old = %v, want nil", change.Old)
	}
	if change.New != "New buyer created" {
		t.Errorf("New = %v, want %q", change.New, "New buyer created")
	}
}
