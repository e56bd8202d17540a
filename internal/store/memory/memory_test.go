package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/propstack/leadbook/internal/buyer"
	"github.com/propstack/leadbook/internal/store"
)

func testBuyer(name string) buyer.Buyer {
	return buyer.Buyer{
		FullName:     name,
		Phone:        "9812345678",
		City:         buyer.CityChandigarh,
		PropertyType: buyer.PropertyApartment,
		BHK:          buyer.BHK2,
		Purpose:      buyer.PurposeBuy,
		Timeline:     buyer.TimelineZeroToThree,
		Source:       buyer.SourceWebsite,
		Status:       buyer.StatusNew,
		Tags:         []string{},
	}
}

func defaultFilters() buyer.Filters {
	return buyer.Filters{
		Page:      buyer.DefaultPage,
		Limit:     buyer.DefaultLimit,
		SortBy:    buyer.DefaultSortBy,
		SortOrder: buyer.DefaultSortOrder,
	}
}

func TestCreateBuyer(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := uuid.New()

	created, err := s.CreateBuyer(ctx, testBuyer("Asha Verma"), owner)
	if err != nil {
		t.Fatalf("CreateBuyer() error = %v", err)
	}

	if created.ID == uuid.Nil {
		t.Error("ID not assigned")
	}
	if created.OwnerID != owner {
		t.Errorf("OwnerID = %v, want %v", created.OwnerID, owner)
	}
	if created.Status != buyer.StatusNew {
		t.Errorf("Status = %q, want %q", created.Status, buyer.StatusNew)
	}
	if !created.UpdatedAt.Equal(created.CreatedAt) {
		t.Errorf("UpdatedAt = %v, want equal to CreatedAt %v", created.UpdatedAt, created.CreatedAt)
	}

	// Creation writes a synthetic history entry.
	entries, err := s.BuyerHistory(ctx, created.ID, owner)
	if err != nil {
		t.Fatalf("BuyerHistory() error = %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("history entries = %d, want 1", len(entries))
	}
	change, ok := entries[0].Diff["created"]
	if !ok {
		t.Fatalf("first entry diff = %v, want created marker", entries[0].Diff)
	}
	if change.New != "New buyer created" {
		t.Errorf("created marker = %v, want %q", change.New, "New buyer created")
	}
}

func TestGetBuyer_OwnerScoped(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := uuid.New()
	other := uuid.New()

	created, err := s.CreateBuyer(ctx, testBuyer("Asha Verma"), owner)
	if err != nil {
		t.Fatalf("CreateBuyer() error = %v", err)
	}

	if _, err := s.GetBuyer(ctx, created.ID, owner); err != nil {
		t.Errorf("owner GetBuyer() error = %v", err)
	}

	// A different owner sees the same NotFound as a missing id: reads
	// never reveal that the record exists.
	if _, err := s.GetBuyer(ctx, created.ID, other); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("foreign GetBuyer() error = %v, want ErrNotFound", err)
	}
	if _, err := s.GetBuyer(ctx, uuid.New(), owner); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing GetBuyer() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateBuyer(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := uuid.New()

	created, err := s.CreateBuyer(ctx, testBuyer("Asha Verma"), owner)
	if err != nil {
		t.Fatalf("CreateBuyer() error = %v", err)
	}

	status := "Qualified"
	in := buyer.UpdateInput{Status: &status, UpdatedAt: created.UpdatedAt}

	updated, err := s.UpdateBuyer(ctx, created.ID, in, owner, created.UpdatedAt)
	if err != nil {
		t.Fatalf("UpdateBuyer() error = %v", err)
	}

	if updated.Status != buyer.StatusQualified {
		t.Errorf("Status = %q, want %q", updated.Status, buyer.StatusQualified)
	}
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("UpdatedAt %v not after %v", updated.UpdatedAt, created.UpdatedAt)
	}

	entries, err := s.BuyerHistory(ctx, created.ID, owner)
	if err != nil {
		t.Fatalf("BuyerHistory() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("history entries = %d, want 2", len(entries))
	}
	// Newest first.
	change, ok := entries[0].Diff["status"]
	if !ok {
		t.Fatalf("newest entry diff = %v, want status change", entries[0].Diff)
	}
	if change.Old != "New" || change.New != "Qualified" {
		t.Errorf("status change = %+v, want New -> Qualified", change)
	}
}

func TestUpdateBuyer_StaleToken(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := uuid.New()

	created, _ := s.CreateBuyer(ctx, testBuyer("Asha Verma"), owner)

	status := "Qualified"
	in := buyer.UpdateInput{Status: &status, UpdatedAt: created.UpdatedAt}
	if _, err := s.UpdateBuyer(ctx, created.ID, in, owner, created.UpdatedAt); err != nil {
		t.Fatalf("first UpdateBuyer() error = %v", err)
	}

	// Replaying the original token must now conflict.
	_, err := s.UpdateBuyer(ctx, created.ID, in, owner, created.UpdatedAt)
	if !errors.Is(err, store.ErrConflict) {
		t.Errorf("stale UpdateBuyer() error = %v, want ErrConflict", err)
	}
}

func TestUpdateBuyer_OwnershipBeforeVersion(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := uuid.New()
	other := uuid.New()

	created, _ := s.CreateBuyer(ctx, testBuyer("Asha Verma"), owner)

	status := "Qualified"
	// Wrong owner AND stale token: forbidden wins, so strangers can't
	// probe version state.
	in := buyer.UpdateInput{Status: &status, UpdatedAt: time.Now().Add(-time.Hour)}
	_, err := s.UpdateBuyer(ctx, created.ID, in, other, in.UpdatedAt)
	if !errors.Is(err, store.ErrForbidden) {
		t.Errorf("foreign UpdateBuyer() error = %v, want ErrForbidden", err)
	}

	_, err = s.UpdateBuyer(ctx, uuid.New(), in, owner, in.UpdatedAt)
	if !errors.Is(err, store.ErrNotFound) {
		t.Errorf("missing UpdateBuyer() error = %v, want ErrNotFound", err)
	}
}

func TestUpdateBuyer_NoChangeNoHistory(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := uuid.New()

	created, _ := s.CreateBuyer(ctx, testBuyer("Asha Verma"), owner)

	name := "Asha Verma"
	in := buyer.UpdateInput{FullName: &name, UpdatedAt: created.UpdatedAt}
	updated, err := s.UpdateBuyer(ctx, created.ID, in, owner, created.UpdatedAt)
	if err != nil {
		t.Fatalf("UpdateBuyer() error = %v", err)
	}

	// The version still advances so a repeated submit conflicts.
	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("UpdatedAt should advance even for a no-op change")
	}

	entries, _ := s.BuyerHistory(ctx, created.ID, owner)
	if len(entries) != 1 {
		t.Errorf("history entries = %d, want 1 (create only)", len(entries))
	}
}

func TestUpdateBuyer_StrictlyIncreasingOnFrozenClock(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := uuid.New()

	frozen := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { return frozen })

	created, _ := s.CreateBuyer(ctx, testBuyer("Asha Verma"), owner)

	status := "Contacted"
	in := buyer.UpdateInput{Status: &status, UpdatedAt: created.UpdatedAt}
	updated, err := s.UpdateBuyer(ctx, created.ID, in, owner, created.UpdatedAt)
	if err != nil {
		t.Fatalf("UpdateBuyer() error = %v", err)
	}

	if !updated.UpdatedAt.After(created.UpdatedAt) {
		t.Errorf("UpdatedAt %v not after %v with frozen clock", updated.UpdatedAt, created.UpdatedAt)
	}
}

func TestUpdateBuyer_ConcurrentOneWins(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := uuid.New()

	created, _ := s.CreateBuyer(ctx, testBuyer("Asha Verma"), owner)

	const attempts = 8
	var wg sync.WaitGroup
	results := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status := "Qualified"
			in := buyer.UpdateInput{Status: &status, UpdatedAt: created.UpdatedAt}
			_, results[i] = s.UpdateBuyer(ctx, created.ID, in, owner, created.UpdatedAt)
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range results {
		if err == nil {
			wins++
		} else if !errors.Is(err, store.ErrConflict) {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if wins != 1 {
		t.Errorf("winning updates = %d, want exactly 1", wins)
	}
}

func TestDeleteBuyer_CascadesHistory(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := uuid.New()
	other := uuid.New()

	created, _ := s.CreateBuyer(ctx, testBuyer("Asha Verma"), owner)

	if err := s.DeleteBuyer(ctx, created.ID, other); !errors.Is(err, store.ErrForbidden) {
		t.Errorf("foreign DeleteBuyer() error = %v, want ErrForbidden", err)
	}

	if err := s.DeleteBuyer(ctx, created.ID, owner); err != nil {
		t.Fatalf("DeleteBuyer() error = %v", err)
	}

	if _, err := s.GetBuyer(ctx, created.ID, owner); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("GetBuyer() after delete error = %v, want ErrNotFound", err)
	}
	if _, err := s.BuyerHistory(ctx, created.ID, owner); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("BuyerHistory() after delete error = %v, want ErrNotFound", err)
	}
	if err := s.DeleteBuyer(ctx, created.ID, owner); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("second DeleteBuyer() error = %v, want ErrNotFound", err)
	}
}

func TestBuyerHistory_LimitNewestFirst(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := uuid.New()

	created, _ := s.CreateBuyer(ctx, testBuyer("Asha Verma"), owner)

	// Seven note updates plus the create marker: eight entries total.
	token := created.UpdatedAt
	for i := 0; i < 7; i++ {
		notes := fmt.Sprintf("note %d", i)
		in := buyer.UpdateInput{Notes: &notes, UpdatedAt: token}
		updated, err := s.UpdateBuyer(ctx, created.ID, in, owner, token)
		if err != nil {
			t.Fatalf("update %d error = %v", i, err)
		}
		token = updated.UpdatedAt
	}

	entries, err := s.BuyerHistory(ctx, created.ID, owner)
	if err != nil {
		t.Fatalf("BuyerHistory() error = %v", err)
	}
	if len(entries) != store.HistoryLimit {
		t.Fatalf("entries = %d, want %d", len(entries), store.HistoryLimit)
	}
	for i := 1; i < len(entries); i++ {
		if entries[i].ChangedAt.After(entries[i-1].ChangedAt) {
			t.Errorf("entries not newest-first at %d", i)
		}
	}
	if change := entries[0].Diff["notes"]; change.New != "note 6" {
		t.Errorf("newest entry = %v, want note 6", change.New)
	}
}

func TestBuyerHistory_ResolvesChangedByName(t *testing.T) {
	s := New()
	ctx := context.Background()

	u, err := s.CreateOrGetUser(ctx, "agent@example.com", "Agent Kaur")
	if err != nil {
		t.Fatalf("CreateOrGetUser() error = %v", err)
	}

	created, _ := s.CreateBuyer(ctx, testBuyer("Asha Verma"), u.ID)

	entries, err := s.BuyerHistory(ctx, created.ID, u.ID)
	if err != nil {
		t.Fatalf("BuyerHistory() error = %v", err)
	}
	if entries[0].ChangedByName != "Agent Kaur" {
		t.Errorf("ChangedByName = %q, want %q", entries[0].ChangedByName, "Agent Kaur")
	}
}

func TestListBuyers_FiltersAndPagination(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := uuid.New()
	other := uuid.New()

	for i := 0; i < 15; i++ {
		b := testBuyer(fmt.Sprintf("Lead %02d", i))
		if i%3 == 0 {
			b.City = buyer.CityMohali
		}
		if _, err := s.CreateBuyer(ctx, b, owner); err != nil {
			t.Fatalf("CreateBuyer() error = %v", err)
		}
	}
	// Another owner's record must never leak into the listing.
	if _, err := s.CreateBuyer(ctx, testBuyer("Foreign Lead"), other); err != nil {
		t.Fatalf("CreateBuyer() error = %v", err)
	}

	page, err := s.ListBuyers(ctx, defaultFilters(), owner)
	if err != nil {
		t.Fatalf("ListBuyers() error = %v", err)
	}
	if page.Pagination.Total != 15 {
		t.Errorf("Total = %d, want 15", page.Pagination.Total)
	}
	if page.Pagination.TotalPages != 2 {
		t.Errorf("TotalPages = %d, want 2", page.Pagination.TotalPages)
	}
	if len(page.Data) != 10 {
		t.Errorf("page size = %d, want 10", len(page.Data))
	}

	f := defaultFilters()
	f.Page = 2
	page2, err := s.ListBuyers(ctx, f, owner)
	if err != nil {
		t.Fatalf("ListBuyers() page 2 error = %v", err)
	}
	if len(page2.Data) != 5 {
		t.Errorf("page 2 size = %d, want 5", len(page2.Data))
	}

	f = defaultFilters()
	f.City = buyer.CityMohali
	filtered, err := s.ListBuyers(ctx, f, owner)
	if err != nil {
		t.Fatalf("ListBuyers() filtered error = %v", err)
	}
	if filtered.Pagination.Total != 5 {
		t.Errorf("Mohali Total = %d, want 5", filtered.Pagination.Total)
	}
}

func TestListBuyers_Search(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := uuid.New()

	a := testBuyer("Asha Verma")
	a.Email = "asha@example.com"
	b := testBuyer("Rohit Mehra")
	b.Phone = "9990001111"
	s.CreateBuyer(ctx, a, owner)
	s.CreateBuyer(ctx, b, owner)

	tests := []struct {
		term string
		want int
	}{
		{"ASHA", 1},   // case-insensitive over fullName/email
		{"mehra", 1},  // fullName
		{"999000", 1}, // phone substring
		{"nobody", 0},
	}

	for _, tt := range tests {
		f := defaultFilters()
		f.Search = tt.term
		page, err := s.ListBuyers(ctx, f, owner)
		if err != nil {
			t.Fatalf("ListBuyers(%q) error = %v", tt.term, err)
		}
		if page.Pagination.Total != tt.want {
			t.Errorf("search %q: Total = %d, want %d", tt.term, page.Pagination.Total, tt.want)
		}
	}
}

func TestListBuyers_Sort(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := uuid.New()

	for _, name := range []string{"Charlie Singh", "Asha Verma", "Bina Patel"} {
		if _, err := s.CreateBuyer(ctx, testBuyer(name), owner); err != nil {
			t.Fatalf("CreateBuyer() error = %v", err)
		}
	}

	f := defaultFilters()
	f.SortBy = "fullName"
	f.SortOrder = "asc"
	page, err := s.ListBuyers(ctx, f, owner)
	if err != nil {
		t.Fatalf("ListBuyers() error = %v", err)
	}

	got := []string{page.Data[0].FullName, page.Data[1].FullName, page.Data[2].FullName}
	want := []string{"Asha Verma", "Bina Patel", "Charlie Singh"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sorted[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestListForExport_Unpaginated(t *testing.T) {
	s := New()
	ctx := context.Background()
	owner := uuid.New()

	for i := 0; i < 25; i++ {
		if _, err := s.CreateBuyer(ctx, testBuyer(fmt.Sprintf("Lead %02d", i)), owner); err != nil {
			t.Fatalf("CreateBuyer() error = %v", err)
		}
	}

	buyers, err := s.ListForExport(ctx, defaultFilters(), owner)
	if err != nil {
		t.Fatalf("ListForExport() error = %v", err)
	}
	if len(buyers) != 25 {
		t.Errorf("export size = %d, want all 25 regardless of limit", len(buyers))
	}
}

func TestCreateOrGetUser(t *testing.T) {
	s := New()
	ctx := context.Background()

	u1, err := s.CreateOrGetUser(ctx, "agent@example.com", "Agent Kaur")
	if err != nil {
		t.Fatalf("CreateOrGetUser() error = %v", err)
	}
	u2, err := s.CreateOrGetUser(ctx, "agent@example.com", "Someone Else")
	if err != nil {
		t.Fatalf("second CreateOrGetUser() error = %v", err)
	}

	if u1.ID != u2.ID {
		t.Errorf("same email produced two users: %v vs %v", u1.ID, u2.ID)
	}
	if u2.Name != "Agent Kaur" {
		t.Errorf("Name = %q, want original %q", u2.Name, "Agent Kaur")
	}

	got, err := s.GetUser(ctx, u1.ID)
	if err != nil {
		t.Fatalf("GetUser() error = %v", err)
	}
	if got.Email != "agent@example.com" {
		t.Errorf("Email = %q, want %q", got.Email, "agent@example.com")
	}

	if _, err := s.GetUser(ctx, uuid.New()); !errors.Is(err, store.ErrUserNotFound) {
		t.Errorf("GetUser(unknown) error = %v, want ErrUserNotFound", err)
	}
}
