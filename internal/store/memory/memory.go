// Package memory provides an in-memory store.Store implementation.
//
// A single mutex serializes all operations, which makes the
// check-then-write sequence of UpdateBuyer atomic without any further
// coordination. It backs the test suite and single-process demos; the
// postgres implementation is the production one.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/propstack/leadbook/internal/buyer"
	"github.com/propstack/leadbook/internal/store"
)

// Store keeps buyers, history, and users in maps guarded by one mutex.
type Store struct {
	mu      sync.Mutex
	buyers  map[uuid.UUID]buyer.Buyer
	history map[uuid.UUID][]buyer.HistoryEntry // keyed by buyer id
	users   map[uuid.UUID]buyer.User
	byEmail map[string]uuid.UUID
	now     func() time.Time
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		buyers:  make(map[uuid.UUID]buyer.Buyer),
		history: make(map[uuid.UUID][]buyer.HistoryEntry),
		users:   make(map[uuid.UUID]buyer.User),
		byEmail: make(map[string]uuid.UUID),
		now:     time.Now,
	}
}

// SetClock overrides the time source. Tests only.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.now = now
}

func (s *Store) CreateBuyer(ctx context.Context, b buyer.Buyer, ownerID uuid.UUID) (buyer.Buyer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now().UTC()
	b.ID = uuid.New()
	b.OwnerID = ownerID
	b.Status = buyer.StatusNew
	b.CreatedAt = now
	b.UpdatedAt = now

	s.buyers[b.ID] = b
	s.appendHistory(b.ID, ownerID, now, buyer.CreatedDiff())
	return b, nil
}

func (s *Store) GetBuyer(ctx context.Context, id, ownerID uuid.UUID) (buyer.Buyer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.getOwned(id, ownerID)
}

// getOwned treats owner mismatch as absence. Callers hold the lock.
func (s *Store) getOwned(id, ownerID uuid.UUID) (buyer.Buyer, error) {
	b, ok := s.buyers[id]
	if !ok || b.OwnerID != ownerID {
		return buyer.Buyer{}, store.ErrNotFound
	}
	return b, nil
}

func (s *Store) ListBuyers(ctx context.Context, f buyer.Filters, ownerID uuid.UUID) (store.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := s.match(f, ownerID)
	sortBuyers(matched, f.SortBy, f.SortOrder)

	total := len(matched)
	offset := (f.Page - 1) * f.Limit
	end := offset + f.Limit
	if offset > total {
		offset = total
	}
	if end > total {
		end = total
	}

	page := make([]buyer.Buyer, end-offset)
	copy(page, matched[offset:end])

	return store.Page{
		Data: page,
		Pagination: store.Pagination{
			Page:       f.Page,
			Limit:      f.Limit,
			Total:      total,
			TotalPages: store.TotalPages(total, f.Limit),
		},
	}, nil
}

func (s *Store) UpdateBuyer(ctx context.Context, id uuid.UUID, in buyer.UpdateInput, ownerID uuid.UUID, expected time.Time) (buyer.Buyer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.buyers[id]
	if !ok {
		return buyer.Buyer{}, store.ErrNotFound
	}
	// Ownership first: non-owners learn nothing about the record's
	// version state.
	if existing.OwnerID != ownerID {
		return buyer.Buyer{}, store.ErrForbidden
	}
	if !existing.UpdatedAt.Equal(expected) {
		return buyer.Buyer{}, store.ErrConflict
	}

	next := in.Apply(existing)
	diff := buyer.ComputeDiff(existing, next, in)

	now := s.now().UTC()
	// updatedAt must strictly increase even on a coarse clock.
	if !now.After(existing.UpdatedAt) {
		now = existing.UpdatedAt.Add(time.Microsecond)
	}
	next.UpdatedAt = now
	s.buyers[id] = next

	if len(diff) > 0 {
		s.appendHistory(id, ownerID, now, diff)
	}
	return next, nil
}

func (s *Store) DeleteBuyer(ctx context.Context, id, ownerID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.buyers[id]
	if !ok {
		return store.ErrNotFound
	}
	if existing.OwnerID != ownerID {
		return store.ErrForbidden
	}
	delete(s.buyers, id)
	// History cascades with the buyer.
	delete(s.history, id)
	return nil
}

func (s *Store) BuyerHistory(ctx context.Context, buyerID, ownerID uuid.UUID) ([]buyer.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getOwned(buyerID, ownerID); err != nil {
		return nil, err
	}

	entries := make([]buyer.HistoryEntry, len(s.history[buyerID]))
	copy(entries, s.history[buyerID])
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ChangedAt.After(entries[j].ChangedAt)
	})
	if len(entries) > store.HistoryLimit {
		entries = entries[:store.HistoryLimit]
	}
	for i := range entries {
		if u, ok := s.users[entries[i].ChangedBy]; ok {
			entries[i].ChangedByName = u.Name
		}
	}
	return entries, nil
}

func (s *Store) ListForExport(ctx context.Context, f buyer.Filters, ownerID uuid.UUID) ([]buyer.Buyer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := s.match(f, ownerID)
	sortBuyers(matched, f.SortBy, f.SortOrder)
	return matched, nil
}

func (s *Store) CreateOrGetUser(ctx context.Context, email, name string) (buyer.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.byEmail[email]; ok {
		return s.users[id], nil
	}
	u := buyer.User{ID: uuid.New(), Email: email, Name: name}
	s.users[u.ID] = u
	s.byEmail[email] = u.ID
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (buyer.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return buyer.User{}, store.ErrUserNotFound
	}
	return u, nil
}

// appendHistory records a change. Callers hold the lock. The entry
// timestamp reuses the buyer's new updatedAt so history ordering matches
// record versions.
func (s *Store) appendHistory(buyerID, changedBy uuid.UUID, at time.Time, diff buyer.Diff) {
	s.history[buyerID] = append(s.history[buyerID], buyer.HistoryEntry{
		ID:        uuid.New(),
		BuyerID:   buyerID,
		ChangedBy: changedBy,
		ChangedAt: at,
		Diff:      diff,
	})
}

// match collects the owner's buyers passing the filters, unsorted.
func (s *Store) match(f buyer.Filters, ownerID uuid.UUID) []buyer.Buyer {
	var matched []buyer.Buyer
	for _, b := range s.buyers {
		if b.OwnerID != ownerID {
			continue
		}
		if f.City != "" && b.City != f.City {
			continue
		}
		if f.PropertyType != "" && b.PropertyType != f.PropertyType {
			continue
		}
		if f.Status != "" && b.Status != f.Status {
			continue
		}
		if f.Timeline != "" && b.Timeline != f.Timeline {
			continue
		}
		if f.Search != "" && !matchesSearch(b, f.Search) {
			continue
		}
		matched = append(matched, b)
	}
	return matched
}

// matchesSearch is a case-insensitive substring match over fullName,
// email, and phone.
func matchesSearch(b buyer.Buyer, term string) bool {
	term = strings.ToLower(term)
	return strings.Contains(strings.ToLower(b.FullName), term) ||
		strings.Contains(strings.ToLower(b.Email), term) ||
		strings.Contains(strings.ToLower(b.Phone), term)
}

func sortBuyers(buyers []buyer.Buyer, sortBy, sortOrder string) {
	less := func(a, b buyer.Buyer) bool {
		switch sortBy {
		case "fullName":
			return a.FullName < b.FullName
		case "createdAt":
			return a.CreatedAt.Before(b.CreatedAt)
		default:
			return a.UpdatedAt.Before(b.UpdatedAt)
		}
	}
	sort.Slice(buyers, func(i, j int) bool {
		if sortOrder == "asc" {
			return less(buyers[i], buyers[j])
		}
		return less(buyers[j], buyers[i])
	})
}
