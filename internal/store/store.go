// Package store defines the buyer repository contract and its error
// kinds. Two implementations exist: postgres (production) and memory
// (tests and single-process demos). Both enforce the same ownership,
// optimistic-concurrency, and history semantics.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/propstack/leadbook/internal/buyer"
)

// HistoryLimit is how many history entries a single lookup returns.
const HistoryLimit = 5

var (
	// ErrNotFound covers both a genuinely absent record and an owner
	// mismatch on read. The two are deliberately indistinguishable so
	// callers cannot probe for other users' record identifiers.
	ErrNotFound = errors.New("buyer not found")

	// ErrConflict means the record changed since the caller last read
	// it. The caller should re-fetch and retry.
	ErrConflict = errors.New("record has been modified by another user, please refresh and try again")

	// ErrForbidden means the caller does not own the record it is
	// trying to mutate.
	ErrForbidden = errors.New("you can only modify your own buyers")

	// ErrUserNotFound means the identity cookie references no user.
	ErrUserNotFound = errors.New("user not found")
)

// Pagination describes one page of a listing.
type Pagination struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// Page is a single page of buyers plus the paging summary.
type Page struct {
	Data       []buyer.Buyer `json:"data"`
	Pagination Pagination    `json:"pagination"`
}

// Store is the buyer repository. All buyer operations are scoped to an
// owner; reads treat owner mismatch as absence (ErrNotFound), mutations
// distinguish ErrForbidden once existence is established.
type Store interface {
	// CreateBuyer assigns a fresh identifier and owner, forces status
	// to New, persists the record, and appends the synthetic creation
	// history entry.
	CreateBuyer(ctx context.Context, b buyer.Buyer, ownerID uuid.UUID) (buyer.Buyer, error)

	// GetBuyer returns the record only if it exists and belongs to
	// ownerID; otherwise ErrNotFound.
	GetBuyer(ctx context.Context, id, ownerID uuid.UUID) (buyer.Buyer, error)

	// ListBuyers returns one page of the owner's records matching the
	// filters. The total count ignores pagination. Order between equal
	// sort keys is undefined.
	ListBuyers(ctx context.Context, f buyer.Filters, ownerID uuid.UUID) (Page, error)

	// UpdateBuyer applies an already-validated update under optimistic
	// concurrency control: ErrNotFound if absent, ErrForbidden on owner
	// mismatch, ErrConflict if the current updatedAt differs from
	// expected. A history entry is appended only when the diff is
	// non-empty. Returns the updated record.
	UpdateBuyer(ctx context.Context, id uuid.UUID, in buyer.UpdateInput, ownerID uuid.UUID, expected time.Time) (buyer.Buyer, error)

	// DeleteBuyer removes the record and its history entries.
	DeleteBuyer(ctx context.Context, id, ownerID uuid.UUID) error

	// BuyerHistory returns up to HistoryLimit entries for the buyer,
	// newest first, with the changing user's display name when
	// resolvable. Ownership is checked with GetBuyer semantics.
	BuyerHistory(ctx context.Context, buyerID, ownerID uuid.UUID) ([]buyer.HistoryEntry, error)

	// ListForExport returns the full matching set, unpaginated, with
	// the same filter and sort semantics as ListBuyers.
	ListForExport(ctx context.Context, f buyer.Filters, ownerID uuid.UUID) ([]buyer.Buyer, error)

	// CreateOrGetUser returns the user with the given email, creating
	// it on first reference.
	CreateOrGetUser(ctx context.Context, email, name string) (buyer.User, error)

	// GetUser returns the user by id, or ErrUserNotFound.
	GetUser(ctx context.Context, id uuid.UUID) (buyer.User, error)
}

// TotalPages computes ceil(total/limit) for paging summaries.
func TotalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
