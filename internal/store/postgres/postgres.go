// Package postgres implements store.Store on PostgreSQL via pgx.
//
// The update path is the one place correctness depends on the database:
// the version check and the write happen inside a single transaction,
// with the row locked FOR UPDATE and a conditional updated_at guard on
// the UPDATE itself, so two concurrent updates from the same version can
// never both succeed.
//
// Timestamps are stored as timestamptz and truncated to microseconds on
// write; the concurrency token is truncated the same way before
// comparison so a round-tripped updatedAt always compares equal.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/propstack/leadbook/internal/buyer"
	"github.com/propstack/leadbook/internal/store"
)

// DBTX is the subset of pgx operations the store needs. Satisfied by
// both *pgxpool.Pool and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...any) (pgconn.CommandTag, error)
	Query(context.Context, string, ...any) (pgx.Rows, error)
	QueryRow(context.Context, string, ...any) pgx.Row
}

// Store is the PostgreSQL-backed repository.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a Store over an existing connection pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const buyerColumns = `id, full_name, email, phone, city, property_type, bhk, purpose,
	budget_min, budget_max, timeline, source, status, notes, tags,
	owner_id, created_at, updated_at`

func (s *Store) CreateBuyer(ctx context.Context, b buyer.Buyer, ownerID uuid.UUID) (buyer.Buyer, error) {
	now := pgNow()
	b.ID = uuid.New()
	b.OwnerID = ownerID
	b.Status = buyer.StatusNew
	b.CreatedAt = now
	b.UpdatedAt = now
	if b.Tags == nil {
		b.Tags = []string{}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return buyer.Buyer{}, fmt.Errorf("begin create: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO buyers (`+buyerColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		b.ID, b.FullName, b.Email, b.Phone, string(b.City), string(b.PropertyType),
		string(b.BHK), string(b.Purpose), b.BudgetMin, b.BudgetMax, string(b.Timeline),
		string(b.Source), string(b.Status), b.Notes, b.Tags, b.OwnerID, b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return buyer.Buyer{}, fmt.Errorf("insert buyer: %w", err)
	}

	if err := insertHistory(ctx, tx, b.ID, ownerID, now, buyer.CreatedDiff()); err != nil {
		return buyer.Buyer{}, err
	}
	if err := tx.Commit(ctx); err != nil {
		return buyer.Buyer{}, fmt.Errorf("commit create: %w", err)
	}
	return b, nil
}

func (s *Store) GetBuyer(ctx context.Context, id, ownerID uuid.UUID) (buyer.Buyer, error) {
	// Owner mismatch and absence produce the same ErrNotFound: the
	// query simply scopes by owner.
	row := s.pool.QueryRow(ctx, `
		SELECT `+buyerColumns+`
		FROM buyers
		WHERE id = $1 AND owner_id = $2`,
		id, ownerID,
	)
	b, err := scanBuyer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return buyer.Buyer{}, store.ErrNotFound
	}
	if err != nil {
		return buyer.Buyer{}, fmt.Errorf("get buyer: %w", err)
	}
	return b, nil
}

func (s *Store) ListBuyers(ctx context.Context, f buyer.Filters, ownerID uuid.UUID) (store.Page, error) {
	whereClause, args := buildWhere(f, ownerID)

	var total int
	err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM buyers"+whereClause, args...).Scan(&total)
	if err != nil {
		return store.Page{}, fmt.Errorf("count buyers: %w", err)
	}

	offset := (f.Page - 1) * f.Limit
	query := fmt.Sprintf(
		"SELECT %s FROM buyers%s ORDER BY %s LIMIT $%d OFFSET $%d",
		buyerColumns, whereClause, orderBy(f), len(args)+1, len(args)+2,
	)
	args = append(args, f.Limit, offset)

	buyers, err := s.queryBuyers(ctx, query, args)
	if err != nil {
		return store.Page{}, err
	}

	return store.Page{
		Data: buyers,
		Pagination: store.Pagination{
			Page:       f.Page,
			Limit:      f.Limit,
			Total:      total,
			TotalPages: store.TotalPages(total, f.Limit),
		},
	}, nil
}

func (s *Store) UpdateBuyer(ctx context.Context, id uuid.UUID, in buyer.UpdateInput, ownerID uuid.UUID, expected time.Time) (buyer.Buyer, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return buyer.Buyer{}, fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback(ctx)

	row := tx.QueryRow(ctx, `
		SELECT `+buyerColumns+`
		FROM buyers
		WHERE id = $1
		FOR UPDATE`,
		id,
	)
	existing, err := scanBuyer(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return buyer.Buyer{}, store.ErrNotFound
	}
	if err != nil {
		return buyer.Buyer{}, fmt.Errorf("load buyer for update: %w", err)
	}

	// Ownership first: non-owners learn nothing about version state.
	if existing.OwnerID != ownerID {
		return buyer.Buyer{}, store.ErrForbidden
	}
	if !existing.UpdatedAt.Equal(expected.UTC().Truncate(time.Microsecond)) {
		return buyer.Buyer{}, store.ErrConflict
	}

	next := in.Apply(existing)
	diff := buyer.ComputeDiff(existing, next, in)

	now := pgNow()
	if !now.After(existing.UpdatedAt) {
		now = existing.UpdatedAt.Add(time.Microsecond)
	}
	next.UpdatedAt = now
	if next.Tags == nil {
		next.Tags = []string{}
	}

	// The updated_at guard keeps the check-then-write atomic even if
	// row locking assumptions ever change.
	tag, err := tx.Exec(ctx, `
		UPDATE buyers
		SET full_name = $1, email = $2, phone = $3, city = $4, property_type = $5,
			bhk = $6, purpose = $7, budget_min = $8, budget_max = $9, timeline = $10,
			source = $11, status = $12, notes = $13, tags = $14, updated_at = $15
		WHERE id = $16 AND updated_at = $17`,
		next.FullName, next.Email, next.Phone, string(next.City), string(next.PropertyType),
		string(next.BHK), string(next.Purpose), next.BudgetMin, next.BudgetMax,
		string(next.Timeline), string(next.Source), string(next.Status), next.Notes,
		next.Tags, next.UpdatedAt, id, existing.UpdatedAt,
	)
	if err != nil {
		return buyer.Buyer{}, fmt.Errorf("update buyer: %w", err)
	}
	if tag.RowsAffected() != 1 {
		return buyer.Buyer{}, store.ErrConflict
	}

	if len(diff) > 0 {
		if err := insertHistory(ctx, tx, id, ownerID, now, diff); err != nil {
			return buyer.Buyer{}, err
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return buyer.Buyer{}, fmt.Errorf("commit update: %w", err)
	}
	return next, nil
}

func (s *Store) DeleteBuyer(ctx context.Context, id, ownerID uuid.UUID) error {
	var recordOwner uuid.UUID
	err := s.pool.QueryRow(ctx, "SELECT owner_id FROM buyers WHERE id = $1", id).Scan(&recordOwner)
	if errors.Is(err, pgx.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("load buyer for delete: %w", err)
	}
	if recordOwner != ownerID {
		return store.ErrForbidden
	}

	// History rows cascade via the buyer_history foreign key.
	_, err = s.pool.Exec(ctx, "DELETE FROM buyers WHERE id = $1 AND owner_id = $2", id, ownerID)
	if err != nil {
		return fmt.Errorf("delete buyer: %w", err)
	}
	return nil
}

func (s *Store) BuyerHistory(ctx context.Context, buyerID, ownerID uuid.UUID) ([]buyer.HistoryEntry, error) {
	if _, err := s.GetBuyer(ctx, buyerID, ownerID); err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT h.id, h.buyer_id, h.changed_by, h.changed_at, h.diff, u.name
		FROM buyer_history h
		LEFT JOIN users u ON u.id = h.changed_by
		WHERE h.buyer_id = $1
		ORDER BY h.changed_at DESC
		LIMIT $2`,
		buyerID, store.HistoryLimit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []buyer.HistoryEntry{}
	for rows.Next() {
		var (
			e        buyer.HistoryEntry
			diffJSON []byte
			name     pgtype.Text
		)
		if err := rows.Scan(&e.ID, &e.BuyerID, &e.ChangedBy, &e.ChangedAt, &diffJSON, &name); err != nil {
			return nil, fmt.Errorf("scan history row: %w", err)
		}
		if err := json.Unmarshal(diffJSON, &e.Diff); err != nil {
			return nil, fmt.Errorf("decode history diff: %w", err)
		}
		if name.Valid {
			e.ChangedByName = name.String
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (s *Store) ListForExport(ctx context.Context, f buyer.Filters, ownerID uuid.UUID) ([]buyer.Buyer, error) {
	whereClause, args := buildWhere(f, ownerID)
	query := fmt.Sprintf(
		"SELECT %s FROM buyers%s ORDER BY %s",
		buyerColumns, whereClause, orderBy(f),
	)
	return s.queryBuyers(ctx, query, args)
}

func (s *Store) CreateOrGetUser(ctx context.Context, email, name string) (buyer.User, error) {
	// The no-op DO UPDATE makes RETURNING yield the existing row, so
	// first reference and every later one take the same path.
	row := s.pool.QueryRow(ctx, `
		INSERT INTO users (id, email, name)
		VALUES ($1, $2, $3)
		ON CONFLICT (email) DO UPDATE SET email = EXCLUDED.email
		RETURNING id, email, name`,
		uuid.New(), email, name,
	)
	var u buyer.User
	if err := row.Scan(&u.ID, &u.Email, &u.Name); err != nil {
		return buyer.User{}, fmt.Errorf("create or get user: %w", err)
	}
	return u, nil
}

func (s *Store) GetUser(ctx context.Context, id uuid.UUID) (buyer.User, error) {
	row := s.pool.QueryRow(ctx, "SELECT id, email, name FROM users WHERE id = $1", id)
	var u buyer.User
	err := row.Scan(&u.ID, &u.Email, &u.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return buyer.User{}, store.ErrUserNotFound
	}
	if err != nil {
		return buyer.User{}, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

// insertHistory writes one history row within the caller's transaction.
func insertHistory(ctx context.Context, db DBTX, buyerID, changedBy uuid.UUID, at time.Time, diff buyer.Diff) error {
	diffJSON, err := json.Marshal(diff)
	if err != nil {
		return fmt.Errorf("encode history diff: %w", err)
	}
	_, err = db.Exec(ctx, `
		INSERT INTO buyer_history (id, buyer_id, changed_by, changed_at, diff)
		VALUES ($1, $2, $3, $4, $5)`,
		uuid.New(), buyerID, changedBy, at, diffJSON,
	)
	if err != nil {
		return fmt.Errorf("insert history: %w", err)
	}
	return nil
}

// buildWhere assembles the owner scope, exact-match filters, and search
// condition as a parameterized WHERE clause.
func buildWhere(f buyer.Filters, ownerID uuid.UUID) (string, []any) {
	conditions := []string{"owner_id = $1"}
	args := []any{ownerID}

	addEq := func(column, value string) {
		if value == "" {
			return
		}
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	addEq("city", string(f.City))
	addEq("property_type", string(f.PropertyType))
	addEq("status", string(f.Status))
	addEq("timeline", string(f.Timeline))

	if f.Search != "" {
		args = append(args, "%"+f.Search+"%")
		n := len(args)
		conditions = append(conditions, fmt.Sprintf(
			"(full_name ILIKE $%d OR email ILIKE $%d OR phone ILIKE $%d)", n, n, n,
		))
	}

	return " WHERE " + strings.Join(conditions, " AND "), args
}

// orderBy maps the validated sort field to its column. Filters are
// validated upstream, so the default arm is unreachable in practice.
func orderBy(f buyer.Filters) string {
	column := "updated_at"
	switch f.SortBy {
	case "fullName":
		column = "full_name"
	case "createdAt":
		column = "created_at"
	}
	dir := "DESC"
	if f.SortOrder == "asc" {
		dir = "ASC"
	}
	return column + " " + dir
}

func (s *Store) queryBuyers(ctx context.Context, query string, args []any) ([]buyer.Buyer, error) {
	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query buyers: %w", err)
	}
	defer rows.Close()

	buyers := []buyer.Buyer{}
	for rows.Next() {
		b, err := scanBuyer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan buyer row: %w", err)
		}
		buyers = append(buyers, b)
	}
	return buyers, rows.Err()
}

func scanBuyer(row pgx.Row) (buyer.Buyer, error) {
	var (
		b                                buyer.Buyer
		city, propertyType, bhk, purpose string
		timeline, source, status         string
	)
	err := row.Scan(
		&b.ID, &b.FullName, &b.Email, &b.Phone, &city, &propertyType, &bhk, &purpose,
		&b.BudgetMin, &b.BudgetMax, &timeline, &source, &status, &b.Notes, &b.Tags,
		&b.OwnerID, &b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return buyer.Buyer{}, err
	}
	b.City = buyer.City(city)
	b.PropertyType = buyer.PropertyType(propertyType)
	b.BHK = buyer.BHK(bhk)
	b.Purpose = buyer.Purpose(purpose)
	b.Timeline = buyer.Timeline(timeline)
	b.Source = buyer.Source(source)
	b.Status = buyer.Status(status)
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, nil
}

// pgNow returns the current time at the precision postgres stores.
func pgNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}
