package ledger

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"pharmagift/internal/database"
)

// Anonymous visitors get one free search per IP, ever. Signed-in users are
// unlimited.
const anonymousSearchLimit = 1

// Store is the slice of the query layer the ledger needs.
type Store interface {
	CountSearchesByIP(ctx context.Context, clientIP string) (int64, error)
	CountSearchesByUser(ctx context.Context, userID string) (int64, error)
	RecordSearch(ctx context.Context, arg database.RecordSearchParams) (database.SearchRecord, error)
}

// Tracker gates searches against the per-IP quota and records usage.
type Tracker struct {
	store Store
	log   zerolog.Logger
}

func NewTracker(store Store, log zerolog.Logger) *Tracker {
	return &Tracker{store: store, log: log}
}

// CanSearch reports whether the caller may run another search. Ledger
// lookups failing is never a reason to block a user, so storage errors
// resolve permissive.
func (t *Tracker) CanSearch(ctx context.Context, userID, clientIP string) bool {
	if userID != "" {
		return true
	}
	count, err := t.store.CountSearchesByIP(ctx, clientIP)
	if err != nil {
		t.log.Warn().Err(err).Str("client_ip", clientIP).Msg("Quota lookup failed, allowing search")
		return true
	}
	return count < anonymousSearchLimit
}

// SearchCount returns how many searches the user has run. Zero on lookup
// failure; this feeds a status display, nothing gates on it.
func (t *Tracker) SearchCount(ctx context.Context, userID string) int64 {
	if userID == "" {
		return 0
	}
	count, err := t.store.CountSearchesByUser(ctx, userID)
	if err != nil {
		t.log.Warn().Err(err).Str("user_id", userID).Msg("Search count lookup failed")
		return 0
	}
	return count
}

// Record appends one entry to the ledger. Failures are logged and swallowed;
// a search the user already paid for is never failed retroactively over
// bookkeeping.
func (t *Tracker) Record(ctx context.Context, userID, clientIP, searchType, query string) *database.SearchRecord {
	arg := database.RecordSearchParams{
		ClientIP:   clientIP,
		SearchType: searchType,
	}
	if userID != "" {
		arg.UserID = pgtype.Text{String: userID, Valid: true}
	}
	if query != "" {
		arg.Query = pgtype.Text{String: query, Valid: true}
	}

	rec, err := t.store.RecordSearch(ctx, arg)
	if err != nil {
		t.log.Error().Err(err).Str("client_ip", clientIP).Str("search_type", searchType).Msg("Failed to record search")
		return nil
	}
	return &rec
}
