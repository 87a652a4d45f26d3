package database

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// User is a row in the users table. OAuth-only accounts carry a NULL
// password hash.
type User struct {
	UserID         string
	Email          string
	PasswordHash   pgtype.Text
	DisplayName    pgtype.Text
	AvatarURL      pgtype.Text
	Provider       pgtype.Text
	ProviderUserID pgtype.Text
	EmailVerified  bool
	OtpSecret      pgtype.Text
	CreatedAt      pgtype.Timestamptz
	LastLoginAt    pgtype.Timestamptz
}

// RefreshToken stores only the SHA-256 hash of the opaque token handed to
// the client. Rotation revokes the old row and inserts a new one.
type RefreshToken struct {
	ID        pgtype.UUID
	UserID    string
	TokenHash string
	ExpiresAt pgtype.Timestamptz
	Revoked   bool
	CreatedAt pgtype.Timestamptz
}

// SearchRecord is one entry in the usage ledger. UserID is NULL for
// anonymous searches, which are keyed by ClientIP instead.
type SearchRecord struct {
	ID         pgtype.UUID
	UserID     pgtype.Text
	ClientIP   string
	SearchType string
	Query      pgtype.Text
	CreatedAt  pgtype.Timestamptz
}
