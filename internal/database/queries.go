package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is the subset of pgxpool.Pool the query layer needs, so queries run
// the same against a pool or an open transaction.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

const createUser = `
INSERT INTO users (user_id, email, password_hash, display_name, otp_secret)
VALUES ($1, $2, $3, $4, $5)
RETURNING user_id, email, password_hash, display_name, avatar_url, provider, provider_user_id, email_verified, otp_secret, created_at, last_login_at
`

type CreateUserParams struct {
	UserID       string
	Email        string
	PasswordHash pgtype.Text
	DisplayName  pgtype.Text
	OtpSecret    pgtype.Text
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRow(ctx, createUser, arg.UserID, arg.Email, arg.PasswordHash, arg.DisplayName, arg.OtpSecret)
	var u User
	err := row.Scan(&u.UserID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.AvatarURL, &u.Provider, &u.ProviderUserID, &u.EmailVerified, &u.OtpSecret, &u.CreatedAt, &u.LastLoginAt)
	return u, err
}

const getUserByEmail = `
SELECT user_id, email, password_hash, display_name, avatar_url, provider, provider_user_id, email_verified, otp_secret, created_at, last_login_at
FROM users WHERE email = $1
`

func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByEmail, email)
	var u User
	err := row.Scan(&u.UserID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.AvatarURL, &u.Provider, &u.ProviderUserID, &u.EmailVerified, &u.OtpSecret, &u.CreatedAt, &u.LastLoginAt)
	return u, err
}

const getUserByID = `
SELECT user_id, email, password_hash, display_name, avatar_url, provider, provider_user_id, email_verified, otp_secret, created_at, last_login_at
FROM users WHERE user_id = $1
`

func (q *Queries) GetUserByID(ctx context.Context, userID string) (User, error) {
	row := q.db.QueryRow(ctx, getUserByID, userID)
	var u User
	err := row.Scan(&u.UserID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.AvatarURL, &u.Provider, &u.ProviderUserID, &u.EmailVerified, &u.OtpSecret, &u.CreatedAt, &u.LastLoginAt)
	return u, err
}

const checkEmailExists = `
SELECT EXISTS (SELECT 1 FROM users WHERE email = $1)
`

func (q *Queries) CheckEmailExists(ctx context.Context, email string) (bool, error) {
	row := q.db.QueryRow(ctx, checkEmailExists, email)
	var exists bool
	err := row.Scan(&exists)
	return exists, err
}

const markEmailVerified = `
UPDATE users SET email_verified = TRUE, otp_secret = NULL WHERE user_id = $1
`

func (q *Queries) MarkEmailVerified(ctx context.Context, userID string) error {
	_, err := q.db.Exec(ctx, markEmailVerified, userID)
	return err
}

const updateOtpSecret = `
UPDATE users SET otp_secret = $2 WHERE user_id = $1
`

func (q *Queries) UpdateOtpSecret(ctx context.Context, userID string, secret pgtype.Text) error {
	_, err := q.db.Exec(ctx, updateOtpSecret, userID, secret)
	return err
}

const touchLastLogin = `
UPDATE users SET last_login_at = NOW() WHERE user_id = $1
`

func (q *Queries) TouchLastLogin(ctx context.Context, userID string) error {
	_, err := q.db.Exec(ctx, touchLastLogin, userID)
	return err
}

const upsertOAuthUser = `
INSERT INTO users (user_id, email, display_name, avatar_url, provider, provider_user_id, email_verified)
VALUES ($1, $2, $3, $4, $5, $6, TRUE)
ON CONFLICT (email) DO UPDATE SET
    display_name     = COALESCE(EXCLUDED.display_name, users.display_name),
    avatar_url       = COALESCE(EXCLUDED.avatar_url, users.avatar_url),
    provider         = EXCLUDED.provider,
    provider_user_id = EXCLUDED.provider_user_id,
    email_verified   = TRUE,
    last_login_at    = NOW()
RETURNING user_id, email, password_hash, display_name, avatar_url, provider, provider_user_id, email_verified, otp_secret, created_at, last_login_at
`

type UpsertOAuthUserParams struct {
	UserID         string
	Email          string
	DisplayName    pgtype.Text
	AvatarURL      pgtype.Text
	Provider       pgtype.Text
	ProviderUserID pgtype.Text
}

func (q *Queries) UpsertOAuthUser(ctx context.Context, arg UpsertOAuthUserParams) (User, error) {
	row := q.db.QueryRow(ctx, upsertOAuthUser, arg.UserID, arg.Email, arg.DisplayName, arg.AvatarURL, arg.Provider, arg.ProviderUserID)
	var u User
	err := row.Scan(&u.UserID, &u.Email, &u.PasswordHash, &u.DisplayName, &u.AvatarURL, &u.Provider, &u.ProviderUserID, &u.EmailVerified, &u.OtpSecret, &u.CreatedAt, &u.LastLoginAt)
	return u, err
}

const createRefreshToken = `
INSERT INTO refresh_tokens (user_id, token_hash, expires_at)
VALUES ($1, $2, $3)
RETURNING id, user_id, token_hash, expires_at, revoked, created_at
`

type CreateRefreshTokenParams struct {
	UserID    string
	TokenHash string
	ExpiresAt pgtype.Timestamptz
}

func (q *Queries) CreateRefreshToken(ctx context.Context, arg CreateRefreshTokenParams) (RefreshToken, error) {
	row := q.db.QueryRow(ctx, createRefreshToken, arg.UserID, arg.TokenHash, arg.ExpiresAt)
	var t RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	return t, err
}

const getRefreshTokenByHash = `
SELECT id, user_id, token_hash, expires_at, revoked, created_at
FROM refresh_tokens
WHERE token_hash = $1 AND NOT revoked AND expires_at > NOW()
`

func (q *Queries) GetRefreshTokenByHash(ctx context.Context, tokenHash string) (RefreshToken, error) {
	row := q.db.QueryRow(ctx, getRefreshTokenByHash, tokenHash)
	var t RefreshToken
	err := row.Scan(&t.ID, &t.UserID, &t.TokenHash, &t.ExpiresAt, &t.Revoked, &t.CreatedAt)
	return t, err
}

const revokeRefreshToken = `
UPDATE refresh_tokens SET revoked = TRUE WHERE id = $1
`

func (q *Queries) RevokeRefreshToken(ctx context.Context, id pgtype.UUID) error {
	_, err := q.db.Exec(ctx, revokeRefreshToken, id)
	return err
}

const revokeAllUserRefreshTokens = `
UPDATE refresh_tokens SET revoked = TRUE WHERE user_id = $1 AND NOT revoked
`

func (q *Queries) RevokeAllUserRefreshTokens(ctx context.Context, userID string) error {
	_, err := q.db.Exec(ctx, revokeAllUserRefreshTokens, userID)
	return err
}

const recordSearch = `
INSERT INTO user_searches (user_id, client_ip, search_type, query)
VALUES ($1, $2, $3, $4)
RETURNING id, user_id, client_ip, search_type, query, created_at
`

type RecordSearchParams struct {
	UserID     pgtype.Text
	ClientIP   string
	SearchType string
	Query      pgtype.Text
}

func (q *Queries) RecordSearch(ctx context.Context, arg RecordSearchParams) (SearchRecord, error) {
	row := q.db.QueryRow(ctx, recordSearch, arg.UserID, arg.ClientIP, arg.SearchType, arg.Query)
	var r SearchRecord
	err := row.Scan(&r.ID, &r.UserID, &r.ClientIP, &r.SearchType, &r.Query, &r.CreatedAt)
	return r, err
}

const countSearchesByIP = `
SELECT COUNT(*) FROM user_searches WHERE client_ip = $1 AND user_id IS NULL
`

func (q *Queries) CountSearchesByIP(ctx context.Context, clientIP string) (int64, error) {
	row := q.db.QueryRow(ctx, countSearchesByIP, clientIP)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const countSearchesByUser = `
SELECT COUNT(*) FROM user_searches WHERE user_id = $1
`

func (q *Queries) CountSearchesByUser(ctx context.Context, userID string) (int64, error) {
	row := q.db.QueryRow(ctx, countSearchesByUser, userID)
	var count int64
	err := row.Scan(&count)
	return count, err
}

const listRecentSearches = `
SELECT id, user_id, client_ip, search_type, query, created_at
FROM user_searches
ORDER BY created_at DESC
LIMIT $1
`

func (q *Queries) ListRecentSearches(ctx context.Context, limit int32) ([]SearchRecord, error) {
	rows, err := q.db.Query(ctx, listRecentSearches, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []SearchRecord
	for rows.Next() {
		var r SearchRecord
		if err := rows.Scan(&r.ID, &r.UserID, &r.ClientIP, &r.SearchType, &r.Query, &r.CreatedAt); err != nil {
			return nil, err
		}
		items = append(items, r)
	}
	return items, rows.Err()
}
