package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"log"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	emailverifier "github.com/AfterShip/email-verifier"
	"github.com/go-gomail/gomail"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/gorilla/sessions"
	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"
	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"
	"golang.org/x/crypto/bcrypt"

	"pharmagift/internal/database"
	"pharmagift/internal/utility"
)

const (
	AccessTokenDuration  = 15 * time.Minute
	RefreshTokenDuration = 30 * 24 * time.Hour
	OtpExpiryDuration    = 5 * time.Minute
	OtpResendCooldown    = 1 * time.Minute
	MaxOtpAttempts       = 3
)

var (
	queries  *database.Queries
	verifier = emailverifier.
			NewVerifier().
			EnableAutoUpdateDisposable().
			EnableDomainSuggest()
	emailCache *lru.Cache[string, emailVerificationResult]
	otpStore   = sync.Map{}
	otpMutex   = sync.RWMutex{}
)

type JwtCustomClaims struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Name   string `json:"name"`
	jwt.RegisteredClaims
}

type AuthResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	TokenType    string       `json:"token_type"`
	ExpiresIn    int64        `json:"expires_in"`
	User         UserResponse `json:"user"`
}

// SignupRequest for email registration
type SignupRequest struct {
	Email       string `json:"email" form:"email" validate:"required,email"`
	Password    string `json:"password" form:"password" validate:"required,min=8"`
	DisplayName string `json:"display_name" form:"display_name" validate:"omitempty,max=100"`
}

// LoginRequest for email login
type LoginRequest struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

// UserResponse for API responses
type UserResponse struct {
	UserID        string `json:"user_id"`
	Email         string `json:"email"`
	DisplayName   string `json:"display_name,omitempty"`
	AvatarURL     string `json:"avatar_url,omitempty"`
	EmailVerified bool   `json:"email_verified"`
}

type emailVerificationResult struct {
	valid     bool
	message   string
	timestamp time.Time
}

// OtpEntry stores OTP secret and metadata
type OtpEntry struct {
	UserID      string
	Email       string
	Secret      string
	GeneratedAt time.Time
	Attempts    int
	LastAttempt time.Time
}

type VerifyOTPRequest struct {
	UserID  string `json:"user_id" form:"user_id" validate:"required"`
	OtpCode string `json:"otp_code" form:"otp_code" validate:"required,len=6"`
}

type ResendOTPRequest struct {
	UserID string `json:"user_id" form:"user_id" validate:"required"`
}

func InitAuth(dbpool *pgxpool.Pool) error {
	queries = database.New(dbpool)

	var err error
	emailCache, err = lru.New[string, emailVerificationResult](4096)
	if err != nil {
		return fmt.Errorf("failed to create email verification cache: %w", err)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, reading from environment")
	}

	sessionSecret := os.Getenv("SESSION_SECRET")
	if sessionSecret == "" {
		log.Fatal("FATAL: SESSION_SECRET environment variable is not set")
	}

	googleClientId := os.Getenv("GOOGLE_CLIENT_ID")
	googleClientSecret := os.Getenv("GOOGLE_CLIENT_SECRET")
	appUrl := os.Getenv("APP_URL")

	if googleClientId == "" || googleClientSecret == "" || appUrl == "" {
		return fmt.Errorf("GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET, and APP_URL must be set")
	}

	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "development"
	}
	isProd := appEnv == "production"

	store := sessions.NewCookieStore([]byte(sessionSecret))
	store.MaxAge(600)
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = isProd
	store.Options.SameSite = http.SameSiteLaxMode

	gothic.Store = store

	callbackURL := fmt.Sprintf("%s/auth/google/callback", appUrl)
	goth.UseProviders(
		google.New(googleClientId, googleClientSecret, callbackURL),
	)

	startOTPCleanup()
	log.Printf("Auth initialized in '%s' mode. Secure cookies: %v.", appEnv, isProd)
	log.Printf("OAuth callback URL: %s", callbackURL)

	return nil
}

// SignupHandler registers an email account and mails it a verification code.
func SignupHandler(c echo.Context) error {
	ctx := c.Request().Context()

	if err := utility.CheckIPRateLimit(utility.GetRealIP(c)); err != nil {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	}

	var req SignupRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Email and a password of at least 8 characters are required"})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	isValidEmail, emailError, err := verifyEmailAddressWithCache(req.Email)
	if err != nil {
		log.Printf("Email verification error: %v", err)
	} else if !isValidEmail {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": emailError})
	}

	emailExists, err := queries.CheckEmailExists(ctx, req.Email)
	if err != nil {
		log.Printf("Error checking email: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
	if emailExists {
		return c.JSON(http.StatusConflict, map[string]string{"error": "An account with this email already exists"})
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		log.Printf("Error hashing password: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}

	userID := uuid.New().String()

	user, err := queries.CreateUser(ctx, database.CreateUserParams{
		UserID:       userID,
		Email:        req.Email,
		PasswordHash: pgtype.Text{String: string(hashedPassword), Valid: true},
		DisplayName:  pgtype.Text{String: req.DisplayName, Valid: req.DisplayName != ""},
	})
	if err != nil {
		log.Printf("Error creating user: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to create user"})
	}

	if err := generateAndStoreOTP(userID, user.Email); err != nil {
		log.Printf("Failed to send OTP: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "Registration successful but failed to send verification code. Please contact support.",
		})
	}

	log.Printf("New user registered: %s. Awaiting OTP verification.", user.Email)
	return c.JSON(http.StatusAccepted, map[string]interface{}{
		"message":    "Registration successful. Verification code sent to your email.",
		"user_id":    userID,
		"email":      user.Email,
		"next_step":  "/verify",
		"expires_in": int(OtpExpiryDuration.Seconds()),
	})
}

// VerifyOTPHandler confirms the signup code and issues the first token pair.
func VerifyOTPHandler(c echo.Context) error {
	ctx := c.Request().Context()

	var req VerifyOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "User ID and a 6-digit OTP code are required"})
	}

	valid, err := verifyOTPCode(req.UserID, req.OtpCode)
	if err != nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": err.Error()})
	}
	if !valid {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid OTP code"})
	}

	if err := queries.MarkEmailVerified(ctx, req.UserID); err != nil {
		log.Printf("Error marking email verified: %v", err)
	}

	user, err := queries.GetUserByID(ctx, req.UserID)
	if err != nil {
		log.Printf("Error fetching user after OTP verification: %v", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "User not found"})
	}

	queries.TouchLastLogin(ctx, user.UserID)

	return issueTokens(c, &user, "Verification successful")
}

// ResendOTPHandler resends the pending verification code.
func ResendOTPHandler(c echo.Context) error {
	var req ResendOTPRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "User ID is required"})
	}

	val, ok := otpStore.Load(req.UserID)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "No pending verification found"})
	}
	entry := val.(OtpEntry)

	if err := generateAndStoreOTP(req.UserID, entry.Email); err != nil {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"message":    "Verification code resent successfully",
		"expires_in": int(OtpExpiryDuration.Seconds()),
	})
}

// LoginHandler authenticates an email account and issues a token pair.
func LoginHandler(c echo.Context) error {
	ctx := c.Request().Context()

	if err := utility.CheckIPRateLimit(utility.GetRealIP(c)); err != nil {
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": err.Error()})
	}

	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Email and password are required"})
	}

	req.Email = strings.ToLower(strings.TrimSpace(req.Email))

	user, err := queries.GetUserByEmail(ctx, req.Email)
	if err != nil {
		log.Printf("Login attempt for unknown email: %s", req.Email)
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
	}

	if !user.PasswordHash.Valid {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "This account uses Google sign-in"})
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash.String), []byte(req.Password)); err != nil {
		log.Printf("Failed login attempt for: %s", req.Email)
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid email or password"})
	}

	if !user.EmailVerified {
		if err := generateAndStoreOTP(user.UserID, user.Email); err != nil {
			log.Printf("Failed to resend OTP during login: %v", err)
		}
		return c.JSON(http.StatusForbidden, map[string]interface{}{
			"error":     "Email not verified. A new verification code has been sent.",
			"user_id":   user.UserID,
			"next_step": "/verify",
		})
	}

	queries.TouchLastLogin(ctx, user.UserID)

	return issueTokens(c, &user, "Login successful")
}

// ProviderHandler starts the OAuth flow for the given provider.
func ProviderHandler(c echo.Context) error {
	provider := c.Param("provider")
	log.Printf("Starting OAuth flow for provider: %s", provider)

	ctx := context.WithValue(c.Request().Context(), "provider", provider)
	req := c.Request().WithContext(ctx)

	gothic.BeginAuthHandler(c.Response().Writer, req)
	return nil
}

// CallbackHandler completes the OAuth flow, upserts the account and sets
// auth cookies.
func CallbackHandler(c echo.Context) error {
	ctx := c.Request().Context()

	provider := c.Param("provider")
	if provider == "" {
		provider = "google"
	}

	req := c.Request()
	req = req.WithContext(context.WithValue(req.Context(), "provider", provider))

	gothUser, err := gothic.CompleteUserAuth(c.Response().Writer, req)
	if err != nil {
		log.Printf("Gothic auth completion error: %v (provider: %s)", err, provider)
		if strings.Contains(err.Error(), "select a provider") {
			return c.Redirect(http.StatusTemporaryRedirect, fmt.Sprintf("/auth/%s", provider))
		}
		return c.String(http.StatusInternalServerError, fmt.Sprintf("Error completing auth: %v", err))
	}

	user, err := queries.UpsertOAuthUser(ctx, database.UpsertOAuthUserParams{
		UserID:         uuid.New().String(),
		Email:          strings.ToLower(gothUser.Email),
		DisplayName:    pgtype.Text{String: gothUser.Name, Valid: gothUser.Name != ""},
		AvatarURL:      pgtype.Text{String: gothUser.AvatarURL, Valid: gothUser.AvatarURL != ""},
		Provider:       pgtype.Text{String: gothUser.Provider, Valid: true},
		ProviderUserID: pgtype.Text{String: gothUser.UserID, Valid: true},
	})
	if err != nil {
		log.Printf("Error upserting OAuth user: %v", err)
		return c.String(http.StatusInternalServerError, "Error saving user data")
	}

	accessToken, err := generateAccessToken(&user)
	if err != nil {
		return c.String(http.StatusInternalServerError, "Error generating access token")
	}
	refreshToken, err := generateAndStoreRefreshToken(ctx, user.UserID)
	if err != nil {
		return c.String(http.StatusInternalServerError, "Error generating refresh token")
	}

	setAuthCookies(c, accessToken, refreshToken)
	log.Printf("OAuth user successfully authenticated: %s", user.Email)
	return c.Redirect(http.StatusTemporaryRedirect, "/")
}

// RefreshHandler exchanges a valid refresh token for a fresh pair. The old
// token is revoked (single use).
func RefreshHandler(c echo.Context) error {
	ctx := c.Request().Context()
	var refreshToken string

	authHeader := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		refreshToken = strings.TrimPrefix(authHeader, "Bearer ")
	} else {
		cookie, err := c.Cookie("refresh-token")
		if err == nil {
			refreshToken = cookie.Value
		}
	}

	if refreshToken == "" {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "No refresh token provided"})
	}

	user, newRefreshToken, err := useRefreshToken(ctx, refreshToken)
	if err != nil {
		log.Printf("Refresh token error: %v", err)
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired refresh token"})
	}

	accessToken, err := generateAccessToken(user)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error generating access token"})
	}

	if strings.HasPrefix(authHeader, "Bearer ") {
		return c.JSON(http.StatusOK, AuthResponse{
			AccessToken:  accessToken,
			RefreshToken: newRefreshToken,
			TokenType:    "Bearer",
			ExpiresIn:    int64(AccessTokenDuration.Seconds()),
			User:         toUserResponse(user),
		})
	}

	setAuthCookies(c, accessToken, newRefreshToken)
	return c.JSON(http.StatusOK, map[string]string{"message": "Token refreshed"})
}

// ProfileHandler returns the signed-in user. Runs behind JwtAuthMiddleware,
// which has already loaded the user row into the context.
func ProfileHandler(c echo.Context) error {
	user, ok := c.Get("user").(*database.User)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Not authenticated"})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    toUserResponse(user),
	})
}

// LogoutHandler revokes every refresh token for the user and clears cookies.
func LogoutHandler(c echo.Context) error {
	ctx := c.Request().Context()

	userID, ok := c.Get("user_id").(string)
	if ok && userID != "" {
		if err := queries.RevokeAllUserRefreshTokens(ctx, userID); err != nil {
			log.Printf("Error revoking tokens: %v", err)
		}
	}

	clearAuthCookies(c)

	if strings.HasPrefix(c.Request().Header.Get("Authorization"), "Bearer ") {
		return c.JSON(http.StatusOK, map[string]string{"message": "Logged out successfully"})
	}
	return c.Redirect(http.StatusTemporaryRedirect, "/login")
}

// JwtAuthMiddleware requires a valid access token.
func JwtAuthMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, isBearer, err := claimsFromRequest(c)
		if err != nil {
			if isBearer {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or expired token"})
			}
			return c.Redirect(http.StatusTemporaryRedirect, "/login")
		}

		user, err := queries.GetUserByID(c.Request().Context(), claims.UserID)
		if err != nil {
			log.Printf("Error fetching user: %v", err)
			if isBearer {
				return c.JSON(http.StatusUnauthorized, map[string]string{"error": "User not found"})
			}
			return c.Redirect(http.StatusTemporaryRedirect, "/login")
		}

		c.Set("user", &user)
		c.Set("user_id", claims.UserID)
		return next(c)
	}
}

// OptionalJwtMiddleware identifies the caller when a valid token is present
// and lets anonymous requests through untouched. Search endpoints use it so
// the usage ledger can tell the two apart.
func OptionalJwtMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		claims, _, err := claimsFromRequest(c)
		if err == nil {
			c.Set("user_id", claims.UserID)
		}
		return next(c)
	}
}

// Helper functions

func claimsFromRequest(c echo.Context) (*JwtCustomClaims, bool, error) {
	var tokenString string
	isBearer := false

	authHeader := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		tokenString = strings.TrimPrefix(authHeader, "Bearer ")
		isBearer = true
	} else {
		cookie, err := c.Cookie("access-token")
		if err != nil {
			return nil, false, fmt.Errorf("no access token")
		}
		tokenString = cookie.Value
	}

	sessionSecret := os.Getenv("SESSION_SECRET")
	token, err := jwt.ParseWithClaims(tokenString, &JwtCustomClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(sessionSecret), nil
	})
	if err != nil || !token.Valid {
		return nil, isBearer, fmt.Errorf("token validation failed: %w", err)
	}

	claims, ok := token.Claims.(*JwtCustomClaims)
	if !ok || claims.UserID == "" {
		return nil, isBearer, fmt.Errorf("malformed claims")
	}
	return claims, isBearer, nil
}

func toUserResponse(user *database.User) UserResponse {
	return UserResponse{
		UserID:        user.UserID,
		Email:         user.Email,
		DisplayName:   user.DisplayName.String,
		AvatarURL:     user.AvatarURL.String,
		EmailVerified: user.EmailVerified,
	}
}

func issueTokens(c echo.Context, user *database.User, message string) error {
	ctx := c.Request().Context()

	accessToken, err := generateAccessToken(user)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error generating access token"})
	}
	refreshToken, err := generateAndStoreRefreshToken(ctx, user.UserID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error generating refresh token"})
	}

	response := AuthResponse{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int64(AccessTokenDuration.Seconds()),
		User:         toUserResponse(user),
	}

	if c.Request().Header.Get("X-Platform") == "mobile" {
		return c.JSON(http.StatusOK, response)
	}

	setAuthCookies(c, accessToken, refreshToken)
	return c.JSON(http.StatusOK, map[string]interface{}{
		"message": message,
		"user":    response.User,
	})
}

func generateAccessToken(user *database.User) (string, error) {
	claims := &JwtCustomClaims{
		UserID: user.UserID,
		Email:  user.Email,
		Name:   user.DisplayName.String,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(AccessTokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Issuer:    "pharmagift",
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	sessionSecret := os.Getenv("SESSION_SECRET")
	return token.SignedString([]byte(sessionSecret))
}

func generateAndStoreRefreshToken(ctx context.Context, userID string) (string, error) {
	tokenBytes := make([]byte, 32)
	if _, err := rand.Read(tokenBytes); err != nil {
		return "", err
	}
	token := base64.URLEncoding.EncodeToString(tokenBytes)

	hash := sha256.Sum256([]byte(token))
	tokenHash := base64.URLEncoding.EncodeToString(hash[:])

	_, err := queries.CreateRefreshToken(ctx, database.CreateRefreshTokenParams{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: pgtype.Timestamptz{Time: time.Now().Add(RefreshTokenDuration), Valid: true},
	})
	if err != nil {
		log.Printf("Database error creating refresh token for user %s: %v", userID, err)
		return "", err
	}

	return token, nil
}

func useRefreshToken(ctx context.Context, token string) (*database.User, string, error) {
	hash := sha256.Sum256([]byte(token))
	tokenHash := base64.URLEncoding.EncodeToString(hash[:])

	rt, err := queries.GetRefreshTokenByHash(ctx, tokenHash)
	if err != nil {
		return nil, "", fmt.Errorf("invalid refresh token")
	}

	user, err := queries.GetUserByID(ctx, rt.UserID)
	if err != nil {
		return nil, "", fmt.Errorf("user not found")
	}

	newToken, err := generateAndStoreRefreshToken(ctx, rt.UserID)
	if err != nil {
		return nil, "", err
	}

	if err := queries.RevokeRefreshToken(ctx, rt.ID); err != nil {
		log.Printf("Warning: failed to revoke old refresh token: %v", err)
	}

	return &user, newToken, nil
}

func setAuthCookies(c echo.Context, accessToken, refreshToken string) {
	isProd := os.Getenv("APP_ENV") == "production"

	accessCookie := new(http.Cookie)
	accessCookie.Name = "access-token"
	accessCookie.Value = accessToken
	accessCookie.Expires = time.Now().Add(AccessTokenDuration)
	accessCookie.Path = "/"
	accessCookie.HttpOnly = true
	accessCookie.Secure = isProd
	accessCookie.SameSite = http.SameSiteLaxMode
	c.SetCookie(accessCookie)

	refreshCookie := new(http.Cookie)
	refreshCookie.Name = "refresh-token"
	refreshCookie.Value = refreshToken
	refreshCookie.Expires = time.Now().Add(RefreshTokenDuration)
	refreshCookie.Path = "/"
	refreshCookie.HttpOnly = true
	refreshCookie.Secure = isProd
	refreshCookie.SameSite = http.SameSiteLaxMode
	c.SetCookie(refreshCookie)
}

func clearAuthCookies(c echo.Context) {
	isProd := os.Getenv("APP_ENV") == "production"

	for _, name := range []string{"access-token", "refresh-token"} {
		cookie := new(http.Cookie)
		cookie.Name = name
		cookie.Value = ""
		cookie.Expires = time.Unix(0, 0)
		cookie.MaxAge = -1
		cookie.Path = "/"
		cookie.HttpOnly = true
		cookie.Secure = isProd
		cookie.SameSite = http.SameSiteLaxMode
		c.SetCookie(cookie)
	}
}

// email verification

func verifyEmailAddress(email string) (bool, string, error) {
	ret, err := verifier.Verify(email)
	if err != nil {
		return false, "Email verification failed due to a system error. Please try again.", err
	}

	if !ret.Syntax.Valid {
		return false, "Invalid email address format.", nil
	}
	if ret.Disposable {
		return false, "Disposable email addresses are not allowed.", nil
	}
	if ret.Reachable == "false" || ret.Reachable == "invalid" {
		return false, "This email address cannot be reached.", nil
	}
	if ret.RoleAccount {
		log.Printf("Warning: role account detected: %s", email)
	}

	return true, "", nil
}

func verifyEmailAddressWithCache(email string) (bool, string, error) {
	if cached, ok := emailCache.Get(email); ok {
		if time.Since(cached.timestamp) < 24*time.Hour {
			return cached.valid, cached.message, nil
		}
	}

	valid, message, err := verifyEmailAddress(email)
	if err == nil {
		emailCache.Add(email, emailVerificationResult{
			valid:     valid,
			message:   message,
			timestamp: time.Now(),
		})
	}

	return valid, message, err
}

// OTP

func generateAndStoreOTP(userID, email string) error {
	otpMutex.Lock()
	defer otpMutex.Unlock()

	if val, ok := otpStore.Load(userID); ok {
		entry := val.(OtpEntry)
		if time.Since(entry.GeneratedAt) < OtpResendCooldown {
			return fmt.Errorf("please wait %d seconds before requesting a new code",
				int(OtpResendCooldown.Seconds()-time.Since(entry.GeneratedAt).Seconds()))
		}
	}

	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      "PharmaGift",
		AccountName: email,
		Period:      uint(OtpExpiryDuration.Seconds()),
		SecretSize:  32,
		Digits:      6,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return fmt.Errorf("failed to generate TOTP secret: %w", err)
	}

	otpCode, err := totp.GenerateCode(key.Secret(), time.Now())
	if err != nil {
		return fmt.Errorf("failed to generate OTP code: %w", err)
	}

	otpStore.Store(userID, OtpEntry{
		UserID:      userID,
		Email:       email,
		Secret:      key.Secret(),
		GeneratedAt: time.Now(),
		Attempts:    0,
	})

	if err := sendOTPEmail(email, otpCode); err != nil {
		otpStore.Delete(userID)
		return fmt.Errorf("failed to send OTP email: %w", err)
	}

	log.Printf("OTP generated and sent to %s", email)
	return nil
}

func sendOTPEmail(toEmail, otpCode string) error {
	smtpHost := os.Getenv("SMTP_HOST")
	smtpPortStr := os.Getenv("SMTP_PORT")
	smtpUser := os.Getenv("SMTP_USER")
	smtpPass := os.Getenv("SMTP_PASS")
	smtpFrom := os.Getenv("SMTP_FROM")

	if smtpHost == "" || smtpUser == "" || smtpPass == "" {
		return fmt.Errorf("SMTP configuration missing")
	}
	if smtpFrom == "" {
		smtpFrom = smtpUser
	}

	port, err := strconv.Atoi(smtpPortStr)
	if err != nil {
		port = 587
	}

	body := fmt.Sprintf(`
		<html>
		<body style="font-family: Arial, sans-serif; line-height: 1.6;">
			<h2>Welcome to PharmaGift!</h2>
			<p>Thank you for signing up. Use the following code to verify your account:</p>
			<div style="background: #f4f4f4; padding: 15px; text-align: center; font-size: 24px; letter-spacing: 5px; font-weight: bold; margin: 20px 0;">
				%s
			</div>
			<p><strong>This code is valid for 5 minutes.</strong></p>
			<p>If you did not sign up, you can safely ignore this email.</p>
			<hr>
			<p style="color: #666; font-size: 12px;">Automated email from PharmaGift</p>
		</body>
		</html>
	`, otpCode)

	m := gomail.NewMessage()
	m.SetHeader("From", smtpFrom)
	m.SetHeader("To", toEmail)
	m.SetHeader("Subject", "PharmaGift Account Verification Code")
	m.SetBody("text/html", body)

	d := gomail.NewDialer(smtpHost, port, smtpUser, smtpPass)
	errChan := make(chan error, 1)
	go func() {
		errChan <- d.DialAndSend(m)
	}()

	select {
	case err := <-errChan:
		if err != nil {
			log.Printf("Failed to send OTP email to %s: %v", toEmail, err)
			return err
		}
		return nil
	case <-time.After(15 * time.Second):
		log.Printf("Timeout sending OTP email to %s", toEmail)
		return fmt.Errorf("email sending timeout")
	}
}

func verifyOTPCode(userID, otpCode string) (bool, error) {
	val, ok := otpStore.Load(userID)
	if !ok {
		return false, fmt.Errorf("no OTP found for this user")
	}
	entry := val.(OtpEntry)

	if time.Since(entry.GeneratedAt) > OtpExpiryDuration {
		otpStore.Delete(userID)
		return false, fmt.Errorf("OTP has expired")
	}
	if entry.Attempts >= MaxOtpAttempts {
		otpStore.Delete(userID)
		return false, fmt.Errorf("maximum verification attempts exceeded")
	}

	entry.Attempts++
	entry.LastAttempt = time.Now()
	otpStore.Store(userID, entry)

	if totp.Validate(otpCode, entry.Secret) {
		otpStore.Delete(userID)
		return true, nil
	}
	return false, nil
}

func cleanupExpiredOTPs() {
	otpStore.Range(func(key, value interface{}) bool {
		entry := value.(OtpEntry)
		if time.Since(entry.GeneratedAt) > OtpExpiryDuration {
			otpStore.Delete(key)
		}
		return true
	})
}

func startOTPCleanup() {
	ticker := time.NewTicker(1 * time.Minute)
	go func() {
		for range ticker.C {
			cleanupExpiredOTPs()
		}
	}()
}
