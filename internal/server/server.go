/*
Package server implements the application's network transport layer.
It initializes the HTTP server, configures timeouts, and manages
core service dependencies like the database and recommendation pipeline.
*/
package server

import (
	"fmt"
	"net/http"
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"pharmagift/internal/database"
	"pharmagift/internal/geminiservice"
	"pharmagift/internal/ledger"
)

// Server defines the configuration and dependencies for the HTTP service.
type Server struct {
	// port specifies the TCP port the server will listen on.
	port int

	// db provides access to the database service and connection pool.
	db database.Service

	// gemini is the recommendation and quote pipeline.
	gemini *geminiservice.Client

	// tracker gates anonymous searches and records the usage ledger.
	tracker *ledger.Tracker

	// OAuthConfig holds the credentials and endpoints for OAuth2 providers.
	OAuthConfig *oauth2.Config

	// Echo is the underlying web framework instance.
	*echo.Echo
}

// NewServer initializes a new Server instance and returns a configured *http.Server.
// It reads configuration from environment variables and sets production-ready
// network timeouts.
func NewServer() *http.Server {
	// Attempt to parse port from environment; fallback to 8080 if not set or invalid.
	port, err := strconv.Atoi(os.Getenv("PORT"))
	if err != nil || port == 0 {
		port = 8080
	}

	db := database.NewService()

	newApp := &Server{
		port:    port,
		db:      db,
		gemini:  geminiservice.NewClient(log.With().Str("component", "gemini").Logger()),
		tracker: ledger.NewTracker(db.Queries(), log.With().Str("component", "ledger").Logger()),
		OAuthConfig: &oauth2.Config{
			ClientID:     os.Getenv("GOOGLE_CLIENT_ID"),
			ClientSecret: os.Getenv("GOOGLE_CLIENT_SECRET"),
			RedirectURL:  fmt.Sprintf("%s/auth/google/callback", os.Getenv("APP_URL")),
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
	}

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", newApp.port),
		Handler:      newApp.RegisterRoutes(), // Injected from routes.go
		IdleTimeout:  time.Minute,             // Time to wait for the next request on keep-alive connections.
		ReadTimeout:  10 * time.Second,        // Maximum duration for reading the entire request.
		WriteTimeout: 60 * time.Second,        // Generative calls can be slow; leave room for retries.
	}

	return server
}
