package server

import (
	"io"
	"net/http"
	"text/template"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog/log"

	"pharmagift/internal/admin"
	"pharmagift/internal/auth"
	"pharmagift/internal/search"
)

// TemplateRenderer is a custom html/template renderer for Echo framework
type TemplateRenderer struct {
	templates *template.Template
}

// Render renders a template document
func (t *TemplateRenderer) Render(w io.Writer, name string, data interface{}, c echo.Context) error {
	return t.templates.ExecuteTemplate(w, name, data)
}

// CustomValidator wires go-playground/validator into Echo's c.Validate.
type CustomValidator struct {
	validator *validator.Validate
}

func (cv *CustomValidator) Validate(i interface{}) error {
	if err := cv.validator.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return nil
}

func (s *Server) RegisterRoutes() http.Handler {
	e := echo.New()
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Validator = &CustomValidator{validator: validator.New()}

	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:     []string{"https://*", "http://*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS", "PATCH"},
		AllowHeaders:     []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token", "X-Platform"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	e.Static("/static", "web/public")

	renderer := &TemplateRenderer{
		templates: template.Must(template.ParseGlob("web/templates/*.html")),
	}
	e.Renderer = renderer

	e.Use(LoggerMiddleware)

	searchHandler := search.NewHandler(s.gemini, s.tracker, log.With().Str("component", "search").Logger())

	// Public pages
	e.GET("/", s.renderPageHandler("index.html"))
	e.GET("/pricing", s.renderPageHandler("pricing.html"))
	e.GET("/about", s.renderPageHandler("about.html"))
	e.GET("/features", s.renderPageHandler("features.html"))
	e.GET("/login", s.renderPageHandler("login.html"))

	e.GET("/health", s.healthHandler)

	// Auth routes
	e.POST("/signup", auth.SignupHandler)
	e.POST("/login", auth.LoginHandler)
	e.POST("/verify-otp", auth.VerifyOTPHandler)
	e.POST("/resend-otp", auth.ResendOTPHandler)
	e.POST("/auth/refresh", auth.RefreshHandler)
	e.GET("/auth/:provider", auth.ProviderHandler)
	e.GET("/auth/:provider/callback", auth.CallbackHandler)

	// Search routes. Optional auth: anonymous callers get one free search
	// per IP, signed-in callers are identified for the ledger.
	searchGroup := e.Group("/api/search")
	searchGroup.Use(auth.OptionalJwtMiddleware)
	searchGroup.POST("/gifts", searchHandler.GiftSearchHandler)
	searchGroup.POST("/quote", searchHandler.QuoteHandler)
	searchGroup.GET("/status", searchHandler.StatusHandler)

	// Protected routes
	protected := e.Group("")
	protected.Use(auth.JwtAuthMiddleware)
	protected.GET("/profile", auth.ProfileHandler)
	protected.GET("/logout", auth.LogoutHandler)

	// Admin dashboard
	adminGroup := e.Group("/admin")
	adminGroup.Use(auth.JwtAuthMiddleware)
	adminGroup.Use(admin.AdminOnlyMiddleware)
	adminGroup.GET("/health", admin.GetServerHealthHandler)
	adminGroup.GET("/searches", admin.RecentSearchesHandler)
	adminGroup.GET("/ws", admin.AdminWebSocketHandler)

	return e
}

func (s *Server) healthHandler(c echo.Context) error {
	return c.JSON(http.StatusOK, s.db.Health())
}

func (s *Server) renderPageHandler(name string) echo.HandlerFunc {
	return func(c echo.Context) error {
		return c.Render(http.StatusOK, name, nil)
	}
}

func LoggerMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		requestID := c.Request().Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.New().String()
		}
		c.Set("request_id", requestID)
		c.Response().Header().Set("X-Request-ID", requestID)

		logger := log.With().Str("request_id", requestID).Logger()

		c.Set("logger", &logger)

		return next(c)
	}
}
