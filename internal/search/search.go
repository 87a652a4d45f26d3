package search

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"pharmagift/internal/geminiservice"
	"pharmagift/internal/ledger"
	"pharmagift/internal/utility"
)

// GiftGenerator is the slice of the recommendation pipeline the HTTP layer
// needs. The concrete implementation is geminiservice.Client.
type GiftGenerator interface {
	GenerateGiftRecommendations(ctx context.Context, query string) ([]geminiservice.GiftRecommendation, error)
	AnalyzeProductForQuote(ctx context.Context, imageBase64, description string) (*geminiservice.ProductQuote, error)
}

type Handler struct {
	generator GiftGenerator
	tracker   *ledger.Tracker
	log       zerolog.Logger
	startedAt time.Time
}

func NewHandler(generator GiftGenerator, tracker *ledger.Tracker, log zerolog.Logger) *Handler {
	return &Handler{
		generator: generator,
		tracker:   tracker,
		log:       log,
		startedAt: time.Now(),
	}
}

type GiftSearchRequest struct {
	Query string `json:"query" form:"query" validate:"required,max=500"`
}

type QuoteRequest struct {
	ImageBase64 string `json:"image_base64" form:"image_base64"`
	Description string `json:"description" form:"description" validate:"omitempty,max=1000"`
}

// GiftSearchHandler runs the gift recommendation pipeline. Anonymous
// visitors get one search per IP; signed-in users are unlimited.
func (h *Handler) GiftSearchHandler(c echo.Context) error {
	ctx := c.Request().Context()

	var req GiftSearchRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "A search query of at most 500 characters is required"})
	}

	userID, _ := utility.GetUserIDFromContext(c)
	clientIP := utility.GetRealIP(c)

	if !h.tracker.CanSearch(ctx, userID, clientIP) {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":         "Free search limit reached. Please sign in to continue searching.",
			"requires_auth": true,
		})
	}

	recommendations, err := h.generator.GenerateGiftRecommendations(ctx, req.Query)
	if err != nil {
		return h.pipelineErrorResponse(c, err)
	}

	if rec := h.tracker.Record(ctx, userID, clientIP, "gift", req.Query); rec != nil {
		utility.BroadcastSearchEvent(utility.SearchEvent{
			SearchType: "gift",
			Query:      req.Query,
			ClientIP:   clientIP,
			Anonymous:  userID == "",
			OccurredAt: time.Now(),
		})
	}

	h.log.Info().
		Str("client_ip", clientIP).
		Bool("anonymous", userID == "").
		Int("results", len(recommendations)).
		Msg("Gift search completed")

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    recommendations,
	})
}

// QuoteHandler runs the product quote pipeline against an uploaded image,
// a text description, or both.
func (h *Handler) QuoteHandler(c echo.Context) error {
	ctx := c.Request().Context()

	var req QuoteRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Description must be at most 1000 characters"})
	}

	userID, _ := utility.GetUserIDFromContext(c)
	clientIP := utility.GetRealIP(c)

	if !h.tracker.CanSearch(ctx, userID, clientIP) {
		return c.JSON(http.StatusUnauthorized, map[string]interface{}{
			"error":         "Free search limit reached. Please sign in to continue searching.",
			"requires_auth": true,
		})
	}

	quote, err := h.generator.AnalyzeProductForQuote(ctx, req.ImageBase64, req.Description)
	if err != nil {
		return h.pipelineErrorResponse(c, err)
	}

	if rec := h.tracker.Record(ctx, userID, clientIP, "quote", req.Description); rec != nil {
		utility.BroadcastSearchEvent(utility.SearchEvent{
			SearchType: "quote",
			Query:      req.Description,
			ClientIP:   clientIP,
			Anonymous:  userID == "",
			OccurredAt: time.Now(),
		})
	}

	h.log.Info().
		Str("client_ip", clientIP).
		Bool("anonymous", userID == "").
		Str("product", quote.ProductName).
		Msg("Product quote completed")

	return c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    quote,
	})
}

// StatusHandler reports remaining quota for the caller alongside basic
// service info, gathering the pieces concurrently.
func (h *Handler) StatusHandler(c echo.Context) error {
	ctx := c.Request().Context()

	userID, _ := utility.GetUserIDFromContext(c)
	clientIP := utility.GetRealIP(c)

	var (
		canSearch   bool
		searchCount int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		canSearch = h.tracker.CanSearch(gctx, userID, clientIP)
		return nil
	})
	g.Go(func() error {
		searchCount = h.tracker.SearchCount(gctx, userID)
		return nil
	})

	status := map[string]interface{}{
		"service":    "pharmagift",
		"uptime":     time.Since(h.startedAt).Round(time.Second).String(),
		"goroutines": runtime.NumGoroutine(),
	}
	if err := g.Wait(); err != nil {
		h.log.Warn().Err(err).Msg("Status gather failed")
	}

	status["authenticated"] = userID != ""
	status["can_search"] = canSearch
	status["search_count"] = searchCount

	return c.JSON(http.StatusOK, status)
}

// pipelineErrorResponse maps pipeline error kinds onto HTTP statuses.
func (h *Handler) pipelineErrorResponse(c echo.Context, err error) error {
	kind := geminiservice.KindOf(err)
	h.log.Error().Err(err).Stringer("kind", kind).Msg("Pipeline request failed")

	switch kind {
	case geminiservice.ErrInput:
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	case geminiservice.ErrConfiguration:
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "Search is temporarily unavailable"})
	case geminiservice.ErrRateLimited:
		return c.JSON(http.StatusTooManyRequests, map[string]string{"error": "The search service is busy. Please try again in a moment."})
	case geminiservice.ErrEmptyCompletion, geminiservice.ErrTransport:
		return c.JSON(http.StatusBadGateway, map[string]string{"error": "The search service returned an unexpected response"})
	default:
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Internal server error"})
	}
}
