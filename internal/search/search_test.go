package search

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"

	"pharmagift/internal/database"
	"pharmagift/internal/geminiservice"
	"pharmagift/internal/ledger"
)

type stubGenerator struct {
	gifts []geminiservice.GiftRecommendation
	quote *geminiservice.ProductQuote
	err   error
	calls int
}

func (s *stubGenerator) GenerateGiftRecommendations(_ context.Context, _ string) ([]geminiservice.GiftRecommendation, error) {
	s.calls++
	return s.gifts, s.err
}

func (s *stubGenerator) AnalyzeProductForQuote(_ context.Context, _, _ string) (*geminiservice.ProductQuote, error) {
	s.calls++
	return s.quote, s.err
}

type memStore struct {
	records []database.RecordSearchParams
}

func (m *memStore) CountSearchesByIP(_ context.Context, clientIP string) (int64, error) {
	var n int64
	for _, r := range m.records {
		if r.ClientIP == clientIP && !r.UserID.Valid {
			n++
		}
	}
	return n, nil
}

func (m *memStore) CountSearchesByUser(_ context.Context, userID string) (int64, error) {
	var n int64
	for _, r := range m.records {
		if r.UserID.Valid && r.UserID.String == userID {
			n++
		}
	}
	return n, nil
}

func (m *memStore) RecordSearch(_ context.Context, arg database.RecordSearchParams) (database.SearchRecord, error) {
	m.records = append(m.records, arg)
	return database.SearchRecord{ClientIP: arg.ClientIP, SearchType: arg.SearchType}, nil
}

type testValidator struct {
	v *validator.Validate
}

func (t *testValidator) Validate(i interface{}) error {
	return t.v.Struct(i)
}

func newTestHandler(gen GiftGenerator, store ledger.Store) *Handler {
	return NewHandler(gen, ledger.NewTracker(store, zerolog.Nop()), zerolog.Nop())
}

func doRequest(t *testing.T, h echo.HandlerFunc, method, path, body, userID string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	e.Validator = &testValidator{v: validator.New()}

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.RemoteAddr = "203.0.113.7:51234"
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	if userID != "" {
		c.Set("user_id", userID)
	}
	if err := h(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func TestGiftSearchResponseShape(t *testing.T) {
	gen := &stubGenerator{gifts: geminiservice.FallbackGiftRecommendations()}
	h := newTestHandler(gen, &memStore{})

	rec := doRequest(t, h.GiftSearchHandler, http.MethodPost, "/api/search/gifts", `{"query":"conference gifts"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool                               `json:"success"`
		Data    []geminiservice.GiftRecommendation `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if !resp.Success || len(resp.Data) == 0 {
		t.Fatalf("unexpected response: %s", rec.Body.String())
	}
}

func TestAnonymousSecondSearchRequiresAuth(t *testing.T) {
	gen := &stubGenerator{gifts: geminiservice.FallbackGiftRecommendations()}
	store := &memStore{}
	h := newTestHandler(gen, store)

	first := doRequest(t, h.GiftSearchHandler, http.MethodPost, "/api/search/gifts", `{"query":"q"}`, "")
	if first.Code != http.StatusOK {
		t.Fatalf("first search status = %d", first.Code)
	}

	second := doRequest(t, h.GiftSearchHandler, http.MethodPost, "/api/search/gifts", `{"query":"q"}`, "")
	if second.Code != http.StatusUnauthorized {
		t.Fatalf("second search status = %d, want 401", second.Code)
	}
	var resp map[string]interface{}
	json.Unmarshal(second.Body.Bytes(), &resp)
	if resp["requires_auth"] != true {
		t.Fatalf("response missing requires_auth flag: %s", second.Body.String())
	}
	if gen.calls != 1 {
		t.Fatalf("blocked request should not reach the pipeline, calls = %d", gen.calls)
	}
}

func TestAuthenticatedUserBypassesQuota(t *testing.T) {
	gen := &stubGenerator{gifts: geminiservice.FallbackGiftRecommendations()}
	h := newTestHandler(gen, &memStore{})

	for i := 0; i < 5; i++ {
		rec := doRequest(t, h.GiftSearchHandler, http.MethodPost, "/api/search/gifts", `{"query":"q"}`, "user-1")
		if rec.Code != http.StatusOK {
			t.Fatalf("authenticated search %d status = %d", i, rec.Code)
		}
	}
}

func TestMissingQueryRejected(t *testing.T) {
	gen := &stubGenerator{}
	h := newTestHandler(gen, &memStore{})

	rec := doRequest(t, h.GiftSearchHandler, http.MethodPost, "/api/search/gifts", `{}`, "")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if gen.calls != 0 {
		t.Fatal("invalid request should not reach the pipeline")
	}
}

func TestRateLimitedPipelineMapsTo429(t *testing.T) {
	gen := &stubGenerator{err: &geminiservice.PipelineError{Kind: geminiservice.ErrRateLimited, Message: "quota exceeded"}}
	store := &memStore{}
	h := newTestHandler(gen, store)

	rec := doRequest(t, h.GiftSearchHandler, http.MethodPost, "/api/search/gifts", `{"query":"q"}`, "")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if len(store.records) != 0 {
		t.Fatal("failed search should not be recorded against the quota")
	}
}

func TestConfigurationErrorMapsTo503(t *testing.T) {
	gen := &stubGenerator{err: &geminiservice.PipelineError{Kind: geminiservice.ErrConfiguration, Message: "missing API key"}}
	h := newTestHandler(gen, &memStore{})

	rec := doRequest(t, h.GiftSearchHandler, http.MethodPost, "/api/search/gifts", `{"query":"q"}`, "")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
}

func TestQuoteResponseShape(t *testing.T) {
	gen := &stubGenerator{quote: geminiservice.FallbackProductQuote()}
	h := newTestHandler(gen, &memStore{})

	rec := doRequest(t, h.QuoteHandler, http.MethodPost, "/api/search/quote", `{"description":"digital stethoscope"}`, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		Success bool                        `json:"success"`
		Data    *geminiservice.ProductQuote `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if !resp.Success || resp.Data == nil || resp.Data.ProductName == "" {
		t.Fatalf("unexpected response: %s", rec.Body.String())
	}
}

func TestQuoteConsumesAnonymousQuota(t *testing.T) {
	gen := &stubGenerator{
		gifts: geminiservice.FallbackGiftRecommendations(),
		quote: geminiservice.FallbackProductQuote(),
	}
	store := &memStore{}
	h := newTestHandler(gen, store)

	doRequest(t, h.QuoteHandler, http.MethodPost, "/api/search/quote", `{"description":"d"}`, "")
	rec := doRequest(t, h.GiftSearchHandler, http.MethodPost, "/api/search/gifts", `{"query":"q"}`, "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("gift and quote searches should share the quota, status = %d", rec.Code)
	}
}

func TestStatusReportsQuota(t *testing.T) {
	gen := &stubGenerator{gifts: geminiservice.FallbackGiftRecommendations()}
	store := &memStore{}
	h := newTestHandler(gen, store)

	rec := doRequest(t, h.StatusHandler, http.MethodGet, "/api/search/status", "", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("bad response JSON: %v", err)
	}
	if resp["can_search"] != true || resp["authenticated"] != false {
		t.Fatalf("unexpected status payload: %s", rec.Body.String())
	}

	doRequest(t, h.GiftSearchHandler, http.MethodPost, "/api/search/gifts", `{"query":"q"}`, "")

	rec = doRequest(t, h.StatusHandler, http.MethodGet, "/api/search/status", "", "")
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp["can_search"] != false {
		t.Fatalf("quota should be exhausted: %s", rec.Body.String())
	}
}
