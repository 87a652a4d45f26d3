package geminiservice

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// fakeGemini is a scripted generateContent endpoint that records call times.
type fakeGemini struct {
	mu        sync.Mutex
	calls     int
	callTimes []time.Time
	respond   func(calls int, w http.ResponseWriter)
}

func (f *fakeGemini) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.calls++
	n := f.calls
	f.callTimes = append(f.callTimes, time.Now())
	f.mu.Unlock()
	f.respond(n, w)
}

func (f *fakeGemini) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func newTestClient(t *testing.T, fake *fakeGemini) (*Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	return &Client{
		apiKey:         "test-key",
		apiURL:         srv.URL,
		httpClient:     srv.Client(),
		maxAttempts:    maxAttempts,
		initialBackoff: 5 * time.Millisecond,
		log:            zerolog.Nop(),
	}, srv
}

func writeCompletion(w http.ResponseWriter, text string) {
	resp := map[string]interface{}{
		"candidates": []map[string]interface{}{
			{"content": map[string]interface{}{
				"parts": []map[string]string{{"text": text}},
			}},
		},
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp)
}

const validGiftArray = `[
  {"title":"Conference Speaker Gift Set","description":"d","category":"Conference Gifts","priceRange":"₹2,000-4,500","rating":4.4,"features":["a"],"suitableFor":["Cardiologists"],"availability":"Pan-India","imageUrl":"https://example.com/1.jpg"},
  {"title":"ECG Pocket Guide","description":"d","category":"Educational Materials","priceRange":"₹1,200-2,000","rating":4.2,"features":["a"],"suitableFor":["Medical Students"],"availability":"Pan-India","imageUrl":"https://example.com/2.jpg"},
  {"title":"Wellness Hamper","description":"d","category":"Wellness","priceRange":"₹3,000-5,000","rating":4.6,"features":["a"],"suitableFor":["Hospital Staff"],"availability":"Metro cities","imageUrl":"https://example.com/3.jpg"},
  {"title":"Smart Water Bottle","description":"d","category":"Technology","priceRange":"₹1,500-2,800","rating":4.1,"features":["a"],"suitableFor":["Sales Teams"],"availability":"Pan-India","imageUrl":"https://example.com/4.jpg"}
]`

// Missing API key must reject before any network call is made.
func TestMissingAPIKeyMakesNoCalls(t *testing.T) {
	fake := &fakeGemini{respond: func(_ int, w http.ResponseWriter) { writeCompletion(w, validGiftArray) }}
	client, _ := newTestClient(t, fake)
	client.apiKey = ""

	_, err := client.GenerateGiftRecommendations(context.Background(), "gifts for cardiology conference")
	if KindOf(err) != ErrConfiguration {
		t.Fatalf("expected ErrConfiguration, got %v", err)
	}
	if fake.callCount() != 0 {
		t.Fatalf("expected zero network calls, got %d", fake.callCount())
	}
}

// Empty queries reject before any network call.
func TestEmptyQueryMakesNoCalls(t *testing.T) {
	fake := &fakeGemini{respond: func(_ int, w http.ResponseWriter) { writeCompletion(w, validGiftArray) }}
	client, _ := newTestClient(t, fake)

	_, err := client.GenerateGiftRecommendations(context.Background(), "   \t ")
	if KindOf(err) != ErrInput {
		t.Fatalf("expected ErrInput, got %v", err)
	}
	if fake.callCount() != 0 {
		t.Fatalf("expected zero network calls, got %d", fake.callCount())
	}
}

func TestQuoteRequiresImageOrDescription(t *testing.T) {
	fake := &fakeGemini{respond: func(_ int, w http.ResponseWriter) { writeCompletion(w, "{}") }}
	client, _ := newTestClient(t, fake)

	_, err := client.AnalyzeProductForQuote(context.Background(), "", "  ")
	if KindOf(err) != ErrInput {
		t.Fatalf("expected ErrInput, got %v", err)
	}
	if fake.callCount() != 0 {
		t.Fatalf("expected zero network calls, got %d", fake.callCount())
	}
}

// Three 429s then success: the pipeline retries with growing backoff and
// succeeds on the fourth call.
func TestRateLimitRetriesThenSucceeds(t *testing.T) {
	fake := &fakeGemini{respond: func(calls int, w http.ResponseWriter) {
		if calls <= 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
			return
		}
		writeCompletion(w, validGiftArray)
	}}
	client, _ := newTestClient(t, fake)
	client.initialBackoff = 25 * time.Millisecond

	got, err := client.GenerateGiftRecommendations(context.Background(), "gifts for cardiology conference")
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if fake.callCount() != 4 {
		t.Fatalf("expected exactly 4 network calls, got %d", fake.callCount())
	}
	if len(got) != 4 {
		t.Fatalf("expected 4 recommendations, got %d", len(got))
	}

	// Delays between retries must grow (1x, 2x, 4x the initial backoff).
	gaps := make([]time.Duration, 0, 3)
	for i := 1; i < len(fake.callTimes); i++ {
		gaps = append(gaps, fake.callTimes[i].Sub(fake.callTimes[i-1]))
	}
	for i := 1; i < len(gaps); i++ {
		if gaps[i] <= gaps[i-1] {
			t.Fatalf("expected increasing backoff, got gaps %v", gaps)
		}
	}
}

func TestRateLimitExhaustionSurfacesError(t *testing.T) {
	fake := &fakeGemini{respond: func(_ int, w http.ResponseWriter) {
		w.WriteHeader(http.StatusTooManyRequests)
	}}
	client, _ := newTestClient(t, fake)

	_, err := client.GenerateGiftRecommendations(context.Background(), "anything")
	if KindOf(err) != ErrRateLimited {
		t.Fatalf("expected ErrRateLimited, got %v", err)
	}
	if fake.callCount() != maxAttempts {
		t.Fatalf("expected %d attempts, got %d", maxAttempts, fake.callCount())
	}
}

// Non-429 failures are terminal on the first response, carrying the server
// message through.
func TestTransportErrorNotRetried(t *testing.T) {
	fake := &fakeGemini{respond: func(_ int, w http.ResponseWriter) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"error":{"message":"backend unavailable"}}`))
	}}
	client, _ := newTestClient(t, fake)

	_, err := client.GenerateGiftRecommendations(context.Background(), "anything")
	if KindOf(err) != ErrTransport {
		t.Fatalf("expected ErrTransport, got %v", err)
	}
	if fake.callCount() != 1 {
		t.Fatalf("expected exactly 1 call, got %d", fake.callCount())
	}
	var pe *PipelineError
	if !errors.As(err, &pe) || pe.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected status 500 in error, got %v", err)
	}
	if pe.Message != "backend unavailable" {
		t.Fatalf("expected server message to propagate, got %q", pe.Message)
	}
}

// A 2xx reply with no candidates is an EmptyCompletion, never a ParseError.
func TestEmptyCandidatesIsEmptyCompletion(t *testing.T) {
	fake := &fakeGemini{respond: func(_ int, w http.ResponseWriter) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"candidates":[]}`))
	}}
	client, _ := newTestClient(t, fake)

	_, err := client.GenerateGiftRecommendations(context.Background(), "anything")
	if KindOf(err) != ErrEmptyCompletion {
		t.Fatalf("expected ErrEmptyCompletion, got %v", err)
	}
}

// A reply with no brackets falls back to the fixed list instead of erroring.
func TestUnparsableReplyServesFallback(t *testing.T) {
	fake := &fakeGemini{respond: func(_ int, w http.ResponseWriter) {
		writeCompletion(w, "I cannot help with that.")
	}}
	client, _ := newTestClient(t, fake)

	got, err := client.GenerateGiftRecommendations(context.Background(), "anything")
	if err != nil {
		t.Fatalf("expected fallback, got error: %v", err)
	}
	want := FallbackGiftRecommendations()
	if len(got) != len(want) || got[0].Title != want[0].Title {
		t.Fatalf("expected the fallback list, got %+v", got)
	}
}

func TestGiftSearchScenario(t *testing.T) {
	fake := &fakeGemini{respond: func(_ int, w http.ResponseWriter) {
		writeCompletion(w, "```json\n"+validGiftArray+"\n```")
	}}
	client, _ := newTestClient(t, fake)

	got, err := client.GenerateGiftRecommendations(context.Background(), "gifts for cardiology conference")
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if len(got) != maxGiftResults {
		t.Fatalf("expected %d recommendations, got %d", maxGiftResults, len(got))
	}

	pricePattern := regexp.MustCompile(`^₹[\d,]+-[\d,]+$`)
	for i, rec := range got {
		if rec.Title == "" {
			t.Errorf("recommendation %d has empty title", i)
		}
		if !pricePattern.MatchString(rec.PriceRange) {
			t.Errorf("recommendation %d price range %q does not match INR range format", i, rec.PriceRange)
		}
		if rec.Rating < 1 || rec.Rating > 5 {
			t.Errorf("recommendation %d rating %v out of range", i, rec.Rating)
		}
	}
}

func TestProductQuoteScenario(t *testing.T) {
	fake := &fakeGemini{respond: func(_ int, w http.ResponseWriter) {
		writeCompletion(w, `{"productName":"Digital Stethoscope","suggestedPrice":"₹4,500-6,200","marketComparison":"5% below market","confidence":91,"recommendations":["r1"],"category":"Medical Equipment","features":["f1"],"competitorPrices":["c1"]}`)
	}}
	client, _ := newTestClient(t, fake)

	got, err := client.AnalyzeProductForQuote(context.Background(), "", "digital stethoscope")
	if err != nil {
		t.Fatalf("pipeline failed: %v", err)
	}
	if got.Confidence < 1 || got.Confidence > 100 {
		t.Fatalf("confidence %d out of range", got.Confidence)
	}
	if got.SuggestedPrice == "" {
		t.Fatal("suggested price is empty")
	}
}

func TestCancellationStopsRetryLoop(t *testing.T) {
	fake := &fakeGemini{respond: func(_ int, w http.ResponseWriter) {
		w.WriteHeader(http.StatusTooManyRequests)
	}}
	client, _ := newTestClient(t, fake)
	client.initialBackoff = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		_, err := client.GenerateGiftRecommendations(ctx, "anything")
		done <- err
	}()

	time.Sleep(20 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not honor cancellation")
	}
}

func TestStripDataURLPrefix(t *testing.T) {
	if got := stripDataURLPrefix("data:image/jpeg;base64,AAAA"); got != "AAAA" {
		t.Fatalf("prefix not stripped: %q", got)
	}
	if got := stripDataURLPrefix("AAAA"); got != "AAAA" {
		t.Fatalf("bare payload changed: %q", got)
	}
}
