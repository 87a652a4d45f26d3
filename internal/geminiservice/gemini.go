package geminiservice

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rs/zerolog"
)

// --- Gemini API Configuration ---
const (
	defaultAPIURL  = "https://generativelanguage.googleapis.com/v1beta/models/gemini-1.5-flash:generateContent"
	maxAttempts    = 4
	initialBackoff = 1 * time.Second
	requestTimeout = 30 * time.Second
)

// --- Structs for Gemini API Request/Response ---
// (These are internal to this package)

type geminiPayload struct {
	Contents         []geminiContent   `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
	SafetySettings   []safetySetting   `json:"safetySettings,omitempty"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	InlineData *inlineData `json:"inline_data,omitempty"`
	Text       string      `json:"text,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type generationConfig struct {
	Temperature     float64 `json:"temperature"`
	TopK            int     `json:"topK"`
	TopP            float64 `json:"topP"`
	MaxOutputTokens int     `json:"maxOutputTokens"`
	CandidateCount  int     `json:"candidateCount"`
}

type safetySetting struct {
	Category  string `json:"category"`
	Threshold string `json:"threshold"`
}

type geminiResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

type geminiAPIError struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Client performs the HTTP calls to the Gemini generateContent endpoint.
// The zero-value fields are filled in by NewClient; tests override apiURL
// and backoff to point at a local fake endpoint.
type Client struct {
	apiKey         string
	apiURL         string
	httpClient     *http.Client
	maxAttempts    int
	initialBackoff time.Duration
	log            zerolog.Logger
}

// NewClient reads GEMINI_API_KEY from the environment. A missing key is not
// an error here; the pipeline fails fast with a ConfigurationError on first use
// so the server can still boot and report the problem per request.
func NewClient(log zerolog.Logger) *Client {
	return &Client{
		apiKey:         os.Getenv("GEMINI_API_KEY"),
		apiURL:         defaultAPIURL,
		httpClient:     &http.Client{Timeout: requestTimeout},
		maxAttempts:    maxAttempts,
		initialBackoff: initialBackoff,
		log:            log,
	}
}

// generate performs the call with bounded retry. Policy: only HTTP 429 is
// retried, with exponential backoff (delay = initial * 2^(attempt-1)); any
// other non-2xx fails immediately with the server message embedded. A 2xx
// reply with no candidate text is a terminal EmptyCompletion failure.
func (c *Client) generate(ctx context.Context, parts []geminiPart, cfg *generationConfig) (string, error) {
	if c.apiKey == "" {
		c.log.Error().Msg("GEMINI_API_KEY environment variable is not set")
		return "", newPipelineError(ErrConfiguration, "server is not configured for AI recommendations")
	}

	payload := geminiPayload{
		Contents:         []geminiContent{{Parts: parts}},
		GenerationConfig: cfg,
		SafetySettings:   defaultSafetySettings,
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, c.apiURL+"?key="+c.apiKey, bytes.NewReader(payloadBytes))
		if err != nil {
			cancel()
			return "", fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		c.log.Info().Int("attempt", attempt).Msg("Calling Gemini API")

		resp, err := c.httpClient.Do(req)
		if err != nil {
			cancel()
			if ctx.Err() != nil {
				return "", ctx.Err()
			}
			return "", &PipelineError{Kind: ErrTransport, Message: fmt.Sprintf("request failed: %v", err)}
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			cancel()

			if attempt == c.maxAttempts {
				return "", &PipelineError{
					Kind:       ErrRateLimited,
					StatusCode: resp.StatusCode,
					Message:    fmt.Sprintf("rate limited after %d attempts: %s", c.maxAttempts, apiErrorMessage(body, resp.Status)),
				}
			}

			delay := c.initialBackoff << (attempt - 1)
			c.log.Warn().Int("attempt", attempt).Dur("backoff", delay).Msg("Rate limited, backing off")
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return "", ctx.Err()
			}
			continue
		}

		if resp.StatusCode < 200 || resp.StatusCode > 299 {
			body, _ := io.ReadAll(resp.Body)
			resp.Body.Close()
			cancel()
			return "", &PipelineError{
				Kind:       ErrTransport,
				StatusCode: resp.StatusCode,
				Message:    apiErrorMessage(body, resp.Status),
			}
		}

		var geminiResp geminiResponse
		err = json.NewDecoder(resp.Body).Decode(&geminiResp)
		resp.Body.Close()
		cancel()
		if err != nil {
			return "", &PipelineError{Kind: ErrTransport, Message: fmt.Sprintf("failed to decode response: %v", err)}
		}

		if len(geminiResp.Candidates) == 0 ||
			len(geminiResp.Candidates[0].Content.Parts) == 0 ||
			strings.TrimSpace(geminiResp.Candidates[0].Content.Parts[0].Text) == "" {
			return "", newPipelineError(ErrEmptyCompletion,
				"no content received from Gemini API; the response may have been blocked by safety filters")
		}

		return geminiResp.Candidates[0].Content.Parts[0].Text, nil
	}

	// Unreachable: the 429 arm returns on the final attempt.
	return "", newPipelineError(ErrRateLimited, "rate limited after %d attempts", c.maxAttempts)
}

// apiErrorMessage pulls the server-provided message out of a Gemini error
// body, falling back to the HTTP status line.
func apiErrorMessage(body []byte, status string) string {
	var apiErr geminiAPIError
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return apiErr.Error.Message
	}
	if len(body) > 0 {
		return fmt.Sprintf("%s - %s", status, string(body))
	}
	return status
}
