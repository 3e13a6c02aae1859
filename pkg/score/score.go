// Package score rates the visual quality of a routed diagram snapshot
// by sending it to an OpenAI-compatible vision model.
//
// The client is deliberately forgiving: a transport failure or an
// unparseable model reply degrades to a neutral default score rather
// than failing the pipeline. Only a missing API key is surfaced as an
// error, so the caller can fall back to manual review.
package score

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/wiretidy/wiretidy/pkg/cache"
	"github.com/wiretidy/wiretidy/pkg/errors"
	"github.com/wiretidy/wiretidy/pkg/httputil"
	"github.com/wiretidy/wiretidy/pkg/observability"
)

// DefaultScore is returned when the model's reply cannot be parsed or
// the API call fails after retries.
const DefaultScore = 50

// Defaults for the chat-completions request.
const (
	DefaultBaseURL = "https://api.openai.com/v1"
	DefaultModel   = "gpt-4o"

	evalMaxTokens    = 1000
	clarifyMaxTokens = 50
)

// ErrNoAPIKey is returned when no API key is configured. Callers switch
// to manual scoring instead of treating this as a hard failure.
var ErrNoAPIKey = errors.New(errors.ErrCodeInvalidInput, "no API key configured for visual scoring")

// Mode records how a score was obtained.
type Mode string

const (
	// ModeAPI means the score came from the vision model's evaluation.
	ModeAPI Mode = "api"
	// ModeClarified means the first reply had no parseable score and a
	// follow-up question produced one.
	ModeClarified Mode = "clarified"
	// ModeDefault means the neutral default was substituted.
	ModeDefault Mode = "default"
	// ModeManual means a human entered the score.
	ModeManual Mode = "manual"
)

// Result is one visual-quality evaluation.
type Result struct {
	Score      int    `json:"score" bson:"score"`
	Evaluation string `json:"evaluation,omitempty" bson:"evaluation,omitempty"`
	Mode       Mode   `json:"mode" bson:"mode"`
	Model      string `json:"model,omitempty" bson:"model,omitempty"`
}

// scoreRE matches the score formats the model tends to produce:
// "82/100", "score: 82", "rating: 82".
var scoreRE = regexp.MustCompile(`(?i)\b([0-9]{1,3})\s*/\s*100\b|score[:\s]+([0-9]{1,3})\b|rating[:\s]+([0-9]{1,3})\b`)

// numberRE extracts a bare number from a clarification reply.
var numberRE = regexp.MustCompile(`\b([0-9]{1,3})\b`)

// Options configure a scoring client.
type Options struct {
	// APIKey authenticates against the vision API. Empty means scoring
	// is unavailable and Evaluate returns ErrNoAPIKey.
	APIKey string

	// BaseURL is the API root; defaults to the OpenAI endpoint. Tests
	// and self-hosted gateways override it.
	BaseURL string

	// Model is the vision-capable model name.
	Model string

	// Cache stores results keyed by image hash so re-scoring an
	// unchanged snapshot is free. Nil disables caching.
	Cache cache.Cache
	// Keyer generates cache keys; nil uses the default scheme.
	Keyer cache.Keyer
	// TTL is the cache lifetime for scores.
	TTL time.Duration

	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
}

// Client talks to an OpenAI-compatible chat-completions endpoint with
// vision support. Safe for concurrent use.
type Client struct {
	opts Options
	http *http.Client
}

// NewClient creates a scoring client. Zero-value options get defaults.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Keyer == nil {
		opts.Keyer = cache.NewDefaultKeyer()
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 60 * time.Second}
	}
	return &Client{opts: opts, http: httpClient}
}

// Evaluate scores one snapshot, or the improvement between two when
// before is non-nil. The returned score is always within [0, 100]:
// unparseable or failed evaluations yield the neutral default with
// Mode set accordingly. Only a missing API key is an error.
func (c *Client) Evaluate(ctx context.Context, image, before []byte) (Result, error) {
	if c.opts.APIKey == "" {
		return Result{}, ErrNoAPIKey
	}

	cacheKey := ""
	if c.opts.Cache != nil {
		imageHash := cache.Hash(image)
		if before != nil {
			imageHash += ":" + cache.Hash(before)
		}
		cacheKey = c.opts.Keyer.ScoreKey(imageHash, cache.ScoreKeyOpts{
			Model: c.opts.Model,
			Mode:  string(ModeAPI),
		})
		if data, ok, _ := c.opts.Cache.Get(ctx, cacheKey); ok {
			var cached Result
			if json.Unmarshal(data, &cached) == nil {
				return cached, nil
			}
		}
	}

	result := c.evaluate(ctx, image, before)
	if c.opts.Cache != nil && result.Mode != ModeDefault {
		if data, err := json.Marshal(result); err == nil {
			_ = c.opts.Cache.Set(ctx, cacheKey, data, c.opts.TTL)
		}
	}
	return result, nil
}

func (c *Client) evaluate(ctx context.Context, image, before []byte) Result {
	prompt := buildPrompt(before != nil)

	content := []messagePart{{Type: "text", Text: prompt}}
	content = append(content, imagePart(image))
	if before != nil {
		content = append(content, imagePart(before))
	}

	reply, err := c.complete(ctx, chatRequest{
		Model:     c.opts.Model,
		MaxTokens: evalMaxTokens,
		Messages:  []message{{Role: "user", Content: content}},
	})
	if err != nil {
		return Result{Score: DefaultScore, Mode: ModeDefault, Model: c.opts.Model}
	}

	if score, ok := extractScore(reply); ok {
		return Result{Score: score, Evaluation: reply, Mode: ModeAPI, Model: c.opts.Model}
	}

	// The model evaluated but never named a number: ask it directly.
	clarified, err := c.complete(ctx, chatRequest{
		Model:     c.opts.Model,
		MaxTokens: clarifyMaxTokens,
		Messages: []message{
			{Role: "user", Content: []messagePart{{Type: "text", Text: prompt}}},
			{Role: "assistant", Content: reply},
			{Role: "user", Content: []messagePart{{
				Type: "text",
				Text: "Reply with only the numeric score between 0 and 100.",
			}}},
		},
	})
	if err == nil {
		if m := numberRE.FindStringSubmatch(clarified); m != nil {
			if score, err := strconv.Atoi(m[1]); err == nil && score >= 0 && score <= 100 {
				return Result{Score: score, Evaluation: reply, Mode: ModeClarified, Model: c.opts.Model}
			}
		}
	}

	return Result{Score: DefaultScore, Evaluation: reply, Mode: ModeDefault, Model: c.opts.Model}
}

// Manual wraps a human-entered score in a Result, clamping to [0, 100].
func Manual(score int) Result {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	return Result{Score: score, Mode: ModeManual}
}

// buildPrompt states the routing principles the model should judge by.
// The two-image variant asks for an improvement score instead of an
// absolute one.
func buildPrompt(comparison bool) string {
	var b bytes.Buffer
	if comparison {
		b.WriteString("These images show a block diagram's wiring before and after re-layout. " +
			"Evaluate the improvement against the principles and rules below and suggest further refinements.\n\n")
	} else {
		b.WriteString("This image shows a block diagram's wiring. " +
			"Evaluate the wiring quality against the principles and rules below.\n\n")
	}

	b.WriteString("Routing principles:\n")
	b.WriteString("1. Keep wires as straight as possible, preferring vertical and horizontal runs\n")
	b.WriteString("2. Minimize wire crossings\n")
	b.WriteString("3. Spread closely spaced wires apart vertically and horizontally\n")
	b.WriteString("4. Aim for a clean, well-organized overall layout\n")
	b.WriteString("5. Adjust one subsystem at a time rather than the whole model at once\n\n")

	b.WriteString("Hard rules:\n")
	b.WriteString("- Tidy the wiring without deleting existing lines\n")
	b.WriteString("- Move closely spaced lines apart to avoid overlaps\n")
	b.WriteString("- Keep each line's vertical and horizontal alignment while improving clarity\n")
	b.WriteString("- Never change the original connections; start and end points are preserved\n")
	b.WriteString("- Input-port wiring should be spaced out rather than forced into vertical alignment\n\n")

	if comparison {
		b.WriteString("Score the improvement on a scale of 0 to 100.")
	} else {
		b.WriteString("Give a score on a scale of 0 to 100.")
	}
	return b.String()
}

// extractScore pulls the first score-like number out of an evaluation.
func extractScore(reply string) (int, bool) {
	m := scoreRE.FindStringSubmatch(reply)
	if m == nil {
		return 0, false
	}
	for _, group := range m[1:] {
		if group == "" {
			continue
		}
		score, err := strconv.Atoi(group)
		if err != nil || score < 0 || score > 100 {
			return 0, false
		}
		return score, true
	}
	return 0, false
}

// Wire types for the chat-completions API.

type messagePart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

// message.Content is either a string (assistant turns) or a part list
// (user turns); the API accepts both shapes.
type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type chatRequest struct {
	Model     string    `json:"model"`
	Messages  []message `json:"messages"`
	MaxTokens int       `json:"max_tokens"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func imagePart(data []byte) messagePart {
	return messagePart{
		Type: "image_url",
		ImageURL: &imageURL{
			URL: "data:image/png;base64," + base64.StdEncoding.EncodeToString(data),
		},
	}
}

// complete posts one chat request and returns the first choice's text.
// Transient failures are retried with backoff.
func (c *Client) complete(ctx context.Context, req chatRequest) (string, error) {
	payload, err := json.Marshal(req)
	if err != nil {
		return "", err
	}

	var reply string
	err = httputil.RetryWithBackoff(ctx, func() error {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.opts.BaseURL+"/chat/completions", bytes.NewReader(payload))
		if err != nil {
			return err
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.opts.APIKey)

		observability.HTTP().OnRequest(ctx, http.MethodPost, httpReq.URL.Host, httpReq.URL.Path)
		start := time.Now()
		resp, err := c.http.Do(httpReq)
		if err != nil {
			observability.HTTP().OnError(ctx, http.MethodPost, httpReq.URL.Host, httpReq.URL.Path, err)
			return &httputil.RetryableError{Err: err}
		}
		defer resp.Body.Close()
		observability.HTTP().OnResponse(ctx, http.MethodPost, httpReq.URL.Host, httpReq.URL.Path, resp.StatusCode, time.Since(start))

		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			return &httputil.RetryableError{Err: fmt.Errorf("scoring API status %d", resp.StatusCode)}
		}
		if resp.StatusCode != http.StatusOK {
			return fmt.Errorf("scoring API status %d", resp.StatusCode)
		}

		var parsed chatResponse
		if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
			return err
		}
		if len(parsed.Choices) == 0 {
			return fmt.Errorf("scoring API returned no choices")
		}
		reply = parsed.Choices[0].Message.Content
		return nil
	})
	return reply, err
}
