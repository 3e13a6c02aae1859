package score

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/wiretidy/wiretidy/pkg/cache"
)

type chatCall struct {
	auth  string
	model string
	parts int
}

// fakeAPI runs a chat-completions stub that replies with the given texts
// in order, recording each call.
func fakeAPI(t *testing.T, replies []string) (*httptest.Server, *[]chatCall) {
	t.Helper()
	var calls []chatCall
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Model    string `json:"model"`
			Messages []struct {
				Content json.RawMessage `json:"content"`
			} `json:"messages"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}

		parts := 0
		if len(req.Messages) > 0 {
			var list []json.RawMessage
			if json.Unmarshal(req.Messages[0].Content, &list) == nil {
				parts = len(list)
			}
		}
		calls = append(calls, chatCall{
			auth:  r.Header.Get("Authorization"),
			model: req.Model,
			parts: parts,
		})

		reply := replies[0]
		if len(replies) > 1 {
			replies = replies[1:]
		}
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]any{"content": reply}},
			},
		})
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func newTestClient(srv *httptest.Server) *Client {
	return NewClient(Options{
		APIKey:  "test-key",
		BaseURL: srv.URL,
	})
}

func TestEvaluate_ScoreFromEvaluation(t *testing.T) {
	srv, calls := fakeAPI(t, []string{"The routing is clean and mostly straight. I rate this 82/100."})
	c := newTestClient(srv)

	result, err := c.Evaluate(context.Background(), []byte("png-bytes"), nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Score != 82 {
		t.Errorf("Score = %d, want 82", result.Score)
	}
	if result.Mode != ModeAPI {
		t.Errorf("Mode = %q, want %q", result.Mode, ModeAPI)
	}
	if result.Evaluation == "" {
		t.Error("Evaluation should carry the model's reply")
	}

	if len(*calls) != 1 {
		t.Fatalf("calls = %d, want 1", len(*calls))
	}
	call := (*calls)[0]
	if call.auth != "Bearer test-key" {
		t.Errorf("Authorization = %q, want bearer token", call.auth)
	}
	if call.model != DefaultModel {
		t.Errorf("model = %q, want %q", call.model, DefaultModel)
	}
	if call.parts != 2 {
		t.Errorf("content parts = %d, want 2 (prompt + one image)", call.parts)
	}
}

func TestEvaluate_ComparisonSendsBothImages(t *testing.T) {
	srv, calls := fakeAPI(t, []string{"Big improvement. Score: 90"})
	c := newTestClient(srv)

	result, err := c.Evaluate(context.Background(), []byte("after"), []byte("before"))
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Score != 90 {
		t.Errorf("Score = %d, want 90", result.Score)
	}
	if (*calls)[0].parts != 3 {
		t.Errorf("content parts = %d, want 3 (prompt + two images)", (*calls)[0].parts)
	}
}

func TestEvaluate_ClarificationRound(t *testing.T) {
	srv, calls := fakeAPI(t, []string{
		"The layout looks tidy overall, with few crossings.", // no number
		"75",
	})
	c := newTestClient(srv)

	result, err := c.Evaluate(context.Background(), []byte("png"), nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Score != 75 {
		t.Errorf("Score = %d, want 75 from clarification", result.Score)
	}
	if result.Mode != ModeClarified {
		t.Errorf("Mode = %q, want %q", result.Mode, ModeClarified)
	}
	if len(*calls) != 2 {
		t.Errorf("calls = %d, want 2", len(*calls))
	}
}

func TestEvaluate_UnparseableFallsBackToDefault(t *testing.T) {
	srv, _ := fakeAPI(t, []string{
		"The layout looks tidy.",
		"I would not want to commit to a number.",
	})
	c := newTestClient(srv)

	result, err := c.Evaluate(context.Background(), []byte("png"), nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Score != DefaultScore {
		t.Errorf("Score = %d, want default %d", result.Score, DefaultScore)
	}
	if result.Mode != ModeDefault {
		t.Errorf("Mode = %q, want %q", result.Mode, ModeDefault)
	}
}

func TestEvaluate_APIFailureYieldsDefault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 400 is not retried, so the test stays fast.
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()
	c := newTestClient(srv)

	result, err := c.Evaluate(context.Background(), []byte("png"), nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	if result.Score != DefaultScore || result.Mode != ModeDefault {
		t.Errorf("result = %+v, want default score", result)
	}
}

func TestEvaluate_NoAPIKey(t *testing.T) {
	c := NewClient(Options{})
	if _, err := c.Evaluate(context.Background(), []byte("png"), nil); err != ErrNoAPIKey {
		t.Errorf("err = %v, want ErrNoAPIKey", err)
	}
}

func TestEvaluate_CachesResults(t *testing.T) {
	srv, calls := fakeAPI(t, []string{"Score: 88"})
	backend, err := cache.NewFileCache(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileCache: %v", err)
	}
	c := NewClient(Options{
		APIKey:  "test-key",
		BaseURL: srv.URL,
		Cache:   backend,
	})

	first, err := c.Evaluate(context.Background(), []byte("png"), nil)
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}
	second, err := c.Evaluate(context.Background(), []byte("png"), nil)
	if err != nil {
		t.Fatalf("Evaluate (cached): %v", err)
	}

	if first.Score != 88 || second.Score != 88 {
		t.Errorf("scores = (%d, %d), want (88, 88)", first.Score, second.Score)
	}
	if len(*calls) != 1 {
		t.Errorf("calls = %d, want 1 (second evaluation served from cache)", len(*calls))
	}
}

func TestManual_Clamps(t *testing.T) {
	tests := []struct {
		in, want int
	}{
		{-10, 0},
		{0, 0},
		{63, 63},
		{100, 100},
		{250, 100},
	}
	for _, tt := range tests {
		if got := Manual(tt.in); got.Score != tt.want || got.Mode != ModeManual {
			t.Errorf("Manual(%d) = %+v, want score %d mode manual", tt.in, got, tt.want)
		}
	}
}

func TestExtractScore(t *testing.T) {
	tests := []struct {
		reply string
		want  int
		ok    bool
	}{
		{"I rate this 82/100.", 82, true},
		{"Score: 40", 40, true},
		{"rating: 95 overall", 95, true},
		{"Looks good to me.", 0, false},
		{"Score: 900", 0, false}, // out of range
	}
	for _, tt := range tests {
		got, ok := extractScore(tt.reply)
		if got != tt.want || ok != tt.ok {
			t.Errorf("extractScore(%q) = (%d, %v), want (%d, %v)", tt.reply, got, ok, tt.want, tt.ok)
		}
	}
}
