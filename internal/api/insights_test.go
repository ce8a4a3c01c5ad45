package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/serene-app/serene-backend/internal/ai"
	"github.com/serene-app/serene-backend/pkg/config"
)

// fakeUpstream returns a chat-completion server that always answers
// with the given content and records the last request body.
func fakeUpstream(t *testing.T, content string, lastBody *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if lastBody != nil {
			var body map[string]interface{}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("failed to decode upstream request: %v", err)
			}
			*lastBody = body
		}
		w.Header().Set("Content-Type", "application/json")
		resp := map[string]interface{}{
			"choices": []map[string]interface{}{
				{"message": map[string]string{"role": "assistant", "content": content}},
			},
		}
		json.NewEncoder(w).Encode(resp)
	}))
}

func newInsightsEngine(t *testing.T, upstreamURL string) *gin.Engine {
	t.Helper()
	client, err := ai.NewClient(&config.OpenAIConfig{
		APIKey:  "test-key",
		BaseURL: upstreamURL,
		Model:   "gpt-4o-mini",
	})
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	insightsAPI := NewInsightsAPI(ai.NewInsights(client))
	engine.POST("/functions/mood-insights", insightsAPI.MoodInsights)
	engine.POST("/functions/cbt-insights", insightsAPI.CBTInsights)
	return engine
}

func TestMoodInsightsContract(t *testing.T) {
	var lastBody map[string]interface{}
	upstream := fakeUpstream(t, "You seem to be carrying a lot today.", &lastBody)
	defer upstream.Close()

	engine := newInsightsEngine(t, upstream.URL)

	payload := `{"moodText":"long day at work","selectedEmoji":"😔"}`
	req := httptest.NewRequest(http.MethodPost, "/functions/mood-insights", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["insight"] != "You seem to be carrying a lot today." {
		t.Errorf("unexpected insight: %q", resp["insight"])
	}

	messages, ok := lastBody["messages"].([]interface{})
	if !ok || len(messages) != 2 {
		t.Fatalf("expected 2 upstream messages, got %v", lastBody["messages"])
	}
	user := messages[1].(map[string]interface{})
	if content := user["content"].(string); !strings.Contains(content, "😔") || !strings.Contains(content, "long day at work") {
		t.Errorf("user message missing mood fields: %q", content)
	}
}

func TestCBTInsightsCoachMode(t *testing.T) {
	var lastBody map[string]interface{}
	upstream := fakeUpstream(t, "Try a balanced thought.", &lastBody)
	defer upstream.Close()

	engine := newInsightsEngine(t, upstream.URL)

	payload := `{"mode":"coach","automaticThought":"I always fail"}`
	req := httptest.NewRequest(http.MethodPost, "/functions/cbt-insights", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["suggestion"] != "Try a balanced thought." {
		t.Errorf("unexpected suggestion: %q", resp["suggestion"])
	}

	messages := lastBody["messages"].([]interface{})
	user := messages[1].(map[string]interface{})
	content := user["content"].(string)
	if !strings.Contains(content, "(not provided)") {
		t.Errorf("expected placeholder for missing situation, got %q", content)
	}
	if !strings.Contains(content, "I always fail") {
		t.Errorf("expected automatic thought in message, got %q", content)
	}
}

func TestCBTInsightsPatternsMode(t *testing.T) {
	upstream := fakeUpstream(t, "Patterns summary.", nil)
	defer upstream.Close()

	engine := newInsightsEngine(t, upstream.URL)

	payload := `{"mode":"patterns","entries":[{"automaticThought":"I will mess this up","distortion":"catastrophizing"}]}`
	req := httptest.NewRequest(http.MethodPost, "/functions/cbt-insights", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["summary"] != "Patterns summary." {
		t.Errorf("unexpected summary: %q", resp["summary"])
	}
}

func TestCBTInsightsUnknownMode(t *testing.T) {
	upstream := fakeUpstream(t, "unused", nil)
	defer upstream.Close()

	engine := newInsightsEngine(t, upstream.URL)

	payload := `{"mode":"oracle"}`
	req := httptest.NewRequest(http.MethodPost, "/functions/cbt-insights", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown mode, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Invalid mode") {
		t.Errorf("expected invalid mode error, got %s", rec.Body.String())
	}
}

func TestCBTInsightsUpstreamFailure(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer upstream.Close()

	engine := newInsightsEngine(t, upstream.URL)

	payload := `{"mode":"coach","automaticThought":"I always fail"}`
	req := httptest.NewRequest(http.MethodPost, "/functions/cbt-insights", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", rec.Code)
	}
	var resp map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["error"] != "Unexpected error" {
		t.Errorf("expected generic error field, got %q", resp["error"])
	}
	if !strings.Contains(resp["details"], "rate limited") {
		t.Errorf("expected upstream detail passthrough, got %q", resp["details"])
	}
}
