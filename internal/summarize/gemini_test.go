package summarize

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

var longEnough = strings.Repeat("This sentence has enough words. ", 3)

type capturedRequest struct {
	Contents []struct {
		Parts []struct {
			Text string `json:"text"`
		} `json:"parts"`
	} `json:"contents"`
}

func (r capturedRequest) prompt() string {
	if len(r.Contents) == 0 || len(r.Contents[0].Parts) == 0 {
		return ""
	}
	return r.Contents[0].Parts[0].Text
}

func newTestServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	return server
}

func TestSummarizeRejectsShortContent(t *testing.T) {
	client := NewClient(ClientConfig{APIKey: "key"})
	_, err := client.Summarize(context.Background(), "  short text padded with spaces            ")
	if !errors.Is(err, ErrContentTooShort) {
		t.Fatalf("expected content too short, got %v", err)
	}
}

func TestSummarizeRequiresAPIKey(t *testing.T) {
	client := NewClient(ClientConfig{APIKey: "  "})
	_, err := client.Summarize(context.Background(), longEnough)
	if !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected missing api key, got %v", err)
	}
}

func TestSummarizeReturnsCandidateText(t *testing.T) {
	var captured capturedRequest
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1beta/models/gemini-1.5-flash:generateContent" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("x-goog-api-key") != "secret" {
			t.Errorf("expected api key header")
		}
		body, _ := io.ReadAll(r.Body)
		if err := json.Unmarshal(body, &captured); err != nil {
			t.Errorf("invalid request body: %v", err)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"- point one\n"},{"text":"- point two"}]}}]}`))
	})

	client := NewClient(ClientConfig{APIKey: "secret", Endpoint: server.URL + "/"})
	summary, err := client.Summarize(context.Background(), longEnough)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if summary != "- point one\n- point two" {
		t.Fatalf("unexpected summary %q", summary)
	}
	if len(captured.Contents) != 1 || !strings.Contains(captured.prompt(), longEnough) {
		t.Fatalf("expected prompt to carry the content, got %#v", captured)
	}
}

func TestSummarizeTruncatesLongContent(t *testing.T) {
	var prompt string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var request capturedRequest
		_ = json.NewDecoder(r.Body).Decode(&request)
		prompt = request.prompt()
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	})

	client := NewClient(ClientConfig{APIKey: "secret", Endpoint: server.URL})
	if _, err := client.Summarize(context.Background(), strings.Repeat("a", MaxContentLength+10)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(prompt, strings.Repeat("a", MaxContentLength)+"...") {
		t.Fatalf("expected truncated content with ellipsis")
	}
	if strings.Contains(prompt, strings.Repeat("a", MaxContentLength+1)) {
		t.Fatalf("expected content to be cut at the limit")
	}
}

func TestSummarizeClassifiesFailures(t *testing.T) {
	testCases := []struct {
		name     string
		status   int
		body     string
		expected error
	}{
		{name: "unauthorized", status: http.StatusUnauthorized, body: `{"error":{"code":401,"message":"Request had invalid credentials.","status":"UNAUTHENTICATED"}}`, expected: ErrAuthentication},
		{name: "forbidden", status: http.StatusForbidden, body: `{"error":{"code":403,"message":"Permission denied.","status":"PERMISSION_DENIED"}}`, expected: ErrAuthentication},
		{name: "invalid key message", status: http.StatusBadRequest, body: `{"error":{"code":400,"message":"API key not valid. Please pass a valid API key.","status":"INVALID_ARGUMENT"}}`, expected: ErrAuthentication},
		{name: "server error", status: http.StatusInternalServerError, body: `boom`, expected: ErrSummaryFailed},
		{name: "bad request", status: http.StatusBadRequest, body: `{"error":{"code":400,"message":"Invalid JSON payload.","status":"INVALID_ARGUMENT"}}`, expected: ErrSummaryFailed},
		{name: "empty candidates", status: http.StatusOK, body: `{"candidates":[]}`, expected: ErrSummaryFailed},
		{name: "malformed body", status: http.StatusOK, body: `{`, expected: ErrSummaryFailed},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(testCase.status)
				_, _ = w.Write([]byte(testCase.body))
			})
			client := NewClient(ClientConfig{APIKey: "secret", Endpoint: server.URL})
			_, err := client.Summarize(context.Background(), longEnough)
			if !errors.Is(err, testCase.expected) {
				t.Fatalf("expected %v, got %v", testCase.expected, err)
			}
		})
	}
}

func TestSummarizeHonorsTimeout(t *testing.T) {
	release := make(chan struct{})
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	})
	defer close(release)

	client := NewClient(ClientConfig{APIKey: "secret", Endpoint: server.URL, Timeout: 50 * time.Millisecond})
	_, err := client.Summarize(context.Background(), longEnough)
	if !errors.Is(err, ErrSummaryFailed) {
		t.Fatalf("expected summary failure, got %v", err)
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded cause, got %v", err)
	}
}

func TestSummarizeUsesConfiguredModelAndVersion(t *testing.T) {
	var path string
	server := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"ok"}]}}]}`))
	})

	client := NewClient(ClientConfig{APIKey: "secret", Endpoint: server.URL, APIVersion: "v1", Model: "gemini-2.0-flash"})
	if _, err := client.Summarize(context.Background(), longEnough); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if path != "/v1/models/gemini-2.0-flash:generateContent" {
		t.Fatalf("unexpected path %s", path)
	}
}

func TestMessage(t *testing.T) {
	if Message(nil) != "" {
		t.Fatalf("expected empty message for nil")
	}
	if Message(ErrContentTooShort) != "Content is too short to summarize" {
		t.Fatalf("unexpected message %q", Message(ErrContentTooShort))
	}
	if !strings.Contains(Message(ErrMissingAPIKey), "GEMINI_API_KEY") {
		t.Fatalf("unexpected message %q", Message(ErrMissingAPIKey))
	}
	if !strings.HasPrefix(Message(errors.Join(ErrAuthentication, errors.New("x"))), "Authentication error") {
		t.Fatalf("expected authentication message")
	}
	if Message(errors.New("other")) != "Failed to generate summary" {
		t.Fatalf("unexpected fallback message")
	}
}
