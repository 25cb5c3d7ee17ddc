// Package summarize asks Gemini for note summaries.
package summarize

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

const (
	DefaultEndpoint   = "https://generativelanguage.googleapis.com/"
	DefaultAPIVersion = "v1beta"
	DefaultModel      = "gemini-1.5-flash"
	DefaultTimeout    = 30 * time.Second

	// MinContentLength is the shortest trimmed content worth summarizing.
	MinContentLength = 50
	// MaxContentLength bounds the content sent upstream.
	MaxContentLength = 30000
)

const promptTemplate = `Please summarize the following text in a concise way.
Focus on the key points and main ideas.
Format the summary with markdown, using bullet points for key takeaways.

TEXT TO SUMMARIZE:
%s
`

// ClientConfig configures a Client. Zero values select the defaults.
type ClientConfig struct {
	APIKey     string
	Model      string
	Endpoint   string
	APIVersion string
	Timeout    time.Duration
	HTTPClient *http.Client
	Logger     *zap.Logger
}

// Client calls Gemini generateContent through the genai SDK.
type Client struct {
	apiKey     string
	model      string
	endpoint   string
	apiVersion string
	timeout    time.Duration
	httpClient *http.Client
	logger     *zap.Logger

	mu     sync.Mutex
	models *genai.Models
}

// NewClient applies defaults to cfg. A missing API key is reported by Summarize,
// not here, so the rest of the application keeps working without one.
func NewClient(cfg ClientConfig) *Client {
	client := &Client{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      cfg.Model,
		endpoint:   strings.TrimSpace(cfg.Endpoint),
		apiVersion: strings.Trim(cfg.APIVersion, "/ "),
		timeout:    cfg.Timeout,
		httpClient: cfg.HTTPClient,
		logger:     cfg.Logger,
	}
	if client.model == "" {
		client.model = DefaultModel
	}
	if client.endpoint == "" {
		client.endpoint = DefaultEndpoint
	}
	if !strings.HasSuffix(client.endpoint, "/") {
		client.endpoint += "/"
	}
	if client.apiVersion == "" {
		client.apiVersion = DefaultAPIVersion
	}
	if client.timeout <= 0 {
		client.timeout = DefaultTimeout
	}
	if client.httpClient == nil {
		client.httpClient = http.DefaultClient
	}
	if client.logger == nil {
		client.logger = zap.NewNop()
	}
	return client
}

// Summarize returns a markdown summary of text. Errors match one of the package
// sentinels under errors.Is.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	if utf8.RuneCountInString(strings.TrimSpace(text)) < MinContentLength {
		return "", ErrContentTooShort
	}
	if c.apiKey == "" {
		return "", ErrMissingAPIKey
	}

	summary, err := c.generate(ctx, fmt.Sprintf(promptTemplate, truncate(text)))
	if err != nil {
		c.logger.Error("summarize request failed",
			zap.String("operation", "summarize.generate"),
			zap.String("model", c.model),
			zap.Error(err),
		)
		return "", err
	}
	return summary, nil
}

func truncate(text string) string {
	if utf8.RuneCountInString(text) <= MaxContentLength {
		return text
	}
	return string([]rune(text)[:MaxContentLength]) + "..."
}

// modelsService builds the SDK client on first use.
func (c *Client) modelsService(ctx context.Context) (*genai.Models, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.models != nil {
		return c.models, nil
	}
	sdk, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     c.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: c.httpClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    c.endpoint,
			APIVersion: c.apiVersion,
		},
	})
	if err != nil {
		return nil, err
	}
	c.models = sdk.Models
	return c.models, nil
}

func (c *Client) generate(ctx context.Context, prompt string) (string, error) {
	models, err := c.modelsService(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: create client: %w", ErrSummaryFailed, err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := models.GenerateContent(ctx, c.model, genai.Text(prompt), nil)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("%w: %w", ErrSummaryFailed, ctxErr)
		}
		return "", classifyError(err)
	}

	var builder strings.Builder
	for _, candidate := range resp.Candidates {
		if candidate == nil || candidate.Content == nil {
			continue
		}
		for _, p := range candidate.Content.Parts {
			if p != nil {
				builder.WriteString(p.Text)
			}
		}
		if builder.Len() > 0 {
			break
		}
	}
	summary := strings.TrimSpace(builder.String())
	if summary == "" {
		return "", fmt.Errorf("%w: empty response", ErrSummaryFailed)
	}
	return summary, nil
}

// classifyError maps SDK failures onto the package sentinels. Gemini reports a
// bad key as 400 with an "API key" message, so the message is checked too.
func classifyError(err error) error {
	code, message, ok := apiErrorDetail(err)
	if !ok {
		return fmt.Errorf("%w: %w", ErrSummaryFailed, err)
	}
	if code == http.StatusUnauthorized || code == http.StatusForbidden ||
		strings.Contains(strings.ToLower(message), "api key") {
		return fmt.Errorf("%w: status %d: %s", ErrAuthentication, code, message)
	}
	return fmt.Errorf("%w: status %d: %s", ErrSummaryFailed, code, message)
}

func apiErrorDetail(err error) (int, string, bool) {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code, apiErr.Message, true
	}
	var apiErrPtr *genai.APIError
	if errors.As(err, &apiErrPtr) && apiErrPtr != nil {
		return apiErrPtr.Code, apiErrPtr.Message, true
	}
	return 0, "", false
}
