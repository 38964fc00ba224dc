package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"

	goopenai "github.com/sashabaranov/go-openai"
)

const (
	defaultBaseURL        = "https://openrouter.ai/api/v1"
	defaultHTTPTimeout    = 15 * time.Second
	defaultRetryMaxDelay  = 10 * time.Second
	defaultRetryBaseDelay = 1 * time.Second
	defaultRetryAttempts  = 5
)

// Config captures the chat-completion endpoint the agents talk to.
type Config struct {
	APIKey  string
	BaseURL string
	Model   string
	// Referer and Title identify the app to OpenRouter's rankings.
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Client runs agent prompts against an OpenAI-compatible chat endpoint.
type Client struct {
	api    *goopenai.Client
	model  string
	agents Catalog

	httpClient *http.Client
	attempts   int
	baseDelay  time.Duration
	maxDelay   time.Duration
	sleeper    func(time.Duration)
	hasAPIKey  bool
}

// Option customizes the client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client. Its transport is wrapped to add
// the app headers.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryMaxAttempts overrides the attempt budget per completion.
func WithRetryMaxAttempts(attempts int) Option {
	return func(c *Client) {
		c.attempts = attempts
	}
}

// WithRetryBackoff overrides the backoff delays.
func WithRetryBackoff(baseDelay, maxDelay time.Duration) Option {
	return func(c *Client) {
		c.baseDelay = baseDelay
		c.maxDelay = maxDelay
	}
}

// WithAgents replaces the agent catalog (defaults to DefaultCatalog).
func WithAgents(catalog Catalog) Option {
	return func(c *Client) {
		if catalog != nil {
			c.agents = catalog
		}
	}
}

// WithSleeper overrides how retry sleeps are performed.
func WithSleeper(sleeper func(time.Duration)) Option {
	return func(c *Client) {
		c.sleeper = sleeper
	}
}

// NewClient constructs a client for cfg.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultHTTPTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		model:      strings.TrimSpace(cfg.Model),
		agents:     DefaultCatalog(),
		httpClient: &http.Client{Timeout: timeout},
		attempts:   defaultRetryAttempts,
		baseDelay:  defaultRetryBaseDelay,
		maxDelay:   defaultRetryMaxDelay,
		hasAPIKey:  strings.TrimSpace(cfg.APIKey) != "",
	}
	for _, opt := range opts {
		opt(c)
	}

	clientCfg := goopenai.DefaultConfig(strings.TrimSpace(cfg.APIKey))
	clientCfg.BaseURL = endpointBase(cfg.BaseURL)
	clientCfg.HTTPClient = &http.Client{
		Timeout: c.httpClient.Timeout,
		Transport: &appTransport{
			base:    c.httpClient.Transport,
			referer: strings.TrimSpace(cfg.Referer),
			title:   strings.TrimSpace(cfg.Title),
		},
	}
	c.api = goopenai.NewClientWithConfig(clientCfg)
	return c
}

// endpointBase accepts either the API root or the full chat/completions URL.
func endpointBase(raw string) string {
	base := strings.TrimRight(strings.TrimSpace(raw), "/")
	base = strings.TrimSuffix(base, "/chat/completions")
	if base == "" {
		return defaultBaseURL
	}
	return base
}

// Complete runs prompt through the named agent and returns the model's
// text. JSON agents request a JSON response and have code fences and
// surrounding prose stripped from the result.
func (c *Client) Complete(ctx context.Context, agent, prompt string) (string, error) {
	def, ok := c.agents.Lookup(agent)
	if !ok {
		return "", fmt.Errorf("llm complete: unknown agent %q", agent)
	}
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "", fmt.Errorf("llm complete %s: prompt required", agent)
	}
	if !c.hasAPIKey {
		return "", errors.New("llm complete: api key required")
	}
	req := agentRequest(def, c.model, prompt)
	content, err := c.complete(ctx, req, "llm "+normalizeAgentName(agent))
	if err != nil {
		return "", err
	}
	if def.JSON {
		return extractJSON(content), nil
	}
	return content, nil
}

func agentRequest(def Agent, model, prompt string) goopenai.ChatCompletionRequest {
	if def.Model != "" {
		model = def.Model
	}
	req := goopenai.ChatCompletionRequest{
		Model: model,
		Messages: []goopenai.ChatCompletionMessage{
			{Role: goopenai.ChatMessageRoleSystem, Content: def.System},
			{Role: goopenai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: float32(def.Temperature),
	}
	if def.JSON {
		req.ResponseFormat = &goopenai.ChatCompletionResponseFormat{Type: goopenai.ChatCompletionResponseFormatTypeJSONObject}
	}
	return req
}

// HealthCheck asks the configured model for a fixed JSON reply.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.hasAPIKey {
		return errors.New("llm health: api key required")
	}
	probe := Agent{System: "You must respond with JSON only.", JSON: true}
	content, err := c.complete(ctx, agentRequest(probe, c.model, `Respond with {"ok":true}`), "llm health")
	if err != nil {
		return err
	}
	var parsed struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(content, &parsed); err != nil {
		return fmt.Errorf("llm health: parse payload: %w", err)
	}
	if !parsed.OK {
		return errors.New("llm health: unexpected response")
	}
	return nil
}

// emptyReplyError is returned when the model answers without any text.
type emptyReplyError struct {
	Op           string
	FinishReason string
	Refusal      string
}

func (e *emptyReplyError) Error() string {
	return fmt.Sprintf("%s: empty reply (finish_reason=%q, refusal=%q)", e.Op, e.FinishReason, e.Refusal)
}

func (c *Client) complete(ctx context.Context, req goopenai.ChatCompletionRequest, op string) (string, error) {
	attempts := max(c.attempts, 1)
	for attempt := 1; ; attempt++ {
		hint := &retryHint{}
		resp, err := c.api.CreateChatCompletion(context.WithValue(ctx, retryHintKey{}, hint), req)
		if err == nil {
			content, reply := replyText(resp, op)
			if reply == nil {
				return content, nil
			}
			err = reply
		}
		if attempt >= attempts || !retryable(ctx, err) {
			if attempt > 1 {
				return "", fmt.Errorf("%s: failed after %d attempts: %w", op, attempt, err)
			}
			return "", fmt.Errorf("%s: %w", op, err)
		}
		delay := c.backoffDelay(attempt)
		if hint.after > 0 {
			delay = hint.after
			if c.maxDelay > 0 {
				delay = min(delay, c.maxDelay)
			}
		}
		if err := c.sleep(ctx, delay); err != nil {
			return "", err
		}
	}
}

// replyText returns the first non-empty message content, or an
// emptyReplyError describing why there was none.
func replyText(resp goopenai.ChatCompletionResponse, op string) (string, error) {
	if len(resp.Choices) == 0 {
		return "", &emptyReplyError{Op: op}
	}
	empty := &emptyReplyError{Op: op, FinishReason: string(resp.Choices[0].FinishReason)}
	for _, choice := range resp.Choices {
		if text := strings.TrimSpace(choice.Message.Content); text != "" {
			return text, nil
		}
		if empty.Refusal == "" {
			empty.Refusal = strings.TrimSpace(choice.Message.Refusal)
		}
	}
	return "", empty
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var empty *emptyReplyError
	if errors.As(err, &empty) {
		return true
	}
	if status := statusCode(err); status != 0 {
		return status == http.StatusRequestTimeout ||
			status == http.StatusTooManyRequests ||
			status >= http.StatusInternalServerError
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func statusCode(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// backoffDelay doubles from baseDelay per attempt, capped at maxDelay.
func (c *Client) backoffDelay(attempt int) time.Duration {
	if c.baseDelay <= 0 {
		return 0
	}
	delay := c.baseDelay
	for i := 1; i < attempt && delay < c.maxDelay; i++ {
		delay *= 2
	}
	if c.maxDelay > 0 && delay > c.maxDelay {
		return c.maxDelay
	}
	return delay
}

func (c *Client) sleep(ctx context.Context, delay time.Duration) error {
	if delay <= 0 {
		return ctx.Err()
	}
	if c.sleeper != nil {
		c.sleeper(delay)
		return ctx.Err()
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
