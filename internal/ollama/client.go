// Package ollama is the generation bridge between the gateway and a local
// Ollama daemon: it builds /api/generate requests, performs the call and
// flattens the newline-delimited reply into a single string.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DefaultBaseURL is the API root of an Ollama daemon on its default port.
const DefaultBaseURL = "http://localhost:11434/api"

// Client wraps the Ollama HTTP API. A Client is safe for concurrent use;
// the underlying *http.Client and its connection pool are shared by all calls.
type Client struct {
	BaseURL    string
	httpClient *http.Client
	timeout    time.Duration
	repair     bool
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds every outbound call. Zero means no deadline.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.timeout = d }
}

// WithRepair enables jsonrepair for chunks that fail to decode.
func WithRepair(enabled bool) Option {
	return func(c *Client) { c.repair = enabled }
}

// WithLogger sets the logger used for skipped chunks.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// NewClient creates a new Ollama client pointing at baseURL
// (e.g. "http://localhost:11434/api").
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		// Deadlines are applied per call through the request context.
		httpClient: &http.Client{},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ---------------------------------------------------------------------------
// Types
// ---------------------------------------------------------------------------

// GenerateRequest maps to POST /api/generate.
type GenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// GenerateChunk is one line of a POST /api/generate reply.
type GenerateChunk struct {
	Model     string `json:"model,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
	Response  string `json:"response"`
	Done      bool   `json:"done"`
}

// VersionResponse maps to GET /api/version.
type VersionResponse struct {
	Version string `json:"version"`
}

// Result is the flattened outcome of one Generate call.
type Result struct {
	// Text is the aggregate: trimmed chunk texts joined by single spaces.
	Text string

	// Chunks is the number of lines that decoded successfully.
	Chunks int

	// Skipped is the number of non-blank lines that did not decode.
	Skipped int

	Duration time.Duration
}

// ---------------------------------------------------------------------------
// Methods
// ---------------------------------------------------------------------------

// Generate sends req to /api/generate with stream=false, reads the whole
// body and aggregates it. Failures are always *Error; an empty or
// entirely undecodable body is not a failure and yields Text == "".
func (c *Client) Generate(ctx context.Context, req GenerateRequest) (*Result, error) {
	req.Stream = false
	start := time.Now()

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/generate", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, unreachable(err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, unreadable(err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, providerStatus(resp.StatusCode, errorDetail(resp.StatusCode, raw))
	}

	res := &Result{}
	p := Parser{
		Repair: c.repair,
		OnSkip: func(line string, err error) {
			res.Skipped++
			c.logger.Debug("skipped undecodable chunk", "model", req.Model, "line", truncate(line, 200), "error", err)
		},
	}
	counted := func(yield func(GenerateChunk) bool) {
		for chunk := range p.Chunks(string(raw)) {
			res.Chunks++
			if !yield(chunk) {
				return
			}
		}
	}
	res.Text = joinTexts(collectTexts(counted))
	res.Duration = time.Since(start)
	return res, nil
}

// Version fetches the Ollama server version (also serves as a health check).
func (c *Client) Version(ctx context.Context) (string, error) {
	var v VersionResponse
	if err := c.getJSON(ctx, "/version", &v); err != nil {
		return "", err
	}
	return v.Version, nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (c *Client) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	ctx, cancel := c.withTimeout(ctx)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+path, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return unreachable(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return providerStatus(resp.StatusCode, errorDetail(resp.StatusCode, b))
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return unreadable(err)
	}
	return nil
}

// errorDetail extracts Ollama's {"error": "..."} message, falling back to
// the raw body and then to the status text.
func errorDetail(code int, raw []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(raw, &e) == nil && strings.TrimSpace(e.Error) != "" {
		return strings.TrimSpace(e.Error)
	}
	if s := strings.TrimSpace(string(raw)); s != "" {
		return truncate(s, 512)
	}
	return http.StatusText(code)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "…"
}
