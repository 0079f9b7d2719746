package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/poiesic/pageflow/core"
)

const (
	// ExtractPath is the service route for text extraction.
	ExtractPath = "/extract_clean_text"

	// DefaultRequestTimeout bounds one request, including the model's inference time.
	DefaultRequestTimeout = 5 * time.Minute

	maxErrorBody = 512
)

// Request is the payload sent for one page.
type Request struct {
	ImagePath string `json:"image_path"`
	SourceURL string `json:"source_url"`
}

type response struct {
	CleanText      string   `json:"clean_text"`
	ClarityPercent *float64 `json:"clarity_percent"`
	FallbackURL    string   `json:"fallback_url"`
	Error          string   `json:"error"`
}

// Extractor turns a page image into text.
// Implementations must be safe for concurrent use.
type Extractor interface {
	Extract(ctx context.Context, req Request) (*core.OCRResult, error)
}

// Client is a single-attempt HTTP client for the OCR service.
type Client struct {
	endpoint   string
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Extractor = (*Client)(nil)

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithClientLogger sets the client's logger.
func WithClientLogger(logger *slog.Logger) ClientOption {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient returns a client for the service listening on host:port.
func NewClient(host string, port int, opts ...ClientOption) *Client {
	return NewClientURL("http://"+net.JoinHostPort(host, strconv.Itoa(port)), opts...)
}

// NewClientURL returns a client for the service rooted at baseURL.
func NewClientURL(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		endpoint:   strings.TrimRight(baseURL, "/") + ExtractPath,
		httpClient: &http.Client{Timeout: DefaultRequestTimeout},
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With("component", "ocr")
	return c
}

// Endpoint returns the full extraction URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Extract sends one request. A 200 response without an error field yields a
// result even when the extracted text is empty.
func (c *Client) Extract(ctx context.Context, req Request) (*core.OCRResult, error) {
	if req.ImagePath == "" {
		return nil, ErrEmptyImagePath
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode ocr request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create ocr request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &TransientError{Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	var decoded response
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if decoded.Error != "" {
		return nil, &ServiceError{Message: decoded.Error}
	}

	result := &core.OCRResult{
		CleanText:   decoded.CleanText,
		FallbackURL: decoded.FallbackURL,
	}
	if decoded.ClarityPercent != nil {
		result.ClarityPercent = *decoded.ClarityPercent
	}
	if err := core.ValidateOCRResult(result); err != nil {
		return nil, &ServiceError{Message: err.Error()}
	}

	c.logger.Debug("extracted page", "image", req.ImagePath, "chars", len(result.CleanText), "clarity", result.ClarityPercent)
	return result, nil
}
