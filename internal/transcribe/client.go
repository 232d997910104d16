// Package transcribe calls the Deepgram prerecorded REST API.
package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
)

// Transcriber is the speech-to-text contract the worker depends on. Failures
// surface as errors the caller records on the work item.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, contentType string, keyterms []string) (*Result, error)
}

// Result is the parsed outcome of one transcription call.
type Result struct {
	Text           string
	Confidence     float64
	RequestID      string
	WordsJSON      string
	ParagraphsJSON string
	ElapsedMillis  int
}

// ClientConfig holds Deepgram connection settings.
type ClientConfig struct {
	APIKey   string
	BaseURL  string // default https://api.deepgram.com
	Model    string // e.g. nova-3-medical
	Language string // e.g. en-AU
}

// Client is an HTTP client for Deepgram's /v1/listen endpoint.
type Client struct {
	cfg        ClientConfig
	httpClient *http.Client
	logger     *slog.Logger
}

var _ Transcriber = (*Client)(nil)

// NewClient creates a Deepgram client. A nil logger falls back to slog.Default.
func NewClient(cfg ClientConfig, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.deepgram.com"
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
		logger: logger,
	}
}

// deepgramResponse mirrors the subset of the prerecorded response we consume.
type deepgramResponse struct {
	Metadata struct {
		RequestID string `json:"request_id"`
	} `json:"metadata"`
	Results struct {
		Channels []struct {
			Alternatives []struct {
				Transcript string          `json:"transcript"`
				Confidence float64         `json:"confidence"`
				Words      json.RawMessage `json:"words"`
				Paragraphs struct {
					Paragraphs json.RawMessage `json:"paragraphs"`
				} `json:"paragraphs"`
			} `json:"alternatives"`
		} `json:"channels"`
	} `json:"results"`
}

// Transcribe posts audio bytes to Deepgram and parses the response. Transient
// transport failures and 5xx responses are retried with exponential backoff;
// 4xx responses fail immediately. Lifecycle-level retry policy stays with the
// operator, this only smooths over blips within a single call.
func (c *Client) Transcribe(ctx context.Context, audio []byte, contentType string, keyterms []string) (*Result, error) {
	endpoint, err := c.buildURL(keyterms)
	if err != nil {
		return nil, err
	}

	label := uuid.New().String()[:8]
	c.logger.Info("sending audio for transcription",
		"label", label, "bytes", len(audio), "content_type", contentType)

	start := time.Now()

	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(audio))
		if err != nil {
			return backoff.Permanent(err)
		}
		req.Header.Set("Authorization", "Token "+c.cfg.APIKey)
		req.Header.Set("Content-Type", contentType)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return err
		}
		if resp.StatusCode >= 500 {
			return fmt.Errorf("server error %d: %s", resp.StatusCode, truncate(body, 200))
		}
		if resp.StatusCode >= 400 {
			return backoff.Permanent(fmt.Errorf("transcription rejected %d: %s", resp.StatusCode, truncate(body, 200)))
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 30 * time.Second
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		return nil, fmt.Errorf("transcribe: %w", err)
	}

	elapsed := int(time.Since(start).Milliseconds())

	var dg deepgramResponse
	if err := json.Unmarshal(body, &dg); err != nil {
		return nil, fmt.Errorf("decode transcription response: %w", err)
	}
	if len(dg.Results.Channels) == 0 || len(dg.Results.Channels[0].Alternatives) == 0 {
		return nil, fmt.Errorf("transcription response has no alternatives")
	}
	alt := dg.Results.Channels[0].Alternatives[0]

	result := &Result{
		Text:           alt.Transcript,
		Confidence:     alt.Confidence,
		RequestID:      dg.Metadata.RequestID,
		WordsJSON:      string(alt.Words),
		ParagraphsJSON: string(alt.Paragraphs.Paragraphs),
		ElapsedMillis:  elapsed,
	}

	c.logger.Info("transcription complete",
		"label", label, "request_id", result.RequestID,
		"confidence", result.Confidence, "elapsed_ms", elapsed)
	return result, nil
}

func (c *Client) buildURL(keyterms []string) (string, error) {
	u, err := url.Parse(c.cfg.BaseURL + "/v1/listen")
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	q.Set("model", c.cfg.Model)
	q.Set("language", c.cfg.Language)
	q.Set("smart_format", "true")
	q.Set("punctuate", "true")
	q.Set("paragraphs", "true")
	q.Set("utterances", "true")
	q.Set("numerals", "true")
	for _, kt := range keyterms {
		q.Add("keyterm", kt)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
