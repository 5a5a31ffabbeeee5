// Package translation calls an external translation engine over HTTP.
package translation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"meetspace-api/internal/http/client"
	"meetspace-api/internal/observability/logger"

	"go.uber.org/zap"
)

// Client implements meeting.TranslationService against
// POST {baseURL}/v1/translate.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a client for the engine at baseURL
// (e.g. "http://translator:8080").
func NewClient(baseURL string) *Client {
	return NewClientWithHTTP(baseURL, client.NewExternalHTTPClient())
}

// NewClientWithHTTP uses the given http.Client.
func NewClientWithHTTP(baseURL string, httpClient *http.Client) *Client {
	return &Client{httpClient: httpClient, baseURL: strings.TrimRight(baseURL, "/")}
}

type translateRequest struct {
	Source string `json:"source"`
	Target string `json:"target"`
	Text   string `json:"text"`
}

type translateResponse struct {
	Text string `json:"text"`
}

// Translate sends text to the engine and returns the translation.
func (c *Client) Translate(ctx context.Context, sourceLang, targetLang, text string) (string, error) {
	log := logger.GetLogger(ctx)

	body, err := json.Marshal(translateRequest{Source: sourceLang, Target: targetLang, Text: text})
	if err != nil {
		return "", fmt.Errorf("failed to marshal payload: %w", err)
	}

	url := c.baseURL + "/v1/translate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Error(ctx, "translation request failed",
			logger.Module("translation"),
			logger.Action("translate"),
			zap.Error(err),
		)
		return "", fmt.Errorf("translation request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		// drain so the connection can be reused
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		log.Warn(ctx, "translation engine returned non-ok status",
			logger.Module("translation"),
			logger.Action("translate"),
			zap.Int("status", resp.StatusCode),
		)
		return "", fmt.Errorf("unexpected status from translation engine: %d", resp.StatusCode)
	}

	var out translateResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("failed to decode response: %w", err)
	}

	log.Debug(ctx, "translation completed",
		logger.Module("translation"),
		logger.Action("translate"),
		zap.String("source", sourceLang),
		zap.String("target", targetLang),
	)
	return out.Text, nil
}
