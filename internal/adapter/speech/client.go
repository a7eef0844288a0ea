package speech

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

type Client struct {
	baseURL    string
	apiKey     string
	voice      string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, voice string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		voice:   voice,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Synthesize fetches spoken audio for text
func (c *Client) Synthesize(ctx context.Context, text string) (io.Reader, error) {
	query := url.Values{}
	query.Set("text", text)
	if c.voice != "" {
		query.Set("voice", c.voice)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/tts?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(audio) == 0 {
		return nil, fmt.Errorf("empty audio for %q", text)
	}

	return bytes.NewReader(audio), nil
}
