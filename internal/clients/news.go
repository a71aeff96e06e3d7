package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/traceguard/backend/internal/util"
)

// NewsClient calls the news-sentiment signal service.
type NewsClient struct {
	baseURL string
	http    *http.Client
}

// NewNewsClient reads NEWS_SIGNAL_URL. Returns nil when the collaborator is
// not configured.
func NewNewsClient() *NewsClient {
	baseURL := util.GetEnv("NEWS_SIGNAL_URL")
	if baseURL == "" {
		return nil
	}
	return &NewsClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: collaboratorTimeout},
	}
}

// SignalScore returns the raw 0..100 adverse-media risk magnitude for a
// supplier name.
func (c *NewsClient) SignalScore(ctx context.Context, supplierName string) (float64, error) {
	return util.RetryWithContext(ctx, 2, func(ctx context.Context) (float64, error) {
		endpoint := fmt.Sprintf("%s/signal?supplier=%s", c.baseURL, url.QueryEscape(supplierName))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return 0, err
		}

		resp, err := c.http.Do(req)
		if err != nil {
			return 0, err
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return 0, fmt.Errorf("news signal service returned status %d", resp.StatusCode)
		}

		var body struct {
			Score float64 `json:"score"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
			return 0, fmt.Errorf("failed to decode news signal response: %w", err)
		}
		return body.Score, nil
	})
}
