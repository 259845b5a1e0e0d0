// Package minter is the HTTP client for the external asynchronous minting
// worker. The worker anchors ticket ownership on-chain and reports results
// through the mint-callback endpoint; this client only submits jobs.
package minter

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"tixgate/internal/model"
)

type Client interface {
	Mint(ctx context.Context, job *model.MintJob) error
}

type HTTPClient struct {
	baseURL string
	client  *http.Client
}

func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

func (c *HTTPClient) Mint(ctx context.Context, job *model.MintJob) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal mint job: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build mint request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("mint request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("mint worker returned %d: %s", resp.StatusCode, snippet)
	}

	return nil
}
