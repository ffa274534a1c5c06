package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	saeserrors "github.com/Aman-CERP/saesagent/internal/errors"
)

// newHTTPClient builds a pooled client. Per-request deadlines come from
// the context, so the client itself has no Timeout.
func newHTTPClient(poolSize int) *http.Client {
	if poolSize <= 0 {
		poolSize = 4
	}
	return &http.Client{Transport: &http.Transport{
		MaxIdleConns:        poolSize,
		MaxIdleConnsPerHost: poolSize,
		IdleConnTimeout:     30 * time.Second,
	}}
}

// postJSON sends body to url and decodes a 200 response into out.
// Transport failures and 5xx/429 responses are retryable; other statuses are not.
func postJSON(ctx context.Context, client *http.Client, url, bearer string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := client.Do(req)
	if err != nil {
		return saeserrors.New(saeserrors.ErrCodeEmbeddingFailed, "embedding request failed", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		code := saeserrors.ErrCodeInvalidInput
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			code = saeserrors.ErrCodeEmbeddingFailed
		}
		return saeserrors.New(code, fmt.Sprintf("embedding service returned %d: %s", resp.StatusCode, msg), nil).
			WithDetail("url", url)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return saeserrors.New(saeserrors.ErrCodeEmbeddingFailed, "decode embedding response", err)
	}
	return nil
}

func retryConfig(maxRetries int) saeserrors.RetryConfig {
	cfg := saeserrors.DefaultRetryConfig()
	cfg.MaxRetries = maxRetries
	cfg.ShouldRetry = saeserrors.IsRetryable
	return cfg
}
