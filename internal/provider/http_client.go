package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/membership-split-service/internal/config"
)

// HTTPClient talks to the payment provider's REST API.
type HTTPClient struct {
	logger     *slog.Logger
	httpClient *http.Client
	baseURL    string
	apiKey     string
}

func NewHTTPClient(logger *slog.Logger, cfg *config.ProviderConfig) *HTTPClient {
	return &HTTPClient{
		logger:     logger,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:     cfg.APIKey,
	}
}

func (c *HTTPClient) CreateTransfer(ctx context.Context, idempotencyKey string, req *TransferRequest) (*Transfer, error) {
	var transfer Transfer
	if err := c.post(ctx, "/v1/transfers", idempotencyKey, req, &transfer); err != nil {
		return nil, fmt.Errorf("failed to create transfer: %w", err)
	}
	return &transfer, nil
}

func (c *HTTPClient) ReverseTransfer(ctx context.Context, idempotencyKey string, transferID string, amountUnits int64) (*Reversal, error) {
	body := struct {
		AmountUnits int64 `json:"amount"`
	}{AmountUnits: amountUnits}

	path := fmt.Sprintf("/v1/transfers/%s/reversals", transferID)

	var reversal Reversal
	if err := c.post(ctx, path, idempotencyKey, body, &reversal); err != nil {
		return nil, fmt.Errorf("failed to reverse transfer %s: %w", transferID, err)
	}
	return &reversal, nil
}

func (c *HTTPClient) post(ctx context.Context, path string, idempotencyKey string, reqBody interface{}, respBody interface{}) error {
	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonBody))
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("Idempotency-Key", idempotencyKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request to provider failed: %w", err)
	}
	defer resp.Body.Close()

	rawBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read provider response: %w", err)
	}

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		if unmarshalErr := json.Unmarshal(rawBody, apiErr); unmarshalErr != nil || apiErr.Message == "" {
			apiErr.Message = string(rawBody)
		}
		c.logger.Warn("Provider API call failed",
			"path", path,
			"status", resp.StatusCode,
			"idempotency_key", idempotencyKey,
		)
		return apiErr
	}

	if err := json.Unmarshal(rawBody, respBody); err != nil {
		return fmt.Errorf("failed to unmarshal provider response: %w", err)
	}
	return nil
}
