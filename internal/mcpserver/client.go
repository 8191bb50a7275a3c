package mcpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Config holds the configuration for connecting to the TrustGate API.
type Config struct {
	APIURL string // Base URL, e.g. "http://localhost:8080"
	APIKey string // API key, e.g. "sk_..."
}

// TrustGateClient is a pure HTTP client for the TrustGate API.
type TrustGateClient struct {
	cfg        Config
	httpClient *http.Client
}

// NewTrustGateClient creates a new client for the TrustGate API.
func NewTrustGateClient(cfg Config) *TrustGateClient {
	return &TrustGateClient{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// apiError represents an error response from the API.
type apiError struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// doRequest makes an HTTP request to the API and returns the response body.
func (c *TrustGateClient) doRequest(ctx context.Context, method, path string, query url.Values, body any) (json.RawMessage, error) {
	u, err := url.Parse(c.cfg.APIURL + path)
	if err != nil {
		return nil, fmt.Errorf("invalid URL: %w", err)
	}
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		var apiErr apiError
		if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Message != "" {
			return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
	}

	return json.RawMessage(respBody), nil
}

// Evaluate submits a signal snapshot for trust scoring.
func (c *TrustGateClient) Evaluate(ctx context.Context, snapshot map[string]any) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodPost, "/v1/evaluations", nil, snapshot)
}

// GetEvaluation fetches a stored evaluation by ID.
func (c *TrustGateClient) GetEvaluation(ctx context.Context, id string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/evaluations/"+id, nil, nil)
}

// ListEvaluations lists a user's recent evaluations, optionally narrowed
// to a single device.
func (c *TrustGateClient) ListEvaluations(ctx context.Context, userID, deviceID string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	path := "/v1/users/" + userID + "/evaluations"
	if deviceID != "" {
		path = "/v1/users/" + userID + "/devices/" + deviceID + "/evaluations"
	}
	return c.doRequest(ctx, http.MethodGet, path, q, nil)
}

// GetDecayHistory returns the user's recorded score-decay events.
func (c *TrustGateClient) GetDecayHistory(ctx context.Context, userID string, limit int) (json.RawMessage, error) {
	q := url.Values{}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/users/"+userID+"/decay", q, nil)
}

// ListClusters returns the user's learned location clusters.
func (c *TrustGateClient) ListClusters(ctx context.Context, userID string) (json.RawMessage, error) {
	return c.doRequest(ctx, http.MethodGet, "/v1/users/"+userID+"/clusters", nil, nil)
}

// GetBaseline returns the stored attribute baseline for a user+device.
func (c *TrustGateClient) GetBaseline(ctx context.Context, userID, deviceID string) (json.RawMessage, error) {
	path := "/v1/users/" + userID + "/devices/" + deviceID + "/baseline"
	return c.doRequest(ctx, http.MethodGet, path, nil, nil)
}
