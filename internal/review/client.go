package review

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultBaseURL = "https://dashscope.aliyuncs.com"

const generationPath = "/api/v1/services/aigc/text-generation/generation"

// Client calls the DashScope text-generation API to judge flagged
// segments. Failures of any kind are surfaced to the caller as-is;
// there is no retry policy at this boundary.
type Client struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	stats      *CallStats
}

func NewClient(apiKey, model string) *Client {
	return &Client{
		apiKey:  apiKey,
		model:   model,
		baseURL: defaultBaseURL,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
		stats: NewCallStats(time.Hour),
	}
}

// Stats reports latency and failure aggregates for recent review calls.
func (c *Client) Stats() StatsSnapshot {
	return c.stats.Snapshot()
}

// WithBaseURL points the client at another DashScope endpoint (the
// international one, or a test server).
func (c *Client) WithBaseURL(baseURL string) *Client {
	c.baseURL = baseURL
	return c
}

type generationRequest struct {
	Model string          `json:"model"`
	Input generationInput `json:"input"`
}

type generationInput struct {
	Prompt string `json:"prompt"`
}

type generationResponse struct {
	Output struct {
		Text string `json:"text"`
	} `json:"output"`
	RequestID string `json:"request_id"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

// Review sends the prompt and returns the model's free-form verdict
// text.
func (c *Client) Review(ctx context.Context, prompt string) (text string, err error) {
	start := time.Now()
	defer func() {
		c.stats.Record(time.Since(start).Milliseconds(), err != nil)
	}()

	reqBody := generationRequest{
		Model: c.model,
		Input: generationInput{Prompt: prompt},
	}
	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+generationPath, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("dashscope api: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	var apiResp generationResponse
	if err := json.Unmarshal(respBody, &apiResp); err != nil && resp.StatusCode == http.StatusOK {
		return "", fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode != http.StatusOK || apiResp.Code != "" {
		return "", &APIError{
			StatusCode: resp.StatusCode,
			Code:       apiResp.Code,
			Message:    firstNonEmpty(apiResp.Message, string(respBody)),
		}
	}
	if apiResp.Output.Text == "" {
		return "", fmt.Errorf("empty response from dashscope (request %s)", apiResp.RequestID)
	}
	return apiResp.Output.Text, nil
}

// APIError carries a failed call's status and message verbatim so the
// user sees exactly what the service reported.
type APIError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("dashscope status %d: %s: %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("dashscope status %d: %s", e.StatusCode, e.Message)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// Close releases resources.
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}
