package heygen

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/iconidentify/scriptcast/internal/config"
	"github.com/iconidentify/scriptcast/internal/domain"
)

// Status is the reported state of a generation job.
type Status string

const (
	StatusWaiting    Status = "waiting"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Pending reports whether the job is still in a non-terminal state.
func (s Status) Pending() bool {
	return s == StatusWaiting || s == StatusProcessing
}

// CheckResult is the outcome of one status poll. VideoURL is set only
// when Status is completed.
type CheckResult struct {
	Status   Status
	VideoURL string
}

// Client interfaces with the HeyGen template video generation API.
type Client interface {
	// Submit starts a generation job for the two scripts and returns
	// the job's video ID.
	Submit(ctx context.Context, script domain.Script) (string, error)
	// Check polls the status of a generation job.
	Check(ctx context.Context, videoID string) (*CheckResult, error)
}

// HTTPClient implements Client using HTTP requests to the HeyGen API.
type HTTPClient struct {
	apiKey     string
	baseURL    string
	templateID string
	httpClient *http.Client
}

// NewClient creates a new HeyGen API client.
func NewClient(cfg config.HeyGenConfig) *HTTPClient {
	return &HTTPClient{
		apiKey:     cfg.APIKey,
		baseURL:    cfg.BaseURL,
		templateID: cfg.TemplateID,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

// Output dimensions and flags for template renders.
const (
	videoWidth  = 1280
	videoHeight = 720
)

type templateVariable struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Properties struct {
		Content string `json:"content"`
	} `json:"properties"`
}

type generateRequest struct {
	Caption       bool                        `json:"caption"`
	Title         string                      `json:"title"`
	Dimension     map[string]int              `json:"dimension"`
	IncludeGIF    bool                        `json:"include_gif"`
	EnableSharing bool                        `json:"enable_sharing"`
	Variables     map[string]templateVariable `json:"variables"`
}

type generateResponse struct {
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
	Data struct {
		VideoID string `json:"video_id"`
	} `json:"data"`
}

type statusResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    struct {
		Status   string `json:"status"`
		VideoURL string `json:"video_url"`
	} `json:"data"`
}

func textVariable(name, content string) templateVariable {
	v := templateVariable{Name: name, Type: "text"}
	v.Properties.Content = content
	return v
}

// Submit starts a generation job embedding both scripts as template
// variables and returns the job's video ID.
func (c *HTTPClient) Submit(ctx context.Context, script domain.Script) (string, error) {
	genReq := generateRequest{
		Caption: false,
		Title:   "Untitled Video",
		Dimension: map[string]int{
			"width":  videoWidth,
			"height": videoHeight,
		},
		Variables: map[string]templateVariable{
			"text1": textVariable("text1", script.Script1),
			"text2": textVariable("text2", script.Script2),
		},
	}

	body, err := json.Marshal(genReq)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	endpoint := fmt.Sprintf("%s/v2/template/%s/generate", c.baseURL, c.templateID)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("generate request failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	var genResp generateResponse
	if err := json.Unmarshal(respBody, &genResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if genResp.Error != nil && genResp.Error.Message != "" {
		return "", fmt.Errorf("generate request failed: %s", genResp.Error.Message)
	}

	if genResp.Data.VideoID == "" {
		return "", fmt.Errorf("generate response missing video_id")
	}

	return genResp.Data.VideoID, nil
}

// Check polls the status of a generation job by video ID.
func (c *HTTPClient) Check(ctx context.Context, videoID string) (*CheckResult, error) {
	endpoint := fmt.Sprintf("%s/v1/video_status.get?video_id=%s", c.baseURL, url.QueryEscape(videoID))
	httpReq, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("X-Api-Key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status check failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	var statusResp statusResponse
	if err := json.Unmarshal(respBody, &statusResp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}

	// The status API wraps everything in an envelope; code 100 is its
	// only success value.
	if statusResp.Code != 100 {
		return nil, fmt.Errorf("status check failed: %s", statusResp.Message)
	}

	return &CheckResult{
		Status:   Status(statusResp.Data.Status),
		VideoURL: statusResp.Data.VideoURL,
	}, nil
}
