package vimeo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/iconidentify/scriptcast/internal/config"
)

// Metadata describes the uploaded video.
type Metadata struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Client interfaces with the Vimeo hosting API.
type Client interface {
	// Upload uploads the local file and returns the asset URI.
	Upload(ctx context.Context, path string, meta Metadata) (string, error)
	// SetPrivacy patches one privacy field of the asset, e.g.
	// ("view", "anybody") or ("embed", "public").
	SetPrivacy(ctx context.Context, uri, field, value string) error
	// Link resolves the durable shareable link of the asset.
	Link(ctx context.Context, uri string) (string, error)
}

// HTTPClient implements Client using HTTP requests to the Vimeo API.
type HTTPClient struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a new Vimeo API client.
func NewClient(cfg config.VimeoConfig) *HTTPClient {
	return &HTTPClient{
		token:   cfg.Token,
		baseURL: cfg.BaseURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

const acceptHeader = "application/vnd.vimeo.*+json;version=3.4"

type createUploadRequest struct {
	Upload struct {
		Approach string `json:"approach"`
		Size     int64  `json:"size"`
	} `json:"upload"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type createUploadResponse struct {
	URI    string `json:"uri"`
	Upload struct {
		UploadLink string `json:"upload_link"`
	} `json:"upload"`
}

// Upload creates the video container and streams the file to the
// returned upload link (tus single-request upload).
func (c *HTTPClient) Upload(ctx context.Context, path string, meta Metadata) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("stat file: %w", err)
	}

	createReq := createUploadRequest{
		Name:        meta.Name,
		Description: meta.Description,
	}
	createReq.Upload.Approach = "tus"
	createReq.Upload.Size = info.Size()

	body, err := json.Marshal(createReq)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/me/videos", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("create upload failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	var createResp createUploadResponse
	if err := json.Unmarshal(respBody, &createResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if createResp.URI == "" || createResp.Upload.UploadLink == "" {
		return "", fmt.Errorf("create upload response missing uri or upload_link")
	}

	if err := c.uploadFile(ctx, createResp.Upload.UploadLink, path, info.Size()); err != nil {
		return "", err
	}

	return createResp.URI, nil
}

// uploadFile streams the file body to the tus upload link.
func (c *HTTPClient) uploadFile(ctx context.Context, uploadLink, path string, size int64) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open file: %w", err)
	}
	defer f.Close()

	httpReq, err := http.NewRequestWithContext(ctx, "PATCH", uploadLink, f)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.ContentLength = size
	httpReq.Header.Set("Tus-Resumable", "1.0.0")
	httpReq.Header.Set("Upload-Offset", "0")
	httpReq.Header.Set("Content-Type", "application/offset+octet-stream")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("upload file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("upload failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	return nil
}

// SetPrivacy patches one privacy field of the asset.
func (c *HTTPClient) SetPrivacy(ctx context.Context, uri, field, value string) error {
	payload := map[string]map[string]string{
		"privacy": {field: value},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "PATCH", c.baseURL+uri, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("set privacy %s=%s failed (status %d): %s", field, value, resp.StatusCode, string(respBody))
	}

	return nil
}

// Link resolves the durable shareable link of the asset.
func (c *HTTPClient) Link(ctx context.Context, uri string) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+uri+"?fields=link", nil)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	c.setHeaders(httpReq)

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
		return "", fmt.Errorf("link lookup failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	var linkResp struct {
		Link string `json:"link"`
	}
	if err := json.Unmarshal(respBody, &linkResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if linkResp.Link == "" {
		return "", fmt.Errorf("link lookup response missing link")
	}

	return linkResp.Link, nil
}

func (c *HTTPClient) setHeaders(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", acceptHeader)
}
