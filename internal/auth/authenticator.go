package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/iconidentify/scriptcast/internal/config"
)

// ErrUnauthenticated is returned when a credential cannot be resolved
// to a user.
var ErrUnauthenticated = errors.New("unauthenticated")

// Authenticator resolves a bearer credential to the owning user ID.
// Session and credential management live in a separate service; this
// backend only needs the token-to-user mapping.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (string, error)
}

// HTTPAuthenticator implements Authenticator against the external
// verification endpoint.
type HTTPAuthenticator struct {
	verifyURL  string
	httpClient *http.Client
}

// NewHTTPAuthenticator creates a new HTTP-based authenticator.
func NewHTTPAuthenticator(cfg config.AuthConfig) *HTTPAuthenticator {
	return &HTTPAuthenticator{
		verifyURL: cfg.VerifyURL,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
	}
}

type verifyRequest struct {
	Token string `json:"token"`
}

type verifyResponse struct {
	UserID string `json:"user_id"`
}

// Authenticate posts the token to the verify endpoint and returns the
// resolved user ID.
func (a *HTTPAuthenticator) Authenticate(ctx context.Context, token string) (string, error) {
	if token == "" {
		return "", ErrUnauthenticated
	}

	body, err := json.Marshal(verifyRequest{Token: token})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", a.verifyURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return "", ErrUnauthenticated
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("verify failed (status %d): %s", resp.StatusCode, string(respBody))
	}

	var verifyResp verifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&verifyResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}
	if verifyResp.UserID == "" {
		return "", ErrUnauthenticated
	}

	return verifyResp.UserID, nil
}
