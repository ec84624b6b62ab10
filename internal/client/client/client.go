// Package client implements the HTTP client for the termbind backend.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/dmitrijs2005/termbind/internal/common"
)

// PairingResult is the decoded outcome of a pairing register/poll call.
// Token and Response are only set when State is "authorized".
type PairingResult struct {
	State    string
	Token    string
	Response []byte
}

// Client is the backend API surface the agent depends on.
type Client interface {
	DirectoryLogin(ctx context.Context, username, password string) (token, secret string, err error)
	NASCredentials(ctx context.Context, token, username string) (user, password string, err error)
	SignatureLogin(ctx context.Context, publicKey, challenge, signature []byte) (string, error)
	RequestPairing(ctx context.Context, publicKey []byte, supportsV2 bool) (*PairingResult, error)
	PairingStatus(ctx context.Context, publicKey []byte) (state string, supportsV2 bool, err error)
	RespondPairing(ctx context.Context, token string, publicKey, response []byte) error
}

// HTTPClient implements Client over net/http.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path, token string, in, out any) (int, error) {
	var body bytes.Buffer
	if in != nil {
		if err := json.NewEncoder(&body).Encode(in); err != nil {
			return 0, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(common.AuthorizationHeaderName, "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return resp.StatusCode, fmt.Errorf("malformed response: %w", err)
		}
	}
	return resp.StatusCode, nil
}

func statusError(status int) error {
	switch status {
	case http.StatusUnauthorized:
		return common.ErrUnauthorized
	case http.StatusNotFound:
		return common.ErrNotFound
	default:
		return fmt.Errorf("unexpected status %d", status)
	}
}

func (c *HTTPClient) DirectoryLogin(ctx context.Context, username, password string) (string, string, error) {
	var res struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
		Secret  string `json:"secret"`
	}
	status, err := c.doJSON(ctx, http.MethodPost, "/auth/ad", "", map[string]string{
		"username": username,
		"password": password,
	}, &res)
	if err != nil {
		return "", "", err
	}
	if status == http.StatusUnauthorized {
		return "", "", common.ErrInvalidCredentials
	}
	if status != http.StatusOK || !res.Success {
		return "", "", statusError(status)
	}
	return res.Token, res.Secret, nil
}

func (c *HTTPClient) NASCredentials(ctx context.Context, token, username string) (string, string, error) {
	var res struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	path := "/auth/ad/nas-credentials?username=" + url.QueryEscape(username)
	status, err := c.doJSON(ctx, http.MethodGet, path, token, nil, &res)
	if err != nil {
		return "", "", err
	}
	if status != http.StatusOK {
		return "", "", statusError(status)
	}
	return res.Username, res.Password, nil
}

func (c *HTTPClient) SignatureLogin(ctx context.Context, publicKey, challenge, signature []byte) (string, error) {
	var res struct {
		Token string `json:"token"`
	}
	status, err := c.doJSON(ctx, http.MethodPost, "/auth", "", map[string]string{
		"publicKey": base64.StdEncoding.EncodeToString(publicKey),
		"challenge": base64.StdEncoding.EncodeToString(challenge),
		"signature": base64.StdEncoding.EncodeToString(signature),
	}, &res)
	if err != nil {
		return "", err
	}
	if status != http.StatusOK {
		return "", statusError(status)
	}
	return res.Token, nil
}

func (c *HTTPClient) RequestPairing(ctx context.Context, publicKey []byte, supportsV2 bool) (*PairingResult, error) {
	var res struct {
		State    string `json:"state"`
		Token    string `json:"token"`
		Response string `json:"response"`
	}
	status, err := c.doJSON(ctx, http.MethodPost, "/auth/request", "", map[string]any{
		"publicKey":  hex.EncodeToString(publicKey),
		"supportsV2": supportsV2,
	}, &res)
	if err != nil {
		return nil, err
	}
	if status != http.StatusOK {
		return nil, statusError(status)
	}

	result := &PairingResult{State: res.State, Token: res.Token}
	if res.Response != "" {
		payload, err := base64.StdEncoding.DecodeString(res.Response)
		if err != nil {
			return nil, fmt.Errorf("malformed response payload: %w", err)
		}
		result.Response = payload
	}
	return result, nil
}

func (c *HTTPClient) PairingStatus(ctx context.Context, publicKey []byte) (string, bool, error) {
	var res struct {
		State      string `json:"state"`
		SupportsV2 bool   `json:"supportsV2"`
	}
	path := "/auth/request/status?publicKey=" + hex.EncodeToString(publicKey)
	status, err := c.doJSON(ctx, http.MethodGet, path, "", nil, &res)
	if err != nil {
		return "", false, err
	}
	if status != http.StatusOK {
		return "", false, statusError(status)
	}
	return res.State, res.SupportsV2, nil
}

func (c *HTTPClient) RespondPairing(ctx context.Context, token string, publicKey, response []byte) error {
	status, err := c.doJSON(ctx, http.MethodPost, "/auth/response", token, map[string]string{
		"publicKey": hex.EncodeToString(publicKey),
		"response":  base64.StdEncoding.EncodeToString(response),
	}, nil)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return statusError(status)
	}
	return nil
}
