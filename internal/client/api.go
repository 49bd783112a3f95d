// Package client implements the HTTP API client for the KeyGate server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// APIError is a non-2xx answer from the server, carrying the machine
// readable code from the response body.
type APIError struct {
	StatusCode int
	Code       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d (%s)", e.StatusCode, e.Code)
}

type TwoFactorSecret struct {
	Secret string `json:"secret"`
	URI    string `json:"uri"`
}

type SignUpResult struct {
	ID              string          `json:"id"`
	Username        string          `json:"username"`
	TwoFactorSecret TwoFactorSecret `json:"twoFactorSecret"`
}

type Setup2FAResult struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

type SignInResult struct {
	ID              string           `json:"id"`
	Username        string           `json:"username"`
	TempToken       string           `json:"tempToken"`
	TwoFactorSecret *TwoFactorSecret `json:"twoFactorSecret"`
}

type TokenPair struct {
	ID           string `json:"id"`
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	ExpiresIn    int64  `json:"expiresIn"`
}

type UserInfo struct {
	ID              string          `json:"id"`
	Username        string          `json:"username"`
	TwoFactorSecret TwoFactorSecret `json:"twoFactorSecret"`
	CreatedAt       int64           `json:"createdAt"`
	UpdatedAt       int64           `json:"updatedAt"`
}

type PublicUserInfo struct {
	Salt            string `json:"salt"`
	SigninChallenge string `json:"signinChallenge"`
}

// Client talks to one KeyGate server.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
	}
}

func (c *Client) SignUp(ctx context.Context, username, salt, signingPublicKey, encryptionPublicKey string) (*SignUpResult, error) {
	body := map[string]string{
		"username":            username,
		"salt":                salt,
		"signingPublicKey":    signingPublicKey,
		"encryptionPublicKey": encryptionPublicKey,
	}
	out := &SignUpResult{}
	if err := c.post(ctx, "/v1/sign-up", body, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Setup2FA(ctx context.Context, username, token string) (*Setup2FAResult, error) {
	body := map[string]string{"username": username, "token": token}
	out := &Setup2FAResult{}
	if err := c.post(ctx, "/v1/2fa/setup", body, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SignIn(ctx context.Context, username, signature string) (*SignInResult, error) {
	body := map[string]string{"username": username, "signature": signature}
	out := &SignInResult{}
	if err := c.post(ctx, "/v1/sign-in", body, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) VerifySignIn2FA(ctx context.Context, tempToken, twoFactorToken string) (*TokenPair, error) {
	body := map[string]string{"tempToken": tempToken, "twoFactorToken": twoFactorToken}
	out := &TokenPair{}
	if err := c.post(ctx, "/v1/sign-in/2fa", body, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RefreshTokens(ctx context.Context, refreshToken string) (*TokenPair, error) {
	body := map[string]string{"refreshToken": refreshToken}
	out := &TokenPair{}
	if err := c.post(ctx, "/v1/sign-in/refresh", body, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) GetUser(ctx context.Context, accessToken string) (*UserInfo, error) {
	out := &UserInfo{}
	if err := c.do(ctx, http.MethodGet, "/v1/me", nil, accessToken, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteUser(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodDelete, "/v1/me", nil, accessToken, nil)
}

func (c *Client) GetUserPublic(ctx context.Context, username string) (*PublicUserInfo, error) {
	out := &PublicUserInfo{}
	path := "/v1/me-public/" + url.PathEscape(username)
	if err := c.do(ctx, http.MethodGet, path, nil, "", out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, "", out)
}

func (c *Client) do(ctx context.Context, method, path string, body any, accessToken string, out any) error {

	var reqBody bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&reqBody).Encode(body); err != nil {
			return fmt.Errorf("error encoding request: %w", err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &reqBody)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if accessToken != "" {
		req.Header.Set("Authorization", "Bearer "+accessToken)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		var errBody struct {
			Code string `json:"code"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&errBody); err == nil {
			apiErr.Code = errBody.Code
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("error decoding response: %w", err)
	}
	return nil
}
