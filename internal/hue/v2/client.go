package v2

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/dokzlo13/combinedd/internal/light"
)

// Client provides access to Hue V2 API (CLIP API).
// This client is HTTP-only with no caching - pure transport layer.
type Client struct {
	address    string
	token      string
	httpClient *http.Client
}

// NewClient creates a new V2 API client.
// The httpClient should have TLS verification disabled for Hue bridge's self-signed cert.
func NewClient(address, token string, httpClient *http.Client) *Client {
	return &Client{
		address:    address,
		token:      token,
		httpClient: httpClient,
	}
}

// Address returns the bridge address
func (c *Client) Address() string {
	return c.address
}

// Token returns the application key (for SSE)
func (c *Client) Token() string {
	return c.token
}

// Close closes idle connections
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// Connect tests connectivity to the V2 API
func (c *Client) Connect(ctx context.Context) error {
	resp, err := c.Request(ctx, http.MethodGet, "resource/bridge", nil)
	if err != nil {
		return fmt.Errorf("failed to connect to Hue bridge V2 API: %w", err)
	}
	defer resp.Body.Close()
	return checkStatus(resp)
}

func (c *Client) url(path string) string {
	return fmt.Sprintf("https://%s/clip/v2/%s", c.address, path)
}

// Request performs an HTTP request to the V2 API
func (c *Client) Request(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.url(path), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("hue-application-key", c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.httpClient.Do(req)
}

// GetLight returns a light by ID
func (c *Client) GetLight(ctx context.Context, lightID string) (*Light, error) {
	resp, err := c.Request(ctx, http.MethodGet, "resource/light/"+lightID, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, fmt.Errorf("light %q: %w", lightID, err)
	}

	var result struct {
		Data []Light `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	if len(result.Data) == 0 {
		return nil, fmt.Errorf("light %q: %w", lightID, light.ErrNotFound)
	}

	return &result.Data[0], nil
}

// GetLights returns all lights
func (c *Client) GetLights(ctx context.Context) ([]Light, error) {
	resp, err := c.Request(ctx, http.MethodGet, "resource/light", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return nil, err
	}

	var result struct {
		Data []Light `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, err
	}

	return result.Data, nil
}

// UpdateLight updates a light
func (c *Client) UpdateLight(ctx context.Context, lightID string, update LightUpdate) error {
	bodyBytes, err := json.Marshal(update)
	if err != nil {
		return err
	}

	resp, err := c.Request(ctx, http.MethodPut, "resource/light/"+lightID, bytes.NewReader(bodyBytes))
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := checkStatus(resp); err != nil {
		return fmt.Errorf("failed to update light %q: %w", lightID, err)
	}

	return nil
}

// checkStatus turns a non-2xx response into an error.
// 404 maps to light.ErrNotFound and 400 to light.ErrInvalidValue.
func checkStatus(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(resp.Body)
	msg := describeErrors(body)

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", light.ErrNotFound, msg)
	case http.StatusBadRequest:
		return fmt.Errorf("%w: %s", light.ErrInvalidValue, msg)
	default:
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, msg)
	}
}

func describeErrors(body []byte) string {
	var result struct {
		Errors []apiError `json:"errors"`
	}
	if err := json.Unmarshal(body, &result); err != nil || len(result.Errors) == 0 {
		return strings.TrimSpace(string(body))
	}
	parts := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		parts = append(parts, e.Description)
	}
	return strings.Join(parts, "; ")
}
