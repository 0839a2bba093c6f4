package sdk

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	return &Client{BaseURL: baseURL, HTTP: http.DefaultClient}
}

// CreateCheckoutSession starts a subscription checkout and returns the
// provider session ID to redirect the member to.
func (c *Client) CreateCheckoutSession(priceID string) (string, error) {
	body := fmt.Sprintf(`{"priceId":%q}`, priceID)
	req, _ := http.NewRequest("POST", c.BaseURL+"/api/create-checkout-session", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	var out struct {
		ID    string `json:"id"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("checkout session failed (%d): %s", resp.StatusCode, out.Error)
	}
	return out.ID, nil
}

// Login exchanges member credentials for a session token.
func (c *Client) Login(email, password string) (string, error) {
	body := fmt.Sprintf(`{"email":%q,"password":%q}`, email, password)
	req, _ := http.NewRequest("POST", c.BaseURL+"/api/login", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", err
	}
	defer func() { _ = resp.Body.Close() }()
	var out struct {
		Token string `json:"token"`
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("login failed (%d): %s", resp.StatusCode, out.Error)
	}
	return out.Token, nil
}

// Me returns the account bound to a session token.
func (c *Client) Me(token string) (map[string]interface{}, error) {
	req, _ := http.NewRequest("GET", c.BaseURL+"/api/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("me failed (%d)", resp.StatusCode)
	}
	var out map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, err
	}
	return out, nil
}

// Health checks the service health endpoint.
func (c *Client) Health() (bool, error) {
	resp, err := c.HTTP.Get(c.BaseURL + "/health")
	if err != nil {
		return false, err
	}
	defer func() { _ = resp.Body.Close() }()
	return resp.StatusCode == http.StatusOK, nil
}
