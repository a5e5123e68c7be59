// Package api holds HTTP clients for the foundry backend and its voice
// control plane.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode"
)

// apiError is the error body both planes return: {"detail": "..."}.
type apiError struct {
	Detail string `json:"detail"`
}

// VoiceClient talks to the voice control plane.
type VoiceClient struct {
	baseURL string
	http    *http.Client
}

// NewVoiceClient creates a client for the given base URL.
func NewVoiceClient(baseURL string) *VoiceClient {
	return &VoiceClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
}

// CreateKnowledgeBase ingests a landing page URL into the voice agent's
// knowledge base and returns the server's status message.
func (c *VoiceClient) CreateKnowledgeBase(ctx context.Context, url string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", fmt.Errorf("knowledge base URL cannot be empty")
	}

	var out struct {
		Message string `json:"message"`
	}
	err := c.postJSON(ctx, "/create-knowledge-base", map[string]string{"url": url}, &out)
	if err != nil {
		return "", err
	}
	if out.Message == "" {
		out.Message = "Knowledge base created."
	}
	return out.Message, nil
}

// StartCall places an outbound call to the given phone number. Separator
// characters are stripped and bare 10-digit numbers get the +91 country
// code, matching what the backend dialer expects.
func (c *VoiceClient) StartCall(ctx context.Context, phone string) (string, error) {
	normalized, err := NormalizePhone(phone)
	if err != nil {
		return "", err
	}

	var out struct {
		Message string `json:"message"`
		CallID  string `json:"call_id"`
	}
	err = c.postJSON(ctx, "/start-call", map[string]string{"phone_number": normalized}, &out)
	if err != nil {
		return "", err
	}
	if out.Message == "" {
		out.Message = fmt.Sprintf("Call started to %s.", normalized)
	}
	return out.Message, nil
}

// GeneratePrompt asks the voice plane to draft a sales-call system prompt
// for a product.
func (c *VoiceClient) GeneratePrompt(ctx context.Context, productName, productURL string) (string, error) {
	productName = strings.TrimSpace(productName)
	productURL = strings.TrimSpace(productURL)
	if productName == "" || productURL == "" {
		return "", fmt.Errorf("product name and URL are both required")
	}

	var out struct {
		SystemPrompt string `json:"system_prompt"`
	}
	err := c.postJSON(ctx, "/generate-prompt", map[string]string{
		"product_name": productName,
		"product_url":  productURL,
	}, &out)
	if err != nil {
		return "", err
	}
	return out.SystemPrompt, nil
}

func (c *VoiceClient) postJSON(ctx context.Context, path string, body any, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Detail != "" {
			return fmt.Errorf("%s: %s", path, apiErr.Detail)
		}
		return fmt.Errorf("%s: unexpected status %d", path, resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// NormalizePhone strips spaces, dashes, dots, and parentheses, then adds
// the +91 country code to bare 10-digit numbers.
func NormalizePhone(phone string) (string, error) {
	var b strings.Builder
	for _, r := range strings.TrimSpace(phone) {
		switch {
		case unicode.IsDigit(r):
			b.WriteRune(r)
		case r == '+':
			b.WriteRune(r)
		case r == ' ', r == '-', r == '.', r == '(', r == ')':
			// separator, drop it
		default:
			return "", fmt.Errorf("invalid character %q in phone number", r)
		}
	}

	n := b.String()
	if n == "" {
		return "", fmt.Errorf("phone number cannot be empty")
	}
	if strings.Contains(n[1:], "+") {
		return "", fmt.Errorf("misplaced + in phone number")
	}
	if !strings.HasPrefix(n, "+") && len(n) == 10 {
		n = "+91" + n
	}
	return n, nil
}
