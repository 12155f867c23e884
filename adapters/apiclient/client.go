// Package apiclient implements the client-side verifier and approver ports
// over the signer service's HTTP API, for game surfaces that do not run in
// the same process as the service.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/crosswalk-games/pointbridge/core"
	"github.com/crosswalk-games/pointbridge/ports"
)

// Client talks to the pointbridge HTTP API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates an API client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
}

var (
	_ ports.AssertionVerifier = (*Client)(nil)
	_ ports.ActionApprover    = (*Client)(nil)
)

type envelope struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

type verifyRequest struct {
	WalletAddress string `json:"walletAddress"`
	Signature     string `json:"signature"`
	Message       string `json:"message"`
	Timestamp     int64  `json:"timestamp"`
}

type signActionRequest struct {
	WalletAddress string `json:"walletAddress"`
	Action        string `json:"action"`
	Amount        int64  `json:"amount"`
	CurrentNonce  int64  `json:"currentNonce"`
	AuthSignature string `json:"authSignature"`
	AuthMessage   string `json:"authMessage"`
	AuthTimestamp int64  `json:"authTimestamp"`
}

type signActionData struct {
	Signature string `json:"signature"`
	NextNonce int64  `json:"nextNonce"`
}

// Verify submits the assertion to POST /api/verify-signature. The server
// always applies the interactive window to this endpoint; the kind
// argument only exists to satisfy the port.
func (c *Client) Verify(assertion core.AuthAssertion, _ core.WindowKind) error {
	env, err := c.post(context.Background(), "/api/verify-signature", verifyRequest{
		WalletAddress: assertion.WalletAddress,
		Signature:     assertion.Signature,
		Message:       assertion.Message,
		Timestamp:     assertion.Timestamp,
	})
	if err != nil {
		return err
	}
	if !env.Success {
		return fmt.Errorf("%w: %s", core.ErrVerificationFailed, env.Error)
	}
	return nil
}

// SignAction submits the request to POST /api/sign-action.
func (c *Client) SignAction(ctx context.Context, req core.ActionRequest) (core.ActionApproval, error) {
	env, err := c.post(ctx, "/api/sign-action", signActionRequest{
		WalletAddress: req.WalletAddress,
		Action:        string(req.Action),
		Amount:        req.Amount,
		CurrentNonce:  req.CurrentNonce,
		AuthSignature: req.Auth.Signature,
		AuthMessage:   req.Auth.Message,
		AuthTimestamp: req.Auth.Timestamp,
	})
	if err != nil {
		return core.ActionApproval{}, err
	}
	if !env.Success {
		return core.ActionApproval{}, fmt.Errorf("%w: %s", core.ErrAuthenticationFailed, env.Error)
	}

	var data signActionData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return core.ActionApproval{}, fmt.Errorf("failed to decode sign-action response: %w", err)
	}
	return core.ActionApproval{Signature: data.Signature, NextNonce: data.NextNonce}, nil
}

func (c *Client) post(ctx context.Context, path string, body any) (*envelope, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request to %s failed: %w", path, err)
	}
	defer resp.Body.Close()

	env := &envelope{}
	if err := json.NewDecoder(resp.Body).Decode(env); err != nil {
		return nil, fmt.Errorf("failed to decode response from %s: %w", path, err)
	}
	return env, nil
}
