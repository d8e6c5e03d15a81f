// Package backend is the HTTP client for the consent backend of record.
// All read-model data (pending requests, active consents, audit log) is
// owned by the backend; this client only projects it.
package backend

import (
	"bytes"
	"context"
	"crypto/tls"
	"crypto/x509"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/org/consentd/pkg/models"
)

// Client is an HTTP client for the consent backend API.
type Client struct {
	addr string
	http *http.Client
}

// Config holds backend connection settings.
type Config struct {
	Address   string
	TLSCACert string
	Timeout   time.Duration
}

// New creates a Client from the given config.
func New(cfg Config) *Client {
	addr := cfg.Address
	if v := os.Getenv("CONSENT_BACKEND_ADDR"); v != "" {
		addr = v
	}

	tlsCfg := &tls.Config{}
	if cfg.TLSCACert != "" {
		data, err := os.ReadFile(cfg.TLSCACert)
		if err == nil {
			pool := x509.NewCertPool()
			pool.AppendCertsFromPEM(data)
			tlsCfg.RootCAs = pool
		}
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Client{
		addr: addr,
		http: &http.Client{
			Timeout:   timeout,
			Transport: &http.Transport{TLSClientConfig: tlsCfg},
		},
	}
}

// Addr returns the configured backend address.
func (c *Client) Addr() string { return c.addr }

func (c *Client) do(ctx context.Context, method, path, token string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.addr+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	return c.http.Do(req)
}

func (c *Client) getJSON(ctx context.Context, path, token string, dst any) error {
	resp, err := c.do(ctx, "GET", path, token, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= 400 {
		return httpError(resp.StatusCode, data)
	}
	return json.Unmarshal(data, dst)
}

func (c *Client) postJSON(ctx context.Context, path, token string, body any) error {
	resp, err := c.do(ctx, "POST", path, token, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return httpError(resp.StatusCode, data)
	}
	return nil
}

func httpError(code int, body []byte) error {
	var result struct {
		Errors []string `json:"errors"`
	}
	if err := json.Unmarshal(body, &result); err == nil && len(result.Errors) > 0 {
		return fmt.Errorf("backend: %s", result.Errors[0])
	}
	return fmt.Errorf("backend: HTTP %d", code)
}

// GetPending fetches the pending consent requests for a user.
func (c *Client) GetPending(ctx context.Context, userID string) ([]*models.PendingConsentRequest, error) {
	var resp struct {
		Pending []*models.PendingConsentRequest `json:"pending"`
	}
	path := "/v1/pending-consents?userId=" + url.QueryEscape(userID)
	if err := c.getJSON(ctx, path, "", &resp); err != nil {
		return nil, err
	}
	return resp.Pending, nil
}

// GetAuditHistory fetches a page of the append-only audit log.
// The backend has shipped three response shapes over time (a bare array,
// {items:[...]}, and {history:[...]}); normalization happens here so
// callers only ever see a flat list. Unrecognized shapes yield an empty
// list rather than an error.
func (c *Client) GetAuditHistory(ctx context.Context, userID string, page, pageSize int) ([]*models.AuditLogEntry, error) {
	path := "/v1/consent-history?userId=" + url.QueryEscape(userID) +
		"&page=" + strconv.Itoa(page) + "&pageSize=" + strconv.Itoa(pageSize)

	resp, err := c.do(ctx, "GET", path, "", nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		return nil, httpError(resp.StatusCode, data)
	}
	return NormalizeAudit(data), nil
}

// GetActive fetches the active consents for a user. Requires a bearer
// token: listing active grants needs authenticated owner context.
func (c *Client) GetActive(ctx context.Context, userID, token string) ([]*models.ActiveConsent, error) {
	var resp struct {
		Active []*models.ActiveConsent `json:"active"`
	}
	path := "/v1/active-consents?userId=" + url.QueryEscape(userID)
	if err := c.getJSON(ctx, path, token, &resp); err != nil {
		return nil, err
	}
	return resp.Active, nil
}

// Approve grants a pending consent request.
func (c *Client) Approve(ctx context.Context, requestID, token string) error {
	return c.postJSON(ctx, "/v1/consents/"+url.PathEscape(requestID)+"/approve", token, nil)
}

// Deny rejects a pending consent request.
func (c *Client) Deny(ctx context.Context, requestID, token string) error {
	return c.postJSON(ctx, "/v1/consents/"+url.PathEscape(requestID)+"/deny", token, nil)
}

// Revoke withdraws an active consent by scope.
func (c *Client) Revoke(ctx context.Context, scope, token string) error {
	return c.postJSON(ctx, "/v1/consents/revoke", token, map[string]any{"scope": scope})
}

// NormalizeAudit decodes an audit-history response body into a flat entry
// list, accepting the three shapes the backend has used. Anything else
// decodes to an empty list.
func NormalizeAudit(data []byte) []*models.AuditLogEntry {
	var bare []*models.AuditLogEntry
	if err := json.Unmarshal(data, &bare); err == nil {
		if bare == nil {
			bare = []*models.AuditLogEntry{}
		}
		return bare
	}

	var wrapped struct {
		Items   []*models.AuditLogEntry `json:"items"`
		History []*models.AuditLogEntry `json:"history"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil {
		if wrapped.Items != nil {
			return wrapped.Items
		}
		if wrapped.History != nil {
			return wrapped.History
		}
	}
	return []*models.AuditLogEntry{}
}
