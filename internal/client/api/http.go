package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/upass-project/upass/internal/common"
	"github.com/upass-project/upass/internal/cryptox"
)

// nowUnix is a test seam for the request timestamp.
var nowUnix = func() int64 { return time.Now().Unix() }

// signedRequest is the wire shape of an authenticated call. The
// signing_key field carries the symmetric MAC key in-band; this is
// observed protocol behavior and must be preserved for compatibility
// with the deployed server.
type signedRequest struct {
	PublicKey       string `json:"public_key"`
	SigningKey      string `json:"signing_key"`
	Timestamp       int64  `json:"timestamp"`
	Signature       string `json:"signature"`
	VaultBlob       string `json:"vault_blob,omitempty"`
	CreateIfMissing *bool  `json:"create_if_missing,omitempty"`
}

type errorResponse struct {
	Error string `json:"error"`
}

// HTTPClient implements Client over the JSON/HTTP contract.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient builds a client for the given server URL. A zero
// timeout falls back to 10 seconds.
func NewHTTPClient(serverURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(serverURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// ServerIdentity canonicalizes the server URL to host:port so that
// sessions cached for "https://example.com/" and "https://example.com"
// land on the same key.
func (c *HTTPClient) ServerIdentity() string {
	u, err := url.Parse(c.baseURL)
	if err != nil || u.Host == "" {
		return c.baseURL
	}
	host := u.Host
	if u.Port() == "" {
		if u.Scheme == "https" {
			host += ":443"
		} else {
			host += ":80"
		}
	}
	return host
}

// do sends one request and decodes the response body into out (if out
// is non-nil). Non-2xx statuses are mapped to the error taxonomy with
// the server's message preserved verbatim.
func (c *HTTPClient) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e errorResponse
		if err := json.Unmarshal(data, &e); err != nil || e.Error == "" {
			e.Error = http.StatusText(resp.StatusCode)
		}
		return mapStatus(resp.StatusCode, e.Error)
	}

	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%w: malformed response: %v", common.ErrNetwork, err)
		}
	}
	return nil
}

// newSignedRequest assembles the authentication envelope for a message
// signed at the current unix time.
func newSignedRequest(signingSeed, message []byte, timestamp int64) signedRequest {
	return signedRequest{
		PublicKey:  cryptox.PublicIdentity(signingSeed),
		SigningKey: base64.StdEncoding.EncodeToString(signingSeed),
		Timestamp:  timestamp,
		Signature:  cryptox.SignMessage(message, signingSeed),
	}
}

func (c *HTTPClient) Health(ctx context.Context) error {
	var resp struct {
		Status string `json:"status"`
	}
	return c.do(ctx, http.MethodGet, "/health", nil, &resp)
}

func (c *HTTPClient) Exists(ctx context.Context, username string) (bool, error) {
	var resp struct {
		Exists bool `json:"exists"`
	}
	err := c.do(ctx, http.MethodGet, "/vaults/"+url.PathEscape(username)+"/exists", nil, &resp)
	if err != nil {
		return false, err
	}
	return resp.Exists, nil
}

func (c *HTTPClient) Retrieve(ctx context.Context, username string, signingSeed []byte) (string, error) {
	ts := nowUnix()
	req := newSignedRequest(signingSeed, cryptox.RetrieveMessage(ts), ts)

	var resp struct {
		VaultBlob string `json:"vault_blob"`
	}
	err := c.do(ctx, http.MethodPost, "/vaults/"+url.PathEscape(username)+"/retrieve", req, &resp)
	if err != nil {
		return "", err
	}
	return resp.VaultBlob, nil
}

func (c *HTTPClient) Save(ctx context.Context, username string, signingSeed []byte, vaultBlob string, createIfMissing bool) error {
	ts := nowUnix()
	req := newSignedRequest(signingSeed, cryptox.SaveMessage(vaultBlob, ts), ts)
	req.VaultBlob = vaultBlob
	req.CreateIfMissing = &createIfMissing

	var resp struct {
		Success bool `json:"success"`
	}
	return c.do(ctx, http.MethodPut, "/vaults/"+url.PathEscape(username), req, &resp)
}

func (c *HTTPClient) Delete(ctx context.Context, username string, signingSeed []byte) error {
	ts := nowUnix()
	req := newSignedRequest(signingSeed, cryptox.DeleteMessage(ts), ts)

	var resp struct {
		Success bool `json:"success"`
	}
	return c.do(ctx, http.MethodPost, "/vaults/"+url.PathEscape(username)+"/delete", req, &resp)
}
