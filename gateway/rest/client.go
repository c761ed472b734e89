package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"sync"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/zubacap/zubacap-go/core"
)

type (
	// CredentialSource provides the bearer credential attached to every
	// outbound request. Clear must make the credential absent for all
	// subsequent Token calls.
	CredentialSource interface {
		Token() (string, bool)
		Clear()
	}

	// Client is the single point of egress to the backend.
	Client struct {
		baseURL string
		http    *http.Client
		creds   CredentialSource

		mu        sync.Mutex
		onExpired func()
	}
)

func NewClient(conf *core.Config, creds CredentialSource) *Client {
	return &Client{
		baseURL: conf.Backend.BaseURL,
		http:    &http.Client{Timeout: conf.Backend.Timeout},
		creds:   creds,
	}
}

// OnSessionExpired subscribes fn to the session-expiry signal: it runs once
// per credential eviction, after the credential has been cleared. The call
// that observed the 401 still fails with an *APIError; so do any concurrent
// in-flight calls sharing the evicted credential.
func (c *Client) OnSessionExpired(fn func()) {
	c.mu.Lock()
	c.onExpired = fn
	c.mu.Unlock()
}

// evictCredential clears the persisted credential exactly once per 401
// storm: concurrent unauthorized responses race here and only the first
// one to find a credential present clears it and fires the signal.
func (c *Client) evictCredential() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.creds.Token(); !ok {
		return
	}
	c.creds.Clear()
	if c.onExpired != nil {
		c.onExpired()
	}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return errors.Wrap(err, "encoding request body")
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, u, &buf)
	if err != nil {
		return errors.Wrap(err, "building request")
	}
	reqID := uuid.New().String()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Request-ID", reqID)
	if token, ok := c.creds.Token(); ok {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrapf(err, "%s %s", method, path)
	}
	//goland:noinspection GoUnhandledErrorResult
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.evictCredential()
		return newAPIError(resp, reqID)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return newAPIError(resp, reqID)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return errors.Wrapf(err, "decoding %s %s response", method, path)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out interface{}) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

// getData fetches an enveloped resource ({"data": ...}) and unmarshals the
// data member into out. An absent/null data member leaves out untouched.
func (c *Client) getData(ctx context.Context, path string, query url.Values, out interface{}) error {
	var env envelope
	if err := c.get(ctx, path, query, &env); err != nil {
		return err
	}
	return env.unmarshal(out)
}

// postData submits a write wrapped in the backend's {"data": ...} envelope
// and unmarshals the enveloped response into out.
func (c *Client) postData(ctx context.Context, path string, payload, out interface{}) error {
	var env envelope
	if err := c.post(ctx, path, map[string]interface{}{"data": payload}, &env); err != nil {
		return err
	}
	return env.unmarshal(out)
}

type envelope struct {
	Data json.RawMessage `json:"data"`
}

func (env envelope) unmarshal(out interface{}) error {
	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	return errors.Wrap(json.Unmarshal(env.Data, out), "decoding data envelope")
}

// APIError is any non-2xx backend response.
type APIError struct {
	Status    int
	Message   string
	RequestID string
}

func newAPIError(resp *http.Response, reqID string) error {
	apiErr := &APIError{
		Status:    resp.StatusCode,
		Message:   http.StatusText(resp.StatusCode),
		RequestID: reqID,
	}

	var body struct {
		Error struct {
			Status  int    `json:"status"`
			Name    string `json:"name"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil && body.Error.Message != "" {
		apiErr.Message = body.Error.Message
	}
	return apiErr
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: %s (status %d)", e.Message, e.Status)
}

// APIMessage exposes the backend's user-facing failure message.
func (e *APIError) APIMessage() string { return e.Message }

// IsUnauthorized reports whether err is a 401 backend response.
func IsUnauthorized(err error) bool {
	apiErr, ok := errors.Cause(err).(*APIError)
	return ok && apiErr.Status == http.StatusUnauthorized
}
