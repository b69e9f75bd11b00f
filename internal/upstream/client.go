// Package upstream holds the HTTP clients for the two collaborators the
// gateway fronts: the auth service and the order service. Both clients relay
// responses verbatim and classify only transport failures.
package upstream

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"supplygw/internal/workflow"
)

// ErrUnavailable classifies any transport-level failure reaching a
// collaborator: connection refused, DNS, timeout. Never retried here.
var ErrUnavailable = errors.New("upstream unavailable")

// Relay is a collaborator response captured for verbatim forwarding. The
// gateway never reinterprets a relayed body; it only status-classifies.
type Relay struct {
	StatusCode  int
	ContentType string
	Body        []byte
}

// OK reports a 2xx collaborator response.
func (r *Relay) OK() bool { return r.StatusCode >= 200 && r.StatusCode < 300 }

// AuthRejected reports an authentication/authorization rejection, which the
// calling layer must treat as "session invalid".
func (r *Relay) AuthRejected() bool {
	return r.StatusCode == http.StatusUnauthorized || r.StatusCode == http.StatusForbidden
}

func defaultClient(timeout time.Duration) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &http.Client{Timeout: timeout}
}

func do(hc *http.Client, req *http.Request) (*Relay, error) {
	resp, err := hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		ct = "application/json"
	}
	return &Relay{StatusCode: resp.StatusCode, ContentType: ct, Body: body}, nil
}

// AuthClient talks to the auth collaborator.
type AuthClient struct {
	Base string
	HTTP *http.Client
}

func NewAuthClient(base string, timeout time.Duration) *AuthClient {
	return &AuthClient{Base: base, HTTP: defaultClient(timeout)}
}

// Login forwards the raw credential body unmodified to POST /auth/login.
func (c *AuthClient) Login(ctx context.Context, body []byte) (*Relay, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.Base+"/auth/login", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return do(c.HTTP, req)
}

// OrderClient talks to the order collaborator. Every method attaches the
// caller's Authorization value when one is supplied; an empty value sends no
// header and lets the collaborator decide whether anonymous access is allowed.
type OrderClient struct {
	Base string
	HTTP *http.Client
}

func NewOrderClient(base string, timeout time.Duration) *OrderClient {
	return &OrderClient{Base: base, HTTP: defaultClient(timeout)}
}

func (c *OrderClient) newRequest(ctx context.Context, method, path, authorization string, body []byte) (*http.Request, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, rd)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	// Order state changes frequently; never serve a listing from a cache.
	req.Header.Set("Cache-Control", "no-store")
	return req, nil
}

// List fetches GET /api/orders, adding the status parameter only when the
// filter names a concrete status. FilterAll omits it entirely.
func (c *OrderClient) List(ctx context.Context, filter workflow.Filter, authorization string) (*Relay, error) {
	path := "/api/orders"
	if v, ok := filter.QueryValue(); ok {
		path += "?status=" + url.QueryEscape(v)
	}
	req, err := c.newRequest(ctx, http.MethodGet, path, authorization, nil)
	if err != nil {
		return nil, err
	}
	return do(c.HTTP, req)
}

// Get fetches GET /api/orders/{id}.
func (c *OrderClient) Get(ctx context.Context, id int64, authorization string) (*Relay, error) {
	req, err := c.newRequest(ctx, http.MethodGet, "/api/orders/"+strconv.FormatInt(id, 10), authorization, nil)
	if err != nil {
		return nil, err
	}
	return do(c.HTTP, req)
}

// Create forwards the create-order payload to POST /api/orders.
func (c *OrderClient) Create(ctx context.Context, body []byte, authorization string) (*Relay, error) {
	req, err := c.newRequest(ctx, http.MethodPost, "/api/orders", authorization, body)
	if err != nil {
		return nil, err
	}
	return do(c.HTTP, req)
}

// UpdateStatus forwards the partial status update to the per-order status
// endpoint. The caller has already restricted the target status to the known
// literals; transition legality stays with the collaborator.
func (c *OrderClient) UpdateStatus(ctx context.Context, id int64, body []byte, authorization string) (*Relay, error) {
	req, err := c.newRequest(ctx, http.MethodPatch, "/api/orders/"+strconv.FormatInt(id, 10)+"/status", authorization, body)
	if err != nil {
		return nil, err
	}
	return do(c.HTTP, req)
}
