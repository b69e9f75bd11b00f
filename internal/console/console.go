// Package console is the client runtime that drives the gateway: it owns the
// session lifecycle, refuses order operations while anonymous, validates
// input before any network call, and tears the session down when a
// downstream call reports an authentication rejection.
package console

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"supplygw/internal/model"
	"supplygw/internal/session"
	"supplygw/internal/workflow"
)

var (
	// ErrSessionMissing refuses an order operation locally when no session
	// is active. No network call is made.
	ErrSessionMissing = errors.New("no active session; authenticate first")
	// ErrSessionExpired is surfaced after a downstream 401/403, once the
	// session has been torn down. Distinct from generic failures so the
	// operator knows to re-authenticate rather than retry.
	ErrSessionExpired = errors.New("session expired, please authenticate again")
	// ErrValidation marks malformed input rejected before any network call.
	ErrValidation = errors.New("invalid input")
)

// RejectedError carries a collaborator rejection relayed through the gateway,
// including the gateway's own 502 unavailability envelope.
type RejectedError struct {
	StatusCode int
	Message    string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("request failed (%d): %s", e.StatusCode, e.Message)
}

// Client talks to the gateway's client-facing contract. The session manager
// is supplied explicitly; there is no hidden global token.
type Client struct {
	Base     string
	HTTP     *http.Client
	Sessions *session.Manager

	// Filter last used for listing; mutations re-list with it afterwards.
	filter workflow.Filter
}

func New(gatewayBase string, sessions *session.Manager) *Client {
	return &Client{
		Base:     strings.TrimRight(gatewayBase, "/"),
		HTTP:     &http.Client{Timeout: 10 * time.Second},
		Sessions: sessions,
		filter:   workflow.FilterAll,
	}
}

// Start restores a stored session if one exists and, when it does, attempts
// an initial listing with the restored token. Credentials are never
// re-prompted for a restored session; if the token has expired the listing
// reports it and the session is torn down.
func (c *Client) Start(ctx context.Context) error {
	restored, err := c.Sessions.Restore(ctx)
	if err != nil || !restored {
		return err
	}
	if _, err := c.ListOrders(ctx, workflow.FilterAll); err != nil && !errors.Is(err, ErrSessionExpired) {
		return err
	}
	return nil
}

// Login authenticates and, on success, installs the returned session. Any
// non-2xx response is relayed as a rejection without touching session state.
func (c *Client) Login(ctx context.Context, username, password string) (model.Session, error) {
	body, _ := json.Marshal(model.LoginRequest{Username: username, Password: password})
	status, respBody, err := c.do(ctx, http.MethodPost, "/auth/login", body, "")
	if err != nil {
		return model.Session{}, err
	}
	if status < 200 || status >= 300 {
		return model.Session{}, &RejectedError{StatusCode: status, Message: errMessage(respBody)}
	}
	var sess model.Session
	if err := json.Unmarshal(respBody, &sess); err != nil {
		return model.Session{}, fmt.Errorf("decode login response: %w", err)
	}
	if sess.Empty() {
		return model.Session{}, fmt.Errorf("login response carried no token")
	}
	if err := c.Sessions.Login(ctx, sess); err != nil {
		return model.Session{}, err
	}
	return sess, nil
}

// Logout tears the session down. Safe to call while already anonymous.
func (c *Client) Logout(ctx context.Context) error {
	return c.Sessions.Logout(ctx)
}

// ListOrders fetches orders through the gateway with the given filter. The
// result is applied to the displayed view only if no newer listing has been
// issued meanwhile.
func (c *Client) ListOrders(ctx context.Context, filter workflow.Filter) ([]model.SupplyOrder, error) {
	authz, err := c.requireSession()
	if err != nil {
		return nil, err
	}
	c.filter = filter
	seq := c.Sessions.BeginList()

	path := "/api/orders"
	if v, ok := filter.QueryValue(); ok {
		path += "?status=" + url.QueryEscape(v)
	}
	status, body, err := c.do(ctx, http.MethodGet, path, nil, authz)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		_ = c.Sessions.SessionExpired(ctx)
		return nil, ErrSessionExpired
	}
	if status < 200 || status >= 300 {
		return nil, &RejectedError{StatusCode: status, Message: errMessage(body)}
	}
	var orders []model.SupplyOrder
	if err := json.Unmarshal(body, &orders); err != nil {
		return nil, fmt.Errorf("decode orders: %w", err)
	}
	c.Sessions.ApplyList(seq, orders)
	return orders, nil
}

// CreateOrder validates locally, forwards the trimmed payload, and re-lists
// with the active filter on success. The collaborator assigns the id and the
// initial PENDING status; the console only observes them.
func (c *Client) CreateOrder(ctx context.Context, itemName string, quantity int) (model.SupplyOrder, error) {
	itemName = strings.TrimSpace(itemName)
	if itemName == "" {
		return model.SupplyOrder{}, fmt.Errorf("%w: item name must not be empty", ErrValidation)
	}
	if quantity < 1 {
		return model.SupplyOrder{}, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	authz, err := c.requireSession()
	if err != nil {
		return model.SupplyOrder{}, err
	}
	body, _ := json.Marshal(model.OrderRequest{ItemName: itemName, Quantity: quantity})
	status, respBody, err := c.do(ctx, http.MethodPost, "/api/orders", body, authz)
	if err != nil {
		return model.SupplyOrder{}, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		_ = c.Sessions.SessionExpired(ctx)
		return model.SupplyOrder{}, ErrSessionExpired
	}
	if status < 200 || status >= 300 {
		return model.SupplyOrder{}, &RejectedError{StatusCode: status, Message: errMessage(respBody)}
	}
	var order model.SupplyOrder
	if err := json.Unmarshal(respBody, &order); err != nil {
		return model.SupplyOrder{}, fmt.Errorf("decode order: %w", err)
	}
	c.refresh(ctx)
	return order, nil
}

// UpdateStatus requests a transition to one of the four known literals.
// Anything else is rejected locally; transition legality between known
// literals stays with the order collaborator and is relayed opaquely.
func (c *Client) UpdateStatus(ctx context.Context, orderID int64, nextStatus string) (model.SupplyOrder, error) {
	st, err := workflow.Parse(nextStatus)
	if err != nil {
		return model.SupplyOrder{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	authz, err := c.requireSession()
	if err != nil {
		return model.SupplyOrder{}, err
	}
	body, _ := json.Marshal(model.StatusPatch{Status: st.String()})
	path := "/api/orders/" + strconv.FormatInt(orderID, 10) + "/status"
	status, respBody, err := c.do(ctx, http.MethodPatch, path, body, authz)
	if err != nil {
		return model.SupplyOrder{}, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		_ = c.Sessions.SessionExpired(ctx)
		return model.SupplyOrder{}, ErrSessionExpired
	}
	if status < 200 || status >= 300 {
		return model.SupplyOrder{}, &RejectedError{StatusCode: status, Message: errMessage(respBody)}
	}
	var order model.SupplyOrder
	if err := json.Unmarshal(respBody, &order); err != nil {
		return model.SupplyOrder{}, fmt.Errorf("decode order: %w", err)
	}
	c.refresh(ctx)
	return order, nil
}

// GetOrder fetches a single order by id.
func (c *Client) GetOrder(ctx context.Context, orderID int64) (model.SupplyOrder, error) {
	authz, err := c.requireSession()
	if err != nil {
		return model.SupplyOrder{}, err
	}
	status, body, err := c.do(ctx, http.MethodGet, "/api/orders/"+strconv.FormatInt(orderID, 10), nil, authz)
	if err != nil {
		return model.SupplyOrder{}, err
	}
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		_ = c.Sessions.SessionExpired(ctx)
		return model.SupplyOrder{}, ErrSessionExpired
	}
	if status < 200 || status >= 300 {
		return model.SupplyOrder{}, &RejectedError{StatusCode: status, Message: errMessage(body)}
	}
	var order model.SupplyOrder
	if err := json.Unmarshal(body, &order); err != nil {
		return model.SupplyOrder{}, fmt.Errorf("decode order: %w", err)
	}
	return order, nil
}

// ParseQuantity converts operator input to an order quantity. Non-integer
// input such as "1.5" fails here, before any network call.
func ParseQuantity(s string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("%w: quantity must be an integer", ErrValidation)
	}
	if n < 1 {
		return 0, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	return n, nil
}

func (c *Client) requireSession() (string, error) {
	sess, active := c.Sessions.Session()
	if !active {
		return "", ErrSessionMissing
	}
	return sess.AuthorizationValue(), nil
}

// refresh re-lists with the active filter after a mutation; a failed refresh
// is not an error for the mutation itself.
func (c *Client) refresh(ctx context.Context) {
	_, _ = c.ListOrders(ctx, c.filter)
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, authz string) (int, []byte, error) {
	var rd io.Reader
	if body != nil {
		rd = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.Base+path, rd)
	if err != nil {
		return 0, nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authz != "" {
		req.Header.Set("Authorization", authz)
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("gateway unreachable: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, err
	}
	return resp.StatusCode, b, nil
}

// errMessage extracts a human-readable message from a relayed error body:
// the gateway's {error} envelope, a problem+json title/detail, or the raw
// body as a last resort.
func errMessage(body []byte) string {
	var env model.FailureEnvelope
	if err := json.Unmarshal(body, &env); err == nil && env.Error != "" {
		return env.Error
	}
	var prob struct {
		Title  string `json:"title"`
		Detail string `json:"detail"`
	}
	if err := json.Unmarshal(body, &prob); err == nil && prob.Title != "" {
		if prob.Detail != "" {
			return prob.Title + ": " + prob.Detail
		}
		return prob.Title
	}
	msg := strings.TrimSpace(string(body))
	if len(msg) > 200 {
		msg = msg[:200]
	}
	if msg == "" {
		msg = "no details"
	}
	return msg
}
