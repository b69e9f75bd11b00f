package console

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"supplygw/internal/api"
	"supplygw/internal/model"
	"supplygw/internal/session"
	"supplygw/internal/workflow"
)

const testToken = "Bearer test-token"

// fakeOrderService is a stateful stand-in for the order collaborator. It
// assigns ids, starts every order as PENDING, and enforces the bearer token.
type fakeOrderService struct {
	mu     sync.Mutex
	nextID int64
	orders []model.SupplyOrder
	posts  int
}

func (f *fakeOrderService) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != testToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		switch r.Method {
		case http.MethodPost:
			f.posts++
			var req model.OrderRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			f.nextID++
			o := model.SupplyOrder{
				ID:       f.nextID,
				ItemName: req.ItemName,
				Quantity: req.Quantity,
				Status:   workflow.StatusPending.String(),
			}
			f.orders = append(f.orders, o)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusCreated)
			_ = json.NewEncoder(w).Encode(o)
		case http.MethodGet:
			filter := r.URL.Query().Get("status")
			out := []model.SupplyOrder{}
			for _, o := range f.orders {
				if filter == "" || o.Status == filter {
					out = append(out, o)
				}
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(out)
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/orders/", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != testToken {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/api/orders/"), "/")
		id, _ := strconv.ParseInt(parts[0], 10, 64)
		f.mu.Lock()
		defer f.mu.Unlock()
		for i := range f.orders {
			if f.orders[i].ID != id {
				continue
			}
			if len(parts) > 1 && parts[1] == "status" && r.Method == http.MethodPatch {
				var patch model.StatusPatch
				_ = json.NewDecoder(r.Body).Decode(&patch)
				f.orders[i].Status = patch.Status
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(f.orders[i])
			return
		}
		w.WriteHeader(http.StatusNotFound)
	})
	return mux
}

func fakeAuthService(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req model.LoginRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Username != "alice" || req.Password != "s3cret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"message":"bad credentials"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(model.Session{
			Token: "test-token", TokenType: "Bearer", ExpiresInSeconds: 3600,
		})
	}))
	t.Cleanup(ts.Close)
	return ts
}

// newGateway mounts the real gateway in front of the fakes.
func newGateway(t *testing.T, orderHandler http.Handler) *httptest.Server {
	t.Helper()
	auth := fakeAuthService(t)
	orders := httptest.NewServer(orderHandler)
	t.Cleanup(orders.Close)

	t.Setenv("AUTH_BASE_URL", auth.URL)
	t.Setenv("ORDER_BASE_URL", orders.URL)
	t.Setenv("REDIS_URL", "")
	srv, err := api.NewServer()
	require.NoError(t, err)
	gw := httptest.NewServer(srv.Routes())
	t.Cleanup(gw.Close)
	return gw
}

func newClient(t *testing.T, gw *httptest.Server) *Client {
	t.Helper()
	return New(gw.URL, session.NewManager(session.NewMemoryStore()))
}

func TestRoundTrip(t *testing.T) {
	fake := &fakeOrderService{}
	gw := newGateway(t, fake.handler())
	c := newClient(t, gw)
	ctx := context.Background()

	sess, err := c.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	require.Equal(t, "test-token", sess.Token)

	created, err := c.CreateOrder(ctx, "Widget", 3)
	require.NoError(t, err)
	require.Equal(t, "Widget", created.ItemName)
	require.Equal(t, 3, created.Quantity)
	require.Equal(t, workflow.StatusPending.String(), created.Status)

	all, err := c.ListOrders(ctx, workflow.FilterAll)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, created.ID, all[0].ID)

	updated, err := c.UpdateStatus(ctx, created.ID, "SHIPPED")
	require.NoError(t, err)
	require.Equal(t, workflow.StatusShipped.String(), updated.Status)

	shipped, err := c.ListOrders(ctx, workflow.Filter(workflow.StatusShipped))
	require.NoError(t, err)
	require.Len(t, shipped, 1)

	pending, err := c.ListOrders(ctx, workflow.Filter(workflow.StatusPending))
	require.NoError(t, err)
	require.Empty(t, pending)

	got, err := c.GetOrder(ctx, created.ID)
	require.NoError(t, err)
	require.Equal(t, workflow.StatusShipped.String(), got.Status)
}

func TestLoginRejectionLeavesNoSession(t *testing.T) {
	fake := &fakeOrderService{}
	gw := newGateway(t, fake.handler())
	c := newClient(t, gw)

	_, err := c.Login(context.Background(), "alice", "wrong")
	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
	require.Equal(t, http.StatusUnauthorized, rej.StatusCode)

	_, active := c.Sessions.Session()
	require.False(t, active)
}

func TestOrderOpsRefusedWithoutSession(t *testing.T) {
	calls := 0
	gw := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { calls++ }))
	c := newClient(t, gw)
	ctx := context.Background()

	_, err := c.ListOrders(ctx, workflow.FilterAll)
	require.ErrorIs(t, err, ErrSessionMissing)
	_, err = c.CreateOrder(ctx, "Widget", 3)
	require.ErrorIs(t, err, ErrSessionMissing)
	_, err = c.UpdateStatus(ctx, 1, "SHIPPED")
	require.ErrorIs(t, err, ErrSessionMissing)
	_, err = c.GetOrder(ctx, 1)
	require.ErrorIs(t, err, ErrSessionMissing)

	require.Zero(t, calls, "anonymous refusal must not reach the collaborator")
}

func TestLocalValidationBeforeNetwork(t *testing.T) {
	fake := &fakeOrderService{}
	gw := newGateway(t, fake.handler())
	c := newClient(t, gw)
	ctx := context.Background()

	_, err := c.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)

	_, err = c.CreateOrder(ctx, "   ", 1)
	require.ErrorIs(t, err, ErrValidation)
	_, err = c.CreateOrder(ctx, "Widget", 0)
	require.ErrorIs(t, err, ErrValidation)
	_, err = c.UpdateStatus(ctx, 1, "DELIVERED")
	require.ErrorIs(t, err, ErrValidation)
	require.Zero(t, fake.posts, "invalid input must be rejected before any request")

	_, err = c.CreateOrder(ctx, "Widget", 3)
	require.NoError(t, err)
	require.Equal(t, 1, fake.posts, "a valid create issues exactly one POST")
}

func TestParseQuantity(t *testing.T) {
	n, err := ParseQuantity(" 3 ")
	require.NoError(t, err)
	require.Equal(t, 3, n)

	for _, s := range []string{"1.5", "0", "-1", "", "three"} {
		_, err := ParseQuantity(s)
		require.ErrorIs(t, err, ErrValidation, s)
	}
}

func TestExpiredTokenTearsDownSession(t *testing.T) {
	// Collaborator rejects every token: simulates server-side expiry.
	gw := newGateway(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	c := newClient(t, gw)
	ctx := context.Background()

	_, err := c.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)

	_, err = c.ListOrders(ctx, workflow.FilterAll)
	require.ErrorIs(t, err, ErrSessionExpired)

	// Torn down: the next attempt is refused locally.
	_, err = c.ListOrders(ctx, workflow.FilterAll)
	require.ErrorIs(t, err, ErrSessionMissing)
	_, active := c.Sessions.Session()
	require.False(t, active)
}

func TestStartRestoresSession(t *testing.T) {
	fake := &fakeOrderService{}
	gw := newGateway(t, fake.handler())

	store := session.NewMemoryStore()
	first := New(gw.URL, session.NewManager(store))
	ctx := context.Background()
	_, err := first.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)
	_, err = first.CreateOrder(ctx, "Widget", 3)
	require.NoError(t, err)

	// A fresh client over the same store resumes without credentials.
	second := New(gw.URL, session.NewManager(store))
	require.NoError(t, second.Start(ctx))
	orders := second.Sessions.Orders()
	require.Len(t, orders, 1)
	require.Equal(t, "Widget", orders[0].ItemName)
}

func TestStartWithoutStoredSession(t *testing.T) {
	fake := &fakeOrderService{}
	gw := newGateway(t, fake.handler())
	c := newClient(t, gw)

	require.NoError(t, c.Start(context.Background()))
	_, active := c.Sessions.Session()
	require.False(t, active)
}

func TestGatewayUnreachable(t *testing.T) {
	dead := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	dead.Close()

	c := New(dead.URL, session.NewManager(session.NewMemoryStore()))
	_, err := c.Login(context.Background(), "alice", "s3cret")
	require.Error(t, err)
	require.False(t, errors.As(err, new(*RejectedError)), "transport failure is not a rejection")
}

func TestUnavailableCollaboratorSurfacedAsRejection(t *testing.T) {
	orders := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	orders.Close() // gateway sees a dead collaborator

	auth := fakeAuthService(t)
	t.Setenv("AUTH_BASE_URL", auth.URL)
	t.Setenv("ORDER_BASE_URL", orders.URL)
	t.Setenv("REDIS_URL", "")
	srv, err := api.NewServer()
	require.NoError(t, err)
	gw := httptest.NewServer(srv.Routes())
	t.Cleanup(gw.Close)

	c := New(gw.URL, session.NewManager(session.NewMemoryStore()))
	ctx := context.Background()
	_, err = c.Login(ctx, "alice", "s3cret")
	require.NoError(t, err)

	_, err = c.ListOrders(ctx, workflow.FilterAll)
	var rej *RejectedError
	require.ErrorAs(t, err, &rej)
	require.Equal(t, http.StatusBadGateway, rej.StatusCode)
	require.Equal(t, "order service unavailable", rej.Message)
}
