package api

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"supplygw/internal/buildinfo"
	"supplygw/internal/model"
	"supplygw/internal/workflow"
)

// LoginHandler handles POST /auth/login: a pure passthrough to the auth
// collaborator. The gateway never inspects credentials or the returned token;
// it only converts transport failure into the fixed 502 envelope.
func (s *Server) LoginHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	body, err := io.ReadAll(r.Body)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Unreadable body", err.Error(), r.URL.Path)
		return
	}
	start := time.Now()
	rl, err := s.Auth.Login(r.Context(), body)
	relayMetrics("auth", start, rl, err)
	if err != nil {
		s.warnUnavailable("auth", err)
		writeFailure(w, "auth service")
		return
	}
	writeRelay(w, rl)
}

// OrdersHandler handles GET/POST /api/orders. The Authorization header is
// forwarded when present and omitted when absent; whether anonymous access is
// permitted is the order collaborator's call.
func (s *Server) OrdersHandler(w http.ResponseWriter, r *http.Request) {
	authz := r.Header.Get("Authorization")
	switch r.Method {
	case http.MethodGet:
		filter := workflow.FilterAll
		if v := r.URL.Query().Get("status"); v != "" {
			f, err := workflow.ParseFilter(v)
			if err != nil {
				writeProblem(w, http.StatusBadRequest, "Invalid status filter", err.Error(), r.URL.Path)
				return
			}
			filter = f
		}
		start := time.Now()
		rl, err := s.Orders.List(r.Context(), filter, authz)
		relayMetrics("order", start, rl, err)
		if err != nil {
			s.warnUnavailable("order", err)
			writeFailure(w, "order service")
			return
		}
		writeRelay(w, rl)
	case http.MethodPost:
		body, err := io.ReadAll(r.Body)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Unreadable body", err.Error(), r.URL.Path)
			return
		}
		start := time.Now()
		rl, err := s.Orders.Create(r.Context(), body, authz)
		relayMetrics("order", start, rl, err)
		if err != nil {
			s.warnUnavailable("order", err)
			writeFailure(w, "order service")
			return
		}
		if rl.OK() {
			s.Broker.Publish(TopicOrders, Event{Type: "order.created", Data: map[string]any{
				"ts": time.Now().UTC().Format(time.RFC3339),
			}})
		}
		writeRelay(w, rl)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

// OrderByIDHandler handles GET /api/orders/{id} and PATCH
// /api/orders/{id}/status.
func (s *Server) OrderByIDHandler(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/orders/")
	if rest == r.URL.Path || rest == "" {
		writeProblem(w, http.StatusNotFound, "Not Found", "missing id", r.URL.Path)
		return
	}
	parts := strings.Split(rest, "/")
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid order id", parts[0], r.URL.Path)
		return
	}
	authz := r.Header.Get("Authorization")

	if len(parts) > 1 && parts[1] == "status" {
		if r.Method != http.MethodPatch {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		s.updateStatus(w, r, id, authz)
		return
	}

	if len(parts) > 1 {
		writeProblem(w, http.StatusNotFound, "Not Found", "", r.URL.Path)
		return
	}
	if r.Method != http.MethodGet {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	start := time.Now()
	rl, err := s.Orders.Get(r.Context(), id, authz)
	relayMetrics("order", start, rl, err)
	if err != nil {
		s.warnUnavailable("order", err)
		writeFailure(w, "order service")
		return
	}
	writeRelay(w, rl)
}

// updateStatus restricts the requested target status to the four known
// literals before forwarding. Fail closed: an unparseable body is rejected
// here, and transition legality beyond the literal set stays upstream.
func (s *Server) updateStatus(w http.ResponseWriter, r *http.Request, id int64, authz string) {
	var patch model.StatusPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid JSON", err.Error(), r.URL.Path)
		return
	}
	st, err := workflow.Parse(patch.Status)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid status", err.Error(), r.URL.Path)
		return
	}
	body, _ := json.Marshal(model.StatusPatch{Status: st.String()})
	start := time.Now()
	rl, err := s.Orders.UpdateStatus(r.Context(), id, body, authz)
	relayMetrics("order", start, rl, err)
	if err != nil {
		s.warnUnavailable("order", err)
		writeFailure(w, "order service")
		return
	}
	if rl.OK() {
		s.Broker.Publish(TopicOrders, Event{Type: "order.status.updated", Data: map[string]any{
			"orderId": id,
			"status":  st.String(),
			"ts":      time.Now().UTC().Format(time.RFC3339),
		}})
	}
	writeRelay(w, rl)
}

// Health
func (s *Server) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) ReadyHandler(w http.ResponseWriter, r *http.Request) {
	// Check broker connectivity when Redis-backed.
	if rb, ok := s.Broker.(*RedisBroker); ok {
		if err := rb.Ping(r.Context()); err != nil {
			writeProblem(w, http.StatusServiceUnavailable, "Not Ready", err.Error(), r.URL.Path)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

// DebugJSON reports build and configuration presence for troubleshooting.
func (s *Server) DebugJSON(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"build": buildinfo.Info(),
		"time":  time.Now().UTC().Format(time.RFC3339),
		"config": map[string]any{
			"AUTH_BASE_URL":  s.Auth.Base,
			"ORDER_BASE_URL": s.Orders.Base,
			"HAS_REDIS_URL":  isRedisBroker(s.Broker),
		},
	})
}

func isRedisBroker(b EventBroker) bool {
	_, ok := b.(*RedisBroker)
	return ok
}
