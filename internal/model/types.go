package model

// Wire types shared by the gateway, the client runtime, and tests. The gateway
// relays collaborator payloads opaquely; these shapes exist for the console and
// for the few fields the gateway inspects before forwarding.

// Session is the client-held proof of authentication returned by the auth
// collaborator's login endpoint.
type Session struct {
	Token            string `json:"token"`
	TokenType        string `json:"tokenType"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

// Empty reports whether the session carries no token.
func (s Session) Empty() bool { return s.Token == "" }

// AuthorizationValue renders the session as an Authorization header value
// using the scheme the auth collaborator reported, e.g. "Bearer <token>".
func (s Session) AuthorizationValue() string {
	scheme := s.TokenType
	if scheme == "" {
		scheme = "Bearer"
	}
	return scheme + " " + s.Token
}

// LoginRequest is the credential pair forwarded unmodified to the auth
// collaborator.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// SupplyOrder mirrors the order collaborator's response shape. IDs are
// assigned upstream; timestamps are relayed as-is.
type SupplyOrder struct {
	ID        int64  `json:"id"`
	ItemName  string `json:"itemName"`
	Quantity  int    `json:"quantity"`
	Status    string `json:"status"`
	CreatedAt string `json:"createdAt,omitempty"`
	UpdatedAt string `json:"updatedAt,omitempty"`
}

// OrderRequest is the create-order payload.
type OrderRequest struct {
	ItemName string `json:"itemName"`
	Quantity int    `json:"quantity"`
}

// StatusPatch is the partial-update body for PATCH /api/orders/{id}/status.
// The gateway inspects only this one field before forwarding.
type StatusPatch struct {
	Status string `json:"status"`
}

// FailureEnvelope is the uniform shape the gateway returns when a collaborator
// is unreachable. Always paired with HTTP 502.
type FailureEnvelope struct {
	Error string `json:"error"`
}
