package api

import (
	"encoding/json"
	"net/http"

	"supplygw/internal/model"
	"supplygw/internal/upstream"
)

// Problem represents an RFC7807 problem details response body, used for
// local validation failures the gateway raises before forwarding.
type Problem struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeProblem(w http.ResponseWriter, status int, title, detail, instance string) {
	writeJSON(w, status, Problem{
		Type:     "about:blank",
		Title:    title,
		Status:   status,
		Detail:   detail,
		Instance: instance,
	})
}

// writeFailure emits the uniform unavailability envelope. The shape and the
// 502 status are fixed: clients key off them to distinguish transport failure
// from collaborator-reported errors.
func writeFailure(w http.ResponseWriter, service string) {
	writeJSON(w, http.StatusBadGateway, model.FailureEnvelope{Error: service + " unavailable"})
}

// writeRelay forwards a collaborator response verbatim: status, body, and
// content type unchanged, success or not.
func writeRelay(w http.ResponseWriter, rl *upstream.Relay) {
	w.Header().Set("Content-Type", rl.ContentType)
	w.WriteHeader(rl.StatusCode)
	_, _ = w.Write(rl.Body)
}
