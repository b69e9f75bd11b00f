// Package workflow defines the supply-order status vocabulary the gateway is
// willing to forward. Transition legality between statuses is the order
// collaborator's authority; this package only restricts the set of literals a
// client may request.
package workflow

import (
	"errors"
	"fmt"
	"strings"
)

// Status is one of the four order lifecycle states owned by the order
// collaborator. Orders are always created upstream as StatusPending.
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusProcessing Status = "PROCESSING"
	StatusShipped    Status = "SHIPPED"
	StatusCancelled  Status = "CANCELLED"
)

// ErrUnknownStatus marks a status literal outside the defined set.
var ErrUnknownStatus = errors.New("unknown order status")

// Statuses returns the defined literals in workflow order.
func Statuses() []Status {
	return []Status{StatusPending, StatusProcessing, StatusShipped, StatusCancelled}
}

// Parse canonicalizes a status literal. Input is case-insensitive because the
// order collaborator upcases before validating; anything outside the four
// known literals fails so the gateway rejects it before forwarding.
func Parse(s string) (Status, error) {
	switch Status(strings.ToUpper(strings.TrimSpace(s))) {
	case StatusPending:
		return StatusPending, nil
	case StatusProcessing:
		return StatusProcessing, nil
	case StatusShipped:
		return StatusShipped, nil
	case StatusCancelled:
		return StatusCancelled, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownStatus, s)
}

func (s Status) String() string { return string(s) }

// Filter narrows an order listing. FilterAll is gateway-local: it means "omit
// the status parameter downstream" and is never transmitted as a literal.
type Filter string

const FilterAll Filter = "ALL"

// ParseFilter accepts ALL or any defined status literal.
func ParseFilter(s string) (Filter, error) {
	if strings.EqualFold(strings.TrimSpace(s), string(FilterAll)) {
		return FilterAll, nil
	}
	st, err := Parse(s)
	if err != nil {
		return "", err
	}
	return Filter(st), nil
}

// QueryValue returns the value to place in the downstream status query
// parameter, and false when the parameter must be omitted entirely.
func (f Filter) QueryValue() (string, bool) {
	if f == FilterAll || f == "" {
		return "", false
	}
	return string(f), true
}
