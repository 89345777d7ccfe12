// Package types provides shared value objects and type definitions
// used across multiple modules (Shared Kernel pattern).
package types

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrInvalidOrderID is returned for order ids that are not UUIDs.
var ErrInvalidOrderID = errors.New("invalid order id")

// OrderID represents the internal, stable identifier of an order.
// Using a distinct type prevents mixing it up with gateway intent ids.
type OrderID struct {
	value string
}

func NewOrderID() OrderID {
	return OrderID{value: uuid.New().String()}
}

func ParseOrderID(s string) (OrderID, error) {
	if _, err := uuid.Parse(s); err != nil {
		return OrderID{}, fmt.Errorf("%w %q", ErrInvalidOrderID, s)
	}
	return OrderID{value: s}, nil
}

// MustParseOrderID parses an OrderID, panicking if invalid.
// Use only for trusted input (e.g., from database).
func MustParseOrderID(s string) OrderID {
	id, err := ParseOrderID(s)
	if err != nil {
		panic(err)
	}
	return id
}

func (id OrderID) String() string { return id.value }
func (id OrderID) IsZero() bool   { return id.value == "" }
