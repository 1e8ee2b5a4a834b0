package apperr

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrNotFound means the referenced product has no stock record or is inactive.
	ErrNotFound = errors.New("stock record not found or inactive")

	// ErrBusy means lock acquisition ran out of its retry budget. The whole
	// commit attempt is safe to retry from scratch.
	ErrBusy = errors.New("stock is busy, retry the request")
)

// IntegrityError signals that a stock invariant would be broken
// (current < 0, reserved > current, or a movement whose new != previous + change).
// It aborts the entire write set and points at a logic defect, not user error.
type IntegrityError struct {
	Detail string
}

func (e *IntegrityError) Error() string {
	return "stock integrity violation: " + e.Detail
}

// Integrityf builds an IntegrityError with a formatted detail message.
func Integrityf(format string, args ...interface{}) *IntegrityError {
	return &IntegrityError{Detail: fmt.Sprintf(format, args...)}
}

// Conflict describes one order line that cannot be satisfied. It carries
// everything the caller needs to render a shortfall message without a
// second query.
type Conflict struct {
	ProductID   uuid.UUID `json:"product_id"`
	ProductName string    `json:"product_name"`
	Requested   int       `json:"requested"`
	Available   int       `json:"available"`
}

// ConflictError is the expected "insufficient stock" outcome. It is data,
// not a fault: callers render the conflict list as ordinary control flow.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("insufficient stock for %d line(s)", len(e.Conflicts))
}

// AsConflict unwraps err into a *ConflictError if it is one.
func AsConflict(err error) (*ConflictError, bool) {
	var ce *ConflictError
	if errors.As(err, &ce) {
		return ce, true
	}
	return nil, false
}

// AsIntegrity unwraps err into an *IntegrityError if it is one.
func AsIntegrity(err error) (*IntegrityError, bool) {
	var ie *IntegrityError
	if errors.As(err, &ie) {
		return ie, true
	}
	return nil, false
}
