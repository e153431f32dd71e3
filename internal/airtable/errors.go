package airtable

import (
	"errors"
	"fmt"
)

// Operation names carried on gateway errors.
const (
	OpList   = "list"
	OpCreate = "create"
	OpPatch  = "patch"
	OpDelete = "delete"
)

// Error is a gateway-level failure. It always names the table and the
// attempted operation; StatusCode is zero for transport and decode failures.
type Error struct {
	Table      string
	Op         string
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("airtable %s %s: status %d: %v", e.Op, e.Table, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("airtable %s %s: %v", e.Op, e.Table, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsGatewayError reports whether err is a gateway failure. Callers that
// need the table, operation or status use errors.As directly.
func IsGatewayError(err error) bool {
	var gwErr *Error
	return errors.As(err, &gwErr)
}
