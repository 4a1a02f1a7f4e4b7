// Package errors holds the error kinds shared by the store, service and
// transport layers. Wrap them with fmt.Errorf("%w: ...") and test with errors.Is.
package errors

import (
	"fmt"
)

var (
	ErrNotFound      = fmt.Errorf("not found")
	ErrDuplicateName = fmt.Errorf("duplicate name")
	ErrInvalidInput  = fmt.Errorf("invalid input")
)
