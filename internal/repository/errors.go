// Package repository holds the MySQL implementations of the stores used
// by the service layer, plus the sentinel errors shared with the
// in-memory implementation in memstore. Services translate these
// sentinels into classified application errors.
package repository

import "errors"

// ErrNotFound is returned when the requested row does not exist.
// Handlers ultimately translate this into an HTTP 404 response.
var ErrNotFound = errors.New("not found")

// ErrDuplicate is returned when an insert or update would violate a
// unique key (order number, cart per user, product external ref).
var ErrDuplicate = errors.New("duplicate")

// ErrEmailExists is the ErrDuplicate variant raised for user and admin
// email collisions. errors.Is(err, ErrDuplicate) also holds.
var ErrEmailExists = &emailExistsError{}

type emailExistsError struct{}

func (*emailExistsError) Error() string        { return "email already exists" }
func (*emailExistsError) Is(target error) bool { return target == ErrDuplicate }

// ErrConflict is returned when a conditional update does not apply
// because the row is in an incompatible state, such as cancelling an
// order that has already shipped. Handlers translate this into 409.
var ErrConflict = errors.New("conflict")
