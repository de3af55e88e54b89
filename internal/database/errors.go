package database

import "errors"

// ErrNotFound is returned when a lookup by id matches no row visible to
// the caller. Rows owned by another tenant produce the same error, so a
// caller cannot tell "does not exist" from "exists for someone else".
var ErrNotFound = errors.New("not found")
