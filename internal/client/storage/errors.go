package storage

import "errors"

// ErrNotFound is returned when no value exists under the requested key.
var ErrNotFound = errors.New("key not found")
