package repository

import "errors"

// ErrNotFound indicates the requested record does not exist. Both the postgres repository and
// the backing-store HTTP client report absence with it.
var ErrNotFound = errors.New("repository: not found")
