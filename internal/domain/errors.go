package domain

import "errors"

// Sentinel errors for the domain layer. These provide consistent, checkable
// errors for common business logic failures. Absent rows are not an error;
// the store contracts return nil, nil for those.
var ErrMatchAlreadyExists = errors.New("match with this osu! id already exists")
