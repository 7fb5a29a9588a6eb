package core

import (
	"errors"
	"fmt"
)

// Error taxonomy shared by services, stores and the HTTP layer.
var (
	ErrUnauthenticated  = errors.New("unauthenticated")
	ErrForbidden        = errors.New("forbidden access")
	ErrNotFound         = errors.New("transaction not found")
	ErrStoreUnavailable = errors.New("store unavailable")
	ErrInvalid          = errors.New("invalid transaction")
)

// Validation failures. All of them match ErrInvalid with errors.Is.
var (
	ErrInvalidAmount   = fmt.Errorf("%w: amount must be a positive number", ErrInvalid)
	ErrInvalidType     = fmt.Errorf("%w: type must be income or expense", ErrInvalid)
	ErrInvalidDate     = fmt.Errorf("%w: date must be YYYY-MM-DD or RFC 3339", ErrInvalid)
	ErrEmptyCategory   = fmt.Errorf("%w: empty category", ErrInvalid)
	ErrCategoryTooLong = fmt.Errorf("%w: category too long (max %d characters)", ErrInvalid, MaxCategoryLength)
	ErrEmptyEmail      = fmt.Errorf("%w: email is required", ErrInvalid)
	ErrImmutableOwner  = fmt.Errorf("%w: email cannot be changed", ErrInvalid)
	ErrImmutableID     = fmt.Errorf("%w: id cannot be changed", ErrInvalid)
	ErrEmptyPatch      = fmt.Errorf("%w: no fields to update", ErrInvalid)
	ErrReservedField   = fmt.Errorf("%w: reserved field name", ErrInvalid)
)
