package services

import (
	"context"
	"errors"
	"fmt"

	"finease/internal/auth"
	"finease/internal/core"
	"finease/internal/store"
)

// OwnershipGuard is the single place that decides whether a caller may
// touch an owner's records.
type OwnershipGuard struct {
	reader store.TransactionReader
}

func NewOwnershipGuard(reader store.TransactionReader) *OwnershipGuard {
	return &OwnershipGuard{reader: reader}
}

// RequireSelf fails with core.ErrForbidden unless email is exactly the
// caller's email.
func (g *OwnershipGuard) RequireSelf(caller auth.Identity, email string) error {
	if caller.Email == "" || email != caller.Email {
		return core.ErrForbidden
	}
	return nil
}

// LoadOwned fetches a record the caller owns. A missing record is reported
// as core.ErrNotFound before ownership is looked at.
func (g *OwnershipGuard) LoadOwned(ctx context.Context, caller auth.Identity, id string) (core.Transaction, error) {
	tx, err := g.reader.Get(ctx, id)
	if err != nil {
		return core.Transaction{}, storeError("get transaction", err)
	}
	if err := g.RequireSelf(caller, tx.Email); err != nil {
		return core.Transaction{}, err
	}
	return tx, nil
}

// storeError keeps not-found and validation failures as they are and marks
// everything else as a store outage.
func storeError(op string, err error) error {
	if errors.Is(err, core.ErrNotFound) || errors.Is(err, core.ErrInvalid) {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, core.ErrStoreUnavailable, err)
}
