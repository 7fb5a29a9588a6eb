// Package store declares the persistence ports of the transaction service.
// Implementations live in the sub-packages (mongo, sqlite, memory).
package store

import (
	"context"

	"finease/internal/core"
)

// Ports for outbound adapters.
type (
	TransactionWriter interface {
		// Insert persists tx and returns the id assigned by the store.
		Insert(ctx context.Context, tx core.Transaction) (id string, err error)
		// Update applies patch to the record with the given id and reports
		// how many records changed (0 or 1). A missing id is core.ErrNotFound.
		Update(ctx context.Context, id string, patch core.TransactionPatch) (modified int64, err error)
		// Delete removes the record and reports how many were removed.
		Delete(ctx context.Context, id string) (deleted int64, err error)
	}

	TransactionReader interface {
		// Get returns core.ErrNotFound when no record has the id.
		Get(ctx context.Context, id string) (core.Transaction, error)
		// ListByOwner returns every record owned by email, oldest first.
		ListByOwner(ctx context.Context, email string) ([]core.Transaction, error)
	}

	// Aggregator computes report totals close to the data. All sums treat
	// the legacy "expanse" spelling as expense.
	Aggregator interface {
		SumCategoryType(ctx context.Context, email, category string, typ core.TransactionType) (core.Money, error)
		SumByType(ctx context.Context, email string) ([]core.TypeTotal, error)
		SumByCategory(ctx context.Context, email string) ([]core.CategoryAmount, error)
		SumByMonth(ctx context.Context, email string) ([]core.MonthTypeTotal, error)
	}

	// HealthChecker reports whether the backing store answers.
	HealthChecker interface {
		Ping(ctx context.Context) error
	}

	// TransactionStore is everything the services need from a backend.
	TransactionStore interface {
		TransactionWriter
		TransactionReader
		Aggregator
		HealthChecker
		Close() error
	}
)
