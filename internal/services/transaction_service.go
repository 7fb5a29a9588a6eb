package services

import (
	"context"

	"finease/internal/amqp"
	"finease/internal/auth"
	"finease/internal/core"
	"finease/internal/log"
	"finease/internal/store"
)

// ChangePublisher broadcasts record changes to other instances.
type ChangePublisher interface {
	PublishChange(ctx context.Context, e amqp.ChangeEvent) error
}

// OwnerInvalidator drops derived state kept for an owner.
type OwnerInvalidator interface {
	InvalidateOwner(email string)
}

// TransactionDetail is a record plus the total of its category and type.
type TransactionDetail struct {
	Transaction   core.Transaction `json:"transaction"`
	CategoryTotal core.Money       `json:"categoryTotal"`
}

// TransactionService runs owner-scoped CRUD. Every successful mutation
// invalidates the owner's reports and publishes a change event; publish
// failures are logged and do not fail the request.
type TransactionService struct {
	store       store.TransactionStore
	guard       *OwnershipGuard
	invalidator OwnerInvalidator
	publisher   ChangePublisher
}

// NewTransactionService wires the service. invalidator and publisher may be nil.
func NewTransactionService(s store.TransactionStore, guard *OwnershipGuard, invalidator OwnerInvalidator, publisher ChangePublisher) *TransactionService {
	return &TransactionService{
		store:       s,
		guard:       guard,
		invalidator: invalidator,
		publisher:   publisher,
	}
}

// Create stores tx for the caller and returns its id. The payload email must
// be the caller's.
func (s *TransactionService) Create(ctx context.Context, caller auth.Identity, tx core.Transaction) (string, error) {
	if err := s.guard.RequireSelf(caller, tx.Email); err != nil {
		return "", err
	}
	tx.Type = core.NormalizeType(string(tx.Type))
	if err := tx.Validate(); err != nil {
		return "", err
	}
	tx.ID = ""

	id, err := s.store.Insert(ctx, tx)
	if err != nil {
		return "", storeError("insert transaction", err)
	}

	s.logger(ctx).InfoContext(ctx, "Transaction created",
		log.NewFields().WithTransaction(id, tx.Email, string(tx.Type), tx.Category).WithOperation(log.OpCreate).ToSlice()...)
	s.changed(ctx, amqp.ChangeCreated, tx.Email, id)
	return id, nil
}

// ListByOwner returns the caller's records in store order.
func (s *TransactionService) ListByOwner(ctx context.Context, caller auth.Identity, email string) ([]core.Transaction, error) {
	if err := s.guard.RequireSelf(caller, email); err != nil {
		return nil, err
	}
	txs, err := s.store.ListByOwner(ctx, email)
	if err != nil {
		return nil, storeError("list transactions", err)
	}
	if txs == nil {
		txs = []core.Transaction{}
	}
	return txs, nil
}

// Get returns an owned record and the sum over the owner's records sharing
// its category and type, the record itself included.
func (s *TransactionService) Get(ctx context.Context, caller auth.Identity, id string) (TransactionDetail, error) {
	tx, err := s.guard.LoadOwned(ctx, caller, id)
	if err != nil {
		return TransactionDetail{}, err
	}
	total, err := s.store.SumCategoryType(ctx, tx.Email, tx.Category, core.NormalizeType(string(tx.Type)))
	if err != nil {
		return TransactionDetail{}, storeError("category total", err)
	}
	return TransactionDetail{Transaction: tx, CategoryTotal: total}, nil
}

// Update merges patch into an owned record and reports how many records
// changed. The owner and id cannot be changed.
func (s *TransactionService) Update(ctx context.Context, caller auth.Identity, id string, patch core.TransactionPatch) (int64, error) {
	tx, err := s.guard.LoadOwned(ctx, caller, id)
	if err != nil {
		return 0, err
	}
	if patch.Type != nil {
		t := core.NormalizeType(string(*patch.Type))
		patch.Type = &t
	}
	if err := patch.Validate(tx.Email); err != nil {
		return 0, err
	}
	patch.Email = nil

	modified, err := s.store.Update(ctx, id, patch)
	if err != nil {
		return 0, storeError("update transaction", err)
	}

	s.logger(ctx).InfoContext(ctx, "Transaction updated",
		log.NewFields().WithTransaction(id, tx.Email, "", "").WithOperation(log.OpUpdate).ToSlice()...)
	if modified > 0 {
		s.changed(ctx, amqp.ChangeUpdated, tx.Email, id)
	}
	return modified, nil
}

// Delete removes an owned record and reports how many were removed.
func (s *TransactionService) Delete(ctx context.Context, caller auth.Identity, id string) (int64, error) {
	tx, err := s.guard.LoadOwned(ctx, caller, id)
	if err != nil {
		return 0, err
	}
	deleted, err := s.store.Delete(ctx, id)
	if err != nil {
		return 0, storeError("delete transaction", err)
	}

	s.logger(ctx).InfoContext(ctx, "Transaction deleted",
		log.NewFields().WithTransaction(id, tx.Email, string(tx.Type), tx.Category).WithOperation(log.OpDelete).ToSlice()...)
	if deleted > 0 {
		s.changed(ctx, amqp.ChangeDeleted, tx.Email, id)
	}
	return deleted, nil
}

func (s *TransactionService) changed(ctx context.Context, kind amqp.ChangeKind, owner, id string) {
	if s.invalidator != nil {
		s.invalidator.InvalidateOwner(owner)
	}
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishChange(ctx, amqp.NewChangeEvent(kind, owner, id)); err != nil {
		s.logger(ctx).LogError(ctx, "Failed to publish change event", err, log.OpPublish, log.ErrorTypeInternal,
			log.FieldTransactionID, id)
	}
}

func (s *TransactionService) logger(ctx context.Context) *log.Logger {
	return log.FromContext(ctx).WithComponent(log.ComponentTransactions)
}
