package http

import (
	"net/http"

	"finease/internal/core"
)

func (s *Server) handleCreateTransaction(w http.ResponseWriter, r *http.Request) {
	who, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var tx core.Transaction
	if err := decodeJSON(w, r, &tx); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.storeContext(r)
	defer cancel()
	id, err := s.transactions.Create(ctx, who, tx)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.appMetrics.record(&s.appMetrics.created)

	NewJSONResponse().Body(CreateResponse{Acknowledged: true, InsertedID: id}).Write(w)
}

func (s *Server) handleListTransactions(w http.ResponseWriter, r *http.Request) {
	who, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	email, err := requiredQuery(r, "email")
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.storeContext(r)
	defer cancel()
	txs, err := s.transactions.ListByOwner(ctx, who, email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(txs).Write(w)
}

func (s *Server) handleGetTransaction(w http.ResponseWriter, r *http.Request) {
	who, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.storeContext(r)
	defer cancel()
	detail, err := s.transactions.Get(ctx, who, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	NewJSONResponse().Body(detail).Write(w)
}

func (s *Server) handleUpdateTransaction(w http.ResponseWriter, r *http.Request) {
	who, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var patch core.TransactionPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.storeContext(r)
	defer cancel()
	modified, err := s.transactions.Update(ctx, who, id, patch)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.appMetrics.record(&s.appMetrics.updated)

	message := "Transaction updated successfully"
	if modified == 0 {
		message = "No changes applied"
	}
	NewJSONResponse().Body(UpdateResponse{Success: true, Message: message, ModifiedCount: modified}).Write(w)
}

func (s *Server) handleDeleteTransaction(w http.ResponseWriter, r *http.Request) {
	who, err := caller(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	ctx, cancel := s.storeContext(r)
	defer cancel()
	deleted, err := s.transactions.Delete(ctx, who, id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	s.appMetrics.record(&s.appMetrics.deleted)

	NewJSONResponse().Body(DeleteResponse{
		Acknowledged: true,
		DeletedCount: deleted,
		Message:      "Transaction deleted successfully",
	}).Write(w)
}
