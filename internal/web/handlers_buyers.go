package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/propstack/leadbook/internal/buyer"
	"github.com/propstack/leadbook/internal/logging"
)

// handleListBuyers returns one page of the caller's buyers.
func (s *Server) handleListBuyers(w http.ResponseWriter, r *http.Request) {
	f, err := buyer.ParseFilters(r.URL.Query())
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	page, err := s.store.ListBuyers(r.Context(), f, currentUser(r).ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, page)
}

// handleCreateBuyer validates and persists a new buyer. Creation has a
// stricter rate-limit budget than the rest of the API.
func (s *Server) handleCreateBuyer(w http.ResponseWriter, r *http.Request) {
	if s.createLimiter != nil {
		res := s.createLimiter.Allow(clientKey(r))
		setRateHeaders(w, res)
		if !res.Allowed {
			s.respondError(w, r, errRateLimited)
			return
		}
	}

	var in buyer.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	b, err := buyer.ParseCreate(in)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	created, err := s.store.CreateBuyer(r.Context(), b, currentUser(r).ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("buyer created", "buyer_id", created.ID)
	writeJSON(w, http.StatusCreated, created)
}

// handleGetBuyer returns a single buyer owned by the caller.
func (s *Server) handleGetBuyer(w http.ResponseWriter, r *http.Request) {
	id, ok := buyerID(w, r)
	if !ok {
		return
	}

	b, err := s.store.GetBuyer(r.Context(), id, currentUser(r).ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, b)
}

// handleUpdateBuyer applies a partial update under optimistic
// concurrency. The body must echo the updatedAt the client last read;
// a stale token yields 409.
func (s *Server) handleUpdateBuyer(w http.ResponseWriter, r *http.Request) {
	id, ok := buyerID(w, r)
	if !ok {
		return
	}

	var in buyer.UpdateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}

	if err := in.Validate(); err != nil {
		s.respondError(w, r, err)
		return
	}

	updated, err := s.store.UpdateBuyer(r.Context(), id, in, currentUser(r).ID, in.UpdatedAt)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("buyer updated", "buyer_id", id)
	writeJSON(w, http.StatusOK, updated)
}

// handleDeleteBuyer removes a buyer and its change history.
func (s *Server) handleDeleteBuyer(w http.ResponseWriter, r *http.Request) {
	id, ok := buyerID(w, r)
	if !ok {
		return
	}

	if err := s.store.DeleteBuyer(r.Context(), id, currentUser(r).ID); err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("buyer deleted", "buyer_id", id)
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// handleHistory returns the most recent changes for a buyer.
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := buyerID(w, r)
	if !ok {
		return
	}

	entries, err := s.store.BuyerHistory(r.Context(), id, currentUser(r).ID)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"data": entries})
}

// buyerID parses the {id} route parameter, writing a 400 on failure.
func buyerID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeBadRequest(w, "invalid buyer id")
		return uuid.Nil, false
	}
	return id, true
}
