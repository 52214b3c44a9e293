// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/rentradar/auth"
	"github.com/danielhkuo/rentradar/middleware"
	"github.com/danielhkuo/rentradar/models"
	"github.com/danielhkuo/rentradar/voting"
)

var transitionMessages = map[string]string{
	models.TransitionCreated:   "Vote recorded",
	models.TransitionWithdrawn: "Vote removed",
	models.TransitionSwitched:  "Vote changed",
}

type VoteHandler struct {
	ledger   *voting.Ledger
	verifier auth.Verifier
}

func NewVoteHandler(ledger *voting.Ledger, verifier auth.Verifier) *VoteHandler {
	return &VoteHandler{ledger: ledger, verifier: verifier}
}

// CastVote handles POST /reports/{id}/votes
// Casting the category already held withdraws it; another category switches.
func (h *VoteHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	id, _, err := middleware.Identify(h.verifier, r)
	if err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}

	var req models.CastVoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}

	transition, err := h.ledger.CastVote(r.Context(), id.UID, r.PathValue("id"), req.VoteType)
	if err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.CastVoteResponse{
		Transition: transition,
		Message:    transitionMessages[transition],
	})
}

// GetMyVote handles GET /reports/{id}/my-vote
func (h *VoteHandler) GetMyVote(w http.ResponseWriter, r *http.Request) {
	id, _, err := middleware.Identify(h.verifier, r)
	if err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}

	cat, err := h.ledger.MyVote(r.Context(), id.UID, r.PathValue("id"))
	if err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, models.MyVoteResponse{VoteType: cat})
}
