// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/rentradar/auth"
	"github.com/danielhkuo/rentradar/middleware"
	"github.com/danielhkuo/rentradar/models"
	"github.com/danielhkuo/rentradar/users"
)

type UserHandler struct {
	users    *users.Service
	verifier auth.Verifier
}

func NewUserHandler(users *users.Service, verifier auth.Verifier) *UserHandler {
	return &UserHandler{users: users, verifier: verifier}
}

// StartSession handles POST /session
// Creates the caller's profile on first sign-in and refreshes lastLogin.
func (h *UserHandler) StartSession(w http.ResponseWriter, r *http.Request) {
	id, _, err := middleware.Identify(h.verifier, r)
	if err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}

	var req models.SessionRequest
	if r.ContentLength > 0 {
		if err := middleware.ParseJSONBody(r, &req); err != nil {
			middleware.ErrorFromErr(w, err)
			return
		}
	}

	profile, err := h.users.Touch(r.Context(), id, req.Email)
	if err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, profile)
}

// GetMe handles GET /me
func (h *UserHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	id, _, err := middleware.Identify(h.verifier, r)
	if err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}

	profile, err := h.users.Get(r.Context(), id.UID)
	if err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, profile)
}
