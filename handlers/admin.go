// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/rentradar/auth"
	"github.com/danielhkuo/rentradar/middleware"
	"github.com/danielhkuo/rentradar/models"
	"github.com/danielhkuo/rentradar/moderation"
)

type AdminHandler struct {
	moderation *moderation.Service
	verifier   auth.Verifier
}

func NewAdminHandler(mod *moderation.Service, verifier auth.Verifier) *AdminHandler {
	return &AdminHandler{moderation: mod, verifier: verifier}
}

// adminToken returns the raw token. The moderation service verifies it,
// admin claim included, on every call. Handlers that read a body call
// Authorize first so unauthorized callers never reach body parsing.
func adminToken(r *http.Request) string {
	return auth.BearerToken(r.Header.Get("Authorization"))
}

func pageRequest(r *http.Request) moderation.PageRequest {
	q := r.URL.Query()
	return moderation.PageRequest{
		Desc:   q.Get("order") != "asc",
		Cursor: q.Get("cursor"),
	}
}

// SubmitFeedback handles POST /feedback
// Anonymous submissions are accepted.
func (h *AdminHandler) SubmitFeedback(w http.ResponseWriter, r *http.Request) {
	id, err := middleware.OptionalIdentity(h.verifier, r)
	if err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}

	var req models.SubmitFeedbackRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}

	fb, err := h.moderation.SubmitFeedback(r.Context(), id, req)
	if err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusCreated, models.SubmitFeedbackResponse{FeedbackID: fb.ID})
}

// GetStats handles GET /admin/stats
func (h *AdminHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.moderation.Stats(r.Context(), adminToken(r))
	if err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, stats)
}

// ListReports handles GET /admin/reports?order=&cursor=&status=&q=
// status and q narrow the fetched page only.
func (h *AdminHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	page, err := h.moderation.ReportPage(r.Context(), adminToken(r), pageRequest(r))
	if err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}
	q := r.URL.Query()
	page.Items = moderation.FilterReports(page.Items, q.Get("status"), q.Get("q"))
	middleware.JSONResponse(w, http.StatusOK, page)
}

// ListFeedback handles GET /admin/feedback?order=&cursor=&status=&q=
func (h *AdminHandler) ListFeedback(w http.ResponseWriter, r *http.Request) {
	page, err := h.moderation.FeedbackPage(r.Context(), adminToken(r), pageRequest(r))
	if err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}
	q := r.URL.Query()
	page.Items = moderation.FilterFeedback(page.Items, q.Get("status"), q.Get("q"))
	middleware.JSONResponse(w, http.StatusOK, page)
}

// SetReportStatus handles POST /admin/reports/{id}/status
func (h *AdminHandler) SetReportStatus(w http.ResponseWriter, r *http.Request) {
	token := adminToken(r)
	if _, err := h.moderation.Authorize(token); err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}
	var req models.SetStatusRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}
	if err := h.moderation.SetReportStatus(r.Context(), token, r.PathValue("id"), req.Status); err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// SetFeedbackResolved handles POST /admin/feedback/{id}/resolved
func (h *AdminHandler) SetFeedbackResolved(w http.ResponseWriter, r *http.Request) {
	token := adminToken(r)
	if _, err := h.moderation.Authorize(token); err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}
	var req models.SetResolvedRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}
	if err := h.moderation.SetFeedbackResolved(r.Context(), token, r.PathValue("id"), req.Resolved); err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
