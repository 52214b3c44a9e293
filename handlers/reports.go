// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/danielhkuo/rentradar/apperr"
	"github.com/danielhkuo/rentradar/auth"
	"github.com/danielhkuo/rentradar/classify"
	"github.com/danielhkuo/rentradar/middleware"
	"github.com/danielhkuo/rentradar/models"
	"github.com/danielhkuo/rentradar/reports"
)

const (
	defaultListLimit = 100
	maxListLimit     = 500
)

type ReportHandler struct {
	reports  *reports.Manager
	verifier auth.Verifier
}

func NewReportHandler(reports *reports.Manager, verifier auth.Verifier) *ReportHandler {
	return &ReportHandler{reports: reports, verifier: verifier}
}

// viewOf derives the display status and visibility of a report at now.
func viewOf(r models.Report, now time.Time) models.ReportView {
	return models.ReportView{
		Report:        r,
		DisplayStatus: classify.Classify(r.Counters),
		Visible:       reports.Visible(r, now),
	}
}

// ListReports handles GET /reports
func (h *ReportHandler) ListReports(w http.ResponseWriter, r *http.Request) {
	limit := defaultListLimit
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			middleware.ErrorResponse(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = min(n, maxListLimit)
	}

	list, err := h.reports.ListVisible(r.Context(), limit)
	if err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}

	now := h.reports.Now()
	resp := models.ListReportsResponse{Reports: make([]models.ReportView, 0, len(list))}
	for _, rep := range list {
		resp.Reports = append(resp.Reports, viewOf(rep, now))
	}
	middleware.JSONResponse(w, http.StatusOK, resp)
}

// CreateReport handles POST /reports
func (h *ReportHandler) CreateReport(w http.ResponseWriter, r *http.Request) {
	id, _, err := middleware.Identify(h.verifier, r)
	if err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}

	var req models.CreateReportRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}

	rep, err := h.reports.Create(r.Context(), id, req)
	if err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}

	middleware.JSONResponse(w, http.StatusCreated, models.CreateReportResponse{
		ReportID:  rep.ID,
		ExpiresAt: rep.ExpiresAt,
	})
}

// GetReport handles GET /reports/{id}
// Moderated or expired reports are only served to their creator and admins.
func (h *ReportHandler) GetReport(w http.ResponseWriter, r *http.Request) {
	caller, err := middleware.OptionalIdentity(h.verifier, r)
	if err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}

	id := r.PathValue("id")
	rep, err := h.reports.Get(r.Context(), id)
	if err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}

	view := viewOf(rep, h.reports.Now())
	if !view.Visible && !caller.Elevated && (caller.UID == "" || caller.UID != rep.CreatedBy) {
		middleware.ErrorFromErr(w, fmt.Errorf("%w: report %s", apperr.ErrNotFound, id))
		return
	}
	middleware.JSONResponse(w, http.StatusOK, view)
}

// EditReport handles PATCH /reports/{id}
// Only the creator may edit; price, phone and description are replaced.
func (h *ReportHandler) EditReport(w http.ResponseWriter, r *http.Request) {
	id, _, err := middleware.Identify(h.verifier, r)
	if err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}

	var req models.EditReportRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}

	rep, err := h.reports.Edit(r.Context(), id, r.PathValue("id"), req)
	if err != nil {
		middleware.ErrorFromErr(w, err)
		return
	}
	middleware.JSONResponse(w, http.StatusOK, viewOf(rep, h.reports.Now()))
}
