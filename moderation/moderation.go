// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package moderation

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/danielhkuo/rentradar/apperr"
	"github.com/danielhkuo/rentradar/auth"
	"github.com/danielhkuo/rentradar/classify"
	"github.com/danielhkuo/rentradar/docstore"
	"github.com/danielhkuo/rentradar/metrics"
	"github.com/danielhkuo/rentradar/models"
	"github.com/danielhkuo/rentradar/reports"
)

// Service backs the admin dashboard. Every method takes the caller's raw
// identity token and verifies the elevated claim again before running.
type Service struct {
	store    docstore.Store
	verifier auth.Verifier
	reports  *reports.Manager
	now      func() time.Time
	newID    func() string
}

func NewService(store docstore.Store, verifier auth.Verifier, reports *reports.Manager) *Service {
	return &Service{store: store, verifier: verifier, reports: reports, now: models.Now, newID: uuid.NewString}
}

// PageRequest selects one admin page. Cursor is the NextCursor of the
// previous page, or empty for the first page.
type PageRequest struct {
	Desc   bool
	Cursor string
}

// Authorize verifies that token carries the elevated claim. Handlers call it
// before reading a request body; every Service method checks again.
func (s *Service) Authorize(token string) (auth.Identity, error) {
	return s.authorize(token)
}

func (s *Service) authorize(token string) (auth.Identity, error) {
	id, err := s.verifier.Verify(token)
	if err != nil {
		return auth.Identity{}, fmt.Errorf("%w: %w", apperr.ErrUnauthenticated, err)
	}
	if !id.Elevated {
		return auth.Identity{}, fmt.Errorf("%w: admin claim required", apperr.ErrUnauthorized)
	}
	return id, nil
}

// Stats counts feedback and reports on the store side, concurrently.
func (s *Service) Stats(ctx context.Context, token string) (models.StatsResponse, error) {
	if _, err := s.authorize(token); err != nil {
		return models.StatsResponse{}, err
	}

	var stats models.StatsResponse
	g, gctx := errgroup.WithContext(ctx)
	count := func(dst *int64, collection string, where ...docstore.Predicate) {
		g.Go(func() error {
			n, err := s.store.Count(gctx, collection, where)
			if err != nil {
				return apperr.Store("count "+collection, err)
			}
			*dst = n
			return nil
		})
	}
	count(&stats.TotalFeedback, models.CollectionFeedback)
	count(&stats.PendingFeedback, models.CollectionFeedback, docstore.Eq("resolved", false))
	count(&stats.ActiveReports, models.CollectionReports, docstore.Eq("status", models.StatusActive))
	count(&stats.InactiveReports, models.CollectionReports, docstore.Eq("status", models.StatusInactive))

	if err := g.Wait(); err != nil {
		return models.StatsResponse{}, err
	}
	return stats, nil
}

// ReportPage returns one page of all reports ordered by creation time.
func (s *Service) ReportPage(ctx context.Context, token string, req PageRequest) (models.ReportPageResponse, error) {
	if _, err := s.authorize(token); err != nil {
		return models.ReportPageResponse{}, err
	}
	docs, next, hasMore, err := s.page(ctx, models.CollectionReports, req)
	if err != nil {
		return models.ReportPageResponse{}, err
	}

	now := s.now()
	resp := models.ReportPageResponse{Items: make([]models.AdminReportRow, 0, len(docs)), NextCursor: next, HasMore: hasMore}
	for _, d := range docs {
		r := models.ReportFromDocument(d)
		resp.Items = append(resp.Items, models.AdminReportRow{
			Report:        r,
			DisplayStatus: classify.Classify(r.Counters),
			Age:           humanize.RelTime(r.CreatedAt, now, "ago", "from now"),
		})
	}
	return resp, nil
}

// FeedbackPage returns one page of feedback tickets ordered by creation time.
func (s *Service) FeedbackPage(ctx context.Context, token string, req PageRequest) (models.FeedbackPageResponse, error) {
	if _, err := s.authorize(token); err != nil {
		return models.FeedbackPageResponse{}, err
	}
	docs, next, hasMore, err := s.page(ctx, models.CollectionFeedback, req)
	if err != nil {
		return models.FeedbackPageResponse{}, err
	}

	now := s.now()
	resp := models.FeedbackPageResponse{Items: make([]models.AdminFeedbackRow, 0, len(docs)), NextCursor: next, HasMore: hasMore}
	for _, d := range docs {
		fb := models.FeedbackFromDocument(d)
		resp.Items = append(resp.Items, models.AdminFeedbackRow{
			Feedback: fb,
			Age:      humanize.RelTime(fb.CreatedAt, now, "ago", "from now"),
		})
	}
	return resp, nil
}

// page fetches one extra document to learn whether another page exists.
func (s *Service) page(ctx context.Context, collection string, req PageRequest) ([]docstore.Document, string, bool, error) {
	after, err := decodeCursor(req.Cursor)
	if err != nil {
		return nil, "", false, err
	}
	order := docstore.Order{Field: "createdAt", Desc: req.Desc}
	page, err := s.store.Query(ctx, docstore.Query{
		Collection: collection,
		OrderBy:    order,
		Limit:      models.AdminPageSize + 1,
		After:      after,
	})
	if err != nil {
		return nil, "", false, apperr.Store("page "+collection, err)
	}

	docs := page.Documents
	hasMore := len(docs) > models.AdminPageSize
	if hasMore {
		docs = docs[:models.AdminPageSize]
	}
	var next string
	if hasMore {
		next = encodeCursor(docstore.CursorFor(docs[len(docs)-1], order))
	}
	return docs, next, hasMore, nil
}

// SetReportStatus disables or reactivates a report.
func (s *Service) SetReportStatus(ctx context.Context, token, id, status string) error {
	actor, err := s.authorize(token)
	if err != nil {
		return err
	}
	return s.reports.SetModerationStatus(ctx, actor, id, status)
}

// SetFeedbackResolved marks a ticket resolved or pending.
func (s *Service) SetFeedbackResolved(ctx context.Context, token, id string, resolved bool) error {
	actor, err := s.authorize(token)
	if err != nil {
		return err
	}
	err = s.store.Put(ctx, models.CollectionFeedback, id, docstore.Fields{"resolved": resolved},
		docstore.PutOptions{Merge: true, If: &docstore.Precondition{Match: docstore.Fields{}}})
	if errors.Is(err, docstore.ErrPreconditionFailed) {
		return fmt.Errorf("%w: feedback %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return apperr.Store("set feedback resolved", err)
	}
	action := "feedback_reopened"
	if resolved {
		action = "feedback_resolved"
	}
	metrics.ModerationActions.WithLabelValues(action).Inc()
	slog.Info("feedback updated", "feedback_id", id, "resolved", resolved, "actor", actor.UID)
	return nil
}

// Report status filters for FilterReports
const (
	FilterAll      = "all"
	FilterActive   = "active"
	FilterInactive = "inactive"
	FilterPending  = "pending"
	FilterResolved = "resolved"
)

// FilterReports narrows an already loaded page by moderation status and a
// case-insensitive search over description, price and phone. It never
// queries the store.
func FilterReports(rows []models.AdminReportRow, status, search string) []models.AdminReportRow {
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]models.AdminReportRow, 0, len(rows))
	for _, row := range rows {
		if status == FilterActive && row.Status == models.StatusInactive {
			continue
		}
		if status == FilterInactive && row.Status != models.StatusInactive {
			continue
		}
		if search != "" {
			text := strings.ToLower(strings.Join([]string{deref(row.Description), deref(row.Price), deref(row.Phone)}, " "))
			if !strings.Contains(text, search) {
				continue
			}
		}
		out = append(out, row)
	}
	return out
}

// FilterFeedback narrows an already loaded page by resolution and a
// case-insensitive search over message and type.
func FilterFeedback(rows []models.AdminFeedbackRow, status, search string) []models.AdminFeedbackRow {
	search = strings.ToLower(strings.TrimSpace(search))
	out := make([]models.AdminFeedbackRow, 0, len(rows))
	for _, row := range rows {
		if status == FilterPending && row.Resolved {
			continue
		}
		if status == FilterResolved && !row.Resolved {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(row.Message+" "+row.Type), search) {
			continue
		}
		out = append(out, row)
	}
	return out
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

type cursorToken struct {
	CreatedAt int64  `json:"t"`
	ID        string `json:"id"`
}

func encodeCursor(c *docstore.Cursor) string {
	var ts int64
	if t, ok := c.Value.(time.Time); ok {
		ts = t.UnixMilli()
	}
	b, _ := json.Marshal(cursorToken{CreatedAt: ts, ID: c.ID})
	return base64.RawURLEncoding.EncodeToString(b)
}

func decodeCursor(s string) (*docstore.Cursor, error) {
	if s == "" {
		return nil, nil
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("%w: malformed cursor", apperr.ErrInvalidInput)
	}
	var tok cursorToken
	if err := json.Unmarshal(b, &tok); err != nil || tok.ID == "" {
		return nil, fmt.Errorf("%w: malformed cursor", apperr.ErrInvalidInput)
	}
	return &docstore.Cursor{Value: time.UnixMilli(tok.CreatedAt).UTC(), ID: tok.ID}, nil
}
