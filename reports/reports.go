// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package reports

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/danielhkuo/rentradar/apperr"
	"github.com/danielhkuo/rentradar/auth"
	"github.com/danielhkuo/rentradar/docstore"
	"github.com/danielhkuo/rentradar/metrics"
	"github.com/danielhkuo/rentradar/models"
	"github.com/danielhkuo/rentradar/users"
)

// Manager owns the report lifecycle: creation, creator edits and
// moderation. Counters are never written here.
type Manager struct {
	store docstore.Store
	users *users.Service
	now   func() time.Time
	newID func() string
}

func NewManager(store docstore.Store, users *users.Service) *Manager {
	return &Manager{store: store, users: users, now: models.Now, newID: uuid.NewString}
}

// Visible reports whether the public may see r at now. Expiry is derived
// here on every read and never written back.
func Visible(r models.Report, now time.Time) bool {
	return r.Status == models.StatusActive && r.ExpiresAt.After(now)
}

// Now is the clock the manager evaluates visibility with.
func (m *Manager) Now() time.Time {
	return m.now()
}

// Create publishes a new report owned by creator.
func (m *Manager) Create(ctx context.Context, creator auth.Identity, req models.CreateReportRequest) (models.Report, error) {
	if creator.UID == "" {
		return models.Report{}, apperr.ErrUnauthenticated
	}
	if err := validateLocation(req.Location); err != nil {
		return models.Report{}, err
	}
	phone, err := normalizePhone(req.Phone)
	if err != nil {
		return models.Report{}, err
	}
	price := optional(req.Price)
	description := optional(req.Description)
	imageURL := optional(req.ImageURL)
	if price == nil && phone == nil && description == nil && imageURL == nil {
		return models.Report{}, apperr.ErrEmptyReport
	}
	if err := m.users.RequireActive(ctx, creator.UID); err != nil {
		return models.Report{}, err
	}

	now := m.now()
	r := models.Report{
		ID:          m.newID(),
		CreatedBy:   creator.UID,
		CreatedAt:   now,
		ExpiresAt:   now.Add(models.ReportTTL),
		Location:    *req.Location,
		Price:       price,
		Phone:       phone,
		Description: description,
		ImageURL:    imageURL,
		Status:      models.StatusActive,
	}
	err = m.store.Put(ctx, models.CollectionReports, r.ID, r.Fields(),
		docstore.PutOptions{If: &docstore.Precondition{MustNotExist: true}})
	if err != nil {
		return models.Report{}, apperr.Store("create report", err)
	}
	metrics.ReportsCreated.Inc()
	slog.Info("report created", "report_id", r.ID, "created_by", r.CreatedBy)

	if err := m.users.AddContribution(ctx, creator.UID); err != nil {
		slog.Warn("failed to count contribution", "uid", creator.UID, "error", err)
	}
	return r, nil
}

// Edit replaces price, phone and description. Only an active creator may
// edit; empty values clear the field.
func (m *Manager) Edit(ctx context.Context, editor auth.Identity, id string, req models.EditReportRequest) (models.Report, error) {
	if editor.UID == "" {
		return models.Report{}, apperr.ErrUnauthenticated
	}
	phone, err := normalizePhone(req.Phone)
	if err != nil {
		return models.Report{}, err
	}
	r, err := m.Get(ctx, id)
	if err != nil {
		return models.Report{}, err
	}
	if r.CreatedBy != editor.UID {
		return models.Report{}, fmt.Errorf("%w: only the creator can edit a report", apperr.ErrUnauthorized)
	}
	if err := m.users.RequireActive(ctx, editor.UID); err != nil {
		return models.Report{}, err
	}

	r.Price = optional(req.Price)
	r.Phone = phone
	r.Description = optional(req.Description)
	if r.Price == nil && r.Phone == nil && r.Description == nil && r.ImageURL == nil {
		return models.Report{}, apperr.ErrEmptyReport
	}

	update := docstore.Fields{
		"price":       ptrValue(r.Price),
		"phone":       ptrValue(r.Phone),
		"description": ptrValue(r.Description),
	}
	guard := &docstore.Precondition{Match: docstore.Fields{"createdBy": editor.UID}}
	err = m.store.Put(ctx, models.CollectionReports, id, update, docstore.PutOptions{Merge: true, If: guard})
	if errors.Is(err, docstore.ErrPreconditionFailed) {
		return models.Report{}, fmt.Errorf("%w: report %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return models.Report{}, apperr.Store("edit report", err)
	}
	slog.Info("report edited", "report_id", id)
	return r, nil
}

// SetModerationStatus activates or deactivates a report. actor must carry
// the elevated claim of a token verified for this call.
func (m *Manager) SetModerationStatus(ctx context.Context, actor auth.Identity, id, status string) error {
	if actor.UID == "" {
		return apperr.ErrUnauthenticated
	}
	if !actor.Elevated {
		return fmt.Errorf("%w: moderation requires admin", apperr.ErrUnauthorized)
	}
	if status != models.StatusActive && status != models.StatusInactive {
		return fmt.Errorf("%w: unknown report status %q", apperr.ErrInvalidInput, status)
	}

	err := m.store.Put(ctx, models.CollectionReports, id, docstore.Fields{"status": status},
		docstore.PutOptions{Merge: true, If: &docstore.Precondition{Match: docstore.Fields{}}})
	if errors.Is(err, docstore.ErrPreconditionFailed) {
		return fmt.Errorf("%w: report %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return apperr.Store("set report status", err)
	}
	metrics.ModerationActions.WithLabelValues("report_" + status).Inc()
	slog.Info("report status changed", "report_id", id, "status", status, "actor", actor.UID)
	return nil
}

// Get returns a report regardless of visibility.
func (m *Manager) Get(ctx context.Context, id string) (models.Report, error) {
	doc, err := m.store.Get(ctx, models.CollectionReports, id)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.Report{}, fmt.Errorf("%w: report %s", apperr.ErrNotFound, id)
	}
	if err != nil {
		return models.Report{}, apperr.Store("get report", err)
	}
	return models.ReportFromDocument(doc), nil
}

// VisibleWhere is the store-side form of Visible at now.
func VisibleWhere(now time.Time) []docstore.Predicate {
	return []docstore.Predicate{
		docstore.Eq("status", models.StatusActive),
		docstore.Gt("expiresAt", now),
	}
}

// ListVisible returns up to limit publicly visible reports, newest first.
func (m *Manager) ListVisible(ctx context.Context, limit int) ([]models.Report, error) {
	now := m.now()
	page, err := m.store.Query(ctx, docstore.Query{
		Collection: models.CollectionReports,
		Where:      VisibleWhere(now),
		OrderBy:    docstore.Order{Field: "createdAt", Desc: true},
		Limit:      limit,
	})
	if err != nil {
		return nil, apperr.Store("list reports", err)
	}
	out := make([]models.Report, 0, len(page.Documents))
	for _, d := range page.Documents {
		if r := models.ReportFromDocument(d); Visible(r, now) {
			out = append(out, r)
		}
	}
	return out, nil
}

func validateLocation(loc *models.Location) error {
	if loc == nil {
		return apperr.ErrMissingLocation
	}
	if loc.Lat < -90 || loc.Lat > 90 || loc.Lng < -180 || loc.Lng > 180 {
		return fmt.Errorf("%w: coordinates out of range", apperr.ErrInvalidInput)
	}
	if loc.Lat == 0 && loc.Lng == 0 {
		return apperr.ErrMissingLocation
	}
	return nil
}

// normalizePhone strips separators and requires exactly 10 digits.
// An empty phone is allowed and returns nil.
func normalizePhone(raw string) (*string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	digits := strings.Map(func(r rune) rune {
		switch {
		case r >= '0' && r <= '9':
			return r
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
			return -1
		}
		return 'x'
	}, raw)
	if len(digits) != 10 || strings.ContainsRune(digits, 'x') {
		return nil, apperr.ErrInvalidPhone
	}
	return &digits, nil
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func ptrValue(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
