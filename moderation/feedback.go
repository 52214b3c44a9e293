// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package moderation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/danielhkuo/rentradar/apperr"
	"github.com/danielhkuo/rentradar/auth"
	"github.com/danielhkuo/rentradar/docstore"
	"github.com/danielhkuo/rentradar/models"
)

const (
	MaxFeedbackLength   = 2000
	DefaultFeedbackType = "general"
)

// SubmitFeedback opens a ticket. Anonymous submissions are accepted;
// the submitter is recorded when known.
func (s *Service) SubmitFeedback(ctx context.Context, submitter auth.Identity, req models.SubmitFeedbackRequest) (models.Feedback, error) {
	msg := strings.TrimSpace(req.Message)
	if msg == "" {
		return models.Feedback{}, fmt.Errorf("%w: message is required", apperr.ErrInvalidInput)
	}
	if utf8.RuneCountInString(msg) > MaxFeedbackLength {
		return models.Feedback{}, fmt.Errorf("%w: message exceeds %d characters", apperr.ErrInvalidInput, MaxFeedbackLength)
	}
	kind := strings.ToLower(strings.TrimSpace(req.Type))
	if kind == "" {
		kind = DefaultFeedbackType
	}

	fb := models.Feedback{
		ID:        s.newID(),
		Message:   msg,
		Type:      kind,
		CreatedAt: s.now(),
	}
	if submitter.UID != "" {
		uid := submitter.UID
		fb.CreatedBy = &uid
	}
	err := s.store.Put(ctx, models.CollectionFeedback, fb.ID, fb.Fields(),
		docstore.PutOptions{If: &docstore.Precondition{MustNotExist: true}})
	if err != nil {
		return models.Feedback{}, apperr.Store("submit feedback", err)
	}
	slog.Info("feedback submitted", "feedback_id", fb.ID, "type", fb.Type)
	return fb, nil
}
