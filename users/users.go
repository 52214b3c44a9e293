// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package users

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/danielhkuo/rentradar/apperr"
	"github.com/danielhkuo/rentradar/auth"
	"github.com/danielhkuo/rentradar/docstore"
	"github.com/danielhkuo/rentradar/models"
)

// Service manages user profiles.
type Service struct {
	store docstore.Store
	now   func() time.Time
}

func NewService(store docstore.Store) *Service {
	return &Service{store: store, now: models.Now}
}

// Touch records a sign-in. The first sign-in creates the profile with zero
// reputation and contributions; later ones only refresh lastLogin (and the
// display name and email when provided).
func (s *Service) Touch(ctx context.Context, id auth.Identity, email string) (models.Profile, error) {
	if id.UID == "" {
		return models.Profile{}, apperr.ErrUnauthenticated
	}
	now := s.now()

	profile := models.Profile{
		ID:          id.UID,
		DisplayName: id.DisplayName,
		Email:       email,
		Status:      models.UserActive,
		CreatedAt:   now,
		LastLogin:   &now,
	}
	err := s.store.Put(ctx, models.CollectionUsers, id.UID, profile.Fields(),
		docstore.PutOptions{If: &docstore.Precondition{MustNotExist: true}})
	if err == nil {
		slog.Info("profile created", "uid", id.UID)
		return profile, nil
	}
	if !errors.Is(err, docstore.ErrPreconditionFailed) {
		return models.Profile{}, apperr.Store("create profile", err)
	}

	update := docstore.Fields{"lastLogin": now}
	if id.DisplayName != "" {
		update["displayName"] = id.DisplayName
	}
	if email != "" {
		update["email"] = email
	}
	if err := s.store.Put(ctx, models.CollectionUsers, id.UID, update, docstore.PutOptions{Merge: true}); err != nil {
		return models.Profile{}, apperr.Store("update profile", err)
	}
	return s.Get(ctx, id.UID)
}

// Get returns the profile or apperr.ErrNotFound.
func (s *Service) Get(ctx context.Context, uid string) (models.Profile, error) {
	doc, err := s.store.Get(ctx, models.CollectionUsers, uid)
	if errors.Is(err, docstore.ErrNotFound) {
		return models.Profile{}, fmt.Errorf("%w: profile %s", apperr.ErrNotFound, uid)
	}
	if err != nil {
		return models.Profile{}, apperr.Store("get profile", err)
	}
	return models.ProfileFromDocument(doc), nil
}

// RequireActive fails with apperr.ErrUnauthorized when the user's profile is
// restricted or banned. Users without a profile yet count as active.
func (s *Service) RequireActive(ctx context.Context, uid string) error {
	if uid == "" {
		return apperr.ErrUnauthenticated
	}
	p, err := s.Get(ctx, uid)
	if errors.Is(err, apperr.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if p.Status != "" && p.Status != models.UserActive {
		return fmt.Errorf("%w: account is %s", apperr.ErrUnauthorized, p.Status)
	}
	return nil
}

// SetStatus changes an account's status. It is an operator action with no
// identity check; callers expose it only to trusted tooling.
func (s *Service) SetStatus(ctx context.Context, uid, status string) error {
	switch status {
	case models.UserActive, models.UserRestricted, models.UserBanned:
	default:
		return fmt.Errorf("%w: unknown user status %q", apperr.ErrInvalidInput, status)
	}
	err := s.store.Put(ctx, models.CollectionUsers, uid, docstore.Fields{"status": status},
		docstore.PutOptions{Merge: true, If: &docstore.Precondition{Match: docstore.Fields{}}})
	if errors.Is(err, docstore.ErrPreconditionFailed) {
		return fmt.Errorf("%w: profile %s", apperr.ErrNotFound, uid)
	}
	if err != nil {
		return apperr.Store("set user status", err)
	}
	slog.Info("user status changed", "uid", uid, "status", status)
	return nil
}

// AddContribution bumps the user's contributionsCount. Users without a
// profile are skipped.
func (s *Service) AddContribution(ctx context.Context, uid string) error {
	err := s.store.Increment(ctx, models.CollectionUsers, uid, "contributionsCount", 1)
	if errors.Is(err, docstore.ErrNotFound) {
		return nil
	}
	return apperr.Store("count contribution", err)
}
