package users

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danielhkuo/rentradar/apperr"
	"github.com/danielhkuo/rentradar/auth"
	"github.com/danielhkuo/rentradar/docstore"
	"github.com/danielhkuo/rentradar/models"
)

func TestTouchCreatesThenRefreshes(t *testing.T) {
	ctx := context.Background()
	store := docstore.NewMemoryStore()
	svc := NewService(store)

	first := time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return first }

	p, err := svc.Touch(ctx, auth.Identity{UID: "u1", DisplayName: "Ana"}, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, models.UserActive, p.Status)
	assert.Equal(t, int64(0), p.ReputationScore)
	assert.Equal(t, first, p.CreatedAt)

	require.NoError(t, svc.AddContribution(ctx, "u1"))

	later := first.Add(48 * time.Hour)
	svc.now = func() time.Time { return later }
	p, err = svc.Touch(ctx, auth.Identity{UID: "u1"}, "")
	require.NoError(t, err)

	assert.Equal(t, "Ana", p.DisplayName)
	assert.Equal(t, "ana@example.com", p.Email)
	assert.Equal(t, first, p.CreatedAt)
	require.NotNil(t, p.LastLogin)
	assert.Equal(t, later, *p.LastLogin)
	assert.Equal(t, int64(1), p.ContributionsCount)

	_, err = svc.Touch(ctx, auth.Identity{}, "")
	assert.ErrorIs(t, err, apperr.ErrUnauthenticated)
}

func TestRequireActive(t *testing.T) {
	ctx := context.Background()
	svc := NewService(docstore.NewMemoryStore())

	assert.ErrorIs(t, svc.RequireActive(ctx, ""), apperr.ErrUnauthenticated)
	assert.NoError(t, svc.RequireActive(ctx, "no-profile-yet"))

	_, err := svc.Touch(ctx, auth.Identity{UID: "u1"}, "")
	require.NoError(t, err)
	assert.NoError(t, svc.RequireActive(ctx, "u1"))

	for _, status := range []string{models.UserRestricted, models.UserBanned} {
		require.NoError(t, svc.SetStatus(ctx, "u1", status))
		assert.ErrorIs(t, svc.RequireActive(ctx, "u1"), apperr.ErrUnauthorized, status)
	}
}

func TestSetStatusErrors(t *testing.T) {
	ctx := context.Background()
	svc := NewService(docstore.NewMemoryStore())

	assert.ErrorIs(t, svc.SetStatus(ctx, "u1", "suspended"), apperr.ErrInvalidInput)
	assert.ErrorIs(t, svc.SetStatus(ctx, "ghost", models.UserBanned), apperr.ErrNotFound)
	assert.NoError(t, svc.AddContribution(ctx, "ghost"))
}
