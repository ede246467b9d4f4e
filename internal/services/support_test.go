package services

import (
	"context"
	"errors"
	"testing"

	"quizzarium-backend/internal/apperrors"
	"quizzarium-backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGuestAndTicketFlow(t *testing.T) {
	db := newTestDB(t)
	svc := NewSupportService(db)
	ctx := context.Background()

	guest, created, err := svc.GetOrCreateGuest(ctx, 4242)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, "4242@guest.local", guest.Email)
	assert.Equal(t, models.RoleGuest, guest.Role)

	again, created, err := svc.GetOrCreateGuest(ctx, 4242)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, guest.ID, again.ID)

	_, err = svc.CreateTicket(ctx, guest.ID, "neo", "   ")
	assert.True(t, errors.Is(err, apperrors.ErrValidation))

	ticket, err := svc.CreateTicket(ctx, guest.ID, "neo", "cannot log in")
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusNew, ticket.Status)

	open, err := svc.ListNew(ctx)
	require.NoError(t, err)
	require.Len(t, open, 1)

	replied, author, err := svc.Reply(ctx, ticket.ID, "try resetting your password")
	require.NoError(t, err)
	assert.Equal(t, models.TicketStatusAnswered, replied.Status)
	require.NotNil(t, author.TelegramID)
	assert.Equal(t, int64(4242), *author.TelegramID)

	open, err = svc.ListNew(ctx)
	require.NoError(t, err)
	assert.Empty(t, open)

	mine, err := svc.ListByUser(ctx, guest.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "try resetting your password", mine[0].Response)

	_, _, err = svc.Reply(ctx, 999, "hello")
	assert.True(t, errors.Is(err, apperrors.ErrNotFound))
}
