package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/templatestore/license-service/internal/ierr"
)

func TestGetOrderBySession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	missing := uuid.New()
	o := f.paidOrder(f.template.ID, missing)

	view, err := f.orders.GetOrderBySession(ctx, f.userID, "  "+o.PaymentSessionID+" ")
	require.NoError(t, err)
	assert.Equal(t, o.ID, view.Order.ID)
	require.Len(t, view.Items, 2)
	require.NotNil(t, view.Items[0].Template)
	assert.Equal(t, "Aurora Landing", view.Items[0].Template.Title)
	assert.Equal(t, missing, view.Items[1].Item.TemplateID)
	assert.Nil(t, view.Items[1].Template)

	_, err = f.orders.GetOrderBySession(ctx, uuid.New(), o.PaymentSessionID)
	assert.ErrorIs(t, err, ierr.ErrNotFound)

	_, err = f.orders.GetOrderBySession(ctx, f.userID, "cs_test_unknown")
	assert.ErrorIs(t, err, ierr.ErrNotFound)

	_, err = f.orders.GetOrderBySession(ctx, f.userID, " ")
	assert.ErrorIs(t, err, ierr.ErrValidation)
}
